// Command server runs the authoritative game server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"breach/server/internal/app"
)

func main() {
	var cfg app.Config

	root := &cobra.Command{
		Use:          "server",
		Short:        "Authoritative multiplayer arena server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return app.Run(ctx, cfg)
		},
	}

	root.Flags().StringVar(&cfg.Addr, "addr", envString("BREACH_ADDR", ":8080"), "listen address")
	root.Flags().StringVar(&cfg.MapPath, "map", os.Getenv("BREACH_MAP"), "map definition file (JSON); built-in layout when empty")
	root.Flags().IntVar(&cfg.MaxLobbies, "max-lobbies", envInt("BREACH_MAX_LOBBIES", 0), "lobby cap per process (0 = default)")
	root.Flags().StringVar(&cfg.ClientDir, "client-dir", "", "static client directory to serve at /")
	root.Flags().StringVar(&cfg.LogJSONPath, "log-json", "", "append structured logs to this file")
	root.Flags().BoolVar(&cfg.Observability.EnablePprof, "pprof", false, "expose /debug/pprof")

	if err := root.ExecuteContext(context.Background()); err != nil {
		log.Fatalf("%v", err)
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
