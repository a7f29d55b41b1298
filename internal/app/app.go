// Package app wires the process together: logging pipeline, map
// compilation, the lobby fleet, and the HTTP front door.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"breach/server/internal/arena"
	"breach/server/internal/lobby"
	servernet "breach/server/internal/net"
	"breach/server/internal/observability"
	"breach/server/internal/telemetry"
	"breach/server/logging"
	loggingSinks "breach/server/logging/sinks"
)

type Config struct {
	Addr        string
	MapPath     string
	MaxLobbies  int
	ClientDir   string
	LogJSONPath string
	Logger      telemetry.Logger

	Observability observability.Config
}

func Run(ctx context.Context, cfg Config) error {
	telemetryLogger := cfg.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}

	logConfig := logging.DefaultConfig()
	sinks := []logging.NamedSink{
		{Name: "console", Sink: loggingSinks.NewConsoleSink(os.Stdout, logConfig.Console)},
	}
	var logFile *os.File
	if cfg.LogJSONPath != "" {
		var err error
		logFile, err = os.OpenFile(cfg.LogJSONPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open json log file: %w", err)
		}
		defer logFile.Close()
		logConfig.EnabledSinks = append(logConfig.EnabledSinks, "json")
		sinks = append(sinks, logging.NamedSink{
			Name: "json",
			Sink: loggingSinks.NewJSONSink(logFile, logConfig.JSON.FlushInterval),
		})
	}

	router, err := logging.NewRouter(logging.SystemClock{}, logConfig, sinks)
	if err != nil {
		return fmt.Errorf("construct logging router: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	var gameMap *arena.Map
	if cfg.MapPath != "" {
		gameMap, err = arena.LoadMapFile(cfg.MapPath)
		if err != nil {
			return fmt.Errorf("load map: %w", err)
		}
	} else {
		gameMap = arena.DefaultMap()
	}

	metrics := &logging.Metrics{}
	manager := lobby.NewManager(ctx, lobby.ManagerConfig{
		MaxLobbies: cfg.MaxLobbies,
		GameMap:    gameMap,
		Publisher:  router,
		Logger:     telemetryLogger,
		Metrics:    telemetry.WrapMetrics(metrics),
		Seed:       time.Now().UnixNano(),
	})
	go manager.Run(ctx)

	handler := servernet.NewHTTPHandler(manager, servernet.HTTPHandlerConfig{
		ClientDir:     cfg.ClientDir,
		Logger:        telemetryLogger,
		Metrics:       metrics,
		Publisher:     router,
		Observability: cfg.Observability,
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: handler}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	telemetryLogger.Printf("server listening on %s (map %q)", cfg.Addr, gameMap.Name)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	manager.Shutdown()
	return nil
}
