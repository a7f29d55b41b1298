// Package net assembles the HTTP surface: health and diagnostics
// endpoints, the lobby browser, and the websocket upgrade route.
package net

import (
	"encoding/json"
	"log"
	nethttp "net/http"
	"net/http/pprof"
	"time"

	"breach/server/internal/lobby"
	"breach/server/internal/net/ws"
	"breach/server/internal/observability"
	"breach/server/internal/sim"
	"breach/server/internal/telemetry"
	"breach/server/logging"
)

type HTTPHandlerConfig struct {
	ClientDir     string
	Logger        telemetry.Logger
	Metrics       *logging.Metrics
	Publisher     logging.Publisher
	Observability observability.Config
}

func NewHTTPHandler(manager *lobby.Manager, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.WrapLogger(log.Default())
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := struct {
			Status       string            `json:"status"`
			ServerTime   int64             `json:"serverTime"`
			Lobbies      int               `json:"lobbies"`
			TickRate     int               `json:"tickRate"`
			NetworkEvery int               `json:"networkEvery"`
			Telemetry    map[string]uint64 `json:"telemetry,omitempty"`
		}{
			Status:       "ok",
			ServerTime:   time.Now().UnixMilli(),
			Lobbies:      manager.Count(),
			TickRate:     sim.TickRate,
			NetworkEvery: sim.NetworkEvery,
			Telemetry:    cfg.Metrics.Snapshot(),
		}

		data, err := json.Marshal(payload)
		if err != nil {
			httpError(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	mux.HandleFunc("/lobbies", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		query := r.URL.Query()
		rows := manager.List(lobby.ListFilters{
			ShowPrivate:    query.Get("private") == "1",
			ShowFull:       query.Get("full") == "1",
			ShowInProgress: query.Get("inProgress") == "1",
			Mode:           query.Get("mode"),
		})
		payload := lobby.ListPayload{Lobbies: rows, TotalCount: len(rows)}

		data, err := json.Marshal(payload)
		if err != nil {
			httpError(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	wsHandler := ws.NewHandler(manager, ws.HandlerConfig{Logger: logger, Publisher: cfg.Publisher})
	mux.HandleFunc("/ws", wsHandler.Handle)

	if cfg.Observability.EnablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	if cfg.ClientDir != "" {
		fs := nethttp.FileServer(nethttp.Dir(cfg.ClientDir))
		mux.Handle("/", fs)
	}

	return mux
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
