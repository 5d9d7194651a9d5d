// cmd/eventproc/health.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/vatsimnet/eventproc/log"
	"github.com/vatsimnet/eventproc/metrics"
	"github.com/vatsimnet/eventproc/util"
)

// healthResponse is the /healthz payload: liveness of both dependencies
// plus the running event counters.
type healthResponse struct {
	Status  string           `json:"status"`
	Uptime  string           `json:"uptime"`
	Metrics metrics.Snapshot `json:"metrics"`
}

// prober pings both dependencies on a fixed cadence and records the
// result in up, an util.AtomicBool, so a /healthz scrape reads a
// pre-computed flag instead of making a Redis and a RabbitMQ round trip
// per request.
type prober struct {
	up util.AtomicBool
}

func (p *prober) run(ctx context.Context, ping func(context.Context) error, interval time.Duration, lg *log.Logger) {
	check := func() {
		pingCtx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()
		if err := ping(pingCtx); err != nil {
			p.up.Store(false)
			lg.Warn("dependency probe failed", "error", err)
			return
		}
		p.up.Store(true)
	}

	check()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}

// startHealthServer serves /healthz on addr until ctx is cancelled. A
// background prober checks both dependencies every 5s; the handler just
// reads the result.
func startHealthServer(ctx context.Context, addr string, start time.Time, counters *metrics.Counters, ping func(context.Context) error, lg *log.Logger) *http.Server {
	p := &prober{}
	go p.run(ctx, ping, 5*time.Second, lg)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if !p.up.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
			return
		}

		resp := healthResponse{
			Status:  "ok",
			Uptime:  time.Since(start).String(),
			Metrics: counters.Snapshot(),
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			lg.Errorf("health server on %s: %v", addr, err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	return srv
}
