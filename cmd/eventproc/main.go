// main.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// This file contains the implementation of the main() function, which
// initializes the system and then runs the event loop until the system
// exits.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goforj/godump"
	"golang.org/x/sync/errgroup"

	"github.com/vatsimnet/eventproc/bus"
	"github.com/vatsimnet/eventproc/clock"
	"github.com/vatsimnet/eventproc/config"
	"github.com/vatsimnet/eventproc/controller"
	"github.com/vatsimnet/eventproc/engine"
	"github.com/vatsimnet/eventproc/events"
	"github.com/vatsimnet/eventproc/flightplan"
	"github.com/vatsimnet/eventproc/log"
	"github.com/vatsimnet/eventproc/metrics"
	"github.com/vatsimnet/eventproc/ttlstore"
	"github.com/vatsimnet/eventproc/util"
)

var dumpState = flag.Bool("dump-state", false, "dump tracker state snapshot to stdout and exit")

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	lg := log.New(cfg.LogLevel, cfg.LogDir).With("instance", cfg.InstanceID)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := ttlstore.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		lg.Errorf("connect redis: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	rabbit, err := bus.NewRabbitMQ(cfg.RabbitURL)
	if err != nil {
		lg.Errorf("connect rabbitmq: %v", err)
		os.Exit(1)
	}
	defer rabbit.Close()

	counters := &metrics.Counters{}
	pub := metrics.Wrap(rabbit, counters)
	clk := clock.New()

	ctTracker := controller.New(clk, pub, lg)
	fpTracker := flightplan.New(store, pub, clk, lg)
	eng := engine.New(ctTracker, fpTracker, counters, lg)

	if *dumpState {
		godump.Dump(map[string]any{
			"controllers_tracked": ctTracker.Len(),
			"batches_observed":    ctTracker.BatchesObserved(),
		})
		return
	}

	startHealthServer(ctx, cfg.HealthAddr, lg.Start, counters, func(ctx context.Context) error {
		if err := store.Ping(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		if err := rabbit.Ping(ctx); err != nil {
			return fmt.Errorf("rabbitmq: %w", err)
		}
		return nil
	}, lg)

	g, gctx := errgroup.WithContext(ctx)

	// The controller pipeline is one select loop: deliveries off
	// raw.controllers and the sweep ticker both run on it, so
	// ctTracker's batch counter and cache are only ever touched from
	// this single goroutine (spec.md §5).
	g.Go(func() error {
		return engine.RunControllerPipeline(gctx, clk, rabbit, events.RouteRawControllers, eng)
	})

	// The flight-plan pipeline is likewise one select loop: pilot and
	// prefile deliveries and fired TTL sentinels all serialize onto it,
	// so fpTracker's Ingest/OnExpire never run concurrently with each
	// other.
	pilots, err := rabbit.Consume(gctx, events.RouteRawFlightPlans)
	if err != nil {
		lg.Errorf("consume %s: %v", events.RouteRawFlightPlans, err)
		os.Exit(1)
	}
	prefiles, err := rabbit.Consume(gctx, events.RouteRawPrefiles)
	if err != nil {
		lg.Errorf("consume %s: %v", events.RouteRawPrefiles, err)
		os.Exit(1)
	}
	expiries := engine.SubscribeExpiriesChan(gctx, store, func(err error) {
		lg.Errorf("subscribe expiries: %v", err)
	})
	g.Go(func() error {
		return engine.RunFlightPlanPipeline(gctx, pilots, prefiles, expiries, eng)
	})

	g.Go(func() error {
		util.LogResourceUsagePeriodically(gctx, lg, 5*time.Minute)
		return nil
	})

	<-ctx.Done()
	lg.Info("shutdown signal received, draining")

	drainCtx, drainCancel := context.WithTimeout(context.Background(), cfg.ShutdownDrainTimeout)
	defer drainCancel()

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		if err != nil && err != context.Canceled {
			lg.Errorf("pipeline exited with error: %v", err)
		}
	case <-drainCtx.Done():
		lg.Warn("drain timeout exceeded, exiting anyway")
	}

	lg.Info("shutdown complete")
}
