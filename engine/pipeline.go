// engine/pipeline.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package engine

import (
	"context"

	"github.com/vatsimnet/eventproc/bus"
	"github.com/vatsimnet/eventproc/clock"
	"github.com/vatsimnet/eventproc/controller"
	"github.com/vatsimnet/eventproc/ttlstore"
)

// RunControllerPipeline drains route's deliveries and drives the
// controller sweep ticker from the very same select loop. Per spec.md
// §5, "the in-memory controller cache and batch counter are owned by
// the controller pipeline alone; the sweep timer runs in the same
// logical execution context" -- folding Sweep into this loop, rather
// than ticking it from a second goroutine, is what makes that literally
// true instead of just documented, and removes any need to guard
// Tracker's fields with a mutex.
func RunControllerPipeline(ctx context.Context, clk clock.Clock, sub bus.Subscriber, route string, eng *Engine) error {
	deliveries, err := sub.Consume(ctx, route)
	if err != nil {
		return err
	}

	after := clk.After(controller.SweepInterval)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			eng.HandleController(ctx, d)
		case <-after:
			eng.Controller.Sweep(ctx)
			after = clk.After(controller.SweepInterval)
		}
	}
}

// RunFlightPlanPipeline drains pilot deliveries, prefile deliveries, and
// fired TTL sentinels from one select loop. flightplan.Tracker's
// Ingest/OnExpire are documented as unsafe for concurrent calls (Ingest
// is a non-atomic scan-then-read-modify-write against the TTL store);
// serializing all three sources onto a single goroutine -- rather than
// one goroutine per route -- is what spec.md §5 means by "messages are
// processed one at a time, in delivery order, to preserve the
// per-identity ordering of file / update / state_change / expire."
func RunFlightPlanPipeline(ctx context.Context, pilots, prefiles <-chan bus.Delivery, expiries <-chan string, eng *Engine) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-pilots:
			if !ok {
				return nil
			}
			eng.HandlePilot(ctx, d)
		case d, ok := <-prefiles:
			if !ok {
				return nil
			}
			eng.HandlePrefile(ctx, d)
		case key, ok := <-expiries:
			if !ok {
				return nil
			}
			eng.HandleExpiry(ctx, key)
		}
	}
}

// SubscribeExpiriesChan adapts store's callback-based SubscribeExpiries
// into a channel, so RunFlightPlanPipeline can select over fired TTL
// sentinels alongside pilot and prefile deliveries instead of handling
// them from a third, unsynchronized goroutine. The returned channel is
// closed once the subscription exits (context cancellation or a
// connection error); onErr, if non-nil, receives a non-cancellation
// terminal error.
func SubscribeExpiriesChan(ctx context.Context, store ttlstore.Store, onErr func(error)) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		err := store.SubscribeExpiries(ctx, func(key string) {
			select {
			case out <- key:
			case <-ctx.Done():
			}
		})
		if err != nil && ctx.Err() == nil && onErr != nil {
			onErr(err)
		}
	}()
	return out
}
