// controller/tracker.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package controller implements the controller tracker of spec.md §4.1:
// an upsert-on-sight, sweep-on-inactivity cache of who is currently
// logged on to provide ATC, gated by a batch warm-up counter so cold
// start doesn't look like a wave of connects. wx/manifest.go's
// expirable.LRU-backed cache is the model for the underlying store;
// here the LRU's own TTL housekeeping is set far longer than the
// inactivity window so the tracker's own clock-driven Sweep is what
// actually retires records, keeping eviction timing deterministic for
// tests instead of tied to the LRU's internal wall-clock janitor.
package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/brunoga/deep"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/vatsimnet/eventproc/bus"
	"github.com/vatsimnet/eventproc/clock"
	"github.com/vatsimnet/eventproc/events"
	"github.com/vatsimnet/eventproc/log"
)

const (
	// InactiveTimeout is spec.md §6's controller inactivity timeout.
	InactiveTimeout = 60 * time.Second
	// SweepInterval is spec.md §6's controller sweep cadence.
	SweepInterval = 30 * time.Second
	// WarmupThreshold is spec.md §6's warm-up batch threshold: connect
	// is suppressed while batchesObserved is at or below this value, and
	// Sweep (and so disconnect) is skipped while it is below it.
	WarmupThreshold = 2

	// cacheTTL bounds how long the underlying LRU will hold an entry
	// absent any Sweep activity at all; it is deliberately much larger
	// than InactiveTimeout; Sweep is the mechanism that actually retires
	// inactive controllers.
	cacheTTL = 24 * time.Hour
)

type record struct {
	controller events.Controller
	lastSeen   time.Time
}

// Tracker is the controller tracker of spec.md §4.1. It is not safe for
// concurrent Observe/Sweep calls from multiple goroutines; per spec.md
// §5 it is owned by a single pipeline's event loop -- see
// engine.RunControllerPipeline, which drives both Observe and Sweep from
// one select loop instead of a goroutine apiece.
type Tracker struct {
	cache           *expirable.LRU[string, *record]
	batchesObserved int
	lastBatchID     string

	clock clock.Clock
	pub   bus.Publisher
	lg    *log.Logger
}

// New returns a Tracker publishing connect/disconnect events via pub.
func New(clk clock.Clock, pub bus.Publisher, lg *log.Logger) *Tracker {
	return &Tracker{
		cache: expirable.NewLRU[string, *record](0, nil, cacheTTL),
		clock: clk,
		pub:   pub,
		lg:    lg,
	}
}

func identity(cid int, callsign string) string {
	return fmt.Sprintf("%d-%s", cid, callsign)
}

// BatchesObserved reports the process-wide warm-up counter's current
// value, for diagnostics.
func (t *Tracker) BatchesObserved() int { return t.batchesObserved }

// Observe upserts controller under the (cid, callsign) identity and
// advances the warm-up counter when batchID is new. On first sight, it
// emits events.controller.connect iff the warm-up threshold has been
// passed; on repeated sight it only refreshes lastSeen.
func (t *Tracker) Observe(ctx context.Context, controller events.Controller, batchID string) error {
	if batchID != t.lastBatchID {
		t.batchesObserved++
		t.lastBatchID = batchID
	}

	key := identity(controller.CID, controller.Callsign)
	now := t.clock.Now()

	if existing, ok := t.cache.Get(key); ok {
		existing.lastSeen = now
		existing.controller = deep.MustCopy(controller)
		t.cache.Add(key, existing)
		return nil
	}

	// Deep-copy before caching: Controller.TextATIS is a slice, and the
	// caller's decode buffer is reused across deliveries.
	stored := deep.MustCopy(controller)
	t.cache.Add(key, &record{controller: stored, lastSeen: now})

	if t.batchesObserved <= WarmupThreshold {
		return nil
	}

	evt := events.ControllerEvent{
		Event:     events.ControllerConnect,
		Data:      deep.MustCopy(stored),
		Timestamp: now.UnixMilli(),
	}
	if err := t.pub.Publish(ctx, evt.Route(), evt); err != nil {
		t.lg.Errorf("publish connect for %s: %v", key, err)
		return fmt.Errorf("controller: publish connect: %w", err)
	}
	return nil
}

// Sweep removes every record inactive for longer than InactiveTimeout
// and emits events.controller.disconnect for each, per spec.md §4.1. It
// is a no-op while the warm-up counter is below the threshold.
func (t *Tracker) Sweep(ctx context.Context) {
	if t.batchesObserved < WarmupThreshold {
		return
	}

	now := t.clock.Now()
	for _, key := range t.cache.Keys() {
		rec, ok := t.cache.Get(key)
		if !ok {
			continue
		}
		if now.Sub(rec.lastSeen) <= InactiveTimeout {
			continue
		}

		t.cache.Remove(key)

		evt := events.ControllerEvent{
			Event:     events.ControllerDisconnect,
			Data:      rec.controller,
			Timestamp: now.UnixMilli(),
		}
		if err := t.pub.Publish(ctx, evt.Route(), evt); err != nil {
			t.lg.Errorf("publish disconnect for %s: %v", key, err)
		}
	}
}

// Len reports the number of controllers currently tracked, for tests
// and diagnostics.
func (t *Tracker) Len() int { return t.cache.Len() }
