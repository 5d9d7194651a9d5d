// metrics/metrics.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package metrics counts events emitted and errors encountered, exposed
// over the /healthz endpoint as plain JSON rather than a Prometheus
// registry -- prometheus/client_golang belongs to a different repo in
// the retrieval pack, not to this one's teacher, and nothing else here
// would exercise it. util/sync.go's AtomicBool is the model for using
// sync/atomic directly rather than a mutex-guarded struct.
package metrics

import (
	"context"
	"sync/atomic"

	"github.com/vatsimnet/eventproc/bus"
)

// Counters tracks engine activity for the health endpoint and logs.
type Counters struct {
	ControllerConnects    atomic.Int64
	ControllerDisconnects atomic.Int64
	FlightPlanFiles       atomic.Int64
	FlightPlanUpdates     atomic.Int64
	FlightPlanExpires     atomic.Int64
	FlightPlanStateChanges atomic.Int64

	IngestDropped  atomic.Int64
	IngestErrors   atomic.Int64
	RefreshFailures atomic.Int64
}

// Snapshot is the JSON-serializable view of Counters at an instant.
type Snapshot struct {
	ControllerConnects     int64 `json:"controller_connects"`
	ControllerDisconnects  int64 `json:"controller_disconnects"`
	FlightPlanFiles        int64 `json:"flight_plan_files"`
	FlightPlanUpdates      int64 `json:"flight_plan_updates"`
	FlightPlanExpires      int64 `json:"flight_plan_expires"`
	FlightPlanStateChanges int64 `json:"flight_plan_state_changes"`
	IngestDropped          int64 `json:"ingest_dropped"`
	IngestErrors           int64 `json:"ingest_errors"`
	RefreshFailures        int64 `json:"refresh_failures"`
}

func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		ControllerConnects:     c.ControllerConnects.Load(),
		ControllerDisconnects:  c.ControllerDisconnects.Load(),
		FlightPlanFiles:        c.FlightPlanFiles.Load(),
		FlightPlanUpdates:      c.FlightPlanUpdates.Load(),
		FlightPlanExpires:      c.FlightPlanExpires.Load(),
		FlightPlanStateChanges: c.FlightPlanStateChanges.Load(),
		IngestDropped:          c.IngestDropped.Load(),
		IngestErrors:           c.IngestErrors.Load(),
		RefreshFailures:        c.RefreshFailures.Load(),
	}
}

// CountEventRoute increments the counter matching an outbound route name.
func (c *Counters) CountEventRoute(route string) {
	switch route {
	case "events.controller.connect":
		c.ControllerConnects.Add(1)
	case "events.controller.disconnect":
		c.ControllerDisconnects.Add(1)
	case "events.flight_plan.file":
		c.FlightPlanFiles.Add(1)
	case "events.flight_plan.update":
		c.FlightPlanUpdates.Add(1)
	case "events.flight_plan.expire":
		c.FlightPlanExpires.Add(1)
	case "events.flight_plan.state_change":
		c.FlightPlanStateChanges.Add(1)
	}
}

// countingPublisher decorates a bus.Publisher, counting every
// successful publish by route.
type countingPublisher struct {
	bus.Publisher
	counters *Counters
}

// Wrap returns a Publisher that forwards to pub and counts successful
// publishes into counters.
func Wrap(pub bus.Publisher, counters *Counters) bus.Publisher {
	return &countingPublisher{Publisher: pub, counters: counters}
}

func (p *countingPublisher) Publish(ctx context.Context, route string, envelope any) error {
	if err := p.Publisher.Publish(ctx, route, envelope); err != nil {
		return err
	}
	p.counters.CountEventRoute(route)
	return nil
}
