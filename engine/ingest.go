// engine/ingest.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package engine wires the controller and flight-plan trackers to the
// inbound raw routes of spec.md §6, decoding each delivery's opaque
// `data` payload into the concrete shape its route carries and handing
// it to the matching tracker. cmd/vice/main.go's pattern of a thin
// main() delegating to per-concern setup functions is the model for
// keeping this decode-and-dispatch logic out of cmd/eventproc itself.
package engine

import (
	"context"

	"github.com/vatsimnet/eventproc/bus"
	"github.com/vatsimnet/eventproc/controller"
	"github.com/vatsimnet/eventproc/events"
	"github.com/vatsimnet/eventproc/flightplan"
	"github.com/vatsimnet/eventproc/log"
	"github.com/vatsimnet/eventproc/metrics"
)

// RawPilot is a position-bearing flight-plan ingest off raw.flight_plans,
// per spec.md §4.2's Pilot variant.
type RawPilot struct {
	CID         int               `msgpack:"cid"`
	Callsign    string            `msgpack:"callsign"`
	FlightPlan  events.FlightPlan `msgpack:"flight_plan"`
	Latitude    float64           `msgpack:"latitude"`
	Longitude   float64           `msgpack:"longitude"`
	Altitude    int               `msgpack:"altitude"`
	Groundspeed int               `msgpack:"groundspeed"`
	Heading     int               `msgpack:"heading"`
}

// RawPrefile is a position-less flight-plan ingest off raw.prefiles, per
// spec.md §4.2's Prefile variant.
type RawPrefile struct {
	CID        int               `msgpack:"cid"`
	Callsign   string            `msgpack:"callsign"`
	FlightPlan events.FlightPlan `msgpack:"flight_plan"`
}

// Engine dispatches inbound deliveries to the controller and flight-plan
// trackers and counts what it sees.
type Engine struct {
	Controller *controller.Tracker
	FlightPlan *flightplan.Tracker
	Metrics    *metrics.Counters
	lg         *log.Logger
}

// New returns an Engine wiring both trackers.
func New(ct *controller.Tracker, fp *flightplan.Tracker, m *metrics.Counters, lg *log.Logger) *Engine {
	return &Engine{Controller: ct, FlightPlan: fp, Metrics: m, lg: lg}
}

// HandleController decodes a raw.controllers delivery and forwards it to
// the controller tracker. Malformed deliveries are dropped and acked per
// spec.md §7; transient errors are nacked for redelivery.
func (e *Engine) HandleController(ctx context.Context, d bus.Delivery) {
	var c events.Controller
	if err := bus.DecodeData(d.Data, &c); err != nil {
		e.lg.Warn("malformed controller snapshot", "error", err)
		e.Metrics.IngestDropped.Add(1)
		d.Ack()
		return
	}
	if c.CID == 0 || c.Callsign == "" {
		e.Metrics.IngestDropped.Add(1)
		d.Ack()
		return
	}

	if err := e.Controller.Observe(ctx, c, d.BatchID); err != nil {
		e.lg.Errorf("observe controller %d-%s: %v", c.CID, c.Callsign, err)
		e.Metrics.IngestErrors.Add(1)
		d.Nack()
		return
	}
	d.Ack()
}

// HandlePilot decodes a raw.flight_plans delivery (a Pilot, carrying
// position) and forwards it to the flight-plan tracker.
func (e *Engine) HandlePilot(ctx context.Context, d bus.Delivery) {
	var p RawPilot
	if err := bus.DecodeData(d.Data, &p); err != nil {
		e.lg.Warn("malformed pilot snapshot", "error", err)
		e.Metrics.IngestDropped.Add(1)
		d.Ack()
		return
	}

	in := flightplan.Input{
		CID:        p.CID,
		Callsign:   p.Callsign,
		FlightPlan: p.FlightPlan,
		Position: &events.Position{
			Latitude:    p.Latitude,
			Longitude:   p.Longitude,
			Altitude:    p.Altitude,
			Groundspeed: p.Groundspeed,
			Heading:     p.Heading,
		},
	}
	e.ingestFlightPlan(ctx, d, in)
}

// HandlePrefile decodes a raw.prefiles delivery (a Prefile, no position)
// and forwards it to the flight-plan tracker.
func (e *Engine) HandlePrefile(ctx context.Context, d bus.Delivery) {
	var p RawPrefile
	if err := bus.DecodeData(d.Data, &p); err != nil {
		e.lg.Warn("malformed prefile snapshot", "error", err)
		e.Metrics.IngestDropped.Add(1)
		d.Ack()
		return
	}

	in := flightplan.Input{
		CID:        p.CID,
		Callsign:   p.Callsign,
		FlightPlan: p.FlightPlan,
	}
	e.ingestFlightPlan(ctx, d, in)
}

func (e *Engine) ingestFlightPlan(ctx context.Context, d bus.Delivery, in flightplan.Input) {
	if in.CID == 0 || in.Callsign == "" {
		e.Metrics.IngestDropped.Add(1)
		d.Ack()
		return
	}

	if err := e.FlightPlan.Ingest(ctx, in); err != nil {
		e.lg.Errorf("ingest %d-%s: %v", in.CID, in.Callsign, err)
		e.Metrics.IngestErrors.Add(1)
		d.Nack()
		return
	}
	d.Ack()
}

// HandleExpiry forwards a fired TTL sentinel to the flight-plan
// tracker's OnExpire. Orphan expiries (data key already gone) are
// handled inside the tracker itself, per spec.md §7.
func (e *Engine) HandleExpiry(ctx context.Context, sentinelKey string) {
	if err := e.FlightPlan.OnExpire(ctx, sentinelKey); err != nil {
		e.lg.Errorf("on expire %s: %v", sentinelKey, err)
		e.Metrics.RefreshFailures.Add(1)
	}
}
