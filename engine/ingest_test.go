// engine/ingest_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/vatsimnet/eventproc/bus"
	"github.com/vatsimnet/eventproc/clock"
	"github.com/vatsimnet/eventproc/controller"
	"github.com/vatsimnet/eventproc/events"
	"github.com/vatsimnet/eventproc/flightplan"
	"github.com/vatsimnet/eventproc/log"
	"github.com/vatsimnet/eventproc/metrics"
	"github.com/vatsimnet/eventproc/ttlstore"
)

func newTestEngine() (*Engine, *bus.Memory) {
	clk := clock.NewFake(time.Unix(0, 0))
	m := bus.NewMemory()
	lg := log.New("error", "")
	counters := &metrics.Counters{}
	pub := metrics.Wrap(m, counters)

	ct := controller.New(clk, pub, lg)
	fp := flightplan.New(ttlstore.NewMemory(clk), pub, clk, lg)

	return New(ct, fp, counters, lg), m
}

type ackTracker struct {
	acked  bool
	nacked bool
}

func (a *ackTracker) delivery(data []byte) bus.Delivery {
	return bus.Delivery{
		Inbound: bus.Inbound{Data: data, BatchID: "b3"},
		Ack:     func() { a.acked = true },
		Nack:    func() { a.nacked = true },
	}
}

func TestHandleControllerDecodesAndAcks(t *testing.T) {
	e, _ := newTestEngine()
	ctx := context.Background()

	c := events.Controller{CID: 1, Callsign: "X"}
	data, err := msgpack.Marshal(c)
	require.NoError(t, err)

	at := &ackTracker{}
	e.HandleController(ctx, at.delivery(data))
	require.True(t, at.acked)
	require.False(t, at.nacked)
}

func TestHandleControllerDropsMalformed(t *testing.T) {
	e, _ := newTestEngine()
	ctx := context.Background()

	at := &ackTracker{}
	e.HandleController(ctx, at.delivery([]byte("not msgpack")))
	require.True(t, at.acked)
	require.Equal(t, int64(1), e.Metrics.IngestDropped.Load())
}

func TestHandlePilotFilesPlanAndCountsMetric(t *testing.T) {
	e, m := newTestEngine()
	ctx := context.Background()

	p := RawPilot{
		CID: 1, Callsign: "BAW1",
		FlightPlan:  events.FlightPlan{FlightRules: "I", Departure: "EGLL"},
		Altitude:    50,
		Groundspeed: 5,
	}
	data, err := msgpack.Marshal(p)
	require.NoError(t, err)

	at := &ackTracker{}
	e.HandlePilot(ctx, at.delivery(data))
	require.True(t, at.acked)
	require.Len(t, m.ByRoute(events.RouteFlightPlanFile), 1)
	require.Equal(t, int64(1), e.Metrics.FlightPlanFiles.Load())
}

func TestHandlePrefileWithoutPosition(t *testing.T) {
	e, m := newTestEngine()
	ctx := context.Background()

	p := RawPrefile{CID: 2, Callsign: "KLM2", FlightPlan: events.FlightPlan{FlightRules: "I", Departure: "EHAM"}}
	data, err := msgpack.Marshal(p)
	require.NoError(t, err)

	at := &ackTracker{}
	e.HandlePrefile(ctx, at.delivery(data))
	require.True(t, at.acked)
	require.Len(t, m.ByRoute(events.RouteFlightPlanFile), 1)
}
