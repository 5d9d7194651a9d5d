// flightplan/tracker_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package flightplan

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vatsimnet/eventproc/bus"
	"github.com/vatsimnet/eventproc/clock"
	"github.com/vatsimnet/eventproc/events"
	"github.com/vatsimnet/eventproc/log"
	"github.com/vatsimnet/eventproc/ttlstore"
)

func newTestTracker() (*Tracker, *clock.Fake, *ttlstore.Memory, *bus.Memory) {
	clk := clock.NewFake(time.Unix(0, 0))
	store := ttlstore.NewMemory(clk)
	m := bus.NewMemory()
	return New(store, m, clk, log.New("error", "")), clk, store, m
}

func ifrPlan(departure, arrival string) events.FlightPlan {
	return events.FlightPlan{
		FlightRules: "I",
		Aircraft:    "B738",
		Departure:   departure,
		Arrival:     arrival,
		Altitude:    "FL350",
	}
}

func TestIngestFirstSightFilesPlan(t *testing.T) {
	tr, _, store, m := newTestTracker()
	ctx := context.Background()

	in := Input{
		CID: 1, Callsign: "BAW1",
		FlightPlan: ifrPlan("EGLL", "KJFK"),
		Position:   &events.Position{Latitude: 51.5, Longitude: -0.1, Altitude: 50, Groundspeed: 5, Heading: 270},
	}

	require.NoError(t, tr.Ingest(ctx, in))

	files := m.ByRoute(events.RouteFlightPlanFile)
	require.Len(t, files, 1)
	require.Empty(t, m.ByRoute(events.RouteFlightPlanState))

	var rec record
	require.NoError(t, store.Get(ctx, "1-BAW1-EGLL", &rec))
	require.Equal(t, "filed", string(rec.State))
}

func TestIngestVFRIsFilteredSilently(t *testing.T) {
	tr, _, store, m := newTestTracker()
	ctx := context.Background()

	in := Input{
		CID: 1, Callsign: "BAW1",
		FlightPlan: events.FlightPlan{FlightRules: "V", Departure: "EGLL"},
	}

	require.NoError(t, tr.Ingest(ctx, in))
	require.Empty(t, m.ByRoute(events.RouteFlightPlanFile))

	keys, err := store.Scan(ctx, "1-BAW1")
	require.NoError(t, err)
	require.Empty(t, keys)
}

func TestIngestDepartureChangeSupersedes(t *testing.T) {
	tr, _, store, m := newTestTracker()
	ctx := context.Background()

	base := Input{CID: 1, Callsign: "BAW1", FlightPlan: ifrPlan("EGLL", "KJFK")}
	require.NoError(t, tr.Ingest(ctx, base))

	changed := base
	changed.FlightPlan = ifrPlan("EGKK", "KJFK")
	require.NoError(t, tr.Ingest(ctx, changed))

	expires := m.ByRoute(events.RouteFlightPlanExpire)
	require.Len(t, expires, 1)
	require.Equal(t, "EGLL", expires[0].(events.FlightPlanEvent).FlightPlan.Departure)

	files := m.ByRoute(events.RouteFlightPlanFile)
	require.Len(t, files, 2)
	require.Equal(t, "EGKK", files[1].(events.FlightPlanEvent).FlightPlan.Departure)

	keys, err := store.Scan(ctx, "1-BAW1")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"1-BAW1-EGKK"}, keys)
}

func TestIngestStateProgressionByGroundSpeed(t *testing.T) {
	tr, _, store, m := newTestTracker()
	ctx := context.Background()

	filed := Input{
		CID: 1, Callsign: "BAW1",
		FlightPlan: ifrPlan("EGLL", "KJFK"),
		Position:   &events.Position{Altitude: 50, Groundspeed: 5},
	}
	require.NoError(t, tr.Ingest(ctx, filed))

	airborne := filed
	airborne.Position = &events.Position{Altitude: 8000, Groundspeed: 120}
	require.NoError(t, tr.Ingest(ctx, airborne))

	states := m.ByRoute(events.RouteFlightPlanState)
	require.Len(t, states, 1)
	evt := states[0].(events.FlightPlanEvent)
	require.Equal(t, "filed", evt.State.Previous)
	require.Equal(t, "enroute", evt.State.Current)
	require.Equal(t, "already_airborne", evt.State.Reason)

	var rec record
	require.NoError(t, store.Get(ctx, "1-BAW1-EGLL", &rec))
	require.Equal(t, "enroute", string(rec.State))
}

func TestOnExpireEmitsCancelledThenExpireAndDeletesKey(t *testing.T) {
	tr, clk, store, m := newTestTracker()
	ctx := context.Background()

	in := Input{CID: 1, Callsign: "BAW1", FlightPlan: ifrPlan("EGLL", "KJFK")}
	require.NoError(t, tr.Ingest(ctx, in))

	clk.Advance(TTLSeconds*time.Second + time.Second)
	store.Tick()

	require.NoError(t, tr.OnExpire(ctx, "ttl:1-BAW1-EGLL"))

	log := m.Log()
	require.GreaterOrEqual(t, len(log), 3) // file, (no update/state_change), state_change, expire
	require.Equal(t, events.RouteFlightPlanState, log[len(log)-2].Route)
	require.Equal(t, events.RouteFlightPlanExpire, log[len(log)-1].Route)

	stateEvt := log[len(log)-2].Envelope.(events.FlightPlanEvent)
	require.Equal(t, "cancelled", stateEvt.State.Current)
	require.Equal(t, "flight_plan_expired", stateEvt.State.Reason)

	var rec record
	require.ErrorIs(t, store.Get(ctx, "1-BAW1-EGLL", &rec), ttlstore.ErrNotFound)
}

func TestOnExpireOrphanIsLoggedAndSkipped(t *testing.T) {
	tr, _, _, m := newTestTracker()
	ctx := context.Background()

	require.NoError(t, tr.OnExpire(ctx, "ttl:1-GHOST-EGLL"))
	require.Empty(t, m.Log())
}

func TestReingestSameMessageDoesNotDuplicateEvents(t *testing.T) {
	tr, _, _, m := newTestTracker()
	ctx := context.Background()

	in := Input{CID: 1, Callsign: "BAW1", FlightPlan: ifrPlan("EGLL", "KJFK")}
	require.NoError(t, tr.Ingest(ctx, in))
	require.NoError(t, tr.Ingest(ctx, in))

	require.Len(t, m.ByRoute(events.RouteFlightPlanFile), 1)
	require.Empty(t, m.ByRoute(events.RouteFlightPlanUpdate))
}
