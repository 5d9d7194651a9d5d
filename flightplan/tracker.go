// flightplan/tracker.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package flightplan implements the flight-plan tracker of spec.md §4.2:
// per-(cid,callsign) identity with at most one active plan, keyed by
// departure airport, retired by TTL expiry or superseded by a plan under
// a different departure, and advanced through the airborne state
// machine as position telemetry arrives. fp-processing.go's FlightPlan/
// STARSFlightPlan shape is the model for the record fields this package
// stores; the STARS computer's plan/amendment/cancellation dispatch is
// the model for Ingest's match/update/supersede branching.
package flightplan

import (
	"context"
	"fmt"
	"strings"

	"github.com/vatsimnet/eventproc/airborne"
	"github.com/vatsimnet/eventproc/bus"
	"github.com/vatsimnet/eventproc/clock"
	"github.com/vatsimnet/eventproc/events"
	"github.com/vatsimnet/eventproc/log"
	"github.com/vatsimnet/eventproc/ttlstore"
)

// TTLSeconds is spec.md §6's flight-plan TTL.
const TTLSeconds = 600

// sentinelPrefix marks a TTL sentinel key in the two-key protocol of
// spec.md §4.4.
const sentinelPrefix = "ttl:"

// Input is one ingest off raw.flight_plans or raw.prefiles: a Pilot
// carries Position, a Prefile does not.
type Input struct {
	CID        int
	Callsign   string
	FlightPlan events.FlightPlan
	Position   *events.Position
}

// record is the flight-plan record of spec.md §3, as stored in the TTL
// store under baseKey + "-" + departure.
type record struct {
	Pilot            events.Pilot     `msgpack:"pilot"`
	FlightPlan       events.FlightPlan `msgpack:"flight_plan"`
	State            airborne.State   `msgpack:"state"`
	LastStateChange  int64            `msgpack:"last_state_change"`
	PreviousAltitude *int             `msgpack:"previous_altitude,omitempty"`
	Timestamp        int64            `msgpack:"timestamp"`
}

// Tracker is the flight-plan tracker of spec.md §4.2. Like Controller's
// Tracker, it is owned by a single pipeline's event loop and is not
// itself safe for concurrent Ingest/OnExpire calls -- see
// engine.RunFlightPlanPipeline, which serializes pilot deliveries,
// prefile deliveries, and fired TTL sentinels onto one select loop.
type Tracker struct {
	store ttlstore.Store
	pub   bus.Publisher
	clock clock.Clock
	lg    *log.Logger
}

// New returns a Tracker backed by store and publishing via pub.
func New(store ttlstore.Store, pub bus.Publisher, clk clock.Clock, lg *log.Logger) *Tracker {
	return &Tracker{store: store, pub: pub, clock: clk, lg: lg}
}

func baseKey(cid int, callsign string) string {
	return fmt.Sprintf("%d-%s", cid, callsign)
}

// Ingest implements spec.md §4.2's Ingest(pilot) operation. Only plans
// with flight_rules "I" are admitted; VFR and malformed records are
// silently dropped.
func (t *Tracker) Ingest(ctx context.Context, in Input) error {
	if in.FlightPlan.FlightRules != "I" {
		return nil
	}
	if in.CID == 0 || in.Callsign == "" || in.FlightPlan.Departure == "" {
		return nil
	}

	base := baseKey(in.CID, in.Callsign)
	keys, err := t.store.Scan(ctx, base)
	if err != nil {
		return fmt.Errorf("flightplan: scan %s: %w", base, err)
	}

	matchKey, match, err := t.findMatch(ctx, keys, in.FlightPlan.Departure)
	if err != nil {
		return err
	}

	if match != nil {
		return t.update(ctx, matchKey, *match, in)
	}
	return t.supersedeAndFile(ctx, base, keys, in)
}

// findMatch scans the candidate keys under a baseKey for the one record
// whose flightPlan.departure matches wantDeparture, per spec.md §4.2
// step 2.
func (t *Tracker) findMatch(ctx context.Context, keys []string, wantDeparture string) (string, *record, error) {
	for _, k := range keys {
		var rec record
		if err := t.store.Get(ctx, k, &rec); err != nil {
			if err == ttlstore.ErrNotFound {
				continue
			}
			return "", nil, fmt.Errorf("flightplan: get %s: %w", k, err)
		}
		if rec.FlightPlan.Departure == wantDeparture {
			return k, &rec, nil
		}
	}
	return "", nil, nil
}

// update handles the matched-record branch of spec.md §4.2 step 2:
// update-then-state_change-then-TTL-refresh, in that order.
func (t *Tracker) update(ctx context.Context, key string, rec record, in Input) error {
	now := t.clock.Now()

	if rec.FlightPlan != in.FlightPlan {
		rec.FlightPlan = in.FlightPlan
		rec.Timestamp = now.UnixMilli()
		if err := t.store.Put(ctx, key, rec); err != nil {
			return fmt.Errorf("flightplan: put %s: %w", key, err)
		}
		if err := t.publish(ctx, events.FlightPlanEvent{
			Event:      events.FlightPlanUpdate,
			Pilot:      rec.Pilot,
			FlightPlan: rec.FlightPlan,
			Timestamp:  now.UnixMilli(),
		}); err != nil {
			return err
		}
	}

	if in.Position != nil {
		if tr, ok := airborne.Evaluate(rec.State, in.Position.Groundspeed, in.Position.Altitude, rec.PreviousAltitude); ok {
			prev := rec.State
			rec.State = tr.To
			rec.LastStateChange = now.UnixMilli()
			rec.Timestamp = now.UnixMilli()
			if err := t.store.Put(ctx, key, rec); err != nil {
				return fmt.Errorf("flightplan: put %s: %w", key, err)
			}
			position := in.Position
			if err := t.publish(ctx, events.FlightPlanEvent{
				Event:      events.FlightPlanState,
				Pilot:      rec.Pilot,
				FlightPlan: rec.FlightPlan,
				Timestamp:  now.UnixMilli(),
				State: &events.StateTransition{
					Previous: string(prev),
					Current:  string(tr.To),
					Reason:   tr.Reason,
				},
				Position: position,
			}); err != nil {
				return err
			}
		} else {
			alt := in.Position.Altitude
			rec.PreviousAltitude = &alt
			rec.Timestamp = now.UnixMilli()
			if err := t.store.Put(ctx, key, rec); err != nil {
				return fmt.Errorf("flightplan: put %s: %w", key, err)
			}
		}
	}

	return t.refreshTTL(ctx, key, rec)
}

// supersedeAndFile handles spec.md §4.2 step 3: no match means every
// existing record under base is stale (either truly gone or filed under
// a departure that no longer applies), so all are expired before the
// incoming plan is filed fresh.
func (t *Tracker) supersedeAndFile(ctx context.Context, base string, keys []string, in Input) error {
	now := t.clock.Now()

	for _, k := range keys {
		var rec record
		if err := t.store.Get(ctx, k, &rec); err != nil {
			if err == ttlstore.ErrNotFound {
				continue
			}
			return fmt.Errorf("flightplan: get %s: %w", k, err)
		}
		if err := t.publish(ctx, events.FlightPlanEvent{
			Event:      events.FlightPlanExpire,
			Pilot:      rec.Pilot,
			FlightPlan: rec.FlightPlan,
			Timestamp:  now.UnixMilli(),
		}); err != nil {
			return err
		}
		if err := t.store.Delete(ctx, k); err != nil {
			return fmt.Errorf("flightplan: delete %s: %w", k, err)
		}
		if err := t.store.Delete(ctx, sentinelPrefix+k); err != nil {
			return fmt.Errorf("flightplan: delete sentinel %s: %w", k, err)
		}
	}

	key := base + "-" + in.FlightPlan.Departure
	rec := record{
		Pilot:           events.Pilot{CID: in.CID, Callsign: in.Callsign},
		FlightPlan:      in.FlightPlan,
		State:           airborne.Filed,
		LastStateChange: now.UnixMilli(),
		Timestamp:       now.UnixMilli(),
	}
	if in.Position != nil {
		alt := in.Position.Altitude
		rec.PreviousAltitude = &alt
	}

	if err := t.store.Put(ctx, key, rec); err != nil {
		return fmt.Errorf("flightplan: put %s: %w", key, err)
	}
	if err := t.publish(ctx, events.FlightPlanEvent{
		Event:      events.FlightPlanFile,
		Pilot:      rec.Pilot,
		FlightPlan: rec.FlightPlan,
		Timestamp:  now.UnixMilli(),
	}); err != nil {
		return err
	}

	return t.refreshTTL(ctx, key, rec)
}

// refreshTTL re-arms key's expiry sentinel. If Arm fails -- the sentinel
// may have already fired or been evicted -- it recreates the data key
// via Put before arming again, per spec.md §4.4's idempotent recovery
// path.
func (t *Tracker) refreshTTL(ctx context.Context, key string, rec record) error {
	if err := t.store.Arm(ctx, sentinelPrefix+key, TTLSeconds); err != nil {
		if err := t.store.Put(ctx, key, rec); err != nil {
			return fmt.Errorf("flightplan: recreate %s: %w", key, err)
		}
		if err := t.store.Arm(ctx, sentinelPrefix+key, TTLSeconds); err != nil {
			return fmt.Errorf("flightplan: arm %s: %w", key, err)
		}
	}
	return nil
}

// OnExpire implements spec.md §4.2's OnExpire(key) operation: sentinelKey
// is the "ttl:"-prefixed key the store's expiry subscription delivered.
func (t *Tracker) OnExpire(ctx context.Context, sentinelKey string) error {
	key := strings.TrimPrefix(sentinelKey, sentinelPrefix)

	var rec record
	if err := t.store.Get(ctx, key, &rec); err != nil {
		if err == ttlstore.ErrNotFound {
			t.lg.Warn("orphan expiry, no data key", "key", key)
			return nil
		}
		return fmt.Errorf("flightplan: get %s: %w", key, err)
	}

	now := t.clock.Now()

	if err := t.publish(ctx, events.FlightPlanEvent{
		Event:      events.FlightPlanState,
		Pilot:      rec.Pilot,
		FlightPlan: rec.FlightPlan,
		Timestamp:  now.UnixMilli(),
		State: &events.StateTransition{
			Previous: string(rec.State),
			Current:  string(airborne.Cancelled),
			Reason:   "flight_plan_expired",
		},
	}); err != nil {
		return err
	}

	if err := t.publish(ctx, events.FlightPlanEvent{
		Event:      events.FlightPlanExpire,
		Pilot:      rec.Pilot,
		FlightPlan: rec.FlightPlan,
		Timestamp:  now.UnixMilli(),
	}); err != nil {
		return err
	}

	return t.store.Delete(ctx, key)
}

func (t *Tracker) publish(ctx context.Context, evt events.FlightPlanEvent) error {
	if err := t.pub.Publish(ctx, evt.Route(), evt); err != nil {
		t.lg.Errorf("publish %s for %d-%s: %v", evt.Event, evt.Pilot.CID, evt.Pilot.Callsign, err)
		return fmt.Errorf("flightplan: publish %s: %w", evt.Event, err)
	}
	return nil
}
