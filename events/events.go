// events/events.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package events defines the outbound event envelopes the engine
// publishes (spec.md §6) and the route names they travel on. The shape
// mirrors sim/eventstream.go's Event type -- a small struct with a
// String() and a LogValue() so every emitted event is self-describing
// both on the wire and in logs -- generalized from ATC handoff/radio
// fields to flight-plan lifecycle fields.
package events

import (
	"fmt"
	"log/slog"
)

// Route names events are published under, per spec.md §4.5.
const (
	RouteControllerConnect    = "events.controller.connect"
	RouteControllerDisconnect = "events.controller.disconnect"
	RouteFlightPlanFile       = "events.flight_plan.file"
	RouteFlightPlanUpdate     = "events.flight_plan.update"
	RouteFlightPlanExpire     = "events.flight_plan.expire"
	RouteFlightPlanState      = "events.flight_plan.state_change"
)

// Inbound routes the raw snapshot feed arrives on (spec.md §6); the
// engine only consumes from these, it never publishes to them.
const (
	RouteRawControllers = "raw.controllers"
	RouteRawFlightPlans = "raw.flight_plans"
	RouteRawPrefiles    = "raw.prefiles"
)

// ControllerEventKind is "connect" or "disconnect".
type ControllerEventKind string

const (
	ControllerConnect    ControllerEventKind = "connect"
	ControllerDisconnect ControllerEventKind = "disconnect"
)

// Controller is the verbatim controller snapshot payload, carried
// opaquely through to the emitted event per spec.md §4.1 and §6.
type Controller struct {
	CID         int      `msgpack:"cid" json:"cid"`
	Name        string   `msgpack:"name" json:"name"`
	Callsign    string   `msgpack:"callsign" json:"callsign"`
	Frequency   string   `msgpack:"frequency" json:"frequency"`
	Facility    int      `msgpack:"facility" json:"facility"`
	Rating      int      `msgpack:"rating" json:"rating"`
	Server      string   `msgpack:"server" json:"server"`
	VisualRange int      `msgpack:"visual_range" json:"visual_range"`
	TextATIS    []string `msgpack:"text_atis" json:"text_atis"`
	LastUpdated string   `msgpack:"last_updated" json:"last_updated"`
	LogonTime   string   `msgpack:"logon_time" json:"logon_time"`
}

// ControllerEvent is the envelope published to RouteControllerConnect /
// RouteControllerDisconnect.
type ControllerEvent struct {
	Event     ControllerEventKind `msgpack:"event" json:"event"`
	Data      Controller          `msgpack:"data" json:"data"`
	Timestamp int64               `msgpack:"timestamp" json:"timestamp"` // ms since epoch
}

func (e ControllerEvent) Route() string {
	if e.Event == ControllerConnect {
		return RouteControllerConnect
	}
	return RouteControllerDisconnect
}

func (e ControllerEvent) String() string {
	return fmt.Sprintf("%s: cid %d callsign %q", e.Event, e.Data.CID, e.Data.Callsign)
}

func (e ControllerEvent) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("event", string(e.Event)),
		slog.Int("cid", e.Data.CID),
		slog.String("callsign", e.Data.Callsign),
		slog.Int64("timestamp", e.Timestamp))
}

// FlightPlanEventKind is one of file/update/expire/state_change.
type FlightPlanEventKind string

const (
	FlightPlanFile   FlightPlanEventKind = "file"
	FlightPlanUpdate FlightPlanEventKind = "update"
	FlightPlanExpire FlightPlanEventKind = "expire"
	FlightPlanState  FlightPlanEventKind = "state_change"
)

// Pilot identifies who filed a flight plan, per spec.md §6.
type Pilot struct {
	CID      int    `msgpack:"cid" json:"cid"`
	Callsign string `msgpack:"callsign" json:"callsign"`
}

// FlightPlan is the 16-field plan body of spec.md §3, treated as opaque
// strings for diffing and pass-through to emitted events. spec.md §9
// notes that the upstream simulation network sometimes serializes a
// plan field as a number and sometimes as a string; normalizing that
// away is the raw ingest service's job (spec.md §1 -- out of scope,
// contract-only), so by the time a payload reaches DecodeData every
// field here is already a string and a plain equality check is a valid
// stringified diff.
type FlightPlan struct {
	FlightRules         string `msgpack:"flight_rules" json:"flight_rules"`
	Aircraft            string `msgpack:"aircraft" json:"aircraft"`
	AircraftFAA         string `msgpack:"aircraft_faa" json:"aircraft_faa"`
	AircraftShort       string `msgpack:"aircraft_short" json:"aircraft_short"`
	Departure           string `msgpack:"departure" json:"departure"`
	Arrival             string `msgpack:"arrival" json:"arrival"`
	Alternate           string `msgpack:"alternate" json:"alternate"`
	CruiseTAS           string `msgpack:"cruise_tas" json:"cruise_tas"`
	Altitude            string `msgpack:"altitude" json:"altitude"`
	DepTime             string `msgpack:"deptime" json:"deptime"`
	EnrouteTime         string `msgpack:"enroute_time" json:"enroute_time"`
	FuelTime            string `msgpack:"fuel_time" json:"fuel_time"`
	Remarks             string `msgpack:"remarks" json:"remarks"`
	Route               string `msgpack:"route" json:"route"`
	RevisionID          string `msgpack:"revision_id" json:"revision_id"`
	AssignedTransponder string `msgpack:"assigned_transponder" json:"assigned_transponder"`
}

// StateTransition describes a state_change event's payload.
type StateTransition struct {
	Previous string `msgpack:"previous" json:"previous"`
	Current  string `msgpack:"current" json:"current"`
	Reason   string `msgpack:"reason" json:"reason"`
}

// Position is a pilot's telemetry at the moment a state_change fired; it
// is only present for Pilot ingests (not Prefiles), per spec.md §6.
type Position struct {
	Latitude    float64 `msgpack:"latitude" json:"latitude"`
	Longitude   float64 `msgpack:"longitude" json:"longitude"`
	Altitude    int     `msgpack:"altitude" json:"altitude"`
	Groundspeed int     `msgpack:"groundspeed" json:"groundspeed"`
	Heading     int     `msgpack:"heading" json:"heading"`
}

// FlightPlanEvent is the envelope published to the four
// RouteFlightPlan* routes.
type FlightPlanEvent struct {
	Event      FlightPlanEventKind `msgpack:"event" json:"event"`
	Pilot      Pilot               `msgpack:"pilot" json:"pilot"`
	FlightPlan FlightPlan          `msgpack:"flight_plan" json:"flight_plan"`
	Timestamp  int64               `msgpack:"timestamp" json:"timestamp"`
	State      *StateTransition    `msgpack:"state,omitempty" json:"state,omitempty"`
	Position   *Position           `msgpack:"position,omitempty" json:"position,omitempty"`
}

func (e FlightPlanEvent) Route() string {
	switch e.Event {
	case FlightPlanFile:
		return RouteFlightPlanFile
	case FlightPlanUpdate:
		return RouteFlightPlanUpdate
	case FlightPlanExpire:
		return RouteFlightPlanExpire
	default:
		return RouteFlightPlanState
	}
}

func (e FlightPlanEvent) String() string {
	s := fmt.Sprintf("%s: cid %d callsign %q departure %q", e.Event, e.Pilot.CID, e.Pilot.Callsign, e.FlightPlan.Departure)
	if e.State != nil {
		s += fmt.Sprintf(" (%s -> %s: %s)", e.State.Previous, e.State.Current, e.State.Reason)
	}
	return s
}

func (e FlightPlanEvent) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("event", string(e.Event)),
		slog.Int("cid", e.Pilot.CID),
		slog.String("callsign", e.Pilot.Callsign),
		slog.String("departure", e.FlightPlan.Departure),
		slog.Int64("timestamp", e.Timestamp),
	}
	if e.State != nil {
		attrs = append(attrs, slog.Group("state",
			slog.String("previous", e.State.Previous),
			slog.String("current", e.State.Current),
			slog.String("reason", e.State.Reason)))
	}
	if e.Position != nil {
		attrs = append(attrs, slog.Group("position",
			slog.Int("altitude", e.Position.Altitude),
			slog.Int("groundspeed", e.Position.Groundspeed)))
	}
	return slog.GroupValue(attrs...)
}
