// events/events_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package events

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestControllerEventRoute(t *testing.T) {
	require.Equal(t, RouteControllerConnect, ControllerEvent{Event: ControllerConnect}.Route())
	require.Equal(t, RouteControllerDisconnect, ControllerEvent{Event: ControllerDisconnect}.Route())
}

func TestFlightPlanEventRoute(t *testing.T) {
	cases := []struct {
		kind  FlightPlanEventKind
		route string
	}{
		{FlightPlanFile, RouteFlightPlanFile},
		{FlightPlanUpdate, RouteFlightPlanUpdate},
		{FlightPlanExpire, RouteFlightPlanExpire},
		{FlightPlanState, RouteFlightPlanState},
	}
	for _, c := range cases {
		require.Equal(t, c.route, FlightPlanEvent{Event: c.kind}.Route())
	}
}

func TestFlightPlanEventStringIncludesState(t *testing.T) {
	e := FlightPlanEvent{
		Event: FlightPlanState,
		Pilot: Pilot{CID: 1, Callsign: "BAW1"},
		State: &StateTransition{Previous: "filed", Current: "enroute", Reason: "already_airborne"},
	}
	require.Contains(t, e.String(), "filed -> enroute")
}
