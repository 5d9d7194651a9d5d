// airborne/machine_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package airborne

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEvaluateTransitionTable(t *testing.T) {
	cases := []struct {
		name        string
		state       State
		groundspeed int
		altitude    int
		wantTo      State
		wantReason  string
		wantOK      bool
	}{
		{"filed already airborne", Filed, 90, 5000, Enroute, "already_airborne", true},
		{"filed at gate", Filed, 0, 0, Departing, "pilot_connected_at_gate", true},
		{"filed taxi speed no transition", Filed, 45, 0, "", "", false},
		{"empty state defaults to filed", "", 0, 0, Departing, "pilot_connected_at_gate", true},
		{"departing reaches takeoff speed", Departing, 61, 50, Enroute, "ground_speed_above_takeoff_threshold", true},
		{"departing below threshold no transition", Departing, 40, 50, "", "", false},
		{"enroute already landed", Enroute, 10, 0, Arrived, "already_landed", true},
		{"enroute slowing for approach", Enroute, 45, 2000, Approaching, "slowing_for_approach", true},
		{"enroute cruise no transition", Enroute, 250, 35000, "", "", false},
		{"approaching landed and taxiing", Approaching, 15, 0, Arrived, "landed_and_taxiing", true},
		{"approaching still flying no transition", Approaching, 50, 1500, "", "", false},
		{"arrived is terminal", Arrived, 90, 5000, "", "", false},
		{"cancelled is terminal", Cancelled, 90, 5000, "", "", false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := Evaluate(c.state, c.groundspeed, c.altitude, nil)
			require.Equal(t, c.wantOK, ok)
			if c.wantOK {
				require.Equal(t, c.wantTo, got.To)
				require.Equal(t, c.wantReason, got.Reason)
			}
		})
	}
}

func TestIsAllowedTable(t *testing.T) {
	require.True(t, IsAllowed(Filed, Departing))
	require.True(t, IsAllowed(Filed, Enroute))
	require.True(t, IsAllowed(Filed, Cancelled))
	require.False(t, IsAllowed(Filed, Approaching))
	require.False(t, IsAllowed(Filed, Arrived))

	require.True(t, IsAllowed(Departing, Enroute))
	require.True(t, IsAllowed(Departing, Cancelled))
	require.False(t, IsAllowed(Departing, Approaching))

	require.True(t, IsAllowed(Enroute, Approaching))
	require.True(t, IsAllowed(Enroute, Arrived))
	require.True(t, IsAllowed(Enroute, Cancelled))

	require.True(t, IsAllowed(Approaching, Arrived))
	require.True(t, IsAllowed(Approaching, Cancelled))

	require.False(t, IsAllowed(Arrived, Filed))
	require.False(t, IsAllowed(Cancelled, Filed))
}

func TestTransitionString(t *testing.T) {
	tr := Transition{From: Filed, To: Enroute, Reason: "already_airborne"}
	require.Equal(t, "filed -> enroute (already_airborne)", tr.String())
}

func TestStateString(t *testing.T) {
	require.Equal(t, "departing", Departing.String())
}
