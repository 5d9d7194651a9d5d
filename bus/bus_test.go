// bus/bus_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package bus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type sample struct {
	Event string
	CID   int
}

func TestCodecRoundTrip(t *testing.T) {
	in := sample{Event: "file", CID: 1}
	data, err := encode(in)
	require.NoError(t, err)

	var out sample
	require.NoError(t, decode(data, &out))
	require.Equal(t, in, out)
}

func TestMemoryPublishPreservesOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Publish(ctx, "events.flight_plan.state_change", sample{Event: "state_change"}))
	require.NoError(t, m.Publish(ctx, "events.flight_plan.expire", sample{Event: "expire"}))

	log := m.Log()
	require.Len(t, log, 2)
	require.Equal(t, "events.flight_plan.state_change", log[0].Route)
	require.Equal(t, "events.flight_plan.expire", log[1].Route)
}

func TestMemoryByRoute(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Publish(ctx, "events.flight_plan.file", sample{Event: "file", CID: 1}))
	require.NoError(t, m.Publish(ctx, "events.flight_plan.update", sample{Event: "update", CID: 1}))
	require.NoError(t, m.Publish(ctx, "events.flight_plan.file", sample{Event: "file", CID: 2}))

	files := m.ByRoute("events.flight_plan.file")
	require.Len(t, files, 2)
}
