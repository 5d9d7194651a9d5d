// ttlstore/memory_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package ttlstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vatsimnet/eventproc/clock"
)

type record struct {
	Value string
}

func TestMemoryPutGetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(clock.NewFake(time.Unix(0, 0)))

	require.NoError(t, m.Put(ctx, "k", record{Value: "hi"}))

	var got record
	require.NoError(t, m.Get(ctx, "k", &got))
	require.Equal(t, "hi", got.Value)

	require.NoError(t, m.Delete(ctx, "k"))
	require.ErrorIs(t, m.Get(ctx, "k", &got), ErrNotFound)
}

func TestMemoryScanPrefix(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(clock.NewFake(time.Unix(0, 0)))

	require.NoError(t, m.Put(ctx, "1-BAW1-EGLL", record{}))
	require.NoError(t, m.Put(ctx, "1-BAW1-EGKK", record{}))
	require.NoError(t, m.Put(ctx, "2-KLM2-EHAM", record{}))

	keys, err := m.Scan(ctx, "1-BAW1-")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"1-BAW1-EGLL", "1-BAW1-EGKK"}, keys)
}

func TestMemoryArmAndTickFiresExpiry(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(time.Unix(0, 0))
	m := NewMemory(clk)

	require.NoError(t, m.Arm(ctx, "ttl:K", 1))

	var fired []string
	done := make(chan struct{})
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		_ = m.SubscribeExpiries(subCtx, func(key string) {
			fired = append(fired, key)
		})
		close(done)
	}()

	require.Eventually(t, m.HasSubscriber, time.Second, time.Millisecond)

	clk.Advance(2 * time.Second)
	m.Tick()

	require.Eventually(t, func() bool { return len(fired) == 1 }, time.Second, time.Millisecond)
	require.Equal(t, "ttl:K", fired[0])

	cancel()
	<-done
}

func TestMemoryArmNotYetDue(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	m := NewMemory(clk)
	ctx := context.Background()

	require.NoError(t, m.Arm(ctx, "ttl:K", 10))
	clk.Advance(1 * time.Second)
	m.Tick()

	_, err := m.Scan(ctx, "ttl:")
	require.NoError(t, err)

	var v any
	require.NoError(t, m.Get(ctx, "ttl:K", &v))
}
