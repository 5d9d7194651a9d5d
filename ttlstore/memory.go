// ttlstore/memory.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package ttlstore

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/vatsimnet/eventproc/clock"
)

// Memory is an in-process Store double for tests. It holds values
// undecoded (as the any passed to Put) rather than round-tripping through
// the wire codec, and it fires expiries itself when driven by a
// clock.Fake via Tick, rather than relying on a real broker's
// notifications.
type Memory struct {
	mu        sync.Mutex
	clock     clock.Clock
	data      map[string]any
	deadline  map[string]time.Time
	callbacks []func(string)
}

// NewMemory returns a Memory store driven by clk for sentinel expiry.
func NewMemory(clk clock.Clock) *Memory {
	return &Memory{
		clock:    clk,
		data:     make(map[string]any),
		deadline: make(map[string]time.Time),
	}
}

func (m *Memory) Put(_ context.Context, key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *Memory) Get(_ context.Context, key string, dst any) error {
	m.mu.Lock()
	v, ok := m.data[key]
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	return assign(dst, v)
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	delete(m.deadline, key)
	return nil
}

func (m *Memory) Scan(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (m *Memory) Arm(_ context.Context, key string, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = struct{}{}
	m.deadline[key] = m.clock.Now().Add(time.Duration(ttlSeconds) * time.Second)
	return nil
}

func (m *Memory) SubscribeExpiries(ctx context.Context, callback func(key string)) error {
	m.mu.Lock()
	m.callbacks = append(m.callbacks, callback)
	m.mu.Unlock()
	<-ctx.Done()
	return ctx.Err()
}

func (m *Memory) Close() error { return nil }

// HasSubscriber reports whether at least one SubscribeExpiries callback
// is registered. Tests use it to wait for a subscriber goroutine to start
// before advancing the clock and ticking.
func (m *Memory) HasSubscriber() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.callbacks) > 0
}

// Tick fires every sentinel whose deadline is at or before the store's
// clock's current time, exactly once each, then removes them. Tests call
// this after advancing a clock.Fake to simulate Redis's expired-key
// notification.
func (m *Memory) Tick() {
	now := m.clock.Now()

	m.mu.Lock()
	var fired []string
	for k, d := range m.deadline {
		if !d.After(now) {
			fired = append(fired, k)
			delete(m.deadline, k)
			delete(m.data, k)
		}
	}
	callbacks := append([]func(string){}, m.callbacks...)
	m.mu.Unlock()

	for _, k := range fired {
		for _, cb := range callbacks {
			cb(k)
		}
	}
}

// assign copies v into dst, which must be a non-nil pointer to v's type
// (or to any). This stands in for the wire codec's Decode when a test
// double skips serialization entirely.
func assign(dst any, v any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("ttlstore: Get dst must be a non-nil pointer")
	}
	elem := rv.Elem()
	vv := reflect.ValueOf(v)
	if elem.Kind() == reflect.Interface || vv.Type().AssignableTo(elem.Type()) {
		elem.Set(vv)
		return nil
	}
	return fmt.Errorf("ttlstore: cannot assign %T into %T", v, dst)
}
