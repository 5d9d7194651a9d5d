// bus/memory.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package bus

import (
	"context"
	"sync"
)

// Published is one recorded Publish call, kept in global call order so
// tests can assert cross-route ordering (e.g. expire-before-file on
// supersession, state_change-before-expire on TTL expiry).
type Published struct {
	Route    string
	Envelope any
}

// Memory is an in-process Publisher double for tests. Consume is not
// implemented -- the tracker tests drive ingest directly rather than
// through a simulated queue, so only the outbound side needs a double.
type Memory struct {
	mu  sync.Mutex
	log []Published
}

// NewMemory returns an empty Memory bus.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Publish(_ context.Context, route string, envelope any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log = append(m.log, Published{Route: route, Envelope: envelope})
	return nil
}

func (m *Memory) Close() error { return nil }

// Log returns every Publish call in call order.
func (m *Memory) Log() []Published {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Published, len(m.log))
	copy(out, m.log)
	return out
}

// ByRoute returns every envelope published to route, in publish order.
func (m *Memory) ByRoute(route string) []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []any
	for _, p := range m.log {
		if p.Route == route {
			out = append(out, p.Envelope)
		}
	}
	return out
}

// Reset clears all recorded publishes.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log = nil
}
