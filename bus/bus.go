// bus/bus.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package bus adapts the outbound/inbound message routes of spec.md §4.5
// and §6 onto a real broker. sim/eventstream.go's Subscribe/Post/Get
// vocabulary is the model -- generalized from an in-process channel of
// Event values to a durable, acknowledged queue of wire envelopes.
package bus

import (
	"context"
)

// Inbound is one message off the raw ingest routes (raw.controllers,
// raw.flight_plans, raw.prefiles), per spec.md §6's untyped envelope
// `{ data, batchId }`. Data is left as raw bytes; callers decode it into
// the concrete shape (Controller, Pilot, Prefile) they expect for the
// route they're consuming.
type Inbound struct {
	Data    []byte
	BatchID string
}

// Delivery is one message received on a Subscriber's channel. Ack/Nack must
// be called exactly once per Delivery; the bus redelivers an un-acked
// message per spec.md §4.5 and §7's transient-error handling.
type Delivery struct {
	Inbound
	Ack  func()
	Nack func()
}

// Publisher durably publishes an envelope to route and waits for
// broker-level acknowledgement, per spec.md §4.5.
type Publisher interface {
	Publish(ctx context.Context, route string, envelope any) error
	Close() error
}

// Subscriber opens a consumer on route and hands deliveries back as a
// channel, in delivery order, rather than invoking a handler internally.
// This lets a caller select over several routes (and a ticker, a second
// route's channel, etc.) from one goroutine, which is how spec.md §5's
// "single logical event loop per pipeline" is actually enforced: the
// pipeline owns one select loop, not one goroutine per route. The
// channel is closed when ctx is cancelled or the underlying consumer
// exits.
type Subscriber interface {
	Consume(ctx context.Context, route string) (<-chan Delivery, error)
	Close() error
}
