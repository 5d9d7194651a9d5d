// clock/clock.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package clock gives every tracker a single monotonic time source so
// tests can advance time deterministically instead of sleeping. Trackers
// take a Clock instead of calling time.Now() directly, the same way
// fp-processing.go threads an explicit simTime through UpdateComputers
// rather than reaching for the wall clock mid-function.
package clock

import "time"

// Clock is the time source every tracker and sweep loop reads from.
type Clock interface {
	Now() time.Time
	// After returns a channel that fires once d has elapsed, the way
	// time.After does; the controller pipeline uses this to schedule
	// sweeps so a Fake clock can make tests deterministic.
	After(d time.Duration) <-chan time.Time
}

// Real is a Clock backed by the wall clock.
type Real struct{}

func (Real) Now() time.Time                         { return time.Now() }
func (Real) After(d time.Duration) <-chan time.Time { return time.After(d) }

// New returns the real wall-clock implementation. It exists mostly so call
// sites read "clock.New()" rather than "clock.Real{}".
func New() Clock { return Real{} }
