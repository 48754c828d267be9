// Copyright 2026 The Agora Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction for testability.
//
// Production code accepts a Clock interface parameter instead of calling
// time.Now, time.AfterFunc, or time.NewTicker directly. In production,
// Real() provides the standard library behavior. In tests, Fake()
// provides a deterministic clock that advances only when Advance is
// called.
//
// # Wiring Pattern
//
// Add a Clock field to structs that schedule work:
//
//	type Batcher struct {
//	    clock clock.Clock
//	    // ...
//	}
//
// In production:
//
//	b := NewBatcher(BatcherConfig{Clock: clock.Real()})
//
// In tests:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	b := NewBatcher(BatcherConfig{Clock: c})
//	b.Enqueue(target, 5)       // arms a flush timer on the fake clock
//	c.Advance(time.Second)     // fires the timer deterministically
//
// # FakeClock Synchronization
//
// When a goroutine calls AfterFunc or NewTicker on a FakeClock, it
// registers a pending timer. Use WaitForTimers to block until a
// specific number of timers are registered before calling Advance.
// This eliminates the race between timer registration and time
// advancement that plagues tests using time.Sleep for synchronization.
package clock
