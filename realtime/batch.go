// Copyright 2026 The Agora Authors
// SPDX-License-Identifier: Apache-2.0

package realtime

import (
	"log/slog"
	"sync"
	"time"

	"github.com/agora-collective/agora/lib/clock"
)

// DefaultFlushWindow is the delta coalescing window. Empirically
// chosen: long enough to absorb a burst of point events arriving in
// the same network tick, short enough that the displayed total never
// feels laggy. A tunable, not a contract.
const DefaultFlushWindow = 250 * time.Millisecond

// FlushFunc applies a coalesced total to a dispatch target. Called
// outside the batcher's lock; it must not call back into the Batcher.
type FlushFunc func(target string, total int64)

// BatcherConfig configures a Batcher.
type BatcherConfig struct {
	// Flush applies each coalesced total. Required.
	Flush FlushFunc

	// Window is the coalescing window. Zero means DefaultFlushWindow.
	Window time.Duration

	// Clock drives the flush timer. Nil means clock.Real().
	Clock clock.Clock

	// Logger is used for structured logging. Nil means slog.Default().
	Logger *slog.Logger
}

// Batcher coalesces a burst of point-delta events for one dispatch
// target into a single cache mutation. Applying each delta as its own
// mutation causes visible flicker in point counters and redundant
// re-renders; summing them inside a short window preserves
// correctness (the sum of deltas) while smoothing the UI.
//
// The flush timer is armed by the first unflushed delta and is NOT
// re-armed by later deltas for the same target — the window bounds
// perceived latency from the first delta, not the last. A delta for a
// different target flushes the pending total immediately before
// starting a fresh accumulation, so totals never leak across targets.
type Batcher struct {
	flush  FlushFunc
	window time.Duration
	clock  clock.Clock
	logger *slog.Logger

	mu      sync.Mutex
	pending bool
	target  string
	total   int64
	timer   *clock.Timer
}

// NewBatcher creates a Batcher. Panics if config.Flush is nil: a
// batcher with nowhere to flush is a programming error, not a runtime
// condition.
func NewBatcher(config BatcherConfig) *Batcher {
	if config.Flush == nil {
		panic("realtime: BatcherConfig.Flush is required")
	}
	window := config.Window
	if window == 0 {
		window = DefaultFlushWindow
	}
	timeSource := config.Clock
	if timeSource == nil {
		timeSource = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Batcher{
		flush:  config.Flush,
		window: window,
		clock:  timeSource,
		logger: logger,
	}
}

// Enqueue adds a delta for the target. Same target as the pending
// accumulation: the delta folds in and the existing timer keeps its
// deadline. Different target: the pending total flushes immediately,
// then a fresh accumulation (and timer) starts for the new target.
func (b *Batcher) Enqueue(target string, delta int64) {
	var flushPrevious func()

	b.mu.Lock()
	if b.pending && b.target == target {
		b.total += delta
		b.mu.Unlock()
		return
	}
	if b.pending {
		flushPrevious = b.takeLocked()
	}
	b.pending = true
	b.target = target
	b.total = delta
	b.timer = b.clock.AfterFunc(b.window, b.Flush)
	b.mu.Unlock()

	if flushPrevious != nil {
		flushPrevious()
	}
}

// Flush applies the pending total now. Idempotent: with nothing
// pending it does nothing. Also the flush timer's callback.
func (b *Batcher) Flush() {
	b.mu.Lock()
	if !b.pending {
		b.mu.Unlock()
		return
	}
	apply := b.takeLocked()
	b.mu.Unlock()

	apply()
}

// Reset cancels the pending flush and discards the accumulated total.
// Called on disconnect: a flush firing against a torn-down session is
// the failure mode to avoid. Callers that want the last total applied
// call Flush before disconnecting.
func (b *Batcher) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.pending {
		return
	}
	if b.timer != nil {
		b.timer.Stop()
	}
	b.logger.Debug("discarding unflushed delta on reset",
		"target", b.target,
		"total", b.total,
	)
	b.pending = false
	b.target = ""
	b.total = 0
	b.timer = nil
}

// takeLocked captures the pending accumulation, clears it, and
// returns a closure that applies it. Must be called with b.mu held;
// the closure must be called without it.
func (b *Batcher) takeLocked() func() {
	if b.timer != nil {
		b.timer.Stop()
	}
	target := b.target
	total := b.total
	b.pending = false
	b.target = ""
	b.total = 0
	b.timer = nil

	return func() { b.flush(target, total) }
}
