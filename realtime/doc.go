// Copyright 2026 The Agora Authors
// SPDX-License-Identifier: Apache-2.0

// Package realtime maintains a client-held cache against the Agora
// server's push channel.
//
// The server delivers asynchronous, possibly out-of-order, possibly
// duplicated domain events: vote changes, new replies, notifications,
// score deltas, typing and presence signals. This package merges them
// into the UI-facing [cache.Store] without corrupting aggregate
// counts, double-counting points, or flashing stale data.
//
// [Client] owns the connection lifecycle: one channel at a time,
// explicit Connect and Disconnect, no automatic retry. A transport
// failure surfaces through the connection state; reconnecting is the
// caller's decision, so the UI can show "disconnected" instead of
// retrying forever unobserved.
//
// Internally, every inbound envelope flows through one path: the
// [Router] finds the typed handler for the event name; the [Guard]
// decides whether the event is new (seen-set idempotence) and whether
// it supersedes held state (last-write-wins by emission timestamp);
// the vote engine applies snapshot semantics to aggregate counters;
// and the [Batcher] coalesces bursts of point deltas into single
// cache mutations.
//
// Concurrency model: the client is event-loop driven. One pump
// goroutine consumes the channel and applies every mutation through
// the store, which serializes them; timers (flush windows, typing
// TTLs) run on an injected [clock.Clock] and take the same locks. No
// entry point blocks on I/O completion.
package realtime
