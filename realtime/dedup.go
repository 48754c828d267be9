// Copyright 2026 The Agora Authors
// SPDX-License-Identifier: Apache-2.0

package realtime

import (
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/zeebo/blake3"

	"github.com/agora-collective/agora/lib/codec"
)

// Guard decides whether an event is new and whether it supersedes
// currently-held state. It absorbs the two failure modes of an
// at-least-once push transport: redelivery of the same logical event,
// and out-of-order delivery of successive snapshots for the same
// content.
//
// The seen-set is session-lifetime with no eviction: a session's
// event volume is bounded by user activity duration, and forgetting
// an id would reopen the double-application hole the set exists to
// close.
type Guard struct {
	mu sync.Mutex

	// seen holds every event id already applied this session.
	seen map[string]struct{}

	// latest holds, per ordering key, the emission timestamp of the
	// last accepted event.
	latest map[string]time.Time
}

// NewGuard returns an empty guard.
func NewGuard() *Guard {
	return &Guard{
		seen:   make(map[string]struct{}),
		latest: make(map[string]time.Time),
	}
}

// AcceptID returns true exactly once per distinct id; all subsequent
// calls with the same id return false.
func (g *Guard) AcceptID(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, dup := g.seen[id]; dup {
		return false
	}
	g.seen[id] = struct{}{}
	return true
}

// AcceptNewer performs last-write-wins ordering for snapshot events:
// it returns true if emittedAt is not older than the last accepted
// timestamp for key, recording it as the new high-water mark. Equal
// timestamps are accepted — arrival order is the tiebreak for
// idempotent snapshot data. A zero emittedAt is always accepted:
// there is nothing to order by.
func (g *Guard) AcceptNewer(key string, emittedAt time.Time) bool {
	if emittedAt.IsZero() {
		return true
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if emittedAt.Before(g.latest[key]) {
		return false
	}
	g.latest[key] = emittedAt
	return true
}

// Fingerprint derives a stable identity for an event that arrived
// without a server-assigned id: blake3 over the canonical CBOR
// encoding. Logically equal payloads fingerprint identically
// regardless of field order on the wire, so redeliveries of id-less
// events still collapse in the seen-set.
func Fingerprint(v any) (string, error) {
	canonical, err := codec.CanonicalMarshal(v)
	if err != nil {
		return "", fmt.Errorf("realtime: fingerprinting event: %w", err)
	}
	sum := blake3.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
