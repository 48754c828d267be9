// Copyright 2026 The Agora Authors
// SPDX-License-Identifier: Apache-2.0

package realtime

import (
	"log/slog"
	"sync"
	"time"

	"github.com/agora-collective/agora/cache"
	"github.com/agora-collective/agora/lib/clock"
)

// typingEntry identifies one user typing in one topic.
type typingEntry struct {
	TopicID string
	UserID  int64
}

// presenceView maintains the cached online set and per-topic typing
// sets from inbound presence events.
//
// Typing state is ephemeral. Each typing-on signal arms a TTL timer;
// if no refresh arrives before it fires, the user is removed from the
// topic's typing set. A client that crashes mid-keystroke therefore
// never leaves a permanent "is typing" ghost.
type presenceView struct {
	store     cache.Store
	clock     clock.Clock
	typingTTL time.Duration
	logger    *slog.Logger

	mu     sync.Mutex
	timers map[typingEntry]*clock.Timer
}

func newPresenceView(store cache.Store, timeSource clock.Clock, typingTTL time.Duration, logger *slog.Logger) *presenceView {
	if typingTTL == 0 {
		typingTTL = DefaultTypingTTL
	}
	return &presenceView{
		store:     store,
		clock:     timeSource,
		typingTTL: typingTTL,
		logger:    logger,
		timers:    make(map[typingEntry]*clock.Timer),
	}
}

// SetOnline adds or removes a user from the cached online set. The
// set is replaced with a fresh copy on every change so snapshots
// handed to the UI stay immutable.
func (p *presenceView) SetOnline(userID int64, online bool) {
	current, _ := p.store.Get(cache.OnlineKey)
	existing, _ := current.(map[int64]struct{})

	next := make(map[int64]struct{}, len(existing)+1)
	for id := range existing {
		next[id] = struct{}{}
	}
	if online {
		next[userID] = struct{}{}
	} else {
		delete(next, userID)
	}
	p.store.Put(cache.OnlineKey, next)
}

// SetTyping applies a typing signal to the topic's typing set and
// manages the TTL timer for the entry.
func (p *presenceView) SetTyping(signal TypingSignal) {
	entry := typingEntry{TopicID: signal.TopicID, UserID: signal.UserID}

	p.mu.Lock()
	if signal.IsTyping {
		if timer, ok := p.timers[entry]; ok {
			timer.Reset(p.typingTTL)
		} else {
			p.timers[entry] = p.clock.AfterFunc(p.typingTTL, func() {
				p.expire(entry)
			})
		}
	} else {
		if timer, ok := p.timers[entry]; ok {
			timer.Stop()
			delete(p.timers, entry)
		}
	}
	p.mu.Unlock()

	p.updateSet(entry, signal.IsTyping)
}

// expire is the TTL timer callback: no refresh arrived, so the user
// stopped typing without saying so.
func (p *presenceView) expire(entry typingEntry) {
	p.mu.Lock()
	if _, ok := p.timers[entry]; !ok {
		// An explicit typing-off or a sweep won the race.
		p.mu.Unlock()
		return
	}
	delete(p.timers, entry)
	p.mu.Unlock()

	p.logger.Debug("typing signal expired",
		"topic", entry.TopicID,
		"user", entry.UserID,
	)
	p.updateSet(entry, false)
}

// updateSet rewrites the topic's typing set with the entry added or
// removed. Copy-on-write, same as the online set.
func (p *presenceView) updateSet(entry typingEntry, typing bool) {
	key := cache.TypingKey(entry.TopicID)
	current, _ := p.store.Get(key)
	existing, _ := current.(map[int64]struct{})

	next := make(map[int64]struct{}, len(existing)+1)
	for id := range existing {
		next[id] = struct{}{}
	}
	if typing {
		next[entry.UserID] = struct{}{}
	} else {
		delete(next, entry.UserID)
	}
	p.store.Put(key, next)
}

// SweepTimers cancels all TTL timers and clears the swept users from
// their typing sets. Called on disconnect: typing indicators from a
// dead session must not linger until a reconnect happens to refresh
// them.
func (p *presenceView) SweepTimers() {
	p.mu.Lock()
	entries := make([]typingEntry, 0, len(p.timers))
	for entry, timer := range p.timers {
		timer.Stop()
		delete(p.timers, entry)
		entries = append(entries, entry)
	}
	p.mu.Unlock()

	for _, entry := range entries {
		p.updateSet(entry, false)
	}
}
