// Copyright 2026 The Agora Authors
// SPDX-License-Identifier: Apache-2.0

package realtime

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/agora-collective/agora/lib/clock"
)

// DefaultTypingTTL is the typing-signal inactivity window. A client
// that stops typing without explicitly saying so self-clears after
// this long. Matches the cadence the web client uses; a tunable, not
// a contract.
const DefaultTypingTTL = 4 * time.Second

// emitFunc sends a named message over the client's channel.
type emitFunc func(event string, payload any) error

// topicTracker owns per-discussion room membership and the viewer's
// outbound typing state.
//
// Membership survives disconnects: the server does not preserve room
// membership across connections, so the client replays
// discussion:join for every tracked topic on each (re)connect.
type topicTracker struct {
	emit      emitFunc
	clock     clock.Clock
	typingTTL time.Duration
	logger    *slog.Logger

	mu     sync.Mutex
	topics map[string]struct{}

	// typingTimers holds the self-expiry timer per topic the viewer
	// is currently typing in.
	typingTimers map[string]*clock.Timer
}

func newTopicTracker(emit emitFunc, timeSource clock.Clock, typingTTL time.Duration, logger *slog.Logger) *topicTracker {
	if typingTTL == 0 {
		typingTTL = DefaultTypingTTL
	}
	return &topicTracker{
		emit:         emit,
		clock:        timeSource,
		typingTTL:    typingTTL,
		logger:       logger,
		topics:       make(map[string]struct{}),
		typingTimers: make(map[string]*clock.Timer),
	}
}

// Join subscribes to a topic and emits discussion:join.
func (t *topicTracker) Join(topicID string) error {
	t.mu.Lock()
	t.topics[topicID] = struct{}{}
	t.mu.Unlock()

	return t.emit(EventDiscussionJoin, topicPayload{PostID: topicID})
}

// Leave unsubscribes from a topic and emits discussion:leave. Any
// pending typing expiry for the topic is cancelled; leaving the room
// already clears the viewer's presence there server-side.
func (t *topicTracker) Leave(topicID string) error {
	t.mu.Lock()
	delete(t.topics, topicID)
	if timer, ok := t.typingTimers[topicID]; ok {
		timer.Stop()
		delete(t.typingTimers, topicID)
	}
	t.mu.Unlock()

	return t.emit(EventDiscussionLeave, topicPayload{PostID: topicID})
}

// StartTyping emits typing:start and arms the self-expiry timer.
// Calling it again before expiry re-arms the timer and re-emits;
// typing signals are idempotent and the rate is bounded by keystroke
// cadence, so the re-emission is acceptable.
func (t *topicTracker) StartTyping(topicID string) error {
	t.mu.Lock()
	if timer, ok := t.typingTimers[topicID]; ok {
		timer.Reset(t.typingTTL)
	} else {
		t.typingTimers[topicID] = t.clock.AfterFunc(t.typingTTL, func() {
			t.expireTyping(topicID)
		})
	}
	t.mu.Unlock()

	return t.emit(EventTypingStart, topicPayload{PostID: topicID})
}

// StopTyping cancels the pending expiry and emits typing:stop
// immediately.
func (t *topicTracker) StopTyping(topicID string) error {
	t.mu.Lock()
	if timer, ok := t.typingTimers[topicID]; ok {
		timer.Stop()
		delete(t.typingTimers, topicID)
	}
	t.mu.Unlock()

	return t.emit(EventTypingStop, topicPayload{PostID: topicID})
}

// expireTyping is the typing timer callback: the viewer went quiet
// without calling StopTyping, so emit the typing-off signal on their
// behalf, exactly once.
func (t *topicTracker) expireTyping(topicID string) {
	t.mu.Lock()
	if _, ok := t.typingTimers[topicID]; !ok {
		// StopTyping or a sweep won the race.
		t.mu.Unlock()
		return
	}
	delete(t.typingTimers, topicID)
	t.mu.Unlock()

	if err := t.emit(EventTypingStop, topicPayload{PostID: topicID}); err != nil {
		t.logger.Debug("typing expiry emit failed", "topic", topicID, "error", err)
	}
}

// Resubscribe replays discussion:join for every tracked topic, in
// stable order. Called by the client after each successful connect.
func (t *topicTracker) Resubscribe() {
	t.mu.Lock()
	topics := make([]string, 0, len(t.topics))
	for topicID := range t.topics {
		topics = append(topics, topicID)
	}
	t.mu.Unlock()
	sort.Strings(topics)

	for _, topicID := range topics {
		if err := t.emit(EventDiscussionJoin, topicPayload{PostID: topicID}); err != nil {
			t.logger.Warn("resubscribe failed", "topic", topicID, "error", err)
		}
	}
}

// SweepTimers cancels all pending typing expiries without emitting
// anything. Called on disconnect: the session the signals belong to
// is gone. Topic membership is retained for the next connect.
func (t *topicTracker) SweepTimers() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for topicID, timer := range t.typingTimers {
		timer.Stop()
		delete(t.typingTimers, topicID)
	}
}

// Topics returns the tracked topics in stable order.
func (t *topicTracker) Topics() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	topics := make([]string, 0, len(t.topics))
	for topicID := range t.topics {
		topics = append(topics, topicID)
	}
	sort.Strings(topics)
	return topics
}
