// Copyright 2026 The Agora Authors
// SPDX-License-Identifier: Apache-2.0

package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/agora-collective/agora/cache"
	"github.com/agora-collective/agora/lib/clock"
	"github.com/agora-collective/agora/lib/codec"
	"github.com/agora-collective/agora/transport"
)

// State is the connection lifecycle state.
type State int

const (
	// StateDisconnected means no connection exists and none is being
	// attempted. The initial state, and the state after Disconnect.
	StateDisconnected State = iota
	// StateConnecting means a dial is in flight.
	StateConnecting
	// StateConnected means the channel is established and the receive
	// loop is running.
	StateConnected
	// StateError means the last connection attempt or session ended in
	// a failure. The client stays here until the caller reconnects; it
	// never retries on its own.
	StateError
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config configures a Client.
type Config struct {
	// Dialer establishes connections. Required.
	Dialer transport.Dialer

	// Codec encodes and decodes payloads. Nil means codec.JSON().
	Codec codec.Codec

	// Store is the UI-facing cache the client reconciles events into.
	// Required.
	Store cache.Store

	// ViewerID is the authenticated user's id, used to recognize the
	// viewer's own actions in vote events.
	ViewerID int64

	// FlushWindow is the point-delta coalescing window. Zero means
	// DefaultFlushWindow.
	FlushWindow time.Duration

	// TypingTTL is the typing-signal inactivity window, applied to
	// both outbound self-expiry and inbound view expiry. Zero means
	// DefaultTypingTTL.
	TypingTTL time.Duration

	// FeedCapacity bounds the notification feed. Zero means
	// cache.DefaultFeedCapacity.
	FeedCapacity int

	// OnStateChange, when set, is called on every lifecycle
	// transition, in the order the transitions happened. Called from
	// a client goroutine; it must not call back into the Client.
	OnStateChange func(State)

	// Clock drives timers. Nil means clock.Real().
	Clock clock.Clock

	// Logger is used for structured logging. Nil means slog.Default().
	Logger *slog.Logger
}

// Client is the realtime reconciliation layer: one server connection,
// one receive loop, and the handlers that fold pushed events into the
// cache.
//
// All inbound events are applied from the single receive loop, so
// handlers never race each other. Public methods are safe to call
// from any goroutine.
type Client struct {
	dialer        transport.Dialer
	codec         codec.Codec
	store         cache.Store
	viewerID      int64
	onStateChange func(State)
	logger        *slog.Logger

	guard    *Guard
	batcher  *Batcher
	votes    *voteEngine
	tracker  *topicTracker
	presence *presenceView
	router   *Router

	mu           sync.Mutex
	state        State
	lastErr      error
	channel      transport.Channel
	closing      bool
	pumpDone     chan struct{}
	pendingVotes map[string]string

	noteMu    sync.Mutex
	noteQueue []State
	notifying bool
}

// New creates a Client. The guard, topic membership, and notification
// feed live on the Client, not the connection: they survive
// reconnects.
func New(config Config) (*Client, error) {
	if config.Dialer == nil {
		return nil, fmt.Errorf("realtime: Config.Dialer is required")
	}
	if config.Store == nil {
		return nil, fmt.Errorf("realtime: Config.Store is required")
	}
	wireCodec := config.Codec
	if wireCodec == nil {
		wireCodec = codec.JSON()
	}
	timeSource := config.Clock
	if timeSource == nil {
		timeSource = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if _, ok := config.Store.Get(cache.NotificationsKey); !ok {
		config.Store.Put(cache.NotificationsKey, cache.NewFeed(config.FeedCapacity))
	}

	c := &Client{
		dialer:        config.Dialer,
		codec:         wireCodec,
		store:         config.Store,
		viewerID:      config.ViewerID,
		onStateChange: config.OnStateChange,
		logger:        logger,
		guard:         NewGuard(),
		state:         StateDisconnected,
		pendingVotes:  make(map[string]string),
	}
	c.batcher = NewBatcher(BatcherConfig{
		Flush:  c.applyPoints,
		Window: config.FlushWindow,
		Clock:  timeSource,
		Logger: logger,
	})
	c.votes = &voteEngine{
		store:    config.Store,
		guard:    c.guard,
		batcher:  c.batcher,
		viewerID: config.ViewerID,
		logger:   logger,
	}
	c.tracker = newTopicTracker(c.emit, timeSource, config.TypingTTL, logger)
	c.presence = newPresenceView(config.Store, timeSource, config.TypingTTL, logger)
	c.router = NewRouter(wireCodec, logger)
	c.registerHandlers()
	return c, nil
}

// applyPoints is the batcher's flush target: it folds a coalesced
// point total into the cached counter at key.
func (c *Client) applyPoints(key string, total int64) {
	patched := c.store.Patch(key, func(value any) any {
		points, _ := value.(int64)
		return points + total
	})
	if !patched {
		c.logger.Debug("points delta for uncached user", "key", key, "total", total)
	}
}

// State returns the current lifecycle state and, in StateError, the
// error that caused it.
func (c *Client) State() (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.lastErr
}

// Connect dials the server and starts the receive loop. While a
// connection is live or in flight, further calls are logged no-ops.
// A failed dial leaves the client in StateError; the client never
// retries on its own, so reconnect policy (backoff, user prompt)
// stays with the caller.
func (c *Client) Connect(ctx context.Context, credential string) error {
	c.mu.Lock()
	if c.state == StateConnecting || c.state == StateConnected {
		state := c.state
		c.mu.Unlock()
		c.logger.Info("connect ignored", "state", state.String())
		return nil
	}
	c.setStateLocked(StateConnecting, nil)
	c.mu.Unlock()

	channel, err := c.dialer.Dial(ctx, credential)
	if err != nil {
		c.mu.Lock()
		c.setStateLocked(StateError, err)
		c.mu.Unlock()
		return fmt.Errorf("realtime: connecting: %w", err)
	}

	done := make(chan struct{})
	c.mu.Lock()
	c.channel = channel
	c.closing = false
	c.pumpDone = done
	c.setStateLocked(StateConnected, nil)
	c.mu.Unlock()

	go c.pump(channel, done)

	// Server-side room membership did not survive the previous
	// connection; replay it.
	c.tracker.Resubscribe()
	return nil
}

// Disconnect closes the connection deliberately and waits for the
// receive loop to drain. Pending point deltas are flushed first so a
// clean shutdown loses nothing. Idempotent.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	if c.state != StateConnected {
		c.mu.Unlock()
		return nil
	}
	c.closing = true
	channel := c.channel
	done := c.pumpDone
	c.mu.Unlock()

	c.batcher.Flush()
	err := channel.Close()
	<-done
	return err
}

// pump is the receive loop: one per connection. It applies every
// inbound envelope in order, then tears the session down when the
// stream ends.
func (c *Client) pump(channel transport.Channel, done chan struct{}) {
	defer close(done)

	for envelope := range channel.Receive() {
		c.router.Dispatch(envelope)
	}

	var cause error
	if err, ok := <-channel.Errors(); ok {
		cause = err
	}
	c.finishSession(cause)
}

// finishSession sweeps per-session state after the stream ends. The
// guard, topic membership, and notification feed survive; timers and
// unflushed deltas belong to the dead session and are discarded.
func (c *Client) finishSession(cause error) {
	c.batcher.Reset()
	c.tracker.SweepTimers()
	c.presence.SweepTimers()

	c.mu.Lock()
	c.channel = nil
	c.pumpDone = nil
	for txnID := range c.pendingVotes {
		delete(c.pendingVotes, txnID)
	}
	if c.closing || cause == nil {
		c.setStateLocked(StateDisconnected, nil)
	} else {
		c.setStateLocked(StateError, cause)
	}
	c.mu.Unlock()

	if cause != nil && !c.closing {
		c.logger.Warn("connection lost", "error", cause)
	}
}

// setStateLocked transitions the lifecycle state. Must be called with
// c.mu held. The state-change callback is queued and delivered by a
// single drainer goroutine so the caller always observes transitions
// in the order they happened.
func (c *Client) setStateLocked(state State, err error) {
	if c.state == state && err == nil {
		return
	}
	c.state = state
	c.lastErr = err
	c.logger.Debug("state change", "state", state.String())
	if c.onStateChange == nil {
		return
	}
	c.noteMu.Lock()
	c.noteQueue = append(c.noteQueue, state)
	if c.notifying {
		c.noteMu.Unlock()
		return
	}
	c.notifying = true
	c.noteMu.Unlock()
	go c.drainStateNotes()
}

// drainStateNotes delivers queued state-change callbacks one at a
// time. At most one drainer runs per Client.
func (c *Client) drainStateNotes() {
	for {
		c.noteMu.Lock()
		if len(c.noteQueue) == 0 {
			c.notifying = false
			c.noteMu.Unlock()
			return
		}
		state := c.noteQueue[0]
		c.noteQueue = c.noteQueue[1:]
		c.noteMu.Unlock()
		c.onStateChange(state)
	}
}

// emit sends a named message with a fresh transaction id.
func (c *Client) emit(event string, payload any) error {
	_, err := c.send(event, payload)
	return err
}

// send encodes and transmits a named message, returning the
// transaction id attached to it.
func (c *Client) send(event string, payload any) (string, error) {
	c.mu.Lock()
	channel := c.channel
	state := c.state
	c.mu.Unlock()
	if state != StateConnected || channel == nil {
		return "", fmt.Errorf("realtime: cannot send %s: %s", event, state.String())
	}

	var encoded []byte
	if payload != nil {
		var err error
		encoded, err = c.codec.Marshal(payload)
		if err != nil {
			return "", fmt.Errorf("realtime: encoding %s: %w", event, err)
		}
	}

	txnID := ulid.Make().String()
	envelope := transport.Envelope{Event: event, TxnID: txnID, Payload: encoded}
	if err := channel.Send(context.Background(), envelope); err != nil {
		return "", fmt.Errorf("realtime: sending %s: %w", event, err)
	}
	return txnID, nil
}

// Join subscribes to a discussion topic. Membership is remembered and
// replayed on reconnect.
func (c *Client) Join(topicID string) error { return c.tracker.Join(topicID) }

// Leave unsubscribes from a discussion topic.
func (c *Client) Leave(topicID string) error { return c.tracker.Leave(topicID) }

// StartTyping signals that the viewer is typing in the topic. The
// signal self-expires if not refreshed.
func (c *Client) StartTyping(topicID string) error { return c.tracker.StartTyping(topicID) }

// StopTyping clears the viewer's typing signal immediately.
func (c *Client) StopTyping(topicID string) error { return c.tracker.StopTyping(topicID) }

// Topics returns the subscribed topics in stable order.
func (c *Client) Topics() []string { return c.tracker.Topics() }

// CastVote submits the viewer's vote on a content item. The cached
// viewer-vote state updates optimistically for immediate button
// feedback; authoritative totals arrive later as a vote snapshot. The
// transaction id is tracked until the server acknowledges it.
func (c *Client) CastVote(contentID string, kind cache.ContentKind, vote cache.VoteType) error {
	payload := voteCastPayload{
		ContentID:   contentID,
		ContentType: string(kind),
		VoteType:    string(vote),
	}
	encoded, err := c.codec.Marshal(payload)
	if err != nil {
		return fmt.Errorf("realtime: encoding %s: %w", EventVoteCast, err)
	}

	c.mu.Lock()
	channel := c.channel
	state := c.state
	txnID := ulid.Make().String()
	if state == StateConnected && channel != nil {
		// Registered before the send so the acknowledgement cannot
		// outrun the bookkeeping.
		c.pendingVotes[txnID] = contentID
	}
	c.mu.Unlock()
	if state != StateConnected || channel == nil {
		return fmt.Errorf("realtime: cannot send %s: %s", EventVoteCast, state.String())
	}

	// Optimistic highlight, applied only once the cast can actually be
	// submitted. A failed cast must leave no trace in the cache.
	var previous cache.VoteType
	c.store.Patch(cache.ContentKey(contentID), func(value any) any {
		content, ok := value.(cache.Content)
		if !ok {
			return value
		}
		previous = content.ViewerVote
		content.ViewerVote = vote
		return content
	})

	envelope := transport.Envelope{Event: EventVoteCast, TxnID: txnID, Payload: encoded}
	if err := channel.Send(context.Background(), envelope); err != nil {
		c.mu.Lock()
		delete(c.pendingVotes, txnID)
		c.mu.Unlock()
		// Undo the optimistic highlight unless an inbound snapshot has
		// already overwritten it; server state always wins.
		c.store.Patch(cache.ContentKey(contentID), func(value any) any {
			content, ok := value.(cache.Content)
			if !ok {
				return value
			}
			if content.ViewerVote == vote {
				content.ViewerVote = previous
			}
			return content
		})
		return fmt.Errorf("realtime: sending %s: %w", EventVoteCast, err)
	}
	return nil
}

// PendingVotes returns the number of casts awaiting acknowledgement.
func (c *Client) PendingVotes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pendingVotes)
}

// acknowledgeVote resolves a pending cast by its transaction id.
func (c *Client) acknowledgeVote(txnID string) {
	c.mu.Lock()
	contentID, ok := c.pendingVotes[txnID]
	delete(c.pendingVotes, txnID)
	c.mu.Unlock()
	if !ok {
		c.logger.Debug("vote ack for unknown transaction", "txn", txnID)
		return
	}
	c.logger.Debug("vote acknowledged", "txn", txnID, "content_id", contentID)
}
