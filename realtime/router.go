// Copyright 2026 The Agora Authors
// SPDX-License-Identifier: Apache-2.0

package realtime

import (
	"fmt"
	"log/slog"

	"github.com/agora-collective/agora/lib/codec"
	"github.com/agora-collective/agora/transport"
)

// Handler consumes one inbound envelope. It receives the envelope
// rather than a decoded payload because some events (vote
// acknowledgements) also need the transaction id.
type Handler func(envelope transport.Envelope) error

// Router maps inbound event names to handlers. Registration happens
// once at client construction; Dispatch is then called from the single
// receive loop, so the handler map is never mutated concurrently.
type Router struct {
	codec    codec.Codec
	logger   *slog.Logger
	handlers map[string]Handler
}

// NewRouter returns a router with no handlers registered.
func NewRouter(wireCodec codec.Codec, logger *slog.Logger) *Router {
	return &Router{
		codec:    wireCodec,
		logger:   logger,
		handlers: make(map[string]Handler),
	}
}

// Register binds a handler to an event name, replacing any previous
// binding. Not safe to call concurrently with Dispatch.
func (r *Router) Register(event string, handler Handler) {
	r.handlers[event] = handler
}

// Dispatch routes one envelope to its handler.
//
// Unknown events and handler failures are logged and dropped. A
// malformed or unrecognized event must never take down the stream: the
// server may ship event types this client version does not know, and
// one bad payload does not invalidate the rest of the session.
func (r *Router) Dispatch(envelope transport.Envelope) {
	handler, ok := r.handlers[envelope.Event]
	if !ok {
		r.logger.Debug("dropping unknown event", "event", envelope.Event)
		return
	}
	if err := handler(envelope); err != nil {
		r.logger.Warn("dropping event",
			"event", envelope.Event,
			"error", err,
		)
	}
}

// decodeAs decodes an envelope payload into T and validates it.
func decodeAs[T interface{ validate() error }](wireCodec codec.Codec, payload []byte) (T, error) {
	var decoded T
	if err := wireCodec.Unmarshal(payload, &decoded); err != nil {
		return decoded, fmt.Errorf("decoding payload: %w", err)
	}
	if err := decoded.validate(); err != nil {
		return decoded, fmt.Errorf("invalid payload: %w", err)
	}
	return decoded, nil
}
