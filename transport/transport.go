// Copyright 2026 The Agora Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
)

// Envelope is one named message on the channel. The payload bytes are
// opaque to the transport; the realtime layer decodes them with the
// negotiated codec.
type Envelope struct {
	// Event is the message name (e.g., "post:vote", "discussion:join").
	Event string

	// TxnID is a client-generated transaction id attached to outbound
	// messages. The server echoes it in acknowledgement events so the
	// client can correlate them. Empty on most inbound traffic.
	TxnID string

	// Payload is the encoded message body. May be nil for events that
	// carry no body.
	Payload []byte
}

// Channel is one established connection to the server.
//
// Receive and Errors close when the channel tears down, whether by
// Close or by transport failure. A transport failure is delivered on
// Errors (as a *ChannelError) before the channels close. A Channel
// never reconnects on its own.
type Channel interface {
	// Send transmits an envelope. It returns an error if the channel
	// is closed or the write fails; it never blocks past ctx.
	Send(ctx context.Context, envelope Envelope) error

	// Receive returns the inbound envelope stream. The channel closes
	// on teardown.
	Receive() <-chan Envelope

	// Errors returns the transport failure stream. At most one error
	// is delivered per channel lifetime, then the stream closes.
	Errors() <-chan error

	// Close tears the connection down. Idempotent.
	Close() error
}

// Dialer establishes Channels. The credential is an opaque
// authentication token; the transport forwards it without
// interpreting it.
type Dialer interface {
	Dial(ctx context.Context, credential string) (Channel, error)
}

// Close classification codes for ChannelError.
const (
	// CodeRefused means the connection could not be established
	// (dial or handshake failure).
	CodeRefused = "refused"
	// CodeClosed means the server closed the connection cleanly.
	CodeClosed = "closed"
	// CodeAbnormal means the connection dropped without a close
	// handshake (network failure, process death).
	CodeAbnormal = "abnormal"
	// CodeProtocol means a frame arrived that the codec could not
	// decode as an envelope.
	CodeProtocol = "protocol"
)

// ChannelError is a transport-level failure. Callers use errors.As to
// extract the classification:
//
//	var channelErr *transport.ChannelError
//	if errors.As(err, &channelErr) {
//	    if channelErr.Code == transport.CodeClosed { ... }
//	}
type ChannelError struct {
	// Code is the close classification (CodeRefused, CodeClosed,
	// CodeAbnormal, CodeProtocol).
	Code string
	// Message is a human-readable description suitable for surfacing
	// in connection status UI.
	Message string
	// Err is the underlying transport error, if any.
	Err error
}

func (e *ChannelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transport: %s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("transport: %s: %s", e.Code, e.Message)
}

func (e *ChannelError) Unwrap() error { return e.Err }

// IsChannelError checks whether err is a *ChannelError with the given
// classification code.
func IsChannelError(err error, code string) bool {
	var channelErr *ChannelError
	if errors.As(err, &channelErr) {
		return channelErr.Code == code
	}
	return false
}

// ErrChannelClosed is returned by Send on a torn-down channel.
var ErrChannelClosed = errors.New("transport: channel closed")
