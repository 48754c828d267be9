// Copyright 2026 The Agora Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport provides the bidirectional named-message channel
// between a realtime client and the Agora server.
//
// The package exposes three things. [Envelope] is a named message with
// an optional client transaction id and an opaque payload. [Channel]
// is one established connection: Send for outbound envelopes, Receive
// and Errors channels for inbound traffic and transport failure.
// [Dialer] turns a credential into a Channel.
//
// The production implementation is [WebsocketDialer], a
// gorilla/websocket client that authenticates with a bearer token and
// negotiates the wire codec as the websocket subprotocol. Tests use
// [Pipe], which connects two in-process Channels and can drop or
// duplicate deliveries to simulate at-least-once transports.
//
// A Channel never retries internally. When the underlying connection
// fails, the failure is delivered on Errors as a [*ChannelError] and
// both channels close. Reconnecting is the caller's decision.
package transport
