// Copyright 2026 The Agora Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/agora-collective/agora/lib/clock"
	"github.com/agora-collective/agora/lib/codec"
)

// Compile-time interface checks.
var (
	_ Dialer  = (*WebsocketDialer)(nil)
	_ Channel = (*websocketChannel)(nil)
)

const (
	defaultHandshakeTimeout = 15 * time.Second
	defaultPingInterval     = 30 * time.Second

	// controlWriteWait bounds ping and close control-frame writes.
	controlWriteWait = 5 * time.Second

	// maxDecodeFailures is the number of consecutive undecodable
	// frames tolerated before the channel gives up with a protocol
	// error. A single garbled frame is logged and dropped; a stream
	// of them means the two sides disagree on the codec.
	maxDecodeFailures = 5
)

// WebsocketDialer establishes Channels over a websocket connection.
// The zero value is not usable; URL is required.
type WebsocketDialer struct {
	// URL is the websocket endpoint (ws:// or wss://).
	URL string

	// Codec is the wire codec, offered as the websocket subprotocol.
	// Nil means codec.JSON().
	Codec codec.Codec

	// HandshakeTimeout bounds the dial. Zero means 15 seconds.
	HandshakeTimeout time.Duration

	// PingInterval is the keepalive ping cadence. Zero means 30
	// seconds.
	PingInterval time.Duration

	// Clock drives the ping ticker. Nil means clock.Real().
	Clock clock.Clock

	// Logger is used for structured logging. Nil means slog.Default().
	Logger *slog.Logger
}

// Dial connects to the configured endpoint, authenticating with the
// credential as a bearer token. A failed dial returns a *ChannelError
// with CodeRefused.
func (d *WebsocketDialer) Dial(ctx context.Context, credential string) (Channel, error) {
	wireCodec := d.Codec
	if wireCodec == nil {
		wireCodec = codec.JSON()
	}
	timeSource := d.Clock
	if timeSource == nil {
		timeSource = clock.Real()
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	handshakeTimeout := d.HandshakeTimeout
	if handshakeTimeout == 0 {
		handshakeTimeout = defaultHandshakeTimeout
	}
	pingInterval := d.PingInterval
	if pingInterval == 0 {
		pingInterval = defaultPingInterval
	}

	header := http.Header{}
	if credential != "" {
		header.Set("Authorization", "Bearer "+credential)
	}

	wsDialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
		Subprotocols:     []string{wireCodec.Name()},
	}

	conn, response, err := wsDialer.DialContext(ctx, d.URL, header)
	if err != nil {
		message := "connection failed"
		if response != nil {
			message = fmt.Sprintf("connection failed (HTTP %d)", response.StatusCode)
		}
		return nil, &ChannelError{Code: CodeRefused, Message: message, Err: err}
	}

	messageType := websocket.TextMessage
	if wireCodec.Binary() {
		messageType = websocket.BinaryMessage
	}

	channel := &websocketChannel{
		conn:        conn,
		codec:       wireCodec,
		messageType: messageType,
		recv:        make(chan Envelope, 16),
		errs:        make(chan error, 1),
		done:        make(chan struct{}),
		logger:      logger,
	}
	channel.pingTicker = timeSource.NewTicker(pingInterval)

	go channel.readLoop()
	go channel.pingLoop()

	logger.Debug("websocket channel established",
		"url", d.URL,
		"codec", wireCodec.Name(),
	)
	return channel, nil
}

// websocketChannel is one established websocket connection.
type websocketChannel struct {
	conn        *websocket.Conn
	codec       codec.Codec
	messageType int

	// writeMu serializes writes; gorilla/websocket allows at most one
	// concurrent writer.
	writeMu sync.Mutex

	recv chan Envelope
	errs chan error

	// closing is set by Close so the read loop reports a
	// locally-initiated teardown as clean instead of as an error.
	closing atomic.Bool

	// signalOnce closes done; streamsOnce closes recv and errs. They
	// are separate because Close must unblock the read loop (via
	// done) while only the read loop itself may close the streams it
	// sends on.
	signalOnce  sync.Once
	streamsOnce sync.Once
	done        chan struct{}

	pingTicker *clock.Ticker
	logger     *slog.Logger
}

// Send encodes and transmits the envelope.
func (c *websocketChannel) Send(ctx context.Context, envelope Envelope) error {
	select {
	case <-c.done:
		return ErrChannelClosed
	default:
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	frame, err := c.codec.EncodeFrame(envelope.Event, envelope.TxnID, envelope.Payload)
	if err != nil {
		return fmt.Errorf("transport: encoding %s frame: %w", envelope.Event, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteMessage(c.messageType, frame); err != nil {
		return &ChannelError{Code: CodeAbnormal, Message: "write failed", Err: err}
	}
	return nil
}

func (c *websocketChannel) Receive() <-chan Envelope { return c.recv }

func (c *websocketChannel) Errors() <-chan error { return c.errs }

// Close performs the websocket close handshake and tears the channel
// down. Idempotent.
func (c *websocketChannel) Close() error {
	c.closing.Store(true)

	c.writeMu.Lock()
	c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(controlWriteWait),
	)
	c.writeMu.Unlock()

	c.signal()

	// Closing the underlying connection unblocks ReadMessage; the
	// read loop then finishes the teardown.
	return c.conn.Close()
}

// signal closes the done channel, unblocking the read and ping loops.
func (c *websocketChannel) signal() {
	c.signalOnce.Do(func() { close(c.done) })
}

// readLoop pulls frames off the connection, decodes them, and feeds
// the Receive stream. It owns the teardown of recv and errs: every
// exit path funnels through finish exactly once.
func (c *websocketChannel) readLoop() {
	decodeFailures := 0

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			c.finish(c.classifyReadError(err))
			return
		}

		event, txnID, payload, err := c.codec.DecodeFrame(frame)
		if err != nil {
			decodeFailures++
			c.logger.Warn("dropping undecodable frame",
				"error", err,
				"consecutive_failures", decodeFailures,
			)
			if decodeFailures >= maxDecodeFailures {
				c.finish(&ChannelError{
					Code:    CodeProtocol,
					Message: fmt.Sprintf("%d consecutive undecodable frames", decodeFailures),
					Err:     err,
				})
				return
			}
			continue
		}
		decodeFailures = 0

		select {
		case c.recv <- Envelope{Event: event, TxnID: txnID, Payload: payload}:
		case <-c.done:
			c.finish(nil)
			return
		}
	}
}

// classifyReadError maps a ReadMessage error to the teardown cause.
// Returns nil for a locally-initiated close.
func (c *websocketChannel) classifyReadError(err error) error {
	if c.closing.Load() {
		return nil
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return &ChannelError{Code: CodeClosed, Message: "server closed the connection", Err: err}
	}
	return &ChannelError{Code: CodeAbnormal, Message: "connection dropped", Err: err}
}

// finish closes the channel's streams, delivering cause (if non-nil)
// on Errors first. Called only from the read loop, after it has
// stopped sending on recv.
func (c *websocketChannel) finish(cause error) {
	c.signal()
	c.streamsOnce.Do(func() {
		c.pingTicker.Stop()
		c.conn.Close()
		if cause != nil {
			c.errs <- cause
		}
		close(c.errs)
		close(c.recv)
	})
}

// pingLoop sends keepalive pings until teardown.
func (c *websocketChannel) pingLoop() {
	for {
		select {
		case <-c.done:
			return
		case <-c.pingTicker.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(
				websocket.PingMessage,
				nil,
				time.Now().Add(controlWriteWait),
			)
			c.writeMu.Unlock()
			if err != nil {
				c.logger.Debug("keepalive ping failed", "error", err)
			}
		}
	}
}
