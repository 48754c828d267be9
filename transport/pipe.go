// Copyright 2026 The Agora Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"sync"
)

// Compile-time interface check.
var _ Channel = (*PipeChannel)(nil)

// pipeBuffer is the per-direction envelope buffer. Large enough that
// tests never deadlock on unconsumed traffic.
const pipeBuffer = 64

// Pipe returns two connected in-process Channels. Envelopes sent on
// one end arrive on the other end's Receive stream. Closing either end
// tears down both, delivering a CodeClosed error to the far end first.
//
// Pipe exists for tests: it lets the full realtime client run against
// a scripted "server" without a network. SetTap can drop or duplicate
// deliveries to simulate an at-least-once transport.
func Pipe() (*PipeChannel, *PipeChannel) {
	a := newPipeChannel()
	b := newPipeChannel()
	a.peer = b
	b.peer = a
	return a, b
}

// PipeChannel is one end of an in-process channel pair.
type PipeChannel struct {
	mu     sync.Mutex
	peer   *PipeChannel
	recv   chan Envelope
	errs   chan error
	closed bool

	// tap transforms outbound envelopes at this end before delivery.
	// Returning nil drops the envelope; returning multiple copies
	// duplicates it. Nil tap is identity.
	tap func(Envelope) []Envelope
}

func newPipeChannel() *PipeChannel {
	return &PipeChannel{
		recv: make(chan Envelope, pipeBuffer),
		errs: make(chan error, 1),
	}
}

// SetTap installs a delivery transform on this end's outbound path.
// Call before any traffic flows; the tap runs on the sender's
// goroutine.
func (p *PipeChannel) SetTap(tap func(Envelope) []Envelope) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tap = tap
}

// Send delivers the envelope to the far end's Receive stream.
func (p *PipeChannel) Send(ctx context.Context, envelope Envelope) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrChannelClosed
	}
	tap := p.tap
	peer := p.peer
	p.mu.Unlock()

	deliveries := []Envelope{envelope}
	if tap != nil {
		deliveries = tap(envelope)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	for _, delivery := range deliveries {
		if err := peer.deliver(delivery); err != nil {
			return err
		}
	}
	return nil
}

// deliver enqueues one envelope on this end's Receive stream. The
// enqueue is non-blocking under the mutex so a concurrent Close can
// never race a send onto a closed channel; with the generous buffer,
// overflow in a test means the consumer is genuinely stuck.
func (p *PipeChannel) deliver(envelope Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrChannelClosed
	}
	select {
	case p.recv <- envelope:
		return nil
	default:
		return errors.New("transport: pipe buffer full")
	}
}

// Receive returns the inbound envelope stream.
func (p *PipeChannel) Receive() <-chan Envelope { return p.recv }

// Errors returns the transport failure stream.
func (p *PipeChannel) Errors() <-chan error { return p.errs }

// Close tears down both ends. The far end receives a CodeClosed error
// before its streams close, matching how a real transport surfaces a
// clean remote close. Idempotent.
func (p *PipeChannel) Close() error {
	p.shutdown(nil)
	p.peer.shutdown(&ChannelError{
		Code:    CodeClosed,
		Message: "peer closed the channel",
	})
	return nil
}

// Abort tears down both ends, delivering a CodeAbnormal error to the
// far end. Simulates a network failure in tests.
func (p *PipeChannel) Abort() {
	p.shutdown(nil)
	p.peer.shutdown(&ChannelError{
		Code:    CodeAbnormal,
		Message: "connection dropped",
	})
}

// shutdown closes this end's streams, delivering err (if non-nil)
// first. Idempotent.
func (p *PipeChannel) shutdown(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	if err != nil {
		p.errs <- err
	}
	close(p.errs)
	close(p.recv)
}
