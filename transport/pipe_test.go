// Copyright 2026 The Agora Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"testing"
	"time"

	"github.com/agora-collective/agora/lib/testutil"
)

func TestPipeDelivers(t *testing.T) {
	client, server := Pipe()

	err := client.Send(context.Background(), Envelope{
		Event:   "discussion:join",
		TxnID:   "txn-1",
		Payload: []byte(`{"postId":"p1"}`),
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	got := testutil.RequireReceive(t, server.Receive(), time.Second, "waiting for envelope")
	if got.Event != "discussion:join" {
		t.Errorf("Event = %q, want discussion:join", got.Event)
	}
	if got.TxnID != "txn-1" {
		t.Errorf("TxnID = %q, want txn-1", got.TxnID)
	}
	if string(got.Payload) != `{"postId":"p1"}` {
		t.Errorf("Payload = %s", got.Payload)
	}
}

func TestPipeCloseNotifiesPeer(t *testing.T) {
	client, server := Pipe()

	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	cause := testutil.RequireReceive(t, server.Errors(), time.Second, "waiting for close error")
	if !IsChannelError(cause, CodeClosed) {
		t.Errorf("peer error = %v, want CodeClosed", cause)
	}

	// Both ends' streams close.
	if _, ok := <-server.Receive(); ok {
		t.Error("server Receive delivered after close")
	}
	if _, ok := <-client.Receive(); ok {
		t.Error("client Receive delivered after close")
	}

	if err := client.Send(context.Background(), Envelope{Event: "x"}); err != ErrChannelClosed {
		t.Errorf("Send after close = %v, want ErrChannelClosed", err)
	}
}

func TestPipeCloseIdempotent(t *testing.T) {
	client, _ := Pipe()
	client.Close()
	client.Close()
}

func TestPipeAbort(t *testing.T) {
	client, server := Pipe()

	client.Abort()

	cause := testutil.RequireReceive(t, server.Errors(), time.Second, "waiting for abort error")
	if !IsChannelError(cause, CodeAbnormal) {
		t.Errorf("peer error = %v, want CodeAbnormal", cause)
	}
}

func TestPipeTapDrop(t *testing.T) {
	client, server := Pipe()

	// Drop everything.
	client.SetTap(func(Envelope) []Envelope { return nil })

	if err := client.Send(context.Background(), Envelope{Event: "typing:start"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	testutil.RequireNoReceive(t, server.Receive(), 50*time.Millisecond, "dropped envelope arrived")
}

func TestPipeTapDuplicate(t *testing.T) {
	client, server := Pipe()

	client.SetTap(func(envelope Envelope) []Envelope {
		return []Envelope{envelope, envelope}
	})

	if err := client.Send(context.Background(), Envelope{Event: "post:vote"}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	first := testutil.RequireReceive(t, server.Receive(), time.Second, "first copy")
	second := testutil.RequireReceive(t, server.Receive(), time.Second, "second copy")
	if first.Event != "post:vote" || second.Event != "post:vote" {
		t.Errorf("duplicated events = %q, %q", first.Event, second.Event)
	}
}

func TestPipeSendHonorsContext(t *testing.T) {
	client, _ := Pipe()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := client.Send(ctx, Envelope{Event: "x"}); err == nil {
		t.Error("Send with cancelled context succeeded")
	}
}
