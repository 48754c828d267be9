// Copyright 2026 The Agora Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"encoding/json"
	"fmt"
)

// Codec encodes and decodes payloads exchanged over the realtime
// channel. Implementations must be safe for concurrent use.
type Codec interface {
	// Name identifies the codec on the wire. It is offered as the
	// websocket subprotocol during the handshake so both sides agree
	// on the frame format.
	Name() string

	// Binary reports whether encoded payloads are binary frames
	// (CBOR) or text frames (JSON).
	Binary() bool

	// Marshal encodes v.
	Marshal(v any) ([]byte, error)

	// Unmarshal decodes data into v. Unknown fields are ignored for
	// forward compatibility.
	Unmarshal(data []byte, v any) error

	// EncodeFrame encodes a named message for the wire. The payload
	// bytes must already be encoded with this codec (or empty).
	EncodeFrame(event, txnID string, payload []byte) ([]byte, error)

	// DecodeFrame splits a wire frame into its parts. A frame with an
	// empty event name is a protocol error.
	DecodeFrame(frame []byte) (event, txnID string, payload []byte, err error)
}

// JSON returns the text-frame codec. This is the default: the
// community web client speaks JSON named messages.
func JSON() Codec { return jsonCodec{} }

type jsonCodec struct{}

func (jsonCodec) Name() string                  { return "agora.json" }
func (jsonCodec) Binary() bool                  { return false }
func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// jsonFrame is the text-frame envelope: {"event": ..., "txn": ...,
// "data": ...}. Data stays raw so the payload is decoded once, by the
// handler that knows its type.
type jsonFrame struct {
	Event string          `json:"event"`
	Txn   string          `json:"txn,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func (jsonCodec) EncodeFrame(event, txnID string, payload []byte) ([]byte, error) {
	if event == "" {
		return nil, fmt.Errorf("codec: frame requires an event name")
	}
	return json.Marshal(jsonFrame{Event: event, Txn: txnID, Data: payload})
}

func (jsonCodec) DecodeFrame(frame []byte) (string, string, []byte, error) {
	var decoded jsonFrame
	if err := json.Unmarshal(frame, &decoded); err != nil {
		return "", "", nil, fmt.Errorf("codec: decoding JSON frame: %w", err)
	}
	if decoded.Event == "" {
		return "", "", nil, fmt.Errorf("codec: frame missing event name")
	}
	return decoded.Event, decoded.Txn, decoded.Data, nil
}
