// Copyright 2026 The Agora Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode is the CBOR encoder configured with Core Deterministic
// Encoding (RFC 8949 §4.2): sorted map keys, smallest integer
// encoding, no indefinite-length items. Same logical data always
// produces identical bytes.
var encMode cbor.EncMode

// decMode is the CBOR decoder configured to accept standard CBOR.
// Unknown fields are silently ignored for forward compatibility.
var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// The channel protocol never uses non-string map keys. When
		// the decoder's target is any (e.g., the opaque notification
		// payload map), it must pick a concrete Go map type. The CBOR
		// default is map[interface{}]interface{}, which is
		// incompatible with encoding/json and most Go code that
		// expects map[string]any. This setting only affects any-typed
		// targets — struct field decoding is unaffected.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// CBOR returns the binary-frame codec. Native clients negotiate it for
// smaller frames; the encoding is Core Deterministic so the same
// logical payload is always the same bytes.
func CBOR() Codec { return cborCodec{} }

type cborCodec struct{}

func (cborCodec) Name() string                  { return "agora.cbor" }
func (cborCodec) Binary() bool                  { return true }
func (cborCodec) Marshal(v any) ([]byte, error) { return encMode.Marshal(v) }
func (cborCodec) Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// cborFrame is the binary-frame envelope, mirroring the JSON frame
// field for field.
type cborFrame struct {
	Event string          `cbor:"event"`
	Txn   string          `cbor:"txn,omitempty"`
	Data  cbor.RawMessage `cbor:"data,omitempty"`
}

func (cborCodec) EncodeFrame(event, txnID string, payload []byte) ([]byte, error) {
	if event == "" {
		return nil, fmt.Errorf("codec: frame requires an event name")
	}
	return encMode.Marshal(cborFrame{Event: event, Txn: txnID, Data: payload})
}

func (cborCodec) DecodeFrame(frame []byte) (string, string, []byte, error) {
	var decoded cborFrame
	if err := decMode.Unmarshal(frame, &decoded); err != nil {
		return "", "", nil, fmt.Errorf("codec: decoding CBOR frame: %w", err)
	}
	if decoded.Event == "" {
		return "", "", nil, fmt.Errorf("codec: frame missing event name")
	}
	return decoded.Event, decoded.Txn, decoded.Data, nil
}

// CanonicalMarshal encodes v with Core Deterministic Encoding,
// independent of which codec carries the wire frames. Event
// fingerprinting hashes this byte form so that logically equal
// payloads fingerprint identically even when a JSON transport
// delivered their fields in different orders.
func CanonicalMarshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}
