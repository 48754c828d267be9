// Copyright 2026 The Agora Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the wire codecs for the realtime channel.
//
// Two codecs exist: JSON (the default; matches the web client's text
// frames) and CBOR (binary frames, Core Deterministic Encoding). Both
// implement the Codec interface so the transport and router never
// import a serialization library directly.
//
// CanonicalMarshal exposes the deterministic CBOR encoding on its own.
// Its byte output is stable for logically equal values regardless of
// map ordering, which makes it suitable as the input to content
// fingerprints.
package codec
