// Copyright 2026 The Agora Authors
// SPDX-License-Identifier: Apache-2.0

// Package cache holds the client-side normalized store that the
// realtime layer mutates and the UI reads.
//
// [Store] is the narrow mutation interface the realtime layer
// consumes: Get, Put, Patch, and Invalidate. Every realtime mutation
// flows through it, so exactly one code path is responsible for
// notifying dependent UI of a change. [MemoryStore] is the in-process
// implementation, with OnChange and OnInvalidate hooks for the UI
// binding.
//
// The package also defines the cached value types (Content,
// Notification, the presence maps) and the key scheme that names them,
// plus [Feed], the bounded insertion-ordered notification list.
package cache
