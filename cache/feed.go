// Copyright 2026 The Agora Authors
// SPDX-License-Identifier: Apache-2.0

package cache

// DefaultFeedCapacity is the default bound on the notification feed.
// 200 entries is more than any session view shows; older entries live
// server-side and arrive via refetch, not via the push channel.
const DefaultFeedCapacity = 200

// Feed is the viewer's notification list: insertion-ordered, bounded,
// and deduplicated by notification id. When the feed is full, the
// oldest entry is dropped. Seen ids are remembered for the session
// even after their entries age out, so a late redelivery of an old
// notification does not reappear.
//
// Feed is not safe for concurrent use on its own; it lives inside a
// Store, whose serialization covers it.
type Feed struct {
	capacity int
	items    []Notification
	seen     map[string]struct{}
}

// NewFeed creates a feed with the given capacity. Zero or negative
// means DefaultFeedCapacity.
func NewFeed(capacity int) *Feed {
	if capacity <= 0 {
		capacity = DefaultFeedCapacity
	}
	return &Feed{
		capacity: capacity,
		seen:     make(map[string]struct{}),
	}
}

// Append adds a notification to the feed. Returns false for a
// duplicate id (the feed is unchanged).
func (f *Feed) Append(notification Notification) bool {
	if _, dup := f.seen[notification.ID]; dup {
		return false
	}
	f.seen[notification.ID] = struct{}{}

	f.items = append(f.items, notification)
	if len(f.items) > f.capacity {
		f.items = f.items[1:]
	}
	return true
}

// Items returns the feed contents in insertion order. The returned
// slice is a copy.
func (f *Feed) Items() []Notification {
	items := make([]Notification, len(f.items))
	copy(items, f.items)
	return items
}

// Len returns the number of entries currently in the feed.
func (f *Feed) Len() int { return len(f.items) }
