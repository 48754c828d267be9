// Copyright 2026 The Agora Authors
// SPDX-License-Identifier: Apache-2.0

package cache

import "fmt"

// Store is the narrow mutation interface between the realtime layer
// and the UI-facing cache. Implementations must serialize mutations;
// the realtime layer relies on that serialization instead of locking.
type Store interface {
	// Get returns the value at key, if present.
	Get(key string) (any, bool)

	// Put inserts or replaces the value at key.
	Put(key string, value any)

	// Patch applies update to the value at key and stores the result.
	// If the key is absent, update is not called and Patch returns
	// false — an event targeting uncached content is a no-op, not an
	// insert.
	Patch(key string, update func(value any) any) bool

	// Delete removes the value at key, if present.
	Delete(key string)

	// Invalidate marks a query tag stale, telling the REST layer that
	// backs initial page loads to refetch the named list.
	Invalidate(tag string)
}

// Cache key scheme. Content is normalized under one key per item
// regardless of which list views include it.

// ContentKey names a cached post or reply.
func ContentKey(contentID string) string { return "content/" + contentID }

// UserPointsKey names a cached user's point total.
func UserPointsKey(userID int64) string {
	return fmt.Sprintf("user/%d/points", userID)
}

// TypingKey names the per-topic set of users currently typing.
func TypingKey(topicID string) string { return "typing/" + topicID }

// OnlineKey names the set of users currently online.
const OnlineKey = "presence/online"

// NotificationsKey names the viewer's notification feed.
const NotificationsKey = "notifications"

// Query tags for Invalidate.

// TagPosts marks the top-level post list stale.
const TagPosts = "posts"

// TagReplies marks one post's reply list stale.
func TagReplies(postID string) string { return "replies/" + postID }

// TagNotifications marks the notification list stale.
const TagNotifications = "notifications"
