// Copyright 2026 The Agora Authors
// SPDX-License-Identifier: Apache-2.0

package cache

import "time"

// ContentKind distinguishes posts from replies.
type ContentKind string

const (
	KindPost  ContentKind = "post"
	KindReply ContentKind = "reply"
)

// VoteType is a single user's vote state on one content item.
type VoteType string

const (
	VoteNone VoteType = "none"
	VoteUp   VoteType = "up"
	VoteDown VoteType = "down"
)

// ModerationStatus is the moderation state of a content item.
type ModerationStatus string

const (
	ModerationNone     ModerationStatus = ""
	ModerationReported ModerationStatus = "reported"
	ModerationApproved ModerationStatus = "approved"
	ModerationRejected ModerationStatus = "rejected"
)

// Content is one cached post or reply. The vote counters are always
// snapshots from the most recently accepted vote event — never sums
// the client derived itself. The voter-id sets track membership only
// (e.g., "did user X vote"); they are not used to recompute the
// counters.
type Content struct {
	ID       string
	Kind     ContentKind
	PostID   string // containing post; empty for posts themselves
	AuthorID int64

	Title string
	Body  string

	Upvotes   int
	Downvotes int

	// UpvoterIDs and DownvoterIDs are membership sets. Nil when the
	// server has not supplied membership for this item.
	UpvoterIDs   map[int64]struct{}
	DownvoterIDs map[int64]struct{}

	// ViewerVote is the current viewer's own vote on this item. It
	// drives button highlighting and reflects the viewer's action
	// even when the aggregate snapshot lags.
	ViewerVote VoteType

	Moderation ModerationStatus

	CreatedAt time.Time
	EditedAt  time.Time
}

// CloneVoterSets returns deep copies of the membership sets so a
// patch can mutate them without aliasing the previously published
// value. Nil sets stay nil.
func (c *Content) CloneVoterSets() (up, down map[int64]struct{}) {
	if c.UpvoterIDs != nil {
		up = make(map[int64]struct{}, len(c.UpvoterIDs))
		for id := range c.UpvoterIDs {
			up[id] = struct{}{}
		}
	}
	if c.DownvoterIDs != nil {
		down = make(map[int64]struct{}, len(c.DownvoterIDs))
		for id := range c.DownvoterIDs {
			down[id] = struct{}{}
		}
	}
	return up, down
}

// Notification is one entry in the viewer's notification feed.
type Notification struct {
	ID      string
	UserID  int64
	Kind    string
	Title   string
	Message string

	// Payload is the opaque event payload; the UI interprets it per
	// Kind.
	Payload map[string]any

	EmittedAt time.Time
}
