// Copyright 2026 The Agora Authors
// SPDX-License-Identifier: Apache-2.0

package realtime

import (
	"fmt"
	"time"
)

// Inbound event names pushed by the server.
const (
	EventPostCreate = "post:create"
	EventPostUpdate = "post:update"
	EventPostDelete = "post:delete"
	EventPostVote   = "post:vote"

	EventReplyCreate = "reply:create"
	EventReplyUpdate = "reply:update"
	EventReplyDelete = "reply:delete"
	EventReplyVote   = "reply:vote"

	EventUserOnline  = "user:online"
	EventUserOffline = "user:offline"
	EventUserTyping  = "user:typing"

	EventNotificationNew = "notification:new"
	EventScoreDelta      = "score:delta"

	EventModerationReported = "moderation:content_reported"
	EventModerationApproved = "moderation:content_approved"
	EventModerationRejected = "moderation:content_rejected"

	EventVoteAcknowledged = "vote:acknowledged"
)

// Outbound event names emitted by the client.
const (
	EventDiscussionJoin  = "discussion:join"
	EventDiscussionLeave = "discussion:leave"
	EventTypingStart     = "typing:start"
	EventTypingStop      = "typing:stop"
	EventVoteCast        = "vote:cast"
)

// VoteDiff is the incremental membership change carried by a vote
// event that does not resend the full voter sets.
type VoteDiff struct {
	AddedUp     []int64 `json:"addedUp,omitempty"`
	RemovedUp   []int64 `json:"removedUp,omitempty"`
	AddedDown   []int64 `json:"addedDown,omitempty"`
	RemovedDown []int64 `json:"removedDown,omitempty"`
}

// VoteUpdate is the authoritative post-vote state for one content
// item at one instant. The totals are snapshots: the client stores
// them verbatim and never derives counts locally.
//
// Membership arrives in one of two shapes: full voter-id sets
// (UpvoterIDs/DownvoterIDs) or an incremental Diff. A nil slice means
// "not supplied" — distinct from an explicit empty set.
type VoteUpdate struct {
	ContentID    string `json:"contentId"`
	ContentKind  string `json:"contentKind"`
	ActingUserID int64  `json:"actingUserId,omitempty"`

	// VoteType is the acting user's resulting vote: "up", "down", or
	// "none".
	VoteType string `json:"voteType,omitempty"`

	UpvoteTotal   int `json:"upvoteTotal"`
	DownvoteTotal int `json:"downvoteTotal"`

	UpvoterIDs   []int64   `json:"upvoterIds,omitempty"`
	DownvoterIDs []int64   `json:"downvoterIds,omitempty"`
	Diff         *VoteDiff `json:"diff,omitempty"`

	// AuthorPointsDelta is the score change for the content's author
	// caused by this vote. Routed through the delta batcher, not
	// applied directly.
	AuthorPointsDelta int64 `json:"authorPointsDelta,omitempty"`

	EmittedAt time.Time `json:"emittedAt,omitzero"`
}

func (v VoteUpdate) validate() error {
	if v.ContentID == "" {
		return fmt.Errorf("vote update missing contentId")
	}
	if v.UpvoteTotal < 0 || v.DownvoteTotal < 0 {
		return fmt.Errorf("vote update for %s has negative totals", v.ContentID)
	}
	return nil
}

// ScoreEvent is a single point-delta for a user, consumed once and
// discarded. Its id persists in the seen-set for the session so an
// at-least-once redelivery is absorbed.
type ScoreEvent struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"userId"`
	Delta     int64     `json:"delta"`
	Kind      string    `json:"kind,omitempty"`
	EmittedAt time.Time `json:"emittedAt,omitzero"`
}

func (s ScoreEvent) validate() error {
	if s.UserID == 0 {
		return fmt.Errorf("score event missing userId")
	}
	return nil
}

// PostEvent is the payload of post:create and post:update.
type PostEvent struct {
	ID        string    `json:"id"`
	AuthorID  int64     `json:"authorId"`
	Title     string    `json:"title,omitempty"`
	Body      string    `json:"body,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
	EditedAt  time.Time `json:"editedAt,omitzero"`
	EmittedAt time.Time `json:"emittedAt,omitzero"`
}

func (p PostEvent) validate() error {
	if p.ID == "" {
		return fmt.Errorf("post event missing id")
	}
	return nil
}

// ReplyEvent is the payload of reply:create and reply:update.
type ReplyEvent struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId"`
	AuthorID  int64     `json:"authorId"`
	Body      string    `json:"body,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
	EditedAt  time.Time `json:"editedAt,omitzero"`
	EmittedAt time.Time `json:"emittedAt,omitzero"`
}

func (r ReplyEvent) validate() error {
	if r.ID == "" {
		return fmt.Errorf("reply event missing id")
	}
	if r.PostID == "" {
		return fmt.Errorf("reply event %s missing postId", r.ID)
	}
	return nil
}

// DeleteEvent is the payload of post:delete and reply:delete. PostID
// is set for reply deletions so the containing reply list can be
// invalidated.
type DeleteEvent struct {
	ID     string `json:"id"`
	PostID string `json:"postId,omitempty"`
}

func (d DeleteEvent) validate() error {
	if d.ID == "" {
		return fmt.Errorf("delete event missing id")
	}
	return nil
}

// NotificationEvent is the payload of notification:new, and also
// rides along on moderation events.
type NotificationEvent struct {
	ID        string         `json:"id"`
	UserID    int64          `json:"userId"`
	Kind      string         `json:"kind"`
	Title     string         `json:"title,omitempty"`
	Message   string         `json:"message,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	EmittedAt time.Time      `json:"emittedAt,omitzero"`
}

func (n NotificationEvent) validate() error {
	if n.ID == "" {
		return fmt.Errorf("notification missing id")
	}
	return nil
}

// ModerationEvent is the payload of the moderation:* events. PostID
// is set for reply content so the containing list can be invalidated
// on rejection. An attached Notification, when present, is appended
// to the viewer's feed.
type ModerationEvent struct {
	ContentID    string             `json:"contentId"`
	ContentKind  string             `json:"contentKind"`
	PostID       string             `json:"postId,omitempty"`
	Reason       string             `json:"reason,omitempty"`
	Notification *NotificationEvent `json:"notification,omitempty"`
	EmittedAt    time.Time          `json:"emittedAt,omitzero"`
}

func (m ModerationEvent) validate() error {
	if m.ContentID == "" {
		return fmt.Errorf("moderation event missing contentId")
	}
	return nil
}

// PresenceEvent is the payload of user:online and user:offline.
type PresenceEvent struct {
	UserID int64 `json:"userId"`
}

func (p PresenceEvent) validate() error {
	if p.UserID == 0 {
		return fmt.Errorf("presence event missing userId")
	}
	return nil
}

// TypingSignal is the payload of user:typing. Ephemeral: the typing
// view self-clears after the inactivity window if no refresh arrives.
type TypingSignal struct {
	UserID   int64  `json:"userId"`
	TopicID  string `json:"topicId"`
	IsTyping bool   `json:"isTyping"`
}

func (t TypingSignal) validate() error {
	if t.UserID == 0 {
		return fmt.Errorf("typing signal missing userId")
	}
	if t.TopicID == "" {
		return fmt.Errorf("typing signal missing topicId")
	}
	return nil
}

// VoteAck is the payload of vote:acknowledged: the server accepted a
// vote:cast and echoes its transaction id. The authoritative totals
// arrive separately as a post:vote or reply:vote snapshot.
type VoteAck struct {
	TxnID     string `json:"txn"`
	ContentID string `json:"contentId,omitempty"`
}

func (a VoteAck) validate() error {
	if a.TxnID == "" {
		return fmt.Errorf("vote ack missing txn")
	}
	return nil
}

// topicPayload is the body of the outbound discussion:join,
// discussion:leave, typing:start, and typing:stop messages.
type topicPayload struct {
	PostID string `json:"postId"`
}

// voteCastPayload is the body of the outbound vote:cast message.
type voteCastPayload struct {
	ContentID   string `json:"contentId"`
	ContentType string `json:"contentType"`
	VoteType    string `json:"voteType"`
}
