// Copyright 2026 The Agora Authors
// SPDX-License-Identifier: Apache-2.0

package realtime

import (
	"time"

	"github.com/agora-collective/agora/cache"
	"github.com/agora-collective/agora/transport"
)

// registerHandlers binds every inbound event the client understands.
// Called once from New; the router never changes afterwards.
func (c *Client) registerHandlers() {
	c.router.Register(EventPostCreate, c.handlePostCreate)
	c.router.Register(EventPostUpdate, c.handlePostUpdate)
	c.router.Register(EventPostDelete, c.handlePostDelete)
	c.router.Register(EventPostVote, c.handleVote)

	c.router.Register(EventReplyCreate, c.handleReplyCreate)
	c.router.Register(EventReplyUpdate, c.handleReplyUpdate)
	c.router.Register(EventReplyDelete, c.handleReplyDelete)
	c.router.Register(EventReplyVote, c.handleVote)

	c.router.Register(EventScoreDelta, c.handleScoreDelta)
	c.router.Register(EventNotificationNew, c.handleNotification)

	c.router.Register(EventModerationReported, c.handleModeration)
	c.router.Register(EventModerationApproved, c.handleModeration)
	c.router.Register(EventModerationRejected, c.handleModeration)

	c.router.Register(EventUserOnline, c.handlePresence)
	c.router.Register(EventUserOffline, c.handlePresence)
	c.router.Register(EventUserTyping, c.handleTyping)

	c.router.Register(EventVoteAcknowledged, c.handleVoteAck)
}

func (c *Client) handlePostCreate(envelope transport.Envelope) error {
	event, err := decodeAs[PostEvent](c.codec, envelope.Payload)
	if err != nil {
		return err
	}
	// Put is idempotent, so a redelivered create simply rewrites the
	// same entry.
	c.store.Put(cache.ContentKey(event.ID), cache.Content{
		ID:        event.ID,
		Kind:      cache.KindPost,
		AuthorID:  event.AuthorID,
		Title:     event.Title,
		Body:      event.Body,
		CreatedAt: event.CreatedAt,
	})
	c.store.Invalidate(cache.TagPosts)
	return nil
}

func (c *Client) handlePostUpdate(envelope transport.Envelope) error {
	event, err := decodeAs[PostEvent](c.codec, envelope.Payload)
	if err != nil {
		return err
	}
	c.applyEdit(event.ID, event.EmittedAt, func(content cache.Content) cache.Content {
		if event.Title != "" {
			content.Title = event.Title
		}
		content.Body = event.Body
		content.EditedAt = pickEditTime(event.EditedAt, event.EmittedAt)
		return content
	})
	return nil
}

func (c *Client) handlePostDelete(envelope transport.Envelope) error {
	event, err := decodeAs[DeleteEvent](c.codec, envelope.Payload)
	if err != nil {
		return err
	}
	c.store.Delete(cache.ContentKey(event.ID))
	c.store.Invalidate(cache.TagPosts)
	return nil
}

func (c *Client) handleReplyCreate(envelope transport.Envelope) error {
	event, err := decodeAs[ReplyEvent](c.codec, envelope.Payload)
	if err != nil {
		return err
	}
	c.store.Put(cache.ContentKey(event.ID), cache.Content{
		ID:        event.ID,
		Kind:      cache.KindReply,
		PostID:    event.PostID,
		AuthorID:  event.AuthorID,
		Body:      event.Body,
		CreatedAt: event.CreatedAt,
	})
	c.store.Invalidate(cache.TagReplies(event.PostID))
	return nil
}

func (c *Client) handleReplyUpdate(envelope transport.Envelope) error {
	event, err := decodeAs[ReplyEvent](c.codec, envelope.Payload)
	if err != nil {
		return err
	}
	c.applyEdit(event.ID, event.EmittedAt, func(content cache.Content) cache.Content {
		content.Body = event.Body
		content.EditedAt = pickEditTime(event.EditedAt, event.EmittedAt)
		return content
	})
	return nil
}

func (c *Client) handleReplyDelete(envelope transport.Envelope) error {
	event, err := decodeAs[DeleteEvent](c.codec, envelope.Payload)
	if err != nil {
		return err
	}
	c.store.Delete(cache.ContentKey(event.ID))
	c.store.Invalidate(cache.TagReplies(event.PostID))
	return nil
}

// applyEdit patches a content item with last-write-wins ordering on
// the edit stream. A stale edit delivered after a fresher one is
// dropped; an edit for uncached content is a no-op.
func (c *Client) applyEdit(contentID string, emittedAt time.Time, edit func(cache.Content) cache.Content) {
	if !c.guard.AcceptNewer("edit/"+contentID, emittedAt) {
		c.logger.Debug("rejecting stale edit", "content_id", contentID)
		return
	}
	c.store.Patch(cache.ContentKey(contentID), func(value any) any {
		content, ok := value.(cache.Content)
		if !ok {
			return value
		}
		return edit(content)
	})
}

// pickEditTime prefers the explicit edit timestamp, falling back to
// the emission timestamp when the server omits it.
func pickEditTime(editedAt, emittedAt time.Time) time.Time {
	if !editedAt.IsZero() {
		return editedAt
	}
	return emittedAt
}

func (c *Client) handleVote(envelope transport.Envelope) error {
	update, err := decodeAs[VoteUpdate](c.codec, envelope.Payload)
	if err != nil {
		return err
	}
	c.votes.Apply(update)
	return nil
}

func (c *Client) handleScoreDelta(envelope transport.Envelope) error {
	event, err := decodeAs[ScoreEvent](c.codec, envelope.Payload)
	if err != nil {
		return err
	}

	// Point deltas are not idempotent, so dedup is mandatory. Events
	// without a server-assigned id fall back to a content fingerprint.
	id := event.ID
	if id == "" {
		id, err = Fingerprint(event)
		if err != nil {
			return err
		}
	}
	if !c.guard.AcceptID("score/" + id) {
		c.logger.Debug("dropping duplicate score delta", "id", id)
		return nil
	}

	c.batcher.Enqueue(cache.UserPointsKey(event.UserID), event.Delta)
	return nil
}

func (c *Client) handleNotification(envelope transport.Envelope) error {
	event, err := decodeAs[NotificationEvent](c.codec, envelope.Payload)
	if err != nil {
		return err
	}
	c.appendNotification(event)
	return nil
}

// appendNotification adds one entry to the viewer's feed. The feed
// itself deduplicates by id, so redeliveries and notifications that
// arrive both standalone and attached to a moderation event collapse.
func (c *Client) appendNotification(event NotificationEvent) {
	appended := false
	c.store.Patch(cache.NotificationsKey, func(value any) any {
		feed, ok := value.(*cache.Feed)
		if !ok {
			return value
		}
		appended = feed.Append(cache.Notification{
			ID:        event.ID,
			UserID:    event.UserID,
			Kind:      event.Kind,
			Title:     event.Title,
			Message:   event.Message,
			Payload:   event.Payload,
			EmittedAt: event.EmittedAt,
		})
		return feed
	})
	if appended {
		c.store.Invalidate(cache.TagNotifications)
	}
}

func (c *Client) handleModeration(envelope transport.Envelope) error {
	event, err := decodeAs[ModerationEvent](c.codec, envelope.Payload)
	if err != nil {
		return err
	}

	var status cache.ModerationStatus
	switch envelope.Event {
	case EventModerationReported:
		status = cache.ModerationReported
	case EventModerationApproved:
		status = cache.ModerationApproved
	case EventModerationRejected:
		status = cache.ModerationRejected
	}

	c.store.Patch(cache.ContentKey(event.ContentID), func(value any) any {
		content, ok := value.(cache.Content)
		if !ok {
			return value
		}
		content.Moderation = status
		return content
	})

	// Rejected content disappears from list views; the backing lists
	// must refetch.
	if status == cache.ModerationRejected {
		if event.ContentKind == string(cache.KindReply) && event.PostID != "" {
			c.store.Invalidate(cache.TagReplies(event.PostID))
		} else {
			c.store.Invalidate(cache.TagPosts)
		}
	}

	if event.Notification != nil {
		c.appendNotification(*event.Notification)
	}
	return nil
}

func (c *Client) handlePresence(envelope transport.Envelope) error {
	event, err := decodeAs[PresenceEvent](c.codec, envelope.Payload)
	if err != nil {
		return err
	}
	c.presence.SetOnline(event.UserID, envelope.Event == EventUserOnline)
	return nil
}

func (c *Client) handleTyping(envelope transport.Envelope) error {
	signal, err := decodeAs[TypingSignal](c.codec, envelope.Payload)
	if err != nil {
		return err
	}
	c.presence.SetTyping(signal)
	return nil
}

func (c *Client) handleVoteAck(envelope transport.Envelope) error {
	txnID := envelope.TxnID
	if len(envelope.Payload) > 0 {
		ack, err := decodeAs[VoteAck](c.codec, envelope.Payload)
		if err == nil {
			txnID = ack.TxnID
		} else if txnID == "" {
			return err
		}
	}
	if txnID == "" {
		return nil
	}
	c.acknowledgeVote(txnID)
	return nil
}
