// Copyright 2026 The Agora Authors
// SPDX-License-Identifier: Apache-2.0

package realtime

import (
	"log/slog"

	"github.com/agora-collective/agora/cache"
)

// voteEngine applies VoteUpdate snapshots to cached content. One
// instance per client, shared by the post:vote and reply:vote
// handlers.
type voteEngine struct {
	store    cache.Store
	guard    *Guard
	batcher  *Batcher
	viewerID int64
	logger   *slog.Logger
}

// Apply reconciles one vote snapshot into the cache.
//
// The aggregate counters are overwritten verbatim — never locally
// incremented. The server is the single source of truth for counts;
// diff sets update membership only. Accumulating deltas client-side
// would drift the moment a second tab or client votes.
func (e *voteEngine) Apply(update VoteUpdate) {
	// Last-write-wins per content item: a stale snapshot delivered
	// after a fresher one must not roll the counters back.
	if !e.guard.AcceptNewer("vote/"+update.ContentID, update.EmittedAt) {
		e.logger.Debug("rejecting stale vote snapshot",
			"content_id", update.ContentID,
			"emitted_at", update.EmittedAt,
		)
		return
	}

	var authorID int64
	patched := e.store.Patch(cache.ContentKey(update.ContentID), func(value any) any {
		content, ok := value.(cache.Content)
		if !ok {
			return value
		}
		authorID = content.AuthorID

		content.Upvotes = update.UpvoteTotal
		content.Downvotes = update.DownvoteTotal

		applyMembership(&content, update)

		// The viewer's own vote state drives button highlighting and
		// must reflect their action even when the aggregate snapshot
		// lags. Other users' votes are visible only through the
		// membership sets.
		if update.ActingUserID != 0 && update.ActingUserID == e.viewerID && update.VoteType != "" {
			content.ViewerVote = cache.VoteType(update.VoteType)
		}

		return content
	})
	if !patched {
		// The content is not rendered anywhere; nothing to update.
		// Not an error — the next full refetch covers it.
		e.logger.Debug("vote snapshot for uncached content",
			"content_id", update.ContentID,
		)
		return
	}

	if update.AuthorPointsDelta != 0 && authorID != 0 {
		// Score changes share the coalescing path with every other
		// point source. The delta is gated by fingerprint: unlike the
		// snapshot totals, it is not idempotent, so an equal-timestamp
		// redelivery must not enqueue it twice.
		fingerprint, err := Fingerprint(update)
		if err != nil {
			e.logger.Warn("cannot fingerprint vote update, skipping author delta",
				"content_id", update.ContentID,
				"error", err,
			)
			return
		}
		if !e.guard.AcceptID("votedelta/" + fingerprint) {
			return
		}
		e.batcher.Enqueue(cache.UserPointsKey(authorID), update.AuthorPointsDelta)
	}
}

// applyMembership updates the voter-id membership sets. The two event
// shapes are treated as mutually exclusive: when both a diff and full
// sets are present, the diff wins (cheaper to apply, and the server
// contract treats the full sets on such an event as advisory).
func applyMembership(content *cache.Content, update VoteUpdate) {
	if update.Diff != nil {
		up, down := content.CloneVoterSets()
		if up == nil {
			up = make(map[int64]struct{})
		}
		if down == nil {
			down = make(map[int64]struct{})
		}
		for _, id := range update.Diff.AddedUp {
			up[id] = struct{}{}
		}
		for _, id := range update.Diff.RemovedUp {
			delete(up, id)
		}
		for _, id := range update.Diff.AddedDown {
			down[id] = struct{}{}
		}
		for _, id := range update.Diff.RemovedDown {
			delete(down, id)
		}
		content.UpvoterIDs = up
		content.DownvoterIDs = down
		return
	}

	// Full sets replace wholesale; a nil slice means the server did
	// not supply that set and the cached one stands.
	if update.UpvoterIDs != nil {
		content.UpvoterIDs = toSet(update.UpvoterIDs)
	}
	if update.DownvoterIDs != nil {
		content.DownvoterIDs = toSet(update.DownvoterIDs)
	}
}

func toSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
