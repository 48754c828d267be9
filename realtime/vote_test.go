// Copyright 2026 The Agora Authors
// SPDX-License-Identifier: Apache-2.0

package realtime

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/agora-collective/agora/cache"
	"github.com/agora-collective/agora/lib/clock"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newVoteFixture builds a vote engine over a fresh store seeded with
// one post, plus a record of every batcher flush.
func newVoteFixture(t *testing.T, viewerID int64) (*voteEngine, *cache.MemoryStore, *[]flushRecord, *clock.FakeClock) {
	t.Helper()
	store := cache.NewMemoryStore()
	store.Put(cache.ContentKey("p1"), cache.Content{
		ID:        "p1",
		Kind:      cache.KindPost,
		AuthorID:  42,
		Upvotes:   3,
		Downvotes: 1,
	})

	fake := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	var flushes []flushRecord
	batcher := NewBatcher(BatcherConfig{
		Flush: func(target string, total int64) {
			flushes = append(flushes, flushRecord{target: target, total: total})
		},
		Clock:  fake,
		Logger: testLogger(),
	})

	engine := &voteEngine{
		store:    store,
		guard:    NewGuard(),
		batcher:  batcher,
		viewerID: viewerID,
		logger:   testLogger(),
	}
	return engine, store, &flushes, fake
}

func getContent(t *testing.T, store *cache.MemoryStore, contentID string) cache.Content {
	t.Helper()
	value, ok := store.Get(cache.ContentKey(contentID))
	if !ok {
		t.Fatalf("content %s not in store", contentID)
	}
	content, ok := value.(cache.Content)
	if !ok {
		t.Fatalf("content %s has type %T", contentID, value)
	}
	return content
}

func TestApplyOverwritesTotals(t *testing.T) {
	engine, store, _, _ := newVoteFixture(t, 1)

	engine.Apply(VoteUpdate{
		ContentID:     "p1",
		UpvoteTotal:   5,
		DownvoteTotal: 2,
		EmittedAt:     time.Date(2026, 3, 1, 12, 0, 1, 0, time.UTC),
	})

	content := getContent(t, store, "p1")
	// Snapshots replace, never add to, the cached counters.
	if content.Upvotes != 5 || content.Downvotes != 2 {
		t.Errorf("totals = %d/%d, want 5/2", content.Upvotes, content.Downvotes)
	}
}

func TestApplyRejectsStaleSnapshot(t *testing.T) {
	engine, store, _, _ := newVoteFixture(t, 1)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	engine.Apply(VoteUpdate{
		ContentID: "p1", UpvoteTotal: 10, DownvoteTotal: 0, EmittedAt: base.Add(2 * time.Second),
	})
	engine.Apply(VoteUpdate{
		ContentID: "p1", UpvoteTotal: 9, DownvoteTotal: 0, EmittedAt: base.Add(time.Second),
	})

	content := getContent(t, store, "p1")
	if content.Upvotes != 10 {
		t.Errorf("Upvotes = %d, stale snapshot rolled the counter back", content.Upvotes)
	}
}

func TestApplyAcceptsEqualTimestamp(t *testing.T) {
	engine, store, _, _ := newVoteFixture(t, 1)
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	engine.Apply(VoteUpdate{ContentID: "p1", UpvoteTotal: 5, EmittedAt: ts})
	engine.Apply(VoteUpdate{ContentID: "p1", UpvoteTotal: 6, EmittedAt: ts})

	if content := getContent(t, store, "p1"); content.Upvotes != 6 {
		t.Errorf("Upvotes = %d, want 6 (arrival order breaks the tie)", content.Upvotes)
	}
}

func TestApplyDiffMembership(t *testing.T) {
	engine, store, _, _ := newVoteFixture(t, 1)
	store.Patch(cache.ContentKey("p1"), func(value any) any {
		content := value.(cache.Content)
		content.UpvoterIDs = map[int64]struct{}{1: {}, 2: {}}
		return content
	})

	engine.Apply(VoteUpdate{
		ContentID:   "p1",
		UpvoteTotal: 2,
		Diff: &VoteDiff{
			AddedUp:   []int64{3},
			RemovedUp: []int64{1},
			AddedDown: []int64{1},
		},
	})

	content := getContent(t, store, "p1")
	if _, ok := content.UpvoterIDs[1]; ok {
		t.Error("removed upvoter still present")
	}
	if _, ok := content.UpvoterIDs[3]; !ok {
		t.Error("added upvoter missing")
	}
	if len(content.UpvoterIDs) != 2 {
		t.Errorf("UpvoterIDs = %v, want {2,3}", content.UpvoterIDs)
	}
	if _, ok := content.DownvoterIDs[1]; !ok {
		t.Error("added downvoter missing")
	}
}

func TestApplyDiffWinsOverFullSets(t *testing.T) {
	engine, store, _, _ := newVoteFixture(t, 1)
	store.Patch(cache.ContentKey("p1"), func(value any) any {
		content := value.(cache.Content)
		content.UpvoterIDs = map[int64]struct{}{1: {}}
		return content
	})

	engine.Apply(VoteUpdate{
		ContentID:   "p1",
		UpvoteTotal: 2,
		UpvoterIDs:  []int64{8, 9}, // advisory when a diff is present
		Diff:        &VoteDiff{AddedUp: []int64{2}},
	})

	content := getContent(t, store, "p1")
	if _, ok := content.UpvoterIDs[8]; ok {
		t.Error("full set applied despite a diff being present")
	}
	if _, ok := content.UpvoterIDs[2]; !ok {
		t.Error("diff not applied")
	}
}

func TestApplyFullSetsReplace(t *testing.T) {
	engine, store, _, _ := newVoteFixture(t, 1)
	store.Patch(cache.ContentKey("p1"), func(value any) any {
		content := value.(cache.Content)
		content.UpvoterIDs = map[int64]struct{}{1: {}, 2: {}}
		content.DownvoterIDs = map[int64]struct{}{5: {}}
		return content
	})

	engine.Apply(VoteUpdate{
		ContentID:   "p1",
		UpvoteTotal: 1,
		UpvoterIDs:  []int64{3},
		// DownvoterIDs nil: not supplied, cached set stands.
	})

	content := getContent(t, store, "p1")
	if len(content.UpvoterIDs) != 1 {
		t.Errorf("UpvoterIDs = %v, want {3}", content.UpvoterIDs)
	}
	if _, ok := content.UpvoterIDs[3]; !ok {
		t.Error("replacement set missing 3")
	}
	if _, ok := content.DownvoterIDs[5]; !ok {
		t.Error("unsupplied set was clobbered")
	}
}

func TestApplySetsViewerVote(t *testing.T) {
	engine, store, _, _ := newVoteFixture(t, 7)

	// Another user's vote must not touch the viewer's own state.
	engine.Apply(VoteUpdate{
		ContentID: "p1", ActingUserID: 99, VoteType: "up", UpvoteTotal: 4,
		EmittedAt: time.Date(2026, 3, 1, 12, 0, 1, 0, time.UTC),
	})
	if content := getContent(t, store, "p1"); content.ViewerVote != "" {
		t.Errorf("ViewerVote = %q after another user's vote, want empty", content.ViewerVote)
	}

	engine.Apply(VoteUpdate{
		ContentID: "p1", ActingUserID: 7, VoteType: "down", DownvoteTotal: 2,
		EmittedAt: time.Date(2026, 3, 1, 12, 0, 2, 0, time.UTC),
	})
	if content := getContent(t, store, "p1"); content.ViewerVote != cache.VoteDown {
		t.Errorf("ViewerVote = %q, want down", content.ViewerVote)
	}
}

func TestApplyRoutesAuthorPointsThroughBatcher(t *testing.T) {
	engine, _, flushes, fake := newVoteFixture(t, 1)

	engine.Apply(VoteUpdate{
		ContentID:         "p1",
		UpvoteTotal:       4,
		AuthorPointsDelta: 10,
		EmittedAt:         time.Date(2026, 3, 1, 12, 0, 1, 0, time.UTC),
	})

	if len(*flushes) != 0 {
		t.Fatalf("delta applied before the window elapsed: %v", *flushes)
	}
	fake.Advance(DefaultFlushWindow)
	if len(*flushes) != 1 {
		t.Fatalf("flushes = %v, want one", *flushes)
	}
	got := (*flushes)[0]
	if got.target != cache.UserPointsKey(42) || got.total != 10 {
		t.Errorf("flush = %+v, want {%s 10}", got, cache.UserPointsKey(42))
	}
}

func TestApplyDeduplicatesAuthorDelta(t *testing.T) {
	engine, _, flushes, fake := newVoteFixture(t, 1)

	update := VoteUpdate{
		ContentID:         "p1",
		UpvoteTotal:       4,
		AuthorPointsDelta: 10,
		EmittedAt:         time.Date(2026, 3, 1, 12, 0, 1, 0, time.UTC),
	}
	// An at-least-once redelivery carries an equal timestamp, so the
	// snapshot path accepts it; the non-idempotent delta must not be
	// applied twice.
	engine.Apply(update)
	engine.Apply(update)

	fake.Advance(DefaultFlushWindow)
	if len(*flushes) != 1 {
		t.Fatalf("flushes = %v, want one", *flushes)
	}
	if (*flushes)[0].total != 10 {
		t.Errorf("total = %d, want 10", (*flushes)[0].total)
	}
}

func TestApplyUncachedContentIsNoOp(t *testing.T) {
	engine, store, flushes, fake := newVoteFixture(t, 1)

	engine.Apply(VoteUpdate{
		ContentID:         "unknown",
		UpvoteTotal:       4,
		AuthorPointsDelta: 10,
	})

	if _, ok := store.Get(cache.ContentKey("unknown")); ok {
		t.Error("vote snapshot inserted uncached content")
	}
	fake.Advance(DefaultFlushWindow)
	if len(*flushes) != 0 {
		t.Errorf("flushes = %v for uncached content, want none", *flushes)
	}
}
