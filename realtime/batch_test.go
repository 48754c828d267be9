// Copyright 2026 The Agora Authors
// SPDX-License-Identifier: Apache-2.0

package realtime

import (
	"testing"
	"time"

	"github.com/agora-collective/agora/lib/clock"
)

type flushRecord struct {
	target string
	total  int64
}

func newTestBatcher(t *testing.T, fake *clock.FakeClock) (*Batcher, *[]flushRecord) {
	t.Helper()
	var flushes []flushRecord
	batcher := NewBatcher(BatcherConfig{
		Flush: func(target string, total int64) {
			flushes = append(flushes, flushRecord{target: target, total: total})
		},
		Window: 250 * time.Millisecond,
		Clock:  fake,
	})
	return batcher, &flushes
}

func TestBatcherCoalescesSameTarget(t *testing.T) {
	fake := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	batcher, flushes := newTestBatcher(t, fake)

	batcher.Enqueue("user/7/points", 2)
	batcher.Enqueue("user/7/points", 3)
	batcher.Enqueue("user/7/points", -1)

	if len(*flushes) != 0 {
		t.Fatalf("flushed before the window elapsed: %v", *flushes)
	}

	fake.Advance(250 * time.Millisecond)

	if len(*flushes) != 1 {
		t.Fatalf("flushes = %v, want one", *flushes)
	}
	got := (*flushes)[0]
	if got.target != "user/7/points" || got.total != 4 {
		t.Errorf("flush = %+v, want {user/7/points 4}", got)
	}
}

func TestBatcherWindowNotExtendedByLaterDeltas(t *testing.T) {
	fake := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	batcher, flushes := newTestBatcher(t, fake)

	batcher.Enqueue("user/7/points", 1)
	fake.Advance(200 * time.Millisecond)
	// This delta folds in without pushing the deadline out.
	batcher.Enqueue("user/7/points", 1)
	fake.Advance(50 * time.Millisecond)

	if len(*flushes) != 1 {
		t.Fatalf("flushes = %v, want one at the original deadline", *flushes)
	}
	if (*flushes)[0].total != 2 {
		t.Errorf("total = %d, want 2", (*flushes)[0].total)
	}
}

func TestBatcherCrossTargetFlushesImmediately(t *testing.T) {
	fake := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	batcher, flushes := newTestBatcher(t, fake)

	batcher.Enqueue("user/7/points", 5)
	batcher.Enqueue("user/8/points", 2)

	// The first target's total flushed without waiting for its window.
	if len(*flushes) != 1 {
		t.Fatalf("flushes = %v, want the first target flushed", *flushes)
	}
	if got := (*flushes)[0]; got.target != "user/7/points" || got.total != 5 {
		t.Errorf("flush = %+v, want {user/7/points 5}", got)
	}

	// The second target gets its own full window.
	fake.Advance(250 * time.Millisecond)
	if len(*flushes) != 2 {
		t.Fatalf("flushes = %v, want two", *flushes)
	}
	if got := (*flushes)[1]; got.target != "user/8/points" || got.total != 2 {
		t.Errorf("flush = %+v, want {user/8/points 2}", got)
	}
}

func TestBatcherFlushIdempotent(t *testing.T) {
	fake := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	batcher, flushes := newTestBatcher(t, fake)

	batcher.Enqueue("user/7/points", 3)
	batcher.Flush()
	batcher.Flush()

	if len(*flushes) != 1 {
		t.Fatalf("flushes = %v, want exactly one", *flushes)
	}

	// The cancelled timer firing later must not double-apply.
	fake.Advance(time.Second)
	if len(*flushes) != 1 {
		t.Fatalf("flushes = %v after timer deadline, want still one", *flushes)
	}
}

func TestBatcherReset(t *testing.T) {
	fake := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	batcher, flushes := newTestBatcher(t, fake)

	batcher.Enqueue("user/7/points", 3)
	batcher.Reset()

	fake.Advance(time.Second)
	if len(*flushes) != 0 {
		t.Fatalf("flushes = %v after Reset, want none", *flushes)
	}

	// The batcher is reusable after a reset.
	batcher.Enqueue("user/7/points", 1)
	fake.Advance(250 * time.Millisecond)
	if len(*flushes) != 1 || (*flushes)[0].total != 1 {
		t.Fatalf("flushes = %v after reuse, want {user/7/points 1}", *flushes)
	}
}

func TestBatcherRequiresFlush(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewBatcher with nil Flush did not panic")
		}
	}()
	NewBatcher(BatcherConfig{})
}
