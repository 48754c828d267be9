// Copyright 2026 The Agora Authors
// SPDX-License-Identifier: Apache-2.0

package cache

import "testing"

func TestPutGet(t *testing.T) {
	store := NewMemoryStore()

	store.Put(ContentKey("p1"), Content{ID: "p1", Kind: KindPost, Title: "hello"})

	value, ok := store.Get(ContentKey("p1"))
	if !ok {
		t.Fatal("Get returned false for a stored key")
	}
	content, ok := value.(Content)
	if !ok {
		t.Fatalf("stored value has type %T", value)
	}
	if content.Title != "hello" {
		t.Errorf("Title = %q, want hello", content.Title)
	}

	if _, ok := store.Get(ContentKey("absent")); ok {
		t.Error("Get returned true for an absent key")
	}
}

func TestPatchAppliesUpdate(t *testing.T) {
	store := NewMemoryStore()
	store.Put(UserPointsKey(7), int64(10))

	patched := store.Patch(UserPointsKey(7), func(value any) any {
		points, _ := value.(int64)
		return points + 5
	})
	if !patched {
		t.Fatal("Patch returned false for a present key")
	}

	value, _ := store.Get(UserPointsKey(7))
	if points, _ := value.(int64); points != 15 {
		t.Errorf("points = %d, want 15", points)
	}
}

func TestPatchAbsentKeyIsNoOp(t *testing.T) {
	store := NewMemoryStore()

	called := false
	patched := store.Patch(ContentKey("absent"), func(value any) any {
		called = true
		return value
	})
	if patched {
		t.Error("Patch returned true for an absent key")
	}
	if called {
		t.Error("Patch called update for an absent key")
	}
	if store.Len() != 0 {
		t.Errorf("Len = %d after no-op patch, want 0", store.Len())
	}
}

func TestDelete(t *testing.T) {
	store := NewMemoryStore()
	store.Put(ContentKey("p1"), Content{ID: "p1"})

	store.Delete(ContentKey("p1"))
	if _, ok := store.Get(ContentKey("p1")); ok {
		t.Error("key present after Delete")
	}

	// Deleting an absent key is harmless.
	store.Delete(ContentKey("p1"))
}

func TestChangeHook(t *testing.T) {
	store := NewMemoryStore()

	var changes []string
	store.OnChange = func(key string) { changes = append(changes, key) }

	store.Put("a", 1)
	store.Patch("a", func(value any) any { return 2 })
	store.Delete("a")
	store.Delete("a") // absent, no notification
	store.Patch("b", func(value any) any { return value })

	want := []string{"a", "a", "a"}
	if len(changes) != len(want) {
		t.Fatalf("changes = %v, want %v", changes, want)
	}
}

func TestInvalidateHook(t *testing.T) {
	store := NewMemoryStore()

	var tags []string
	store.OnInvalidate = func(tag string) { tags = append(tags, tag) }

	store.Invalidate(TagPosts)
	store.Invalidate(TagReplies("p1"))

	if len(tags) != 2 || tags[0] != "posts" || tags[1] != "replies/p1" {
		t.Errorf("tags = %v", tags)
	}
}

func TestKeyScheme(t *testing.T) {
	if got := ContentKey("p1"); got != "content/p1" {
		t.Errorf("ContentKey = %q", got)
	}
	if got := UserPointsKey(42); got != "user/42/points" {
		t.Errorf("UserPointsKey = %q", got)
	}
	if got := TypingKey("p1"); got != "typing/p1" {
		t.Errorf("TypingKey = %q", got)
	}
}
