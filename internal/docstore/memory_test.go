package docstore

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestMemorySignInAnonymously(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	uid, err := s.SignInAnonymously(ctx)
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if uid == "" {
		t.Fatalf("expected non-empty uid")
	}

	again, err := s.SignInAnonymously(ctx)
	if err != nil {
		t.Fatalf("second sign in: %v", err)
	}
	if again != uid {
		t.Fatalf("uid not stable: %q vs %q", again, uid)
	}
}

func TestMemorySignInDisabled(t *testing.T) {
	s := NewMemory()
	s.SetAnonymousAuth(false)
	if _, err := s.SignInAnonymously(context.Background()); err != ErrAnonymousAuthDisabled {
		t.Fatalf("expected ErrAnonymousAuthDisabled, got %v", err)
	}
}

func TestMemoryCRUDAndOrdering(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	older := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 8, 2, 10, 0, 0, 0, time.UTC)

	id1, err := s.Add(ctx, "u1", "expenses", older, json.RawMessage(`{"name":"a"}`))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	id2, err := s.Add(ctx, "u1", "expenses", newer, json.RawMessage(`{"name":"b"}`))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if id1 == id2 {
		t.Fatalf("ids must be unique")
	}

	docs, err := s.List(ctx, "u1", "expenses")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(docs))
	}
	if docs[0].ID != id2 {
		t.Fatalf("expected newest first, got %s", docs[0].ID)
	}

	// Other namespaces stay empty.
	other, _ := s.List(ctx, "u2", "expenses")
	if len(other) != 0 {
		t.Fatalf("expected isolated namespace, got %d docs", len(other))
	}

	if err := s.Update(ctx, "u1", "expenses", id1, json.RawMessage(`{"name":"a2"}`)); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := s.Update(ctx, "u1", "expenses", "missing", json.RawMessage(`{}`)); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.Delete(ctx, "u1", "expenses", id1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "u1", "expenses", id1); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}

	if err := s.DeleteAll(ctx, "u1", "expenses"); err != nil {
		t.Fatalf("delete all: %v", err)
	}
	docs, _ = s.List(ctx, "u1", "expenses")
	if len(docs) != 0 {
		t.Fatalf("expected empty collection, got %d", len(docs))
	}
}

func TestMemorySubscribePushesFullSnapshots(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	ts := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	pre, _ := s.Add(ctx, "u1", "expenses", ts.Add(-time.Hour), json.RawMessage(`{"name":"pre"}`))

	var snapshots [][]Document
	unsub, err := s.Subscribe("u1", "expenses", func(docs []Document) {
		snapshots = append(snapshots, docs)
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	// The current collection arrives before the first mutation.
	if len(snapshots) != 1 || len(snapshots[0]) != 1 || snapshots[0][0].ID != pre {
		t.Fatalf("expected initial snapshot with the pre-existing doc, got %v", snapshots)
	}

	id, _ := s.Add(ctx, "u1", "expenses", ts, json.RawMessage(`{"name":"a"}`))
	_, _ = s.Add(ctx, "u1", "expenses", ts.Add(time.Hour), json.RawMessage(`{"name":"b"}`))
	_ = s.Delete(ctx, "u1", "expenses", id)

	if len(snapshots) != 4 {
		t.Fatalf("expected 4 pushes, got %d", len(snapshots))
	}
	if len(snapshots[1]) != 2 || len(snapshots[2]) != 3 || len(snapshots[3]) != 2 {
		t.Fatalf("snapshots are not full collections: %d/%d/%d",
			len(snapshots[1]), len(snapshots[2]), len(snapshots[3]))
	}

	// Mutations on other namespaces never reach this subscriber.
	_, _ = s.Add(ctx, "u2", "expenses", ts, json.RawMessage(`{}`))
	_, _ = s.Add(ctx, "u1", "reflections", ts, json.RawMessage(`{}`))
	if len(snapshots) != 4 {
		t.Fatalf("received pushes from foreign namespaces")
	}

	unsub()
	_, _ = s.Add(ctx, "u1", "expenses", ts, json.RawMessage(`{}`))
	if len(snapshots) != 4 {
		t.Fatalf("received push after unsubscribe")
	}
}
