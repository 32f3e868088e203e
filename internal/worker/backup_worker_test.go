package worker

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/morkdaniel/budget-tracker/internal/amqp"
	"github.com/morkdaniel/budget-tracker/internal/core"
	"github.com/morkdaniel/budget-tracker/internal/docstore"
	"github.com/morkdaniel/budget-tracker/internal/mirror"
	"github.com/morkdaniel/budget-tracker/internal/tracker"
)

type fakeMirror struct {
	mu       sync.Mutex
	replaced [][]core.Entry
}

func (m *fakeMirror) ReplaceEntries(_ context.Context, entries []core.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replaced = append(m.replaced, append([]core.Entry(nil), entries...))
	return nil
}

func seedStore(t *testing.T) *docstore.MemoryStore {
	t.Helper()
	store := docstore.NewMemory()
	ctx := context.Background()

	entry := core.Entry{Name: "Lunch", Amount: core.Money{Cents: -12050}, Category: "Food", Date: core.NewDate(2026, 8, 30)}
	data, _ := json.Marshal(entry)
	if _, err := store.Add(ctx, "u1", core.CollectionExpenses, time.Now(), data); err != nil {
		t.Fatalf("seed entry: %v", err)
	}

	reflection := core.Reflection{Week: 35, Content: "ok"}
	data, _ = json.Marshal(reflection)
	if _, err := store.Add(ctx, "u1", core.CollectionReflections, time.Now(), data); err != nil {
		t.Fatalf("seed reflection: %v", err)
	}
	return store
}

func TestHandleChangeMirrorsAndBacksUp(t *testing.T) {
	store := seedStore(t)
	m := &fakeMirror{}
	dir := t.TempDir()
	fb, err := mirror.NewFileBackup(dir)
	if err != nil {
		t.Fatalf("file backup: %v", err)
	}

	w := New(store, m, fb)
	msg := amqp.NewChangeMessage("u1", core.CollectionExpenses, amqp.OpCreate, "doc-1")
	if err := w.HandleChange(context.Background(), msg); err != nil {
		t.Fatalf("handle change: %v", err)
	}

	if len(m.replaced) != 1 || len(m.replaced[0]) != 1 || m.replaced[0][0].Name != "Lunch" {
		t.Fatalf("mirror not refreshed: %+v", m.replaced)
	}

	files, err := os.ReadDir(dir)
	if err != nil || len(files) != 1 {
		t.Fatalf("expected one backup file, got %v (err=%v)", files, err)
	}
	raw, err := os.ReadFile(filepath.Join(dir, files[0].Name()))
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	var doc tracker.ExportDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("decode backup: %v", err)
	}
	if len(doc.Expenses) != 1 || len(doc.Reflections) != 1 || doc.Source != tracker.SourceLabel {
		t.Fatalf("unexpected backup document: %+v", doc)
	}
}

func TestHandleChangeSkipsMirrorForReflections(t *testing.T) {
	store := seedStore(t)
	m := &fakeMirror{}

	w := New(store, m, nil)
	msg := amqp.NewChangeMessage("u1", core.CollectionReflections, amqp.OpSave, "")
	if err := w.HandleChange(context.Background(), msg); err != nil {
		t.Fatalf("handle change: %v", err)
	}
	if len(m.replaced) != 0 {
		t.Fatalf("reflection change must not touch the entry mirror")
	}
}
