// Package worker consumes change events from the bus and maintains external
// mirrors of the document store: a Google Sheets copy of the entry
// collection and local JSON backup files.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/morkdaniel/budget-tracker/internal/amqp"
	"github.com/morkdaniel/budget-tracker/internal/core"
	"github.com/morkdaniel/budget-tracker/internal/docstore"
	"github.com/morkdaniel/budget-tracker/internal/mirror"
	"github.com/morkdaniel/budget-tracker/internal/tracker"
)

// BackupWorker reacts to one change event at a time. Both sinks are
// optional; whichever is configured receives the fresh snapshot.
type BackupWorker struct {
	store   docstore.Store
	entries mirror.EntryMirror
	backups mirror.BackupWriter
}

func New(store docstore.Store, entries mirror.EntryMirror, backups mirror.BackupWriter) *BackupWorker {
	return &BackupWorker{store: store, entries: entries, backups: backups}
}

// HandleChange refetches the changed user's collections from the store and
// pushes them to the configured sinks. The message only names what changed;
// the store remains the source of truth.
func (w *BackupWorker) HandleChange(ctx context.Context, msg *amqp.ChangeMessage) error {
	slog.InfoContext(ctx, "Processing change event",
		"user_id", msg.UserID, "collection", msg.Collection, "op", msg.Op)

	entries, err := w.listEntries(ctx, msg.UserID)
	if err != nil {
		return fmt.Errorf("list entries: %w", err)
	}
	reflections, err := w.listReflections(ctx, msg.UserID)
	if err != nil {
		return fmt.Errorf("list reflections: %w", err)
	}

	if w.entries != nil && msg.Collection == core.CollectionExpenses {
		if err := w.entries.ReplaceEntries(ctx, entries); err != nil {
			return fmt.Errorf("mirror entries: %w", err)
		}
	}

	if w.backups != nil {
		doc := tracker.ExportDocument{
			Expenses:    entries,
			Reflections: reflections,
			ExportDate:  time.Now(),
			Source:      tracker.SourceLabel,
		}
		if err := w.backups.WriteBackup(ctx, doc); err != nil {
			return fmt.Errorf("write backup: %w", err)
		}
	}

	return nil
}

func (w *BackupWorker) listEntries(ctx context.Context, uid string) ([]core.Entry, error) {
	docs, err := w.store.List(ctx, uid, core.CollectionExpenses)
	if err != nil {
		return nil, err
	}
	entries := make([]core.Entry, 0, len(docs))
	for _, doc := range docs {
		var e core.Entry
		if err := json.Unmarshal(doc.Data, &e); err != nil {
			slog.WarnContext(ctx, "Skipping undecodable entry document", "doc_id", doc.ID, "error", err)
			continue
		}
		e.ID = doc.ID
		entries = append(entries, e)
	}
	return entries, nil
}

func (w *BackupWorker) listReflections(ctx context.Context, uid string) ([]core.Reflection, error) {
	docs, err := w.store.List(ctx, uid, core.CollectionReflections)
	if err != nil {
		return nil, err
	}
	reflections := make([]core.Reflection, 0, len(docs))
	for _, doc := range docs {
		var r core.Reflection
		if err := json.Unmarshal(doc.Data, &r); err != nil {
			slog.WarnContext(ctx, "Skipping undecodable reflection document", "doc_id", doc.ID, "error", err)
			continue
		}
		r.ID = doc.ID
		reflections = append(reflections, r)
	}
	return reflections, nil
}
