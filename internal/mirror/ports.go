// Package mirror defines the outbound ports the backup worker writes to.
package mirror

import (
	"context"

	"github.com/morkdaniel/budget-tracker/internal/core"
)

type (
	// EntryMirror receives the full entry collection after each change.
	EntryMirror interface {
		ReplaceEntries(ctx context.Context, entries []core.Entry) error
	}

	// BackupWriter persists a full backup document.
	BackupWriter interface {
		WriteBackup(ctx context.Context, doc any) error
	}
)
