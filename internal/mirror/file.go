package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileBackup writes backup documents to a local directory, one file per day,
// using the same date-stamped naming as the in-app export download.
type FileBackup struct {
	Dir string
}

var _ BackupWriter = (*FileBackup)(nil)

func NewFileBackup(dir string) (*FileBackup, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create backup directory: %w", err)
	}
	return &FileBackup{Dir: dir}, nil
}

// WriteBackup serializes doc as indented JSON. The day's file is replaced on
// every change, so the newest backup always reflects the latest snapshot.
func (b *FileBackup) WriteBackup(_ context.Context, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}

	name := "budget-tracker-backup-" + time.Now().Format("2006-01-02") + ".json"
	path := filepath.Join(b.Dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write backup file: %w", err)
	}
	return nil
}
