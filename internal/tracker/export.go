package tracker

import (
	"time"

	"github.com/morkdaniel/budget-tracker/internal/core"
)

// ExportDocument is the downloadable backup: the full local mirror plus the
// export instant and a source label. Building it is purely local, no backend
// round trip.
type ExportDocument struct {
	Expenses    []core.Entry      `json:"expenses"`
	Reflections []core.Reflection `json:"reflections"`
	ExportDate  time.Time         `json:"exportDate"`
	Source      string            `json:"source"`
}

// Export snapshots the current local state into a backup document.
func (t *Tracker) Export(now time.Time) ExportDocument {
	entries, reflections := t.Snapshot()
	return ExportDocument{
		Expenses:    entries,
		Reflections: reflections,
		ExportDate:  now,
		Source:      SourceLabel,
	}
}

// ExportFilename stamps the download name with the current date.
func ExportFilename(now time.Time) string {
	return "budget-tracker-backup-" + now.Format("2006-01-02") + ".json"
}
