// Package export writes store snapshots out as TXT, CSV or JSON files.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Lucky96-Uk/pm-telegram-assistant/internal/models"
)

// Exporter writes files under dir, named tasks_export_<timestamp>.<ext>.
type Exporter struct {
	dir string
}

func New(dir string) (*Exporter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Exporter{dir: dir}, nil
}

// Export dispatches on format: "txt", "csv" or "json".
func (e *Exporter) Export(format string, snap models.Snapshot, now time.Time) (string, error) {
	switch format {
	case "txt":
		return e.exportTXT(snap, now)
	case "csv":
		return e.exportCSV(snap, now)
	case "json":
		return e.exportJSON(snap, now)
	}
	return "", fmt.Errorf("unknown export format %q", format)
}

func (e *Exporter) filename(now time.Time, ext string) string {
	return filepath.Join(e.dir, fmt.Sprintf("tasks_export_%s.%s", now.Format("20060102_150405"), ext))
}

func (e *Exporter) exportCSV(snap models.Snapshot, now time.Time) (string, error) {
	path := e.filename(now, "csv")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"text", "deadline", "category", "created", "completed", "completed_at"}); err != nil {
		return "", err
	}
	for _, t := range snap.Tasks {
		completedAt := ""
		if t.CompletedAt != nil {
			completedAt = t.CompletedAt.Format(time.RFC3339)
		}
		row := []string{
			t.Text,
			t.Deadline,
			t.Category,
			t.Created.Format(time.RFC3339),
			strconv.FormatBool(t.Completed),
			completedAt,
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	return path, w.Error()
}

func (e *Exporter) exportTXT(snap models.Snapshot, now time.Time) (string, error) {
	path := e.filename(now, "txt")

	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"#", "Task", "Deadline", "Category", "Status"})
	for i, t := range snap.Tasks {
		status := "active"
		if t.Completed {
			status = "done"
		}
		tw.AppendRow(table.Row{i + 1, t.Text, t.Deadline, t.Category, status})
	}
	if err := os.WriteFile(path, []byte(tw.Render()+"\n"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (e *Exporter) exportJSON(snap models.Snapshot, now time.Time) (string, error) {
	path := e.filename(now, "json")
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
