package models

import (
	"strings"
	"time"
)

// Task is a single tracked item. IDs are stable: they are assigned once and
// never reused or shifted when other tasks are deleted.
type Task struct {
	ID          int        `json:"id"`
	Text        string     `json:"text"`
	Deadline    string     `json:"deadline"` // raw user input, resolved lazily
	Category    string     `json:"category"`
	Created     time.Time  `json:"created"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Note is attached to a task by stable task ID. Notes are cascade-deleted
// with their task.
type Note struct {
	ID       int       `json:"id"`
	Text     string    `json:"text"`
	TaskID   int       `json:"task_id"`
	Category string    `json:"category"`
	Created  time.Time `json:"created"`
}

// Snapshot is the persisted state layout: one record with four top-level
// fields, written as a whole on every mutation.
type Snapshot struct {
	Tasks      []Task         `json:"tasks"`
	Notes      []Note         `json:"notes"`
	Categories []string       `json:"categories"`
	Statistics map[string]int `json:"statistics"`
}

// DefaultCategories seeds the category set on first run.
var DefaultCategories = []string{"Work", "Personal", "Study"}

// legacySeparator splits the pre-structured "text — deadline" task strings.
const legacySeparator = " — "

// UpgradeLegacyTask converts a plain-string task from the legacy data format
// into a structured Task. The deadline part is optional.
func UpgradeLegacyTask(raw string, created time.Time) Task {
	text := raw
	deadline := ""
	if i := strings.Index(raw, legacySeparator); i >= 0 {
		text = raw[:i]
		deadline = raw[i+len(legacySeparator):]
	}
	return Task{
		Text:     text,
		Deadline: deadline,
		Created:  created,
	}
}

// StatsKey is the year-month counter key for tasks created in that month.
func StatsKey(t time.Time) string {
	return "tasks_" + t.Format("2006-01")
}
