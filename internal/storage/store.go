package storage

import (
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Lucky96-Uk/pm-telegram-assistant/internal/models"
)

// Store is the single owner of tasks, notes, categories and statistics.
// Every mutating method persists the full snapshot before returning; a
// persistence failure is logged (with a best-effort backup write) and the
// in-memory mutation is kept, so callers still report success to the user.
type Store struct {
	mu   sync.RWMutex
	path string

	tasks      []models.Task
	notes      []models.Note
	categories []string
	statistics map[string]int

	nextTaskID int
	nextNoteID int
}

// Load opens the store at path, migrating legacy data if needed. A missing
// or unreadable file falls back to an empty store seeded with
// defaultCategories (nil means the built-in set), matching first-run
// behaviour.
func Load(path string, defaultCategories []string) (*Store, error) {
	snap, err := readSnapshot(path)
	if err != nil {
		log.Printf("storage: load failed (%v), starting with defaults", err)
		snap = defaultSnapshot()
	}
	if len(defaultCategories) == 0 {
		defaultCategories = models.DefaultCategories
	}
	s := &Store{
		path:       path,
		tasks:      snap.Tasks,
		notes:      snap.Notes,
		categories: snap.Categories,
		statistics: snap.Statistics,
	}
	if s.statistics == nil {
		s.statistics = map[string]int{}
	}
	if len(s.categories) == 0 {
		s.categories = append([]string(nil), defaultCategories...)
	}
	s.assignMissingIDs()
	s.nextTaskID = maxTaskID(s.tasks) + 1
	s.nextNoteID = maxNoteID(s.notes) + 1
	return s, nil
}

// assignMissingIDs handles snapshots written before tasks carried stable
// IDs: notes from that era reference tasks by 0-based position, so IDs are
// assigned positionally to keep those references resolving.
func (s *Store) assignMissingIDs() {
	allZero := true
	for _, t := range s.tasks {
		if t.ID != 0 {
			allZero = false
			break
		}
	}
	if !allZero || len(s.tasks) <= 1 {
		return
	}
	for i := range s.tasks {
		s.tasks[i].ID = i
	}
	noteIDs := true
	for _, n := range s.notes {
		if n.ID != 0 {
			noteIDs = false
			break
		}
	}
	if noteIDs && len(s.notes) > 1 {
		for i := range s.notes {
			s.notes[i].ID = i
		}
	}
}

func maxTaskID(tasks []models.Task) int {
	max := -1
	for _, t := range tasks {
		if t.ID > max {
			max = t.ID
		}
	}
	return max
}

func maxNoteID(notes []models.Note) int {
	max := -1
	for _, n := range notes {
		if n.ID > max {
			max = n.ID
		}
	}
	return max
}

// CreateTask appends a new incomplete task and bumps the current month's
// creation counter.
func (s *Store) CreateTask(text, deadline, category string, now time.Time) models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	task := models.Task{
		ID:       s.nextTaskID,
		Text:     text,
		Deadline: deadline,
		Category: category,
		Created:  now,
	}
	s.nextTaskID++
	s.tasks = append(s.tasks, task)
	s.statistics[models.StatsKey(now)]++
	s.persistLocked()
	return task
}

// SetTaskCompleted toggles completion. Completing an already-completed task
// is a no-op for CompletedAt; reactivating clears it.
func (s *Store) SetTaskCompleted(id int, completed bool, now time.Time) (models.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.tasks {
		if s.tasks[i].ID != id {
			continue
		}
		if s.tasks[i].Completed != completed {
			s.tasks[i].Completed = completed
			if completed {
				at := now
				s.tasks[i].CompletedAt = &at
			} else {
				s.tasks[i].CompletedAt = nil
			}
			s.persistLocked()
		}
		return s.tasks[i], true
	}
	return models.Task{}, false
}

// DeleteTask removes the task and every note referencing it. Reminder
// cancellation is the caller's side of the cascade.
func (s *Store) DeleteTask(id int) (models.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.tasks {
		if s.tasks[i].ID != id {
			continue
		}
		deleted := s.tasks[i]
		s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
		kept := s.notes[:0]
		for _, n := range s.notes {
			if n.TaskID != id {
				kept = append(kept, n)
			}
		}
		s.notes = kept
		s.persistLocked()
		return deleted, true
	}
	return models.Task{}, false
}

// CreateNote attaches a note to an existing task. Returns false if the task
// is gone (deleted mid-flow).
func (s *Store) CreateNote(taskID int, text, category string, now time.Time) (models.Note, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.taskExistsLocked(taskID) {
		return models.Note{}, false
	}
	note := models.Note{
		ID:       s.nextNoteID,
		Text:     text,
		TaskID:   taskID,
		Category: category,
		Created:  now,
	}
	s.nextNoteID++
	s.notes = append(s.notes, note)
	s.persistLocked()
	return note, true
}

func (s *Store) DeleteNote(id int) (models.Note, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.notes {
		if s.notes[i].ID != id {
			continue
		}
		deleted := s.notes[i]
		s.notes = append(s.notes[:i], s.notes[i+1:]...)
		s.persistLocked()
		return deleted, true
	}
	return models.Note{}, false
}

func (s *Store) taskExistsLocked(id int) bool {
	for _, t := range s.tasks {
		if t.ID == id {
			return true
		}
	}
	return false
}

// Tasks returns a copy of the task list in creation order.
func (s *Store) Tasks() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Task(nil), s.tasks...)
}

func (s *Store) Notes() []models.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Note(nil), s.notes...)
}

func (s *Store) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.categories...)
}

func (s *Store) TaskByID(id int) (models.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return models.Task{}, false
}

func (s *Store) NoteByID(id int) (models.Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, n := range s.notes {
		if n.ID == id {
			return n, true
		}
	}
	return models.Note{}, false
}

func (s *Store) HasCategory(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.categories {
		if c == name {
			return true
		}
	}
	return false
}

// Snapshot returns a deep-enough copy of the whole store for export.
func (s *Store) Snapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := make(map[string]int, len(s.statistics))
	for k, v := range s.statistics {
		stats[k] = v
	}
	return models.Snapshot{
		Tasks:      append([]models.Task(nil), s.tasks...),
		Notes:      append([]models.Note(nil), s.notes...),
		Categories: append([]string(nil), s.categories...),
		Statistics: stats,
	}
}

// SearchResult groups matches by kind. Categories match even when nothing
// is tagged with them.
type SearchResult struct {
	Tasks      []models.Task
	Notes      []models.Note
	Categories []string
}

func (r SearchResult) Empty() bool {
	return len(r.Tasks) == 0 && len(r.Notes) == 0 && len(r.Categories) == 0
}

// Search does a case-insensitive substring match across task text, category
// and raw deadline, note text and category, and category labels.
func (s *Store) Search(query string) SearchResult {
	q := strings.ToLower(query)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var res SearchResult
	for _, t := range s.tasks {
		if strings.Contains(strings.ToLower(t.Text), q) ||
			strings.Contains(strings.ToLower(t.Category), q) ||
			strings.Contains(strings.ToLower(t.Deadline), q) {
			res.Tasks = append(res.Tasks, t)
		}
	}
	for _, n := range s.notes {
		if strings.Contains(strings.ToLower(n.Text), q) ||
			strings.Contains(strings.ToLower(n.Category), q) {
			res.Notes = append(res.Notes, n)
		}
	}
	for _, c := range s.categories {
		if strings.Contains(strings.ToLower(c), q) {
			res.Categories = append(res.Categories, c)
		}
	}
	return res
}

// CategoryCount holds per-category task and note tallies.
type CategoryCount struct {
	Name  string
	Tasks int
	Notes int
}

// MonthCount is one month of the task-creation counter.
type MonthCount struct {
	Key   string
	Count int
}

// Report is the derived statistics view.
type Report struct {
	Completed  int
	Active     int
	Overdue    int
	TotalNotes int
	Categories []CategoryCount // only categories with at least one item
	Months     []MonthCount    // most recent six, ascending by key
}

// StatisticsReport derives display statistics. resolve maps a raw deadline
// string to an absolute time for the overdue count.
func (s *Store) StatisticsReport(now time.Time, resolve func(string, time.Time) (time.Time, bool)) Report {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rep Report
	for _, t := range s.tasks {
		if t.Completed {
			rep.Completed++
			continue
		}
		rep.Active++
		if t.Deadline != "" {
			if due, ok := resolve(t.Deadline, now); ok && due.Before(now) {
				rep.Overdue++
			}
		}
	}
	rep.TotalNotes = len(s.notes)

	for _, c := range s.categories {
		cc := CategoryCount{Name: c}
		for _, t := range s.tasks {
			if t.Category == c {
				cc.Tasks++
			}
		}
		for _, n := range s.notes {
			if n.Category == c {
				cc.Notes++
			}
		}
		if cc.Tasks > 0 || cc.Notes > 0 {
			rep.Categories = append(rep.Categories, cc)
		}
	}

	keys := make([]string, 0, len(s.statistics))
	for k := range s.statistics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > 6 {
		keys = keys[len(keys)-6:]
	}
	for _, k := range keys {
		rep.Months = append(rep.Months, MonthCount{Key: k, Count: s.statistics[k]})
	}
	return rep
}
