package storage

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/Lucky96-Uk/pm-telegram-assistant/internal/models"
)

// rawSnapshot defers task decoding so the legacy []string layout can be
// detected and upgraded.
type rawSnapshot struct {
	Tasks      json.RawMessage `json:"tasks"`
	Notes      []models.Note   `json:"notes"`
	Categories []string        `json:"categories"`
	Statistics map[string]int  `json:"statistics"`
}

func defaultSnapshot() models.Snapshot {
	return models.Snapshot{
		Categories: append([]string(nil), models.DefaultCategories...),
		Statistics: map[string]int{},
	}
}

func readSnapshot(path string) (models.Snapshot, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return defaultSnapshot(), nil
	}
	if err != nil {
		return models.Snapshot{}, err
	}

	var raw rawSnapshot
	if err := json.Unmarshal(data, &raw); err != nil {
		return models.Snapshot{}, fmt.Errorf("decode %s: %w", path, err)
	}

	snap := models.Snapshot{
		Notes:      raw.Notes,
		Categories: raw.Categories,
		Statistics: raw.Statistics,
	}
	snap.Tasks, err = decodeTasks(raw.Tasks)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("decode tasks in %s: %w", path, err)
	}
	return snap, nil
}

// decodeTasks accepts both the structured task list and the legacy list of
// "text — deadline" strings.
func decodeTasks(raw json.RawMessage) ([]models.Task, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var tasks []models.Task
	if err := json.Unmarshal(raw, &tasks); err == nil {
		return tasks, nil
	}
	var legacy []string
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return nil, err
	}
	now := time.Now()
	tasks = make([]models.Task, 0, len(legacy))
	for i, s := range legacy {
		t := models.UpgradeLegacyTask(s, now)
		t.ID = i
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// persistLocked writes the full snapshot: temp file then atomic rename. On
// failure it logs, attempts a secondary last-known-good write next to the
// data file, and returns without error — the mutation stands either way.
func (s *Store) persistLocked() {
	snap := models.Snapshot{
		Tasks:      s.tasks,
		Notes:      s.notes,
		Categories: s.categories,
		Statistics: s.statistics,
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		log.Printf("storage: encode snapshot: %v", err)
		return
	}
	if err := writeAtomic(s.path, data); err != nil {
		log.Printf("storage: save failed: %v", err)
		if berr := os.WriteFile(s.path+".backup", data, 0o644); berr != nil {
			log.Printf("storage: backup write failed: %v", berr)
		} else {
			log.Printf("storage: wrote backup snapshot")
		}
	}
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
