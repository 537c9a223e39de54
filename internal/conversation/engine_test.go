package conversation

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Lucky96-Uk/pm-telegram-assistant/internal/models"
	"github.com/Lucky96-Uk/pm-telegram-assistant/internal/scheduler"
	"github.com/Lucky96-Uk/pm-telegram-assistant/internal/storage"
	"github.com/Lucky96-Uk/pm-telegram-assistant/internal/timeparse"
)

const testChat int64 = 42

func newTestEngine(t *testing.T) (*Engine, *storage.Store, *scheduler.Scheduler) {
	t.Helper()
	store, err := storage.Load(filepath.Join(t.TempDir(), "data.json"), nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	sched := scheduler.New(func(int64, string) {})
	t.Cleanup(sched.Stop)
	// The scheduler arms real timers, so the fixed engine clock must sit in
	// the present for scheduled times to stay pending during the test.
	fixed := time.Now().Truncate(time.Second)
	engine := NewEngine(store, sched, timeparse.New(), nil, func() time.Time { return fixed })
	return engine, store, sched
}

// step feeds one text event and returns the new session and prompt.
func step(e *Engine, s Session, text string) (Session, Prompt) {
	return e.HandleEvent(s, Event{ChatID: testChat, Text: text})
}

func TestAddTaskFlow(t *testing.T) {
	e, store, _ := newTestEngine(t)

	t.Run("complete flow creates exactly one task", func(t *testing.T) {
		s := NewSession(testChat)
		s, p := step(e, s, labelAddTask)
		if !strings.Contains(p.Text, "Enter task name") {
			t.Fatalf("unexpected prompt: %q", p.Text)
		}
		s, _ = step(e, s, "Write report")
		s, p = step(e, s, "12.15")
		if !strings.Contains(p.Text, "category") {
			t.Fatalf("unexpected prompt: %q", p.Text)
		}
		s, p = step(e, s, "Work")
		if !strings.Contains(p.Text, "Task saved") {
			t.Fatalf("unexpected prompt: %q", p.Text)
		}
		if !s.Idle() {
			t.Error("session should return to idle")
		}

		tasks := store.Tasks()
		if len(tasks) != 1 {
			t.Fatalf("expected 1 task, got %d", len(tasks))
		}
		task := tasks[0]
		if task.Text != "Write report" || task.Deadline != "12.15" || task.Category != "Work" {
			t.Errorf("task = %+v", task)
		}
		if task.Completed || task.CompletedAt != nil {
			t.Error("new task must be incomplete")
		}
		if got := store.Snapshot().Statistics[models.StatsKey(e.now())]; got != 1 {
			t.Errorf("month counter = %d, want 1", got)
		}
	})

	t.Run("bad category re-prompts without advancing", func(t *testing.T) {
		s := NewSession(testChat)
		s, _ = step(e, s, labelAddTask)
		s, _ = step(e, s, "Another task")
		s, _ = step(e, s, "tomorrow")
		s, p := step(e, s, "NoSuchCategory")
		if s.Idle() {
			t.Error("session must stay in the category state")
		}
		if !strings.Contains(p.Text, "select a category") {
			t.Errorf("unexpected prompt: %q", p.Text)
		}
		if len(store.Tasks()) != 1 {
			t.Error("no task should be created on rejected input")
		}
	})

	t.Run("back clears the flow with no mutation", func(t *testing.T) {
		s := NewSession(testChat)
		s, _ = step(e, s, labelAddTask)
		s, _ = step(e, s, "Abandoned")
		s, p := step(e, s, labelBack)
		if !s.Idle() {
			t.Error("Back must return to idle")
		}
		if !strings.Contains(p.Text, "main menu") {
			t.Errorf("unexpected prompt: %q", p.Text)
		}
		if len(store.Tasks()) != 1 {
			t.Error("Back must not create a task")
		}
	})
}

func TestCompleteTaskFlow(t *testing.T) {
	e, store, _ := newTestEngine(t)
	now := e.now()
	task := store.CreateTask("Ship it", "", "Work", now)

	t.Run("numbered selection completes the task", func(t *testing.T) {
		s := NewSession(testChat)
		s, _ = step(e, s, labelComplete)
		s, p := step(e, s, "1. Ship it")
		if !strings.Contains(p.Text, "marked as completed") {
			t.Fatalf("unexpected prompt: %q", p.Text)
		}
		got, _ := store.TaskByID(task.ID)
		if !got.Completed || got.CompletedAt == nil {
			t.Errorf("task not completed: %+v", got)
		}
	})

	t.Run("malformed selection is rejected in place", func(t *testing.T) {
		store.SetTaskCompleted(task.ID, false, now)
		s := NewSession(testChat)
		s, _ = step(e, s, labelComplete)
		for _, input := range []string{"x. Ship it", "99. Ship it", "Ship it", "1."} {
			var p Prompt
			s, p = step(e, s, input)
			if s.Idle() {
				t.Fatalf("input %q must not leave the state", input)
			}
			if !strings.Contains(p.Text, "select a task") {
				t.Errorf("input %q: unexpected prompt %q", input, p.Text)
			}
		}
	})

	t.Run("nothing to complete short-circuits", func(t *testing.T) {
		store.SetTaskCompleted(task.ID, true, now)
		s := NewSession(testChat)
		s, p := step(e, s, labelComplete)
		if !s.Idle() {
			t.Error("flow must not start")
		}
		if !strings.Contains(p.Text, "already completed") {
			t.Errorf("unexpected prompt: %q", p.Text)
		}
	})
}

func TestSearchLoop(t *testing.T) {
	e, store, _ := newTestEngine(t)
	now := e.now()
	store.CreateTask("Write report", "12.15", "Work", now)

	s := NewSession(testChat)
	s, _ = step(e, s, labelSearch)

	s, p := step(e, s, "report")
	if !strings.Contains(p.Text, "Found tasks") {
		t.Fatalf("unexpected results: %q", p.Text)
	}
	if s.Idle() {
		t.Error("search must stay in its state after results")
	}

	s, p = step(e, s, "nothing-matches-this")
	if !strings.Contains(p.Text, "Nothing found") {
		t.Errorf("unexpected prompt: %q", p.Text)
	}
	if s.Idle() {
		t.Error("search must keep looping")
	}

	s, _ = step(e, s, labelBack)
	if !s.Idle() {
		t.Error("Back must leave the search loop")
	}
}

func TestAddNoteFlow(t *testing.T) {
	e, store, _ := newTestEngine(t)
	now := e.now()
	task := store.CreateTask("Host dinner", "", "Personal", now)

	s := NewSession(testChat)
	s, _ = step(e, s, labelAddNote)
	s, _ = step(e, s, "1. Host dinner")
	s, _ = step(e, s, "buy wine")
	s, p := step(e, s, "Personal")
	if !strings.Contains(p.Text, "Note saved") {
		t.Fatalf("unexpected prompt: %q", p.Text)
	}

	notes := store.Notes()
	if len(notes) != 1 {
		t.Fatalf("expected 1 note, got %d", len(notes))
	}
	if notes[0].TaskID != task.ID || notes[0].Text != "buy wine" {
		t.Errorf("note = %+v", notes[0])
	}
}

func TestAddNoteFlow_TaskDeletedMidFlow(t *testing.T) {
	e, store, _ := newTestEngine(t)
	now := e.now()
	task := store.CreateTask("Doomed", "", "Work", now)

	s := NewSession(testChat)
	s, _ = step(e, s, labelAddNote)
	s, _ = step(e, s, "1. Doomed")
	s, _ = step(e, s, "note for a ghost")

	store.DeleteTask(task.ID)

	s, p := step(e, s, "Work")
	if !s.Idle() {
		t.Error("flow must end")
	}
	if !strings.Contains(p.Text, "no longer exists") {
		t.Errorf("unexpected prompt: %q", p.Text)
	}
	if len(store.Notes()) != 0 {
		t.Error("no note may reference a deleted task")
	}
}

func TestDeleteTaskFlow_Cascade(t *testing.T) {
	e, store, sched := newTestEngine(t)
	now := e.now()
	a := store.CreateTask("A", "12.15", "Work", now)
	b := store.CreateTask("B", "", "Work", now)
	store.CreateNote(a.ID, "note on A", "Work", now)
	store.CreateNote(b.ID, "note on B", "Work", now)
	sched.Schedule(scheduler.JobKey{ChatID: testChat, TaskID: a.ID}, now.Add(time.Hour), "x")

	s := NewSession(testChat)
	s, _ = step(e, s, labelDeleteTask)
	s, p := step(e, s, "1")
	if !strings.Contains(p.Text, "Task deleted: A") {
		t.Fatalf("unexpected prompt: %q", p.Text)
	}

	if len(store.Tasks()) != 1 {
		t.Error("task A should be gone")
	}
	for _, n := range store.Notes() {
		if n.TaskID == a.ID {
			t.Error("cascade left an orphan note")
		}
	}
	if got := sched.Pending(); got != 0 {
		t.Errorf("reminder for deleted task still pending: %d", got)
	}
}

func TestDeleteTaskFlow_BadInput(t *testing.T) {
	e, store, _ := newTestEngine(t)
	store.CreateTask("Only", "", "Work", e.now())

	s := NewSession(testChat)
	s, _ = step(e, s, labelDeleteTask)

	s, p := step(e, s, "notanumber")
	if s.Idle() || !strings.Contains(p.Text, "enter task number") {
		t.Errorf("unexpected: idle=%v prompt=%q", s.Idle(), p.Text)
	}
	s, p = step(e, s, "5")
	if s.Idle() || !strings.Contains(p.Text, "Invalid task number") {
		t.Errorf("unexpected: idle=%v prompt=%q", s.Idle(), p.Text)
	}
	if len(store.Tasks()) != 1 {
		t.Error("rejected input must not delete anything")
	}
}

func TestReminderFlow(t *testing.T) {
	e, store, sched := newTestEngine(t)
	now := e.now()
	task := store.CreateTask("Standup", "09:30", "Work", now)
	key := scheduler.JobKey{ChatID: testChat, TaskID: task.ID}

	t.Run("schedules at the resolved time", func(t *testing.T) {
		s := NewSession(testChat)
		s, _ = step(e, s, labelReminders)
		s, _ = step(e, s, "1. Standup")
		s, p := step(e, s, "in 2 hours")
		if !strings.Contains(p.Text, "Reminder set for") {
			t.Fatalf("unexpected prompt: %q", p.Text)
		}
		at, ok := sched.FireAt(key)
		if !ok {
			t.Fatal("no job scheduled")
		}
		if want := now.Add(2 * time.Hour); !at.Equal(want) {
			t.Errorf("fires at %v, want %v", at, want)
		}
	})

	t.Run("setting again replaces the job", func(t *testing.T) {
		s := NewSession(testChat)
		s, _ = step(e, s, labelReminders)
		s, _ = step(e, s, "1. Standup")
		step(e, s, "in 3 hours")

		if got := sched.Pending(); got != 1 {
			t.Fatalf("expected exactly 1 job, got %d", got)
		}
		at, _ := sched.FireAt(key)
		if want := now.Add(3 * time.Hour); !at.Equal(want) {
			t.Errorf("fires at %v, want %v", at, want)
		}
	})

	t.Run("unparseable time shows usage and stays", func(t *testing.T) {
		s := NewSession(testChat)
		s, _ = step(e, s, labelReminders)
		s, _ = step(e, s, "1. Standup")
		s, p := step(e, s, "gibberish")
		if s.Idle() {
			t.Error("flow must stay in the time state")
		}
		if !strings.Contains(p.Text, "Invalid time format") {
			t.Errorf("unexpected prompt: %q", p.Text)
		}
	})

	t.Run("cancel aborts without scheduling", func(t *testing.T) {
		s := NewSession(testChat)
		s, _ = step(e, s, labelReminders)
		s, _ = step(e, s, "1. Standup")
		s, p := step(e, s, "cancel")
		if !s.Idle() || !strings.Contains(p.Text, "Reminder canceled") {
			t.Errorf("unexpected: idle=%v prompt=%q", s.Idle(), p.Text)
		}
	})
}

func TestRehydrateReminders(t *testing.T) {
	e, store, sched := newTestEngine(t)
	now := e.now()

	future := store.CreateTask("Future", "in 5 hours", "Work", now)
	store.CreateTask("Past", "in 2 hours", "Work", now.Add(-24*time.Hour))
	done := store.CreateTask("Done", "in 5 hours", "Work", now)
	store.SetTaskCompleted(done.ID, true, now)
	store.CreateTask("No deadline", "", "Work", now)
	store.CreateTask("Unparseable", "whenever", "Work", now)

	n := e.RehydrateReminders(testChat, now)

	// "Past" still resolves relative to now, so it is rescheduled too;
	// only completed, empty and unparseable deadlines are skipped.
	if n != 2 {
		t.Errorf("rehydrated %d jobs, want 2", n)
	}
	if _, ok := sched.FireAt(scheduler.JobKey{ChatID: testChat, TaskID: future.ID}); !ok {
		t.Error("future task reminder missing")
	}

	t.Run("manual reminder replaces rehydrated job", func(t *testing.T) {
		s := NewSession(testChat)
		s, _ = step(e, s, labelReminders)
		s, _ = step(e, s, "1. Future")
		step(e, s, "in 1 hours")

		at, ok := sched.FireAt(scheduler.JobKey{ChatID: testChat, TaskID: future.ID})
		if !ok {
			t.Fatal("job vanished")
		}
		if want := now.Add(time.Hour); !at.Equal(want) {
			t.Errorf("fires at %v, want %v", at, want)
		}
		if got := sched.Pending(); got != 2 {
			t.Errorf("pending = %d, want 2 (replacement, not addition)", got)
		}
	})
}

func TestViewsAndStatistics(t *testing.T) {
	e, store, _ := newTestEngine(t)
	now := e.now()
	task := store.CreateTask("Write report", "12.15", "Work", now)
	store.CreateNote(task.ID, "outline", "Work", now)

	s := NewSession(testChat)

	_, p := step(e, s, labelViewTasks)
	if !strings.Contains(p.Text, "1. ❌ Write report — 12.15 (Work)") {
		t.Errorf("task view:\n%s", p.Text)
	}

	_, p = step(e, s, labelViewNotes)
	if !strings.Contains(p.Text, "outline (for task: 'Write report', Work)") {
		t.Errorf("note view:\n%s", p.Text)
	}

	_, p = step(e, s, labelStats)
	monthLine := models.StatsKey(now) + ": 1 tasks"
	for _, want := range []string{"Active tasks: 1", "Total notes: 1", "Work: tasks - 1, notes - 1", monthLine} {
		if !strings.Contains(p.Text, want) {
			t.Errorf("statistics missing %q:\n%s", want, p.Text)
		}
	}
}

func TestStartAndUnknownInput(t *testing.T) {
	e, _, _ := newTestEngine(t)

	s := NewSession(testChat)
	s, p := step(e, s, "/start")
	if !s.Idle() || p.Keyboard == nil {
		t.Error("start must land on the main menu")
	}

	_, p = step(e, s, "random chatter")
	if p.Keyboard == nil {
		t.Error("unknown input must re-offer the menu")
	}
}
