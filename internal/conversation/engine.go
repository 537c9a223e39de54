// Package conversation is the finite-state engine routing user events
// through multi-step flows and applying their terminal mutations to the
// domain store.
package conversation

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Lucky96-Uk/pm-telegram-assistant/internal/models"
	"github.com/Lucky96-Uk/pm-telegram-assistant/internal/scheduler"
	"github.com/Lucky96-Uk/pm-telegram-assistant/internal/storage"
	"github.com/Lucky96-Uk/pm-telegram-assistant/internal/timeparse"
)

// Exporter writes the store out in one of the offered formats and returns
// the file path.
type Exporter interface {
	Export(format string, snap models.Snapshot, now time.Time) (string, error)
}

// Engine owns no state of its own: sessions come in with the event and go
// back out transformed. All shared state lives in the store and scheduler.
type Engine struct {
	store    *storage.Store
	sched    *scheduler.Scheduler
	resolver *timeparse.Resolver
	exporter Exporter
	now      func() time.Time
}

func NewEngine(store *storage.Store, sched *scheduler.Scheduler, resolver *timeparse.Resolver, exporter Exporter, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{
		store:    store,
		sched:    sched,
		resolver: resolver,
		exporter: exporter,
		now:      now,
	}
}

// HandleEvent runs one state-machine transition and returns the new session
// plus the prompt to send. It never fails: invalid input re-prompts in
// place, Back always returns to the main menu.
func (e *Engine) HandleEvent(s Session, ev Event) (Session, Prompt) {
	if ev.Callback != "" {
		return e.handleCallback(s, ev)
	}

	text := ev.Text
	if text == "/start" || text == "/cancel" {
		s.state = nil
		return s, Prompt{
			Text:     "🔴 Welcome! I'm your personal assistant.\nChoose an action from the menu:",
			Keyboard: mainMenuKeyboard(),
		}
	}
	if isBack(text) {
		s.state = nil
		return s, Prompt{Text: "Returning to main menu", Keyboard: mainMenuKeyboard()}
	}

	if s.state != nil {
		return e.advance(s, text)
	}
	return e.startFlow(s, text)
}

// startFlow routes a main-menu action from the idle state.
func (e *Engine) startFlow(s Session, text string) (Session, Prompt) {
	switch text {
	case labelAddTask:
		s.state = stateAddTaskText{}
		return s, Prompt{Text: "📌 Enter task name:", Keyboard: backKeyboard()}

	case labelAddNote:
		tasks := e.store.Tasks()
		if len(tasks) == 0 {
			return s, menuPrompt("❌ Please add at least one task first to attach notes to.")
		}
		s.state = stateNoteTaskSelect{}
		return s, Prompt{
			Text:     "📌 Select task for this note:",
			Keyboard: taskSelectKeyboard(tasks, func(t models.Task) bool { return !t.Completed }),
		}

	case labelComplete:
		tasks := e.store.Tasks()
		if len(tasks) == 0 {
			return s, menuPrompt("❌ No tasks to complete.")
		}
		if countWhere(tasks, func(t models.Task) bool { return !t.Completed }) == 0 {
			return s, menuPrompt("❌ All tasks are already completed.")
		}
		s.state = stateCompleteSelect{}
		return s, Prompt{
			Text:     "Select task to mark as completed:",
			Keyboard: taskSelectKeyboard(tasks, func(t models.Task) bool { return !t.Completed }),
		}

	case labelReactivate:
		tasks := e.store.Tasks()
		if len(tasks) == 0 {
			return s, menuPrompt("❌ No tasks to reactivate.")
		}
		if countWhere(tasks, func(t models.Task) bool { return t.Completed }) == 0 {
			return s, menuPrompt("❌ No completed tasks found.")
		}
		s.state = stateReactivateSelect{}
		return s, Prompt{
			Text:     "Select task to reactivate:",
			Keyboard: taskSelectKeyboard(tasks, func(t models.Task) bool { return t.Completed }),
		}

	case labelDeleteTask:
		tasks := e.store.Tasks()
		if len(tasks) == 0 {
			return s, menuPrompt("❌ No tasks to delete.")
		}
		var b strings.Builder
		for i, t := range tasks {
			fmt.Fprintf(&b, "%d. %s — %s\n", i+1, t.Text, t.Deadline)
		}
		s.state = stateDeleteTaskSelect{}
		return s, Prompt{
			Text:     fmt.Sprintf("Select task number to delete:\n%s\nEnter task number or click '%s'", b.String(), labelBack),
			Keyboard: backKeyboard(),
		}

	case labelDeleteNote:
		notes := e.store.Notes()
		if len(notes) == 0 {
			return s, menuPrompt("❌ No notes to delete.")
		}
		var b strings.Builder
		for i, n := range notes {
			fmt.Fprintf(&b, "%d. %s\n", i+1, n.Text)
		}
		s.state = stateDeleteNoteSelect{}
		return s, Prompt{
			Text:     fmt.Sprintf("Select note number to delete:\n%s\nEnter note number or click '%s'", b.String(), labelBack),
			Keyboard: backKeyboard(),
		}

	case labelSearch:
		s.state = stateSearch{}
		return s, Prompt{
			Text:     "🔍 Enter search query (you can search tasks, notes or categories):",
			Keyboard: backKeyboard(),
		}

	case labelReminders:
		tasks := e.store.Tasks()
		if len(tasks) == 0 {
			return s, menuPrompt("❌ No tasks for reminders.")
		}
		if countWhere(tasks, func(t models.Task) bool { return !t.Completed }) == 0 {
			return s, menuPrompt("❌ All tasks are already completed.")
		}
		s.state = stateReminderTaskSelect{}
		return s, Prompt{
			Text:     "📌 Select task for reminder:",
			Keyboard: taskSelectKeyboard(tasks, func(t models.Task) bool { return !t.Completed }),
		}

	case labelViewTasks:
		return s, e.viewTasks()
	case labelViewNotes:
		return s, e.viewNotes()
	case labelStats:
		return s, e.viewStatistics()
	case labelExport:
		return s, Prompt{Text: "📤 Choose export format:", Keyboard: exportKeyboard()}
	}

	return s, menuPrompt("🤔 I didn't catch that. Choose an action from the menu:")
}

// advance runs the transition for the active state.
func (e *Engine) advance(s Session, text string) (Session, Prompt) {
	switch st := s.state.(type) {
	case stateAddTaskText:
		s.state = stateAddTaskDeadline{Text: text}
		return s, Prompt{
			Text:     "🗓 Enter deadline for this task (e.g., '12.15' or 'in 3 days'):",
			Keyboard: backKeyboard(),
		}

	case stateAddTaskDeadline:
		s.state = stateAddTaskCategory{Text: st.Text, Deadline: text}
		return s, Prompt{Text: "🏷 Select task category:", Keyboard: categoriesKeyboard(e.store.Categories())}

	case stateAddTaskCategory:
		if !e.store.HasCategory(text) {
			return s, Prompt{Text: "❌ Please select a category from the list or click 'Back'"}
		}
		e.store.CreateTask(st.Text, st.Deadline, text, e.now())
		s.state = nil
		return s, menuPrompt("✅ Task saved.")

	case stateCompleteSelect:
		task, ok := e.selectTask(text, func(t models.Task) bool { return !t.Completed })
		if !ok {
			return s, Prompt{Text: "❌ Please select a task from the list or click 'Back'"}
		}
		e.store.SetTaskCompleted(task.ID, true, e.now())
		s.state = nil
		return s, menuPrompt(fmt.Sprintf("✅ Task '%s' marked as completed.", task.Text))

	case stateReactivateSelect:
		task, ok := e.selectTask(text, func(t models.Task) bool { return t.Completed })
		if !ok {
			return s, Prompt{Text: "❌ Please select a task from the list or click 'Back'"}
		}
		e.store.SetTaskCompleted(task.ID, false, e.now())
		s.state = nil
		return s, menuPrompt(fmt.Sprintf("🔄 Task '%s' reactivated.", task.Text))

	case stateSearch:
		// Stays in its own state: the user either refines the query or
		// leaves with Back.
		if text == labelContinueSearch {
			return s, Prompt{
				Text:     "🔍 Enter search query (you can search tasks, notes or categories):",
				Keyboard: backKeyboard(),
			}
		}
		return s, e.searchResults(text)

	case stateNoteTaskSelect:
		task, ok := e.selectTask(text, nil)
		if !ok {
			return s, Prompt{Text: "❌ Please select a task from the list or click 'Back'"}
		}
		s.state = stateNoteText{TaskID: task.ID}
		return s, Prompt{Text: "📝 Enter note text:", Keyboard: backKeyboard()}

	case stateNoteText:
		s.state = stateNoteCategory{TaskID: st.TaskID, Text: text}
		return s, Prompt{Text: "🏷 Select note category:", Keyboard: categoriesKeyboard(e.store.Categories())}

	case stateNoteCategory:
		if !e.store.HasCategory(text) {
			return s, Prompt{Text: "❌ Please select a category from the list or click 'Back'"}
		}
		if _, ok := e.store.CreateNote(st.TaskID, st.Text, text, e.now()); !ok {
			// Task deleted while the flow was in progress.
			s.state = nil
			return s, menuPrompt("❌ That task no longer exists.")
		}
		s.state = nil
		return s, menuPrompt("✅ Note saved.")

	case stateDeleteTaskSelect:
		n, ok := parseNumber(text)
		if !ok {
			return s, Prompt{Text: "❌ Please enter task number.", Keyboard: backKeyboard()}
		}
		tasks := e.store.Tasks()
		if n > len(tasks) {
			return s, Prompt{Text: "❌ Invalid task number. Please try again.", Keyboard: backKeyboard()}
		}
		deleted, _ := e.store.DeleteTask(tasks[n-1].ID)
		e.sched.CancelTask(deleted.ID)
		s.state = nil
		return s, menuPrompt(fmt.Sprintf("✅ Task deleted: %s — %s", deleted.Text, deleted.Deadline))

	case stateDeleteNoteSelect:
		n, ok := parseNumber(text)
		if !ok {
			return s, Prompt{Text: "❌ Please enter note number.", Keyboard: backKeyboard()}
		}
		notes := e.store.Notes()
		if n > len(notes) {
			return s, Prompt{Text: "❌ Invalid note number. Please try again.", Keyboard: backKeyboard()}
		}
		deleted, _ := e.store.DeleteNote(notes[n-1].ID)
		s.state = nil
		return s, menuPrompt(fmt.Sprintf("✅ Note deleted: %s", deleted.Text))

	case stateReminderTaskSelect:
		task, ok := e.selectTask(text, func(t models.Task) bool { return !t.Completed })
		if !ok {
			return s, Prompt{Text: "❌ Please select a task from the list or click 'Back'", Keyboard: backKeyboard()}
		}
		s.state = stateReminderTime{TaskID: task.ID}
		return s, Prompt{
			Text:     "⏰ Enter reminder time (e.g., '12.15 14:30' or 'in 2 hours'):\nOr type 'cancel'",
			Keyboard: reminderTimeKeyboard(),
		}

	case stateReminderTime:
		if strings.EqualFold(text, "cancel") {
			s.state = nil
			return s, menuPrompt("Reminder canceled")
		}
		task, ok := e.store.TaskByID(st.TaskID)
		if !ok {
			s.state = nil
			return s, menuPrompt("❌ That task no longer exists.")
		}
		at, ok := e.resolver.Resolve(text, e.now())
		if !ok {
			return s, Prompt{
				Text: "❌ Invalid time format. Examples:\n" +
					"- '12.15 14:30' (date and time)\n" +
					"- '14:30' (time today/tomorrow)\n" +
					"- 'in 2 hours'\n" +
					"- 'in 30 minutes'\n\n" +
					"Or type 'cancel'",
				Keyboard: reminderTimeKeyboard(),
			}
		}
		key := scheduler.JobKey{ChatID: s.ChatID, TaskID: task.ID}
		e.sched.Schedule(key, at, reminderText(task))
		s.state = nil
		return s, menuPrompt(fmt.Sprintf("✅ Reminder set for %s", at.Format("01.02 15:04")))
	}

	// Unreachable unless a new state forgets its transition.
	log.Printf("conversation: unhandled state %T", s.state)
	s.state = nil
	return s, menuPrompt("Returning to main menu")
}

func (e *Engine) handleCallback(s Session, ev Event) (Session, Prompt) {
	var format string
	switch ev.Callback {
	case "export_txt":
		format = "txt"
	case "export_csv":
		format = "csv"
	case "export_json":
		format = "json"
	default:
		return s, Prompt{Text: "❌ Unknown action."}
	}
	if e.exporter == nil {
		return s, menuPrompt("❌ Export is not configured.")
	}
	path, err := e.exporter.Export(format, e.store.Snapshot(), e.now())
	if err != nil {
		log.Printf("conversation: export %s failed: %v", format, err)
		return s, menuPrompt(fmt.Sprintf("❌ Error exporting to %s", strings.ToUpper(format)))
	}
	return s, Prompt{
		Text:         fmt.Sprintf("📊 Export tasks to %s", strings.ToUpper(format)),
		Keyboard:     mainMenuKeyboard(),
		DocumentPath: path,
	}
}

// selectTask maps a numbered-button press back to a task: the number is the
// 1-based position in the full list, and the task must satisfy valid.
func (e *Engine) selectTask(text string, valid func(models.Task) bool) (models.Task, bool) {
	n, ok := parseSelection(text)
	if !ok {
		return models.Task{}, false
	}
	tasks := e.store.Tasks()
	if n > len(tasks) {
		return models.Task{}, false
	}
	t := tasks[n-1]
	if valid != nil && !valid(t) {
		return models.Task{}, false
	}
	return t, true
}

func countWhere(tasks []models.Task, pred func(models.Task) bool) int {
	n := 0
	for _, t := range tasks {
		if pred(t) {
			n++
		}
	}
	return n
}

func menuPrompt(text string) Prompt {
	return Prompt{Text: text, Keyboard: mainMenuKeyboard()}
}

func reminderText(t models.Task) string {
	deadline := t.Deadline
	if deadline == "" {
		deadline = "not specified"
	}
	return fmt.Sprintf("⏰ Reminder: %s\nDeadline: %s", t.Text, deadline)
}

// RehydrateReminders reschedules reminders after a restart: every
// incomplete task whose deadline resolves to a future time gets a job keyed
// to chatID. Unresolvable or past deadlines are skipped; missed reminders
// are not caught up.
func (e *Engine) RehydrateReminders(chatID int64, now time.Time) int {
	n := 0
	for _, t := range e.store.Tasks() {
		if t.Completed || t.Deadline == "" {
			continue
		}
		due, ok := e.resolver.Resolve(t.Deadline, now)
		if !ok || !due.After(now) {
			continue
		}
		e.sched.Schedule(scheduler.JobKey{ChatID: chatID, TaskID: t.ID}, due, reminderText(t))
		n++
	}
	return n
}
