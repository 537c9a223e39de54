package conversation

import (
	"fmt"
	"strings"
)

func (e *Engine) viewTasks() Prompt {
	tasks := e.store.Tasks()
	if len(tasks) == 0 {
		return menuPrompt("❌ You don't have any tasks yet.")
	}
	var b strings.Builder
	b.WriteString("📋 Your tasks:\n")
	for i, t := range tasks {
		status := "❌"
		if t.Completed {
			status = "✅"
		}
		deadline := ""
		if t.Deadline != "" {
			deadline = " — " + t.Deadline
		}
		completedAt := ""
		if t.CompletedAt != nil {
			completedAt = fmt.Sprintf(" (completed %s)", t.CompletedAt.Format("2006-01-02 15:04"))
		}
		fmt.Fprintf(&b, "%d. %s %s%s (%s)%s\n", i+1, status, t.Text, deadline, t.Category, completedAt)
	}
	return Prompt{Text: strings.TrimRight(b.String(), "\n"), Keyboard: backKeyboard()}
}

func (e *Engine) viewNotes() Prompt {
	notes := e.store.Notes()
	if len(notes) == 0 {
		return menuPrompt("❌ No notes yet.")
	}
	var b strings.Builder
	b.WriteString("🧾 Your notes:\n")
	for i, n := range notes {
		fmt.Fprintf(&b, "%d. %s (for task: '%s', %s)\n", i+1, n.Text, e.taskLabel(n.TaskID), n.Category)
	}
	return Prompt{Text: strings.TrimRight(b.String(), "\n"), Keyboard: backKeyboard()}
}

// taskLabel resolves a note's task reference for display; a dangling
// reference gets a placeholder instead of failing.
func (e *Engine) taskLabel(taskID int) string {
	if t, ok := e.store.TaskByID(taskID); ok {
		return t.Text
	}
	return "Unknown task"
}

func (e *Engine) viewStatistics() Prompt {
	rep := e.store.StatisticsReport(e.now(), e.resolver.Resolve)

	var b strings.Builder
	b.WriteString("📊 Productivity Statistics:\n")
	fmt.Fprintf(&b, "✅ Completed tasks: %d\n", rep.Completed)
	fmt.Fprintf(&b, "🔄 Active tasks: %d\n", rep.Active)
	fmt.Fprintf(&b, "⏰ Overdue: %d\n", rep.Overdue)
	fmt.Fprintf(&b, "📝 Total notes: %d\n", rep.TotalNotes)
	b.WriteString("\n📌 By categories:\n")
	for _, c := range rep.Categories {
		fmt.Fprintf(&b, "  %s: tasks - %d, notes - %d\n", c.Name, c.Tasks, c.Notes)
	}
	if len(rep.Months) > 0 {
		b.WriteString("\n📈 Monthly productivity:\n")
		for _, m := range rep.Months {
			fmt.Fprintf(&b, "  %s: %d tasks\n", m.Key, m.Count)
		}
	}
	return Prompt{Text: strings.TrimRight(b.String(), "\n"), Keyboard: mainMenuKeyboard()}
}

func (e *Engine) searchResults(query string) Prompt {
	res := e.store.Search(query)
	if res.Empty() {
		return Prompt{Text: "🔍 Nothing found for your query.", Keyboard: searchKeyboard()}
	}

	var sections []string
	if len(res.Tasks) > 0 {
		var b strings.Builder
		b.WriteString("📋 Found tasks:\n")
		for i, t := range res.Tasks {
			status := "❌"
			if t.Completed {
				status = "✅"
			}
			deadline := ""
			if t.Deadline != "" {
				deadline = " — " + t.Deadline
			}
			fmt.Fprintf(&b, "%d. %s %s%s (%s)\n", i+1, status, t.Text, deadline, t.Category)
		}
		sections = append(sections, strings.TrimRight(b.String(), "\n"))
	}
	if len(res.Notes) > 0 {
		var b strings.Builder
		b.WriteString("🧾 Found notes:\n")
		for i, n := range res.Notes {
			fmt.Fprintf(&b, "%d. %s (for task: '%s', %s)\n", i+1, n.Text, e.taskLabel(n.TaskID), n.Category)
		}
		sections = append(sections, strings.TrimRight(b.String(), "\n"))
	}
	if len(res.Categories) > 0 {
		sections = append(sections, "🏷 Found categories:\n"+strings.Join(res.Categories, ", "))
	}
	return Prompt{Text: strings.Join(sections, "\n\n"), Keyboard: searchKeyboard()}
}
