package conversation

import (
	"fmt"

	"github.com/Lucky96-Uk/pm-telegram-assistant/internal/models"
)

// Event is one inbound user action: either free text or an inline-button
// callback token. The transport layer fills exactly one of the two.
type Event struct {
	ChatID   int64
	Text     string
	Callback string
}

// KeyboardMode selects between a reply keyboard (buttons typed back as
// text) and an inline keyboard (buttons arriving as callback tokens).
type KeyboardMode int

const (
	ModeReply KeyboardMode = iota
	ModeInline
)

// Button is one labeled action. Data is the callback token for inline
// buttons; reply buttons send their label as text.
type Button struct {
	Label string
	Data  string
}

type Keyboard struct {
	Mode KeyboardMode
	Rows [][]Button
}

// Prompt is the engine's outbound message. DocumentPath, when set, asks the
// transport to attach the file at that path.
type Prompt struct {
	Text         string
	Keyboard     *Keyboard
	DocumentPath string
}

// Menu and control labels. These are the recognized inputs, so they live
// with the state machine rather than the transport.
const (
	labelAddTask    = "📋 My Tasks"
	labelAddNote    = "🧠 Notes"
	labelViewTasks  = "📄 View Tasks"
	labelViewNotes  = "🧾 View Notes"
	labelComplete   = "✅ Complete Task"
	labelReactivate = "🔄 Reactivate Task"
	labelDeleteTask = "🗑️ Delete Task"
	labelDeleteNote = "🗑️ Delete Note"
	labelSearch     = "🔍 Search"
	labelStats      = "📊 Statistics"
	labelReminders  = "⏰ Reminders"
	labelExport     = "📤 Export"

	labelBack           = "◀️ Back"
	labelContinueSearch = "🔍 Continue search"
	labelCancel         = "Cancel"
)

func isBack(text string) bool {
	switch text {
	case labelBack, "↔ Back", "Back":
		return true
	}
	return false
}

func mainMenuKeyboard() *Keyboard {
	return &Keyboard{Mode: ModeReply, Rows: [][]Button{
		{{Label: labelAddTask}, {Label: labelAddNote}},
		{{Label: labelViewTasks}, {Label: labelViewNotes}},
		{{Label: labelComplete}, {Label: labelReactivate}},
		{{Label: labelDeleteTask}, {Label: labelDeleteNote}},
		{{Label: labelSearch}, {Label: labelStats}},
		{{Label: labelReminders}, {Label: labelExport}},
	}}
}

func backKeyboard() *Keyboard {
	return &Keyboard{Mode: ModeReply, Rows: [][]Button{
		{{Label: labelBack}},
	}}
}

func searchKeyboard() *Keyboard {
	return &Keyboard{Mode: ModeReply, Rows: [][]Button{
		{{Label: labelContinueSearch}},
		{{Label: labelBack}},
	}}
}

func reminderTimeKeyboard() *Keyboard {
	return &Keyboard{Mode: ModeReply, Rows: [][]Button{
		{{Label: labelCancel}},
		{{Label: labelBack}},
	}}
}

func categoriesKeyboard(categories []string) *Keyboard {
	kb := &Keyboard{Mode: ModeReply}
	row := []Button{}
	for _, c := range categories {
		row = append(row, Button{Label: c})
		if len(row) == 2 {
			kb.Rows = append(kb.Rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		kb.Rows = append(kb.Rows, row)
	}
	kb.Rows = append(kb.Rows, []Button{{Label: labelBack}})
	return kb
}

// taskSelectKeyboard lists tasks matching keep, one per row, labeled with
// their 1-based position in the full task list so selections parse back to
// the right task even when the list is filtered.
func taskSelectKeyboard(tasks []models.Task, keep func(models.Task) bool) *Keyboard {
	kb := &Keyboard{Mode: ModeReply}
	for i, t := range tasks {
		if keep != nil && !keep(t) {
			continue
		}
		kb.Rows = append(kb.Rows, []Button{{Label: fmt.Sprintf("%d. %s", i+1, t.Text)}})
	}
	kb.Rows = append(kb.Rows, []Button{{Label: labelBack}})
	return kb
}

func exportKeyboard() *Keyboard {
	return &Keyboard{Mode: ModeInline, Rows: [][]Button{
		{
			{Label: "📝 TXT", Data: "export_txt"},
			{Label: "📊 CSV", Data: "export_csv"},
			{Label: "📑 JSON", Data: "export_json"},
		},
	}}
}
