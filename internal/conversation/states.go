package conversation

import (
	"strconv"
	"strings"
)

// Session is the per-chat conversational context: which flow is in progress
// and the partial input collected so far. A nil state means idle.
type Session struct {
	ChatID int64
	state  state
}

func NewSession(chatID int64) Session {
	return Session{ChatID: chatID}
}

func (s Session) Idle() bool { return s.state == nil }

// state is a tagged variant: one type per state, carrying exactly the
// scratch fields that are valid at that point of its flow. Advancing a flow
// means swapping in the next variant with the accepted value baked in, so a
// scratch field can never be read before it was set.
type state interface {
	conversationState()
}

// AddTask: text -> deadline -> category.
type stateAddTaskText struct{}
type stateAddTaskDeadline struct{ Text string }
type stateAddTaskCategory struct{ Text, Deadline string }

type stateCompleteSelect struct{}
type stateReactivateSelect struct{}

// Search loops: it stays in place after producing results, awaiting either
// a new query or Back.
type stateSearch struct{}

// AddNote: task selection -> text -> category.
type stateNoteTaskSelect struct{}
type stateNoteText struct{ TaskID int }
type stateNoteCategory struct {
	TaskID int
	Text   string
}

type stateDeleteTaskSelect struct{}
type stateDeleteNoteSelect struct{}

// SetReminder: task selection -> time input.
type stateReminderTaskSelect struct{}
type stateReminderTime struct{ TaskID int }

func (stateAddTaskText) conversationState()        {}
func (stateAddTaskDeadline) conversationState()    {}
func (stateAddTaskCategory) conversationState()    {}
func (stateCompleteSelect) conversationState()     {}
func (stateReactivateSelect) conversationState()   {}
func (stateSearch) conversationState()             {}
func (stateNoteTaskSelect) conversationState()     {}
func (stateNoteText) conversationState()           {}
func (stateNoteCategory) conversationState()       {}
func (stateDeleteTaskSelect) conversationState()   {}
func (stateDeleteNoteSelect) conversationState()   {}
func (stateReminderTaskSelect) conversationState() {}
func (stateReminderTime) conversationState()       {}

// parseSelection reads a numbered-button press: the prefix before the first
// ". " must be all digits. Returns the 1-based number.
func parseSelection(text string) (int, bool) {
	i := strings.Index(text, ". ")
	if i <= 0 {
		return 0, false
	}
	return parseNumber(text[:i])
}

// parseNumber reads a bare 1-based number, as typed in the delete flows.
func parseNumber(text string) (int, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}
	for _, r := range text {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(text)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
