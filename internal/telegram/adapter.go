// Package telegram adapts the conversation engine to the Telegram Bot API:
// it maps updates to events, renders prompts to keyboards, and delivers
// fired reminders.
package telegram

import (
	"log"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Lucky96-Uk/pm-telegram-assistant/internal/conversation"
)

// historyLimit caps how many of the bot's own messages stay in a chat;
// older ones are deleted to keep the conversation tidy.
const historyLimit = 3

type Adapter struct {
	bot    *tgbotapi.BotAPI
	engine *conversation.Engine

	mu       sync.Mutex
	sessions map[int64]conversation.Session
	history  map[int64][]int
}

func New(bot *tgbotapi.BotAPI, engine *conversation.Engine) *Adapter {
	return &Adapter{
		bot:      bot,
		engine:   engine,
		sessions: make(map[int64]conversation.Session),
		history:  make(map[int64][]int),
	}
}

// HandleUpdate processes one inbound update. The caller runs updates
// sequentially, which keeps per-session transitions serialized.
func (a *Adapter) HandleUpdate(update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		cq := update.CallbackQuery
		if _, err := a.bot.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
			log.Printf("telegram: callback ack failed: %v", err)
		}
		if cq.Message == nil {
			return
		}
		a.dispatch(conversation.Event{
			ChatID:   cq.Message.Chat.ID,
			Callback: cq.Data,
		})

	case update.Message != nil:
		msg := update.Message
		if msg.Text == "" {
			a.sendText(msg.Chat.ID, "❌ Please send only text messages.")
			return
		}
		a.dispatch(conversation.Event{ChatID: msg.Chat.ID, Text: msg.Text})
	}
}

func (a *Adapter) dispatch(ev conversation.Event) {
	a.mu.Lock()
	sess, ok := a.sessions[ev.ChatID]
	if !ok {
		sess = conversation.NewSession(ev.ChatID)
	}
	a.mu.Unlock()

	sess, prompt := a.engine.HandleEvent(sess, ev)

	a.mu.Lock()
	if sess.Idle() {
		delete(a.sessions, ev.ChatID)
	} else {
		a.sessions[ev.ChatID] = sess
	}
	a.mu.Unlock()

	a.sendPrompt(ev.ChatID, prompt)
}

// DeliverReminder is the scheduler's notify callback. Chat 0 means the
// reminder was rehydrated without a configured owner chat; there is nowhere
// to send it.
func (a *Adapter) DeliverReminder(chatID int64, text string) {
	if chatID == 0 {
		log.Printf("telegram: dropping reminder with no destination chat: %s", text)
		return
	}
	a.sendText(chatID, text)
}

func (a *Adapter) sendPrompt(chatID int64, p conversation.Prompt) {
	if p.DocumentPath != "" {
		doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(p.DocumentPath))
		doc.Caption = p.Text
		if _, err := a.bot.Send(doc); err != nil {
			log.Printf("telegram: send document failed: %v", err)
			a.sendText(chatID, p.Text)
		}
		return
	}

	msg := tgbotapi.NewMessage(chatID, p.Text)
	if p.Keyboard != nil {
		msg.ReplyMarkup = renderKeyboard(p.Keyboard)
	}
	sent, err := a.bot.Send(msg)
	if err != nil {
		log.Printf("telegram: send failed: %v", err)
		return
	}
	a.trimHistory(chatID, sent.MessageID)
}

func (a *Adapter) sendText(chatID int64, text string) {
	sent, err := a.bot.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		log.Printf("telegram: send failed: %v", err)
		return
	}
	a.trimHistory(chatID, sent.MessageID)
}

// trimHistory remembers the bot's message and deletes the oldest ones past
// the limit.
func (a *Adapter) trimHistory(chatID int64, messageID int) {
	a.mu.Lock()
	ids := append(a.history[chatID], messageID)
	var drop []int
	for len(ids) > historyLimit {
		drop = append(drop, ids[0])
		ids = ids[1:]
	}
	a.history[chatID] = ids
	a.mu.Unlock()

	for _, id := range drop {
		if _, err := a.bot.Request(tgbotapi.NewDeleteMessage(chatID, id)); err != nil {
			log.Printf("telegram: delete message %d failed: %v", id, err)
		}
	}
}

func renderKeyboard(kb *conversation.Keyboard) interface{} {
	if kb.Mode == conversation.ModeInline {
		var rows [][]tgbotapi.InlineKeyboardButton
		for _, row := range kb.Rows {
			var btns []tgbotapi.InlineKeyboardButton
			for _, b := range row {
				btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
			}
			rows = append(rows, btns)
		}
		return tgbotapi.NewInlineKeyboardMarkup(rows...)
	}

	var rows [][]tgbotapi.KeyboardButton
	for _, row := range kb.Rows {
		var btns []tgbotapi.KeyboardButton
		for _, b := range row {
			btns = append(btns, tgbotapi.NewKeyboardButton(b.Label))
		}
		rows = append(rows, btns)
	}
	markup := tgbotapi.NewReplyKeyboard(rows...)
	markup.ResizeKeyboard = true
	return markup
}
