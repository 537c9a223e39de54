package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"

	"github.com/Lucky96-Uk/pm-telegram-assistant/internal/config"
	"github.com/Lucky96-Uk/pm-telegram-assistant/internal/conversation"
	"github.com/Lucky96-Uk/pm-telegram-assistant/internal/export"
	"github.com/Lucky96-Uk/pm-telegram-assistant/internal/scheduler"
	"github.com/Lucky96-Uk/pm-telegram-assistant/internal/storage"
	"github.com/Lucky96-Uk/pm-telegram-assistant/internal/telegram"
	"github.com/Lucky96-Uk/pm-telegram-assistant/internal/timeparse"
)

const configFile = "config.toml"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	botToken := os.Getenv("BOT_TOKEN")
	if botToken == "" {
		log.Fatal("BOT_TOKEN environment variable is required")
	}

	cfg, err := config.LoadOrCreate(configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, err := storage.Load(cfg.DataFile, cfg.Categories)
	if err != nil {
		log.Fatalf("Failed to load data: %v", err)
	}

	exporter, err := export.New(cfg.ExportDir)
	if err != nil {
		log.Fatalf("Failed to prepare export dir: %v", err)
	}

	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		log.Fatalf("Failed to connect to Telegram: %v", err)
	}
	log.Printf("🤖 Bot: %s", api.Self.UserName)

	resolver := timeparse.New(cfg.Languages...)

	// The adapter delivers fired reminders, but it also needs the engine,
	// which needs the scheduler; close the cycle through a late-bound var.
	var adapter *telegram.Adapter
	sched := scheduler.New(func(chatID int64, text string) {
		adapter.DeliverReminder(chatID, text)
	})
	engine := conversation.NewEngine(store, sched, resolver, exporter, time.Now)
	adapter = telegram.New(api, engine)

	if n := engine.RehydrateReminders(cfg.OwnerChatID, time.Now()); n > 0 {
		log.Printf("Restored %d reminders from task deadlines", n)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		exit := make(chan os.Signal, 1)
		signal.Notify(exit, os.Interrupt, syscall.SIGTERM)
		<-exit
		log.Println("🛑 Shutting down bot...")
		cancel()
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := api.GetUpdatesChan(u)

	log.Println("🚀 Starting to process updates...")

	for {
		select {
		case <-ctx.Done():
			api.StopReceivingUpdates()
			sched.Stop()
			log.Println("👋 Bot stopped")
			return
		case update, ok := <-updates:
			if !ok {
				sched.Stop()
				return
			}
			adapter.HandleUpdate(update)
		}
	}
}
