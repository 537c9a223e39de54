package config

import (
	"errors"
	"os"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/Lucky96-Uk/pm-telegram-assistant/internal/models"
)

// Config is the assistant's file-backed configuration. The bot token stays
// in the environment; everything else lives here.
type Config struct {
	DataFile    string   `toml:"data_file"`
	ExportDir   string   `toml:"export_dir"`
	OwnerChatID int64    `toml:"owner_chat_id"` // destination for rehydrated reminders
	Languages   []string `toml:"resolver_languages"`
	Categories  []string `toml:"default_categories"`
}

func Default() Config {
	return Config{
		DataFile:   "pm_manager_data.json",
		ExportDir:  "exports",
		Languages:  []string{"en", "uk", "ru"},
		Categories: append([]string(nil), models.DefaultCategories...),
	}
}

// LoadOrCreate reads the config at path, writing the defaults there on
// first run.
func LoadOrCreate(path string) (Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if cfg.DataFile == "" {
		cfg.DataFile = "pm_manager_data.json"
	}
	if cfg.ExportDir == "" {
		cfg.ExportDir = "exports"
	}
	return cfg, nil
}

func write(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
