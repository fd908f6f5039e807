package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

type Model struct {
	Provider string `toml:"provider"`
	Name     string `toml:"name"`
}

type Config struct {
	Provider      string  `toml:"provider"`
	Model         string  `toml:"model"`
	SystemPrompt  string  `toml:"system_prompt"`
	Temperature   float32 `toml:"temperature"`
	Models        []Model `toml:"models"`
	OpenAIBaseURL string  `toml:"openai_base_url"`
	OllamaURL     string  `toml:"ollama_url"`

	DBPath        string `toml:"db_path"`
	LatestLogPath string `toml:"latest_log_path"`
	LogPath       string `toml:"log_path"`
	LogLevel      string `toml:"log_level"`

	HistoryLimit       int   `toml:"history_limit"` // 0 = keep everything
	IdleTimeoutSeconds int   `toml:"idle_timeout_seconds"`
	MaxStdinBytes      int64 `toml:"max_stdin_bytes"`
}

const DefaultSystemPrompt = "You are a helpful assistant running in a terminal. Answer concisely and use fenced code blocks for code."

// Path returns the location of the config file.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "ait", "config.toml"), nil
}

func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return loadFrom(filepath.Join(home, ".config", "ait", "config.toml"), home)
}

func Defaults(home string) *Config {
	cache := filepath.Join(home, ".cache", "ait")
	return &Config{
		Provider:     "openai",
		Model:        "gpt-4o-mini",
		SystemPrompt: DefaultSystemPrompt,
		Temperature:  0.2,
		Models: []Model{
			{Provider: "openai", Name: "gpt-4o-mini"},
			{Provider: "openai", Name: "gpt-4o"},
			{Provider: "openai", Name: "o3-mini"},
		},
		OllamaURL:          "http://localhost:11434",
		DBPath:             filepath.Join(cache, "chats.db"),
		LatestLogPath:      filepath.Join(cache, "latest-chat.log"),
		LogPath:            filepath.Join(cache, "ait.log"),
		LogLevel:           "info",
		IdleTimeoutSeconds: 60,
		MaxStdinBytes:      1 << 20,
	}
}

func loadFrom(cfgPath, home string) (*Config, error) {
	cfg := Defaults(home)

	if _, err := os.Stat(cfgPath); err == nil {
		if _, err := toml.DecodeFile(cfgPath, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", cfgPath, err)
		}
	}

	cfg.DBPath = expandHome(cfg.DBPath, home)
	cfg.LatestLogPath = expandHome(cfg.LatestLogPath, home)
	cfg.LogPath = expandHome(cfg.LogPath, home)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", cfgPath, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Provider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("model must not be empty")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature %.2f out of range [0, 2]", c.Temperature)
	}
	if c.IdleTimeoutSeconds <= 0 {
		return fmt.Errorf("idle_timeout_seconds must be positive")
	}
	if c.MaxStdinBytes <= 0 {
		return fmt.Errorf("max_stdin_bytes must be positive")
	}
	return nil
}

func expandHome(path, home string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		return filepath.Join(home, path[2:])
	}
	return path
}
