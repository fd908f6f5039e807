package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/ait/internal/config"
	"github.com/Zuo-Peng/ait/internal/history"
	"github.com/Zuo-Peng/ait/internal/provider"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Self-check: verify config, history DB, FTS5 and providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, err := config.Path()
			if err != nil {
				return fmt.Errorf("config path: %w", err)
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}

			fmt.Println("=== Config ===")
			if _, err := os.Stat(cfgPath); err != nil {
				fmt.Printf("  File: %s (NOT FOUND, using defaults)\n", cfgPath)
			} else {
				fmt.Printf("  File: %s (OK)\n", cfgPath)
			}
			fmt.Printf("  Model: %s/%s (temperature %.1f)\n", cfg.Provider, cfg.Model, cfg.Temperature)
			if err := cfg.Validate(); err != nil {
				fmt.Printf("  Invalid: %v\n", err)
			}

			fmt.Println("\n=== Paths ===")
			checkDir("History", filepath.Dir(cfg.DBPath))
			checkDir("Latest log", filepath.Dir(cfg.LatestLogPath))
			checkDir("Debug log", filepath.Dir(cfg.LogPath))

			fmt.Println("\n=== Providers ===")
			if os.Getenv("OPENAI_API_KEY") == "" {
				fmt.Println("  OpenAI: OPENAI_API_KEY not set")
			} else {
				checkProvider("OpenAI", provider.NewOpenAI(os.Getenv("OPENAI_API_KEY"), cfg.OpenAIBaseURL))
			}
			checkProvider("Ollama", provider.NewOllama(cfg.OllamaURL))

			fmt.Println("\n=== Database ===")
			fmt.Printf("  Path: %s\n", cfg.DBPath)
			if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
				fmt.Println("  Status: NOT FOUND (created on first chat)")
				return nil
			}

			db, err := history.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer db.Close()

			convCount, err := db.ConversationCount()
			if err != nil {
				return fmt.Errorf("count conversations: %w", err)
			}
			msgCount, err := db.MessageCount()
			if err != nil {
				return fmt.Errorf("count messages: %w", err)
			}
			fmt.Printf("  Chats:    %d\n", convCount)
			fmt.Printf("  Messages: %d\n", msgCount)
			if cfg.HistoryLimit > 0 {
				fmt.Printf("  Limit:    %d\n", cfg.HistoryLimit)
			}

			fmt.Println("\n=== FTS5 ===")
			ftsCount, err := db.IndexedCount()
			if err != nil {
				fmt.Printf("  FTS5 error: %v\n", err)
			} else {
				fmt.Printf("  FTS5 entries: %d\n", ftsCount)
				if ftsCount == msgCount {
					fmt.Println("  Status: OK (synced)")
				} else {
					fmt.Printf("  Status: MISMATCH (messages=%d, fts=%d)\n", msgCount, ftsCount)
				}
			}

			if info, err := os.Stat(cfg.DBPath); err == nil {
				sizeMB := float64(info.Size()) / 1024 / 1024
				fmt.Printf("\n=== DB Size: %.1f MB ===\n", sizeMB)
			}

			return nil
		},
	}
}

func checkDir(name, path string) {
	if info, err := os.Stat(path); err != nil {
		fmt.Printf("  %s: %s (NOT FOUND)\n", name, path)
	} else if !info.IsDir() {
		fmt.Printf("  %s: %s (NOT A DIRECTORY)\n", name, path)
	} else {
		fmt.Printf("  %s: %s (OK)\n", name, path)
	}
}

func checkProvider(name string, l provider.Lister) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	models, err := l.ListModels(ctx)
	if err != nil {
		fmt.Printf("  %s: UNREACHABLE (%v)\n", name, err)
		return
	}
	fmt.Printf("  %s: OK (%d models)\n", name, len(models))
}
