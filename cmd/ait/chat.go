package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Zuo-Peng/ait/internal/assemble"
	"github.com/Zuo-Peng/ait/internal/config"
	"github.com/Zuo-Peng/ait/internal/history"
	"github.com/Zuo-Peng/ait/internal/logging"
	"github.com/Zuo-Peng/ait/internal/provider"
	"github.com/Zuo-Peng/ait/internal/session"
)

type chatFlags struct {
	systemPrompt string
	temperature  float32
	model        string
	provider     string
	stdin        string
}

func chatCmd() *cobra.Command {
	var f chatFlags

	cmd := &cobra.Command{
		Use:   "ait [files...]",
		Short: "Chat with language models in the terminal",
		Long: `Start a chat session. Files and directories given as arguments, and text
piped on standard input, are sent to the model as context.

  git diff | ait -s "review this patch"
  ait main.go internal/ -m llama3 -p ollama`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := f.apply(cmd, cfg); err != nil {
				return err
			}
			return runChat(cfg, args, f.stdin)
		},
	}

	f.register(cmd)
	return cmd
}

func (f *chatFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.systemPrompt, "system", "s", "", "System prompt")
	cmd.Flags().Float32VarP(&f.temperature, "temperature", "t", 0, "Sampling temperature (0-2)")
	cmd.Flags().StringVarP(&f.model, "model", "m", "", "Model name")
	cmd.Flags().StringVarP(&f.provider, "provider", "p", "", "Provider (openai/ollama)")
	cmd.Flags().StringVar(&f.stdin, "stdin", "auto", "Read context from stdin (auto/always/never)")
}

// apply overrides config values with the flags that were set.
func (f chatFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("system") {
		cfg.SystemPrompt = f.systemPrompt
	}
	if flags.Changed("temperature") {
		cfg.Temperature = f.temperature
	}
	if flags.Changed("model") {
		cfg.Model = f.model
	}
	if flags.Changed("provider") {
		cfg.Provider = f.provider
	}
	return cfg.Validate()
}

func runChat(cfg *config.Config, paths []string, stdinMode string) error {
	mode, err := assemble.ParseStdinMode(stdinMode)
	if err != nil {
		return err
	}

	closer, err := logging.Init(logging.Options{Path: cfg.LogPath, Level: cfg.LogLevel})
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	defer closer.Close()

	stdinIsTTY := term.IsTerminal(int(os.Stdin.Fd()))
	if mode == assemble.StdinAlways && stdinIsTTY {
		return fmt.Errorf("--stdin always: standard input is a terminal")
	}
	payload, _, err := assemble.Assemble(assemble.Options{
		Paths:      paths,
		Stdin:      mode,
		Reader:     os.Stdin,
		IsTerminal: stdinIsTTY,
		MaxBytes:   cfg.MaxStdinBytes,
	})
	if err != nil {
		return err
	}

	db, err := history.Open(cfg.DBPath)
	if err != nil {
		// the chat still works, it just is not recorded
		log.Warn().Err(err).Str("path", cfg.DBPath).Msg("history disabled")
		fmt.Fprintf(os.Stderr, "warning: history disabled: %v\n", err)
	} else {
		defer db.Close()
		if n, err := db.Prune(cfg.HistoryLimit); err != nil {
			log.Warn().Err(err).Msg("prune history")
		} else if n > 0 {
			log.Info().Int("removed", n).Msg("pruned history")
		}
	}

	router := newRouter(cfg)
	current := provider.ModelConfig{Provider: cfg.Provider, Model: cfg.Model, Temperature: cfg.Temperature}
	var models []provider.ModelConfig
	for _, mc := range cfg.Models {
		models = append(models, provider.ModelConfig{Provider: mc.Provider, Model: mc.Name})
	}

	m := session.New(session.Options{
		DB:            db,
		Client:        router,
		Lister:        router,
		Model:         current,
		Models:        models,
		SystemPrompt:  cfg.SystemPrompt,
		Seed:          assemble.Seed(cfg.SystemPrompt, payload),
		LatestLogPath: cfg.LatestLogPath,
		IdleTimeout:   time.Duration(cfg.IdleTimeoutSeconds) * time.Second,
	})

	opts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithMouseCellMotion()}
	if !stdinIsTTY {
		// stdin was consumed as context; keys come from the terminal
		opts = append(opts, tea.WithInputTTY())
	}

	log.Info().Str("model", current.String()).Int("context_bytes", len(payload)).Msg("session start")
	if _, err := tea.NewProgram(m, opts...).Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	log.Info().Msg("session end")
	return nil
}

func newRouter(cfg *config.Config) *provider.Router {
	router := provider.NewRouter()
	router.Register("openai", provider.NewOpenAI(os.Getenv("OPENAI_API_KEY"), cfg.OpenAIBaseURL))
	router.Register("ollama", provider.NewOllama(cfg.OllamaURL))
	return router
}
