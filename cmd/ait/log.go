package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/ait/internal/config"
	"github.com/Zuo-Peng/ait/internal/editor"
)

func logCmd() *cobra.Command {
	var printOnly bool

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Open the plain-text log of the most recent chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if _, err := os.Stat(cfg.LatestLogPath); err != nil {
				return fmt.Errorf("no chat log at %s", cfg.LatestLogPath)
			}
			if printOnly {
				data, err := os.ReadFile(cfg.LatestLogPath)
				if err != nil {
					return err
				}
				_, err = os.Stdout.Write(data)
				return err
			}
			return editor.Open(cfg.LatestLogPath)
		},
	}

	cmd.Flags().BoolVar(&printOnly, "print", false, "Print the log instead of opening it")
	return cmd
}
