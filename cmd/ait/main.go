package main

import (
	"fmt"
	"os"
)

var version = "dev"

func main() {
	rootCmd := chatCmd()
	rootCmd.Version = version

	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(doctorCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
