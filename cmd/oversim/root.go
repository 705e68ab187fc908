package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "oversim",
	Short: "Discrete-event simulator for peer-to-peer overlay protocols",
	Long: `oversim runs peer-to-peer overlay protocols on a virtual clock.
All peers live in one process; messages travel through a latency model
instead of a real network, so runs are fast and repeatable.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	// A .env file can preset OVERSIM_* variables. Absence is fine.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
