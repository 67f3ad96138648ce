package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "turtle-trading",
	Short: "Turtle trend-following backtester and live signal pipeline",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(backtestCmd)
	rootCmd.AddCommand(migrateCmd)
}
