package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "meridian",
	Short: "A live, incremental code-graph daemon: watches a repository, maintains a structural graph of its code, and streams diffs over WebSocket.",
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("meridian: fatal", "error", err)
		os.Exit(1)
	}
}
