package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"madlen/internal/attach"
	"madlen/internal/backend"
	"madlen/internal/export"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Work with the stored conversation",
}

var historyExportCmd = &cobra.Command{
	Use:   "export [dir]",
	Short: "Save the stored conversation as markdown",
	Long: `Fetch the conversation history from the gateway and write it to a
markdown file. The directory defaults to client.export_dir, then the
current directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistoryExport,
}

func init() {
	historyCmd.AddCommand(historyExportCmd)
	rootCmd.AddCommand(historyCmd)
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	dir := cfg.Client.ExportDir
	if len(args) == 1 {
		dir = args[0]
	}
	if dir == "" {
		dir = "."
	}
	dir, err := attach.ResolvePath(dir)
	if err != nil {
		return err
	}

	client := backend.NewClient(cfg.Client.BackendURL)
	messages, err := client.GetHistory(cmd.Context())
	if err != nil {
		return fmt.Errorf("fetching history: %w", err)
	}

	path, err := export.Write(&export.Transcript{
		ExportedAt: time.Now(),
		Messages:   messages,
	}, dir)
	if err != nil {
		return fmt.Errorf("writing transcript: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d messages to %s\n", len(messages), path)
	return nil
}
