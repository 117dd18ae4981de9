package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"madlen/internal/backend"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the free models the gateway offers",
	RunE:  runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
	client := backend.NewClient(cfg.Client.BackendURL)

	models, err := client.ListModels(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing models: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(models) == 0 {
		fmt.Fprintln(out, "No models available.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tVISION")
	for _, m := range models {
		vision := ""
		if m.SupportsVision {
			vision = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", m.ID, m.Name, vision)
	}
	return w.Flush()
}
