package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"madlen/internal/backend"
	"madlen/internal/config"
	"madlen/internal/ui"
)

var (
	cfgFile    string
	backendURL string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "madlen",
	Short: "Chat with free AI models from the terminal",
	Long: `Madlen is a terminal chat client for the free models on OpenRouter.
Run "madlen serve" to start the gateway, then "madlen" to open the chat.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
	RunE:              runChat,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/madlen/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", "", "gateway URL (overrides client.backend_url)")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		path = config.ConfigPath()
	}

	c, err := config.LoadFrom(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if backendURL != "" {
		c.Client.BackendURL = backendURL
	}
	cfg = c
	return nil
}

func runChat(cmd *cobra.Command, args []string) error {
	logPath, err := cfg.LogPath()
	if err != nil {
		return fmt.Errorf("resolving log path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return fmt.Errorf("creating log dir: %w", err)
	}
	// The alt screen owns stdout, so logs go to a file
	f, err := tea.LogToFile(logPath, "madlen")
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	defer f.Close()

	model := ui.New(ui.Options{
		Backend:       backend.NewClient(cfg.Client.BackendURL),
		SingleFlight:  cfg.SingleFlightEnabled(),
		ToastDuration: time.Duration(cfg.Client.CopyToastMS) * time.Millisecond,
		ExportDir:     cfg.Client.ExportDir,
		Context:       cmd.Context(),
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err = p.Run()
	return err
}
