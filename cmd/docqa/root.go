package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/docqa/internal/api"
	"github.com/jackzampolin/docqa/internal/config"
	"github.com/jackzampolin/docqa/internal/home"
	"github.com/jackzampolin/docqa/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Extract, summarize and question PDF documents",
	Long: `docqa extracts text from PDFs and answers questions about them with
page citations.

Documents are read from their embedded text layer; scanned documents fall
back to OCR. Summaries and answers come from the configured chat backend
(OpenAI, a local Ollama server, Anthropic or Gemini). Answers cite the pages
they draw from as [p.N].`,
	Version:      version.GitRelease,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.docqa/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "docqa home directory (default: ~/.docqa)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "info", "log level: debug, info, warn or error",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}

// newLogger returns a text logger on w at the --log-level.
func newLogger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// getHome returns the home directory, creating it if needed.
func getHome() (*home.Dir, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, fmt.Errorf("failed to create home directory: %w", err)
	}
	return h, nil
}

// loadConfig loads configuration. Without --config, a config.yaml in a
// custom --home wins over the default search path.
func loadConfig(h *home.Dir) (*config.Manager, error) {
	path := cfgFile
	if path == "" && homeDir != "" && h.ConfigExists() {
		path = h.ConfigPath()
	}
	return config.NewManager(path)
}
