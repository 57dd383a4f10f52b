package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/docqa/internal/config"
	"github.com/jackzampolin/docqa/internal/home"
	"github.com/jackzampolin/docqa/internal/ollama"
)

var ollamaCmd = &cobra.Command{
	Use:   "ollama",
	Short: "Manage the local Ollama container",
	Long: `Manage the Ollama container used by the ollama backend.

Models are persisted to ~/.docqa/ollama/ so removing the container does not
require pulling them again.

Examples:
  docqa ollama start            # Start the container
  docqa ollama pull llama3.2    # Download a model
  docqa ollama status           # Check container status
  docqa ollama logs             # View container logs
  docqa ollama stop             # Stop the container`,
}

var ollamaStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the Ollama container",
	Long: `Start the Ollama container.

If the container doesn't exist, it will be created and started.
If it exists but is stopped, it will be started.
If it's already running, this is a no-op.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := getOllamaManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		fmt.Println("Starting Ollama...")
		if err := mgr.Start(cmd.Context()); err != nil {
			return fmt.Errorf("failed to start Ollama: %w", err)
		}

		fmt.Printf("Ollama is running at %s\n", mgr.URL())
		return nil
	},
}

var ollamaStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the Ollama container",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := getOllamaManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		fmt.Println("Stopping Ollama...")
		if err := mgr.Stop(cmd.Context()); err != nil {
			return fmt.Errorf("failed to stop Ollama: %w", err)
		}

		fmt.Println("Ollama stopped")
		return nil
	},
}

var ollamaStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show Ollama container status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := getOllamaManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		status, err := mgr.Status(ctx)
		if err != nil {
			return fmt.Errorf("failed to get status: %w", err)
		}

		switch status {
		case ollama.StatusRunning:
			fmt.Printf("Status: %s\n", status)
			fmt.Printf("URL: %s\n", mgr.URL())
			if err := mgr.Ping(ctx); err != nil {
				fmt.Printf("Health: unhealthy (%v)\n", err)
			} else {
				fmt.Println("Health: healthy")
			}
		case ollama.StatusStopped:
			fmt.Printf("Status: %s (use 'docqa ollama start' to start)\n", status)
		case ollama.StatusNotFound:
			fmt.Printf("Status: %s (use 'docqa ollama start' to create)\n", status)
		default:
			fmt.Printf("Status: %s\n", status)
		}

		return nil
	},
}

var logsTail string

var ollamaLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show Ollama container logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := getOllamaManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		logs, err := mgr.Logs(cmd.Context(), logsTail)
		if err != nil {
			return fmt.Errorf("failed to get logs: %w", err)
		}

		fmt.Print(logs)
		return nil
	},
}

var ollamaRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove the Ollama container",
	Long: `Remove the Ollama container.

Models in ~/.docqa/ollama/ are NOT deleted, only the container is removed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := getOllamaManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		fmt.Println("Removing Ollama container...")
		if err := mgr.Remove(cmd.Context()); err != nil {
			return fmt.Errorf("failed to remove container: %w", err)
		}

		fmt.Println("Ollama container removed (models preserved)")
		return nil
	},
}

var ollamaPullCmd = &cobra.Command{
	Use:   "pull [model]",
	Short: "Download a model into the running container",
	Long: `Download a model into the running Ollama container.

Without an argument, pulls the model of the configured ollama backend.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		model := ""
		if len(args) == 1 {
			model = args[0]
		} else {
			cfg, err := loadOllamaConfig()
			if err != nil {
				return err
			}
			model = ollamaModel(cfg)
			if model == "" {
				return fmt.Errorf("no ollama provider configured; pass a model name")
			}
		}

		mgr, err := getOllamaManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		timeout, _ := cmd.Flags().GetDuration("timeout")
		if err := mgr.WaitReady(ctx, 10*time.Second); err != nil {
			return fmt.Errorf("Ollama not ready (use 'docqa ollama start'): %w", err)
		}

		fmt.Printf("Pulling %s...\n", model)
		pullCtx, cancel := contextWithTimeout(ctx, timeout)
		defer cancel()
		if err := mgr.PullModel(pullCtx, model); err != nil {
			return err
		}

		fmt.Printf("Model %s is ready\n", model)
		return nil
	},
}

func init() {
	ollamaCmd.AddCommand(ollamaStartCmd)
	ollamaCmd.AddCommand(ollamaStopCmd)
	ollamaCmd.AddCommand(ollamaStatusCmd)
	ollamaCmd.AddCommand(ollamaLogsCmd)
	ollamaCmd.AddCommand(ollamaRemoveCmd)
	ollamaCmd.AddCommand(ollamaPullCmd)

	ollamaLogsCmd.Flags().StringVar(&logsTail, "tail", "100", "Number of lines to show from the end")
	ollamaPullCmd.Flags().Duration("timeout", 30*time.Minute, "Timeout for the download")

	rootCmd.AddCommand(ollamaCmd)
}

func loadOllamaConfig() (*config.Config, error) {
	h, err := getHome()
	if err != nil {
		return nil, err
	}
	cfgMgr, err := loadConfig(h)
	if err != nil {
		return nil, err
	}
	return cfgMgr.Get(), nil
}

// ollamaModel returns the model of the selected backend when it is an
// ollama provider, else of any enabled ollama provider.
func ollamaModel(cfg *config.Config) string {
	if p, ok := cfg.GetLLMProvider(cfg.Backend); ok && p.Type == "ollama" {
		return p.Model
	}
	for _, p := range cfg.EnabledLLMProviders() {
		if p.Type == "ollama" {
			return p.Model
		}
	}
	return ""
}

// getOllamaManager creates a DockerManager from config.
func getOllamaManager() (*ollama.DockerManager, error) {
	h, err := getHome()
	if err != nil {
		return nil, err
	}
	cfgMgr, err := loadConfig(h)
	if err != nil {
		return nil, err
	}
	return newOllamaManager(h, cfgMgr.Get().Ollama)
}

func newOllamaManager(h *home.Dir, cfg config.OllamaCfg) (*ollama.DockerManager, error) {
	return ollama.NewDockerManager(ollama.DockerConfig{
		ContainerName: cfg.ContainerName,
		HomePath:      h.Path(),
		Image:         cfg.Image,
		HostPort:      cfg.Port,
		DataPath:      h.OllamaPath(),
	})
}
