package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/docqa/internal/api"
	"github.com/jackzampolin/docqa/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and create configuration",
}

var configForce bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config to the home directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := getHome()
		if err != nil {
			return err
		}

		path := cfgFile
		if path == "" {
			path = h.ConfigPath()
		}
		if h.ConfigExists() && path == h.ConfigPath() && !configForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the effective configuration after merging defaults, the config
file and DOCQA_* environment variables. ${VAR} references are shown as
written; literal API keys are redacted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := getHome()
		if err != nil {
			return err
		}
		cfgMgr, err := loadConfig(h)
		if err != nil {
			return err
		}
		if used := cfgMgr.ConfigFileUsed(); used != "" && !api.IsStructuredOutput() {
			fmt.Printf("# %s\n", used)
		}
		return api.Output(redacted(cfgMgr.Get()))
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

// contextWithTimeout bounds ctx by d when d is positive.
func contextWithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// redacted returns a copy of cfg with literal API keys masked.
func redacted(cfg *config.Config) *config.Config {
	out := *cfg
	out.LLMProviders = make(map[string]config.LLMProviderCfg, len(cfg.LLMProviders))
	for name, p := range cfg.LLMProviders {
		p.APIKey = maskKey(p.APIKey)
		out.LLMProviders[name] = p
	}
	out.OCRProviders = make(map[string]config.OCRProviderCfg, len(cfg.OCRProviders))
	for name, p := range cfg.OCRProviders {
		p.APIKey = maskKey(p.APIKey)
		out.OCRProviders[name] = p
	}
	return &out
}

func maskKey(key string) string {
	if key == "" || strings.HasPrefix(key, "${") {
		return key
	}
	return "********"
}
