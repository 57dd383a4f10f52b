package main

import (
	"testing"

	"github.com/jackzampolin/docqa/internal/config"
)

func TestRedacted(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.LLMProviders["anthropic"] = config.LLMProviderCfg{Type: "anthropic", APIKey: "sk-ant-secret"}

	out := redacted(cfg)

	if got := out.LLMProviders["anthropic"].APIKey; got != "********" {
		t.Errorf("literal key = %q, want masked", got)
	}
	if got := out.LLMProviders["openai"].APIKey; got != "${OPENAI_API_KEY}" {
		t.Errorf("env reference = %q, want unchanged", got)
	}
	if cfg.LLMProviders["anthropic"].APIKey != "sk-ant-secret" {
		t.Error("redacted() modified the original config")
	}
}

func TestOllamaModel(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Backend = "ollama"
	cfg.LLMProviders["ollama"] = config.LLMProviderCfg{Type: "ollama", Model: "mistral", Enabled: true}

	if got := ollamaModel(cfg); got != "mistral" {
		t.Errorf("ollamaModel() = %q, want %q", got, "mistral")
	}

	cfg.Backend = "openai"
	for name, p := range cfg.LLMProviders {
		if p.Type == "ollama" {
			p.Enabled = false
			cfg.LLMProviders[name] = p
		}
	}
	if got := ollamaModel(cfg); got != "" {
		t.Errorf("ollamaModel() = %q, want empty", got)
	}
}
