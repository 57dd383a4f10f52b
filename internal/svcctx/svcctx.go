// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/jackzampolin/docqa/internal/config"
	"github.com/jackzampolin/docqa/internal/home"
	"github.com/jackzampolin/docqa/internal/ollama"
	"github.com/jackzampolin/docqa/internal/pipeline"
	"github.com/jackzampolin/docqa/internal/prompts"
	"github.com/jackzampolin/docqa/internal/providers"
	"github.com/jackzampolin/docqa/internal/store"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Pipeline *pipeline.Service
	Store    store.FileStore
	Registry *providers.Registry
	Prompts  *prompts.Registry
	Config   *config.Manager
	Logger   *slog.Logger
	Home     *home.Dir
	Ollama   *ollama.DockerManager // nil unless the server manages Ollama
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// PipelineFrom extracts the document pipeline from context.
func PipelineFrom(ctx context.Context) *pipeline.Service {
	if s := ServicesFrom(ctx); s != nil {
		return s.Pipeline
	}
	return nil
}

// StoreFrom extracts the file store from context.
func StoreFrom(ctx context.Context) store.FileStore {
	if s := ServicesFrom(ctx); s != nil {
		return s.Store
	}
	return nil
}

// RegistryFrom extracts the provider registry from context.
func RegistryFrom(ctx context.Context) *providers.Registry {
	if s := ServicesFrom(ctx); s != nil {
		return s.Registry
	}
	return nil
}

// PromptsFrom extracts the prompt registry from context.
func PromptsFrom(ctx context.Context) *prompts.Registry {
	if s := ServicesFrom(ctx); s != nil {
		return s.Prompts
	}
	return nil
}

// ConfigFrom extracts the config manager from context.
func ConfigFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.Config
	}
	return nil
}

// LoggerFrom extracts the logger from context.
// Returns slog.Default() if not present.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil && s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}

// OllamaFrom extracts the managed Ollama container from context.
func OllamaFrom(ctx context.Context) *ollama.DockerManager {
	if s := ServicesFrom(ctx); s != nil {
		return s.Ollama
	}
	return nil
}
