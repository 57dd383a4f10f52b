package endpoints

import (
	"github.com/jackzampolin/docqa/internal/api"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	SwaggerSpecPath string
	MaxUploadBytes  int64
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{},

		// File endpoints
		&UploadEndpoint{MaxBytes: cfg.MaxUploadBytes},
		&GetFileEndpoint{},
		&ExtractEndpoint{},
		&SummarizeEndpoint{},
		&AskEndpoint{},

		// Prompt endpoints
		&ListPromptsEndpoint{},
		&GetPromptEndpoint{},

		// Swagger/OpenAPI endpoints
		&SwaggerEndpoint{SpecPath: cfg.SwaggerSpecPath},
		&SwaggerUIEndpoint{},
	}
}
