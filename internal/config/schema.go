package config

import "github.com/jackzampolin/docqa/internal/providers"

// Config holds docqa configuration.
// Stored at: {home}/config.yaml
type Config struct {
	Backend      string                    `mapstructure:"backend" yaml:"backend" json:"backend"`
	LLMProviders map[string]LLMProviderCfg `mapstructure:"llm_providers" yaml:"llm_providers" json:"llm_providers"`
	OCR          string                    `mapstructure:"ocr" yaml:"ocr" json:"ocr"`
	OCRProviders map[string]OCRProviderCfg `mapstructure:"ocr_providers" yaml:"ocr_providers" json:"ocr_providers"`
	Extraction   ExtractionCfg             `mapstructure:"extraction" yaml:"extraction" json:"extraction"`
	Summary      SummaryCfg                `mapstructure:"summary" yaml:"summary" json:"summary"`
	QA           QACfg                     `mapstructure:"qa" yaml:"qa" json:"qa"`
	Storage      StorageCfg                `mapstructure:"storage" yaml:"storage" json:"storage"`
	Ollama       OllamaCfg                 `mapstructure:"ollama" yaml:"ollama" json:"ollama"`
	Server       ServerCfg                 `mapstructure:"server" yaml:"server" json:"server"`
}

// LLMProviderCfg configures a chat backend.
type LLMProviderCfg struct {
	Type           string  `mapstructure:"type" yaml:"type" json:"type"`                                                 // "openai", "ollama", "anthropic", "gemini"
	Model          string  `mapstructure:"model" yaml:"model,omitempty" json:"model,omitempty"`                          // Model name
	APIKey         string  `mapstructure:"api_key" yaml:"api_key,omitempty" json:"api_key,omitempty"`                    // API key (supports ${ENV_VAR} syntax)
	BaseURL        string  `mapstructure:"base_url" yaml:"base_url,omitempty" json:"base_url,omitempty"`                 // Override endpoint
	RateLimit      float64 `mapstructure:"rate_limit" yaml:"rate_limit,omitempty" json:"rate_limit,omitempty"`           // Requests per second
	TimeoutSeconds int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds,omitempty" json:"timeout_seconds,omitempty"`
	Enabled        bool    `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
}

// OCRProviderCfg configures an OCR provider.
type OCRProviderCfg struct {
	Type       string   `mapstructure:"type" yaml:"type" json:"type"`                                       // "tesseract", "mistral-ocr"
	Model      string   `mapstructure:"model" yaml:"model,omitempty" json:"model,omitempty"`                // Model name (for mistral-ocr)
	APIKey     string   `mapstructure:"api_key" yaml:"api_key,omitempty" json:"api_key,omitempty"`          // API key (supports ${ENV_VAR} syntax)
	BaseURL    string   `mapstructure:"base_url" yaml:"base_url,omitempty" json:"base_url,omitempty"`
	RateLimit  float64  `mapstructure:"rate_limit" yaml:"rate_limit,omitempty" json:"rate_limit,omitempty"` // Requests per second
	Languages  []string `mapstructure:"languages" yaml:"languages,omitempty" json:"languages,omitempty"`    // Tesseract language packs
	DPI        int      `mapstructure:"dpi" yaml:"dpi,omitempty" json:"dpi,omitempty"`                      // Render resolution
	MaxWorkers int      `mapstructure:"max_workers" yaml:"max_workers,omitempty" json:"max_workers,omitempty"`
	Enabled    bool     `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
}

// ExtractionCfg tunes the digital/OCR decision.
type ExtractionCfg struct {
	// MinTextLength is the trimmed character count below which OCR runs.
	MinTextLength int `mapstructure:"min_text_length" yaml:"min_text_length" json:"min_text_length"`
}

// SummaryCfg tunes summarization.
type SummaryCfg struct {
	MaxChars int `mapstructure:"max_chars" yaml:"max_chars" json:"max_chars"`
}

// QACfg tunes question answering.
type QACfg struct {
	PageContextChars  int  `mapstructure:"page_context_chars" yaml:"page_context_chars" json:"page_context_chars"`
	RestrictCitations bool `mapstructure:"restrict_citations" yaml:"restrict_citations" json:"restrict_citations"`
}

// StorageCfg selects where uploaded files live.
type StorageCfg struct {
	Type   string `mapstructure:"type" yaml:"type" json:"type"`                         // "local" or "gcs"
	Path   string `mapstructure:"path" yaml:"path,omitempty" json:"path,omitempty"`     // local: defaults to {home}/uploads
	Bucket string `mapstructure:"bucket" yaml:"bucket,omitempty" json:"bucket,omitempty"` // gcs
	Prefix string `mapstructure:"prefix" yaml:"prefix,omitempty" json:"prefix,omitempty"` // gcs object prefix
}

// OllamaCfg holds the managed Ollama container configuration.
type OllamaCfg struct {
	// ContainerName is the Docker container name (default: docqa-ollama)
	ContainerName string `mapstructure:"container_name" yaml:"container_name" json:"container_name"`
	// Image is the Docker image to use (default: ollama/ollama:latest)
	Image string `mapstructure:"image" yaml:"image" json:"image"`
	// Port is the host port to bind (default: 11434)
	Port string `mapstructure:"port" yaml:"port" json:"port"`
	// Manage starts the container with `serve` when the backend is ollama.
	Manage bool `mapstructure:"manage" yaml:"manage" json:"manage"`
}

// ServerCfg holds HTTP server settings not covered by flags.
type ServerCfg struct {
	WriteTimeoutSeconds int `mapstructure:"write_timeout_seconds" yaml:"write_timeout_seconds" json:"write_timeout_seconds"`
	MaxUploadMB         int `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Backend: providers.OpenAIName,
		LLMProviders: map[string]LLMProviderCfg{
			"openai": {
				Type:    providers.OpenAIName,
				Model:   providers.OpenAIDefaultModel,
				APIKey:  "${OPENAI_API_KEY}",
				Enabled: true,
			},
			"ollama": {
				Type:    providers.OllamaName,
				Model:   providers.OllamaDefaultModel,
				BaseURL: providers.OllamaBaseURL,
				Enabled: true,
			},
			"anthropic": {
				Type:    providers.AnthropicName,
				Model:   providers.AnthropicDefaultModel,
				APIKey:  "${ANTHROPIC_API_KEY}",
				Enabled: true,
			},
			"gemini": {
				Type:    providers.GeminiName,
				Model:   providers.GeminiDefaultModel,
				APIKey:  "${GEMINI_API_KEY}",
				Enabled: true,
			},
		},
		OCR: "tesseract",
		OCRProviders: map[string]OCRProviderCfg{
			"tesseract": {
				Type:       "tesseract",
				Languages:  []string{"eng"},
				DPI:        300,
				MaxWorkers: 4,
				Enabled:    true,
			},
			"mistral": {
				Type:      providers.MistralOCRName,
				APIKey:    "${MISTRAL_API_KEY}",
				RateLimit: 6.0,
				Enabled:   true,
			},
		},
		Extraction: ExtractionCfg{MinTextLength: 80},
		Summary:    SummaryCfg{MaxChars: 20000},
		QA:         QACfg{PageContextChars: 2000},
		Storage:    StorageCfg{Type: "local"},
		Ollama: OllamaCfg{
			ContainerName: "docqa-ollama",
			Image:         "ollama/ollama:latest",
			Port:          "11434",
		},
		Server: ServerCfg{WriteTimeoutSeconds: 300, MaxUploadMB: 100},
	}
}

// GetLLMProvider returns an LLM provider config by name.
func (c *Config) GetLLMProvider(name string) (LLMProviderCfg, bool) {
	cfg, ok := c.LLMProviders[name]
	return cfg, ok
}

// GetOCRProvider returns an OCR provider config by name.
func (c *Config) GetOCRProvider(name string) (OCRProviderCfg, bool) {
	cfg, ok := c.OCRProviders[name]
	return cfg, ok
}

// EnabledLLMProviders returns all enabled LLM providers.
func (c *Config) EnabledLLMProviders() map[string]LLMProviderCfg {
	result := make(map[string]LLMProviderCfg)
	for name, cfg := range c.LLMProviders {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}
