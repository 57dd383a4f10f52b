package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"github.com/jackzampolin/docqa/internal/providers"
)

// EnvPrefix is prepended to environment overrides (DOCQA_BACKEND, ...).
const EnvPrefix = "DOCQA"

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	mu        sync.RWMutex
	v         *viper.Viper
	config    *Config
	callbacks []func(*Config)
	logger    *slog.Logger
}

// NewManager creates a new config manager and loads initial config.
func NewManager(cfgFile string) (*Manager, error) {
	cm := &Manager{
		v:         viper.New(),
		callbacks: make([]func(*Config), 0),
		logger:    slog.Default(),
	}

	if err := cm.initViper(cfgFile); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

// initViper sets up viper with defaults and config file.
func (cm *Manager) initViper(cfgFile string) error {
	v := cm.v
	defaults := DefaultConfig()
	v.SetDefault("backend", defaults.Backend)
	v.SetDefault("llm_providers", defaults.LLMProviders)
	v.SetDefault("ocr", defaults.OCR)
	v.SetDefault("ocr_providers", defaults.OCRProviders)
	v.SetDefault("extraction.min_text_length", defaults.Extraction.MinTextLength)
	v.SetDefault("summary.max_chars", defaults.Summary.MaxChars)
	v.SetDefault("qa.page_context_chars", defaults.QA.PageContextChars)
	v.SetDefault("qa.restrict_citations", defaults.QA.RestrictCitations)
	v.SetDefault("storage.type", defaults.Storage.Type)
	v.SetDefault("storage.path", defaults.Storage.Path)
	v.SetDefault("storage.bucket", defaults.Storage.Bucket)
	v.SetDefault("storage.prefix", defaults.Storage.Prefix)
	v.SetDefault("ollama.container_name", defaults.Ollama.ContainerName)
	v.SetDefault("ollama.image", defaults.Ollama.Image)
	v.SetDefault("ollama.port", defaults.Ollama.Port)
	v.SetDefault("ollama.manage", defaults.Ollama.Manage)
	v.SetDefault("server.write_timeout_seconds", defaults.Server.WriteTimeoutSeconds)
	v.SetDefault("server.max_upload_mb", defaults.Server.MaxUploadMB)

	// Environment variables with DOCQA_ prefix; nested keys use underscores
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.docqa")
	}

	// Try to read config file (not required)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// load parses the current viper state into a validated Config struct.
func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := cm.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetLogger sets the logger used to report reload failures.
func (cm *Manager) SetLogger(logger *slog.Logger) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.logger = logger
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// ConfigFileUsed returns the path of the loaded config file, if any.
func (cm *Manager) ConfigFileUsed() string {
	return cm.v.ConfigFileUsed()
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading of configuration. An edit that fails
// validation is logged and the previous config stays active.
func (cm *Manager) WatchConfig() {
	cm.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := cm.load()
		if err != nil {
			cm.mu.RLock()
			logger := cm.logger
			cm.mu.RUnlock()
			logger.Warn("ignoring invalid config change", "file", e.Name, "error", err)
			return
		}

		cm.mu.Lock()
		cm.config = cfg
		callbacks := make([]func(*Config), len(cm.callbacks))
		copy(callbacks, cm.callbacks)
		cm.mu.Unlock()

		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	cm.v.WatchConfig()
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envVarPattern.ReplaceAllStringFunc(value, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// ToProviderRegistryConfig converts the config to a format suitable for providers.Registry.
// It resolves all ${ENV_VAR} references in API keys and base URLs.
func (c *Config) ToProviderRegistryConfig() providers.RegistryConfig {
	cfg := providers.RegistryConfig{
		Backend:      c.Backend,
		OCR:          c.OCR,
		OCRProviders: make(map[string]providers.OCRProviderConfig),
		LLMProviders: make(map[string]providers.LLMProviderConfig),
	}

	for name, ocr := range c.OCRProviders {
		cfg.OCRProviders[name] = providers.OCRProviderConfig{
			Type:       ocr.Type,
			Model:      ocr.Model,
			APIKey:     ResolveEnvVars(ocr.APIKey),
			BaseURL:    ResolveEnvVars(ocr.BaseURL),
			RateLimit:  ocr.RateLimit,
			Languages:  ocr.Languages,
			DPI:        ocr.DPI,
			MaxWorkers: ocr.MaxWorkers,
			Enabled:    ocr.Enabled,
		}
	}

	for name, llm := range c.LLMProviders {
		cfg.LLMProviders[name] = providers.LLMProviderConfig{
			Type:      llm.Type,
			Model:     llm.Model,
			APIKey:    ResolveEnvVars(llm.APIKey),
			BaseURL:   ResolveEnvVars(llm.BaseURL),
			RateLimit: llm.RateLimit,
			Timeout:   time.Duration(llm.TimeoutSeconds) * time.Second,
			Enabled:   llm.Enabled,
		}
	}

	return cfg
}

// WriteTimeout returns the HTTP write timeout.
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.Server.WriteTimeoutSeconds) * time.Second
}

// MaxUploadBytes returns the upload size limit.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# docqa configuration
# API keys use ${ENV_VAR} syntax to reference environment variables
# Set these in your shell: export OPENAI_API_KEY=xxx ANTHROPIC_API_KEY=xxx MISTRAL_API_KEY=xxx
# backend selects the chat provider; ocr selects the fallback OCR provider

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
