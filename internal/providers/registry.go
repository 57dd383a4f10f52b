package providers

import (
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"sync"
	"time"
)

// OCRFactory builds an OCR provider from configuration. Providers that live
// in their own package (because of native dependencies) register one.
type OCRFactory func(cfg OCRProviderConfig) DocumentOCR

var (
	ocrFactoriesMu sync.RWMutex
	ocrFactories   = map[string]OCRFactory{}
)

// RegisterOCRFactory makes an OCR provider type available to the registry.
func RegisterOCRFactory(providerType string, f OCRFactory) {
	ocrFactoriesMu.Lock()
	defer ocrFactoriesMu.Unlock()
	ocrFactories[providerType] = f
}

func lookupOCRFactory(providerType string) (OCRFactory, bool) {
	ocrFactoriesMu.RLock()
	defer ocrFactoriesMu.RUnlock()
	f, ok := ocrFactories[providerType]
	return f, ok
}

// Registry holds references to LLM clients and OCR providers, plus which of
// them is active. It supports config-driven instantiation, hot-reload, and
// provides thread-safe access.
type Registry struct {
	mu           sync.RWMutex
	llmClients   map[string]LLMClient
	ocrProviders map[string]DocumentOCR
	llmConfigs   map[string]LLMProviderConfig
	ocrConfigs   map[string]OCRProviderConfig
	skipped      map[string]error
	backend      string
	ocr          string
	logger       *slog.Logger
}

// NewRegistry creates a new empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		llmClients:   make(map[string]LLMClient),
		ocrProviders: make(map[string]DocumentOCR),
		llmConfigs:   make(map[string]LLMProviderConfig),
		ocrConfigs:   make(map[string]OCRProviderConfig),
		skipped:      make(map[string]error),
		logger:       slog.Default(),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// RegisterLLM registers an LLM client by name.
func (r *Registry) RegisterLLM(name string, client LLMClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llmClients[name] = client
	delete(r.skipped, name)
	if r.logger != nil {
		r.logger.Info("registered LLM client", "name", name)
	}
}

// RegisterOCR registers an OCR provider by name.
func (r *Registry) RegisterOCR(name string, provider DocumentOCR) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ocrProviders[name] = provider
	if r.logger != nil {
		r.logger.Info("registered OCR provider", "name", name)
	}
}

// SetBackend selects the LLM client returned by ActiveLLM.
func (r *Registry) SetBackend(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backend = name
}

// SetOCR selects the OCR provider returned by ActiveOCR.
func (r *Registry) SetOCR(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ocr = name
}

// Backend returns the name of the selected LLM backend.
func (r *Registry) Backend() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.backend
}

// OCR returns the name of the selected OCR provider, empty when disabled.
func (r *Registry) OCR() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ocr
}

// Skipped returns providers that were configured but not created, with the
// reason.
func (r *Registry) Skipped() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.skipped))
	for name, err := range r.skipped {
		out[name] = err.Error()
	}
	return out
}

// GetLLM returns an LLM client by name.
func (r *Registry) GetLLM(name string) (LLMClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.getLLMLocked(name)
}

func (r *Registry) getLLMLocked(name string) (LLMClient, error) {
	client, ok := r.llmClients[name]
	if ok {
		return client, nil
	}
	if reason, ok := r.skipped[name]; ok {
		return nil, fmt.Errorf("LLM client %s: %w", name, reason)
	}
	return nil, fmt.Errorf("%w: LLM client not found: %s", ErrNotConfigured, name)
}

// ActiveLLM returns the selected backend. The error distinguishes a missing
// selection, a skipped provider (e.g. no API key) and an unknown name.
func (r *Registry) ActiveLLM() (LLMClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.backend == "" {
		return nil, fmt.Errorf("%w: no backend selected", ErrNotConfigured)
	}
	return r.getLLMLocked(r.backend)
}

// GetOCR returns an OCR provider by name.
func (r *Registry) GetOCR(name string) (DocumentOCR, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	provider, ok := r.ocrProviders[name]
	if !ok {
		return nil, fmt.Errorf("OCR provider not found: %s", name)
	}
	return provider, nil
}

// ActiveOCR returns the selected OCR provider, or nil when OCR is disabled.
func (r *Registry) ActiveOCR() DocumentOCR {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.ocr == "" {
		return nil
	}
	return r.ocrProviders[r.ocr]
}

// ListLLM returns all registered LLM client names, sorted.
func (r *Registry) ListLLM() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.llmClients))
	for name := range r.llmClients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListOCR returns all registered OCR provider names, sorted.
func (r *Registry) ListOCR() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.ocrProviders))
	for name := range r.ocrProviders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasLLM checks if an LLM client is registered.
func (r *Registry) HasLLM(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.llmClients[name]
	return ok
}

// HasOCR checks if an OCR provider is registered.
func (r *Registry) HasOCR(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ocrProviders[name]
	return ok
}

// RegistryConfig defines the providers to instantiate from config.
// This mirrors the config.Config structure for provider setup.
type RegistryConfig struct {
	// Backend names the LLM provider used for summaries and answers.
	Backend string

	// OCR names the OCR provider used for fallback. Empty disables OCR.
	OCR string

	// LLMProviders maps provider names to their config
	LLMProviders map[string]LLMProviderConfig

	// OCRProviders maps provider names to their config
	OCRProviders map[string]OCRProviderConfig
}

// LLMProviderConfig matches config.LLMProviderCfg with resolved API key.
type LLMProviderConfig struct {
	Type      string // "openai", "ollama", "anthropic", "gemini"
	Model     string
	APIKey    string // Resolved API key
	BaseURL   string
	RateLimit float64 // Requests per second
	Timeout   time.Duration
	Enabled   bool
}

// OCRProviderConfig matches config.OCRProviderCfg with resolved API key.
type OCRProviderConfig struct {
	Type       string // "tesseract", "mistral-ocr"
	Model      string
	APIKey     string // Resolved API key
	BaseURL    string
	RateLimit  float64 // Requests per second
	Languages  []string
	DPI        int
	MaxWorkers int
	Enabled    bool
}

// RequiresAPIKey reports whether a provider type cannot work without
// credentials.
func RequiresAPIKey(providerType string) bool {
	switch providerType {
	case OllamaName, "tesseract", MockClientName:
		return false
	default:
		return true
	}
}

// NewRegistryFromConfig creates a registry with providers based on configuration.
// Only enabled providers with the credentials they need are registered.
func NewRegistryFromConfig(cfg RegistryConfig) *Registry {
	r := NewRegistry()
	r.Reload(cfg)
	return r
}

// Reload updates the registry based on new configuration.
// Providers that are no longer configured will be unregistered.
// Providers with changed settings will be re-registered.
func (r *Registry) Reload(cfg RegistryConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.backend = cfg.Backend
	r.ocr = cfg.OCR
	r.skipped = make(map[string]error)

	// Track which providers should exist
	wantLLM := make(map[string]bool)
	wantOCR := make(map[string]bool)

	for name, provCfg := range cfg.LLMProviders {
		if !provCfg.Enabled {
			continue
		}
		if RequiresAPIKey(provCfg.Type) && provCfg.APIKey == "" {
			r.skipped[name] = ErrMissingAPIKey
			if r.logger != nil {
				r.logger.Warn("skipping LLM provider without API key", "name", name, "type", provCfg.Type)
			}
			continue
		}

		existing, hasExisting := r.llmConfigs[name]
		if hasExisting && reflect.DeepEqual(existing, provCfg) && r.llmClients[name] != nil {
			wantLLM[name] = true
			continue
		}
		client := createLLMClient(provCfg)
		if client == nil {
			r.skipped[name] = fmt.Errorf("%w: unknown provider type %q", ErrNotConfigured, provCfg.Type)
			if r.logger != nil {
				r.logger.Warn("unknown LLM provider type", "name", name, "type", provCfg.Type)
			}
			continue
		}
		wantLLM[name] = true
		r.llmClients[name] = client
		r.llmConfigs[name] = provCfg
		if r.logger != nil {
			if hasExisting {
				r.logger.Info("updated LLM client", "name", name, "type", provCfg.Type)
			} else {
				r.logger.Info("registered LLM client", "name", name, "type", provCfg.Type)
			}
		}
	}

	for name, provCfg := range cfg.OCRProviders {
		if !provCfg.Enabled {
			continue
		}
		if RequiresAPIKey(provCfg.Type) && provCfg.APIKey == "" {
			if r.logger != nil {
				r.logger.Warn("skipping OCR provider without API key", "name", name, "type", provCfg.Type)
			}
			continue
		}

		existing, hasExisting := r.ocrConfigs[name]
		if hasExisting && reflect.DeepEqual(existing, provCfg) && r.ocrProviders[name] != nil {
			wantOCR[name] = true
			continue
		}
		provider := createOCRProvider(provCfg)
		if provider == nil {
			if r.logger != nil {
				r.logger.Warn("unknown OCR provider type", "name", name, "type", provCfg.Type)
			}
			continue
		}
		wantOCR[name] = true
		r.ocrProviders[name] = provider
		r.ocrConfigs[name] = provCfg
		if r.logger != nil {
			if hasExisting {
				r.logger.Info("updated OCR provider", "name", name, "type", provCfg.Type)
			} else {
				r.logger.Info("registered OCR provider", "name", name, "type", provCfg.Type)
			}
		}
	}

	// Remove providers that are no longer configured
	for name := range r.llmClients {
		if !wantLLM[name] {
			delete(r.llmClients, name)
			delete(r.llmConfigs, name)
			if r.logger != nil {
				r.logger.Info("unregistered LLM client", "name", name)
			}
		}
	}
	for name := range r.ocrProviders {
		if !wantOCR[name] {
			delete(r.ocrProviders, name)
			delete(r.ocrConfigs, name)
			if r.logger != nil {
				r.logger.Info("unregistered OCR provider", "name", name)
			}
		}
	}
}

// createLLMClient creates an LLM client based on provider type.
func createLLMClient(cfg LLMProviderConfig) LLMClient {
	switch cfg.Type {
	case OpenAIName:
		return NewOpenAIClient(OpenAIConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			Timeout:      cfg.Timeout,
			RateLimit:    cfg.RateLimit,
		})
	case OllamaName:
		return NewOllamaClient(OllamaConfig{
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			Timeout:      cfg.Timeout,
			RateLimit:    cfg.RateLimit,
		})
	case AnthropicName:
		return NewAnthropicClient(AnthropicConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			Timeout:      cfg.Timeout,
			RateLimit:    cfg.RateLimit,
		})
	case GeminiName:
		return NewGeminiClient(GeminiConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			Timeout:      cfg.Timeout,
			RateLimit:    cfg.RateLimit,
		})
	case MockClientName:
		return NewMockClient()
	default:
		return nil
	}
}

// createOCRProvider creates an OCR provider based on provider type.
func createOCRProvider(cfg OCRProviderConfig) DocumentOCR {
	switch cfg.Type {
	case MistralOCRName:
		return NewMistralOCRClient(MistralOCRConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			RateLimit: cfg.RateLimit,
		})
	case MockClientName:
		return NewMockOCRProvider()
	default:
		if f, ok := lookupOCRFactory(cfg.Type); ok {
			return f(cfg)
		}
		return nil
	}
}
