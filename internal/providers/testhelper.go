package providers

import (
	"os"
)

// TestConfig holds provider configurations loaded from environment variables.
// This allows tests to use the same configuration pattern as production.
type TestConfig struct {
	OpenAIAPIKey    string
	AnthropicAPIKey string
	GeminiAPIKey    string
	MistralAPIKey   string
	OllamaURL       string
}

// LoadTestConfig loads provider API keys from environment variables.
// Returns a TestConfig with whatever keys are available.
func LoadTestConfig() TestConfig {
	return TestConfig{
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		MistralAPIKey:   os.Getenv("MISTRAL_API_KEY"),
		OllamaURL:       os.Getenv("OLLAMA_URL"),
	}
}

// HasOpenAI returns true if an OpenAI API key is configured.
func (c TestConfig) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

// HasMistral returns true if Mistral API key is configured.
func (c TestConfig) HasMistral() bool {
	return c.MistralAPIKey != ""
}

// HasOllama returns true if a local model server URL is configured.
func (c TestConfig) HasOllama() bool {
	return c.OllamaURL != ""
}

// NewMistralOCRClient creates a Mistral OCR client from test config.
// Returns nil if not configured.
func (c TestConfig) NewMistralOCRClient() *MistralOCRClient {
	if !c.HasMistral() {
		return nil
	}
	return NewMistralOCRClient(MistralOCRConfig{
		APIKey: c.MistralAPIKey,
	})
}

// ToRegistryConfig converts test config to a RegistryConfig for the provider registry.
// Only includes providers that have API keys configured. The first cloud
// backend found becomes the active one, falling back to ollama.
func (c TestConfig) ToRegistryConfig() RegistryConfig {
	cfg := RegistryConfig{
		OCRProviders: make(map[string]OCRProviderConfig),
		LLMProviders: make(map[string]LLMProviderConfig),
	}

	keys := []struct {
		name string
		key  string
	}{
		{OpenAIName, c.OpenAIAPIKey},
		{AnthropicName, c.AnthropicAPIKey},
		{GeminiName, c.GeminiAPIKey},
	}
	for _, k := range keys {
		if k.key == "" {
			continue
		}
		cfg.LLMProviders[k.name] = LLMProviderConfig{
			Type:    k.name,
			APIKey:  k.key,
			Enabled: true,
		}
		if cfg.Backend == "" {
			cfg.Backend = k.name
		}
	}

	if c.HasOllama() {
		cfg.LLMProviders[OllamaName] = LLMProviderConfig{
			Type:    OllamaName,
			BaseURL: c.OllamaURL,
			Enabled: true,
		}
		if cfg.Backend == "" {
			cfg.Backend = OllamaName
		}
	}

	if c.HasMistral() {
		cfg.OCRProviders["mistral"] = OCRProviderConfig{
			Type:      MistralOCRName,
			APIKey:    c.MistralAPIKey,
			RateLimit: 6,
			Enabled:   true,
		}
		cfg.OCR = "mistral"
	}

	return cfg
}
