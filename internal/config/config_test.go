package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Backend != "openai" {
		t.Errorf("expected default backend openai, got %s", cfg.Backend)
	}
	if cfg.LLMProviders["openai"].APIKey != "${OPENAI_API_KEY}" {
		t.Error("expected openai API key placeholder")
	}
	if cfg.Extraction.MinTextLength != 80 {
		t.Errorf("MinTextLength = %d, want 80", cfg.Extraction.MinTextLength)
	}
	if cfg.Summary.MaxChars != 20000 {
		t.Errorf("MaxChars = %d, want 20000", cfg.Summary.MaxChars)
	}
	if cfg.QA.PageContextChars != 2000 {
		t.Errorf("PageContextChars = %d, want 2000", cfg.QA.PageContextChars)
	}
	if cfg.QA.RestrictCitations {
		t.Error("RestrictCitations should default to false")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		t.Setenv("TEST_API_KEY", "secret123")

		result := ResolveEnvVars("${TEST_API_KEY}")
		if result != "secret123" {
			t.Errorf("expected secret123, got %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}")
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		result := ResolveEnvVars("literal-value")
		if result != "literal-value" {
			t.Errorf("expected literal-value, got %s", result)
		}
	})

	t.Run("expands inside a larger string", func(t *testing.T) {
		t.Setenv("TEST_HOST", "models.internal")

		result := ResolveEnvVars("http://${TEST_HOST}:11434")
		if result != "http://models.internal:11434" {
			t.Errorf("unexpected expansion: %s", result)
		}
	})
}

func TestConfig_ToProviderRegistryConfig(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-123")

	cfg := DefaultConfig()
	cfg.LLMProviders["openai"] = LLMProviderCfg{
		Type:           "openai",
		APIKey:         "${TEST_OPENAI_KEY}",
		TimeoutSeconds: 30,
		Enabled:        true,
	}

	rc := cfg.ToProviderRegistryConfig()
	if rc.Backend != "openai" {
		t.Errorf("Backend = %q, want openai", rc.Backend)
	}
	if rc.OCR != "tesseract" {
		t.Errorf("OCR = %q, want tesseract", rc.OCR)
	}
	got := rc.LLMProviders["openai"]
	if got.APIKey != "sk-123" {
		t.Errorf("expected resolved key sk-123, got %s", got.APIKey)
	}
	if got.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", got.Timeout)
	}
	if rc.OCRProviders["tesseract"].DPI != 300 {
		t.Errorf("tesseract DPI = %d, want 300", rc.OCRProviders["tesseract"].DPI)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Backend = "nowhere" },
			wantErr: "backend",
		},
		{
			name:    "unknown ocr provider",
			mutate:  func(c *Config) { c.OCR = "nowhere" },
			wantErr: "ocr",
		},
		{
			name:   "ocr disabled",
			mutate: func(c *Config) { c.OCR = "" },
		},
		{
			name:    "zero threshold",
			mutate:  func(c *Config) { c.Extraction.MinTextLength = 0 },
			wantErr: "invalid config",
		},
		{
			name:    "negative summary cap",
			mutate:  func(c *Config) { c.Summary.MaxChars = -1 },
			wantErr: "invalid config",
		},
		{
			name:    "unknown provider type",
			mutate:  func(c *Config) { c.LLMProviders["openai"] = LLMProviderCfg{Type: "openrouter"} },
			wantErr: "invalid config",
		},
		{
			name:    "gcs without bucket",
			mutate:  func(c *Config) { c.Storage.Type = "gcs" },
			wantErr: "invalid config",
		},
		{
			name: "gcs with bucket",
			mutate: func(c *Config) {
				c.Storage.Type = "gcs"
				c.Storage.Bucket = "docqa-uploads"
			},
		},
		{
			name:    "unknown storage type",
			mutate:  func(c *Config) { c.Storage.Type = "s3" },
			wantErr: "invalid config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configFile, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return configFile
}

func TestNewManager(t *testing.T) {
	t.Run("loads from config file", func(t *testing.T) {
		configFile := writeConfig(t, `
backend: ollama
summary:
  max_chars: 5000
`)

		mgr, err := NewManager(configFile)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		cfg := mgr.Get()
		if cfg.Backend != "ollama" {
			t.Errorf("expected ollama, got %s", cfg.Backend)
		}
		if cfg.Summary.MaxChars != 5000 {
			t.Errorf("expected 5000, got %d", cfg.Summary.MaxChars)
		}
		if cfg.QA.PageContextChars != 2000 {
			t.Errorf("expected default 2000, got %d", cfg.QA.PageContextChars)
		}
		if mgr.ConfigFileUsed() != configFile {
			t.Errorf("ConfigFileUsed() = %s, want %s", mgr.ConfigFileUsed(), configFile)
		}
	})

	t.Run("environment overrides file", func(t *testing.T) {
		configFile := writeConfig(t, "backend: openai\n")
		t.Setenv("DOCQA_BACKEND", "ollama")
		t.Setenv("DOCQA_EXTRACTION_MIN_TEXT_LENGTH", "120")

		mgr, err := NewManager(configFile)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		cfg := mgr.Get()
		if cfg.Backend != "ollama" {
			t.Errorf("expected env override ollama, got %s", cfg.Backend)
		}
		if cfg.Extraction.MinTextLength != 120 {
			t.Errorf("expected env override 120, got %d", cfg.Extraction.MinTextLength)
		}
	})

	t.Run("rejects invalid config", func(t *testing.T) {
		configFile := writeConfig(t, "backend: nowhere\n")

		if _, err := NewManager(configFile); err == nil {
			t.Error("expected error for undefined backend")
		}
	})

	t.Run("rejects unreadable file", func(t *testing.T) {
		configFile := writeConfig(t, "backend: [unclosed\n")

		if _, err := NewManager(configFile); err == nil {
			t.Error("expected error for malformed YAML")
		}
	})
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager() on written defaults error = %v", err)
	}
	cfg := mgr.Get()
	if cfg.Backend != "openai" {
		t.Errorf("Backend = %s, want openai", cfg.Backend)
	}
	if cfg.Ollama.ContainerName != "docqa-ollama" {
		t.Errorf("ContainerName = %s, want docqa-ollama", cfg.Ollama.ContainerName)
	}
}

func TestManager_OnChange_Multiple(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "backend: openai\n"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	// Register multiple callbacks
	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})

	mgr.mu.RLock()
	if len(mgr.callbacks) != 3 {
		t.Errorf("expected 3 callbacks, got %d", len(mgr.callbacks))
	}
	mgr.mu.RUnlock()
}

func TestManager_Get_ThreadSafe(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "backend: openai\n"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	// Call Get concurrently to verify no race conditions
	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				cfg := mgr.Get()
				_ = cfg.Backend
			}
			done <- struct{}{}
		}()
	}

	// Wait for all goroutines
	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestManager_WatchConfig(t *testing.T) {
	configFile := writeConfig(t, "backend: openai\n")

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	// Verify initial value
	if mgr.Get().Backend != "openai" {
		t.Errorf("initial value mismatch: expected openai, got %s", mgr.Get().Backend)
	}

	// Track callback invocations
	var callbackCount atomic.Int32
	var lastValue atomic.Value

	mgr.OnChange(func(cfg *Config) {
		callbackCount.Add(1)
		lastValue.Store(cfg.Backend)
	})

	// Start watching
	mgr.WatchConfig()

	// Give fsnotify time to set up the watcher
	time.Sleep(100 * time.Millisecond)

	// Update the config file
	if err := os.WriteFile(configFile, []byte("backend: ollama\n"), 0644); err != nil {
		t.Fatalf("failed to write updated config file: %v", err)
	}

	// Wait for the watcher to detect the change (fsnotify is async)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if callbackCount.Load() > 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if callbackCount.Load() == 0 {
		t.Error("callback was not invoked after config file change")
	}

	// Verify the config was updated
	if got := mgr.Get().Backend; got != "ollama" {
		t.Errorf("config not updated: expected ollama, got %s", got)
	}

	// Verify callback received the updated value
	if v := lastValue.Load(); v != "ollama" {
		t.Errorf("callback received wrong value: expected ollama, got %v", v)
	}
}
