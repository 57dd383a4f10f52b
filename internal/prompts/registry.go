package prompts

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Registry holds the embedded prompts by key.
type Registry struct {
	embedded map[string]EmbeddedPrompt
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewRegistry creates a new prompt registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		embedded: make(map[string]EmbeddedPrompt),
		logger:   logger,
	}
}

// Register registers an embedded prompt.
func (r *Registry) Register(prompt EmbeddedPrompt) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Compute hash if not provided
	if prompt.Hash == "" {
		prompt.Hash = HashText(prompt.Text)
	}

	// Extract variables if not provided
	if prompt.Variables == nil {
		prompt.Variables = ExtractVariables(prompt.Text)
	}

	r.embedded[prompt.Key] = prompt
	r.logger.Debug("registered embedded prompt", "key", prompt.Key, "vars", prompt.Variables)
}

// Get returns the prompt registered under key.
func (r *Registry) Get(key string) (*EmbeddedPrompt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.embedded[key]
	if !ok {
		return nil, fmt.Errorf("prompt not found: %s", key)
	}
	return &p, nil
}

// All returns all registered prompts sorted by key.
func (r *Registry) All() []EmbeddedPrompt {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]EmbeddedPrompt, 0, len(r.embedded))
	for _, p := range r.embedded {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result
}
