// Package prompts holds the embedded prompt templates and a registry that
// lists them.
//
// Embedded .tmpl files in code are the source of truth. Each prompt package
// (summary, answer) renders its own templates and registers them here so the
// server can expose exactly what is sent to the model.
package prompts

// EmbeddedPrompt represents a prompt loaded from an embedded .tmpl file.
type EmbeddedPrompt struct {
	Key         string   `json:"key"`                   // Hierarchical key: summary.system
	Text        string   `json:"text"`                  // The prompt text (Go template)
	Description string   `json:"description,omitempty"` // Human-readable description
	Variables   []string `json:"variables,omitempty"`   // Extracted template variables
	Hash        string   `json:"hash"`                  // SHA256 hash of the text for change detection
}
