// Package summary holds the summarization prompts.
package summary

import (
	_ "embed"

	"github.com/jackzampolin/docqa/internal/prompts"
)

//go:embed system.tmpl
var systemPrompt string

//go:embed user.tmpl
var userPromptTmpl string

var userTemplate = prompts.MustParse(UserPromptKey, userPromptTmpl)

// SystemPrompt returns the system prompt for summarization.
func SystemPrompt() string {
	return systemPrompt
}

// UserPrompt builds the user prompt with the (already truncated) text appended.
func UserPrompt(text string) (string, error) {
	return prompts.Render(userTemplate, struct{ Text string }{Text: text})
}

// Prompt keys
const (
	SystemPromptKey = "summary.system"
	UserPromptKey   = "summary.user"
)

// RegisterPrompts registers the summary prompts with the registry.
func RegisterPrompts(r *prompts.Registry) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         SystemPromptKey,
		Text:        systemPrompt,
		Description: "Summarization system prompt - fixes the assistant's role",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserPromptKey,
		Text:        userPromptTmpl,
		Description: "Summarization user prompt - 5-8 bullet points followed by the document text",
	})
}
