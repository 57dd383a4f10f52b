// Package answer holds the citation-aware question answering prompts.
package answer

import (
	_ "embed"

	"github.com/jackzampolin/docqa/internal/prompts"
)

//go:embed system.tmpl
var systemPrompt string

//go:embed user.tmpl
var userPromptTmpl string

var userTemplate = prompts.MustParse(UserPromptKey, userPromptTmpl)

// SystemPrompt returns the system prompt instructing [p.N] citations.
func SystemPrompt() string {
	return systemPrompt
}

// UserPrompt renders "Question: <q>\n\nDocument:\n<context>".
func UserPrompt(question, context string) (string, error) {
	return prompts.Render(userTemplate, struct {
		Question string
		Context  string
	}{Question: question, Context: context})
}

// Prompt keys
const (
	SystemPromptKey = "answer.system"
	UserPromptKey   = "answer.user"
)

// RegisterPrompts registers the answer prompts with the registry.
func RegisterPrompts(r *prompts.Registry) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         SystemPromptKey,
		Text:        systemPrompt,
		Description: "Q&A system prompt - answer from context only, cite pages as [p.N]",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserPromptKey,
		Text:        userPromptTmpl,
		Description: "Q&A user prompt - question followed by the page-tagged document",
	})
}
