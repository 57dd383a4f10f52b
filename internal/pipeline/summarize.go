package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackzampolin/docqa/internal/prompts/summary"
	"github.com/jackzampolin/docqa/internal/providers"
)

// DefaultSummaryMaxChars caps the text sent for summarization.
const DefaultSummaryMaxChars = 20000

// Summarizer produces a bullet-point summary of document text.
type Summarizer struct {
	llm      providers.LLMClient
	maxChars int
}

// NewSummarizer creates a summarizer over llm. maxChars <= 0 uses the default.
func NewSummarizer(llm providers.LLMClient, maxChars int) *Summarizer {
	if maxChars <= 0 {
		maxChars = DefaultSummaryMaxChars
	}
	return &Summarizer{llm: llm, maxChars: maxChars}
}

// Summarize sends the first maxChars characters of fullText to the backend
// and returns the trimmed reply.
func (s *Summarizer) Summarize(ctx context.Context, fullText string) (string, error) {
	user, err := summary.UserPrompt(Truncate(fullText, s.maxChars))
	if err != nil {
		return "", fmt.Errorf("failed to render summary prompt: %w", err)
	}

	result, err := s.llm.Chat(ctx, &providers.ChatRequest{
		Messages: []providers.Message{
			providers.SystemMessage(summary.SystemPrompt()),
			providers.UserMessage(user),
		},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(result.Content), nil
}

// Truncate returns the first n characters of s. Multi-byte characters are
// never split.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
