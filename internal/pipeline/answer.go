package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackzampolin/docqa/internal/pagetext"
	"github.com/jackzampolin/docqa/internal/prompts/answer"
	"github.com/jackzampolin/docqa/internal/providers"
)

// DefaultPageContextChars caps the text of each page in the Q&A context.
const DefaultPageContextChars = 2000

var citationPattern = regexp.MustCompile(`\[p\.(\d+)\]`)

// Answer is a model answer with the page numbers it cites.
type Answer struct {
	Text      string `json:"answer"`
	Citations []int  `json:"citations"`
}

// Answerer answers questions from page-tagged context.
type Answerer struct {
	llm               providers.LLMClient
	pageContextChars  int
	restrictCitations bool
}

// AnswererConfig configures an Answerer.
type AnswererConfig struct {
	PageContextChars int
	// RestrictCitations drops citations of pages that were not in the context.
	RestrictCitations bool
}

// NewAnswerer creates an answerer over llm.
func NewAnswerer(llm providers.LLMClient, cfg AnswererConfig) *Answerer {
	if cfg.PageContextChars <= 0 {
		cfg.PageContextChars = DefaultPageContextChars
	}
	return &Answerer{
		llm:               llm,
		pageContextChars:  cfg.PageContextChars,
		restrictCitations: cfg.RestrictCitations,
	}
}

// Answer asks the backend and extracts the [p.N] citations from its reply.
func (a *Answerer) Answer(ctx context.Context, question string, pages []pagetext.PageText) (*Answer, error) {
	user, err := answer.UserPrompt(question, BuildContext(pages, a.pageContextChars))
	if err != nil {
		return nil, fmt.Errorf("failed to render answer prompt: %w", err)
	}

	result, err := a.llm.Chat(ctx, &providers.ChatRequest{
		Messages: []providers.Message{
			providers.SystemMessage(answer.SystemPrompt()),
			providers.UserMessage(user),
		},
	})
	if err != nil {
		return nil, err
	}

	citations := ExtractCitations(result.Content)
	if a.restrictCitations {
		citations = restrictTo(citations, pages)
	}
	return &Answer{Text: result.Content, Citations: citations}, nil
}

// BuildContext renders pages as "Page N:\n<text>" blocks separated by a blank
// line, each page cut to perPage characters.
func BuildContext(pages []pagetext.PageText, perPage int) string {
	blocks := make([]string, 0, len(pages))
	for _, p := range pages {
		blocks = append(blocks, fmt.Sprintf("Page %d:\n%s", p.PageNumber, Truncate(p.Text, perPage)))
	}
	return strings.Join(blocks, "\n\n")
}

// ExtractCitations returns the distinct page numbers cited as [p.N], in order
// of first appearance. The result is never nil.
func ExtractCitations(text string) []int {
	out := []int{}
	seen := make(map[int]bool)
	for _, m := range citationPattern.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue // out of int range
		}
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

func restrictTo(citations []int, pages []pagetext.PageText) []int {
	valid := make(map[int]bool, len(pages))
	for _, p := range pages {
		valid[p.PageNumber] = true
	}
	out := []int{}
	for _, n := range citations {
		if valid[n] {
			out = append(out, n)
		}
	}
	return out
}
