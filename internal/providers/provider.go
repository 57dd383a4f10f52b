package providers

import (
	"context"
	"time"
)

// LLMClient is the chat capability every language model backend provides.
// Callers build prompts once and stay unaware of the transport behind it.
type LLMClient interface {
	// Chat sends the messages and returns the model's reply.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error)

	// Name returns the client identifier (e.g., "openai").
	Name() string
}

// DocumentOCR recognizes text in a whole document by rendering its pages.
// Separate from LLMClient because it consumes raw PDF bytes and returns a
// single text blob rather than a chat reply.
type DocumentOCR interface {
	// Name returns the provider identifier (e.g., "tesseract").
	Name() string

	// ProcessDocument returns the recognized text of every page as one blob.
	ProcessDocument(ctx context.Context, pdf []byte) (*OCRResult, error)
}

// Role names used in chat messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// SystemMessage is a convenience constructor for a system message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage is a convenience constructor for a user message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// ChatRequest is a request to an LLM.
type ChatRequest struct {
	// Required
	Messages []Message `json:"messages"`

	// Model selection (uses client default if empty)
	Model string `json:"model,omitempty"`

	// Generation parameters
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`

	// Request tracking
	RequestID string `json:"-"`
}

// ChatResult is the complete response from an LLM call.
type ChatResult struct {
	// Content is the reply text. Empty when the model produced nothing.
	Content string `json:"content"`

	// Token counts
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`

	// Timing
	ExecutionTime time.Duration `json:"execution_time"`

	// Provider info
	Provider  string `json:"provider"`
	ModelUsed string `json:"model_used"`

	RequestID string `json:"request_id"`
}

// OCRResult is the response from an OCR provider.
type OCRResult struct {
	Text string `json:"text"`

	// PageCount is the number of pages rendered, when known.
	PageCount int `json:"page_count,omitempty"`

	// Metadata from provider (model, usage, etc.)
	Metadata map[string]any `json:"metadata,omitempty"`

	ExecutionTime time.Duration `json:"execution_time"`
}

// splitSystem separates system messages from the conversation. Several SDKs
// take the system prompt as a dedicated parameter.
func splitSystem(messages []Message) (system string, rest []Message) {
	rest = make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}
