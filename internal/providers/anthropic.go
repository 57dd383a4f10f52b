package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"
)

const (
	AnthropicName         = "anthropic"
	AnthropicDefaultModel = "claude-sonnet-4-5"

	// anthropicMaxTokens is required by the Messages API.
	anthropicMaxTokens = 4096
)

// AnthropicConfig holds configuration for the Anthropic Messages client.
type AnthropicConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	Timeout      time.Duration
	RateLimit    float64
}

// AnthropicClient implements LLMClient using the Anthropic Messages API.
type AnthropicClient struct {
	apiKey       string
	defaultModel string
	rateLimit    float64
	limiter      *RateLimiter
	client       anthropic.Client
}

// NewAnthropicClient creates a new Anthropic client.
func NewAnthropicClient(cfg AnthropicConfig) *AnthropicClient {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = AnthropicDefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicClient{
		apiKey:       cfg.APIKey,
		defaultModel: cfg.DefaultModel,
		rateLimit:    cfg.RateLimit,
		limiter:      NewRateLimiter(cfg.RateLimit),
		client:       anthropic.NewClient(opts...),
	}
}

// Name returns the client identifier.
func (c *AnthropicClient) Name() string {
	return AnthropicName
}

// Chat sends a Messages API request. System messages go in the dedicated
// system parameter.
func (c *AnthropicClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingAPIKey, AnthropicName)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicMaxTokens
	}

	system, rest := splitSystem(req.Messages)
	messages := make([]anthropic.MessageParam, 0, len(rest))
	for _, m := range rest {
		if m.Role == RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		} else {
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, mapAnthropicError(err)
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	return &ChatResult{
		Content:          content.String(),
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
		TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		ExecutionTime:    time.Since(start),
		Provider:         AnthropicName,
		ModelUsed:        string(resp.Model),
		RequestID:        requestID,
	}, nil
}

func mapAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return classifyStatus("Anthropic", apiErr.StatusCode, apiErr.Error())
	}
	return classifyTransport("Anthropic", err)
}

// Verify interface
var _ LLMClient = (*AnthropicClient)(nil)
