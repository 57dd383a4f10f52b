package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	OpenAIName         = "openai"
	OpenAIDefaultModel = "gpt-4o-mini"
)

// OpenAIConfig holds configuration for the OpenAI chat client.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string // Optional; any OpenAI-compatible endpoint
	DefaultModel string
	Timeout      time.Duration
	RateLimit    float64 // Requests per second (0 = unlimited)
	HTTPClient   *http.Client
}

// OpenAIClient implements LLMClient using the OpenAI chat completions API.
type OpenAIClient struct {
	apiKey       string
	baseURL      string
	defaultModel string
	rateLimit    float64
	limiter      *RateLimiter
	client       openai.Client
}

// NewOpenAIClient creates a new OpenAI chat client. The SDK's own retry loop
// is disabled: a failed call fails the request.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = OpenAIDefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIClient{
		apiKey:       cfg.APIKey,
		baseURL:      cfg.BaseURL,
		defaultModel: cfg.DefaultModel,
		rateLimit:    cfg.RateLimit,
		limiter:      NewRateLimiter(cfg.RateLimit),
		client:       openai.NewClient(opts...),
	}
}

// Name returns the client identifier.
func (c *OpenAIClient) Name() string {
	return OpenAIName
}

// Limiter exposes the client's rate limiter for status reporting.
func (c *OpenAIClient) Limiter() *RateLimiter {
	return c.limiter
}

// Chat sends a chat completion request.
func (c *OpenAIClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingAPIKey, OpenAIName)
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

	params := chatCompletionParams(model, req)
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, mapOpenAIError("OpenAI", err)
	}
	return chatResultFrom(resp, OpenAIName, requestID, start)
}

// chatCompletionParams converts a ChatRequest into the chat completions
// wire shape shared by OpenAI and OpenAI-compatible servers. Token caps
// are left to the caller since servers disagree on the field name.
func chatCompletionParams(model string, req *ChatRequest) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)),
	}
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			params.Messages = append(params.Messages, openai.SystemMessage(m.Content))
		case RoleAssistant:
			params.Messages = append(params.Messages, openai.AssistantMessage(m.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(m.Content))
		}
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	return params
}

func chatResultFrom(resp *openai.ChatCompletion, provider, requestID string, start time.Time) (*ChatResult, error) {
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", ErrMalformedResponse)
	}
	return &ChatResult{
		Content:          resp.Choices[0].Message.Content,
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
		ExecutionTime:    time.Since(start),
		Provider:         provider,
		ModelUsed:        resp.Model,
		RequestID:        requestID,
	}, nil
}

// mapOpenAIError classifies an SDK error; label names the server in messages.
func mapOpenAIError(label string, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(apiErr.StatusCode)
		}
		return classifyStatus(label, apiErr.StatusCode, msg)
	}
	return classifyTransport(label, err)
}

// Verify interface
var _ LLMClient = (*OpenAIClient)(nil)
