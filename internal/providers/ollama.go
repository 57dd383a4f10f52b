package providers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	OllamaName         = "ollama"
	OllamaBaseURL      = "http://localhost:11434"
	OllamaDefaultModel = "llama3.1"
)

// OllamaConfig holds configuration for a local Ollama model server.
type OllamaConfig struct {
	BaseURL      string
	DefaultModel string
	Timeout      time.Duration
	RateLimit    float64 // Requests per second (0 = unlimited)
	HTTPClient   *http.Client
}

// OllamaClient implements LLMClient against Ollama's OpenAI-compatible
// /v1 endpoint.
type OllamaClient struct {
	baseURL      string
	defaultModel string
	rateLimit    float64
	limiter      *RateLimiter
	client       openai.Client
}

// NewOllamaClient creates a new Ollama client. Ollama ignores the API key,
// but the SDK sends one on every request.
func NewOllamaClient(cfg OllamaConfig) *OllamaClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = OllamaBaseURL
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = OllamaDefaultModel
	}
	if cfg.Timeout == 0 {
		// Local models on CPU are slow.
		cfg.Timeout = 10 * time.Minute
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	return &OllamaClient{
		baseURL:      baseURL,
		defaultModel: cfg.DefaultModel,
		rateLimit:    cfg.RateLimit,
		limiter:      NewRateLimiter(cfg.RateLimit),
		client: openai.NewClient(
			option.WithBaseURL(baseURL+"/v1/"),
			option.WithAPIKey(OllamaName),
			option.WithHTTPClient(httpClient),
			option.WithMaxRetries(0),
		),
	}
}

// Name returns the client identifier.
func (c *OllamaClient) Name() string {
	return OllamaName
}

// Limiter exposes the client's rate limiter for status reporting.
func (c *OllamaClient) Limiter() *RateLimiter {
	return c.limiter
}

// Chat sends a non-streaming chat completion request.
func (c *OllamaClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
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
		// Ollama maps max_tokens onto num_predict.
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, mapOpenAIError("Ollama", err)
	}
	return chatResultFrom(resp, OllamaName, requestID, start)
}

// Verify interface
var _ LLMClient = (*OllamaClient)(nil)
