package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

const (
	GeminiName         = "gemini"
	GeminiDefaultModel = "gemini-2.0-flash"
)

// GeminiConfig holds configuration for the Gemini API client.
type GeminiConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	Timeout      time.Duration
	RateLimit    float64
}

// GeminiClient implements LLMClient using the Gemini API.
type GeminiClient struct {
	apiKey       string
	defaultModel string
	rateLimit    float64
	limiter      *RateLimiter
	client       *genai.Client
	initErr      error
}

// NewGeminiClient creates a new Gemini client. Client construction does not
// touch the network; a construction failure is reported on first use.
func NewGeminiClient(cfg GeminiConfig) *GeminiClient {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = GeminiDefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	c := &GeminiClient{
		apiKey:       cfg.APIKey,
		defaultModel: cfg.DefaultModel,
		rateLimit:    cfg.RateLimit,
		limiter:      NewRateLimiter(cfg.RateLimit),
	}
	if cfg.APIKey == "" {
		return c
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	c.client, c.initErr = genai.NewClient(context.Background(), clientCfg)
	return c
}

// Name returns the client identifier.
func (c *GeminiClient) Name() string {
	return GeminiName
}

// Chat sends a GenerateContent request.
func (c *GeminiClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingAPIKey, GeminiName)
	}
	if c.initErr != nil {
		return nil, fmt.Errorf("%w: failed to initialize genai client: %w", ErrNotConfigured, c.initErr)
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

	system, rest := splitSystem(req.Messages)
	contents := make([]*genai.Content, 0, len(rest))
	for _, m := range rest {
		role := genai.Role(genai.RoleUser)
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	config := &genai.GenerateContentConfig{}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if req.Temperature > 0 {
		config.Temperature = genai.Ptr(float32(req.Temperature))
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, mapGeminiError(err)
	}

	var content strings.Builder
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part != nil {
				content.WriteString(part.Text)
			}
		}
	}

	result := &ChatResult{
		Content:       content.String(),
		ExecutionTime: time.Since(start),
		Provider:      GeminiName,
		ModelUsed:     resp.ModelVersion,
		RequestID:     requestID,
	}
	if resp.UsageMetadata != nil {
		result.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		result.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		result.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return result, nil
}

func mapGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus("Gemini", apiErr.Code, apiErr.Message)
	}
	return classifyTransport("Gemini", err)
}

// Verify interface
var _ LLMClient = (*GeminiClient)(nil)
