package providers

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const MockClientName = "mock"

// MockClient is an LLMClient for testing.
type MockClient struct {
	// Configurable behavior
	Latency      time.Duration
	ShouldFail   bool
	FailAfter    int   // Fail after N requests (0 = never)
	Err          error // Returned instead of the generic failure when set
	ResponseText string

	// State
	requestCount atomic.Int64
	mu           sync.Mutex
	requests     []ChatRequest
}

// NewMockClient creates a new mock client with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{
		ResponseText: "mock response",
	}
}

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return MockClientName
}

// Chat records the request and returns the configured reply.
func (c *MockClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()
	count := c.requestCount.Add(1)

	c.mu.Lock()
	c.requests = append(c.requests, *req)
	c.mu.Unlock()

	if c.Err != nil {
		return nil, c.Err
	}
	if c.ShouldFail {
		return nil, fmt.Errorf("mock client configured to fail")
	}
	if c.FailAfter > 0 && int(count) > c.FailAfter {
		return nil, fmt.Errorf("mock client failed after %d requests", c.FailAfter)
	}

	// Simulate latency
	if c.Latency > 0 {
		select {
		case <-time.After(c.Latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	// Simulate token counting
	promptTokens := 0
	for _, m := range req.Messages {
		promptTokens += len(m.Content) / 4 // Rough estimate
	}
	completionTokens := len(c.ResponseText) / 4

	return &ChatResult{
		Content:          c.ResponseText,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
		ExecutionTime:    time.Since(start),
		Provider:         MockClientName,
		ModelUsed:        req.Model,
		RequestID:        fmt.Sprintf("mock-%d", count),
	}, nil
}

// RequestCount returns the number of requests made.
func (c *MockClient) RequestCount() int64 {
	return c.requestCount.Load()
}

// Requests returns a copy of every request received so far.
func (c *MockClient) Requests() []ChatRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ChatRequest, len(c.requests))
	copy(out, c.requests)
	return out
}

// LastRequest returns the most recent request, or nil.
func (c *MockClient) LastRequest() *ChatRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.requests) == 0 {
		return nil
	}
	req := c.requests[len(c.requests)-1]
	return &req
}

// Reset resets the request counter and recorded requests.
func (c *MockClient) Reset() {
	c.requestCount.Store(0)
	c.mu.Lock()
	c.requests = nil
	c.mu.Unlock()
}

// Verify interface
var _ LLMClient = (*MockClient)(nil)

// MockOCRProvider is a DocumentOCR for testing.
type MockOCRProvider struct {
	ProviderName string
	Latency      time.Duration
	ShouldFail   bool
	Err          error
	ResponseText string

	requestCount atomic.Int64
}

// NewMockOCRProvider creates a new mock OCR provider.
func NewMockOCRProvider() *MockOCRProvider {
	return &MockOCRProvider{
		ProviderName: "mock-ocr",
		ResponseText: "mock OCR text",
	}
}

// Name returns the provider identifier.
func (p *MockOCRProvider) Name() string {
	return p.ProviderName
}

// ProcessDocument returns the configured text regardless of input.
func (p *MockOCRProvider) ProcessDocument(ctx context.Context, pdf []byte) (*OCRResult, error) {
	start := time.Now()
	p.requestCount.Add(1)

	if p.Err != nil {
		return nil, p.Err
	}
	if p.ShouldFail {
		return nil, fmt.Errorf("mock OCR provider configured to fail")
	}

	if p.Latency > 0 {
		select {
		case <-time.After(p.Latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return &OCRResult{
		Text:          p.ResponseText,
		ExecutionTime: time.Since(start),
		Metadata: map[string]any{
			"input_bytes": len(pdf),
		},
	}, nil
}

// RequestCount returns the number of requests made.
func (p *MockOCRProvider) RequestCount() int64 {
	return p.requestCount.Load()
}

// Verify interface
var _ DocumentOCR = (*MockOCRProvider)(nil)
