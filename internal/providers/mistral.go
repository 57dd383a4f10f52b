package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	MistralOCRName    = "mistral-ocr"
	MistralOCRBaseURL = "https://api.mistral.ai/v1"
	MistralOCRModel   = "mistral-ocr-latest"
)

// MistralOCRConfig holds configuration for the Mistral OCR client.
type MistralOCRConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	Timeout   time.Duration
	RateLimit float64 // Requests per second (default: 6.0)
}

// MistralOCRClient implements DocumentOCR using the Mistral OCR API. The
// whole PDF is sent inline as a data URI; Mistral renders the pages.
type MistralOCRClient struct {
	apiKey    string
	baseURL   string
	model     string
	rateLimit float64
	limiter   *RateLimiter
	client    *http.Client
}

// NewMistralOCRClient creates a new Mistral OCR client.
func NewMistralOCRClient(cfg MistralOCRConfig) *MistralOCRClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = MistralOCRBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = MistralOCRModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 300 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 6.0 // Mistral OCR default rate limit
	}

	return &MistralOCRClient{
		apiKey:    cfg.APIKey,
		baseURL:   cfg.BaseURL,
		model:     cfg.Model,
		rateLimit: cfg.RateLimit,
		limiter:   NewRateLimiter(cfg.RateLimit),
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Name returns the provider identifier.
func (c *MistralOCRClient) Name() string {
	return MistralOCRName
}

// ProcessDocument runs OCR over every page of the PDF and joins the page
// markdown in page order.
func (c *MistralOCRClient) ProcessDocument(ctx context.Context, pdf []byte) (*OCRResult, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingAPIKey, MistralOCRName)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	start := time.Now()

	reqBody := mistralOCRRequest{
		Model: c.model,
		Document: mistralDocument{
			Type:        "document_url",
			DocumentURL: "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(pdf),
		},
	}

	resp, err := c.doRequest(ctx, "/ocr", reqBody)
	if err != nil {
		return nil, err
	}

	pages := make([]string, 0, len(resp.Pages))
	for _, p := range resp.Pages {
		if md := strings.TrimSpace(p.Markdown); md != "" {
			pages = append(pages, md)
		}
	}

	metadata := map[string]any{
		"model_used": resp.Model,
	}
	if resp.UsageInfo != nil {
		metadata["pages_processed"] = resp.UsageInfo.PagesProcessed
		if resp.UsageInfo.DocSizeBytes > 0 {
			metadata["doc_size_bytes"] = resp.UsageInfo.DocSizeBytes
		}
	}

	return &OCRResult{
		Text:          strings.Join(pages, "\n\n"),
		PageCount:     len(resp.Pages),
		Metadata:      metadata,
		ExecutionTime: time.Since(start),
	}, nil
}

// doRequest makes an HTTP request to Mistral API.
func (c *MistralOCRClient) doRequest(ctx context.Context, path string, body any) (*mistralOCRResponse, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyTransport("Mistral OCR", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp mistralErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			return nil, classifyStatus("Mistral OCR", resp.StatusCode, errResp.Error.Message)
		}
		return nil, classifyStatus("Mistral OCR", resp.StatusCode, string(respBody))
	}

	var ocrResp mistralOCRResponse
	if err := json.Unmarshal(respBody, &ocrResp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return &ocrResp, nil
}

// Mistral OCR API types

type mistralOCRRequest struct {
	Model              string          `json:"model"`
	Document           mistralDocument `json:"document"`
	IncludeImageBase64 bool            `json:"include_image_base64,omitempty"`
}

type mistralDocument struct {
	Type        string `json:"type"` // "image_url" or "document_url"
	DocumentURL string `json:"document_url,omitempty"`
}

type mistralOCRResponse struct {
	Model     string            `json:"model"`
	Pages     []mistralOCRPage  `json:"pages"`
	UsageInfo *mistralUsageInfo `json:"usage_info,omitempty"`
}

type mistralOCRPage struct {
	Index    int    `json:"index"`
	Markdown string `json:"markdown"`
}

type mistralUsageInfo struct {
	PagesProcessed int `json:"pages_processed"`
	DocSizeBytes   int `json:"doc_size_bytes,omitempty"`
}

type mistralErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Verify interface
var _ DocumentOCR = (*MistralOCRClient)(nil)
