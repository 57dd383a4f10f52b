package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"
)

func TestMistralOCRClient_ProcessDocument(t *testing.T) {
	t.Run("successful OCR", func(t *testing.T) {
		pdf := []byte("%PDF-1.4 fake")
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Verify request
			if r.URL.Path != "/ocr" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			if r.Method != "POST" {
				t.Errorf("unexpected method: %s", r.Method)
			}
			if ct := r.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("unexpected content-type: %s", ct)
			}
			if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
				t.Errorf("unexpected authorization: %s", auth)
			}

			var req mistralOCRRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			want := "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(pdf)
			if req.Document.Type != "document_url" || req.Document.DocumentURL != want {
				t.Errorf("unexpected document: %+v", req.Document)
			}

			resp := mistralOCRResponse{
				Model: "mistral-ocr-latest",
				Pages: []mistralOCRPage{
					{Index: 0, Markdown: "# Chapter 1\n\nThis is the extracted text."},
					{Index: 1, Markdown: "   "},
					{Index: 2, Markdown: "Closing page."},
				},
				UsageInfo: &mistralUsageInfo{
					PagesProcessed: 3,
					DocSizeBytes:   12345,
				},
			}

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(resp)
		}))
		defer server.Close()

		client := NewMistralOCRClient(MistralOCRConfig{
			APIKey:  "test-key",
			BaseURL: server.URL,
		})

		result, err := client.ProcessDocument(context.Background(), pdf)
		if err != nil {
			t.Fatalf("ProcessDocument() error = %v", err)
		}
		want := "# Chapter 1\n\nThis is the extracted text.\n\nClosing page."
		if result.Text != want {
			t.Errorf("unexpected text: %q", result.Text)
		}
		if result.PageCount != 3 {
			t.Errorf("PageCount = %d, want 3", result.PageCount)
		}
		if result.Metadata["pages_processed"] != 3 {
			t.Errorf("pages_processed = %v, want 3", result.Metadata["pages_processed"])
		}
	})

	t.Run("empty pages response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(mistralOCRResponse{Model: "mistral-ocr-latest"})
		}))
		defer server.Close()

		client := NewMistralOCRClient(MistralOCRConfig{APIKey: "test-key", BaseURL: server.URL})

		result, err := client.ProcessDocument(context.Background(), []byte("pdf"))
		if err != nil {
			t.Fatalf("ProcessDocument() error = %v", err)
		}
		if result.Text != "" {
			t.Errorf("expected empty text, got %q", result.Text)
		}
	})

	t.Run("missing API key", func(t *testing.T) {
		client := NewMistralOCRClient(MistralOCRConfig{})
		_, err := client.ProcessDocument(context.Background(), []byte("pdf"))
		if !errors.Is(err, ErrMissingAPIKey) {
			t.Errorf("ProcessDocument() error = %v, want ErrMissingAPIKey", err)
		}
	})

	t.Run("API error response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"message":"invalid document","type":"invalid_request"}}`))
		}))
		defer server.Close()

		client := NewMistralOCRClient(MistralOCRConfig{APIKey: "test-key", BaseURL: server.URL})

		_, err := client.ProcessDocument(context.Background(), []byte("pdf"))
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), "invalid document") {
			t.Errorf("error should carry API message: %v", err)
		}
		var se *StatusError
		if !errors.As(err, &se) || se.StatusCode != http.StatusBadRequest {
			t.Errorf("expected StatusError 400, got %v", err)
		}
	})

	t.Run("rejected credentials", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"message":"bad key"}}`))
		}))
		defer server.Close()

		client := NewMistralOCRClient(MistralOCRConfig{APIKey: "test-key", BaseURL: server.URL})

		_, err := client.ProcessDocument(context.Background(), []byte("pdf"))
		if !errors.Is(err, ErrUnauthorized) {
			t.Errorf("ProcessDocument() error = %v, want ErrUnauthorized", err)
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(500 * time.Millisecond)
			json.NewEncoder(w).Encode(mistralOCRResponse{})
		}))
		defer server.Close()

		client := NewMistralOCRClient(MistralOCRConfig{APIKey: "test-key", BaseURL: server.URL})

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := client.ProcessDocument(ctx, []byte("pdf"))
		if err == nil {
			t.Error("expected context error")
		}
	})
}

func TestMistralOCRIntegration(t *testing.T) {
	cfg := LoadTestConfig()
	if !cfg.HasMistral() {
		t.Skip("MISTRAL_API_KEY not set - skipping integration test")
	}

	pdf, err := os.ReadFile("testdata/scanned.pdf")
	if err != nil {
		t.Skipf("testdata/scanned.pdf not found: %v", err)
	}

	client := cfg.NewMistralOCRClient()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := client.ProcessDocument(ctx, pdf)
	if err != nil {
		t.Fatalf("ProcessDocument() error = %v", err)
	}
	if strings.TrimSpace(result.Text) == "" {
		t.Error("expected non-empty text from real OCR")
	}
	t.Logf("OCR returned %d pages, %d chars", result.PageCount, len(result.Text))
}
