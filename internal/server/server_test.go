package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackzampolin/docqa/internal/home"
	"github.com/jackzampolin/docqa/internal/providers"
	"github.com/jackzampolin/docqa/internal/server/endpoints"
	"github.com/jackzampolin/docqa/internal/store"
	"github.com/jackzampolin/docqa/internal/testutil"
)

var longText = "The quarterly report shows revenue of four million dollars and a plan to open two new offices next year."

type fixture struct {
	srv  *Server
	mock *providers.MockClient
	reg  *providers.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	h, err := home.New(t.TempDir())
	if err != nil {
		t.Fatalf("home.New() error = %v", err)
	}
	fs, err := store.NewLocalStore(h.UploadsPath())
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}

	mock := providers.NewMockClient()
	reg := providers.NewRegistry()
	reg.RegisterLLM("mock", mock)
	reg.SetBackend("mock")

	srv, err := New(Config{
		Home:     h,
		Store:    fs,
		Registry: reg,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &fixture{srv: srv, mock: mock, reg: reg}
}

func (f *fixture) do(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (f *fixture) upload(t *testing.T, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	part.Write(data)
	mw.Close()
	return f.do(t, http.MethodPost, "/api/files", &buf, mw.FormDataContentType())
}

func (f *fixture) uploadID(t *testing.T, pages ...string) string {
	t.Helper()
	rec := f.upload(t, "report.pdf", testutil.BuildPDF(pages...))
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		FileID string `json:"file_id"`
		Pages  int    `json:"pages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode upload response: %v", err)
	}
	if resp.Pages != len(pages) {
		t.Errorf("upload pages = %d, want %d", resp.Pages, len(pages))
	}
	return resp.FileID
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) endpoints.ErrorResponse {
	t.Helper()
	var resp endpoints.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestServer_FileFlow(t *testing.T) {
	f := newFixture(t)
	id := f.uploadID(t, longText, "", "Closing remarks: "+longText)

	t.Run("extract", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/files/"+id+"/extract", nil, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		var resp struct {
			Text   string `json:"text"`
			Method string `json:"method"`
			Pages  []struct {
				PageNumber int    `json:"page_number"`
				Text       string `json:"text"`
			} `json:"pages"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Method != "digital" {
			t.Errorf("method = %q, want digital", resp.Method)
		}
		if len(resp.Pages) != 2 || resp.Pages[0].PageNumber != 1 || resp.Pages[1].PageNumber != 3 {
			t.Errorf("pages = %+v, want pages 1 and 3", resp.Pages)
		}
		if !strings.Contains(resp.Text, "quarterly report") {
			t.Errorf("text = %q", resp.Text)
		}
	})

	t.Run("summarize", func(t *testing.T) {
		f.mock.ResponseText = "- Revenue was four million dollars."
		rec := f.do(t, http.MethodPost, "/api/files/"+id+"/summarize", nil, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		var resp struct {
			Summary string `json:"summary"`
			Method  string `json:"method"`
		}
		json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp.Summary != "- Revenue was four million dollars." || resp.Method != "digital" {
			t.Errorf("response = %+v", resp)
		}
	})

	t.Run("ask", func(t *testing.T) {
		f.mock.ResponseText = "Revenue was four million [p.1], offices open next year [p.3][p.1]."
		rec := f.do(t, http.MethodPost, "/api/files/"+id+"/ask",
			strings.NewReader(`{"question":"What was revenue?"}`), "application/json")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		var resp struct {
			Answer    string `json:"answer"`
			Citations []int  `json:"citations"`
		}
		json.Unmarshal(rec.Body.Bytes(), &resp)
		if len(resp.Citations) != 2 || resp.Citations[0] != 1 || resp.Citations[1] != 3 {
			t.Errorf("citations = %v, want [1 3]", resp.Citations)
		}

		user := f.mock.LastRequest().Messages[1].Content
		if !strings.HasPrefix(user, "Question: What was revenue?\n\nDocument:\nPage 1:\n") {
			t.Errorf("user message = %q", user)
		}
		if !strings.Contains(user, "\n\nPage 3:\nClosing remarks") {
			t.Errorf("user message missing page 3 block: %q", user)
		}
	})

	t.Run("file metadata", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/files/"+id, nil, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var info store.FileInfo
		json.Unmarshal(rec.Body.Bytes(), &info)
		if info.ID != id || info.Filename != "report.pdf" {
			t.Errorf("info = %+v", info)
		}
	})
}

func TestServer_Errors(t *testing.T) {
	f := newFixture(t)
	id := f.uploadID(t, longText)
	scanned := f.uploadID(t, "", "")
	unknown := "00000000-0000-4000-8000-000000000000"

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		setup      func()
		wantStatus int
		wantKind   string
	}{
		{"unknown file", http.MethodGet, "/api/files/" + unknown + "/extract", "", nil, http.StatusNotFound, "not_found"},
		{"unknown file summarize", http.MethodPost, "/api/files/" + unknown + "/summarize", "", nil, http.StatusNotFound, "not_found"},
		{"unknown file ask", http.MethodPost, "/api/files/" + unknown + "/ask", `{"question":"q"}`, nil, http.StatusNotFound, "not_found"},
		{"path traversal id", http.MethodGet, "/api/files/..%2f..%2fetc/extract", "", nil, http.StatusNotFound, "not_found"},
		{"scanned without ocr", http.MethodGet, "/api/files/" + scanned + "/extract", "", nil, http.StatusUnprocessableEntity, "unreadable_document"},
		{"missing question", http.MethodPost, "/api/files/" + id + "/ask", `{}`, nil, http.StatusBadRequest, "invalid"},
		{"blank question", http.MethodPost, "/api/files/" + id + "/ask", `{"question":"   "}`, nil, http.StatusBadRequest, "invalid"},
		{"bad json", http.MethodPost, "/api/files/" + id + "/ask", `{`, nil, http.StatusBadRequest, "invalid"},
		{
			name: "backend failure", method: http.MethodPost, path: "/api/files/" + id + "/summarize",
			setup:      func() { f.mock.ShouldFail = true },
			wantStatus: http.StatusBadGateway, wantKind: "upstream_failure",
		},
		{
			name: "backend unreachable", method: http.MethodPost, path: "/api/files/" + id + "/ask", body: `{"question":"q"}`,
			setup:      func() { f.mock.ShouldFail = false; f.mock.Err = providers.ErrUnreachable },
			wantStatus: http.StatusServiceUnavailable, wantKind: "backend_unavailable",
		},
		{
			name: "backend not configured", method: http.MethodPost, path: "/api/files/" + id + "/summarize",
			setup:      func() { f.reg.SetBackend("openai") },
			wantStatus: http.StatusServiceUnavailable, wantKind: "backend_unavailable",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}
			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			rec := f.do(t, tt.method, tt.path, body, "application/json")
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if got := decodeError(t, rec).Kind; got != tt.wantKind {
				t.Errorf("kind = %q, want %q", got, tt.wantKind)
			}
		})
	}
}

func TestServer_Upload(t *testing.T) {
	f := newFixture(t)

	t.Run("rejects non-pdf content", func(t *testing.T) {
		rec := f.upload(t, "notes.pdf", []byte("just some text"))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("rejects wrong extension", func(t *testing.T) {
		rec := f.upload(t, "notes.txt", testutil.BuildPDF(longText))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("missing file field", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		mw.WriteField("other", "x")
		mw.Close()
		rec := f.do(t, http.MethodPost, "/api/files", &buf, mw.FormDataContentType())
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}

func TestServer_HealthAndStatus(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/health", nil, "")
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/ready", nil, "")
	if rec.Code != http.StatusOK {
		t.Errorf("ready status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodGet, "/status", nil, "")
	var status endpoints.StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Backend != "mock" || len(status.Providers.LLM) != 1 {
		t.Errorf("status = %+v", status)
	}
	if !status.BackendReady || status.OCRReady {
		t.Errorf("BackendReady = %v, OCRReady = %v, want true, false", status.BackendReady, status.OCRReady)
	}

	rec = f.do(t, http.MethodGet, "/api/prompts", nil, "")
	var list endpoints.PromptsListResponse
	json.Unmarshal(rec.Body.Bytes(), &list)
	if len(list.Prompts) != 4 {
		t.Errorf("prompts = %d, want 4", len(list.Prompts))
	}

	rec = f.do(t, http.MethodGet, "/api/prompts/answer.user", nil, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Question:") {
		t.Errorf("prompt status = %d, body = %s", rec.Code, rec.Body.String())
	}

	f.reg.SetBackend("missing")
	rec = f.do(t, http.MethodGet, "/ready", nil, "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ready without backend status = %d, want 503", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/status", nil, "")
	status = endpoints.StatusResponse{}
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.BackendReady {
		t.Error("BackendReady = true for an unregistered backend")
	}
}

func TestServer_Lifecycle(t *testing.T) {
	cfg := testutil.NewServerConfig(t)
	h, _ := home.New(cfg.HomeDir)

	reg := providers.NewRegistry()
	reg.RegisterLLM("mock", providers.NewMockClient())
	reg.SetBackend("mock")

	srv, err := New(Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Home:     h,
		Registry: reg,
		Logger:   cfg.Logger,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()
	starter := testutil.StartServer{Cancel: cancel, Done: done}

	if err := testutil.WaitForServer(cfg.URL(), 10*time.Second); err != nil {
		starter.Stop()
		t.Fatalf("server did not start: %v", err)
	}
	if !srv.IsRunning() {
		t.Error("IsRunning() = false, want true")
	}

	status, err := testutil.GetStatus(cfg.URL())
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if status.Server != "running" || status.Backend != "mock" {
		t.Errorf("status = %+v", status)
	}

	if err := srv.Start(context.Background()); err == nil {
		t.Error("second Start() should fail while running")
	}

	cancel()
	if err := testutil.WaitForShutdown(done, 10*time.Second); err != nil {
		t.Fatalf("shutdown error = %v", err)
	}
	if srv.IsRunning() {
		t.Error("IsRunning() = true after shutdown")
	}
}
