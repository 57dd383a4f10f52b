package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestClient_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"file not found","kind":"not_found"}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("bad gateway"))
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	ctx := context.Background()

	var out struct {
		Status string `json:"status"`
	}
	if err := c.Get(ctx, "/ok", &out); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if out.Status != "ok" {
		t.Errorf("Status = %q, want ok", out.Status)
	}

	err := c.Get(ctx, "/missing", nil)
	var se *ServerError
	if !errors.As(err, &se) {
		t.Fatalf("Get() error = %v, want ServerError", err)
	}
	if se.StatusCode != http.StatusNotFound || se.Kind != "not_found" {
		t.Errorf("ServerError = %+v", se)
	}

	err = c.Get(ctx, "/other", nil)
	if !errors.As(err, &se) || se.Message != "bad gateway" {
		t.Errorf("Get() error = %v, want raw body", err)
	}
}

func TestClient_Post(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %q", r.Header.Get("Content-Type"))
		}
		body, _ := io.ReadAll(r.Body)
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	var out map[string]string
	if err := NewClient(srv.URL).Post(context.Background(), "/echo", map[string]string{"question": "why"}, &out); err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	if out["question"] != "why" {
		t.Errorf("Post() echoed %v", out)
	}
}

func TestClient_UploadFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, fh, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile() error = %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		if fh.Filename != "doc.pdf" || string(data) != "%PDF-1.4" {
			t.Errorf("got %s with %q", fh.Filename, data)
		}
		_, _ = w.Write([]byte(`{"file_id":"abc"}`))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out struct {
		FileID string `json:"file_id"`
	}
	if err := NewClient(srv.URL).UploadFile(context.Background(), "/api/files", "file", path, &out); err != nil {
		t.Fatalf("UploadFile() error = %v", err)
	}
	if out.FileID != "abc" {
		t.Errorf("FileID = %q, want abc", out.FileID)
	}

	if err := NewClient(srv.URL).UploadFile(context.Background(), "/api/files", "file", "/does/not/exist.pdf", nil); err == nil {
		t.Error("expected error for missing file")
	}
}
