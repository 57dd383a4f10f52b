package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/jackzampolin/docqa/internal/extract"
	"github.com/jackzampolin/docqa/internal/pagetext"
	"github.com/jackzampolin/docqa/internal/providers"
	"github.com/jackzampolin/docqa/internal/store"
)

// memStore is an in-memory FileStore keyed by id.
type memStore struct {
	files   map[string][]byte
	readErr error
}

func (m *memStore) Save(ctx context.Context, name string, r io.Reader) (store.FileInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return store.FileInfo{}, err
	}
	id := store.NewID()
	m.files[id] = data
	return store.FileInfo{ID: id, Filename: name, Size: int64(len(data))}, nil
}

func (m *memStore) ReadBytes(ctx context.Context, id string) ([]byte, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	data, ok := m.files[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	return data, nil
}

func (m *memStore) Stat(ctx context.Context, id string) (store.FileInfo, error) {
	data, ok := m.files[id]
	if !ok {
		return store.FileInfo{}, store.ErrNotFound
	}
	return store.FileInfo{ID: id, Size: int64(len(data))}, nil
}

func (m *memStore) Check(ctx context.Context) error { return nil }

// pagesLayer returns fixed pages for any input.
type pagesLayer struct {
	pages []string
	err   error
}

func (l pagesLayer) Pages(data []byte) ([]string, error) {
	return l.pages, l.err
}

type staticBackend struct {
	llm providers.LLMClient
	err error
}

func (b staticBackend) ActiveLLM() (providers.LLMClient, error) {
	return b.llm, b.err
}

type noOCR struct{}

func (noOCR) ActiveOCR() providers.DocumentOCR { return nil }

const fileID = "6f1c1f7e-3d43-4b8a-9d1f-5c2a8e0b7a11"

func newTestService(t *testing.T, layer extract.TextLayer, backend BackendSource) *Service {
	t.Helper()
	fs := &memStore{files: map[string][]byte{fileID: []byte("%PDF-1.4")}}
	svc, err := NewService(Config{
		Store:   fs,
		Engine:  extract.New(extract.Config{TextLayer: layer, OCR: noOCR{}}),
		Backend: backend,
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return svc
}

func longPage(prefix string) string {
	return prefix + " " + strings.Repeat("lorem ipsum ", 10)
}

func TestExtractCitations(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []int
	}{
		{"two pages", "Revenue rose [p.2]. Costs fell [p.5].", []int{2, 5}},
		{"duplicates", "A [p.3] B [p.3] C [p.1]", []int{3, 1}},
		{"none", "No citations here.", []int{}},
		{"malformed markers", "[p. 2] [P.3] [p.x] (p.4) [p.7", []int{}},
		{"adjacent", "[p.1][p.2]", []int{1, 2}},
		{"page zero is kept", "[p.0]", []int{0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractCitations(tt.text)
			if got == nil {
				t.Fatal("ExtractCitations() returned nil")
			}
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("ExtractCitations() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello", 10); got != "hello" {
		t.Errorf("Truncate() = %q, want hello", got)
	}
	if got := Truncate("hello", 3); got != "hel" {
		t.Errorf("Truncate() = %q, want hel", got)
	}
	if got := Truncate("héllo wörld", 7); got != "héllo w" {
		t.Errorf("Truncate() = %q, want %q", got, "héllo w")
	}
	if got := Truncate("abc", 0); got != "" {
		t.Errorf("Truncate() = %q, want empty", got)
	}
}

func TestBuildContext(t *testing.T) {
	pages := []pagetext.PageText{
		{PageNumber: 1, Text: "alpha"},
		{PageNumber: 3, Text: strings.Repeat("b", 10)},
	}
	got := BuildContext(pages, 4)
	want := "Page 1:\nalph\n\nPage 3:\nbbbb"
	if got != want {
		t.Errorf("BuildContext() = %q, want %q", got, want)
	}
	if got := BuildContext(nil, 4); got != "" {
		t.Errorf("BuildContext(nil) = %q, want empty", got)
	}
}

func TestSummarizer(t *testing.T) {
	t.Run("truncates input to max chars", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.ResponseText = "  - point one\n- point two \n"

		text := strings.Repeat("x", 50000)
		got, err := NewSummarizer(mock, 0).Summarize(context.Background(), text)
		if err != nil {
			t.Fatalf("Summarize() error = %v", err)
		}
		if got != "- point one\n- point two" {
			t.Errorf("Summarize() = %q", got)
		}

		req := mock.LastRequest()
		if len(req.Messages) != 2 {
			t.Fatalf("expected 2 messages, got %d", len(req.Messages))
		}
		if req.Messages[0].Role != providers.RoleSystem {
			t.Errorf("first message role = %q, want system", req.Messages[0].Role)
		}
		user := req.Messages[1].Content
		if n := strings.Count(user, "x"); n != DefaultSummaryMaxChars {
			t.Errorf("user message carries %d text chars, want %d", n, DefaultSummaryMaxChars)
		}
		if !strings.Contains(user, "5-8 bullet points") {
			t.Errorf("user message missing instruction: %q", user[:80])
		}
	})

	t.Run("short input passes unchanged", func(t *testing.T) {
		mock := providers.NewMockClient()
		if _, err := NewSummarizer(mock, 100).Summarize(context.Background(), "short text"); err != nil {
			t.Fatalf("Summarize() error = %v", err)
		}
		if !strings.HasSuffix(mock.LastRequest().Messages[1].Content, "short text") {
			t.Errorf("user message = %q", mock.LastRequest().Messages[1].Content)
		}
	})

	t.Run("empty reply", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.ResponseText = ""
		got, err := NewSummarizer(mock, 0).Summarize(context.Background(), "text")
		if err != nil {
			t.Fatalf("Summarize() error = %v", err)
		}
		if got != "" {
			t.Errorf("Summarize() = %q, want empty", got)
		}
	})

	t.Run("backend error propagates", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.ShouldFail = true
		if _, err := NewSummarizer(mock, 0).Summarize(context.Background(), "text"); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestAnswerer(t *testing.T) {
	pages := []pagetext.PageText{
		{PageNumber: 1, Text: "Intro."},
		{PageNumber: 2, Text: strings.Repeat("é", 3000)},
	}

	t.Run("builds question message", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.ResponseText = "It says so [p.2] and [p.9]."
		ans, err := NewAnswerer(mock, AnswererConfig{}).Answer(context.Background(), "What?", pages)
		if err != nil {
			t.Fatalf("Answer() error = %v", err)
		}
		if fmt.Sprint(ans.Citations) != "[2 9]" {
			t.Errorf("Citations = %v, want [2 9]", ans.Citations)
		}

		user := mock.LastRequest().Messages[1].Content
		wantContext := "Page 1:\nIntro.\n\nPage 2:\n" + strings.Repeat("é", DefaultPageContextChars)
		want := "Question: What?\n\nDocument:\n" + wantContext
		if user != want {
			t.Errorf("user message has %d runes, want %d", utf8.RuneCountInString(user), utf8.RuneCountInString(want))
		}
		if !strings.Contains(mock.LastRequest().Messages[0].Content, "[p.") {
			t.Error("system prompt does not describe the citation marker")
		}
	})

	t.Run("returns the reply unchanged", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.ResponseText = "\n  Revenue grew [p.1].\n\n"
		ans, err := NewAnswerer(mock, AnswererConfig{}).Answer(context.Background(), "Q", pages)
		if err != nil {
			t.Fatalf("Answer() error = %v", err)
		}
		if ans.Text != mock.ResponseText {
			t.Errorf("Text = %q, want %q", ans.Text, mock.ResponseText)
		}
	})

	t.Run("restricted citations drop unknown pages", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.ResponseText = "Yes [p.2] [p.9]"
		ans, err := NewAnswerer(mock, AnswererConfig{RestrictCitations: true}).Answer(context.Background(), "Q", pages)
		if err != nil {
			t.Fatalf("Answer() error = %v", err)
		}
		if fmt.Sprint(ans.Citations) != "[2]" {
			t.Errorf("Citations = %v, want [2]", ans.Citations)
		}
	})

	t.Run("no pages", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.ResponseText = "The document does not say."
		ans, err := NewAnswerer(mock, AnswererConfig{}).Answer(context.Background(), "Q", nil)
		if err != nil {
			t.Fatalf("Answer() error = %v", err)
		}
		if ans.Citations == nil || len(ans.Citations) != 0 {
			t.Errorf("Citations = %#v, want empty", ans.Citations)
		}
		if got := mock.LastRequest().Messages[1].Content; got != "Question: Q\n\nDocument:\n" {
			t.Errorf("user message = %q", got)
		}
	})
}

func TestService(t *testing.T) {
	layer := pagesLayer{pages: []string{longPage("one"), "", longPage("three")}}

	t.Run("extract", func(t *testing.T) {
		svc := newTestService(t, layer, staticBackend{err: providers.ErrNotConfigured})
		res, err := svc.Extract(context.Background(), fileID)
		if err != nil {
			t.Fatalf("Extract() error = %v", err)
		}
		if res.Method != pagetext.DigitalParse {
			t.Errorf("Method = %v, want digital", res.Method)
		}
		if len(res.Pages) != 2 || res.Pages[0].PageNumber != 1 || res.Pages[1].PageNumber != 3 {
			t.Errorf("Pages = %+v", res.Pages)
		}
	})

	t.Run("summarize", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.ResponseText = "- summary"
		svc := newTestService(t, layer, staticBackend{llm: mock})
		res, err := svc.Summarize(context.Background(), fileID)
		if err != nil {
			t.Fatalf("Summarize() error = %v", err)
		}
		if res.Summary != "- summary" || res.Backend != providers.MockClientName {
			t.Errorf("Summarize() = %+v", res)
		}
	})

	t.Run("ask", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.ResponseText = "Found on [p.3] and [p.1] and [p.3]."
		svc := newTestService(t, layer, staticBackend{llm: mock})
		res, err := svc.Ask(context.Background(), fileID, "where?")
		if err != nil {
			t.Fatalf("Ask() error = %v", err)
		}
		if fmt.Sprint(res.Citations) != "[3 1]" {
			t.Errorf("Citations = %v, want [3 1]", res.Citations)
		}
	})

	t.Run("settings update applies", func(t *testing.T) {
		mock := providers.NewMockClient()
		svc := newTestService(t, layer, staticBackend{llm: mock})
		svc.UpdateSettings(Settings{SummaryMaxChars: 5})
		if _, err := svc.Summarize(context.Background(), fileID); err != nil {
			t.Fatalf("Summarize() error = %v", err)
		}
		if !strings.HasSuffix(mock.LastRequest().Messages[1].Content, "\n\none l") {
			t.Errorf("user message = %q", mock.LastRequest().Messages[1].Content)
		}
	})
}

func TestServiceErrors(t *testing.T) {
	good := pagesLayer{pages: []string{longPage("one")}}

	tests := []struct {
		name    string
		layer   extract.TextLayer
		backend BackendSource
		call    func(*Service) error
		want    Kind
	}{
		{
			name:    "unknown file",
			layer:   good,
			backend: staticBackend{llm: providers.NewMockClient()},
			call: func(s *Service) error {
				_, err := s.Extract(context.Background(), "00000000-0000-4000-8000-000000000000")
				return err
			},
			want: NotFound,
		},
		{
			name:    "unknown file summarize",
			layer:   good,
			backend: staticBackend{llm: providers.NewMockClient()},
			call: func(s *Service) error {
				_, err := s.Summarize(context.Background(), "00000000-0000-4000-8000-000000000000")
				return err
			},
			want: NotFound,
		},
		{
			name:    "unknown file ask",
			layer:   good,
			backend: staticBackend{llm: providers.NewMockClient()},
			call: func(s *Service) error {
				_, err := s.Ask(context.Background(), "00000000-0000-4000-8000-000000000000", "q")
				return err
			},
			want: NotFound,
		},
		{
			name:    "path traversal id",
			layer:   good,
			backend: staticBackend{llm: providers.NewMockClient()},
			call: func(s *Service) error {
				_, err := s.Ask(context.Background(), "../../etc/passwd", "q")
				return err
			},
			want: NotFound,
		},
		{
			name:    "unparseable document",
			layer:   pagesLayer{err: extract.ErrUnreadable},
			backend: staticBackend{llm: providers.NewMockClient()},
			call: func(s *Service) error {
				_, err := s.Summarize(context.Background(), fileID)
				return err
			},
			want: UnreadableDocument,
		},
		{
			name:    "scanned document without ocr",
			layer:   pagesLayer{pages: []string{"", ""}},
			backend: staticBackend{llm: providers.NewMockClient()},
			call: func(s *Service) error {
				_, err := s.Extract(context.Background(), fileID)
				return err
			},
			want: UnreadableDocument,
		},
		{
			name:    "backend missing key",
			layer:   good,
			backend: staticBackend{err: fmt.Errorf("openai: %w", providers.ErrMissingAPIKey)},
			call: func(s *Service) error {
				_, err := s.Summarize(context.Background(), fileID)
				return err
			},
			want: BackendUnavailable,
		},
		{
			name:    "backend unreachable",
			layer:   good,
			backend: staticBackend{llm: &providers.MockClient{Err: providers.ErrUnreachable}},
			call: func(s *Service) error {
				_, err := s.Ask(context.Background(), fileID, "q")
				return err
			},
			want: BackendUnavailable,
		},
		{
			name:    "backend returns error",
			layer:   good,
			backend: staticBackend{llm: &providers.MockClient{ShouldFail: true}},
			call: func(s *Service) error {
				_, err := s.Ask(context.Background(), fileID, "q")
				return err
			},
			want: UpstreamFailure,
		},
		{
			name:    "empty question",
			layer:   good,
			backend: staticBackend{llm: providers.NewMockClient()},
			call: func(s *Service) error {
				_, err := s.Ask(context.Background(), fileID, "   ")
				return err
			},
			want: Invalid,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call(newTestService(t, tt.layer, tt.backend))
			if err == nil {
				t.Fatal("expected error")
			}
			if got := KindOf(err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v (err: %v)", got, tt.want, err)
			}
		})
	}

	t.Run("storage failure is internal", func(t *testing.T) {
		fs := &memStore{files: map[string][]byte{}, readErr: errors.New("disk on fire")}
		svc, err := NewService(Config{
			Store:   fs,
			Engine:  extract.New(extract.Config{TextLayer: good, OCR: noOCR{}}),
			Backend: staticBackend{llm: providers.NewMockClient()},
		})
		if err != nil {
			t.Fatalf("NewService() error = %v", err)
		}
		_, err = svc.Extract(context.Background(), fileID)
		if !IsKind(err, Internal) {
			t.Errorf("Extract() error = %v, want internal", err)
		}
	})
}

func TestKindString(t *testing.T) {
	if UnreadableDocument.String() != "unreadable_document" {
		t.Errorf("String() = %q", UnreadableDocument.String())
	}
	if KindOf(errors.New("plain")) != Internal {
		t.Error("plain errors should be internal")
	}
}
