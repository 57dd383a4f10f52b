// Package pipeline turns stored PDFs into text, summaries and cited answers.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jackzampolin/docqa/internal/extract"
	"github.com/jackzampolin/docqa/internal/pagetext"
	"github.com/jackzampolin/docqa/internal/providers"
	"github.com/jackzampolin/docqa/internal/store"
)

// BackendSource resolves the configured chat backend.
// *providers.Registry satisfies it.
type BackendSource interface {
	ActiveLLM() (providers.LLMClient, error)
}

// Settings holds the tunables that can change on config reload.
type Settings struct {
	SummaryMaxChars   int
	PageContextChars  int
	RestrictCitations bool
}

// Config configures a Service.
type Config struct {
	Store    store.FileStore
	Engine   *extract.Engine
	Backend  BackendSource
	Settings Settings
	Logger   *slog.Logger
}

// Service runs extraction, summarization and Q&A against stored files.
// Every call re-reads and re-extracts the file.
type Service struct {
	store   store.FileStore
	engine  *extract.Engine
	backend BackendSource
	logger  *slog.Logger

	mu       sync.RWMutex
	settings Settings
}

// ExtractResult is the response of Extract.
type ExtractResult struct {
	FileID string              `json:"file_id" yaml:"file_id"`
	Text   string              `json:"text" yaml:"text"`
	Method pagetext.Method     `json:"method" yaml:"method"`
	Pages  []pagetext.PageText `json:"pages" yaml:"pages"`
}

// SummaryResult is the response of Summarize.
type SummaryResult struct {
	FileID  string          `json:"file_id" yaml:"file_id"`
	Summary string          `json:"summary" yaml:"summary"`
	Method  pagetext.Method `json:"method" yaml:"method"`
	Backend string          `json:"backend" yaml:"backend"`
}

// AskResult is the response of Ask.
type AskResult struct {
	FileID    string          `json:"file_id" yaml:"file_id"`
	Answer    string          `json:"answer" yaml:"answer"`
	Citations []int           `json:"citations" yaml:"citations"`
	Method    pagetext.Method `json:"method" yaml:"method"`
	Backend   string          `json:"backend" yaml:"backend"`
}

// NewService creates a Service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("file store is required")
	}
	if cfg.Engine == nil {
		return nil, fmt.Errorf("extraction engine is required")
	}
	if cfg.Backend == nil {
		return nil, fmt.Errorf("backend source is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    cfg.Store,
		engine:   cfg.Engine,
		backend:  cfg.Backend,
		logger:   logger,
		settings: cfg.Settings,
	}, nil
}

// UpdateSettings replaces the tunables for subsequent calls.
func (s *Service) UpdateSettings(settings Settings) {
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
}

func (s *Service) currentSettings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Extract returns the text of the file with its page structure.
func (s *Service) Extract(ctx context.Context, fileID string) (*ExtractResult, error) {
	const op = "extract"
	res, err := s.load(ctx, op, fileID)
	if err != nil {
		return nil, err
	}
	return &ExtractResult{
		FileID: fileID,
		Text:   res.FullText,
		Method: res.Method,
		Pages:  res.Pages,
	}, nil
}

// Summarize returns a bullet-point summary of the file.
func (s *Service) Summarize(ctx context.Context, fileID string) (*SummaryResult, error) {
	const op = "summarize"
	llm, err := s.backend.ActiveLLM()
	if err != nil {
		return nil, backendError(op, err)
	}
	res, err := s.load(ctx, op, fileID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	text, err := NewSummarizer(llm, s.currentSettings().SummaryMaxChars).Summarize(ctx, res.FullText)
	if err != nil {
		s.logger.Warn("summarize failed", "file_id", fileID, "backend", llm.Name(), "error", err)
		return nil, backendError(op, err)
	}
	s.logger.Info("summarized document",
		"file_id", fileID,
		"backend", llm.Name(),
		"method", res.Method.String(),
		"duration", time.Since(start))

	return &SummaryResult{
		FileID:  fileID,
		Summary: text,
		Method:  res.Method,
		Backend: llm.Name(),
	}, nil
}

// Ask answers question from the file's pages and reports the cited pages.
func (s *Service) Ask(ctx context.Context, fileID, question string) (*AskResult, error) {
	const op = "ask"
	if strings.TrimSpace(question) == "" {
		return nil, newError(Invalid, op, fmt.Errorf("question is required"))
	}
	llm, err := s.backend.ActiveLLM()
	if err != nil {
		return nil, backendError(op, err)
	}
	res, err := s.load(ctx, op, fileID)
	if err != nil {
		return nil, err
	}

	settings := s.currentSettings()
	answerer := NewAnswerer(llm, AnswererConfig{
		PageContextChars:  settings.PageContextChars,
		RestrictCitations: settings.RestrictCitations,
	})

	start := time.Now()
	ans, err := answerer.Answer(ctx, question, res.Pages)
	if err != nil {
		s.logger.Warn("ask failed", "file_id", fileID, "backend", llm.Name(), "error", err)
		return nil, backendError(op, err)
	}
	s.logger.Info("answered question",
		"file_id", fileID,
		"backend", llm.Name(),
		"method", res.Method.String(),
		"citations", len(ans.Citations),
		"duration", time.Since(start))

	return &AskResult{
		FileID:    fileID,
		Answer:    ans.Text,
		Citations: ans.Citations,
		Method:    res.Method,
		Backend:   llm.Name(),
	}, nil
}

func (s *Service) load(ctx context.Context, op, fileID string) (*pagetext.ExtractionResult, error) {
	data, err := s.store.ReadBytes(ctx, fileID)
	if err != nil {
		return nil, storeError(op, err)
	}
	res, err := s.engine.Extract(ctx, data)
	if err != nil {
		s.logger.Warn("extraction failed", "file_id", fileID, "error", err)
		return nil, extractError(op, err)
	}
	s.logger.Debug("extracted document",
		"file_id", fileID,
		"method", res.Method.String(),
		"pages", len(res.Pages),
		"chars", res.TrimmedLength())
	return res, nil
}
