// Package extract turns PDF bytes into page-attributed text, reading the
// embedded text layer and falling back to OCR when it is too thin.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jackzampolin/docqa/internal/pagetext"
	"github.com/jackzampolin/docqa/internal/providers"
)

// DefaultMinTextLength is the trimmed character count below which the text
// layer is considered missing.
const DefaultMinTextLength = 80

var (
	// ErrUnreadable is returned when the bytes are not a parseable PDF.
	ErrUnreadable = errors.New("unreadable document")

	// ErrNoOCR is returned when OCR is needed but no provider is configured.
	ErrNoOCR = errors.New("no usable text layer and OCR is not configured")

	// ErrOCRFailed wraps failures of the OCR provider itself.
	ErrOCRFailed = errors.New("ocr failed")
)

// OCRSource supplies the OCR provider to fall back on. It returns nil when
// OCR is disabled. *providers.Registry satisfies it.
type OCRSource interface {
	ActiveOCR() providers.DocumentOCR
}

// Config configures an Engine.
type Config struct {
	TextLayer     TextLayer // Defaults to PDFTextLayer
	OCR           OCRSource
	MinTextLength int // Defaults to DefaultMinTextLength
	Logger        *slog.Logger
}

// Engine decides between the digital text layer and OCR.
type Engine struct {
	layer         TextLayer
	ocr           OCRSource
	minTextLength atomic.Int64
	logger        *slog.Logger
}

// New creates an extraction engine.
func New(cfg Config) *Engine {
	if cfg.TextLayer == nil {
		cfg.TextLayer = PDFTextLayer{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	e := &Engine{
		layer:  cfg.TextLayer,
		ocr:    cfg.OCR,
		logger: cfg.Logger,
	}
	e.SetMinTextLength(cfg.MinTextLength)
	return e
}

// SetMinTextLength changes the OCR threshold. Values <= 0 restore the default.
func (e *Engine) SetMinTextLength(n int) {
	if n <= 0 {
		n = DefaultMinTextLength
	}
	e.minTextLength.Store(int64(n))
}

// MinTextLength returns the current OCR threshold.
func (e *Engine) MinTextLength() int {
	return int(e.minTextLength.Load())
}

// Extract reads the text of a PDF. When the trimmed digital text is shorter
// than the threshold the whole document goes through OCR and comes back as
// a single page. Errors never trigger the fallback.
func (e *Engine) Extract(ctx context.Context, data []byte) (*pagetext.ExtractionResult, error) {
	start := time.Now()

	pages, err := e.layer.Pages(data)
	if err != nil {
		return nil, err
	}

	digital := pagetext.FromPages(pagetext.DigitalParse, pages)
	threshold := e.MinTextLength()
	if digital.TrimmedLength() >= threshold {
		e.logger.Debug("digital extraction",
			"pages", len(pages),
			"text_pages", len(digital.Pages),
			"chars", digital.TrimmedLength(),
			"duration", time.Since(start))
		return digital, nil
	}

	var ocr providers.DocumentOCR
	if e.ocr != nil {
		ocr = e.ocr.ActiveOCR()
	}
	if ocr == nil {
		return nil, fmt.Errorf("%w (text layer has %d chars, need %d)", ErrNoOCR, digital.TrimmedLength(), threshold)
	}

	e.logger.Info("text layer below threshold, running OCR",
		"chars", digital.TrimmedLength(),
		"threshold", threshold,
		"provider", ocr.Name())

	res, err := ocr.ProcessDocument(ctx, data)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrOCRFailed, ocr.Name(), err)
	}

	result := pagetext.SinglePage(pagetext.OCR, res.Text)
	e.logger.Info("ocr extraction",
		"provider", ocr.Name(),
		"chars", result.TrimmedLength(),
		"duration", time.Since(start))
	return result, nil
}
