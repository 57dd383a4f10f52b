// Package tesseract provides a local OCR provider: pages are rasterized with
// pdftoppm and recognized with Tesseract through gosseract.
//
// Importing the package registers the "tesseract" provider type.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/sync/errgroup"

	"github.com/jackzampolin/docqa/internal/providers"
)

const (
	Name = "tesseract"

	DefaultLanguage = "eng"
	DefaultDPI      = 300
)

func init() {
	providers.RegisterOCRFactory(Name, func(cfg providers.OCRProviderConfig) providers.DocumentOCR {
		return New(Config{
			Languages:  cfg.Languages,
			DPI:        cfg.DPI,
			MaxWorkers: cfg.MaxWorkers,
		})
	})
}

// Config holds configuration for the Tesseract provider.
type Config struct {
	Languages  []string
	DPI        int
	MaxWorkers int
}

// Provider implements providers.DocumentOCR with local tools.
type Provider struct {
	languages  []string
	dpi        int
	maxWorkers int

	// Swappable for tests.
	pageCount func(pdf []byte) (int, error)
	render    func(ctx context.Context, pdfPath, outDir string, page, dpi int) ([]byte, error)
	recognize func(image []byte, languages []string) (string, error)
}

// New creates a Tesseract provider.
func New(cfg Config) *Provider {
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{DefaultLanguage}
	}
	if cfg.DPI <= 0 {
		cfg.DPI = DefaultDPI
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = runtime.NumCPU()
	}
	return &Provider{
		languages:  cfg.Languages,
		dpi:        cfg.DPI,
		maxWorkers: cfg.MaxWorkers,
		pageCount:  pageCount,
		render:     renderPage,
		recognize:  recognize,
	}
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return Name
}

// ProcessDocument rasterizes every page and recognizes them concurrently.
// Page texts are joined in page order.
func (p *Provider) ProcessDocument(ctx context.Context, pdf []byte) (*providers.OCRResult, error) {
	start := time.Now()

	pageCount, err := p.pageCount(pdf)
	if err != nil {
		return nil, err
	}

	tmpDir, err := os.MkdirTemp("", "docqa-ocr-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	pdfPath := filepath.Join(tmpDir, "document.pdf")
	if err := os.WriteFile(pdfPath, pdf, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write temp pdf: %w", err)
	}

	texts := make([]string, pageCount)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxWorkers)
	for i := 0; i < pageCount; i++ {
		pageNum := i + 1
		g.Go(func() error {
			img, err := p.render(gctx, pdfPath, tmpDir, pageNum, p.dpi)
			if err != nil {
				return fmt.Errorf("page %d: %w", pageNum, err)
			}
			text, err := p.recognize(img, p.languages)
			if err != nil {
				return fmt.Errorf("page %d: %w", pageNum, err)
			}
			texts[pageNum-1] = strings.TrimSpace(text)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	nonEmpty := texts[:0:0]
	for _, t := range texts {
		if t != "" {
			nonEmpty = append(nonEmpty, t)
		}
	}

	return &providers.OCRResult{
		Text:      strings.Join(nonEmpty, "\n\n"),
		PageCount: pageCount,
		Metadata: map[string]any{
			"languages": p.languages,
			"dpi":       p.dpi,
		},
		ExecutionTime: time.Since(start),
	}, nil
}

func pageCount(pdf []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(pdf), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to read page count: %w", err)
	}
	return n, nil
}

// renderPage renders a single PDF page to PNG using pdftoppm.
func renderPage(ctx context.Context, pdfPath, outDir string, page, dpi int) ([]byte, error) {
	outputPrefix := filepath.Join(outDir, fmt.Sprintf("page_%04d", page))

	// -png: output PNG format
	// -f N / -l N: first and last page to render
	// -r: resolution in DPI
	// -singlefile: don't add page number suffix
	pageStr := fmt.Sprintf("%d", page)
	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-png",
		"-f", pageStr,
		"-l", pageStr,
		"-r", fmt.Sprintf("%d", dpi),
		"-singlefile",
		pdfPath,
		outputPrefix,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w (output: %s)", err, string(output))
	}

	pngPath := outputPrefix + ".png"
	defer os.Remove(pngPath)
	img, err := os.ReadFile(pngPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read rendered page: %w", err)
	}
	return img, nil
}

// recognize runs Tesseract on one image. A client is created per call since
// gosseract clients are not safe for concurrent use.
func recognize(image []byte, languages []string) (string, error) {
	c := gosseract.NewClient()
	defer c.Close()

	if err := c.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	if err := c.SetLanguage(languages...); err != nil {
		return "", fmt.Errorf("set languages: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}

// Verify interface
var _ providers.DocumentOCR = (*Provider)(nil)
