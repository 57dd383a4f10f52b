// Package ingest validates uploaded PDFs and hands them to the file store.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/jackzampolin/docqa/internal/store"
)

// ErrNotPDF is returned when an upload is not a readable PDF.
var ErrNotPDF = errors.New("not a PDF")

// Request contains the parameters for ingesting one upload.
type Request struct {
	Filename string       // Original filename as sent by the client
	Data     []byte       // Full file content
	Logger   *slog.Logger // Optional logger
}

// Result contains the result of a successful ingest operation.
type Result struct {
	store.FileInfo `yaml:",inline"`
	Pages int `json:"pages" yaml:"pages"`
}

// PageCount validates data as a PDF and returns its page count. Validation is
// relaxed, matching what viewers accept.
func PageCount(data []byte) (int, error) {
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte("%PDF-")) {
		return 0, fmt.Errorf("%w: missing %%PDF header", ErrNotPDF)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	n, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	return n, nil
}

// Ingest validates the upload and stores it.
func Ingest(ctx context.Context, fs store.FileStore, req Request) (*Result, error) {
	log := req.Logger
	if log == nil {
		log = slog.Default()
	}

	name := filepath.Base(strings.TrimSpace(req.Filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "upload.pdf"
	}
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		return nil, fmt.Errorf("%w: file %s does not have a .pdf extension", ErrNotPDF, name)
	}

	pages, err := PageCount(req.Data)
	if err != nil {
		return nil, err
	}

	info, err := fs.Save(ctx, name, bytes.NewReader(req.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	log.Info("stored upload",
		"file_id", info.ID,
		"filename", info.Filename,
		"pages", pages,
		"size", info.Size,
	)
	return &Result{FileInfo: info, Pages: pages}, nil
}
