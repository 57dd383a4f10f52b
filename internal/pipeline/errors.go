package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackzampolin/docqa/internal/extract"
	"github.com/jackzampolin/docqa/internal/providers"
	"github.com/jackzampolin/docqa/internal/store"
)

// Kind classifies a pipeline failure for callers.
type Kind int

const (
	// Internal covers OCR engine and storage I/O failures.
	Internal Kind = iota
	// UnreadableDocument means the bytes are not a PDF, or the text layer is
	// missing and OCR cannot help.
	UnreadableDocument
	// NotFound means the file id is unknown.
	NotFound
	// BackendUnavailable means the chat backend cannot be used at all.
	BackendUnavailable
	// UpstreamFailure means the backend was reached but failed the call.
	UpstreamFailure
	// Invalid means the request itself is malformed.
	Invalid
)

var kindNames = map[Kind]string{
	Internal:           "internal",
	UnreadableDocument: "unreadable_document",
	NotFound:           "not_found",
	BackendUnavailable: "backend_unavailable",
	UpstreamFailure:    "upstream_failure",
	Invalid:            "invalid",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is returned by every Service operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind carried by err, or Internal.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return Internal
}

// IsKind reports whether err is a pipeline error of kind k.
func IsKind(err error, k Kind) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == k
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// storeError classifies a failure to load the file.
func storeError(op string, err error) *Error {
	if errors.Is(err, store.ErrNotFound) {
		return newError(NotFound, op, err)
	}
	return newError(Internal, op, err)
}

// extractError classifies a failure of the extraction engine.
func extractError(op string, err error) *Error {
	switch {
	case errors.Is(err, extract.ErrUnreadable), errors.Is(err, extract.ErrNoOCR):
		return newError(UnreadableDocument, op, err)
	default:
		return newError(Internal, op, err)
	}
}

// backendError classifies a failure to obtain or call the chat backend.
func backendError(op string, err error) *Error {
	switch {
	case providers.IsUnavailable(err):
		return newError(BackendUnavailable, op, err)
	case errors.Is(err, context.Canceled):
		return newError(Internal, op, err)
	default:
		return newError(UpstreamFailure, op, err)
	}
}
