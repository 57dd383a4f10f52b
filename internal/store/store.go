// Package store keeps uploaded PDFs and hands their bytes back by id.
package store

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned for unknown or malformed file ids.
	ErrNotFound = errors.New("file not found")

	// ErrAlreadyExists is returned when a write would replace an existing file.
	ErrAlreadyExists = errors.New("file already exists")
)

// FileInfo describes a stored upload.
type FileInfo struct {
	ID         string    `json:"file_id" yaml:"file_id"`
	Filename   string    `json:"filename" yaml:"filename"`
	Size       int64     `json:"size" yaml:"size"`
	UploadedAt time.Time `json:"uploaded_at" yaml:"uploaded_at"`
}

// FileStore persists uploaded files. Implementations must be safe for
// concurrent use.
type FileStore interface {
	// Save stores the content under a fresh id.
	Save(ctx context.Context, name string, r io.Reader) (FileInfo, error)

	// ReadBytes returns the full content of a stored file.
	ReadBytes(ctx context.Context, id string) ([]byte, error)

	// Stat returns metadata for a stored file.
	Stat(ctx context.Context, id string) (FileInfo, error)

	// Check reports whether the backing storage is reachable.
	Check(ctx context.Context) error
}

// NewID returns a fresh file id.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id has the canonical form returned by NewID.
// Anything else cannot name a stored file, which also keeps ids out of paths.
func ValidID(id string) bool {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return false
	}
	return parsed.String() == id
}
