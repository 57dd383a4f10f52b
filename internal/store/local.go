package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// LocalStore keeps files on disk as {dir}/{id}.pdf with a {id}.json sidecar.
type LocalStore struct {
	dir string
}

// NewLocalStore creates the directory if needed and returns a store over it.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// Dir returns the upload directory.
func (s *LocalStore) Dir() string {
	return s.dir
}

func (s *LocalStore) pdfPath(id string) string {
	return filepath.Join(s.dir, id+".pdf")
}

func (s *LocalStore) metaPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save writes the content to a temp file and renames it into place, so a
// reader never sees a partial upload.
func (s *LocalStore) Save(ctx context.Context, name string, r io.Reader) (FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return FileInfo{}, err
	}

	id := NewID()
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return FileInfo{}, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	size, err := io.Copy(tmp, r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return FileInfo{}, fmt.Errorf("failed to write upload: %w", err)
	}

	info := FileInfo{
		ID:         id,
		Filename:   filepath.Base(name),
		Size:       size,
		UploadedAt: time.Now().UTC(),
	}
	meta, err := json.Marshal(info)
	if err != nil {
		return FileInfo{}, fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := os.WriteFile(s.metaPath(id), meta, 0o644); err != nil {
		return FileInfo{}, fmt.Errorf("failed to write metadata: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.pdfPath(id)); err != nil {
		os.Remove(s.metaPath(id))
		return FileInfo{}, fmt.Errorf("failed to store upload: %w", err)
	}
	return info, nil
}

// ReadBytes returns the stored content.
func (s *LocalStore) ReadBytes(ctx context.Context, id string) ([]byte, error) {
	if !ValidID(id) {
		return nil, ErrNotFound
	}
	data, err := os.ReadFile(s.pdfPath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read file %s: %w", id, err)
	}
	return data, nil
}

// Stat returns the sidecar metadata, or what the filesystem knows when the
// sidecar is missing.
func (s *LocalStore) Stat(ctx context.Context, id string) (FileInfo, error) {
	if !ValidID(id) {
		return FileInfo{}, ErrNotFound
	}
	fi, err := os.Stat(s.pdfPath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return FileInfo{}, ErrNotFound
		}
		return FileInfo{}, fmt.Errorf("failed to stat file %s: %w", id, err)
	}

	info := FileInfo{ID: id, Filename: id + ".pdf", Size: fi.Size(), UploadedAt: fi.ModTime().UTC()}
	meta, err := os.ReadFile(s.metaPath(id))
	if err != nil {
		return info, nil
	}
	if err := json.Unmarshal(meta, &info); err != nil {
		return FileInfo{}, fmt.Errorf("corrupt metadata for %s: %w", id, err)
	}
	return info, nil
}

// Check verifies the upload directory exists.
func (s *LocalStore) Check(ctx context.Context) error {
	fi, err := os.Stat(s.dir)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return fmt.Errorf("%s is not a directory", s.dir)
	}
	return nil
}

// Verify interface
var _ FileStore = (*LocalStore)(nil)
