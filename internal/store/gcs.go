package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// GCSStore keeps files as {prefix}{id}.pdf objects in a Cloud Storage bucket.
// The original filename and upload time travel as object metadata.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSStore creates a store over bucket. Credentials come from the
// environment (ADC), or STORAGE_EMULATOR_HOST for local runs.
func NewGCSStore(ctx context.Context, bucket, prefix string) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return NewGCSStoreWithClient(client, bucket, prefix), nil
}

// NewGCSStoreWithClient wraps an existing client.
func NewGCSStoreWithClient(client *storage.Client, bucket, prefix string) *GCSStore {
	return &GCSStore{client: client, bucket: bucket, prefix: prefix}
}

func (s *GCSStore) objectName(id string) string {
	return s.prefix + id + ".pdf"
}

func (s *GCSStore) object(id string) *storage.ObjectHandle {
	return s.client.Bucket(s.bucket).Object(s.objectName(id))
}

// Save uploads the content under a fresh id. The write only succeeds if the
// object does not exist yet.
func (s *GCSStore) Save(ctx context.Context, name string, r io.Reader) (FileInfo, error) {
	id := NewID()
	now := time.Now().UTC()

	w := s.object(id).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = "application/pdf"
	w.Metadata = map[string]string{
		"filename":    path.Base(name),
		"uploaded_at": now.Format(time.RFC3339Nano),
	}

	size, err := io.Copy(w, r)
	if err != nil {
		_ = w.Close()
		return FileInfo{}, mapGCSWriteError(id, err)
	}
	if err := w.Close(); err != nil {
		return FileInfo{}, mapGCSWriteError(id, err)
	}

	return FileInfo{
		ID:         id,
		Filename:   path.Base(name),
		Size:       size,
		UploadedAt: now,
	}, nil
}

// ReadBytes downloads the object.
func (s *GCSStore) ReadBytes(ctx context.Context, id string) ([]byte, error) {
	if !ValidID(id) {
		return nil, ErrNotFound
	}
	rc, err := s.object(id).NewReader(ctx)
	if err != nil {
		return nil, mapGCSReadError(id, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", s.objectName(id), err)
	}
	return data, nil
}

// Stat returns object attributes as FileInfo.
func (s *GCSStore) Stat(ctx context.Context, id string) (FileInfo, error) {
	if !ValidID(id) {
		return FileInfo{}, ErrNotFound
	}
	attrs, err := s.object(id).Attrs(ctx)
	if err != nil {
		return FileInfo{}, mapGCSReadError(id, err)
	}
	return infoFromAttrs(id, attrs), nil
}

// Check verifies the bucket is reachable.
func (s *GCSStore) Check(ctx context.Context) error {
	_, err := s.client.Bucket(s.bucket).Attrs(ctx)
	return err
}

// Close releases the storage client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

func infoFromAttrs(id string, attrs *storage.ObjectAttrs) FileInfo {
	info := FileInfo{
		ID:         id,
		Filename:   attrs.Metadata["filename"],
		Size:       attrs.Size,
		UploadedAt: attrs.Created,
	}
	if info.Filename == "" {
		info.Filename = id + ".pdf"
	}
	if ts, err := time.Parse(time.RFC3339Nano, attrs.Metadata["uploaded_at"]); err == nil {
		info.UploadedAt = ts
	}
	return info
}

func mapGCSReadError(id string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return ErrNotFound
	}
	return fmt.Errorf("failed to access file %s: %w", id, err)
}

func mapGCSWriteError(id string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == 412 {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, id)
	}
	return fmt.Errorf("failed to write file %s: %w", id, err)
}

// Verify interface
var _ FileStore = (*GCSStore)(nil)
