package archive

import (
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
)

const uploadTimeout = 2 * time.Minute

// Storage reads and writes archived report objects.
type Storage interface {
	Upload(ctx context.Context, bucketName, objectName string, data []byte, contentType string) error
	Download(ctx context.Context, bucketName, objectName string) ([]byte, error)
}

// GCSStorage is the Cloud Storage implementation of Storage.
// It assumes Application Default Credentials are configured.
type GCSStorage struct {
	client *storage.Client
}

// NewGCSStorage creates a storage client shared by all uploads.
func NewGCSStorage(ctx context.Context) (*GCSStorage, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSStorage{client: client}, nil
}

// Close releases the underlying client.
func (s *GCSStorage) Close() error {
	return s.client.Close()
}

// Upload writes data to bucketName/objectName.
func (s *GCSStorage) Upload(ctx context.Context, bucketName, objectName string, data []byte, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := s.client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object %s/%s: %w", bucketName, objectName, err)
	}

	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload: %w", err)
	}

	return nil
}

// Download reads the full content of bucketName/objectName.
func (s *GCSStorage) Download(ctx context.Context, bucketName, objectName string) ([]byte, error) {
	r, err := s.client.Bucket(bucketName).Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open GCS object reader: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read GCS object: %w", err)
	}

	return data, nil
}

var _ Storage = (*GCSStorage)(nil)
