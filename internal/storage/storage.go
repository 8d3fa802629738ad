package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/straye-as/lighthouse-uploader/internal/config"
	"go.uber.org/zap"
)

var (
	// ErrUnauthorized is returned when the blob store rejects the credential
	ErrUnauthorized = errors.New("blob store rejected credential")

	// ErrUpload is returned for any other failed upload (network, service, quota)
	ErrUpload = errors.New("blob upload failed")
)

// Storage defines the blob store operations used by the uploader.
// Upload always creates or overwrites the blob.
type Storage interface {
	Upload(ctx context.Context, blobName string, contentType string, data io.Reader) (string, int64, error)
	URL(blobName string) string
}

// NewStorage creates a new storage instance based on configuration.
// For azure mode, the SAS token authenticates every request.
// For local mode, blobs are written below the configured base path and the token is ignored.
func NewStorage(cfg *config.StorageConfig, sasToken string, logger *zap.Logger) (Storage, error) {
	switch cfg.Mode {
	case "local":
		return NewLocalStorage(cfg.LocalBasePath, cfg.Container)
	case "azure":
		return NewAzureBlobStorage(cfg.BlobServiceURL(), cfg.Container, sasToken, cfg.MaxRetries, logger)
	default:
		return nil, fmt.Errorf("unsupported storage mode: %s", cfg.Mode)
	}
}

// LocalStorage implements Storage on the local filesystem, mirroring the
// container/blob layout of the remote store
type LocalStorage struct {
	root string
}

// NewLocalStorage creates a new local storage instance rooted at basePath/container
func NewLocalStorage(basePath, container string) (*LocalStorage, error) {
	root := filepath.Join(basePath, container)
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStorage{
		root: root,
	}, nil
}

// URL returns the file path a blob is stored at
func (s *LocalStorage) URL(blobName string) string {
	return filepath.Join(s.root, filepath.FromSlash(blobName))
}

// Upload writes data to the blob path, replacing any previous content
func (s *LocalStorage) Upload(ctx context.Context, blobName string, contentType string, data io.Reader) (string, int64, error) {
	fullPath := s.URL(blobName)

	rel, err := filepath.Rel(s.root, fullPath)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", 0, fmt.Errorf("%w: blob name %q escapes storage root", ErrUpload, blobName)
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", 0, fmt.Errorf("%w: failed to create directory: %w", ErrUpload, err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", 0, fmt.Errorf("%w: failed to create file: %w", ErrUpload, err)
	}
	defer file.Close()

	size, err := io.Copy(file, data)
	if err != nil {
		os.Remove(fullPath) // Cleanup on error
		return "", 0, fmt.Errorf("%w: failed to write file: %w", ErrUpload, err)
	}

	return fullPath, size, nil
}
