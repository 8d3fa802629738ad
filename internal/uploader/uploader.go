package uploader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"

	"github.com/straye-as/lighthouse-uploader/internal/storage"
	"go.uber.org/zap"
)

var (
	// ErrFileNotFound is returned when a file to upload is missing from the working directory
	ErrFileNotFound = errors.New("file not found")

	// ErrFileAccess is returned when a file exists but cannot be read
	ErrFileAccess = errors.New("file not readable")
)

// Result describes one uploaded file
type Result struct {
	File string
	Path string
	URL  string
	Size int64
}

// Uploader pushes a fixed list of files from a directory to a blob store
type Uploader struct {
	store   storage.Storage
	files   []string
	workDir string
	logger  *zap.Logger
}

// New creates an uploader. An empty file list falls back to DefaultFiles.
func New(store storage.Storage, files []string, workDir string, logger *zap.Logger) *Uploader {
	if len(files) == 0 {
		files = DefaultFiles
	}
	return &Uploader{
		store:   store,
		files:   files,
		workDir: workDir,
		logger:  logger,
	}
}

// Run uploads every file in order. The first failure stops the run; blobs
// written before it are kept.
func (u *Uploader) Run(ctx context.Context, params Params) ([]Result, error) {
	u.logger.Info("Pushing files to blob storage",
		zap.String("working_directory", u.workDir),
		zap.Int("files", len(u.files)),
	)

	results := make([]Result, 0, len(u.files))
	for _, name := range u.files {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		result, err := u.uploadFile(ctx, params, name)
		if err != nil {
			u.logger.Error("Upload aborted",
				zap.String("file", name),
				zap.Int("uploaded", len(results)),
				zap.Error(err),
			)
			return results, err
		}
		results = append(results, result)
	}

	u.logger.Info("All files uploaded", zap.Int("uploaded", len(results)))
	return results, nil
}

func (u *Uploader) uploadFile(ctx context.Context, params Params, name string) (Result, error) {
	path := filepath.Join(u.workDir, name)
	u.logger.Info("Uploading file", zap.String("path", path))

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{}, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return Result{}, fmt.Errorf("%w: %s: %w", ErrFileAccess, path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %w", ErrFileAccess, path, err)
	}
	if !info.Mode().IsRegular() {
		return Result{}, fmt.Errorf("%w: %s is not a regular file", ErrFileAccess, path)
	}

	blobName := BlobName(params, name)
	location, size, err := u.store.Upload(ctx, blobName, contentType(name), file)
	if err != nil {
		return Result{}, err
	}

	return Result{
		File: name,
		Path: path,
		URL:  location,
		Size: size,
	}, nil
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
