package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"go.uber.org/zap"
)

// AzureBlobStorage implements Storage interface for Azure Blob Storage,
// authenticated with a shared access signature
type AzureBlobStorage struct {
	client        *azblob.Client
	serviceURL    string
	containerName string
	logger        *zap.Logger
}

// NewAzureBlobStorage creates a new Azure Blob Storage instance.
// The SAS token is appended to the service URL as its query; a leading "?" is accepted.
// maxRetries follows azcore semantics: a negative value means a single attempt.
func NewAzureBlobStorage(serviceURL, containerName, sasToken string, maxRetries int32, logger *zap.Logger) (*AzureBlobStorage, error) {
	serviceURL = strings.TrimSuffix(serviceURL, "/")
	sasURL := serviceURL + "/?" + strings.TrimPrefix(sasToken, "?")

	options := &azblob.ClientOptions{
		ClientOptions: policy.ClientOptions{
			Retry: policy.RetryOptions{MaxRetries: maxRetries},
		},
	}

	client, err := azblob.NewClientWithNoCredential(sasURL, options)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}

	logger.Debug("Azure Blob Storage initialized",
		zap.String("service_url", serviceURL),
		zap.String("container", containerName),
	)

	return &AzureBlobStorage{
		client:        client,
		serviceURL:    serviceURL,
		containerName: containerName,
		logger:        logger,
	}, nil
}

// URL returns the blob URL without credentials
func (s *AzureBlobStorage) URL(blobName string) string {
	return s.serviceURL + "/" + s.containerName + "/" + blobName
}

// Upload uploads data to Azure Blob Storage, overwriting an existing blob
func (s *AzureBlobStorage) Upload(ctx context.Context, blobName string, contentType string, data io.Reader) (string, int64, error) {
	uploadOptions := &azblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{
			BlobContentType: &contentType,
		},
	}

	// Wrap data in counting reader to track size
	reader := &countingReader{r: data}

	_, err := s.client.UploadStream(ctx, s.containerName, blobName, reader, uploadOptions)
	if err != nil {
		return "", 0, classifyError(blobName, err)
	}

	location := s.URL(blobName)
	s.logger.Info("File uploaded to Azure Blob Storage",
		zap.String("url", location),
		zap.String("container", s.containerName),
		zap.String("contentType", contentType),
		zap.Int64("size", reader.count),
	)

	return location, reader.count, nil
}

// classifyError maps SDK failures onto the storage error taxonomy
func classifyError(blobName string, err error) error {
	if isAuthError(err) {
		return fmt.Errorf("%w: upload of %s: %w", ErrUnauthorized, blobName, err)
	}
	return fmt.Errorf("%w: upload of %s: %w", ErrUpload, blobName, err)
}

func isAuthError(err error) bool {
	if bloberror.HasCode(err,
		bloberror.AuthenticationFailed,
		bloberror.AuthorizationFailure,
		bloberror.AuthorizationPermissionMismatch,
	) {
		return true
	}

	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode == http.StatusUnauthorized || respErr.StatusCode == http.StatusForbidden
	}
	return false
}

// countingReader wraps an io.Reader and counts the number of bytes read
type countingReader struct {
	r     io.Reader
	count int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.count += int64(n)
	return n, err
}
