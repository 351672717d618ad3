package storage

import (
	"context"
	"io"
)

// UploadResult describes an object written to the bucket.
type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// FileUploader stores generated files (roster exports) in object storage.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}
