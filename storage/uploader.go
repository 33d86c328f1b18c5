package storage

import (
	"context"
	"io"
)

// UploadResult describes a stored object: the key it was written under, its
// public location, and the ETag reported by the backend.
type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// FileUploader abstracts the object store holding tournament logo images.
// Keys are caller-chosen, so re-uploading under the same key overwrites.
// The production implementation is the Cloudflare R2 client.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	// GetPublicURL resolves a key against the bucket's public base URL.
	// It never errors; an unresolvable key yields an empty string.
	GetPublicURL(key string) string
}
