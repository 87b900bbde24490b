// Package blob defines the storage contract for raw attachment content.
//
// Attachment metadata (filename, size, content type) lives in the message
// store; the bytes themselves live behind a Store implementation addressed
// by an opaque URI returned from Upload. Backends are provided for S3
// (including S3-compatible services such as Cloudflare R2), Google Cloud
// Storage, a local-disk caching wrapper, and an in-memory store for tests.
package blob

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when no blob exists for the given URI.
var ErrNotFound = errors.New("blob: not found")

// Store stores and retrieves raw attachment content.
type Store interface {
	// Upload stores content and returns an opaque URI for later retrieval.
	// The filename is advisory; backends may use it in generated keys.
	Upload(ctx context.Context, filename, contentType string, content io.Reader) (string, error)
	// Load returns a reader for the content at the given URI.
	// The caller must close the returned reader.
	Load(ctx context.Context, uri string) (io.ReadCloser, error)
	// Delete removes the content at the given URI.
	Delete(ctx context.Context, uri string) error
}
