// Package memory provides an in-memory blob store for tests and development.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/dmehra/relaybox/blob"
)

// Store implements blob.Store in process memory.
type Store struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

var _ blob.Store = (*Store)(nil)

// New creates a new in-memory blob store.
func New() *Store {
	return &Store{blobs: make(map[string][]byte)}
}

// Upload stores the content and returns a mem:// URI.
func (s *Store) Upload(_ context.Context, filename, _ string, content io.Reader) (string, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return "", fmt.Errorf("read content: %w", err)
	}

	uri := fmt.Sprintf("mem://%s/%s", uuid.New().String(), filename)

	s.mu.Lock()
	s.blobs[uri] = data
	s.mu.Unlock()

	return uri, nil
}

// Load returns a reader for the stored content.
func (s *Store) Load(_ context.Context, uri string) (io.ReadCloser, error) {
	s.mu.RLock()
	data, ok := s.blobs[uri]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", blob.ErrNotFound, uri)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete removes the stored content. Deleting a missing URI is a no-op.
func (s *Store) Delete(_ context.Context, uri string) error {
	s.mu.Lock()
	delete(s.blobs, uri)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored blobs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
