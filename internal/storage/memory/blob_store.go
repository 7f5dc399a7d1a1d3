// Package memory stores blob content in-memory, for tests and dry runs.
package memory

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// BlobStore keeps written artifacts in a map and returns memory:// URIs.
// Safe for concurrent use.
type BlobStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New creates an empty in-memory blob store.
func New() *BlobStore {
	return &BlobStore{
		data: make(map[string][]byte),
	}
}

// PutObject stores the content under path and returns its pseudo URI.
func (s *BlobStore) PutObject(ctx context.Context, path string, _ string, data io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("put object canceled: %w", err)
	}
	payload, err := io.ReadAll(data)
	if err != nil {
		return "", fmt.Errorf("read payload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[path] = append([]byte(nil), payload...)
	return fmt.Sprintf("memory://%s", path), nil
}

// Object returns the stored content for path, or nil when absent.
func (s *BlobStore) Object(path string) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	content, ok := s.data[path]
	if !ok {
		return nil
	}
	return append([]byte(nil), content...)
}
