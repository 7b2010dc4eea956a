package memory

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

type object struct {
	data     []byte
	metadata map[string]string
}

// DocumentStore is an in-memory implementation of driven.DocumentStore.
// Stored bytes are copied in and out so callers cannot alias them.
type DocumentStore struct {
	mu      sync.RWMutex
	objects map[string]object
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		objects: make(map[string]object),
	}
}

// Put stores or replaces an object.
func (s *DocumentStore) Put(ctx context.Context, key string, data []byte, metadata map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = object{
		data:     slices.Clone(data),
		metadata: maps.Clone(metadata),
	}
	return nil
}

// Get retrieves an object by key.
func (s *DocumentStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return slices.Clone(obj.data), nil
}

// Metadata returns the metadata attached to an object.
func (s *DocumentStore) Metadata(key string) (map[string]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, false
	}
	return maps.Clone(obj.metadata), true
}

// Delete removes an object. Missing keys are ignored.
func (s *DocumentStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// List returns all keys with the given prefix, sorted.
func (s *DocumentStore) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0)
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

// Len returns the number of stored objects.
func (s *DocumentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// Close is a no-op for the memory store.
func (s *DocumentStore) Close() error {
	return nil
}
