// Package gcs provides a driven.DocumentStore backed by a Google Cloud
// Storage bucket. Credentials come from Application Default Credentials
// unless client options say otherwise.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// Config holds configuration for the GCS document store.
type Config struct {
	// Bucket is the bucket name (required).
	Bucket string

	// ClientOptions are passed to storage.NewClient, e.g. an endpoint for an emulator.
	ClientOptions []option.ClientOption
}

// DocumentStore keeps objects in one bucket, one object per key.
type DocumentStore struct {
	client *storage.Client
	bucket *storage.BucketHandle
}

// NewDocumentStore creates a GCS client for the configured bucket.
func NewDocumentStore(ctx context.Context, cfg Config) (*DocumentStore, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("%w: gcs: bucket is required", domain.ErrInvalidInput)
	}
	opts := append([]option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}, cfg.ClientOptions...)
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs: create client: %w", err)
	}
	return &DocumentStore{
		client: client,
		bucket: client.Bucket(cfg.Bucket),
	}, nil
}

// Put writes an object, attaching metadata as custom object metadata.
func (s *DocumentStore) Put(ctx context.Context, key string, data []byte, metadata map[string]string) error {
	w := s.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentTypeForKey(key)
	if len(metadata) > 0 {
		w.Metadata = metadata
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("gcs: write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs: close writer for %s: %w", key, err)
	}
	return nil
}

// Get reads an object.
func (s *DocumentStore) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := s.bucket.Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("gcs: open %s: %w", key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gcs: read %s: %w", key, err)
	}
	return data, nil
}

// Delete removes an object. A missing object is not an error.
func (s *DocumentStore) Delete(ctx context.Context, key string) error {
	err := s.bucket.Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("gcs: delete %s: %w", key, err)
	}
	return nil
}

// List returns the keys under prefix in lexical order.
func (s *DocumentStore) List(ctx context.Context, prefix string) ([]string, error) {
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	keys := []string{}
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("gcs: list %q: %w", prefix, err)
		}
		keys = append(keys, attrs.Name)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close closes the storage client.
func (s *DocumentStore) Close() error {
	return s.client.Close()
}

func contentTypeForKey(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".json":
		return "application/json"
	case ".pdf":
		return "application/pdf"
	case ".md":
		return "text/markdown"
	case ".txt":
		return "text/plain"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "application/octet-stream"
	}
}
