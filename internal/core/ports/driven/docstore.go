package driven

import "context"

// DocumentStore is durable key-value object storage for original uploads
// and per-document metadata. Keys are laid out by domain.DocumentPrefix.
type DocumentStore interface {
	// Put stores data under key, replacing any existing object.
	// metadata is attached to the object where the backend supports it.
	Put(ctx context.Context, key string, data []byte, metadata map[string]string) error

	// Get retrieves an object. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes an object. Deleting a missing key succeeds.
	Delete(ctx context.Context, key string) error

	// List returns all keys with the given prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)

	// Close releases resources.
	Close() error
}
