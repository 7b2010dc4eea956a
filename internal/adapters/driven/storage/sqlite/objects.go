package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// documentStore implements driven.DocumentStore over the objects table.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// Put stores or replaces an object.
func (s *documentStore) Put(ctx context.Context, key string, data []byte, metadata map[string]string) error {
	if metadata == nil {
		metadata = map[string]string{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshalling object metadata: %w", err)
	}
	if data == nil {
		data = []byte{}
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO objects (key, data, metadata, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			data = excluded.data,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`, key, data, string(metadataJSON), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving object %s: %w", key, err)
	}
	return nil
}

// Get retrieves an object by key.
func (s *documentStore) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.store.db.QueryRowContext(ctx, "SELECT data FROM objects WHERE key = ?", key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading object %s: %w", key, err)
	}
	return data, nil
}

// Delete removes an object. Missing keys are ignored.
func (s *documentStore) Delete(ctx context.Context, key string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM objects WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting object %s: %w", key, err)
	}
	return nil
}

// List returns keys starting with prefix in lexical order.
func (s *documentStore) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT key FROM objects
		WHERE substr(key, 1, ?) = ?
		ORDER BY key
	`, len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("listing objects: %w", err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scanning object key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating objects: %w", err)
	}
	return keys, nil
}

// Metadata returns the metadata attached to an object.
func (s *documentStore) Metadata(ctx context.Context, key string) (map[string]string, error) {
	var raw string
	err := s.store.db.QueryRowContext(ctx, "SELECT metadata FROM objects WHERE key = ?", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading object metadata %s: %w", key, err)
	}
	metadata := map[string]string{}
	if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
		return nil, fmt.Errorf("decoding object metadata %s: %w", key, err)
	}
	return metadata, nil
}

// Close is a no-op; the owning Store closes the connection.
func (s *documentStore) Close() error {
	return nil
}
