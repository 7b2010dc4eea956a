package sqlite

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/custodia-labs/docrag/internal/adapters/driven/vector/hnsw"
	"github.com/custodia-labs/docrag/internal/core/domain"
)

var _ hnsw.RecordStore = (*VectorStore)(nil)

// VectorStore persists vector records so an in-process index can be rebuilt
// at startup.
type VectorStore struct {
	store *Store
}

// SaveRecords inserts records in one transaction. Existing IDs are left untouched.
func (s *VectorStore) SaveRecords(ctx context.Context, records []domain.VectorRecord) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vectors (id, document_id, chunk_index, embedding, chunk_text, filename, start_char, end_char)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.ID, r.DocumentID, r.ChunkIndex,
			encodeVector(r.Embedding), r.ChunkText, r.Filename, r.StartChar, r.EndChar); err != nil {
			return fmt.Errorf("saving vector %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// DeleteRecords removes every record of a document and returns the count.
func (s *VectorStore) DeleteRecords(ctx context.Context, documentID string) (int, error) {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM vectors WHERE document_id = ?", documentID)
	if err != nil {
		return 0, fmt.Errorf("deleting vectors: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted vectors: %w", err)
	}
	return int(n), nil
}

// LoadRecords streams every record, ordered by document and chunk.
func (s *VectorStore) LoadRecords(ctx context.Context, fn func(domain.VectorRecord) error) error {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, document_id, chunk_index, embedding, chunk_text, filename, start_char, end_char
		FROM vectors ORDER BY document_id, chunk_index
	`)
	if err != nil {
		return fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r domain.VectorRecord
		var blob []byte
		if err := rows.Scan(&r.ID, &r.DocumentID, &r.ChunkIndex, &blob,
			&r.ChunkText, &r.Filename, &r.StartChar, &r.EndChar); err != nil {
			return fmt.Errorf("scanning vector: %w", err)
		}
		if r.Embedding, err = decodeVector(blob); err != nil {
			return fmt.Errorf("vector %s: %w", r.ID, err)
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating vectors: %w", err)
	}
	return nil
}

// Count returns the number of stored records.
func (s *VectorStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vectors").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting vectors: %w", err)
	}
	return n, nil
}

// encodeVector packs an embedding as little-endian float32s.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("embedding blob of %d bytes is not float32 aligned", len(blob))
	}
	v := make([]float32, len(blob)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[4*i:]))
	}
	return v, nil
}
