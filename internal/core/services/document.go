package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService reads committed documents.
type DocumentService struct {
	store driven.DocumentStore
	index driven.VectorIndex
}

// NewDocumentService creates a new document service.
// The index parameter is only needed by Verify.
func NewDocumentService(store driven.DocumentStore, index driven.VectorIndex) *DocumentService {
	return &DocumentService{
		store: store,
		index: index,
	}
}

// List returns all committed documents, newest first.
func (s *DocumentService) List(ctx context.Context) ([]domain.DocumentMetadata, error) {
	keys, err := s.store.List(ctx, domain.DocumentsPrefix)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	docs := make([]domain.DocumentMetadata, 0, len(keys))
	for _, key := range keys {
		if !domain.IsMetadataKey(key) {
			continue
		}
		meta, err := s.load(ctx, key)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *meta)
	}

	sort.SliceStable(docs, func(i, j int) bool {
		if !docs[i].UploadTimestamp.Equal(docs[j].UploadTimestamp) {
			return docs[i].UploadTimestamp.After(docs[j].UploadTimestamp)
		}
		return docs[i].DocumentID < docs[j].DocumentID
	})
	return docs, nil
}

// Get retrieves a document's metadata by ID.
func (s *DocumentService) Get(ctx context.Context, documentID string) (*domain.DocumentMetadata, error) {
	if documentID == "" {
		return nil, fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}
	return s.load(ctx, domain.MetadataKey(documentID))
}

// Verify compares the documents in the store with those in the vector index.
func (s *DocumentService) Verify(ctx context.Context) (*domain.ConsistencyReport, error) {
	if s.index == nil {
		return nil, domain.ErrVectorIndexUnavailable
	}

	docs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	indexed, err := s.index.DocumentIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSearchFailed, err)
	}

	stored := make(map[string]bool, len(docs))
	for _, d := range docs {
		stored[d.DocumentID] = true
	}
	inIndex := make(map[string]bool, len(indexed))
	for _, id := range indexed {
		inIndex[id] = true
	}

	report := &domain.ConsistencyReport{
		Documents:        len(stored),
		IndexedDocuments: len(inIndex),
		OrphanedVectors:  []string{},
		MissingVectors:   []string{},
	}
	for id := range inIndex {
		if !stored[id] {
			report.OrphanedVectors = append(report.OrphanedVectors, id)
		}
	}
	for id := range stored {
		if !inIndex[id] {
			report.MissingVectors = append(report.MissingVectors, id)
		}
	}
	sort.Strings(report.OrphanedVectors)
	sort.Strings(report.MissingVectors)

	return report, nil
}

func (s *DocumentService) load(ctx context.Context, key string) (*domain.DocumentMetadata, error) {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var meta domain.DocumentMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &meta, nil
}
