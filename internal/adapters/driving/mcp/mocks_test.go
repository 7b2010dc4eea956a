package mcp

import (
	"context"
	"sync"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// mockIngestionService is a mock implementation of driving.IngestionService.
type mockIngestionService struct {
	mu       sync.Mutex
	meta     *domain.DocumentMetadata
	err      error
	requests []domain.UploadRequest
	deleted  []string
}

func (m *mockIngestionService) Upload(_ context.Context, req domain.UploadRequest) (*domain.DocumentMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	return m.meta, nil
}

func (m *mockIngestionService) UploadMany(ctx context.Context, reqs []domain.UploadRequest) []domain.UploadResult {
	results := make([]domain.UploadResult, len(reqs))
	for i, req := range reqs {
		meta, err := m.Upload(ctx, req)
		results[i] = domain.UploadResult{Filename: req.Filename, Document: meta, Err: err}
	}
	return results
}

func (m *mockIngestionService) Delete(_ context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, documentID)
	return m.err
}

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	answer *domain.Answer
	hits   []domain.SearchHit
	err    error
	opts   domain.QueryOptions
}

func (m *mockRetrievalService) Query(_ context.Context, _ string, opts domain.QueryOptions) (*domain.Answer, error) {
	m.opts = opts
	return m.answer, m.err
}

func (m *mockRetrievalService) Search(_ context.Context, _ string, opts domain.QueryOptions) ([]domain.SearchHit, error) {
	m.opts = opts
	return m.hits, m.err
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.DocumentMetadata
	document  *domain.DocumentMetadata
	report    *domain.ConsistencyReport
	err       error
}

func (m *mockDocumentService) List(_ context.Context) ([]domain.DocumentMetadata, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) Get(_ context.Context, _ string) (*domain.DocumentMetadata, error) {
	return m.document, m.err
}

func (m *mockDocumentService) Verify(_ context.Context) (*domain.ConsistencyReport, error) {
	return m.report, m.err
}

// testPorts returns ports backed by fresh mocks.
func testPorts() (*Ports, *mockIngestionService, *mockRetrievalService, *mockDocumentService) {
	ing := &mockIngestionService{}
	ret := &mockRetrievalService{}
	doc := &mockDocumentService{}
	return &Ports{Ingestion: ing, Retrieval: ret, Document: doc}, ing, ret, doc
}
