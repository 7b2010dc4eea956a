package services

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/retry"
)

const testDims = 4

// fastPolicy retries without sleeping.
func fastPolicy(attempts int) retry.Policy {
	return retry.Policy{
		MaxAttempts: attempts,
		Jitter:      retry.NoJitter,
		Retryable:   domain.IsTransient,
		Sleep:       func(context.Context, time.Duration) error { return nil },
	}
}

// testConfig returns defaults scaled down for small test documents.
func testConfig() domain.Config {
	cfg := domain.DefaultConfig()
	cfg.Chunking.Size = 100
	cfg.Chunking.Overlap = 20
	cfg.Embedding.BatchSize = 2
	cfg.Ingestion.RollbackTimeout = time.Second
	return cfg
}

// --- Mock implementations ---

// mockEmbeddingService implements driven.EmbeddingService for testing.
// By default each text embeds to a deterministic unit-free vector.
type mockEmbeddingService struct {
	mu      sync.Mutex
	calls   int
	batches [][]string
	embedFn func(call int, texts []string) ([][]float32, error)
}

func fakeVector(text string) []float32 {
	return []float32{
		float32(len(text)%7) + 1,
		float32(strings.Count(text, "a")) + 1,
		float32(strings.Count(text, "e")) + 1,
		1,
	}
}

func (m *mockEmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.calls++
	call := m.calls
	m.batches = append(m.batches, append([]string(nil), texts...))
	fn := m.embedFn
	m.mu.Unlock()

	if fn != nil {
		return fn(call, texts)
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = fakeVector(t)
	}
	return out, nil
}

func (m *mockEmbeddingService) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockEmbeddingService) Dimensions() int            { return testDims }
func (m *mockEmbeddingService) ModelName() string          { return "mock-embed" }
func (m *mockEmbeddingService) Ping(context.Context) error { return nil }
func (m *mockEmbeddingService) Close() error               { return nil }

// mockVectorIndex implements driven.VectorIndex with brute-force cosine search.
type mockVectorIndex struct {
	mu          sync.Mutex
	records     map[string]domain.VectorRecord
	inserts     int
	insertErr   func(call int) error
	searches    int
	searchErr   error
	searchFails int // searchErr applies to the first n calls only, when positive
	deletes     int
	deleteErr   error
	deleteFails int

	// fixedHits, when set, replace computed search results.
	fixedHits []domain.SearchHit
}

func newMockVectorIndex() *mockVectorIndex {
	return &mockVectorIndex{records: make(map[string]domain.VectorRecord)}
}

func (m *mockVectorIndex) Insert(_ context.Context, records []domain.VectorRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserts++
	if m.insertErr != nil {
		if err := m.insertErr(m.inserts); err != nil {
			return err
		}
	}
	for _, r := range records {
		if len(r.Embedding) != testDims {
			return domain.ErrDimensionMismatch
		}
	}
	for _, r := range records {
		if _, ok := m.records[r.ID]; !ok {
			m.records[r.ID] = r
		}
	}
	return nil
}

func (m *mockVectorIndex) Search(_ context.Context, query []float32, topK int, threshold float64) ([]domain.SearchHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches++
	if m.searchErr != nil && (m.searchFails <= 0 || m.searches <= m.searchFails) {
		return nil, m.searchErr
	}

	var hits []domain.SearchHit
	if m.fixedHits != nil {
		for _, h := range m.fixedHits {
			if h.Score >= threshold {
				hits = append(hits, h)
			}
		}
	} else {
		for _, r := range m.records {
			score := cosine(query, r.Embedding)
			if score >= threshold {
				hits = append(hits, domain.SearchHit{Record: r, Score: score})
			}
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (m *mockVectorIndex) DeleteByDocument(_ context.Context, documentID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	if m.deleteErr != nil && (m.deleteFails <= 0 || m.deletes <= m.deleteFails) {
		return 0, m.deleteErr
	}
	n := 0
	for id, r := range m.records {
		if r.DocumentID == documentID {
			delete(m.records, id)
			n++
		}
	}
	return n, nil
}

func (m *mockVectorIndex) DocumentIDs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]bool)
	var ids []string
	for _, r := range m.records {
		if !seen[r.DocumentID] {
			seen[r.DocumentID] = true
			ids = append(ids, r.DocumentID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *mockVectorIndex) count(documentID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.records {
		if r.DocumentID == documentID {
			n++
		}
	}
	return n
}

func (m *mockVectorIndex) Dimension() int { return testDims }
func (m *mockVectorIndex) Close() error   { return nil }

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// mockLLMService implements driven.LLMService for testing.
type mockLLMService struct {
	mu       sync.Mutex
	calls    int
	response string
	errs     []error
	request  driven.CompletionRequest
}

func (m *mockLLMService) Complete(_ context.Context, req driven.CompletionRequest) (driven.Completion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.request = req
	if len(m.errs) >= m.calls && m.errs[m.calls-1] != nil {
		return driven.Completion{}, m.errs[m.calls-1]
	}
	return driven.Completion{Text: m.response, InputTokens: 10, OutputTokens: 5}, nil
}

func (m *mockLLMService) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockLLMService) ModelName() string          { return "mock-llm" }
func (m *mockLLMService) Ping(context.Context) error { return nil }
func (m *mockLLMService) Close() error               { return nil }

// mockExtractors implements driven.ExtractorRegistry. Plain text and markdown
// pass through; anything else is unsupported.
type mockExtractors struct {
	err error
}

func (m *mockExtractors) Register(driven.Extractor) {}

func (m *mockExtractors) Extract(_ context.Context, content []byte, contentType string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	switch contentType {
	case domain.ContentTypePlain, domain.ContentTypeMarkdown:
		return strings.TrimSpace(string(content)), nil
	default:
		return "", domain.ErrUnsupportedFormat
	}
}

func (m *mockExtractors) SupportedMIMETypes() []string {
	return []string{domain.ContentTypePlain, domain.ContentTypeMarkdown}
}

// failingStore wraps a DocumentStore and fails selected operations.
type failingStore struct {
	driven.DocumentStore
	failPut    func(key string) bool
	failDelete bool
}

var errStoreDown = errors.New("store down")

func (s *failingStore) Put(ctx context.Context, key string, data []byte, metadata map[string]string) error {
	if s.failPut != nil && s.failPut(key) {
		return errStoreDown
	}
	return s.DocumentStore.Put(ctx, key, data, metadata)
}

func (s *failingStore) Delete(ctx context.Context, key string) error {
	if s.failDelete {
		return errStoreDown
	}
	return s.DocumentStore.Delete(ctx, key)
}
