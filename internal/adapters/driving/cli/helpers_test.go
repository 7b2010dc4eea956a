package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/docrag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/services"
)

// mockIngestionService is a mock implementation of driving.IngestionService.
type mockIngestionService struct {
	mu        sync.Mutex
	requests  []domain.UploadRequest
	deleted   []string
	uploadErr map[string]error
	deleteErr error
}

func (m *mockIngestionService) Upload(_ context.Context, req domain.UploadRequest) (*domain.DocumentMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if err := m.uploadErr[req.Filename]; err != nil {
		return nil, err
	}
	return &domain.DocumentMetadata{
		DocumentID:  "id-" + req.Filename,
		Filename:    req.Filename,
		ContentType: req.ContentType,
		ChunkCount:  len(req.Content)/10 + 1,
	}, nil
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
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, documentID)
	return nil
}

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	answer   *domain.Answer
	hits     []domain.SearchHit
	err      error
	question string
	opts     domain.QueryOptions
}

func (m *mockRetrievalService) Query(_ context.Context, q string, opts domain.QueryOptions) (*domain.Answer, error) {
	m.question, m.opts = q, opts
	return m.answer, m.err
}

func (m *mockRetrievalService) Search(_ context.Context, q string, opts domain.QueryOptions) ([]domain.SearchHit, error) {
	m.question, m.opts = q, opts
	return m.hits, m.err
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.DocumentMetadata
	report    *domain.ConsistencyReport
	err       error
}

func (m *mockDocumentService) List(_ context.Context) ([]domain.DocumentMetadata, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) Get(_ context.Context, id string) (*domain.DocumentMetadata, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.documents {
		if m.documents[i].DocumentID == id {
			return &m.documents[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockDocumentService) Verify(_ context.Context) (*domain.ConsistencyReport, error) {
	return m.report, m.err
}

// testEnv holds the mocks wired into the package-level services.
type testEnv struct {
	ingestion *mockIngestionService
	retrieval *mockRetrievalService
	document  *mockDocumentService
	store     *memory.ConfigStore
}

// setupTestServices wires mocks into the CLI and restores state on cleanup.
func setupTestServices(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		ingestion: &mockIngestionService{},
		retrieval: &mockRetrievalService{},
		document:  &mockDocumentService{},
		store:     memory.NewConfigStore(),
	}

	ingestionService = env.ingestion
	retrievalService = env.retrieval
	documentService = env.document
	configStore = env.store
	settingsService = services.NewSettingsService(env.store, nil)

	t.Cleanup(func() {
		ingestionService = nil
		retrievalService = nil
		documentService = nil
		configStore = nil
		settingsService = nil
		closeServices = nil
		app = App{}
		resetFlags(rootCmd)
	})
	return env
}

// resetFlags restores every flag to its default so tests do not leak state.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// runCLI executes the root command with args and returns combined output.
func runCLI(t *testing.T, stdin io.Reader, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	if stdin == nil {
		stdin = strings.NewReader("")
	}
	rootCmd.SetIn(stdin)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}
