package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
	"github.com/custodia-labs/docrag/internal/logger"
	"github.com/custodia-labs/docrag/internal/retry"
)

// Ensure IngestionService implements the interface.
var _ driving.IngestionService = (*IngestionService)(nil)

var ingestLog = logger.For("ingest")

// StateObserver receives every ingestion state transition.
type StateObserver func(documentID string, state domain.IngestState)

// IngestionOption configures an IngestionService.
type IngestionOption func(*IngestionService)

// WithStateObserver registers a callback for state transitions.
func WithStateObserver(fn StateObserver) IngestionOption {
	return func(s *IngestionService) {
		s.observer = fn
	}
}

// WithIDGenerator overrides document ID generation.
func WithIDGenerator(fn func() string) IngestionOption {
	return func(s *IngestionService) {
		s.newID = fn
	}
}

// WithClock overrides the upload timestamp source.
func WithClock(fn func() time.Time) IngestionOption {
	return func(s *IngestionService) {
		s.now = fn
	}
}

// WithStorePolicy overrides the retry policy for document store writes and deletes.
func WithStorePolicy(p retry.Policy) IngestionOption {
	return func(s *IngestionService) {
		s.storePolicy = p
	}
}

// WithIndexPolicy overrides the retry policy for vector index inserts and deletes.
func WithIndexPolicy(p retry.Policy) IngestionOption {
	return func(s *IngestionService) {
		s.indexPolicy = p
	}
}

// IngestionService runs the upload state machine and document deletion.
type IngestionService struct {
	extractors  driven.ExtractorRegistry
	chunker     driven.Chunker
	embedder    *EmbeddingClient
	index       driven.VectorIndex
	store       driven.DocumentStore
	settings    domain.IngestionSettings
	insertBatch int
	storePolicy retry.Policy
	indexPolicy retry.Policy
	observer    StateObserver
	newID       func() string
	now         func() time.Time

	uploads  metric.Int64Counter
	failures metric.Int64Counter
	deletes  metric.Int64Counter
}

// NewIngestionService creates a new ingestion service.
func NewIngestionService(
	extractors driven.ExtractorRegistry,
	chunker driven.Chunker,
	embedder *EmbeddingClient,
	index driven.VectorIndex,
	store driven.DocumentStore,
	cfg domain.Config,
	opts ...IngestionOption,
) *IngestionService {
	insertBatch := cfg.Index.InsertBatchSize
	if insertBatch <= 0 {
		insertBatch = domain.DefaultConfig().Index.InsertBatchSize
	}
	settings := cfg.Ingestion
	if settings.RollbackTimeout <= 0 {
		settings.RollbackTimeout = domain.DefaultConfig().Ingestion.RollbackTimeout
	}
	if settings.Concurrency <= 0 {
		settings.Concurrency = 1
	}

	s := &IngestionService{
		extractors:  extractors,
		chunker:     chunker,
		embedder:    embedder,
		index:       index,
		store:       store,
		settings:    settings,
		insertBatch: insertBatch,
		storePolicy: storePolicy(cfg.Retry.Store),
		indexPolicy: indexPolicy(cfg.Retry.Index),
		newID:       uuid.NewString,
		now:         time.Now,
		uploads:     counter("docrag.ingest.uploads", "Documents committed"),
		failures:    counter("docrag.ingest.failures", "Uploads that failed and were rolled back"),
		deletes:     counter("docrag.ingest.deletes", "Documents deleted"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// upload tracks one attempt through the state machine.
type upload struct {
	id    string
	state domain.IngestState
	dirty bool
}

// Upload extracts, chunks, embeds and indexes a document, then commits its metadata.
func (s *IngestionService) Upload(ctx context.Context, req domain.UploadRequest) (*domain.DocumentMetadata, error) {
	ctx, span := tracer().Start(ctx, "ingest.upload")
	defer span.End()

	u := &upload{id: s.newID(), state: domain.StateReceived}
	span.SetAttributes(
		attribute.String("document.id", u.id),
		attribute.String("document.filename", req.Filename),
	)
	logger.Section("Ingest " + req.Filename)
	s.transition(u, domain.StateReceived)

	meta, err := s.run(ctx, u, req)
	if err != nil {
		if u.dirty {
			s.rollback(ctx, u.id)
		}
		s.transition(u, domain.StateFailed)
		s.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", u.state.String())))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		ingestLog.Warn("%s (%s) failed at %s: %v", req.Filename, u.id, u.state, err)
		return nil, &domain.IngestError{DocumentID: u.id, Stage: u.state, Err: err}
	}

	s.transition(u, domain.StateCommitted)
	s.uploads.Add(ctx, 1)
	span.SetAttributes(attribute.Int("document.chunks", meta.ChunkCount))
	ingestLog.Info("committed %s (%s): %d chunks", meta.Filename, meta.DocumentID, meta.ChunkCount)
	return meta, nil
}

// run executes the stages. On error, u.state is the stage that failed.
func (s *IngestionService) run(ctx context.Context, u *upload, req domain.UploadRequest) (*domain.DocumentMetadata, error) {
	contentType, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	// Extract
	u.state = domain.StateTextExtracted
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	done := logger.Timer("extract")
	text, err := s.extractors.Extract(ctx, req.Content, contentType)
	done()
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedFormat) || errors.Is(err, domain.ErrExtractionFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrExtractionFailed, err)
	}
	if text == "" {
		return nil, fmt.Errorf("%w: %w", domain.ErrExtractionFailed, domain.ErrEmptyDocument)
	}
	s.transition(u, domain.StateTextExtracted)

	// Chunk
	u.state = domain.StateChunked
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	chunks, err := s.chunker.Chunk(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrChunkingFailed, err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no chunks produced", domain.ErrChunkingFailed)
	}
	for i := range chunks {
		chunks[i].DocumentID = u.id
	}
	s.transition(u, domain.StateChunked)
	ingestLog.Debug("%s: %d chunks", req.Filename, len(chunks))

	// Embed and insert, one embedding batch at a time
	u.state = domain.StateEmbedding
	s.transition(u, domain.StateEmbedding)
	if err := s.embedAndIndex(ctx, u, req.Filename, chunks); err != nil {
		return nil, err
	}
	u.state = domain.StateIndexed
	s.transition(u, domain.StateIndexed)

	// Commit
	u.state = domain.StateCommitted
	meta := &domain.DocumentMetadata{
		DocumentID:      u.id,
		Filename:        req.Filename,
		UploadTimestamp: s.now().UTC(),
		FileSizeBytes:   int64(len(req.Content)),
		TextLength:      utf8.RuneCountInString(text),
		ContentType:     contentType,
		ChunkCount:      len(chunks),
		EmbeddingModel:  s.embedder.ModelName(),
		VectorDimension: s.index.Dimension(),
	}
	if err := s.commit(ctx, meta, req.Content, chunks); err != nil {
		return nil, err
	}
	return meta, nil
}

func (s *IngestionService) validate(req domain.UploadRequest) (string, error) {
	if req.Filename == "" {
		return "", fmt.Errorf("%w: filename is required", domain.ErrInvalidInput)
	}
	if len(req.Content) == 0 {
		return "", fmt.Errorf("%w: content is empty", domain.ErrInvalidInput)
	}
	if s.settings.MaxFileSizeBytes > 0 && int64(len(req.Content)) > s.settings.MaxFileSizeBytes {
		return "", fmt.Errorf("%w: %d bytes exceeds limit of %d",
			domain.ErrFileTooLarge, len(req.Content), s.settings.MaxFileSizeBytes)
	}

	contentType := domain.NormaliseContentType(req.ContentType)
	if contentType == "" {
		contentType = domain.DetectContentType(req.Filename)
	}
	if contentType == "" {
		return "", fmt.Errorf("%w: cannot determine type of %q", domain.ErrUnsupportedFormat, req.Filename)
	}
	return contentType, nil
}

func (s *IngestionService) embedAndIndex(ctx context.Context, u *upload, filename string, chunks []domain.Chunk) error {
	batchSize := s.embedder.BatchSize()

	for start := 0; start < len(chunks); start += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch := chunks[start:min(start+batchSize, len(chunks))]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		vectors, err := s.embedder.Embed(ctx, texts)
		if err != nil {
			return err
		}

		records := make([]domain.VectorRecord, len(batch))
		for i, c := range batch {
			records[i] = domain.VectorRecord{
				ID:         domain.VectorID(u.id, c.Index),
				DocumentID: u.id,
				ChunkIndex: c.Index,
				Embedding:  vectors[i],
				ChunkText:  c.Text,
				Filename:   filename,
				StartChar:  c.StartChar,
				EndChar:    c.EndChar,
			}
		}

		// A failure from here on is an indexing failure, not an embedding one.
		u.state = domain.StateIndexed
		for i := 0; i < len(records); i += s.insertBatch {
			if err := ctx.Err(); err != nil {
				return err
			}
			part := records[i:min(i+s.insertBatch, len(records))]
			u.dirty = true
			res := s.indexPolicy.Do(ctx, func(ctx context.Context) error {
				return s.index.Insert(ctx, part)
			})
			if !res.OK() {
				return fmt.Errorf("%w: %w", domain.ErrIndexInsertFailed, res.Err)
			}
		}
		u.state = domain.StateEmbedding
		ingestLog.Debug("indexed chunks %d-%d of %d", start, start+len(batch)-1, len(chunks))
	}
	return nil
}

// commit writes the original and chunk dump, then metadata.json last.
func (s *IngestionService) commit(
	ctx context.Context, meta *domain.DocumentMetadata, content []byte, chunks []domain.Chunk,
) error {
	chunkData, err := json.Marshal(chunks)
	if err != nil {
		return fmt.Errorf("%w: encode chunks: %w", domain.ErrStoreFailed, err)
	}
	metaData, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode metadata: %w", domain.ErrStoreFailed, err)
	}

	objectMeta := map[string]string{
		"document_id":  meta.DocumentID,
		"filename":     meta.Filename,
		"content_type": meta.ContentType,
	}
	writes := []struct {
		key  string
		data []byte
	}{
		{domain.OriginalKey(meta.DocumentID, domain.ExtensionFor(meta.Filename, meta.ContentType)), content},
		{domain.ChunksKey(meta.DocumentID), chunkData},
		{domain.MetadataKey(meta.DocumentID), metaData},
	}

	for _, w := range writes {
		res := s.storePolicy.Do(ctx, func(ctx context.Context) error {
			return s.store.Put(ctx, w.key, w.data, objectMeta)
		})
		if !res.OK() {
			return fmt.Errorf("%w: put %s: %w", domain.ErrStoreFailed, w.key, res.Err)
		}
	}
	return nil
}

// rollback removes everything an attempt may have written. It runs detached
// from the caller's context so cancellation cannot interrupt it.
func (s *IngestionService) rollback(ctx context.Context, documentID string) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.settings.RollbackTimeout)
	defer cancel()

	n, err := s.deleteVectors(rctx, documentID)
	if err != nil {
		ingestLog.Error("rollback of %s left vectors behind, reconcile with verify: %v", documentID, err)
	} else {
		ingestLog.Debug("rollback of %s removed %d vectors", documentID, n)
	}

	if err := s.deleteObjects(rctx, documentID); err != nil {
		ingestLog.Error("rollback of %s left objects behind, reconcile with verify: %v", documentID, err)
	}
}

// UploadMany ingests documents concurrently. A failure does not cancel the others.
func (s *IngestionService) UploadMany(ctx context.Context, reqs []domain.UploadRequest) []domain.UploadResult {
	results := make([]domain.UploadResult, len(reqs))

	var g errgroup.Group
	g.SetLimit(s.settings.Concurrency)

	for i, req := range reqs {
		g.Go(func() error {
			meta, err := s.Upload(ctx, req)
			results[i] = domain.UploadResult{Filename: req.Filename, Document: meta, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Delete removes a document's vectors, then its objects with metadata last.
func (s *IngestionService) Delete(ctx context.Context, documentID string) error {
	ctx, span := tracer().Start(ctx, "ingest.delete")
	defer span.End()
	span.SetAttributes(attribute.String("document.id", documentID))

	if documentID == "" {
		return fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}

	n, err := s.deleteVectors(ctx, documentID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: %w", domain.ErrVectorDeleteFailed, err)
	}
	ingestLog.Debug("deleted %d vectors of %s", n, documentID)

	if err := s.deleteObjects(ctx, documentID); err != nil {
		span.RecordError(err)
		return err
	}

	s.deletes.Add(ctx, 1)
	ingestLog.Info("deleted %s", documentID)
	return nil
}

// deleteVectors removes a document's vectors under the index retry policy.
func (s *IngestionService) deleteVectors(ctx context.Context, documentID string) (int, error) {
	var n int
	res := s.indexPolicy.Do(ctx, func(ctx context.Context) error {
		var err error
		n, err = s.index.DeleteByDocument(ctx, documentID)
		return err
	})
	return n, res.Err
}

// deleteObjects removes every object under the document prefix under the
// store retry policy, metadata.json last.
func (s *IngestionService) deleteObjects(ctx context.Context, documentID string) error {
	res := s.storePolicy.Do(ctx, func(ctx context.Context) error {
		keys, err := s.store.List(ctx, domain.DocumentPrefix(documentID))
		if err != nil {
			return err
		}
		slices.SortStableFunc(keys, func(a, b string) int {
			return boolCmp(path.Base(a) == domain.MetadataObject, path.Base(b) == domain.MetadataObject)
		})
		for _, key := range keys {
			if err := s.store.Delete(ctx, key); err != nil {
				return err
			}
		}
		return nil
	})
	if !res.OK() {
		return fmt.Errorf("%w: delete objects of %s: %w", domain.ErrStoreFailed, documentID, res.Err)
	}
	return nil
}

func (s *IngestionService) transition(u *upload, state domain.IngestState) {
	ingestLog.Debug("%s -> %s", u.id, state)
	if s.observer != nil {
		s.observer(u.id, state)
	}
}

// boolCmp orders false before true.
func boolCmp(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return 1
	default:
		return -1
	}
}
