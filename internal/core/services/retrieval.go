package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
	"github.com/custodia-labs/docrag/internal/logger"
	"github.com/custodia-labs/docrag/internal/retry"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

var retrievalLog = logger.For("retrieval")

// RetrievalService answers questions from the vector index.
type RetrievalService struct {
	embedder     *EmbeddingClient
	index        driven.VectorIndex
	llm          driven.LLMService
	prompts      driven.PromptStore
	defaults     domain.RetrievalSettings
	llmConfig    domain.LLMSettings
	policy       retry.Policy
	searchPolicy retry.Policy

	queries    metric.Int64Counter
	unanswered metric.Int64Counter
	tokens     metric.Int64Counter
}

// NewRetrievalService creates a new retrieval service.
// The llm parameter is optional; without it Query fails and Search still works.
func NewRetrievalService(
	embedder *EmbeddingClient,
	index driven.VectorIndex,
	llm driven.LLMService,
	cfg domain.Config,
) *RetrievalService {
	return &RetrievalService{
		embedder:     embedder,
		index:        index,
		llm:          llm,
		defaults:     cfg.Retrieval,
		llmConfig:    cfg.LLM,
		policy:       NewPolicy(cfg.Retry.Synthesis, cfg.LLM.Timeout),
		searchPolicy: indexPolicy(cfg.Retry.Index),
		queries:      counter("docrag.retrieval.queries", "Questions answered"),
		unanswered:   counter("docrag.retrieval.unanswered", "Questions with no relevant chunks"),
		tokens:       counter("docrag.retrieval.llm_tokens", "Language model tokens used for answers"),
	}
}

// SetPromptStore sets the prompt template source.
func (s *RetrievalService) SetPromptStore(store driven.PromptStore) {
	s.prompts = store
}

// SetSynthesisPolicy overrides the retry policy for language model calls.
func (s *RetrievalService) SetSynthesisPolicy(p retry.Policy) {
	s.policy = p
}

// SetSearchPolicy overrides the retry policy for vector index searches.
func (s *RetrievalService) SetSearchPolicy(p retry.Policy) {
	s.searchPolicy = p
}

// Query answers a question with citations.
func (s *RetrievalService) Query(ctx context.Context, question string, opts domain.QueryOptions) (*domain.Answer, error) {
	ctx, span := tracer().Start(ctx, "retrieval.query")
	defer span.End()

	logger.Section("Query")
	s.queries.Add(ctx, 1)

	hits, err := s.retrieve(ctx, question, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("retrieval.hits", len(hits)))

	if len(hits) == 0 {
		s.unanswered.Add(ctx, 1)
		retrievalLog.Info("no chunks above threshold, skipping synthesis")
		return &domain.Answer{
			Text:      domain.NoRelevantInformation,
			Found:     false,
			Citations: []domain.Citation{},
		}, nil
	}

	if s.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}

	text, err := s.synthesise(ctx, strings.TrimSpace(question), hits)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	citations := parseCitations(text, hits)
	span.SetAttributes(attribute.Int("retrieval.citations", len(citations)))
	retrievalLog.Info("answered from %d chunks, %d cited", len(hits), len(citations))

	return &domain.Answer{
		Text:      text,
		Found:     true,
		Citations: citations,
	}, nil
}

// Search returns ranked chunks without synthesising an answer.
func (s *RetrievalService) Search(ctx context.Context, query string, opts domain.QueryOptions) ([]domain.SearchHit, error) {
	ctx, span := tracer().Start(ctx, "retrieval.search")
	defer span.End()

	hits, err := s.retrieve(ctx, query, opts)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("retrieval.hits", len(hits)))
	return hits, nil
}

// retrieve embeds the question and searches the index.
func (s *RetrievalService) retrieve(ctx context.Context, question string, opts domain.QueryOptions) ([]domain.SearchHit, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}
	if s.index == nil {
		return nil, domain.ErrVectorIndexUnavailable
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = s.defaults.TopK
	}
	threshold := s.defaults.Threshold
	if opts.Threshold != nil {
		threshold = *opts.Threshold
	}
	retrievalLog.Debug("query %q top_k=%d threshold=%.2f", question, topK, threshold)

	vectors, err := s.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, err
	}

	var hits []domain.SearchHit
	res := s.searchPolicy.Do(ctx, func(ctx context.Context) error {
		var err error
		hits, err = s.index.Search(ctx, vectors[0], topK, threshold)
		return err
	})
	if !res.OK() {
		return nil, fmt.Errorf("%w: %w", domain.ErrSearchFailed, res.Err)
	}

	// Indexes already order by score; keep the contract explicit.
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	retrievalLog.Debug("%d hits", len(hits))
	return hits, nil
}

// synthesise asks the language model for a cited answer.
func (s *RetrievalService) synthesise(ctx context.Context, question string, hits []domain.SearchHit) (string, error) {
	system := loadPrompt(s.prompts, driven.PromptAnswerSystem)
	user := fmt.Sprintf(loadPrompt(s.prompts, driven.PromptAnswerUser), buildContext(hits), question)

	req := driven.UserPrompt(system, user)
	req.MaxTokens = s.llmConfig.MaxTokens
	req.Temperature = s.llmConfig.Temperature

	var answer string
	res := s.policy.Do(ctx, func(ctx context.Context) error {
		out, err := s.llm.Complete(ctx, req)
		if err != nil {
			retrievalLog.Debug("synthesis attempt failed: %v", err)
			return err
		}
		s.tokens.Add(ctx, int64(out.InputTokens), metric.WithAttributes(attribute.String("direction", "input")))
		s.tokens.Add(ctx, int64(out.OutputTokens), metric.WithAttributes(attribute.String("direction", "output")))
		text := strings.TrimSpace(out.Text)
		if text == "" {
			return fmt.Errorf("%w: empty completion", domain.ErrTransient)
		}
		if out.Truncated {
			retrievalLog.Warn("answer hit the %d token limit and may be cut short", req.MaxTokens)
		}
		answer = text
		return nil
	})
	if !res.OK() {
		retrievalLog.Warn("synthesis %s after %d attempts: %v", res.Status, res.Attempts, res.Err)
		return "", fmt.Errorf("%w: %w", domain.ErrSynthesisUnavailable, res.Err)
	}
	return answer, nil
}
