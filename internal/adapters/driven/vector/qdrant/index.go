// Package qdrant provides a vector index adapter backed by a Qdrant
// collection over its REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docrag/internal/adapters/driven/providererr"
	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

var log = logger.For("qdrant")

// Default configuration values.
const (
	DefaultURL        = "http://localhost:6333"
	DefaultCollection = "docrag"
	DefaultTimeout    = 15 * time.Second

	scrollPageSize = 256
	maxBodyBytes   = 10 << 20
)

// pointNamespace seeds the UUIDv5 point ids derived from vector ids.
var pointNamespace = uuid.MustParse("8b1d6c0e-3f57-5c2a-9a4e-6d0c3b7e21f4")

// Config holds configuration for the Qdrant index.
type Config struct {
	// URL is the REST endpoint (default: http://localhost:6333).
	URL string

	// APIKey is sent as the api-key header when set.
	APIKey string

	// Collection is the collection name (default: docrag).
	Collection string

	// Dimension is the embedding length (required).
	Dimension int

	// M and EfConstruction configure the collection's HNSW graph on creation.
	M              int
	EfConstruction int

	// EfSearch is sent as params.hnsw_ef on every search.
	EfSearch int

	// Timeout is the per-request timeout (default: 15s).
	Timeout time.Duration

	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

// Index is a driven.VectorIndex over one Qdrant collection.
type Index struct {
	cfg     Config
	baseURL string
	client  *http.Client
}

type envelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
}

type payload struct {
	VectorID   string `json:"vector_id"`
	DocumentID string `json:"document_id"`
	ChunkIndex int    `json:"chunk_index"`
	ChunkText  string `json:"chunk_text"`
	Filename   string `json:"filename"`
	StartChar  int    `json:"start_char"`
	EndChar    int    `json:"end_char"`
}

type point struct {
	ID      string    `json:"id"`
	Vector  []float32 `json:"vector"`
	Payload payload   `json:"payload"`
}

type scoredPoint struct {
	Score   float64 `json:"score"`
	Payload payload `json:"payload"`
}

// New connects to Qdrant and creates the collection if it does not exist.
// An existing collection with a different vector size is rejected.
func New(ctx context.Context, cfg Config) (*Index, error) {
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("%w: qdrant: dimension must be positive", domain.ErrInvalidInput)
	}
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	ix := &Index{
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.URL, "/"),
		client:  client,
	}
	if err := ix.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return ix, nil
}

func (ix *Index) ensureCollection(ctx context.Context) error {
	var info struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size     int    `json:"size"`
					Distance string `json:"distance"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	}
	err := ix.do(ctx, http.MethodGet, ix.collectionPath(""), nil, &info)
	if err == nil {
		size := info.Config.Params.Vectors.Size
		if size != ix.cfg.Dimension {
			return fmt.Errorf("%w: qdrant collection %q has vector size %d, index expects %d",
				domain.ErrDimensionMismatch, ix.cfg.Collection, size, ix.cfg.Dimension)
		}
		if d := info.Config.Params.Vectors.Distance; !strings.EqualFold(d, "Cosine") {
			return fmt.Errorf("qdrant collection %q uses %s distance, index expects Cosine", ix.cfg.Collection, d)
		}
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	create := map[string]any{
		"vectors": map[string]any{
			"size":     ix.cfg.Dimension,
			"distance": "Cosine",
		},
	}
	hnswConfig := map[string]any{}
	if ix.cfg.M > 0 {
		hnswConfig["m"] = ix.cfg.M
	}
	if ix.cfg.EfConstruction > 0 {
		hnswConfig["ef_construct"] = ix.cfg.EfConstruction
	}
	if len(hnswConfig) > 0 {
		create["hnsw_config"] = hnswConfig
	}
	if err := ix.do(ctx, http.MethodPut, ix.collectionPath(""), create, nil); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	log.Info("created collection %s (size %d)", ix.cfg.Collection, ix.cfg.Dimension)
	return nil
}

// Insert upserts records. Point ids derive from vector ids, so re-inserting
// a record overwrites it with identical content.
func (ix *Index) Insert(ctx context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	points := make([]point, 0, len(records))
	for _, r := range records {
		if len(r.Embedding) != ix.cfg.Dimension {
			return fmt.Errorf("%w: record %s has %d dimensions, index has %d",
				domain.ErrDimensionMismatch, r.ID, len(r.Embedding), ix.cfg.Dimension)
		}
		points = append(points, point{
			ID:     PointID(r.ID),
			Vector: r.Embedding,
			Payload: payload{
				VectorID:   r.ID,
				DocumentID: r.DocumentID,
				ChunkIndex: r.ChunkIndex,
				ChunkText:  r.ChunkText,
				Filename:   r.Filename,
				StartChar:  r.StartChar,
				EndChar:    r.EndChar,
			},
		})
	}
	return ix.do(ctx, http.MethodPut, ix.collectionPath("/points?wait=true"), map[string]any{"points": points}, nil)
}

// Search returns up to topK records scoring at least threshold, best first.
func (ix *Index) Search(ctx context.Context, query []float32, topK int, threshold float64) ([]domain.SearchHit, error) {
	if len(query) != ix.cfg.Dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrDimensionMismatch, len(query), ix.cfg.Dimension)
	}
	hits := []domain.SearchHit{}
	if topK <= 0 {
		return hits, nil
	}

	req := map[string]any{
		"vector":          query,
		"limit":           topK,
		"with_payload":    true,
		"with_vector":     false,
		"score_threshold": threshold,
	}
	if ix.cfg.EfSearch > 0 {
		req["params"] = map[string]any{"hnsw_ef": ix.cfg.EfSearch}
	}

	var results []scoredPoint
	if err := ix.do(ctx, http.MethodPost, ix.collectionPath("/points/search"), req, &results); err != nil {
		return nil, err
	}

	for _, p := range results {
		if p.Score < threshold {
			continue
		}
		hits = append(hits, domain.SearchHit{
			Record: domain.VectorRecord{
				ID:         p.Payload.VectorID,
				DocumentID: p.Payload.DocumentID,
				ChunkIndex: p.Payload.ChunkIndex,
				ChunkText:  p.Payload.ChunkText,
				Filename:   p.Payload.Filename,
				StartChar:  p.Payload.StartChar,
				EndChar:    p.Payload.EndChar,
			},
			Score: p.Score,
		})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Record.ID < hits[j].Record.ID
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// DeleteByDocument counts and then deletes every point of a document.
func (ix *Index) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	filter := documentFilter(documentID)

	var counted struct {
		Count int `json:"count"`
	}
	countReq := map[string]any{"filter": filter, "exact": true}
	if err := ix.do(ctx, http.MethodPost, ix.collectionPath("/points/count"), countReq, &counted); err != nil {
		return 0, fmt.Errorf("count points: %w", err)
	}
	if counted.Count == 0 {
		return 0, nil
	}

	if err := ix.do(ctx, http.MethodPost, ix.collectionPath("/points/delete?wait=true"),
		map[string]any{"filter": filter}, nil); err != nil {
		return 0, fmt.Errorf("delete points: %w", err)
	}
	return counted.Count, nil
}

// DocumentIDs scrolls the collection and returns the distinct document ids, sorted.
func (ix *Index) DocumentIDs(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var offset json.RawMessage

	for {
		req := map[string]any{
			"limit":        scrollPageSize,
			"with_payload": []string{"document_id"},
			"with_vector":  false,
		}
		if len(offset) > 0 {
			req["offset"] = offset
		}

		var page struct {
			Points []struct {
				Payload payload `json:"payload"`
			} `json:"points"`
			NextPageOffset json.RawMessage `json:"next_page_offset"`
		}
		if err := ix.do(ctx, http.MethodPost, ix.collectionPath("/points/scroll"), req, &page); err != nil {
			return nil, fmt.Errorf("scroll points: %w", err)
		}
		for _, p := range page.Points {
			if p.Payload.DocumentID != "" {
				seen[p.Payload.DocumentID] = true
			}
		}

		if len(page.NextPageOffset) == 0 || string(page.NextPageOffset) == "null" {
			break
		}
		offset = page.NextPageOffset
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Dimension returns the configured embedding length.
func (ix *Index) Dimension() int {
	return ix.cfg.Dimension
}

// Close releases idle connections.
func (ix *Index) Close() error {
	ix.client.CloseIdleConnections()
	return nil
}

// PointID maps a vector id onto the UUID Qdrant stores it under.
func PointID(vectorID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(vectorID)).String()
}

func documentFilter(documentID string) map[string]any {
	return map[string]any{
		"must": []any{
			map[string]any{
				"key":   "document_id",
				"match": map[string]any{"value": documentID},
			},
		},
	}
}

func (ix *Index) collectionPath(suffix string) string {
	return "/collections/" + ix.cfg.Collection + suffix
}

// do sends a JSON request and decodes the envelope's result into out.
// A 404 wraps domain.ErrNotFound; other failures are classified for retry.
func (ix *Index) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("qdrant: marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, ix.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("qdrant: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if ix.cfg.APIKey != "" {
		req.Header.Set("api-key", ix.cfg.APIKey)
	}

	resp, err := ix.client.Do(req)
	if err != nil {
		return providererr.FromTransport("qdrant", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return providererr.FromTransport("qdrant", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: qdrant %s %s", domain.ErrNotFound, method, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return providererr.FromStatus("qdrant", resp.StatusCode, raw)
	}

	if out == nil {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("qdrant: decode response: %w", err)
	}
	if len(env.Result) == 0 || string(env.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("qdrant: decode result: %w", err)
	}
	return nil
}
