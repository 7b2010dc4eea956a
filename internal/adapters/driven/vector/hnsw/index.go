package hnsw

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

var log = logger.For("hnsw")

// Default graph parameters.
const (
	DefaultM              = 16
	DefaultEfConstruction = 200
	DefaultEfSearch       = 64

	// compactRatio is the tombstone share that triggers a rebuild.
	compactRatio = 0.25
)

// RecordStore persists vector records for an Index.
// SaveRecords must ignore records whose ID already exists.
type RecordStore interface {
	SaveRecords(ctx context.Context, records []domain.VectorRecord) error
	DeleteRecords(ctx context.Context, documentID string) (int, error)
	LoadRecords(ctx context.Context, fn func(domain.VectorRecord) error) error
}

// Config holds index parameters.
type Config struct {
	// Dimension is the embedding length (required).
	Dimension int

	// M is the number of links per node per layer. Layer 0 keeps 2*M.
	M int

	// EfConstruction is the candidate list size while inserting.
	EfConstruction int

	// EfSearch is the candidate list size while searching.
	EfSearch int

	// Store, when set, receives every insert and delete before the graph changes.
	Store RecordStore

	// Seed makes level assignment reproducible. Zero picks a fixed default.
	Seed uint64
}

type node struct {
	record  domain.VectorRecord
	vec     []float32
	links   [][]uint32
	deleted bool
}

// Index is an HNSW graph over vector records. It is safe for concurrent use.
type Index struct {
	cfg       Config
	levelMult float64

	mu         sync.RWMutex
	rng        *rand.Rand
	nodes      []*node
	byID       map[string]uint32
	byDoc      map[string][]uint32
	entry      int
	maxLevel   int
	tombstones int
}

// New creates an empty in-memory index. cfg.Store is ignored; use Open to
// attach durable storage.
func New(cfg Config) (*Index, error) {
	cfg.Store = nil
	return newIndex(cfg)
}

// Open creates an index and, when cfg.Store is set, rebuilds the graph from
// the stored records.
func Open(ctx context.Context, cfg Config) (*Index, error) {
	ix, err := newIndex(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Store == nil {
		return ix, nil
	}

	done := logger.Timer("hnsw rebuild from store")
	defer done()

	err = cfg.Store.LoadRecords(ctx, func(r domain.VectorRecord) error {
		if len(r.Embedding) != ix.cfg.Dimension {
			return fmt.Errorf("%w: stored record %s has %d dimensions, index has %d",
				domain.ErrDimensionMismatch, r.ID, len(r.Embedding), ix.cfg.Dimension)
		}
		if _, ok := ix.byID[r.ID]; !ok {
			ix.add(r)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load vector records: %w", err)
	}
	log.Debug("loaded %d records", len(ix.byID))
	return ix, nil
}

func newIndex(cfg Config) (*Index, error) {
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("%w: hnsw: dimension must be positive", domain.ErrInvalidInput)
	}
	if cfg.M == 0 {
		cfg.M = DefaultM
	}
	if cfg.M < 2 {
		return nil, fmt.Errorf("%w: hnsw: M must be at least 2", domain.ErrInvalidInput)
	}
	if cfg.EfConstruction <= 0 {
		cfg.EfConstruction = DefaultEfConstruction
	}
	if cfg.EfSearch <= 0 {
		cfg.EfSearch = DefaultEfSearch
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = 0x9E3779B97F4A7C15
	}

	ix := &Index{
		cfg:       cfg,
		levelMult: 1 / math.Log(float64(cfg.M)),
		rng:       rand.New(rand.NewPCG(seed, seed>>1)), //nolint:gosec // level assignment, not security
	}
	ix.reset()
	return ix, nil
}

func (ix *Index) reset() {
	ix.nodes = nil
	ix.byID = make(map[string]uint32)
	ix.byDoc = make(map[string][]uint32)
	ix.entry = -1
	ix.maxLevel = 0
	ix.tombstones = 0
}

// Insert adds records. Records whose ID is already live are skipped.
func (ix *Index) Insert(ctx context.Context, records []domain.VectorRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, r := range records {
		if len(r.Embedding) != ix.cfg.Dimension {
			return fmt.Errorf("%w: record %s has %d dimensions, index has %d",
				domain.ErrDimensionMismatch, r.ID, len(r.Embedding), ix.cfg.Dimension)
		}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	fresh := make([]domain.VectorRecord, 0, len(records))
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		if _, live := ix.byID[r.ID]; live || seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		fresh = append(fresh, r)
	}
	if len(fresh) == 0 {
		return nil
	}

	if ix.cfg.Store != nil {
		if err := ix.cfg.Store.SaveRecords(ctx, fresh); err != nil {
			return fmt.Errorf("persist vector records: %w", err)
		}
	}
	for _, r := range fresh {
		r.Embedding = append([]float32(nil), r.Embedding...)
		ix.add(r)
	}
	return nil
}

// Search returns up to topK live records scoring at least threshold, best first.
func (ix *Index) Search(ctx context.Context, query []float32, topK int, threshold float64) ([]domain.SearchHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(query) != ix.cfg.Dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrDimensionMismatch, len(query), ix.cfg.Dimension)
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	hits := []domain.SearchHit{}
	if ix.entry < 0 || topK <= 0 || len(ix.byID) == 0 {
		return hits, nil
	}

	q := normalise(query)
	ep := uint32(ix.entry)
	for l := ix.maxLevel; l > 0; l-- {
		ep = ix.greedy(q, ep, l)
	}
	ef := max(ix.cfg.EfSearch, topK) + min(ix.tombstones, ix.cfg.EfSearch)
	for _, c := range ix.searchLayer(q, ep, ef, 0) {
		n := ix.nodes[c.id]
		if n.deleted {
			continue
		}
		score := float64(1 - c.dist)
		if score < threshold {
			continue
		}
		rec := n.record
		rec.Embedding = append([]float32(nil), rec.Embedding...)
		hits = append(hits, domain.SearchHit{Record: rec, Score: score})
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

// DeleteByDocument tombstones every live record of a document.
func (ix *Index) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	ids := ix.byDoc[documentID]
	if len(ids) == 0 {
		return 0, nil
	}
	if ix.cfg.Store != nil {
		if _, err := ix.cfg.Store.DeleteRecords(ctx, documentID); err != nil {
			return 0, fmt.Errorf("delete stored vector records: %w", err)
		}
	}

	for _, id := range ids {
		n := ix.nodes[id]
		n.deleted = true
		delete(ix.byID, n.record.ID)
	}
	delete(ix.byDoc, documentID)
	ix.tombstones += len(ids)

	if float64(ix.tombstones) > compactRatio*float64(len(ix.nodes)) {
		ix.rebuild()
	}
	return len(ids), nil
}

// DocumentIDs returns the distinct document IDs with live records, sorted.
func (ix *Index) DocumentIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	ids := make([]string, 0, len(ix.byDoc))
	for id := range ix.byDoc {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Dimension returns the configured embedding length.
func (ix *Index) Dimension() int {
	return ix.cfg.Dimension
}

// Len returns the number of live records.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.byID)
}

// Close releases the graph. The RecordStore belongs to the caller.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.reset()
	return nil
}

// rebuild replaces the graph with one built from live nodes only.
// Caller holds the write lock.
func (ix *Index) rebuild() {
	live := make([]domain.VectorRecord, 0, len(ix.byID))
	for _, n := range ix.nodes {
		if !n.deleted {
			live = append(live, n.record)
		}
	}
	log.Debug("compacting graph: %d live, %d tombstones", len(live), ix.tombstones)

	ix.reset()
	for _, r := range live {
		ix.add(r)
	}
}
