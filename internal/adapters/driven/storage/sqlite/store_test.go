package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/adapters/driven/vector/hnsw"
	"github.com/custodia-labs/docrag/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) (*Store, string) {
	t.Helper()

	tempDir := t.TempDir()
	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NotNil(t, store)

	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})
	return store, tempDir
}

func testRecord(docID string, chunk int, vec ...float32) domain.VectorRecord {
	return domain.VectorRecord{
		ID:         domain.VectorID(docID, chunk),
		DocumentID: docID,
		ChunkIndex: chunk,
		Embedding:  vec,
		ChunkText:  "text of " + domain.VectorID(docID, chunk),
		Filename:   docID + ".md",
		StartChar:  chunk * 10,
		EndChar:    chunk*10 + 12,
	}
}

// ==================== Store Creation and Initialization Tests ====================

func TestNewStore_ErrorHandling(t *testing.T) {
	_, err := NewStore("/invalid\x00path")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "creating data directory")
}

func TestNewStore_Success(t *testing.T) {
	store, dir := setupTestStore(t)

	assert.Equal(t, filepath.Join(dir, "docrag.db"), store.Path())
	_, err := os.Stat(store.Path())
	assert.NoError(t, err)
}

func TestNewStore_MigrationsRecorded(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	var version int
	require.NoError(t, store.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 1, version)
	require.NoError(t, store.Close())

	// Reopening must not re-run applied migrations.
	reopened, err := NewStore(dir)
	require.NoError(t, err)
	var count int
	require.NoError(t, reopened.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 1, count)
	assert.NoError(t, reopened.Close())
}

// ==================== Document Store Tests ====================

func TestDocumentStore_PutGet(t *testing.T) {
	store, _ := setupTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()

	require.NoError(t, docs.Put(ctx, "documents/a/metadata.json", []byte(`{"id":"a"}`), map[string]string{"document_id": "a"}))

	data, err := docs.Get(ctx, "documents/a/metadata.json")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"a"}`, string(data))

	meta, err := docs.(*documentStore).Metadata(ctx, "documents/a/metadata.json")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"document_id": "a"}, meta)
}

func TestDocumentStore_PutReplaces(t *testing.T) {
	store, _ := setupTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()

	require.NoError(t, docs.Put(ctx, "k", []byte("one"), nil))
	require.NoError(t, docs.Put(ctx, "k", []byte("two"), nil))

	data, err := docs.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

func TestDocumentStore_EmptyObject(t *testing.T) {
	store, _ := setupTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()

	require.NoError(t, docs.Put(ctx, "empty", nil, nil))
	data, err := docs.Get(ctx, "empty")
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestDocumentStore_GetMissing(t *testing.T) {
	store, _ := setupTestStore(t)

	_, err := store.DocumentStore().Get(context.Background(), "nope")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_DeleteIdempotent(t *testing.T) {
	store, _ := setupTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()

	require.NoError(t, docs.Put(ctx, "k", []byte("v"), nil))
	require.NoError(t, docs.Delete(ctx, "k"))
	require.NoError(t, docs.Delete(ctx, "k"))

	_, err := docs.Get(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_ListPrefixSorted(t *testing.T) {
	store, _ := setupTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()

	for _, key := range []string{
		"documents/b/metadata.json",
		"documents/a/original.pdf",
		"documents/a/metadata.json",
		"documents_other/x",
		"other/documents/y",
		"documents/a%/z",
	} {
		require.NoError(t, docs.Put(ctx, key, []byte("x"), nil))
	}

	keys, err := docs.List(ctx, "documents/a")
	require.NoError(t, err)
	assert.Equal(t, []string{"documents/a%/z", "documents/a/metadata.json", "documents/a/original.pdf"}, keys)

	keys, err = docs.List(ctx, "documents/")
	require.NoError(t, err)
	assert.Len(t, keys, 4)

	keys, err = docs.List(ctx, "missing/")
	require.NoError(t, err)
	assert.NotNil(t, keys)
	assert.Empty(t, keys)
}

// ==================== Vector Store Tests ====================

func TestVectorStore_SaveLoadRoundTrip(t *testing.T) {
	store, _ := setupTestStore(t)
	vectors := store.VectorStore()
	ctx := context.Background()

	in := []domain.VectorRecord{
		testRecord("b", 0, 0.5, -0.25, 3),
		testRecord("a", 1, 1, 2, 3),
		testRecord("a", 0, -1, 0, 1e-7),
	}
	require.NoError(t, vectors.SaveRecords(ctx, in))

	var out []domain.VectorRecord
	require.NoError(t, vectors.LoadRecords(ctx, func(r domain.VectorRecord) error {
		out = append(out, r)
		return nil
	}))

	require.Len(t, out, 3)
	assert.Equal(t, in[2], out[0])
	assert.Equal(t, in[1], out[1])
	assert.Equal(t, in[0], out[2])
}

func TestVectorStore_SaveIgnoresExisting(t *testing.T) {
	store, _ := setupTestStore(t)
	vectors := store.VectorStore()
	ctx := context.Background()

	require.NoError(t, vectors.SaveRecords(ctx, []domain.VectorRecord{testRecord("a", 0, 1, 0)}))
	require.NoError(t, vectors.SaveRecords(ctx, []domain.VectorRecord{testRecord("a", 0, 0, 1)}))

	n, err := vectors.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, vectors.LoadRecords(ctx, func(r domain.VectorRecord) error {
		assert.Equal(t, []float32{1, 0}, r.Embedding)
		return nil
	}))
}

func TestVectorStore_DeleteRecords(t *testing.T) {
	store, _ := setupTestStore(t)
	vectors := store.VectorStore()
	ctx := context.Background()

	require.NoError(t, vectors.SaveRecords(ctx, []domain.VectorRecord{
		testRecord("a", 0, 1),
		testRecord("a", 1, 2),
		testRecord("b", 0, 3),
	}))

	n, err := vectors.DeleteRecords(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = vectors.DeleteRecords(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	count, err := vectors.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestVectorStore_BacksHNSWAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewStore(dir)
	require.NoError(t, err)
	ix, err := hnsw.Open(ctx, hnsw.Config{Dimension: 3, Store: store.VectorStore()})
	require.NoError(t, err)
	require.NoError(t, ix.Insert(ctx, []domain.VectorRecord{
		testRecord("a", 0, 1, 0, 0),
		testRecord("b", 0, 0, 1, 0),
	}))
	_, err = ix.DeleteByDocument(ctx, "b")
	require.NoError(t, err)
	require.NoError(t, ix.Close())
	require.NoError(t, store.Close())

	store, err = NewStore(dir)
	require.NoError(t, err)
	defer store.Close()
	ix, err = hnsw.Open(ctx, hnsw.Config{Dimension: 3, Store: store.VectorStore()})
	require.NoError(t, err)

	hits, err := ix.Search(ctx, []float32{1, 0, 0}, 5, 0.5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, testRecord("a", 0, 1, 0, 0), hits[0].Record)
}

// ==================== Codec Tests ====================

func TestFloat32Codec(t *testing.T) {
	in := []float32{0, 1, -1, 3.5, 1e-30}
	blob := encodeVector(in)
	assert.Len(t, blob, 20)

	out, err := decodeVector(blob)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = decodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}
