package domain

// NoRelevantInformation is the answer given when retrieval finds nothing
// above the score threshold. The language model is not consulted.
const NoRelevantInformation = "No relevant information was found in the uploaded documents to answer this question."

// QueryOptions configures a retrieval.
// Zero values fall back to the configured defaults.
type QueryOptions struct {
	// TopK is the maximum number of chunks to retrieve.
	TopK int

	// Threshold is the minimum similarity score. Nil means the configured default.
	Threshold *float64
}

// Relevance is a coarse label for a similarity score.
type Relevance string

// Relevance labels.
const (
	RelevanceHigh   Relevance = "high"
	RelevanceMedium Relevance = "medium"
	RelevanceLow    Relevance = "low"
)

// RelevanceFor labels a cosine similarity score.
func RelevanceFor(score float64) Relevance {
	switch {
	case score >= 0.7:
		return RelevanceHigh
	case score >= 0.5:
		return RelevanceMedium
	default:
		return RelevanceLow
	}
}

// SearchHit is a vector record matched by a query.
type SearchHit struct {
	// Record is the matched vector record.
	Record VectorRecord

	// Score is the cosine similarity (higher = more similar).
	Score float64
}

// Relevance returns the hit's relevance label.
func (h SearchHit) Relevance() Relevance {
	return RelevanceFor(h.Score)
}

// Citation maps part of an answer back to the chunk that supported it.
type Citation struct {
	// Marker is N in the "[Source N]" reference the model emitted.
	Marker int `json:"marker"`

	// Filename is the source document's file name.
	Filename string `json:"filename"`

	// DocumentID is the source document.
	DocumentID string `json:"document_id"`

	// ChunkIndex is the chunk's position within the document.
	ChunkIndex int `json:"chunk_index"`

	// ChunkText is the supporting text.
	ChunkText string `json:"chunk_text"`

	// Score is the chunk's similarity to the question.
	Score float64 `json:"score"`
}

// Answer is the result of a question.
type Answer struct {
	// Text is the synthesised answer, or NoRelevantInformation.
	Text string `json:"answer"`

	// Found is false when retrieval returned nothing above the threshold.
	Found bool `json:"found"`

	// Citations are the chunks the answer draws on.
	Citations []Citation `json:"citations"`
}

// ConsistencyReport lists divergence between the document store and vector index.
type ConsistencyReport struct {
	// Documents is the number of committed documents.
	Documents int `json:"documents"`

	// IndexedDocuments is the number of distinct document IDs in the index.
	IndexedDocuments int `json:"indexed_documents"`

	// OrphanedVectors are document IDs with vectors but no metadata.
	OrphanedVectors []string `json:"orphaned_vectors"`

	// MissingVectors are documents with metadata but no vectors.
	MissingVectors []string `json:"missing_vectors"`
}

// Consistent returns true when nothing diverges.
func (r ConsistencyReport) Consistent() bool {
	return len(r.OrphanedVectors) == 0 && len(r.MissingVectors) == 0
}
