package domain

import "time"

// VectorRecord is the persisted form of an embedded chunk.
// Records live in the vector store until explicitly deleted by source.
type VectorRecord struct {
	// ID is the unique identifier for the record.
	ID string

	// Content is the chunk text the vector was computed from.
	Content string

	// Embedding is the stored vector.
	Embedding []float32

	// Source is the originating document identifier.
	Source string

	// Metadata carries chunk signals used for re-ranking
	// (content type, importance, quality, keywords).
	Metadata map[string]any

	// CreatedAt is when the record was inserted.
	CreatedAt time.Time
}

// Well-known metadata keys stored on vector records.
const (
	MetaContentType = "content_type"
	MetaImportance  = "importance"
	MetaQuality     = "quality"
	MetaKeywords    = "keywords"
	MetaTokenCount  = "token_count"
)

// MatchHit is a similarity search result from a vector store.
type MatchHit struct {
	// Record is the matched record.
	Record VectorRecord

	// Similarity is the cosine similarity to the query vector (0-1).
	Similarity float64
}

// UploadOptions configures an upload run.
type UploadOptions struct {
	// BatchSize is the number of records inserted per store call.
	BatchSize int
}

// DefaultUploadBatchSize is the number of records per insert batch.
const DefaultUploadBatchSize = 50

// Normalise returns a copy with defaults applied to unset fields.
func (o UploadOptions) Normalise() UploadOptions {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultUploadBatchSize
	}
	return o
}

// UploadReport is the outcome of an upload run. Batch failures are
// isolated: a failed batch is counted and reported while the remaining
// batches proceed.
type UploadReport struct {
	// Uploaded is the number of records successfully inserted.
	Uploaded int

	// Failed is the number of records in failed batches.
	Failed int

	// DuplicatesSkipped counts records dropped by content-hash dedup.
	DuplicatesSkipped int

	// UploadedIDs are the IDs of inserted records, in insertion order.
	UploadedIDs []string

	// Errors are per-batch insert failures.
	Errors []error
}
