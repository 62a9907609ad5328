package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Chunking.

	// ErrChunkingDegenerate indicates an atomic token exceeds the
	// configured maximum chunk size. The chunk is still emitted; the
	// condition is reported as a warning, never as a fatal error.
	ErrChunkingDegenerate = errors.New("atomic token exceeds max chunk size")

	// ErrNoChunks indicates a document set produced zero chunks.
	ErrNoChunks = errors.New("no chunks produced")

	// Embedding.

	// ErrEmbeddingBatchFailure indicates a batch request failed and the
	// generator fell back to per-chunk requests.
	ErrEmbeddingBatchFailure = errors.New("embedding batch failed")

	// ErrRetryExhausted indicates a chunk failed all retry attempts.
	// The chunk is skipped and reported; processing continues.
	ErrRetryExhausted = errors.New("embedding retries exhausted")

	// ErrQualityRejected indicates an embedding fell below the quality
	// gate and was excluded from the output set.
	ErrQualityRejected = errors.New("embedding rejected by quality gate")

	// ErrNoEmbeddings indicates a chunk set produced zero embeddings.
	ErrNoEmbeddings = errors.New("no embeddings produced")

	// Upload / retrieval.

	// ErrUploadBatchFailure indicates one insert batch failed.
	// Other batches proceed independently.
	ErrUploadBatchFailure = errors.New("upload batch failed")

	// ErrDuplicateContent indicates identical normalised content within
	// one upload batch. Duplicates are counted and skipped, not stored.
	ErrDuplicateContent = errors.New("duplicate content")

	// ErrNoUploads indicates an embedding set produced zero stored records.
	ErrNoUploads = errors.New("no records uploaded")

	// ErrMatchUnavailable indicates the store has no server-side
	// similarity function. The retrieval engine falls back to a capped
	// client-side scan and logs a warning.
	ErrMatchUnavailable = errors.New("similarity match unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. Ingestion and semantic queries are disabled without it.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrStoreUnavailable indicates the vector store is not configured.
	ErrStoreUnavailable = errors.New("vector store unavailable")

	// ErrAborted indicates the caller's abort flag stopped the pipeline
	// between batches.
	ErrAborted = errors.New("pipeline aborted")
)
