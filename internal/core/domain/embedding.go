package domain

import "time"

// Quality breaks down how well a chunk's text is expected to behave
// as a retrieval unit. All sub-scores and the weighted overall score
// are in [0,1] and are computed deterministically from the chunk text.
type Quality struct {
	// TextQuality reflects token count relative to the useful range.
	TextQuality float64

	// SemanticCoherence reflects sentence structure and content type.
	SemanticCoherence float64

	// InformationDensity reflects the unique-word ratio.
	InformationDensity float64

	// Uniqueness reflects character variety within the text.
	Uniqueness float64

	// RetrievalOptimization reflects proximity to the ideal chunk size.
	RetrievalOptimization float64

	// Overall is the weighted combination used for gating.
	Overall float64
}

// Embedding is the vector representation of exactly one chunk.
// Embeddings below the configured quality gate are discarded before upload.
type Embedding struct {
	// ID is the unique identifier for the embedding.
	ID string

	// Vector is the fixed-dimensional embedding.
	Vector []float32

	// ChunkID links to the chunk this embedding represents.
	ChunkID string

	// Tokens is the token count billed for this chunk.
	Tokens int

	// Quality is the deterministic quality assessment.
	Quality Quality
}

// EmbedOptions configures an embedding generation run.
// The zero value is usable; Normalise fills in defaults.
type EmbedOptions struct {
	// Model is the embedding model identifier (informational; the
	// configured provider decides what it serves).
	Model string

	// BatchSize is the number of chunks sent per provider request.
	BatchSize int

	// MaxRetries bounds per-chunk retry attempts after a batch failure.
	MaxRetries int

	// RetryBaseDelay is the first backoff delay; it doubles per attempt.
	RetryBaseDelay time.Duration

	// QualityThreshold gates embeddings by Quality.Overall.
	QualityThreshold float64

	// BatchInterval is the minimum spacing between provider batch
	// requests, used to respect rate limits.
	BatchInterval time.Duration
}

// Default embedding options.
const (
	DefaultBatchSize        = 10
	DefaultMaxRetries       = 3
	DefaultQualityThreshold = 0.4
)

// DefaultRetryBaseDelay is the initial backoff delay for per-chunk retries.
const DefaultRetryBaseDelay = time.Second

// DefaultBatchInterval is the minimum spacing between batch requests.
const DefaultBatchInterval = 100 * time.Millisecond

// Normalise returns a copy with defaults applied to unset fields.
func (o EmbedOptions) Normalise() EmbedOptions {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.RetryBaseDelay <= 0 {
		o.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if o.QualityThreshold <= 0 {
		o.QualityThreshold = DefaultQualityThreshold
	}
	if o.BatchInterval <= 0 {
		o.BatchInterval = DefaultBatchInterval
	}
	return o
}

// EmbeddingStats accumulates counters across an embedding run.
type EmbeddingStats struct {
	// TotalChunks is the number of chunks submitted.
	TotalChunks int

	// Embedded is the number of vectors that passed the quality gate.
	Embedded int

	// Failed is the number of chunks that exhausted retries.
	Failed int

	// Rejected is the number of vectors excluded by the quality gate.
	Rejected int

	// TokensUsed is the provider-reported (or estimated) token total.
	TokensUsed int

	// EstimatedCost is TokensUsed priced per model, in USD.
	EstimatedCost float64
}

// EmbeddingReport is the outcome of an embedding generation run.
// Partial failure is normal: Errors and Warnings accumulate alongside
// whatever succeeded.
type EmbeddingReport struct {
	// Embeddings are the quality-gated vectors in chunk order.
	Embeddings []Embedding

	// Errors are per-chunk failures (retry exhaustion).
	Errors []error

	// Warnings are non-fatal exclusions (quality gate rejections).
	Warnings []string

	// Stats are the accumulated run counters.
	Stats EmbeddingStats
}
