package domain

// QueryOptions configures a similarity query.
type QueryOptions struct {
	// Limit is the maximum number of results.
	Limit int

	// Threshold is the minimum cosine similarity for a candidate.
	// Zero selects the default; a negative value disables the floor
	// so every candidate passes.
	Threshold float64

	// Rerank enables importance/quality/recency re-ranking.
	Rerank bool

	// DiversityThreshold, when > 0, suppresses candidates whose token
	// Jaccard similarity to an accepted result exceeds this value.
	DiversityThreshold float64

	// BoostFactors multiplies scores by content type or source.
	// Keys are content type names ("code", "table", ...) or source
	// identifiers; values are multipliers.
	BoostFactors map[string]float64

	// Sources filters results to specific source identifiers.
	Sources []string
}

// Default query options.
const (
	DefaultQueryLimit     = 10
	DefaultQueryThreshold = 0.3
)

// Normalise returns a copy with defaults applied to unset fields.
func (o QueryOptions) Normalise() QueryOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultQueryLimit
	}
	if o.Threshold == 0 {
		o.Threshold = DefaultQueryThreshold
	}
	return o
}

// QueryResult is a single ranked retrieval hit.
type QueryResult struct {
	// Record is the matched vector record.
	Record VectorRecord

	// Similarity is the raw cosine similarity to the query vector.
	Similarity float64

	// Score is the final score after re-ranking, diversification
	// survival, and boosting. Results are sorted by Score descending.
	Score float64
}
