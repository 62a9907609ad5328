package driving

import (
	"context"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

// Retriever answers semantic queries against the vector store.
type Retriever interface {
	// Query embeds the query text and returns ranked, diversified,
	// boosted results. The returned list is sorted descending by final
	// score, contains no duplicate record IDs, and has length <= Limit.
	Query(ctx context.Context, query string, opts domain.QueryOptions) ([]domain.QueryResult, error)

	// QueryVector is Query for callers that already hold a vector.
	QueryVector(ctx context.Context, vector []float32, opts domain.QueryOptions) ([]domain.QueryResult, error)

	// Delete removes all records for a source and returns the number deleted.
	Delete(ctx context.Context, source string) (int, error)
}
