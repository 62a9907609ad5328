package driven

import (
	"context"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

// VectorStore persists vector records and answers similarity queries.
//
// Match is the preferred path: a server-side similarity function that
// returns ranked hits. Stores without one return domain.ErrMatchUnavailable
// and the retrieval engine falls back to Scan plus client-side cosine,
// capped at ScanRowCap rows.
type VectorStore interface {
	// Insert stores the given records as one batch. Either the whole
	// batch is stored or the batch fails; callers isolate failures
	// per batch.
	Insert(ctx context.Context, records []domain.VectorRecord) error

	// Match runs a server-side similarity search, returning up to count
	// hits with similarity >= threshold, ranked descending.
	// Returns domain.ErrMatchUnavailable when the store has no
	// server-side similarity function.
	Match(ctx context.Context, query []float32, threshold float64, count int) ([]domain.MatchHit, error)

	// Scan returns up to limit stored records for client-side ranking.
	// Recall degrades silently once the table exceeds the limit; see
	// ScanRowCap.
	Scan(ctx context.Context, limit int) ([]domain.VectorRecord, error)

	// DeleteBySource removes all records for a source and returns the
	// number deleted.
	DeleteBySource(ctx context.Context, source string) (int, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}

// ScanRowCap bounds the client-side similarity fallback. This is a
// documented recall limitation: tables larger than the cap need a store
// with a server-side similarity function.
const ScanRowCap = 1000
