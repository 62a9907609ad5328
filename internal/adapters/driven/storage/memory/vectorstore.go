// Package memory provides in-memory store implementations, used for
// tests and for runs that do not need persistence.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore is an in-memory implementation of driven.VectorStore.
// Match is served by an in-process cosine ranking, so the store never
// triggers the client-side scan fallback.
type VectorStore struct {
	mu      sync.RWMutex
	records map[string]domain.VectorRecord
	order   []string
}

// NewVectorStore creates a new in-memory vector store.
func NewVectorStore() *VectorStore {
	return &VectorStore{
		records: make(map[string]domain.VectorRecord),
	}
}

// Insert stores the given records as one batch.
func (s *VectorStore) Insert(_ context.Context, records []domain.VectorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		if _, exists := s.records[rec.ID]; !exists {
			s.order = append(s.order, rec.ID)
		}
		s.records[rec.ID] = rec
	}
	return nil
}

// Match ranks all stored records by cosine similarity to the query.
func (s *VectorStore) Match(_ context.Context, query []float32, threshold float64, count int) ([]domain.MatchHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := make([]domain.MatchHit, 0, len(s.records))
	for _, id := range s.order {
		rec := s.records[id]
		sim := domain.CosineSimilarity(query, rec.Embedding)
		if sim < threshold {
			continue
		}
		hits = append(hits, domain.MatchHit{Record: rec, Similarity: sim})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Similarity > hits[j].Similarity
	})
	if count > 0 && len(hits) > count {
		hits = hits[:count]
	}
	return hits, nil
}

// Scan returns up to limit records in insertion order.
func (s *VectorStore) Scan(_ context.Context, limit int) ([]domain.VectorRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.order)
	if limit > 0 && n > limit {
		n = limit
	}
	records := make([]domain.VectorRecord, 0, n)
	for _, id := range s.order[:n] {
		records = append(records, s.records[id])
	}
	return records, nil
}

// DeleteBySource removes all records for a source.
func (s *VectorStore) DeleteBySource(_ context.Context, source string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	kept := s.order[:0]
	for _, id := range s.order {
		if s.records[id].Source == source {
			delete(s.records, id)
			deleted++
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return deleted, nil
}

// Count returns the number of stored records.
func (s *VectorStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Close is a no-op for the in-memory store.
func (s *VectorStore) Close() error {
	return nil
}
