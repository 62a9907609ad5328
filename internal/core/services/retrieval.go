package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
	"github.com/custodia-labs/ragline/internal/logger"
)

// Ensure Retrieval implements the interface.
var _ driving.Retriever = (*Retrieval)(nil)

// overFetchFactor widens the candidate set before filtering and
// diversification.
const overFetchFactor = 2

// Recency re-ranking factors.
const (
	recencyFreshDays  = 7
	recencyRecentDays = 30
	recencyFreshBoost = 1.05
	recencyStalePenal = 0.95
)

// Retrieval deduplicates and persists embeddings, and answers
// semantic queries with re-ranking and result diversification.
type Retrieval struct {
	store     driven.VectorStore
	embedding driven.EmbeddingService

	// now is injectable for recency tests.
	now func() time.Time
}

// NewRetrieval creates a new retrieval engine. The embedding service is
// optional; without it only QueryVector is available.
func NewRetrieval(store driven.VectorStore, embedding driven.EmbeddingService) *Retrieval {
	return &Retrieval{
		store:     store,
		embedding: embedding,
		now:       time.Now,
	}
}

// Upload deduplicates the given embeddings by content hash and inserts
// the unique records in batches. A failed batch is isolated: it is
// reported and counted, and the remaining batches proceed.
func (r *Retrieval) Upload(
	ctx context.Context,
	embeddings []domain.Embedding,
	chunksByID map[string]domain.Chunk,
	opts domain.UploadOptions,
	progress driving.ProgressFunc,
	abort driving.AbortFunc,
) (*domain.UploadReport, error) {
	report := &domain.UploadReport{}
	if len(embeddings) == 0 {
		return report, nil
	}
	if r.store == nil {
		return report, domain.ErrStoreUnavailable
	}

	opts = opts.Normalise()

	logger.Section("Vector Upload")
	logger.Debug("Embeddings: %d, batch size: %d", len(embeddings), opts.BatchSize)

	// Hash-based dedup within this upload run.
	seen := make(map[string]bool, len(embeddings))
	records := make([]domain.VectorRecord, 0, len(embeddings))
	for _, emb := range embeddings {
		chunk, ok := chunksByID[emb.ChunkID]
		if !ok {
			report.Errors = append(report.Errors,
				fmt.Errorf("embedding %s: chunk %s: %w", emb.ID, emb.ChunkID, domain.ErrNotFound))
			continue
		}

		key := domain.HashContent(chunk.Content)
		if seen[key] {
			report.DuplicatesSkipped++
			logger.Debug("%v: chunk %s", domain.ErrDuplicateContent, chunk.ID)
			continue
		}
		seen[key] = true

		records = append(records, domain.VectorRecord{
			ID:        emb.ID,
			Content:   chunk.Content,
			Embedding: emb.Vector,
			Source:    chunk.Metadata.Source,
			Metadata: map[string]any{
				domain.MetaContentType: string(chunk.ContentType),
				domain.MetaImportance:  chunk.Importance,
				domain.MetaQuality:     emb.Quality.Overall,
				domain.MetaKeywords:    chunk.Metadata.Keywords,
				domain.MetaTokenCount:  chunk.TokenCount,
			},
			CreatedAt: r.now().UTC(),
		})
	}

	total := len(records)
	for start := 0; start < total; start += opts.BatchSize {
		if aborted(abort) {
			logger.Warn("Upload aborted after %d/%d records", report.Uploaded, total)
			return report, domain.ErrAborted
		}

		end := start + opts.BatchSize
		if end > total {
			end = total
		}
		batch := records[start:end]

		if err := r.store.Insert(ctx, batch); err != nil {
			report.Failed += len(batch)
			report.Errors = append(report.Errors,
				fmt.Errorf("%w (records %d-%d): %w", domain.ErrUploadBatchFailure, start, end-1, err))
			logger.Warn("Insert batch %d-%d failed: %v", start, end-1, err)
			continue
		}

		report.Uploaded += len(batch)
		for _, rec := range batch {
			report.UploadedIDs = append(report.UploadedIDs, rec.ID)
		}
		if progress != nil {
			progress("upload", report.Uploaded, total)
		}
	}

	logger.Info("Uploaded %d/%d records (%d failed, %d duplicates skipped)",
		report.Uploaded, total, report.Failed, report.DuplicatesSkipped)

	if report.Uploaded == 0 && total > 0 {
		return report, fmt.Errorf("upload stage: %w", domain.ErrNoUploads)
	}
	return report, nil
}

// Query embeds the query text and delegates to QueryVector.
func (r *Retrieval) Query(ctx context.Context, query string, opts domain.QueryOptions) ([]domain.QueryResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.QueryResult{}, nil
	}
	if r.embedding == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	logger.Section("Query Execution")
	logger.Debug("Query: %q", query)

	vector, err := r.embedding.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	return r.QueryVector(ctx, vector, opts)
}

// QueryVector ranks stored records against the query vector. The
// returned list is sorted descending by final score, has no duplicate
// record IDs, and is truncated to the limit.
func (r *Retrieval) QueryVector(ctx context.Context, vector []float32, opts domain.QueryOptions) ([]domain.QueryResult, error) {
	if r.store == nil {
		return nil, domain.ErrStoreUnavailable
	}

	opts = opts.Normalise()
	logger.Debug("Limit: %d, threshold: %.2f, rerank: %t, diversity: %.2f",
		opts.Limit, opts.Threshold, opts.Rerank, opts.DiversityThreshold)

	candidates, err := r.fetchCandidates(ctx, vector, opts)
	if err != nil {
		return nil, err
	}
	logger.Debug("Candidates: %d", len(candidates))

	// 2. Threshold filter plus source filter, dropping duplicate IDs.
	results := make([]domain.QueryResult, 0, len(candidates))
	seenIDs := make(map[string]bool, len(candidates))
	for _, hit := range candidates {
		if hit.Similarity < opts.Threshold || seenIDs[hit.Record.ID] {
			continue
		}
		if !matchesSources(hit.Record.Source, opts.Sources) {
			continue
		}
		seenIDs[hit.Record.ID] = true
		results = append(results, domain.QueryResult{
			Record:     hit.Record,
			Similarity: hit.Similarity,
			Score:      hit.Similarity,
		})
	}

	// 3. Re-ranking from stored metadata and recency.
	if opts.Rerank {
		for i := range results {
			results[i].Score *= r.rerankFactor(&results[i].Record)
		}
		sortByScore(results)
	} else {
		sortByScore(results)
	}

	// 4. Greedy diversification.
	if opts.DiversityThreshold > 0 {
		results = diversify(results, opts.DiversityThreshold)
	}

	// 5. Content-type and source boosts.
	if len(opts.BoostFactors) > 0 {
		for i := range results {
			results[i].Score *= boostFactor(&results[i].Record, opts.BoostFactors)
		}
	}

	// 6. Final order and truncation.
	sortByScore(results)
	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}

	logger.Info("Results: %d", len(results))
	return results, nil
}

// Delete removes all records for a source.
func (r *Retrieval) Delete(ctx context.Context, source string) (int, error) {
	if r.store == nil {
		return 0, domain.ErrStoreUnavailable
	}
	deleted, err := r.store.DeleteBySource(ctx, source)
	if err != nil {
		return 0, fmt.Errorf("delete by source: %w", err)
	}
	logger.Info("Deleted %d records for source %q", deleted, source)
	return deleted, nil
}

// fetchCandidates over-fetches via the server-side similarity function,
// falling back to a capped client-side scan when the store has none.
func (r *Retrieval) fetchCandidates(ctx context.Context, vector []float32, opts domain.QueryOptions) ([]domain.MatchHit, error) {
	count := opts.Limit * overFetchFactor

	hits, err := r.store.Match(ctx, vector, opts.Threshold, count)
	if err == nil {
		return hits, nil
	}
	if !errors.Is(err, domain.ErrMatchUnavailable) {
		return nil, fmt.Errorf("similarity match: %w", err)
	}

	// Client-side fallback. The scan is capped, so recall degrades once
	// the table outgrows the cap.
	logger.Warn("%v: falling back to client-side scan (cap %d rows)", err, driven.ScanRowCap)

	records, err := r.store.Scan(ctx, driven.ScanRowCap)
	if err != nil {
		return nil, fmt.Errorf("fallback scan: %w", err)
	}

	scored := make([]domain.MatchHit, 0, len(records))
	for _, rec := range records {
		scored = append(scored, domain.MatchHit{
			Record:     rec,
			Similarity: domain.CosineSimilarity(vector, rec.Embedding),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})
	if len(scored) > count {
		scored = scored[:count]
	}
	return scored, nil
}

// rerankFactor derives a score multiplier from stored importance,
// quality and record age.
func (r *Retrieval) rerankFactor(rec *domain.VectorRecord) float64 {
	factor := 1.0

	if importance, ok := metaFloat(rec.Metadata, domain.MetaImportance); ok {
		factor *= 0.9 + 0.2*importance
	}
	if quality, ok := metaFloat(rec.Metadata, domain.MetaQuality); ok {
		factor *= 0.9 + 0.2*quality
	}

	age := r.now().Sub(rec.CreatedAt)
	switch {
	case age < recencyFreshDays*24*time.Hour:
		factor *= recencyFreshBoost
	case age < recencyRecentDays*24*time.Hour:
		// neutral
	default:
		factor *= recencyStalePenal
	}

	return factor
}

// diversify greedily walks the ranked list, rejecting a candidate whose
// token Jaccard similarity to any accepted result exceeds the threshold.
func diversify(ranked []domain.QueryResult, threshold float64) []domain.QueryResult {
	accepted := make([]domain.QueryResult, 0, len(ranked))
	for _, candidate := range ranked {
		tooSimilar := false
		for i := range accepted {
			if JaccardSimilarity(candidate.Record.Content, accepted[i].Record.Content) > threshold {
				tooSimilar = true
				break
			}
		}
		if !tooSimilar {
			accepted = append(accepted, candidate)
		}
	}
	return accepted
}

// boostFactor multiplies per content type and source.
func boostFactor(rec *domain.VectorRecord, boosts map[string]float64) float64 {
	factor := 1.0
	if ct, ok := rec.Metadata[domain.MetaContentType].(string); ok {
		if boost, exists := boosts[ct]; exists {
			factor *= boost
		}
	}
	if boost, exists := boosts[rec.Source]; exists {
		factor *= boost
	}
	return factor
}

// sortByScore orders results descending by score, breaking ties by
// record ID for a stable order.
func sortByScore(results []domain.QueryResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Record.ID < results[j].Record.ID
	})
}

// matchesSources reports whether source passes the filter. An empty
// filter accepts everything.
func matchesSources(source string, sources []string) bool {
	if len(sources) == 0 {
		return true
	}
	for _, s := range sources {
		if s == source {
			return true
		}
	}
	return false
}

// metaFloat reads a numeric metadata value, tolerating the types a
// JSON round trip produces.
func metaFloat(meta map[string]any, key string) (float64, bool) {
	switch v := meta[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

// JaccardSimilarity computes token-set overlap between two texts.
func JaccardSimilarity(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for token := range setA {
		if setB[token] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		set[token] = true
	}
	return set
}
