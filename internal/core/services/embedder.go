package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
	"github.com/custodia-labs/ragline/internal/logger"
)

// maxItemTokens is the per-item token ceiling accepted by embedding
// providers. Longer texts are truncated at a sentence boundary.
const maxItemTokens = 8192

// modelPricing is USD per 1M tokens for known embedding models.
var modelPricing = map[string]float64{
	"text-embedding-3-small": 0.02,
	"text-embedding-3-large": 0.13,
	"text-embedding-ada-002": 0.10,
}

// defaultPricePerMTokens is used for models missing from the table.
const defaultPricePerMTokens = 0.02

// Embedder converts chunks into quality-gated vectors. Batches are
// sent to the embedding capability; a failed batch falls back to
// per-chunk requests with exponential backoff.
type Embedder struct {
	service driven.EmbeddingService
}

// NewEmbedder creates a new embedding generator.
func NewEmbedder(service driven.EmbeddingService) *Embedder {
	return &Embedder{service: service}
}

// Generate embeds the given chunks. Progress and abort are optional.
// Partial failures accumulate in the report; the returned error is
// non-nil only when no chunk embedded at all or the run was aborted.
func (e *Embedder) Generate(
	ctx context.Context,
	chunks []domain.Chunk,
	opts domain.EmbedOptions,
	progress driving.ProgressFunc,
	abort driving.AbortFunc,
) (*domain.EmbeddingReport, error) {
	report := &domain.EmbeddingReport{
		Stats: domain.EmbeddingStats{TotalChunks: len(chunks)},
	}
	if len(chunks) == 0 {
		return report, nil
	}
	if e.service == nil {
		return report, domain.ErrEmbeddingUnavailable
	}

	opts = opts.Normalise()

	logger.Section("Embedding Generation")
	logger.Debug("Chunks: %d, batch size: %d, quality threshold: %.2f",
		len(chunks), opts.BatchSize, opts.QualityThreshold)

	// Inter-batch pacing to respect provider rate limits.
	limiter := rate.NewLimiter(rate.Every(opts.BatchInterval), 1)

	processed := 0
	for start := 0; start < len(chunks); start += opts.BatchSize {
		if aborted(abort) {
			logger.Warn("Embedding aborted after %d/%d chunks", processed, len(chunks))
			return report, domain.ErrAborted
		}

		end := start + opts.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		if err := limiter.Wait(ctx); err != nil {
			return report, fmt.Errorf("rate limit wait: %w", err)
		}

		e.processBatch(ctx, batch, opts, report, abort)

		processed += len(batch)
		if progress != nil {
			progress("embed", processed, len(chunks))
		}
	}

	report.Stats.EstimatedCost = estimateCost(e.service.ModelName(), report.Stats.TokensUsed)

	logger.Info("Embedded %d/%d chunks (%d failed, %d rejected, %d tokens, $%.6f)",
		report.Stats.Embedded, len(chunks), report.Stats.Failed,
		report.Stats.Rejected, report.Stats.TokensUsed, report.Stats.EstimatedCost)

	if report.Stats.Embedded == 0 {
		return report, fmt.Errorf("embedding stage: %w", domain.ErrNoEmbeddings)
	}
	return report, nil
}

// processBatch embeds one batch, falling back to per-chunk retries when
// the batch request fails.
func (e *Embedder) processBatch(
	ctx context.Context,
	batch []domain.Chunk,
	opts domain.EmbedOptions,
	report *domain.EmbeddingReport,
	abort driving.AbortFunc,
) {
	texts := make([]string, len(batch))
	for i := range batch {
		texts[i] = optimiseText(batch[i].Content)
	}

	vectors, tokensUsed, err := e.service.EmbedBatch(ctx, texts)
	if err == nil && len(vectors) == len(batch) {
		if tokensUsed == 0 {
			tokensUsed = estimatedBatchTokens(batch)
		}
		report.Stats.TokensUsed += tokensUsed
		for i := range batch {
			e.admit(&batch[i], vectors[i], perChunkShare(tokensUsed, len(batch)), opts, report)
		}
		return
	}

	logger.Warn("%v: %v (falling back to per-chunk requests)", domain.ErrEmbeddingBatchFailure, err)

	for i := range batch {
		if aborted(abort) {
			return
		}
		vector, retryErr := e.embedSingleWithRetry(ctx, texts[i], opts, abort)
		if retryErr != nil {
			report.Stats.Failed++
			report.Errors = append(report.Errors,
				fmt.Errorf("chunk %s: %w: %w", batch[i].ID, domain.ErrRetryExhausted, retryErr))
			continue
		}
		tokens := batch[i].TokenCount
		report.Stats.TokensUsed += tokens
		e.admit(&batch[i], vector, tokens, opts, report)
	}
}

// admit scores a vector and applies the quality gate.
func (e *Embedder) admit(
	chunk *domain.Chunk,
	vector []float32,
	tokens int,
	opts domain.EmbedOptions,
	report *domain.EmbeddingReport,
) {
	quality := ScoreQuality(chunk)

	if quality.Overall < opts.QualityThreshold {
		report.Stats.Rejected++
		report.Warnings = append(report.Warnings, fmt.Sprintf(
			"%v: chunk %s scored %.2f (threshold %.2f)",
			domain.ErrQualityRejected, chunk.ID, quality.Overall, opts.QualityThreshold))
		return
	}

	report.Embeddings = append(report.Embeddings, domain.Embedding{
		ID:      uuid.New().String(),
		Vector:  vector,
		ChunkID: chunk.ID,
		Tokens:  tokens,
		Quality: quality,
	})
	report.Stats.Embedded++
}

// embedSingleWithRetry embeds one text with an iterative
// exponential-backoff retry loop. The delay doubles per attempt
// starting from RetryBaseDelay.
func (e *Embedder) embedSingleWithRetry(
	ctx context.Context,
	text string,
	opts domain.EmbedOptions,
	abort driving.AbortFunc,
) ([]float32, error) {
	var lastErr error

	for attempt := 1; attempt <= opts.MaxRetries; attempt++ {
		vector, err := e.service.Embed(ctx, text)
		if err == nil {
			return vector, nil
		}
		lastErr = err
		logger.Debug("Embed attempt %d/%d failed: %v", attempt, opts.MaxRetries, err)

		if attempt == opts.MaxRetries {
			break
		}

		delay := opts.RetryBaseDelay << (attempt - 1)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		if aborted(abort) {
			return nil, domain.ErrAborted
		}
	}

	return nil, lastErr
}

// optimiseText collapses whitespace and truncates at a sentence
// boundary when the text would exceed the provider's per-item limit.
func optimiseText(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if estimateTokens(text) <= maxItemTokens {
		return text
	}

	var kept strings.Builder
	for _, sentence := range splitIntoSentences(text) {
		if estimateTokens(kept.String())+estimateTokens(sentence)+1 > maxItemTokens {
			break
		}
		if kept.Len() > 0 {
			kept.WriteByte(' ')
		}
		kept.WriteString(sentence)
	}
	if kept.Len() == 0 {
		// No sentence boundary inside the limit; hard truncate at a
		// rune boundary so the provider never sees invalid UTF-8.
		cut := maxItemTokens * 4
		if cut >= len(text) {
			return text
		}
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		return text[:cut]
	}
	return kept.String()
}

// splitIntoSentences splits text by common sentence terminators.
func splitIntoSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// estimateTokens approximates tokens at ~4 characters per token.
func estimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}

func estimatedBatchTokens(batch []domain.Chunk) int {
	total := 0
	for i := range batch {
		total += batch[i].TokenCount
	}
	return total
}

// perChunkShare attributes batch token usage evenly across the batch.
func perChunkShare(tokens, n int) int {
	if n == 0 {
		return 0
	}
	return tokens / n
}

// estimateCost prices token usage per model in USD.
func estimateCost(model string, tokens int) float64 {
	price, ok := modelPricing[model]
	if !ok {
		price = defaultPricePerMTokens
	}
	return float64(tokens) / 1_000_000 * price
}

func aborted(abort driving.AbortFunc) bool {
	return abort != nil && abort()
}
