package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

// fakeEmbeddingService is a controllable in-memory embedding provider.
type fakeEmbeddingService struct {
	batchErr    error
	batchTokens int
	embedFails  int

	batchCalls int
	embedCalls int
}

func (f *fakeEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	f.embedCalls++
	if f.embedCalls <= f.embedFails {
		return nil, errors.New("provider unavailable")
	}
	return fakeVector(text), nil
}

func (f *fakeEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, int, error) {
	f.batchCalls++
	if f.batchErr != nil {
		return nil, 0, f.batchErr
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = fakeVector(text)
	}
	return vectors, f.batchTokens, nil
}

func (f *fakeEmbeddingService) Dimensions() int              { return 4 }
func (f *fakeEmbeddingService) ModelName() string            { return "text-embedding-3-small" }
func (f *fakeEmbeddingService) Ping(_ context.Context) error { return nil }
func (f *fakeEmbeddingService) Close() error                 { return nil }

func fakeVector(text string) []float32 {
	return []float32{float32(len(text)), 1, 0, 0}
}

// goodChunk builds a chunk that comfortably passes the default quality gate.
func goodChunk(n int) domain.Chunk {
	return domain.Chunk{
		ID: fmt.Sprintf("chunk-%d", n),
		Content: fmt.Sprintf(
			"Section %d explains the indexing strategy. Each record carries a unique key. "+
				"Lookups resolve through the primary index before scanning.", n),
		TokenCount:  200,
		ContentType: domain.ContentTypeParagraph,
	}
}

func fastOpts() domain.EmbedOptions {
	return domain.EmbedOptions{
		RetryBaseDelay: time.Millisecond,
		BatchInterval:  time.Millisecond,
	}
}

func TestEmbedder_Generate_Empty(t *testing.T) {
	embedder := NewEmbedder(&fakeEmbeddingService{})

	report, err := embedder.Generate(context.Background(), nil, fastOpts(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, report.Embeddings)
	assert.Equal(t, 0, report.Stats.TotalChunks)
}

func TestEmbedder_Generate_NoService(t *testing.T) {
	embedder := NewEmbedder(nil)

	_, err := embedder.Generate(context.Background(), []domain.Chunk{goodChunk(1)}, fastOpts(), nil, nil)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestEmbedder_Generate_BatchSuccess(t *testing.T) {
	service := &fakeEmbeddingService{batchTokens: 300}
	embedder := NewEmbedder(service)

	chunks := []domain.Chunk{goodChunk(1), goodChunk(2), goodChunk(3)}
	report, err := embedder.Generate(context.Background(), chunks, fastOpts(), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, service.batchCalls)
	assert.Equal(t, 0, service.embedCalls)
	require.Len(t, report.Embeddings, 3)
	assert.Equal(t, 3, report.Stats.Embedded)
	assert.Equal(t, 300, report.Stats.TokensUsed)
	assert.InDelta(t, 300.0/1_000_000*0.02, report.Stats.EstimatedCost, 1e-12)

	for i, emb := range report.Embeddings {
		assert.Equal(t, chunks[i].ID, emb.ChunkID)
		assert.Equal(t, 100, emb.Tokens)
		assert.NotEmpty(t, emb.ID)
		assert.NotEmpty(t, emb.Vector)
		assert.Greater(t, emb.Quality.Overall, 0.0)
	}
}

func TestEmbedder_Generate_EstimatesTokensWhenUnreported(t *testing.T) {
	embedder := NewEmbedder(&fakeEmbeddingService{})

	chunks := []domain.Chunk{goodChunk(1), goodChunk(2)}
	report, err := embedder.Generate(context.Background(), chunks, fastOpts(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 400, report.Stats.TokensUsed)
}

func TestEmbedder_Generate_FallsBackPerChunk(t *testing.T) {
	service := &fakeEmbeddingService{batchErr: errors.New("batch too large")}
	embedder := NewEmbedder(service)

	chunks := []domain.Chunk{goodChunk(1), goodChunk(2)}
	report, err := embedder.Generate(context.Background(), chunks, fastOpts(), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, service.batchCalls)
	assert.Equal(t, 2, service.embedCalls)
	require.Len(t, report.Embeddings, 2)
	assert.Equal(t, 200, report.Embeddings[0].Tokens)
	assert.Equal(t, 400, report.Stats.TokensUsed)
}

func TestEmbedder_Generate_RetriesThenSucceeds(t *testing.T) {
	service := &fakeEmbeddingService{
		batchErr:   errors.New("batch too large"),
		embedFails: 1,
	}
	embedder := NewEmbedder(service)

	report, err := embedder.Generate(context.Background(), []domain.Chunk{goodChunk(1)}, fastOpts(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, service.embedCalls)
	assert.Len(t, report.Embeddings, 1)
	assert.Equal(t, 0, report.Stats.Failed)
}

func TestEmbedder_Generate_RetryExhaustion(t *testing.T) {
	service := &fakeEmbeddingService{
		batchErr:   errors.New("batch too large"),
		embedFails: 100,
	}
	embedder := NewEmbedder(service)

	report, err := embedder.Generate(context.Background(), []domain.Chunk{goodChunk(1)}, fastOpts(), nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoEmbeddings)

	assert.Equal(t, domain.DefaultMaxRetries, service.embedCalls)
	assert.Equal(t, 1, report.Stats.Failed)
	require.Len(t, report.Errors, 1)
	assert.ErrorIs(t, report.Errors[0], domain.ErrRetryExhausted)
}

func TestEmbedder_Generate_PartialFailureIsNotFatal(t *testing.T) {
	service := &fakeEmbeddingService{
		batchErr:   errors.New("batch too large"),
		embedFails: domain.DefaultMaxRetries,
	}
	embedder := NewEmbedder(service)

	chunks := []domain.Chunk{goodChunk(1), goodChunk(2)}
	report, err := embedder.Generate(context.Background(), chunks, fastOpts(), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Stats.Failed)
	assert.Equal(t, 1, report.Stats.Embedded)
	assert.Len(t, report.Errors, 1)
}

func TestEmbedder_Generate_QualityGate(t *testing.T) {
	embedder := NewEmbedder(&fakeEmbeddingService{})

	opts := fastOpts()
	opts.QualityThreshold = 0.99

	report, err := embedder.Generate(context.Background(), []domain.Chunk{goodChunk(1)}, opts, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoEmbeddings)

	assert.Equal(t, 1, report.Stats.Rejected)
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], domain.ErrQualityRejected.Error())
}

func TestEmbedder_Generate_Abort(t *testing.T) {
	embedder := NewEmbedder(&fakeEmbeddingService{})

	abort := func() bool { return true }
	_, err := embedder.Generate(context.Background(), []domain.Chunk{goodChunk(1)}, fastOpts(), nil, abort)
	assert.ErrorIs(t, err, domain.ErrAborted)
}

func TestEmbedder_Generate_Progress(t *testing.T) {
	embedder := NewEmbedder(&fakeEmbeddingService{})

	var stages []string
	var done []int
	progress := func(stage string, d, total int) {
		stages = append(stages, stage)
		done = append(done, d)
		assert.Equal(t, 3, total)
	}

	opts := fastOpts()
	opts.BatchSize = 2

	chunks := []domain.Chunk{goodChunk(1), goodChunk(2), goodChunk(3)}
	_, err := embedder.Generate(context.Background(), chunks, opts, progress, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"embed", "embed"}, stages)
	assert.Equal(t, []int{2, 3}, done)
}

func TestOptimiseText_CollapsesWhitespace(t *testing.T) {
	got := optimiseText("hello   world\n\n  again")
	assert.Equal(t, "hello world again", got)
}

func TestOptimiseText_TruncatesAtSentenceBoundary(t *testing.T) {
	sentence := strings.Repeat("word ", 100) + "end. "
	long := strings.Repeat(sentence, 200)

	got := optimiseText(long)
	assert.LessOrEqual(t, estimateTokens(got), maxItemTokens)
	assert.True(t, strings.HasSuffix(got, "end."))
}

func TestOptimiseText_HardTruncateKeepsValidUTF8(t *testing.T) {
	// No sentence terminators anywhere, so the hard-truncate path runs.
	// The 7-byte repeat unit places the cut offset inside a multi-byte
	// rune, which must not be split.
	long := strings.Repeat("ééé ", 6000)

	got := optimiseText(long)
	assert.LessOrEqual(t, len(got), maxItemTokens*4)
	assert.True(t, utf8.ValidString(got))
}

func TestSplitIntoSentences(t *testing.T) {
	sentences := splitIntoSentences("First. Second! Third? Trailing fragment")
	require.Len(t, sentences, 4)
	assert.Equal(t, "First.", sentences[0])
	assert.Equal(t, "Second!", sentences[1])
	assert.Equal(t, "Third?", sentences[2])
	assert.Equal(t, "Trailing fragment", sentences[3])
}

func TestEstimateCost(t *testing.T) {
	assert.InDelta(t, 0.02, estimateCost("text-embedding-3-small", 1_000_000), 1e-12)
	assert.InDelta(t, 0.13, estimateCost("text-embedding-3-large", 1_000_000), 1e-12)
	assert.InDelta(t, 0.02, estimateCost("unknown-model", 1_000_000), 1e-12)
}
