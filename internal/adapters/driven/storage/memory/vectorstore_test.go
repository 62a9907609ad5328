package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

func record(id, source string, embedding []float32) domain.VectorRecord {
	return domain.VectorRecord{
		ID:        id,
		Content:   "content for " + id,
		Embedding: embedding,
		Source:    source,
	}
}

func TestNewVectorStore(t *testing.T) {
	store := NewVectorStore()
	require.NotNil(t, store)
	assert.NotNil(t, store.records)
}

func TestVectorStore_InsertAndCount(t *testing.T) {
	store := NewVectorStore()
	ctx := context.Background()

	err := store.Insert(ctx, []domain.VectorRecord{
		record("r1", "a.md", []float32{1, 0}),
		record("r2", "a.md", []float32{0, 1}),
	})
	require.NoError(t, err)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestVectorStore_Insert_SameIDOverwrites(t *testing.T) {
	store := NewVectorStore()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, []domain.VectorRecord{record("r1", "a.md", []float32{1, 0})}))
	require.NoError(t, store.Insert(ctx, []domain.VectorRecord{record("r1", "b.md", []float32{0, 1})}))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	records, err := store.Scan(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "b.md", records[0].Source)
}

func TestVectorStore_Match_RanksBySimilarity(t *testing.T) {
	store := NewVectorStore()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, []domain.VectorRecord{
		record("orthogonal", "a.md", []float32{0, 1}),
		record("aligned", "a.md", []float32{1, 0}),
		record("diagonal", "a.md", []float32{1, 1}),
	}))

	hits, err := store.Match(ctx, []float32{1, 0}, 0.0, 10)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "aligned", hits[0].Record.ID)
	assert.Equal(t, "diagonal", hits[1].Record.ID)
	assert.Equal(t, "orthogonal", hits[2].Record.ID)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-9)
}

func TestVectorStore_Match_ThresholdAndCount(t *testing.T) {
	store := NewVectorStore()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, []domain.VectorRecord{
		record("orthogonal", "a.md", []float32{0, 1}),
		record("aligned", "a.md", []float32{1, 0}),
		record("diagonal", "a.md", []float32{1, 1}),
	}))

	hits, err := store.Match(ctx, []float32{1, 0}, 0.5, 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	hits, err = store.Match(ctx, []float32{1, 0}, 0.0, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "aligned", hits[0].Record.ID)
}

func TestVectorStore_Scan_LimitAndOrder(t *testing.T) {
	store := NewVectorStore()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, []domain.VectorRecord{
		record("r1", "a.md", []float32{1}),
		record("r2", "a.md", []float32{1}),
		record("r3", "a.md", []float32{1}),
	}))

	records, err := store.Scan(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "r1", records[0].ID)
	assert.Equal(t, "r2", records[1].ID)
}

func TestVectorStore_DeleteBySource(t *testing.T) {
	store := NewVectorStore()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, []domain.VectorRecord{
		record("r1", "a.md", []float32{1}),
		record("r2", "b.md", []float32{1}),
		record("r3", "a.md", []float32{1}),
	}))

	deleted, err := store.DeleteBySource(ctx, "a.md")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	records, err := store.Scan(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "r2", records[0].ID)
}

func TestVectorStore_ConcurrentAccess(t *testing.T) {
	store := NewVectorStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a' + n))
			_ = store.Insert(ctx, []domain.VectorRecord{record(id, "src", []float32{1, 0})})
			_, _ = store.Match(ctx, []float32{1, 0}, 0, 5)
			_, _ = store.Count(ctx)
		}(i)
	}
	wg.Wait()

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, count)
}
