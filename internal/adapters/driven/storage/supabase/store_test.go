package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

func newTestStore(t *testing.T, handler http.HandlerFunc) *Store {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store, err := NewStore(Config{URL: server.URL, APIKey: "test-key"})
	require.NoError(t, err)
	return store
}

func TestNewStore_Validation(t *testing.T) {
	_, err := NewStore(Config{APIKey: "key"})
	assert.Error(t, err)

	_, err = NewStore(Config{URL: "https://example.supabase.co"})
	assert.Error(t, err)
}

func TestStore_Insert_SendsBatch(t *testing.T) {
	var gotPath, gotPrefer, gotKey string
	var gotRows []vectorRow
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotPrefer = r.Header.Get("Prefer")
		gotKey = r.Header.Get("apikey")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRows))
		w.WriteHeader(http.StatusCreated)
	})

	err := store.Insert(context.Background(), []domain.VectorRecord{
		{ID: "r1", Content: "text", Embedding: []float32{1, 2}, Source: "a.md"},
	})
	require.NoError(t, err)

	assert.Equal(t, "/rest/v1/vectors", gotPath)
	assert.Equal(t, "resolution=merge-duplicates", gotPrefer)
	assert.Equal(t, "test-key", gotKey)
	require.Len(t, gotRows, 1)
	assert.Equal(t, "r1", gotRows[0].ID)
	assert.False(t, gotRows[0].CreatedAt.IsZero())
}

func TestStore_Match_DecodesHits(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/rpc/match_vectors", r.URL.Path)

		var req matchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 0.3, req.MatchThreshold)
		assert.Equal(t, 20, req.MatchCount)

		_ = json.NewEncoder(w).Encode([]vectorRow{
			{ID: "r1", Content: "hit", Source: "a.md", Similarity: 0.91},
		})
	})

	hits, err := store.Match(context.Background(), []float32{1, 0}, 0.3, 20)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "r1", hits[0].Record.ID)
	assert.Equal(t, 0.91, hits[0].Similarity)
}

func TestStore_Match_MissingFunctionIsUnavailable(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := store.Match(context.Background(), []float32{1}, 0.3, 10)
	assert.ErrorIs(t, err, domain.ErrMatchUnavailable)
}

func TestStore_Scan(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		_ = json.NewEncoder(w).Encode([]vectorRow{
			{ID: "r1"}, {ID: "r2"},
		})
	})

	records, err := store.Scan(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestStore_DeleteBySource(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "eq.a.md", r.URL.Query().Get("source"))
		_ = json.NewEncoder(w).Encode([]vectorRow{{ID: "r1"}, {ID: "r2"}, {ID: "r3"}})
	})

	deleted, err := store.DeleteBySource(context.Background(), "a.md")
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)
}

func TestStore_Count_ParsesContentRange(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "count=exact", r.Header.Get("Prefer"))
		w.Header().Set("Content-Range", "0-0/42")
		_ = json.NewEncoder(w).Encode([]vectorRow{{ID: "r1"}})
	})

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, count)
}

func TestStore_Count_EmptyTable(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Range", "*/0")
		_ = json.NewEncoder(w).Encode([]vectorRow{})
	})

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestStore_Insert_APIError(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"invalid key"}`))
	})

	err := store.Insert(context.Background(), []domain.VectorRecord{{ID: "r1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}
