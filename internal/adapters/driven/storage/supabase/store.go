// Package supabase provides a vector store adapter backed by a Supabase
// project over the PostgREST API, with pgvector similarity search.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Default configuration values.
const (
	DefaultTable         = "vectors"
	DefaultMatchFunction = "match_vectors"
	DefaultTimeout       = 30 * time.Second
)

// Config holds configuration for the Supabase vector store.
type Config struct {
	// URL is the project URL, e.g. https://xyzcompany.supabase.co (required).
	URL string

	// APIKey is the service role or anon key (required).
	APIKey string

	// Table is the vector table name (default: vectors).
	Table string

	// MatchFunction is the SQL function used for similarity search
	// (default: match_vectors).
	MatchFunction string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration
}

// Store talks to the Supabase PostgREST API. Similarity search runs
// server-side through a pgvector SQL function exposed as an RPC.
type Store struct {
	client  *http.Client
	baseURL string
	apiKey  string
	table   string
	matchFn string
}

// vectorRow is the PostgREST row format for the vectors table.
type vectorRow struct {
	ID         string         `json:"id"`
	Content    string         `json:"content"`
	Embedding  []float32      `json:"embedding"`
	Source     string         `json:"source"`
	Metadata   map[string]any `json:"metadata"`
	CreatedAt  time.Time      `json:"created_at"`
	Similarity float64        `json:"similarity,omitempty"`
}

// matchRequest is the RPC payload for the similarity function.
type matchRequest struct {
	QueryEmbedding []float32 `json:"query_embedding"`
	MatchThreshold float64   `json:"match_threshold"`
	MatchCount     int       `json:"match_count"`
}

// NewStore creates a new Supabase vector store.
func NewStore(cfg Config) (*Store, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("supabase: URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("supabase: API key is required")
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if cfg.MatchFunction == "" {
		cfg.MatchFunction = DefaultMatchFunction
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Store{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: strings.TrimSuffix(cfg.URL, "/") + "/rest/v1",
		apiKey:  cfg.APIKey,
		table:   cfg.Table,
		matchFn: cfg.MatchFunction,
	}, nil
}

// Insert stores the given records as one batch. Conflicting IDs are
// merged so re-uploads are idempotent.
func (s *Store) Insert(ctx context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([]vectorRow, len(records))
	for i, rec := range records {
		createdAt := rec.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		rows[i] = vectorRow{
			ID:        rec.ID,
			Content:   rec.Content,
			Embedding: rec.Embedding,
			Source:    rec.Source,
			Metadata:  rec.Metadata,
			CreatedAt: createdAt,
		}
	}

	body, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("marshal records: %w", err)
	}

	req, err := s.newRequest(ctx, http.MethodPost, s.baseURL+"/"+s.table, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Prefer", "resolution=merge-duplicates")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return apiError("insert", resp)
	}
	return nil
}

// Match runs the pgvector similarity function server-side.
func (s *Store) Match(ctx context.Context, query []float32, threshold float64, count int) ([]domain.MatchHit, error) {
	body, err := json.Marshal(matchRequest{
		QueryEmbedding: query,
		MatchThreshold: threshold,
		MatchCount:     count,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal match request: %w", err)
	}

	req, err := s.newRequest(ctx, http.MethodPost, s.baseURL+"/rpc/"+s.matchFn, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	// A missing function means this project has no similarity RPC;
	// let the caller fall back to client-side ranking.
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("rpc %s: %w", s.matchFn, domain.ErrMatchUnavailable)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError("match", resp)
	}

	var rows []vectorRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	hits := make([]domain.MatchHit, len(rows))
	for i, row := range rows {
		hits[i] = domain.MatchHit{
			Record:     row.toRecord(),
			Similarity: row.Similarity,
		}
	}
	return hits, nil
}

// Scan returns up to limit records.
func (s *Store) Scan(ctx context.Context, limit int) ([]domain.VectorRecord, error) {
	u := fmt.Sprintf("%s/%s?select=*&limit=%d", s.baseURL, s.table, limit)
	req, err := s.newRequest(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError("scan", resp)
	}

	var rows []vectorRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	records := make([]domain.VectorRecord, len(rows))
	for i, row := range rows {
		records[i] = row.toRecord()
	}
	return records, nil
}

// DeleteBySource removes all records for a source.
func (s *Store) DeleteBySource(ctx context.Context, source string) (int, error) {
	u := fmt.Sprintf("%s/%s?source=eq.%s", s.baseURL, s.table, url.QueryEscape(source))
	req, err := s.newRequest(ctx, http.MethodDelete, u, http.NoBody)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Prefer", "return=representation")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, apiError("delete", resp)
	}

	var rows []vectorRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	return len(rows), nil
}

// Count returns the number of stored records, read from the
// Content-Range header of a head-style request.
func (s *Store) Count(ctx context.Context) (int, error) {
	req, err := s.newRequest(ctx, http.MethodGet, s.baseURL+"/"+s.table+"?select=id", http.NoBody)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Prefer", "count=exact")
	req.Header.Set("Range", "0-0")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return 0, apiError("count", resp)
	}

	// Content-Range is "0-0/42" or "*/0" for an empty table.
	contentRange := resp.Header.Get("Content-Range")
	idx := strings.LastIndex(contentRange, "/")
	if idx < 0 {
		return 0, fmt.Errorf("supabase: unexpected Content-Range %q", contentRange)
	}
	count, err := strconv.Atoi(contentRange[idx+1:])
	if err != nil {
		return 0, fmt.Errorf("supabase: unexpected Content-Range %q", contentRange)
	}
	return count, nil
}

// Close releases resources.
func (s *Store) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}

// newRequest builds a PostgREST request with auth headers set.
func (s *Store) newRequest(ctx context.Context, method, u string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	return req, nil
}

// apiError reads the response body into an error.
func apiError(op string, resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("supabase %s: status %d (failed to read body: %w)", op, resp.StatusCode, err)
	}
	return fmt.Errorf("supabase %s: status %d: %s", op, resp.StatusCode, string(body))
}

func (r vectorRow) toRecord() domain.VectorRecord {
	return domain.VectorRecord{
		ID:        r.ID,
		Content:   r.Content,
		Embedding: r.Embedding,
		Source:    r.Source,
		Metadata:  r.Metadata,
		CreatedAt: r.CreatedAt,
	}
}
