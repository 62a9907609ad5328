package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragline/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/ragline/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/ragline/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragline/internal/postprocessors/chunker"
)

// fakeConfig is an in-memory ConfigStore for wiring tests.
type fakeConfig struct {
	values map[string]any
}

func (f *fakeConfig) Get(key string) (any, bool) {
	v, ok := f.values[key]
	return v, ok
}

func (f *fakeConfig) GetString(key string) string {
	if v, ok := f.values[key].(string); ok {
		return v
	}
	return ""
}

func (f *fakeConfig) GetInt(key string) int {
	if v, ok := f.values[key].(int); ok {
		return v
	}
	return 0
}

func (f *fakeConfig) GetBool(key string) bool {
	if v, ok := f.values[key].(bool); ok {
		return v
	}
	return false
}

func (f *fakeConfig) GetStringSlice(key string) []string {
	if v, ok := f.values[key].([]string); ok {
		return v
	}
	return nil
}

func (f *fakeConfig) Set(key string, value any) error {
	if f.values == nil {
		f.values = make(map[string]any)
	}
	f.values[key] = value
	return nil
}

func (f *fakeConfig) Save() error { return nil }
func (f *fakeConfig) Load() error { return nil }
func (f *fakeConfig) Path() string {
	return "fake/config.toml"
}

func TestRootCmd_HasCoreCommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"ingest", "query", "delete", "watch", "config", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestBuildEmbeddingService_DefaultsToOllama(t *testing.T) {
	svc, err := buildEmbeddingService(&fakeConfig{})
	require.NoError(t, err)

	_, ok := svc.(*ollama.EmbeddingService)
	assert.True(t, ok)
}

func TestBuildEmbeddingService_OpenAIRequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	cfg := &fakeConfig{values: map[string]any{"embedding.provider": "openai"}}
	_, err := buildEmbeddingService(cfg)
	assert.Error(t, err)
}

func TestBuildEmbeddingService_OpenAIWithKey(t *testing.T) {
	cfg := &fakeConfig{values: map[string]any{
		"embedding.provider": "openai",
		"embedding.api_key":  "sk-test",
	}}
	svc, err := buildEmbeddingService(cfg)
	require.NoError(t, err)

	_, ok := svc.(*openai.EmbeddingService)
	assert.True(t, ok)
}

func TestBuildEmbeddingService_UnknownProvider(t *testing.T) {
	cfg := &fakeConfig{values: map[string]any{"embedding.provider": "acme"}}
	_, err := buildEmbeddingService(cfg)
	assert.ErrorContains(t, err, "acme")
}

func TestBuildVectorStore_Memory(t *testing.T) {
	cfg := &fakeConfig{values: map[string]any{"storage.backend": "memory"}}
	store, err := buildVectorStore(cfg)
	require.NoError(t, err)
	defer store.Close()

	_, ok := store.(*memory.VectorStore)
	assert.True(t, ok)
}

func TestBuildVectorStore_UnknownBackend(t *testing.T) {
	cfg := &fakeConfig{values: map[string]any{"storage.backend": "tape"}}
	_, err := buildVectorStore(cfg)
	assert.ErrorContains(t, err, "tape")
}

func TestBuildChunker_AppliesConfig(t *testing.T) {
	cfg := &fakeConfig{values: map[string]any{
		"chunking.min_tokens": 10,
		"chunking.max_tokens": 100,
	}}
	proc := buildChunker(cfg)
	assert.NotNil(t, proc)
}

func TestBuildChunker_DefaultsWithEmptyConfig(t *testing.T) {
	proc := buildChunker(&fakeConfig{})
	assert.NotNil(t, proc)
	assert.IsType(t, &chunker.Processor{}, proc)
}
