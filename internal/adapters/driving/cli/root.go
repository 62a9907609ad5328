// Package cli provides the cobra command-line interface.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragline/internal/adapters/driven/config/file"
	"github.com/custodia-labs/ragline/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/ragline/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/ragline/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragline/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/ragline/internal/adapters/driven/storage/supabase"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
	"github.com/custodia-labs/ragline/internal/core/services"
	"github.com/custodia-labs/ragline/internal/extractors/plaintext"
	"github.com/custodia-labs/ragline/internal/logger"
	"github.com/custodia-labs/ragline/internal/postprocessors/chunker"
	"github.com/custodia-labs/ragline/internal/structure"
)

// version is set at build time via ldflags.
var version = "dev"

// Persistent flags.
var (
	verbose   bool
	configDir string
	dataDir   string
)

// Wired services, built lazily by initServices.
var (
	configStore      driven.ConfigStore
	embeddingService driven.EmbeddingService
	vectorStore      driven.VectorStore
	extractor        *plaintext.Extractor
	docParser        *structure.Parser
	chunkProc        *chunker.Processor
	pipeline         *services.Pipeline
	retrieval        *services.Retrieval

	servicesReady bool
)

var rootCmd = &cobra.Command{
	Use:   "ragline",
	Short: "Chunk, embed and retrieve documents for RAG",
	Long: `ragline turns plain text and markdown documents into
retrieval-ready vector records: structure-aware chunking, quality-gated
embedding generation, and ranked semantic retrieval.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "config directory (default ~/.ragline)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default ~/.ragline/data)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// initServices wires the adapters configured in the TOML config store.
// Commands that need the pipeline or retrieval engine call this first.
func initServices() error {
	if servicesReady {
		return nil
	}

	store, err := file.NewConfigStore(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	configStore = store

	embeddingService, err = buildEmbeddingService(configStore)
	if err != nil {
		return err
	}

	vectorStore, err = buildVectorStore(configStore)
	if err != nil {
		return err
	}

	extractor = plaintext.New()
	docParser = structure.NewParser()
	chunkProc = buildChunker(configStore)

	embedder := services.NewEmbedder(embeddingService)
	retrieval = services.NewRetrieval(vectorStore, embeddingService)
	pipeline = services.NewPipeline(docParser, chunkProc, embedder, retrieval)

	servicesReady = true
	return nil
}

// closeServices releases adapter resources after a command finishes.
func closeServices() {
	if embeddingService != nil {
		_ = embeddingService.Close()
	}
	if vectorStore != nil {
		_ = vectorStore.Close()
	}
}

// buildEmbeddingService selects the provider from config. Ollama is the
// default since it needs no API key.
func buildEmbeddingService(cfg driven.ConfigStore) (driven.EmbeddingService, error) {
	provider := cfg.GetString("embedding.provider")
	if provider == "" {
		provider = "ollama"
	}

	switch provider {
	case "ollama":
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL:    cfg.GetString("embedding.base_url"),
			Model:      cfg.GetString("embedding.model"),
			Dimensions: cfg.GetInt("embedding.dimensions"),
		}), nil

	case "openai":
		apiKey := cfg.GetString("embedding.api_key")
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, errors.New("openai embedding provider requires embedding.api_key or OPENAI_API_KEY")
		}
		return openai.NewEmbeddingService(openai.Config{
			APIKey:     apiKey,
			BaseURL:    cfg.GetString("embedding.base_url"),
			Model:      cfg.GetString("embedding.model"),
			Dimensions: cfg.GetInt("embedding.dimensions"),
		})

	default:
		return nil, fmt.Errorf("unknown embedding provider %q", provider)
	}
}

// buildVectorStore selects the storage backend from config. SQLite is
// the default.
func buildVectorStore(cfg driven.ConfigStore) (driven.VectorStore, error) {
	backend := cfg.GetString("storage.backend")
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "sqlite":
		return sqlite.NewStore(dataDir)

	case "memory":
		return memory.NewVectorStore(), nil

	case "supabase":
		apiKey := cfg.GetString("supabase.api_key")
		if apiKey == "" {
			apiKey = os.Getenv("SUPABASE_API_KEY")
		}
		return supabase.NewStore(supabase.Config{
			URL:           cfg.GetString("supabase.url"),
			APIKey:        apiKey,
			Table:         cfg.GetString("supabase.table"),
			MatchFunction: cfg.GetString("supabase.match_function"),
		})

	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

// buildChunker applies chunking settings from config, falling back to
// the processor defaults.
func buildChunker(cfg driven.ConfigStore) *chunker.Processor {
	var opts []chunker.Option
	if v := cfg.GetInt("chunking.min_tokens"); v > 0 {
		opts = append(opts, chunker.WithMinTokens(v))
	}
	if v := cfg.GetInt("chunking.max_tokens"); v > 0 {
		opts = append(opts, chunker.WithMaxTokens(v))
	}
	if v := cfg.GetInt("chunking.overlap"); v > 0 {
		opts = append(opts, chunker.WithOverlap(v))
	}
	return chunker.New(opts...)
}
