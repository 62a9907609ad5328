package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
	"github.com/custodia-labs/ragline/internal/core/services"
)

// timeRound is the display precision for durations.
const timeRound = time.Millisecond

var (
	ingestBatchSize        int
	ingestQualityThreshold float64
	ingestModel            string
	ingestDryRun           bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <path>",
	Short: "Chunk, embed and upload a file or directory",
	Long: `Extract text from a file or directory of .txt/.md files, split it
into chunks, generate embeddings and upload the records to the
configured vector store.

With --dry-run the pipeline stops after chunking and reports what
would be embedded.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := initServices(); err != nil {
			return err
		}
		defer closeServices()

		docs, err := extractPath(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			return fmt.Errorf("no supported documents found at %s", args[0])
		}

		opts := driving.IngestOptions{
			Embed: domain.EmbedOptions{
				Model:            ingestModel,
				BatchSize:        ingestBatchSize,
				QualityThreshold: ingestQualityThreshold,
			},
			Progress: func(stage string, done, total int) {
				cmd.Printf("\r%s: %d/%d", stage, done, total)
				if done == total {
					cmd.Println()
				}
			},
		}

		ingestor := driving.Ingestor(pipeline)
		if ingestDryRun {
			ingestor = services.NewPipeline(docParser, chunkProc, nil, nil)
		}

		report, err := ingestor.Ingest(cmd.Context(), docs, opts)
		if report != nil {
			printIngestReport(cmd, report)
		}
		return err
	},
}

func init() {
	ingestCmd.Flags().IntVar(&ingestBatchSize, "batch-size", 0, "chunks per embedding request")
	ingestCmd.Flags().Float64Var(&ingestQualityThreshold, "quality-threshold", 0, "minimum quality score (0-1)")
	ingestCmd.Flags().StringVar(&ingestModel, "model", "", "embedding model override")
	ingestCmd.Flags().BoolVar(&ingestDryRun, "dry-run", false, "chunk only, skip embedding and upload")
	rootCmd.AddCommand(ingestCmd)
}

// extractPath extracts a single file or, for a directory, every
// supported file under it.
func extractPath(ctx context.Context, path string) ([]domain.ExtractedDocument, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return extractor.ExtractDir(ctx, path)
	}
	doc, err := extractor.Extract(ctx, path)
	if err != nil {
		return nil, err
	}
	return []domain.ExtractedDocument{*doc}, nil
}

func printIngestReport(cmd *cobra.Command, r *domain.PipelineReport) {
	cmd.Printf("Documents:  %d\n", r.Documents)
	cmd.Printf("Chunks:     %d\n", r.Chunks)
	cmd.Printf("Embedded:   %d\n", r.Embedded)
	cmd.Printf("Uploaded:   %d\n", r.Uploaded)
	if r.DuplicatesSkipped > 0 {
		cmd.Printf("Duplicates: %d\n", r.DuplicatesSkipped)
	}
	if r.TokensUsed > 0 {
		cmd.Printf("Tokens:     %d (est. $%.6f)\n", r.TokensUsed, r.EstimatedCost)
	}
	cmd.Printf("Duration:   %s\n", r.Duration.Round(timeRound))
	for _, w := range r.Warnings {
		cmd.Printf("warning: %s\n", w)
	}
	for _, e := range r.Errors {
		cmd.Printf("error: %v\n", e)
	}
}
