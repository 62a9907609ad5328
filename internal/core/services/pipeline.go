package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
	"github.com/custodia-labs/ragline/internal/logger"
	"github.com/custodia-labs/ragline/internal/postprocessors/chunker"
	"github.com/custodia-labs/ragline/internal/structure"
)

// Ensure Pipeline implements the interface.
var _ driving.Ingestor = (*Pipeline)(nil)

// Pipeline wires the parse, chunk, embed and upload stages into one
// sequential ingestion run. Stages run strictly in order; the output of
// each stage is the complete input of the next.
type Pipeline struct {
	parser    *structure.Parser
	chunker   *chunker.Processor
	embedder  *Embedder
	retrieval *Retrieval
}

// NewPipeline creates an ingestion pipeline. The embedder and retrieval
// engine may be nil; the corresponding stages are then skipped
// regardless of options.
func NewPipeline(parser *structure.Parser, proc *chunker.Processor, embedder *Embedder, retrieval *Retrieval) *Pipeline {
	return &Pipeline{
		parser:    parser,
		chunker:   proc,
		embedder:  embedder,
		retrieval: retrieval,
	}
}

// Ingest runs the pipeline over the given documents. Per-chunk and
// per-batch failures accumulate in the report; the returned error is
// non-nil only when an entire stage produced nothing or the run was
// aborted.
func (p *Pipeline) Ingest(ctx context.Context, docs []domain.ExtractedDocument, opts driving.IngestOptions) (*domain.PipelineReport, error) {
	started := time.Now()
	report := &domain.PipelineReport{Documents: len(docs)}
	defer func() { report.Duration = time.Since(started) }()

	if len(docs) == 0 {
		return report, fmt.Errorf("ingest: %w", domain.ErrInvalidInput)
	}

	// Stage 1: parse and chunk.
	chunks, err := p.chunk(docs, report, opts)
	if err != nil {
		return report, err
	}
	report.Chunks = len(chunks)

	if p.embedder == nil {
		return report, nil
	}

	// Stage 2: embed.
	embedReport, err := p.embedder.Generate(ctx, chunks, opts.Embed, opts.Progress, opts.Abort)
	if embedReport != nil {
		report.Embedded = len(embedReport.Embeddings)
		report.TokensUsed = embedReport.Stats.TokensUsed
		report.EstimatedCost = embedReport.Stats.EstimatedCost
		report.Errors = append(report.Errors, embedReport.Errors...)
		report.Warnings = append(report.Warnings, embedReport.Warnings...)
	}
	if err != nil {
		return report, err
	}

	if p.retrieval == nil {
		return report, nil
	}

	// Stage 3: upload.
	chunksByID := make(map[string]domain.Chunk, len(chunks))
	for _, chunk := range chunks {
		chunksByID[chunk.ID] = chunk
	}

	uploadReport, err := p.retrieval.Upload(ctx, embedReport.Embeddings, chunksByID, opts.Upload, opts.Progress, opts.Abort)
	if uploadReport != nil {
		report.Uploaded = uploadReport.Uploaded
		report.DuplicatesSkipped = uploadReport.DuplicatesSkipped
		report.Errors = append(report.Errors, uploadReport.Errors...)
	}
	if err != nil {
		return report, err
	}

	logger.Info("Pipeline complete: %d documents, %d chunks, %d embedded, %d uploaded in %s",
		report.Documents, report.Chunks, report.Embedded, report.Uploaded,
		time.Since(started).Round(time.Millisecond))
	return report, nil
}

// chunk parses each document into a section tree and splits it into
// enriched chunks. A document that fails to yield chunks is reported
// and skipped; the stage fails only when every document does.
func (p *Pipeline) chunk(docs []domain.ExtractedDocument, report *domain.PipelineReport, opts driving.IngestOptions) ([]domain.Chunk, error) {
	logger.Section("Document Chunking")

	var all []domain.Chunk
	for i, doc := range docs {
		if aborted(opts.Abort) {
			return nil, domain.ErrAborted
		}

		root := p.parser.Parse(doc.Content, doc.Source)
		chunks, warnings := p.chunker.Process(root, doc.Source, i)
		report.Warnings = append(report.Warnings, warnings...)

		if len(chunks) == 0 {
			report.Errors = append(report.Errors,
				fmt.Errorf("document %q: %w", doc.Source, domain.ErrNoChunks))
			continue
		}

		logger.Debug("Document %q: %d chunks", doc.Source, len(chunks))
		all = append(all, chunks...)

		if opts.Progress != nil {
			opts.Progress("chunk", i+1, len(docs))
		}
	}

	if len(all) == 0 {
		return nil, fmt.Errorf("chunking stage: %w", domain.ErrNoChunks)
	}
	return all, nil
}
