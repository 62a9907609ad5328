package driving

import (
	"context"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

// ProgressFunc reports stage progress. Callbacks are invoked
// synchronously between operations and never run concurrently with the
// stage that triggered them.
type ProgressFunc func(stage string, done, total int)

// AbortFunc is polled between batches; returning true stops the
// pipeline at the next batch boundary. Batches are the finest
// cancellable unit.
type AbortFunc func() bool

// IngestOptions configures one ingestion run.
type IngestOptions struct {
	// Embed configures the embedding generation stage.
	Embed domain.EmbedOptions

	// Upload configures the upload stage.
	Upload domain.UploadOptions

	// Progress, when non-nil, receives stage progress callbacks.
	Progress ProgressFunc

	// Abort, when non-nil, is polled between batches.
	Abort AbortFunc
}

// Ingestor runs the chunk -> embed -> upload pipeline for a document set.
type Ingestor interface {
	// Ingest processes the given documents strictly stage by stage.
	// Partial failures accumulate in the report; the returned error is
	// non-nil only when an entire stage produced zero outputs or the
	// run was aborted.
	Ingest(ctx context.Context, docs []domain.ExtractedDocument, opts IngestOptions) (*domain.PipelineReport, error)
}
