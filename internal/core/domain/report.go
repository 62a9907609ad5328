package domain

import "time"

// ExtractedDocument is the unit of input to the pipeline: plain text
// plus a source identifier. File-format parsing happens upstream; the
// core never sees binary formats.
type ExtractedDocument struct {
	// Content is the extracted plain text.
	Content string

	// Source is the originating identifier (file name, URI).
	Source string
}

// PipelineReport aggregates the outcome of one ingestion run across
// all stages. The run is fatal only when an entire stage produced zero
// successful outputs; partial failures accumulate here alongside
// whatever succeeded.
type PipelineReport struct {
	// Documents is the number of input documents.
	Documents int

	// Chunks is the number of chunks produced.
	Chunks int

	// Embedded is the number of embeddings that passed the quality gate.
	Embedded int

	// Uploaded is the number of records stored.
	Uploaded int

	// DuplicatesSkipped counts records dropped by dedup.
	DuplicatesSkipped int

	// TokensUsed is the embedding token total.
	TokensUsed int

	// EstimatedCost is the embedding cost estimate in USD.
	EstimatedCost float64

	// Errors are accumulated non-fatal failures from all stages.
	Errors []error

	// Warnings are accumulated non-fatal notices from all stages.
	Warnings []string

	// Duration is the wall-clock time of the run.
	Duration time.Duration
}
