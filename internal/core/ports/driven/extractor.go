package driven

import (
	"context"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

// Extractor supplies extracted plain text per input file. File-format
// parsing (PDF, DOCX, CSV) lives behind this boundary; the core only
// ever sees {content, source} pairs.
type Extractor interface {
	// Extract reads the given path and returns its text content with a
	// source identifier.
	Extract(ctx context.Context, path string) (*domain.ExtractedDocument, error)

	// SupportedExtensions returns the file extensions this extractor
	// handles, including the leading dot.
	SupportedExtensions() []string
}
