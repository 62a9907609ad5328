// Package plaintext extracts text content from plain text and markdown
// files on the local filesystem.
package plaintext

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// MaxFileSize bounds how much of a file is read, 10 MiB.
const MaxFileSize = 10 << 20

// Extractor reads text files from disk.
type Extractor struct{}

// New creates a new plain text extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedExtensions returns the file extensions this extractor handles.
func (e *Extractor) SupportedExtensions() []string {
	return []string{".txt", ".md", ".markdown"}
}

// Supports reports whether the extractor handles the given path.
func (e *Extractor) Supports(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, supported := range e.SupportedExtensions() {
		if ext == supported {
			return true
		}
	}
	return false
}

// Extract reads the file and returns its text content. The source
// identifier is the cleaned path.
func (e *Extractor) Extract(ctx context.Context, path string) (*domain.ExtractedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !e.Supports(path) {
		return nil, fmt.Errorf("extract %s: %w", path, domain.ErrInvalidInput)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("extract %s: is a directory: %w", path, domain.ErrInvalidInput)
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("extract %s: file exceeds %d bytes: %w", path, int(MaxFileSize), domain.ErrInvalidInput)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("extract %s: not valid UTF-8: %w", path, domain.ErrInvalidInput)
	}

	return &domain.ExtractedDocument{
		Content: normaliseLineEndings(string(content)),
		Source:  filepath.Clean(path),
	}, nil
}

// ExtractDir walks a directory and extracts every supported file.
// Hidden files and directories are skipped.
func (e *Extractor) ExtractDir(ctx context.Context, dir string) ([]domain.ExtractedDocument, error) {
	var docs []domain.ExtractedDocument

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if isHidden(d.Name()) && path != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !e.Supports(path) {
			return nil
		}

		doc, err := e.Extract(ctx, path)
		if err != nil {
			return err
		}
		docs = append(docs, *doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}

	return docs, nil
}

func normaliseLineEndings(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.ReplaceAll(content, "\r", "\n")
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
