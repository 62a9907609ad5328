package domain

import (
	"fmt"
	"strings"
)

// NormaliseContent lowercases text and collapses whitespace runs so
// that trivially reformatted duplicates hash identically.
func NormaliseContent(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// HashContent returns a stable dedup key for chunk content.
// FNV-1a over the normalised text; collisions are tolerable because
// the key only scopes duplicate detection within one upload batch.
func HashContent(text string) string {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)

	var h uint64 = offset64
	for _, b := range []byte(NormaliseContent(text)) {
		h ^= uint64(b)
		h *= prime64
	}
	return fmt.Sprintf("%016x", h)
}
