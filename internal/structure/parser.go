// Package structure parses extracted text into a hierarchical section
// tree. The tree drives chunking and is discarded afterwards.
package structure

import (
	"path/filepath"
	"strings"
	"unicode"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

// Heuristic limits for header and title detection.
const (
	maxTitleLen  = 80
	maxHeaderLen = 60
)

// Parser converts raw extracted text into a tree of domain.Section
// nodes. Parsing is deterministic and side-effect free; it never fails
// and degrades to a single flat section when no structure is detected.
type Parser struct{}

// NewParser creates a new structure parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse builds a section tree from content. The returned root carries
// the detected document title at level 1; detected sections become
// subsections. Content without any detected header is placed in a
// single default "Content" section.
func (p *Parser) Parse(content, source string) *domain.Section {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	lines := strings.Split(content, "\n")

	title, titleLine := detectTitle(lines, source)

	root := &domain.Section{
		Title:       title,
		Level:       1,
		ContentType: domain.ContentTypeHeading,
	}

	// Stack of open sections, root at the bottom.
	stack := []*domain.Section{root}
	var buf []string

	flush := func() {
		text := strings.TrimSpace(strings.Join(buf, "\n"))
		buf = buf[:0]
		if text == "" {
			return
		}
		current := stack[len(stack)-1]
		if current.Content != "" {
			current.Content += "\n\n" + text
		} else {
			current.Content = text
		}
		current.ContentType = classifySection(current.Content)
	}

	inFence := false
	for i, line := range lines {
		if i == titleLine {
			continue
		}

		// Fenced code is opaque: no header detection inside.
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			buf = append(buf, line)
			continue
		}
		if inFence {
			buf = append(buf, line)
			continue
		}

		heading, level, ok := detectHeader(line)
		if !ok {
			buf = append(buf, line)
			continue
		}

		flush()

		section := &domain.Section{
			Title:       heading,
			Level:       level,
			ContentType: domain.ContentTypeHeading,
		}

		// Pop until the parent is shallower than the new section.
		for len(stack) > 1 && stack[len(stack)-1].Level >= level {
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1]
		parent.Subsections = append(parent.Subsections, section)
		stack = append(stack, section)
	}
	flush()

	// No headers detected: everything landed on the root. Move it into
	// a default section so chunking always walks subsections.
	if len(root.Subsections) == 0 && root.Content != "" {
		root.Subsections = append(root.Subsections, &domain.Section{
			Title:       "Content",
			Level:       2,
			Content:     root.Content,
			ContentType: classifySection(root.Content),
		})
		root.Content = ""
	}

	return root
}

// detectTitle finds the document title and the line it came from (-1
// when the title was not taken from the content). Priority: first
// markdown H1, then a short first line, then the source filename stem.
func detectTitle(lines []string, source string) (string, int) {
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(trimmed, "# ")), i
		}
		// First non-empty line: usable as a title when short and not a
		// sentence.
		if len(trimmed) <= maxTitleLen && !strings.HasSuffix(trimmed, ".") &&
			!strings.HasPrefix(trimmed, "#") {
			return trimmed, i
		}
		break
	}

	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	stem = strings.NewReplacer("_", " ", "-", " ").Replace(stem)
	if stem == "" || stem == "." {
		stem = "Untitled"
	}
	return stem, -1
}

// detectHeader reports whether line is a section boundary. Priority:
// markdown header markers, ALL-CAPS short lines, colon-terminated
// short lines.
func detectHeader(line string) (title string, level int, ok bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return "", 0, false
	}

	if hashes := countLeadingHashes(trimmed); hashes > 0 {
		rest := strings.TrimSpace(trimmed[hashes:])
		if rest != "" {
			lvl := hashes
			if lvl < 2 {
				lvl = 2 // H1 is reserved for the document title
			}
			return rest, lvl, true
		}
	}

	if isAllCapsHeader(trimmed) {
		return trimmed, 2, true
	}

	// The trailing colon stays in the title so the character survives
	// when the heading is re-materialised downstream.
	if isColonHeader(trimmed) {
		return trimmed, 2, true
	}

	return "", 0, false
}

func countLeadingHashes(s string) int {
	n := 0
	for n < len(s) && s[n] == '#' {
		n++
	}
	if n == 0 || n > 6 {
		return 0
	}
	if n < len(s) && s[n] != ' ' && s[n] != '\t' {
		return 0
	}
	return n
}

// isAllCapsHeader matches short lines whose letters are all uppercase,
// e.g. "INTRODUCTION" or "SECTION 2". Requires at least two letters to
// avoid treating stray tokens as headers.
func isAllCapsHeader(s string) bool {
	if len(s) > maxHeaderLen || strings.HasSuffix(s, ".") {
		return false
	}
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters++
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return letters >= 2
}

// isColonHeader matches short single-line labels ending in a colon,
// e.g. "Installation:".
func isColonHeader(s string) bool {
	if len(s) > maxHeaderLen || !strings.HasSuffix(s, ":") {
		return false
	}
	body := strings.TrimSuffix(s, ":")
	if strings.TrimSpace(body) == "" {
		return false
	}
	// A colon mid-sentence ("Note: this is long...") is not a header;
	// only one colon, at the end.
	return strings.Count(s, ":") == 1
}

// classifySection tags a section body with its dominant content type.
// Chunk-level classification is finer grained; this only guides
// per-section target sizes.
func classifySection(content string) domain.ContentType {
	trimmed := strings.TrimSpace(content)
	switch {
	case strings.HasPrefix(trimmed, "```"):
		return domain.ContentTypeCode
	case strings.HasPrefix(trimmed, "|") && strings.Contains(trimmed, "\n|"):
		return domain.ContentTypeTable
	case strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ") ||
		strings.HasPrefix(trimmed, "1. "):
		return domain.ContentTypeList
	case strings.HasPrefix(trimmed, ">"):
		return domain.ContentTypeQuote
	default:
		return domain.ContentTypeParagraph
	}
}
