package chunker

import (
	"strings"
	"testing"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := New()
		if p.minTokens != DefaultMinTokens {
			t.Errorf("expected minTokens %d, got %d", DefaultMinTokens, p.minTokens)
		}
		if p.maxTokens != DefaultMaxTokens {
			t.Errorf("expected maxTokens %d, got %d", DefaultMaxTokens, p.maxTokens)
		}
		if p.overlap != DefaultOverlap {
			t.Errorf("expected overlap %d, got %d", DefaultOverlap, p.overlap)
		}
	})

	t.Run("custom bounds", func(t *testing.T) {
		p := New(WithMinTokens(32), WithMaxTokens(256))
		if p.minTokens != 32 {
			t.Errorf("expected minTokens 32, got %d", p.minTokens)
		}
		if p.maxTokens != 256 {
			t.Errorf("expected maxTokens 256, got %d", p.maxTokens)
		}
	})

	t.Run("min exceeding max is reduced", func(t *testing.T) {
		p := New(WithMinTokens(600), WithMaxTokens(512))
		if p.minTokens >= p.maxTokens {
			t.Error("minTokens should be reduced when it reaches maxTokens")
		}
	})

	t.Run("zero values ignored", func(t *testing.T) {
		p := New(WithMinTokens(0), WithMaxTokens(0), WithOverlap(-1))
		if p.minTokens != DefaultMinTokens {
			t.Errorf("expected default minTokens, got %d", p.minTokens)
		}
		if p.maxTokens != DefaultMaxTokens {
			t.Errorf("expected default maxTokens, got %d", p.maxTokens)
		}
	})
}

func TestProcessor_Name(t *testing.T) {
	if New().Name() != "chunker" {
		t.Errorf("expected name 'chunker', got '%s'", New().Name())
	}
}

func TestProcess_NilTree(t *testing.T) {
	chunks, warnings := New().Process(nil, "doc.txt", 0)
	if chunks != nil || warnings != nil {
		t.Error("expected no output for nil tree")
	}
}

func TestProcess_SmallSection(t *testing.T) {
	root := &domain.Section{
		Title: "Doc", Level: 1,
		Content:     "A short paragraph of content.",
		ContentType: domain.ContentTypeParagraph,
	}

	chunks, warnings := New().Process(root, "doc.txt", 0)
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}

	c := chunks[0]
	if c.ID == "" {
		t.Error("expected chunk ID to be set")
	}
	if c.TokenCount <= 0 {
		t.Error("expected positive token count")
	}
	if c.Metadata.Source != "doc.txt" {
		t.Errorf("expected source 'doc.txt', got %q", c.Metadata.Source)
	}
	if !strings.Contains(c.Content, "# Doc") {
		t.Errorf("expected heading to survive chunking, got %q", c.Content)
	}
	if !strings.Contains(c.Content, "short paragraph") {
		t.Errorf("expected body to survive chunking, got %q", c.Content)
	}
}

// A 3,000-word single paragraph must split into at least 5 bounded
// chunks with sibling edges linking every adjacent pair.
func TestProcess_LongSingleParagraph(t *testing.T) {
	words := make([]string, 3000)
	for i := range words {
		words[i] = "lorem"
	}
	root := &domain.Section{
		Title: "Doc", Level: 1,
		Subsections: []*domain.Section{{
			Title: "Content", Level: 2,
			Content:     strings.Join(words, " "),
			ContentType: domain.ContentTypeParagraph,
		}},
	}

	p := New(WithMaxTokens(512))
	chunks, _ := p.Process(root, "doc.txt", 0)

	if len(chunks) < 5 {
		t.Fatalf("expected at least 5 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.TokenCount > 512 {
			t.Errorf("chunk %d exceeds bound: %d tokens", i, c.TokenCount)
		}
	}

	// Every adjacent pair must be linked both ways.
	for i := 0; i < len(chunks)-1; i++ {
		if !hasSibling(chunks[i], chunks[i+1].ID) {
			t.Errorf("chunk %d missing forward sibling edge", i)
		}
		if !hasSibling(chunks[i+1], chunks[i].ID) {
			t.Errorf("chunk %d missing backward sibling edge", i+1)
		}
	}
}

func hasSibling(c domain.Chunk, id string) bool {
	for _, rel := range c.Relationships {
		if rel.Type == domain.RelationSibling && rel.TargetID == id {
			return true
		}
	}
	return false
}

// No content loss: concatenated chunk text reproduces every
// non-whitespace character of the input (overlap disabled).
func TestProcess_NoContentLoss(t *testing.T) {
	content := "First paragraph with some words in it.\n\n" +
		"Second paragraph continues the thought with more words.\n\n" +
		"Third paragraph closes out the section entirely."
	root := &domain.Section{
		Title: "Doc", Level: 1,
		Content:     content,
		ContentType: domain.ContentTypeParagraph,
	}

	chunks, _ := New(WithOverlap(0), WithMaxTokens(16), WithMinTokens(4)).Process(root, "doc.txt", 0)

	var joined strings.Builder
	for _, c := range chunks {
		joined.WriteString(c.Content)
	}

	got := stripWhitespace(joined.String())
	want := stripWhitespace("# Doc\n\n" + content)
	if got != want {
		t.Errorf("content loss detected:\nwant %q\ngot  %q", want, got)
	}
}

func stripWhitespace(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func TestProcess_Deterministic(t *testing.T) {
	root := func() *domain.Section {
		return &domain.Section{
			Title: "Doc", Level: 1,
			Content:     strings.Repeat("Sentence one goes here. ", 200),
			ContentType: domain.ContentTypeParagraph,
		}
	}

	p := New(WithMaxTokens(128))
	first, _ := p.Process(root(), "doc.txt", 0)
	second, _ := p.Process(root(), "doc.txt", 0)

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Content != second[i].Content {
			t.Errorf("chunk %d boundaries differ", i)
		}
		if first[i].Importance != second[i].Importance {
			t.Errorf("chunk %d importance differs", i)
		}
		if first[i].TokenCount != second[i].TokenCount {
			t.Errorf("chunk %d token count differs", i)
		}
	}
}

func TestProcess_AtomicTokenDegenerate(t *testing.T) {
	// One indivisible 600-char token with maxTokens 32.
	root := &domain.Section{
		Title: "Doc", Level: 1,
		Content:     strings.Repeat("x", 600),
		ContentType: domain.ContentTypeParagraph,
	}

	chunks, warnings := New(WithMaxTokens(32), WithMinTokens(8)).Process(root, "doc.txt", 0)

	if len(warnings) == 0 {
		t.Error("expected a degenerate-token warning")
	}

	found := false
	for _, c := range chunks {
		if strings.Contains(c.Content, "xxx") {
			found = true
		}
	}
	if !found {
		t.Error("expected the atomic token to be emitted despite exceeding the bound")
	}
}

func TestProcess_MergesSmallChunks(t *testing.T) {
	// A heading-only section followed by body content should not leave
	// a tiny heading chunk behind.
	root := &domain.Section{
		Title: "Doc", Level: 1,
		Subsections: []*domain.Section{
			{
				Title: "Overview", Level: 2,
				Content:     "Body text that follows the heading with enough words to form a chunk.",
				ContentType: domain.ContentTypeParagraph,
			},
		},
	}

	chunks, _ := New(WithMinTokens(16), WithMaxTokens(128)).Process(root, "doc.txt", 0)

	for _, c := range chunks {
		if strings.TrimSpace(c.Content) == "## Overview" {
			t.Error("heading-only chunk should have merged into its body")
		}
	}
}

func TestProcess_Overlap(t *testing.T) {
	para := strings.Repeat("alpha beta gamma delta epsilon. ", 40)
	root := &domain.Section{
		Title: "Doc", Level: 1,
		Content:     para,
		ContentType: domain.ContentTypeParagraph,
	}

	chunks, _ := New(WithOverlap(5), WithMaxTokens(64), WithMinTokens(8)).Process(root, "doc.txt", 0)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
}

func TestProcess_OverlapRespectsTokenBound(t *testing.T) {
	// Paragraphs sized just under the bound: the carried overlap must
	// not push the following chunk past maxTokens.
	para := strings.TrimSpace(strings.Repeat("alpha beta gamma delta epsilon zeta. ", 54))
	root := &domain.Section{
		Title: "Doc", Level: 1,
		Content:     para + "\n\n" + para + "\n\n" + para,
		ContentType: domain.ContentTypeParagraph,
	}

	const maxTokens = 512
	chunks, _ := New(WithMaxTokens(maxTokens), WithOverlap(100), WithMinTokens(8)).Process(root, "doc.txt", 0)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for i, c := range chunks {
		if len(strings.Fields(c.Content)) <= 1 {
			continue // a single atomic token may exceed the bound
		}
		if c.TokenCount > maxTokens {
			t.Errorf("chunk %d: TokenCount=%d exceeds maxTokens=%d", i, c.TokenCount, maxTokens)
		}
	}
}

func TestProcess_PositionTracking(t *testing.T) {
	root := &domain.Section{
		Title: "Doc", Level: 1,
		Content:     "Root paragraph.",
		ContentType: domain.ContentTypeParagraph,
		Subsections: []*domain.Section{
			{
				Title: "Second", Level: 2,
				Content:     "Second section paragraph.",
				ContentType: domain.ContentTypeParagraph,
			},
		},
	}

	chunks, _ := New(WithMinTokens(1)).Process(root, "doc.txt", 3)

	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	for _, c := range chunks {
		if c.Position.DocumentIndex != 3 {
			t.Errorf("expected document index 3, got %d", c.Position.DocumentIndex)
		}
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{name: "empty", input: "", expected: 0},
		{name: "single char", input: "a", expected: 1},
		{name: "four chars", input: "abcd", expected: 1},
		{name: "five chars", input: "abcde", expected: 2},
		{name: "forty chars", input: strings.Repeat("x", 40), expected: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateTokens(tt.input); got != tt.expected {
				t.Errorf("expected %d tokens, got %d", tt.expected, got)
			}
		})
	}
}
