// Package chunker transforms a parsed section tree into a flat,
// ordered list of token-bounded, classified, scored chunks optimised
// for retrieval.
package chunker

import (
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

// Default token bounds.
const (
	DefaultMinTokens = 64
	DefaultMaxTokens = 512
	DefaultOverlap   = 0
)

// targetSizes maps a section's dominant content type to the preferred
// chunk size in tokens. Values above the configured maximum are
// clamped at split time.
var targetSizes = map[domain.ContentType]int{
	domain.ContentTypeHeading:   256,
	domain.ContentTypeParagraph: 512,
	domain.ContentTypeList:      384,
	domain.ContentTypeTable:     768,
	domain.ContentTypeCode:      1024,
	domain.ContentTypeQuote:     384,
	domain.ContentTypeFormula:   256,
	domain.ContentTypeReference: 256,
}

// Processor splits section trees into semantic chunks.
// Chunk boundaries and scores are a pure function of the input text
// and configuration; only chunk IDs differ between runs.
type Processor struct {
	minTokens int
	maxTokens int
	overlap   int // words carried into the next buffer
	estimate  TokenEstimator
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithMinTokens sets the minimum chunk size in tokens. Chunks below
// this bound are merged into a neighbour when the result fits.
func WithMinTokens(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.minTokens = n
		}
	}
}

// WithMaxTokens sets the maximum chunk size in tokens.
func WithMaxTokens(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.maxTokens = n
		}
	}
}

// WithOverlap sets the number of trailing words carried into the next
// chunk for context continuity.
func WithOverlap(words int) Option {
	return func(p *Processor) {
		if words >= 0 {
			p.overlap = words
		}
	}
}

// WithTokenEstimator replaces the default length-based token estimator.
func WithTokenEstimator(estimate TokenEstimator) Option {
	return func(p *Processor) {
		if estimate != nil {
			p.estimate = estimate
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		minTokens: DefaultMinTokens,
		maxTokens: DefaultMaxTokens,
		overlap:   DefaultOverlap,
		estimate:  EstimateTokens,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Keep the bounds coherent
	if p.minTokens >= p.maxTokens {
		p.minTokens = p.maxTokens / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// rawChunk is an intermediate chunk before merging and enrichment.
type rawChunk struct {
	text           string
	sectionIndex   int
	paragraphIndex int
}

// Process walks the section tree and returns the finished chunks plus
// any non-fatal warnings (degenerate oversized tokens). It never fails;
// an empty tree yields zero chunks.
func (p *Processor) Process(root *domain.Section, source string, documentIndex int) ([]domain.Chunk, []string) {
	if root == nil {
		return nil, nil
	}

	b := &builder{p: p}
	b.walk(root)

	merged := p.mergeSmall(b.raw)

	chunks := make([]domain.Chunk, 0, len(merged))
	for _, rc := range merged {
		content := rc.text
		chunks = append(chunks, domain.Chunk{
			ID:          uuid.New().String(),
			Content:     content,
			TokenCount:  p.estimate(content),
			ContentType: Classify(content),
			Importance:  Importance(content),
			Position: domain.Position{
				DocumentIndex:  documentIndex,
				SectionIndex:   rc.sectionIndex,
				ParagraphIndex: rc.paragraphIndex,
			},
			Metadata: domain.ChunkMetadata{
				Keywords:    Keywords(content, maxKeywords),
				Topics:      Topics(content),
				Complexity:  Complexity(content),
				Readability: Readability(content),
				Source:      source,
			},
		})
	}

	linkSiblings(chunks)

	return chunks, b.warnings
}

// linkSiblings adds bidirectional sibling edges between adjacent chunks.
func linkSiblings(chunks []domain.Chunk) {
	for i := range chunks {
		if i > 0 {
			chunks[i].Relationships = append(chunks[i].Relationships, domain.Relationship{
				Type:     domain.RelationSibling,
				TargetID: chunks[i-1].ID,
			})
		}
		if i < len(chunks)-1 {
			chunks[i].Relationships = append(chunks[i].Relationships, domain.Relationship{
				Type:     domain.RelationSibling,
				TargetID: chunks[i+1].ID,
			})
		}
	}
}

// builder accumulates raw chunks during the tree walk.
type builder struct {
	p            *Processor
	sectionIndex int
	raw          []rawChunk
	warnings     []string
}

// walk processes one section then recurses into its subsections.
func (b *builder) walk(section *domain.Section) {
	idx := b.sectionIndex
	b.sectionIndex++

	paragraphs := sectionParagraphs(section)
	if len(paragraphs) > 0 {
		b.splitSection(paragraphs, section.ContentType, idx)
	}

	for _, sub := range section.Subsections {
		b.walk(sub)
	}
}

// splitSection accumulates paragraphs into token-bounded chunks for one
// section.
func (b *builder) splitSection(paragraphs []string, sectionType domain.ContentType, sectionIndex int) {
	target := b.p.targetFor(sectionType)

	var buf []string
	bufTokens := 0
	bufStart := 0
	carryOnly := false // buffer holds nothing but carried overlap

	flush := func() string {
		if len(buf) == 0 || carryOnly {
			buf = buf[:0]
			bufTokens = 0
			return ""
		}
		text := strings.Join(buf, "\n\n")
		b.raw = append(b.raw, rawChunk{
			text:           text,
			sectionIndex:   sectionIndex,
			paragraphIndex: bufStart,
		})
		buf = buf[:0]
		bufTokens = 0
		return text
	}

	// carry seeds the next buffer with the trailing words of the chunk
	// just flushed.
	carry := func(flushed string, nextPara int) {
		if b.p.overlap <= 0 || flushed == "" {
			bufStart = nextPara
			return
		}
		words := strings.Fields(flushed)
		if len(words) > b.p.overlap {
			words = words[len(words)-b.p.overlap:]
		}
		overlap := strings.Join(words, " ")
		buf = append(buf, overlap)
		bufTokens = b.p.estimate(overlap)
		bufStart = nextPara
		carryOnly = true
	}

	for i, para := range paragraphs {
		ptoks := b.p.estimate(para)

		// A paragraph that alone exceeds the target degrades by
		// sentence, then word boundaries.
		if ptoks > target {
			flush()
			bufStart = i
			pieces := b.splitOversized(para, target)
			for _, piece := range pieces {
				b.raw = append(b.raw, rawChunk{
					text:           piece,
					sectionIndex:   sectionIndex,
					paragraphIndex: i,
				})
			}
			if len(pieces) > 0 {
				carry(pieces[len(pieces)-1], i+1)
			}
			continue
		}

		// +1 covers the paragraph separator; the running count must
		// never undercount the joined text.
		cost := ptoks
		if len(buf) > 0 {
			cost++
		}

		if bufTokens+cost > target && len(buf) > 0 {
			flushed := flush()
			carry(flushed, i)
			cost = ptoks
			if len(buf) > 0 {
				cost++
			}
		}

		// Overlap is best effort: the token bound wins. Drop a carried
		// seed that would push the chunk past the target.
		if carryOnly && bufTokens+cost > target {
			buf = buf[:0]
			bufTokens = 0
			cost = ptoks
		}

		if len(buf) == 0 && bufTokens == 0 {
			bufStart = i
		}
		buf = append(buf, para)
		bufTokens += cost
		carryOnly = false
	}

	flush()
}

// splitOversized degrades an oversized paragraph: first by sentence
// boundaries, then by word boundaries. A single word larger than the
// target is emitted as-is - the degenerate terminal case - with a
// warning.
func (b *builder) splitOversized(text string, target int) []string {
	var pieces []string

	var buf []string
	bufTokens := 0
	flush := func() {
		if len(buf) == 0 {
			return
		}
		pieces = append(pieces, strings.Join(buf, " "))
		buf = buf[:0]
		bufTokens = 0
	}

	// add appends a piece to the buffer, charging one extra token for
	// the join separator so the estimate never undercounts.
	add := func(piece string, toks, target int) {
		cost := toks
		if len(buf) > 0 {
			cost++
		}
		if bufTokens+cost > target && len(buf) > 0 {
			flush()
			cost = toks
		}
		buf = append(buf, piece)
		bufTokens += cost
	}

	for _, sentence := range splitSentences(text) {
		stoks := b.p.estimate(sentence)

		if stoks > target {
			flush()
			for _, word := range strings.Fields(sentence) {
				wtoks := b.p.estimate(word)
				if wtoks > target {
					flush()
					pieces = append(pieces, word)
					b.warnings = append(b.warnings,
						domain.ErrChunkingDegenerate.Error()+": "+truncateForLog(word))
					continue
				}
				add(word, wtoks, target)
			}
			flush()
			continue
		}

		add(sentence, stoks, target)
	}
	flush()

	return pieces
}

// mergeSmall folds chunks below minTokens into an adjacent chunk when
// the combination stays within maxTokens. The following chunk is
// preferred so that lone headings attach to the content they label.
func (p *Processor) mergeSmall(raw []rawChunk) []rawChunk {
	out := make([]rawChunk, len(raw))
	copy(out, raw)

	for i := 0; i < len(out); {
		toks := p.estimate(out[i].text)
		if toks >= p.minTokens {
			i++
			continue
		}

		if i+1 < len(out) && toks+p.estimate(out[i+1].text)+1 <= p.maxTokens {
			out[i+1] = rawChunk{
				text:           out[i].text + "\n\n" + out[i+1].text,
				sectionIndex:   out[i].sectionIndex,
				paragraphIndex: out[i].paragraphIndex,
			}
			out = append(out[:i], out[i+1:]...)
			continue
		}

		if i > 0 && p.estimate(out[i-1].text)+toks+1 <= p.maxTokens {
			out[i-1].text += "\n\n" + out[i].text
			out = append(out[:i], out[i+1:]...)
			continue
		}

		// No neighbour can absorb it; keep the undersized chunk.
		i++
	}

	return out
}

// targetFor returns the flush threshold for a section's content type,
// clamped to the configured maximum.
func (p *Processor) targetFor(t domain.ContentType) int {
	target, ok := targetSizes[t]
	if !ok {
		target = targetSizes[domain.ContentTypeParagraph]
	}
	if target > p.maxTokens {
		target = p.maxTokens
	}
	return target
}

// sectionParagraphs returns the section's paragraphs, with the heading
// re-materialised as the leading paragraph so heading text survives
// chunking.
func sectionParagraphs(section *domain.Section) []string {
	var paragraphs []string

	if section.Title != "" {
		level := section.Level
		if level < 1 {
			level = 1
		}
		if level > 6 {
			level = 6
		}
		paragraphs = append(paragraphs, strings.Repeat("#", level)+" "+section.Title)
	}

	for _, para := range strings.Split(section.Content, "\n\n") {
		para = strings.TrimSpace(para)
		if para != "" {
			paragraphs = append(paragraphs, para)
		}
	}

	return paragraphs
}

// splitSentences splits text into sentences by common terminators.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			s := strings.TrimSpace(current.String())
			if s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}

// truncateForLog shortens long tokens in warning messages.
func truncateForLog(s string) string {
	if len(s) > 40 {
		return s[:40] + "..."
	}
	return s
}
