package services

import (
	"strings"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

// Quality score weights. Overall is the weighted sum of the five
// sub-scores.
const (
	weightTextQuality           = 0.20
	weightSemanticCoherence     = 0.25
	weightInformationDensity    = 0.25
	weightUniqueness            = 0.15
	weightRetrievalOptimization = 0.15
)

// Token-range constants for text quality and retrieval optimisation.
const (
	usefulMinTokens  = 64
	usefulMaxTokens  = 512
	idealChunkTokens = 256
)

// coherenceByType reflects how well each content type tends to embed.
var coherenceByType = map[domain.ContentType]float64{
	domain.ContentTypeParagraph: 0.9,
	domain.ContentTypeHeading:   0.7,
	domain.ContentTypeList:      0.8,
	domain.ContentTypeQuote:     0.8,
	domain.ContentTypeCode:      0.7,
	domain.ContentTypeTable:     0.6,
	domain.ContentTypeFormula:   0.6,
	domain.ContentTypeReference: 0.5,
}

// ScoreQuality computes the deterministic quality assessment for a
// chunk. All inputs come from the chunk itself - token count, content
// type, word uniqueness, character variety - so identical chunks always
// score identically.
func ScoreQuality(chunk *domain.Chunk) domain.Quality {
	q := domain.Quality{
		TextQuality:           textQuality(chunk.TokenCount),
		SemanticCoherence:     semanticCoherence(chunk),
		InformationDensity:    informationDensity(chunk.Content),
		Uniqueness:            characterVariety(chunk.Content),
		RetrievalOptimization: retrievalOptimization(chunk.TokenCount),
	}
	q.Overall = weightTextQuality*q.TextQuality +
		weightSemanticCoherence*q.SemanticCoherence +
		weightInformationDensity*q.InformationDensity +
		weightUniqueness*q.Uniqueness +
		weightRetrievalOptimization*q.RetrievalOptimization
	return q
}

// textQuality scores token count against the useful range.
func textQuality(tokens int) float64 {
	switch {
	case tokens <= 0:
		return 0
	case tokens < usefulMinTokens:
		return float64(tokens) / usefulMinTokens
	case tokens <= usefulMaxTokens:
		return 1
	default:
		return clampScore(1 - float64(tokens-usefulMaxTokens)/1536)
	}
}

// semanticCoherence scores content type with a bonus for multi-sentence
// chunks.
func semanticCoherence(chunk *domain.Chunk) float64 {
	base, ok := coherenceByType[chunk.ContentType]
	if !ok {
		base = 0.7
	}
	if strings.Count(chunk.Content, ". ") >= 1 {
		base += 0.1
	}
	return clampScore(base)
}

// informationDensity is the unique-word ratio.
func informationDensity(content string) float64 {
	words := strings.Fields(strings.ToLower(content))
	if len(words) == 0 {
		return 0
	}
	unique := make(map[string]bool, len(words))
	for _, w := range words {
		unique[w] = true
	}
	return float64(len(unique)) / float64(len(words))
}

// characterVariety scores the spread of distinct runes in the text.
func characterVariety(content string) float64 {
	distinct := make(map[rune]bool)
	for _, r := range strings.ToLower(content) {
		distinct[r] = true
	}
	return clampScore(float64(len(distinct)) / 36)
}

// retrievalOptimization scores proximity to the ideal chunk size.
func retrievalOptimization(tokens int) float64 {
	diff := tokens - idealChunkTokens
	if diff < 0 {
		diff = -diff
	}
	return clampScore(1 - float64(diff)/768)
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
