package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

func TestScoreQuality_Deterministic(t *testing.T) {
	chunk := &domain.Chunk{
		Content:     "The cache layer stores frequently accessed records. It evicts entries by age.",
		TokenCount:  120,
		ContentType: domain.ContentTypeParagraph,
	}

	first := ScoreQuality(chunk)
	second := ScoreQuality(chunk)
	assert.Equal(t, first, second)
}

func TestScoreQuality_OverallIsWeightedSum(t *testing.T) {
	chunk := &domain.Chunk{
		Content:     "Authentication requires a valid token. Tokens expire after one hour.",
		TokenCount:  200,
		ContentType: domain.ContentTypeParagraph,
	}

	q := ScoreQuality(chunk)
	expected := 0.20*q.TextQuality +
		0.25*q.SemanticCoherence +
		0.25*q.InformationDensity +
		0.15*q.Uniqueness +
		0.15*q.RetrievalOptimization
	assert.InDelta(t, expected, q.Overall, 1e-12)
	assert.GreaterOrEqual(t, q.Overall, 0.0)
	assert.LessOrEqual(t, q.Overall, 1.0)
}

func TestTextQuality(t *testing.T) {
	assert.Equal(t, 0.0, textQuality(0))
	assert.InDelta(t, 0.5, textQuality(32), 1e-9)
	assert.Equal(t, 1.0, textQuality(64))
	assert.Equal(t, 1.0, textQuality(512))
	assert.Less(t, textQuality(1024), 1.0)
	assert.Equal(t, 0.0, textQuality(3000))
}

func TestSemanticCoherence_SentenceBonus(t *testing.T) {
	single := &domain.Chunk{
		Content:     "no sentence boundary here",
		ContentType: domain.ContentTypeParagraph,
	}
	multi := &domain.Chunk{
		Content:     "First sentence. Second sentence follows.",
		ContentType: domain.ContentTypeParagraph,
	}

	assert.InDelta(t, 0.9, semanticCoherence(single), 1e-9)
	assert.InDelta(t, 1.0, semanticCoherence(multi), 1e-9)
}

func TestSemanticCoherence_UnknownTypeUsesDefault(t *testing.T) {
	chunk := &domain.Chunk{
		Content:     "some text",
		ContentType: domain.ContentType("mystery"),
	}
	assert.InDelta(t, 0.7, semanticCoherence(chunk), 1e-9)
}

func TestInformationDensity(t *testing.T) {
	assert.Equal(t, 0.0, informationDensity(""))
	assert.InDelta(t, 1.0, informationDensity("each word appears once"), 1e-9)
	assert.InDelta(t, 0.25, informationDensity("same same same same"), 1e-9)
}

func TestCharacterVariety(t *testing.T) {
	assert.Equal(t, 0.0, characterVariety(""))
	assert.InDelta(t, 1.0/36, characterVariety("aaaa"), 1e-9)

	rich := "abcdefghijklmnopqrstuvwxyz 0123456789"
	assert.Equal(t, 1.0, characterVariety(rich))
}

func TestRetrievalOptimization(t *testing.T) {
	assert.Equal(t, 1.0, retrievalOptimization(256))
	assert.InDelta(t, 1-128.0/768, retrievalOptimization(384), 1e-9)
	assert.InDelta(t, 1-128.0/768, retrievalOptimization(128), 1e-9)
	assert.Equal(t, 0.0, retrievalOptimization(1024+256))
}

func TestScoreQuality_RepetitiveContentScoresLow(t *testing.T) {
	repetitive := &domain.Chunk{
		Content:     strings.Repeat("spam ", 50),
		TokenCount:  63,
		ContentType: domain.ContentTypeParagraph,
	}
	informative := &domain.Chunk{
		Content: "The scheduler assigns each job to the least loaded worker. " +
			"Workers report load every second. Jobs exceeding the deadline are requeued once.",
		TokenCount:  256,
		ContentType: domain.ContentTypeParagraph,
	}

	low := ScoreQuality(repetitive)
	high := ScoreQuality(informative)
	assert.Greater(t, high.Overall, low.Overall)
}
