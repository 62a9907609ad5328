package chunker

import (
	"sort"
	"strings"
	"unicode"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

// maxKeywords bounds the keyword list per chunk.
const maxKeywords = 8

// keyPhrases bump a chunk's importance when present.
var keyPhrases = []string{"important", "critical", "essential", "warning", "note:", "must"}

// topicKeywords maps topic labels to indicator terms.
var topicKeywords = map[string][]string{
	"installation":  {"install", "setup", "configure", "deploy"},
	"api":           {"api", "endpoint", "request", "response"},
	"data":          {"database", "table", "schema", "query"},
	"security":      {"security", "token", "password", "encrypt"},
	"performance":   {"performance", "latency", "cache", "throughput"},
	"documentation": {"example", "usage", "guide", "reference"},
}

// topicOrder fixes the iteration order so topic lists are deterministic.
var topicOrder = []string{"installation", "api", "data", "security", "performance", "documentation"}

// Classify tags chunk content by pattern-matching its leading characters.
func Classify(content string) domain.ContentType {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return domain.ContentTypeParagraph
	}

	switch {
	case strings.HasPrefix(trimmed, "```"):
		return domain.ContentTypeCode
	case strings.HasPrefix(trimmed, "#"):
		return domain.ContentTypeHeading
	case strings.HasPrefix(trimmed, ">"):
		return domain.ContentTypeQuote
	case strings.HasPrefix(trimmed, "|"):
		return domain.ContentTypeTable
	case strings.HasPrefix(trimmed, "$$") || strings.HasPrefix(trimmed, `\[`):
		return domain.ContentTypeFormula
	case isListStart(trimmed):
		return domain.ContentTypeList
	case isReferenceStart(trimmed):
		return domain.ContentTypeReference
	default:
		return domain.ContentTypeParagraph
	}
}

func isListStart(s string) bool {
	if strings.HasPrefix(s, "- ") || strings.HasPrefix(s, "* ") || strings.HasPrefix(s, "+ ") {
		return true
	}
	// Ordered list: "1. " / "12. "
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return i > 0 && i+1 < len(s) && s[i] == '.' && s[i+1] == ' '
}

func isReferenceStart(s string) bool {
	// Bibliography style: "[1] Author ..."
	if len(s) > 2 && s[0] == '[' {
		i := 1
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
		return i > 1 && i < len(s) && s[i] == ']'
	}
	return false
}

// Importance scores a chunk's relevance prior: base 0.6, +0.2 for
// headings, +0.2 capped for key-phrase presence, -0.2 for very short
// content, clamped to [0.2, 1.0].
func Importance(content string) float64 {
	score := 0.6

	if Classify(content) == domain.ContentTypeHeading {
		score += 0.2
	}

	lower := strings.ToLower(content)
	for _, phrase := range keyPhrases {
		if strings.Contains(lower, phrase) {
			score += 0.2
			break // capped at one bump
		}
	}

	if len(content) < 100 {
		score -= 0.2
	}

	return clamp(score, 0.2, 1.0)
}

// Keywords extracts the top-n terms by frequency, considering only
// words longer than 3 characters. Ties break alphabetically so the
// result is deterministic.
func Keywords(content string, n int) []string {
	freq := make(map[string]int)
	for _, word := range tokenise(content) {
		if len(word) > 3 {
			freq[word]++
		}
	}
	if len(freq) == 0 {
		return nil
	}

	terms := make([]string, 0, len(freq))
	for term := range freq {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if freq[terms[i]] != freq[terms[j]] {
			return freq[terms[i]] > freq[terms[j]]
		}
		return terms[i] < terms[j]
	})

	if len(terms) > n {
		terms = terms[:n]
	}
	return terms
}

// Topics matches chunk text against the domain topic table.
func Topics(content string) []string {
	words := make(map[string]bool)
	for _, w := range tokenise(content) {
		words[w] = true
	}

	var topics []string
	for _, topic := range topicOrder {
		for _, indicator := range topicKeywords[topic] {
			if words[indicator] {
				topics = append(topics, topic)
				break
			}
		}
	}
	return topics
}

// Readability approximates Flesch reading ease from sentence, word and
// syllable counts, clamped to [0, 100].
func Readability(content string) float64 {
	sentences := splitSentences(content)
	words := strings.Fields(content)
	if len(sentences) == 0 || len(words) == 0 {
		return 0
	}

	syllables := 0
	for _, w := range words {
		syllables += countSyllables(w)
	}

	wordsPerSentence := float64(len(words)) / float64(len(sentences))
	syllablesPerWord := float64(syllables) / float64(len(words))

	score := 206.835 - 1.015*wordsPerSentence - 84.6*syllablesPerWord
	return clamp(score, 0, 100)
}

// Complexity estimates structural complexity in [0,1] from average
// word length and clause density.
func Complexity(content string) float64 {
	words := strings.Fields(content)
	if len(words) == 0 {
		return 0
	}

	totalLen := 0
	for _, w := range words {
		totalLen += len(w)
	}
	avgWordLen := float64(totalLen) / float64(len(words))

	sentences := splitSentences(content)
	clauses := float64(strings.Count(content, ",") + strings.Count(content, ";"))
	clauseDensity := clauses / float64(max(len(sentences), 1))

	score := (avgWordLen-3)/7 + clauseDensity*0.1
	return clamp(score, 0, 1)
}

// countSyllables approximates English syllables as vowel groups.
func countSyllables(word string) int {
	count := 0
	prevVowel := false
	for _, r := range strings.ToLower(word) {
		vowel := strings.ContainsRune("aeiouy", r)
		if vowel && !prevVowel {
			count++
		}
		prevVowel = vowel
	}
	if count == 0 {
		count = 1
	}
	return count
}

// tokenise lowercases text and splits it into alphanumeric words.
func tokenise(content string) []string {
	return strings.FieldsFunc(strings.ToLower(content), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
