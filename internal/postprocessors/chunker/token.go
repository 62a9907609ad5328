package chunker

// TokenEstimator approximates the token count of a text. The default
// is a cheap length-based heuristic; callers with an exact tokenizer
// can plug it in via WithTokenEstimator.
type TokenEstimator func(text string) int

// EstimateTokens approximates tokens at ~4 characters per token.
// Exact tokenization is not required for chunk sizing.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	tokens := (len(text) + 3) / 4
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}
