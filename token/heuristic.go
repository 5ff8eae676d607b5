package token

import "unicode/utf8"

// DefaultCharsPerToken is the character-to-token ratio used by the heuristic
// estimator. Four characters per token tracks common BPE vocabularies closely
// enough for budget enforcement.
const DefaultCharsPerToken = 4

// Heuristic estimates token counts from character counts using a fixed ratio.
// It needs no model data and is fully deterministic, which makes it the
// default tokenizer for chunking. Swap in Tiktoken for model-accurate counts.
type Heuristic struct {
	charsPerToken int
}

var _ Tokenizer = (*Heuristic)(nil)

// HeuristicOption configures a Heuristic.
type HeuristicOption func(*Heuristic)

// WithCharsPerToken overrides the characters-per-token ratio.
// Values below 1 are ignored.
func WithCharsPerToken(ratio int) HeuristicOption {
	return func(h *Heuristic) {
		if ratio >= 1 {
			h.charsPerToken = ratio
		}
	}
}

// NewHeuristic creates a heuristic tokenizer with the default ratio.
func NewHeuristic(opts ...HeuristicOption) *Heuristic {
	h := &Heuristic{charsPerToken: DefaultCharsPerToken}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Count estimates the token count as ceil(runes / charsPerToken).
func (h *Heuristic) Count(text string) int {
	runes := utf8.RuneCountInString(text)
	if runes == 0 {
		return 0
	}
	return (runes + h.charsPerToken - 1) / h.charsPerToken
}

// Split divides text into sentence-aligned segments of at most maxTokens.
func (h *Heuristic) Split(text string, maxTokens int) []string {
	return splitByBudget(text, maxTokens, h.Count)
}

// Truncate shortens text to at most maxTokens, marking the cut.
func (h *Heuristic) Truncate(text string, maxTokens int) string {
	return truncateByBudget(text, maxTokens, h.Count)
}
