package token

import (
	"regexp"
	"strings"
)

// TruncationMarker is appended to text that Truncate had to shorten.
const TruncationMarker = " [truncated]"

// Tokenizer estimates token counts and splits text under a token budget.
// Implementations must be deterministic: the same input always yields the
// same counts and segments. Callers rely on this for idempotent re-chunking.
type Tokenizer interface {
	// Count returns the estimated token count of text. Always >= 0.
	Count(text string) int

	// Split divides text into ordered segments, each estimated at most
	// maxTokens. Sentences are never cut: a single sentence exceeding the
	// budget becomes its own oversized segment.
	Split(text string, maxTokens int) []string

	// Truncate shortens text to at most maxTokens estimated tokens,
	// appending TruncationMarker when anything was removed.
	Truncate(text string, maxTokens int) string
}

var sentencePattern = regexp.MustCompile(`(?m)(?U)([^.!?\n]+[.!?\n]+|[^.!?\n]+$)`)

// SplitSentences splits text into trimmed sentences, keeping terminal
// punctuation. Newlines count as sentence boundaries.
func SplitSentences(text string) []string {
	matches := sentencePattern.FindAllString(text, -1)
	sentences := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.TrimSpace(m)
		if m != "" {
			sentences = append(sentences, m)
		}
	}
	return sentences
}

// splitByBudget packs whole sentences into segments of at most maxTokens
// as measured by count. Oversized single sentences pass through untouched.
func splitByBudget(text string, maxTokens int, count func(string) int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var segments []string
	var current strings.Builder
	for _, sentence := range sentences {
		if current.Len() == 0 {
			current.WriteString(sentence)
			continue
		}

		candidate := current.String() + " " + sentence
		if count(candidate) <= maxTokens {
			current.Reset()
			current.WriteString(candidate)
			continue
		}

		segments = append(segments, current.String())
		current.Reset()
		current.WriteString(sentence)
	}
	if current.Len() > 0 {
		segments = append(segments, current.String())
	}

	return segments
}

// truncateByBudget trims text at word boundaries until the result, with the
// truncation marker appended, fits within maxTokens.
func truncateByBudget(text string, maxTokens int, count func(string) int) string {
	if count(text) <= maxTokens {
		return text
	}

	words := strings.Fields(text)
	for len(words) > 0 {
		candidate := strings.Join(words, " ") + TruncationMarker
		if count(candidate) <= maxTokens {
			return candidate
		}
		words = words[:len(words)-1]
	}

	// Budget too small even for the marker alone.
	return ""
}
