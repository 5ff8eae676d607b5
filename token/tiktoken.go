package token

import (
	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the BPE encoding used when none is specified.
const DefaultEncoding = "cl100k_base"

// Tiktoken is a model-accurate Tokenizer backed by tiktoken BPE encodings.
// It satisfies the same contract as Heuristic, so callers can swap it in
// without changes. Loading an encoding may fetch vocabulary data, so
// construction can fail; counting never does.
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

var _ Tokenizer = (*Tiktoken)(nil)

// NewTiktoken creates a tokenizer for the named encoding.
// An empty name selects DefaultEncoding.
func NewTiktoken(encoding string) (*Tiktoken, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, err
	}
	return &Tiktoken{enc: enc}, nil
}

// NewTiktokenForModel creates a tokenizer matching the named model's encoding.
func NewTiktokenForModel(model string) (*Tiktoken, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, err
	}
	return &Tiktoken{enc: enc}, nil
}

// Count returns the exact BPE token count of text.
func (t *Tiktoken) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// Split divides text into sentence-aligned segments of at most maxTokens.
func (t *Tiktoken) Split(text string, maxTokens int) []string {
	return splitByBudget(text, maxTokens, t.Count)
}

// Truncate shortens text to at most maxTokens, marking the cut.
func (t *Tiktoken) Truncate(text string, maxTokens int) string {
	return truncateByBudget(text, maxTokens, t.Count)
}
