package chunker

import (
	"context"
	"math"
	"strings"

	"github.com/poiesic/weave/core"
)

// FixedStrategy chunks purely by size, with an optional perplexity-proxy
// fallback: when pplThreshold is set, sentences whose windowed surprisal
// spikes above the threshold start a new region. It is the default strategy
// for content types no other strategy claims.
type FixedStrategy struct{}

var _ Strategy = (*FixedStrategy)(nil)

// NewFixedStrategy creates the fixed/document strategy.
func NewFixedStrategy() *FixedStrategy {
	return &FixedStrategy{}
}

func (s *FixedStrategy) Name() string { return "fixed" }

func (s *FixedStrategy) Boundary() core.BoundaryType { return core.BoundaryFixed }

// DetectBoundaries returns no boundaries in pure size mode, leaving the
// budget split to the assembler. With pplThreshold > 0 it emits boundaries
// where lexical surprisal, averaged over a sliding window of sentences,
// exceeds the threshold.
func (s *FixedStrategy) DetectBoundaries(ctx context.Context, sentences []string, cfg *Config) ([]Boundary, []string, error) {
	if cfg.PplThreshold <= 0 {
		return nil, nil, nil
	}

	surprisals := sentenceSurprisals(sentences)
	window := cfg.SlidingWindowSize

	var boundaries []Boundary
	for i := 1; i < len(sentences); i++ {
		lo := i - window
		if lo < 0 {
			lo = 0
		}
		var sum float64
		for j := lo; j < i; j++ {
			sum += surprisals[j]
		}
		baseline := sum / float64(i-lo)

		if surprisals[i]-baseline > cfg.PplThreshold {
			boundaries = append(boundaries, Boundary{Sentence: i})
		}
	}
	return boundaries, nil, nil
}

// sentenceSurprisals estimates per-sentence surprisal from document-local
// unigram frequencies: rare vocabulary reads as high surprisal. A proxy for
// model perplexity that needs no model.
func sentenceSurprisals(sentences []string) []float64 {
	freq := make(map[string]int)
	total := 0
	for _, sentence := range sentences {
		for _, w := range strings.Fields(strings.ToLower(sentence)) {
			w = strings.Trim(w, ".,!?;:'\"-()[]{}")
			if w == "" {
				continue
			}
			freq[w]++
			total++
		}
	}

	out := make([]float64, len(sentences))
	if total == 0 {
		return out
	}
	for i, sentence := range sentences {
		words := strings.Fields(strings.ToLower(sentence))
		if len(words) == 0 {
			continue
		}
		var sum float64
		n := 0
		for _, w := range words {
			w = strings.Trim(w, ".,!?;:'\"-()[]{}")
			if w == "" {
				continue
			}
			p := float64(freq[w]) / float64(total)
			sum += -math.Log2(p)
			n++
		}
		if n > 0 {
			out[i] = sum / float64(n)
		}
	}
	return out
}
