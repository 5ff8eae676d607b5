package chunker

import (
	"context"
	"strings"

	"github.com/poiesic/weave/core"
)

// DefaultDecisionKeywords trigger preference boundaries when the config does
// not supply its own.
var DefaultDecisionKeywords = []string{
	"decided",
	"decision",
	"chose",
	"choose",
	"prefer",
	"preferred",
	"opted",
	"went with",
	"settled on",
	"ruled out",
	"rejected",
}

// alternativeMarkers flag sentences that name the road not taken.
var alternativeMarkers = []string{
	"instead of",
	"rather than",
	"alternatively",
	"as opposed to",
	"the alternative",
	"other option",
}

// PreferenceStrategy places boundaries around decision statements so each
// preference lands in its own chunk. With includeAlternatives set, sentences
// naming rejected alternatives are copied into the chunk's trailing context.
type PreferenceStrategy struct{}

var _ Strategy = (*PreferenceStrategy)(nil)

// NewPreferenceStrategy creates the preference-signal strategy.
func NewPreferenceStrategy() *PreferenceStrategy {
	return &PreferenceStrategy{}
}

func (s *PreferenceStrategy) Name() string { return "preference" }

func (s *PreferenceStrategy) Boundary() core.BoundaryType { return core.BoundaryDecision }

func (s *PreferenceStrategy) DetectBoundaries(ctx context.Context, sentences []string, cfg *Config) ([]Boundary, []string, error) {
	keywords := cfg.DecisionKeywords
	if len(keywords) == 0 {
		keywords = DefaultDecisionKeywords
	}

	var boundaries []Boundary
	for i, sentence := range sentences {
		if i == 0 {
			continue
		}
		keyword := matchKeyword(sentence, keywords)
		if keyword == "" {
			continue
		}
		b := Boundary{Sentence: i, Note: "decision: " + keyword}
		if cfg.IncludeAlternatives {
			if alt := matchKeyword(sentence, alternativeMarkers); alt != "" {
				b.Note = b.Note + "; alternative noted"
			}
		}
		boundaries = append(boundaries, b)
	}
	return boundaries, nil, nil
}

// matchKeyword returns the first keyword contained in the sentence, or "".
func matchKeyword(sentence string, keywords []string) string {
	lower := strings.ToLower(sentence)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return kw
		}
	}
	return ""
}
