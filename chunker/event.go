package chunker

import (
	"context"
	"strings"

	"github.com/poiesic/weave/core"
)

// DefaultEventBoundaries are the markers the event strategy looks for when
// the config does not supply its own.
var DefaultEventBoundaries = []string{
	"task started",
	"task completed",
	"task failed",
	"phase transition",
	"starting phase",
	"entering phase",
	"session started",
	"session ended",
}

// EventStrategy places boundaries at detected task and phase transitions in
// transcript-like text. Sensitivity controls how fuzzy the marker match may
// be; minPhaseDuration drops boundaries that would create phases shorter
// than that many sentences.
type EventStrategy struct{}

var _ Strategy = (*EventStrategy)(nil)

// NewEventStrategy creates the event-based strategy.
func NewEventStrategy() *EventStrategy {
	return &EventStrategy{}
}

func (s *EventStrategy) Name() string { return "event" }

func (s *EventStrategy) Boundary() core.BoundaryType { return core.BoundaryEvent }

func (s *EventStrategy) DetectBoundaries(ctx context.Context, sentences []string, cfg *Config) ([]Boundary, []string, error) {
	markers := cfg.EventBoundaries
	if len(markers) == 0 {
		markers = DefaultEventBoundaries
	}

	// A match must score at least 1-sensitivity: at sensitivity 1 any marker
	// word triggers, at 0 only a verbatim marker does.
	threshold := 1 - cfg.PhaseDetectionSensitivity

	var boundaries []Boundary
	lastBoundary := 0
	for i, sentence := range sentences {
		if i == 0 {
			continue
		}
		marker, score := bestMarkerMatch(sentence, markers)
		if score < threshold || score == 0 {
			continue
		}
		if cfg.MinPhaseDuration > 0 && i-lastBoundary < cfg.MinPhaseDuration {
			continue
		}
		boundaries = append(boundaries, Boundary{Sentence: i, Note: "event: " + marker})
		lastBoundary = i
	}
	return boundaries, nil, nil
}

// bestMarkerMatch scores a sentence against each marker as the fraction of
// marker words present, with verbatim containment scoring 1.
func bestMarkerMatch(sentence string, markers []string) (string, float64) {
	lower := strings.ToLower(sentence)
	sentenceWords := make(map[string]bool)
	for _, w := range strings.Fields(lower) {
		sentenceWords[strings.Trim(w, ".,!?;:'\"-()[]{}")] = true
	}

	var best string
	var bestScore float64
	for _, marker := range markers {
		m := strings.ToLower(marker)
		if strings.Contains(lower, m) {
			return marker, 1
		}
		words := strings.Fields(m)
		if len(words) == 0 {
			continue
		}
		hits := 0
		for _, w := range words {
			if sentenceWords[w] {
				hits++
			}
		}
		score := float64(hits) / float64(len(words))
		if score > bestScore {
			bestScore = score
			best = marker
		}
	}
	return best, bestScore
}
