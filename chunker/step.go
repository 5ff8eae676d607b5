package chunker

import (
	"context"
	"regexp"
	"strings"

	"github.com/poiesic/weave/core"
)

// Default step delimiters: "Step 3", "3.", "3)".
var defaultStepPattern = regexp.MustCompile(`(?i)^(step\s+\d+|\d+[.)])\s*`)

// Substeps: "3.1", "3.1." and lettered items "a.", "b)".
var substepPattern = regexp.MustCompile(`(?i)^(\d+\.\d+[.)]?|[a-z][.)])\s+`)

var optionalPattern = regexp.MustCompile(`(?i)\(optional\)|\boptionally\b`)

var prerequisitePattern = regexp.MustCompile(`(?i)\b(prerequisite|requires|before you begin|you will need)\b`)

var outcomePattern = regexp.MustCompile(`(?i)\b(outcome|result|expected|you should now|verify that)\b`)

// StepStrategy places boundaries at declared step delimiters in procedural
// text. Substeps become child regions of the preceding step; optional steps
// are annotated. Prerequisite and outcome sentences can be annotated when
// the config asks for them.
type StepStrategy struct{}

var _ Strategy = (*StepStrategy)(nil)

// NewStepStrategy creates the step-based strategy.
func NewStepStrategy() *StepStrategy {
	return &StepStrategy{}
}

func (s *StepStrategy) Name() string { return "step" }

func (s *StepStrategy) Boundary() core.BoundaryType { return core.BoundaryStep }

func (s *StepStrategy) DetectBoundaries(ctx context.Context, sentences []string, cfg *Config) ([]Boundary, []string, error) {
	matchesStep := func(sentence string) bool {
		if len(cfg.StepDelimiters) > 0 {
			lower := strings.ToLower(sentence)
			for _, d := range cfg.StepDelimiters {
				if strings.HasPrefix(lower, strings.ToLower(d)) {
					return true
				}
			}
			return false
		}
		return defaultStepPattern.MatchString(sentence)
	}

	var boundaries []Boundary
	for i, sentence := range sentences {
		if i == 0 {
			continue
		}

		sub := len(cfg.StepDelimiters) == 0 && substepPattern.MatchString(sentence)
		if !sub && !matchesStep(sentence) {
			if note := annotate(sentence, cfg); note != "" {
				boundaries = append(boundaries, Boundary{Sentence: i, Note: note})
			}
			continue
		}

		b := Boundary{Sentence: i, Sub: sub}
		if optionalPattern.MatchString(sentence) {
			b.Note = "optional step"
		}
		boundaries = append(boundaries, b)
	}
	return boundaries, nil, nil
}

// annotate marks prerequisite and outcome sentences as their own regions
// when the config opts in, so they stay retrievable next to their steps.
func annotate(sentence string, cfg *Config) string {
	if cfg.IncludePrerequisites && prerequisitePattern.MatchString(sentence) {
		return "prerequisite"
	}
	if cfg.IncludeOutcomes && outcomePattern.MatchString(sentence) {
		return "outcome"
	}
	return ""
}
