package chunker

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/weave/ai/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventStrategyDetectsMarkers(t *testing.T) {
	s := NewEventStrategy()
	cfg := DefaultConfig("doc-event")

	sentences := []string{
		"The deployment session started at nine.",
		"We pushed the first build to staging.",
		"Task completed without errors.",
		"Everyone moved on to review.",
	}

	boundaries, warnings, err := s.DetectBoundaries(context.Background(), sentences, cfg)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, boundaries, 1)
	assert.Equal(t, 2, boundaries[0].Sentence)
	assert.Contains(t, boundaries[0].Note, "task completed")
}

func TestEventStrategyCustomMarkers(t *testing.T) {
	s := NewEventStrategy()
	cfg := DefaultConfig("doc-event")
	cfg.EventBoundaries = []string{"handoff to"}

	sentences := []string{
		"Morning shift wrapped up the incident.",
		"Handoff to the evening crew happened at six.",
		"Task completed is not a marker anymore.",
	}

	boundaries, _, err := s.DetectBoundaries(context.Background(), sentences, cfg)
	require.NoError(t, err)
	require.Len(t, boundaries, 1)
	assert.Equal(t, 1, boundaries[0].Sentence)
}

func TestEventStrategyMinPhaseDuration(t *testing.T) {
	s := NewEventStrategy()
	cfg := DefaultConfig("doc-event")
	cfg.MinPhaseDuration = 3

	sentences := []string{
		"Session started early.",
		"Task completed in a blink.",
		"Nothing else happened.",
		"Task completed again, much later.",
	}

	boundaries, _, err := s.DetectBoundaries(context.Background(), sentences, cfg)
	require.NoError(t, err)
	// Sentence 1 is too close to the start; only sentence 3 qualifies.
	require.Len(t, boundaries, 1)
	assert.Equal(t, 3, boundaries[0].Sentence)
}

func TestPreferenceStrategyDetectsDecisions(t *testing.T) {
	s := NewPreferenceStrategy()
	cfg := DefaultConfig("doc-pref")

	sentences := []string{
		"The team compared three storage engines.",
		"We chose Postgres instead of MySQL for the ledger.",
		"Benchmarks backed that up.",
		"Later we ruled out sharding entirely.",
	}

	boundaries, _, err := s.DetectBoundaries(context.Background(), sentences, cfg)
	require.NoError(t, err)
	require.Len(t, boundaries, 2)
	assert.Equal(t, 1, boundaries[0].Sentence)
	assert.Contains(t, boundaries[0].Note, "decision: chose")
	assert.Equal(t, 3, boundaries[1].Sentence)
}

func TestPreferenceStrategyAnnotatesAlternatives(t *testing.T) {
	s := NewPreferenceStrategy()
	cfg := DefaultConfig("doc-pref")
	cfg.IncludeAlternatives = true

	sentences := []string{
		"Storage came up again.",
		"We chose Postgres instead of MySQL.",
	}

	boundaries, _, err := s.DetectBoundaries(context.Background(), sentences, cfg)
	require.NoError(t, err)
	require.Len(t, boundaries, 1)
	assert.Contains(t, boundaries[0].Note, "alternative noted")
}

func TestStepStrategyDetectsSteps(t *testing.T) {
	s := NewStepStrategy()
	cfg := DefaultConfig("doc-step")

	sentences := []string{
		"This guide walks through the upgrade.",
		"Step 1 back up the database.",
		"Step 2 stop the old service.",
		"a) drain the connection pool first.",
		"Step 3 (optional) prune stale snapshots.",
	}

	boundaries, _, err := s.DetectBoundaries(context.Background(), sentences, cfg)
	require.NoError(t, err)
	require.Len(t, boundaries, 4)

	assert.False(t, boundaries[0].Sub)
	assert.False(t, boundaries[1].Sub)
	assert.True(t, boundaries[2].Sub, "lettered item is a substep")
	assert.Equal(t, "optional step", boundaries[3].Note)
}

func TestStepStrategyCustomDelimiters(t *testing.T) {
	s := NewStepStrategy()
	cfg := DefaultConfig("doc-step")
	cfg.StepDelimiters = []string{"stage:"}

	sentences := []string{
		"Overview of the rollout.",
		"Stage: build the artifacts.",
		"Step 1 is ignored with custom delimiters.",
		"Stage: ship to production.",
	}

	boundaries, _, err := s.DetectBoundaries(context.Background(), sentences, cfg)
	require.NoError(t, err)
	require.Len(t, boundaries, 2)
	assert.Equal(t, 1, boundaries[0].Sentence)
	assert.Equal(t, 3, boundaries[1].Sentence)
}

func TestStepStrategyAnnotations(t *testing.T) {
	s := NewStepStrategy()
	cfg := DefaultConfig("doc-step")
	cfg.IncludePrerequisites = true
	cfg.IncludeOutcomes = true

	sentences := []string{
		"Upgrade guide.",
		"Before you begin, install the CLI.",
		"Step 1 run the migration.",
		"Verify that the new schema is active.",
	}

	boundaries, _, err := s.DetectBoundaries(context.Background(), sentences, cfg)
	require.NoError(t, err)
	require.Len(t, boundaries, 3)
	assert.Equal(t, "prerequisite", boundaries[0].Note)
	assert.Equal(t, "outcome", boundaries[2].Note)
}

func TestSemanticStrategyRequiresEmbedder(t *testing.T) {
	_, err := NewSemanticStrategy(nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}

func TestSemanticStrategyDetectsTopicShift(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	// Two topics: the first three windows share a vector, the rest another.
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		vectors := make([][]float32, len(texts))
		for i := range texts {
			if i < 3 {
				vectors[i] = []float32{1, 0}
			} else {
				vectors[i] = []float32{0, 1}
			}
		}
		return vectors, nil
	}

	s, err := NewSemanticStrategy(embedder)
	require.NoError(t, err)

	cfg := DefaultConfig("doc-sem")
	cfg.SlidingWindowSize = 1

	sentences := []string{
		"Databases store rows.",
		"Indexes speed up lookups.",
		"Vacuuming reclaims space.",
		"Sourdough needs a starter.",
		"Proofing takes hours.",
	}

	boundaries, _, err := s.DetectBoundaries(context.Background(), sentences, cfg)
	require.NoError(t, err)
	require.Len(t, boundaries, 1)
	assert.Equal(t, 3, boundaries[0].Sentence)
}

func TestSemanticStrategyNoBoundariesWarns(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		vectors := make([][]float32, len(texts))
		for i := range texts {
			vectors[i] = []float32{1, 0}
		}
		return vectors, nil
	}

	s, err := NewSemanticStrategy(embedder)
	require.NoError(t, err)

	cfg := DefaultConfig("doc-sem")
	cfg.SlidingWindowSize = 1

	sentences := []string{"One topic.", "Same topic.", "Still the same."}
	boundaries, warnings, err := s.DetectBoundaries(context.Background(), sentences, cfg)
	require.NoError(t, err)
	assert.Empty(t, boundaries)
	assert.NotEmpty(t, warnings)
}

func TestSemanticStrategyPropagatesEmbedderError(t *testing.T) {
	sentinel := errors.New("provider down")
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, sentinel
	}

	s, err := NewSemanticStrategy(embedder)
	require.NoError(t, err)

	cfg := DefaultConfig("doc-sem")
	cfg.SlidingWindowSize = 1

	_, _, err = s.DetectBoundaries(context.Background(), []string{"a.", "b."}, cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
}

func TestFixedStrategyPerplexityFallback(t *testing.T) {
	s := NewFixedStrategy()
	cfg := DefaultConfig("doc-ppl")
	cfg.PplThreshold = 1.0
	cfg.SlidingWindowSize = 2

	// Repetitive prose, then a burst of rare vocabulary.
	sentences := []string{
		"the cat sat on the mat.",
		"the cat sat on the mat.",
		"the cat sat on the mat.",
		"quantum chromodynamics perturbation lattice renormalization.",
	}

	boundaries, _, err := s.DetectBoundaries(context.Background(), sentences, cfg)
	require.NoError(t, err)
	require.NotEmpty(t, boundaries)
	assert.Equal(t, 3, boundaries[0].Sentence)
}

func TestFixedStrategyNoThresholdNoBoundaries(t *testing.T) {
	s := NewFixedStrategy()
	cfg := DefaultConfig("doc-ppl")

	boundaries, warnings, err := s.DetectBoundaries(context.Background(),
		[]string{"a.", "b.", "c."}, cfg)
	require.NoError(t, err)
	assert.Empty(t, boundaries)
	assert.Empty(t, warnings)
}
