package chunker

import (
	"fmt"
	"strings"

	"github.com/poiesic/weave/core"
)

// Defaults applied by Config.normalize for unset fields.
const (
	DefaultMaxTokens           = 512
	DefaultMinChunkSize        = 10
	DefaultContextWindowSize   = 2
	DefaultSimilarityThreshold = 0.70
	DefaultPhaseSensitivity    = 0.5
	DefaultSlidingWindowSize   = 3
)

// Config holds the recognized chunking options.
//
// The zero value of an optional field means "use the default"; validation
// never silently repairs an explicitly invalid value.
type Config struct {
	DocID      string
	SourcePath string

	ContentType core.ContentType // selects the strategy; zero means document

	MaxTokens    int // hard ceiling per chunk, overlap included
	Overlap      int // tokens repeated between adjacent chunks
	MinChunkSize int // chunks below this are merged into a neighbor

	IncludeContext    bool
	ContextWindowSize int
	TemporalLinks     bool

	// event strategy
	EventBoundaries           []string
	PhaseDetectionSensitivity float64
	MinPhaseDuration          int

	// semantic strategy
	EmbeddingModel      string
	SimilarityThreshold float64

	// preference strategy
	DecisionKeywords    []string
	IncludeAlternatives bool

	// step strategy
	StepDelimiters       []string
	IncludePrerequisites bool
	IncludeOutcomes      bool

	// fixed strategy perplexity fallback
	PplThreshold      float64
	SlidingWindowSize int

	normalized bool
}

// FieldError reports a validation failure on a single configuration field.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationResult is the outcome of validating a Config.
// Errors make the config unusable; warnings do not.
type ValidationResult struct {
	Valid    bool
	Errors   []FieldError
	Warnings []string
}

// Err folds the result into a single error, or nil when valid.
func (r *ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	msgs := make([]string, len(r.Errors))
	for i, fe := range r.Errors {
		msgs[i] = fe.Error()
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

// DefaultConfig returns a Config for the given document with defaults applied.
func DefaultConfig(docID string) *Config {
	cfg := &Config{DocID: docID, TemporalLinks: true}
	cfg.normalize()
	return cfg
}

// normalize fills unset fields with defaults. It never touches explicitly
// set values, so an invalid explicit value still fails validation.
func (c *Config) normalize() {
	if c.normalized {
		return
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.MinChunkSize == 0 {
		c.MinChunkSize = DefaultMinChunkSize
	}
	if c.ContextWindowSize == 0 {
		c.ContextWindowSize = DefaultContextWindowSize
	}
	if c.SimilarityThreshold == 0 {
		c.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if c.PhaseDetectionSensitivity == 0 {
		c.PhaseDetectionSensitivity = DefaultPhaseSensitivity
	}
	if c.SlidingWindowSize == 0 {
		c.SlidingWindowSize = DefaultSlidingWindowSize
	}
	c.normalized = true
}

// Validate checks the configuration and returns field-level errors.
// It must pass before the config is handed to a chunker.
func (c *Config) Validate() *ValidationResult {
	c.normalize()
	result := &ValidationResult{Valid: true}

	fail := func(field, msg string) {
		result.Valid = false
		result.Errors = append(result.Errors, FieldError{Field: field, Message: msg})
	}

	if c.DocID == "" {
		fail("docId", "required")
	}
	if c.MaxTokens < 1 {
		fail("maxTokens", "must be positive")
	}
	if c.Overlap < 0 {
		fail("overlap", "must not be negative")
	}
	if c.MaxTokens >= 1 && c.Overlap >= c.MaxTokens {
		fail("overlap", fmt.Sprintf("must be smaller than maxTokens (%d >= %d)", c.Overlap, c.MaxTokens))
	}
	if c.MinChunkSize < 0 {
		fail("minChunkSize", "must not be negative")
	}
	if c.MinChunkSize > 0 && c.MaxTokens >= 1 && c.MinChunkSize >= c.MaxTokens {
		result.Warnings = append(result.Warnings, "minChunkSize >= maxTokens forces every chunk through merging")
	}
	if c.ContextWindowSize < 0 {
		fail("contextWindowSize", "must not be negative")
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		fail("similarityThreshold", "must be in [0,1]")
	}
	if c.PhaseDetectionSensitivity < 0 || c.PhaseDetectionSensitivity > 1 {
		fail("phaseDetectionSensitivity", "must be in [0,1]")
	}
	if c.MinPhaseDuration < 0 {
		fail("minPhaseDuration", "must not be negative")
	}
	if c.PplThreshold < 0 {
		fail("pplThreshold", "must not be negative")
	}
	if c.SlidingWindowSize < 1 {
		fail("slidingWindowSize", "must be positive")
	}

	return result
}

// ParseOptions builds a Config from a loosely typed option map, as received
// from CLI flags or an API payload. Unrecognized keys are rejected, not
// ignored.
func ParseOptions(options map[string]any) (*Config, error) {
	cfg := &Config{TemporalLinks: true}

	for key, value := range options {
		var err error
		switch key {
		case "docId":
			cfg.DocID, err = optString(key, value)
		case "sourcePath":
			cfg.SourcePath, err = optString(key, value)
		case "contentType":
			var name string
			if name, err = optString(key, value); err == nil {
				cfg.ContentType, err = core.ParseContentType(name)
			}
		case "maxTokens":
			cfg.MaxTokens, err = optInt(key, value)
		case "overlap":
			cfg.Overlap, err = optInt(key, value)
		case "minChunkSize":
			cfg.MinChunkSize, err = optInt(key, value)
		case "includeContext":
			cfg.IncludeContext, err = optBool(key, value)
		case "contextWindowSize":
			cfg.ContextWindowSize, err = optInt(key, value)
		case "temporalLinks":
			cfg.TemporalLinks, err = optBool(key, value)
		case "eventBoundaries":
			cfg.EventBoundaries, err = optStrings(key, value)
		case "phaseDetectionSensitivity":
			cfg.PhaseDetectionSensitivity, err = optFloat(key, value)
		case "minPhaseDuration":
			cfg.MinPhaseDuration, err = optInt(key, value)
		case "embeddingModel":
			cfg.EmbeddingModel, err = optString(key, value)
		case "similarityThreshold":
			cfg.SimilarityThreshold, err = optFloat(key, value)
		case "decisionKeywords":
			cfg.DecisionKeywords, err = optStrings(key, value)
		case "includeAlternatives":
			cfg.IncludeAlternatives, err = optBool(key, value)
		case "stepDelimiters":
			cfg.StepDelimiters, err = optStrings(key, value)
		case "includePrerequisites":
			cfg.IncludePrerequisites, err = optBool(key, value)
		case "includeOutcomes":
			cfg.IncludeOutcomes, err = optBool(key, value)
		case "pplThreshold":
			cfg.PplThreshold, err = optFloat(key, value)
		case "slidingWindowSize":
			cfg.SlidingWindowSize, err = optInt(key, value)
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownOption, key)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}

	return cfg, nil
}

func optString(key string, value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%s: expected string, got %T", key, value)
	}
	return s, nil
}

func optStrings(key string, value any) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d]: expected string, got %T", key, i, item)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s: expected string list, got %T", key, value)
	}
}

func optInt(key string, value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("%s: expected integer, got %v", key, v)
		}
		return int(v), nil
	default:
		return 0, fmt.Errorf("%s: expected integer, got %T", key, value)
	}
}

func optFloat(key string, value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("%s: expected number, got %T", key, value)
	}
}

func optBool(key string, value any) (bool, error) {
	b, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("%s: expected bool, got %T", key, value)
	}
	return b, nil
}
