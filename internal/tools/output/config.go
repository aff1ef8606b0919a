package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/giantswarm/mcp-redmine/internal/journal"
)

// Recognised filter option keys.
const (
	KeyIncludeFields        = "include_fields"
	KeyExcludeFields        = "exclude_fields"
	KeyRemoveEmpty          = "remove_empty"
	KeyRemoveCustomFields   = "remove_custom_fields"
	KeyKeepCustomFields     = "keep_custom_fields"
	KeyMaxDescriptionLength = "max_description_length"
	KeyMaxArrayItems        = "max_array_items"
	KeyJournals             = "journals"
	KeyCodeReviewOnly       = "code_review_only"
)

// Config is a validated filter configuration. Nil slices and zero limits mean
// the option is unset.
type Config struct {
	// IncludeFields keeps only these keys at every level. It overrides
	// ExcludeFields entirely.
	IncludeFields []string `json:"include_fields,omitempty" yaml:"include_fields,omitempty"`

	// ExcludeFields drops these keys at every level.
	ExcludeFields []string `json:"exclude_fields,omitempty" yaml:"exclude_fields,omitempty"`

	// RemoveEmpty drops nulls, blank strings and empty collections.
	RemoveEmpty bool `json:"remove_empty,omitempty" yaml:"remove_empty,omitempty"`

	// RemoveCustomFields drops every custom_fields collection.
	RemoveCustomFields bool `json:"remove_custom_fields,omitempty" yaml:"remove_custom_fields,omitempty"`

	// KeepCustomFields keeps only the custom fields with these names.
	KeepCustomFields []string `json:"keep_custom_fields,omitempty" yaml:"keep_custom_fields,omitempty"`

	// MaxDescriptionLength truncates description, notes and text values.
	MaxDescriptionLength int `json:"max_description_length,omitempty" yaml:"max_description_length,omitempty"`

	// MaxArrayItems bounds generic arrays. Journals are not affected.
	MaxArrayItems int `json:"max_array_items,omitempty" yaml:"max_array_items,omitempty"`

	// Journals is the nested journal policy.
	Journals *journal.Policy `json:"journals,omitempty" yaml:"journals,omitempty"`

	includeSet    map[string]struct{}
	excludeSet    map[string]struct{}
	keepCustomSet map[string]struct{}
}

// ValidationError lists every problem found in a raw filter configuration.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid filter configuration: %s", strings.Join(e.Problems, "; "))
}

// ParseConfig validates raw and builds a Config from it. On validation
// failure it returns a *ValidationError.
func ParseConfig(raw map[string]any) (*Config, error) {
	if problems := Validate(raw); len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	cfg := &Config{
		IncludeFields:        stringList(raw[KeyIncludeFields]),
		ExcludeFields:        stringList(raw[KeyExcludeFields]),
		KeepCustomFields:     stringList(raw[KeyKeepCustomFields]),
		RemoveEmpty:          raw[KeyRemoveEmpty] == true,
		RemoveCustomFields:   raw[KeyRemoveCustomFields] == true,
		MaxDescriptionLength: positiveInt(raw[KeyMaxDescriptionLength]),
		MaxArrayItems:        positiveInt(raw[KeyMaxArrayItems]),
	}

	if j, ok := raw[KeyJournals].(map[string]any); ok {
		cfg.Journals = &journal.Policy{CodeReviewOnly: j[KeyCodeReviewOnly] == true}
	}

	cfg.index()
	return cfg, nil
}

// index builds the membership sets used by the engine.
func (c *Config) index() {
	c.includeSet = toSet(c.IncludeFields)
	c.excludeSet = toSet(c.ExcludeFields)
	c.keepCustomSet = toSet(c.KeepCustomFields)
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}

	clone := *c
	clone.IncludeFields = cloneStrings(c.IncludeFields)
	clone.ExcludeFields = cloneStrings(c.ExcludeFields)
	clone.KeepCustomFields = cloneStrings(c.KeepCustomFields)
	if c.Journals != nil {
		j := *c.Journals
		clone.Journals = &j
	}
	clone.index()

	return &clone
}

// Outcome describes what the orchestrator did with an envelope.
type Outcome string

const (
	OutcomePassThrough   Outcome = "pass_through"
	OutcomeInvalidConfig Outcome = "invalid_config"
	OutcomeFiltered      Outcome = "filtered"
	OutcomeFallback      Outcome = "fallback"
)

// ProcessingResult contains metadata about one orchestrator call.
type ProcessingResult struct {
	// Outcome is the terminal state reached
	Outcome Outcome `json:"outcome"`

	// Problems lists validation problems, if any
	Problems []string `json:"problems,omitempty"`

	// ProcessedAt is when processing occurred
	ProcessedAt time.Time `json:"processedAt"`

	// BytesBefore is the estimated JSON size of the body before filtering
	BytesBefore int64 `json:"bytesBefore"`

	// BytesAfter is the estimated JSON size of the body after filtering
	BytesAfter int64 `json:"bytesAfter"`
}

// BytesReduced is the estimated number of bytes removed by filtering.
func (r ProcessingResult) BytesReduced() int64 {
	if r.BytesAfter >= r.BytesBefore {
		return 0
	}
	return r.BytesBefore - r.BytesAfter
}
