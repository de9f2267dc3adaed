// Package extract turns a free-text LLM completion into an analysis mapping.
//
// Extraction runs an ordered chain of strategies. Each strategy is a pure
// function from the completion text to an optional mapping, and the chain
// stops at the first strategy that yields one. When none does, the caller
// gets an ExtractionFailure holding the completion verbatim.
package extract

import (
	"strings"

	"careeradvisor/internal/errors"
	"careeradvisor/internal/types"
)

// FailureMessage is the human readable reason attached to parse failures.
const FailureMessage = "Could not parse response as a JSON object or literal mapping."

// Strategy is one named attempt at reading a mapping out of a completion.
type Strategy struct {
	Name  string
	Parse func(text string) (map[string]any, bool)
}

// Extraction is a mapping together with the strategy that produced it.
type Extraction struct {
	Mapping  map[string]any
	Strategy string
}

// Options configures an Extractor.
type Options struct {
	// Strict rejects mappings that do not convert cleanly to AnalysisResult.
	Strict bool
	// Strategies overrides the default chain.
	Strategies []Strategy
}

// Extractor applies a strategy chain to completions.
type Extractor struct {
	strategies []Strategy
	strict     bool
}

// DefaultStrategies returns the chain in priority order: fenced JSON, the
// widest brace span as JSON, then a literal-structure parse.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: StrategyFencedJSON, Parse: FencedJSON},
		{Name: StrategyBraceSpanJSON, Parse: BraceSpanJSON},
		{Name: StrategyLiteralMapping, Parse: LiteralMapping},
	}
}

// New creates an Extractor.
func New(opts Options) *Extractor {
	strategies := opts.Strategies
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &Extractor{strategies: strategies, strict: opts.Strict}
}

// Strategies returns the names of the configured strategies in order.
func (e *Extractor) Strategies() []string {
	names := make([]string, len(e.strategies))
	for i, s := range e.strategies {
		names[i] = s.Name
	}
	return names
}

// Extract runs the chain over raw and returns the first mapping found. The
// mapping is returned as produced, with no schema checks.
func (e *Extractor) Extract(raw string) (*Extraction, error) {
	for _, s := range e.strategies {
		if mapping, ok := s.Parse(raw); ok {
			return &Extraction{Mapping: mapping, Strategy: s.Name}, nil
		}
	}

	return nil, errors.NewParseError(errors.ErrCodeCompletionParse, FailureMessage, nil).
		WithContext("raw_output_length", len(raw)).
		WithContext("strategies", strings.Join(e.Strategies(), ","))
}

// Interpret extracts a mapping from raw and converts it into an outcome that
// holds exactly one of a result or a failure.
func (e *Extractor) Interpret(raw string) *types.Outcome {
	extraction, err := e.Extract(raw)
	if err != nil {
		return types.NewFailureOutcome(NewFailure(errors.ErrCodeCompletionParse, FailureMessage, raw))
	}

	result, warnings := ToResult(extraction.Mapping)
	if e.strict && len(warnings) > 0 {
		message := "Completion does not match the expected schema: " + strings.Join(warnings, "; ")
		outcome := types.NewFailureOutcome(NewFailure(errors.ErrCodeSchemaMismatch, message, raw))
		outcome.Strategy = extraction.Strategy
		outcome.Warnings = warnings
		return outcome
	}

	outcome := types.NewResultOutcome(result, extraction.Mapping, extraction.Strategy)
	outcome.Warnings = warnings
	return outcome
}

// NewFailure builds an ExtractionFailure carrying raw unchanged.
func NewFailure(code, message, raw string) *types.ExtractionFailure {
	return &types.ExtractionFailure{
		Error:     code,
		Message:   message,
		RawOutput: raw,
	}
}
