package extract

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"careeradvisor/internal/errors"
	"careeradvisor/internal/types"
)

func TestExtractStrategies(t *testing.T) {
	tests := []struct {
		name             string
		input            string
		expectedStrategy string
		expectedMapping  map[string]any
	}{
		{
			name:             "fenced json block",
			input:            "```json\n{\"match_score\": 72, \"missing_skills\": [\"Docker\"], \"recommendations\": [\"Add a Docker project\"], \"feedback\": \"Solid backend skills.\"}\n```",
			expectedStrategy: StrategyFencedJSON,
			expectedMapping: map[string]any{
				"match_score":     72.0,
				"missing_skills":  []any{"Docker"},
				"recommendations": []any{"Add a Docker project"},
				"feedback":        "Solid backend skills.",
			},
		},
		{
			name:             "untagged fence with surrounding prose",
			input:            "Sure! Here it is:\n```\n{\"match_score\": 55, \"feedback\": \"Good start.\"}\n```\nHope this helps {really}.",
			expectedStrategy: StrategyFencedJSON,
			expectedMapping: map[string]any{
				"match_score": 55.0,
				"feedback":    "Good start.",
			},
		},
		{
			name:             "uppercase tag",
			input:            "```JSON\n{\"match_score\": 10}\n```",
			expectedStrategy: StrategyFencedJSON,
			expectedMapping:  map[string]any{"match_score": 10.0},
		},
		{
			name:             "only first fenced block is used",
			input:            "```json\n{\"match_score\": 1}\n```\n```json\n{\"match_score\": 2}\n```",
			expectedStrategy: StrategyFencedJSON,
			expectedMapping:  map[string]any{"match_score": 1.0},
		},
		{
			name:             "nested object inside fence",
			input:            "```json\n{\"match_score\": 64, \"details\": {\"years\": 5}}\n```",
			expectedStrategy: StrategyFencedJSON,
			expectedMapping: map[string]any{
				"match_score": 64.0,
				"details":     map[string]any{"years": 5.0},
			},
		},
		{
			name:             "object embedded in prose",
			input:            "Based on my review, here is the result: {\"match_score\": 40, \"missing_skills\": [\"Go\", \"gRPC\"], \"recommendations\": [\"Learn Go\"], \"feedback\": \"Needs backend depth.\"} Let me know if you need more.",
			expectedStrategy: StrategyBraceSpanJSON,
			expectedMapping: map[string]any{
				"match_score":     40.0,
				"missing_skills":  []any{"Go", "gRPC"},
				"recommendations": []any{"Learn Go"},
				"feedback":        "Needs backend depth.",
			},
		},
		{
			name:             "single quoted literal mapping",
			input:            "{'match_score': 50, 'missing_skills': ['Kubernetes', 'Go'], 'recommendations': ['Ship a Go service',], 'feedback': 'Promising profile.',}",
			expectedStrategy: StrategyLiteralMapping,
			expectedMapping: map[string]any{
				"match_score":     50.0,
				"missing_skills":  []any{"Kubernetes", "Go"},
				"recommendations": []any{"Ship a Go service"},
				"feedback":        "Promising profile.",
			},
		},
		{
			name:             "literal mapping with surrounding whitespace",
			input:            "\n\n  {'match_score': 88, 'feedback': \"Strong fit.\"}  \n",
			expectedStrategy: StrategyLiteralMapping,
			expectedMapping: map[string]any{
				"match_score": 88.0,
				"feedback":    "Strong fit.",
			},
		},
		{
			name:             "trailing comma inside json fence",
			input:            "```json\n{\"match_score\": 80, \"feedback\": \"ok\",}\n```",
			expectedStrategy: StrategyLiteralMapping,
			expectedMapping: map[string]any{
				"match_score": 80.0,
				"feedback":    "ok",
			},
		},
		{
			name:             "literal mapping inside other fence",
			input:            "```python\n{'match_score': 30, 'feedback': 'Weak match.'}\n```",
			expectedStrategy: StrategyLiteralMapping,
			expectedMapping: map[string]any{
				"match_score": 30.0,
				"feedback":    "Weak match.",
			},
		},
		{
			name:             "escaped quote inside single quoted string",
			input:            `{'match_score': 50, 'feedback': 'It\'s a good fit.'}`,
			expectedStrategy: StrategyLiteralMapping,
			expectedMapping: map[string]any{
				"match_score": 50.0,
				"feedback":    "It's a good fit.",
			},
		},
		{
			name:             "escape sequences are decoded",
			input:            `{'match_score': 61, 'feedback': 'Line one.\nLine two.', 'missing_skills': ['caf\u00e9 \x41PI']}`,
			expectedStrategy: StrategyLiteralMapping,
			expectedMapping: map[string]any{
				"match_score":    61.0,
				"feedback":       "Line one.\nLine two.",
				"missing_skills": []any{"café API"},
			},
		},
		{
			name:             "none true and false keywords",
			input:            "{'match_score': 45, 'feedback': None, 'remote': True, 'relocate': False, 'missing_skills': []}",
			expectedStrategy: StrategyLiteralMapping,
			expectedMapping: map[string]any{
				"match_score":    45.0,
				"feedback":       nil,
				"remote":         true,
				"relocate":       false,
				"missing_skills": []any{},
			},
		},
		{
			name:             "keywords inside strings are left alone",
			input:            "{'match_score': 12, 'feedback': 'None of the True requirements'}",
			expectedStrategy: StrategyLiteralMapping,
			expectedMapping: map[string]any{
				"match_score": 12.0,
				"feedback":    "None of the True requirements",
			},
		},
		{
			name:             "tabs kept inside strings",
			input:            "{'match_score': 20,\t'feedback': 'tab\tinside'}",
			expectedStrategy: StrategyLiteralMapping,
			expectedMapping: map[string]any{
				"match_score": 20.0,
				"feedback":    "tab\tinside",
			},
		},
	}

	extractor := New(Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extraction, err := extractor.Extract(tt.input)
			if err != nil {
				t.Fatalf("Extract() returned error: %v", err)
			}
			if extraction.Strategy != tt.expectedStrategy {
				t.Errorf("strategy = %q, want %q", extraction.Strategy, tt.expectedStrategy)
			}
			if !reflect.DeepEqual(extraction.Mapping, tt.expectedMapping) {
				t.Errorf("mapping = %#v, want %#v", extraction.Mapping, tt.expectedMapping)
			}
		})
	}
}

func TestExtractFailures(t *testing.T) {
	inputs := []string{
		"I'm sorry, I cannot analyze this resume without more information.",
		"",
		"   \n\t ",
		"Consider {this} carefully.",
		"The JSON would start with { but I will stop here.",
		"[\"Docker\", \"Kubernetes\"]",
		"match_score: 70\nfeedback: fine",
	}

	extractor := New(Options{})
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := extractor.Extract(input)
			if err == nil {
				t.Fatal("expected extraction to fail")
			}
			if errors.CodeOf(err) != errors.ErrCodeCompletionParse {
				t.Errorf("code = %q, want %q", errors.CodeOf(err), errors.ErrCodeCompletionParse)
			}

			outcome := extractor.Interpret(input)
			if outcome.Succeeded() || outcome.Result != nil {
				t.Fatal("expected failure outcome")
			}
			if outcome.Failure.RawOutput != input {
				t.Errorf("raw_output = %q, want input verbatim", outcome.Failure.RawOutput)
			}
			if outcome.Failure.Error != errors.ErrCodeCompletionParse {
				t.Errorf("error = %q", outcome.Failure.Error)
			}
		})
	}
}

func TestInterpretProducesExactlyOne(t *testing.T) {
	inputs := []string{
		"```json\n{\"match_score\": 72, \"missing_skills\": [\"Docker\"], \"recommendations\": [\"Add a Docker project\"], \"feedback\": \"Solid backend skills.\"}\n```",
		"no json here",
		"{'match_score': 50}",
		"{}",
	}

	for _, strict := range []bool{false, true} {
		extractor := New(Options{Strict: strict})
		for _, input := range inputs {
			outcome := extractor.Interpret(input)
			if (outcome.Result == nil) == (outcome.Failure == nil) {
				t.Errorf("strict=%v input=%q: expected exactly one of result or failure", strict, input)
			}
		}
	}
}

func TestInterpretLenientAcceptsIncompleteMapping(t *testing.T) {
	outcome := New(Options{}).Interpret(`{"match_score": 130}`)
	if !outcome.Succeeded() {
		t.Fatalf("expected success, got failure %+v", outcome.Failure)
	}
	if outcome.Result.MatchScore != 100 {
		t.Errorf("match score = %d, want clamped 100", outcome.Result.MatchScore)
	}
	if len(outcome.Warnings) != 4 {
		t.Errorf("warnings = %v, want 4 entries", outcome.Warnings)
	}
	if outcome.Mapping["match_score"] != 130.0 {
		t.Errorf("mapping must be kept as produced, got %v", outcome.Mapping["match_score"])
	}
}

func TestToResultScoreConversion(t *testing.T) {
	tests := []struct {
		name          string
		raw           any
		expectedScore int
		expectedWarn  string
	}{
		{name: "whole number", raw: 72.0, expectedScore: 72},
		{name: "rounded", raw: 71.6, expectedScore: 72},
		{name: "percent string", raw: " 64% ", expectedScore: 64},
		{name: "above range", raw: 130.0, expectedScore: 100, expectedWarn: "match_score 130 clamped to [0,100]"},
		{name: "beyond int range", raw: 1e30, expectedScore: 100, expectedWarn: "match_score 1e+30 clamped to [0,100]"},
		{name: "far below range", raw: -1e30, expectedScore: 0, expectedWarn: "match_score -1e+30 clamped to [0,100]"},
		{name: "nan string", raw: "NaN", expectedScore: 0, expectedWarn: "match_score is not a number: NaN"},
		{name: "infinity string", raw: "+Inf", expectedScore: 0, expectedWarn: "match_score is not a number: +Inf"},
		{name: "bool", raw: true, expectedScore: 0, expectedWarn: "match_score is not a number: true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, warnings := ToResult(map[string]any{
				KeyMatchScore:      tt.raw,
				KeyMissingSkills:   []any{},
				KeyRecommendations: []any{},
				KeyFeedback:        "ok",
			})
			if result.MatchScore != tt.expectedScore {
				t.Errorf("match score = %d, want %d", result.MatchScore, tt.expectedScore)
			}
			if tt.expectedWarn == "" {
				if len(warnings) != 0 {
					t.Errorf("unexpected warnings: %v", warnings)
				}
				return
			}
			if len(warnings) != 1 || warnings[0] != tt.expectedWarn {
				t.Errorf("warnings = %v, want [%s]", warnings, tt.expectedWarn)
			}
		})
	}
}

func TestInterpretLargeScoreFromCompletion(t *testing.T) {
	outcome := New(Options{}).Interpret(`{"match_score": 1e30, "missing_skills": [], "recommendations": [], "feedback": "ok"}`)
	if !outcome.Succeeded() {
		t.Fatalf("expected success, got failure %+v", outcome.Failure)
	}
	if outcome.Result.MatchScore != 100 {
		t.Errorf("match score = %d, want 100", outcome.Result.MatchScore)
	}
}

func TestInterpretNoneFeedbackIsMissing(t *testing.T) {
	outcome := New(Options{}).Interpret("{'match_score': 45, 'missing_skills': [], 'recommendations': [], 'feedback': None}")
	if !outcome.Succeeded() {
		t.Fatalf("expected success, got failure %+v", outcome.Failure)
	}
	if outcome.Result.Feedback != "" {
		t.Errorf("feedback = %q, want empty", outcome.Result.Feedback)
	}
	if !reflect.DeepEqual(outcome.Warnings, []string{"feedback missing"}) {
		t.Errorf("warnings = %v, want [feedback missing]", outcome.Warnings)
	}

	strict := New(Options{Strict: true}).Interpret("{'match_score': 45, 'missing_skills': [], 'recommendations': [], 'feedback': None}")
	if strict.Succeeded() || strict.Failure.Error != errors.ErrCodeSchemaMismatch {
		t.Errorf("strict mode should reject a None feedback, got %+v", strict)
	}
}

func TestInterpretStrictRejectsIncompleteMapping(t *testing.T) {
	raw := "```json\n{\"match_score\": 72, \"missing_skills\": [\"Docker\"]}\n```"
	outcome := New(Options{Strict: true}).Interpret(raw)

	if outcome.Succeeded() {
		t.Fatal("expected strict mode to reject mapping without feedback")
	}
	if outcome.Failure.Error != errors.ErrCodeSchemaMismatch {
		t.Errorf("error = %q, want %q", outcome.Failure.Error, errors.ErrCodeSchemaMismatch)
	}
	if outcome.Failure.RawOutput != raw {
		t.Error("raw output must be kept verbatim")
	}
	if !strings.Contains(outcome.Failure.Message, "feedback missing") {
		t.Errorf("message = %q", outcome.Failure.Message)
	}
	if outcome.Strategy != StrategyFencedJSON {
		t.Errorf("strategy = %q", outcome.Strategy)
	}
}

func TestCustomStrategyOrder(t *testing.T) {
	var calls []string
	record := func(name string, ok bool) Strategy {
		return Strategy{Name: name, Parse: func(string) (map[string]any, bool) {
			calls = append(calls, name)
			if !ok {
				return nil, false
			}
			return map[string]any{"from": name}, true
		}}
	}

	extractor := New(Options{Strategies: []Strategy{
		record("first", false),
		record("second", true),
		record("third", true),
	}})

	extraction, err := extractor.Extract("anything")
	if err != nil {
		t.Fatalf("Extract() returned error: %v", err)
	}
	if extraction.Strategy != "second" {
		t.Errorf("strategy = %q, want second", extraction.Strategy)
	}
	if !reflect.DeepEqual(calls, []string{"first", "second"}) {
		t.Errorf("calls = %v, chain must stop at first success", calls)
	}
	if !reflect.DeepEqual(extractor.Strategies(), []string{"first", "second", "third"}) {
		t.Errorf("Strategies() = %v", extractor.Strategies())
	}
}

func TestFencedRoundTrip(t *testing.T) {
	results := []*types.AnalysisResult{
		{
			MatchScore:      72,
			MissingSkills:   []string{"Docker"},
			Recommendations: []string{"Add a Docker project"},
			Feedback:        "Solid backend skills.",
		},
		{
			MatchScore:      0,
			MissingSkills:   []string{},
			Recommendations: []string{"Quote \"exactly\"", "Use braces {like this}", "Backticks ``` inside"},
			Feedback:        "Line one.\nLine two.",
		},
		{
			MatchScore: 100,
			Feedback:   "Perfect fit.",
		},
	}

	extractor := New(Options{Strict: true})
	for _, result := range results {
		fenced, err := FormatFenced(result)
		if err != nil {
			t.Fatalf("FormatFenced() returned error: %v", err)
		}

		extraction, err := extractor.Extract(fenced)
		if err != nil {
			t.Fatalf("Extract(%q) returned error: %v", fenced, err)
		}

		body, _ := json.Marshal(result)
		var expected map[string]any
		if err := json.Unmarshal(body, &expected); err != nil {
			t.Fatal(err)
		}
		if result.MissingSkills == nil {
			expected["missing_skills"] = []any{}
		}
		if result.Recommendations == nil {
			expected["recommendations"] = []any{}
		}
		if !reflect.DeepEqual(extraction.Mapping, expected) {
			t.Errorf("mapping = %#v, want %#v", extraction.Mapping, expected)
		}

		outcome := extractor.Interpret(fenced)
		if !outcome.Succeeded() {
			t.Fatalf("Interpret() failed: %+v", outcome.Failure)
		}
		if outcome.Result.MatchScore != result.MatchScore || outcome.Result.Feedback != result.Feedback {
			t.Errorf("result = %+v, want %+v", outcome.Result, result)
		}
	}
}

func BenchmarkExtractFenced(b *testing.B) {
	extractor := New(Options{})
	input := "```json\n{\"match_score\": 72, \"missing_skills\": [\"Docker\"], \"recommendations\": [\"Add a Docker project\"], \"feedback\": \"Solid backend skills.\"}\n```"
	for b.Loop() {
		_, _ = extractor.Extract(input)
	}
}

func BenchmarkExtractLiteral(b *testing.B) {
	extractor := New(Options{})
	input := "{'match_score': 50, 'missing_skills': ['Kubernetes'], 'recommendations': ['Ship it'], 'feedback': 'ok'}"
	for b.Loop() {
		_, _ = extractor.Extract(input)
	}
}
