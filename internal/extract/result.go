package extract

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"careeradvisor/internal/types"
)

// Keys of the analysis mapping.
const (
	KeyMatchScore      = "match_score"
	KeyMissingSkills   = "missing_skills"
	KeyRecommendations = "recommendations"
	KeyFeedback        = "feedback"
)

// ToResult converts an extracted mapping into an AnalysisResult. Missing or
// malformed keys become zero values and are reported as warnings; the
// conversion itself never fails.
func ToResult(mapping map[string]any) (*types.AnalysisResult, []string) {
	var warnings []string
	warn := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	result := &types.AnalysisResult{
		MissingSkills:   []string{},
		Recommendations: []string{},
	}

	if raw, ok := mapping[KeyMatchScore]; ok {
		score, valid := toScore(raw)
		switch {
		case !valid:
			warn("%s is not a number: %v", KeyMatchScore, raw)
		case score < 0 || score > 100:
			warn("%s %v clamped to [0,100]", KeyMatchScore, score)
			result.MatchScore = int(math.Round(min(max(score, 0), 100)))
		default:
			result.MatchScore = int(math.Round(score))
		}
	} else {
		warn("%s missing", KeyMatchScore)
	}

	result.MissingSkills = stringList(mapping, KeyMissingSkills, warn)
	result.Recommendations = stringList(mapping, KeyRecommendations, warn)

	switch v := mapping[KeyFeedback].(type) {
	case string:
		result.Feedback = v
	case nil:
		warn("%s missing", KeyFeedback)
	default:
		warn("%s is not a string", KeyFeedback)
		result.Feedback = fmt.Sprint(v)
	}

	return result, warnings
}

// toScore reads a numeric score from a JSON number, a YAML integer or a
// numeric string with an optional percent sign. NaN and infinities are not
// scores.
func toScore(raw any) (float64, bool) {
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case string:
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "%"))
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func stringList(mapping map[string]any, key string, warn func(string, ...any)) []string {
	raw, ok := mapping[key]
	if !ok || raw == nil {
		warn("%s missing", key)
		return []string{}
	}

	switch v := raw.(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
				continue
			}
			warn("%s contains a non-string item", key)
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		warn("%s is a string, not a list", key)
		if strings.TrimSpace(v) == "" {
			return []string{}
		}
		return []string{v}
	default:
		warn("%s is not a list", key)
		return []string{}
	}
}

// FormatFenced renders result the way the model is expected to answer when
// it fences its output: a json-tagged code block holding one object.
func FormatFenced(result *types.AnalysisResult) (string, error) {
	canonical := *result
	if canonical.MissingSkills == nil {
		canonical.MissingSkills = []string{}
	}
	if canonical.Recommendations == nil {
		canonical.Recommendations = []string{}
	}

	body, err := json.Marshal(canonical)
	if err != nil {
		return "", fmt.Errorf("failed to marshal analysis result: %w", err)
	}
	return "```json\n" + string(body) + "\n```", nil
}
