package formatters

import (
	"encoding/json"
	"strings"
	"testing"

	"careeradvisor/internal/types"
)

func sampleOutcome() *types.Outcome {
	return types.NewResultOutcome(&types.AnalysisResult{
		MatchScore:      72,
		MissingSkills:   []string{"Docker", "Kubernetes"},
		Recommendations: []string{"Add a Docker project"},
		Feedback:        "Solid backend skills.",
	}, nil, "fenced-json")
}

func sampleFailure() *types.Outcome {
	return types.NewFailureOutcome(&types.ExtractionFailure{
		Error:     "COMPLETION_PARSE_FAILED",
		Message:   "Could not parse response as a JSON object or literal mapping.",
		RawOutput: "Sorry, ```no``` JSON here",
	})
}

func TestTextFormatter(t *testing.T) {
	registry := NewFormatterRegistry()

	out, err := registry.Format(sampleOutcome(), "text")
	if err != nil {
		t.Fatalf("Format() returned error: %v", err)
	}
	for _, want := range []string{
		"Match Score: 72%",
		"  1. Docker\n  2. Kubernetes\n",
		"  1. Add a Docker project\n",
		"  > Solid backend skills.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestTextFormatterFailure(t *testing.T) {
	out, err := NewFormatterRegistry().Format(*sampleFailure(), "text")
	if err != nil {
		t.Fatalf("Format() returned error: %v", err)
	}
	if !strings.Contains(out, "Could not parse response") || !strings.Contains(out, "Sorry, ```no``` JSON here") {
		t.Errorf("failure output must include the message and raw output:\n%s", out)
	}
}

func TestMarkdownFormatter(t *testing.T) {
	registry := NewFormatterRegistry()

	out, err := registry.Format(sampleOutcome(), "markdown")
	if err != nil {
		t.Fatalf("Format() returned error: %v", err)
	}
	for _, want := range []string{"# Analysis Results", "**Match Score:** 72%", "1. Docker", "> Solid backend skills."} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown output missing %q:\n%s", want, out)
		}
	}

	out, err = registry.Format(sampleFailure(), "markdown")
	if err != nil {
		t.Fatalf("Format() returned error: %v", err)
	}
	if !strings.Contains(out, "````\nSorry, ```no``` JSON here\n````") {
		t.Errorf("raw output should be fenced with a longer fence:\n%s", out)
	}
}

func TestJSONFormatter(t *testing.T) {
	out, err := NewFormatterRegistry().Format(sampleOutcome(), "json")
	if err != nil {
		t.Fatalf("Format() returned error: %v", err)
	}

	var decoded types.Outcome
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Result == nil || decoded.Result.MatchScore != 72 || decoded.Failure != nil {
		t.Errorf("unexpected decoded outcome: %+v", decoded)
	}
}

func TestUnknownFormat(t *testing.T) {
	if _, err := NewFormatterRegistry().Format(sampleOutcome(), "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
	if _, err := NewFormatterRegistry().Format("plain", "text"); err == nil {
		t.Error("expected error for text formatting of an unsupported type")
	}
}

func TestEmptyListsRenderNone(t *testing.T) {
	outcome := types.NewResultOutcome(&types.AnalysisResult{MatchScore: 100, Feedback: "Great."}, nil, "fenced-json")
	out, err := NewFormatterRegistry().Format(outcome, "text")
	if err != nil {
		t.Fatalf("Format() returned error: %v", err)
	}
	if strings.Count(out, "None") != 2 {
		t.Errorf("expected both empty lists rendered as None:\n%s", out)
	}
}

func TestGetSupportedFormats(t *testing.T) {
	got := strings.Join(NewFormatterRegistry().GetSupportedFormats(), ",")
	if got != "json,markdown,text" {
		t.Errorf("formats = %s", got)
	}
}
