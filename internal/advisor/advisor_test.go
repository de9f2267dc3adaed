package advisor

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"careeradvisor/internal/ai"
	"careeradvisor/internal/errors"
	"careeradvisor/internal/extract"
	"careeradvisor/internal/textract"
	"careeradvisor/internal/types"
)

var testLogger = errors.NewLoggerWithWriter(io.Discard, slog.LevelDebug)

type fakeProvider struct {
	reply    string
	err      error
	requests []ai.CompletionRequest
}

func (f *fakeProvider) Complete(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &ai.Completion{
		Text:     f.reply,
		Model:    "fake-model",
		Usage:    &types.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		Duration: 20 * time.Millisecond,
	}, nil
}

func (f *fakeProvider) GetModelInfo(ctx context.Context) *types.ModelInfo {
	return &types.ModelInfo{Name: "fake-model", Provider: "fake", Available: true}
}

func (f *fakeProvider) Close() error { return nil }

type fakeDocuments struct {
	text string
	err  error
}

func (f *fakeDocuments) ExtractText(ctx context.Context, name string, r io.Reader) (*textract.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &textract.Document{Name: name, Type: textract.DocumentTypePDF, Text: f.text, Pages: 1}, nil
}

const fencedReply = "```json\n" +
	`{"match_score": 72, "missing_skills": ["Docker"], "recommendations": ["Add a Docker project"], "feedback": "Solid backend skills."}` +
	"\n```"

func newTestAnalyzer(t *testing.T, provider ai.CompletionProvider, docs textract.Extractor) *Analyzer {
	t.Helper()
	a, err := New(Options{Documents: docs, Provider: provider, Logger: testLogger})
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	return a
}

func TestAnalyzeProducesResult(t *testing.T) {
	provider := &fakeProvider{reply: fencedReply}
	a := newTestAnalyzer(t, provider, &fakeDocuments{text: "Go developer, 5 years"})

	outcome, err := a.Analyze(context.Background(), "resume.pdf", strings.NewReader("%PDF-"), "Backend engineer with Docker")
	if err != nil {
		t.Fatalf("Analyze() returned error: %v", err)
	}

	if !outcome.Succeeded() || outcome.Failure != nil {
		t.Fatalf("expected a result, got %+v", outcome)
	}
	if outcome.Result.MatchScore != 72 {
		t.Errorf("MatchScore = %d, want 72", outcome.Result.MatchScore)
	}
	if outcome.Strategy != extract.StrategyFencedJSON {
		t.Errorf("Strategy = %q, want %q", outcome.Strategy, extract.StrategyFencedJSON)
	}
	if outcome.RequestID == "" {
		t.Error("expected a generated request ID")
	}
	if outcome.Model != "fake-model" || outcome.Usage == nil || outcome.Usage.TotalTokens != 15 {
		t.Errorf("completion metadata not propagated: %+v", outcome)
	}

	if len(provider.requests) != 1 {
		t.Fatalf("provider called %d times, want 1", len(provider.requests))
	}
	prompt := provider.requests[0].UserPrompt
	if !strings.Contains(prompt, "Go developer, 5 years") || !strings.Contains(prompt, "Backend engineer with Docker") {
		t.Errorf("prompt does not contain both inputs:\n%s", prompt)
	}
}

func TestAnalyzeKeepsRequestIDFromContext(t *testing.T) {
	a := newTestAnalyzer(t, &fakeProvider{reply: fencedReply}, &fakeDocuments{text: "resume"})

	ctx := ContextWithRequestID(context.Background(), "req-123")
	outcome, err := a.Analyze(ctx, "resume.pdf", strings.NewReader("x"), "job")
	if err != nil {
		t.Fatalf("Analyze() returned error: %v", err)
	}
	if outcome.RequestID != "req-123" {
		t.Errorf("RequestID = %q, want req-123", outcome.RequestID)
	}
}

func TestAnalyzeUnreadableCompletionIsFailureOutcome(t *testing.T) {
	reply := "I am sorry, I cannot help with that."
	a := newTestAnalyzer(t, &fakeProvider{reply: reply}, &fakeDocuments{text: "resume"})

	outcome, err := a.Analyze(context.Background(), "resume.pdf", strings.NewReader("x"), "job")
	if err != nil {
		t.Fatalf("parse failures must not be returned as errors, got %v", err)
	}
	if outcome.Succeeded() || outcome.Result != nil {
		t.Fatal("expected no result")
	}
	if outcome.Failure.Error != errors.ErrCodeCompletionParse {
		t.Errorf("failure code = %q, want %q", outcome.Failure.Error, errors.ErrCodeCompletionParse)
	}
	if outcome.Failure.RawOutput != reply {
		t.Errorf("raw output = %q, want the completion verbatim", outcome.Failure.RawOutput)
	}
}

func TestAnalyzeErrors(t *testing.T) {
	tests := []struct {
		name         string
		docs         *fakeDocuments
		provider     *fakeProvider
		resume       io.Reader
		job          string
		expectedCode string
		expectCalls  int
	}{
		{
			name:         "missing job description",
			docs:         &fakeDocuments{text: "resume"},
			provider:     &fakeProvider{reply: fencedReply},
			resume:       strings.NewReader("x"),
			job:          "   ",
			expectedCode: errors.ErrCodeInvalidRequest,
		},
		{
			name:         "missing resume",
			docs:         &fakeDocuments{text: "resume"},
			provider:     &fakeProvider{reply: fencedReply},
			resume:       nil,
			job:          "job",
			expectedCode: errors.ErrCodeInvalidRequest,
		},
		{
			name:         "document extraction failure",
			docs:         &fakeDocuments{err: errors.NewDocumentError(errors.ErrCodeDocumentExtraction, "corrupt", nil)},
			provider:     &fakeProvider{reply: fencedReply},
			resume:       strings.NewReader("x"),
			job:          "job",
			expectedCode: errors.ErrCodeDocumentExtraction,
		},
		{
			name:         "document without text",
			docs:         &fakeDocuments{text: "  \n "},
			provider:     &fakeProvider{reply: fencedReply},
			resume:       strings.NewReader("x"),
			job:          "job",
			expectedCode: errors.ErrCodeInvalidRequest,
		},
		{
			name:         "completion timeout",
			docs:         &fakeDocuments{text: "resume"},
			provider:     &fakeProvider{err: errors.NewAIError(errors.ErrCodeAITimeout, "too slow", context.DeadlineExceeded)},
			resume:       strings.NewReader("x"),
			job:          "job",
			expectedCode: errors.ErrCodeAITimeout,
			expectCalls:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAnalyzer(t, tt.provider, tt.docs)

			outcome, err := a.Analyze(context.Background(), "resume.pdf", tt.resume, tt.job)
			if err == nil {
				t.Fatalf("expected error, got outcome %+v", outcome)
			}
			if code := errors.CodeOf(err); code != tt.expectedCode {
				t.Errorf("error code = %q, want %q", code, tt.expectedCode)
			}
			if len(tt.provider.requests) != tt.expectCalls {
				t.Errorf("provider called %d times, want %d", len(tt.provider.requests), tt.expectCalls)
			}
		})
	}
}

func TestAnalyzeTextUsesLiteralFallback(t *testing.T) {
	reply := "{'match_score': 50, 'missing_skills': ['Kubernetes',], 'recommendations': ['Mention CI'], 'feedback': 'Good start.',}"
	a := newTestAnalyzer(t, &fakeProvider{reply: reply}, nil)

	outcome, err := a.AnalyzeText(context.Background(), types.AnalysisRequest{
		ResumeText:         "resume",
		JobDescriptionText: "job",
	})
	if err != nil {
		t.Fatalf("AnalyzeText() returned error: %v", err)
	}
	if !outcome.Succeeded() {
		t.Fatalf("expected a result, got failure %+v", outcome.Failure)
	}
	if outcome.Strategy != extract.StrategyLiteralMapping {
		t.Errorf("Strategy = %q, want %q", outcome.Strategy, extract.StrategyLiteralMapping)
	}
	if outcome.Result.MatchScore != 50 || len(outcome.Result.MissingSkills) != 1 {
		t.Errorf("unexpected result: %+v", outcome.Result)
	}
}

func TestInterpretWithoutProviderCall(t *testing.T) {
	provider := &fakeProvider{}
	a := newTestAnalyzer(t, provider, nil)

	outcome := a.Interpret(context.Background(), fencedReply)
	if !outcome.Succeeded() {
		t.Fatalf("expected a result, got %+v", outcome.Failure)
	}
	if outcome.RequestID == "" {
		t.Error("expected a request ID")
	}
	if len(provider.requests) != 0 {
		t.Error("Interpret must not call the provider")
	}
}

func TestNewRequiresProviderAndLogger(t *testing.T) {
	if _, err := New(Options{Logger: testLogger}); err == nil {
		t.Error("expected error without provider")
	}
	if _, err := New(Options{Provider: &fakeProvider{}}); err == nil {
		t.Error("expected error without logger")
	}
}
