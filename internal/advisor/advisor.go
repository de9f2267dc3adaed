// Package advisor runs one resume analysis from upload to typed outcome.
package advisor

import (
	"context"
	"io"
	"strings"
	"time"

	"careeradvisor/internal/ai"
	"careeradvisor/internal/errors"
	"careeradvisor/internal/extract"
	"careeradvisor/internal/observability"
	"careeradvisor/internal/textract"
	"careeradvisor/internal/types"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MissingInputMessage is shown when the resume or job description is absent.
const MissingInputMessage = "Please upload your resume and provide the job description."

type requestIDKey struct{}

// ContextWithRequestID attaches id to ctx so the outcome carries it.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the request ID stored in ctx, if any.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Options wires an Analyzer.
type Options struct {
	Documents textract.Extractor
	Provider  ai.CompletionProvider
	Prompts   *ai.PromptBuilder
	Extractor *extract.Extractor
	Metrics   *observability.Metrics
	Logger    *errors.Logger
}

// Analyzer orchestrates text acquisition, prompt construction, the
// completion call and completion extraction.
type Analyzer struct {
	documents textract.Extractor
	provider  ai.CompletionProvider
	prompts   *ai.PromptBuilder
	extractor *extract.Extractor
	metrics   *observability.Metrics
	logger    *errors.Logger
}

// New creates an Analyzer. Provider and Logger are required; the other
// fields fall back to defaults.
func New(opts Options) (*Analyzer, error) {
	if opts.Provider == nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "analyzer requires a completion provider", nil)
	}
	if opts.Logger == nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "analyzer requires a logger", nil)
	}

	a := &Analyzer{
		documents: opts.Documents,
		provider:  opts.Provider,
		prompts:   opts.Prompts,
		extractor: opts.Extractor,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
	}
	if a.documents == nil {
		a.documents = textract.NewService(textract.Options{}, opts.Logger)
	}
	if a.prompts == nil {
		a.prompts = ai.NewPromptBuilder(nil)
	}
	if a.extractor == nil {
		a.extractor = extract.New(extract.Options{})
	}
	return a, nil
}

// Analyze extracts the text of an uploaded resume and analyzes it against
// jobDescription.
func (a *Analyzer) Analyze(ctx context.Context, name string, resume io.Reader, jobDescription string) (*types.Outcome, error) {
	tracer := otel.Tracer("careeradvisor.advisor")
	ctx, span := tracer.Start(ctx, "advisor.analyze")
	defer span.End()

	ctx, requestID := ensureRequestID(ctx)
	span.SetAttributes(
		attribute.String("request.id", requestID),
		attribute.String("document.name", name),
	)

	if resume == nil || strings.TrimSpace(jobDescription) == "" {
		err := missingInput()
		a.fail(ctx, span, err, observability.OutcomeValidationError)
		return nil, err
	}

	doc, err := a.documents.ExtractText(ctx, name, resume)
	if err != nil {
		a.fail(ctx, span, err, observability.OutcomeDocumentError)
		return nil, err
	}
	a.metrics.RecordDocument(ctx, string(doc.Type), doc.Pages)

	return a.analyze(ctx, span, types.AnalysisRequest{
		ResumeText:         doc.Text,
		JobDescriptionText: jobDescription,
	})
}

// AnalyzeText analyzes a resume that is already plain text.
func (a *Analyzer) AnalyzeText(ctx context.Context, req types.AnalysisRequest) (*types.Outcome, error) {
	tracer := otel.Tracer("careeradvisor.advisor")
	ctx, span := tracer.Start(ctx, "advisor.analyze")
	defer span.End()

	ctx, requestID := ensureRequestID(ctx)
	span.SetAttributes(attribute.String("request.id", requestID))

	return a.analyze(ctx, span, req)
}

func (a *Analyzer) analyze(ctx context.Context, span trace.Span, req types.AnalysisRequest) (*types.Outcome, error) {
	if strings.TrimSpace(req.ResumeText) == "" || strings.TrimSpace(req.JobDescriptionText) == "" {
		err := missingInput()
		a.fail(ctx, span, err, observability.OutcomeValidationError)
		return nil, err
	}

	prompt := a.prompts.Build(req.ResumeText, req.JobDescriptionText)
	span.SetAttributes(attribute.String("prompt.source", a.prompts.Source()))

	start := time.Now()
	completion, err := a.provider.Complete(ctx, prompt)
	if err != nil {
		a.metrics.RecordLLMCall(ctx, "", time.Since(start), nil, err)
		a.fail(ctx, span, err, observability.OutcomeLLMError)
		return nil, err
	}
	a.metrics.RecordLLMCall(ctx, completion.Model, completion.Duration, completion.Usage, nil)

	outcome := a.interpret(ctx, completion.Text)
	outcome.Model = completion.Model
	outcome.Usage = completion.Usage
	outcome.Duration = completion.Duration

	span.SetAttributes(
		attribute.Bool("analysis.succeeded", outcome.Succeeded()),
		attribute.String("extraction.strategy", outcome.Strategy),
	)
	return outcome, nil
}

// Interpret runs completion extraction over a completion obtained elsewhere.
func (a *Analyzer) Interpret(ctx context.Context, completion string) *types.Outcome {
	ctx, _ = ensureRequestID(ctx)
	return a.interpret(ctx, completion)
}

func (a *Analyzer) interpret(ctx context.Context, completion string) *types.Outcome {
	outcome := a.extractor.Interpret(completion)
	outcome.RequestID = RequestIDFrom(ctx)

	a.metrics.RecordExtraction(ctx, outcome.Strategy)
	if outcome.Succeeded() {
		a.metrics.RecordAnalysis(ctx, observability.OutcomeResult)
		if len(outcome.Warnings) > 0 {
			a.logger.Warn("Completion mapping did not match the expected shape",
				"request_id", outcome.RequestID,
				"strategy", outcome.Strategy,
				"warnings", outcome.Warnings)
		}
		a.logger.Info("Analysis completed",
			"request_id", outcome.RequestID,
			"strategy", outcome.Strategy,
			"match_score", outcome.Result.MatchScore)
		return outcome
	}

	a.metrics.RecordAnalysis(ctx, observability.OutcomeExtractionFail)
	a.logger.Warn("Completion could not be interpreted",
		"request_id", outcome.RequestID,
		"error_code", outcome.Failure.Error,
		"raw_output_length", len(outcome.Failure.RawOutput))
	return outcome
}

func (a *Analyzer) fail(ctx context.Context, span trace.Span, err error, outcome string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, errors.CodeOf(err))
	a.metrics.RecordAnalysis(ctx, outcome)
	a.logger.LogError(err, "Analysis failed", "request_id", RequestIDFrom(ctx))
}

func missingInput() error {
	return errors.NewValidationError(errors.ErrCodeInvalidRequest, MissingInputMessage, nil)
}

func ensureRequestID(ctx context.Context) (context.Context, string) {
	if id := RequestIDFrom(ctx); id != "" {
		return ctx, id
	}
	id := uuid.NewString()
	return ContextWithRequestID(ctx, id), id
}
