package observability

import (
	"context"
	"fmt"
	"time"

	"careeradvisor/internal/types"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome labels for careeradvisor_analyses_total.
const (
	OutcomeResult          = "result"
	OutcomeExtractionFail  = "extraction_failure"
	OutcomeDocumentError   = "document_error"
	OutcomeLLMError        = "llm_error"
	OutcomeValidationError = "validation_error"
)

// StrategyNone labels completions no strategy could read.
const StrategyNone = "none"

// Metrics holds the custom instruments. A nil *Metrics records nothing.
type Metrics struct {
	analyses           metric.Int64Counter
	llmDuration        metric.Float64Histogram
	llmTokens          metric.Int64Counter
	extractionStrategy metric.Int64Counter
	documentPages      metric.Int64Histogram
	rateLimitHits      metric.Int64Counter
}

// NewMetrics creates all careeradvisor instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.analyses, err = meter.Int64Counter(
		"careeradvisor_analyses_total",
		metric.WithDescription("Total number of analyses by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create analyses metric: %w", err)
	}

	m.llmDuration, err = meter.Float64Histogram(
		"careeradvisor_llm_duration_seconds",
		metric.WithDescription("Time spent waiting for the completion model"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM duration metric: %w", err)
	}

	m.llmTokens, err = meter.Int64Counter(
		"careeradvisor_llm_tokens_total",
		metric.WithDescription("Tokens consumed by completion calls"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM token metric: %w", err)
	}

	m.extractionStrategy, err = meter.Int64Counter(
		"careeradvisor_extraction_strategy_total",
		metric.WithDescription("Completions read by each extraction strategy"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction strategy metric: %w", err)
	}

	m.documentPages, err = meter.Int64Histogram(
		"careeradvisor_document_pages",
		metric.WithDescription("Pages per uploaded document"),
		metric.WithExplicitBucketBoundaries(1, 2, 3, 5, 10, 20, 50),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create document pages metric: %w", err)
	}

	m.rateLimitHits, err = meter.Int64Counter(
		"careeradvisor_rate_limit_hits_total",
		metric.WithDescription("Total number of rate limit hits"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit hits metric: %w", err)
	}

	return m, nil
}

// RecordAnalysis counts one finished analysis.
func (m *Metrics) RecordAnalysis(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.analyses.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordLLMCall records the duration and token usage of a completion call.
func (m *Metrics) RecordLLMCall(ctx context.Context, model string, duration time.Duration, usage *types.TokenUsage, err error) {
	if m == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("model", model),
		attribute.Bool("success", err == nil),
	}
	m.llmDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))

	if usage == nil {
		return
	}
	tokenTypes := []struct {
		tokenType string
		value     int32
	}{
		{"input", usage.PromptTokens},
		{"output", usage.CompletionTokens},
	}
	for _, tt := range tokenTypes {
		if tt.value <= 0 {
			continue
		}
		m.llmTokens.Add(ctx, int64(tt.value), metric.WithAttributes(
			attribute.String("model", model),
			attribute.String("token_type", tt.tokenType),
		))
	}
}

// RecordExtraction counts the strategy that read a completion, or
// StrategyNone when the chain failed.
func (m *Metrics) RecordExtraction(ctx context.Context, strategy string) {
	if m == nil {
		return
	}
	if strategy == "" {
		strategy = StrategyNone
	}
	m.extractionStrategy.Add(ctx, 1, metric.WithAttributes(attribute.String("strategy", strategy)))
}

// RecordDocument records the page count of an extracted document.
func (m *Metrics) RecordDocument(ctx context.Context, docType string, pages int) {
	if m == nil || pages <= 0 {
		return
	}
	m.documentPages.Record(ctx, int64(pages), metric.WithAttributes(attribute.String("type", docType)))
}

// RecordRateLimitHit counts a rejected request on route.
func (m *Metrics) RecordRateLimitHit(ctx context.Context, route string) {
	if m == nil {
		return
	}
	m.rateLimitHits.Add(ctx, 1, metric.WithAttributes(attribute.String("route", route)))
}
