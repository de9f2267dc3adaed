package observability

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"careeradvisor/internal/config"
	"careeradvisor/internal/types"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := NewMetrics(provider.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() returned error: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() returned error: %v", err)
	}
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumFor(t *testing.T, m metricdata.Metrics, key, value string) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s is %T, want Sum[int64]", m.Name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			total += dp.Value
		}
	}
	return total
}

func TestMetricsRecording(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordAnalysis(ctx, OutcomeResult)
	m.RecordAnalysis(ctx, OutcomeResult)
	m.RecordAnalysis(ctx, OutcomeExtractionFail)
	m.RecordExtraction(ctx, "fenced-json")
	m.RecordExtraction(ctx, "")
	m.RecordLLMCall(ctx, "gemini-test", 1500*time.Millisecond,
		&types.TokenUsage{PromptTokens: 120, CompletionTokens: 30, TotalTokens: 150}, nil)
	m.RecordDocument(ctx, "pdf", 2)
	m.RecordRateLimitHit(ctx, "/api/v1/analyze")

	got := collect(t, reader)

	if n := sumFor(t, got["careeradvisor_analyses_total"], "outcome", OutcomeResult); n != 2 {
		t.Errorf("result analyses = %d, want 2", n)
	}
	if n := sumFor(t, got["careeradvisor_analyses_total"], "outcome", OutcomeExtractionFail); n != 1 {
		t.Errorf("failed analyses = %d, want 1", n)
	}
	if n := sumFor(t, got["careeradvisor_extraction_strategy_total"], "strategy", StrategyNone); n != 1 {
		t.Errorf("empty strategy should be recorded as %q, got %d", StrategyNone, n)
	}
	if n := sumFor(t, got["careeradvisor_llm_tokens_total"], "token_type", "input"); n != 120 {
		t.Errorf("input tokens = %d, want 120", n)
	}
	if n := sumFor(t, got["careeradvisor_llm_tokens_total"], "token_type", "output"); n != 30 {
		t.Errorf("output tokens = %d, want 30", n)
	}
	if n := sumFor(t, got["careeradvisor_rate_limit_hits_total"], "route", "/api/v1/analyze"); n != 1 {
		t.Errorf("rate limit hits = %d, want 1", n)
	}

	hist, ok := got["careeradvisor_llm_duration_seconds"].Data.(metricdata.Histogram[float64])
	if !ok || len(hist.DataPoints) != 1 || hist.DataPoints[0].Sum != 1.5 {
		t.Errorf("unexpected LLM duration data: %+v", got["careeradvisor_llm_duration_seconds"].Data)
	}
	pages, ok := got["careeradvisor_document_pages"].Data.(metricdata.Histogram[int64])
	if !ok || len(pages.DataPoints) != 1 || pages.DataPoints[0].Sum != 2 {
		t.Errorf("unexpected document pages data: %+v", got["careeradvisor_document_pages"].Data)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()

	m.RecordAnalysis(ctx, OutcomeResult)
	m.RecordLLMCall(ctx, "model", time.Second, &types.TokenUsage{PromptTokens: 1}, nil)
	m.RecordExtraction(ctx, "fenced-json")
	m.RecordDocument(ctx, "pdf", 1)
	m.RecordRateLimitHit(ctx, "/")
}

func TestDisabledManagerIsInert(t *testing.T) {
	m, err := NewManager(context.Background(), config.ObservabilityConfig{Enabled: false}, "1.2.3")
	if err != nil {
		t.Fatalf("NewManager() returned error: %v", err)
	}
	if m.Enabled() {
		t.Error("manager should report disabled")
	}
	if m.Metrics() != nil {
		t.Error("disabled manager should not create metrics")
	}
	if m.MetricsHandler() != nil {
		t.Error("disabled manager should not expose a metrics handler")
	}

	called := false
	h := m.HTTPMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Error("pass-through middleware did not call the handler")
	}
	if err := m.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() returned error: %v", err)
	}
}

func TestPrometheusEndpointExposesCustomMetrics(t *testing.T) {
	cfg := config.ObservabilityConfig{
		Enabled:     true,
		ServiceName: "careeradvisor-test",
		Tracing:     config.TracingConfig{Enabled: false},
		Metrics:     config.MetricsConfig{Enabled: true, CollectionInterval: time.Minute},
		Prometheus:  config.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
	}
	m, err := NewManager(context.Background(), cfg, "test")
	if err != nil {
		t.Fatalf("NewManager() returned error: %v", err)
	}
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })

	m.Metrics().RecordAnalysis(context.Background(), OutcomeResult)

	handler := m.MetricsHandler()
	if handler == nil {
		t.Fatal("expected a metrics handler")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, m.MetricsEndpoint(), nil))

	body, _ := io.ReadAll(rec.Body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(string(body), "careeradvisor_analyses_total") {
		t.Errorf("metrics output does not contain the analyses counter:\n%s", body)
	}
}

func TestTracingWithoutExporterStillAssignsTraceIDs(t *testing.T) {
	cfg := config.ObservabilityConfig{
		Enabled:     true,
		ServiceName: "careeradvisor-test",
		Tracing:     config.TracingConfig{Enabled: true, SampleRate: 1},
	}
	m, err := NewManager(context.Background(), cfg, "test")
	if err != nil {
		t.Fatalf("NewManager() returned error: %v", err)
	}

	_, span := m.Tracer("test").Start(context.Background(), "advisor.analyze")
	if !span.SpanContext().HasTraceID() {
		t.Error("span has no trace ID")
	}
	span.End()

	if err := m.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() returned error: %v", err)
	}
}
