// Package observability sets up OpenTelemetry tracing and metrics.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"careeradvisor/internal/config"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const defaultCollectionInterval = 15 * time.Second

// Manager owns the tracer and meter providers for one process.
type Manager struct {
	config         config.ObservabilityConfig
	resource       *resource.Resource
	tracerProvider *trace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	registry       *prometheus.Registry
	metrics        *Metrics
	shutdownFuncs  []func(context.Context) error
}

// NewManager builds the providers selected by cfg. When cfg.Enabled is false
// the returned manager is inert: no globals are touched and Metrics returns nil.
func NewManager(ctx context.Context, cfg config.ObservabilityConfig, version string) (*Manager, error) {
	if cfg.ServiceVersion == "" || cfg.ServiceVersion == "dev" {
		cfg.ServiceVersion = version
	}
	m := &Manager{config: cfg}
	if !cfg.Enabled {
		return m, nil
	}

	if err := m.initResource(); err != nil {
		return nil, fmt.Errorf("failed to initialize resource: %w", err)
	}

	if cfg.Tracing.Enabled {
		if err := m.initTracing(ctx); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	if cfg.Metrics.Enabled {
		if err := m.initMetrics(ctx); err != nil {
			_ = m.Shutdown(ctx)
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	return m, nil
}

func (m *Manager) initResource() error {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(m.config.ServiceName),
		semconv.ServiceVersion(m.config.ServiceVersion),
	}
	if m.config.ServiceInstance != "" {
		attrs = append(attrs, semconv.ServiceInstanceID(m.config.ServiceInstance))
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, attrs...),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}
	m.resource = res
	return nil
}

func (m *Manager) initTracing(ctx context.Context) error {
	var exporter trace.SpanExporter
	var err error

	switch {
	case m.config.Console.Enabled:
		opts := []stdouttrace.Option{}
		if m.config.Console.PrettyPrint {
			opts = append(opts, stdouttrace.WithPrettyPrint())
		}
		exporter, err = stdouttrace.New(opts...)
	case m.config.OTLP.Enabled:
		exporter, err = m.createOTLPTraceExporter(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	opts := []trace.TracerProviderOption{
		trace.WithResource(m.resource),
		trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(m.config.Tracing.SampleRate))),
	}
	// Without an exporter spans are still created so trace IDs propagate.
	if exporter != nil {
		opts = append(opts, trace.WithBatcher(exporter))
	}
	tp := trace.NewTracerProvider(opts...)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	m.tracerProvider = tp
	m.shutdownFuncs = append(m.shutdownFuncs, tp.Shutdown)
	return nil
}

func (m *Manager) initMetrics(ctx context.Context) error {
	readers, err := m.setupMetricReaders(ctx)
	if err != nil {
		return err
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(m.resource)}
	for _, reader := range readers {
		opts = append(opts, sdkmetric.WithReader(reader))
	}
	mp := sdkmetric.NewMeterProvider(opts...)

	otel.SetMeterProvider(mp)
	m.meterProvider = mp
	m.shutdownFuncs = append(m.shutdownFuncs, mp.Shutdown)

	metrics, err := NewMetrics(mp.Meter(m.config.ServiceName))
	if err != nil {
		return err
	}
	m.metrics = metrics
	return nil
}

func (m *Manager) setupMetricReaders(ctx context.Context) ([]sdkmetric.Reader, error) {
	var readers []sdkmetric.Reader
	interval := m.collectionInterval()

	if m.config.Console.Enabled {
		exporter, err := stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create console metric exporter: %w", err)
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval)))
	}

	if m.config.OTLP.Enabled {
		exporter, err := m.createOTLPMetricExporter(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metrics reader: %w", err)
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval)))
	}

	if m.config.Prometheus.Enabled {
		reader, registry, err := newPrometheusReader()
		if err != nil {
			return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}
		readers = append(readers, reader)
		m.registry = registry
	}

	if len(readers) == 0 {
		readers = append(readers, sdkmetric.NewManualReader())
	}
	return readers, nil
}

func (m *Manager) createOTLPTraceExporter(ctx context.Context) (trace.SpanExporter, error) {
	otlpConfig := m.config.OTLP

	var opts []otlptracehttp.Option
	if strings.Contains(otlpConfig.Endpoint, "://") {
		opts = append(opts, otlptracehttp.WithEndpointURL(otlpConfig.Endpoint))
	} else {
		opts = append(opts, otlptracehttp.WithEndpoint(otlpConfig.Endpoint))
	}
	if otlpConfig.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(otlpConfig.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(otlpConfig.Headers))
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}
	return exporter, nil
}

func (m *Manager) createOTLPMetricExporter(ctx context.Context) (sdkmetric.Exporter, error) {
	otlpConfig := m.config.OTLP

	var opts []otlpmetrichttp.Option
	if strings.Contains(otlpConfig.Endpoint, "://") {
		opts = append(opts, otlpmetrichttp.WithEndpointURL(otlpConfig.Endpoint))
	} else {
		opts = append(opts, otlpmetrichttp.WithEndpoint(otlpConfig.Endpoint))
	}
	if otlpConfig.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if len(otlpConfig.Headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(otlpConfig.Headers))
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
	}
	return exporter, nil
}

func (m *Manager) collectionInterval() time.Duration {
	if m.config.Metrics.CollectionInterval > 0 {
		return m.config.Metrics.CollectionInterval
	}
	return defaultCollectionInterval
}

// Enabled reports whether any provider was installed.
func (m *Manager) Enabled() bool {
	return m != nil && m.config.Enabled
}

// Metrics returns the custom instruments, or nil when metrics are off.
func (m *Manager) Metrics() *Metrics {
	if m == nil {
		return nil
	}
	return m.metrics
}

// MetricsHandler serves the Prometheus registry. It is nil when the
// Prometheus exporter is not configured.
func (m *Manager) MetricsHandler() http.Handler {
	if m == nil || m.registry == nil {
		return nil
	}
	return prometheusHandler(m.registry)
}

// MetricsEndpoint is the path the Prometheus handler should be mounted on.
func (m *Manager) MetricsEndpoint() string {
	if m == nil || m.config.Prometheus.Endpoint == "" {
		return "/metrics"
	}
	return m.config.Prometheus.Endpoint
}

// HTTPMiddleware returns otelhttp instrumentation, or a pass-through when
// observability is disabled.
func (m *Manager) HTTPMiddleware() func(http.Handler) http.Handler {
	if !m.Enabled() {
		return func(h http.Handler) http.Handler { return h }
	}

	opts := []otelhttp.Option{
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	}
	if m.tracerProvider != nil {
		opts = append(opts, otelhttp.WithTracerProvider(m.tracerProvider))
	}
	if m.meterProvider != nil {
		opts = append(opts, otelhttp.WithMeterProvider(m.meterProvider))
	}
	return otelhttp.NewMiddleware(m.config.ServiceName, opts...)
}

// Tracer returns a tracer for the service
func (m *Manager) Tracer(name string) oteltrace.Tracer {
	if m == nil || m.tracerProvider == nil {
		return noop.NewTracerProvider().Tracer(name)
	}
	return m.tracerProvider.Tracer(name)
}

// Shutdown flushes and stops all providers.
func (m *Manager) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	var firstErr error
	for _, shutdown := range m.shutdownFuncs {
		if err := shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	m.shutdownFuncs = nil
	return firstErr
}
