// Package observability wires OpenTelemetry tracing and metrics for the
// service: OTLP or console span export, a Prometheus metrics endpoint and the
// counters the parse and admission paths record.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/rajibrjb/AiResumeParserApi/internal/config"
)

// Metrics holds the service's custom instruments.
type Metrics struct {
	ParseDuration metric.Float64Histogram
	ParseCount    metric.Int64Counter
	ParseErrors   metric.Int64Counter

	QuotaDecisions metric.Int64Counter
	RateLimitHits  metric.Int64Counter
}

// Manager owns the OpenTelemetry providers and their shutdown.
type Manager struct {
	cfg            *config.Config
	tracerProvider *trace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	metrics        *Metrics
	shutdownFuncs  []func(context.Context) error
}

// NewManager sets up tracing and metrics per the configuration. A disabled
// configuration yields a manager whose middleware and tracer are no-ops.
func NewManager(cfg *config.Config) (*Manager, error) {
	m := &Manager{cfg: cfg}
	if !cfg.Observability.Enabled {
		return m, nil
	}

	if err := m.initTracing(); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	return m, nil
}

func (m *Manager) newResource() (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(m.cfg.Observability.ServiceName),
			semconv.ServiceVersion(m.cfg.Observability.ServiceVersion),
			attribute.String("service.instance.id", m.cfg.Observability.ServiceInstance),
		),
	)
}

func (m *Manager) initTracing() error {
	var (
		exporter trace.SpanExporter
		err      error
	)
	switch {
	case m.cfg.Observability.ConsoleOutput:
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	case m.cfg.Observability.OTLP.Enabled:
		exporter, err = m.newOTLPExporter()
	default:
		exporter = &noOpSpanExporter{}
	}
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := m.newResource()
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
		trace.WithSampler(trace.TraceIDRatioBased(m.cfg.Observability.Tracing.SampleRate)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	m.tracerProvider = tp
	m.shutdownFuncs = append(m.shutdownFuncs, tp.Shutdown)
	return nil
}

func (m *Manager) newOTLPExporter() (trace.SpanExporter, error) {
	otlpCfg := m.cfg.Observability.OTLP
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpointURL(otlpCfg.Endpoint),
	}
	if otlpCfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(otlpCfg.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(otlpCfg.Headers))
	}
	return otlptracehttp.New(context.Background(), opts...)
}

func (m *Manager) initMetrics() error {
	var readers []sdkmetric.Reader

	if m.cfg.Observability.Prometheus.Enabled {
		reader, mux, err := SetupPrometheusExporter(m.cfg.Observability.Prometheus)
		if err != nil {
			return fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}
		if reader != nil {
			readers = append(readers, reader)
			StartPrometheusServer(mux, m.cfg.Observability.Prometheus.Port)
		}
	}
	if len(readers) == 0 {
		readers = append(readers, sdkmetric.NewManualReader())
	}

	res, err := m.newResource()
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	for _, reader := range readers {
		opts = append(opts, sdkmetric.WithReader(reader))
	}

	mp := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(mp)
	m.meterProvider = mp
	m.shutdownFuncs = append(m.shutdownFuncs, mp.Shutdown)

	return m.initCustomMetrics()
}

func (m *Manager) initCustomMetrics() error {
	meter := m.meterProvider.Meter(m.cfg.Observability.ServiceName)
	m.metrics = &Metrics{}
	var err error

	m.metrics.ParseDuration, err = meter.Float64Histogram(
		"resumeparser_parse_duration_seconds",
		metric.WithDescription("Time spent parsing one resume end to end"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create parse duration metric: %w", err)
	}

	m.metrics.ParseCount, err = meter.Int64Counter(
		"resumeparser_parse_requests_total",
		metric.WithDescription("Total number of parse requests"),
	)
	if err != nil {
		return fmt.Errorf("failed to create parse count metric: %w", err)
	}

	m.metrics.ParseErrors, err = meter.Int64Counter(
		"resumeparser_parse_errors_total",
		metric.WithDescription("Total number of failed parse requests"),
	)
	if err != nil {
		return fmt.Errorf("failed to create parse error metric: %w", err)
	}

	m.metrics.QuotaDecisions, err = meter.Int64Counter(
		"resumeparser_quota_decisions_total",
		metric.WithDescription("Daily quota admission decisions"),
	)
	if err != nil {
		return fmt.Errorf("failed to create quota decision metric: %w", err)
	}

	m.metrics.RateLimitHits, err = meter.Int64Counter(
		"resumeparser_rate_limit_hits_total",
		metric.WithDescription("Total number of rate limit rejections"),
	)
	if err != nil {
		return fmt.Errorf("failed to create rate limit hits metric: %w", err)
	}

	return nil
}

// GetMetrics returns the metrics instance.
func (m *Manager) GetMetrics() *Metrics {
	if m.metrics == nil {
		return &Metrics{}
	}
	return m.metrics
}

// HTTPMiddleware returns HTTP middleware with OpenTelemetry instrumentation.
func (m *Manager) HTTPMiddleware() func(http.Handler) http.Handler {
	if !m.cfg.Observability.Enabled {
		return func(h http.Handler) http.Handler { return h }
	}
	return otelhttp.NewMiddleware(
		m.cfg.Observability.ServiceName,
		otelhttp.WithTracerProvider(m.tracerProvider),
		otelhttp.WithMeterProvider(m.meterProvider),
	)
}

// Tracer returns a tracer for the service.
func (m *Manager) Tracer(name string) oteltrace.Tracer {
	if !m.cfg.Observability.Enabled {
		return noop.NewTracerProvider().Tracer(name)
	}
	return otel.Tracer(name)
}

// Shutdown gracefully shuts down all observability components.
func (m *Manager) Shutdown(ctx context.Context) error {
	for _, shutdown := range m.shutdownFuncs {
		if err := shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}

// RecordParse records one parse attempt.
func (mt *Metrics) RecordParse(ctx context.Context, provider string, success bool, duration time.Duration) {
	if mt.ParseCount == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.Bool("success", success),
	)
	mt.ParseCount.Add(ctx, 1, attrs)
	mt.ParseDuration.Record(ctx, duration.Seconds(), attrs)
	if !success {
		mt.ParseErrors.Add(ctx, 1, attrs)
	}
}

// RecordQuotaDecision records one daily quota admission decision.
func (mt *Metrics) RecordQuotaDecision(ctx context.Context, allowed bool) {
	if mt.QuotaDecisions == nil {
		return
	}
	mt.QuotaDecisions.Add(ctx, 1, metric.WithAttributes(attribute.Bool("allowed", allowed)))
}

// RecordRateLimitHit records one per-minute limiter rejection.
func (mt *Metrics) RecordRateLimitHit(ctx context.Context) {
	if mt.RateLimitHits == nil {
		return
	}
	mt.RateLimitHits.Add(ctx, 1)
}

type noOpSpanExporter struct{}

func (n *noOpSpanExporter) ExportSpans(context.Context, []trace.ReadOnlySpan) error { return nil }
func (n *noOpSpanExporter) Shutdown(context.Context) error                          { return nil }
