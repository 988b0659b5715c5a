package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	ServiceName    = "data-bridge"
	ServiceVersion = "v1.0.0"
	MeterName      = "databridge"
)

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string // "stdout", "none"
	MetricExporter string // "prometheus", "none"
	EnableMetrics  bool
	EnableTracing  bool
	SampleRatio    float64
}

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// DefaultOTelConfig returns a default OpenTelemetry configuration
func DefaultOTelConfig() *OTelConfig {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	return &OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: ServiceVersion,
		Environment:    env,
		TraceExporter:  "none",
		MetricExporter: "prometheus",
		EnableMetrics:  true,
		EnableTracing:  false,
		SampleRatio:    1.0,
	}
}

// InitializeOTel initializes OpenTelemetry providers per configuration
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}

	ctx := context.Background()

	logger.InfoContext(ctx, "Initializing OpenTelemetry",
		slog.String("service", cfg.ServiceName),
		slog.String("version", cfg.ServiceVersion),
		slog.String("environment", cfg.Environment),
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	res, err := createResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	providers := &OTelProviders{
		Logger: logger,
	}

	if cfg.EnableTracing {
		if err := initializeTracing(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	if cfg.EnableMetrics {
		if err := initializeMetrics(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.InfoContext(ctx, "OpenTelemetry initialization complete",
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	return providers, nil
}

// createResource creates the OpenTelemetry resource
func createResource(cfg *OTelConfig) (*resource.Resource, error) {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	), nil
}

// initializeTracing sets up OpenTelemetry tracing
func initializeTracing(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.TraceExporter {
	case "stdout":
		exporter, err = stdouttrace.New(
			stdouttrace.WithPrettyPrint(),
		)
	case "none":
		return nil
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	)

	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))

	otel.SetTracerProvider(tp)

	providers.Logger.InfoContext(ctx, "Tracing initialized",
		slog.String("exporter", cfg.TraceExporter),
		slog.Float64("sample_ratio", cfg.SampleRatio))

	return nil
}

// initializeMetrics sets up OpenTelemetry metrics
func initializeMetrics(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	switch cfg.MetricExporter {
	case "prometheus":
		// Dedicated registry so re-initialization never collides with the
		// process-global default registry.
		registry := promclient.NewRegistry()
		exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
		if err != nil {
			return fmt.Errorf("failed to create prometheus exporter: %w", err)
		}

		providers.PrometheusHTTP = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)

		providers.MeterProvider = mp
		providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))

		otel.SetMeterProvider(mp)

	case "none":
		return nil
	default:
		return fmt.Errorf("unsupported metric exporter: %s", cfg.MetricExporter)
	}

	providers.Logger.InfoContext(ctx, "Metrics initialized",
		slog.String("exporter", cfg.MetricExporter))

	return nil
}

// PipelineMetrics holds the bridge's application-specific metrics.
type PipelineMetrics struct {
	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	// Terminal gateway metrics
	TerminalRequestsTotal   metric.Int64Counter
	TerminalRequestDuration metric.Float64Histogram
	TerminalErrors          metric.Int64Counter

	// Datastore metrics
	RecordsUpserted metric.Int64Counter
	UpsertBatches   metric.Int64Counter
	UpsertFailures  metric.Int64Counter

	// Pipeline metrics
	IngestRuns        metric.Int64Counter
	IngestRowsSkipped metric.Int64Counter
	CalendarEvents    metric.Int64Counter
	QuotesResolved    metric.Int64Counter
}

// CreatePipelineMetrics creates the bridge's metrics on the given meter.
func CreatePipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	httpRequestsTotal, err := meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	httpRequestDuration, err := meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	httpActiveRequests, err := meter.Int64UpDownCounter(
		"http_active_requests",
		metric.WithDescription("Number of active HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	terminalRequestsTotal, err := meter.Int64Counter(
		"terminal_requests_total",
		metric.WithDescription("Total number of terminal gateway requests"),
	)
	if err != nil {
		return nil, err
	}

	terminalRequestDuration, err := meter.Float64Histogram(
		"terminal_request_duration_seconds",
		metric.WithDescription("Terminal gateway request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	terminalErrors, err := meter.Int64Counter(
		"terminal_errors_total",
		metric.WithDescription("Total number of terminal gateway errors by kind"),
	)
	if err != nil {
		return nil, err
	}

	recordsUpserted, err := meter.Int64Counter(
		"datastore_records_upserted_total",
		metric.WithDescription("Total number of records upserted into the datastore"),
	)
	if err != nil {
		return nil, err
	}

	upsertBatches, err := meter.Int64Counter(
		"datastore_upsert_batches_total",
		metric.WithDescription("Total number of upsert batches written"),
	)
	if err != nil {
		return nil, err
	}

	upsertFailures, err := meter.Int64Counter(
		"datastore_upsert_failures_total",
		metric.WithDescription("Total number of failed upsert batches"),
	)
	if err != nil {
		return nil, err
	}

	ingestRuns, err := meter.Int64Counter(
		"ingest_runs_total",
		metric.WithDescription("Total number of export ingestion runs"),
	)
	if err != nil {
		return nil, err
	}

	ingestRowsSkipped, err := meter.Int64Counter(
		"ingest_rows_skipped_total",
		metric.WithDescription("Total number of source rows skipped during ingestion"),
	)
	if err != nil {
		return nil, err
	}

	calendarEvents, err := meter.Int64Counter(
		"calendar_events_total",
		metric.WithDescription("Total number of classified calendar events"),
	)
	if err != nil {
		return nil, err
	}

	quotesResolved, err := meter.Int64Counter(
		"quotes_resolved_total",
		metric.WithDescription("Total number of resolved quote prices"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		HTTPRequestsTotal:   httpRequestsTotal,
		HTTPRequestDuration: httpRequestDuration,
		HTTPActiveRequests:  httpActiveRequests,

		TerminalRequestsTotal:   terminalRequestsTotal,
		TerminalRequestDuration: terminalRequestDuration,
		TerminalErrors:          terminalErrors,

		RecordsUpserted: recordsUpserted,
		UpsertBatches:   upsertBatches,
		UpsertFailures:  upsertFailures,

		IngestRuns:        ingestRuns,
		IngestRowsSkipped: ingestRowsSkipped,
		CalendarEvents:    calendarEvents,
		QuotesResolved:    quotesResolved,
	}, nil
}

// Shutdown gracefully shuts down OpenTelemetry providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}

	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("opentelemetry shutdown errors: %v", errs)
	}

	p.Logger.InfoContext(ctx, "OpenTelemetry shutdown complete")
	return nil
}

// generateInstanceID generates a unique instance identifier
func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error, options ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.RecordError(err, options...)
	span.SetStatus(codes.Error, err.Error())
}

// RecordHTTPMetrics records the standard per-request metrics.
func RecordHTTPMetrics(ctx context.Context, metrics *PipelineMetrics, method, route string, status int, duration time.Duration) {
	if metrics == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	}
	metrics.HTTPRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	metrics.HTTPRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordTerminalMetrics records one gateway call outcome. errKind is empty
// on success, otherwise the FetchError kind.
func RecordTerminalMetrics(ctx context.Context, metrics *PipelineMetrics, op string, duration time.Duration, errKind string) {
	if metrics == nil {
		return
	}

	attrs := []attribute.KeyValue{attribute.String("op", op)}
	metrics.TerminalRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	metrics.TerminalRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	if errKind != "" {
		metrics.TerminalErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("op", op),
			attribute.String("kind", errKind),
		))
	}
}

// RecordUpsertMetrics records one batch write outcome.
func RecordUpsertMetrics(ctx context.Context, metrics *PipelineMetrics, table string, rows int, err error) {
	if metrics == nil {
		return
	}

	attrs := []attribute.KeyValue{attribute.String("table", table)}
	metrics.UpsertBatches.Add(ctx, 1, metric.WithAttributes(attrs...))
	if err != nil {
		metrics.UpsertFailures.Add(ctx, 1, metric.WithAttributes(attrs...))
		return
	}
	metrics.RecordsUpserted.Add(ctx, int64(rows), metric.WithAttributes(attrs...))
}
