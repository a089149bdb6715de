package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"retailcast/internal/basket"
	"retailcast/internal/config"
)

// MeterName is the instrumentation scope for every tracer and meter
const MeterName = "retailcast"

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string // "stdout" or "none"
	TraceWriter    io.Writer
	EnableMetrics  bool
	SampleRatio    float64
}

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	Registry       *prom.Registry
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// DefaultOTelConfig returns a configuration with metrics on and no trace export
func DefaultOTelConfig() *OTelConfig {
	return OTelConfigFrom(config.Default().Telemetry, config.AppVersion)
}

// OTelConfigFrom adapts the telemetry section of the application config
func OTelConfigFrom(cfg config.TelemetryConfig, version string) *OTelConfig {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	return &OTelConfig{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: version,
		Environment:    env,
		TraceExporter:  cfg.TraceExporter,
		EnableMetrics:  cfg.MetricsEnabled,
		SampleRatio:    1.0,
	}
}

// InitializeOTel sets up tracing, metrics and the Prometheus scrape handler.
// A tracer provider is always installed so request logs carry trace IDs;
// spans are only exported when a trace exporter is configured.
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}
	ctx := context.Background()

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	)

	providers := &OTelProviders{
		Logger: logger.With(slog.String("component", "telemetry")),
	}

	if err := initializeTracing(cfg, res, providers); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	if err := initializeMetrics(cfg, res, providers); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	providers.Logger.InfoContext(ctx, "OpenTelemetry initialized",
		slog.String("service", cfg.ServiceName),
		slog.String("version", cfg.ServiceVersion),
		slog.String("trace_exporter", cfg.TraceExporter),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	return providers, nil
}

func initializeTracing(cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	}

	switch cfg.TraceExporter {
	case config.TraceExporterStdout:
		w := cfg.TraceWriter
		if w == nil {
			w = os.Stdout
		}
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return fmt.Errorf("failed to create trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	case config.TraceExporterNone, "":
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	tp := sdktrace.NewTracerProvider(opts...)
	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))
	otel.SetTracerProvider(tp)
	return nil
}

func initializeMetrics(cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	if !cfg.EnableMetrics {
		providers.Meter = noop.NewMeterProvider().Meter(MeterName)
		return nil
	}

	reg := prom.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	providers.Registry = reg
	providers.PrometheusHTTP = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	providers.MeterProvider = mp
	providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))
	otel.SetMeterProvider(mp)
	return nil
}

// BusinessMetrics holds all application-specific metrics
type BusinessMetrics struct {
	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	// Basket analysis metrics
	AnalysisRunsTotal     metric.Int64Counter
	AnalysisDuration      metric.Float64Histogram
	TransactionsAnalyzed  metric.Int64Counter
	FrequentItemsetsFound metric.Int64Histogram
	RulesGenerated        metric.Int64Histogram
	ResourceLimitHits     metric.Int64Counter
	RecommendationsServed metric.Int64Counter

	// Forecast metrics
	ForecastRunsTotal      metric.Int64Counter
	ForecastDuration       metric.Float64Histogram
	ForecastModelsExcluded metric.Int64Counter

	// Ingest metrics
	SalesLinesIngested metric.Int64Counter
}

// CreateBusinessMetrics creates application-specific metrics
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	var (
		m   BusinessMetrics
		err error
	)
	counter := func(dst *metric.Int64Counter, name, desc string) {
		if err != nil {
			return
		}
		*dst, err = meter.Int64Counter(name, metric.WithDescription(desc))
	}
	histogram := func(dst *metric.Float64Histogram, name, desc string) {
		if err != nil {
			return
		}
		*dst, err = meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("s"))
	}
	sizes := func(dst *metric.Int64Histogram, name, desc string) {
		if err != nil {
			return
		}
		*dst, err = meter.Int64Histogram(name, metric.WithDescription(desc))
	}

	counter(&m.HTTPRequestsTotal, "http_requests_total", "Total number of HTTP requests")
	histogram(&m.HTTPRequestDuration, "http_request_duration_seconds", "HTTP request duration in seconds")
	if err == nil {
		m.HTTPActiveRequests, err = meter.Int64UpDownCounter("http_active_requests",
			metric.WithDescription("Number of active HTTP requests"))
	}

	counter(&m.AnalysisRunsTotal, "basket_analysis_runs_total", "Basket analysis runs by outcome")
	histogram(&m.AnalysisDuration, "basket_analysis_duration_seconds", "Basket analysis duration in seconds")
	counter(&m.TransactionsAnalyzed, "basket_transactions_analyzed_total", "Transactions fed to the miner")
	sizes(&m.FrequentItemsetsFound, "basket_frequent_itemsets", "Frequent itemsets per analysis")
	sizes(&m.RulesGenerated, "basket_rules", "Association rules per analysis")
	counter(&m.ResourceLimitHits, "basket_resource_limit_hits_total", "Analyses aborted by a mining limit")
	counter(&m.RecommendationsServed, "basket_recommendations_total", "Recommendations returned")

	counter(&m.ForecastRunsTotal, "forecast_runs_total", "Forecast runs by outcome")
	histogram(&m.ForecastDuration, "forecast_duration_seconds", "Forecast duration in seconds")
	counter(&m.ForecastModelsExcluded, "forecast_models_excluded_total", "Ensemble members dropped after a failed fit")

	counter(&m.SalesLinesIngested, "sales_lines_ingested_total", "Sale lines parsed from uploads")

	if err != nil {
		return nil, err
	}
	return &m, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, basket.ErrResourceLimitExceeded):
		return "resource_limit"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	default:
		return "failure"
	}
}

// RecordAnalysisMetrics records one basket analysis run
func RecordAnalysisMetrics(ctx context.Context, m *BusinessMetrics, transactions, itemsets, rules int, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := attribute.String("status", outcome(err))

	m.AnalysisRunsTotal.Add(ctx, 1, metric.WithAttributes(status))
	m.AnalysisDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(status))
	m.TransactionsAnalyzed.Add(ctx, int64(transactions))
	if err != nil {
		if errors.Is(err, basket.ErrResourceLimitExceeded) {
			m.ResourceLimitHits.Add(ctx, 1)
		}
		return
	}
	m.FrequentItemsetsFound.Record(ctx, int64(itemsets))
	m.RulesGenerated.Record(ctx, int64(rules))
}

// RecordRecommendations records the size of one recommendation response
func RecordRecommendations(ctx context.Context, m *BusinessMetrics, count int) {
	if m == nil {
		return
	}
	m.RecommendationsServed.Add(ctx, int64(count))
}

// RecordForecastMetrics records one forecast run
func RecordForecastMetrics(ctx context.Context, m *BusinessMetrics, degraded bool, excluded []string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("status", outcome(err)),
		attribute.Bool("degraded", degraded),
	)
	m.ForecastRunsTotal.Add(ctx, 1, attrs)
	m.ForecastDuration.Record(ctx, duration.Seconds(), attrs)
	for _, name := range excluded {
		m.ForecastModelsExcluded.Add(ctx, 1, metric.WithAttributes(attribute.String("model", name)))
	}
}

// RecordIngest records sale lines parsed from an upload
func RecordIngest(ctx context.Context, m *BusinessMetrics, format string, lines int) {
	if m == nil {
		return
	}
	m.SalesLinesIngested.Add(ctx, int64(lines), metric.WithAttributes(attribute.String("format", format)))
}

// Shutdown flushes and stops the providers
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

	if err := errors.Join(errs...); err != nil {
		return err
	}

	p.Logger.InfoContext(ctx, "OpenTelemetry shutdown complete")
	return nil
}

func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// TraceIDFromContext returns the active span's trace ID, if any
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}

// StartSpan starts a span on the global tracer
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(MeterName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error, options ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() || err == nil {
		return
	}

	span.RecordError(err, options...)
	span.SetStatus(codes.Error, err.Error())
}

// AddSpanEvent adds an event to the current span
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
