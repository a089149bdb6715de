package infrastructure

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"

	"retailcast/internal/basket"
	"retailcast/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newProviders(t *testing.T, cfg *OTelConfig) *OTelProviders {
	t.Helper()
	providers, err := InitializeOTel(cfg, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, providers.Shutdown(ctx))
	})
	return providers
}

func scrape(t *testing.T, providers *OTelProviders) string {
	t.Helper()
	server := httptest.NewServer(providers.PrometheusHTTP)
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestOTelInitialization(t *testing.T) {
	providers := newProviders(t, nil)

	assert.NotNil(t, providers.TracerProvider)
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.PrometheusHTTP)

	assert.Contains(t, scrape(t, providers), "go_goroutines")
}

func TestOTelConfiguration(t *testing.T) {
	tests := []struct {
		name      string
		telemetry config.TelemetryConfig
		wantErr   bool
		metrics   bool
	}{
		{"defaults", config.Default().Telemetry, false, true},
		{"stdout traces", config.TelemetryConfig{ServiceName: "t", TraceExporter: config.TraceExporterStdout, MetricsEnabled: true}, false, true},
		{"metrics off", config.TelemetryConfig{ServiceName: "t", TraceExporter: config.TraceExporterNone}, false, false},
		{"unknown exporter", config.TelemetryConfig{ServiceName: "t", TraceExporter: "zipkin"}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := OTelConfigFrom(tt.telemetry, "test")
			cfg.TraceWriter = io.Discard

			providers, err := InitializeOTel(cfg, discardLogger())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer providers.Shutdown(context.Background())

			assert.NotNil(t, providers.Tracer)
			assert.NotNil(t, providers.Meter, "a noop meter stands in when metrics are off")
			assert.Equal(t, tt.metrics, providers.PrometheusHTTP != nil)
		})
	}
}

func TestStdoutTraceExport(t *testing.T) {
	var buf bytes.Buffer
	cfg := OTelConfigFrom(config.TelemetryConfig{ServiceName: "retailcast-test", TraceExporter: config.TraceExporterStdout}, "test")
	cfg.TraceWriter = &buf

	providers, err := InitializeOTel(cfg, discardLogger())
	require.NoError(t, err)

	ctx, span := StartSpan(context.Background(), "basket.analyze", attribute.Int("transactions", 5))
	AddSpanEvent(ctx, "mining.level_complete", attribute.Int("level", 2))
	RecordError(ctx, fmt.Errorf("boom"))
	span.End()

	require.NoError(t, providers.Shutdown(context.Background()))
	assert.Contains(t, buf.String(), "basket.analyze")
	assert.Contains(t, buf.String(), "mining.level_complete")
}

func TestTraceCorrelation(t *testing.T) {
	providers := newProviders(t, nil)

	ctx, span := providers.Tracer.Start(context.Background(), "forecast.run")
	defer span.End()

	traceID := TraceIDFromContext(ctx)
	require.NotEmpty(t, traceID)
	assert.Equal(t, span.SpanContext().TraceID().String(), traceID)
	assert.Equal(t, traceID, GetTraceID(ctx), "span trace IDs back the log correlation key")

	assert.Equal(t, "explicit", GetTraceID(WithTraceID(ctx, "explicit")))
}

func TestBusinessMetrics(t *testing.T) {
	providers := newProviders(t, nil)

	metrics, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	RecordAnalysisMetrics(ctx, metrics, 500, 42, 17, 120*time.Millisecond, nil)
	RecordAnalysisMetrics(ctx, metrics, 500, 0, 0, time.Second, fmt.Errorf("mine: %w", basket.ErrResourceLimitExceeded))
	RecordForecastMetrics(ctx, metrics, true, []string{"volatility"}, 10*time.Millisecond, nil)
	RecordRecommendations(ctx, metrics, 3)
	RecordIngest(ctx, metrics, "csv", 250)

	body := scrape(t, providers)
	for _, name := range []string{
		"basket_analysis_runs_total",
		"basket_resource_limit_hits_total",
		"basket_transactions_analyzed_total",
		"basket_recommendations_total",
		"forecast_runs_total",
		"forecast_models_excluded_total",
		"sales_lines_ingested_total",
	} {
		assert.Contains(t, body, name)
	}
	assert.Contains(t, body, `status="resource_limit"`)
}

func TestRecordHelpersTolerateNilMetrics(t *testing.T) {
	ctx := context.Background()
	assert.NotPanics(t, func() {
		RecordAnalysisMetrics(ctx, nil, 1, 1, 1, time.Second, nil)
		RecordForecastMetrics(ctx, nil, false, nil, time.Second, nil)
		RecordRecommendations(ctx, nil, 1)
		RecordIngest(ctx, nil, "xlsx", 1)
	})
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "success"},
		{fmt.Errorf("x: %w", basket.ErrResourceLimitExceeded), "resource_limit"},
		{context.DeadlineExceeded, "timeout"},
		{fmt.Errorf("other"), "failure"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, outcome(tt.err))
	}
}
