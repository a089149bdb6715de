package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"retailcast/internal/config"
	"retailcast/internal/forecast"
	"retailcast/internal/infrastructure"
	"retailcast/pkg/contracts/domain"
)

// ForecastService forecasts daily series and aggregates sales logs into them
type ForecastService struct {
	ensemble *forecast.Ensemble
	cfg      config.ForecastConfig
	metrics  *infrastructure.BusinessMetrics
	logger   *slog.Logger
}

// NewForecastService creates a forecast service. metrics may be nil.
func NewForecastService(cfg config.ForecastConfig, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *ForecastService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ForecastService{
		ensemble: forecast.NewEnsemble(cfg.EnsembleOptions(), logger),
		cfg:      cfg,
		metrics:  metrics,
		logger:   infrastructure.WithComponent(logger, "forecast_service"),
	}
}

func (s *ForecastService) horizon(days int) int {
	if days <= 0 {
		return s.cfg.DefaultHorizonDays
	}
	return days
}

// Forecast predicts the requested horizon of a caller-supplied series
func (s *ForecastService) Forecast(ctx context.Context, req domain.ForecastRequest) (*domain.ForecastResponse, error) {
	result, err := s.ForecastSeries(ctx, req.Series, s.horizon(req.HorizonDays))
	if err != nil {
		return nil, err
	}
	resp := result.Response()
	return &resp, nil
}

// ForecastSeries runs the ensemble and records its metrics
func (s *ForecastService) ForecastSeries(ctx context.Context, series []domain.SeriesPoint, horizon int) (*forecast.Result, error) {
	ctx, span := infrastructure.StartSpan(ctx, "forecast.ensemble",
		attribute.Int("forecast.history", len(series)),
		attribute.Int("forecast.horizon", horizon),
	)
	defer span.End()

	start := time.Now()
	result, err := s.ensemble.Forecast(ctx, series, horizon)
	duration := time.Since(start)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		infrastructure.RecordForecastMetrics(ctx, s.metrics, false, nil, duration, err)
		s.logger.WarnContext(ctx, "forecast failed",
			slog.Int("history", len(series)),
			slog.Int("horizon", horizon),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	infrastructure.RecordForecastMetrics(ctx, s.metrics, result.Degraded, result.Excluded, duration, nil)
	span.SetAttributes(
		attribute.Bool("forecast.degraded", result.Degraded),
		attribute.Int("forecast.backtest_window", result.BacktestWindow),
	)
	for _, w := range result.Warnings {
		infrastructure.AddSpanEvent(ctx, "forecast.warning", attribute.String("warning", w.Error()))
	}
	return result, nil
}

// Aggregate buckets the query's sale lines into a daily series
func (s *ForecastService) Aggregate(ctx context.Context, q domain.SalesQuery) (*forecast.DailySeries, error) {
	if len(q.Lines) > 0 && !anyDated(q.Lines) {
		return nil, ErrNoSalesDates
	}

	_, span := infrastructure.StartSpan(ctx, "sales.aggregate",
		attribute.Int("sales.lines", len(q.Lines)),
		attribute.String("sales.product", q.Product),
		attribute.String("sales.category", q.Category),
	)
	defer span.End()

	series, err := forecast.Aggregate(q.Lines, forecast.Filter{Product: q.Product, Category: q.Category})
	if err != nil {
		return nil, err
	}
	s.logger.DebugContext(ctx, "sales aggregated",
		slog.Int("lines", len(q.Lines)),
		slog.Int("days", series.Len()),
	)
	return series, nil
}

// SalesSeries returns the aggregated days and the selected metric series
func (s *ForecastService) SalesSeries(ctx context.Context, q domain.SalesQuery) (*domain.SalesSeriesResponse, error) {
	series, err := s.Aggregate(ctx, q)
	if err != nil {
		return nil, err
	}
	points, err := series.Metric(q.Metric)
	if err != nil {
		return nil, err
	}
	return &domain.SalesSeriesResponse{
		Metric: metricName(q.Metric),
		Days:   series.Days,
		Series: points,
	}, nil
}

// SalesTrends summarises the aggregated sales
func (s *ForecastService) SalesTrends(ctx context.Context, q domain.SalesQuery) (*domain.SalesTrends, error) {
	series, err := s.Aggregate(ctx, q)
	if err != nil {
		return nil, err
	}
	trends := forecast.Trends(series)
	return &trends, nil
}

// SalesForecast aggregates the sales and forecasts the selected metric
func (s *ForecastService) SalesForecast(ctx context.Context, q domain.SalesQuery) (*domain.SalesForecastResponse, error) {
	series, err := s.Aggregate(ctx, q)
	if err != nil {
		return nil, err
	}
	points, err := series.Metric(q.Metric)
	if err != nil {
		return nil, err
	}

	result, err := s.ForecastSeries(ctx, points, s.horizon(q.HorizonDays))
	if err != nil {
		return nil, err
	}
	return &domain.SalesForecastResponse{
		Metric:           metricName(q.Metric),
		HistoryDays:      series.Len(),
		ForecastResponse: result.Response(),
	}, nil
}

func metricName(m string) string {
	m = strings.ToLower(strings.TrimSpace(m))
	if m == "" {
		return forecast.MetricRevenue
	}
	return m
}

func anyDated(lines []domain.SaleLine) bool {
	for _, l := range lines {
		if !l.Date.IsZero() {
			return true
		}
	}
	return false
}
