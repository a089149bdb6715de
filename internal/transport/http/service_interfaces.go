package http

import (
	"context"
	"io"

	"retailcast/internal/basket"
	"retailcast/internal/dataprocessing"
	"retailcast/pkg/contracts/domain"
)

// BasketServiceInterface defines the basket analysis operations
type BasketServiceInterface interface {
	Thresholds(req domain.BasketAnalysisRequest) basket.Thresholds
	Analyze(ctx context.Context, req domain.BasketAnalysisRequest) (*domain.BasketAnalysisResponse, error)
	AnalyzeTransactions(ctx context.Context, txns []domain.Transaction, th basket.Thresholds) (*domain.BasketAnalysisResponse, error)
	Recommend(ctx context.Context, req domain.RecommendationRequest) (*domain.RecommendationResponse, error)
}

// ForecastServiceInterface defines the forecasting and sales operations
type ForecastServiceInterface interface {
	Forecast(ctx context.Context, req domain.ForecastRequest) (*domain.ForecastResponse, error)
	SalesSeries(ctx context.Context, q domain.SalesQuery) (*domain.SalesSeriesResponse, error)
	SalesTrends(ctx context.Context, q domain.SalesQuery) (*domain.SalesTrends, error)
	SalesForecast(ctx context.Context, q domain.SalesQuery) (*domain.SalesForecastResponse, error)
}

// IngestServiceInterface parses and describes uploaded line-item files
type IngestServiceInterface interface {
	Ingest(ctx context.Context, r io.Reader, filename string) (*dataprocessing.Dataset, error)
	Summarize(ctx context.Context, ds *dataprocessing.Dataset) *domain.DataSummary
}
