// Package services implements the business logic layer of RetailCast. It sits
// between the HTTP handlers and the analytics engines in internal/basket and
// internal/forecast.
//
// # Architecture
//
// Services follow these principles:
//
//	1. Constructor injection of configuration, metrics and *slog.Logger
//	2. Context propagation for cancellation, deadlines and tracing
//	3. No state between calls; every request carries its own data
//	4. Errors wrap the engine sentinels so callers can use errors.Is
//
// # Available Services
//
//	- BasketService: frequent itemsets, association rules and recommendations
//	- ForecastService: series forecasts, sales aggregation, trends
//	- IngestService: CSV and XLSX line-item uploads
//	- HealthService: health, readiness, liveness and version
//
// # Common Service Pattern
//
//	func (s *BasketService) Analyze(ctx context.Context, req domain.BasketAnalysisRequest) (*domain.BasketAnalysisResponse, error) {
//	    ctx, span := infrastructure.StartSpan(ctx, "basket.analyze")
//	    defer span.End()
//
//	    analysis, err := s.analyzer.Run(ctx, txns, th)
//	    infrastructure.RecordAnalysisMetrics(ctx, s.metrics, ...)
//	    if err != nil {
//	        return nil, err
//	    }
//	    ...
//	}
//
// # Error Handling
//
// Services return the engine errors unchanged or wrapped:
//
//	- basket.ErrInvalidInput / forecast.ErrInvalidInput for bad input
//	- basket.ErrResourceLimitExceeded, including ErrTooManyTransactions
//	- context.DeadlineExceeded when the request deadline passes
//
// internal/errors.ErrorHandler turns these into RFC 7807 problems.
package services
