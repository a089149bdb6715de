package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"retailcast/internal/basket"
	"retailcast/internal/config"
	"retailcast/internal/infrastructure"
	"retailcast/pkg/contracts/domain"
)

// BasketService runs market-basket analysis and recommendations. It keeps
// no state between calls.
type BasketService struct {
	analyzer *basket.Analyzer
	cfg      config.AnalysisConfig
	metrics  *infrastructure.BusinessMetrics
	logger   *slog.Logger
}

// NewBasketService creates a basket service. metrics may be nil.
func NewBasketService(cfg config.AnalysisConfig, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *BasketService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BasketService{
		analyzer: basket.NewAnalyzer(cfg.MinerOptions(), logger),
		cfg:      cfg,
		metrics:  metrics,
		logger:   infrastructure.WithComponent(logger, "basket_service"),
	}
}

// Thresholds resolves the request thresholds, filling omitted ones from
// configuration
func (s *BasketService) Thresholds(req domain.BasketAnalysisRequest) basket.Thresholds {
	th := s.cfg.Thresholds()
	if req.MinSupport != nil {
		th.MinSupport = *req.MinSupport
	}
	if req.MinConfidence != nil {
		th.MinConfidence = *req.MinConfidence
	}
	if req.MinLift != nil {
		th.MinLift = *req.MinLift
	}
	return th
}

// Analyze mines frequent itemsets and rules from the request baskets
func (s *BasketService) Analyze(ctx context.Context, req domain.BasketAnalysisRequest) (*domain.BasketAnalysisResponse, error) {
	return s.AnalyzeTransactions(ctx, basket.TransactionsFromBaskets(req.Transactions), s.Thresholds(req))
}

// AnalyzeTransactions runs the analysis on prepared transactions
func (s *BasketService) AnalyzeTransactions(ctx context.Context, txns []domain.Transaction, th basket.Thresholds) (*domain.BasketAnalysisResponse, error) {
	analysisID := uuid.NewString()
	ctx, span := infrastructure.StartSpan(ctx, "basket.analyze",
		attribute.String("analysis.id", analysisID),
		attribute.Int("basket.transactions", len(txns)),
		attribute.Float64("basket.min_support", th.MinSupport),
		attribute.Float64("basket.min_confidence", th.MinConfidence),
		attribute.Float64("basket.min_lift", th.MinLift),
	)
	defer span.End()

	if limit := s.cfg.MaxTransactions; limit > 0 && len(txns) > limit {
		err := fmt.Errorf("%d transactions exceed the limit of %d: %w", len(txns), limit, ErrTooManyTransactions)
		infrastructure.RecordError(ctx, err)
		infrastructure.RecordAnalysisMetrics(ctx, s.metrics, len(txns), 0, 0, 0, err)
		return nil, err
	}

	start := time.Now()
	analysis, err := s.analyzer.Run(ctx, txns, th)
	duration := time.Since(start)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		infrastructure.RecordAnalysisMetrics(ctx, s.metrics, len(txns), 0, 0, duration, err)
		s.logger.WarnContext(ctx, "basket analysis failed",
			slog.String("analysis_id", analysisID),
			slog.Int("transactions", len(txns)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	infrastructure.RecordAnalysisMetrics(ctx, s.metrics, len(txns), len(analysis.Itemsets), len(analysis.Rules), duration, nil)
	infrastructure.AddSpanEvent(ctx, "analysis.completed",
		attribute.Int("basket.itemsets", len(analysis.Itemsets)),
		attribute.Int("basket.rules", len(analysis.Rules)),
	)
	s.logger.InfoContext(ctx, "basket analysis served",
		slog.String("analysis_id", analysisID),
		slog.String("dataset_size", analysis.Statistics.DatasetSize),
		slog.Int("rules", len(analysis.Rules)),
	)

	return &domain.BasketAnalysisResponse{
		AnalysisID:       analysisID,
		FrequentItemsets: analysis.Itemsets,
		AssociationRules: analysis.Rules,
		Statistics:       analysis.Statistics,
	}, nil
}

// Recommend ranks next items for a partial basket from supplied rules
func (s *BasketService) Recommend(ctx context.Context, req domain.RecommendationRequest) (*domain.RecommendationResponse, error) {
	topN := req.TopN
	if topN <= 0 {
		topN = s.cfg.DefaultTopN
	}
	if s.cfg.MaxTopN > 0 && topN > s.cfg.MaxTopN {
		return nil, fmt.Errorf("top_n %d exceeds the limit of %d: %w", topN, s.cfg.MaxTopN, basket.ErrInvalidInput)
	}

	ctx, span := infrastructure.StartSpan(ctx, "basket.recommend",
		attribute.Int("basket.rules", len(req.Rules)),
		attribute.Int("basket.current_items", len(req.CurrentItems)),
		attribute.Int("basket.top_n", topN),
	)
	defer span.End()

	recs := basket.Recommend(req.Rules, req.CurrentItems, topN)
	infrastructure.RecordRecommendations(ctx, s.metrics, len(recs))

	s.logger.DebugContext(ctx, "recommendations ranked",
		slog.Int("rules", len(req.Rules)),
		slog.Int("recommendations", len(recs)),
	)
	return &domain.RecommendationResponse{Recommendations: recs}, nil
}
