package basket

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"retailcast/pkg/contracts/domain"
)

// Analysis is the complete output of one basket analysis run
type Analysis struct {
	Itemsets   []domain.ItemSet
	Rules      []domain.AssociationRule
	Statistics domain.BasketStatistics
	Result     *MiningResult
}

// Analyzer runs index, miner and rule generation as one pipeline
type Analyzer struct {
	miner  *Miner
	logger *slog.Logger
}

// NewAnalyzer creates an analyzer with the given mining limits
func NewAnalyzer(opts Options, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		miner:  NewMiner(opts, logger),
		logger: logger.With(slog.String("component", "basket_analyzer")),
	}
}

// Run validates input, mines frequent itemsets and generates rules.
// Validation happens before any mining work.
func (a *Analyzer) Run(ctx context.Context, txns []domain.Transaction, th Thresholds) (*Analysis, error) {
	start := time.Now()

	if err := th.Validate(); err != nil {
		return nil, err
	}
	idx, err := NewIndex(txns)
	if err != nil {
		return nil, err
	}

	result, err := a.miner.Mine(ctx, idx, th.MinSupport)
	if err != nil {
		return nil, fmt.Errorf("mine frequent itemsets: %w", err)
	}

	rules, err := GenerateRules(ctx, result, th)
	if err != nil {
		return nil, fmt.Errorf("generate rules: %w", err)
	}

	duration := time.Since(start)
	analysis := &Analysis{
		Itemsets:   result.Itemsets(),
		Rules:      rules,
		Statistics: Summarize(result, rules, th, duration),
		Result:     result,
	}

	a.logger.InfoContext(ctx, "basket analysis completed",
		slog.Int("transactions", idx.Len()),
		slog.Int("frequent_itemsets", len(analysis.Itemsets)),
		slog.Int("rules", len(rules)),
		slog.Duration("duration", duration),
	)
	return analysis, nil
}

// TransactionsFromBaskets wraps raw baskets as transactions with positional IDs
func TransactionsFromBaskets(baskets [][]string) []domain.Transaction {
	txns := make([]domain.Transaction, len(baskets))
	for i, items := range baskets {
		txns[i] = domain.Transaction{ID: fmt.Sprintf("T%d", i+1), Items: items}
	}
	return txns
}
