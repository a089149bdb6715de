// Package basket implements market-basket analysis over retail transactions.
//
// The pipeline is leaf-first:
//
//   - index.go: inverted index from item to the transactions containing it
//   - miner.go: level-wise Apriori enumeration of frequent itemsets
//   - rules.go: association rules with support, confidence, lift and conviction
//   - recommend.go: next-item suggestions for a partial basket
//   - summary.go: dataset and rule statistics
//
// # Usage Example
//
//	analyzer := basket.NewAnalyzer(basket.DefaultOptions(), slog.Default())
//	analysis, err := analyzer.Run(ctx, transactions, basket.DefaultThresholds())
//	if err != nil {
//	    return err
//	}
//	recs := basket.Recommend(analysis.Rules, []string{"bread"}, 5)
//
// # Determinism
//
// Items are mapped to dense IDs in lexicographic order, so every tie in the
// output is broken by item identifier and never by input order. Mining the
// same snapshot twice yields identical ordered output, including when support
// counting is sharded across workers.
//
// # Resource Limits
//
// Dense baskets grow the candidate space combinatorially. The miner enforces
// a maximum itemset size, a per-level candidate ceiling, a total itemset
// ceiling and a wall-clock timeout, and fails with ErrResourceLimitExceeded
// rather than running unbounded.
package basket
