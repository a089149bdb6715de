package basket

import (
	"math"
	"time"

	"retailcast/pkg/contracts/domain"
)

// Dataset size classes by transaction count
const (
	DatasetSmall  = "Small"
	DatasetMedium = "Medium"
	DatasetLarge  = "Large"

	mediumDatasetFloor = 1000
	largeDatasetFloor  = 10000
)

// DatasetSizeClass buckets a transaction count
func DatasetSizeClass(n int) string {
	switch {
	case n > largeDatasetFloor:
		return DatasetLarge
	case n > mediumDatasetFloor:
		return DatasetMedium
	default:
		return DatasetSmall
	}
}

// Summarize builds the statistics block of an analysis
func Summarize(result *MiningResult, rules []domain.AssociationRule, th Thresholds, duration time.Duration) domain.BasketStatistics {
	stats := domain.BasketStatistics{
		AssociationRulesCount: len(rules),
		MinSupport:            th.MinSupport,
		MinConfidence:         th.MinConfidence,
		MinLift:               th.MinLift,
		Duration:              duration,
		DurationSeconds:       math.Round(duration.Seconds()*100) / 100,
	}
	if result != nil {
		idx := result.Index()
		stats.TotalTransactions = idx.Len()
		stats.TotalUniqueItems = idx.VocabularySize()
		stats.AvgItemsPerTransaction = math.Round(idx.AvgItemsPerTransaction()*100) / 100
		stats.FrequentItemsetsCount = result.Len()
		stats.MaxItemsetSize = result.MaxSize()
	}
	stats.DatasetSize = DatasetSizeClass(stats.TotalTransactions)

	for _, r := range rules {
		if r.Lift > StrongLift {
			stats.StrongRules++
		}
		if r.Lift > VeryStrongLift {
			stats.VeryStrongRules++
		}
	}
	return stats
}
