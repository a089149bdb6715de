package basket

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"retailcast/pkg/contracts/domain"
)

// Default rule thresholds, applied uniformly wherever a caller omits one
const (
	DefaultMinSupport    = 0.01
	DefaultMinConfidence = 0.2
	DefaultMinLift       = 1.0

	// StrongLift and VeryStrongLift classify rules in statistics
	StrongLift     = 2.0
	VeryStrongLift = 3.0

	// metricEpsilon absorbs float error at exact threshold boundaries
	metricEpsilon = 1e-12
)

// Thresholds filters generated rules
type Thresholds struct {
	MinSupport    float64
	MinConfidence float64
	MinLift       float64
}

// DefaultThresholds returns the documented default thresholds
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinSupport:    DefaultMinSupport,
		MinConfidence: DefaultMinConfidence,
		MinLift:       DefaultMinLift,
	}
}

// Validate checks every threshold range
func (t Thresholds) Validate() error {
	switch {
	case math.IsNaN(t.MinSupport) || t.MinSupport <= 0 || t.MinSupport > 1:
		return fmt.Errorf("min_support %.6f outside (0, 1]: %w", t.MinSupport, ErrInvalidInput)
	case math.IsNaN(t.MinConfidence) || t.MinConfidence < 0 || t.MinConfidence > 1:
		return fmt.Errorf("min_confidence %.6f outside [0, 1]: %w", t.MinConfidence, ErrInvalidInput)
	case math.IsNaN(t.MinLift) || t.MinLift < 0 || math.IsInf(t.MinLift, 0):
		return fmt.Errorf("min_lift %.6f must be a finite value >= 0: %w", t.MinLift, ErrInvalidInput)
	}
	return nil
}

// Conviction returns (1 - consequentSupport) / (1 - confidence), or +Inf
// when the rule never fails on the observed data.
func Conviction(confidence, consequentSupport float64) float64 {
	if confidence >= 1-metricEpsilon {
		return math.Inf(1)
	}
	return (1 - consequentSupport) / (1 - confidence)
}

// GenerateRules derives every rule from the frequent itemsets of size two or
// more that passes all three thresholds. Rules are ordered by lift, then
// confidence (both descending), then antecedent size ascending, then item
// identifiers.
func GenerateRules(ctx context.Context, result *MiningResult, th Thresholds) ([]domain.AssociationRule, error) {
	if err := th.Validate(); err != nil {
		return nil, err
	}

	rules := make([]domain.AssociationRule, 0)
	if result == nil || result.Total() == 0 {
		return rules, nil
	}
	n := float64(result.Total())

	for k, level := range result.Levels() {
		if k == 0 {
			continue
		}
		if err := checkDeadline(ctx); err != nil {
			return nil, err
		}
		for _, fs := range level {
			size := len(fs.IDs)
			support := float64(fs.Count) / n
			if support+metricEpsilon < th.MinSupport {
				continue
			}

			ante := make([]int, 0, size)
			cons := make([]int, 0, size)
			for mask := 1; mask < (1<<size)-1; mask++ {
				ante, cons = ante[:0], cons[:0]
				for bit, id := range fs.IDs {
					if mask&(1<<bit) != 0 {
						ante = append(ante, id)
					} else {
						cons = append(cons, id)
					}
				}

				anteCount := result.Count(ante)
				if anteCount == 0 {
					continue
				}
				anteSupport := float64(anteCount) / n
				consSupport := float64(result.Count(cons)) / n

				confidence := float64(fs.Count) / float64(anteCount)
				if confidence+metricEpsilon < th.MinConfidence {
					continue
				}
				lift := 0.0
				if consSupport > 0 {
					lift = confidence / consSupport
				}
				if lift+metricEpsilon < th.MinLift {
					continue
				}

				conviction := Conviction(confidence, consSupport)
				rules = append(rules, domain.AssociationRule{
					Antecedent:        result.index.Items(ante),
					Consequent:        result.index.Items(cons),
					Support:           support,
					Confidence:        confidence,
					Lift:              lift,
					Conviction:        domain.Metric(conviction),
					ConvictionInf:     math.IsInf(conviction, 1),
					AntecedentSupport: anteSupport,
					ConsequentSupport: consSupport,
				})
			}
		}
	}

	SortRules(rules)
	return rules, nil
}

// SortRules orders rules deterministically: lift desc, confidence desc,
// antecedent size asc, then antecedent and consequent identifiers.
func SortRules(rules []domain.AssociationRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		a, b := rules[i], rules[j]
		if a.Lift != b.Lift {
			return a.Lift > b.Lift
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if len(a.Antecedent) != len(b.Antecedent) {
			return len(a.Antecedent) < len(b.Antecedent)
		}
		if ka, kb := ruleSideKey(a.Antecedent), ruleSideKey(b.Antecedent); ka != kb {
			return ka < kb
		}
		return ruleSideKey(a.Consequent) < ruleSideKey(b.Consequent)
	})
}

// ruleSideKey joins items with a separator that cannot appear after trimming
func ruleSideKey(items []string) string {
	return strings.Join(items, "\x00")
}
