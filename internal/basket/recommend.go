package basket

import (
	"sort"
	"strings"

	"retailcast/pkg/contracts/domain"
)

// DefaultTopN is the recommendation count used when a caller omits one
const DefaultTopN = 5

// candidate accumulates the rules that point at one item
type candidate struct {
	rec  domain.Recommendation
	rule *domain.AssociationRule
}

// Recommend suggests items for a partial basket. A rule contributes when its
// antecedent is contained in the basket; each item it points at (and the
// basket lacks) is scored by the strongest contributing rule: maximum lift,
// then that rule's confidence. topN <= 0 returns every candidate. No
// matching rule yields an empty, non-nil slice.
func Recommend(rules []domain.AssociationRule, currentItems []string, topN int) []domain.Recommendation {
	basket := make(map[string]struct{}, len(currentItems))
	for _, item := range currentItems {
		if item = strings.TrimSpace(item); item != "" {
			basket[item] = struct{}{}
		}
	}

	candidates := make(map[string]*candidate)
	for i := range rules {
		rule := &rules[i]
		if !containsAll(basket, rule.Antecedent) {
			continue
		}
		for _, item := range rule.Consequent {
			if _, owned := basket[item]; owned {
				continue
			}
			c, ok := candidates[item]
			if !ok {
				c = &candidate{rec: domain.Recommendation{ItemID: item}}
				candidates[item] = c
			}
			c.rec.RuleCount++
			if c.rule == nil || stronger(rule, c.rule) {
				c.rule = rule
			}
		}
	}

	out := make([]domain.Recommendation, 0, len(candidates))
	for _, c := range candidates {
		rec := c.rec
		rec.Lift = c.rule.Lift
		rec.Confidence = c.rule.Confidence
		rec.Support = c.rule.Support
		rec.BasedOn = append([]string(nil), c.rule.Antecedent...)
		out = append(out, rec)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Lift != out[j].Lift {
			return out[i].Lift > out[j].Lift
		}
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].ItemID < out[j].ItemID
	})

	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}

// stronger reports whether a beats b: higher lift, then higher confidence,
// then the simpler and lexicographically smaller antecedent
func stronger(a, b *domain.AssociationRule) bool {
	if a.Lift != b.Lift {
		return a.Lift > b.Lift
	}
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if len(a.Antecedent) != len(b.Antecedent) {
		return len(a.Antecedent) < len(b.Antecedent)
	}
	return ruleSideKey(a.Antecedent) < ruleSideKey(b.Antecedent)
}

func containsAll(set map[string]struct{}, items []string) bool {
	if len(items) == 0 {
		return false
	}
	for _, item := range items {
		if _, ok := set[item]; !ok {
			return false
		}
	}
	return true
}
