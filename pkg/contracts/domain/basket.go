package domain

import (
	"encoding/json"
	"math"
	"time"
)

// Transaction represents a single customer basket
type Transaction struct {
	ID    string   `json:"id,omitempty"`
	Items []string `json:"items" validate:"required,min=1,dive,required"`
}

// ItemSet represents a frequent combination of items
type ItemSet struct {
	Items   []string `json:"items"`
	Support float64  `json:"support"`
	Count   int      `json:"count"`
}

// Size returns the number of items in the set
func (s ItemSet) Size() int {
	return len(s.Items)
}

// AssociationRule represents an antecedent -> consequent rule with its strength metrics
type AssociationRule struct {
	Antecedent        []string `json:"antecedent" validate:"required,min=1"`
	Consequent        []string `json:"consequent" validate:"required,min=1"`
	Support           float64  `json:"support" validate:"min=0,max=1"`
	Confidence        float64  `json:"confidence" validate:"min=0,max=1"`
	Lift              float64  `json:"lift" validate:"min=0"`
	Conviction        Metric   `json:"conviction"`
	ConvictionInf     bool     `json:"conviction_infinite,omitempty"`
	AntecedentSupport float64  `json:"antecedent_support,omitempty"`
	ConsequentSupport float64  `json:"consequent_support,omitempty"`
}

// IsConvictionInfinite reports whether the rule never fails on the observed data
func (r AssociationRule) IsConvictionInfinite() bool {
	return r.ConvictionInf || math.IsInf(float64(r.Conviction), 1)
}

// Metric is a float that encodes non-finite values as JSON null
type Metric float64

// MarshalJSON implements json.Marshaler
func (m Metric) MarshalJSON() ([]byte, error) {
	f := float64(m)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

// UnmarshalJSON implements json.Unmarshaler
func (m *Metric) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Metric(math.Inf(1))
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*m = Metric(f)
	return nil
}

// Recommendation represents a suggested next item for a partial basket
type Recommendation struct {
	ItemID     string   `json:"item_id"`
	Confidence float64  `json:"confidence"`
	Lift       float64  `json:"lift"`
	Support    float64  `json:"support"`
	BasedOn    []string `json:"based_on"`
	RuleCount  int      `json:"rule_count"`
}

// BasketStatistics summarises a basket analysis run
type BasketStatistics struct {
	TotalTransactions      int           `json:"total_transactions"`
	TotalUniqueItems       int           `json:"total_unique_items"`
	AvgItemsPerTransaction float64       `json:"avg_items_per_transaction"`
	FrequentItemsetsCount  int           `json:"frequent_itemsets_count"`
	AssociationRulesCount  int           `json:"association_rules_count"`
	StrongRules            int           `json:"strong_rules"`
	VeryStrongRules        int           `json:"very_strong_rules"`
	MaxItemsetSize         int           `json:"max_itemset_size"`
	DatasetSize            string        `json:"dataset_size"`
	MinSupport             float64       `json:"min_support"`
	MinConfidence          float64       `json:"min_confidence"`
	MinLift                float64       `json:"min_lift"`
	Duration               time.Duration `json:"-"`
	DurationSeconds        float64       `json:"analysis_time_seconds"`
}

// BasketAnalysisRequest is the boundary request for market-basket analysis
type BasketAnalysisRequest struct {
	Transactions  [][]string `json:"transactions" validate:"required,min=1,dive,min=1,dive,required"`
	MinSupport    *float64   `json:"min_support,omitempty" validate:"omitempty,gt=0,lte=1"`
	MinConfidence *float64   `json:"min_confidence,omitempty" validate:"omitempty,gte=0,lte=1"`
	MinLift       *float64   `json:"min_lift,omitempty" validate:"omitempty,gte=0"`
}

// BasketAnalysisResponse is the boundary response for market-basket analysis
type BasketAnalysisResponse struct {
	AnalysisID       string            `json:"analysis_id"`
	FrequentItemsets []ItemSet         `json:"frequent_itemsets"`
	AssociationRules []AssociationRule `json:"association_rules"`
	Statistics       BasketStatistics  `json:"statistics"`
}

// RecommendationRequest is the boundary request for next-item suggestions
type RecommendationRequest struct {
	Rules        []AssociationRule `json:"rules" validate:"dive"`
	CurrentItems []string          `json:"current_items" validate:"required,min=1,dive,required"`
	TopN         int               `json:"top_n,omitempty" validate:"omitempty,min=1,max=100"`
}

// RecommendationResponse is the boundary response for next-item suggestions
type RecommendationResponse struct {
	Recommendations []Recommendation `json:"recommendations"`
}
