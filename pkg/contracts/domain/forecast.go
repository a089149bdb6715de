package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format for calendar dates
const DateLayout = "2006-01-02"

// Date is a calendar day encoded as YYYY-MM-DD
type Date struct {
	time.Time
}

// NewDate truncates t to midnight UTC
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts YYYY-MM-DD or RFC 3339 input
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return NewDate(t), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected %s", s, DateLayout)
	}
	return NewDate(t), nil
}

// String returns the YYYY-MM-DD form
func (d Date) String() string {
	return d.Format(DateLayout)
}

// MarshalJSON implements json.Marshaler
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// SeriesPoint is one observation of a uniformly spaced daily series
type SeriesPoint struct {
	Date  Date    `json:"date"`
	Value float64 `json:"value"`
}

// ForecastPoint is the ensemble prediction for one future day
type ForecastPoint struct {
	Date       Date               `json:"date"`
	Predicted  float64            `json:"predicted"`
	LowerBound float64            `json:"lower_bound"`
	UpperBound float64            `json:"upper_bound"`
	Confidence float64            `json:"confidence"`
	PerModel   map[string]float64 `json:"per_model"`
}

// Width returns the confidence interval width
func (p ForecastPoint) Width() float64 {
	return p.UpperBound - p.LowerBound
}

// ModelPerformance holds back-test accuracy for one forecasting strategy
type ModelPerformance struct {
	MAE      float64 `json:"mae"`
	RMSE     float64 `json:"rmse"`
	FitScore float64 `json:"fit_score"`
	Weight   float64 `json:"weight"`
}

// ForecastRequest is the boundary request for a series forecast
type ForecastRequest struct {
	Series      []SeriesPoint `json:"series" validate:"required,min=1"`
	HorizonDays int           `json:"horizon_days" validate:"required,gt=0"`
}

// ForecastResponse is the boundary response for a series forecast
type ForecastResponse struct {
	Forecast         []ForecastPoint             `json:"forecast"`
	ModelPerformance map[string]ModelPerformance `json:"model_performance"`
	BacktestWindow   int                         `json:"backtest_window"`
	Degraded         bool                        `json:"degraded"`
	Warnings         []string                    `json:"warnings,omitempty"`
}

// SaleLine is one line item of a sales log
type SaleLine struct {
	TransactionID string  `json:"transaction_id" validate:"required"`
	Date          Date    `json:"date"`
	Product       string  `json:"product_name" validate:"required"`
	Category      string  `json:"category,omitempty"`
	Quantity      float64 `json:"quantity" validate:"gte=0"`
	UnitPrice     float64 `json:"unit_price" validate:"gte=0"`
	TotalAmount   float64 `json:"total_amount" validate:"gte=0"`
}

// DailySales is one bucket of the aggregated sales series
type DailySales struct {
	Date         Date    `json:"date"`
	Revenue      float64 `json:"revenue"`
	QuantitySold float64 `json:"quantity_sold"`
	Transactions int     `json:"transactions"`
}

// SalesQuery filters and selects the metric of a sales aggregation
type SalesQuery struct {
	Lines       []SaleLine `json:"lines" validate:"required,min=1,dive"`
	Product     string     `json:"product,omitempty"`
	Category    string     `json:"category,omitempty"`
	Metric      string     `json:"metric,omitempty" validate:"omitempty,oneof=revenue quantity transactions"`
	HorizonDays int        `json:"horizon_days,omitempty" validate:"omitempty,gt=0"`
}

// DayValue pairs a date with a value
type DayValue struct {
	Date  Date    `json:"date"`
	Value float64 `json:"value"`
}

// MonthlyTotal is the aggregate for one calendar month
type MonthlyTotal struct {
	Month        string  `json:"month"`
	Revenue      float64 `json:"revenue"`
	QuantitySold float64 `json:"quantity_sold"`
	Transactions int     `json:"transactions"`
}

// SalesTrends summarises a daily sales series
type SalesTrends struct {
	TotalRevenue      float64            `json:"total_revenue"`
	AvgDailyRevenue   float64            `json:"avg_daily_revenue"`
	RevenueGrowthRate float64            `json:"revenue_growth_rate"`
	Start             Date               `json:"start"`
	End               Date               `json:"end"`
	TopDays           []DayValue         `json:"top_performing_days"`
	Monthly           []MonthlyTotal     `json:"monthly_trends"`
	WeekdayAverages   map[string]float64 `json:"weekly_patterns"`
}

// SalesSeriesResponse is the aggregated daily series of a sales query
type SalesSeriesResponse struct {
	Metric string        `json:"metric"`
	Days   []DailySales  `json:"days"`
	Series []SeriesPoint `json:"series"`
}

// SalesForecastResponse is a forecast of one aggregated sales metric
type SalesForecastResponse struct {
	Metric      string `json:"metric"`
	HistoryDays int    `json:"history_days"`
	ForecastResponse
}
