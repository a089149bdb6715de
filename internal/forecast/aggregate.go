package forecast

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"retailcast/pkg/contracts/domain"
)

// Series metrics
const (
	MetricRevenue      = "revenue"
	MetricQuantity     = "quantity"
	MetricTransactions = "transactions"
)

// Filter restricts aggregation to one product or category; matching is
// case-insensitive and empty fields match everything
type Filter struct {
	Product  string
	Category string
}

func (f Filter) match(line domain.SaleLine) bool {
	if f.Product != "" && !strings.EqualFold(strings.TrimSpace(line.Product), strings.TrimSpace(f.Product)) {
		return false
	}
	if f.Category != "" && !strings.EqualFold(strings.TrimSpace(line.Category), strings.TrimSpace(f.Category)) {
		return false
	}
	return true
}

// DailySeries is a gap-free run of daily sales buckets
type DailySeries struct {
	Days []domain.DailySales
}

// Len returns the number of days
func (s *DailySeries) Len() int {
	return len(s.Days)
}

// Metric extracts one measure as a forecaster input
func (s *DailySeries) Metric(name string) ([]domain.SeriesPoint, error) {
	var pick func(domain.DailySales) float64
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", MetricRevenue:
		pick = func(d domain.DailySales) float64 { return d.Revenue }
	case MetricQuantity:
		pick = func(d domain.DailySales) float64 { return d.QuantitySold }
	case MetricTransactions:
		pick = func(d domain.DailySales) float64 { return float64(d.Transactions) }
	default:
		return nil, fmt.Errorf("unknown metric %q: %w", name, ErrInvalidInput)
	}

	points := make([]domain.SeriesPoint, len(s.Days))
	for i, d := range s.Days {
		points[i] = domain.SeriesPoint{Date: d.Date, Value: pick(d)}
	}
	return points, nil
}

type dayBucket struct {
	revenue  decimal.Decimal
	quantity decimal.Decimal
	txns     map[string]struct{}
}

// LineRevenue is the line total, or quantity times unit price when the
// total is absent
func LineRevenue(line domain.SaleLine) decimal.Decimal {
	if line.TotalAmount > 0 {
		return decimal.NewFromFloat(line.TotalAmount)
	}
	return decimal.NewFromFloat(line.Quantity).Mul(decimal.NewFromFloat(line.UnitPrice))
}

// Aggregate buckets line items by day. Days without sales between the first
// and last sale are zero-filled, so the output is gap-free.
func Aggregate(lines []domain.SaleLine, filter Filter) (*DailySeries, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("no sale lines provided: %w", ErrInvalidInput)
	}

	buckets := make(map[time.Time]*dayBucket)
	var first, last time.Time
	for i, line := range lines {
		if line.Date.IsZero() {
			return nil, fmt.Errorf("sale line %d has no date: %w", i, ErrInvalidInput)
		}
		for _, v := range []float64{line.Quantity, line.UnitPrice, line.TotalAmount} {
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return nil, fmt.Errorf("sale line %d has a negative or non-finite amount: %w", i, ErrInvalidInput)
			}
		}
		if !filter.match(line) {
			continue
		}

		day := domain.NewDate(line.Date.Time).Time
		b, ok := buckets[day]
		if !ok {
			b = &dayBucket{txns: make(map[string]struct{})}
			buckets[day] = b
		}
		b.revenue = b.revenue.Add(LineRevenue(line))
		b.quantity = b.quantity.Add(decimal.NewFromFloat(line.Quantity))
		txn := strings.TrimSpace(line.TransactionID)
		if txn == "" {
			txn = fmt.Sprintf("line-%d", i)
		}
		b.txns[txn] = struct{}{}

		if first.IsZero() || day.Before(first) {
			first = day
		}
		if day.After(last) {
			last = day
		}
	}

	if len(buckets) == 0 {
		return nil, fmt.Errorf("no sale lines match product %q category %q: %w",
			filter.Product, filter.Category, ErrInvalidInput)
	}

	series := &DailySeries{}
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		d := domain.DailySales{Date: domain.NewDate(day)}
		if b, ok := buckets[day]; ok {
			d.Revenue = b.revenue.InexactFloat64()
			d.QuantitySold = b.quantity.InexactFloat64()
			d.Transactions = len(b.txns)
		}
		series.Days = append(series.Days, d)
	}
	return series, nil
}
