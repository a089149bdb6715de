package dataprocessing

import (
	"sort"

	"github.com/shopspring/decimal"

	"retailcast/internal/forecast"
	"retailcast/pkg/contracts/domain"
)

// SummaryTopProducts is the number of products listed in a summary
const SummaryTopProducts = 10

// Summary describes the dataset: row counts, date range, distinct
// transactions, products and categories, the most frequent products, every
// category by frequency, and revenue totals. Line revenue falls back to
// quantity times unit price like the daily aggregation.
func (d *Dataset) Summary() domain.DataSummary {
	s := domain.DataSummary{
		Source:            d.Source,
		Format:            d.Format,
		TotalRows:         len(d.Lines),
		SkippedRows:       d.Skipped,
		TopProducts:       []domain.NameCount{},
		TopCategories:     []domain.NameCount{},
		RevenueByCategory: map[string]float64{},
	}
	if len(d.Lines) == 0 {
		return s
	}

	transactions := make(map[string]struct{})
	products := make(map[string]int)
	categories := make(map[string]int)
	byCategory := make(map[string]decimal.Decimal)
	total := decimal.Zero
	var first, last domain.Date

	for _, line := range d.Lines {
		transactions[line.TransactionID] = struct{}{}
		products[line.Product]++

		revenue := forecast.LineRevenue(line)
		total = total.Add(revenue)
		if line.Category != "" {
			categories[line.Category]++
			byCategory[line.Category] = byCategory[line.Category].Add(revenue)
		}

		if line.Date.IsZero() {
			continue
		}
		if first.IsZero() || line.Date.Before(first.Time) {
			first = line.Date
		}
		if last.IsZero() || line.Date.After(last.Time) {
			last = line.Date
		}
	}

	s.TotalTransactions = len(transactions)
	s.TotalProducts = len(products)
	s.TotalCategories = len(categories)
	s.TopProducts = rankByLines(products, SummaryTopProducts)
	s.TopCategories = rankByLines(categories, 0)
	if !first.IsZero() {
		s.DateRange = &domain.DateRange{Start: first, End: last}
	}

	s.TotalRevenue = total.InexactFloat64()
	s.AvgLineValue = total.Div(decimal.NewFromInt(int64(len(d.Lines)))).InexactFloat64()
	s.AvgOrderValue = total.Div(decimal.NewFromInt(int64(len(transactions)))).InexactFloat64()
	for category, revenue := range byCategory {
		s.RevenueByCategory[category] = revenue.InexactFloat64()
	}
	return s
}

// rankByLines orders names by line count, then name; limit <= 0 keeps all
func rankByLines(counts map[string]int, limit int) []domain.NameCount {
	out := make([]domain.NameCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, domain.NameCount{Name: name, Lines: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Lines != out[j].Lines {
			return out[i].Lines > out[j].Lines
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
