package forecast

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailcast/pkg/contracts/domain"
)

func day(offset int) domain.Date {
	return domain.NewDate(seriesStart.AddDate(0, 0, offset))
}

func sampleLines() []domain.SaleLine {
	return []domain.SaleLine{
		{TransactionID: "T1", Date: day(0), Product: "Bread", Category: "Bakery", Quantity: 2, UnitPrice: 1.5, TotalAmount: 3},
		{TransactionID: "T1", Date: day(0), Product: "Milk", Category: "Dairy", Quantity: 1, UnitPrice: 0.1},
		{TransactionID: "T2", Date: day(0), Product: "Milk", Category: "Dairy", Quantity: 1, UnitPrice: 0.2},
		{TransactionID: "T3", Date: day(3), Product: "Butter", Category: "Dairy", Quantity: 1, TotalAmount: 4.25},
	}
}

func TestAggregate(t *testing.T) {
	series, err := Aggregate(sampleLines(), Filter{})
	require.NoError(t, err)
	require.Equal(t, 4, series.Len(), "gap days are zero-filled")

	first := series.Days[0]
	assert.Equal(t, "2024-01-01", first.Date.String())
	assert.Equal(t, 3.3, first.Revenue, "decimal sum has no float drift")
	assert.Equal(t, 4.0, first.QuantitySold)
	assert.Equal(t, 2, first.Transactions)

	for _, d := range series.Days[1:3] {
		assert.Zero(t, d.Revenue)
		assert.Zero(t, d.Transactions)
	}
	assert.Equal(t, 4.25, series.Days[3].Revenue)
}

func TestAggregateFilter(t *testing.T) {
	tests := []struct {
		name    string
		filter  Filter
		days    int
		revenue float64
	}{
		{"product is case-insensitive", Filter{Product: "milk"}, 1, 0.3},
		{"category spans days", Filter{Category: "dairy"}, 4, 0.3 + 4.25},
		{"both fields", Filter{Product: "Butter", Category: "Dairy"}, 1, 4.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			series, err := Aggregate(sampleLines(), tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.days, series.Len())

			var total float64
			for _, d := range series.Days {
				total += d.Revenue
			}
			assert.InDelta(t, tt.revenue, total, 1e-9)
		})
	}
}

func TestAggregateRejects(t *testing.T) {
	tests := []struct {
		name   string
		lines  []domain.SaleLine
		filter Filter
	}{
		{"no lines", nil, Filter{}},
		{"no match", sampleLines(), Filter{Product: "Coffee"}},
		{"undated line", []domain.SaleLine{{TransactionID: "T1", Product: "Bread", Quantity: 1}}, Filter{}},
		{"negative quantity", []domain.SaleLine{{TransactionID: "T1", Date: day(0), Product: "Bread", Quantity: -1}}, Filter{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Aggregate(tt.lines, tt.filter)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestDailySeriesMetric(t *testing.T) {
	series, err := Aggregate(sampleLines(), Filter{})
	require.NoError(t, err)

	tests := []struct {
		metric string
		want   []float64
	}{
		{MetricRevenue, []float64{3.3, 0, 0, 4.25}},
		{"", []float64{3.3, 0, 0, 4.25}},
		{MetricQuantity, []float64{4, 0, 0, 1}},
		{MetricTransactions, []float64{2, 0, 0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.metric, func(t *testing.T) {
			points, err := series.Metric(tt.metric)
			require.NoError(t, err)
			got := make([]float64, len(points))
			for i, p := range points {
				got[i] = p.Value
			}
			assert.Equal(t, tt.want, got)
		})
	}

	_, err = series.Metric("margin")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAggregateFeedsForecast(t *testing.T) {
	var lines []domain.SaleLine
	for i := 0; i < 35; i++ {
		if i%6 == 5 {
			continue
		}
		lines = append(lines, domain.SaleLine{
			TransactionID: "T" + day(i).String(),
			Date:          day(i),
			Product:       "Bread",
			Quantity:      float64(10 + i%7),
			UnitPrice:     2,
		})
	}

	series, err := Aggregate(lines, Filter{})
	require.NoError(t, err)
	assert.Equal(t, 35, series.Len())

	points, err := series.Metric(MetricRevenue)
	require.NoError(t, err)
	result, err := NewEnsemble(DefaultOptions(), testLogger()).Forecast(context.Background(), points, 7)
	require.NoError(t, err)
	assert.Len(t, result.Points, 7)
}

func TestTrends(t *testing.T) {
	series := &DailySeries{Days: []domain.DailySales{
		{Date: domain.NewDate(time.Date(2024, time.January, 30, 0, 0, 0, 0, time.UTC)), Revenue: 100, QuantitySold: 10, Transactions: 4},
		{Date: domain.NewDate(time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)), Revenue: 0},
		{Date: domain.NewDate(time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)), Revenue: 50, QuantitySold: 5, Transactions: 2},
		{Date: domain.NewDate(time.Date(2024, time.February, 2, 0, 0, 0, 0, time.UTC)), Revenue: 75, QuantitySold: 7, Transactions: 3},
	}}

	trends := Trends(series)
	assert.Equal(t, 225.0, trends.TotalRevenue)
	assert.Equal(t, 56.25, trends.AvgDailyRevenue)
	// -100% then +50%; the day after a zero is skipped
	assert.InDelta(t, -25.0, trends.RevenueGrowthRate, 1e-9)
	assert.Equal(t, "2024-01-30", trends.Start.String())
	assert.Equal(t, "2024-02-02", trends.End.String())

	require.Len(t, trends.TopDays, 4)
	assert.Equal(t, []float64{100, 75, 50, 0}, []float64{
		trends.TopDays[0].Value, trends.TopDays[1].Value, trends.TopDays[2].Value, trends.TopDays[3].Value,
	})

	require.Len(t, trends.Monthly, 2)
	assert.Equal(t, domain.MonthlyTotal{Month: "2024-01", Revenue: 100, QuantitySold: 10, Transactions: 4}, trends.Monthly[0])
	assert.Equal(t, domain.MonthlyTotal{Month: "2024-02", Revenue: 125, QuantitySold: 12, Transactions: 5}, trends.Monthly[1])

	assert.Equal(t, 100.0, trends.WeekdayAverages["Tuesday"])
	assert.Equal(t, 75.0, trends.WeekdayAverages["Friday"])
	assert.Len(t, trends.WeekdayAverages, 4)

	empty := Trends(&DailySeries{})
	assert.Zero(t, empty.TotalRevenue)
	assert.NotNil(t, empty.TopDays)
}
