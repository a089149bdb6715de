package forecast

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"retailcast/pkg/contracts/domain"
)

// topDaysCount is the number of best revenue days reported by Trends
const topDaysCount = 5

// Trends summarises a daily series: totals, mean day-over-day growth in
// percent (days following a zero-revenue day are skipped), the best days,
// monthly totals and the mean revenue per weekday
func Trends(s *DailySeries) domain.SalesTrends {
	out := domain.SalesTrends{
		TopDays:         []domain.DayValue{},
		Monthly:         []domain.MonthlyTotal{},
		WeekdayAverages: map[string]float64{},
	}
	if s == nil || s.Len() == 0 {
		return out
	}
	out.Start = s.Days[0].Date
	out.End = s.Days[s.Len()-1].Date

	total := decimal.Zero
	var growthSum float64
	growthDays := 0
	monthly := make(map[string]*domain.MonthlyTotal)
	var months []string
	var weekdaySums [7]float64
	var weekdayCounts [7]int

	for i, d := range s.Days {
		total = total.Add(decimal.NewFromFloat(d.Revenue))

		if i > 0 && s.Days[i-1].Revenue != 0 {
			prev := s.Days[i-1].Revenue
			growthSum += (d.Revenue - prev) / prev * 100
			growthDays++
		}

		key := d.Date.Format("2006-01")
		m, ok := monthly[key]
		if !ok {
			m = &domain.MonthlyTotal{Month: key}
			monthly[key] = m
			months = append(months, key)
		}
		m.Revenue += d.Revenue
		m.QuantitySold += d.QuantitySold
		m.Transactions += d.Transactions

		wd := d.Date.Weekday()
		weekdaySums[wd] += d.Revenue
		weekdayCounts[wd]++
	}

	out.TotalRevenue = total.InexactFloat64()
	out.AvgDailyRevenue = total.Div(decimal.NewFromInt(int64(s.Len()))).InexactFloat64()
	if growthDays > 0 {
		out.RevenueGrowthRate = growthSum / float64(growthDays)
	}

	// Days are in date order, so months are already sorted
	for _, key := range months {
		out.Monthly = append(out.Monthly, *monthly[key])
	}

	for wd, count := range weekdayCounts {
		if count > 0 {
			out.WeekdayAverages[time.Weekday(wd).String()] = weekdaySums[wd] / float64(count)
		}
	}

	ranked := make([]domain.DayValue, s.Len())
	for i, d := range s.Days {
		ranked[i] = domain.DayValue{Date: d.Date, Value: d.Revenue}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Value > ranked[j].Value
	})
	if len(ranked) > topDaysCount {
		ranked = ranked[:topDaysCount]
	}
	out.TopDays = ranked
	return out
}
