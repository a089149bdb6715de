package testutil

import (
	"fmt"
	"math/rand"
	"time"

	"retailcast/pkg/contracts/domain"
)

// FixtureStart is the first day of every generated sales log
var FixtureStart = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// BreadButterMilk is the five-basket reference dataset
func BreadButterMilk() [][]string {
	return [][]string{
		{"bread", "butter", "milk"},
		{"bread", "butter"},
		{"bread", "milk"},
		{"butter", "milk"},
		{"bread", "butter", "milk"},
	}
}

// RepeatedBasket returns n copies of the same basket
func RepeatedBasket(n int, items ...string) [][]string {
	out := make([][]string, n)
	for i := range out {
		out[i] = append([]string(nil), items...)
	}
	return out
}

var fixtureCatalog = []struct {
	name     string
	category string
	price    float64
}{
	{"Bread", "Bakery", 2.50},
	{"Butter", "Dairy", 3.75},
	{"Milk", "Dairy", 1.20},
	{"Eggs", "Dairy", 4.10},
	{"Coffee", "Beverages", 7.90},
	{"Jam", "Pantry", 3.30},
}

// SalesLog generates a reproducible line-item log covering the given number
// of days, with busier weekends and bread and butter often bought together
func SalesLog(days int, seed int64) []domain.SaleLine {
	rng := rand.New(rand.NewSource(seed))
	var lines []domain.SaleLine
	txn := 0
	for d := 0; d < days; d++ {
		date := FixtureStart.AddDate(0, 0, d)
		baskets := 8 + rng.Intn(5)
		if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			baskets += 6
		}
		for b := 0; b < baskets; b++ {
			txn++
			id := fmt.Sprintf("TX%05d", txn)
			picked := map[int]bool{rng.Intn(len(fixtureCatalog)): true}
			if picked[0] && rng.Float64() < 0.8 {
				picked[1] = true
			}
			if rng.Float64() < 0.4 {
				picked[rng.Intn(len(fixtureCatalog))] = true
			}
			for i, p := range fixtureCatalog {
				if !picked[i] {
					continue
				}
				qty := float64(1 + rng.Intn(3))
				lines = append(lines, domain.SaleLine{
					TransactionID: id,
					Date:          domain.NewDate(date),
					Product:       p.name,
					Category:      p.category,
					Quantity:      qty,
					UnitPrice:     p.price,
					TotalAmount:   qty * p.price,
				})
			}
		}
	}
	return lines
}

// SeriesFromValues builds a daily series starting at FixtureStart
func SeriesFromValues(values []float64) []domain.SeriesPoint {
	out := make([]domain.SeriesPoint, len(values))
	for i, v := range values {
		out[i] = domain.SeriesPoint{Date: domain.NewDate(FixtureStart.AddDate(0, 0, i)), Value: v}
	}
	return out
}
