package exporter

import (
	"math"
	"strconv"
	"strings"
)

// formatMoney formats currency amounts with exactly 2 decimal places
func formatMoney(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// formatMetric formats ratios with up to 6 significant decimals and no
// trailing zeros; +Inf is written as "inf"
func formatMetric(f float64) string {
	if math.IsInf(f, 1) {
		return "inf"
	}
	s := strconv.FormatFloat(f, 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		return "0"
	}
	return s
}

func formatInt(i int) string {
	return strconv.Itoa(i)
}

// joinItems renders an itemset as one cell
func joinItems(items []string) string {
	return strings.Join(items, " + ")
}
