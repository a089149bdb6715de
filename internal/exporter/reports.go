package exporter

import (
	"fmt"
	"sort"

	"retailcast/pkg/contracts/domain"
)

// Column layouts of the exported reports
var (
	RuleHeaders     = []string{"antecedent", "consequent", "support", "confidence", "lift", "conviction", "antecedent_support", "consequent_support"}
	ItemsetHeaders  = []string{"items", "size", "support", "count"}
	ForecastHeaders = []string{"date", "predicted", "lower_bound", "upper_bound", "confidence"}
	DailyHeaders    = []string{"date", "revenue", "quantity_sold", "transactions"}
)

// ReportExporter writes analysis results as CSV reports
type ReportExporter struct {
	writer *CSVWriter
}

// NewReportExporter creates an exporter on top of a CSV writer
func NewReportExporter(writer *CSVWriter) *ReportExporter {
	return &ReportExporter{writer: writer}
}

// ExportRules writes association rules in the order given
func (e *ReportExporter) ExportRules(filePath string, rules []domain.AssociationRule) error {
	records := make([][]string, 0, len(rules))
	for _, r := range rules {
		conviction := "inf"
		if !r.IsConvictionInfinite() {
			conviction = formatMetric(float64(r.Conviction))
		}
		records = append(records, ruleRecord(r, conviction))
	}
	if err := e.writer.WriteSimpleCSV(filePath, RuleHeaders, records); err != nil {
		return fmt.Errorf("export rules: %w", err)
	}
	return nil
}

func ruleRecord(r domain.AssociationRule, conviction string) []string {
	return []string{
		joinItems(r.Antecedent),
		joinItems(r.Consequent),
		formatMetric(r.Support),
		formatMetric(r.Confidence),
		formatMetric(r.Lift),
		conviction,
		formatMetric(r.AntecedentSupport),
		formatMetric(r.ConsequentSupport),
	}
}

// ExportItemsets streams frequent itemsets, which can run to many rows
func (e *ReportExporter) ExportItemsets(filePath string, itemsets []domain.ItemSet) (err error) {
	stream, err := e.writer.CreateStreamWriter(filePath, ItemsetHeaders)
	if err != nil {
		return fmt.Errorf("export itemsets: %w", err)
	}
	defer func() {
		if cerr := stream.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("export itemsets: %w", cerr)
		}
	}()

	for _, s := range itemsets {
		record := []string{joinItems(s.Items), formatInt(s.Size()), formatMetric(s.Support), formatInt(s.Count)}
		if err := stream.WriteRecord(record); err != nil {
			return fmt.Errorf("export itemsets: %w", err)
		}
	}
	return nil
}

// ExportForecast writes the ensemble forecast with one extra column per
// contributing model, in name order
func (e *ReportExporter) ExportForecast(filePath string, points []domain.ForecastPoint) error {
	models := modelNames(points)
	headers := append(append([]string{}, ForecastHeaders...), models...)

	records := make([][]string, 0, len(points))
	for _, p := range points {
		record := []string{
			p.Date.String(),
			formatMoney(p.Predicted),
			formatMoney(p.LowerBound),
			formatMoney(p.UpperBound),
			formatMetric(p.Confidence),
		}
		for _, m := range models {
			v, ok := p.PerModel[m]
			if !ok {
				record = append(record, "")
				continue
			}
			record = append(record, formatMoney(v))
		}
		records = append(records, record)
	}
	if err := e.writer.WriteSimpleCSV(filePath, headers, records); err != nil {
		return fmt.Errorf("export forecast: %w", err)
	}
	return nil
}

// ExportDailySales writes the aggregated daily series
func (e *ReportExporter) ExportDailySales(filePath string, days []domain.DailySales) error {
	records := make([][]string, 0, len(days))
	for _, d := range days {
		records = append(records, []string{
			d.Date.String(),
			formatMoney(d.Revenue),
			formatMetric(d.QuantitySold),
			formatInt(d.Transactions),
		})
	}
	if err := e.writer.WriteSimpleCSV(filePath, DailyHeaders, records); err != nil {
		return fmt.Errorf("export daily sales: %w", err)
	}
	return nil
}

func modelNames(points []domain.ForecastPoint) []string {
	seen := make(map[string]struct{})
	for _, p := range points {
		for name := range p.PerModel {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
