// Package exporter writes RetailCast results as CSV files.
//
// CSVWriter is the low-level writer: relative paths land under the configured
// output directory, files carry a UTF-8 BOM for Excel, and StreamWriter keeps
// memory flat for large exports.
//
// ReportExporter lays out the domain reports on top of it:
//
//	w := exporter.NewCSVWriter(cfg.Output.Dir, logger)
//	reports := exporter.NewReportExporter(w)
//
//	err := reports.ExportRules("rules.csv", analysis.Rules)
//	err = reports.ExportItemsets("itemsets.csv", analysis.Itemsets)
//	err = reports.ExportForecast("forecast.csv", result.Points)
//
// Infinite conviction is written as "inf".
package exporter
