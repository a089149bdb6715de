package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"retailcast/internal/config"
	"retailcast/internal/dataprocessing"
	"retailcast/internal/exporter"
	"retailcast/internal/files"
	"retailcast/internal/infrastructure"
	"retailcast/internal/services"
	"retailcast/pkg/contracts"
	"retailcast/pkg/contracts/domain"
)

// options are the command-line settings of one report run
type options struct {
	in       string
	out      string
	horizon  int
	product  string
	category string
	metric   string
	latest   bool
	version  bool

	minSupport    *float64
	minConfidence *float64
	minLift       *float64
}

// reportFiles lists the CSV files a run produced
type reportFiles struct {
	Rules    string
	Itemsets string
	Daily    string
	Forecast string
	Runs     string
}

// runsIndex accumulates one row per report run in the output directory
const runsIndex = "report_runs.csv"

var runsHeader = []string{"generated_at", "source", "transactions", "rules", "metric", "horizon_days", "forecast_file"}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	opts, err := parseFlags(os.Args[1:], cfg)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		slog.Error("Invalid arguments", "error", err)
		os.Exit(2)
	}

	if opts.version {
		fmt.Println(contracts.GetFullVersionString())
		return
	}

	logger := infrastructure.NewLogger(os.Stderr, cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := run(ctx, opts, cfg, logger, os.Stdout); err != nil {
		logger.Error("Report failed", "error", err)
		os.Exit(1)
	}
}

// parseFlags reads the command line; thresholds stay nil unless given so
// the configured defaults apply
func parseFlags(args []string, cfg *config.Config) (options, error) {
	fs := flag.NewFlagSet("basket-report", flag.ContinueOnError)
	opts := options{}
	fs.StringVar(&opts.in, "in", "", "CSV or XLSX line-item file, or a directory of them (required)")
	fs.StringVar(&opts.out, "out", cfg.Output.Dir, "output directory for the CSV reports")
	fs.IntVar(&opts.horizon, "horizon", cfg.Forecast.DefaultHorizonDays, "forecast horizon in days")
	fs.StringVar(&opts.product, "product", "", "forecast only this product")
	fs.StringVar(&opts.category, "category", "", "forecast only this category")
	fs.StringVar(&opts.metric, "metric", "revenue", "forecast metric: revenue | quantity | transactions")
	fs.BoolVar(&opts.latest, "latest", false, "with a directory -in, analyze only the most recently modified file")
	fs.BoolVar(&opts.version, "version", false, "print version information and exit")
	minSupport := fs.Float64("min-support", cfg.Analysis.MinSupport, "minimum itemset support in (0, 1]")
	minConfidence := fs.Float64("min-confidence", cfg.Analysis.MinConfidence, "minimum rule confidence in [0, 1]")
	minLift := fs.Float64("min-lift", cfg.Analysis.MinLift, "minimum rule lift")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "min-support":
			opts.minSupport = minSupport
		case "min-confidence":
			opts.minConfidence = minConfidence
		case "min-lift":
			opts.minLift = minLift
		}
	})

	if opts.version {
		return opts, nil
	}
	if opts.in == "" {
		return opts, fmt.Errorf("-in is required")
	}
	if opts.horizon < 1 || opts.horizon > cfg.Forecast.MaxHorizonDays {
		return opts, fmt.Errorf("-horizon %d outside [1, %d]", opts.horizon, cfg.Forecast.MaxHorizonDays)
	}
	opts.metric = strings.ToLower(strings.TrimSpace(opts.metric))
	return opts, nil
}

// run parses the input file, mines association rules and, when the lines
// carry dates, forecasts the selected sales metric. Reports are written
// under opts.out and a summary goes to stdout.
func run(ctx context.Context, opts options, cfg *config.Config, logger *slog.Logger, stdout io.Writer) (*reportFiles, error) {
	ctx = infrastructure.EnsureTraceID(ctx)
	basketService := services.NewBasketService(cfg.Analysis, nil, logger)
	forecastService := services.NewForecastService(cfg.Forecast, nil, logger)

	ds, err := loadDataset(opts.in, opts.latest, cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "Loaded sales lines",
		"source", ds.Source,
		"lines", len(ds.Lines),
		"skipped", ds.Skipped,
		"products", ds.Products())

	thresholds := basketService.Thresholds(domain.BasketAnalysisRequest{
		MinSupport:    opts.minSupport,
		MinConfidence: opts.minConfidence,
		MinLift:       opts.minLift,
	})
	analysis, err := basketService.AnalyzeTransactions(ctx, ds.Transactions(), thresholds)
	if err != nil {
		return nil, fmt.Errorf("basket analysis: %w", err)
	}

	if err := files.ValidateOutputDirectory(opts.out, logger); err != nil {
		return nil, err
	}
	writer := exporter.NewCSVWriter(opts.out, logger)
	reports := exporter.NewReportExporter(writer)
	name := filepath.Base(filepath.Clean(ds.Source))
	base := strings.TrimSuffix(name, filepath.Ext(name))

	rulesName, itemsetsName := base+"_rules.csv", base+"_itemsets.csv"
	if err := reports.ExportRules(rulesName, analysis.AssociationRules); err != nil {
		return nil, err
	}
	if err := reports.ExportItemsets(itemsetsName, analysis.FrequentItemsets); err != nil {
		return nil, err
	}
	report := &reportFiles{
		Rules:    writer.Path(rulesName),
		Itemsets: writer.Path(itemsetsName),
	}
	printBasketSummary(stdout, analysis)

	if !ds.HasDates {
		logger.Warn("Sale lines carry no dates, skipping forecast", "source", ds.Source)
		if report.Runs, err = recordRun(writer, ds.Source, analysis, "", 0, ""); err != nil {
			return nil, err
		}
		return report, nil
	}

	query := domain.SalesQuery{
		Lines:       ds.Lines,
		Product:     opts.product,
		Category:    opts.category,
		Metric:      opts.metric,
		HorizonDays: opts.horizon,
	}
	series, err := forecastService.SalesSeries(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("aggregate sales: %w", err)
	}
	result, err := forecastService.SalesForecast(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("forecast %s: %w", query.Metric, err)
	}

	dailyName := base + "_daily_sales.csv"
	forecastName := fmt.Sprintf("%s_%s_forecast.csv", base, result.Metric)
	if err := reports.ExportDailySales(dailyName, series.Days); err != nil {
		return nil, err
	}
	if err := reports.ExportForecast(forecastName, result.Forecast); err != nil {
		return nil, err
	}
	report.Daily = writer.Path(dailyName)
	report.Forecast = writer.Path(forecastName)
	printForecastSummary(stdout, result)

	if report.Runs, err = recordRun(writer, ds.Source, analysis, result.Metric, len(result.Forecast), forecastName); err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "Report generated",
		"rules", report.Rules,
		"itemsets", report.Itemsets,
		"daily", report.Daily,
		"forecast", report.Forecast,
		"runs", report.Runs)
	return report, nil
}

// recordRun appends a row to the runs index, creating it with a header on
// the first run
func recordRun(writer *exporter.CSVWriter, source string, a *domain.BasketAnalysisResponse, metric string, horizon int, forecastName string) (string, error) {
	row := []string{
		time.Now().UTC().Format(time.RFC3339),
		source,
		strconv.Itoa(a.Statistics.TotalTransactions),
		strconv.Itoa(len(a.AssociationRules)),
		metric,
		strconv.Itoa(horizon),
		forecastName,
	}

	path := writer.Path(runsIndex)
	var err error
	if _, statErr := os.Stat(path); statErr == nil {
		err = writer.AppendToCSV(runsIndex, [][]string{row})
	} else {
		err = writer.WriteSimpleCSV(runsIndex, runsHeader, [][]string{row})
	}
	if err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}
	return path, nil
}

// loadDataset reads in, a single file or a directory whose line-item files
// are merged in name order. With latest, only the most recently modified
// file of a directory is read.
func loadDataset(in string, latest bool, cfg *config.Config, logger *slog.Logger) (*dataprocessing.Dataset, error) {
	inputs, err := files.NewDiscovery(logger).ResolveInputs(in)
	if err != nil {
		return nil, err
	}
	source := in
	if latest && len(inputs) > 1 {
		newest, _ := files.GetLatestFile(inputs)
		logger.Info("Using most recent export", "file", newest.Path, "candidates", len(inputs))
		inputs = []files.FileInfo{newest}
		source = newest.Path
	}

	parser := dataprocessing.NewParser(logger).WithMaxRows(cfg.Analysis.MaxUploadRows)
	merged := &dataprocessing.Dataset{Source: source}
	for i, f := range inputs {
		ds, err := parser.ParseFile(f.Path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Path, err)
		}
		if i == 0 {
			merged.Format = ds.Format
		}
		merged.Merge(ds)
	}
	return merged, nil
}

func printBasketSummary(w io.Writer, a *domain.BasketAnalysisResponse) {
	s := a.Statistics
	fmt.Fprintf(w, "\n=== Basket Analysis ===\n")
	fmt.Fprintf(w, "Transactions:      %d (%s)\n", s.TotalTransactions, s.DatasetSize)
	fmt.Fprintf(w, "Unique items:      %d\n", s.TotalUniqueItems)
	fmt.Fprintf(w, "Avg basket size:   %.2f\n", s.AvgItemsPerTransaction)
	fmt.Fprintf(w, "Frequent itemsets: %d\n", s.FrequentItemsetsCount)
	fmt.Fprintf(w, "Rules:             %d (strong %d, very strong %d)\n",
		s.AssociationRulesCount, s.StrongRules, s.VeryStrongRules)

	top := a.AssociationRules
	if len(top) > 5 {
		top = top[:5]
	}
	for _, r := range top {
		fmt.Fprintf(w, "  %s -> %s  conf=%.3f lift=%.3f\n",
			strings.Join(r.Antecedent, " + "), strings.Join(r.Consequent, " + "), r.Confidence, r.Lift)
	}
}

func printForecastSummary(w io.Writer, f *domain.SalesForecastResponse) {
	fmt.Fprintf(w, "\n=== %s Forecast ===\n", strings.ToUpper(f.Metric[:1])+f.Metric[1:])
	fmt.Fprintf(w, "History days:      %d\n", f.HistoryDays)
	fmt.Fprintf(w, "Horizon days:      %d\n", len(f.Forecast))
	if f.Degraded {
		fmt.Fprintf(w, "Degraded:          yes\n")
	}
	for _, warning := range f.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warning)
	}
	if n := len(f.Forecast); n > 0 {
		first, last := f.Forecast[0], f.Forecast[n-1]
		fmt.Fprintf(w, "  %s  %.2f [%.2f, %.2f]\n", first.Date, first.Predicted, first.LowerBound, first.UpperBound)
		if n > 1 {
			fmt.Fprintf(w, "  %s  %.2f [%.2f, %.2f]\n", last.Date, last.Predicted, last.LowerBound, last.UpperBound)
		}
	}
}
