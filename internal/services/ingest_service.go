package services

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"retailcast/internal/dataprocessing"
	"retailcast/internal/infrastructure"
	"retailcast/pkg/contracts/domain"
)

// IngestService parses uploaded line-item files
type IngestService struct {
	parser  *dataprocessing.Parser
	metrics *infrastructure.BusinessMetrics
	logger  *slog.Logger
}

// NewIngestService creates an ingest service reading at most maxRows rows
// per file. metrics may be nil.
func NewIngestService(maxRows int, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *IngestService {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestService{
		parser:  dataprocessing.NewParser(logger).WithMaxRows(maxRows),
		metrics: metrics,
		logger:  infrastructure.WithComponent(logger, "ingest_service"),
	}
}

// Ingest parses r, choosing CSV or XLSX from filename
func (s *IngestService) Ingest(ctx context.Context, r io.Reader, filename string) (*dataprocessing.Dataset, error) {
	format, err := dataprocessing.FormatFromName(filename)
	if err != nil {
		return nil, err
	}

	ctx, span := infrastructure.StartSpan(ctx, "sales.ingest",
		attribute.String("ingest.file", filename),
		attribute.String("ingest.format", format),
	)
	defer span.End()

	ds, err := s.parser.Parse(ctx, r, format, filename)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		s.logger.WarnContext(ctx, "upload rejected",
			slog.String("file", filename),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	infrastructure.RecordIngest(ctx, s.metrics, format, len(ds.Lines))
	span.SetAttributes(
		attribute.Int("ingest.lines", len(ds.Lines)),
		attribute.Int("ingest.skipped", ds.Skipped),
	)
	return ds, nil
}

// Summarize describes a parsed upload without running any analysis
func (s *IngestService) Summarize(ctx context.Context, ds *dataprocessing.Dataset) *domain.DataSummary {
	_, span := infrastructure.StartSpan(ctx, "sales.summarize",
		attribute.String("ingest.file", ds.Source),
	)
	defer span.End()

	summary := ds.Summary()
	span.SetAttributes(
		attribute.Int("summary.transactions", summary.TotalTransactions),
		attribute.Int("summary.products", summary.TotalProducts),
	)
	s.logger.DebugContext(ctx, "upload summarized",
		slog.String("file", ds.Source),
		slog.Int("rows", summary.TotalRows),
		slog.Int("transactions", summary.TotalTransactions),
	)
	return &summary
}
