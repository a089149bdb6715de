package dataprocessing

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	apierrors "retailcast/internal/errors"
	"retailcast/pkg/contracts/domain"
)

// Supported file formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

const (
	// headerSearchRows bounds how far down a sheet the header may appear
	headerSearchRows = 20
	// DefaultMaxRows caps the data rows read from one file
	DefaultMaxRows = 1000000
)

// dateLayouts are tried in order for the date column
var dateLayouts = []string{
	domain.DateLayout,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01-02-06",
	"1/2/06",
	"02.01.2006",
}

var numberCleaner = strings.NewReplacer(",", "", "$", "", "€", "", "£", "", " ", "")

// Parser reads line-item exports
type Parser struct {
	maxRows int
	logger  *slog.Logger
}

// NewParser creates a parser with the default row cap
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{
		maxRows: DefaultMaxRows,
		logger:  logger.With(slog.String("component", "line_item_parser")),
	}
}

// WithMaxRows returns a parser that reads at most n data rows
func (p *Parser) WithMaxRows(n int) *Parser {
	cp := *p
	if n > 0 {
		cp.maxRows = n
	}
	return &cp
}

// FormatFromName picks the format from a file name's extension
func FormatFromName(name string) (string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	default:
		return "", apierrors.NewParsingError(fmt.Sprintf("unsupported file type %q", filepath.Ext(name)), nil).
			WithContext("file", filepath.Base(name))
	}
}

// ParseFile opens and parses a CSV or XLSX file
func (p *Parser) ParseFile(path string) (*Dataset, error) {
	format, err := FormatFromName(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, apierrors.NewStorageError("open input file", err).WithContext("file", path)
	}
	defer f.Close()

	return p.Parse(context.Background(), f, format, filepath.Base(path))
}

// Parse reads r in the given format. source names the input in logs and
// in the returned dataset.
func (p *Parser) Parse(ctx context.Context, r io.Reader, format, source string) (*Dataset, error) {
	var (
		ds  *Dataset
		err error
	)
	switch format {
	case FormatCSV:
		ds, err = p.parseCSV(ctx, r)
	case FormatXLSX:
		ds, err = p.parseXLSX(ctx, r)
	default:
		return nil, apierrors.NewParsingError(fmt.Sprintf("unsupported format %q", format), nil)
	}
	if err != nil {
		return nil, err
	}

	ds.Source = source
	ds.Format = format
	p.logger.InfoContext(ctx, "line items parsed",
		slog.String("source", source),
		slog.String("format", format),
		slog.Int("lines", len(ds.Lines)),
		slog.Int("skipped", ds.Skipped),
	)
	return ds, nil
}

func (p *Parser) parseCSV(ctx context.Context, r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	return p.parseRows(ctx, func() ([]string, error) {
		row, err := reader.Read()
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return nil, apierrors.NewParsingError("read csv", err).WithContext("line", parseErr.Line)
		}
		return row, err
	})
}

func (p *Parser) parseXLSX(ctx context.Context, r io.Reader) (*Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apierrors.NewParsingError("open workbook", err)
	}
	defer f.Close()

	// Use the first sheet that carries a recognisable header.
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || !hasHeader(rows) {
			continue
		}
		p.logger.DebugContext(ctx, "line items found in sheet",
			slog.String("sheet", sheet),
			slog.Int("rows", len(rows)),
		)

		i := 0
		return p.parseRows(ctx, func() ([]string, error) {
			if i >= len(rows) {
				return nil, io.EOF
			}
			i++
			return rows[i-1], nil
		})
	}

	return nil, apierrors.NewParsingError("no sheet has a transaction and product header", nil).
		WithContext("required", requiredColumns)
}

func hasHeader(rows [][]string) bool {
	for i := 0; i < len(rows) && i < headerSearchRows; i++ {
		if inferColumns(rows[i]).isHeader() {
			return true
		}
	}
	return false
}

// parseRows locates the header and converts every following row
func (p *Parser) parseRows(ctx context.Context, next func() ([]string, error)) (*Dataset, error) {
	var cols columnMap
	for i := 0; cols == nil; i++ {
		row, err := next()
		if errors.Is(err, io.EOF) || (err == nil && i >= headerSearchRows) {
			return nil, apierrors.NewParsingError("header row not found", nil).
				WithContext("required", requiredColumns)
		}
		if err != nil {
			return nil, err
		}
		if c := inferColumns(row); c.isHeader() {
			cols = c
		}
	}
	p.logger.DebugContext(ctx, "header mapped", slog.String("columns", cols.String()))

	ds := &Dataset{HasDates: cols.has(ColDate)}
	for rowNum := 1; ; rowNum++ {
		if rowNum%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		row, err := next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if isBlank(row) {
			continue
		}
		if len(ds.Lines) >= p.maxRows {
			return nil, apierrors.NewResourceLimitError(fmt.Sprintf("file has more than %d rows", p.maxRows), nil)
		}

		line, err := parseLine(row, cols)
		if err != nil {
			ds.Skipped++
			p.logger.DebugContext(ctx, "row skipped",
				slog.Int("row", rowNum),
				slog.String("reason", err.Error()),
			)
			continue
		}
		ds.Lines = append(ds.Lines, line)
	}

	if len(ds.Lines) == 0 {
		return nil, apierrors.NewParsingError("file has no readable line items", nil).
			WithContext("skipped_rows", ds.Skipped)
	}
	return ds, nil
}

func parseLine(row []string, cols columnMap) (domain.SaleLine, error) {
	line := domain.SaleLine{
		TransactionID: cols.get(row, ColTransactionID),
		Product:       cols.get(row, ColProduct),
		Category:      cols.get(row, ColCategory),
		Quantity:      1,
	}
	if line.TransactionID == "" || line.Product == "" {
		return line, fmt.Errorf("missing transaction or product")
	}

	var err error
	if v := cols.get(row, ColQuantity); v != "" {
		if line.Quantity, err = parseNumber(v); err != nil {
			return line, fmt.Errorf("quantity: %w", err)
		}
	}
	if v := cols.get(row, ColUnitPrice); v != "" {
		if line.UnitPrice, err = parseNumber(v); err != nil {
			return line, fmt.Errorf("unit_price: %w", err)
		}
	}
	if v := cols.get(row, ColTotalAmount); v != "" {
		if line.TotalAmount, err = parseNumber(v); err != nil {
			return line, fmt.Errorf("total_amount: %w", err)
		}
	}
	if v := cols.get(row, ColDate); v != "" {
		if line.Date, err = parseDate(v); err != nil {
			return line, err
		}
	}
	return line, nil
}

func parseNumber(s string) (float64, error) {
	f, err := strconv.ParseFloat(numberCleaner.Replace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	if f < 0 {
		return 0, fmt.Errorf("negative amount %q", s)
	}
	return f, nil
}

// parseDate accepts the layouts in dateLayouts and Excel serial day numbers
func parseDate(s string) (domain.Date, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.NewDate(t), nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return domain.NewDate(t), nil
		}
	}
	return domain.Date{}, fmt.Errorf("invalid date %q", s)
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
