// Command reconcile runs the planning pipeline offline: it filters and
// aggregates a sales file, merges it with a forecast table and writes the
// combined series as CSV or xlsx.
//
//	reconcile -sales sales.csv -items items.csv -forecast table.csv \
//	    -category Beverages -period month -coalesce -format xlsx -out plan.xlsx
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"demandplanner/internal/dataprocessing"
	"demandplanner/internal/exporter"
	"demandplanner/internal/infrastructure"
	"demandplanner/internal/validation"
	"demandplanner/pkg/contracts"
	"demandplanner/pkg/contracts/domain"
)

type options struct {
	sales    string
	items    string
	forecast string
	filter   domain.SegmentFilter
	period   dataprocessing.Period
	coalesce bool
	format   exporter.Format
	out      string
	verbose  bool
	version  bool
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "reconcile:", err)
		}
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("reconcile", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{}
	var period, format string
	fs.StringVar(&opts.sales, "sales", "", "sales history file (.csv, .txt or .xlsx)")
	fs.StringVar(&opts.items, "items", "", "item master file, required for category or brand filters")
	fs.StringVar(&opts.forecast, "forecast", "", "forecast table to merge (.csv or .xlsx)")
	fs.StringVar(&opts.filter.Category, "category", domain.Wildcard, "category to keep")
	fs.StringVar(&opts.filter.Brand, "brand", domain.Wildcard, "brand to keep")
	fs.StringVar(&opts.filter.SKU, "sku", domain.Wildcard, "sku to keep")
	fs.StringVar(&period, "period", string(dataprocessing.PeriodDay), "aggregation period: day or month")
	fs.BoolVar(&opts.coalesce, "coalesce", false, "fold points sharing a date into one row")
	fs.StringVar(&format, "format", string(exporter.FormatCSV), "output format: csv or xlsx")
	fs.StringVar(&opts.out, "out", "", "output file (defaults to stdout)")
	fs.BoolVar(&opts.verbose, "v", false, "log progress to stderr")
	fs.BoolVar(&opts.version, "version", false, "print the version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.version {
		return opts, nil
	}
	if opts.sales == "" && opts.forecast == "" {
		fs.Usage()
		return nil, fmt.Errorf("at least one of -sales or -forecast is required")
	}

	p, ok := dataprocessing.ParsePeriod(period)
	if !ok {
		return nil, fmt.Errorf("unknown period %q (want day or month)", period)
	}
	opts.period = p

	f, ok := exporter.ParseFormat(format)
	if !ok {
		return nil, fmt.Errorf("unknown format %q (want csv or xlsx)", format)
	}
	opts.format = f

	opts.filter = opts.filter.Canonical()
	return opts, nil
}

func run(args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if opts.version {
		_, err := fmt.Fprintln(stdout, contracts.GetFullVersionString("reconcile"))
		return err
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := infrastructure.WithComponent(
		infrastructure.NewLoggerWithWriter(stderr, &slog.HandlerOptions{Level: level}), "reconcile")
	validator := validation.NewFileValidator(logger)
	// every log line of a run shares one trace id
	ctx := infrastructure.EnsureTraceID(context.Background())

	var (
		sales []domain.SalesRecord
		items []domain.ItemRecord
	)
	if opts.sales != "" {
		upload, err := loadUpload(validator, opts.sales, domain.RecordKindSales)
		if err != nil {
			return err
		}
		sales = upload.Sales
		logger.InfoContext(ctx, "sales loaded", slog.Int("records", len(sales)), slog.Any("ignored_columns", upload.IgnoredColumns))
	}
	if opts.items != "" {
		upload, err := loadUpload(validator, opts.items, domain.RecordKindItems)
		if err != nil {
			return err
		}
		items = upload.Items
		logger.InfoContext(ctx, "items loaded", slog.Int("records", len(items)))
	}
	if (!domain.IsWildcard(opts.filter.Category) || !domain.IsWildcard(opts.filter.Brand)) && len(items) == 0 {
		return fmt.Errorf("-category and -brand need an -items file")
	}

	filtered := dataprocessing.FilterSales(sales, items, opts.filter)
	history := dataprocessing.Aggregate(filtered, opts.period)
	logger.InfoContext(ctx, "history aggregated",
		slog.Int("filtered_records", len(filtered)),
		slog.Int("points", len(history)),
		slog.String("period", string(opts.period)))

	var forecastSeries domain.Series
	if opts.forecast != "" {
		if err := validator.ValidateUploadFile(opts.forecast); err != nil {
			return err
		}
		forecastSeries, err = readSeriesFile(opts.forecast)
		if err != nil {
			return err
		}
		logger.InfoContext(ctx, "forecast loaded", slog.Int("points", len(forecastSeries)))
	}

	merged := dataprocessing.Merge(history, forecastSeries)
	if opts.coalesce {
		merged = dataprocessing.Coalesce(merged)
	}

	return writeOutput(ctx, opts, validator, merged, stdout, logger)
}

func loadUpload(validator *validation.FileValidator, path string, kind domain.RecordKind) (*dataprocessing.Upload, error) {
	if err := validator.ValidateUploadFile(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return dataprocessing.ParseWorkbook(f, kind)
	}
	return dataprocessing.ParseReader(f, kind)
}

func readSeriesFile(path string) (domain.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return dataprocessing.ReadSeries(f, path)
}

func writeOutput(ctx context.Context, opts *options, validator *validation.FileValidator, series domain.Series, stdout io.Writer, logger *slog.Logger) error {
	var buf bytes.Buffer
	switch opts.format {
	case exporter.FormatXLSX:
		if err := exporter.WriteWorkbook(&buf, series); err != nil {
			return err
		}
	default:
		if err := exporter.WriteSeries(&buf, series); err != nil {
			return err
		}
	}

	if opts.out == "" {
		_, err := stdout.Write(buf.Bytes())
		return err
	}

	if err := validator.ValidateOutputDirectory(filepath.Dir(opts.out)); err != nil {
		return err
	}
	if err := os.WriteFile(opts.out, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", opts.out, err)
	}
	logger.InfoContext(ctx, "output written", slog.String("file", opts.out), slog.Int("points", len(series)))
	return nil
}
