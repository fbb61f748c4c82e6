package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"demandplanner/internal/config"
)

// CSVWriter writes CSV files into the configured reports directory
type CSVWriter struct {
	paths  *config.Paths
	bom    bool
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer
func NewCSVWriter(paths *config.Paths) *CSVWriter {
	return &CSVWriter{
		paths:  paths,
		logger: slog.Default().With(slog.String("component", "exporter")),
	}
}

// WithBOM makes WriteSeriesFile start archived reports with a UTF-8 BOM,
// which spreadsheet tools need to detect the encoding
func (w *CSVWriter) WithBOM(enabled bool) *CSVWriter {
	w.bom = enabled
	return w
}

// WriteOptions configures a CSV write
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool
}

// WriteCSV writes options.Records under options.Headers and returns the
// path written. Relative names resolve against the reports directory.
func (w *CSVWriter) WriteCSV(filename string, options WriteOptions) (string, error) {
	fullPath := w.resolvePath(filename)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	if options.BOMPrefix {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return "", fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)

	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return "", fmt.Errorf("failed to write headers: %w", err)
		}
	}

	if err := writer.WriteAll(options.Records); err != nil {
		return "", fmt.Errorf("failed to write records: %w", err)
	}

	w.logger.Debug("csv written",
		slog.String("path", fullPath),
		slog.Int("records", len(options.Records)),
		slog.Bool("bom", options.BOMPrefix))

	return fullPath, nil
}

func (w *CSVWriter) resolvePath(filename string) string {
	if filepath.IsAbs(filename) || w.paths == nil {
		return filename
	}
	return w.paths.GetReportPath(filename)
}
