package exporter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"demandplanner/pkg/contracts/domain"
)

// Format selects the file type of an export
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts csv or xlsx in any case
func ParseFormat(s string) (Format, bool) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV, "":
		return FormatCSV, true
	case FormatXLSX:
		return FormatXLSX, true
	}
	return "", false
}

// ContentType returns the MIME type served for f
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// SeriesHeader returns the export column names in order
func SeriesHeader() []string {
	header := make([]string, len(domain.SeriesFields))
	for i, f := range domain.SeriesFields {
		header[i] = string(f)
	}
	return header
}

// SeriesRecords renders each point as one row of cells. Absent values are
// empty cells; numbers use the shortest form that parses back exactly.
func SeriesRecords(s domain.Series) [][]string {
	records := make([][]string, 0, len(s))
	for _, p := range s {
		row := make([]string, len(domain.SeriesFields))
		row[0] = p.Date
		for i, f := range domain.SeriesFields[1:] {
			if v, ok := p.Value(f); ok {
				row[i+1] = formatValue(v)
			}
		}
		records = append(records, row)
	}
	return records
}

// WriteSeries writes s as CSV in input order
func WriteSeries(w io.Writer, s domain.Series) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(SeriesHeader()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := cw.WriteAll(SeriesRecords(s)); err != nil {
		return fmt.Errorf("failed to write series: %w", err)
	}
	return nil
}

// FormatSeries returns the CSV text of s
func FormatSeries(s domain.Series) string {
	var buf bytes.Buffer
	// writes to a bytes.Buffer cannot fail
	_ = WriteSeries(&buf, s)
	return buf.String()
}

// ExportFilename names a download: demand_forecast_<source>_<YYYY-MM-DD>.<ext>
func ExportFilename(source domain.DataSource, ext string, at time.Time) string {
	ext = strings.TrimPrefix(ext, ".")
	return fmt.Sprintf("demand_forecast_%s_%s.%s", source, at.Format("2006-01-02"), ext)
}

// WriteSeriesFile writes s as CSV under name and returns the full path
func (w *CSVWriter) WriteSeriesFile(name string, s domain.Series) (string, error) {
	return w.WriteCSV(name, WriteOptions{
		Headers:   SeriesHeader(),
		Records:   SeriesRecords(s),
		BOMPrefix: w.bom,
	})
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
