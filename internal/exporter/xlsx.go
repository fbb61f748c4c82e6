package exporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"demandplanner/pkg/contracts/domain"
)

// SheetName is the worksheet a workbook export writes to
const SheetName = "Forecast"

// WriteWorkbook writes s to an xlsx workbook with one "Forecast" sheet.
// Numbers are stored as numeric cells and absent values stay blank.
func WriteWorkbook(w io.Writer, s domain.Series) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := SeriesHeader()
	headerRow := make([]interface{}, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &headerRow); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, p := range s {
		row := make([]interface{}, len(domain.SeriesFields))
		row[0] = p.Date
		for j, field := range domain.SeriesFields[1:] {
			if v, ok := p.Value(field); ok {
				row[j+1] = v
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteWorkbookFile writes s as xlsx under name and returns the full path
func (w *CSVWriter) WriteWorkbookFile(name string, s domain.Series) (string, error) {
	fullPath := w.resolvePath(name)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := WriteWorkbook(file, s); err != nil {
		return "", err
	}
	return fullPath, nil
}
