package dataprocessing

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	apierrors "demandplanner/internal/errors"
	"demandplanner/pkg/contracts/domain"
)

// ReadSeries reads a forecast table (header row first) and normalizes it.
// Workbooks are read from their first sheet; anything else is CSV.
func ReadSeries(r io.Reader, fileName string) (domain.Series, error) {
	var (
		records [][]string
		err     error
	)
	if strings.HasSuffix(strings.ToLower(fileName), ".xlsx") {
		records, err = workbookRecords(r)
	} else {
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		cr.TrimLeadingSpace = true
		records, err = cr.ReadAll()
		if err != nil {
			err = apierrors.NewParsingError("failed to read forecast table", err).WithContext("file", fileName)
		}
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return domain.Series{}, nil
	}

	columns := make([]string, len(records[0]))
	for i, c := range records[0] {
		columns[i] = CleanHeader(c)
	}
	rows := make([]domain.Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(domain.Row, len(columns))
		for i, col := range columns {
			if i < len(rec) && strings.TrimSpace(rec[i]) != "" {
				row[col] = domain.StringScalar(strings.TrimSpace(rec[i]))
			}
		}
		rows = append(rows, row)
	}
	return Normalize(columns, rows), nil
}

func workbookRecords(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apierrors.NewParsingError("failed to open workbook", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apierrors.NewParsingError("failed to read sheet "+sheets[0], err)
	}
	return rows, nil
}
