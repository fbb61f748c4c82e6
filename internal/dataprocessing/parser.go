package dataprocessing

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	apierrors "demandplanner/internal/errors"
	"demandplanner/pkg/contracts/domain"
)

// Upload holds the typed records parsed from one file. Only the slice
// matching Kind is populated.
type Upload struct {
	Kind       domain.RecordKind
	Sales      []domain.SalesRecord
	Items      []domain.ItemRecord
	Promotions []domain.PromotionRecord

	// IgnoredColumns lists header cells that matched no known key
	IgnoredColumns []string
}

// Len returns the number of parsed records
func (u *Upload) Len() int {
	switch u.Kind {
	case domain.RecordKindSales:
		return len(u.Sales)
	case domain.RecordKindItems:
		return len(u.Items)
	case domain.RecordKindPromotions:
		return len(u.Promotions)
	}
	return 0
}

// header keys recognised per kind; aliases map onto the canonical key
var headerKeys = map[domain.RecordKind]map[string]string{
	domain.RecordKindSales: {
		"date":      "date",
		"sku":       "sku",
		"quantity":  "quantity",
		"price":     "price",
		"unitprice": "price",
	},
	domain.RecordKindItems: {
		"sku":      "sku",
		"category": "category",
		"brand":    "brand",
		"unitcost": "unitcost",
	},
	domain.RecordKindPromotions: {
		"sku":             "sku",
		"startdate":       "startdate",
		"date":            "date",
		"enddate":         "enddate",
		"discountpercent": "discountpercent",
	},
}

// ParseText parses delimited upload text. The first non-blank line is the
// header. Fewer than two non-blank lines yields an empty upload. Bad numeric
// cells become 0; no cell ever fails the parse.
func ParseText(text string, kind domain.RecordKind) *Upload {
	var lines [][]string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, strings.Split(line, ","))
	}
	return parseRows(lines, kind)
}

// ParseReader reads r fully and parses it as upload text
func ParseReader(r io.Reader, kind domain.RecordKind) (*Upload, error) {
	if !kind.Valid() {
		return nil, apierrors.NewAppValidationError(fmt.Sprintf("unknown record kind %q", kind))
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apierrors.NewParsingError("failed to read upload", err)
	}
	return ParseText(string(data), kind), nil
}

// ParseWorkbook parses the first sheet of an xlsx workbook with the same
// header contract as ParseText
func ParseWorkbook(r io.Reader, kind domain.RecordKind) (*Upload, error) {
	if !kind.Valid() {
		return nil, apierrors.NewAppValidationError(fmt.Sprintf("unknown record kind %q", kind))
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apierrors.NewParsingError("failed to open workbook", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &Upload{Kind: kind}, nil
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apierrors.NewParsingError("failed to read sheet "+sheets[0], err).
			WithContext("sheet", sheets[0])
	}

	var lines [][]string
	for _, row := range rows {
		if strings.TrimSpace(strings.Join(row, "")) == "" {
			continue
		}
		lines = append(lines, row)
	}
	return parseRows(lines, kind), nil
}

// parseRows maps non-blank rows (header first) to typed records
func parseRows(lines [][]string, kind domain.RecordKind) *Upload {
	upload := &Upload{Kind: kind}
	if len(lines) < 2 {
		return upload
	}

	known := headerKeys[kind]
	columnMap := make(map[string]int)
	for i, cell := range lines[0] {
		h := strings.ToLower(CleanHeader(cell))
		key, ok := known[h]
		if !ok {
			if h != "" {
				upload.IgnoredColumns = append(upload.IgnoredColumns, h)
			}
			continue
		}
		// a canonical header beats an alias; otherwise first occurrence wins
		if _, seen := columnMap[key]; !seen || h == key {
			columnMap[key] = i
		}
	}

	for _, cells := range lines[1:] {
		get := func(key string) string {
			i, ok := columnMap[key]
			if !ok || i >= len(cells) {
				return ""
			}
			return strings.TrimSpace(cells[i])
		}

		switch kind {
		case domain.RecordKindSales:
			qty := parseNumber(get("quantity"))
			if qty < 0 {
				qty = 0
			}
			upload.Sales = append(upload.Sales, domain.SalesRecord{
				Date:      get("date"),
				SKU:       get("sku"),
				Quantity:  qty,
				UnitPrice: parseNumber(get("price")),
			})
		case domain.RecordKindItems:
			upload.Items = append(upload.Items, domain.ItemRecord{
				SKU:      get("sku"),
				Category: get("category"),
				Brand:    get("brand"),
				UnitCost: parseNumber(get("unitcost")),
			})
		case domain.RecordKindPromotions:
			start := get("startdate")
			if start == "" {
				start = get("date")
			}
			end := get("enddate")
			if end == "" {
				end = start
			}
			upload.Promotions = append(upload.Promotions, domain.PromotionRecord{
				SKU:             get("sku"),
				StartDate:       start,
				EndDate:         end,
				DiscountPercent: parseNumber(get("discountpercent")),
			})
		}
	}

	return upload
}

// CleanHeader trims a header cell, including the byte-order mark and
// zero-width characters spreadsheet exports put in front of the first column
func CleanHeader(cell string) string {
	return strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(cell), "\u200B\u200C\u200D\u2060\uFEFF"))
}

// parseNumber returns 0 for anything that is not a finite number
func parseNumber(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
