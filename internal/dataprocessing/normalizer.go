package dataprocessing

import (
	"math"
	"strings"
	"time"

	"demandplanner/pkg/contracts/domain"
)

// ColumnRule maps warehouse column names onto a series field
type ColumnRule struct {
	Name  string
	Field domain.Field
	Match func(lowerName string) bool
}

func equalsAny(names ...string) func(string) bool {
	return func(s string) bool {
		for _, n := range names {
			if s == n {
				return true
			}
		}
		return false
	}
}

func containsAny(parts ...string) func(string) bool {
	return func(s string) bool {
		for _, p := range parts {
			if strings.Contains(s, p) {
				return true
			}
		}
		return false
	}
}

// notDateLike keeps date-like names such as "forecast_date" out of the value
// rules; they carry no numbers and would otherwise shadow a real value column.
func notDateLike(match func(string) bool) func(string) bool {
	return func(s string) bool {
		return !containsAny("date", "timestamp")(s) && match(s)
	}
}

// ColumnRules is evaluated in order against the lower-cased column name;
// the first matching rule classifies the column. Order matters: a column
// named "xgboost_forecast" is a model column, not the consensus.
var ColumnRules = []ColumnRule{
	{Name: "date", Field: domain.FieldDate, Match: equalsAny("date", "timestamp", "ds")},
	{Name: "xgboost", Field: domain.FieldXGBoost, Match: notDateLike(containsAny("xgboost"))},
	{Name: "random forest", Field: domain.FieldRandomForest, Match: notDateLike(containsAny("random_forest", "randomforest"))},
	{Name: "lightgbm", Field: domain.FieldLightGBM, Match: notDateLike(containsAny("light_gbm", "lightgbm"))},
	{Name: "dnn", Field: domain.FieldDNN, Match: notDateLike(containsAny("dnn"))},
	{Name: "consensus", Field: domain.FieldConsensus, Match: notDateLike(containsAny("consensus", "ensemble", "prediction", "yhat", "forecast"))},
	{Name: "actual", Field: domain.FieldActual, Match: notDateLike(func(s string) bool {
		return containsAny("actual", "observed", "sales")(s) || equalsAny("quantity", "qty", "y")(s)
	})},
}

// ClassifyColumn returns the field a column name maps to
func ClassifyColumn(name string) (domain.Field, bool) {
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, rule := range ColumnRules {
		if rule.Match(lower) {
			return rule.Field, true
		}
	}
	return "", false
}

// Normalize converts warehouse rows into forecast points, one per row in
// row order. Unclassified columns are dropped. Numeric cells that are null or
// unparseable leave the field absent. When two columns map to the same field
// the last present value wins.
func Normalize(columns []string, rows []domain.Row) domain.Series {
	if len(rows) == 0 {
		return domain.Series{}
	}

	type mapped struct {
		column string
		field  domain.Field
	}
	var plan []mapped
	for _, col := range columns {
		if f, ok := ClassifyColumn(col); ok {
			plan = append(plan, mapped{column: col, field: f})
		}
	}

	series := make(domain.Series, 0, len(rows))
	for _, row := range rows {
		var point domain.ForecastPoint
		for _, m := range plan {
			cell, ok := row[m.column]
			if !ok || cell.IsNull() {
				continue
			}
			if m.field == domain.FieldDate {
				point.Date = normalizeDate(cell)
				continue
			}
			if v, ok := cell.Float(); ok && !math.IsNaN(v) && !math.IsInf(v, 0) {
				point.Set(m.field, v)
			}
		}
		series = append(series, point)
	}
	return series
}

// normalizeDate renders a date cell as YYYY-MM-DD. Numeric cells are epoch
// seconds, which is how the warehouse encodes TIMESTAMP columns; strings are
// cut at the first 'T'.
func normalizeDate(cell domain.Scalar) string {
	if cell.Kind == domain.ScalarNumber {
		sec, frac := math.Modf(cell.Num)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC().Format("2006-01-02")
	}
	s := strings.TrimSpace(cell.String())
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		s = s[:i]
	}
	return s
}
