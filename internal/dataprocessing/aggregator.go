package dataprocessing

import (
	"sort"

	"demandplanner/pkg/contracts/domain"
)

// Period selects the aggregation bucket
type Period string

const (
	// PeriodDay groups by the exact date string of each record
	PeriodDay Period = "day"
	// PeriodMonth groups into YYYY-MM-01 buckets
	PeriodMonth Period = "month"
)

// ParsePeriod maps a flag or query value onto a Period, defaulting to day
func ParsePeriod(s string) (Period, bool) {
	switch Period(s) {
	case "", PeriodDay:
		return PeriodDay, true
	case PeriodMonth:
		return PeriodMonth, true
	}
	return "", false
}

// AggregateByDate sums quantities per exact date string. The result holds one
// actual-only point per distinct date in ascending lexicographic order.
// Missing dates are not filled.
func AggregateByDate(sales []domain.SalesRecord) domain.Series {
	return Aggregate(sales, PeriodDay)
}

// Aggregate sums quantities per period bucket
func Aggregate(sales []domain.SalesRecord, period Period) domain.Series {
	totals := make(map[string]float64)
	for _, s := range sales {
		totals[bucket(s.Date, period)] += s.Quantity
	}

	dates := make([]string, 0, len(totals))
	for d := range totals {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	series := make(domain.Series, 0, len(dates))
	for _, d := range dates {
		series = append(series, domain.ForecastPoint{Date: d, Actual: domain.Float(totals[d])})
	}
	return series
}

// bucket returns the group key for date. Month buckets need a YYYY-MM
// prefix; shorter strings stay in their own bucket.
func bucket(date string, period Period) string {
	if period == PeriodMonth && len(date) >= 7 && date[4] == '-' {
		return date[:7] + "-01"
	}
	return date
}
