package dataprocessing

import (
	"sort"

	"demandplanner/pkg/contracts/domain"
)

// Merge concatenates history and forecast and stable-sorts the result by
// date, so same-date points keep their input order with history first.
// Points sharing a date are kept separate. Neither input is modified.
func Merge(history, forecast domain.Series) domain.Series {
	merged := make(domain.Series, 0, len(history)+len(forecast))
	for _, p := range history {
		merged = append(merged, p.Clone())
	}
	for _, p := range forecast {
		merged = append(merged, p.Clone())
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Date < merged[j].Date
	})
	return merged
}

// Coalesce folds consecutive points with the same date into one, taking the
// first present value of each field. Input must be sorted by date, as Merge
// output is.
func Coalesce(series domain.Series) domain.Series {
	out := make(domain.Series, 0, len(series))
	for _, p := range series {
		if n := len(out); n > 0 && out[n-1].Date == p.Date {
			last := &out[n-1]
			for _, f := range domain.SeriesFields[1:] {
				if _, has := last.Value(f); has {
					continue
				}
				if v, ok := p.Value(f); ok {
					last.Set(f, v)
				}
			}
			continue
		}
		out = append(out, p.Clone())
	}
	return out
}
