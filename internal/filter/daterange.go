package filter

import (
	"time"

	"github.com/rcliao/dicom-find/internal/match"
	"github.com/rcliao/dicom-find/internal/query"
)

// rangeFilter matches DA and TM attributes against a single value or an
// open or closed range. It is always pushed into the store.
type rangeFilter struct {
	field
	parse  func(string) (match.Range, error)
	format func(time.Time) string

	parsed bool
	rng    match.Range
	err    error
}

func newDateFilter(f field) *rangeFilter {
	return &rangeFilter{field: f, parse: match.ParseDateRange, format: match.FormatDate}
}

func newTimeFilter(f field) *rangeFilter {
	return &rangeFilter{field: f, parse: match.ParseTimeRange, format: match.FormatTime}
}

// bounds parses the criterion on first use.
func (r *rangeFilter) bounds() (match.Range, error) {
	if !r.parsed {
		r.parsed = true
		r.rng, r.err = r.parse(r.criterion.Value)
		if r.err != nil {
			r.err = r.invalid(r.err)
		}
	}
	return r.rng, r.err
}

func (r *rangeFilter) AddToQuery(q query.Query) (query.Query, error) {
	if !r.ShouldAddToQuery() {
		return q, nil
	}
	rng, err := r.bounds()
	if err != nil {
		return q, err
	}

	col := r.spec.Column
	switch {
	case !rng.IsRange && rng.Lower.Equal(rng.Upper):
		return q.Where(query.Eq(col, r.format(rng.Lower))), nil
	case rng.HasLower() && rng.HasUpper():
		return q.Where(query.Between(col, r.format(rng.Lower), r.format(rng.Upper))), nil
	case rng.HasLower():
		return q.Where(query.Gte(col, r.format(rng.Lower))), nil
	case rng.HasUpper():
		return q.Where(query.Lte(col, r.format(rng.Upper))), nil
	}
	return q, nil
}

func (r *rangeFilter) FilterResults([]query.Row) ([]query.Row, error) {
	r.alwaysPushed()
	return nil, nil
}
