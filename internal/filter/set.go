package filter

import (
	"context"
	"fmt"

	"github.com/rcliao/dicom-find/internal/dataset"
	"github.com/rcliao/dicom-find/internal/model"
	"github.com/rcliao/dicom-find/internal/query"
)

// Result is one matched row with its projected attributes.
type Result struct {
	Row   query.Row
	Attrs *dataset.Dataset
}

// Set holds the filters of one record kind for one query.
type Set struct {
	kind    query.Kind
	filters []Filter
	base    []query.Predicate
	charset *dataset.Element

	candidates int
}

// NewSet builds one filter per spec from the criteria. Base predicates are
// conjoined to every query the set builds.
func NewSet(kind query.Kind, specs []Spec, base []query.Predicate, criteria *dataset.Dataset) (*Set, error) {
	if criteria == nil {
		criteria = dataset.New()
	}
	s := &Set{kind: kind, base: base}
	for _, spec := range specs {
		c := criteria.Criterion(spec.Path)
		if c.Present && c.VR != spec.Path.VR {
			return nil, fmt.Errorf("%w: %s is %s, got %s", ErrVRMismatch, spec.Path.Keyword, spec.Path.VR, c.VR)
		}
		s.filters = append(s.filters, New(spec, c))
	}
	if e, ok := criteria.Get(dataset.SpecificCharacterSet.Tag); ok && !e.Null {
		s.charset = e
	}
	return s, nil
}

// ForStudies builds the study-level set. Studies pending deletion or
// reindexing are excluded from every query.
func ForStudies(criteria *dataset.Dataset) (*Set, error) {
	base := []query.Predicate{
		query.Unset(model.ColDeleted),
		query.Unset(model.ColReindex),
	}
	return NewSet(query.Studies, StudySpecs(), base, criteria)
}

// ForSeries builds the series-level set.
func ForSeries(criteria *dataset.Dataset) (*Set, error) {
	return NewSet(query.Series, SeriesSpecs(), nil, criteria)
}

// ForInstances builds the instance-level set.
func ForInstances(criteria *dataset.Dataset) (*Set, error) {
	return NewSet(query.Instances, InstanceSpecs(), nil, criteria)
}

// Kind returns the record kind the set queries.
func (s *Set) Kind() query.Kind { return s.kind }

// Filters returns the filters in evaluation order.
func (s *Set) Filters() []Filter { return s.filters }

// PostFilters returns the number of filters evaluated in memory.
func (s *Set) PostFilters() int {
	n := 0
	for _, f := range s.filters {
		if !f.Pushable() {
			n++
		}
	}
	return n
}

// Candidates returns the number of rows the store returned on the last Run,
// before post-filtering.
func (s *Set) Candidates() int { return s.candidates }

// Apply narrows q with the base predicates and every filter's predicate.
func (s *Set) Apply(q query.Query) (query.Query, error) {
	for _, p := range s.base {
		q = q.Where(p)
	}
	for _, f := range s.filters {
		var err error
		if q, err = f.AddToQuery(q); err != nil {
			return q, err
		}
	}
	return q, nil
}

// Filter applies the filters that are not pushed into the store.
func (s *Set) Filter(rows []query.Row) ([]query.Row, error) {
	for _, f := range s.filters {
		if f.Pushable() {
			continue
		}
		var err error
		if rows, err = f.FilterResults(rows); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// Project builds the output dataset for one row. SpecificCharacterSet is
// returned only when the criteria carried it: the row's stored value when it
// has one, the criteria's value otherwise.
func (s *Set) Project(row query.Row) *dataset.Dataset {
	out := dataset.New()
	for _, f := range s.filters {
		f.WriteResult(row, out)
	}
	if s.charset == nil {
		return out
	}
	if cs := row.Values(model.ColSpecificCharset); len(cs) > 0 {
		out.SetValues(dataset.SpecificCharacterSet, cs...)
	} else {
		out.Put(&dataset.Element{Tag: s.charset.Tag, VR: s.charset.VR, Value: s.charset.Value})
	}
	return out
}

// Run executes the set against src. Scope predicates restrict the query to
// already resolved parents.
func (s *Set) Run(ctx context.Context, src query.Source, scope ...query.Predicate) ([]Result, error) {
	q := query.New(s.kind)
	for _, p := range scope {
		q = q.Where(p)
	}
	q, err := s.Apply(q)
	if err != nil {
		return nil, err
	}

	rows, err := src.Execute(ctx, q)
	if err != nil {
		return nil, err
	}
	s.candidates = len(rows)
	if rows, err = s.Filter(rows); err != nil {
		return nil, err
	}

	results := make([]Result, len(rows))
	for i, row := range rows {
		results[i] = Result{Row: row, Attrs: s.Project(row)}
	}
	return results, nil
}
