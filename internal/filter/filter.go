// Package filter translates a sparse criteria dataset into store predicates,
// in-memory post-filters and projected result datasets.
//
// Each attribute the engine understands is bound to one record column by a
// Spec. Filters are built fresh for every query from the caller's criteria
// and discarded afterwards; they hold no state shared between queries.
//
// A criterion is interpreted as follows:
//
//   - absent or null: no constraint, attribute not returned
//   - empty string: no constraint, attribute returned
//   - anything else: constraint applied, attribute returned
//
// Attributes flagged AlwaysReturn (the identifying UIDs) are returned
// regardless of the criterion.
package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rcliao/dicom-find/internal/dataset"
	"github.com/rcliao/dicom-find/internal/query"
)

var (
	// ErrInvalidCriterion is returned for criteria that cannot be parsed.
	ErrInvalidCriterion = errors.New("filter: invalid criterion")
	// ErrVRMismatch is returned when a criterion carries a VR other than the
	// one the attribute is declared with.
	ErrVRMismatch = errors.New("filter: criterion vr mismatch")
)

// ConfigError reports a filter wired in a way that can never produce
// correct answers. It is raised with panic.
type ConfigError struct {
	Path dataset.Path
	Msg  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("filter: %s: %s", e.Path, e.Msg)
}

// Kind selects the matching rules of a filter.
type Kind int

const (
	// KindString matches text with wildcards and multiple values.
	KindString Kind = iota
	// KindDate matches DA values and ranges.
	KindDate
	// KindTime matches TM values and ranges.
	KindTime
	// KindUID matches UID lists.
	KindUID
	// KindInfo is returned but never constrains.
	KindInfo
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindDate:
		return "date"
	case KindTime:
		return "time"
	case KindUID:
		return "uid"
	case KindInfo:
		return "info"
	default:
		return "unknown"
	}
}

// Spec binds one attribute to one record column.
type Spec struct {
	Path         dataset.Path
	Column       string
	Kind         Kind
	AlwaysReturn bool
	// PostFilter evaluates the criterion against materialized rows instead
	// of pushing it into the store. Only string filters support it.
	PostFilter bool
}

// Filter is the per-attribute contract used by a Set.
type Filter interface {
	Path() dataset.Path
	// Pushable reports whether the filter constrains the store query.
	// Filters that are not pushable constrain through FilterResults.
	Pushable() bool
	// ShouldAddToQuery reports whether the criterion is present and not null.
	ShouldAddToQuery() bool
	// AddToQuery returns q with the filter's predicate conjoined, or q
	// unchanged when there is nothing to push.
	AddToQuery(q query.Query) (query.Query, error)
	// FilterResults keeps the rows matching the criterion.
	FilterResults(rows []query.Row) ([]query.Row, error)
	// WriteResult copies the row's value into out when the attribute was
	// requested.
	WriteResult(row query.Row, out *dataset.Dataset)
}

var stringVRs = map[dataset.VR]bool{
	dataset.AE: true, dataset.AS: true, dataset.CS: true, dataset.DS: true,
	dataset.IS: true, dataset.LO: true, dataset.LT: true, dataset.PN: true,
	dataset.SH: true, dataset.ST: true, dataset.UT: true,
}

// New builds the filter described by spec for one criterion. It panics with
// a *ConfigError when the spec binds a filter to a path of the wrong VR.
func New(spec Spec, c dataset.Criterion) Filter {
	if spec.PostFilter && spec.Kind != KindString {
		panic(&ConfigError{Path: spec.Path, Msg: spec.Kind.String() + " filters cannot post-filter"})
	}
	f := field{spec: spec, criterion: c}
	switch spec.Kind {
	case KindString:
		requireVR(spec, stringVRs[spec.Path.VR])
		return newStringFilter(f)
	case KindDate:
		requireVR(spec, spec.Path.VR == dataset.DA)
		return newDateFilter(f)
	case KindTime:
		requireVR(spec, spec.Path.VR == dataset.TM)
		return newTimeFilter(f)
	case KindUID:
		requireVR(spec, spec.Path.VR == dataset.UI)
		return &uidFilter{field: f}
	case KindInfo:
		return &infoFilter{field: f}
	}
	panic(&ConfigError{Path: spec.Path, Msg: fmt.Sprintf("unknown filter kind %d", spec.Kind)})
}

func requireVR(spec Spec, ok bool) {
	if !ok {
		panic(&ConfigError{
			Path: spec.Path,
			Msg:  fmt.Sprintf("%s filter cannot bind VR %s", spec.Kind, spec.Path.VR),
		})
	}
}

// field carries the behavior common to every filter.
type field struct {
	spec      Spec
	criterion dataset.Criterion
}

func (f *field) Path() dataset.Path { return f.spec.Path }

func (f *field) Pushable() bool { return !f.spec.PostFilter }

func (f *field) ShouldAddToQuery() bool {
	return f.criterion.Present && !f.criterion.Null
}

func (f *field) requested() bool {
	return f.ShouldAddToQuery() || f.spec.AlwaysReturn
}

func (f *field) WriteResult(row query.Row, out *dataset.Dataset) {
	if !f.requested() {
		return
	}
	out.Set(f.spec.Path, strings.Join(row.Values(f.spec.Column), dataset.Delimiter))
}

func (f *field) invalid(err error) error {
	return fmt.Errorf("%w: %s %q: %v", ErrInvalidCriterion, f.spec.Path.Keyword, f.criterion.Value, err)
}

// alwaysPushed panics for filters whose criteria must never be evaluated
// in memory.
func (f *field) alwaysPushed() {
	panic(&ConfigError{Path: f.spec.Path, Msg: "post-filtering is not supported"})
}

// infoFilter returns a computed attribute without constraining on it.
type infoFilter struct {
	field
}

func (f *infoFilter) AddToQuery(q query.Query) (query.Query, error) { return q, nil }

func (f *infoFilter) FilterResults(rows []query.Row) ([]query.Row, error) { return rows, nil }
