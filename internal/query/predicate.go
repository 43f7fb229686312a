// Package query defines the composable, storage-agnostic query passed from
// the filter engine to a record store.
package query

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/rcliao/dicom-find/internal/match"
)

// Op identifies a predicate operation.
type Op int

const (
	// OpEq matches a column equal to a value, ignoring case.
	OpEq Op = iota
	// OpLike matches a column against a wildcard pattern.
	OpLike
	// OpIn matches a column equal to any of several values.
	OpIn
	// OpBetween matches lower <= column <= upper.
	OpBetween
	// OpGte matches column >= value.
	OpGte
	// OpLte matches column <= value.
	OpLte
	// OpOr matches when any child matches.
	OpOr
	// OpUnset matches a flag column that is absent or false.
	OpUnset
)

// String returns the string representation of the Op.
func (o Op) String() string {
	switch o {
	case OpEq:
		return "EQ"
	case OpLike:
		return "LIKE"
	case OpIn:
		return "IN"
	case OpBetween:
		return "BETWEEN"
	case OpGte:
		return "GTE"
	case OpLte:
		return "LTE"
	case OpOr:
		return "OR"
	case OpUnset:
		return "UNSET"
	default:
		return "UNKNOWN"
	}
}

// Predicate is one constraint on a record column. Values hold the operands
// in their unfolded form; OpLike carries the raw wildcard pattern.
type Predicate struct {
	Op       Op
	Column   string
	Values   []string
	Children []Predicate

	re *regexp.Regexp
}

// Eq returns an equality predicate.
func Eq(column, value string) Predicate {
	return Predicate{Op: OpEq, Column: column, Values: []string{value}}
}

// Like returns a wildcard predicate (* any run, ? one character).
func Like(column, pattern string) Predicate {
	return Predicate{
		Op:     OpLike,
		Column: column,
		Values: []string{pattern},
		re:     match.CompileWildcard(pattern),
	}
}

// In returns a membership predicate.
func In(column string, values ...string) Predicate {
	return Predicate{Op: OpIn, Column: column, Values: slices.Clone(values)}
}

// Between returns an inclusive range predicate.
func Between(column, lower, upper string) Predicate {
	return Predicate{Op: OpBetween, Column: column, Values: []string{lower, upper}}
}

// Gte returns a lower-bound predicate.
func Gte(column, value string) Predicate {
	return Predicate{Op: OpGte, Column: column, Values: []string{value}}
}

// Lte returns an upper-bound predicate.
func Lte(column, value string) Predicate {
	return Predicate{Op: OpLte, Column: column, Values: []string{value}}
}

// Or returns the disjunction of its children. A single child is returned
// as is.
func Or(children ...Predicate) Predicate {
	if len(children) == 1 {
		return children[0]
	}
	return Predicate{Op: OpOr, Children: slices.Clone(children)}
}

// Unset returns a predicate matching rows whose flag column is not set.
func Unset(column string) Predicate {
	return Predicate{Op: OpUnset, Column: column}
}

// Pattern returns the compiled wildcard of an OpLike predicate.
func (p Predicate) Pattern() *regexp.Regexp {
	if p.re == nil && p.Op == OpLike && len(p.Values) == 1 {
		return match.CompileWildcard(p.Values[0])
	}
	return p.re
}

// Matches evaluates the predicate against a row. A column holding several
// values matches when any of them does; a column with no values never
// matches except under OpUnset.
func (p Predicate) Matches(row Row) bool {
	if p.Op == OpOr {
		for _, c := range p.Children {
			if c.Matches(row) {
				return true
			}
		}
		return false
	}

	values := row.Values(p.Column)
	if p.Op == OpUnset {
		for _, v := range values {
			if v != "" && v != "0" && !strings.EqualFold(v, "false") {
				return false
			}
		}
		return true
	}

	var re *regexp.Regexp
	if p.Op == OpLike {
		re = p.Pattern()
	}
	for _, v := range values {
		if p.matchValue(v, re) {
			return true
		}
	}
	return false
}

func (p Predicate) matchValue(v string, re *regexp.Regexp) bool {
	switch p.Op {
	case OpEq:
		return match.EqualsCI(v, p.Values[0])
	case OpLike:
		return re.MatchString(match.Fold(v))
	case OpIn:
		for _, want := range p.Values {
			if match.EqualsCI(v, want) {
				return true
			}
		}
		return false
	case OpBetween:
		return v >= p.Values[0] && v <= p.Values[1]
	case OpGte:
		return v >= p.Values[0]
	case OpLte:
		return v <= p.Values[0]
	default:
		return false
	}
}

func (p Predicate) String() string {
	if p.Op == OpOr {
		parts := make([]string, len(p.Children))
		for i, c := range p.Children {
			parts[i] = c.String()
		}
		return "(" + strings.Join(parts, " OR ") + ")"
	}
	return fmt.Sprintf("%s %s %q", p.Column, p.Op, p.Values)
}
