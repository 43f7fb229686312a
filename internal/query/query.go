package query

import (
	"context"
	"slices"
	"strings"
)

// Kind selects the record table a query runs against.
type Kind int

const (
	Studies Kind = iota
	Series
	Instances
)

func (k Kind) String() string {
	switch k {
	case Studies:
		return "studies"
	case Series:
		return "series"
	case Instances:
		return "instances"
	default:
		return "unknown"
	}
}

// Row exposes stored column values. A column that is absent, null or empty
// yields no values; multi-valued columns yield one entry per value.
type Row interface {
	Values(column string) []string
}

// Source executes queries against a record store.
type Source interface {
	Execute(ctx context.Context, q Query) ([]Row, error)
}

// Query is an immutable conjunction of predicates over one record kind.
type Query struct {
	kind  Kind
	where []Predicate
}

// New returns an unconstrained query over the kind.
func New(kind Kind) Query {
	return Query{kind: kind}
}

// Kind returns the record kind.
func (q Query) Kind() Kind { return q.kind }

// Where returns a copy of q with p conjoined.
func (q Query) Where(p Predicate) Query {
	where := make([]Predicate, len(q.where), len(q.where)+1)
	copy(where, q.where)
	return Query{kind: q.kind, where: append(where, p)}
}

// Predicates returns the conjuncts in the order they were added.
func (q Query) Predicates() []Predicate {
	return slices.Clone(q.where)
}

// Matches reports whether a row satisfies every conjunct.
func (q Query) Matches(row Row) bool {
	for _, p := range q.where {
		if !p.Matches(row) {
			return false
		}
	}
	return true
}

func (q Query) String() string {
	parts := make([]string, len(q.where))
	for i, p := range q.where {
		parts[i] = p.String()
	}
	return q.kind.String() + " WHERE " + strings.Join(parts, " AND ")
}
