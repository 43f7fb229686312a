package filter

import (
	"github.com/rcliao/dicom-find/internal/match"
	"github.com/rcliao/dicom-find/internal/query"
)

// stringFilter matches text attributes. Each criterion value is either a
// wildcard pattern or an exact, case-insensitive value.
type stringFilter struct {
	multiValued
}

func newStringFilter(f field) *stringFilter {
	s := &stringFilter{multiValued{field: f}}
	s.rule = s.valueRule
	return s
}

func (s *stringFilter) valueRule(v string) valueRule {
	col := s.spec.Column
	if match.IsWildcard(s.spec.Path.VR, v) {
		re := match.CompileWildcard(v)
		return valueRule{
			pred:  query.Like(col, v),
			match: func(stored string) bool { return re.MatchString(match.Fold(stored)) },
		}
	}
	return valueRule{
		pred:  query.Eq(col, v),
		match: func(stored string) bool { return match.EqualsCI(stored, v) },
	}
}
