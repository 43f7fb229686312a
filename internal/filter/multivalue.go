package filter

import (
	"strings"

	"github.com/rcliao/dicom-find/internal/dataset"
	"github.com/rcliao/dicom-find/internal/match"
	"github.com/rcliao/dicom-find/internal/query"
)

// Text VRs whose values may contain the delimiter and are never split.
var singleValued = map[dataset.VR]bool{
	dataset.LT: true, dataset.ST: true, dataset.UT: true,
}

// atoms splits a value into its atomic values for the VR.
func atoms(vr dataset.VR, s string) []string {
	if singleValued[vr] {
		if s = strings.TrimSpace(s); s != "" {
			return []string{s}
		}
		return nil
	}
	return match.SplitValues(s)
}

// valueRule matches one atomic criterion value.
type valueRule struct {
	pred  query.Predicate
	match func(stored string) bool
}

// multiValued applies a per-value rule across a criterion that may hold
// several values (OR) and stored values that may hold several values
// (match when any stored value satisfies any criterion value). A row with
// no stored value never matches a non-empty criterion.
type multiValued struct {
	field
	rule  func(value string) valueRule
	rules []valueRule
	built bool
}

func (m *multiValued) valueRules() []valueRule {
	if !m.built {
		m.built = true
		if m.ShouldAddToQuery() {
			for _, v := range atoms(m.spec.Path.VR, m.criterion.Value) {
				m.rules = append(m.rules, m.rule(v))
			}
		}
	}
	return m.rules
}

func (m *multiValued) AddToQuery(q query.Query) (query.Query, error) {
	if !m.Pushable() {
		return q, nil
	}
	rules := m.valueRules()
	switch len(rules) {
	case 0:
		return q, nil
	case 1:
		return q.Where(rules[0].pred), nil
	}
	preds := make([]query.Predicate, len(rules))
	for i, r := range rules {
		preds[i] = r.pred
	}
	return q.Where(query.Or(preds...)), nil
}

func (m *multiValued) FilterResults(rows []query.Row) ([]query.Row, error) {
	rules := m.valueRules()
	if len(rules) == 0 {
		return rows, nil
	}
	kept := rows[:0:0]
	for _, row := range rows {
		if m.matchRow(row, rules) {
			kept = append(kept, row)
		}
	}
	return kept, nil
}

func (m *multiValued) matchRow(row query.Row, rules []valueRule) bool {
	var stored []string
	for _, v := range row.Values(m.spec.Column) {
		stored = append(stored, atoms(m.spec.Path.VR, v)...)
	}
	for _, r := range rules {
		for _, v := range stored {
			if r.match(v) {
				return true
			}
		}
	}
	return false
}
