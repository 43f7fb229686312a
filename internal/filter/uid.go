package filter

import (
	"github.com/rcliao/dicom-find/internal/match"
	"github.com/rcliao/dicom-find/internal/query"
)

// uidFilter matches a list of exact UIDs. Wildcards are literal.
type uidFilter struct {
	field
}

func (u *uidFilter) AddToQuery(q query.Query) (query.Query, error) {
	if !u.ShouldAddToQuery() {
		return q, nil
	}
	uids := match.SplitValues(u.criterion.Value)
	switch len(uids) {
	case 0:
		return q, nil
	case 1:
		return q.Where(query.Eq(u.spec.Column, uids[0])), nil
	}
	return q.Where(query.In(u.spec.Column, uids...)), nil
}

func (u *uidFilter) FilterResults([]query.Row) ([]query.Row, error) {
	u.alwaysPushed()
	return nil, nil
}
