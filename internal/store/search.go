package store

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rcliao/dicom-find/internal/match"
	"github.com/rcliao/dicom-find/internal/model"
	"github.com/rcliao/dicom-find/internal/query"
)

// column maps a record column onto SQL. Columns held by child rows set
// exists, a correlated subquery with one %s placeholder for the condition
// on expr.
type column struct {
	expr   string
	exists string
	// exact columns compare without case folding so that key and UID
	// lookups can use their indexes.
	exact bool
}

// multi maps a column that may hold backslash-joined values. Conditions
// hold when any single value satisfies them.
func multi(expr string) column {
	return column{
		expr:   "v.value",
		exists: "EXISTS (SELECT 1 FROM json_each(dicom_split(" + expr + ")) v WHERE %s)",
	}
}

type table struct {
	name    string
	columns map[string]column
	fields  string
	order   string
}

const (
	studySeriesCount   = `(SELECT COUNT(*) FROM series x WHERE x.study_pk = s.pk)`
	studyInstanceCount = `(SELECT COUNT(*) FROM instances x WHERE x.study_pk = s.pk)`
	seriesInstanceCnt  = `(SELECT COUNT(*) FROM instances x WHERE x.series_pk = s.pk)`
)

var tables = map[query.Kind]table{
	query.Studies: {
		name: "studies",
		columns: map[string]column{
			model.ColKey:                {expr: "s.pk", exact: true},
			model.ColStudyUID:           {expr: "s.study_uid", exact: true},
			model.ColPatientID:          multi("s.patient_id"),
			model.ColPatientName:        multi("s.patient_name"),
			model.ColPatientBirthDate:   {expr: "s.patient_birth_date"},
			model.ColPatientSex:         multi("s.patient_sex"),
			model.ColStudyDate:          {expr: "s.study_date"},
			model.ColStudyTime:          {expr: "s.study_time"},
			model.ColAccessionNumber:    multi("s.accession_number"),
			model.ColStudyID:            multi("s.study_id"),
			model.ColStudyDescription:   multi("s.study_description"),
			model.ColReferringPhysician: multi("s.referring_physician"),
			model.ColSpecificCharset:    multi("s.specific_charset"),
			model.ColDeleted:            {expr: "s.deleted"},
			model.ColReindex:            {expr: "s.reindex"},
			model.ColStudySeriesCount:   {expr: studySeriesCount},
			model.ColStudyInstanceCount: {expr: studyInstanceCount},
			model.ColModalitiesInStudy: {
				expr:   "v.value",
				exists: "EXISTS (SELECT 1 FROM series m, json_each(dicom_split(m.modality)) v " +
					"WHERE m.study_pk = s.pk AND %s)",
			},
		},
		fields: `s.pk, s.study_uid, s.patient_id, s.patient_name, s.patient_birth_date, s.patient_sex,
		         s.study_date, s.study_time, s.accession_number, s.study_id, s.study_description,
		         s.referring_physician, s.specific_charset, s.deleted, s.reindex, s.created_at, ` +
			studySeriesCount + `, ` + studyInstanceCount,
		order: "s.created_at, s.pk",
	},
	query.Series: {
		name: "series",
		columns: map[string]column{
			model.ColKey:                 {expr: "s.pk", exact: true},
			model.ColStudyKey:            {expr: "s.study_pk", exact: true},
			model.ColStudyUID:            {expr: "s.study_uid", exact: true},
			model.ColSeriesUID:           {expr: "s.series_uid", exact: true},
			model.ColModality:            multi("s.modality"),
			model.ColSeriesNumber:        multi("s.series_number"),
			model.ColSeriesDescription:   multi("s.series_description"),
			model.ColBodyPartExamined:    multi("s.body_part"),
			model.ColSeriesDate:          {expr: "s.series_date"},
			model.ColSeriesTime:          {expr: "s.series_time"},
			model.ColSeriesInstanceCount: {expr: seriesInstanceCnt},
		},
		fields: `s.pk, s.study_pk, s.study_uid, s.series_uid, s.modality, s.series_number,
		         s.series_description, s.body_part, s.series_date, s.series_time, s.created_at, ` +
			seriesInstanceCnt,
		order: "s.created_at, s.pk",
	},
	query.Instances: {
		name: "instances",
		columns: map[string]column{
			model.ColKey:             {expr: "s.pk", exact: true},
			model.ColSeriesKey:       {expr: "s.series_pk", exact: true},
			model.ColStudyKey:        {expr: "s.study_pk", exact: true},
			model.ColStudyUID:        {expr: "s.study_uid", exact: true},
			model.ColSeriesUID:       {expr: "s.series_uid", exact: true},
			model.ColSOPInstanceUID:  {expr: "s.sop_uid", exact: true},
			model.ColSOPClassUID:     {expr: "s.sop_class_uid", exact: true},
			model.ColInstanceNumber:  multi("s.instance_number"),
			model.ColImageComments:   {expr: "s.image_comments"},
			model.ColContentDate:     {expr: "s.content_date"},
			model.ColContentTime:     {expr: "s.content_time"},
			model.ColSpecificCharset: multi("s.specific_charset"),
		},
		fields: `s.pk, s.series_pk, s.study_pk, s.study_uid, s.series_uid, s.sop_uid, s.sop_class_uid,
		         s.instance_number, s.image_comments, s.content_date, s.content_time,
		         s.specific_charset, s.created_at`,
		order: "s.created_at, s.pk",
	},
}

// Execute runs q and returns the matching rows in insertion order.
func (s *SQLiteStore) Execute(ctx context.Context, q query.Query) ([]query.Row, error) {
	t, ok := tables[q.Kind()]
	if !ok {
		return nil, fmt.Errorf("store: execute: unknown kind %s", q.Kind())
	}

	var (
		where []string
		args  []interface{}
	)
	for _, p := range q.Predicates() {
		cond, a, err := t.render(p)
		if err != nil {
			return nil, fmt.Errorf("store: execute %s: %w", q.Kind(), err)
		}
		where = append(where, cond)
		args = append(args, a...)
	}

	stmt := "SELECT " + t.fields + " FROM " + t.name + " s"
	if len(where) > 0 {
		stmt += " WHERE " + strings.Join(where, " AND ")
	}
	stmt += " ORDER BY " + t.order

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("store: execute %s: %w", q.Kind(), err)
	}
	defer rows.Close()

	var out []query.Row
	switch q.Kind() {
	case query.Studies:
		var studies []*model.Study
		for rows.Next() {
			st, err := scanStudy(rows)
			if err != nil {
				return nil, err
			}
			studies = append(studies, &st)
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
		rows.Close()
		if err := s.loadModalities(ctx, studies); err != nil {
			return nil, err
		}
		for _, st := range studies {
			out = append(out, *st)
		}
	case query.Series:
		for rows.Next() {
			se, err := scanSeries(rows)
			if err != nil {
				return nil, err
			}
			out = append(out, se)
		}
	case query.Instances:
		for rows.Next() {
			in, err := scanInstance(rows)
			if err != nil {
				return nil, err
			}
			out = append(out, in)
		}
	}
	return out, rows.Err()
}

// loadModalities fills ModalitiesInStudy with the distinct atomic
// modalities of the studies' series.
func (s *SQLiteStore) loadModalities(ctx context.Context, studies []*model.Study) error {
	if len(studies) == 0 {
		return nil
	}
	byPK := make(map[string]*model.Study, len(studies))
	marks := make([]string, len(studies))
	args := make([]interface{}, len(studies))
	for i, st := range studies {
		byPK[st.PK] = st
		marks[i] = "?"
		args[i] = st.PK
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT study_pk, modality FROM series
		 WHERE modality IS NOT NULL AND study_pk IN (`+strings.Join(marks, ", ")+`)
		 ORDER BY study_pk, modality`, args...)
	if err != nil {
		return fmt.Errorf("load modalities: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pk, modality string
		if err := rows.Scan(&pk, &modality); err != nil {
			return err
		}
		if st := byPK[pk]; st != nil {
			st.ModalitiesInStudy = append(st.ModalitiesInStudy, match.SplitValues(modality)...)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for _, st := range studies {
		slices.Sort(st.ModalitiesInStudy)
		st.ModalitiesInStudy = slices.Compact(st.ModalitiesInStudy)
	}
	return nil
}

func (t table) render(p query.Predicate) (string, []interface{}, error) {
	if p.Op == query.OpOr {
		parts := make([]string, 0, len(p.Children))
		var args []interface{}
		for _, c := range p.Children {
			cond, a, err := t.render(c)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, cond)
			args = append(args, a...)
		}
		if len(parts) == 0 {
			return "0", nil, nil
		}
		return "(" + strings.Join(parts, " OR ") + ")", args, nil
	}

	col, ok := t.columns[p.Column]
	if !ok {
		return "", nil, fmt.Errorf("unknown column %q for %s", p.Column, t.name)
	}
	cond, args, err := leaf(col, p)
	if err != nil {
		return "", nil, err
	}
	if col.exists != "" {
		cond = fmt.Sprintf(col.exists, cond)
	}
	return cond, args, nil
}

func leaf(col column, p query.Predicate) (string, []interface{}, error) {
	folded := "dicom_fold(" + col.expr + ")"
	fold := match.Fold
	if col.exact {
		folded = col.expr
		fold = func(s string) string { return s }
	}

	switch p.Op {
	case query.OpEq:
		return folded + " = ?", []interface{}{fold(p.Values[0])}, nil
	case query.OpLike:
		return "dicom_fold(" + col.expr + `) LIKE ? ESCAPE '\'`,
			[]interface{}{match.WildcardToLike(p.Values[0])}, nil
	case query.OpIn:
		if len(p.Values) == 0 {
			return "0", nil, nil
		}
		marks := make([]string, len(p.Values))
		args := make([]interface{}, len(p.Values))
		for i, v := range p.Values {
			marks[i] = "?"
			args[i] = fold(v)
		}
		return folded + " IN (" + strings.Join(marks, ", ") + ")", args, nil
	case query.OpBetween:
		return col.expr + " BETWEEN ? AND ?", []interface{}{p.Values[0], p.Values[1]}, nil
	case query.OpGte:
		return col.expr + " >= ?", []interface{}{p.Values[0]}, nil
	case query.OpLte:
		return col.expr + " <= ?", []interface{}{p.Values[0]}, nil
	case query.OpUnset:
		return "COALESCE(" + col.expr + ", 0) = 0", nil, nil
	}
	return "", nil, fmt.Errorf("unsupported op %s on %q", p.Op, p.Column)
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanStudy(row scanner) (model.Study, error) {
	var (
		st                                           model.Study
		patientID, patientName, birthDate, sex       sql.NullString
		date, tm, accession, studyID, desc, referrer sql.NullString
		charset                                      sql.NullString
		deleted, reindex                             int
		createdAt                                    string
	)
	err := row.Scan(&st.PK, &st.StudyInstanceUID, &patientID, &patientName, &birthDate, &sex,
		&date, &tm, &accession, &studyID, &desc, &referrer, &charset, &deleted, &reindex,
		&createdAt, &st.NumSeries, &st.NumInstances)
	if err != nil {
		return st, err
	}
	st.PatientID = patientID.String
	st.PatientName = patientName.String
	st.PatientBirthDate = birthDate.String
	st.PatientSex = sex.String
	st.StudyDate = date.String
	st.StudyTime = tm.String
	st.AccessionNumber = accession.String
	st.StudyID = studyID.String
	st.StudyDescription = desc.String
	st.ReferringPhysicianName = referrer.String
	st.SpecificCharacterSet = charset.String
	st.Deleted = deleted != 0
	st.Reindex = reindex != 0
	st.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return st, nil
}

func scanSeries(row scanner) (model.Series, error) {
	var (
		se                               model.Series
		modality, number, desc, bodyPart sql.NullString
		date, tm                         sql.NullString
		createdAt                        string
	)
	err := row.Scan(&se.PK, &se.StudyPK, &se.StudyInstanceUID, &se.SeriesInstanceUID,
		&modality, &number, &desc, &bodyPart, &date, &tm, &createdAt, &se.NumInstances)
	if err != nil {
		return se, err
	}
	se.Modality = modality.String
	se.SeriesNumber = number.String
	se.SeriesDescription = desc.String
	se.BodyPartExamined = bodyPart.String
	se.SeriesDate = date.String
	se.SeriesTime = tm.String
	se.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return se, nil
}

func scanInstance(row scanner) (model.Instance, error) {
	var (
		in                         model.Instance
		classUID, number, comments sql.NullString
		date, tm, charset          sql.NullString
		createdAt                  string
	)
	err := row.Scan(&in.PK, &in.SeriesPK, &in.StudyPK, &in.StudyInstanceUID, &in.SeriesInstanceUID,
		&in.SOPInstanceUID, &classUID, &number, &comments, &date, &tm, &charset, &createdAt)
	if err != nil {
		return in, err
	}
	in.SOPClassUID = classUID.String
	in.InstanceNumber = number.String
	in.ImageComments = comments.String
	in.ContentDate = date.String
	in.ContentTime = tm.String
	in.SpecificCharacterSet = charset.String
	in.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return in, nil
}
