package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/dicom-find/internal/dataset"
	"github.com/rcliao/dicom-find/internal/model"
	"github.com/rcliao/dicom-find/internal/query"
)

func TestRender(t *testing.T) {
	studyTable := tables[query.Studies]

	tests := []struct {
		name string
		pred query.Predicate
		sql  string
		args []interface{}
	}{
		{
			name: "eq folds",
			pred: query.Eq(model.ColPatientID, "Abc"),
			sql:  "EXISTS (SELECT 1 FROM json_each(dicom_split(s.patient_id)) v WHERE dicom_fold(v.value) = ?)",
			args: []interface{}{"abc"},
		},
		{
			name: "eq on uid is exact",
			pred: query.Eq(model.ColStudyUID, "1.2.3"),
			sql:  "s.study_uid = ?",
			args: []interface{}{"1.2.3"},
		},
		{
			name: "like escapes",
			pred: query.Like(model.ColStudyDescription, "50%_*"),
			sql:  `EXISTS (SELECT 1 FROM json_each(dicom_split(s.study_description)) v WHERE dicom_fold(v.value) LIKE ? ESCAPE '\')`,
			args: []interface{}{`50\%\_%`},
		},
		{
			name: "in",
			pred: query.In(model.ColKey, "A", "B"),
			sql:  "s.pk IN (?, ?)",
			args: []interface{}{"A", "B"},
		},
		{
			name: "between",
			pred: query.Between(model.ColStudyDate, "20240101", "20240131"),
			sql:  "s.study_date BETWEEN ? AND ?",
			args: []interface{}{"20240101", "20240131"},
		},
		{
			name: "unset",
			pred: query.Unset(model.ColDeleted),
			sql:  "COALESCE(s.deleted, 0) = 0",
		},
		{
			name: "modalities join",
			pred: query.Eq(model.ColModalitiesInStudy, "CT"),
			sql:  "EXISTS (SELECT 1 FROM series m, json_each(dicom_split(m.modality)) v WHERE m.study_pk = s.pk AND dicom_fold(v.value) = ?)",
			args: []interface{}{"ct"},
		},
		{
			name: "or",
			pred: query.Or(query.Eq(model.ColPatientSex, "M"), query.Lte(model.ColStudyTime, "120000")),
			sql:  "(EXISTS (SELECT 1 FROM json_each(dicom_split(s.patient_sex)) v WHERE dicom_fold(v.value) = ?) OR s.study_time <= ?)",
			args: []interface{}{"m", "120000"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := studyTable.render(tt.pred)
			require.NoError(t, err)
			assert.Equal(t, tt.sql, sql)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestRenderUnknownColumn(t *testing.T) {
	_, _, err := tables[query.Series].render(query.Eq(model.ColPatientName, "x"))
	require.Error(t, err)

	s := newTestStore(t)
	_, err = s.Execute(context.Background(), query.New(query.Series).Where(query.Eq(model.ColPatientName, "x")))
	require.ErrorContains(t, err, "unknown column")
}

// TestStoresAgree runs the same queries against both stores and expects the
// same rows in the same order.
func TestStoresAgree(t *testing.T) {
	ctx := context.Background()
	sqlStore := newTestStore(t)
	memStore := NewMemoryStore()

	fixtures := []*dataset.Dataset{
		instance("2.1", "2.1.1", "2.1.1.1", map[dataset.Path]string{
			dataset.PatientID:        "PAT-1",
			dataset.StudyDescription: "Chest CT",
			dataset.StudyDate:        "20240105",
			dataset.StudyTime:        "0930",
			dataset.Modality:         "CT",
		}),
		instance("2.1", "2.1.2", "2.1.2.1", map[dataset.Path]string{
			dataset.Modality: "SR",
		}),
		instance("2.2", "2.2.1", "2.2.1.1", map[dataset.Path]string{
			dataset.PatientID:        "pat-2",
			dataset.StudyDescription: "HEAD MR 50%",
			dataset.StudyDate:        "20240220",
			dataset.StudyTime:        "141500",
			dataset.Modality:         "MR",
		}),
		instance("2.3", "2.3.1", "2.3.1.1", map[dataset.Path]string{
			dataset.PatientID: "PAT_3",
			dataset.StudyDate: "20231231",
		}),
	}
	for _, ds := range fixtures {
		put(t, sqlStore, ds)
		put(t, memStore, ds)
	}
	require.NoError(t, sqlStore.MarkReindex(ctx, "2.3", true))
	require.NoError(t, memStore.MarkReindex(ctx, "2.3", true))

	tests := []struct {
		name  string
		preds []query.Predicate
		want  []string
	}{
		{"all", nil, []string{"2.1", "2.2", "2.3"}},
		{"eq ignores case", []query.Predicate{query.Eq(model.ColPatientID, "PAT-2")}, []string{"2.2"}},
		{"like", []query.Predicate{query.Like(model.ColStudyDescription, "*ct")}, []string{"2.1"}},
		{"like single char", []query.Predicate{query.Like(model.ColPatientID, "pat?3")}, []string{"2.3"}},
		{"like literal percent", []query.Predicate{query.Like(model.ColStudyDescription, "*50%")}, []string{"2.2"}},
		{"like percent is not a wildcard", []query.Predicate{query.Like(model.ColStudyDescription, "%")}, nil},
		{"underscore is literal", []query.Predicate{query.Eq(model.ColPatientID, "PAT_3")}, []string{"2.3"}},
		{"in", []query.Predicate{query.In(model.ColStudyUID, "2.1", "2.3", "2.30")}, []string{"2.1", "2.3"}},
		{"between", []query.Predicate{query.Between(model.ColStudyDate, "20240101", "20240131")}, []string{"2.1"}},
		{"gte", []query.Predicate{query.Gte(model.ColStudyDate, "20240101")}, []string{"2.1", "2.2"}},
		{"lte", []query.Predicate{query.Lte(model.ColStudyTime, "093000")}, []string{"2.1"}},
		{"modalities", []query.Predicate{query.Eq(model.ColModalitiesInStudy, "sr")}, []string{"2.1"}},
		{"modalities or", []query.Predicate{query.Or(
			query.Eq(model.ColModalitiesInStudy, "MR"),
			query.Like(model.ColModalitiesInStudy, "C?"),
		)}, []string{"2.1", "2.2"}},
		{"unset", []query.Predicate{query.Unset(model.ColReindex)}, []string{"2.1", "2.2"}},
		{"conjunction", []query.Predicate{
			query.Gte(model.ColStudyDate, "20240101"),
			query.Like(model.ColStudyDescription, "head*"),
		}, []string{"2.2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for name, s := range map[string]Store{"sqlite": sqlStore, "memory": memStore} {
				var got []string
				for _, st := range studies(t, s, tt.preds...) {
					got = append(got, st.StudyInstanceUID)
				}
				assert.Equal(t, tt.want, got, name)
			}
		})
	}
}

func TestStoresAgreeOnJoinedValues(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		put(t, s, instance("3.1", "3.1.1", "3.1.1.1", map[dataset.Path]string{
			dataset.StudyDescription: `CHEST\ABDOMEN`,
			dataset.Modality:         `CT\MR`,
		}))
		put(t, s, instance("3.1", "3.1.2", "3.1.2.1", map[dataset.Path]string{
			dataset.Modality: `MR\ US`,
		}))
		put(t, s, instance("3.2", "3.2.1", "3.2.1.1", map[dataset.Path]string{
			dataset.Modality: "CR",
		}))

		seriesUIDs := func(preds ...query.Predicate) []string {
			q := query.New(query.Series)
			for _, p := range preds {
				q = q.Where(p)
			}
			rows, err := s.Execute(ctx, q)
			require.NoError(t, err)
			var out []string
			for _, r := range rows {
				out = append(out, r.(model.Series).SeriesInstanceUID)
			}
			return out
		}

		assert.Equal(t, []string{"3.1.1"}, seriesUIDs(query.Eq(model.ColModality, "ct")))
		assert.Equal(t, []string{"3.1.1", "3.1.2"}, seriesUIDs(query.Eq(model.ColModality, "MR")))
		assert.Equal(t, []string{"3.1.2"}, seriesUIDs(query.Eq(model.ColModality, "US")))
		assert.Equal(t, []string{"3.1.1", "3.1.2"}, seriesUIDs(query.Like(model.ColModality, "M?")))
		assert.Equal(t, []string{"3.2.1"}, seriesUIDs(query.Like(model.ColModality, "C*R")))
		assert.Empty(t, seriesUIDs(query.Eq(model.ColModality, `CT\MR`)))

		got := studies(t, s, query.Eq(model.ColModalitiesInStudy, "us"))
		require.Len(t, got, 1)
		assert.Equal(t, "3.1", got[0].StudyInstanceUID)
		assert.Equal(t, []string{"CT", "MR", "US"}, got[0].ModalitiesInStudy)

		got = studies(t, s, query.Eq(model.ColStudyDescription, "abdomen"))
		require.Len(t, got, 1)
		assert.Equal(t, []string{"CHEST", "ABDOMEN"}, got[0].Values(model.ColStudyDescription))
	})
}
