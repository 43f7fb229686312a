package find

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/dicom-find/internal/dataset"
	"github.com/rcliao/dicom-find/internal/filter"
	"github.com/rcliao/dicom-find/internal/store"
)

type fixture struct {
	study, series, sop string
	attrs              map[dataset.Path]string
	nulls              []dataset.Path
}

var fixtures = []fixture{
	{"1.1", "1.1.1", "1.1.1.1", map[dataset.Path]string{
		dataset.PatientName:      "DOE^JOHN",
		dataset.PatientID:        "P1",
		dataset.StudyDate:        "20240115",
		dataset.StudyTime:        "0930",
		dataset.StudyDescription: "CHEST",
		dataset.Modality:         "CT",
		dataset.SeriesNumber:     "1",
		dataset.ImageComments:    "A",
		dataset.SOPClassUID:      "1.2.840.10008.5.1.4.1.1.2",
	}, nil},
	{"1.1", "1.1.1", "1.1.1.2", map[dataset.Path]string{
		dataset.ImageComments: "B",
		dataset.SOPClassUID:   "1.2.840.10008.5.1.4.1.1.2",
	}, nil},
	{"1.1", "1.1.1", "1.1.1.3", nil, []dataset.Path{dataset.ImageComments}},
	{"1.1", "1.1.2", "1.1.2.1", map[dataset.Path]string{
		dataset.Modality:     "SR",
		dataset.SeriesNumber: "2",
	}, nil},
	{"1.2", "1.2.1", "1.2.1.1", map[dataset.Path]string{
		dataset.PatientName:      "ROE^JANE",
		dataset.PatientID:        "P2",
		dataset.StudyDate:        "20240220",
		dataset.StudyDescription: "HEAD",
		dataset.Modality:         "MR",
	}, nil},
	{"1.3", "1.3.1", "1.3.1.1", map[dataset.Path]string{
		dataset.PatientName: "DOE^JANE",
		dataset.StudyDate:   "20231231",
		dataset.Modality:    "CT",
	}, nil},
}

func load(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()
	for _, f := range fixtures {
		ds := dataset.New()
		ds.Set(dataset.StudyInstanceUID, f.study)
		ds.Set(dataset.SeriesInstanceUID, f.series)
		ds.Set(dataset.SOPInstanceUID, f.sop)
		for p, v := range f.attrs {
			ds.Set(p, v)
		}
		for _, p := range f.nulls {
			ds.SetNull(p)
		}
		_, err := s.Put(ctx, ds)
		require.NoError(t, err)
	}
}

// eachFinder runs fn against finders over a SQLite and a memory store
// holding the fixtures.
func eachFinder(t *testing.T, fn func(t *testing.T, s store.Store, f *Finder)) {
	t.Run("sqlite", func(t *testing.T) {
		s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "find.db"))
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		load(t, s)
		fn(t, s, New(s, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))))
	})
	t.Run("memory", func(t *testing.T) {
		s := store.NewMemoryStore()
		load(t, s)
		fn(t, s, New(s))
	})
}

func criteria(kv map[dataset.Path]string) *dataset.Dataset {
	ds := dataset.New()
	for p, v := range kv {
		ds.Set(p, v)
	}
	return ds
}

func uids(results []*dataset.Dataset, p dataset.Path) []string {
	var out []string
	for _, ds := range results {
		out = append(out, ds.String(p.Tag))
	}
	return out
}

func TestFindStudies(t *testing.T) {
	tests := []struct {
		name     string
		criteria map[dataset.Path]string
		want     []string
	}{
		{"no criteria", nil, []string{"1.1", "1.2", "1.3"}},
		{"wildcard name", map[dataset.Path]string{dataset.PatientName: "doe*"}, []string{"1.1", "1.3"}},
		{"name list", map[dataset.Path]string{dataset.PatientName: `ROE^JANE\DOE^JANE`}, []string{"1.2", "1.3"}},
		{"date range", map[dataset.Path]string{dataset.StudyDate: "20240101-20240131"}, []string{"1.1"}},
		{"open date range", map[dataset.Path]string{dataset.StudyDate: "20240101-"}, []string{"1.1", "1.2"}},
		{"exact date", map[dataset.Path]string{dataset.StudyDate: "20231231"}, []string{"1.3"}},
		{"time", map[dataset.Path]string{dataset.StudyTime: "09-10"}, []string{"1.1"}},
		{"time hour", map[dataset.Path]string{dataset.StudyTime: "09"}, []string{"1.1"}},
		{"time minute", map[dataset.Path]string{dataset.StudyTime: "0931"}, nil},
		{"modalities", map[dataset.Path]string{dataset.ModalitiesInStudy: "SR"}, []string{"1.1"}},
		{"modalities list", map[dataset.Path]string{dataset.ModalitiesInStudy: `MR\SR`}, []string{"1.1", "1.2"}},
		{"modalities and name", map[dataset.Path]string{
			dataset.ModalitiesInStudy: "CT",
			dataset.PatientName:       "*JANE",
		}, []string{"1.3"}},
		{"uid list", map[dataset.Path]string{dataset.StudyInstanceUID: `1.2\1.3\1.30`}, []string{"1.2", "1.3"}},
		{"no match", map[dataset.Path]string{dataset.PatientID: "P9"}, nil},
	}

	eachFinder(t, func(t *testing.T, _ store.Store, f *Finder) {
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := f.Find(context.Background(), LevelStudy, criteria(tt.criteria))
				require.NoError(t, err)
				assert.Equal(t, tt.want, uids(got, dataset.StudyInstanceUID))
			})
		}
	})
}

func TestFindStudyProjection(t *testing.T) {
	eachFinder(t, func(t *testing.T, _ store.Store, f *Finder) {
		c := criteria(map[dataset.Path]string{
			dataset.PatientID:                     "P1",
			dataset.ModalitiesInStudy:             "",
			dataset.NumberOfStudyRelatedSeries:    "",
			dataset.NumberOfStudyRelatedInstances: "",
			dataset.StudyTime:                     "",
		})
		c.SetNull(dataset.StudyDescription)

		got, err := f.Find(context.Background(), LevelStudy, c)
		require.NoError(t, err)
		require.Len(t, got, 1)

		ds := got[0]
		assert.Equal(t, "1.1", ds.String(dataset.StudyInstanceUID.Tag))
		assert.Equal(t, "P1", ds.String(dataset.PatientID.Tag))
		assert.Equal(t, []string{"CT", "SR"}, ds.Strings(dataset.ModalitiesInStudy.Tag))
		assert.Equal(t, "2", ds.String(dataset.NumberOfStudyRelatedSeries.Tag))
		assert.Equal(t, "4", ds.String(dataset.NumberOfStudyRelatedInstances.Tag))
		assert.Equal(t, "093000", ds.String(dataset.StudyTime.Tag))

		_, ok := ds.Get(dataset.StudyDescription.Tag)
		assert.False(t, ok, "null criterion is not returned")
		_, ok = ds.Get(dataset.PatientName.Tag)
		assert.False(t, ok, "absent criterion is not returned")
	})
}

func TestFindSeries(t *testing.T) {
	eachFinder(t, func(t *testing.T, _ store.Store, f *Finder) {
		ctx := context.Background()

		got, err := f.Find(ctx, LevelSeries, criteria(map[dataset.Path]string{
			dataset.StudyInstanceUID: "1.1",
			dataset.Modality:         "",
		}))
		require.NoError(t, err)
		assert.Equal(t, []string{"1.1.1", "1.1.2"}, uids(got, dataset.SeriesInstanceUID))
		assert.Equal(t, []string{"CT", "SR"}, uids(got, dataset.Modality))
		assert.Equal(t, []string{"1.1", "1.1"}, uids(got, dataset.StudyInstanceUID))

		got, err = f.Find(ctx, LevelSeries, criteria(map[dataset.Path]string{
			dataset.StudyInstanceUID: "1.1",
			dataset.Modality:         "c?",
		}))
		require.NoError(t, err)
		assert.Equal(t, []string{"1.1.1"}, uids(got, dataset.SeriesInstanceUID))

		got, err = f.Find(ctx, LevelSeries, criteria(map[dataset.Path]string{
			dataset.StudyInstanceUID:               "1.1",
			dataset.SeriesNumber:                   "2",
			dataset.NumberOfSeriesRelatedInstances: "",
		}))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "1", got[0].String(dataset.NumberOfSeriesRelatedInstances.Tag))
	})
}

func TestFindInstances(t *testing.T) {
	eachFinder(t, func(t *testing.T, _ store.Store, f *Finder) {
		ctx := context.Background()

		got, err := f.Find(ctx, LevelInstance, criteria(map[dataset.Path]string{
			dataset.StudyInstanceUID:  "1.1",
			dataset.SeriesInstanceUID: "1.1.1",
			dataset.ImageComments:     "",
		}))
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []string{"A", "B", ""}, uids(got, dataset.ImageComments))
		for _, ds := range got {
			e, ok := ds.Get(dataset.ImageComments.Tag)
			require.True(t, ok)
			assert.False(t, e.Null)
		}

		got, err = f.Find(ctx, LevelInstance, criteria(map[dataset.Path]string{
			dataset.StudyInstanceUID:  "1.1",
			dataset.SeriesInstanceUID: "1.1.1",
			dataset.ImageComments:     "b",
		}))
		require.NoError(t, err)
		assert.Equal(t, []string{"1.1.1.2"}, uids(got, dataset.SOPInstanceUID))

		got, err = f.Find(ctx, LevelInstance, criteria(map[dataset.Path]string{
			dataset.StudyInstanceUID:  "1.1",
			dataset.SeriesInstanceUID: "1.1.1",
			dataset.SOPInstanceUID:    `1.1.1.1\1.1.1.3`,
		}))
		require.NoError(t, err)
		assert.Equal(t, []string{"1.1.1.1", "1.1.1.3"}, uids(got, dataset.SOPInstanceUID))

		got, err = f.Find(ctx, LevelInstance, criteria(map[dataset.Path]string{
			dataset.StudyInstanceUID:  "1.1",
			dataset.SeriesInstanceUID: "1.1.1",
			dataset.SOPClassUID:       "1.2.840.10008.5.1.4.1.1.2",
		}))
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})
}

func TestFindUnresolvedParent(t *testing.T) {
	eachFinder(t, func(t *testing.T, _ store.Store, f *Finder) {
		ctx := context.Background()

		got, err := f.Find(ctx, LevelSeries, criteria(map[dataset.Path]string{
			dataset.StudyInstanceUID: "9.9",
		}))
		require.NoError(t, err)
		assert.Empty(t, got)

		got, err = f.Find(ctx, LevelInstance, criteria(map[dataset.Path]string{
			dataset.StudyInstanceUID:  "1.2",
			dataset.SeriesInstanceUID: "1.1.1",
		}))
		require.NoError(t, err)
		assert.Empty(t, got, "series of another study")
	})
}

func TestFindMissingParent(t *testing.T) {
	eachFinder(t, func(t *testing.T, _ store.Store, f *Finder) {
		ctx := context.Background()

		_, err := f.Find(ctx, LevelSeries, criteria(map[dataset.Path]string{dataset.Modality: "CT"}))
		require.ErrorIs(t, err, ErrMissingStudyUID)

		_, err = f.Find(ctx, LevelSeries, criteria(map[dataset.Path]string{dataset.StudyInstanceUID: ""}))
		require.ErrorIs(t, err, ErrMissingStudyUID)

		_, err = f.Find(ctx, LevelInstance, criteria(map[dataset.Path]string{dataset.SeriesInstanceUID: "1.1.1"}))
		require.ErrorIs(t, err, ErrMissingStudyUID)

		_, err = f.Find(ctx, LevelInstance, criteria(map[dataset.Path]string{dataset.StudyInstanceUID: "1.1"}))
		require.ErrorIs(t, err, ErrMissingSeriesUID)

		_, err = f.Find(ctx, Level(7), nil)
		require.ErrorIs(t, err, ErrUnknownLevel)
	})
}

func TestFindExcludesFlaggedStudies(t *testing.T) {
	eachFinder(t, func(t *testing.T, s store.Store, f *Finder) {
		ctx := context.Background()
		require.NoError(t, s.MarkDeleted(ctx, "1.2"))
		require.NoError(t, s.MarkReindex(ctx, "1.1", true))

		got, err := f.Find(ctx, LevelStudy, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"1.3"}, uids(got, dataset.StudyInstanceUID))

		got, err = f.Find(ctx, LevelSeries, criteria(map[dataset.Path]string{dataset.StudyInstanceUID: "1.1"}))
		require.NoError(t, err)
		assert.Empty(t, got)

		require.NoError(t, s.MarkReindex(ctx, "1.1", false))
		got, err = f.Find(ctx, LevelSeries, criteria(map[dataset.Path]string{dataset.StudyInstanceUID: "1.1"}))
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})
}

func TestFindJoinedValues(t *testing.T) {
	eachFinder(t, func(t *testing.T, s store.Store, f *Finder) {
		ctx := context.Background()
		ds := criteria(map[dataset.Path]string{
			dataset.StudyInstanceUID:  "1.4",
			dataset.SeriesInstanceUID: "1.4.1",
			dataset.SOPInstanceUID:    "1.4.1.1",
			dataset.PatientName:       `DOE^JIM\DOE^JAMES`,
			dataset.Modality:          `CT\MR`,
		})
		_, err := s.Put(ctx, ds)
		require.NoError(t, err)

		for _, mod := range []string{"CT", "mr", `CT\MR`, `US\M*`} {
			got, err := f.Find(ctx, LevelSeries, criteria(map[dataset.Path]string{
				dataset.StudyInstanceUID: "1.4",
				dataset.Modality:         mod,
			}))
			require.NoError(t, err)
			assert.Equal(t, []string{"1.4.1"}, uids(got, dataset.SeriesInstanceUID), mod)
			assert.Equal(t, []string{`CT\MR`}, uids(got, dataset.Modality), mod)
		}

		got, err := f.Find(ctx, LevelSeries, criteria(map[dataset.Path]string{
			dataset.StudyInstanceUID: "1.4",
			dataset.Modality:         "C*R",
		}))
		require.NoError(t, err)
		assert.Empty(t, got)

		got, err = f.Find(ctx, LevelStudy, criteria(map[dataset.Path]string{
			dataset.ModalitiesInStudy: "MR",
		}))
		require.NoError(t, err)
		assert.Equal(t, []string{"1.2", "1.4"}, uids(got, dataset.StudyInstanceUID))
		assert.Equal(t, []string{"MR", `CT\MR`}, uids(got, dataset.ModalitiesInStudy))

		got, err = f.Find(ctx, LevelStudy, criteria(map[dataset.Path]string{
			dataset.PatientName: "doe^james",
		}))
		require.NoError(t, err)
		assert.Equal(t, []string{"1.4"}, uids(got, dataset.StudyInstanceUID))
	})
}

func TestFindInputErrors(t *testing.T) {
	eachFinder(t, func(t *testing.T, _ store.Store, f *Finder) {
		ctx := context.Background()

		_, err := f.Find(ctx, LevelStudy, criteria(map[dataset.Path]string{dataset.StudyDate: "2024-01-01"}))
		require.ErrorIs(t, err, filter.ErrInvalidCriterion)

		bad := dataset.New()
		bad.Put(&dataset.Element{Tag: dataset.StudyDate.Tag, VR: dataset.LO, Value: "20240101"})
		_, err = f.Find(ctx, LevelStudy, bad)
		require.ErrorIs(t, err, filter.ErrVRMismatch)
	})
}

func TestFindAll(t *testing.T) {
	eachFinder(t, func(t *testing.T, _ store.Store, f *Finder) {
		ctx := context.Background()
		got, err := f.FindAll(ctx, []Request{
			{Level: LevelStudy, Criteria: criteria(map[dataset.Path]string{dataset.PatientID: "P2"})},
			{Level: LevelSeries, Criteria: criteria(map[dataset.Path]string{dataset.StudyInstanceUID: "1.3"})},
			{Level: LevelStudy},
		})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []string{"1.2"}, uids(got[0], dataset.StudyInstanceUID))
		assert.Equal(t, []string{"1.3.1"}, uids(got[1], dataset.SeriesInstanceUID))
		assert.Len(t, got[2], 3)

		_, err = f.FindAll(ctx, []Request{
			{Level: LevelStudy},
			{Level: LevelSeries},
		})
		require.ErrorIs(t, err, ErrMissingStudyUID)
		assert.ErrorContains(t, err, "request 1")
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"STUDY", LevelStudy},
		{"series", LevelSeries},
		{" IMAGE ", LevelInstance},
		{"instance", LevelInstance},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
		assert.NotEqual(t, "UNKNOWN", got.String())
	}

	_, err := ParseLevel("PATIENT")
	require.ErrorIs(t, err, ErrUnknownLevel)
}
