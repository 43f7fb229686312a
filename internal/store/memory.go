package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/rcliao/dicom-find/internal/dataset"
	"github.com/rcliao/dicom-find/internal/match"
	"github.com/rcliao/dicom-find/internal/model"
	"github.com/rcliao/dicom-find/internal/query"
)

// memTable holds the rows of one kind by slot. Key and UID columns keep
// posting lists of folded values so that equality lookups skip the scan.
type memTable struct {
	rows     []query.Row
	live     *roaring.Bitmap
	postings map[string]map[string]*roaring.Bitmap
}

func newMemTable(indexed ...string) *memTable {
	t := &memTable{
		live:     roaring.New(),
		postings: make(map[string]map[string]*roaring.Bitmap, len(indexed)),
	}
	for _, col := range indexed {
		t.postings[col] = make(map[string]*roaring.Bitmap)
	}
	return t
}

func (t *memTable) add(row query.Row) uint32 {
	id := uint32(len(t.rows))
	t.rows = append(t.rows, row)
	t.live.Add(id)
	for col, values := range t.postings {
		for _, v := range row.Values(col) {
			key := match.Fold(v)
			bm := values[key]
			if bm == nil {
				bm = roaring.New()
				values[key] = bm
			}
			bm.Add(id)
		}
	}
	return id
}

func (t *memTable) remove(id uint32) {
	row := t.rows[id]
	if row == nil {
		return
	}
	for col, values := range t.postings {
		for _, v := range row.Values(col) {
			key := match.Fold(v)
			if bm := values[key]; bm != nil {
				bm.Remove(id)
				if bm.IsEmpty() {
					delete(values, key)
				}
			}
		}
	}
	t.live.Remove(id)
	t.rows[id] = nil
}

// lookup returns the live slots holding value in an indexed column.
func (t *memTable) lookup(col string, values ...string) *roaring.Bitmap {
	out := roaring.New()
	for _, v := range values {
		if bm := t.postings[col][match.Fold(v)]; bm != nil {
			out.Or(bm)
		}
	}
	return out
}

func (t *memTable) first(col, value string) (query.Row, bool) {
	bm := t.lookup(col, value)
	if bm.IsEmpty() {
		return nil, false
	}
	return t.rows[bm.Minimum()], true
}

// eval narrows candidates to the slots matching p.
func (t *memTable) eval(p query.Predicate, candidates *roaring.Bitmap) *roaring.Bitmap {
	switch p.Op {
	case query.OpOr:
		out := roaring.New()
		for _, c := range p.Children {
			out.Or(t.eval(c, candidates))
		}
		return out
	case query.OpEq, query.OpIn:
		if _, ok := t.postings[p.Column]; ok {
			return roaring.And(candidates, t.lookup(p.Column, p.Values...))
		}
	}

	out := roaring.New()
	it := candidates.Iterator()
	for it.HasNext() {
		id := it.Next()
		if p.Matches(t.rows[id]) {
			out.Add(id)
		}
	}
	return out
}

// MemoryStore implements Store in memory.
type MemoryStore struct {
	mu        sync.RWMutex
	studies   *memTable
	series    *memTable
	instances *memTable
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		studies:   newMemTable(model.ColKey, model.ColStudyUID),
		series:    newMemTable(model.ColKey, model.ColStudyKey, model.ColSeriesUID),
		instances: newMemTable(model.ColKey, model.ColStudyKey, model.ColSeriesKey, model.ColSOPInstanceUID),
	}
}

func (m *MemoryStore) table(kind query.Kind) (*memTable, error) {
	switch kind {
	case query.Studies:
		return m.studies, nil
	case query.Series:
		return m.series, nil
	case query.Instances:
		return m.instances, nil
	}
	return nil, fmt.Errorf("store: execute: unknown kind %s", kind)
}

// Execute runs q and returns snapshots of the matching rows in insertion
// order.
func (m *MemoryStore) Execute(ctx context.Context, q query.Query) ([]query.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, err := m.table(q.Kind())
	if err != nil {
		return nil, err
	}
	candidates := t.live.Clone()
	for _, p := range q.Predicates() {
		if candidates.IsEmpty() {
			break
		}
		candidates = t.eval(p, candidates)
	}

	out := make([]query.Row, 0, candidates.GetCardinality())
	it := candidates.Iterator()
	for it.HasNext() {
		out = append(out, snapshot(t.rows[it.Next()]))
	}
	return out, nil
}

func snapshot(row query.Row) query.Row {
	switch r := row.(type) {
	case *model.Study:
		st := *r
		st.ModalitiesInStudy = slices.Clone(r.ModalitiesInStudy)
		return st
	case *model.Series:
		return *r
	case *model.Instance:
		return *r
	}
	return row
}

func (m *MemoryStore) Put(ctx context.Context, ds *dataset.Dataset) (*model.Records, error) {
	r, err := model.FromDataset(ds)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()

	var st *model.Study
	if row, ok := m.studies.first(model.ColStudyUID, r.Study.StudyInstanceUID); ok {
		st = row.(*model.Study)
		fillStudy(st, &r.Study)
	} else {
		st = &model.Study{}
		*st = r.Study
		st.PK = newID()
		st.CreatedAt = now
		m.studies.add(st)
	}

	var se *model.Series
	if row, ok := m.series.first(model.ColSeriesUID, r.Series.SeriesInstanceUID); ok {
		se = row.(*model.Series)
		if se.StudyPK != st.PK {
			return nil, fmt.Errorf("series %s belongs to another study", se.SeriesInstanceUID)
		}
		fillSeries(se, &r.Series)
	} else {
		se = &model.Series{}
		*se = r.Series
		se.PK = newID()
		se.StudyPK = st.PK
		se.CreatedAt = now
		m.series.add(se)
	}

	var in *model.Instance
	if row, ok := m.instances.first(model.ColSOPInstanceUID, r.Instance.SOPInstanceUID); ok {
		in = row.(*model.Instance)
	} else {
		in = &model.Instance{}
		*in = r.Instance
		in.PK = newID()
		in.SeriesPK = se.PK
		in.StudyPK = st.PK
		in.CreatedAt = now
		m.instances.add(in)
	}

	m.refresh(st)

	r.Study, r.Series, r.Instance = *st, *se, *in
	r.Study.ModalitiesInStudy = slices.Clone(st.ModalitiesInStudy)
	return r, nil
}

// refresh recomputes the attributes a study derives from its children.
func (m *MemoryStore) refresh(st *model.Study) {
	var modalities []string
	series := m.series.lookup(model.ColStudyKey, st.PK)
	it := series.Iterator()
	for it.HasNext() {
		se := m.series.rows[it.Next()].(*model.Series)
		se.NumInstances = int(m.instances.lookup(model.ColSeriesKey, se.PK).GetCardinality())
		for _, mod := range match.SplitValues(se.Modality) {
			if !slices.Contains(modalities, mod) {
				modalities = append(modalities, mod)
			}
		}
	}
	slices.Sort(modalities)
	st.ModalitiesInStudy = modalities
	st.NumSeries = int(series.GetCardinality())
	st.NumInstances = int(m.instances.lookup(model.ColStudyKey, st.PK).GetCardinality())
}

func fillStudy(dst, src *model.Study) {
	fill(&dst.PatientID, src.PatientID)
	fill(&dst.PatientName, src.PatientName)
	fill(&dst.PatientBirthDate, src.PatientBirthDate)
	fill(&dst.PatientSex, src.PatientSex)
	fill(&dst.StudyDate, src.StudyDate)
	fill(&dst.StudyTime, src.StudyTime)
	fill(&dst.AccessionNumber, src.AccessionNumber)
	fill(&dst.StudyID, src.StudyID)
	fill(&dst.StudyDescription, src.StudyDescription)
	fill(&dst.ReferringPhysicianName, src.ReferringPhysicianName)
	fill(&dst.SpecificCharacterSet, src.SpecificCharacterSet)
}

func fillSeries(dst, src *model.Series) {
	fill(&dst.Modality, src.Modality)
	fill(&dst.SeriesNumber, src.SeriesNumber)
	fill(&dst.SeriesDescription, src.SeriesDescription)
	fill(&dst.BodyPartExamined, src.BodyPartExamined)
	fill(&dst.SeriesDate, src.SeriesDate)
	fill(&dst.SeriesTime, src.SeriesTime)
}

func fill(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func (m *MemoryStore) MarkDeleted(ctx context.Context, studyUID string) error {
	return m.update(studyUID, func(st *model.Study) { st.Deleted = true })
}

func (m *MemoryStore) MarkReindex(ctx context.Context, studyUID string, pending bool) error {
	return m.update(studyUID, func(st *model.Study) { st.Reindex = pending })
}

func (m *MemoryStore) update(studyUID string, fn func(*model.Study)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.studies.first(model.ColStudyUID, studyUID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, studyUID)
	}
	fn(row.(*model.Study))
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, studyUID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.studies.lookup(model.ColStudyUID, studyUID)
	if ids.IsEmpty() {
		return fmt.Errorf("%w: %s", ErrNotFound, studyUID)
	}
	id := ids.Minimum()
	pk := m.studies.rows[id].(*model.Study).PK
	for _, child := range []*memTable{m.instances, m.series} {
		for _, cid := range child.lookup(model.ColStudyKey, pk).ToArray() {
			child.remove(cid)
		}
	}
	m.studies.remove(id)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
