// Package find runs hierarchical Study/Series/Instance queries.
package find

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/rcliao/dicom-find/internal/dataset"
	"github.com/rcliao/dicom-find/internal/filter"
	"github.com/rcliao/dicom-find/internal/model"
	"github.com/rcliao/dicom-find/internal/query"
)

var (
	ErrMissingStudyUID  = errors.New("find: query requires StudyInstanceUID")
	ErrMissingSeriesUID = errors.New("find: query requires SeriesInstanceUID")
	ErrUnknownLevel     = errors.New("find: unknown query level")
)

// Level is a query/retrieve level.
type Level int

const (
	LevelStudy Level = iota
	LevelSeries
	LevelInstance
)

func (l Level) String() string {
	switch l {
	case LevelStudy:
		return "STUDY"
	case LevelSeries:
		return "SERIES"
	case LevelInstance:
		return "IMAGE"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a QueryRetrieveLevel value.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "STUDY":
		return LevelStudy, nil
	case "SERIES":
		return LevelSeries, nil
	case "IMAGE", "INSTANCE":
		return LevelInstance, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownLevel, s)
}

// Finder resolves criteria against a record source.
type Finder struct {
	src    query.Source
	logger *slog.Logger
}

// Option configures a Finder.
type Option func(*Finder)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(f *Finder) { f.logger = l }
}

// New creates a Finder over src.
func New(src query.Source, opts ...Option) *Finder {
	f := &Finder{src: src, logger: slog.Default()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Find returns one dataset per record matching criteria at the level.
// A parent that does not resolve yields an empty result, not an error.
func (f *Finder) Find(ctx context.Context, level Level, criteria *dataset.Dataset) ([]*dataset.Dataset, error) {
	if criteria == nil {
		criteria = dataset.New()
	}

	var (
		results []filter.Result
		err     error
	)
	switch level {
	case LevelStudy:
		results, err = f.studies(ctx, criteria)
	case LevelSeries:
		results, err = f.series(ctx, criteria)
	case LevelInstance:
		results, err = f.instances(ctx, criteria)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownLevel, level)
	}
	if err != nil {
		return nil, err
	}

	out := make([]*dataset.Dataset, len(results))
	for i, r := range results {
		out[i] = r.Attrs
	}
	f.logger.DebugContext(ctx, "find complete", "level", level, "results", len(out))
	return out, nil
}

func (f *Finder) studies(ctx context.Context, criteria *dataset.Dataset) ([]filter.Result, error) {
	set, err := filter.ForStudies(criteria)
	if err != nil {
		return nil, err
	}
	return f.run(ctx, set)
}

func (f *Finder) series(ctx context.Context, criteria *dataset.Dataset) ([]filter.Result, error) {
	studyPKs, err := f.resolveStudies(ctx, criteria)
	if err != nil || len(studyPKs) == 0 {
		return nil, err
	}
	set, err := filter.ForSeries(criteria)
	if err != nil {
		return nil, err
	}
	return f.run(ctx, set, query.In(model.ColStudyKey, studyPKs...))
}

func (f *Finder) instances(ctx context.Context, criteria *dataset.Dataset) ([]filter.Result, error) {
	if !hasValue(criteria, dataset.StudyInstanceUID) {
		return nil, ErrMissingStudyUID
	}
	if !hasValue(criteria, dataset.SeriesInstanceUID) {
		return nil, ErrMissingSeriesUID
	}
	studyPKs, err := f.resolveStudies(ctx, criteria)
	if err != nil || len(studyPKs) == 0 {
		return nil, err
	}

	parent := parentCriteria(criteria, dataset.StudyInstanceUID, dataset.SeriesInstanceUID)
	seriesSet, err := filter.ForSeries(parent)
	if err != nil {
		return nil, err
	}
	series, err := f.run(ctx, seriesSet, query.In(model.ColStudyKey, studyPKs...))
	if err != nil {
		return nil, err
	}
	if len(series) == 0 {
		f.logger.DebugContext(ctx, "parent series not found",
			"series_uid", criteria.String(dataset.SeriesInstanceUID.Tag))
		return nil, nil
	}

	set, err := filter.ForInstances(criteria)
	if err != nil {
		return nil, err
	}
	return f.run(ctx, set, query.In(model.ColSeriesKey, keys(series)...))
}

// resolveStudies looks up the parent studies named by the criteria.
func (f *Finder) resolveStudies(ctx context.Context, criteria *dataset.Dataset) ([]string, error) {
	if !hasValue(criteria, dataset.StudyInstanceUID) {
		return nil, ErrMissingStudyUID
	}
	set, err := filter.ForStudies(parentCriteria(criteria, dataset.StudyInstanceUID))
	if err != nil {
		return nil, err
	}
	studies, err := f.run(ctx, set)
	if err != nil {
		return nil, err
	}
	if len(studies) == 0 {
		f.logger.DebugContext(ctx, "parent study not found",
			"study_uid", criteria.String(dataset.StudyInstanceUID.Tag))
	}
	return keys(studies), nil
}

func (f *Finder) run(ctx context.Context, set *filter.Set, scope ...query.Predicate) ([]filter.Result, error) {
	results, err := set.Run(ctx, f.src, scope...)
	if err != nil {
		return nil, err
	}
	f.logger.DebugContext(ctx, "filter set executed",
		"kind", set.Kind(),
		"filters", len(set.Filters()),
		"post_filters", set.PostFilters(),
		"candidates", set.Candidates(),
		"matched", len(results))
	return results, nil
}

// Request is one query of a batch.
type Request struct {
	Level    Level
	Criteria *dataset.Dataset
}

// FindAll runs independent queries concurrently and returns their results
// in request order. The first failure cancels the remaining queries.
func (f *Finder) FindAll(ctx context.Context, reqs []Request) ([][]*dataset.Dataset, error) {
	out := make([][]*dataset.Dataset, len(reqs))
	g, ctx := errgroup.WithContext(ctx)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			res, err := f.Find(ctx, req.Level, req.Criteria)
			if err != nil {
				return fmt.Errorf("request %d: %w", i, err)
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func hasValue(criteria *dataset.Dataset, p dataset.Path) bool {
	return criteria.String(p.Tag) != ""
}

// parentCriteria copies the identifying attributes of the parent levels.
func parentCriteria(criteria *dataset.Dataset, paths ...dataset.Path) *dataset.Dataset {
	parent := dataset.New()
	for _, p := range paths {
		if e, ok := criteria.Get(p.Tag); ok {
			parent.Put(e)
		}
	}
	return parent
}

func keys(results []filter.Result) []string {
	pks := make([]string, 0, len(results))
	for _, r := range results {
		pks = append(pks, r.Row.Values(model.ColKey)...)
	}
	return pks
}
