// Package store provides the record stores queried by the find engine: a
// SQLite implementation that pushes predicates into SQL and an in-memory
// implementation that evaluates them over bitmaps.
package store

import (
	"context"
	"errors"

	"github.com/rcliao/dicom-find/internal/dataset"
	"github.com/rcliao/dicom-find/internal/model"
	"github.com/rcliao/dicom-find/internal/query"
)

// ErrNotFound is returned when a study UID does not resolve.
var ErrNotFound = errors.New("store: study not found")

// Store defines the record store interface.
type Store interface {
	query.Source

	// Put indexes one instance dataset, creating or updating its study and
	// series. Putting an already indexed instance is a no-op.
	Put(ctx context.Context, ds *dataset.Dataset) (*model.Records, error)

	// MarkDeleted flags a study as pending deletion.
	MarkDeleted(ctx context.Context, studyUID string) error

	// MarkReindex sets or clears the pending reindex flag of a study.
	MarkReindex(ctx context.Context, studyUID string, pending bool) error

	// Delete removes a study with its series and instances.
	Delete(ctx context.Context, studyUID string) error

	// Close closes the store.
	Close() error
}

// Import indexes datasets in order and stops at the first failure.
func Import(ctx context.Context, s Store, datasets []*dataset.Dataset) (int, error) {
	imported := 0
	for _, ds := range datasets {
		if _, err := s.Put(ctx, ds); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}
