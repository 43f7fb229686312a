package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	sqlite "modernc.org/sqlite"

	"github.com/rcliao/dicom-find/internal/dataset"
	"github.com/rcliao/dicom-find/internal/match"
	"github.com/rcliao/dicom-find/internal/model"
)

func init() {
	// dicom_fold applies match.Fold inside SQL so that equality and LIKE
	// fold case exactly as the in-memory path does.
	err := sqlite.RegisterDeterministicScalarFunction("dicom_fold", 1,
		func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			switch v := args[0].(type) {
			case string:
				return match.Fold(v), nil
			case []byte:
				return match.Fold(string(v)), nil
			default:
				return v, nil
			}
		})
	if err != nil {
		panic(fmt.Sprintf("register dicom_fold: %v", err))
	}

	// dicom_split returns the atomic values of a backslash-joined column as
	// a JSON array for json_each, split exactly as the in-memory rows are.
	err = sqlite.RegisterDeterministicScalarFunction("dicom_split", 1,
		func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			var s string
			switch v := args[0].(type) {
			case string:
				s = v
			case []byte:
				s = string(v)
			default:
				return nil, nil
			}
			values := match.SplitValues(s)
			if values == nil {
				values = []string{}
			}
			b, err := json.Marshal(values)
			if err != nil {
				return nil, err
			}
			return string(b), nil
		})
	if err != nil {
		panic(fmt.Sprintf("register dicom_split: %v", err))
	}
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func newID() string {
	return ulid.Make().String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS studies (
		pk                  TEXT PRIMARY KEY,
		study_uid           TEXT NOT NULL UNIQUE,
		patient_id          TEXT,
		patient_name        TEXT,
		patient_birth_date  TEXT,
		patient_sex         TEXT,
		study_date          TEXT,
		study_time          TEXT,
		accession_number    TEXT,
		study_id            TEXT,
		study_description   TEXT,
		referring_physician TEXT,
		specific_charset    TEXT,
		deleted             INTEGER NOT NULL DEFAULT 0,
		reindex             INTEGER NOT NULL DEFAULT 0,
		created_at          TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_studies_date ON studies(study_date);
	CREATE INDEX IF NOT EXISTS idx_studies_patient ON studies(patient_id);
	CREATE INDEX IF NOT EXISTS idx_studies_accession ON studies(accession_number);

	CREATE TABLE IF NOT EXISTS series (
		pk                 TEXT PRIMARY KEY,
		study_pk           TEXT NOT NULL REFERENCES studies(pk) ON DELETE CASCADE,
		study_uid          TEXT NOT NULL,
		series_uid         TEXT NOT NULL UNIQUE,
		modality           TEXT,
		series_number      TEXT,
		series_description TEXT,
		body_part          TEXT,
		series_date        TEXT,
		series_time        TEXT,
		created_at         TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_series_study ON series(study_pk);
	CREATE INDEX IF NOT EXISTS idx_series_modality ON series(study_pk, modality);

	CREATE TABLE IF NOT EXISTS instances (
		pk               TEXT PRIMARY KEY,
		series_pk        TEXT NOT NULL REFERENCES series(pk) ON DELETE CASCADE,
		study_pk         TEXT NOT NULL REFERENCES studies(pk) ON DELETE CASCADE,
		study_uid        TEXT NOT NULL,
		series_uid       TEXT NOT NULL,
		sop_uid          TEXT NOT NULL UNIQUE,
		sop_class_uid    TEXT,
		instance_number  TEXT,
		image_comments   TEXT,
		content_date     TEXT,
		content_time     TEXT,
		specific_charset TEXT,
		created_at       TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_instances_series ON instances(series_pk);
	CREATE INDEX IF NOT EXISTS idx_instances_study ON instances(study_pk);
	`
	_, err := s.db.Exec(schema)
	return err
}

// nullable maps empty strings to NULL so that empty and absent values are
// stored alike.
func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func (s *SQLiteStore) Put(ctx context.Context, ds *dataset.Dataset) (*model.Records, error) {
	r, err := model.FromDataset(ds)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	created := now.Format(time.RFC3339)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	st := &r.Study
	err = tx.QueryRowContext(ctx, `SELECT pk FROM studies WHERE study_uid = ?`, st.StudyInstanceUID).Scan(&st.PK)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		st.PK = newID()
		_, err = tx.ExecContext(ctx,
			`INSERT INTO studies (pk, study_uid, patient_id, patient_name, patient_birth_date, patient_sex,
			                      study_date, study_time, accession_number, study_id, study_description,
			                      referring_physician, specific_charset, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			st.PK, st.StudyInstanceUID, nullable(st.PatientID), nullable(st.PatientName),
			nullable(st.PatientBirthDate), nullable(st.PatientSex), nullable(st.StudyDate),
			nullable(st.StudyTime), nullable(st.AccessionNumber), nullable(st.StudyID),
			nullable(st.StudyDescription), nullable(st.ReferringPhysicianName),
			nullable(st.SpecificCharacterSet), created)
		if err != nil {
			return nil, fmt.Errorf("insert study: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("lookup study: %w", err)
	default:
		// Later instances fill attributes the study does not have yet.
		_, err = tx.ExecContext(ctx,
			`UPDATE studies SET
			   patient_id = COALESCE(patient_id, ?), patient_name = COALESCE(patient_name, ?),
			   patient_birth_date = COALESCE(patient_birth_date, ?), patient_sex = COALESCE(patient_sex, ?),
			   study_date = COALESCE(study_date, ?), study_time = COALESCE(study_time, ?),
			   accession_number = COALESCE(accession_number, ?), study_id = COALESCE(study_id, ?),
			   study_description = COALESCE(study_description, ?),
			   referring_physician = COALESCE(referring_physician, ?),
			   specific_charset = COALESCE(specific_charset, ?)
			 WHERE pk = ?`,
			nullable(st.PatientID), nullable(st.PatientName), nullable(st.PatientBirthDate),
			nullable(st.PatientSex), nullable(st.StudyDate), nullable(st.StudyTime),
			nullable(st.AccessionNumber), nullable(st.StudyID), nullable(st.StudyDescription),
			nullable(st.ReferringPhysicianName), nullable(st.SpecificCharacterSet), st.PK)
		if err != nil {
			return nil, fmt.Errorf("update study: %w", err)
		}
	}

	se := &r.Series
	se.StudyPK = st.PK
	err = tx.QueryRowContext(ctx, `SELECT pk, study_pk FROM series WHERE series_uid = ?`, se.SeriesInstanceUID).
		Scan(&se.PK, &se.StudyPK)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		se.PK = newID()
		_, err = tx.ExecContext(ctx,
			`INSERT INTO series (pk, study_pk, study_uid, series_uid, modality, series_number,
			                     series_description, body_part, series_date, series_time, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			se.PK, se.StudyPK, se.StudyInstanceUID, se.SeriesInstanceUID, nullable(se.Modality),
			nullable(se.SeriesNumber), nullable(se.SeriesDescription), nullable(se.BodyPartExamined),
			nullable(se.SeriesDate), nullable(se.SeriesTime), created)
		if err != nil {
			return nil, fmt.Errorf("insert series: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("lookup series: %w", err)
	default:
		if se.StudyPK != st.PK {
			return nil, fmt.Errorf("series %s belongs to another study", se.SeriesInstanceUID)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE series SET
			   modality = COALESCE(modality, ?), series_number = COALESCE(series_number, ?),
			   series_description = COALESCE(series_description, ?), body_part = COALESCE(body_part, ?),
			   series_date = COALESCE(series_date, ?), series_time = COALESCE(series_time, ?)
			 WHERE pk = ?`,
			nullable(se.Modality), nullable(se.SeriesNumber), nullable(se.SeriesDescription),
			nullable(se.BodyPartExamined), nullable(se.SeriesDate), nullable(se.SeriesTime), se.PK)
		if err != nil {
			return nil, fmt.Errorf("update series: %w", err)
		}
	}

	in := &r.Instance
	in.SeriesPK, in.StudyPK = se.PK, st.PK
	err = tx.QueryRowContext(ctx, `SELECT pk FROM instances WHERE sop_uid = ?`, in.SOPInstanceUID).Scan(&in.PK)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		in.PK = newID()
		_, err = tx.ExecContext(ctx,
			`INSERT INTO instances (pk, series_pk, study_pk, study_uid, series_uid, sop_uid, sop_class_uid,
			                        instance_number, image_comments, content_date, content_time,
			                        specific_charset, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			in.PK, in.SeriesPK, in.StudyPK, in.StudyInstanceUID, in.SeriesInstanceUID, in.SOPInstanceUID,
			nullable(in.SOPClassUID), nullable(in.InstanceNumber), nullable(in.ImageComments),
			nullable(in.ContentDate), nullable(in.ContentTime), nullable(in.SpecificCharacterSet), created)
		if err != nil {
			return nil, fmt.Errorf("insert instance: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("lookup instance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	st.CreatedAt, se.CreatedAt, in.CreatedAt = now, now, now
	return r, nil
}

func (s *SQLiteStore) MarkDeleted(ctx context.Context, studyUID string) error {
	return s.setFlag(ctx, "deleted", studyUID, true)
}

func (s *SQLiteStore) MarkReindex(ctx context.Context, studyUID string, pending bool) error {
	return s.setFlag(ctx, "reindex", studyUID, pending)
}

func (s *SQLiteStore) setFlag(ctx context.Context, column, studyUID string, on bool) error {
	v := 0
	if on {
		v = 1
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE studies SET `+column+` = ? WHERE study_uid = ?`, v, studyUID)
	if err != nil {
		return err
	}
	return expectRow(res, studyUID)
}

func (s *SQLiteStore) Delete(ctx context.Context, studyUID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM studies WHERE study_uid = ?`, studyUID)
	if err != nil {
		return err
	}
	return expectRow(res, studyUID)
}

func expectRow(res sql.Result, studyUID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, studyUID)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
