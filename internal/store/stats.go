package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath         string          `json:"db_path"`
	DBSizeBytes    int64           `json:"db_size_bytes"`
	Studies        int             `json:"studies"`
	Series         int             `json:"series"`
	Instances      int             `json:"instances"`
	DeletedStudies int             `json:"deleted_studies"`
	ReindexStudies int             `json:"reindex_studies"`
	Modalities     []ModalityStats `json:"modalities"`
}

// ModalityStats holds per-modality series counts. A series with several
// modalities counts toward each of them.
type ModalityStats struct {
	Modality string `json:"modality"`
	Series   int    `json:"series"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	counts := []struct {
		sql  string
		dest *int
	}{
		{`SELECT COUNT(*) FROM studies`, &st.Studies},
		{`SELECT COUNT(*) FROM series`, &st.Series},
		{`SELECT COUNT(*) FROM instances`, &st.Instances},
		{`SELECT COUNT(*) FROM studies WHERE deleted = 1`, &st.DeletedStudies},
		{`SELECT COUNT(*) FROM studies WHERE reindex = 1`, &st.ReindexStudies},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.sql).Scan(c.dest); err != nil {
			return st, err
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(v.value, ''), COUNT(*) AS cnt
		FROM series m LEFT JOIN json_each(dicom_split(m.modality)) v
		GROUP BY v.value ORDER BY cnt DESC, v.value`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var m ModalityStats
		if err := rows.Scan(&m.Modality, &m.Series); err != nil {
			return st, err
		}
		st.Modalities = append(st.Modalities, m)
	}

	return st, rows.Err()
}
