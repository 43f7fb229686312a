package model

import (
	"strconv"
	"time"
)

// Series is an indexed series record.
type Series struct {
	PK                string    `json:"pk"`
	StudyPK           string    `json:"study_pk"`
	StudyInstanceUID  string    `json:"study_uid"`
	SeriesInstanceUID string    `json:"series_uid"`
	Modality          string    `json:"modality,omitempty"`
	SeriesNumber      string    `json:"series_number,omitempty"`
	SeriesDescription string    `json:"series_description,omitempty"`
	BodyPartExamined  string    `json:"body_part,omitempty"`
	SeriesDate        string    `json:"series_date,omitempty"`
	SeriesTime        string    `json:"series_time,omitempty"`
	NumInstances      int       `json:"num_instances"`
	CreatedAt         time.Time `json:"created_at"`
}

// Values implements query.Row.
func (s Series) Values(column string) []string {
	switch column {
	case ColKey:
		return one(s.PK)
	case ColStudyKey:
		return one(s.StudyPK)
	case ColStudyUID:
		return one(s.StudyInstanceUID)
	case ColSeriesUID:
		return one(s.SeriesInstanceUID)
	case ColModality:
		return split(s.Modality)
	case ColSeriesNumber:
		return split(s.SeriesNumber)
	case ColSeriesDescription:
		return split(s.SeriesDescription)
	case ColBodyPartExamined:
		return split(s.BodyPartExamined)
	case ColSeriesDate:
		return one(s.SeriesDate)
	case ColSeriesTime:
		return one(s.SeriesTime)
	case ColSeriesInstanceCount:
		return []string{strconv.Itoa(s.NumInstances)}
	}
	return nil
}
