// Package model defines the indexed study, series and instance records.
package model

import (
	"strconv"
	"time"

	"github.com/rcliao/dicom-find/internal/match"
)

// Column names shared by the filter registry and the stores.
const (
	ColKey       = "pk"
	ColStudyKey  = "study_pk"
	ColSeriesKey = "series_pk"

	ColStudyUID            = "study_uid"
	ColPatientID           = "patient_id"
	ColPatientName         = "patient_name"
	ColPatientBirthDate    = "patient_birth_date"
	ColPatientSex          = "patient_sex"
	ColStudyDate           = "study_date"
	ColStudyTime           = "study_time"
	ColAccessionNumber     = "accession_number"
	ColStudyID             = "study_id"
	ColStudyDescription    = "study_description"
	ColReferringPhysician  = "referring_physician"
	ColModalitiesInStudy   = "modalities_in_study"
	ColStudySeriesCount    = "num_series"
	ColStudyInstanceCount  = "num_instances"
	ColSpecificCharset     = "specific_charset"
	ColDeleted             = "deleted"
	ColReindex             = "reindex"
	ColSeriesUID           = "series_uid"
	ColModality            = "modality"
	ColSeriesNumber        = "series_number"
	ColSeriesDescription   = "series_description"
	ColBodyPartExamined    = "body_part"
	ColSeriesDate          = "series_date"
	ColSeriesTime          = "series_time"
	ColSeriesInstanceCount = "num_series_instances"
	ColSOPInstanceUID      = "sop_uid"
	ColSOPClassUID         = "sop_class_uid"
	ColInstanceNumber      = "instance_number"
	ColImageComments       = "image_comments"
	ColContentDate         = "content_date"
	ColContentTime         = "content_time"
)

// Study is an indexed study record.
type Study struct {
	PK                     string    `json:"pk"`
	StudyInstanceUID       string    `json:"study_uid"`
	PatientID              string    `json:"patient_id,omitempty"`
	PatientName            string    `json:"patient_name,omitempty"`
	PatientBirthDate       string    `json:"patient_birth_date,omitempty"`
	PatientSex             string    `json:"patient_sex,omitempty"`
	StudyDate              string    `json:"study_date,omitempty"`
	StudyTime              string    `json:"study_time,omitempty"`
	AccessionNumber        string    `json:"accession_number,omitempty"`
	StudyID                string    `json:"study_id,omitempty"`
	StudyDescription       string    `json:"study_description,omitempty"`
	ReferringPhysicianName string    `json:"referring_physician,omitempty"`
	SpecificCharacterSet   string    `json:"specific_charset,omitempty"`
	ModalitiesInStudy      []string  `json:"modalities_in_study,omitempty"`
	NumSeries              int       `json:"num_series"`
	NumInstances           int       `json:"num_instances"`
	Deleted                bool      `json:"deleted,omitempty"`
	Reindex                bool      `json:"reindex,omitempty"`
	CreatedAt              time.Time `json:"created_at"`
}

// Values implements query.Row.
func (s Study) Values(column string) []string {
	switch column {
	case ColKey:
		return one(s.PK)
	case ColStudyUID:
		return one(s.StudyInstanceUID)
	case ColPatientID:
		return split(s.PatientID)
	case ColPatientName:
		return split(s.PatientName)
	case ColPatientBirthDate:
		return one(s.PatientBirthDate)
	case ColPatientSex:
		return split(s.PatientSex)
	case ColStudyDate:
		return one(s.StudyDate)
	case ColStudyTime:
		return one(s.StudyTime)
	case ColAccessionNumber:
		return split(s.AccessionNumber)
	case ColStudyID:
		return split(s.StudyID)
	case ColStudyDescription:
		return split(s.StudyDescription)
	case ColReferringPhysician:
		return split(s.ReferringPhysicianName)
	case ColSpecificCharset:
		return split(s.SpecificCharacterSet)
	case ColModalitiesInStudy:
		return many(s.ModalitiesInStudy)
	case ColStudySeriesCount:
		return []string{strconv.Itoa(s.NumSeries)}
	case ColStudyInstanceCount:
		return []string{strconv.Itoa(s.NumInstances)}
	case ColDeleted:
		return flag(s.Deleted)
	case ColReindex:
		return flag(s.Reindex)
	}
	return nil
}

func one(v string) []string {
	if v == "" {
		return nil
	}
	return []string{v}
}

// split returns the atomic values of a column that may hold several
// backslash-joined values. The SQL store splits the same columns with
// dicom_split.
func split(v string) []string {
	return match.SplitValues(v)
}

func many(vs []string) []string {
	var out []string
	for _, v := range vs {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func flag(b bool) []string {
	if b {
		return []string{"1"}
	}
	return []string{"0"}
}
