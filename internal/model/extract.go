package model

import (
	"errors"
	"fmt"

	"github.com/rcliao/dicom-find/internal/dataset"
	"github.com/rcliao/dicom-find/internal/match"
)

// ErrMissingUID is returned when an instance dataset lacks an identifying UID.
var ErrMissingUID = errors.New("model: missing uid")

// Records holds the study, series and instance described by one instance
// dataset. Keys are left for the store to assign.
type Records struct {
	Study    Study    `json:"study"`
	Series   Series   `json:"series"`
	Instance Instance `json:"instance"`
}

// FromDataset extracts the records described by an instance dataset.
func FromDataset(ds *dataset.Dataset) (*Records, error) {
	str := func(p dataset.Path) string { return ds.String(p.Tag) }

	studyUID := str(dataset.StudyInstanceUID)
	seriesUID := str(dataset.SeriesInstanceUID)
	sopUID := str(dataset.SOPInstanceUID)
	switch {
	case studyUID == "":
		return nil, fmt.Errorf("%w: %s", ErrMissingUID, dataset.StudyInstanceUID.Keyword)
	case seriesUID == "":
		return nil, fmt.Errorf("%w: %s", ErrMissingUID, dataset.SeriesInstanceUID.Keyword)
	case sopUID == "":
		return nil, fmt.Errorf("%w: %s", ErrMissingUID, dataset.SOPInstanceUID.Keyword)
	}

	charset := str(dataset.SpecificCharacterSet)
	r := &Records{
		Study: Study{
			StudyInstanceUID:       studyUID,
			PatientID:              str(dataset.PatientID),
			PatientName:            str(dataset.PatientName),
			PatientBirthDate:       str(dataset.PatientBirthDate),
			PatientSex:             str(dataset.PatientSex),
			StudyDate:              str(dataset.StudyDate),
			StudyTime:              normalizeTime(str(dataset.StudyTime)),
			AccessionNumber:        str(dataset.AccessionNumber),
			StudyID:                str(dataset.StudyID),
			StudyDescription:       str(dataset.StudyDescription),
			ReferringPhysicianName: str(dataset.ReferringPhysicianName),
			SpecificCharacterSet:   charset,
		},
		Series: Series{
			StudyInstanceUID:  studyUID,
			SeriesInstanceUID: seriesUID,
			Modality:          str(dataset.Modality),
			SeriesNumber:      str(dataset.SeriesNumber),
			SeriesDescription: str(dataset.SeriesDescription),
			BodyPartExamined:  str(dataset.BodyPartExamined),
			SeriesDate:        str(dataset.SeriesDate),
			SeriesTime:        normalizeTime(str(dataset.SeriesTime)),
		},
		Instance: Instance{
			StudyInstanceUID:     studyUID,
			SeriesInstanceUID:    seriesUID,
			SOPInstanceUID:       sopUID,
			SOPClassUID:          str(dataset.SOPClassUID),
			InstanceNumber:       str(dataset.InstanceNumber),
			ImageComments:        str(dataset.ImageComments),
			ContentDate:          str(dataset.ContentDate),
			ContentTime:          normalizeTime(str(dataset.ContentTime)),
			SpecificCharacterSet: charset,
		},
	}
	return r, nil
}

func normalizeTime(s string) string {
	if s == "" {
		return ""
	}
	return match.NormalizeTime(s)
}
