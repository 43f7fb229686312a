package model

import "time"

// Instance is an indexed SOP instance record.
type Instance struct {
	PK                   string    `json:"pk"`
	SeriesPK             string    `json:"series_pk"`
	StudyPK              string    `json:"study_pk"`
	StudyInstanceUID     string    `json:"study_uid"`
	SeriesInstanceUID    string    `json:"series_uid"`
	SOPInstanceUID       string    `json:"sop_uid"`
	SOPClassUID          string    `json:"sop_class_uid,omitempty"`
	InstanceNumber       string    `json:"instance_number,omitempty"`
	ImageComments        string    `json:"image_comments,omitempty"`
	ContentDate          string    `json:"content_date,omitempty"`
	ContentTime          string    `json:"content_time,omitempty"`
	SpecificCharacterSet string    `json:"specific_charset,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
}

// Values implements query.Row.
func (i Instance) Values(column string) []string {
	switch column {
	case ColKey:
		return one(i.PK)
	case ColSeriesKey:
		return one(i.SeriesPK)
	case ColStudyKey:
		return one(i.StudyPK)
	case ColStudyUID:
		return one(i.StudyInstanceUID)
	case ColSeriesUID:
		return one(i.SeriesInstanceUID)
	case ColSOPInstanceUID:
		return one(i.SOPInstanceUID)
	case ColSOPClassUID:
		return one(i.SOPClassUID)
	case ColInstanceNumber:
		return split(i.InstanceNumber)
	case ColImageComments:
		return one(i.ImageComments)
	case ColContentDate:
		return one(i.ContentDate)
	case ColContentTime:
		return one(i.ContentTime)
	case ColSpecificCharset:
		return split(i.SpecificCharacterSet)
	}
	return nil
}
