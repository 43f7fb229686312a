package filter

import (
	"slices"

	"github.com/rcliao/dicom-find/internal/dataset"
	"github.com/rcliao/dicom-find/internal/model"
)

// Filters run in registry order. ModalitiesInStudy needs a join across the
// study's series, so it comes first to prune candidates early.
var studySpecs = []Spec{
	{Path: dataset.ModalitiesInStudy, Column: model.ColModalitiesInStudy, Kind: KindString},
	{Path: dataset.StudyInstanceUID, Column: model.ColStudyUID, Kind: KindUID, AlwaysReturn: true},
	{Path: dataset.PatientID, Column: model.ColPatientID, Kind: KindString},
	{Path: dataset.PatientName, Column: model.ColPatientName, Kind: KindString, PostFilter: true},
	{Path: dataset.PatientBirthDate, Column: model.ColPatientBirthDate, Kind: KindDate},
	{Path: dataset.PatientSex, Column: model.ColPatientSex, Kind: KindString},
	{Path: dataset.StudyDate, Column: model.ColStudyDate, Kind: KindDate},
	{Path: dataset.StudyTime, Column: model.ColStudyTime, Kind: KindTime},
	{Path: dataset.AccessionNumber, Column: model.ColAccessionNumber, Kind: KindString},
	{Path: dataset.StudyID, Column: model.ColStudyID, Kind: KindString},
	{Path: dataset.StudyDescription, Column: model.ColStudyDescription, Kind: KindString},
	{Path: dataset.ReferringPhysicianName, Column: model.ColReferringPhysician, Kind: KindString, PostFilter: true},
	{Path: dataset.NumberOfStudyRelatedSeries, Column: model.ColStudySeriesCount, Kind: KindInfo},
	{Path: dataset.NumberOfStudyRelatedInstances, Column: model.ColStudyInstanceCount, Kind: KindInfo},
}

var seriesSpecs = []Spec{
	{Path: dataset.StudyInstanceUID, Column: model.ColStudyUID, Kind: KindUID, AlwaysReturn: true},
	{Path: dataset.SeriesInstanceUID, Column: model.ColSeriesUID, Kind: KindUID, AlwaysReturn: true},
	{Path: dataset.Modality, Column: model.ColModality, Kind: KindString},
	{Path: dataset.SeriesNumber, Column: model.ColSeriesNumber, Kind: KindString},
	{Path: dataset.SeriesDescription, Column: model.ColSeriesDescription, Kind: KindString},
	{Path: dataset.BodyPartExamined, Column: model.ColBodyPartExamined, Kind: KindString},
	{Path: dataset.SeriesDate, Column: model.ColSeriesDate, Kind: KindDate},
	{Path: dataset.SeriesTime, Column: model.ColSeriesTime, Kind: KindTime},
	{Path: dataset.NumberOfSeriesRelatedInstances, Column: model.ColSeriesInstanceCount, Kind: KindInfo},
}

var instanceSpecs = []Spec{
	{Path: dataset.StudyInstanceUID, Column: model.ColStudyUID, Kind: KindUID, AlwaysReturn: true},
	{Path: dataset.SeriesInstanceUID, Column: model.ColSeriesUID, Kind: KindUID, AlwaysReturn: true},
	{Path: dataset.SOPInstanceUID, Column: model.ColSOPInstanceUID, Kind: KindUID, AlwaysReturn: true},
	{Path: dataset.SOPClassUID, Column: model.ColSOPClassUID, Kind: KindUID},
	{Path: dataset.InstanceNumber, Column: model.ColInstanceNumber, Kind: KindString},
	{Path: dataset.ImageComments, Column: model.ColImageComments, Kind: KindString},
	{Path: dataset.ContentDate, Column: model.ColContentDate, Kind: KindDate},
	{Path: dataset.ContentTime, Column: model.ColContentTime, Kind: KindTime},
}

// StudySpecs returns the ordered study-level filter specs.
func StudySpecs() []Spec { return slices.Clone(studySpecs) }

// SeriesSpecs returns the ordered series-level filter specs.
func SeriesSpecs() []Spec { return slices.Clone(seriesSpecs) }

// InstanceSpecs returns the ordered instance-level filter specs.
func InstanceSpecs() []Spec { return slices.Clone(instanceSpecs) }
