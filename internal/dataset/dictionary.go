package dataset

import "strings"

// Attributes understood by the query engine.
var (
	SpecificCharacterSet = Path{Tag{0x0008, 0x0005}, CS, "SpecificCharacterSet"}
	QueryRetrieveLevel   = Path{Tag{0x0008, 0x0052}, CS, "QueryRetrieveLevel"}

	PatientName                   = Path{Tag{0x0010, 0x0010}, PN, "PatientName"}
	PatientID                     = Path{Tag{0x0010, 0x0020}, LO, "PatientID"}
	PatientBirthDate              = Path{Tag{0x0010, 0x0030}, DA, "PatientBirthDate"}
	PatientSex                    = Path{Tag{0x0010, 0x0040}, CS, "PatientSex"}
	StudyInstanceUID              = Path{Tag{0x0020, 0x000D}, UI, "StudyInstanceUID"}
	StudyDate                     = Path{Tag{0x0008, 0x0020}, DA, "StudyDate"}
	StudyTime                     = Path{Tag{0x0008, 0x0030}, TM, "StudyTime"}
	AccessionNumber               = Path{Tag{0x0008, 0x0050}, SH, "AccessionNumber"}
	StudyID                       = Path{Tag{0x0020, 0x0010}, SH, "StudyID"}
	StudyDescription              = Path{Tag{0x0008, 0x1030}, LO, "StudyDescription"}
	ReferringPhysicianName        = Path{Tag{0x0008, 0x0090}, PN, "ReferringPhysicianName"}
	ModalitiesInStudy             = Path{Tag{0x0008, 0x0061}, CS, "ModalitiesInStudy"}
	NumberOfStudyRelatedSeries    = Path{Tag{0x0020, 0x1206}, IS, "NumberOfStudyRelatedSeries"}
	NumberOfStudyRelatedInstances = Path{Tag{0x0020, 0x1208}, IS, "NumberOfStudyRelatedInstances"}

	SeriesInstanceUID              = Path{Tag{0x0020, 0x000E}, UI, "SeriesInstanceUID"}
	Modality                       = Path{Tag{0x0008, 0x0060}, CS, "Modality"}
	SeriesNumber                   = Path{Tag{0x0020, 0x0011}, IS, "SeriesNumber"}
	SeriesDescription              = Path{Tag{0x0008, 0x103E}, LO, "SeriesDescription"}
	BodyPartExamined               = Path{Tag{0x0018, 0x0015}, CS, "BodyPartExamined"}
	SeriesDate                     = Path{Tag{0x0008, 0x0021}, DA, "SeriesDate"}
	SeriesTime                     = Path{Tag{0x0008, 0x0031}, TM, "SeriesTime"}
	NumberOfSeriesRelatedInstances = Path{Tag{0x0020, 0x1209}, IS, "NumberOfSeriesRelatedInstances"}

	SOPInstanceUID = Path{Tag{0x0008, 0x0018}, UI, "SOPInstanceUID"}
	SOPClassUID    = Path{Tag{0x0008, 0x0016}, UI, "SOPClassUID"}
	InstanceNumber = Path{Tag{0x0020, 0x0013}, IS, "InstanceNumber"}
	ImageComments  = Path{Tag{0x0020, 0x4000}, LT, "ImageComments"}
	ContentDate    = Path{Tag{0x0008, 0x0023}, DA, "ContentDate"}
	ContentTime    = Path{Tag{0x0008, 0x0033}, TM, "ContentTime"}
)

var dictionary = []Path{
	SpecificCharacterSet, QueryRetrieveLevel,
	PatientName, PatientID, PatientBirthDate, PatientSex,
	StudyInstanceUID, StudyDate, StudyTime, AccessionNumber, StudyID,
	StudyDescription, ReferringPhysicianName, ModalitiesInStudy,
	NumberOfStudyRelatedSeries, NumberOfStudyRelatedInstances,
	SeriesInstanceUID, Modality, SeriesNumber, SeriesDescription,
	BodyPartExamined, SeriesDate, SeriesTime, NumberOfSeriesRelatedInstances,
	SOPInstanceUID, SOPClassUID, InstanceNumber, ImageComments,
	ContentDate, ContentTime,
}

// Read-only after init.
var (
	byTag     = make(map[Tag]Path, len(dictionary))
	byKeyword = make(map[string]Path, len(dictionary))
)

func init() {
	for _, p := range dictionary {
		byTag[p.Tag] = p
		byKeyword[strings.ToLower(p.Keyword)] = p
	}
}

// Lookup returns the dictionary path for a tag.
func Lookup(tag Tag) (Path, bool) {
	p, ok := byTag[tag]
	return p, ok
}

// LookupKeyword resolves a keyword (case-insensitive) or a hex tag to a path.
func LookupKeyword(name string) (Path, bool) {
	if p, ok := byKeyword[strings.ToLower(strings.TrimSpace(name))]; ok {
		return p, true
	}
	tag, err := ParseTag(name)
	if err != nil {
		return Path{}, false
	}
	return Lookup(tag)
}

// VROf returns the dictionary VR for a tag, or UN when the tag is unknown.
func VROf(tag Tag) VR {
	if p, ok := byTag[tag]; ok {
		return p.VR
	}
	return UN
}
