// Package dataset defines the attribute collection exchanged with the query
// engine: tags, value representations, field paths and the keyword dictionary.
package dataset

import (
	"fmt"
	"strconv"
	"strings"
)

// VR is a DICOM value representation.
type VR string

// Value representations known to the engine.
const (
	AE VR = "AE" // Application Entity
	AS VR = "AS" // Age String
	AT VR = "AT" // Attribute Tag
	CS VR = "CS" // Code String
	DA VR = "DA" // Date
	DS VR = "DS" // Decimal String
	DT VR = "DT" // Date Time
	FL VR = "FL" // Floating Point Single
	FD VR = "FD" // Floating Point Double
	IS VR = "IS" // Integer String
	LO VR = "LO" // Long String
	LT VR = "LT" // Long Text
	OB VR = "OB" // Other Byte
	OW VR = "OW" // Other Word
	PN VR = "PN" // Person Name
	SH VR = "SH" // Short String
	SL VR = "SL" // Signed Long
	SQ VR = "SQ" // Sequence of Items
	SS VR = "SS" // Signed Short
	ST VR = "ST" // Short Text
	TM VR = "TM" // Time
	UI VR = "UI" // Unique Identifier
	UL VR = "UL" // Unsigned Long
	UN VR = "UN" // Unknown
	US VR = "US" // Unsigned Short
	UT VR = "UT" // Unlimited Text
)

// Tag represents a DICOM tag (group, element).
type Tag struct {
	Group   uint16
	Element uint16
}

// String returns the tag as a string in (GGGG,EEEE) format.
func (t Tag) String() string {
	return fmt.Sprintf("(%04X,%04X)", t.Group, t.Element)
}

// Hex returns the tag in the eight digit form used by the DICOM JSON model.
func (t Tag) Hex() string {
	return fmt.Sprintf("%04X%04X", t.Group, t.Element)
}

// Less orders tags by group, then element.
func (t Tag) Less(o Tag) bool {
	if t.Group != o.Group {
		return t.Group < o.Group
	}
	return t.Element < o.Element
}

// ParseTag parses "GGGGEEEE", "GGGG,EEEE" or "(GGGG,EEEE)".
func ParseTag(s string) (Tag, error) {
	h := strings.Trim(strings.TrimSpace(s), "()")
	h = strings.ReplaceAll(h, ",", "")
	if len(h) != 8 {
		return Tag{}, fmt.Errorf("invalid tag %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Tag{}, fmt.Errorf("invalid tag %q: %w", s, err)
	}
	return Tag{Group: uint16(v >> 16), Element: uint16(v)}, nil
}

// Path addresses one attribute together with its declared value
// representation. The VR is fixed for the life of the path.
type Path struct {
	Tag     Tag
	VR      VR
	Keyword string
}

func (p Path) String() string {
	return p.Keyword + p.Tag.String()
}
