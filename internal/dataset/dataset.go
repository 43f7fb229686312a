package dataset

import (
	"slices"
	"strings"
)

// Delimiter separates the values of a multi-valued attribute.
const Delimiter = `\`

// Element is one attribute slot. A slot is either null (present without a
// value) or carries a possibly empty, possibly backslash-joined string.
type Element struct {
	Tag   Tag
	VR    VR
	Value string
	Null  bool
}

// Values splits the element value on the multi-value delimiter.
func (e *Element) Values() []string {
	if e == nil || e.Null {
		return nil
	}
	return strings.Split(e.Value, Delimiter)
}

// Dataset is an attribute collection keyed by tag. Absent, null and empty
// attributes are distinct.
type Dataset struct {
	Elements map[Tag]*Element
}

// New creates an empty dataset.
func New() *Dataset {
	return &Dataset{Elements: make(map[Tag]*Element)}
}

// Set stores a value at the path, replacing any previous element.
func (d *Dataset) Set(p Path, value string) {
	d.Elements[p.Tag] = &Element{Tag: p.Tag, VR: p.VR, Value: value}
}

// SetValues stores a multi-valued attribute.
func (d *Dataset) SetValues(p Path, values ...string) {
	d.Set(p, strings.Join(values, Delimiter))
}

// SetNull stores a present but valueless attribute.
func (d *Dataset) SetNull(p Path) {
	d.Elements[p.Tag] = &Element{Tag: p.Tag, VR: p.VR, Null: true}
}

// Put stores an element as is.
func (d *Dataset) Put(e *Element) {
	d.Elements[e.Tag] = e
}

// Delete removes the attribute.
func (d *Dataset) Delete(tag Tag) {
	delete(d.Elements, tag)
}

// Get returns the element for a tag.
func (d *Dataset) Get(tag Tag) (*Element, bool) {
	e, ok := d.Elements[tag]
	return e, ok
}

// String returns the value for a tag, trimmed of padding. Absent and null
// attributes yield "".
func (d *Dataset) String(tag Tag) string {
	if e, ok := d.Elements[tag]; ok && !e.Null {
		return strings.TrimSpace(e.Value)
	}
	return ""
}

// Strings returns the trimmed values of a multi-valued attribute.
func (d *Dataset) Strings(tag Tag) []string {
	e, ok := d.Elements[tag]
	if !ok || e.Null {
		return nil
	}
	parts := e.Values()
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}
	return parts
}

// Len returns the number of attributes.
func (d *Dataset) Len() int {
	return len(d.Elements)
}

// Tags returns the tags in ascending order.
func (d *Dataset) Tags() []Tag {
	tags := make([]Tag, 0, len(d.Elements))
	for tag := range d.Elements {
		tags = append(tags, tag)
	}
	slices.SortFunc(tags, func(a, b Tag) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		}
		return 0
	})
	return tags
}

// Criterion is the caller-supplied value for one attribute of a query.
type Criterion struct {
	VR      VR
	Value   string
	Present bool
	Null    bool
}

// Empty reports whether the criterion is present with a zero-length value.
func (c Criterion) Empty() bool {
	return c.Present && !c.Null && strings.TrimSpace(c.Value) == ""
}

// Criterion reads the query value at a path.
func (d *Dataset) Criterion(p Path) Criterion {
	e, ok := d.Elements[p.Tag]
	if !ok {
		return Criterion{VR: p.VR}
	}
	vr := e.VR
	if vr == "" {
		vr = p.VR
	}
	return Criterion{VR: vr, Value: e.Value, Present: true, Null: e.Null}
}
