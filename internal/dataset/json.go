package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// jsonAttribute is one attribute of the DICOM JSON model (PS3.18 F.2).
// A missing Value is an empty attribute; an explicit null Value is a null one.
type jsonAttribute struct {
	VR    string          `json:"vr"`
	Value json.RawMessage `json:"Value,omitempty"`
}

type personName struct {
	Alphabetic string `json:"Alphabetic,omitempty"`
}

// MarshalJSON encodes the dataset in the DICOM JSON model. Map keys are
// eight digit hex tags, which encoding/json emits in tag order.
func (d *Dataset) MarshalJSON() ([]byte, error) {
	out := make(map[string]jsonAttribute, len(d.Elements))
	for tag, e := range d.Elements {
		attr := jsonAttribute{VR: string(e.VR)}
		if attr.VR == "" {
			attr.VR = string(VROf(tag))
		}
		if e.Null {
			attr.Value = json.RawMessage("null")
		} else if e.Value != "" {
			values := e.Values()
			if e.VR == LT || e.VR == ST || e.VR == UT {
				values = []string{e.Value}
			}
			raw, err := encodeValues(e.VR, values)
			if err != nil {
				return nil, fmt.Errorf("encode %s: %w", tag, err)
			}
			attr.Value = raw
		}
		out[tag.Hex()] = attr
	}
	return json.Marshal(out)
}

func encodeValues(vr VR, values []string) (json.RawMessage, error) {
	items := make([]any, len(values))
	for i, v := range values {
		v = strings.TrimSpace(v)
		switch vr {
		case PN:
			items[i] = personName{Alphabetic: v}
		case IS:
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				items[i] = n
			} else {
				items[i] = v
			}
		default:
			items[i] = v
		}
	}
	return json.Marshal(items)
}

// UnmarshalJSON decodes a dataset from the DICOM JSON model.
func (d *Dataset) UnmarshalJSON(data []byte) error {
	var in map[string]jsonAttribute
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	d.Elements = make(map[Tag]*Element, len(in))
	for key, attr := range in {
		tag, err := ParseTag(key)
		if err != nil {
			return err
		}
		vr := VR(attr.VR)
		if vr == "" {
			vr = VROf(tag)
		}
		e := &Element{Tag: tag, VR: vr}
		switch {
		case len(attr.Value) == 0:
		case bytes.Equal(bytes.TrimSpace(attr.Value), []byte("null")):
			e.Null = true
		default:
			values, err := decodeValues(attr.Value)
			if err != nil {
				return fmt.Errorf("decode %s: %w", tag, err)
			}
			e.Value = strings.Join(values, Delimiter)
		}
		d.Elements[tag] = e
	}
	return nil
}

func decodeValues(raw json.RawMessage) ([]string, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	values := make([]string, 0, len(items))
	for _, item := range items {
		item = bytes.TrimSpace(item)
		switch {
		case len(item) == 0 || bytes.Equal(item, []byte("null")):
			values = append(values, "")
		case item[0] == '"':
			var s string
			if err := json.Unmarshal(item, &s); err != nil {
				return nil, err
			}
			values = append(values, s)
		case item[0] == '{':
			var pn personName
			if err := json.Unmarshal(item, &pn); err != nil {
				return nil, err
			}
			values = append(values, pn.Alphabetic)
		default:
			values = append(values, string(item))
		}
	}
	return values, nil
}
