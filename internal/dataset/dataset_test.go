package dataset

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTag(t *testing.T) {
	tests := []struct {
		in      string
		want    Tag
		wantErr bool
	}{
		{"00100010", Tag{0x0010, 0x0010}, false},
		{"0020,000D", Tag{0x0020, 0x000D}, false},
		{"(0008,0061)", Tag{0x0008, 0x0061}, false},
		{"0010", Tag{}, true},
		{"ZZZZ0010", Tag{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTag(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLookupKeyword(t *testing.T) {
	p, ok := LookupKeyword("patientname")
	require.True(t, ok)
	assert.Equal(t, PatientName, p)

	p, ok = LookupKeyword("(0008,0061)")
	require.True(t, ok)
	assert.Equal(t, ModalitiesInStudy, p)

	_, ok = LookupKeyword("NoSuchAttribute")
	assert.False(t, ok)

	assert.Equal(t, UN, VROf(Tag{0x0009, 0x0010}))
	assert.Equal(t, LT, VROf(ImageComments.Tag))
}

func TestCriterionStates(t *testing.T) {
	ds := New()
	ds.Set(PatientID, "P1")
	ds.Set(StudyDescription, "")
	ds.SetNull(AccessionNumber)

	c := ds.Criterion(PatientID)
	assert.True(t, c.Present)
	assert.False(t, c.Empty())
	assert.Equal(t, "P1", c.Value)

	c = ds.Criterion(StudyDescription)
	assert.True(t, c.Present)
	assert.True(t, c.Empty())

	c = ds.Criterion(AccessionNumber)
	assert.True(t, c.Present)
	assert.True(t, c.Null)
	assert.False(t, c.Empty())

	c = ds.Criterion(PatientName)
	assert.False(t, c.Present)
	assert.False(t, c.Empty())
	assert.Equal(t, PN, c.VR)
}

func TestCriterionKeepsElementVR(t *testing.T) {
	ds := New()
	ds.Put(&Element{Tag: PatientID.Tag, VR: UI, Value: "1.2"})
	assert.Equal(t, UI, ds.Criterion(PatientID).VR)
}

func TestStrings(t *testing.T) {
	ds := New()
	ds.SetValues(ModalitiesInStudy, "CT ", "MR")
	assert.Equal(t, "CT \\MR", ds.Elements[ModalitiesInStudy.Tag].Value)
	assert.Equal(t, []string{"CT", "MR"}, ds.Strings(ModalitiesInStudy.Tag))
	assert.Nil(t, ds.Strings(PatientID.Tag))
	assert.Equal(t, []Tag{ModalitiesInStudy.Tag}, ds.Tags())
}

func TestJSONRoundTrip(t *testing.T) {
	ds := New()
	ds.Set(PatientName, "DOE^JOHN")
	ds.SetValues(ModalitiesInStudy, "CT", "MR")
	ds.Set(NumberOfStudyRelatedSeries, "3")
	ds.Set(StudyDescription, "")
	ds.SetNull(AccessionNumber)

	b, err := json.Marshal(ds)
	require.NoError(t, err)
	s := string(b)
	assert.Contains(t, s, `"00100010":{"vr":"PN","Value":[{"Alphabetic":"DOE^JOHN"}]}`)
	assert.Contains(t, s, `"00201206":{"vr":"IS","Value":[3]}`)
	assert.Contains(t, s, `"00081030":{"vr":"LO"}`)
	assert.Contains(t, s, `"00080050":{"vr":"SH","Value":null}`)

	got := New()
	require.NoError(t, json.Unmarshal(b, got))
	assert.Equal(t, ds.Tags(), got.Tags())
	for _, tag := range ds.Tags() {
		want, _ := ds.Get(tag)
		e, _ := got.Get(tag)
		assert.Equal(t, want, e, tag.String())
	}
}

func TestUnmarshalInfersVR(t *testing.T) {
	got := New()
	require.NoError(t, json.Unmarshal([]byte(`{"0020000D":{"Value":["1.2.3"]},"00200013":{"vr":"IS","Value":[7,null]}}`), got))
	e, ok := got.Get(StudyInstanceUID.Tag)
	require.True(t, ok)
	assert.Equal(t, UI, e.VR)
	assert.Equal(t, "1.2.3", e.Value)
	assert.Equal(t, "7\\", got.Elements[InstanceNumber.Tag].Value)

	require.Error(t, json.Unmarshal([]byte(`{"bogus":{"vr":"CS"}}`), New()))
}

func TestNewUID(t *testing.T) {
	a, b := NewUID(), NewUID()
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "2.25."))
	assert.LessOrEqual(t, len(a), 64)
	for _, c := range strings.TrimPrefix(a, "2.25.") {
		assert.True(t, c >= '0' && c <= '9', "uid %s", a)
	}
}

func TestJSONKeepsTextValuesWhole(t *testing.T) {
	ds := New()
	ds.Set(ImageComments, `left\right`)

	b, err := json.Marshal(ds)
	require.NoError(t, err)
	assert.JSONEq(t, `{"00204000":{"vr":"LT","Value":["left\\right"]}}`, string(b))

	got := New()
	require.NoError(t, json.Unmarshal(b, got))
	assert.Equal(t, `left\right`, got.String(ImageComments.Tag))
}
