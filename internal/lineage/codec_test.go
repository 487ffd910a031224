package lineage

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/transmute/internal/record"
)

func TestEncodeLayout(t *testing.T) {
	seed := &Seed{Provenance: NewProvenance(record.NewObject(record.O(KeySource, record.String("unit"))))}
	l, err := New(num(1), seed, add{1}, add{2})
	require.NoError(t, err)

	data, err := testCodec.Marshal(l)
	require.NoError(t, err)

	expected := `{"history":[{"source":"unit"},` +
		`{"by":1,"input_structure":{"value":1},"name":"add"},` +
		`{"by":2,"input_structure":{"value":2},"name":"add"}],` +
		`"value":4,"version":"test"}`
	assert.Equal(t, expected, string(data))
}

func TestEncodeDefaultVersion(t *testing.T) {
	l := newLineage(t)

	rec := Codec{}.Encode(l)

	assert.Equal(t, record.String(record.FormatVersion), rec[KeyVersion])
	assert.Equal(t, record.Array{record.Object{}}, rec[KeyHistory])
}

func TestCodecRoundTrip(t *testing.T) {
	seed := &Seed{Provenance: NewProvenance(record.NewObject(
		record.O(KeySource, record.String("unit")),
		record.O(KeyDatetime, record.String("2012-03-02T00:00:00Z")),
	))}
	l, err := New(num(1), seed, add{1}, add{5}, rejectValue{100})
	require.NoError(t, err)

	data, err := testCodec.Marshal(l)
	require.NoError(t, err)
	back, err := testCodec.Unmarshal(data)
	require.NoError(t, err)

	assert.Equal(t, l.Current(), back.Current())
	assert.Equal(t, l.Transformations(), back.Transformations())
	assert.Equal(t, l.Artifacts(), back.Artifacts())
	assert.Equal(t, l.Provenance().Record(), back.Provenance().Record())
	assert.Equal(t, 0, back.RedoDepth())
}

func TestDecodeAppliesExtra(t *testing.T) {
	l := newLineage(t, add{1})

	back, err := testCodec.Decode(testCodec.Encode(l), add{10}, add{100})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 12, 112}, values(back.Artifacts()))
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"not json", `{`},
		{"no history", `{"value":1,"version":"1.0"}`},
		{"no version", `{"value":1,"history":[{}]}`},
		{"bad provenance", `{"value":1,"history":[1],"version":"1.0"}`},
		{"step without input", `{"value":1,"history":[{},{"name":"add","by":1}],"version":"1.0"}`},
		{"unknown transformation", `{"value":1,"history":[{},{"name":"nope","input_structure":{"value":0}}],"version":"1.0"}`},
		{"bad artifact", `{"history":[{}],"version":"1.0"}`},
		{"trailing data", `{"value":1,"history":[{}],"version":"1.0"} garbage`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := testCodec.Unmarshal([]byte(tt.json))
			assert.ErrorIs(t, err, ErrMalformedRecord)
		})
	}
}

func TestDecodeWithoutDecoders(t *testing.T) {
	_, err := Codec{}.Decode(record.Object{})
	assert.Error(t, err)
}

func TestEncodeAll(t *testing.T) {
	f, err := NewForest([]Artifact{num(1)}, nil, split{2})
	require.NoError(t, err)

	recs := testCodec.EncodeAll(f)

	require.Len(t, recs, 2)
	for i, rec := range recs {
		back, err := testCodec.Decode(rec)
		require.NoError(t, err)
		assert.Equal(t, num(11+i), back.Current())
		data, err := json.Marshal(rec)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"input_structure":{"value":1}`)
	}
}
