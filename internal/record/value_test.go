package record

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectMarshalSortedKeys(t *testing.T) {
	obj := NewObject(
		O("zeta", Int(1)),
		O("alpha", String("a")),
		O("mid", Floats(0.25, 0.5)),
	)

	data, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":"a","mid":[0.25,0.5],"zeta":1}`, string(data))
}

func TestDecodeNumbers(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Value
	}{
		{"int", "42", Int(42)},
		{"negative int", "-7", Int(-7)},
		{"float", "0.125", Float(0.125)},
		{"exponent", "1e3", Float(1000)},
		{"whole float", "2.0", Float(2)},
		{"null", "null", Null{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Decode([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, v)
		})
	}
}

func TestObjectRoundTrip(t *testing.T) {
	orig := NewObject(
		O("name", String("SupercellTransformation")),
		O("init_args", NewObject(O("scaling", Array{Int(2), Int(1), Int(1)}))),
		O("coords", Floats(0.1, 0.2, 0.3)),
		O("flag", Bool(true)),
	)

	data, err := json.Marshal(orig)
	require.NoError(t, err)

	var decoded Object
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, orig, decoded)
}

func TestUnmarshalObjectRejectsArray(t *testing.T) {
	var obj Object
	err := json.Unmarshal([]byte(`[1,2]`), &obj)
	assert.Error(t, err)
}

func TestCloneIsDeep(t *testing.T) {
	orig := NewObject(
		O("nested", NewObject(O("k", String("v")))),
		O("list", Strings("a", "b")),
	)

	c := orig.Clone()
	c["nested"].(Object)["k"] = String("changed")
	c["list"].(Array)[0] = String("z")

	assert.Equal(t, String("v"), orig["nested"].(Object)["k"])
	assert.Equal(t, String("a"), orig["list"].(Array)[0])
}

func TestWithoutLeavesOriginal(t *testing.T) {
	orig := NewObject(O("a", Int(1)), O("b", Int(2)))

	out := orig.Without("a")

	assert.Len(t, out, 1)
	assert.Len(t, orig, 2)
}

func TestNumberAndInteger(t *testing.T) {
	f, ok := Number(Int(3))
	assert.True(t, ok)
	assert.Equal(t, 3.0, f)

	_, ok = Number(String("3"))
	assert.False(t, ok)

	i, ok := Integer(Float(4))
	assert.True(t, ok)
	assert.Equal(t, int64(4), i)

	_, ok = Integer(Float(4.5))
	assert.False(t, ok)
}

func TestMarshalValueRejectsNonFinite(t *testing.T) {
	_, err := MarshalValue(Float(math.NaN()))
	assert.Error(t, err)

	_, err = MarshalValue(Float(math.Inf(1)))
	assert.Error(t, err)
}

func TestFromAnyYAMLShapes(t *testing.T) {
	v, err := FromAny(map[string]any{
		"species_map": map[string]any{"Fe": "Mn"},
		"scaling":     []any{2, 1, 1},
		"fraction":    0.5,
	})
	require.NoError(t, err)

	obj := v.(Object)
	assert.Equal(t, NewObject(O("Fe", String("Mn"))), obj["species_map"])
	assert.Equal(t, Array{Int(2), Int(1), Int(1)}, obj["scaling"])
	assert.Equal(t, Float(0.5), obj["fraction"])
}

func TestDecodeRejectsTrailingData(t *testing.T) {
	for _, input := range []string{`{"a":1} garbage`, `{"a":1}{"b":2}`, `[1] 2`} {
		_, err := Decode([]byte(input))
		assert.Error(t, err, input)
	}

	_, err := DecodeObject([]byte(`{"a":1} garbage`))
	require.Error(t, err)

	v, err := Decode([]byte(" {\"a\":1}\n"))
	require.NoError(t, err)
	assert.Equal(t, NewObject(O("a", Int(1))), v)
}
