package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    Value
		expected string
	}{
		{"string", String("hello"), `"hello"`},
		{"int", Int(42), "42"},
		{"float", Float(0.25), "0.25"},
		{"whole float", Float(2), "2"},
		{"bool", Bool(false), "false"},
		{"empty array", Array{}, "[]"},
		{"empty object", Object{}, "{}"},
		{"nested", NewObject(O("b", Int(1)), O("a", Array{Int(2)})), `{"a":[2],"b":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	result, err := MarshalCanonical(String("<a&b>"))
	require.NoError(t, err)
	assert.Equal(t, `"<a&b>"`, string(result))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	// "e" + combining acute accent normalizes to U+00E9
	decomposed := String("e\u0301")
	composed := String("\u00e9")

	a, err := MarshalCanonical(decomposed)
	require.NoError(t, err)
	b, err := MarshalCanonical(composed)
	require.NoError(t, err)
	assert.Equal(t, string(b), string(a))
}

func TestMarshalCanonicalRejectsNull(t *testing.T) {
	_, err := MarshalCanonical(NewObject(O("x", Null{})))
	assert.Error(t, err)
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(Int(2), Float(2)))
	assert.True(t, Equal(
		NewObject(O("a", Int(1)), O("b", Int(2))),
		NewObject(O("b", Int(2)), O("a", Int(1))),
	))
	assert.False(t, Equal(String("a"), String("b")))
	assert.False(t, Equal(Null{}, Null{}))
}
