package gojson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testStruct struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func TestEncoderEncode(t *testing.T) {
	encoded, err := New(0).Encode(testStruct{Name: "test", Value: 42}, 2)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"test","value":42}`, string(encoded))
}

func TestEncoderEncodeIndent(t *testing.T) {
	encoded, err := New(2).Encode(map[string]int{"a": 1}, 1)
	require.NoError(t, err)
	assert.Equal(t, "{\n    \"a\": 1\n  }", string(encoded))
}

func TestEncoderNoHTMLEscape(t *testing.T) {
	encoded, err := New(0).Encode("<&>", 0)
	require.NoError(t, err)
	assert.Equal(t, `"<&>"`, string(encoded))

	encoded, err = New(2).Encode([]string{"<&>"}, 0)
	require.NoError(t, err)
	assert.Equal(t, "[\n  \"<&>\"\n]", string(encoded))
}

func TestEncoderEncodeNil(t *testing.T) {
	encoded, err := New(0).Encode(nil, 0)
	require.NoError(t, err)
	assert.Equal(t, "null", string(encoded))
}

func BenchmarkEncoderEncode(b *testing.B) {
	encoder := New(0)
	data := testStruct{Name: "benchmark", Value: 999}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		encoder.Encode(data, 0)
	}
}
