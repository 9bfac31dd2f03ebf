// Package gojson provides a goccy/go-json based encoder for jsonstreams.
package gojson

import (
	gojson "github.com/goccy/go-json"

	"github.com/dcbaker/jsonstreams"
)

// Encoder implements jsonstreams.Encoder using goccy/go-json.
type Encoder struct {
	indent int
}

var _ jsonstreams.Encoder = &Encoder{}

// Encode serializes v to JSON.
func (e *Encoder) Encode(v any, depth int) ([]byte, error) {
	if e.indent <= 0 {
		return gojson.MarshalNoEscape(v)
	}
	prefix, unit := jsonstreams.IndentStrings(e.indent, depth)
	return gojson.MarshalIndentWithOption(v, prefix, unit, gojson.DisableHTMLEscape())
}

// New creates a new go-json encoder.
func New(indent int) *Encoder {
	return &Encoder{indent: indent}
}

// Factory is New as a jsonstreams.EncoderFactory.
func Factory(indent int) jsonstreams.Encoder {
	return New(indent)
}
