package jsonstreams

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Encoder renders a single value as JSON text. Implementations include the
// default encoding/json encoder and the json-iterator, go-json, protojson and
// msgpack encoders under encoders/.
type Encoder interface {
	// Encode renders v. depth is the nesting level the value starts at; when
	// the encoder was built with a non-zero indent every continuation line is
	// prefixed with indent*depth spaces so the value lines up with the
	// surrounding stream.
	Encode(v any, depth int) ([]byte, error)
}

// EncoderFactory builds an Encoder for the given indent width. The stream
// passes its indent only in pretty mode and 0 otherwise.
type EncoderFactory func(indent int) Encoder

// JSONEncoder implements Encoder using the standard encoding/json package.
type JSONEncoder struct {
	Indent     int
	EscapeHTML bool
}

var _ Encoder = &JSONEncoder{}

// NewJSONEncoder creates the default encoder. It matches the EncoderFactory
// signature.
func NewJSONEncoder(indent int) Encoder {
	return &JSONEncoder{Indent: indent}
}

// Encode serializes v to JSON.
func (e *JSONEncoder) Encode(v any, depth int) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(e.EscapeHTML)
	if e.Indent > 0 {
		prefix, indent := IndentStrings(e.Indent, depth)
		enc.SetIndent(prefix, indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// IndentStrings returns the line prefix for a value starting at depth and the
// per-level indent, for encoders built on MarshalIndent style APIs.
func IndentStrings(indent, depth int) (prefix, unit string) {
	if indent <= 0 {
		return "", ""
	}
	unit = strings.Repeat(" ", indent)
	return strings.Repeat(unit, depth), unit
}
