// Package protojson provides an encoder that renders Protocol Buffers
// messages using their canonical JSON mapping. Values that are not
// proto.Message are handed to a fallback encoder, so a stream can mix
// messages with plain Go values.
//
// The encoder is meant for programs that stream their own proto messages;
// the jsonstreams command reads untyped records and does not offer it.
package protojson

import (
	"bytes"
	"encoding/json"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/dcbaker/jsonstreams"
)

// Encoder implements jsonstreams.Encoder for proto.Message values.
type Encoder struct {
	Options  protojson.MarshalOptions
	Fallback jsonstreams.Encoder
	indent   int
}

var _ jsonstreams.Encoder = &Encoder{}

// Encode serializes v using protojson when it is a proto.Message and the
// fallback encoder otherwise.
func (e *Encoder) Encode(v any, depth int) ([]byte, error) {
	m, ok := v.(proto.Message)
	if !ok {
		return e.Fallback.Encode(v, depth)
	}

	b, err := e.Options.Marshal(m)
	if err != nil {
		return nil, err
	}

	// protojson output is deliberately unstable in its whitespace; reformat
	// it so the stream stays byte-for-byte reproducible.
	var buf bytes.Buffer
	if e.indent > 0 {
		prefix, unit := jsonstreams.IndentStrings(e.indent, depth)
		err = json.Indent(&buf, b, prefix, unit)
	} else {
		err = json.Compact(&buf, b)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// New creates a new protojson encoder with the default encoder as fallback.
func New(indent int) *Encoder {
	return &Encoder{
		Fallback: jsonstreams.NewJSONEncoder(indent),
		indent:   indent,
	}
}

// Factory is New as a jsonstreams.EncoderFactory.
func Factory(indent int) jsonstreams.Encoder {
	return New(indent)
}
