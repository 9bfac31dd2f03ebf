// Package msgpack provides an encoder that transcodes MessagePack payloads
// into JSON. Rows kept as msgpack blobs (in a cache, a queue or a key/value
// store) can be streamed into a JSON document without defining Go types for
// them.
//
// The jsonstreams command decodes its msgpack input into records itself, so
// it does not use this encoder; it is for library callers holding
// msgpack.RawMessage values.
package msgpack

import (
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/dcbaker/jsonstreams"
)

// Encoder implements jsonstreams.Encoder. msgpack.RawMessage values are
// decoded and re-encoded as JSON; any other value goes to Fallback as is.
type Encoder struct {
	Fallback jsonstreams.Encoder
}

var _ jsonstreams.Encoder = &Encoder{}

// Encode serializes v to JSON.
func (e *Encoder) Encode(v any, depth int) ([]byte, error) {
	raw, ok := v.(msgpack.RawMessage)
	if !ok {
		return e.Fallback.Encode(v, depth)
	}
	decoded, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	return e.Fallback.Encode(decoded, depth)
}

// Decode unpacks a MessagePack payload into plain Go values. Maps are
// decoded as map[string]any so the result can be rendered as JSON.
func Decode(data []byte) (any, error) {
	var v any
	if err := msgpack.Unmarshal(data, &v); err != nil {
		return nil, errors.Wrap(err, "msgpack: decode")
	}
	return v, nil
}

// New creates a new transcoding encoder on top of the default JSON encoder.
func New(indent int) *Encoder {
	return &Encoder{Fallback: jsonstreams.NewJSONEncoder(indent)}
}

// Factory is New as a jsonstreams.EncoderFactory.
func Factory(indent int) jsonstreams.Encoder {
	return New(indent)
}
