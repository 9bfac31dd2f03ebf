// Package records reads the input of the jsonstreams command as a sequence
// of records.
package records

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
	"iter"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// Record is one input record. It is a map, so input field order is not
// kept: the encoders write its keys sorted.
type Record = map[string]any

// ErrUnknownFormat is returned by Read for an unsupported format name.
var ErrUnknownFormat = errors.New("records: unknown format")

// numberConfig decodes numbers as json.Number so large integers survive the
// trip to the output unchanged.
var numberConfig = jsoniter.Config{UseNumber: true}.Froze()

// Read returns the records of r in the named format.
func Read(r io.Reader, format string) (iter.Seq2[Record, error], error) {
	switch format {
	case "ndjson":
		return NDJSON(r), nil
	case "csv":
		return CSV(r), nil
	case "msgpack":
		return Msgpack(r), nil
	case "yaml":
		return YAML(r), nil
	}
	return nil, errors.Wrapf(ErrUnknownFormat, "%q", format)
}

// NDJSON reads one JSON object per line. Blank lines are skipped.
func NDJSON(r io.Reader) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		br := bufio.NewReader(r)
		for line := 1; ; line++ {
			data, err := br.ReadBytes('\n')
			if err != nil && err != io.EOF {
				yield(nil, errors.Wrapf(err, "ndjson: read line %d", line))
				return
			}
			if len(bytes.TrimSpace(data)) > 0 {
				var rec Record
				if uerr := numberConfig.Unmarshal(data, &rec); uerr != nil {
					yield(nil, errors.Wrapf(uerr, "ndjson: line %d", line))
					return
				}
				if !yield(rec, nil) {
					return
				}
			}
			if err == io.EOF {
				return
			}
		}
	}
}

// CSV reads a header row followed by data rows. Every value is a string.
// Column order is not preserved; records come out with their keys sorted,
// whatever the order of the header.
func CSV(r io.Reader) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		cr := csv.NewReader(r)
		header, err := cr.Read()
		if err == io.EOF {
			return
		}
		if err != nil {
			yield(nil, errors.Wrap(err, "csv: read header"))
			return
		}
		cr.FieldsPerRecord = len(header)
		for {
			row, err := cr.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, errors.Wrap(err, "csv"))
				return
			}
			rec := make(Record, len(header))
			for i, name := range header {
				rec[name] = row[i]
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// Msgpack reads a concatenation of msgpack encoded maps.
func Msgpack(r io.Reader) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		dec := msgpack.NewDecoder(r)
		for n := 0; ; n++ {
			var rec Record
			if err := dec.Decode(&rec); err != nil {
				if err == io.EOF {
					return
				}
				yield(nil, errors.Wrapf(err, "msgpack: record %d", n))
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// YAML reads a stream of "---" separated YAML documents, each a mapping.
func YAML(r io.Reader) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		dec := yaml.NewDecoder(r)
		for n := 0; ; n++ {
			var rec Record
			if err := dec.Decode(&rec); err != nil {
				if err == io.EOF {
					return
				}
				yield(nil, errors.Wrapf(err, "yaml: document %d", n))
				return
			}
			if rec == nil {
				continue
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}
