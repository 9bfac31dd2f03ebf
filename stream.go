// Package jsonstreams writes JSON documents incrementally.
//
// A Stream emits well-formed JSON straight to an io.Writer as the caller
// makes sequential writes, without building the document in memory first.
// This is useful for exporting data sets too large to hold at once, or
// values produced by a generator.
//
//	s, err := jsonstreams.Create("out.json", jsonstreams.KindObject, jsonstreams.WithIndent(2))
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//
//	root, _ := s.Object()
//	root.Write("foo", 1)
//	root.WithSubArray("bar", func(a *jsonstreams.Array) error {
//		return jsonstreams.WriteAll(a, slices.Values([]int{1, 2, 3}))
//	})
//
// Containers nest like the document: opening a sub-array or sub-object blocks
// the parent until the child is closed, and only the innermost open
// container accepts writes.
package jsonstreams

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Stream owns the sink, the encoder and the stack of open containers of a
// single JSON document. A Stream must not be used from several goroutines at
// once.
type Stream struct {
	w      *bufio.Writer
	sink   io.Writer
	closer io.Closer
	enc    Encoder
	opts   *options
	kind   Kind
	root   Container
	frames []frame
	serial uint64
	spaces string
	err    error
	closed bool
}

// NewStream starts a document whose root container is of the given kind.
// The opening bracket is written immediately. w is closed by Close only when
// WithCloseSink(true) is set.
func NewStream(w io.Writer, kind Kind, opts ...Option) (*Stream, error) {
	if kind != KindArray && kind != KindObject {
		return nil, errors.Wrapf(ErrInvalidType, "unknown container kind %d", kind)
	}
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}

	s := &Stream{
		w:    bufio.NewWriterSize(w, o.bufferSize),
		sink: w,
		enc:  o.encoder(o.encoderIndent()),
		opts: o,
		kind: kind,
	}
	if c, ok := w.(io.Closer); ok && o.closeSink {
		s.closer = c
	}

	c := s.push(kind)
	if kind == KindObject {
		s.root = s.adoptObject(c)
	} else {
		s.root = s.adoptArray(c)
	}
	return s, nil
}

// Create opens filename, truncating it, and starts a document in it. The
// file is closed by Close.
func Create(filename string, kind Kind, opts ...Option) (*Stream, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "jsonstreams: create %s", filename)
	}
	s, err := NewStream(f, kind, opts...)
	if err != nil {
		f.Close()
		return nil, err
	}
	s.closer = f
	return s, nil
}

// Root returns the root container.
func (s *Stream) Root() Container {
	return s.root
}

// Array returns the root container of an array document.
func (s *Stream) Array() (*Array, error) {
	a, ok := s.root.(*Array)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidType, "root container is an %s", s.kind)
	}
	return a, nil
}

// Object returns the root container of an object document.
func (s *Stream) Object() (*Object, error) {
	o, ok := s.root.(*Object)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidType, "root container is an %s", s.kind)
	}
	return o, nil
}

// Top returns the innermost open container, the only one that accepts
// writes, or nil once the root is closed.
func (s *Stream) Top() Container {
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1].handle
}

// Write forwards to the topmost container: args is a single value for an
// array and a key followed by a value for an object.
func (s *Stream) Write(args ...any) error {
	switch top := s.Top().(type) {
	case *Array:
		if len(args) != 1 {
			return errors.Wrapf(ErrInvalidType, "array write takes 1 argument, got %d", len(args))
		}
		return top.Write(args[0])
	case *Object:
		if len(args) != 2 {
			return errors.Wrapf(ErrInvalidType, "object write takes 2 arguments, got %d", len(args))
		}
		return top.Write(args[0], args[1])
	}
	return opError("write", s.kind, 0, ErrStreamClosed)
}

// SubObject opens an object in the topmost container. key must be omitted
// for an array and given for an object.
func (s *Stream) SubObject(key ...any) (*Object, error) {
	switch top := s.Top().(type) {
	case *Array:
		if len(key) != 0 {
			return nil, errors.Wrap(ErrInvalidType, "array entries take no key")
		}
		return top.SubObject()
	case *Object:
		if len(key) != 1 {
			return nil, errors.Wrapf(ErrInvalidType, "object entries take 1 key, got %d", len(key))
		}
		return top.SubObject(key[0])
	}
	return nil, opError("subobject", s.kind, 0, ErrStreamClosed)
}

// SubArray opens an array in the topmost container. key must be omitted for
// an array and given for an object.
func (s *Stream) SubArray(key ...any) (*Array, error) {
	switch top := s.Top().(type) {
	case *Array:
		if len(key) != 0 {
			return nil, errors.Wrap(ErrInvalidType, "array entries take no key")
		}
		return top.SubArray()
	case *Object:
		if len(key) != 1 {
			return nil, errors.Wrapf(ErrInvalidType, "object entries take 1 key, got %d", len(key))
		}
		return top.SubArray(key[0])
	}
	return nil, opError("subarray", s.kind, 0, ErrStreamClosed)
}

// Flush writes buffered output to the sink, and flushes the sink itself if
// it implements Flusher.
func (s *Stream) Flush() error {
	if s.closed {
		return opError("flush", s.kind, 0, ErrStreamClosed)
	}
	return s.flush()
}

// Close closes the root container if it is still open, flushes all output
// and closes the sink when the stream owns it. Descendants of the root are
// not closed for the caller: if one is still open Close fails with
// ErrModifyWrongStream and leaves the sink open. Once a write to the sink
// has failed, Close skips the containers, closes an owned sink and returns
// the write error.
func (s *Stream) Close() error {
	if s.closed {
		return opError("close", s.kind, 0, ErrStreamClosed)
	}
	// after a sink failure no bracket can be written; release the sink.
	if s.err != nil {
		s.closed = true
		if s.closer != nil {
			s.closer.Close()
		}
		return s.err
	}
	var err error
	if !s.root.Closed() {
		err = s.root.Close()
		if errors.Is(err, ErrModifyWrongStream) {
			return err
		}
	}
	s.closed = true

	if ferr := s.flush(); err == nil {
		err = ferr
	}
	if s.closer != nil {
		if cerr := s.closer.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "jsonstreams: close sink")
		}
	}
	return err
}

func (s *Stream) flush() error {
	if s.err != nil {
		return s.err
	}
	if err := s.w.Flush(); err != nil {
		s.err = errors.Wrap(err, "jsonstreams: flush")
		return s.err
	}
	if f, ok := s.sink.(Flusher); ok {
		if err := f.Flush(); err != nil {
			s.err = errors.Wrap(err, "jsonstreams: flush sink")
			return s.err
		}
	}
	return nil
}

func (s *Stream) adoptArray(c *container) *Array {
	a := &Array{c}
	s.frames[c.depth].handle = a
	return a
}

func (s *Stream) adoptObject(c *container) *Object {
	o := &Object{c}
	s.frames[c.depth].handle = o
	return o
}

func (s *Stream) write(p []byte) {
	if s.err != nil {
		return
	}
	if _, err := s.w.Write(p); err != nil {
		s.err = errors.Wrap(err, "jsonstreams: write")
	}
}

func (s *Stream) writeString(str string) {
	if s.err != nil {
		return
	}
	if _, err := s.w.WriteString(str); err != nil {
		s.err = errors.Wrap(err, "jsonstreams: write")
	}
}

func (s *Stream) writeByte(b byte) {
	if s.err != nil {
		return
	}
	if err := s.w.WriteByte(b); err != nil {
		s.err = errors.Wrap(err, "jsonstreams: write")
	}
}

func (s *Stream) writeIndent(depth int) {
	n := s.opts.indent * depth
	if n > len(s.spaces) {
		s.spaces = strings.Repeat(" ", 2*n)
	}
	s.writeString(s.spaces[:n])
}
