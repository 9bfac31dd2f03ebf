package jsonstreams

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStream(t *testing.T, kind Kind, opts ...Option) (*Stream, *bytes.Buffer) {
	t.Helper()
	b := new(bytes.Buffer)
	s, err := NewStream(b, kind, opts...)
	require.NoError(t, err)
	return s, b
}

func TestStreamBasic(t *testing.T) {
	s, b := newTestStream(t, KindObject)
	require.NoError(t, s.Write("foo", "bar"))
	require.NoError(t, s.Close())
	assert.Equal(t, `{"foo":"bar"}`, b.String())
}

func TestStreamOpenWritesBracketOnFlush(t *testing.T) {
	s, b := newTestStream(t, KindArray)
	assert.Equal(t, "", b.String())
	require.NoError(t, s.Flush())
	assert.Equal(t, "[", b.String())
}

func TestStreamArrayEndToEnd(t *testing.T) {
	s, b := newTestStream(t, KindArray)
	root, err := s.Array()
	require.NoError(t, err)

	require.NoError(t, root.Write("foo"))
	require.NoError(t, root.Write("bar"))
	o, err := root.SubObject()
	require.NoError(t, err)
	require.NoError(t, o.Write("x", 1))
	require.NoError(t, o.Close())
	require.NoError(t, root.Write("oink"))
	require.NoError(t, s.Close())

	assert.Equal(t, `["foo","bar",{"x":1},"oink"]`, b.String())
}

func TestStreamObjectEndToEnd(t *testing.T) {
	s, b := newTestStream(t, KindObject)
	root, err := s.Object()
	require.NoError(t, err)

	require.NoError(t, root.Write("foo", 1))
	err = root.WithSubObject("bar", func(o *Object) error {
		return o.IterWrite(func(yield func(any, any) bool) {
			for _, p := range []struct {
				k string
				v int
			}{{"0", 0}, {"1", 1}} {
				if !yield(p.k, p.v) {
					return
				}
			}
		})
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	assert.Equal(t, `{"foo":1,"bar":{"0":0,"1":1}}`, b.String())
}

func TestStreamNestedContainers(t *testing.T) {
	s, b := newTestStream(t, KindObject)
	a, err := s.SubArray("foo")
	require.NoError(t, err)
	inner, err := a.SubArray()
	require.NoError(t, err)
	c, err := inner.SubObject()
	require.NoError(t, err)
	d, err := c.SubObject("bar")
	require.NoError(t, err)

	assert.Equal(t, 4, d.Depth())
	assert.Same(t, Container(d), s.Top())

	for _, cont := range []Container{d, c, inner, a} {
		require.NoError(t, cont.Close())
	}
	require.NoError(t, s.Close())
	assert.Equal(t, `{"foo":[[{"bar":{}}]]}`, b.String())
	assert.Nil(t, s.Top())
}

func TestStreamValidJSON(t *testing.T) {
	for _, indent := range []int{0, 2, 4} {
		s, b := newTestStream(t, KindArray, WithIndent(indent), WithPretty(indent == 4))
		root, _ := s.Array()
		require.NoError(t, WriteAll(root, slices.Values([]int{1, 2, 3})))
		require.NoError(t, root.WithSubObject(func(o *Object) error {
			require.NoError(t, o.Write("list", []string{"a", "b"}))
			return o.WithSubArray("empty", func(*Array) error { return nil })
		}))
		require.NoError(t, s.Close())

		var out []any
		require.NoError(t, json.Unmarshal(b.Bytes(), &out), b.String())
		assert.Len(t, out, 4)
	}
}

func TestStreamFacadeWrite(t *testing.T) {
	s, b := newTestStream(t, KindArray)
	require.NoError(t, s.Write(1))
	assert.ErrorIs(t, s.Write(), ErrInvalidType)
	assert.ErrorIs(t, s.Write("k", "v"), ErrInvalidType)

	_, err := s.SubObject("key")
	assert.ErrorIs(t, err, ErrInvalidType)

	o, err := s.SubObject()
	require.NoError(t, err)
	assert.Same(t, Container(o), s.Top())
	require.NoError(t, s.Write("k", "v"))
	assert.ErrorIs(t, s.Write("v"), ErrInvalidType)
	_, err = s.SubArray()
	assert.ErrorIs(t, err, ErrInvalidType)
	require.NoError(t, o.Close())

	require.NoError(t, s.Close())
	assert.Equal(t, `[1,{"k":"v"}]`, b.String())
	assert.ErrorIs(t, s.Write(2), ErrStreamClosed)
}

func TestStreamRootKindAccessors(t *testing.T) {
	s, _ := newTestStream(t, KindArray)
	_, err := s.Object()
	assert.ErrorIs(t, err, ErrInvalidType)
	a, err := s.Array()
	require.NoError(t, err)
	assert.Same(t, s.Root(), Container(a))
	assert.Equal(t, KindArray, a.Kind())
}

func TestStreamCloseTwice(t *testing.T) {
	s, _ := newTestStream(t, KindArray)
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Close(), ErrStreamClosed)
	assert.ErrorIs(t, s.Flush(), ErrStreamClosed)
}

func TestStreamCloseAfterRootClosed(t *testing.T) {
	s, b := newTestStream(t, KindObject)
	require.NoError(t, s.Root().Close())
	require.NoError(t, s.Close())
	assert.Equal(t, "{}", b.String())
}

func TestStreamCloseWithOpenChild(t *testing.T) {
	c := &closeRecorder{}
	s, err := NewStream(c, KindArray, WithCloseSink(true))
	require.NoError(t, err)

	child, err := s.SubArray()
	require.NoError(t, err)

	assert.ErrorIs(t, s.Close(), ErrModifyWrongStream)
	assert.False(t, c.closed)

	require.NoError(t, child.Close())
	require.NoError(t, s.Close())
	assert.True(t, c.closed)
	assert.Equal(t, "[[]]", c.String())
}

func TestStreamDoesNotCloseSinkByDefault(t *testing.T) {
	c := &closeRecorder{}
	s, err := NewStream(c, KindArray)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.False(t, c.closed)
	assert.Equal(t, "[]", c.String())
}

func TestStreamFlushesSink(t *testing.T) {
	c := &closeRecorder{}
	s, err := NewStream(c, KindArray)
	require.NoError(t, err)
	require.NoError(t, s.Flush())
	assert.Equal(t, 1, c.flushes)
	require.NoError(t, s.Close())
	assert.Equal(t, 2, c.flushes)
}

func TestCreate(t *testing.T) {
	name := filepath.Join(t.TempDir(), "foo")
	s, err := Create(name, KindObject, WithIndent(4))
	require.NoError(t, err)
	o, err := s.Object()
	require.NoError(t, err)
	require.NoError(t, o.Write("foo", "bar"))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Equal(t, "{\n    \"foo\": \"bar\"\n}", string(data))
}

func TestCreateInvalidPath(t *testing.T) {
	_, err := Create(filepath.Join(t.TempDir(), "missing", "foo"), KindArray)
	assert.Error(t, err)
}

func TestNewStreamInvalidOptions(t *testing.T) {
	_, err := NewStream(io.Discard, KindArray, WithIndent(-1))
	assert.ErrorIs(t, err, ErrInvalidOption)

	_, err = NewStream(io.Discard, KindArray, WithBufferSize(0))
	assert.ErrorIs(t, err, ErrInvalidOption)

	_, err = NewStream(io.Discard, KindArray, WithEncoder(nil))
	assert.ErrorIs(t, err, ErrInvalidOption)

	_, err = NewStream(io.Discard, Kind(7))
	assert.ErrorIs(t, err, ErrInvalidType)
}

func TestStreamSinkErrorIsSticky(t *testing.T) {
	s, err := NewStream(failingWriter{}, KindArray, WithBufferSize(16))
	require.NoError(t, err)
	root, _ := s.Array()

	err = root.Write(string(make([]byte, 64)))
	assert.ErrorIs(t, err, io.ErrClosedPipe)
	assert.ErrorIs(t, root.Write(1), io.ErrClosedPipe)
	assert.ErrorIs(t, s.Close(), io.ErrClosedPipe)
}

func TestStreamSinkErrorWithOpenChildClosesSink(t *testing.T) {
	sink := &failingCloser{}
	s, err := NewStream(sink, KindArray, WithBufferSize(16), WithCloseSink(true))
	require.NoError(t, err)
	root, _ := s.Array()

	child, err := root.SubArray()
	require.NoError(t, err)
	assert.ErrorIs(t, child.Write(string(make([]byte, 64))), io.ErrClosedPipe)
	assert.ErrorIs(t, child.Close(), io.ErrClosedPipe)

	assert.ErrorIs(t, s.Close(), io.ErrClosedPipe)
	assert.True(t, sink.closed)
	assert.ErrorIs(t, s.Close(), ErrStreamClosed)
	assert.Equal(t, 1, sink.closes)
}

func TestStreamLogger(t *testing.T) {
	logs := new(bytes.Buffer)
	s, _ := newTestStream(t, KindArray, WithLogger(log.NewLogfmtLogger(logs)))
	require.NoError(t, s.Close())
	assert.Contains(t, logs.String(), `msg="opened container" kind=array depth=0`)
	assert.Contains(t, logs.String(), `msg="closed container" kind=array depth=0`)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("Object")
	require.NoError(t, err)
	assert.Equal(t, KindObject, k)
	k, err = ParseKind("array")
	require.NoError(t, err)
	assert.Equal(t, KindArray, k)
	_, err = ParseKind("map")
	assert.ErrorIs(t, err, ErrInvalidType)
}

type closeRecorder struct {
	bytes.Buffer
	closed  bool
	flushes int
}

func (c *closeRecorder) Flush() error {
	c.flushes++
	return nil
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

type failingCloser struct {
	failingWriter
	closed bool
	closes int
}

func (f *failingCloser) Close() error {
	f.closed = true
	f.closes++
	return nil
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, io.ErrClosedPipe
}
