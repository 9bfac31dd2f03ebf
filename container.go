package jsonstreams

import (
	"reflect"
	"strings"

	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

// Kind is the type of a JSON container.
type Kind int

const (
	// KindArray is a JSON array; entries are bare values.
	KindArray Kind = iota
	// KindObject is a JSON object; entries are key/value pairs.
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// ParseKind parses "array" or "object".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "array":
		return KindArray, nil
	case "object":
		return KindObject, nil
	}
	return 0, errors.Wrapf(ErrInvalidType, "unknown container kind %q", s)
}

func (k Kind) brackets() (open, close byte) {
	if k == KindObject {
		return '{', '}'
	}
	return '[', ']'
}

// Container is the behaviour shared by Array and Object.
type Container interface {
	Kind() Kind
	Depth() int
	Closed() bool
	Close() error
}

// frame is the per-container state kept on the stream's stack. The stack
// index of a frame is the depth of its container.
type frame struct {
	kind         Kind
	serial       uint64
	wroteEntry   bool
	hasOpenChild bool
	handle       Container
}

// container is the state machine shared by Array and Object. It does not own
// its state: it refers to its frame on the stream stack by depth and serial,
// so a handle whose frame was popped (or replaced by a later sibling) is
// closed for good.
type container struct {
	s      *Stream
	kind   Kind
	depth  int
	serial uint64
}

// Kind returns the container type.
func (c *container) Kind() Kind {
	return c.kind
}

// Depth returns the nesting level of the container, 0 for the root.
func (c *container) Depth() int {
	return c.depth
}

// Closed reports whether Close has completed on the container.
func (c *container) Closed() bool {
	return !c.live()
}

func (c *container) live() bool {
	return c.depth < len(c.s.frames) && c.s.frames[c.depth].serial == c.serial
}

// writable returns the frame of c if c is the topmost open container.
func (c *container) writable(op string) (*frame, error) {
	if !c.live() {
		return nil, opError(op, c.kind, c.depth, ErrStreamClosed)
	}
	f := &c.s.frames[c.depth]
	if f.hasOpenChild {
		return nil, opError(op, c.kind, c.depth, ErrModifyWrongStream)
	}
	if c.s.err != nil {
		return nil, c.s.err
	}
	return f, nil
}

// entry validates an entry, renders its key and emits the separator,
// indentation and key. Nothing is written when an error is returned.
func (c *container) entry(op string, key any, hasKey bool, encodeValue func() ([]byte, error)) (*frame, []byte, error) {
	f, err := c.writable(op)
	if err != nil {
		return nil, nil, err
	}

	var k []byte
	if hasKey {
		text, err := textKey(key)
		if err != nil {
			return nil, nil, opError(op, c.kind, c.depth, err)
		}
		if k, err = c.s.enc.Encode(text, c.depth+1); err != nil {
			return nil, nil, errors.Wrap(err, "jsonstreams: encode key")
		}
	}

	var value []byte
	if encodeValue != nil {
		if value, err = encodeValue(); err != nil {
			return nil, nil, err
		}
	}

	if f.wroteEntry {
		c.s.writeString(c.s.opts.itemSep)
	}
	if c.s.opts.indent > 0 {
		c.s.writeByte('\n')
		c.s.writeIndent(c.depth + 1)
	}
	f.wroteEntry = true

	if hasKey {
		c.s.write(k)
		c.s.writeString(c.s.opts.keySep)
	}
	return f, value, nil
}

func (c *container) write(op string, key any, hasKey bool, v any) error {
	_, b, err := c.entry(op, key, hasKey, func() ([]byte, error) {
		b, err := c.s.enc.Encode(v, c.depth+1)
		if err != nil {
			return nil, errors.Wrapf(err, "jsonstreams: encode %T", v)
		}
		return b, nil
	})
	if err != nil {
		return err
	}
	c.s.write(b)
	return c.s.err
}

func (c *container) open(op string, key any, hasKey bool, kind Kind) (*container, error) {
	f, _, err := c.entry(op, key, hasKey, nil)
	if err != nil {
		return nil, err
	}
	f.hasOpenChild = true
	child := c.s.push(kind)
	if c.s.err != nil {
		return nil, c.s.err
	}
	return child, nil
}

// Close writes the closing bracket and hands writes back to the parent
// container. It fails if a child is still open or if the container is
// already closed.
func (c *container) Close() error {
	f, err := c.writable("close")
	if err != nil {
		return err
	}
	if f.wroteEntry && c.s.opts.indent > 0 {
		c.s.writeByte('\n')
		c.s.writeIndent(c.depth)
	}
	_, closeBracket := c.kind.brackets()
	c.s.writeByte(closeBracket)
	c.s.pop()
	return c.s.err
}

func textKey(key any) (string, error) {
	switch k := key.(type) {
	case string:
		return k, nil
	case nil:
		return "", invalidKey(key)
	}
	if rv := reflect.ValueOf(key); rv.Kind() == reflect.String {
		return rv.String(), nil
	}
	return "", invalidKey(key)
}

// push opens a new container on top of the stack and writes its opening
// bracket.
func (s *Stream) push(kind Kind) *container {
	s.serial++
	c := &container{s: s, kind: kind, depth: len(s.frames), serial: s.serial}
	s.frames = append(s.frames, frame{kind: kind, serial: s.serial})
	openBracket, _ := kind.brackets()
	s.writeByte(openBracket)
	level.Debug(s.opts.logger).Log("msg", "opened container", "kind", kind, "depth", c.depth)
	return c
}

func (s *Stream) pop() {
	depth := len(s.frames) - 1
	kind := s.frames[depth].kind
	s.frames[depth] = frame{}
	s.frames = s.frames[:depth]
	if depth > 0 {
		s.frames[depth-1].hasOpenChild = false
	}
	level.Debug(s.opts.logger).Log("msg", "closed container", "kind", kind, "depth", depth)
}
