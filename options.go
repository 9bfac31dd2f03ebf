package jsonstreams

import (
	"github.com/go-kit/log"
	"github.com/pkg/errors"
)

// DefaultBufferSize is the size of the buffer placed in front of the sink.
const DefaultBufferSize = 1024 * 32

type options struct {
	indent     int
	pretty     bool
	encoder    EncoderFactory
	itemSep    string
	keySep     string
	separators bool
	closeSink  bool
	bufferSize int
	logger     log.Logger
}

// Option configures a Stream.
type Option func(*options) error

// WithIndent sets the number of spaces per nesting level. Zero produces
// compact output.
func WithIndent(indent int) Option {
	return func(o *options) error {
		if indent < 0 {
			return errors.Wrapf(ErrInvalidOption, "indent must not be negative, got %d", indent)
		}
		o.indent = indent
		return nil
	}
}

// WithPretty forces compound values passed to Write to be rendered across
// multiple lines at the indent of the surrounding stream. Each such value is
// fully rendered in memory before it is written, so very large values
// written in pretty mode cost memory proportional to their size.
func WithPretty(pretty bool) Option {
	return func(o *options) error {
		o.pretty = pretty
		return nil
	}
}

// WithEncoder replaces the default encoding/json based encoder.
func WithEncoder(factory EncoderFactory) Option {
	return func(o *options) error {
		if factory == nil {
			return errors.Wrap(ErrInvalidOption, "encoder factory is nil")
		}
		o.encoder = factory
		return nil
	}
}

// WithSeparators overrides the item and key separators. The defaults are ","
// and ":" in compact mode and "," and ": " when indenting.
func WithSeparators(item, key string) Option {
	return func(o *options) error {
		o.itemSep = item
		o.keySep = key
		o.separators = true
		return nil
	}
}

// WithCloseSink makes Stream.Close close the writer passed to NewStream when
// it implements io.Closer. Streams opened with Create always close their file.
func WithCloseSink(closeSink bool) Option {
	return func(o *options) error {
		o.closeSink = closeSink
		return nil
	}
}

// WithBufferSize sets the size of the write buffer in front of the sink.
func WithBufferSize(size int) Option {
	return func(o *options) error {
		if size <= 0 {
			return errors.Wrapf(ErrInvalidOption, "buffer size must be positive, got %d", size)
		}
		o.bufferSize = size
		return nil
	}
}

// WithLogger sets the logger used for debug output about containers being
// opened and closed.
func WithLogger(logger log.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			logger = log.NewNopLogger()
		}
		o.logger = logger
		return nil
	}
}

func newOptions(opts []Option) (*options, error) {
	o := &options{
		encoder:    NewJSONEncoder,
		bufferSize: DefaultBufferSize,
		logger:     log.NewNopLogger(),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if !o.separators {
		o.itemSep, o.keySep = ",", ":"
		if o.indent > 0 {
			o.keySep = ": "
		}
	}
	return o, nil
}

// encoderIndent is the indent handed to the encoder factory: opaque values
// are only split across lines in pretty mode.
func (o *options) encoderIndent() int {
	if o.pretty {
		return o.indent
	}
	return 0
}
