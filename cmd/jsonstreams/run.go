package main

import (
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"

	"github.com/dcbaker/jsonstreams"
	"github.com/dcbaker/jsonstreams/encoders/gojson"
	"github.com/dcbaker/jsonstreams/encoders/jsoniter"
	"github.com/dcbaker/jsonstreams/internal/config"
	"github.com/dcbaker/jsonstreams/internal/records"
	"github.com/dcbaker/jsonstreams/sinks/compress"
	natssink "github.com/dcbaker/jsonstreams/sinks/nats"
)

var encoders = map[string]jsonstreams.EncoderFactory{
	"json":     jsonstreams.NewJSONEncoder,
	"jsoniter": jsoniter.Factory,
	"gojson":   gojson.Factory,
}

// run streams the configured input into the configured output.
func run(cfg config.Config, stdin io.Reader, stdout io.Writer, logger log.Logger) error {
	kind, err := cfg.Kind()
	if err != nil {
		return err
	}

	in, err := openInput(cfg.Input.Path, stdin)
	if err != nil {
		return err
	}
	defer in.Close()

	recs, err := records.Read(in, cfg.Input.Format)
	if err != nil {
		return err
	}

	out, err := openOutput(cfg, stdout, logger)
	if err != nil {
		return err
	}

	doc := &countingWriter{w: out}
	s, err := jsonstreams.NewStream(doc, kind,
		jsonstreams.WithIndent(cfg.Output.Indent),
		jsonstreams.WithPretty(cfg.Output.Pretty),
		jsonstreams.WithEncoder(encoders[cfg.Output.Encoder]),
		jsonstreams.WithBufferSize(cfg.Output.BufferSize),
		jsonstreams.WithLogger(logger),
		jsonstreams.WithCloseSink(true),
	)
	if err != nil {
		out.abort(err)
		return err
	}

	src := records.NewSource(recs)
	if kind == jsonstreams.KindObject {
		root, _ := s.Object()
		err = root.IterWrite(src.Pairs(cfg.Output.KeyField))
	} else {
		root, _ := s.Array()
		err = root.IterWrite(src.Values())
	}
	if err == nil {
		err = src.Err()
	}
	if err != nil {
		err = errors.Wrapf(err, "record %d", src.Count())
		if out.abortable {
			out.abort(err)
			return err
		}
		// leave a well formed, truncated document behind
		if cerr := s.Close(); cerr != nil {
			level.Warn(logger).Log("msg", "failed to close truncated document", "output", out.name, "err", cerr)
		}
		return err
	}

	if err := s.Close(); err != nil {
		return err
	}

	level.Info(logger).Log(
		"msg", "document written",
		"records", src.Count(),
		"size", humanize.Bytes(doc.n),
		"written", humanize.Bytes(out.written.n),
		"output", out.name,
	)
	return nil
}

func openInput(path string, stdin io.Reader) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open input")
	}
	return f, nil
}

// output is the writer chain below the stream: an optional compressor on
// top of a counted file, stdout or NATS sink.
type output struct {
	io.Writer
	name      string
	written   *countingWriter
	flushers  []jsonstreams.Flusher
	closers   []io.Closer
	abortable bool
	onAbort   func(error)
}

func openOutput(cfg config.Config, stdout io.Writer, logger log.Logger) (*output, error) {
	out := &output{}

	var base io.Writer
	switch {
	case cfg.NATSEnabled():
		conn, err := nats.Connect(cfg.NATS.URL, nats.Name("jsonstreams"))
		if err != nil {
			return nil, errors.Wrap(err, "connect to nats")
		}
		sink, err := natssink.NewSink(conn, cfg.NATS.Service, cfg.NATS.Document, cfg.NATS.Source)
		if err != nil {
			conn.Close()
			return nil, err
		}
		base = sink
		out.name = "nats:" + cfg.NATS.Service + "/" + cfg.NATS.Document
		out.closers = append(out.closers, sink, closerFunc(func() error {
			defer conn.Close()
			return conn.Flush()
		}))
		out.abortable = true
		out.onAbort = func(cause error) {
			if err := sink.Abort(cause); err != nil {
				level.Warn(logger).Log("msg", "failed to abort nats document", "err", err)
			}
			conn.Close()
		}
	case cfg.Output.Path == "" || cfg.Output.Path == "-":
		base = stdout
		out.name = "stdout"
	default:
		f, err := os.Create(cfg.Output.Path)
		if err != nil {
			return nil, errors.Wrap(err, "create output")
		}
		base = f
		out.name = cfg.Output.Path
		out.closers = append(out.closers, f)
	}

	out.written = &countingWriter{w: base}
	out.Writer = out.written

	algorithm, err := cfg.Compression()
	if err != nil {
		out.abort(err)
		return nil, err
	}
	if algorithm != compress.None {
		cs, err := compress.New(out.written, algorithm, cfg.Output.CompressLevel)
		if err != nil {
			out.abort(err)
			return nil, err
		}
		out.Writer = cs
		out.flushers = append(out.flushers, cs)
		out.closers = append([]io.Closer{cs}, out.closers...)
		level.Debug(logger).Log("msg", "compressing output", "algorithm", algorithm)
	}
	if f, ok := base.(jsonstreams.Flusher); ok {
		out.flushers = append(out.flushers, f)
	}
	return out, nil
}

func (o *output) Flush() error {
	for _, f := range o.flushers {
		if err := f.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the chain top down and returns the first error.
func (o *output) Close() error {
	var first error
	for _, c := range o.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// abort releases the output without completing it.
func (o *output) abort(cause error) {
	if o.onAbort != nil {
		o.onAbort(cause)
		return
	}
	o.Close()
}

type closerFunc func() error

func (f closerFunc) Close() error {
	return f()
}

type countingWriter struct {
	w io.Writer
	n uint64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += uint64(n)
	return n, err
}

func (c *countingWriter) Flush() error {
	if f, ok := c.w.(jsonstreams.Flusher); ok {
		return f.Flush()
	}
	return nil
}

func (c *countingWriter) Close() error {
	if cl, ok := c.w.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}
