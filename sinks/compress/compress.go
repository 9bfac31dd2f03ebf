// Package compress provides sinks that compress a JSON stream on the fly.
//
// Every sink implements jsonstreams.Flusher, so Stream.Flush pushes out a
// complete compressed block that a reader on the other end can decode
// without waiting for the end of the document.
package compress

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
)

// Algorithm names a compression format.
type Algorithm string

const (
	None   Algorithm = "none"
	Gzip   Algorithm = "gzip"
	Pgzip  Algorithm = "pgzip"
	Zstd   Algorithm = "zstd"
	LZ4    Algorithm = "lz4"
	Snappy Algorithm = "snappy"
	S2     Algorithm = "s2"
)

// ErrUnknownAlgorithm is returned for an algorithm name that is not supported.
var ErrUnknownAlgorithm = errors.New("compress: unknown algorithm")

var extensions = map[Algorithm]string{
	Gzip:   ".gz",
	Pgzip:  ".gz",
	Zstd:   ".zst",
	LZ4:    ".lz4",
	Snappy: ".sz",
	S2:     ".s2",
}

// Algorithms lists the supported algorithm names.
func Algorithms() []string {
	return []string{string(None), string(Gzip), string(Pgzip), string(Zstd), string(LZ4), string(Snappy), string(S2)}
}

// Parse returns the algorithm called name. The empty string is None.
func Parse(name string) (Algorithm, error) {
	a := Algorithm(strings.ToLower(name))
	if a == "" {
		return None, nil
	}
	if _, ok := extensions[a]; ok || a == None {
		return a, nil
	}
	return "", errors.Wrapf(ErrUnknownAlgorithm, "%q", name)
}

// FromFilename guesses the algorithm from a file extension, returning None
// for an unknown one. ".gz" maps to Gzip.
func FromFilename(name string) Algorithm {
	switch filepath.Ext(name) {
	case ".gz":
		return Gzip
	case ".zst":
		return Zstd
	case ".lz4":
		return LZ4
	case ".sz":
		return Snappy
	case ".s2":
		return S2
	}
	return None
}

// Extension returns the conventional file extension for a, including the
// leading dot, or "" for None.
func (a Algorithm) Extension() string {
	return extensions[a]
}

type writeFlushCloser interface {
	io.WriteCloser
	Flush() error
}

// Sink compresses everything written to it into an underlying writer.
type Sink struct {
	algorithm Algorithm
	w         writeFlushCloser
	out       io.Writer
	closer    io.Closer
}

// New returns a sink compressing into w. level is algorithm specific; 0
// selects the algorithm's default. Closing the sink finishes the compressed
// stream but does not close w.
func New(w io.Writer, algorithm Algorithm, level int) (*Sink, error) {
	cw, err := newWriter(w, algorithm, level)
	if err != nil {
		return nil, err
	}
	return &Sink{algorithm: algorithm, w: cw, out: w}, nil
}

// Create creates the file name and returns a sink compressing into it. The
// file is closed with the sink.
func Create(name string, algorithm Algorithm, level int) (*Sink, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, errors.Wrapf(err, "compress: create %s", name)
	}
	s, err := New(f, algorithm, level)
	if err != nil {
		f.Close()
		return nil, err
	}
	s.closer = f
	return s, nil
}

// Algorithm returns the algorithm the sink compresses with.
func (s *Sink) Algorithm() Algorithm {
	return s.algorithm
}

func (s *Sink) Write(p []byte) (int, error) {
	return s.w.Write(p)
}

// Flush compresses and writes out any pending data.
func (s *Sink) Flush() error {
	if err := s.w.Flush(); err != nil {
		return errors.Wrapf(err, "compress: flush %s", s.algorithm)
	}
	return nil
}

// Close finishes the compressed stream, and closes the file for sinks made
// by Create.
func (s *Sink) Close() error {
	err := s.w.Close()
	if err != nil {
		err = errors.Wrapf(err, "compress: close %s", s.algorithm)
	}
	if s.closer != nil {
		if cerr := s.closer.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "compress: close file")
		}
	}
	return err
}

func newWriter(w io.Writer, algorithm Algorithm, level int) (writeFlushCloser, error) {
	switch algorithm {
	case None, "":
		return nopWriter{w}, nil
	case Gzip:
		if level == 0 {
			level = gzip.DefaultCompression
		}
		return gzip.NewWriterLevel(w, level)
	case Pgzip:
		if level == 0 {
			level = pgzip.DefaultCompression
		}
		return pgzip.NewWriterLevel(w, level)
	case Zstd:
		opts := []zstd.EOption{}
		if level != 0 {
			opts = append(opts, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
		}
		return zstd.NewWriter(w, opts...)
	case LZ4:
		lw := lz4.NewWriter(w)
		if level != 0 {
			if level < 0 || level >= len(lz4Levels) {
				return nil, errors.Errorf("compress: lz4 level must be between 1 and %d, got %d", len(lz4Levels)-1, level)
			}
			if err := lw.Apply(lz4.CompressionLevelOption(lz4Levels[level])); err != nil {
				return nil, errors.Wrap(err, "compress: lz4 level")
			}
		}
		return lw, nil
	case Snappy:
		return snappy.NewBufferedWriter(w), nil
	case S2:
		return s2.NewWriter(w), nil
	}
	return nil, errors.Wrapf(ErrUnknownAlgorithm, "%q", algorithm)
}

var lz4Levels = []lz4.CompressionLevel{
	lz4.Fast, lz4.Level1, lz4.Level2, lz4.Level3, lz4.Level4,
	lz4.Level5, lz4.Level6, lz4.Level7, lz4.Level8, lz4.Level9,
}

// nopWriter passes writes through; it flushes w when w supports it.
type nopWriter struct {
	w io.Writer
}

func (n nopWriter) Write(p []byte) (int, error) {
	return n.w.Write(p)
}

func (n nopWriter) Flush() error {
	if f, ok := n.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

func (nopWriter) Close() error {
	return nil
}
