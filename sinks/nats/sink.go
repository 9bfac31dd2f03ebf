// Package nats streams JSON documents over NATS.
//
// A document is sent as an ordered sequence of msgpack framed chunks: the
// sink first announces the document on the receiving service's subject and
// waits for an acknowledgement naming a private data subject, then publishes
// the document bytes to that subject in chunks of at most ChunkSize bytes.
// The last chunk carries an EOF marker. The receiving side reassembles the
// chunks into an io.Reader, so neither end holds the whole document in
// memory.
package nats

import (
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// SendTimeout is the maximum time to wait for the receiver to acknowledge a
// new document.
const SendTimeout = 5 * time.Second

// ChunkSize is the size of each chunk published on the data subject.
const ChunkSize = 1024 * 16

// ErrSinkClosed is returned when writing to a sink after Close or Abort.
var ErrSinkClosed = errors.New("nats: sink closed")

// Conn is the subset of *nats.Conn used by Sink.
type Conn interface {
	Request(subj string, data []byte, timeout time.Duration) (*nats.Msg, error)
	Publish(subj string, data []byte) error
}

var _ Conn = &nats.Conn{}

// Announce is the message sent to the receiving service to open a document.
type Announce struct {
	Source   string `msgpack:"source"`
	Document string `msgpack:"document"`
}

// AnnounceAck is the receiver's reply, naming the subject chunks go to.
type AnnounceAck struct {
	DataSubject string `msgpack:"dataSubject"`
}

// Chunk is a piece of the document with its position in the sequence.
type Chunk struct {
	Index int    `msgpack:"index"`
	Data  []byte `msgpack:"data,omitempty"`
	Error string `msgpack:"error,omitempty"`
	IsEOF bool   `msgpack:"isEof,omitempty"`
}

// Sink is an io.WriteCloser publishing everything written to it as a chunked
// document. It implements jsonstreams.Flusher: Flush publishes the partial
// chunk buffered so far.
type Sink struct {
	conn        Conn
	dataSubject string
	index       int
	buf         []byte
	closed      bool
}

// NewSink announces a document named document to the service and returns a
// sink writing to it. source identifies the sender to the receiver.
func NewSink(conn Conn, service, document, source string) (*Sink, error) {
	announceBuf, err := msgpack.Marshal(&Announce{Source: source, Document: document})
	if err != nil {
		return nil, errors.Wrap(err, "nats: encode announce")
	}

	ackMsg, err := conn.Request(namespace(service), announceBuf, SendTimeout)
	if err != nil {
		return nil, errors.Wrapf(err, "nats: announce document %q to %q", document, service)
	}

	var ack AnnounceAck
	if err := msgpack.Unmarshal(ackMsg.Data, &ack); err != nil {
		return nil, errors.Wrap(err, "nats: decode announce ack")
	}
	if ack.DataSubject == "" {
		return nil, errors.New("nats: announce ack has no data subject")
	}

	return &Sink{
		conn:        conn,
		dataSubject: ack.DataSubject,
		buf:         make([]byte, 0, ChunkSize),
	}, nil
}

// Write buffers p and publishes every full chunk.
func (s *Sink) Write(p []byte) (int, error) {
	if s.closed {
		return 0, ErrSinkClosed
	}
	n := 0
	for len(p) > 0 {
		m := copy(s.buf[len(s.buf):cap(s.buf)], p)
		s.buf = s.buf[:len(s.buf)+m]
		p = p[m:]
		n += m
		if len(s.buf) == cap(s.buf) {
			if err := s.publish(&Chunk{Data: s.buf}); err != nil {
				return n, err
			}
		}
	}
	return n, nil
}

// Flush publishes the buffered partial chunk, if any.
func (s *Sink) Flush() error {
	if s.closed {
		return ErrSinkClosed
	}
	if len(s.buf) == 0 {
		return nil
	}
	return s.publish(&Chunk{Data: s.buf})
}

// Close publishes the remaining bytes with the EOF marker.
func (s *Sink) Close() error {
	if s.closed {
		return ErrSinkClosed
	}
	err := s.publish(&Chunk{Data: s.buf, IsEOF: true})
	s.closed = true
	return err
}

// Abort ends the document with an error; the receiver's reader returns it
// instead of io.EOF.
func (s *Sink) Abort(cause error) error {
	if s.closed {
		return ErrSinkClosed
	}
	err := s.publish(&Chunk{Error: cause.Error()})
	s.closed = true
	return err
}

func (s *Sink) publish(chunk *Chunk) error {
	chunk.Index = s.index
	chunkBuf, err := msgpack.Marshal(chunk)
	if err != nil {
		return errors.Wrap(err, "nats: encode chunk")
	}
	if err := s.conn.Publish(s.dataSubject, chunkBuf); err != nil {
		return errors.Wrapf(err, "nats: publish chunk %d", s.index)
	}
	s.index++
	s.buf = s.buf[:0]
	return nil
}
