package nats

import (
	"io"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// ChunkTimeout is how long the receiver waits for the next chunk of a
// document before failing its reader.
var ChunkTimeout = 5 * time.Minute

// Handler is called once per announced document. r yields the document
// bytes as they arrive and returns io.EOF after the last chunk. The handler
// runs on the subscription's goroutine; it should hand r off and return if
// it cannot keep up with the sender.
type Handler func(document, source string, r io.Reader)

// Receiver accepts documents sent by Sinks.
type Receiver struct {
	conn *nats.Conn
	sub  *nats.Subscription
}

// Receive subscribes to documents sent to service. Every running receiver
// gets every document.
func Receive(conn *nats.Conn, service string, handler Handler) (*Receiver, error) {
	r := &Receiver{conn: conn}
	sub, err := conn.Subscribe(namespace(service), func(msg *nats.Msg) {
		r.accept(msg, handler)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "nats: subscribe to %q", service)
	}
	r.sub = sub
	return r, nil
}

// ReceiveQueue subscribes to documents sent to service; each document is
// delivered to only one of the receivers sharing the queue.
func ReceiveQueue(conn *nats.Conn, service string, handler Handler) (*Receiver, error) {
	r := &Receiver{conn: conn}
	subject := namespace(service)
	sub, err := conn.QueueSubscribe(subject, subject, func(msg *nats.Msg) {
		r.accept(msg, handler)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "nats: queue subscribe to %q", service)
	}
	r.sub = sub
	return r, nil
}

// Close stops accepting new documents. Documents already being received
// continue until their last chunk.
func (r *Receiver) Close() error {
	return r.sub.Unsubscribe()
}

func (r *Receiver) accept(msg *nats.Msg, handler Handler) {
	var announce Announce
	if err := msgpack.Unmarshal(msg.Data, &announce); err != nil {
		handler(announce.Document, announce.Source, &errReader{err: err})
		return
	}

	dataSubject := nats.NewInbox()

	ackBuf, err := msgpack.Marshal(&AnnounceAck{DataSubject: dataSubject})
	if err != nil {
		handler(announce.Document, announce.Source, &errReader{err: err})
		return
	}

	dataSub, err := r.conn.SubscribeSync(dataSubject)
	if err != nil {
		handler(announce.Document, announce.Source, &errReader{err: err})
		return
	}

	if err := msg.Respond(ackBuf); err != nil {
		dataSub.Unsubscribe()
		handler(announce.Document, announce.Source, &errReader{err: err})
		return
	}

	pr, pw := io.Pipe()
	go func() {
		defer dataSub.Unsubscribe()
		reassemble(func() ([]byte, error) {
			m, err := dataSub.NextMsg(ChunkTimeout)
			if err != nil {
				return nil, err
			}
			return m.Data, nil
		}, pw)
	}()

	handler(announce.Document, announce.Source, pr)
}

// reassemble writes the data of consecutive chunks returned by next into pw
// until the EOF chunk, and closes pw with the first error otherwise.
func reassemble(next func() ([]byte, error), pw *io.PipeWriter) {
	defer pw.Close()

	for index := 0; ; index++ {
		data, err := next()
		if err != nil {
			pw.CloseWithError(err)
			return
		}

		var chunk Chunk
		if err := msgpack.Unmarshal(data, &chunk); err != nil {
			pw.CloseWithError(errors.Wrap(err, "nats: decode chunk"))
			return
		}

		if chunk.Index != index {
			pw.CloseWithError(errors.Errorf("nats: expected chunk %d, got %d", index, chunk.Index))
			return
		}

		if chunk.Error != "" {
			pw.CloseWithError(errors.New(chunk.Error))
			return
		}

		if _, err := pw.Write(chunk.Data); err != nil {
			return
		}

		if chunk.IsEOF {
			return
		}
	}
}

type errReader struct {
	err error
}

func (r *errReader) Read(p []byte) (n int, err error) {
	return 0, r.err
}
