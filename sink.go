package jsonstreams

// Flusher is implemented by sinks that buffer internally, such as the
// compressing and NATS sinks. Stream.Flush and Stream.Close call Flush after
// emptying the stream's own buffer.
type Flusher interface {
	Flush() error
}
