package reactlm

import (
	"sync"

	"github.com/rickchristie/reactlm/internal/buffer"
)

// Stream is a lazily produced sequence of envelopes from a model.
type Stream interface {
	// Chunks returns a channel that receives chunks as they are produced.
	// The channel is closed once the producer completes and all chunks are drained.
	Chunks() <-chan Envelope

	// Wait blocks until the producer completes and returns its terminal error.
	Wait() error
}

// StreamWriter is the producer side of a Stream.
//
// Send never blocks, even when no consumer is reading: chunks are queued in an
// unbounded buffer and drained to the Chunks channel in order.
type StreamWriter struct {
	buf *buffer.Unbounded[Envelope]

	once sync.Once
	done chan struct{}
	err  error
}

// NewStreamWriter creates a StreamWriter ready to accept chunks.
func NewStreamWriter() *StreamWriter {
	return &StreamWriter{
		buf:  buffer.NewUnbounded[Envelope](),
		done: make(chan struct{}),
	}
}

// Send queues a chunk. Chunks sent after Complete are dropped.
func (w *StreamWriter) Send(chunk Envelope) {
	w.buf.Send(chunk)
}

// Complete ends the stream with the given error (nil for success).
// Only the first call has an effect.
func (w *StreamWriter) Complete(err error) {
	w.once.Do(func() {
		w.err = err
		w.buf.Close()
		close(w.done)
	})
}

// Chunks implements Stream.
func (w *StreamWriter) Chunks() <-chan Envelope {
	return w.buf.Receive()
}

// Wait implements Stream.
func (w *StreamWriter) Wait() error {
	<-w.done
	return w.err
}

// Collect drains a stream and returns every chunk along with the terminal error.
func Collect(s Stream) ([]Envelope, error) {
	var chunks []Envelope
	for chunk := range s.Chunks() {
		chunks = append(chunks, chunk)
	}
	return chunks, s.Wait()
}

// Compile-time check that StreamWriter implements Stream.
var _ Stream = (*StreamWriter)(nil)
