// Package buffer provides the queue behind model streams.
package buffer

import "sync"

// Unbounded is a FIFO queue with a never-blocking Send and a channel-based Receive.
// A single goroutine forwards queued items to the receive channel, so a slow
// consumer never stalls the producer.
type Unbounded[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []T
	closed bool
	out    chan T
}

// NewUnbounded creates an open buffer and starts its forwarding goroutine.
func NewUnbounded[T any]() *Unbounded[T] {
	b := &Unbounded[T]{out: make(chan T)}
	b.cond = sync.NewCond(&b.mu)
	go b.forward()
	return b
}

func (b *Unbounded[T]) forward() {
	defer close(b.out)
	for {
		item, ok := b.next()
		if !ok {
			return
		}
		b.out <- item
	}
}

// next blocks until an item is queued or the buffer is closed and drained.
func (b *Unbounded[T]) next() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for len(b.queue) == 0 && !b.closed {
		b.cond.Wait()
	}
	var zero T
	if len(b.queue) == 0 {
		return zero, false
	}
	item := b.queue[0]
	b.queue[0] = zero
	b.queue = b.queue[1:]
	return item, true
}

// Send queues an item. Items sent after Close are dropped.
func (b *Unbounded[T]) Send(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.queue = append(b.queue, item)
	b.cond.Signal()
}

// Receive returns the channel items are delivered on. It is closed after Close once
// every queued item has been delivered.
func (b *Unbounded[T]) Receive() <-chan T {
	return b.out
}

// Close stops accepting items. It is safe to call more than once.
func (b *Unbounded[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.cond.Signal()
}

// Len returns the number of items not yet handed to the receive channel.
func (b *Unbounded[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// IsClosed reports whether Close has been called.
func (b *Unbounded[T]) IsClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}
