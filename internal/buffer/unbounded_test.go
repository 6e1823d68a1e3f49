package buffer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain[T any](b *Unbounded[T]) []T {
	var out []T
	for item := range b.Receive() {
		out = append(out, item)
	}
	return out
}

func TestUnbounded_SendReceive(t *testing.T) {
	type input struct {
		items []string
	}

	type expected struct {
		received []string
	}

	tests := []struct {
		name     string
		input    input
		expected expected
	}{
		{
			name:     "delivers items in order",
			input:    input{items: []string{"a", "b", "c"}},
			expected: expected{received: []string{"a", "b", "c"}},
		},
		{
			name:     "closes cleanly when nothing was sent",
			input:    input{items: nil},
			expected: expected{received: nil},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewUnbounded[string]()
			for _, item := range tt.input.items {
				b.Send(item)
			}
			b.Close()

			assert.Equal(t, tt.expected.received, drain(b))
		})
	}
}

func TestUnbounded_SendNeverBlocks(t *testing.T) {
	b := NewUnbounded[int]()
	const n = 10000

	done := make(chan struct{})
	go func() {
		for i := 0; i < n; i++ {
			b.Send(i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Send blocked without a consumer")
	}

	b.Close()
	got := drain(b)
	require.Len(t, got, n)
	for i, v := range got {
		require.Equal(t, i, v)
	}
}

func TestUnbounded_SendAfterCloseIsDropped(t *testing.T) {
	b := NewUnbounded[int]()
	b.Send(1)
	b.Close()
	b.Close()
	b.Send(2)

	assert.True(t, b.IsClosed())
	assert.Equal(t, []int{1}, drain(b))
	assert.Equal(t, 0, b.Len())
}

func TestUnbounded_ConcurrentProducers(t *testing.T) {
	b := NewUnbounded[int]()
	const producers, perProducer = 8, 500

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				b.Send(i)
			}
		}()
	}

	var got []int
	received := make(chan struct{})
	go func() {
		got = drain(b)
		close(received)
	}()

	wg.Wait()
	b.Close()
	<-received

	assert.Len(t, got, producers*perProducer)
}
