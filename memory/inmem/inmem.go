// Package inmem implements reactlm.Memory as a bounded in-process cache with
// optional expiry, on top of hashicorp/golang-lru.
package inmem

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/rickchristie/reactlm"
)

// Options configures a Memory.
type Options struct {
	// Size caps the number of records; the least recently used is evicted first.
	// Zero means unbounded.
	Size int

	// TTL expires records after they are stored. Zero keeps them until evicted.
	TTL time.Duration
}

// Memory is a reactlm.Memory held in process memory. It is safe for concurrent use.
type Memory struct {
	cache *expirable.LRU[string, reactlm.MemoryRecord]
	clock reactlm.TimeProvider
}

// New creates an empty Memory.
func New(opts Options) *Memory {
	return &Memory{
		cache: expirable.NewLRU[string, reactlm.MemoryRecord](opts.Size, nil, opts.TTL),
		clock: reactlm.NewDefaultTimeProvider(),
	}
}

// WithTimeProvider sets the clock used to stamp records. Expiry always uses the wall clock.
func (m *Memory) WithTimeProvider(tp reactlm.TimeProvider) *Memory {
	if tp != nil {
		m.clock = tp
	}
	return m
}

// Store implements reactlm.Memory.
func (m *Memory) Store(_ context.Context, key string, value any, metadata map[string]any) error {
	rec, err := reactlm.NewMemoryRecord(value, metadata, m.clock.Now())
	if err != nil {
		return err
	}
	m.cache.Add(key, rec)
	return nil
}

// Retrieve implements reactlm.Memory.
func (m *Memory) Retrieve(_ context.Context, key string) (reactlm.MemoryRecord, bool, error) {
	rec, ok := m.cache.Get(key)
	return rec, ok, nil
}

// Delete implements reactlm.Memory.
func (m *Memory) Delete(_ context.Context, key string) (bool, error) {
	return m.cache.Remove(key), nil
}

// Clear implements reactlm.Memory.
func (m *Memory) Clear(context.Context) error {
	m.cache.Purge()
	return nil
}

// Keys lists live keys from oldest to newest.
func (m *Memory) Keys(context.Context) ([]string, error) {
	return m.cache.Keys(), nil
}

// Len returns the number of live records.
func (m *Memory) Len() int {
	return m.cache.Len()
}

// Compile-time check that Memory implements reactlm.Memory.
var _ reactlm.Memory = (*Memory)(nil)
