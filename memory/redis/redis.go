// Package redis implements reactlm.Memory on Redis.
//
// Records are stored as JSON strings under "<prefix><key>" with an optional TTL.
// Clear only removes keys carrying the configured prefix.
package redis

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/rickchristie/reactlm"
)

// DefaultPrefix namespaces every key written by a Memory.
const DefaultPrefix = "reactlm:"

const scanCount = 100

// Options configures a Memory.
type Options struct {
	Addr     string
	Password string
	DB       int

	// Prefix is prepended to every key. Empty means DefaultPrefix.
	Prefix string

	// TTL expires stored records. Zero keeps them forever.
	TTL time.Duration
}

// Memory is a reactlm.Memory backed by a go-redis client.
type Memory struct {
	client goredis.UniversalClient
	prefix string
	ttl    time.Duration
	clock  reactlm.TimeProvider
}

// New connects to Redis using opts. The connection is verified lazily on first use.
func New(opts Options) *Memory {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return NewFromClient(client, opts.Prefix, opts.TTL)
}

// NewFromClient wraps an existing client. The Memory takes ownership: Close closes it.
func NewFromClient(client goredis.UniversalClient, prefix string, ttl time.Duration) *Memory {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Memory{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		clock:  reactlm.NewDefaultTimeProvider(),
	}
}

// WithTimeProvider sets the clock used to stamp records.
func (m *Memory) WithTimeProvider(tp reactlm.TimeProvider) *Memory {
	if tp != nil {
		m.clock = tp
	}
	return m
}

// Ping checks connectivity.
func (m *Memory) Ping(ctx context.Context) error {
	if err := m.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (m *Memory) key(k string) string {
	return m.prefix + k
}

// Store implements reactlm.Memory.
func (m *Memory) Store(ctx context.Context, key string, value any, metadata map[string]any) error {
	rec, err := reactlm.NewMemoryRecord(value, metadata, m.clock.Now())
	if err != nil {
		return err
	}
	b, err := reactlm.EncodeMemoryRecord(rec)
	if err != nil {
		return err
	}
	if err := m.client.Set(ctx, m.key(key), b, m.ttl).Err(); err != nil {
		return fmt.Errorf("redis store %q: %w", key, err)
	}
	return nil
}

// Retrieve implements reactlm.Memory.
func (m *Memory) Retrieve(ctx context.Context, key string) (reactlm.MemoryRecord, bool, error) {
	b, err := m.client.Get(ctx, m.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return reactlm.MemoryRecord{}, false, nil
	}
	if err != nil {
		return reactlm.MemoryRecord{}, false, fmt.Errorf("redis retrieve %q: %w", key, err)
	}
	rec, err := reactlm.DecodeMemoryRecord(b)
	if err != nil {
		return reactlm.MemoryRecord{}, false, err
	}
	return rec, true, nil
}

// Delete implements reactlm.Memory.
func (m *Memory) Delete(ctx context.Context, key string) (bool, error) {
	n, err := m.client.Del(ctx, m.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis delete %q: %w", key, err)
	}
	return n > 0, nil
}

// Clear implements reactlm.Memory. Keys are found with SCAN so the server is never
// blocked by KEYS on a large keyspace. The whole SCAN completes before anything is
// deleted, so deletions cannot shift the cursor past unvisited keys.
func (m *Memory) Clear(ctx context.Context) error {
	var keys []string
	iter := m.client.Scan(ctx, 0, m.prefix+"*", scanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis clear: %w", err)
	}

	for batch := range slices.Chunk(keys, scanCount) {
		if err := m.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis clear: %w", err)
		}
	}
	return nil
}

// Keys lists stored keys without the prefix.
func (m *Memory) Keys(ctx context.Context) ([]string, error) {
	var out []string
	iter := m.client.Scan(ctx, 0, m.prefix+"*", scanCount).Iterator()
	for iter.Next(ctx) {
		out = append(out, iter.Val()[len(m.prefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis keys: %w", err)
	}
	return out, nil
}

// Close closes the underlying client.
func (m *Memory) Close() error {
	return m.client.Close()
}

// Compile-time check that Memory implements reactlm.Memory.
var _ reactlm.Memory = (*Memory)(nil)
