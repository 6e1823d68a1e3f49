package reactlm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Memory is an external key/value store. The loop only calls Store, to mirror traces.
//
// Backends live under memory/: inmem (TTL cache), redis and sqlite.
type Memory interface {
	// Store saves value under key, replacing any previous record.
	Store(ctx context.Context, key string, value any, metadata map[string]any) error

	// Retrieve loads the record under key. The bool is false when the key is absent.
	Retrieve(ctx context.Context, key string) (MemoryRecord, bool, error)

	// Delete removes key and reports whether it existed.
	Delete(ctx context.Context, key string) (bool, error)

	// Clear removes every key owned by this memory.
	Clear(ctx context.Context) error
}

// MemoryRecord is the stored shape of a memory value, shared by all backends.
type MemoryRecord struct {
	Data      json.RawMessage `json:"data"`
	Metadata  map[string]any  `json:"metadata"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMemoryRecord encodes value into a record stamped with now.
func NewMemoryRecord(value any, metadata map[string]any, now time.Time) (MemoryRecord, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return MemoryRecord{}, fmt.Errorf("failed to encode memory value: %w", err)
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	return MemoryRecord{
		Data:      data,
		Metadata:  metadata,
		Timestamp: now.UTC(),
	}, nil
}

// Decode unmarshals the record data into dst.
func (r MemoryRecord) Decode(dst any) error {
	if err := json.Unmarshal(r.Data, dst); err != nil {
		return fmt.Errorf("failed to decode memory value: %w", err)
	}
	return nil
}

// EncodeMemoryRecord serializes a record for byte-oriented backends.
func EncodeMemoryRecord(r MemoryRecord) ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode memory record: %w", err)
	}
	return b, nil
}

// DecodeMemoryRecord parses bytes written by EncodeMemoryRecord.
func DecodeMemoryRecord(b []byte) (MemoryRecord, error) {
	var r MemoryRecord
	if err := json.Unmarshal(b, &r); err != nil {
		return MemoryRecord{}, fmt.Errorf("failed to decode memory record: %w", err)
	}
	return r, nil
}
