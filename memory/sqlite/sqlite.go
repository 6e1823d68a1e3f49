// Package sqlite implements reactlm.Memory on a local SQLite file using the
// pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rickchristie/reactlm"
)

// InMemoryPath opens a private database that lives as long as the Memory.
const InMemoryPath = ":memory:"

// Memory is a reactlm.Memory persisted in SQLite.
type Memory struct {
	db    *sql.DB
	ttl   time.Duration
	clock reactlm.TimeProvider
}

// Open opens (creating if needed) the database at path. A positive ttl makes records
// invisible once they are older than ttl; expired rows are purged by Vacuum.
func Open(path string, ttl time.Duration) (*Memory, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if path != InMemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	m := &Memory{db: db, ttl: ttl, clock: reactlm.NewDefaultTimeProvider()}
	if err := m.init(context.Background(), path != InMemoryPath); err != nil {
		_ = db.Close()
		return nil, err
	}
	return m, nil
}

// WithTimeProvider sets the clock used for timestamps and expiry.
func (m *Memory) WithTimeProvider(tp reactlm.TimeProvider) *Memory {
	if tp != nil {
		m.clock = tp
	}
	return m
}

func (m *Memory) init(ctx context.Context, wal bool) error {
	if wal {
		if _, err := m.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
			return fmt.Errorf("set WAL mode: %w", err)
		}
	}
	if _, err := m.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := m.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS memory (
		key TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		metadata TEXT NOT NULL,
		stored_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL DEFAULT 0
	)`); err != nil {
		return fmt.Errorf("create memory table: %w", err)
	}
	return nil
}

// Close closes the database.
func (m *Memory) Close() error {
	if m == nil || m.db == nil {
		return nil
	}
	return m.db.Close()
}

// Store implements reactlm.Memory.
func (m *Memory) Store(ctx context.Context, key string, value any, metadata map[string]any) error {
	now := m.clock.Now()
	rec, err := reactlm.NewMemoryRecord(value, metadata, now)
	if err != nil {
		return err
	}
	meta, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	var expires int64
	if m.ttl > 0 {
		expires = now.Add(m.ttl).UnixNano()
	}
	_, err = m.db.ExecContext(ctx, `INSERT INTO memory (key, data, metadata, stored_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			data = excluded.data,
			metadata = excluded.metadata,
			stored_at = excluded.stored_at,
			expires_at = excluded.expires_at`,
		key, string(rec.Data), string(meta), rec.Timestamp.UnixNano(), expires)
	if err != nil {
		return fmt.Errorf("sqlite store %q: %w", key, err)
	}
	return nil
}

// Retrieve implements reactlm.Memory.
func (m *Memory) Retrieve(ctx context.Context, key string) (reactlm.MemoryRecord, bool, error) {
	var (
		data, meta string
		storedAt   int64
	)
	err := m.db.QueryRowContext(ctx, `SELECT data, metadata, stored_at FROM memory
		WHERE key = ? AND (expires_at = 0 OR expires_at > ?)`,
		key, m.clock.Now().UnixNano()).Scan(&data, &meta, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return reactlm.MemoryRecord{}, false, nil
	}
	if err != nil {
		return reactlm.MemoryRecord{}, false, fmt.Errorf("sqlite retrieve %q: %w", key, err)
	}

	rec := reactlm.MemoryRecord{
		Data:      json.RawMessage(data),
		Timestamp: time.Unix(0, storedAt).UTC(),
	}
	if err := json.Unmarshal([]byte(meta), &rec.Metadata); err != nil {
		return reactlm.MemoryRecord{}, false, fmt.Errorf("decode metadata: %w", err)
	}
	return rec, true, nil
}

// Delete implements reactlm.Memory. Expired rows count as absent.
func (m *Memory) Delete(ctx context.Context, key string) (bool, error) {
	res, err := m.db.ExecContext(ctx, `DELETE FROM memory
		WHERE key = ? AND (expires_at = 0 OR expires_at > ?)`,
		key, m.clock.Now().UnixNano())
	if err != nil {
		return false, fmt.Errorf("sqlite delete %q: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite delete %q: %w", key, err)
	}
	return n > 0, nil
}

// Clear implements reactlm.Memory.
func (m *Memory) Clear(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, `DELETE FROM memory`); err != nil {
		return fmt.Errorf("sqlite clear: %w", err)
	}
	return nil
}

// Keys lists live keys in lexical order.
func (m *Memory) Keys(ctx context.Context) ([]string, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT key FROM memory
		WHERE expires_at = 0 OR expires_at > ? ORDER BY key`, m.clock.Now().UnixNano())
	if err != nil {
		return nil, fmt.Errorf("sqlite keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("sqlite keys: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Vacuum deletes expired rows and returns how many were removed.
func (m *Memory) Vacuum(ctx context.Context) (int64, error) {
	res, err := m.db.ExecContext(ctx, `DELETE FROM memory WHERE expires_at != 0 AND expires_at <= ?`,
		m.clock.Now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("sqlite vacuum: %w", err)
	}
	return res.RowsAffected()
}

// Compile-time check that Memory implements reactlm.Memory.
var _ reactlm.Memory = (*Memory)(nil)
