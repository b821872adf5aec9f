package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite is a single-file Store for deployments without redis. It mimics the
// TTL semantics of the redis store with an expires_at column plus a periodic
// sweep; reads treat expired rows as missing even before the sweep runs.
type SQLite struct {
	db   *sql.DB
	done chan struct{}
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS kv_expires_at ON kv (expires_at);
`

// OpenSQLite opens (and if needed initializes) the store at path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	// modernc sqlite is not safe for concurrent writes on one connection set
	// without serialization; a single connection keeps writes ordered.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}

	s := &SQLite{db: db, done: make(chan struct{})}
	go s.sweepLoop(time.Minute)
	slog.Info("store: sqlite opened", slog.String("path", path))
	return s, nil
}

func (s *SQLite) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			res, err := s.db.Exec(`DELETE FROM kv WHERE expires_at <= ?`, time.Now().Unix())
			if err != nil {
				slog.Warn("store: sqlite sweep failed", slog.Any("error", err))
				continue
			}
			if n, _ := res.RowsAffected(); n > 0 {
				slog.Debug("store: swept expired keys", slog.Int64("count", n))
			}
		}
	}
}

func (s *SQLite) Create(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	expires := time.Now().Add(ttl).Unix()
	// An expired-but-unswept row does not count as existing.
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at
		 WHERE kv.expires_at <= ?`,
		key, value, expires, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("store: insert %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: insert %s: %w", key, err)
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

func (s *SQLite) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	expires := time.Now().Add(ttl).Unix()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expires)
	if err != nil {
		return fmt.Errorf("store: put %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE key = ? AND expires_at > ?`,
		key, time.Now().Unix()).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLite) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("store: del %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) Close() error {
	close(s.done)
	return s.db.Close()
}
