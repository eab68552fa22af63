package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS kv_values (
  key        TEXT PRIMARY KEY,
  value      BLOB NOT NULL,
  expires_at INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS kv_lists (
  key   TEXT NOT NULL,
  seq   INTEGER NOT NULL,
  value BLOB NOT NULL,
  PRIMARY KEY (key, seq)
);
`

// SQLite is a Store persisted in a SQLite database.
type SQLite struct {
	db    *sql.DB
	clock clockwork.Clock
}

// SQLiteOption configures a SQLite store.
type SQLiteOption func(*SQLite)

// WithSQLiteClock sets the clock used for expiration checks.
func WithSQLiteClock(clock clockwork.Clock) SQLiteOption {
	return func(s *SQLite) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
// Use ":memory:" for a throwaway store.
func OpenSQLite(ctx context.Context, path string, opts ...SQLiteOption) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("kv: sqlite path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("kv: open sqlite db: %w", err)
	}
	// One connection: ":memory:" databases are per-connection, and it
	// serializes the read-modify-write transactions below.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("kv: ping sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("kv: apply sqlite schema: %w", err)
	}
	return NewSQLite(db, opts...), nil
}

// NewSQLite wraps an open database whose schema is already applied.
func NewSQLite(db *sql.DB, opts ...SQLiteOption) *SQLite {
	s := &SQLite{db: db, clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SQLite) now() int64 {
	return s.clock.Now().UnixNano()
}

// readValue loads a live value inside tx, deleting it if expired.
func (s *SQLite) readValue(ctx context.Context, tx *sql.Tx, key string) ([]byte, int64, bool, error) {
	var (
		value     []byte
		expiresAt int64
	)
	err := tx.QueryRowContext(ctx,
		`SELECT value, expires_at FROM kv_values WHERE key = ?`, key,
	).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, false, nil
	}
	if err != nil {
		return nil, 0, false, err
	}
	if expiresAt != 0 && s.now() >= expiresAt {
		if _, err := tx.ExecContext(ctx, `DELETE FROM kv_values WHERE key = ?`, key); err != nil {
			return nil, 0, false, err
		}
		return nil, 0, false, nil
	}
	return value, expiresAt, true, nil
}

func hasList(ctx context.Context, tx *sql.Tx, key string) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM kv_lists WHERE key = ? LIMIT 1`, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// inTx runs fn in a transaction, committing on success.
func (s *SQLite) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("kv: sqlite %s: begin: %w", op, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		if errors.Is(err, ErrWrongType) || errors.Is(err, ErrNotInteger) {
			return err
		}
		return fmt.Errorf("kv: sqlite %s: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("kv: sqlite %s: commit: %w", op, err)
	}
	return nil
}

// Get reads key.
func (s *SQLite) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		value []byte
		found bool
	)
	err := s.inTx(ctx, "get", func(tx *sql.Tx) error {
		v, _, ok, err := s.readValue(ctx, tx, key)
		if err != nil {
			return err
		}
		if !ok {
			isList, err := hasList(ctx, tx, key)
			if err != nil {
				return err
			}
			if isList {
				return ErrWrongType
			}
			return nil
		}
		value, found = v, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return value, found, nil
}

// Set upserts key and drops any list stored under the same key.
func (s *SQLite) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = s.clock.Now().Add(ttl).UnixNano()
	}
	if value == nil {
		value = []byte{}
	}
	return s.inTx(ctx, "set", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM kv_lists WHERE key = ?`, key); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO kv_values (key, value, expires_at) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
			key, value, expiresAt,
		)
		return err
	})
}

// Incr increments the decimal integer at key, keeping its expiration.
func (s *SQLite) Incr(ctx context.Context, key string) (int64, error) {
	var n int64
	err := s.inTx(ctx, "incr", func(tx *sql.Tx) error {
		isList, err := hasList(ctx, tx, key)
		if err != nil {
			return err
		}
		if isList {
			return ErrWrongType
		}
		value, expiresAt, ok, err := s.readValue(ctx, tx, key)
		if err != nil {
			return err
		}
		if ok {
			if n, err = parseCounter(value); err != nil {
				return err
			}
		}
		n++
		_, err = tx.ExecContext(ctx,
			`INSERT INTO kv_values (key, value, expires_at) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
			key, []byte(strconv.FormatInt(n, 10)), expiresAt,
		)
		return err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// RPush appends value to the list at key.
func (s *SQLite) RPush(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	return s.inTx(ctx, "rpush", func(tx *sql.Tx) error {
		if _, _, ok, err := s.readValue(ctx, tx, key); err != nil {
			return err
		} else if ok {
			return ErrWrongType
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO kv_lists (key, seq, value)
			 VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM kv_lists WHERE key = ?), ?)`,
			key, key, value,
		)
		return err
	})
}

// LRange reads the list at key in insertion order and slices the window.
func (s *SQLite) LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	var list [][]byte
	err := s.inTx(ctx, "lrange", func(tx *sql.Tx) error {
		if _, _, ok, err := s.readValue(ctx, tx, key); err != nil {
			return err
		} else if ok {
			return ErrWrongType
		}
		rows, err := tx.QueryContext(ctx, `SELECT value FROM kv_lists WHERE key = ? ORDER BY seq`, key)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var v []byte
			if err := rows.Scan(&v); err != nil {
				return err
			}
			list = append(list, v)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	lo, hi, ok := rangeBounds(len(list), start, stop)
	if !ok {
		return [][]byte{}, nil
	}
	return list[lo:hi], nil
}

// FlushDB deletes every value and list.
func (s *SQLite) FlushDB(ctx context.Context) error {
	return s.inTx(ctx, "flushdb", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM kv_values`); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM kv_lists`)
		return err
	})
}

// Ping pings the database.
func (s *SQLite) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("kv: sqlite ping: %w", err)
	}
	return nil
}

// Close closes the database handle.
func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ensure SQLite implements Store
var _ Store = (*SQLite)(nil)
