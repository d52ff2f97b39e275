// Package store persists the tracker record and renewal history in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/theirongolddev/gburn/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

// StateKey is the kv key the tracker record lives under.
const StateKey = "gfn-tracker-data"

// ErrNotFound is returned when a key has never been written.
var ErrNotFound = errors.New("store: key not found")

// Store is a SQLite-backed key-value store plus the renewal history table.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at the given path.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the raw value stored under key, or ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return []byte(value), nil
}

// Put stores value under key.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	return putKV(ctx, s.db, key, value)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func putKV(ctx context.Context, db execer, key string, value []byte) error {
	_, err := db.ExecContext(ctx, `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(value), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// LoadState reads the tracker record. A missing record yields DefaultState and
// a malformed one is repaired field by field; only I/O failures are errors.
func (s *Store) LoadState(ctx context.Context) (model.State, error) {
	raw, err := s.Get(ctx, StateKey)
	if errors.Is(err, ErrNotFound) {
		return model.DefaultState(), nil
	}
	if err != nil {
		return model.DefaultState(), err
	}
	return DecodeState(raw), nil
}

// SaveState writes the tracker record.
func (s *Store) SaveState(ctx context.Context, st model.State) error {
	data, err := EncodeState(st)
	if err != nil {
		return err
	}
	return s.Put(ctx, StateKey, data)
}

// SaveRenewals writes the record and appends the applied renewals in one transaction.
func (s *Store) SaveRenewals(ctx context.Context, st model.State, events []model.RenewalEvent) error {
	data, err := EncodeState(st)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := putKV(ctx, tx, StateKey, data); err != nil {
		return err
	}

	for _, ev := range events {
		_, err = tx.ExecContext(ctx, `INSERT INTO renewals
			(id, applied_at, previous_date, new_date,
			 previous_hours, previous_minutes, new_hours, new_minutes,
			 previous_blocks, new_blocks)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ev.ID, ev.AppliedAt.UTC().Format(time.RFC3339Nano), ev.PreviousDate, ev.NewDate,
			ev.PreviousBalance.Hours, ev.PreviousBalance.Minutes, ev.NewBalance.Hours, ev.NewBalance.Minutes,
			ev.PreviousBlocks, ev.NewBlocks,
		)
		if err != nil {
			return fmt.Errorf("recording renewal %s: %w", ev.ID, err)
		}
	}

	return tx.Commit()
}

// Renewals returns recorded renewals, newest first. Renewals applied at the
// same instant come back in reverse insertion order. limit <= 0 returns all.
func (s *Store) Renewals(ctx context.Context, limit int) ([]model.RenewalEvent, error) {
	query := `SELECT id, applied_at, previous_date, new_date,
		previous_hours, previous_minutes, new_hours, new_minutes,
		previous_blocks, new_blocks
		FROM renewals ORDER BY applied_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying renewals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []model.RenewalEvent
	for rows.Next() {
		var ev model.RenewalEvent
		var appliedAt string
		err := rows.Scan(&ev.ID, &appliedAt, &ev.PreviousDate, &ev.NewDate,
			&ev.PreviousBalance.Hours, &ev.PreviousBalance.Minutes, &ev.NewBalance.Hours, &ev.NewBalance.Minutes,
			&ev.PreviousBlocks, &ev.NewBlocks)
		if err != nil {
			return nil, fmt.Errorf("scanning renewal: %w", err)
		}
		if ev.AppliedAt, err = time.Parse(time.RFC3339Nano, appliedAt); err != nil {
			return nil, fmt.Errorf("renewal %s: bad applied_at %q: %w", ev.ID, appliedAt, err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// RenewalCount returns the number of recorded renewals.
func (s *Store) RenewalCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM renewals").Scan(&count)
	return count, err
}
