// Package store persists catalogues and events in SQLite. Only the driver
// worker goroutine talks to a Store.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/Masterminds/squirrel"
	"github.com/pressly/goose/v3"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/justyntemme/tscat/internal/debug"
	"github.com/justyntemme/tscat/internal/store/migrations"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

var (
	ErrNotFound = errors.New("entity not found")
	ErrClosed   = errors.New("store is closed")
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store reads and writes one database. Close may be called from another
// goroutine while the worker is still running.
type Store struct {
	conn     *sql.DB
	q        querier
	collator *collate.Collator
	closed   atomic.Bool
}

var sq = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

// Open initializes the database connection, tunes it and applies migrations.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	if dbPath != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// One connection: every statement comes from the worker, and an in-memory
	// database only exists on the connection that created it.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		// WAL mode allows readers while the worker writes
		"PRAGMA journal_mode=WAL;",
		// Synchronous NORMAL is safe against app crashes, faster than FULL
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	debug.Log(debug.STORE, "Opened %s", dbPath)
	return New(db), nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	for _, r := range results {
		debug.Log(debug.STORE, "Applied migration %s", r.Source.Path)
	}
	return nil
}

// New wraps an already prepared connection. Open is the normal entry point.
func New(db *sql.DB) *Store {
	return &Store{
		conn:     db,
		q:        db,
		collator: collate.New(language.Und, collate.IgnoreCase),
	}
}

// WithTx runs fn against a Store bound to a single transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	if s.conn == nil || s.closed.Load() {
		return ErrClosed
	}
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	txStore := &Store{q: tx, collator: s.collator}
	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

// Save flushes the write-ahead log into the main database file.
func (s *Store) Save(ctx context.Context) error {
	if _, err := s.q.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE);"); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	debug.Log(debug.STORE, "Checkpointed")
	return nil
}

func (s *Store) Close() error {
	if s.conn == nil || s.closed.Swap(true) {
		return nil
	}
	return s.conn.Close()
}

func (s *Store) exec(ctx context.Context, b squirrel.Sqlizer) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	debug.Log(debug.STORE, "%s %v", query, args)
	return s.q.ExecContext(ctx, query, args...)
}

func (s *Store) query(ctx context.Context, b squirrel.Sqlizer) (*sql.Rows, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	debug.Log(debug.STORE, "%s %v", query, args)
	return s.q.QueryContext(ctx, query, args...)
}

func affected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}
