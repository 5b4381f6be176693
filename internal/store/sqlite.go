package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/JonMunkholm/pifcsv/internal/pif"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS pif_runs (
	id           TEXT PRIMARY KEY,
	source       TEXT NOT NULL,
	record_count INTEGER NOT NULL DEFAULT 0,
	created_at   TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
);
CREATE TABLE IF NOT EXISTS pif_records (
	run_id     TEXT NOT NULL REFERENCES pif_runs(id) ON DELETE CASCADE,
	line       INTEGER NOT NULL,
	uid        TEXT,
	record     TEXT NOT NULL,
	PRIMARY KEY (run_id, line)
);
CREATE INDEX IF NOT EXISTS pif_records_uid_idx ON pif_records (uid);
`

// DefaultSQLitePath is used when Options.SQLitePath is empty.
const DefaultSQLitePath = "pifcsv.db"

// sqlitePragmas apply to every pooled connection.
const sqlitePragmas = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"

const sqliteMaxConns = 4

// SQLite stores runs in a local database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at opts.SQLitePath.
func OpenSQLite(ctx context.Context, opts Options) (*SQLite, error) {
	path := opts.SQLitePath
	if path == "" {
		path = DefaultSQLitePath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path+sqlitePragmas)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// WAL lets Ping and readers proceed while a run holds the write lock;
	// concurrent runs wait on busy_timeout for it.
	db.SetMaxOpenConns(sqliteMaxConns)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite store: %w", err)
	}
	return &SQLite{db: db}, nil
}

// DB exposes the underlying handle for tests and inspection.
func (s *SQLite) DB() *sql.DB { return s.db }

// Ping checks the database handle.
func (s *SQLite) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close closes the database.
func (s *SQLite) Close() error { return s.db.Close() }

// Begin opens a transaction and registers the run in it.
func (s *SQLite) Begin(ctx context.Context, source string) (Run, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}
	id := uuid.New()
	if _, err := tx.ExecContext(ctx, `INSERT INTO pif_runs (id, source) VALUES (?, ?)`, id.String(), source); err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("insert run: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO pif_records (run_id, line, uid, record) VALUES (?, ?, NULLIF(?, ''), ?)`)
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	return &sqliteRun{id: id, tx: tx, insert: stmt}, nil
}

type sqliteRun struct {
	id     uuid.UUID
	tx     *sql.Tx
	insert *sql.Stmt
	count  int
}

func (r *sqliteRun) ID() uuid.UUID { return r.id }

func (r *sqliteRun) Put(ctx context.Context, line int, s *pif.System) error {
	row, err := newRecordRow(line, s)
	if err != nil {
		return err
	}
	if _, err := r.insert.ExecContext(ctx, r.id.String(), row.line, row.uid, string(row.data)); err != nil {
		return fmt.Errorf("insert record at line %d: %w", line, err)
	}
	r.count++
	return nil
}

func (r *sqliteRun) Commit(ctx context.Context) error {
	_ = r.insert.Close()
	if _, err := r.tx.ExecContext(ctx, `UPDATE pif_runs SET record_count = ? WHERE id = ?`, r.count, r.id.String()); err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if err := r.tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

func (r *sqliteRun) Rollback(context.Context) error {
	_ = r.insert.Close()
	err := r.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}
