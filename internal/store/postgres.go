package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/pifcsv/internal/pif"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS pif_runs (
	id           uuid PRIMARY KEY,
	source       text NOT NULL,
	record_count integer NOT NULL DEFAULT 0,
	created_at   timestamptz NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS pif_records (
	run_id     uuid NOT NULL REFERENCES pif_runs(id) ON DELETE CASCADE,
	line       integer NOT NULL,
	uid        text,
	record     jsonb NOT NULL,
	created_at timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (run_id, line)
);
CREATE INDEX IF NOT EXISTS pif_records_uid_idx ON pif_records (uid) WHERE uid IS NOT NULL;
`

// DBTX is the subset of pgx used by the postgres store.
// Satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Begin(context.Context) (pgx.Tx, error)
}

// Postgres stores runs in PostgreSQL.
type Postgres struct {
	db        DBTX
	pool      *pgxpool.Pool
	batchSize int
}

// OpenPostgres creates a connection pool for opts.DatabaseURL and applies
// the schema.
func OpenPostgres(ctx context.Context, opts Options) (*Postgres, error) {
	if opts.DatabaseURL == "" {
		return nil, errors.New("postgres store requires a database URL")
	}
	cfg, err := pgxpool.ParseConfig(opts.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	s := NewPostgres(pool, opts.BatchSize)
	s.pool = pool
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgres wraps an existing connection. The caller keeps ownership of db.
func NewPostgres(db DBTX, batchSize int) *Postgres {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Postgres{db: db, batchSize: batchSize}
}

// Migrate creates the tables if they do not exist.
func (s *Postgres) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("migrate postgres store: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (s *Postgres) Ping(ctx context.Context) error {
	if s.pool != nil {
		return s.pool.Ping(ctx)
	}
	_, err := s.db.Exec(ctx, "SELECT 1")
	return err
}

// Close closes the pool if the store opened it.
func (s *Postgres) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// Begin opens a transaction and registers the run in it.
func (s *Postgres) Begin(ctx context.Context, source string) (Run, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}
	id := uuid.New()
	if _, err := tx.Exec(ctx, `INSERT INTO pif_runs (id, source) VALUES ($1, $2)`, id, source); err != nil {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return &postgresRun{id: id, tx: tx, batchSize: s.batchSize}, nil
}

type postgresRun struct {
	id        uuid.UUID
	tx        pgx.Tx
	batch     pgx.Batch
	batchSize int
	count     int
}

func (r *postgresRun) ID() uuid.UUID { return r.id }

func (r *postgresRun) Put(ctx context.Context, line int, s *pif.System) error {
	row, err := newRecordRow(line, s)
	if err != nil {
		return err
	}
	r.batch.Queue(
		`INSERT INTO pif_records (run_id, line, uid, record) VALUES ($1, $2, NULLIF($3, ''), $4::jsonb)`,
		r.id, row.line, row.uid, string(row.data),
	)
	r.count++
	if r.batch.Len() >= r.batchSize {
		return r.flush(ctx)
	}
	return nil
}

func (r *postgresRun) flush(ctx context.Context) error {
	if r.batch.Len() == 0 {
		return nil
	}
	n := r.batch.Len()
	br := r.tx.SendBatch(ctx, &r.batch)
	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("insert records: %w", err)
		}
	}
	r.batch = pgx.Batch{}
	return br.Close()
}

func (r *postgresRun) Commit(ctx context.Context) error {
	if err := r.flush(ctx); err != nil {
		return err
	}
	if _, err := r.tx.Exec(ctx, `UPDATE pif_runs SET record_count = $2 WHERE id = $1`, r.id, r.count); err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if err := r.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

func (r *postgresRun) Rollback(ctx context.Context) error {
	err := r.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}
