// Package store persists converted records.
//
// Every conversion is a run: records are added to an open [Run] and become
// visible together on Commit, so a template that fails halfway leaves
// nothing behind. Two backends share the schema:
//
//   - postgres: pgx connection pool, records as jsonb, inserts sent in
//     batches of Options.BatchSize
//   - sqlite: a local file through the pure Go modernc driver, records as
//     JSON text
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/JonMunkholm/pifcsv/internal/pif"
)

// Driver names accepted by Open.
const (
	DriverNone     = "none"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DefaultBatchSize is used when Options.BatchSize is not positive.
const DefaultBatchSize = 500

// Store opens runs against a backend.
type Store interface {
	Begin(ctx context.Context, source string) (Run, error)
	Ping(ctx context.Context) error
	Close() error
}

// Run collects the records of one conversion.
type Run interface {
	ID() uuid.UUID
	// Put adds the record converted from the given 1-based source line.
	Put(ctx context.Context, line int, s *pif.System) error
	Commit(ctx context.Context) error
	// Rollback discards the run. It is safe to call after Commit.
	Rollback(ctx context.Context) error
}

// Options select and configure a backend.
type Options struct {
	Driver      string
	DatabaseURL string
	SQLitePath  string
	BatchSize   int
	MaxConns    int32
}

// Open connects to the configured backend and makes sure its schema exists.
// Driver "none" (or empty) returns a nil Store and no error.
func Open(ctx context.Context, opts Options) (Store, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	switch strings.ToLower(opts.Driver) {
	case "", DriverNone:
		return nil, nil
	case DriverPostgres, "postgresql", "pgx":
		s, err := OpenPostgres(ctx, opts)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverSQLite:
		s, err := OpenSQLite(ctx, opts)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
}

// recordRow is the column set shared by both backends.
type recordRow struct {
	line int
	uid  string
	data []byte
}

func newRecordRow(line int, s *pif.System) (recordRow, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return recordRow{}, fmt.Errorf("marshal record at line %d: %w", line, err)
	}
	return recordRow{line: line, uid: s.UID, data: data}, nil
}
