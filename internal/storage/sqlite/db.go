// Package sqlite stores the dashboard tables (teams, matches, predictions and
// model_registry) in SQLite via modernc.org/sqlite. Writes go through a single
// connection; reads use a separate pool so cache misses never queue behind a
// write.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"runtime"
	"strings"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/winmix/tipsterhub/internal/storage"
)

//go:embed migrations/*.sql
var migrations embed.FS

var _ storage.Store = (*Store)(nil)

// Store implements storage.Store using SQLite.
type Store struct {
	write *sql.DB // single-writer connection
	read  *sql.DB // multi-reader pool
}

// dashboardTables must all exist for the store to serve reads.
var dashboardTables = []string{"teams", "matches", "predictions", "model_registry"}

const pragmas = "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)"

// connString turns a config DSN (a file path or ":memory:") into a
// modernc connection string carrying the store's pragmas. A path that is
// already a "file:" URI keeps its own query parameters.
func connString(dsn string) string {
	switch {
	case dsn == ":memory:":
		// Shared cache so the read and write pools see the same database.
		return "file::memory:?mode=memory&cache=shared&" + pragmas
	case strings.HasPrefix(dsn, "file:") && strings.Contains(dsn, "?"):
		return dsn + "&" + pragmas
	case strings.HasPrefix(dsn, "file:"):
		return dsn + "?" + pragmas
	default:
		return "file:" + dsn + "?" + pragmas
	}
}

// New opens a SQLite database, runs migrations, and returns a Store.
func New(dsn string) (*Store, error) {
	fullDSN := connString(dsn)

	write, err := sql.Open("sqlite", fullDSN)
	if err != nil {
		return nil, fmt.Errorf("open write db: %w", err)
	}
	write.SetMaxOpenConns(1)

	read, err := sql.Open("sqlite", fullDSN)
	if err != nil {
		write.Close()
		return nil, fmt.Errorf("open read db: %w", err)
	}
	read.SetMaxOpenConns(max(4, runtime.NumCPU()))

	if err := runMigrations(write); err != nil {
		write.Close()
		read.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &Store{write: write, read: read}, nil
}

// runMigrations applies embedded SQL migrations using goose.
// fs.Sub strips the "migrations/" prefix so goose sees files at the FS root.
func runMigrations(db *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("sub fs: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}
	_, err = provider.Up(context.Background())
	return err
}

// withTx runs fn inside a write transaction, committing on success.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.write.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	return tx.Commit()
}

// Ping checks that the read pool answers and that every dashboard table
// exists.
func (s *Store) Ping(ctx context.Context) error {
	args := make([]any, len(dashboardTables))
	for i, t := range dashboardTables {
		args[i] = t
	}
	var n int
	err := s.read.QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name IN (?, ?, ?, ?)`, args...,
	).Scan(&n)
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	if n != len(dashboardTables) {
		return fmt.Errorf("ping: %d of %d dashboard tables present", n, len(dashboardTables))
	}
	return nil
}

// Close closes both database connections.
func (s *Store) Close() error {
	return errors.Join(s.write.Close(), s.read.Close())
}
