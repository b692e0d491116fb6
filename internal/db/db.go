// Package db wraps the Postgres pool used by the mutation journal.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/rezzydesk/internal/internaltypes"
)

// DB is a small pool for journal writes and reads. Statements go through Exec, Query
// and QueryRow; multi-statement work goes through InTx.
type DB struct {
	pool *pgxpool.Pool
}

// Open parses databaseURL and connects lazily. The journal writes one row per mutation,
// so the pool stays small.
func Open(ctx context.Context, databaseURL string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("db: parse url: %w", err)
	}
	cfg.MaxConns = 4
	cfg.MaxConnLifetime = 5 * time.Minute
	cfg.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db: connect: %w", err)
	}
	return &DB{pool: pool}, nil
}

func (d *DB) Close() {
	d.pool.Close()
}

// Ping checks the connection with a short deadline of its own.
func (d *DB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return d.pool.Ping(ctx)
}

// Exec runs one statement outside any transaction.
func (d *DB) Exec(ctx context.Context, sql string, args ...any) error {
	if _, err := d.pool.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("db: exec: %w", err)
	}
	return nil
}

// QueryRow runs a single-row query. An empty result surfaces from Scan as pgx.ErrNoRows;
// pass it through WrapNotFound.
func (d *DB) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return d.pool.QueryRow(ctx, sql, args...)
}

// Query runs a multi-row query. The caller closes Rows and checks Err after the loop.
func (d *DB) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rows, err := d.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("db: query: %w", err)
	}
	return rows, nil
}

// InTx runs fn inside one transaction, rolling back when fn fails.
func (d *DB) InTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("db: begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// Row is the part of pgx.Row the journal uses.
type Row interface {
	Scan(dest ...any) error
}

// Rows is the part of pgx.Rows the journal uses.
type Rows interface {
	Close()
	Err() error
	Next() bool
	Scan(dest ...any) error
}

// WrapNotFound maps an empty result to internaltypes.ErrNotFound.
func WrapNotFound(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return internaltypes.ErrNotFound
	}
	return fmt.Errorf("db: %w", err)
}
