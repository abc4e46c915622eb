package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoDatabase is returned by every query when the service runs without Postgres.
var ErrNoDatabase = errors.New("database not configured")

// DB is the part of *pgxpool.Pool the repositories use.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// FromPool adapts pool for the repositories. A nil pool yields a DB whose
// every call fails with ErrNoDatabase.
func FromPool(pool *pgxpool.Pool) DB {
	if pool == nil {
		return unavailableDB{}
	}
	return pool
}

type unavailableDB struct{}

func (unavailableDB) QueryRow(context.Context, string, ...any) pgx.Row {
	return errRow{}
}

func (unavailableDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, ErrNoDatabase
}

func (unavailableDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, ErrNoDatabase
}

func (unavailableDB) BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error) {
	return nil, ErrNoDatabase
}

type errRow struct{}

func (errRow) Scan(...any) error { return ErrNoDatabase }
