package pgstore

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the part of pgxpool.Pool and pgx.Tx used by Store.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Store implements notifications.Storage, notifications.PreferenceStore,
// notifications.StatsStore, notifications.FileIndexStore and
// digest.DirectoryStore on PostgreSQL.
type Store struct {
	db DB
}

// New creates a store on top of a pool or transaction.
func New(db DB) *Store {
	return &Store{db: db}
}
