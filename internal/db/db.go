// Package db provides shared postgres helpers for bulk replace operations.
package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// ReplaceScoped transactionally replaces every row of a table matching a
// scope column (e.g. all aggregate rows of one ledger): DELETE by scope,
// then COPY the new rows. Either both steps commit or neither does.
func ReplaceScoped(ctx context.Context, pool Pool, table, scopeColumn string, scopeValue any, columns []string, rows [][]any) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "db: replace: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	deleteSQL := "DELETE FROM " + pgx.Identifier{table}.Sanitize() +
		" WHERE " + pgx.Identifier{scopeColumn}.Sanitize() + " = $1"
	if _, err := tx.Exec(ctx, deleteSQL, scopeValue); err != nil {
		return eris.Wrapf(err, "db: replace: delete from %s", table)
	}

	if len(rows) > 0 {
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows)); err != nil {
			return eris.Wrapf(err, "db: replace: COPY into %s", table)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "db: replace: commit tx")
	}
	return nil
}
