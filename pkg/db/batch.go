package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ScanFunc scans one row into its key and value.
type ScanFunc[K comparable, V any] func(row pgx.Row) (K, V, error)

// FetchByKeys runs query with keys bound to $1 and indexes the rows by key.
// The query is expected to filter with "= ANY($1)". Keys without a row are
// absent from the result; a key matched by several rows keeps the last one.
//
// Example:
//
//	users, err := db.FetchByKeys(ctx, pool,
//	    `SELECT id, name FROM users WHERE tenant_id = $2 AND id = ANY($1)`, ids,
//	    scanUser, tenantID,
//	)
func FetchByKeys[K comparable, V any](ctx context.Context, q Querier, query string, keys []K, scan ScanFunc[K, V], args ...any) (map[K]V, error) {
	out := make(map[K]V, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	err := each(ctx, q, query, keys, args, func(row pgx.Row) error {
		k, v, err := scan(row)
		if err != nil {
			return err
		}
		out[k] = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FetchGrouped is FetchByKeys for one-to-many relations: rows are grouped by
// the parent key returned from scan, in query order.
func FetchGrouped[K comparable, V any](ctx context.Context, q Querier, query string, keys []K, scan ScanFunc[K, V], args ...any) (map[K][]V, error) {
	out := make(map[K][]V, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	err := each(ctx, q, query, keys, args, func(row pgx.Row) error {
		k, v, err := scan(row)
		if err != nil {
			return err
		}
		out[k] = append(out[k], v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func each[K comparable](ctx context.Context, q Querier, query string, keys []K, args []any, fn func(pgx.Row) error) error {
	rows, err := q.Query(ctx, query, append([]any{keys}, args...)...)
	if err != nil {
		return errors.Join(ErrBatchQuery, err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := fn(rows); err != nil {
			return errors.Join(ErrBatchQuery, err)
		}
	}
	if err := rows.Err(); err != nil {
		return errors.Join(ErrBatchQuery, err)
	}
	return nil
}
