package tenant

import (
	"context"
	"embed"
	"errors"
	"io/fs"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/dataguard/pkg/db"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations returns the goose migrations creating the tenants table,
// rooted so that db.Migrate can apply them from ".".
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

const selectTenant = `SELECT id, slug, name, COALESCE(domain, ''), settings, is_active FROM tenants`

// PostgresStore looks tenants up in the tenants table.
type PostgresStore struct {
	q db.Querier
}

// NewPostgresStore creates a store on top of a pgx pool or transaction.
func NewPostgresStore(q db.Querier) *PostgresStore {
	return &PostgresStore{q: q}
}

// Lookup implements Store.
func (s *PostgresStore) Lookup(ctx context.Context, id Identifier) (*Tenant, error) {
	var (
		query string
		arg   any
	)

	switch id.Kind {
	case KindSlug:
		query, arg = selectTenant+` WHERE slug = $1`, id.Value
	case KindHost:
		query, arg = selectTenant+` WHERE lower(domain) = $1`, id.Value
	case KindID:
		uid, err := uuid.Parse(id.Value)
		if err != nil {
			return nil, errors.Join(ErrInvalidIdentifier, err)
		}
		query, arg = selectTenant+` WHERE id = $1`, uid
	default:
		return nil, ErrInvalidIdentifier
	}

	t, err := scanTenant(s.q.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// FetchByIDs loads tenants by id in one query. Missing ids are absent from
// the result. It matches the batch function shape expected by pkg/loader.
func (s *PostgresStore) FetchByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Tenant, error) {
	return db.FetchByKeys(ctx, s.q, selectTenant+` WHERE id = ANY($1)`, ids,
		func(row pgx.Row) (uuid.UUID, *Tenant, error) {
			t, err := scanTenant(row)
			if err != nil {
				return uuid.Nil, nil, err
			}
			return t.ID, t, nil
		},
	)
}

func scanTenant(row pgx.Row) (*Tenant, error) {
	var (
		t        Tenant
		settings []byte
	)
	if err := row.Scan(&t.ID, &t.Slug, &t.Name, &t.Domain, &settings, &t.Active); err != nil {
		return nil, err
	}
	t.Settings = settings
	return &t, nil
}
