// Package db provides the PostgreSQL plumbing used by the tenant store and
// by batch loaders.
//
// It wraps [github.com/jackc/pgx/v5/pgxpool] with startup retries, a health
// check and goose migrations ([github.com/pressly/goose/v3]).
//
// # Configuration
//
// [Config] is parsed from the environment under the "DATABASE_" prefix:
//
//	DATABASE_CONN_URL           - PostgreSQL connection URL
//	DATABASE_AUTO_MIGRATE       - Apply embedded migrations on start (default: true)
//	DATABASE_MIGRATIONS_TABLE   - Migrations table name (default: schema_migrations)
//	DATABASE_MAX_OPEN_CONNS     - Maximum open connections (default: 10)
//	DATABASE_MIN_CONNS          - Minimum idle connections (default: 2)
//	DATABASE_HEALTHCHECK_PERIOD - Health check interval (default: 1m)
//	DATABASE_MAX_CONN_IDLE_TIME - Maximum connection idle time (default: 10m)
//	DATABASE_MAX_CONN_LIFETIME  - Maximum connection lifetime (default: 30m)
//	DATABASE_RETRY_ATTEMPTS     - Connection attempts (default: 3)
//	DATABASE_RETRY_INTERVAL     - Base retry interval (default: 5s)
//
// # Usage
//
//	pool, err := db.Connect(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if err := db.Migrate(ctx, pool, tenant.Migrations(), cfg.Database.MigrationsTable, log); err != nil {
//	    return err
//	}
//
// # Batch Fetching
//
// [FetchByKeys] and [FetchGrouped] turn a key set into one "= ANY($1)" query.
// They have the shape a batch loader function needs:
//
//	fetch := func(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Project, error) {
//	    return db.FetchByKeys(ctx, pool,
//	        `SELECT id, name FROM projects WHERE id = ANY($1)`, ids, scanProject)
//	}
//
// # Errors
//
//   - [ErrEmptyConnectionString] - No connection URL configured
//   - [ErrFailedToParseDBConfig] - Invalid connection URL
//   - [ErrFailedToOpenDBConnection] - Connection failed after all retry attempts
//   - [ErrHealthcheckFailed] - Ping failed
//   - [ErrSetDialect], [ErrApplyMigrations] - Migration failures
//   - [ErrBatchQuery] - Batch query or row scan failed
package db
