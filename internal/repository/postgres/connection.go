package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"doubtabase/internal/domain/repositories"
)

// RepositoryConfig holds configuration for repository implementations
type RepositoryConfig struct {
	Pool   *pgxpool.Pool
	Tables *TableNames
	Logger *slog.Logger
}

// TableNames holds dynamically prefixed table names
type TableNames struct {
	Rooms            string
	RoomMembers      string
	RoomInvites      string
	Doubts           string
	DoubtAttachments string
	DoubtComments    string
	IngestKeys       string
}

// NewTableNames creates table names with the given prefix
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Rooms:            prefix + "rooms",
		RoomMembers:      prefix + "room_members",
		RoomInvites:      prefix + "room_invites",
		Doubts:           prefix + "doubts",
		DoubtAttachments: prefix + "doubt_attachments",
		DoubtComments:    prefix + "doubt_comments",
		IngestKeys:       prefix + "ingest_keys",
	}
}

// CreateConnectionPool creates a pgx connection pool with automatic PgBouncer
// compatibility.
//
// Supabase exposes two entry points: direct Postgres on 5432, and a PgBouncer
// transaction pooler on 6543 which does not support prepared statements. When
// the pooler port is detected and the user has not set an explicit
// default_query_exec_mode, we switch to QueryExecModeCacheDescribe: it keeps
// the extended protocol (needed for proper array/jsonb encoding) while caching
// only statement descriptions, which PgBouncer tolerates.
//
// Dynamic table prefixes (dev_, test_, prod_) are interpolated into the SQL
// string before it reaches the server, so each environment gets its own
// statements and the interpolation never mixes with user data.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5

	if config.ConnConfig.Port == 6543 && config.ConnConfig.DefaultQueryExecMode == pgx.QueryExecModeCacheStatement {
		config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
		slog.Debug("auto-configured cache_describe mode for PgBouncer compatibility", "port", 6543)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// GetExecutor returns the transaction stored in the context if one is present,
// otherwise the pool. This lets repositories participate in transactions
// transparently.
func GetExecutor(ctx context.Context, pool *pgxpool.Pool) repositories.DBTX {
	if tx := repositories.GetTx(ctx); tx != nil {
		return tx
	}
	return pool
}
