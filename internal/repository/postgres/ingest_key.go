package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"doubtabase/internal/domain"
	"doubtabase/internal/domain/models"
	"doubtabase/internal/domain/repositories"
)

// PostgresIngestKeyRepository implements the IngestKeyRepository interface
type PostgresIngestKeyRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewIngestKeyRepository creates a new ingest key repository
func NewIngestKeyRepository(config *RepositoryConfig) repositories.IngestKeyRepository {
	return &PostgresIngestKeyRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create inserts a key
func (r *PostgresIngestKeyRepository) Create(ctx context.Context, key *models.IngestKey) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, key_hash, key_prefix)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, r.tables.IngestKeys)

	db := GetExecutor(ctx, r.pool)
	err := db.QueryRow(ctx, query, key.UserID, key.KeyHash, key.KeyPrefix).
		Scan(&key.ID, &key.CreatedAt)
	if err != nil {
		if isPgDuplicateError(err) {
			return fmt.Errorf("ingest key collision: %w", domain.ErrConflict)
		}
		return fmt.Errorf("create ingest key: %w", err)
	}

	return nil
}

// GetActiveByHash returns the non-revoked key matching a hash
func (r *PostgresIngestKeyRepository) GetActiveByHash(ctx context.Context, keyHash string) (*models.IngestKey, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, key_hash, key_prefix, created_at, revoked_at
		FROM %s
		WHERE key_hash = $1 AND revoked_at IS NULL
	`, r.tables.IngestKeys)

	var key models.IngestKey
	db := GetExecutor(ctx, r.pool)
	err := db.QueryRow(ctx, query, keyHash).Scan(
		&key.ID, &key.UserID, &key.KeyHash, &key.KeyPrefix, &key.CreatedAt, &key.RevokedAt,
	)
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("ingest key: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get ingest key: %w", err)
	}

	return &key, nil
}

// RevokeAllForUser stamps revoked_at on every active key of a user
func (r *PostgresIngestKeyRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET revoked_at = now()
		WHERE user_id = $1 AND revoked_at IS NULL
	`, r.tables.IngestKeys)

	db := GetExecutor(ctx, r.pool)
	if _, err := db.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("revoke ingest keys: %w", err)
	}
	return nil
}
