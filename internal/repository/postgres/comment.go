package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"doubtabase/internal/domain"
	"doubtabase/internal/domain/models"
	"doubtabase/internal/domain/repositories"
)

// PostgresCommentRepository implements the CommentRepository interface
type PostgresCommentRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(config *RepositoryConfig) repositories.CommentRepository {
	return &PostgresCommentRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create inserts a comment
func (r *PostgresCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (doubt_id, user_id, body)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, r.tables.DoubtComments)

	db := GetExecutor(ctx, r.pool)
	err := db.QueryRow(ctx, query, comment.DoubtID, comment.UserID, comment.Body).
		Scan(&comment.ID, &comment.CreatedAt)
	if err != nil {
		if isPgForeignKeyError(err) {
			return fmt.Errorf("doubt %s: %w", comment.DoubtID, domain.ErrNotFound)
		}
		return fmt.Errorf("create comment: %w", err)
	}

	return nil
}

// ListByDoubt returns the comments of a doubt, oldest first
func (r *PostgresCommentRepository) ListByDoubt(ctx context.Context, doubtID string) ([]models.Comment, error) {
	query := fmt.Sprintf(`
		SELECT id, doubt_id, user_id, body, created_at
		FROM %s
		WHERE doubt_id = $1
		ORDER BY created_at ASC, id ASC
	`, r.tables.DoubtComments)

	db := GetExecutor(ctx, r.pool)
	rows, err := db.Query(ctx, query, doubtID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	comments := make([]models.Comment, 0, 8)
	for rows.Next() {
		var comment models.Comment
		if err := rows.Scan(&comment.ID, &comment.DoubtID, &comment.UserID, &comment.Body, &comment.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	return comments, nil
}
