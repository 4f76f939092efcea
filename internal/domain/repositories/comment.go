package repositories

import (
	"context"

	"doubtabase/internal/domain/models"
)

// CommentRepository defines data access operations for doubt comments
type CommentRepository interface {
	// Create inserts a comment and fills in its id/created_at
	Create(ctx context.Context, comment *models.Comment) error

	// ListByDoubt returns the comments of a doubt, oldest first
	ListByDoubt(ctx context.Context, doubtID string) ([]models.Comment, error)
}

// IngestKeyRepository defines data access operations for ingest API keys
type IngestKeyRepository interface {
	// Create inserts a key and fills in its id/created_at
	Create(ctx context.Context, key *models.IngestKey) error

	// GetActiveByHash returns the non-revoked key matching a hash, or
	// domain.ErrNotFound
	GetActiveByHash(ctx context.Context, keyHash string) (*models.IngestKey, error)

	// RevokeAllForUser stamps revoked_at on every active key of a user
	RevokeAllForUser(ctx context.Context, userID string) error
}
