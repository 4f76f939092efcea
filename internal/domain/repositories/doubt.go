package repositories

import (
	"context"
	"time"

	"doubtabase/internal/domain/models"
)

// DoubtPage holds one page of a cursor-ordered listing. Rows are ordered
// (created_at DESC, id DESC); HasMore is set when the store returned more rows
// than the requested limit.
type DoubtPage struct {
	Items   []models.Doubt
	HasMore bool
}

// DoubtRepository defines data access operations for doubts
type DoubtRepository interface {
	// Create inserts a doubt and fills in its id/timestamps
	Create(ctx context.Context, doubt *models.Doubt) error

	// GetByID retrieves a doubt scoped to its creator
	GetByID(ctx context.Context, id, userID string) (*models.Doubt, error)

	// Update applies a partial update scoped to the creator; returns the
	// updated row or domain.ErrNotFound
	Update(ctx context.Context, id, userID string, input *models.UpdateDoubtInput) (*models.Doubt, error)

	// SetCleared toggles is_cleared scoped to the creator
	SetCleared(ctx context.Context, id, userID string, isCleared bool) (*models.Doubt, error)

	// Delete removes a doubt (attachment rows cascade)
	Delete(ctx context.Context, id, userID string) error

	// ListPage returns one page of the filtered listing for a room. The
	// cursor predicate, when non-nil, restricts to created_at strictly before
	// the given instant.
	ListPage(ctx context.Context, roomID string, q *models.ListDoubtsQuery, before *time.Time, limit int) (*DoubtPage, error)

	// ExportPage returns rows [offset, offset+limit) of the export scan for a
	// room under (created_at DESC, id DESC) order with the given filters.
	ExportPage(ctx context.Context, roomID string, f models.ExportFilter, offset, limit int) ([]models.ExportDoubtRow, error)

	// ExportByIDs returns export rows for the given ids within a room, in
	// store order (callers re-sort).
	ExportByIDs(ctx context.Context, roomID string, ids []string) ([]models.ExportDoubtRow, error)

	// Suggestions collects subject/tag values from the most recently updated
	// rows of a room.
	Suggestions(ctx context.Context, roomID string, scan int) (*models.Suggestions, error)
}
