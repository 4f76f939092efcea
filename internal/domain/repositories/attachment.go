package repositories

import (
	"context"

	"doubtabase/internal/domain/models"
)

// AttachmentRepository defines data access operations for doubt attachments
type AttachmentRepository interface {
	// Create inserts an attachment row and fills in its id/created_at
	Create(ctx context.Context, attachment *models.Attachment) error

	// GetByID retrieves a single attachment row
	GetByID(ctx context.Context, id string) (*models.Attachment, error)

	// Delete removes an attachment row
	Delete(ctx context.Context, id string) error

	// ListByDoubt returns all attachments of a doubt, newest first
	ListByDoubt(ctx context.Context, doubtID string) ([]models.Attachment, error)

	// CountByDoubt counts the attachments of a doubt
	CountByDoubt(ctx context.Context, doubtID string) (int, error)

	// StoragePathsByDoubt returns the storage paths of all attachments of a doubt
	StoragePathsByDoubt(ctx context.Context, doubtID string) ([]string, error)

	// FirstPathByDoubtIDs returns, per doubt id, the storage path of its most
	// recently created attachment. Doubts without attachments are absent.
	FirstPathByDoubtIDs(ctx context.Context, doubtIDs []string) (map[string]string, error)

	// ExportPage returns rows [offset, offset+limit) of the attachments of the
	// given doubts under (created_at ASC, id ASC) order.
	ExportPage(ctx context.Context, doubtIDs []string, offset, limit int) ([]models.ExportAttachmentRow, error)
}
