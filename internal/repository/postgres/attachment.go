package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"doubtabase/internal/domain"
	"doubtabase/internal/domain/models"
	"doubtabase/internal/domain/repositories"
)

// PostgresAttachmentRepository implements the AttachmentRepository interface
type PostgresAttachmentRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewAttachmentRepository creates a new attachment repository
func NewAttachmentRepository(config *RepositoryConfig) repositories.AttachmentRepository {
	return &PostgresAttachmentRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create inserts an attachment row
func (r *PostgresAttachmentRepository) Create(ctx context.Context, attachment *models.Attachment) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (doubt_id, storage_path, mime_type, size_bytes)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, r.tables.DoubtAttachments)

	db := GetExecutor(ctx, r.pool)
	err := db.QueryRow(ctx, query,
		attachment.DoubtID,
		attachment.StoragePath,
		attachment.MimeType,
		attachment.SizeBytes,
	).Scan(&attachment.ID, &attachment.CreatedAt)

	if err != nil {
		if isPgForeignKeyError(err) {
			return fmt.Errorf("doubt %s: %w", attachment.DoubtID, domain.ErrNotFound)
		}
		return fmt.Errorf("create attachment: %w", err)
	}

	return nil
}

// GetByID retrieves a single attachment row
func (r *PostgresAttachmentRepository) GetByID(ctx context.Context, id string) (*models.Attachment, error) {
	query := fmt.Sprintf(`
		SELECT id, doubt_id, storage_path, mime_type, size_bytes, created_at
		FROM %s
		WHERE id = $1
	`, r.tables.DoubtAttachments)

	var att models.Attachment
	db := GetExecutor(ctx, r.pool)
	err := db.QueryRow(ctx, query, id).Scan(
		&att.ID,
		&att.DoubtID,
		&att.StoragePath,
		&att.MimeType,
		&att.SizeBytes,
		&att.CreatedAt,
	)
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("attachment %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get attachment: %w", err)
	}

	return &att, nil
}

// Delete removes an attachment row
func (r *PostgresAttachmentRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = $1
	`, r.tables.DoubtAttachments)

	db := GetExecutor(ctx, r.pool)
	result, err := db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("attachment %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// ListByDoubt returns all attachments of a doubt, newest first
func (r *PostgresAttachmentRepository) ListByDoubt(ctx context.Context, doubtID string) ([]models.Attachment, error) {
	query := fmt.Sprintf(`
		SELECT id, doubt_id, storage_path, mime_type, size_bytes, created_at
		FROM %s
		WHERE doubt_id = $1
		ORDER BY created_at DESC, id DESC
	`, r.tables.DoubtAttachments)

	db := GetExecutor(ctx, r.pool)
	rows, err := db.Query(ctx, query, doubtID)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	attachments := make([]models.Attachment, 0, 4)
	for rows.Next() {
		var att models.Attachment
		err := rows.Scan(&att.ID, &att.DoubtID, &att.StoragePath, &att.MimeType, &att.SizeBytes, &att.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		attachments = append(attachments, att)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}

	return attachments, nil
}

// CountByDoubt counts the attachments of a doubt
func (r *PostgresAttachmentRepository) CountByDoubt(ctx context.Context, doubtID string) (int, error) {
	query := fmt.Sprintf(`
		SELECT COUNT(*) FROM %s WHERE doubt_id = $1
	`, r.tables.DoubtAttachments)

	var count int
	db := GetExecutor(ctx, r.pool)
	if err := db.QueryRow(ctx, query, doubtID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count attachments: %w", err)
	}
	return count, nil
}

// StoragePathsByDoubt returns the storage paths of all attachments of a doubt
func (r *PostgresAttachmentRepository) StoragePathsByDoubt(ctx context.Context, doubtID string) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT storage_path FROM %s WHERE doubt_id = $1
	`, r.tables.DoubtAttachments)

	db := GetExecutor(ctx, r.pool)
	rows, err := db.Query(ctx, query, doubtID)
	if err != nil {
		return nil, fmt.Errorf("attachment paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("scan path: %w", err)
		}
		paths = append(paths, path)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("attachment paths: %w", err)
	}

	return paths, nil
}

// FirstPathByDoubtIDs returns, per doubt id, the storage path of its most
// recently created attachment. Used to decorate listings with a thumbnail.
func (r *PostgresAttachmentRepository) FirstPathByDoubtIDs(ctx context.Context, doubtIDs []string) (map[string]string, error) {
	if len(doubtIDs) == 0 {
		return map[string]string{}, nil
	}

	query := fmt.Sprintf(`
		SELECT DISTINCT ON (doubt_id) doubt_id, storage_path
		FROM %s
		WHERE doubt_id = ANY($1)
		ORDER BY doubt_id, created_at DESC, id DESC
	`, r.tables.DoubtAttachments)

	db := GetExecutor(ctx, r.pool)
	rows, err := db.Query(ctx, query, doubtIDs)
	if err != nil {
		return nil, fmt.Errorf("first attachment paths: %w", err)
	}
	defer rows.Close()

	paths := make(map[string]string, len(doubtIDs))
	for rows.Next() {
		var doubtID, path string
		if err := rows.Scan(&doubtID, &path); err != nil {
			return nil, fmt.Errorf("scan first path: %w", err)
		}
		paths[doubtID] = path
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("first attachment paths: %w", err)
	}

	return paths, nil
}

// ExportPage returns rows [offset, offset+limit) of the attachments of the
// given doubts under (created_at ASC, id ASC) order
func (r *PostgresAttachmentRepository) ExportPage(ctx context.Context, doubtIDs []string, offset, limit int) ([]models.ExportAttachmentRow, error) {
	if len(doubtIDs) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT id, doubt_id, storage_path, mime_type, size_bytes, created_at
		FROM %s
		WHERE doubt_id = ANY($1)
		ORDER BY created_at ASC, id ASC
		LIMIT $2 OFFSET $3
	`, r.tables.DoubtAttachments)

	db := GetExecutor(ctx, r.pool)
	rows, err := db.Query(ctx, query, doubtIDs, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("export attachments: %w", err)
	}
	defer rows.Close()

	var out []models.ExportAttachmentRow
	for rows.Next() {
		var row models.ExportAttachmentRow
		err := rows.Scan(&row.ID, &row.DoubtID, &row.StoragePath, &row.MimeType, &row.SizeBytes, &row.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan export attachment: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("export attachments: %w", err)
	}

	return out, nil
}
