package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"doubtabase/internal/domain"
	"doubtabase/internal/domain/models"
	"doubtabase/internal/domain/repositories"
)

// PostgresDoubtRepository implements the DoubtRepository interface
type PostgresDoubtRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewDoubtRepository creates a new doubt repository
func NewDoubtRepository(config *RepositoryConfig) repositories.DoubtRepository {
	return &PostgresDoubtRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

const doubtColumns = "id, room_id, user_id, title, body_markdown, subject, subtopics, difficulty, error_tags, is_cleared, created_at, updated_at"

func scanDoubt(row interface{ Scan(...any) error }, d *models.Doubt) error {
	return row.Scan(
		&d.ID,
		&d.RoomID,
		&d.UserID,
		&d.Title,
		&d.BodyMarkdown,
		&d.Subject,
		&d.Subtopics,
		&d.Difficulty,
		&d.ErrorTags,
		&d.IsCleared,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
}

// Create inserts a doubt. The search_vector column is generated by the
// database from title, body and subject.
func (r *PostgresDoubtRepository) Create(ctx context.Context, doubt *models.Doubt) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (room_id, user_id, title, body_markdown, subject, subtopics, difficulty, error_tags, is_cleared)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`, r.tables.Doubts)

	db := GetExecutor(ctx, r.pool)
	err := db.QueryRow(ctx, query,
		doubt.RoomID,
		doubt.UserID,
		doubt.Title,
		doubt.BodyMarkdown,
		doubt.Subject,
		doubt.Subtopics,
		doubt.Difficulty,
		doubt.ErrorTags,
		doubt.IsCleared,
	).Scan(&doubt.ID, &doubt.CreatedAt, &doubt.UpdatedAt)

	if err != nil {
		if isPgForeignKeyError(err) {
			return fmt.Errorf("room %s: %w", doubt.RoomID, domain.ErrNotFound)
		}
		return fmt.Errorf("create doubt: %w", err)
	}

	return nil
}

// GetByID retrieves a doubt scoped to its creator
func (r *PostgresDoubtRepository) GetByID(ctx context.Context, id, userID string) (*models.Doubt, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE id = $1 AND user_id = $2
	`, doubtColumns, r.tables.Doubts)

	var doubt models.Doubt
	db := GetExecutor(ctx, r.pool)
	if err := scanDoubt(db.QueryRow(ctx, query, id, userID), &doubt); err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("doubt %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get doubt: %w", err)
	}

	return &doubt, nil
}

// Update applies a partial update scoped to the creator
func (r *PostgresDoubtRepository) Update(ctx context.Context, id, userID string, input *models.UpdateDoubtInput) (*models.Doubt, error) {
	sets := make([]string, 0, 8)
	args := make([]any, 0, 10)

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if input.Title != nil {
		add("title", strings.TrimSpace(*input.Title))
	}
	if input.BodyMarkdown != nil {
		add("body_markdown", *input.BodyMarkdown)
	}
	if input.Subject != nil {
		add("subject", strings.TrimSpace(*input.Subject))
	}
	if input.Subtopics != nil {
		add("subtopics", input.Subtopics)
	}
	if input.Difficulty != nil {
		add("difficulty", *input.Difficulty)
	}
	if input.ErrorTags != nil {
		add("error_tags", input.ErrorTags)
	}
	if input.IsCleared != nil {
		add("is_cleared", *input.IsCleared)
	}
	sets = append(sets, "updated_at = now()")

	args = append(args, id, userID)
	query := fmt.Sprintf(`
		UPDATE %s SET %s
		WHERE id = $%d AND user_id = $%d
		RETURNING %s
	`, r.tables.Doubts, strings.Join(sets, ", "), len(args)-1, len(args), doubtColumns)

	var doubt models.Doubt
	db := GetExecutor(ctx, r.pool)
	if err := scanDoubt(db.QueryRow(ctx, query, args...), &doubt); err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("doubt %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("update doubt: %w", err)
	}

	return &doubt, nil
}

// SetCleared toggles is_cleared scoped to the creator
func (r *PostgresDoubtRepository) SetCleared(ctx context.Context, id, userID string, isCleared bool) (*models.Doubt, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET is_cleared = $1, updated_at = now()
		WHERE id = $2 AND user_id = $3
		RETURNING %s
	`, r.tables.Doubts, doubtColumns)

	var doubt models.Doubt
	db := GetExecutor(ctx, r.pool)
	if err := scanDoubt(db.QueryRow(ctx, query, isCleared, id, userID), &doubt); err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("doubt %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("set cleared: %w", err)
	}

	return &doubt, nil
}

// Delete removes a doubt; attachment and comment rows cascade
func (r *PostgresDoubtRepository) Delete(ctx context.Context, id, userID string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = $1 AND user_id = $2
	`, r.tables.Doubts)

	db := GetExecutor(ctx, r.pool)
	result, err := db.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("delete doubt: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("doubt %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// listFilters appends the shared WHERE fragments for the listing filters.
func listFilters(where []string, args []any, q *models.ListDoubtsQuery) ([]string, []any) {
	if q.Q != "" {
		args = append(args, q.Q)
		where = append(where, fmt.Sprintf("search_vector @@ websearch_to_tsquery('english', $%d)", len(args)))
	}
	if q.Subject != "" {
		args = append(args, q.Subject)
		where = append(where, fmt.Sprintf("subject = $%d", len(args)))
	}
	if q.Subtopic != "" {
		args = append(args, q.Subtopic)
		where = append(where, fmt.Sprintf("$%d = ANY(subtopics)", len(args)))
	}
	if q.ErrorTag != "" {
		args = append(args, q.ErrorTag)
		where = append(where, fmt.Sprintf("$%d = ANY(error_tags)", len(args)))
	}
	if q.Difficulty != "" {
		args = append(args, q.Difficulty)
		where = append(where, fmt.Sprintf("difficulty = $%d", len(args)))
	}
	if q.IsCleared != nil {
		args = append(args, *q.IsCleared)
		where = append(where, fmt.Sprintf("is_cleared = $%d", len(args)))
	}
	return where, args
}

// ListPage returns one page of the filtered listing. The page is fetched with
// limit+1 rows; the extra row only signals that more pages exist.
func (r *PostgresDoubtRepository) ListPage(ctx context.Context, roomID string, q *models.ListDoubtsQuery, before *time.Time, limit int) (*repositories.DoubtPage, error) {
	where := []string{"room_id = $1"}
	args := []any{roomID}

	where, args = listFilters(where, args, q)
	if before != nil {
		args = append(args, *before)
		where = append(where, fmt.Sprintf("created_at < $%d", len(args)))
	}

	args = append(args, limit+1)
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d
	`, doubtColumns, r.tables.Doubts, strings.Join(where, " AND "), len(args))

	db := GetExecutor(ctx, r.pool)
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list doubts: %w", err)
	}
	defer rows.Close()

	items := make([]models.Doubt, 0, limit)
	for rows.Next() {
		var doubt models.Doubt
		if err := scanDoubt(rows, &doubt); err != nil {
			return nil, fmt.Errorf("scan doubt: %w", err)
		}
		items = append(items, doubt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list doubts: %w", err)
	}

	page := &repositories.DoubtPage{Items: items}
	if len(items) > limit {
		page.Items = items[:limit]
		page.HasMore = true
	}
	return page, nil
}

// ExportPage returns rows [offset, offset+limit) of the export scan
func (r *PostgresDoubtRepository) ExportPage(ctx context.Context, roomID string, f models.ExportFilter, offset, limit int) ([]models.ExportDoubtRow, error) {
	where := []string{"room_id = $1"}
	args := []any{roomID}

	where, args = listFilters(where, args, &models.ListDoubtsQuery{
		Q:         f.Q,
		Subject:   f.Subject,
		IsCleared: f.IsCleared,
	})

	args = append(args, limit, offset)
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, doubtColumns, r.tables.Doubts, strings.Join(where, " AND "), len(args)-1, len(args))

	db := GetExecutor(ctx, r.pool)
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("export doubts: %w", err)
	}
	defer rows.Close()

	return collectExportRows(rows)
}

// ExportByIDs returns export rows for the given ids within a room
func (r *PostgresDoubtRepository) ExportByIDs(ctx context.Context, roomID string, ids []string) ([]models.ExportDoubtRow, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE room_id = $1 AND id = ANY($2)
	`, doubtColumns, r.tables.Doubts)

	db := GetExecutor(ctx, r.pool)
	rows, err := db.Query(ctx, query, roomID, ids)
	if err != nil {
		return nil, fmt.Errorf("export doubts by id: %w", err)
	}
	defer rows.Close()

	return collectExportRows(rows)
}

func collectExportRows(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
}) ([]models.ExportDoubtRow, error) {
	var out []models.ExportDoubtRow
	for rows.Next() {
		var row models.ExportDoubtRow
		err := rows.Scan(
			&row.ID,
			&row.RoomID,
			&row.UserID,
			&row.Title,
			&row.BodyMarkdown,
			&row.Subject,
			&row.Subtopics,
			&row.Difficulty,
			&row.ErrorTags,
			&row.IsCleared,
			&row.CreatedAt,
			&row.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan export row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("export rows: %w", err)
	}
	return out, nil
}

// Suggestions collects subject/tag values from the most recently updated rows
// of a room, newest first, deduplicated in scan order.
func (r *PostgresDoubtRepository) Suggestions(ctx context.Context, roomID string, scan int) (*models.Suggestions, error) {
	query := fmt.Sprintf(`
		SELECT subject, subtopics, error_tags
		FROM %s
		WHERE room_id = $1
		ORDER BY updated_at DESC
		LIMIT $2
	`, r.tables.Doubts)

	db := GetExecutor(ctx, r.pool)
	rows, err := db.Query(ctx, query, roomID, scan)
	if err != nil {
		return nil, fmt.Errorf("suggestions: %w", err)
	}
	defer rows.Close()

	suggestions := &models.Suggestions{
		Subjects:  []string{},
		Subtopics: []string{},
		ErrorTags: []string{},
	}
	seenSubjects := map[string]struct{}{}
	seenSubtopics := map[string]struct{}{}
	seenErrorTags := map[string]struct{}{}

	for rows.Next() {
		var subject string
		var subtopics, errorTags []string
		if err := rows.Scan(&subject, &subtopics, &errorTags); err != nil {
			return nil, fmt.Errorf("scan suggestions: %w", err)
		}

		if _, ok := seenSubjects[subject]; !ok && subject != "" {
			seenSubjects[subject] = struct{}{}
			suggestions.Subjects = append(suggestions.Subjects, subject)
		}
		for _, tag := range subtopics {
			if _, ok := seenSubtopics[tag]; !ok {
				seenSubtopics[tag] = struct{}{}
				suggestions.Subtopics = append(suggestions.Subtopics, tag)
			}
		}
		for _, tag := range errorTags {
			if _, ok := seenErrorTags[tag]; !ok {
				seenErrorTags[tag] = struct{}{}
				suggestions.ErrorTags = append(suggestions.ErrorTags, tag)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("suggestions: %w", err)
	}

	return suggestions, nil
}
