package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"doubtabase/internal/domain"
	"doubtabase/internal/domain/models"
	"doubtabase/internal/domain/repositories"
)

// PostgresRoomRepository implements the RoomRepository interface
type PostgresRoomRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewRoomRepository creates a new room repository
func NewRoomRepository(config *RepositoryConfig) repositories.RoomRepository {
	return &PostgresRoomRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

const roomColumns = "id, name, is_personal, owner_user_id, created_at, updated_at"

// Create inserts a room
func (r *PostgresRoomRepository) Create(ctx context.Context, room *models.Room) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (name, is_personal, owner_user_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, r.tables.Rooms)

	db := GetExecutor(ctx, r.pool)
	err := db.QueryRow(ctx, query, room.Name, room.IsPersonal, room.OwnerUserID).
		Scan(&room.ID, &room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		if isPgDuplicateError(err) {
			return fmt.Errorf("personal room already exists: %w", domain.ErrConflict)
		}
		return fmt.Errorf("create room: %w", err)
	}

	return nil
}

// Delete removes a room. Used as the compensating action when creation of the
// owner membership fails.
func (r *PostgresRoomRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Rooms)

	db := GetExecutor(ctx, r.pool)
	result, err := db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("room %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// GetByID retrieves a room
func (r *PostgresRoomRepository) GetByID(ctx context.Context, id string) (*models.Room, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, roomColumns, r.tables.Rooms)

	var room models.Room
	db := GetExecutor(ctx, r.pool)
	err := db.QueryRow(ctx, query, id).Scan(
		&room.ID, &room.Name, &room.IsPersonal, &room.OwnerUserID, &room.CreatedAt, &room.UpdatedAt,
	)
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("room %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get room: %w", err)
	}

	return &room, nil
}

// GetPersonal retrieves a user's personal room
func (r *PostgresRoomRepository) GetPersonal(ctx context.Context, userID string) (*models.Room, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE owner_user_id = $1 AND is_personal
	`, roomColumns, r.tables.Rooms)

	var room models.Room
	db := GetExecutor(ctx, r.pool)
	err := db.QueryRow(ctx, query, userID).Scan(
		&room.ID, &room.Name, &room.IsPersonal, &room.OwnerUserID, &room.CreatedAt, &room.UpdatedAt,
	)
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("personal room: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get personal room: %w", err)
	}

	return &room, nil
}

// ListByIDs retrieves rooms by id
func (r *PostgresRoomRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Room, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ANY($1)`, roomColumns, r.tables.Rooms)

	db := GetExecutor(ctx, r.pool)
	rows, err := db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	rooms := make([]models.Room, 0, len(ids))
	for rows.Next() {
		var room models.Room
		err := rows.Scan(&room.ID, &room.Name, &room.IsPersonal, &room.OwnerUserID, &room.CreatedAt, &room.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}

	return rooms, nil
}

// GetMembership returns a membership row
func (r *PostgresRoomRepository) GetMembership(ctx context.Context, roomID, userID string) (*models.RoomMember, error) {
	query := fmt.Sprintf(`
		SELECT room_id, user_id, role, created_at
		FROM %s
		WHERE room_id = $1 AND user_id = $2
	`, r.tables.RoomMembers)

	var member models.RoomMember
	db := GetExecutor(ctx, r.pool)
	err := db.QueryRow(ctx, query, roomID, userID).
		Scan(&member.RoomID, &member.UserID, &member.Role, &member.CreatedAt)
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("membership: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get membership: %w", err)
	}

	return &member, nil
}

// ListMembershipsByUser returns all memberships of a user
func (r *PostgresRoomRepository) ListMembershipsByUser(ctx context.Context, userID string) ([]models.RoomMember, error) {
	query := fmt.Sprintf(`
		SELECT room_id, user_id, role, created_at
		FROM %s
		WHERE user_id = $1
	`, r.tables.RoomMembers)

	db := GetExecutor(ctx, r.pool)
	rows, err := db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	defer rows.Close()

	var members []models.RoomMember
	for rows.Next() {
		var member models.RoomMember
		if err := rows.Scan(&member.RoomID, &member.UserID, &member.Role, &member.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}

	return members, nil
}

// ListMembers returns members of a room ordered by join time
func (r *PostgresRoomRepository) ListMembers(ctx context.Context, roomID string) ([]models.RoomMember, error) {
	query := fmt.Sprintf(`
		SELECT room_id, user_id, role, created_at
		FROM %s
		WHERE room_id = $1
		ORDER BY created_at ASC
	`, r.tables.RoomMembers)

	db := GetExecutor(ctx, r.pool)
	rows, err := db.Query(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []models.RoomMember
	for rows.Next() {
		var member models.RoomMember
		if err := rows.Scan(&member.RoomID, &member.UserID, &member.Role, &member.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	return members, nil
}

// UpsertMember inserts a membership; re-joining keeps the existing row's role
// and join time.
func (r *PostgresRoomRepository) UpsertMember(ctx context.Context, member *models.RoomMember) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (room_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (room_id, user_id) DO NOTHING
	`, r.tables.RoomMembers)

	db := GetExecutor(ctx, r.pool)
	if _, err := db.Exec(ctx, query, member.RoomID, member.UserID, member.Role); err != nil {
		if isPgForeignKeyError(err) {
			return fmt.Errorf("room %s: %w", member.RoomID, domain.ErrNotFound)
		}
		return fmt.Errorf("upsert member: %w", err)
	}

	return nil
}

// MemberCounts returns the member count per room id
func (r *PostgresRoomRepository) MemberCounts(ctx context.Context, roomIDs []string) (map[string]int, error) {
	if len(roomIDs) == 0 {
		return map[string]int{}, nil
	}

	query := fmt.Sprintf(`
		SELECT room_id, COUNT(*)
		FROM %s
		WHERE room_id = ANY($1)
		GROUP BY room_id
	`, r.tables.RoomMembers)

	db := GetExecutor(ctx, r.pool)
	rows, err := db.Query(ctx, query, roomIDs)
	if err != nil {
		return nil, fmt.Errorf("member counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int, len(roomIDs))
	for rows.Next() {
		var roomID string
		var count int
		if err := rows.Scan(&roomID, &count); err != nil {
			return nil, fmt.Errorf("scan member count: %w", err)
		}
		counts[roomID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("member counts: %w", err)
	}

	return counts, nil
}

// PostgresInviteRepository implements the InviteRepository interface
type PostgresInviteRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewInviteRepository creates a new invite repository
func NewInviteRepository(config *RepositoryConfig) repositories.InviteRepository {
	return &PostgresInviteRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create inserts an invite
func (r *PostgresInviteRepository) Create(ctx context.Context, invite *models.RoomInvite) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (room_id, token_hash, created_by_user_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, r.tables.RoomInvites)

	db := GetExecutor(ctx, r.pool)
	err := db.QueryRow(ctx, query, invite.RoomID, invite.TokenHash, invite.CreatedByUserID).
		Scan(&invite.ID, &invite.CreatedAt)
	if err != nil {
		if isPgDuplicateError(err) {
			return fmt.Errorf("invite token collision: %w", domain.ErrConflict)
		}
		if isPgForeignKeyError(err) {
			return fmt.Errorf("room %s: %w", invite.RoomID, domain.ErrNotFound)
		}
		return fmt.Errorf("create invite: %w", err)
	}

	return nil
}

// GetActiveByHash returns the non-revoked invite matching a token hash
func (r *PostgresInviteRepository) GetActiveByHash(ctx context.Context, tokenHash string) (*models.RoomInvite, error) {
	query := fmt.Sprintf(`
		SELECT id, room_id, token_hash, created_by_user_id, created_at, revoked_at
		FROM %s
		WHERE token_hash = $1 AND revoked_at IS NULL
	`, r.tables.RoomInvites)

	var invite models.RoomInvite
	db := GetExecutor(ctx, r.pool)
	err := db.QueryRow(ctx, query, tokenHash).Scan(
		&invite.ID, &invite.RoomID, &invite.TokenHash,
		&invite.CreatedByUserID, &invite.CreatedAt, &invite.RevokedAt,
	)
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("invite: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get invite: %w", err)
	}

	return &invite, nil
}

// RevokeAllForRoom stamps revoked_at on every active invite of a room
func (r *PostgresInviteRepository) RevokeAllForRoom(ctx context.Context, roomID string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET revoked_at = now()
		WHERE room_id = $1 AND revoked_at IS NULL
	`, r.tables.RoomInvites)

	db := GetExecutor(ctx, r.pool)
	if _, err := db.Exec(ctx, query, roomID); err != nil {
		return fmt.Errorf("revoke invites: %w", err)
	}
	return nil
}
