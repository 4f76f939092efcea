package repositories

import (
	"context"

	"doubtabase/internal/domain/models"
)

// RoomRepository defines data access operations for rooms and memberships
type RoomRepository interface {
	// Create inserts a room and fills in its id/timestamps
	Create(ctx context.Context, room *models.Room) error

	// Delete removes a room (compensating action for failed creation)
	Delete(ctx context.Context, id string) error

	// GetByID retrieves a room
	GetByID(ctx context.Context, id string) (*models.Room, error)

	// GetPersonal retrieves a user's personal room
	GetPersonal(ctx context.Context, userID string) (*models.Room, error)

	// ListByIDs retrieves rooms by id
	ListByIDs(ctx context.Context, ids []string) ([]models.Room, error)

	// GetMembership returns a membership row, or domain.ErrNotFound
	GetMembership(ctx context.Context, roomID, userID string) (*models.RoomMember, error)

	// ListMembershipsByUser returns all memberships of a user
	ListMembershipsByUser(ctx context.Context, userID string) ([]models.RoomMember, error)

	// ListMembers returns members of a room ordered by join time
	ListMembers(ctx context.Context, roomID string) ([]models.RoomMember, error)

	// UpsertMember inserts a membership, keeping an existing row's role on conflict
	UpsertMember(ctx context.Context, member *models.RoomMember) error

	// MemberCounts returns the member count per room id
	MemberCounts(ctx context.Context, roomIDs []string) (map[string]int, error)
}

// InviteRepository defines data access operations for room invite codes
type InviteRepository interface {
	// Create inserts an invite and fills in its id/created_at
	Create(ctx context.Context, invite *models.RoomInvite) error

	// GetActiveByHash returns the non-revoked invite matching a token hash,
	// or domain.ErrNotFound
	GetActiveByHash(ctx context.Context, tokenHash string) (*models.RoomInvite, error)

	// RevokeAllForRoom stamps revoked_at on every active invite of a room
	RevokeAllForRoom(ctx context.Context, roomID string) error
}
