package models

import "time"

// RoomRole is a member's role within a room.
type RoomRole string

const (
	RoomRoleOwner  RoomRole = "owner"
	RoomRoleMember RoomRole = "member"
)

// Room is a collaboration scope containing doubts and members. Every user has
// exactly one personal room; shared rooms are joined by invite code.
type Room struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	IsPersonal  bool      `json:"is_personal" db:"is_personal"`
	OwnerUserID string    `json:"owner_user_id" db:"owner_user_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// RoomContext is a room plus the requesting user's role in it. Handlers resolve
// one per request and pass it down; it is the authorization unit for doubts.
type RoomContext struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	IsPersonal  bool     `json:"is_personal"`
	OwnerUserID string   `json:"owner_user_id"`
	Role        RoomRole `json:"role"`
}

// RoomListItem is a room decorated for the membership listing.
type RoomListItem struct {
	Room
	Role        RoomRole `json:"role"`
	MemberCount int      `json:"member_count"`
}

// RoomMember is one membership row.
type RoomMember struct {
	RoomID    string    `json:"room_id" db:"room_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Role      RoomRole  `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// RoomInvite is a join code for a shared room, stored as a SHA-256 hash.
// At most one invite per room is active (revoked_at IS NULL) at a time.
type RoomInvite struct {
	ID              string     `json:"id" db:"id"`
	RoomID          string     `json:"room_id" db:"room_id"`
	TokenHash       string     `json:"-" db:"token_hash"`
	CreatedByUserID string     `json:"created_by_user_id" db:"created_by_user_id"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	RevokedAt       *time.Time `json:"revoked_at" db:"revoked_at"`
}
