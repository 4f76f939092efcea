package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"doubtabase/internal/auth"
	"doubtabase/internal/config"
	"doubtabase/internal/domain"
	"doubtabase/internal/domain/models"
	"doubtabase/internal/domain/repositories"
)

// RoomService manages rooms, memberships and invite codes.
type RoomService struct {
	roomRepo   repositories.RoomRepository
	inviteRepo repositories.InviteRepository
	txManager  repositories.TransactionManager
	logger     *slog.Logger
}

// NewRoomService creates a new room service
func NewRoomService(roomRepo repositories.RoomRepository, inviteRepo repositories.InviteRepository, txManager repositories.TransactionManager, logger *slog.Logger) *RoomService {
	return &RoomService{
		roomRepo:   roomRepo,
		inviteRepo: inviteRepo,
		txManager:  txManager,
		logger:     logger,
	}
}

// EnsurePersonalRoom returns the user's personal room, creating it (and its
// owner membership) on first touch.
func (s *RoomService) EnsurePersonalRoom(ctx context.Context, userID string) (*models.Room, error) {
	room, err := s.roomRepo.GetPersonal(ctx, userID)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	room = &models.Room{
		Name:        "Personal",
		IsPersonal:  true,
		OwnerUserID: userID,
	}
	if err := s.roomRepo.Create(ctx, room); err != nil {
		// A concurrent request may have created it first.
		if errors.Is(err, domain.ErrConflict) {
			return s.roomRepo.GetPersonal(ctx, userID)
		}
		return nil, err
	}

	member := &models.RoomMember{RoomID: room.ID, UserID: userID, Role: models.RoomRoleOwner}
	if err := s.roomRepo.UpsertMember(ctx, member); err != nil {
		// Compensating delete; a personal room without its owner membership
		// would be unreachable forever.
		if delErr := s.roomRepo.Delete(ctx, room.ID); delErr != nil {
			s.logger.Warn("failed to compensate personal room creation", "room_id", room.ID, "error", delErr)
		}
		return nil, fmt.Errorf("create personal room membership: %w", err)
	}

	return room, nil
}

// ResolveRoomContext loads the room the request operates in and the caller's
// role in it. Nil roomID means the caller's personal room. Non-members get
// domain.ErrForbidden.
func (s *RoomService) ResolveRoomContext(ctx context.Context, roomID *string, userID string) (*models.RoomContext, error) {
	if roomID == nil || *roomID == "" {
		room, err := s.EnsurePersonalRoom(ctx, userID)
		if err != nil {
			return nil, err
		}
		return &models.RoomContext{
			ID:          room.ID,
			Name:        room.Name,
			IsPersonal:  room.IsPersonal,
			OwnerUserID: room.OwnerUserID,
			Role:        models.RoomRoleOwner,
		}, nil
	}

	room, err := s.roomRepo.GetByID(ctx, *roomID)
	if err != nil {
		return nil, err
	}

	member, err := s.roomRepo.GetMembership(ctx, room.ID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("not a member of room %s: %w", room.ID, domain.ErrForbidden)
		}
		return nil, err
	}

	return &models.RoomContext{
		ID:          room.ID,
		Name:        room.Name,
		IsPersonal:  room.IsPersonal,
		OwnerUserID: room.OwnerUserID,
		Role:        member.Role,
	}, nil
}

// RoomList is the membership-joined listing plus the room selected by default.
type RoomList struct {
	Rooms         []models.RoomListItem `json:"rooms"`
	DefaultRoomID string                `json:"default_room_id"`
}

// ListRooms returns every room the user belongs to, personal room first, then
// by name. The personal room is created on first call.
func (s *RoomService) ListRooms(ctx context.Context, userID string) (*RoomList, error) {
	personal, err := s.EnsurePersonalRoom(ctx, userID)
	if err != nil {
		return nil, err
	}

	memberships, err := s.roomRepo.ListMembershipsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	roleByRoom := make(map[string]models.RoomRole, len(memberships))
	roomIDs := make([]string, 0, len(memberships))
	for _, m := range memberships {
		roleByRoom[m.RoomID] = m.Role
		roomIDs = append(roomIDs, m.RoomID)
	}

	rooms, err := s.roomRepo.ListByIDs(ctx, roomIDs)
	if err != nil {
		return nil, err
	}
	counts, err := s.roomRepo.MemberCounts(ctx, roomIDs)
	if err != nil {
		return nil, err
	}

	items := make([]models.RoomListItem, 0, len(rooms))
	for _, room := range rooms {
		items = append(items, models.RoomListItem{
			Room:        room,
			Role:        roleByRoom[room.ID],
			MemberCount: counts[room.ID],
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].IsPersonal != items[j].IsPersonal {
			return items[i].IsPersonal
		}
		return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
	})

	return &RoomList{Rooms: items, DefaultRoomID: personal.ID}, nil
}

// CreateRoom creates a shared room with the caller as owner. The membership
// insert is compensated by deleting the room, so a half-created room never
// lingers.
func (s *RoomService) CreateRoom(ctx context.Context, userID, name string) (*models.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > config.MaxRoomNameLength {
		return nil, &domain.FieldError{
			Field:   "name",
			Message: fmt.Sprintf("length must be between 1 and %d", config.MaxRoomNameLength),
		}
	}

	room := &models.Room{Name: name, IsPersonal: false, OwnerUserID: userID}
	if err := s.roomRepo.Create(ctx, room); err != nil {
		return nil, err
	}

	member := &models.RoomMember{RoomID: room.ID, UserID: userID, Role: models.RoomRoleOwner}
	if err := s.roomRepo.UpsertMember(ctx, member); err != nil {
		if delErr := s.roomRepo.Delete(ctx, room.ID); delErr != nil {
			s.logger.Warn("failed to compensate room creation", "room_id", room.ID, "error", delErr)
		}
		return nil, fmt.Errorf("create owner membership: %w", err)
	}

	return room, nil
}

// JoinByCode resolves an invite code and adds the caller as a member.
func (s *RoomService) JoinByCode(ctx context.Context, userID, code string) (*models.Room, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, &domain.FieldError{Field: "code", Message: "cannot be blank"}
	}

	invite, err := s.inviteRepo.GetActiveByHash(ctx, auth.HashInviteCode(code))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("invite code: %w", domain.ErrNotFound)
		}
		return nil, err
	}

	room, err := s.roomRepo.GetByID(ctx, invite.RoomID)
	if err != nil {
		return nil, err
	}

	member := &models.RoomMember{RoomID: room.ID, UserID: userID, Role: models.RoomRoleMember}
	if err := s.roomRepo.UpsertMember(ctx, member); err != nil {
		return nil, err
	}

	return room, nil
}

// ListMembers returns the members of a room the caller belongs to.
func (s *RoomService) ListMembers(ctx context.Context, roomID, userID string) ([]models.RoomMember, error) {
	if _, err := s.ResolveRoomContext(ctx, &roomID, userID); err != nil {
		return nil, err
	}
	return s.roomRepo.ListMembers(ctx, roomID)
}

// RotateInvite revokes the room's active invite codes and mints a fresh one.
// Owner only; personal rooms are never joinable.
func (s *RoomService) RotateInvite(ctx context.Context, roomID, userID string) (string, error) {
	rc, err := s.ResolveRoomContext(ctx, &roomID, userID)
	if err != nil {
		return "", err
	}
	if rc.Role != models.RoomRoleOwner {
		return "", fmt.Errorf("invite rotation is owner-only: %w", domain.ErrForbidden)
	}
	if rc.IsPersonal {
		return "", &domain.FieldError{Field: "room_id", Message: "personal rooms cannot be shared"}
	}

	code, hash, err := auth.CreateInviteCode()
	if err != nil {
		return "", err
	}

	// Revoke and mint atomically so the room never ends up with zero or two
	// active codes.
	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.inviteRepo.RevokeAllForRoom(ctx, roomID); err != nil {
			return err
		}
		invite := &models.RoomInvite{RoomID: roomID, TokenHash: hash, CreatedByUserID: userID}
		return s.inviteRepo.Create(ctx, invite)
	})
	if err != nil {
		return "", err
	}

	return code, nil
}
