package service

import (
	"context"
	"errors"
	"testing"

	"doubtabase/internal/domain"
	"doubtabase/internal/domain/models"
)

func newRoomFixture() (*RoomService, *fakeRoomRepo, *fakeInviteRepo) {
	roomRepo := newFakeRoomRepo()
	inviteRepo := newFakeInviteRepo()
	return NewRoomService(roomRepo, inviteRepo, fakeTxManager{}, discardLogger()), roomRepo, inviteRepo
}

func TestEnsurePersonalRoomIsIdempotent(t *testing.T) {
	svc, _, _ := newRoomFixture()
	ctx := context.Background()

	first, err := svc.EnsurePersonalRoom(ctx, "user-1")
	if err != nil {
		t.Fatalf("EnsurePersonalRoom() error = %v", err)
	}
	if !first.IsPersonal || first.Name != "Personal" {
		t.Errorf("room = %+v, want personal room named Personal", first)
	}

	second, err := svc.EnsurePersonalRoom(ctx, "user-1")
	if err != nil {
		t.Fatalf("EnsurePersonalRoom() second error = %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("second call created a new room: %s vs %s", second.ID, first.ID)
	}
}

func TestResolveRoomContextDefaultsToPersonal(t *testing.T) {
	svc, _, _ := newRoomFixture()
	ctx := context.Background()

	rc, err := svc.ResolveRoomContext(ctx, nil, "user-1")
	if err != nil {
		t.Fatalf("ResolveRoomContext(nil) error = %v", err)
	}
	if !rc.IsPersonal || rc.Role != models.RoomRoleOwner {
		t.Errorf("context = %+v, want personal owner", rc)
	}

	empty := ""
	rc2, err := svc.ResolveRoomContext(ctx, &empty, "user-1")
	if err != nil {
		t.Fatalf("ResolveRoomContext(\"\") error = %v", err)
	}
	if rc2.ID != rc.ID {
		t.Errorf("empty room id resolved to %s, want %s", rc2.ID, rc.ID)
	}
}

func TestResolveRoomContextRejectsNonMembers(t *testing.T) {
	svc, _, _ := newRoomFixture()
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, "owner", "Physics Group")
	if err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}

	if _, err := svc.ResolveRoomContext(ctx, &room.ID, "stranger"); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("ResolveRoomContext(non-member) error = %v, want ErrForbidden", err)
	}
}

func TestListRoomsOrder(t *testing.T) {
	svc, _, _ := newRoomFixture()
	ctx := context.Background()

	for _, name := range []string{"zebra study", "Algebra Club"} {
		if _, err := svc.CreateRoom(ctx, "user-1", name); err != nil {
			t.Fatalf("CreateRoom(%q) error = %v", name, err)
		}
	}

	list, err := svc.ListRooms(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListRooms() error = %v", err)
	}
	if len(list.Rooms) != 3 {
		t.Fatalf("rooms = %d, want 3", len(list.Rooms))
	}

	if !list.Rooms[0].IsPersonal {
		t.Errorf("first room = %q, want the personal room", list.Rooms[0].Name)
	}
	if list.Rooms[0].ID != list.DefaultRoomID {
		t.Errorf("default room = %s, want %s", list.DefaultRoomID, list.Rooms[0].ID)
	}
	if list.Rooms[1].Name != "Algebra Club" || list.Rooms[2].Name != "zebra study" {
		t.Errorf("shared rooms ordered %q, %q; want case-insensitive name order", list.Rooms[1].Name, list.Rooms[2].Name)
	}
}

func TestJoinByCode(t *testing.T) {
	svc, _, _ := newRoomFixture()
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, "owner", "Chem Doubts")
	if err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}
	code, err := svc.RotateInvite(ctx, room.ID, "owner")
	if err != nil {
		t.Fatalf("RotateInvite() error = %v", err)
	}

	joined, err := svc.JoinByCode(ctx, "member", code)
	if err != nil {
		t.Fatalf("JoinByCode() error = %v", err)
	}
	if joined.ID != room.ID {
		t.Errorf("joined room = %s, want %s", joined.ID, room.ID)
	}

	rc, err := svc.ResolveRoomContext(ctx, &room.ID, "member")
	if err != nil {
		t.Fatalf("ResolveRoomContext(member) error = %v", err)
	}
	if rc.Role != models.RoomRoleMember {
		t.Errorf("role = %s, want member", rc.Role)
	}

	if _, err := svc.JoinByCode(ctx, "other", "not-a-real-code"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("JoinByCode(bad code) error = %v, want ErrNotFound", err)
	}
}

func TestRotateInviteInvalidatesOldCode(t *testing.T) {
	svc, _, _ := newRoomFixture()
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, "owner", "Bio Doubts")
	if err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}

	first, err := svc.RotateInvite(ctx, room.ID, "owner")
	if err != nil {
		t.Fatalf("RotateInvite() error = %v", err)
	}
	second, err := svc.RotateInvite(ctx, room.ID, "owner")
	if err != nil {
		t.Fatalf("RotateInvite() second error = %v", err)
	}

	if _, err := svc.JoinByCode(ctx, "member", first); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("JoinByCode(rotated-out code) error = %v, want ErrNotFound", err)
	}
	if _, err := svc.JoinByCode(ctx, "member", second); err != nil {
		t.Errorf("JoinByCode(current code) error = %v", err)
	}
}

func TestRotateInviteRequiresOwner(t *testing.T) {
	svc, _, _ := newRoomFixture()
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, "owner", "Maths")
	if err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}
	code, err := svc.RotateInvite(ctx, room.ID, "owner")
	if err != nil {
		t.Fatalf("RotateInvite() error = %v", err)
	}
	if _, err := svc.JoinByCode(ctx, "member", code); err != nil {
		t.Fatalf("JoinByCode() error = %v", err)
	}

	if _, err := svc.RotateInvite(ctx, room.ID, "member"); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("RotateInvite(member) error = %v, want ErrForbidden", err)
	}

	personal, _ := svc.EnsurePersonalRoom(ctx, "owner")
	if _, err := svc.RotateInvite(ctx, personal.ID, "owner"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("RotateInvite(personal) error = %v, want ErrValidation", err)
	}
}
