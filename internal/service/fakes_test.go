package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"doubtabase/internal/domain"
	"doubtabase/internal/domain/models"
	"doubtabase/internal/domain/repositories"
)

// In-memory repository fakes shared by the service tests.

type fakeRoomRepo struct {
	mu      sync.Mutex
	rooms   map[string]*models.Room
	members map[string][]models.RoomMember
}

func newFakeRoomRepo() *fakeRoomRepo {
	return &fakeRoomRepo{
		rooms:   make(map[string]*models.Room),
		members: make(map[string][]models.RoomMember),
	}
}

func (r *fakeRoomRepo) Create(_ context.Context, room *models.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if room.IsPersonal {
		for _, existing := range r.rooms {
			if existing.IsPersonal && existing.OwnerUserID == room.OwnerUserID {
				return fmt.Errorf("%w: personal room already exists", domain.ErrConflict)
			}
		}
	}
	room.ID = uuid.NewString()
	room.CreatedAt = time.Now()
	room.UpdatedAt = room.CreatedAt
	clone := *room
	r.rooms[room.ID] = &clone
	return nil
}

func (r *fakeRoomRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, id)
	delete(r.members, id)
	return nil
}

func (r *fakeRoomRepo) GetByID(_ context.Context, id string) (*models.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *room
	return &clone, nil
}

func (r *fakeRoomRepo) GetPersonal(_ context.Context, userID string) (*models.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, room := range r.rooms {
		if room.IsPersonal && room.OwnerUserID == userID {
			clone := *room
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeRoomRepo) ListByIDs(_ context.Context, ids []string) ([]models.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Room
	for _, id := range ids {
		if room, ok := r.rooms[id]; ok {
			out = append(out, *room)
		}
	}
	return out, nil
}

func (r *fakeRoomRepo) GetMembership(_ context.Context, roomID, userID string) (*models.RoomMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members[roomID] {
		if m.UserID == userID {
			clone := m
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeRoomRepo) ListMembershipsByUser(_ context.Context, userID string) ([]models.RoomMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.RoomMember
	for _, members := range r.members {
		for _, m := range members {
			if m.UserID == userID {
				out = append(out, m)
			}
		}
	}
	return out, nil
}

func (r *fakeRoomRepo) ListMembers(_ context.Context, roomID string) ([]models.RoomMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.RoomMember, len(r.members[roomID]))
	copy(out, r.members[roomID])
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeRoomRepo) UpsertMember(_ context.Context, member *models.RoomMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[member.RoomID]; !ok {
		return domain.ErrNotFound
	}
	for _, m := range r.members[member.RoomID] {
		if m.UserID == member.UserID {
			return nil
		}
	}
	member.CreatedAt = time.Now()
	r.members[member.RoomID] = append(r.members[member.RoomID], *member)
	return nil
}

func (r *fakeRoomRepo) MemberCounts(_ context.Context, roomIDs []string) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int, len(roomIDs))
	for _, id := range roomIDs {
		counts[id] = len(r.members[id])
	}
	return counts, nil
}

// fakeTxManager runs the function directly; the fakes have no transactions.
type fakeTxManager struct{}

func (fakeTxManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	return fn(ctx)
}

type fakeInviteRepo struct {
	mu      sync.Mutex
	invites map[string]*models.RoomInvite
}

func newFakeInviteRepo() *fakeInviteRepo {
	return &fakeInviteRepo{invites: make(map[string]*models.RoomInvite)}
}

func (r *fakeInviteRepo) Create(_ context.Context, invite *models.RoomInvite) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	invite.ID = uuid.NewString()
	invite.CreatedAt = time.Now()
	clone := *invite
	r.invites[invite.ID] = &clone
	return nil
}

func (r *fakeInviteRepo) GetActiveByHash(_ context.Context, tokenHash string) (*models.RoomInvite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.invites {
		if inv.TokenHash == tokenHash && inv.RevokedAt == nil {
			clone := *inv
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeInviteRepo) RevokeAllForRoom(_ context.Context, roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, inv := range r.invites {
		if inv.RoomID == roomID && inv.RevokedAt == nil {
			inv.RevokedAt = &now
		}
	}
	return nil
}

type fakeDoubtRepo struct {
	mu     sync.Mutex
	doubts map[string]*models.Doubt

	createErr error
}

func newFakeDoubtRepo() *fakeDoubtRepo {
	return &fakeDoubtRepo{doubts: make(map[string]*models.Doubt)}
}

func (r *fakeDoubtRepo) Create(_ context.Context, doubt *models.Doubt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	doubt.ID = uuid.NewString()
	doubt.CreatedAt = time.Now()
	doubt.UpdatedAt = doubt.CreatedAt
	clone := *doubt
	r.doubts[doubt.ID] = &clone
	return nil
}

func (r *fakeDoubtRepo) GetByID(_ context.Context, id, userID string) (*models.Doubt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doubt, ok := r.doubts[id]
	if !ok || doubt.UserID != userID {
		return nil, domain.ErrNotFound
	}
	clone := *doubt
	return &clone, nil
}

func (r *fakeDoubtRepo) Update(_ context.Context, id, userID string, input *models.UpdateDoubtInput) (*models.Doubt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doubt, ok := r.doubts[id]
	if !ok || doubt.UserID != userID {
		return nil, domain.ErrNotFound
	}
	if input.Title != nil {
		doubt.Title = *input.Title
	}
	if input.IsCleared != nil {
		doubt.IsCleared = *input.IsCleared
	}
	doubt.UpdatedAt = time.Now()
	clone := *doubt
	return &clone, nil
}

func (r *fakeDoubtRepo) SetCleared(_ context.Context, id, userID string, isCleared bool) (*models.Doubt, error) {
	return r.Update(context.Background(), id, userID, &models.UpdateDoubtInput{IsCleared: &isCleared})
}

func (r *fakeDoubtRepo) Delete(_ context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doubt, ok := r.doubts[id]
	if !ok || doubt.UserID != userID {
		return domain.ErrNotFound
	}
	delete(r.doubts, id)
	return nil
}

func (r *fakeDoubtRepo) ListPage(_ context.Context, roomID string, _ *models.ListDoubtsQuery, before *time.Time, limit int) (*repositories.DoubtPage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []models.Doubt
	for _, d := range r.doubts {
		if d.RoomID != roomID {
			continue
		}
		if before != nil && !d.CreatedAt.Before(*before) {
			continue
		}
		items = append(items, *d)
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID > items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	page := &repositories.DoubtPage{Items: items}
	if len(items) > limit {
		page.Items = items[:limit]
		page.HasMore = true
	}
	return page, nil
}

func (r *fakeDoubtRepo) exportRows(roomID string) []models.ExportDoubtRow {
	var rows []models.ExportDoubtRow
	for _, d := range r.doubts {
		if d.RoomID != roomID {
			continue
		}
		rows = append(rows, models.ExportDoubtRow{
			ID:           d.ID,
			RoomID:       d.RoomID,
			UserID:       d.UserID,
			Title:        d.Title,
			BodyMarkdown: d.BodyMarkdown,
			Subject:      d.Subject,
			Subtopics:    d.Subtopics,
			Difficulty:   d.Difficulty,
			ErrorTags:    d.ErrorTags,
			IsCleared:    d.IsCleared,
			CreatedAt:    d.CreatedAt,
			UpdatedAt:    d.UpdatedAt,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].ID > rows[j].ID
		}
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})
	return rows
}

func (r *fakeDoubtRepo) ExportPage(_ context.Context, roomID string, _ models.ExportFilter, offset, limit int) ([]models.ExportDoubtRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := r.exportRows(roomID)
	if offset >= len(rows) {
		return nil, nil
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end], nil
}

func (r *fakeDoubtRepo) ExportByIDs(_ context.Context, roomID string, ids []string) ([]models.ExportDoubtRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []models.ExportDoubtRow
	for _, row := range r.exportRows(roomID) {
		if want[row.ID] {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *fakeDoubtRepo) Suggestions(_ context.Context, _ string, _ int) (*models.Suggestions, error) {
	return &models.Suggestions{Subjects: []string{}, Subtopics: []string{}, ErrorTags: []string{}}, nil
}

type fakeAttachmentRepo struct {
	mu   sync.Mutex
	rows map[string]*models.Attachment

	createErrAt int // fail the Nth Create (1-based); 0 disables
	creates     int
}

func newFakeAttachmentRepo() *fakeAttachmentRepo {
	return &fakeAttachmentRepo{rows: make(map[string]*models.Attachment)}
}

func (r *fakeAttachmentRepo) Create(_ context.Context, att *models.Attachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	if r.createErrAt > 0 && r.creates == r.createErrAt {
		return fmt.Errorf("insert failed")
	}
	att.ID = uuid.NewString()
	att.CreatedAt = time.Now()
	clone := *att
	r.rows[att.ID] = &clone
	return nil
}

func (r *fakeAttachmentRepo) GetByID(_ context.Context, id string) (*models.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	att, ok := r.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *att
	return &clone, nil
}

func (r *fakeAttachmentRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *fakeAttachmentRepo) ListByDoubt(_ context.Context, doubtID string) ([]models.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Attachment
	for _, att := range r.rows {
		if att.DoubtID == doubtID {
			out = append(out, *att)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeAttachmentRepo) CountByDoubt(_ context.Context, doubtID string) (int, error) {
	list, _ := r.ListByDoubt(context.Background(), doubtID)
	return len(list), nil
}

func (r *fakeAttachmentRepo) StoragePathsByDoubt(_ context.Context, doubtID string) ([]string, error) {
	list, _ := r.ListByDoubt(context.Background(), doubtID)
	paths := make([]string, 0, len(list))
	for _, att := range list {
		paths = append(paths, att.StoragePath)
	}
	return paths, nil
}

func (r *fakeAttachmentRepo) FirstPathByDoubtIDs(_ context.Context, doubtIDs []string) (map[string]string, error) {
	out := make(map[string]string)
	for _, id := range doubtIDs {
		list, _ := r.ListByDoubt(context.Background(), id)
		if len(list) > 0 {
			out[id] = list[0].StoragePath
		}
	}
	return out, nil
}

func (r *fakeAttachmentRepo) ExportPage(_ context.Context, doubtIDs []string, offset, limit int) ([]models.ExportAttachmentRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := make(map[string]bool, len(doubtIDs))
	for _, id := range doubtIDs {
		want[id] = true
	}
	var rows []models.ExportAttachmentRow
	for _, att := range r.rows {
		if want[att.DoubtID] {
			rows = append(rows, models.ExportAttachmentRow{
				ID:          att.ID,
				DoubtID:     att.DoubtID,
				StoragePath: att.StoragePath,
				MimeType:    att.MimeType,
				SizeBytes:   att.SizeBytes,
				CreatedAt:   att.CreatedAt,
			})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].CreatedAt.Before(rows[j].CreatedAt) })
	if offset >= len(rows) {
		return nil, nil
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end], nil
}

type fakeBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte

	putErrAt int // fail the Nth Put (1-based); 0 disables
	puts     int
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: make(map[string][]byte)}
}

func (b *fakeBlobStore) Put(_ context.Context, path string, data []byte, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.puts++
	if b.putErrAt > 0 && b.puts == b.putErrAt {
		return fmt.Errorf("%w: put refused", domain.ErrStorage)
	}
	b.blobs[path] = append([]byte(nil), data...)
	return nil
}

func (b *fakeBlobStore) Remove(_ context.Context, paths []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range paths {
		delete(b.blobs, p)
	}
	return nil
}

func (b *fakeBlobStore) Download(_ context.Context, path string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.blobs[path]
	if !ok {
		return nil, fmt.Errorf("%w: no such object", domain.ErrStorage)
	}
	return append([]byte(nil), data...), nil
}

func (b *fakeBlobStore) PresignGet(_ context.Context, path string, _ time.Duration) (string, error) {
	return "https://blobs.test/" + path + "?sig=get", nil
}

func (b *fakeBlobStore) PresignPut(_ context.Context, path string, _ time.Duration) (string, error) {
	return "https://blobs.test/" + path + "?sig=put", nil
}

type fakeKeyRepo struct {
	mu   sync.Mutex
	keys map[string]*models.IngestKey
}

func newFakeKeyRepo() *fakeKeyRepo {
	return &fakeKeyRepo{keys: make(map[string]*models.IngestKey)}
}

func (r *fakeKeyRepo) Create(_ context.Context, key *models.IngestKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key.ID = uuid.NewString()
	key.CreatedAt = time.Now()
	clone := *key
	r.keys[key.ID] = &clone
	return nil
}

func (r *fakeKeyRepo) GetActiveByHash(_ context.Context, keyHash string) (*models.IngestKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, key := range r.keys {
		if key.KeyHash == keyHash && key.RevokedAt == nil {
			clone := *key
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeKeyRepo) RevokeAllForUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, key := range r.keys {
		if key.UserID == userID && key.RevokedAt == nil {
			key.RevokedAt = &now
		}
	}
	return nil
}
