package service

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"testing"

	"doubtabase/internal/auth"
	"doubtabase/internal/domain"
	"doubtabase/internal/doubts"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type ingestFixture struct {
	svc        *IngestService
	doubtRepo  *fakeDoubtRepo
	attachRepo *fakeAttachmentRepo
	keyRepo    *fakeKeyRepo
	blobs      *fakeBlobStore
}

func newIngestFixture() *ingestFixture {
	doubtRepo := newFakeDoubtRepo()
	attachRepo := newFakeAttachmentRepo()
	keyRepo := newFakeKeyRepo()
	blobs := newFakeBlobStore()
	rooms := NewRoomService(newFakeRoomRepo(), newFakeInviteRepo(), fakeTxManager{}, discardLogger())
	return &ingestFixture{
		svc:        NewIngestService(doubtRepo, attachRepo, keyRepo, rooms, blobs, discardLogger()),
		doubtRepo:  doubtRepo,
		attachRepo: attachRepo,
		keyRepo:    keyRepo,
		blobs:      blobs,
	}
}

func pngAttachment() doubts.IngestAttachment {
	return doubts.IngestAttachment{
		Filename:   "shot.png",
		MimeType:   "image/png",
		DataBase64: base64.StdEncoding.EncodeToString([]byte("fake image bytes")),
	}
}

func TestIngestCreatesDoubtInPersonalRoom(t *testing.T) {
	f := newIngestFixture()

	msg := base64.StdEncoding.EncodeToString([]byte("Limit of sin(x)/x as x approaches zero"))
	doubt, err := f.svc.Ingest(context.Background(), "user-1", &doubts.IngestInput{
		MessageBase64: msg,
		Attachments:   []doubts.IngestAttachment{pngAttachment()},
	})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if doubt.Title != "Limit of sin(x)/x as x approaches zero" {
		t.Errorf("title = %q", doubt.Title)
	}
	if doubt.Subject != "OpenClaw" {
		t.Errorf("subject = %q, want OpenClaw", doubt.Subject)
	}

	personal, err := f.svc.rooms.EnsurePersonalRoom(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("EnsurePersonalRoom() error = %v", err)
	}
	if doubt.RoomID != personal.ID {
		t.Errorf("room = %s, want personal room %s", doubt.RoomID, personal.ID)
	}

	atts, _ := f.attachRepo.ListByDoubt(context.Background(), doubt.ID)
	if len(atts) != 1 {
		t.Fatalf("attachments = %d, want 1", len(atts))
	}
	if _, err := f.blobs.Download(context.Background(), atts[0].StoragePath); err != nil {
		t.Errorf("blob missing at %s: %v", atts[0].StoragePath, err)
	}
}

func TestIngestRollsBackWhenBlobWriteFails(t *testing.T) {
	f := newIngestFixture()
	f.blobs.putErrAt = 2

	_, err := f.svc.Ingest(context.Background(), "user-1", &doubts.IngestInput{
		Attachments: []doubts.IngestAttachment{pngAttachment(), pngAttachment(), pngAttachment()},
	})
	if !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("Ingest() error = %v, want ErrStorage", err)
	}

	if n := len(f.doubtRepo.doubts); n != 0 {
		t.Errorf("doubts remaining = %d, want 0", n)
	}
	if n := len(f.attachRepo.rows); n != 0 {
		t.Errorf("attachment rows remaining = %d, want 0", n)
	}
	if n := len(f.blobs.blobs); n != 0 {
		t.Errorf("blobs remaining = %d, want 0", n)
	}
}

func TestIngestRollsBackWhenRowInsertFails(t *testing.T) {
	f := newIngestFixture()
	f.attachRepo.createErrAt = 2

	_, err := f.svc.Ingest(context.Background(), "user-1", &doubts.IngestInput{
		Attachments: []doubts.IngestAttachment{pngAttachment(), pngAttachment()},
	})
	if err == nil {
		t.Fatal("Ingest() error = nil, want failure")
	}

	if n := len(f.doubtRepo.doubts); n != 0 {
		t.Errorf("doubts remaining = %d, want 0", n)
	}
	if n := len(f.attachRepo.rows); n != 0 {
		t.Errorf("attachment rows remaining = %d, want 0", n)
	}
	// Both blobs were written before the second row insert failed; both must
	// be gone afterwards.
	if n := len(f.blobs.blobs); n != 0 {
		t.Errorf("blobs remaining = %d, want 0", n)
	}
}

func TestIngestRejectsBlankAttachmentData(t *testing.T) {
	f := newIngestFixture()

	att := pngAttachment()
	att.DataBase64 = ""
	_, err := f.svc.Ingest(context.Background(), "user-1", &doubts.IngestInput{
		Attachments: []doubts.IngestAttachment{att},
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Ingest() error = %v, want ErrValidation", err)
	}
	if n := len(f.doubtRepo.doubts); n != 0 {
		t.Errorf("doubts created = %d, want 0 on validation failure", n)
	}
}

func TestRotateKeyRevokesOldKey(t *testing.T) {
	f := newIngestFixture()
	ctx := context.Background()

	first, err := f.svc.RotateKey(ctx, "user-1")
	if err != nil {
		t.Fatalf("RotateKey() error = %v", err)
	}
	if userID, err := f.svc.UserForKey(ctx, first.Key); err != nil || userID != "user-1" {
		t.Fatalf("UserForKey(first) = %q, %v", userID, err)
	}

	second, err := f.svc.RotateKey(ctx, "user-1")
	if err != nil {
		t.Fatalf("RotateKey() second error = %v", err)
	}

	if _, err := f.svc.UserForKey(ctx, first.Key); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("UserForKey(revoked) error = %v, want ErrUnauthorized", err)
	}
	if userID, err := f.svc.UserForKey(ctx, second.Key); err != nil || userID != "user-1" {
		t.Errorf("UserForKey(second) = %q, %v", userID, err)
	}

	if want := auth.IngestKeyPrefix; second.KeyRecord.KeyPrefix[:len(want)] != want {
		t.Errorf("key prefix = %q, want %q...", second.KeyRecord.KeyPrefix, want)
	}
}
