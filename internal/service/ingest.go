package service

import (
	"context"
	"fmt"
	"log/slog"

	"doubtabase/internal/auth"
	"doubtabase/internal/config"
	"doubtabase/internal/domain"
	"doubtabase/internal/domain/models"
	"doubtabase/internal/domain/repositories"
	"doubtabase/internal/doubts"
)

// IngestService implements the programmatic doubt-creation pipeline and the
// API key lifecycle behind it.
type IngestService struct {
	doubtRepo      repositories.DoubtRepository
	attachmentRepo repositories.AttachmentRepository
	keyRepo        repositories.IngestKeyRepository
	rooms          *RoomService
	blobs          repositories.BlobStore
	logger         *slog.Logger
}

// NewIngestService creates a new ingest service
func NewIngestService(
	doubtRepo repositories.DoubtRepository,
	attachmentRepo repositories.AttachmentRepository,
	keyRepo repositories.IngestKeyRepository,
	rooms *RoomService,
	blobs repositories.BlobStore,
	logger *slog.Logger,
) *IngestService {
	return &IngestService{
		doubtRepo:      doubtRepo,
		attachmentRepo: attachmentRepo,
		keyRepo:        keyRepo,
		rooms:          rooms,
		blobs:          blobs,
		logger:         logger,
	}
}

// UserForKey resolves a raw ingest API key to its owning user id.
func (s *IngestService) UserForKey(ctx context.Context, rawKey string) (string, error) {
	key, err := s.keyRepo.GetActiveByHash(ctx, auth.HashIngestAPIKey(rawKey))
	if err != nil {
		if err == domain.ErrNotFound {
			return "", fmt.Errorf("%w: unknown api key", domain.ErrUnauthorized)
		}
		return "", err
	}
	return key.UserID, nil
}

// RotatedKey carries a freshly minted key. Key is shown exactly once.
type RotatedKey struct {
	Key       string            `json:"key"`
	KeyRecord *models.IngestKey `json:"key_record"`
}

// RotateKey revokes every active key of the user and mints a new one.
func (s *IngestService) RotateKey(ctx context.Context, userID string) (*RotatedKey, error) {
	if err := s.keyRepo.RevokeAllForUser(ctx, userID); err != nil {
		return nil, err
	}

	raw, hash, prefix, err := auth.CreateIngestAPIKey()
	if err != nil {
		return nil, err
	}

	record := &models.IngestKey{UserID: userID, KeyHash: hash, KeyPrefix: prefix}
	if err := s.keyRepo.Create(ctx, record); err != nil {
		return nil, err
	}

	return &RotatedKey{Key: raw, KeyRecord: record}, nil
}

// compensation is one recorded undo step of a partially completed ingest.
type compensation struct {
	desc string
	undo func(ctx context.Context) error
}

// Ingest assembles a doubt from the request, writes it into the user's
// personal room, then stores each attachment in order. Every completed write
// records an undo step; any failure runs the steps newest-first and returns
// the original error. Undo failures are logged and skipped so the remaining
// steps still run.
func (s *IngestService) Ingest(ctx context.Context, userID string, input *doubts.IngestInput) (*models.Doubt, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	createInput, err := doubts.CreateInputFromIngest(input)
	if err != nil {
		return nil, err
	}

	room, err := s.rooms.EnsurePersonalRoom(ctx, userID)
	if err != nil {
		return nil, err
	}

	doubt := &models.Doubt{
		RoomID:       room.ID,
		UserID:       userID,
		Title:        createInput.Title,
		BodyMarkdown: createInput.BodyMarkdown,
		Subject:      createInput.Subject,
		Subtopics:    createInput.Subtopics,
		Difficulty:   createInput.Difficulty,
		ErrorTags:    createInput.ErrorTags,
		IsCleared:    createInput.IsCleared,
	}
	if err := s.doubtRepo.Create(ctx, doubt); err != nil {
		return nil, err
	}

	undo := []compensation{{
		desc: "delete doubt " + doubt.ID,
		undo: func(ctx context.Context) error {
			return s.doubtRepo.Delete(ctx, doubt.ID, userID)
		},
	}}

	for i, att := range input.Attachments {
		if err := s.storeAttachment(ctx, userID, doubt.ID, i, att, &undo); err != nil {
			s.rollback(ctx, undo)
			return nil, err
		}
	}

	return doubt, nil
}

// storeAttachment decodes and persists one ingest attachment, appending an
// undo step per completed write.
func (s *IngestService) storeAttachment(ctx context.Context, userID, doubtID string, idx int, att doubts.IngestAttachment, undo *[]compensation) error {
	data, err := doubts.DecodeBase64Bytes(att.DataBase64)
	if err != nil {
		return fmt.Errorf("attachment %d: %w", idx, err)
	}
	if len(data) == 0 {
		return fmt.Errorf("attachment %d: %w: empty payload", idx, domain.ErrValidation)
	}
	if len(data) > config.MaxAttachmentBytes {
		return fmt.Errorf("attachment %d: %w: exceeds %d bytes", idx, domain.ErrValidation, config.MaxAttachmentBytes)
	}

	storagePath := AttachmentPath(userID, doubtID, att.Filename, att.MimeType)
	if err := s.blobs.Put(ctx, storagePath, data, att.MimeType); err != nil {
		return fmt.Errorf("attachment %d: %w", idx, err)
	}
	*undo = append(*undo, compensation{
		desc: "remove blob " + storagePath,
		undo: func(ctx context.Context) error {
			return s.blobs.Remove(ctx, []string{storagePath})
		},
	})

	row := &models.Attachment{
		DoubtID:     doubtID,
		StoragePath: storagePath,
		MimeType:    att.MimeType,
		SizeBytes:   int64(len(data)),
	}
	if err := s.attachmentRepo.Create(ctx, row); err != nil {
		return fmt.Errorf("attachment %d: %w", idx, err)
	}
	*undo = append(*undo, compensation{
		desc: "delete attachment row " + row.ID,
		undo: func(ctx context.Context) error {
			return s.attachmentRepo.Delete(ctx, row.ID)
		},
	})

	return nil
}

// rollback runs the recorded undo steps newest-first.
func (s *IngestService) rollback(ctx context.Context, undo []compensation) {
	for i := len(undo) - 1; i >= 0; i-- {
		if err := undo[i].undo(ctx); err != nil {
			s.logger.Warn("ingest rollback step failed", "step", undo[i].desc, "error", err)
		}
	}
}
