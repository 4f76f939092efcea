package service

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"doubtabase/internal/auth"
	"doubtabase/internal/cache"
	"doubtabase/internal/config"
	"doubtabase/internal/domain"
	"doubtabase/internal/domain/models"
	"doubtabase/internal/domain/repositories"
	"doubtabase/internal/doubts"
	"doubtabase/internal/email"
)

const (
	// Presigned download URLs live 10 minutes; the cache entry expires two
	// minutes earlier so a cached URL is never handed out near death.
	signedURLExpiry   = 10 * time.Minute
	signedURLCacheTTL = 8 * time.Minute

	presignPutExpiry = 15 * time.Minute

	suggestionsCacheTTL = 5 * time.Minute
)

// DoubtService implements the doubt CRUD and listing operations.
type DoubtService struct {
	doubtRepo      repositories.DoubtRepository
	attachmentRepo repositories.AttachmentRepository
	commentRepo    repositories.CommentRepository
	rooms          *RoomService
	blobs          repositories.BlobStore
	cache          *cache.Cache
	mailer         *email.Service
	admin          *auth.AdminClient
	appBaseURL     string
	logger         *slog.Logger
}

// NewDoubtService creates a new doubt service
func NewDoubtService(
	doubtRepo repositories.DoubtRepository,
	attachmentRepo repositories.AttachmentRepository,
	commentRepo repositories.CommentRepository,
	rooms *RoomService,
	blobs repositories.BlobStore,
	urlCache *cache.Cache,
	mailer *email.Service,
	admin *auth.AdminClient,
	appBaseURL string,
	logger *slog.Logger,
) *DoubtService {
	return &DoubtService{
		doubtRepo:      doubtRepo,
		attachmentRepo: attachmentRepo,
		commentRepo:    commentRepo,
		rooms:          rooms,
		blobs:          blobs,
		cache:          urlCache,
		mailer:         mailer,
		admin:          admin,
		appBaseURL:     appBaseURL,
		logger:         logger,
	}
}

// DoubtList is one page of the listing plus optional metadata.
type DoubtList struct {
	Items       []models.Doubt      `json:"items"`
	NextCursor  *string             `json:"next_cursor"`
	RoomID      string              `json:"room_id"`
	Thumbnails  map[string]string   `json:"thumbnails,omitempty"`
	Suggestions *models.Suggestions `json:"suggestions,omitempty"`
}

// List returns one filtered page of the caller's doubts in a room.
func (s *DoubtService) List(ctx context.Context, userID string, q *models.ListDoubtsQuery, withMeta bool) (*DoubtList, error) {
	rc, err := s.rooms.ResolveRoomContext(ctx, q.RoomID, userID)
	if err != nil {
		return nil, err
	}

	doubts.ValidateListQuery(q)

	var before *time.Time
	if q.Cursor != "" {
		cursor, err := doubts.DecodeCursor(q.Cursor)
		if err != nil {
			return nil, err
		}
		at := cursor.CreatedAtTime()
		before = &at
	}

	page, err := s.doubtRepo.ListPage(ctx, rc.ID, q, before, q.Limit)
	if err != nil {
		return nil, err
	}

	list := &DoubtList{Items: page.Items, RoomID: rc.ID}
	if page.HasMore && len(page.Items) > 0 {
		last := page.Items[len(page.Items)-1]
		token := doubts.EncodeCursor(doubts.Cursor{
			CreatedAt: last.CreatedAt.UTC().Format(time.RFC3339Nano),
			ID:        last.ID,
		})
		list.NextCursor = &token
	}

	if withMeta {
		list.Suggestions = s.suggestions(ctx, rc.ID)

		ids := make([]string, 0, len(page.Items))
		for _, d := range page.Items {
			ids = append(ids, d.ID)
		}
		list.Thumbnails = s.thumbnails(ctx, ids)
	}

	return list, nil
}

// Meta returns signed thumbnail URLs for up to MetaMaxIDs doubts, plus the
// room's suggestion lists on request.
func (s *DoubtService) Meta(ctx context.Context, userID string, roomID *string, ids []string, withSuggestions bool) (*DoubtList, error) {
	rc, err := s.rooms.ResolveRoomContext(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if len(ids) > config.MetaMaxIDs {
		ids = ids[:config.MetaMaxIDs]
	}

	meta := &DoubtList{RoomID: rc.ID, Thumbnails: s.thumbnails(ctx, ids)}
	if withSuggestions {
		meta.Suggestions = s.suggestions(ctx, rc.ID)
	}
	return meta, nil
}

func (s *DoubtService) suggestions(ctx context.Context, roomID string) *models.Suggestions {
	if cached := s.cache.GetSuggestions(ctx, roomID); cached != nil {
		return cached
	}

	sugg, err := s.doubtRepo.Suggestions(ctx, roomID, config.SuggestionScanRows)
	if err != nil {
		s.logger.Warn("suggestion scan failed", "room_id", roomID, "error", err)
		return nil
	}

	capList := func(values []string) []string {
		if len(values) > config.MaxSuggestionEntries {
			return values[:config.MaxSuggestionEntries]
		}
		return values
	}
	sugg.Subjects = capList(sugg.Subjects)
	sugg.Subtopics = capList(sugg.Subtopics)
	sugg.ErrorTags = capList(sugg.ErrorTags)

	s.cache.SetSuggestions(ctx, roomID, sugg, suggestionsCacheTTL)
	return sugg
}

// thumbnails maps doubt id to a signed URL of its most recent attachment.
func (s *DoubtService) thumbnails(ctx context.Context, doubtIDs []string) map[string]string {
	if len(doubtIDs) == 0 {
		return nil
	}

	paths, err := s.attachmentRepo.FirstPathByDoubtIDs(ctx, doubtIDs)
	if err != nil {
		s.logger.Warn("thumbnail path lookup failed", "error", err)
		return nil
	}

	urls := make(map[string]string, len(paths))
	for doubtID, storagePath := range paths {
		if url := s.signedURL(ctx, storagePath); url != "" {
			urls[doubtID] = url
		}
	}
	return urls
}

// signedURL returns a presigned download URL, consulting the redis cache
// first. Failures log and degrade to no URL.
func (s *DoubtService) signedURL(ctx context.Context, storagePath string) string {
	if url := s.cache.GetSignedURL(ctx, storagePath); url != "" {
		return url
	}

	url, err := s.blobs.PresignGet(ctx, storagePath, signedURLExpiry)
	if err != nil {
		s.logger.Warn("presign failed", "path", storagePath, "error", err)
		return ""
	}

	s.cache.SetSignedURL(ctx, storagePath, url, signedURLCacheTTL)
	return url
}

// Create validates and inserts a doubt, then notifies the other members of a
// shared room by email. Notification failures are logged, never surfaced.
func (s *DoubtService) Create(ctx context.Context, userID string, input *models.CreateDoubtInput) (*models.Doubt, error) {
	rc, err := s.rooms.ResolveRoomContext(ctx, input.RoomID, userID)
	if err != nil {
		return nil, err
	}

	input.Title = strings.TrimSpace(input.Title)
	input.Subject = strings.TrimSpace(input.Subject)
	input.Subtopics = doubts.UniqueTags(input.Subtopics)
	input.ErrorTags = doubts.UniqueTags(input.ErrorTags)
	if input.Difficulty == "" {
		input.Difficulty = models.DifficultyMedium
	}
	if err := doubts.ValidateCreateInput(input); err != nil {
		return nil, err
	}

	doubt := &models.Doubt{
		RoomID:       rc.ID,
		UserID:       userID,
		Title:        input.Title,
		BodyMarkdown: input.BodyMarkdown,
		Subject:      input.Subject,
		Subtopics:    input.Subtopics,
		Difficulty:   input.Difficulty,
		ErrorTags:    input.ErrorTags,
		IsCleared:    input.IsCleared,
	}
	if err := s.doubtRepo.Create(ctx, doubt); err != nil {
		return nil, err
	}

	s.cache.InvalidateSuggestions(ctx, rc.ID)

	if !rc.IsPersonal {
		go s.notifyMembers(rc, doubt, userID)
	}

	return doubt, nil
}

// notifyMembers mails every other member of the room about a new doubt.
// Runs detached from the request; uses its own timeout.
func (s *DoubtService) notifyMembers(rc *models.RoomContext, doubt *models.Doubt, authorID string) {
	if !s.mailer.IsConfigured() || !s.admin.IsConfigured() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	members, err := s.rooms.roomRepo.ListMembers(ctx, rc.ID)
	if err != nil {
		s.logger.Warn("notification member lookup failed", "room_id", rc.ID, "error", err)
		return
	}

	memberIDs := make([]string, 0, len(members))
	for _, m := range members {
		if m.UserID != authorID {
			memberIDs = append(memberIDs, m.UserID)
		}
	}
	if len(memberIDs) == 0 {
		return
	}

	users := s.admin.GetUsersByIDs(ctx, memberIDs)
	recipients := make([]string, 0, len(users))
	for _, u := range users {
		if u.Email != "" {
			recipients = append(recipients, u.Email)
		}
	}
	if len(recipients) == 0 {
		return
	}

	authorName := ""
	if author, err := s.admin.GetUserByID(ctx, authorID); err == nil {
		authorName = author.FullName()
		if authorName == "" {
			authorName = author.Email
		}
	}

	err = s.mailer.SendDoubtCreated(recipients, email.DoubtCreatedData{
		RoomName:   rc.Name,
		AuthorName: authorName,
		Title:      doubt.Title,
		Subject:    doubt.Subject,
		Difficulty: string(doubt.Difficulty),
		DoubtURL:   fmt.Sprintf("%s/doubts/%s", strings.TrimRight(s.appBaseURL, "/"), doubt.ID),
	})
	if err != nil {
		s.logger.Warn("doubt notification failed", "doubt_id", doubt.ID, "error", err)
	}
}

// DoubtDetail is a doubt plus its attachments with signed download URLs.
type DoubtDetail struct {
	models.Doubt
	Attachments []models.SignedAttachment `json:"attachments"`
}

// Get returns a doubt with signed attachment URLs, scoped to its creator.
func (s *DoubtService) Get(ctx context.Context, userID, id string) (*DoubtDetail, error) {
	doubt, err := s.doubtRepo.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	attachments, err := s.attachmentRepo.ListByDoubt(ctx, id)
	if err != nil {
		return nil, err
	}

	signed := make([]models.SignedAttachment, 0, len(attachments))
	for _, att := range attachments {
		sa := models.SignedAttachment{Attachment: att}
		if url := s.signedURL(ctx, att.StoragePath); url != "" {
			sa.PublicURLSigned = &url
		}
		signed = append(signed, sa)
	}

	return &DoubtDetail{Doubt: *doubt, Attachments: signed}, nil
}

// Update applies a partial update after normalizing any tag lists it carries.
func (s *DoubtService) Update(ctx context.Context, userID, id string, input *models.UpdateDoubtInput) (*models.Doubt, error) {
	if input.Subtopics != nil {
		input.Subtopics = doubts.UniqueTags(input.Subtopics)
	}
	if input.ErrorTags != nil {
		input.ErrorTags = doubts.UniqueTags(input.ErrorTags)
	}
	if err := doubts.ValidateUpdateInput(input); err != nil {
		return nil, err
	}

	doubt, err := s.doubtRepo.Update(ctx, id, userID, input)
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateSuggestions(ctx, doubt.RoomID)
	return doubt, nil
}

// SetCleared toggles the cleared flag.
func (s *DoubtService) SetCleared(ctx context.Context, userID, id string, isCleared bool) (*models.Doubt, error) {
	return s.doubtRepo.SetCleared(ctx, id, userID, isCleared)
}

// Delete removes a doubt's blobs first, then the row (attachments cascade).
// A blob that fails to delete aborts so the row keeps pointing at it.
func (s *DoubtService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.doubtRepo.GetByID(ctx, id, userID); err != nil {
		return err
	}

	paths, err := s.attachmentRepo.StoragePathsByDoubt(ctx, id)
	if err != nil {
		return err
	}
	if len(paths) > 0 {
		if err := s.blobs.Remove(ctx, paths); err != nil {
			return err
		}
	}

	return s.doubtRepo.Delete(ctx, id, userID)
}

// ListComments returns the comments of a doubt the caller owns.
func (s *DoubtService) ListComments(ctx context.Context, userID, doubtID string) ([]models.Comment, error) {
	if _, err := s.doubtRepo.GetByID(ctx, doubtID, userID); err != nil {
		return nil, err
	}
	return s.commentRepo.ListByDoubt(ctx, doubtID)
}

// AddComment appends a comment to a doubt the caller owns.
func (s *DoubtService) AddComment(ctx context.Context, userID, doubtID, body string) (*models.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" || len(body) > config.MaxCommentLength {
		return nil, &domain.FieldError{
			Field:   "body",
			Message: fmt.Sprintf("length must be between 1 and %d", config.MaxCommentLength),
		}
	}

	if _, err := s.doubtRepo.GetByID(ctx, doubtID, userID); err != nil {
		return nil, err
	}

	comment := &models.Comment{DoubtID: doubtID, UserID: userID, Body: body}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// PresignedUpload is the response of the attachment presign route.
type PresignedUpload struct {
	Attachment models.Attachment `json:"attachment"`
	UploadURL  string            `json:"upload_url"`
}

// PresignAttachment reserves an attachment slot on a doubt and issues a
// presigned PUT URL for the blob. The row is written immediately so the
// attachment count cap holds across concurrent presigns.
func (s *DoubtService) PresignAttachment(ctx context.Context, userID, doubtID, filename, mimeType string, sizeBytes int64) (*PresignedUpload, error) {
	if !config.IsAllowedAttachmentMime(mimeType) {
		return nil, &domain.FieldError{Field: "mime_type", Message: "must be image/jpeg, image/png or image/webp"}
	}
	if sizeBytes <= 0 || sizeBytes > config.MaxAttachmentBytes {
		return nil, &domain.FieldError{
			Field:   "size_bytes",
			Message: fmt.Sprintf("must be between 1 and %d", config.MaxAttachmentBytes),
		}
	}

	if _, err := s.doubtRepo.GetByID(ctx, doubtID, userID); err != nil {
		return nil, err
	}

	count, err := s.attachmentRepo.CountByDoubt(ctx, doubtID)
	if err != nil {
		return nil, err
	}
	if count >= config.MaxAttachmentsPerDoubt {
		return nil, &domain.FieldError{
			Field:   "attachments",
			Message: fmt.Sprintf("at most %d attachments per doubt", config.MaxAttachmentsPerDoubt),
		}
	}

	storagePath := AttachmentPath(userID, doubtID, filename, mimeType)
	uploadURL, err := s.blobs.PresignPut(ctx, storagePath, presignPutExpiry)
	if err != nil {
		return nil, err
	}

	att := &models.Attachment{
		DoubtID:     doubtID,
		StoragePath: storagePath,
		MimeType:    mimeType,
		SizeBytes:   sizeBytes,
	}
	if err := s.attachmentRepo.Create(ctx, att); err != nil {
		return nil, err
	}

	return &PresignedUpload{Attachment: *att, UploadURL: uploadURL}, nil
}

// DeleteAttachment removes an attachment's blob, then its row. Creator-scoped
// through the parent doubt.
func (s *DoubtService) DeleteAttachment(ctx context.Context, userID, attachmentID string) error {
	att, err := s.attachmentRepo.GetByID(ctx, attachmentID)
	if err != nil {
		return err
	}
	if _, err := s.doubtRepo.GetByID(ctx, att.DoubtID, userID); err != nil {
		return err
	}

	if err := s.blobs.Remove(ctx, []string{att.StoragePath}); err != nil {
		return err
	}
	return s.attachmentRepo.Delete(ctx, attachmentID)
}

// AttachmentPath builds the object path for a doubt attachment. The extension
// comes from the filename when present, falling back to the mime type.
func AttachmentPath(userID, doubtID, filename, mimeType string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}
	return fmt.Sprintf("doubts/%s/%s/%s%s", userID, doubtID, uuid.NewString(), ext)
}
