package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"doubtabase/internal/domain/models"
	"doubtabase/internal/httputil"
	"doubtabase/internal/service"
)

// DoubtHandler handles doubt HTTP requests
type DoubtHandler struct {
	doubtService *service.DoubtService
	logger       *slog.Logger
}

// NewDoubtHandler creates a new doubt handler
func NewDoubtHandler(doubtService *service.DoubtService, logger *slog.Logger) *DoubtHandler {
	return &DoubtHandler{
		doubtService: doubtService,
		logger:       logger,
	}
}

// List returns one page of doubts
// GET /api/doubts
func (h *DoubtHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	q := &models.ListDoubtsQuery{
		RoomID:     optionalRoomID(r),
		Q:          query.Get("q"),
		Subject:    query.Get("subject"),
		Subtopic:   query.Get("subtopic"),
		Difficulty: models.Difficulty(query.Get("difficulty")),
		ErrorTag:   query.Get("error_tag"),
		IsCleared:  queryBoolPtr(r, "is_cleared"),
		Cursor:     query.Get("cursor"),
	}
	if raw := query.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			q.Limit = n
		}
	}

	list, err := h.doubtService.List(r.Context(), userID, q, queryBool(r, "with_meta"))
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, list)
}

// Create creates a new doubt
// POST /api/doubts
func (h *DoubtHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var input models.CreateDoubtInput
	if err := httputil.ParseJSON(w, r, &input); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	doubt, err := h.doubtService.Create(r.Context(), userID, &input)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, doubt)
}

// Get returns a doubt with signed attachment URLs
// GET /api/doubts/{id}
func (h *DoubtHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	detail, err := h.doubtService.Get(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, detail)
}

// Update applies a partial update
// PATCH /api/doubts/{id}
func (h *DoubtHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var input models.UpdateDoubtInput
	if err := httputil.ParseJSON(w, r, &input); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	doubt, err := h.doubtService.Update(r.Context(), userID, r.PathValue("id"), &input)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doubt)
}

// Delete removes a doubt and its attachment blobs
// DELETE /api/doubts/{id}
func (h *DoubtHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.doubtService.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetCleared toggles the cleared flag
// PATCH /api/doubts/{id}/clear
func (h *DoubtHandler) SetCleared(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var body struct {
		IsCleared bool `json:"is_cleared"`
	}
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	doubt, err := h.doubtService.SetCleared(r.Context(), userID, r.PathValue("id"), body.IsCleared)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doubt)
}

// ListComments returns the comments of a doubt
// GET /api/doubts/{id}/comments
func (h *DoubtHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	comments, err := h.doubtService.ListComments(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{"items": comments})
}

// AddComment appends a comment
// POST /api/doubts/{id}/comments
func (h *DoubtHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var body struct {
		Body string `json:"body"`
	}
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	comment, err := h.doubtService.AddComment(r.Context(), userID, r.PathValue("id"), body.Body)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, comment)
}

// PresignAttachment reserves an attachment slot and issues an upload URL
// POST /api/doubts/{id}/attachments/presign
func (h *DoubtHandler) PresignAttachment(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var body struct {
		Filename  string `json:"filename"`
		MimeType  string `json:"mime_type"`
		SizeBytes int64  `json:"size_bytes"`
	}
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	upload, err := h.doubtService.PresignAttachment(r.Context(), userID, r.PathValue("id"), body.Filename, body.MimeType, body.SizeBytes)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, upload)
}

// DeleteAttachment removes an attachment blob and row
// DELETE /api/attachments/{id}
func (h *DoubtHandler) DeleteAttachment(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.doubtService.DeleteAttachment(r.Context(), userID, r.PathValue("id")); err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Meta returns thumbnail URLs and optional suggestions
// GET /api/doubts/meta
func (h *DoubtHandler) Meta(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var ids []string
	if raw := strings.TrimSpace(r.URL.Query().Get("ids")); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}

	meta, err := h.doubtService.Meta(r.Context(), userID, optionalRoomID(r), ids, queryBool(r, "with_suggestions"))
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, meta)
}
