package handler

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"

	"doubtabase/internal/domain/models"
	"doubtabase/internal/httputil"
	"doubtabase/internal/service"
)

// ExportHandler handles bulk export requests
type ExportHandler struct {
	exportService *service.ExportService
	logger        *slog.Logger
}

// NewExportHandler creates a new export handler
func NewExportHandler(exportService *service.ExportService, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{
		exportService: exportService,
		logger:        logger,
	}
}

// Candidates lists every doubt matching the filter up to the browse cap
// GET /api/doubts/export
func (h *ExportHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	filter := models.ExportFilter{
		Q:         r.URL.Query().Get("q"),
		Subject:   r.URL.Query().Get("subject"),
		IsCleared: queryBoolPtr(r, "is_cleared"),
	}

	result, err := h.exportService.Candidates(r.Context(), userID, optionalRoomID(r), filter)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"items":     result.Rows,
		"truncated": result.Truncated,
	})
}

// BuildPDF renders the selected doubts into a PDF document
// POST /api/doubts/export/pdf
//
// The document is rendered to a buffer first so a late failure still produces
// a clean problem response instead of a half-written body.
func (h *ExportHandler) BuildPDF(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var body struct {
		RoomID    *string  `json:"room_id,omitempty"`
		Mode      string   `json:"mode"`
		IDs       []string `json:"ids,omitempty"`
		Q         string   `json:"q,omitempty"`
		Subject   string   `json:"subject,omitempty"`
		IsCleared *bool    `json:"is_cleared,omitempty"`
	}
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var buf bytes.Buffer
	out, err := h.exportService.BuildPDF(r.Context(), &buf, userID, service.PDFRequest{
		RoomID: body.RoomID,
		Mode:   service.ExportMode(body.Mode),
		IDs:    body.IDs,
		Filter: models.ExportFilter{Q: body.Q, Subject: body.Subject, IsCleared: body.IsCleared},
	})
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.Filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
