package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"doubtabase/internal/auth"
	"doubtabase/internal/doubts"
	"doubtabase/internal/httputil"
	"doubtabase/internal/middleware"
	"doubtabase/internal/service"
)

// IngestHandler handles the programmatic ingest route and key management
type IngestHandler struct {
	ingestService *service.IngestService
	verifier      auth.JWTVerifier
	logger        *slog.Logger
}

// NewIngestHandler creates a new ingest handler
func NewIngestHandler(ingestService *service.IngestService, verifier auth.JWTVerifier, logger *slog.Logger) *IngestHandler {
	return &IngestHandler{
		ingestService: ingestService,
		verifier:      verifier,
		logger:        logger,
	}
}

// Ingest creates a doubt from a programmatic payload
// POST /api/doubts/ingest
//
// The route is exempt from the JWT middleware so it can accept either a
// Bearer JWT or an X-API-Key ingest key.
func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	var input doubts.IngestInput
	if err := httputil.ParseJSON(w, r, &input); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	doubt, err := h.ingestService.Ingest(r.Context(), userID, &input)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, doubt)
}

// authenticate resolves the caller from an ingest key or a JWT, in that order.
func (h *IngestHandler) authenticate(w http.ResponseWriter, r *http.Request) (string, bool) {
	if rawKey := strings.TrimSpace(r.Header.Get("X-API-Key")); rawKey != "" {
		userID, err := h.ingestService.UserForKey(r.Context(), rawKey)
		if err != nil {
			handleError(w, r, h.logger, err)
			return "", false
		}
		return userID, true
	}

	token, ok := middleware.BearerToken(r)
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "provide a bearer token or X-API-Key")
		return "", false
	}
	claims, err := h.verifier.VerifyToken(token)
	if err != nil {
		httputil.RespondError(w, http.StatusUnauthorized, "invalid token")
		return "", false
	}
	return claims.GetUserID(), true
}

// RotateKey mints a fresh ingest API key, revoking prior ones
// POST /api/auth/ingest-key
func (h *IngestHandler) RotateKey(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	rotated, err := h.ingestService.RotateKey(r.Context(), userID)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, rotated)
}
