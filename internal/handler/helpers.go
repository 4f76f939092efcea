package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"doubtabase/internal/domain"
	"doubtabase/internal/httputil"
)

// handleError maps domain errors to HTTP problem responses. Unexpected errors
// are logged with the request path and surfaced as a generic 500.
func handleError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var truncated *domain.TruncatedError
	var fieldErr *domain.FieldError

	switch {
	case errors.As(err, &truncated):
		httputil.RespondErrorWithExtras(w, http.StatusBadRequest, err.Error(), map[string]interface{}{
			"truncated": true,
			"max_rows":  truncated.MaxRows,
		})
	case errors.As(err, &fieldErr):
		httputil.RespondErrorWithExtras(w, http.StatusBadRequest, fieldErr.Message, map[string]interface{}{
			"field": fieldErr.Field,
		})
	case errors.Is(err, domain.ErrInvalidCursor),
		errors.Is(err, domain.ErrInvalidBase64),
		errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrConflict):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	default:
		logger.Error("request failed", "path", r.URL.Path, "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// requireUserID pulls the authenticated user out of the request context. The
// auth middleware guarantees it on protected routes; a miss means a wiring bug.
func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := httputil.GetUserID(r)
	if userID == "" {
		httputil.RespondError(w, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	return userID, true
}

// optionalRoomID reads the room query parameter; empty means the personal room.
func optionalRoomID(r *http.Request) *string {
	if v := strings.TrimSpace(r.URL.Query().Get("room_id")); v != "" {
		return &v
	}
	return nil
}

// queryBoolPtr parses a ternary boolean query parameter. Absent or
// unrecognized values mean "no filter".
func queryBoolPtr(r *http.Request, key string) *bool {
	switch strings.ToLower(r.URL.Query().Get(key)) {
	case "true", "1":
		v := true
		return &v
	case "false", "0":
		v := false
		return &v
	}
	return nil
}

func queryBool(r *http.Request, key string) bool {
	v := queryBoolPtr(r, key)
	return v != nil && *v
}
