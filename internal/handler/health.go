package handler

import (
	"net/http"

	"doubtabase/internal/httputil"
)

// Health is a simple liveness check
// GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
