package handler

import (
	"log/slog"
	"net/http"

	"doubtabase/internal/httputil"
	"doubtabase/internal/service"
)

// RoomHandler handles room HTTP requests
type RoomHandler struct {
	roomService *service.RoomService
	logger      *slog.Logger
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(roomService *service.RoomService, logger *slog.Logger) *RoomHandler {
	return &RoomHandler{
		roomService: roomService,
		logger:      logger,
	}
}

// List returns the caller's rooms, personal room first
// GET /api/rooms
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	list, err := h.roomService.ListRooms(r.Context(), userID)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, list)
}

// Create creates a shared room owned by the caller
// POST /api/rooms
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var body struct {
		Name string `json:"name"`
	}
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	room, err := h.roomService.CreateRoom(r.Context(), userID, body.Name)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, room)
}

// Join adds the caller to a room by invite code
// POST /api/rooms/join
func (h *RoomHandler) Join(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var body struct {
		Code string `json:"code"`
	}
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	room, err := h.roomService.JoinByCode(r.Context(), userID, body.Code)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, room)
}

// ListMembers returns the members of a room the caller belongs to
// GET /api/rooms/{roomId}/members
func (h *RoomHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	members, err := h.roomService.ListMembers(r.Context(), r.PathValue("roomId"), userID)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{"items": members})
}

// RotateInvite revokes active invites and mints a new code
// POST /api/rooms/{roomId}/invite/rotate
func (h *RoomHandler) RotateInvite(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	code, err := h.roomService.RotateInvite(r.Context(), r.PathValue("roomId"), userID)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, map[string]string{"code": code})
}
