package rooms

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcdev12/planningpoker/go/internal/auth"
	"github.com/mcdev12/planningpoker/go/internal/middleware"
	"github.com/mcdev12/planningpoker/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Service exposes the room configuration endpoints over HTTP.
type Service struct {
	app    *App
	tokens *auth.TokenService
}

// NewService creates a new rooms HTTP service.
func NewService(app *App, tokens *auth.TokenService) *Service {
	return &Service{app: app, tokens: tokens}
}

// RegisterRoutes attaches the room endpoints to mux. Reads and writes
// need any signed-in user; listing and deletion are admin-only.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	admin := models.UserRoleAdmin
	mux.Handle("POST /rooms", middleware.RequireAuth(s.tokens, nil, s.handleCreate))
	mux.Handle("PUT /rooms/{roomId}", middleware.RequireAuth(s.tokens, nil, s.handleUpdate))
	mux.Handle("GET /rooms/{roomId}", middleware.RequireAuth(s.tokens, nil, s.handleGet))
	mux.Handle("GET /rooms", middleware.RequireAuth(s.tokens, &admin, s.handleList))
	mux.Handle("DELETE /rooms/{roomId}", middleware.RequireAuth(s.tokens, &admin, s.handleDelete))
}

func (s *Service) handleCreate(w http.ResponseWriter, r *http.Request, user models.User) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	room, err := s.app.CreateRoom(r.Context(), user.Username, req)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Location", "/rooms/"+room.RoomID)
	middleware.JSONResponse(w, http.StatusCreated, room)
}

func (s *Service) handleUpdate(w http.ResponseWriter, r *http.Request, _ models.User) {
	roomID := r.PathValue("roomId")

	var req UpdateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	room, err := s.app.UpdateRoom(r.Context(), roomID, req)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			middleware.ErrorResponse(w, http.StatusNotFound, ErrNotFound.Error())
			return
		}
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	middleware.JSONResponse(w, http.StatusOK, room)
}

func (s *Service) handleGet(w http.ResponseWriter, r *http.Request, _ models.User) {
	room, err := s.app.GetRoom(r.Context(), r.PathValue("roomId"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			middleware.ErrorResponse(w, http.StatusNotFound, ErrNotFound.Error())
			return
		}
		log.Error().Err(err).Msg("failed to get room")
		middleware.ErrorResponse(w, http.StatusInternalServerError, "database error")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, room)
}

func (s *Service) handleList(w http.ResponseWriter, r *http.Request, _ models.User) {
	all, err := s.app.ListRooms(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list rooms")
		middleware.ErrorResponse(w, http.StatusInternalServerError, "database error")
		return
	}
	if all == nil {
		all = []models.RoomConfig{}
	}
	middleware.JSONResponse(w, http.StatusOK, all)
}

func (s *Service) handleDelete(w http.ResponseWriter, r *http.Request, _ models.User) {
	roomID := r.PathValue("roomId")
	deleted, err := s.app.DeleteRoom(r.Context(), roomID)
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("failed to delete room")
		middleware.ErrorResponse(w, http.StatusInternalServerError, "database error")
		return
	}
	if !deleted {
		middleware.ErrorResponse(w, http.StatusNotFound, "room not found")
		return
	}
	w.WriteHeader(http.StatusOK)
}
