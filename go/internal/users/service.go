package users

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcdev12/planningpoker/go/internal/auth"
	"github.com/mcdev12/planningpoker/go/internal/middleware"
	"github.com/mcdev12/planningpoker/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Service exposes the account endpoints over HTTP.
type Service struct {
	app    *App
	tokens *auth.TokenService
}

// NewService creates a new users HTTP service.
func NewService(app *App, tokens *auth.TokenService) *Service {
	return &Service{app: app, tokens: tokens}
}

// RegisterRoutes attaches the account endpoints to mux.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	admin := models.UserRoleAdmin
	mux.HandleFunc("POST /users/signin", s.handleSignIn)
	mux.HandleFunc("GET /users/any", s.handleAny)
	mux.Handle("GET /users/list", middleware.RequireAuth(s.tokens, &admin, s.handleList))
	mux.Handle("DELETE /users/{username}", middleware.RequireAuth(s.tokens, &admin, s.handleDelete))
}

func (s *Service) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.app.SignIn(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			middleware.ErrorResponse(w, http.StatusUnauthorized, ErrInvalidCredentials.Error())
			return
		}
		log.Error().Err(err).Str("username", req.Username).Msg("sign-in failed")
		middleware.ErrorResponse(w, http.StatusInternalServerError, "sign-in failed")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, SignInResponse{
		Token:    s.tokens.Generate(*user),
		Username: user.Username,
		Role:     user.Role,
	})
}

// handleAny lets the UI decide whether to show the first-run admin setup:
// 404 while no accounts exist, 200 afterwards.
func (s *Service) handleAny(w http.ResponseWriter, r *http.Request) {
	any, err := s.app.Any(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to check for accounts")
		middleware.ErrorResponse(w, http.StatusInternalServerError, "database error")
		return
	}
	if !any {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Service) handleList(w http.ResponseWriter, r *http.Request, _ models.User) {
	all, err := s.app.List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list users")
		middleware.ErrorResponse(w, http.StatusInternalServerError, "database error")
		return
	}

	items := make([]UserListItem, 0, len(all))
	for _, u := range all {
		items = append(items, UserListItem{Username: u.Username, Role: u.Role})
	}
	middleware.JSONResponse(w, http.StatusOK, items)
}

func (s *Service) handleDelete(w http.ResponseWriter, r *http.Request, _ models.User) {
	username := r.PathValue("username")
	deleted, err := s.app.Delete(r.Context(), username)
	if err != nil {
		log.Error().Err(err).Str("username", username).Msg("failed to delete user")
		middleware.ErrorResponse(w, http.StatusInternalServerError, "database error")
		return
	}
	if !deleted {
		middleware.ErrorResponse(w, http.StatusNotFound, "user not found")
		return
	}
	w.WriteHeader(http.StatusOK)
}
