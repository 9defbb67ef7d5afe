package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mcdev12/planningpoker/go/internal/auth"
	"github.com/mcdev12/planningpoker/go/internal/models"
	"github.com/rs/zerolog/log"
)

// AuthedHandler is an HTTP handler that has already passed bearer-token
// authentication.
type AuthedHandler func(w http.ResponseWriter, r *http.Request, user models.User)

// JSONResponse writes v as a JSON body with the given status.
func JSONResponse(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// ErrorResponse writes a JSON error body with the given status.
func ErrorResponse(w http.ResponseWriter, status int, message string) {
	JSONResponse(w, status, map[string]string{"error": message})
}

// RequireAuth wraps next with Authorization: Bearer validation. When
// requiredRole is non-nil the authenticated user must also hold that role.
func RequireAuth(tokens *auth.TokenService, requiredRole *models.UserRole, next AuthedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			ErrorResponse(w, http.StatusUnauthorized, "missing or malformed authorization header")
			return
		}

		user, ok := tokens.Validate(token)
		if !ok {
			ErrorResponse(w, http.StatusUnauthorized, "invalid token")
			return
		}

		if requiredRole != nil && user.Role != *requiredRole {
			ErrorResponse(w, http.StatusForbidden, "insufficient role")
			return
		}

		next(w, r, user)
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return header[len(prefix):], true
}
