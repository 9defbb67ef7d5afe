package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mcdev12/planningpoker/go/internal/auth"
	"github.com/mcdev12/planningpoker/go/internal/models"
)

func TestRequireAuth(t *testing.T) {
	tokens := auth.NewTokenService()
	adminToken := tokens.Generate(models.User{Username: "alice", Role: models.UserRoleAdmin})
	userToken := tokens.Generate(models.User{Username: "bob", Role: models.UserRoleUser})
	admin := models.UserRoleAdmin

	tests := []struct {
		name         string
		header       string
		requiredRole *models.UserRole
		wantStatus   int
		wantUsername string
	}{
		{
			name:         "valid token",
			header:       "Bearer " + userToken,
			wantStatus:   http.StatusOK,
			wantUsername: "bob",
		},
		{
			name:         "case-insensitive scheme",
			header:       "bearer " + userToken,
			wantStatus:   http.StatusOK,
			wantUsername: "bob",
		},
		{
			name:       "missing header",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong scheme",
			header:     "Basic " + userToken,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "unknown token",
			header:     "Bearer not-a-token",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:         "admin route with admin token",
			header:       "Bearer " + adminToken,
			requiredRole: &admin,
			wantStatus:   http.StatusOK,
			wantUsername: "alice",
		},
		{
			name:         "admin route with user token",
			header:       "Bearer " + userToken,
			requiredRole: &admin,
			wantStatus:   http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUsername string
			handler := RequireAuth(tokens, tt.requiredRole, func(w http.ResponseWriter, r *http.Request, user models.User) {
				gotUsername = user.Username
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if gotUsername != tt.wantUsername {
				t.Fatalf("username = %q, want %q", gotUsername, tt.wantUsername)
			}
		})
	}
}
