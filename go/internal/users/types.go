package users

import (
	"github.com/mcdev12/planningpoker/go/internal/models"
)

// SignInRequest is the credentials payload for POST /users/signin.
type SignInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SignInResponse carries the issued bearer token.
type SignInResponse struct {
	Token    string          `json:"token"`
	Username string          `json:"username"`
	Role     models.UserRole `json:"role"`
}

// UserListItem is the admin-facing listing entry. Password hashes never
// leave the repository layer.
type UserListItem struct {
	Username string          `json:"username"`
	Role     models.UserRole `json:"role"`
}
