package auth

import (
	"sync"

	"github.com/google/uuid"
	"github.com/mcdev12/planningpoker/go/internal/models"
)

// TokenService issues opaque bearer tokens for signed-in users and keeps
// them in memory for the life of the process. Tokens carry no claims; the
// service is the single source of truth for who a token belongs to.
type TokenService struct {
	mu     sync.RWMutex
	tokens map[string]models.User
}

// NewTokenService creates an empty token service.
func NewTokenService() *TokenService {
	return &TokenService{
		tokens: make(map[string]models.User),
	}
}

// Generate issues a fresh token for user.
func (t *TokenService) Generate(user models.User) string {
	token := uuid.New().String()
	t.mu.Lock()
	t.tokens[token] = user
	t.mu.Unlock()
	return token
}

// Validate resolves a token back to its user.
func (t *TokenService) Validate(token string) (models.User, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	user, ok := t.tokens[token]
	return user, ok
}

// Revoke invalidates a token. It reports whether the token existed.
func (t *TokenService) Revoke(token string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.tokens[token]; !ok {
		return false
	}
	delete(t.tokens, token)
	return true
}

// Clear drops every issued token.
func (t *TokenService) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tokens = make(map[string]models.User)
}
