package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/mcdev12/planningpoker/go/internal/auth"
	"github.com/mcdev12/planningpoker/go/internal/models"
)

// ErrInvalidCredentials covers both a wrong password and a username race
// on first sign-in; callers must not be able to distinguish the two.
var ErrInvalidCredentials = errors.New("invalid username or password")

// UsersRepository defines what the app layer needs from the repository.
type UsersRepository interface {
	CreateUser(ctx context.Context, username, passwordHash string, role models.UserRole) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Delete(ctx context.Context, username string) (bool, error)
	Count(ctx context.Context) (int, error)
}

// App handles account business logic.
type App struct {
	repo UsersRepository
}

// NewApp creates a new users App.
func NewApp(repo UsersRepository) *App {
	return &App{repo: repo}
}

// SignIn authenticates username/password, creating the account on first
// use. The very first account on the server becomes Admin; all later
// accounts get the User role.
func (a *App) SignIn(ctx context.Context, username, password string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := a.repo.GetByUsername(ctx, username)
	if err == nil {
		if !auth.CheckPassword(user.PasswordHash, password) {
			return nil, ErrInvalidCredentials
		}
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	count, err := a.repo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	role := models.UserRoleUser
	if count == 0 {
		role = models.UserRoleAdmin
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	created, err := a.repo.CreateUser(ctx, username, hash, role)
	if err != nil {
		// Lost a race with a concurrent first sign-in for the same name.
		return nil, ErrInvalidCredentials
	}
	return created, nil
}

// List returns all accounts.
func (a *App) List(ctx context.Context) ([]models.User, error) {
	return a.repo.List(ctx)
}

// Delete removes an account. It reports whether the account existed.
func (a *App) Delete(ctx context.Context, username string) (bool, error) {
	return a.repo.Delete(ctx, username)
}

// Any reports whether at least one account exists.
func (a *App) Any(ctx context.Context) (bool, error) {
	count, err := a.repo.Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
