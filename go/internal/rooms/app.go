package rooms

import (
	"context"
	"fmt"

	"github.com/mcdev12/planningpoker/go/internal/models"
)

// RoomsRepository defines what the app layer needs from the repository.
type RoomsRepository interface {
	Create(ctx context.Context, room models.RoomConfig) (*models.RoomConfig, error)
	Update(ctx context.Context, room models.RoomConfig) (bool, error)
	Get(ctx context.Context, roomID string) (*models.RoomConfig, error)
	Delete(ctx context.Context, roomID string) (bool, error)
	List(ctx context.Context) ([]models.RoomConfig, error)
}

// SessionDropper lets the app evict a room's live voting session when the
// room is deleted. Satisfied by the voting registry.
type SessionDropper interface {
	Delete(roomID string)
}

// App handles room configuration business logic.
type App struct {
	repo     RoomsRepository
	sessions SessionDropper
}

// NewApp creates a new rooms App.
func NewApp(repo RoomsRepository, sessions SessionDropper) *App {
	return &App{repo: repo, sessions: sessions}
}

// CreateRoom validates and persists a new room hosted by hostUsername.
func (a *App) CreateRoom(ctx context.Context, hostUsername string, req CreateRoomRequest) (*models.RoomConfig, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("room name is required")
	}
	cards := req.PokerCards
	if len(cards) == 0 {
		cards = DefaultPokerCards
	}
	if req.VotingCountdownSeconds < 0 {
		return nil, fmt.Errorf("voting countdown cannot be negative")
	}

	return a.repo.Create(ctx, models.RoomConfig{
		Name:                   req.Name,
		HostUsername:           hostUsername,
		PokerCards:             cards,
		VotingCountdownSeconds: req.VotingCountdownSeconds,
	})
}

// UpdateRoom replaces a room's mutable configuration.
func (a *App) UpdateRoom(ctx context.Context, roomID string, req UpdateRoomRequest) (*models.RoomConfig, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("room name is required")
	}

	existing, err := a.repo.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}

	existing.Name = req.Name
	if len(req.PokerCards) > 0 {
		existing.PokerCards = req.PokerCards
	}
	existing.VotingCountdownSeconds = req.VotingCountdownSeconds

	if _, err := a.repo.Update(ctx, *existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// GetRoom retrieves a room by ID. The gateway uses this as its room
// configuration lookup.
func (a *App) GetRoom(ctx context.Context, roomID string) (*models.RoomConfig, error) {
	return a.repo.Get(ctx, roomID)
}

// DeleteRoom removes a room and evicts its live voting session. It
// reports whether the room existed.
func (a *App) DeleteRoom(ctx context.Context, roomID string) (bool, error) {
	deleted, err := a.repo.Delete(ctx, roomID)
	if err != nil {
		return false, err
	}
	if deleted {
		a.sessions.Delete(roomID)
	}
	return deleted, nil
}

// ListRooms returns all rooms.
func (a *App) ListRooms(ctx context.Context) ([]models.RoomConfig, error) {
	return a.repo.List(ctx)
}
