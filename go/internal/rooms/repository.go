package rooms

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/planningpoker/go/internal/models"
)

// ErrNotFound is returned when no room exists for an ID.
var ErrNotFound = errors.New("room not found")

// Repository implements room configuration data access on Postgres. The
// card set is stored as JSONB to keep the schema portable.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new rooms repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new room with a generated ID and returns it.
func (r *Repository) Create(ctx context.Context, room models.RoomConfig) (*models.RoomConfig, error) {
	room.RoomID = uuid.New().String()

	cards, err := json.Marshal(room.PokerCards)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal poker cards: %w", err)
	}

	err = r.db.QueryRowContext(ctx, `
		INSERT INTO rooms (room_id, name, host_username, poker_cards, voting_countdown_seconds)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, room.RoomID, room.Name, room.HostUsername, cards, room.VotingCountdownSeconds).Scan(&room.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}
	return &room, nil
}

// Update replaces a room's mutable fields. It reports whether the room
// existed. The host never changes after creation.
func (r *Repository) Update(ctx context.Context, room models.RoomConfig) (bool, error) {
	cards, err := json.Marshal(room.PokerCards)
	if err != nil {
		return false, fmt.Errorf("failed to marshal poker cards: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE rooms
		SET name = $2, poker_cards = $3, voting_countdown_seconds = $4
		WHERE room_id = $1
	`, room.RoomID, room.Name, cards, room.VotingCountdownSeconds)
	if err != nil {
		return false, fmt.Errorf("failed to update room: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// Get retrieves a room by ID.
func (r *Repository) Get(ctx context.Context, roomID string) (*models.RoomConfig, error) {
	var room models.RoomConfig
	var cards []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT room_id, name, host_username, poker_cards, voting_countdown_seconds, created_at
		FROM rooms
		WHERE room_id = $1
	`, roomID).Scan(&room.RoomID, &room.Name, &room.HostUsername, &cards, &room.VotingCountdownSeconds, &room.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	if err := json.Unmarshal(cards, &room.PokerCards); err != nil {
		return nil, fmt.Errorf("failed to unmarshal poker cards: %w", err)
	}
	return &room, nil
}

// Delete removes a room. It reports whether the room existed.
func (r *Repository) Delete(ctx context.Context, roomID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM rooms WHERE room_id = $1`, roomID)
	if err != nil {
		return false, fmt.Errorf("failed to delete room: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// List returns all rooms ordered by creation time.
func (r *Repository) List(ctx context.Context) ([]models.RoomConfig, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT room_id, name, host_username, poker_cards, voting_countdown_seconds, created_at
		FROM rooms
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	var out []models.RoomConfig
	for rows.Next() {
		var room models.RoomConfig
		var cards []byte
		if err := rows.Scan(&room.RoomID, &room.Name, &room.HostUsername, &cards, &room.VotingCountdownSeconds, &room.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		if err := json.Unmarshal(cards, &room.PokerCards); err != nil {
			return nil, fmt.Errorf("failed to unmarshal poker cards: %w", err)
		}
		out = append(out, room)
	}
	return out, rows.Err()
}
