package models

import (
	"time"
)

// RoomConfig is the persisted configuration for a planning poker room.
// Live voting state is kept separately by the voting registry; this is
// only the durable part.
type RoomConfig struct {
	RoomID string `json:"room_id"`
	Name   string `json:"name"`
	// HostUsername is the room creator. Only the host may start a round.
	HostUsername string `json:"host_username"`
	// PokerCards is the default card set used when a round does not
	// supply its own.
	PokerCards []string `json:"poker_cards"`
	// VotingCountdownSeconds is the default countdown offered to the host
	// when starting a round. Zero means no default timer. It is never
	// applied implicitly: a round only gets a timer when the start
	// request carries one.
	VotingCountdownSeconds int       `json:"voting_countdown_seconds"`
	CreatedAt              time.Time `json:"created_at"`
}
