package rooms

// CreateRoomRequest is the payload for POST /rooms. The authenticated
// caller becomes the room's host.
type CreateRoomRequest struct {
	Name                   string   `json:"name"`
	PokerCards             []string `json:"poker_cards"`
	VotingCountdownSeconds int      `json:"voting_countdown_seconds"`
}

// UpdateRoomRequest is the payload for PUT /rooms/{roomId}.
type UpdateRoomRequest struct {
	Name                   string   `json:"name"`
	PokerCards             []string `json:"poker_cards"`
	VotingCountdownSeconds int      `json:"voting_countdown_seconds"`
}

// DefaultPokerCards is applied when a room is created without a card set.
var DefaultPokerCards = []string{"0", "1", "2", "3", "5", "8", "13", "21", "?"}
