package gateway

import (
	"errors"
)

// Call-rejecting errors returned to the websocket caller. State-machine
// refusals (voting twice, starting a round mid-round) are reported as a
// false result instead, never as an error.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrRoomNotFound = errors.New("room not found")
	ErrNotHost      = errors.New("only the host can start voting")
	ErrNotInRoom    = errors.New("user not in room")
	ErrInvalidTimer = errors.New("timer_seconds must be positive")
)
