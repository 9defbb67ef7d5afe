package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mcdev12/planningpoker/go/internal/events"
	"github.com/mcdev12/planningpoker/go/internal/models"
	"github.com/mcdev12/planningpoker/go/internal/rooms"
	"github.com/mcdev12/planningpoker/go/internal/voting"
	"github.com/rs/zerolog/log"
)

// TokenValidator resolves a bearer token to a signed-in user.
type TokenValidator interface {
	Validate(token string) (models.User, bool)
}

// RoomProvider looks up room configuration. Implemented by the rooms app.
type RoomProvider interface {
	GetRoom(ctx context.Context, roomID string) (*models.RoomConfig, error)
}

// Broadcaster fans events out to a room's connections. Implemented by the
// connection manager.
type Broadcaster interface {
	JoinGroup(roomID string, conn *Connection)
	LeaveGroup(roomID, connectionID string)
	Broadcast(roomID string, event *Event)
	BroadcastExcept(roomID, exceptConnectionID string, event *Event)
}

// clientRequest is the wire shape of an inbound websocket call.
type clientRequest struct {
	ID     int64           `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// serverResponse answers a clientRequest by ID. Exactly one of Result and
// Error is populated.
type serverResponse struct {
	ID     int64       `json:"id"`
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

type joinRoomParams struct {
	RoomID string `json:"room_id"`
	Token  string `json:"token"`
}

// Hub routes websocket calls to the voting domain and fans resulting
// events back out through the broadcaster. It holds no per-room state of
// its own; all room state lives in the registry and directory.
type Hub struct {
	registry    *voting.Registry
	directory   *voting.Directory
	scheduler   *voting.Scheduler
	broadcaster Broadcaster
	tokens      TokenValidator
	rooms       RoomProvider
	publisher   events.Publisher

	ctx context.Context
}

// NewHub creates the gateway hub.
func NewHub(
	registry *voting.Registry,
	directory *voting.Directory,
	scheduler *voting.Scheduler,
	broadcaster Broadcaster,
	tokens TokenValidator,
	roomProvider RoomProvider,
	publisher events.Publisher,
) *Hub {
	return &Hub{
		registry:    registry,
		directory:   directory,
		scheduler:   scheduler,
		broadcaster: broadcaster,
		tokens:      tokens,
		rooms:       roomProvider,
		publisher:   publisher,
		ctx:         context.Background(),
	}
}

// Start records the lifecycle context used for scheduled timers and event
// mirroring. Cancelling it stops pending auto-reveal timers.
func (h *Hub) Start(ctx context.Context) {
	h.ctx = ctx
	log.Info().Msg("gateway hub started")
}

// HandleMessage decodes one inbound frame and dispatches it. Malformed
// frames and unknown methods get an error response; frames without a
// positive ID are dropped since there is nothing to correlate a reply to.
func (h *Hub) HandleMessage(conn *Connection, data []byte) {
	var req clientRequest
	if err := json.Unmarshal(data, &req); err != nil {
		log.Warn().
			Err(err).
			Str("connection_id", conn.ID).
			Msg("dropping malformed frame")
		return
	}
	if req.ID <= 0 {
		log.Warn().
			Str("connection_id", conn.ID).
			Str("method", req.Method).
			Msg("dropping frame without request id")
		return
	}

	result, err := h.dispatch(conn, req)
	resp := serverResponse{ID: req.ID}
	if err != nil {
		resp.Error = err.Error()
	} else {
		resp.Result = result
	}
	h.send(conn, resp)
}

func (h *Hub) dispatch(conn *Connection, req clientRequest) (interface{}, error) {
	switch req.Method {
	case "JoinRoom":
		var params joinRoomParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, fmt.Errorf("invalid params: %w", err)
		}
		return h.JoinRoom(conn, params.RoomID, params.Token)

	case "LeaveRoom":
		h.LeaveRoom(conn)
		return true, nil

	case "StartVoting":
		var params StartVotingRequest
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, fmt.Errorf("invalid params: %w", err)
		}
		return h.StartVoting(conn, params)

	case "SubmitVote":
		var params SubmitVoteRequest
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, fmt.Errorf("invalid params: %w", err)
		}
		return h.SubmitVote(conn, params.CardValue)

	default:
		return nil, fmt.Errorf("unknown method %q", req.Method)
	}
}

// JoinRoom authenticates the caller, adds them to the room's session and
// broadcast group, tells the rest of the room, and returns the full state
// snapshot for the joiner to render from. Identity comes from the
// validated token only; callers cannot claim a different username.
func (h *Hub) JoinRoom(conn *Connection, roomID, token string) (*RoomStateSnapshot, error) {
	user, ok := h.tokens.Validate(token)
	if !ok {
		return nil, ErrUnauthorized
	}
	username := user.Username

	room, err := h.rooms.GetRoom(h.ctx, roomID)
	if err != nil {
		if errors.Is(err, rooms.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		log.Error().Err(err).Str("room_id", roomID).Msg("room lookup failed")
		return nil, fmt.Errorf("room lookup failed")
	}

	h.broadcaster.JoinGroup(roomID, conn)
	state := h.directory.AddOrReplace(roomID, username, conn.ID)

	log.Info().
		Str("room_id", roomID).
		Str("username", username).
		Str("connection_id", conn.ID).
		Msg("user joined room")

	h.broadcastExcept(roomID, conn.ID, NewEvent(EventUserJoined, UserPayload{Username: username}))

	return BuildSnapshot(room, state), nil
}

// LeaveRoom removes the caller from their room, if they are in one.
// Leaving while not in a room is a no-op.
func (h *Hub) LeaveRoom(conn *Connection) {
	roomID, ok := h.directory.RoomByConnection(conn.ID)
	if !ok {
		return
	}

	username, _, removed := h.directory.RemoveByConnection(roomID, conn.ID)
	h.broadcaster.LeaveGroup(roomID, conn.ID)
	if !removed {
		return
	}

	log.Info().
		Str("room_id", roomID).
		Str("username", username).
		Msg("user left room")

	h.broadcast(roomID, NewEvent(EventUserLeft, UserPayload{Username: username}))
}

// StartVoting opens a new round in the caller's room. Only the room host
// may start voting. Returns false without error when the session refuses
// (a round is already open).
func (h *Hub) StartVoting(conn *Connection, req StartVotingRequest) (bool, error) {
	roomID, ok := h.directory.RoomByConnection(conn.ID)
	if !ok {
		return false, ErrNotInRoom
	}
	username, ok := h.directory.UsernameByConnection(roomID, conn.ID)
	if !ok {
		return false, ErrNotInRoom
	}

	room, err := h.rooms.GetRoom(h.ctx, roomID)
	if err != nil {
		if errors.Is(err, rooms.ErrNotFound) {
			return false, ErrRoomNotFound
		}
		log.Error().Err(err).Str("room_id", roomID).Msg("room lookup failed")
		return false, fmt.Errorf("room lookup failed")
	}
	if room.HostUsername != username {
		return false, ErrNotHost
	}

	// A timer is optional but must be positive when given; zero would read
	// as an instantly expired round.
	if req.TimerSeconds != nil && *req.TimerSeconds <= 0 {
		return false, ErrInvalidTimer
	}

	// nil means the caller omitted the cards; an explicitly empty slice is
	// honored as given.
	cards := req.CardValues
	if cards == nil {
		cards = room.PokerCards
	}

	session := h.registry.GetOrCreate(roomID)
	state, started := session.StartVoting(req.StoryName, cards, req.TimerSeconds)
	if !started {
		return false, nil
	}

	log.Info().
		Str("room_id", roomID).
		Str("story", req.StoryName).
		Uint64("round", state.Round).
		Msg("voting started")

	h.broadcast(roomID, NewEvent(EventVotingStarted, BuildSnapshot(room, state)))

	if req.TimerSeconds != nil {
		delay := time.Duration(*req.TimerSeconds) * time.Second
		h.scheduler.ScheduleAutoReveal(h.ctx, roomID, state.Round, delay, h.autoReveal)
	}

	return true, nil
}

// SubmitVote records the caller's vote for the current round, tells the
// room who voted, and reveals the results if the vote was the last one.
// Returns false without error when the session refuses (no round open,
// or the caller already voted).
func (h *Hub) SubmitVote(conn *Connection, cardValue string) (bool, error) {
	roomID, ok := h.directory.RoomByConnection(conn.ID)
	if !ok {
		return false, ErrNotInRoom
	}
	username, ok := h.directory.UsernameByConnection(roomID, conn.ID)
	if !ok {
		return false, ErrNotInRoom
	}

	session, ok := h.registry.Get(roomID)
	if !ok {
		return false, ErrNotInRoom
	}

	_, accepted := session.SubmitVote(username, cardValue)
	if !accepted {
		return false, nil
	}

	h.broadcast(roomID, NewEvent(EventUserVoted, UserPayload{Username: username}))

	if state, revealed := session.RevealIfReady(); revealed {
		h.broadcastResults(roomID, state)
	}

	return true, nil
}

// HandleDisconnect cleans up after an ungraceful disconnect: remove the
// participant from their room and tell everyone else they left.
func (h *Hub) HandleDisconnect(conn *Connection) {
	roomID, ok := h.directory.RoomByConnection(conn.ID)
	if !ok {
		return
	}

	username, _, removed := h.directory.RemoveByConnection(roomID, conn.ID)
	if !removed {
		return
	}

	log.Info().
		Str("room_id", roomID).
		Str("username", username).
		Str("connection_id", conn.ID).
		Msg("user disconnected")

	h.broadcast(roomID, NewEvent(EventUserLeft, UserPayload{Username: username}))
}

// autoReveal is the scheduler's fire callback. The round identity guard in
// RevealForRound makes a stale timer a no-op even if a newer round is
// already in flight.
func (h *Hub) autoReveal(roomID string, round uint64) {
	session, ok := h.registry.Get(roomID)
	if !ok {
		return
	}

	state, revealed := session.RevealForRound(round)
	if !revealed {
		log.Debug().
			Str("room_id", roomID).
			Uint64("round", round).
			Msg("auto-reveal timer fired for a closed round")
		return
	}

	log.Info().
		Str("room_id", roomID).
		Uint64("round", round).
		Msg("round auto-revealed")

	h.broadcastResults(roomID, state)
}

func (h *Hub) broadcastResults(roomID string, state voting.State) {
	room, err := h.rooms.GetRoom(h.ctx, roomID)
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("room lookup failed for reveal broadcast")
		return
	}
	h.broadcast(roomID, NewEvent(EventResultsRevealed, BuildSnapshot(room, state)))
}

func (h *Hub) broadcast(roomID string, event *Event) {
	h.broadcaster.Broadcast(roomID, event)
	h.mirror(roomID, event)
}

func (h *Hub) broadcastExcept(roomID, exceptConnectionID string, event *Event) {
	h.broadcaster.BroadcastExcept(roomID, exceptConnectionID, event)
	h.mirror(roomID, event)
}

// mirror copies the event onto the external bus. Mirror failures are
// logged and never surfaced to clients.
func (h *Hub) mirror(roomID string, event *Event) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("failed to marshal event mirror payload")
		return
	}
	if err := h.publisher.Publish(h.ctx, events.NewRoomEvent(string(event.Event), roomID, payload)); err != nil {
		log.Error().
			Err(err).
			Str("room_id", roomID).
			Str("event_type", string(event.Event)).
			Msg("failed to mirror event to bus")
	}
}

func (h *Hub) send(conn *Connection, resp serverResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		log.Error().Err(err).Str("connection_id", conn.ID).Msg("failed to marshal response")
		return
	}
	select {
	case conn.Send <- data:
	default:
		log.Warn().
			Str("connection_id", conn.ID).
			Msg("connection send buffer full, dropping response")
	}
}
