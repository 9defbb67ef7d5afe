package gateway

import (
	"time"

	"github.com/mcdev12/planningpoker/go/internal/models"
	"github.com/mcdev12/planningpoker/go/internal/voting"
)

// EventType names a server push sent to a room's broadcast group.
type EventType string

const (
	EventUserJoined      EventType = "UserJoined"
	EventUserLeft        EventType = "UserLeft"
	EventVotingStarted   EventType = "VotingStarted"
	EventUserVoted       EventType = "UserVoted"
	EventResultsRevealed EventType = "ResultsRevealed"
)

// Event is a server push. Pushes carry no request ID; clients tell them
// apart from call responses by the presence of the event field.
type Event struct {
	Event EventType   `json:"event"`
	Data  interface{} `json:"data"`
}

// NewEvent builds a push event.
func NewEvent(eventType EventType, data interface{}) *Event {
	return &Event{Event: eventType, Data: data}
}

// UserPayload is the data for UserJoined, UserLeft and UserVoted pushes.
// Identity only: for UserVoted the vote value is withheld until reveal.
type UserPayload struct {
	Username string `json:"username"`
}

// StartVotingRequest is the params payload for the StartVoting call.
// CardValues distinguishes omitted (nil, falls back to the room default)
// from explicitly empty. TimerSeconds is only ever taken from the
// request; the room's default countdown is never applied implicitly.
type StartVotingRequest struct {
	StoryName    string   `json:"story_name"`
	CardValues   []string `json:"card_values,omitempty"`
	TimerSeconds *int     `json:"timer_seconds,omitempty"`
}

// SubmitVoteRequest is the params payload for the SubmitVote call.
type SubmitVoteRequest struct {
	CardValue string `json:"card_value"`
}

// ParticipantView is a participant as shown to clients, redacted by mode:
// while voting only HasVoted is populated; once results are revealed only
// Vote is, with the sentinel standing in for missing votes.
type ParticipantView struct {
	Username string  `json:"username"`
	HasVoted bool    `json:"has_voted,omitempty"`
	Vote     *string `json:"vote,omitempty"`
}

// RoomStateSnapshot is the full externally visible projection of a room,
// returned from JoinRoom and pushed with VotingStarted/ResultsRevealed.
type RoomStateSnapshot struct {
	RoomID          string            `json:"room_id"`
	RoomName        string            `json:"room_name"`
	HostUsername    string            `json:"host_username"`
	Mode            voting.Mode       `json:"mode"`
	Participants    []ParticipantView `json:"participants"`
	StoryName       string            `json:"story_name,omitempty"`
	CardValues      []string          `json:"card_values,omitempty"`
	TimerSeconds    *int              `json:"timer_seconds,omitempty"`
	VotingStartTime *time.Time        `json:"voting_start_time,omitempty"`
	Results         *voting.Results   `json:"results,omitempty"`
}

// BuildSnapshot projects a session state copy onto the wire shape,
// applying the per-mode redaction rules. The state copy must have been
// taken under the session lock by the operation being broadcast.
func BuildSnapshot(room *models.RoomConfig, st voting.State) *RoomStateSnapshot {
	snap := &RoomStateSnapshot{
		RoomID:          room.RoomID,
		RoomName:        room.Name,
		HostUsername:    room.HostUsername,
		Mode:            st.Mode,
		StoryName:       st.StoryName,
		VotingStartTime: st.VotingStartTime,
		Participants:    make([]ParticipantView, 0, len(st.Participants)),
	}

	for _, p := range st.Participants {
		view := ParticipantView{Username: p.Username}
		switch st.Mode {
		case voting.ModeVoting:
			view.HasVoted = p.Vote != nil
		case voting.ModeResults:
			vote := voting.NoVoteSentinel
			if p.Vote != nil {
				vote = *p.Vote
			}
			view.Vote = &vote
		}
		snap.Participants = append(snap.Participants, view)
	}

	// The current round's card set wins; before any round has chosen one,
	// show the room default so the client can render the deck.
	if st.CardValues != nil {
		snap.CardValues = st.CardValues
	} else {
		snap.CardValues = room.PokerCards
	}

	if st.Mode == voting.ModeVoting {
		snap.TimerSeconds = st.TimerSeconds
	} else if room.VotingCountdownSeconds > 0 {
		// Outside a round, surface the room default for form pre-fill.
		countdown := room.VotingCountdownSeconds
		snap.TimerSeconds = &countdown
	}

	if st.Mode == voting.ModeResults {
		snap.Results = st.Results
	}

	return snap
}
