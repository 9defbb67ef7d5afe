package voting

import (
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Mode defines the state of a room's voting session.
type Mode string

const (
	ModeStart   Mode = "Start"
	ModeVoting  Mode = "Voting"
	ModeResults Mode = "Results"
)

// Participant is a user currently joined to a session. Vote is nil until
// the participant votes in the current round.
type Participant struct {
	Username     string
	ConnectionID string
	Vote         *string
}

// Session is the live voting state machine for a single room. All
// mutations go through methods that hold the session's own mutex, so two
// rooms never contend with each other. Methods return a State copy taken
// under the lock; callers build broadcast payloads from that copy and
// perform I/O only after the lock is released.
type Session struct {
	mu sync.Mutex

	roomID          string
	mode            Mode
	round           uint64
	storyName       string
	cardValues      []string
	timerSeconds    *int
	votingStartTime *time.Time
	participants    map[string]*Participant
	lastResults     *Results

	clock clockwork.Clock
}

// ParticipantState is a point-in-time copy of a participant.
type ParticipantState struct {
	Username     string
	ConnectionID string
	Vote         *string
}

// State is a point-in-time copy of a session, safe to read after the
// session lock has been released.
type State struct {
	RoomID          string
	Mode            Mode
	Round           uint64
	StoryName       string
	CardValues      []string
	TimerSeconds    *int
	VotingStartTime *time.Time
	Participants    []ParticipantState
	Results         *Results
}

func newSession(roomID string, clock clockwork.Clock) *Session {
	return &Session{
		roomID:       roomID,
		mode:         ModeStart,
		participants: make(map[string]*Participant),
		clock:        clock,
	}
}

// RoomID returns the stable room identifier this session belongs to.
func (s *Session) RoomID() string {
	return s.roomID
}

// AddParticipant inserts or replaces the connection mapping for username.
// A rejoin under the same username replaces the previous connection rather
// than creating a duplicate participant, and keeps a vote already locked
// in the current round. It returns the resulting state and the connection
// ID that was replaced, if any.
func (s *Session) AddParticipant(username, connectionID string) (State, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var replaced string
	if existing, ok := s.participants[username]; ok {
		replaced = existing.ConnectionID
		existing.ConnectionID = connectionID
	} else {
		s.participants[username] = &Participant{
			Username:     username,
			ConnectionID: connectionID,
		}
	}
	return s.stateLocked(), replaced
}

// RemoveParticipant removes username from the session. It reports whether
// the participant was present and returns the connection ID that was
// associated with them.
func (s *Session) RemoveParticipant(username string) (State, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.participants[username]
	if !ok {
		return s.stateLocked(), "", false
	}
	delete(s.participants, username)
	return s.stateLocked(), p.ConnectionID, true
}

// RemoveByConnection removes the participant owning connectionID. Used on
// ungraceful disconnect where only the transport identifier is known.
func (s *Session) RemoveByConnection(connectionID string) (string, State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for username, p := range s.participants {
		if p.ConnectionID == connectionID {
			delete(s.participants, username)
			return username, s.stateLocked(), true
		}
	}
	return "", s.stateLocked(), false
}

// UsernameByConnection resolves which participant owns connectionID.
func (s *Session) UsernameByConnection(connectionID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for username, p := range s.participants {
		if p.ConnectionID == connectionID {
			return username, true
		}
	}
	return "", false
}

// StartVoting opens a new round. Allowed only from Start or Results;
// returns false with no state change while a round is already open.
// cardValues is stored as given, including an explicitly empty set; the
// caller resolves nil to the room default before calling. A nil
// timerSeconds means the round has no automatic reveal.
func (s *Session) StartVoting(storyName string, cardValues []string, timerSeconds *int) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != ModeStart && s.mode != ModeResults {
		return s.stateLocked(), false
	}

	s.mode = ModeVoting
	s.round++
	s.storyName = storyName
	s.cardValues = cardValues
	s.timerSeconds = timerSeconds
	now := s.clock.Now()
	s.votingStartTime = &now
	s.lastResults = nil
	for _, p := range s.participants {
		p.Vote = nil
	}

	return s.stateLocked(), true
}

// SubmitVote records a vote for username. Votes are write-once per round:
// a second submission in the same round is rejected and leaves the first
// vote unchanged.
func (s *Session) SubmitVote(username, cardValue string) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != ModeVoting {
		return s.stateLocked(), false
	}
	p, ok := s.participants[username]
	if !ok {
		return s.stateLocked(), false
	}
	if p.Vote != nil {
		return s.stateLocked(), false
	}

	v := cardValue
	p.Vote = &v
	return s.stateLocked(), true
}

// ShouldReveal reports whether the current round is ready to close:
// either every participant has voted (and there is at least one), or the
// round's timer has elapsed.
func (s *Session) ShouldReveal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shouldRevealLocked()
}

func (s *Session) shouldRevealLocked() bool {
	if s.mode != ModeVoting {
		return false
	}
	if len(s.participants) > 0 && s.allVotedLocked() {
		return true
	}
	if s.timerSeconds != nil && s.votingStartTime != nil {
		elapsed := s.clock.Now().Sub(*s.votingStartTime)
		if elapsed >= time.Duration(*s.timerSeconds)*time.Second {
			return true
		}
	}
	return false
}

func (s *Session) allVotedLocked() bool {
	for _, p := range s.participants {
		if p.Vote == nil {
			return false
		}
	}
	return true
}

// Reveal closes the round unconditionally (manual host-side reveal path is
// not exposed over the wire, but the submit-vote path uses RevealIfReady).
// Calling it outside Voting mode is a no-op returning false, which makes
// reveal idempotent under races between callers and the scheduler.
func (s *Session) Reveal() (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revealLocked()
}

// RevealIfReady atomically checks ShouldReveal and, if true, closes the
// round. The check and the transition share one critical section so a
// concurrent mutation cannot slip between them.
func (s *Session) RevealIfReady() (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.shouldRevealLocked() {
		return s.stateLocked(), false
	}
	return s.revealLocked()
}

// RevealForRound is the guarded reveal path used by the round scheduler.
// The round identifier captured at scheduling time must still match the
// session's current round; a stale timer from an earlier round is a
// no-op even if a newer round happens to be in Voting mode.
func (s *Session) RevealForRound(round uint64) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.round != round {
		return s.stateLocked(), false
	}
	if !s.shouldRevealLocked() {
		return s.stateLocked(), false
	}
	return s.revealLocked()
}

func (s *Session) revealLocked() (State, bool) {
	if s.mode != ModeVoting {
		return s.stateLocked(), false
	}
	s.mode = ModeResults
	s.lastResults = calculateResults(s.storyName, s.participants)
	return s.stateLocked(), true
}

// Round returns the identifier of the current round. It increments each
// time a round starts and never resets for the life of the session.
func (s *Session) Round() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round
}

// State returns a copy of the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	st := State{
		RoomID:    s.roomID,
		Mode:      s.mode,
		Round:     s.round,
		StoryName: s.storyName,
		Results:   s.lastResults,
	}
	if s.cardValues != nil {
		st.CardValues = append([]string{}, s.cardValues...)
	}
	if s.timerSeconds != nil {
		t := *s.timerSeconds
		st.TimerSeconds = &t
	}
	if s.votingStartTime != nil {
		at := *s.votingStartTime
		st.VotingStartTime = &at
	}
	st.Participants = make([]ParticipantState, 0, len(s.participants))
	for _, p := range s.participants {
		ps := ParticipantState{
			Username:     p.Username,
			ConnectionID: p.ConnectionID,
		}
		if p.Vote != nil {
			v := *p.Vote
			ps.Vote = &v
		}
		st.Participants = append(st.Participants, ps)
	}
	// Stable ordering keeps broadcast payloads deterministic.
	sort.Slice(st.Participants, func(i, j int) bool {
		return st.Participants[i].Username < st.Participants[j].Username
	})
	return st
}
