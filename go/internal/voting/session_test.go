package voting

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func intPtr(v int) *int { return &v }

func newTestSession(t *testing.T) (*Session, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	return newSession("room-1", clock), clock
}

func findParticipant(t *testing.T, st State, username string) ParticipantState {
	t.Helper()
	for _, p := range st.Participants {
		if p.Username == username {
			return p
		}
	}
	t.Fatalf("participant %q not found in state", username)
	return ParticipantState{}
}

func TestSessionStartsInStartMode(t *testing.T) {
	s, _ := newTestSession(t)

	st := s.State()
	if st.Mode != ModeStart {
		t.Fatalf("mode = %q, want %q", st.Mode, ModeStart)
	}
	if st.Round != 0 {
		t.Fatalf("round = %d, want 0", st.Round)
	}
}

func TestAddParticipantRejoinReplacesConnection(t *testing.T) {
	s, _ := newTestSession(t)

	s.AddParticipant("alice", "conn-1")
	st, replaced := s.AddParticipant("alice", "conn-2")

	if replaced != "conn-1" {
		t.Fatalf("replaced = %q, want conn-1", replaced)
	}
	if len(st.Participants) != 1 {
		t.Fatalf("participants = %d, want 1", len(st.Participants))
	}
	if got := st.Participants[0].ConnectionID; got != "conn-2" {
		t.Fatalf("connection = %q, want conn-2", got)
	}
}

func TestRejoinPreservesLockedVote(t *testing.T) {
	s, _ := newTestSession(t)

	s.AddParticipant("alice", "conn-1")
	s.AddParticipant("bob", "conn-2")
	s.StartVoting("story", []string{"1", "2", "3"}, nil)
	if _, ok := s.SubmitVote("alice", "3"); !ok {
		t.Fatal("vote rejected")
	}

	st, _ := s.AddParticipant("alice", "conn-3")
	p := findParticipant(t, st, "alice")
	if p.Vote == nil || *p.Vote != "3" {
		t.Fatalf("vote after rejoin = %v, want 3", p.Vote)
	}
}

func TestStartVotingClearsPreviousRound(t *testing.T) {
	s, _ := newTestSession(t)
	s.AddParticipant("alice", "conn-1")

	s.StartVoting("first", []string{"1", "2"}, nil)
	s.SubmitVote("alice", "1")
	if _, revealed := s.RevealIfReady(); !revealed {
		t.Fatal("expected reveal after the only participant voted")
	}

	st, started := s.StartVoting("second", []string{"1", "2"}, nil)
	if !started {
		t.Fatal("start from Results refused")
	}
	if st.Mode != ModeVoting {
		t.Fatalf("mode = %q, want %q", st.Mode, ModeVoting)
	}
	if st.StoryName != "second" {
		t.Fatalf("story = %q, want second", st.StoryName)
	}
	if st.Results != nil {
		t.Fatal("results not cleared on new round")
	}
	if p := findParticipant(t, st, "alice"); p.Vote != nil {
		t.Fatal("vote not cleared on new round")
	}
}

func TestStartVotingRefusedMidRound(t *testing.T) {
	s, _ := newTestSession(t)
	s.AddParticipant("alice", "conn-1")
	s.AddParticipant("bob", "conn-2")

	st, _ := s.StartVoting("story", nil, nil)
	round := st.Round

	st, started := s.StartVoting("another", nil, nil)
	if started {
		t.Fatal("start accepted while a round was open")
	}
	if st.Round != round {
		t.Fatalf("round changed on refused start: %d -> %d", round, st.Round)
	}
	if st.StoryName != "story" {
		t.Fatalf("story changed on refused start: %q", st.StoryName)
	}
}

func TestSubmitVoteWriteOncePerRound(t *testing.T) {
	s, _ := newTestSession(t)
	s.AddParticipant("alice", "conn-1")
	s.AddParticipant("bob", "conn-2")
	s.StartVoting("story", []string{"1", "2", "3"}, nil)

	if _, ok := s.SubmitVote("alice", "1"); !ok {
		t.Fatal("first vote rejected")
	}
	st, ok := s.SubmitVote("alice", "3")
	if ok {
		t.Fatal("second vote accepted")
	}
	if p := findParticipant(t, st, "alice"); p.Vote == nil || *p.Vote != "1" {
		t.Fatalf("vote = %v, want original 1", p.Vote)
	}
}

func TestSubmitVoteRejectedOutsideVoting(t *testing.T) {
	s, _ := newTestSession(t)
	s.AddParticipant("alice", "conn-1")

	if _, ok := s.SubmitVote("alice", "1"); ok {
		t.Fatal("vote accepted in Start mode")
	}

	s.StartVoting("story", nil, nil)
	s.SubmitVote("alice", "1")
	s.RevealIfReady()

	if _, ok := s.SubmitVote("alice", "2"); ok {
		t.Fatal("vote accepted in Results mode")
	}
}

func TestSubmitVoteRejectedForNonParticipant(t *testing.T) {
	s, _ := newTestSession(t)
	s.AddParticipant("alice", "conn-1")
	s.StartVoting("story", nil, nil)

	if _, ok := s.SubmitVote("mallory", "1"); ok {
		t.Fatal("vote accepted from non-participant")
	}
}

func TestRevealIfReadyWhenAllVoted(t *testing.T) {
	s, _ := newTestSession(t)
	s.AddParticipant("alice", "conn-1")
	s.AddParticipant("bob", "conn-2")
	s.StartVoting("story", []string{"1", "2", "3", "5"}, nil)

	s.SubmitVote("alice", "2")
	if _, revealed := s.RevealIfReady(); revealed {
		t.Fatal("revealed with a vote outstanding")
	}

	s.SubmitVote("bob", "3")
	st, revealed := s.RevealIfReady()
	if !revealed {
		t.Fatal("not revealed after all voted")
	}
	if st.Mode != ModeResults {
		t.Fatalf("mode = %q, want %q", st.Mode, ModeResults)
	}
	if st.Results == nil {
		t.Fatal("results missing after reveal")
	}
	if got := *st.Results.AverageScore; got != 2.5 {
		t.Fatalf("average = %v, want 2.5", got)
	}
}

func TestRevealIsIdempotent(t *testing.T) {
	s, _ := newTestSession(t)
	s.AddParticipant("alice", "conn-1")
	s.StartVoting("story", nil, nil)
	s.SubmitVote("alice", "5")

	if _, revealed := s.RevealIfReady(); !revealed {
		t.Fatal("first reveal refused")
	}
	if _, revealed := s.RevealIfReady(); revealed {
		t.Fatal("second reveal succeeded")
	}
	if _, revealed := s.Reveal(); revealed {
		t.Fatal("unconditional reveal succeeded outside Voting")
	}
}

func TestEmptyRoomNeverAutoReveals(t *testing.T) {
	s, _ := newTestSession(t)
	s.AddParticipant("alice", "conn-1")
	s.StartVoting("story", nil, nil)
	s.RemoveParticipant("alice")

	// Zero participants means "all voted" is vacuously true; the reveal
	// condition requires at least one.
	if s.ShouldReveal() {
		t.Fatal("empty room reported ready to reveal")
	}
}

func TestTimerElapsedTriggersReveal(t *testing.T) {
	s, clock := newTestSession(t)
	s.AddParticipant("alice", "conn-1")
	s.AddParticipant("bob", "conn-2")
	s.StartVoting("story", nil, intPtr(30))
	s.SubmitVote("alice", "1")

	if s.ShouldReveal() {
		t.Fatal("ready to reveal before timer elapsed")
	}

	clock.Advance(30 * time.Second)
	st, revealed := s.RevealIfReady()
	if !revealed {
		t.Fatal("not revealed after timer elapsed")
	}
	if got := st.Results.UserVotes["bob"]; got != NoVoteSentinel {
		t.Fatalf("bob's vote = %q, want sentinel", got)
	}
}

func TestRevealForRoundIgnoresStaleRound(t *testing.T) {
	s, clock := newTestSession(t)
	s.AddParticipant("alice", "conn-1")

	st, _ := s.StartVoting("first", nil, intPtr(10))
	firstRound := st.Round

	// Round one closes and a fresh timed round opens before the stale
	// timer fires.
	s.SubmitVote("alice", "1")
	s.RevealIfReady()
	st, _ = s.StartVoting("second", nil, intPtr(60))

	clock.Advance(10 * time.Second)
	if _, revealed := s.RevealForRound(firstRound); revealed {
		t.Fatal("stale round timer revealed a newer round")
	}
	if got := s.State().Mode; got != ModeVoting {
		t.Fatalf("mode = %q, want %q", got, ModeVoting)
	}

	clock.Advance(50 * time.Second)
	if _, revealed := s.RevealForRound(st.Round); !revealed {
		t.Fatal("current round timer failed to reveal")
	}
}

func TestRevealForRoundRechecksReadiness(t *testing.T) {
	s, _ := newTestSession(t)
	s.AddParticipant("alice", "conn-1")
	st, _ := s.StartVoting("story", nil, intPtr(60))

	// Same round, timer not elapsed, not everyone voted: no reveal.
	if _, revealed := s.RevealForRound(st.Round); revealed {
		t.Fatal("revealed before the round was ready")
	}
}

func TestRemoveByConnection(t *testing.T) {
	s, _ := newTestSession(t)
	s.AddParticipant("alice", "conn-1")
	s.AddParticipant("bob", "conn-2")

	username, st, ok := s.RemoveByConnection("conn-1")
	if !ok {
		t.Fatal("removal failed")
	}
	if username != "alice" {
		t.Fatalf("username = %q, want alice", username)
	}
	if len(st.Participants) != 1 {
		t.Fatalf("participants = %d, want 1", len(st.Participants))
	}

	if _, _, ok := s.RemoveByConnection("conn-unknown"); ok {
		t.Fatal("removal succeeded for unknown connection")
	}
}

func TestLastVoterLeavingDoesNotReveal(t *testing.T) {
	s, _ := newTestSession(t)
	s.AddParticipant("alice", "conn-1")
	s.AddParticipant("bob", "conn-2")
	s.StartVoting("story", nil, nil)
	s.SubmitVote("alice", "1")

	// Bob leaves without voting. Everyone remaining has voted, so the
	// session reports ready; the caller decides whether to act on it.
	s.RemoveParticipant("bob")
	if !s.ShouldReveal() {
		t.Fatal("not ready after sole non-voter left")
	}
}

func TestStateIsACopy(t *testing.T) {
	s, _ := newTestSession(t)
	s.AddParticipant("alice", "conn-1")
	s.StartVoting("story", []string{"1", "2"}, intPtr(30))

	st := s.State()
	st.CardValues[0] = "mutated"
	*st.TimerSeconds = 999

	fresh := s.State()
	if fresh.CardValues[0] != "1" {
		t.Fatal("card values shared with internal state")
	}
	if *fresh.TimerSeconds != 30 {
		t.Fatal("timer shared with internal state")
	}
}

func TestParticipantsSortedByUsername(t *testing.T) {
	s, _ := newTestSession(t)
	s.AddParticipant("carol", "conn-3")
	s.AddParticipant("alice", "conn-1")
	s.AddParticipant("bob", "conn-2")

	st := s.State()
	want := []string{"alice", "bob", "carol"}
	for i, p := range st.Participants {
		if p.Username != want[i] {
			t.Fatalf("participants[%d] = %q, want %q", i, p.Username, want[i])
		}
	}
}

func TestExplicitlyEmptyCardValuesHonored(t *testing.T) {
	s, _ := newTestSession(t)
	s.AddParticipant("alice", "conn-1")

	st, _ := s.StartVoting("story", []string{}, nil)
	if st.CardValues == nil {
		t.Fatal("empty card set collapsed to nil")
	}
	if len(st.CardValues) != 0 {
		t.Fatalf("card values = %v, want empty", st.CardValues)
	}
}

func TestRoundIncrementsPerStart(t *testing.T) {
	s, _ := newTestSession(t)
	s.AddParticipant("alice", "conn-1")

	for want := uint64(1); want <= 3; want++ {
		st, started := s.StartVoting("story", nil, nil)
		if !started {
			t.Fatalf("round %d refused", want)
		}
		if st.Round != want {
			t.Fatalf("round = %d, want %d", st.Round, want)
		}
		s.SubmitVote("alice", "1")
		s.RevealIfReady()
	}
}
