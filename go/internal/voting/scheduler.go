package voting

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Scheduler arms one-shot auto-reveal timers for timed rounds. Timers are
// never cancelled explicitly; the fire callback re-checks the session's
// current round identity, which turns a stale timer into an idempotent
// no-op. Panics inside the callback are caught and logged so a timer can
// never take the process down.
type Scheduler struct {
	clock clockwork.Clock
}

// NewScheduler creates a scheduler on the given clock. Production wiring
// passes clockwork.NewRealClock(); tests use a fake clock.
func NewScheduler(clock clockwork.Clock) *Scheduler {
	return &Scheduler{clock: clock}
}

// ScheduleAutoReveal arms a timer for the given room and round. When the
// delay elapses, fire runs with the captured identifiers; it is expected
// to perform the guarded reveal (round identity + ShouldReveal re-check)
// against the current session. Cancelling ctx stops the timer without
// firing.
func (s *Scheduler) ScheduleAutoReveal(ctx context.Context, roomID string, round uint64, delay time.Duration, fire func(roomID string, round uint64)) {
	timer := s.clock.NewTimer(delay)

	log.Debug().
		Str("room_id", roomID).
		Uint64("round", round).
		Dur("delay", delay).
		Msg("scheduled auto-reveal timer")

	go func() {
		select {
		case <-timer.Chan():
			s.fire(roomID, round, fire)
		case <-ctx.Done():
			stopAndDrainTimer(timer)
			log.Debug().
				Str("room_id", roomID).
				Uint64("round", round).
				Msg("auto-reveal timer cancelled by shutdown")
		}
	}()
}

func (s *Scheduler) fire(roomID string, round uint64, fn func(roomID string, round uint64)) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("room_id", roomID).
				Uint64("round", round).
				Interface("panic", r).
				Msg("auto-reveal callback panicked")
		}
	}()
	fn(roomID, round)
}

// stopAndDrainTimer safely stops a timer and drains its channel, following
// the pattern from the time.Timer.Stop documentation.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
