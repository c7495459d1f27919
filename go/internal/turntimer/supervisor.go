package turntimer

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/couchplay/roomsync/go/internal/session"
)

// Mover is what the supervisor needs from the session coordinator.
type Mover interface {
	SubmitTimeout(armedSeq uint64)
}

// Supervisor runs the per-turn countdown for one session. It observes
// snapshots and arms a timer only while the local seat owns the turn; the
// deadline comes from the shared state, so every peer counts down against
// the same wall-clock instant. On expiry it routes the synthesized default
// move through the coordinator's normal apply path. The armed sequence makes
// a late fire harmless: the coordinator ignores a timeout for a turn that
// already resolved.
type Supervisor struct {
	clock clockwork.Clock
	mover Mover

	mu    sync.Mutex
	timer clockwork.Timer
}

// New creates a supervisor.
func New(clock clockwork.Clock, mover Mover) *Supervisor {
	return &Supervisor{
		clock: clock,
		mover: mover,
	}
}

// Observe re-arms or disarms the countdown from a session snapshot. Call it
// with every snapshot the coordinator renders.
func (s *Supervisor) Observe(snap session.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}

	if snap.Phase != session.PhasePlaying || snap.Deadline == nil || snap.Seat == nil {
		return
	}
	if snap.TurnSeat != snap.Seat.SeatIndex {
		return // not our countdown
	}

	wait := snap.Deadline.Sub(s.clock.Now())
	if wait < 0 {
		wait = 0
	}
	armedSeq := snap.Seq
	s.timer = s.clock.AfterFunc(wait, func() {
		log.Debug().Uint64("armed_seq", armedSeq).Dur("wait", wait).Msg("turn countdown expired")
		s.mover.SubmitTimeout(armedSeq)
	})
}

// Stop disarms any pending countdown.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Remaining reports the time left on the given snapshot's deadline, clamped
// at zero. Purely a render helper.
func (s *Supervisor) Remaining(snap session.Snapshot) time.Duration {
	if snap.Deadline == nil {
		return 0
	}
	remaining := snap.Deadline.Sub(s.clock.Now())
	if remaining < 0 {
		return 0
	}
	return remaining
}
