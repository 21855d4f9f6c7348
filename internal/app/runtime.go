package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"quizhub/internal/domain"
)

// Runtime is the ephemeral in-memory state of one live session: connection
// maps, the live score accumulator, question timing, and the subscriber
// fan-out. It is a read-optimized cache of what is happening right now;
// durable facts live in the repositories, never here.
//
// Multiple connection handlers and timer callbacks mutate a Runtime
// concurrently; every transition that changes which question is live is
// serialized under mu and guarded by an epoch that stale timers fail.
type Runtime struct {
	mu      sync.RWMutex
	session *domain.Session
	now     func() time.Time

	hostConn     string
	playerByConn map[string]uuid.UUID
	scores       map[uuid.UUID]int
	answered     map[uuid.UUID]struct{}

	current       int // -1 before the first question
	questionStart time.Time
	duration      time.Duration
	upcoming      time.Time

	// epoch identifies one question instance; it bumps on every begin and
	// end so a timer armed for an earlier instance can never fire into a
	// later one.
	epoch          int
	cancelSchedule context.CancelFunc
	cancelAutoEnd  context.CancelFunc

	subscribers map[chan domain.Event]struct{}
}

// NewRuntime wraps a durable session in fresh live state.
func NewRuntime(session *domain.Session) *Runtime {
	return NewRuntimeWithClock(session, time.Now)
}

// NewRuntimeWithClock allows deterministic timestamps in tests.
func NewRuntimeWithClock(session *domain.Session, now func() time.Time) *Runtime {
	return &Runtime{
		session:      session,
		now:          now,
		playerByConn: make(map[string]uuid.UUID),
		scores:       make(map[uuid.UUID]int),
		answered:     make(map[uuid.UUID]struct{}),
		current:      -1,
		subscribers:  make(map[chan domain.Event]struct{}),
	}
}

// Session returns the durable session this runtime wraps.
func (r *Runtime) Session() *domain.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.session
}

// State reads the session lifecycle state under the runtime lock.
func (r *Runtime) State() domain.SessionState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.session.State
}

// setState transitions the session lifecycle state. All writes to the
// shared session go through the runtime lock so snapshot readers never
// observe a torn transition.
func (r *Runtime) setState(state domain.SessionState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session.State = state
}

// finalizeScoring flips the session to Completed and runs the scoring
// pass while still holding the runtime lock, serializing the State and
// ScoringComplete writes against concurrent snapshot reads.
func (r *Runtime) finalizeScoring(score func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session.State = domain.StateCompleted
	score()
}

// ClaimHost sets (or overwrites) the host connection. Idempotent.
func (r *Runtime) ClaimHost(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hostConn = connID
}

// RegisterPlayer binds a connection to a player and seeds their score.
func (r *Runtime) RegisterPlayer(connID string, playerID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.playerByConn[connID] = playerID
	if _, ok := r.scores[playerID]; !ok {
		r.scores[playerID] = 0
	}
}

// PlayerForConn resolves the player bound to a connection.
func (r *Runtime) PlayerForConn(connID string) (uuid.UUID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.playerByConn[connID]
	return id, ok
}

// DropConnection clears a disconnected client from the host and player maps.
func (r *Runtime) DropConnection(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.playerByConn, connID)
	if r.hostConn == connID {
		r.hostConn = ""
	}
}

// setUpcoming records the next question's start time and swaps in the
// cancel handle of the freshly armed schedule timer, cancelling any timer
// armed before it. Two overlapping "begin question" firings for one session
// are impossible because only the latest handle survives.
func (r *Runtime) setUpcoming(start time.Time, cancel context.CancelFunc) {
	r.mu.Lock()
	prev := r.cancelSchedule
	r.cancelSchedule = cancel
	r.upcoming = start
	r.mu.Unlock()
	if prev != nil {
		prev()
	}
}

// beginQuestion transitions the runtime to a live question and returns the
// epoch owning its auto-end timer. Clears the upcoming marker and the
// answered set, and invalidates both previously armed timers.
func (r *Runtime) beginQuestion(index int, d time.Duration) (epoch int, start time.Time) {
	r.mu.Lock()
	prevSchedule := r.cancelSchedule
	prevAutoEnd := r.cancelAutoEnd
	r.cancelSchedule = nil
	r.cancelAutoEnd = nil

	r.upcoming = time.Time{}
	r.current = index
	r.questionStart = r.now()
	r.duration = d
	r.answered = make(map[uuid.UUID]struct{})
	r.epoch++
	if r.session.State == domain.StateLobby {
		r.session.State = domain.StateInProgress
	}
	epoch, start = r.epoch, r.questionStart
	r.mu.Unlock()

	if prevSchedule != nil {
		prevSchedule()
	}
	if prevAutoEnd != nil {
		prevAutoEnd()
	}
	return epoch, start
}

// armAutoEnd stores the cancel handle for the live question's auto-end
// timer; it is only called by the goroutine that just won beginQuestion.
func (r *Runtime) armAutoEnd(epoch int, cancel context.CancelFunc) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if epoch != r.epoch {
		return false
	}
	r.cancelAutoEnd = cancel
	return true
}

// claimEnd atomically closes the question instance identified by epoch.
// Exactly one caller (the manual path or the expiring timer) wins; every
// other caller observes false and must treat the end as already handled.
func (r *Runtime) claimEnd(epoch int) (index int, won bool) {
	r.mu.Lock()
	if epoch != r.epoch || r.questionStart.IsZero() {
		r.mu.Unlock()
		return 0, false
	}
	index = r.current
	r.questionStart = time.Time{}
	r.duration = 0
	r.epoch++
	cancel := r.cancelAutoEnd
	r.cancelAutoEnd = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return index, true
}

// liveQuestion reports the current question instance if one is open.
func (r *Runtime) liveQuestion() (index int, start time.Time, epoch int, live bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.questionStart.IsZero() {
		return 0, time.Time{}, 0, false
	}
	return r.current, r.questionStart, r.epoch, true
}

// currentEpoch exposes the live epoch for the manual end path.
func (r *Runtime) currentEpoch() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.epoch
}

func (r *Runtime) currentIndex() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// tryMarkAnswered reserves the (player, question) slot. It fails when the
// player already answered this question or the question instance has moved
// on. The reservation is what makes duplicate submissions resolve to one
// stored answer without a later dedup pass.
func (r *Runtime) tryMarkAnswered(playerID uuid.UUID, epoch int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if epoch != r.epoch || r.questionStart.IsZero() {
		return false
	}
	if _, dup := r.answered[playerID]; dup {
		return false
	}
	r.answered[playerID] = struct{}{}
	return true
}

// unmarkAnswered rolls back a reservation whose persistence failed, so a
// player is never shown as answered without a durable record.
func (r *Runtime) unmarkAnswered(playerID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.answered, playerID)
}

func (r *Runtime) hasAnswered(playerID uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.answered[playerID]
	return ok
}

// allAnswered reports whether every currently-registered player has
// answered the live question. Evaluated under the same lock as the answered
// set so a join mid-tally cannot race the detection.
func (r *Runtime) allAnswered() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.questionStart.IsZero() {
		return false
	}
	distinct := make(map[uuid.UUID]struct{}, len(r.playerByConn))
	for _, id := range r.playerByConn {
		distinct[id] = struct{}{}
	}
	return len(distinct) > 0 && len(r.answered) >= len(distinct)
}

// addScore feeds a question's points into the live accumulator.
func (r *Runtime) addScore(playerID uuid.UUID, points int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scores[playerID] += points
}

// setScores replaces the accumulator wholesale after a full scoring pass.
func (r *Runtime) setScores(totals map[uuid.UUID]int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scores = make(map[uuid.UUID]int, len(totals))
	for id, score := range totals {
		r.scores[id] = score
	}
}

func (r *Runtime) score(playerID uuid.UUID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.scores[playerID]
}

// cancelTimers invalidates both pending timers; used on session cancel.
func (r *Runtime) cancelTimers() {
	r.mu.Lock()
	schedule, autoEnd := r.cancelSchedule, r.cancelAutoEnd
	r.cancelSchedule, r.cancelAutoEnd = nil, nil
	r.questionStart = time.Time{}
	r.upcoming = time.Time{}
	r.epoch++
	r.mu.Unlock()

	if schedule != nil {
		schedule()
	}
	if autoEnd != nil {
		autoEnd()
	}
}

// runtimeView is a consistent snapshot used to shape broadcast state.
type runtimeView struct {
	hostConn      string
	current       int
	questionStart time.Time
	duration      time.Duration
	upcoming      time.Time
	state         domain.SessionState
}

func (r *Runtime) view() runtimeView {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return runtimeView{
		hostConn:      r.hostConn,
		current:       r.current,
		questionStart: r.questionStart,
		duration:      r.duration,
		upcoming:      r.upcoming,
		state:         r.session.State,
	}
}

// Subscribe returns a channel receiving every event broadcast to this
// session. The caller must invoke the returned cancel function to avoid
// leaks.
func (r *Runtime) Subscribe() (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, 8)

	r.mu.Lock()
	r.subscribers[ch] = struct{}{}
	r.mu.Unlock()

	cancel := func() {
		r.mu.Lock()
		if _, ok := r.subscribers[ch]; ok {
			delete(r.subscribers, ch)
			close(ch)
		}
		r.mu.Unlock()
	}
	return ch, cancel
}

// Broadcast fans an event out to every subscriber. Slow clients get their
// oldest pending event dropped rather than blocking the session. The
// exclusive lock keeps the drain-then-send pair atomic: with concurrent
// broadcasters a second sender could refill the drained slot and leave the
// first blocked on a full channel.
func (r *Runtime) Broadcast(ev domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ch := range r.subscribers {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

// IsEmpty reports whether no connections remain bound to this runtime.
func (r *Runtime) IsEmpty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hostConn == "" && len(r.playerByConn) == 0 && len(r.subscribers) == 0
}
