package playtime

import (
	"sync"
	"time"

	"typingclash/internal/clock"
)

// DailyGameCap is the most game time any account accrues per date
const DailyGameCap = 30 * time.Minute

// Tracking is the persisted per-date game time state
type Tracking struct {
	Date        string     `json:"date"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	TotalTimeMs int64      `json:"totalTime"`
	Completed   bool       `json:"completed"`
}

// Tracker measures game time for one user. It resets itself when the
// calendar date changes.
type Tracker struct {
	mu       sync.Mutex
	clk      clock.Clock
	dailyCap time.Duration

	tracking Tracking
	playing  bool
	game     string
	// segmentStart is nil while paused
	segmentStart *time.Time
	sessionMs    int64
}

// NewTracker creates a tracker, continuing from prev when it is for today.
func NewTracker(clk clock.Clock, dailyCap time.Duration, prev *Tracking) *Tracker {
	if dailyCap <= 0 {
		dailyCap = DailyGameCap
	}
	t := &Tracker{clk: clk, dailyCap: dailyCap}
	today := clock.Date(clk.Now())
	if prev != nil && prev.Date == today {
		t.tracking = *prev
	} else {
		t.tracking = Tracking{Date: today}
	}
	return t
}

func (t *Tracker) resetIfNewDay(now time.Time) {
	today := clock.Date(now)
	if t.tracking.Date == today {
		return
	}
	t.tracking = Tracking{Date: today}
	t.playing = false
	t.game = ""
	t.segmentStart = nil
	t.sessionMs = 0
}

func (t *Tracker) runningMs(now time.Time) int64 {
	if !t.playing || t.segmentStart == nil {
		return 0
	}
	return now.Sub(*t.segmentStart).Milliseconds()
}

func (t *Tracker) remaining(now time.Time) time.Duration {
	used := t.tracking.TotalTimeMs + t.runningMs(now)
	return max(0, t.dailyCap-time.Duration(used)*time.Millisecond)
}

// Remaining returns the game time left today
func (t *Tracker) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clk.Now()
	t.resetIfNewDay(now)
	return t.remaining(now)
}

// CanPlay reports whether any game time is left today
func (t *Tracker) CanPlay() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clk.Now()
	t.resetIfNewDay(now)
	return t.canPlay(now)
}

func (t *Tracker) canPlay(now time.Time) bool {
	return !t.tracking.Completed && t.remaining(now) > 0
}

// Start begins a session of game. It returns false when the day's game
// time is spent.
func (t *Tracker) Start(game string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clk.Now()
	t.resetIfNewDay(now)
	if !t.canPlay(now) {
		return false
	}

	t.playing = true
	t.game = game
	t.sessionMs = 0
	t.segmentStart = &now
	if t.tracking.StartedAt == nil {
		started := now
		t.tracking.StartedAt = &started
	}
	return true
}

// commit folds the running segment into the totals
func (t *Tracker) commit(now time.Time) {
	if !t.playing || t.segmentStart == nil {
		return
	}
	elapsed := t.runningMs(now)
	t.tracking.TotalTimeMs += elapsed
	t.sessionMs += elapsed
	t.segmentStart = nil
	if time.Duration(t.tracking.TotalTimeMs)*time.Millisecond >= t.dailyCap {
		t.tracking.TotalTimeMs = t.dailyCap.Milliseconds()
		t.tracking.Completed = true
	}
}

// Pause stops the clock without ending the session
func (t *Tracker) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.commit(t.clk.Now())
}

// Resume restarts the clock of a paused session
func (t *Tracker) Resume() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clk.Now()
	if !t.playing || !t.canPlay(now) {
		return false
	}
	if t.segmentStart == nil {
		t.segmentStart = &now
	}
	return true
}

// Stop ends the session and returns the updated tracking together with
// the milliseconds played in this session.
func (t *Tracker) Stop() (Tracking, int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.commit(t.clk.Now())
	played := t.sessionMs
	t.playing = false
	t.game = ""
	t.sessionMs = 0
	return t.tracking, played
}

// Update checks the running session against the daily cap and the
// session limit, stopping it when either is reached. It reports whether
// the session was stopped.
func (t *Tracker) Update(sessionLimit time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.playing {
		return false
	}
	now := t.clk.Now()
	session := time.Duration(t.sessionMs+t.runningMs(now)) * time.Millisecond
	if t.remaining(now) > 0 && (sessionLimit <= 0 || session < sessionLimit) {
		return false
	}
	t.commit(now)
	t.playing = false
	t.game = ""
	return true
}

// Playing returns the current game, if any
func (t *Tracker) Playing() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.game, t.playing
}

// Tracking returns a copy of the persisted state for today
func (t *Tracker) Tracking() Tracking {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetIfNewDay(t.clk.Now())
	return t.tracking
}

// Stale reports whether the tracker holds an earlier date and no game is
// running, so it can be discarded.
func (t *Tracker) Stale(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.playing && t.tracking.Date != clock.Date(now)
}
