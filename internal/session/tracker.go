// Package session drives a single user's daily practice: it serves the
// drill sequence, times the session across pauses and completes the day.
package session

import (
	"errors"
	"sync"
	"time"

	"typingclash/internal/clock"
	"typingclash/internal/exercise"
	"typingclash/internal/keyboard"
	"typingclash/internal/progress"
)

var (
	ErrAlreadyCompleted  = progress.ErrAlreadyCompleted
	ErrInvalidTransition = errors.New("invalid session state transition")
	ErrNotEnoughTime     = errors.New("daily practice time not reached")
	ErrNotCompleted      = errors.New("re-practice is available once today's practice is completed")
)

// State of a tracker
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateCompleted State = "completed"
)

// Result classifies a keystroke
type Result string

const (
	Ignored Result = "ignore"
	Correct Result = "correct"
	Wrong   Result = "wrong"
)

// Config holds the session timing rules
type Config struct {
	DailyDuration time.Duration
	RestInterval  time.Duration
}

// DefaultConfig is 30 minutes a day with a rest reminder every 5 minutes
var DefaultConfig = Config{
	DailyDuration: 30 * time.Minute,
	RestInterval:  5 * time.Minute,
}

// Tracker is the practice state machine for one user. It mutates the
// progress aggregate it was given and never persists anything itself.
type Tracker struct {
	mu   sync.Mutex
	user *progress.User
	gen  *exercise.Generator
	clk  clock.Clock
	cfg  Config

	state     State
	practice  bool
	exercises []rune
	index     int

	// elapsed while running is base + now - startedAt; base is the
	// committed time when the segment began.
	base          int64
	startedAt     time.Time
	pausedElapsed int64
	lastCharAt    time.Time
	lastRestAt    time.Time
	restReminder  bool

	dirty   map[rune]bool
	pending []Event

	subMu  sync.Mutex
	subs   map[int]func(Event)
	nextID int
}

// New creates an idle tracker over user
func New(user *progress.User, gen *exercise.Generator, clk clock.Clock, cfg Config) *Tracker {
	if cfg.DailyDuration <= 0 {
		cfg.DailyDuration = DefaultConfig.DailyDuration
	}
	if cfg.RestInterval <= 0 {
		cfg.RestInterval = DefaultConfig.RestInterval
	}
	return &Tracker{
		user:  user,
		gen:   gen,
		clk:   clk,
		cfg:   cfg,
		state: StateIdle,
		dirty: make(map[rune]bool),
		subs:  make(map[int]func(Event)),
	}
}

// User returns the aggregate the tracker mutates
func (t *Tracker) User() *progress.User {
	return t.user
}

// Init rolls the date if needed and prepares today's drill. Any running
// segment is abandoned without committing its time.
func (t *Tracker) Init() Snapshot {
	t.mu.Lock()
	now := t.clk.Now()
	today := clock.Date(now)
	t.user.RollOver(today)
	t.resetState()

	if t.user.TodayCompleted(today) {
		t.state = StateCompleted
	} else {
		t.exercises = t.gen.Generate(t.user.CurrentDay, t.user.Letters)
	}
	snap := t.snapshot(now)
	t.mu.Unlock()
	return snap
}

func (t *Tracker) resetState() {
	t.state = StateIdle
	t.practice = false
	t.exercises = nil
	t.index = 0
	t.base = 0
	t.pausedElapsed = 0
	t.startedAt = time.Time{}
	t.lastCharAt = time.Time{}
	t.lastRestAt = time.Time{}
	t.restReminder = false
}

// Start begins timing today's practice
func (t *Tracker) Start() error {
	t.mu.Lock()
	now := t.clk.Now()
	today := clock.Date(now)

	if (t.state == StateIdle || t.state == StateCompleted) && t.user.RollOver(today) {
		t.resetState()
	}
	if t.user.TodayCompleted(today) {
		t.mu.Unlock()
		return ErrAlreadyCompleted
	}
	if t.state != StateIdle {
		t.mu.Unlock()
		return ErrInvalidTransition
	}

	if len(t.exercises) == 0 {
		t.exercises = t.gen.Generate(t.user.CurrentDay, t.user.Letters)
		t.index = 0
	}
	if t.user.Today.StartedAt == nil {
		started := now
		t.user.Today.StartedAt = &started
	}
	t.beginSegment(now)
	t.state = StateRunning
	t.emit(EventStarted, now)
	t.mu.Unlock()

	t.publish()
	return nil
}

func (t *Tracker) beginSegment(now time.Time) {
	t.base = t.user.Today.TotalTimeMs
	t.startedAt = now
	t.lastCharAt = now
	t.lastRestAt = now
}

// Pause freezes the elapsed time and commits it to today's progress
func (t *Tracker) Pause() error {
	t.mu.Lock()
	if t.state != StateRunning || t.practice {
		t.mu.Unlock()
		return ErrInvalidTransition
	}
	now := t.clk.Now()
	t.pause(now)
	t.mu.Unlock()

	t.publish()
	return nil
}

func (t *Tracker) pause(now time.Time) {
	t.pausedElapsed = t.elapsed(now)
	t.user.Today.TotalTimeMs = t.pausedElapsed
	t.state = StatePaused
	t.emit(EventPaused, now)
}

// Resume continues a paused session from the frozen elapsed time
func (t *Tracker) Resume() error {
	t.mu.Lock()
	if t.state != StatePaused {
		t.mu.Unlock()
		return ErrInvalidTransition
	}
	now := t.clk.Now()
	t.user.Today.TotalTimeMs = t.pausedElapsed
	t.beginSegment(now)
	t.state = StateRunning
	t.emit(EventResumed, now)
	t.mu.Unlock()

	t.publish()
	return nil
}

// HandleInput processes one drill keystroke. Letters are compared case
// insensitively; keys outside the allowed set are ignored. Correct and
// wrong keys both advance to the next character.
func (t *Tracker) HandleInput(key rune) Result {
	t.mu.Lock()
	if t.state != StateRunning || t.practice || t.index >= len(t.exercises) {
		t.mu.Unlock()
		return Ignored
	}
	key = keyboard.Normalize(key)
	if !keyboard.IsAllowedKey(key) {
		t.mu.Unlock()
		return Ignored
	}

	now := t.clk.Now()
	target := t.exercises[t.index]
	correct := key == target
	t.user.RecordKeystroke(target, correct, now.Sub(t.lastCharAt).Milliseconds())
	t.dirty[target] = true
	t.user.Today.TotalTimeMs = t.elapsed(now)

	t.index++
	t.lastCharAt = now
	if t.index >= len(t.exercises) && t.user.Today.TotalTimeMs < t.cfg.DailyDuration.Milliseconds() {
		t.exercises = append(t.exercises, t.gen.Generate(t.user.CurrentDay, t.user.Letters)...)
	}

	res := Wrong
	if correct {
		res = Correct
	}
	t.emit(EventKeystroke, now)
	t.pending[len(t.pending)-1].Result = res

	if now.Sub(t.lastRestAt) >= t.cfg.RestInterval {
		t.restReminder = true
		t.lastRestAt = now
		t.pause(now)
		t.emit(EventRestReminder, now)
	}
	t.mu.Unlock()

	t.publish()
	return res
}

// DismissRestReminder clears the rest reminder flag. The session stays
// paused until Resume.
func (t *Tracker) DismissRestReminder() {
	t.mu.Lock()
	t.restReminder = false
	t.mu.Unlock()
}

// Complete finalises today once the daily duration has been reached.
func (t *Tracker) Complete() (progress.Completion, error) {
	t.mu.Lock()
	now := t.clk.Now()
	if t.state == StateCompleted || t.user.Today.Completed {
		t.mu.Unlock()
		return progress.Completion{}, ErrAlreadyCompleted
	}
	if t.practice {
		t.mu.Unlock()
		return progress.Completion{}, ErrInvalidTransition
	}

	elapsed := t.elapsed(now)
	if elapsed < t.cfg.DailyDuration.Milliseconds() {
		t.mu.Unlock()
		return progress.Completion{}, ErrNotEnoughTime
	}
	t.user.Today.TotalTimeMs = elapsed

	c, err := t.user.CompleteDay(now)
	if err != nil {
		t.mu.Unlock()
		return progress.Completion{}, err
	}
	t.resetState()
	t.state = StateCompleted
	t.emit(EventCompleted, now)
	t.pending[len(t.pending)-1].Completion = &c
	t.mu.Unlock()

	t.publish()
	return c, nil
}

// Restart begins voluntary re-practice on the content of the day just
// completed. It never affects today's progress or points.
func (t *Tracker) Restart() error {
	t.mu.Lock()
	now := t.clk.Now()
	if !t.user.TodayCompleted(clock.Date(now)) {
		t.mu.Unlock()
		return ErrNotCompleted
	}
	t.resetState()
	t.practice = true
	t.exercises = t.gen.Generate(max(t.user.CurrentDay-1, 1), t.user.Letters)
	t.state = StateRunning
	t.lastCharAt = now
	t.emit(EventStarted, now)
	t.mu.Unlock()

	t.publish()
	return nil
}

// HandlePracticeInput processes a re-practice keystroke. Only the
// practice counters of the letter statistics change.
func (t *Tracker) HandlePracticeInput(key rune) Result {
	t.mu.Lock()
	if !t.practice || t.state != StateRunning || t.index >= len(t.exercises) {
		t.mu.Unlock()
		return Ignored
	}
	key = keyboard.Normalize(key)
	if !keyboard.IsAllowedKey(key) {
		t.mu.Unlock()
		return Ignored
	}

	now := t.clk.Now()
	target := t.exercises[t.index]
	correct := key == target
	t.user.Letters.RecordPractice(target, correct, now.Sub(t.lastCharAt).Milliseconds())
	t.dirty[target] = true

	t.index++
	t.lastCharAt = now
	if t.index >= len(t.exercises) {
		t.exercises = append(t.exercises, t.gen.Generate(max(t.user.CurrentDay-1, 1), t.user.Letters)...)
	}

	res := Wrong
	if correct {
		res = Correct
	}
	t.emit(EventKeystroke, now)
	t.pending[len(t.pending)-1].Result = res
	t.mu.Unlock()

	t.publish()
	return res
}

// Reset returns to idle. Time since the last commit is discarded.
func (t *Tracker) Reset() {
	t.mu.Lock()
	now := t.clk.Now()
	completed := t.user.TodayCompleted(clock.Date(now))
	t.resetState()
	if completed {
		t.state = StateCompleted
	}
	t.emit(EventReset, now)
	t.mu.Unlock()

	t.publish()
}

func (t *Tracker) elapsed(now time.Time) int64 {
	switch {
	case t.practice:
		return t.user.Today.TotalTimeMs
	case t.state == StatePaused:
		return t.pausedElapsed
	case t.state == StateRunning:
		return t.base + now.Sub(t.startedAt).Milliseconds()
	default:
		return t.user.Today.TotalTimeMs
	}
}

// Elapsed returns today's practice time including the running segment
func (t *Tracker) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return time.Duration(t.elapsed(t.clk.Now())) * time.Millisecond
}

// Remaining returns the practice time left before completion is allowed
func (t *Tracker) Remaining() time.Duration {
	return max(0, t.cfg.DailyDuration-t.Elapsed())
}

// State returns the current state
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// CurrentChar is the next character to type, or 0 when there is none
func (t *Tracker) CurrentChar() rune {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.index >= len(t.exercises) {
		return 0
	}
	return t.exercises[t.index]
}

// RestReminder reports whether a rest reminder is showing
func (t *Tracker) RestReminder() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.restReminder
}

// TakeDirtyLetters returns the letters touched since the last call
func (t *Tracker) TakeDirtyLetters() []rune {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]rune, 0, len(t.dirty))
	for r := range t.dirty {
		out = append(out, r)
	}
	clear(t.dirty)
	return out
}
