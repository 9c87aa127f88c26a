package session

import (
	"time"

	"typingclash/internal/keyboard"
)

// Snapshot is the read-only view of a tracker
type Snapshot struct {
	State          State   `json:"state"`
	Practice       bool    `json:"practice"`
	CurrentChar    string  `json:"currentChar"`
	Index          int     `json:"index"`
	Length         int     `json:"length"`
	Progress       float64 `json:"progress"`
	ElapsedMs      int64   `json:"elapsedMs"`
	RemainingMs    int64   `json:"remainingMs"`
	IsCompleted    bool    `json:"isCompleted"`
	TodayCompleted bool    `json:"todayCompleted"`
	RestReminder   bool    `json:"restReminder"`
	Day            int     `json:"day"`
	DayDescription string  `json:"dayDescription"`
	Stage          string  `json:"stage"`
	TotalChars     int     `json:"totalChars"`
	CorrectChars   int     `json:"correctChars"`
}

// Snapshot returns the current view
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot(t.clk.Now())
}

func (t *Tracker) snapshot(now time.Time) Snapshot {
	elapsed := t.elapsed(now)
	daily := t.cfg.DailyDuration.Milliseconds()

	s := Snapshot{
		State:          t.state,
		Practice:       t.practice,
		Index:          t.index,
		Length:         len(t.exercises),
		ElapsedMs:      elapsed,
		RemainingMs:    max(0, daily-elapsed),
		IsCompleted:    elapsed >= daily,
		TodayCompleted: t.user.Today.Completed,
		RestReminder:   t.restReminder,
		Day:            t.user.CurrentDay,
		DayDescription: keyboard.DayDescription(t.user.CurrentDay),
		Stage:          keyboard.StageDescription(t.user.CurrentDay),
		TotalChars:     t.user.Today.TotalChars,
		CorrectChars:   t.user.Today.CorrectChars,
	}
	if t.index < len(t.exercises) {
		s.CurrentChar = string(t.exercises[t.index])
	}
	if len(t.exercises) > 0 {
		s.Progress = float64(t.index) / float64(len(t.exercises)) * 100
	}
	return s
}
