package session

import (
	"time"

	"typingclash/internal/progress"
)

// EventType names a tracker change
type EventType string

const (
	EventStarted      EventType = "started"
	EventPaused       EventType = "paused"
	EventResumed      EventType = "resumed"
	EventKeystroke    EventType = "keystroke"
	EventRestReminder EventType = "rest_reminder"
	EventCompleted    EventType = "completed"
	EventReset        EventType = "reset"
)

// Event is delivered to subscribers after the change is applied
type Event struct {
	Type       EventType
	At         time.Time
	Snapshot   Snapshot
	Result     Result
	Completion *progress.Completion
}

// Subscribe registers fn for every event and returns a function that
// removes it. Callbacks run outside the tracker lock and may call back
// into the tracker.
func (t *Tracker) Subscribe(fn func(Event)) func() {
	t.subMu.Lock()
	id := t.nextID
	t.nextID++
	t.subs[id] = fn
	t.subMu.Unlock()

	return func() {
		t.subMu.Lock()
		delete(t.subs, id)
		t.subMu.Unlock()
	}
}

// emit queues an event; the caller holds t.mu
func (t *Tracker) emit(typ EventType, now time.Time) {
	t.pending = append(t.pending, Event{Type: typ, At: now, Snapshot: t.snapshot(now)})
}

// publish delivers queued events; the caller must not hold t.mu
func (t *Tracker) publish() {
	t.mu.Lock()
	events := t.pending
	t.pending = nil
	t.mu.Unlock()
	if len(events) == 0 {
		return
	}

	t.subMu.Lock()
	subs := make([]func(Event), 0, len(t.subs))
	for _, fn := range t.subs {
		subs = append(subs, fn)
	}
	t.subMu.Unlock()

	for _, ev := range events {
		for _, fn := range subs {
			fn(ev)
		}
	}
}
