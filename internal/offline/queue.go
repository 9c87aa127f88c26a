// Package offline buffers writes that failed against the store and replays
// them in order once it is reachable again.
package offline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Func performs one write. key is stable across retries so the store can
// deduplicate replays.
type Func func(ctx context.Context, key string) error

// Op is a queued write
type Op struct {
	Key      string
	Name     string
	Attempts int
	QueuedAt time.Time
	LastErr  error
	fn       Func
}

// Queue is an in-memory FIFO of pending writes. Delivery is at least once;
// nothing survives a restart.
type Queue struct {
	mu      sync.Mutex
	ops     []*Op
	dropped bool
}

// NewQueue creates an empty queue
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue appends a write and returns its idempotency key
func (q *Queue) Enqueue(name string, fn Func) string {
	return q.EnqueueKey(uuid.NewString(), name, fn)
}

// EnqueueKey appends a write under a caller-chosen key. Writes queued after
// Drop are discarded.
func (q *Queue) EnqueueKey(key, name string, fn Func) string {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.dropped {
		return key
	}
	q.ops = append(q.ops, &Op{Key: key, Name: name, QueuedAt: time.Now(), fn: fn})
	return key
}

// Flush replays queued writes in order. It stops at the first failure and
// keeps that write and everything after it. It returns how many writes
// succeeded.
func (q *Queue) Flush(ctx context.Context) (int, error) {
	done := 0
	for {
		if err := ctx.Err(); err != nil {
			return done, err
		}

		q.mu.Lock()
		if len(q.ops) == 0 {
			q.mu.Unlock()
			return done, nil
		}
		op := q.ops[0]
		op.Attempts++
		q.mu.Unlock()

		if err := op.fn(ctx, op.Key); err != nil {
			q.mu.Lock()
			op.LastErr = err
			q.mu.Unlock()
			return done, fmt.Errorf("failed to replay %s: %w", op.Name, err)
		}

		q.mu.Lock()
		if len(q.ops) > 0 && q.ops[0] == op {
			q.ops = q.ops[1:]
		}
		q.mu.Unlock()
		done++
	}
}

// Len returns the number of pending writes
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// Pending returns copies of the queued writes in order
func (q *Queue) Pending() []Op {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Op, 0, len(q.ops))
	for _, op := range q.ops {
		c := *op
		c.fn = nil
		out = append(out, c)
	}
	return out
}

// Drop discards every pending write and stops accepting new ones. It
// returns how many were discarded.
func (q *Queue) Drop() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.ops)
	q.ops = nil
	q.dropped = true
	return n
}

// Reopen accepts writes again after Drop
func (q *Queue) Reopen() {
	q.mu.Lock()
	q.dropped = false
	q.mu.Unlock()
}
