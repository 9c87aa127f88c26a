package offline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlushRunsInOrderAndStopsAtFailure(t *testing.T) {
	q := NewQueue()
	var ran []string
	failing := true

	record := func(name string) Func {
		return func(ctx context.Context, key string) error {
			ran = append(ran, name)
			return nil
		}
	}
	q.Enqueue("first", record("first"))
	q.Enqueue("second", func(ctx context.Context, key string) error {
		if failing {
			return errors.New("store unreachable")
		}
		ran = append(ran, "second")
		return nil
	})
	q.Enqueue("third", record("third"))

	n, err := q.Flush(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"first"}, ran)
	assert.Equal(t, 2, q.Len())

	pending := q.Pending()
	assert.Equal(t, "second", pending[0].Name)
	assert.Equal(t, 1, pending[0].Attempts)
	assert.EqualError(t, pending[0].LastErr, "store unreachable")

	failing = false
	n, err = q.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"first", "second", "third"}, ran)
	assert.Zero(t, q.Len())
}

func TestReplayReusesKey(t *testing.T) {
	q := NewQueue()
	var keys []string
	calls := 0
	key := q.Enqueue("ledger", func(ctx context.Context, k string) error {
		keys = append(keys, k)
		calls++
		if calls == 1 {
			return errors.New("timeout")
		}
		return nil
	})

	_, _ = q.Flush(context.Background())
	_, err := q.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{key, key}, keys)
	assert.NotEmpty(t, key)
}

func TestDropDiscardsAndRejects(t *testing.T) {
	q := NewQueue()
	noop := func(ctx context.Context, key string) error { return nil }
	q.Enqueue("a", noop)
	q.Enqueue("b", noop)

	assert.Equal(t, 2, q.Drop())
	q.Enqueue("c", noop)
	assert.Zero(t, q.Len())

	q.Reopen()
	q.EnqueueKey("fixed", "d", noop)
	require.Equal(t, 1, q.Len())
	assert.Equal(t, "fixed", q.Pending()[0].Key)
}

func TestFlushHonoursCancelledContext(t *testing.T) {
	q := NewQueue()
	q.Enqueue("a", func(ctx context.Context, key string) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n, err := q.Flush(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n)
	assert.Equal(t, 1, q.Len())
}
