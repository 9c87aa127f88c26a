package service

import (
	"context"

	"github.com/google/uuid"

	"typingclash/internal/logger"
	"typingclash/internal/offline"
)

// storeWriter applies writes against the store and parks the ones that
// fail on the offline queue. Once anything is queued, later writes queue
// behind it so replays keep their order.
type storeWriter struct {
	queue *offline.Queue
	log   *logger.Logger
}

func (w *storeWriter) write(ctx context.Context, key, name string, fn offline.Func) {
	if key == "" {
		key = uuid.NewString()
	}
	if w.queue.Len() > 0 {
		w.queue.EnqueueKey(key, name, fn)
		w.flush(ctx)
		return
	}
	if err := fn(ctx, key); err != nil {
		w.log.Warn("write failed, queued for retry", "op", name, "error", err)
		w.queue.EnqueueKey(key, name, fn)
	}
}

func (w *storeWriter) flush(ctx context.Context) {
	if n, err := w.queue.Flush(ctx); err != nil {
		w.log.Debug("offline queue still pending", "replayed", n, "pending", w.queue.Len(), "error", err)
	}
}
