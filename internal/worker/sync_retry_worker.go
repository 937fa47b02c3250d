package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/yourorg/flowhub/internal/observability/metrics"
)

// SyncQueue is the dead-letter queue of failed user syncs
type SyncQueue interface {
	DequeueSyncPayload(ctx context.Context) ([]byte, error)
	EnqueueSyncPayload(ctx context.Context, payload []byte) error
	SyncQueueDepth(ctx context.Context) (int64, error)
}

// Syncer re-attempts one queued sync payload
type Syncer interface {
	RetryUpsert(ctx context.Context, payload []byte) error
}

// QueueEmptyFunc reports whether a dequeue error means the queue was empty
type QueueEmptyFunc func(error) bool

// SyncRetryWorker periodically drains the dead-letter queue of failed user
// syncs and replays them against the remote store. The local store already
// committed, so this worker is the only path by which a missed mirror write
// eventually lands.
type SyncRetryWorker struct {
	queue      SyncQueue
	syncer     Syncer
	queueEmpty QueueEmptyFunc
	logger     *slog.Logger
	interval   time.Duration
	batchLimit int
}

// NewSyncRetryWorker creates a new retry worker
func NewSyncRetryWorker(
	queue SyncQueue,
	syncer Syncer,
	queueEmpty QueueEmptyFunc,
	logger *slog.Logger,
	interval time.Duration,
) *SyncRetryWorker {
	if logger == nil {
		logger = slog.Default()
	}

	return &SyncRetryWorker{
		queue:      queue,
		syncer:     syncer,
		queueEmpty: queueEmpty,
		logger:     logger,
		interval:   interval,
		batchLimit: 50,
	}
}

// Start begins the retry loop; it returns when ctx is cancelled
func (w *SyncRetryWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("sync retry worker started", slog.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("sync retry worker stopped")
			return
		case <-ticker.C:
			w.DrainOnce(ctx)
		}
	}
}

// DrainOnce replays up to batchLimit queued payloads. A payload that fails
// again goes back on the queue; a payload that cannot even be parsed is
// dropped, since it would never succeed.
func (w *SyncRetryWorker) DrainOnce(ctx context.Context) {
	for i := 0; i < w.batchLimit; i++ {
		payload, err := w.queue.DequeueSyncPayload(ctx)
		if err != nil {
			if !w.queueEmpty(err) {
				w.logger.Error("failed to read sync queue", slog.String("error", err.Error()))
			}
			break
		}

		if err := w.syncer.RetryUpsert(ctx, payload); err != nil {
			metrics.ObserveSyncRetry("error")
			w.logger.Warn("sync retry failed, re-queueing", slog.String("error", err.Error()))
			if requeueErr := w.queue.EnqueueSyncPayload(ctx, payload); requeueErr != nil {
				w.logger.Error("failed to re-queue sync payload",
					slog.String("error", requeueErr.Error()),
				)
			}
			break
		}
		metrics.ObserveSyncRetry("ok")
	}

	if depth, err := w.queue.SyncQueueDepth(ctx); err == nil {
		metrics.SetSyncRetryQueueDepth(int(depth))
	}
}
