package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/yourorg/mailseat/internal/directory"
	"github.com/yourorg/mailseat/internal/domain"
	"github.com/yourorg/mailseat/internal/observability/metrics"
	"github.com/yourorg/mailseat/internal/reliability/circuitbreaker"
	"github.com/yourorg/mailseat/internal/reliability/retry"
)

// SnapshotWorker periodically persists the in-memory directory so a
// restart can restore every seat and keep the id watermark moving forward.
type SnapshotWorker struct {
	dir      *directory.Directory
	store    domain.SnapshotStore
	logger   *slog.Logger
	interval time.Duration
	breaker  *circuitbreaker.CircuitBreaker
	retryCfg *retry.Config
}

// NewSnapshotWorker creates a new snapshot worker
func NewSnapshotWorker(
	dir *directory.Directory,
	store domain.SnapshotStore,
	logger *slog.Logger,
	interval time.Duration,
) *SnapshotWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotWorker{
		dir:      dir,
		store:    store,
		logger:   logger,
		interval: interval,
		breaker:  circuitbreaker.NewCircuitBreaker(3, 1, 30*time.Second),
		retryCfg: retry.DefaultConfig(),
	}
}

// Start begins the snapshot loop. Blocks until ctx is cancelled.
func (w *SnapshotWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("snapshot worker started", slog.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("snapshot worker stopped")
			return
		case <-ticker.C:
			w.snapshot(ctx, "periodic")
		}
	}
}

// SnapshotNow persists the directory immediately, outside the ticker.
// Used for the admin endpoint and the final save on shutdown.
func (w *SnapshotWorker) SnapshotNow(ctx context.Context, source string) error {
	return w.snapshot(ctx, source)
}

func (w *SnapshotWorker) snapshot(ctx context.Context, source string) error {
	users := w.dir.Snapshot()
	metrics.SetDirectorySize(len(users))

	if !w.breaker.AllowRequest() {
		w.logger.Warn("snapshot skipped, store circuit open", slog.String("source", source))
		metrics.ObserveSnapshot(source, "skipped")
		return nil
	}

	_, err := retry.Do(ctx, w.retryCfg, w.logger, "directory_snapshot", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, w.store.SaveAll(ctx, users)
	})
	if err != nil {
		w.breaker.RecordFailure()
		metrics.ObserveSnapshot(source, "error")
		w.logger.Error("failed to persist directory snapshot",
			slog.String("source", source),
			slog.Int("users", len(users)),
			slog.String("error", err.Error()),
		)
		return err
	}

	w.breaker.RecordSuccess()
	metrics.ObserveSnapshot(source, "success")
	w.logger.Info("directory snapshot persisted",
		slog.String("source", source),
		slog.Int("users", len(users)),
	)
	return nil
}
