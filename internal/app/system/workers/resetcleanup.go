// internal/app/system/workers/resetcleanup.go
package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ExpiredDeleter removes expired records and reports how many it removed.
// Implemented by the password reset store.
type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// ResetCleanup is a background worker that purges expired password resets.
type ResetCleanup struct {
	store    ExpiredDeleter
	log      *zap.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewResetCleanup creates a cleanup worker that runs every interval.
func NewResetCleanup(store ExpiredDeleter, logger *zap.Logger, interval time.Duration) *ResetCleanup {
	return &ResetCleanup{
		store:    store,
		log:      logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background cleanup loop.
func (w *ResetCleanup) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("password reset cleanup worker started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *ResetCleanup) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
	w.log.Info("password reset cleanup worker stopped")
}

func (w *ResetCleanup) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.cleanup()
		}
	}
}

func (w *ResetCleanup) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := w.store.DeleteExpired(ctx)
	if err != nil {
		w.log.Error("failed to delete expired password resets", zap.Error(err))
		return
	}
	if count > 0 {
		w.log.Info("deleted expired password resets", zap.Int64("count", count))
	}
}
