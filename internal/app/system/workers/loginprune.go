// internal/app/system/workers/loginprune.go
package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Pruner deletes records created before a cutoff and reports how many went.
type Pruner interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// LoginPrune is a background worker that drops login history older than
// the retention period.
type LoginPrune struct {
	store     Pruner
	log       *zap.Logger
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewLoginPrune creates a new login history pruning worker.
//
// Parameters:
//   - store: the login history store
//   - logger: zap logger for logging
//   - interval: how often to prune (e.g., 1 hour)
//   - retention: how long records are kept (e.g., 90 days)
func NewLoginPrune(store Pruner, logger *zap.Logger, interval, retention time.Duration) *LoginPrune {
	return &LoginPrune{
		store:     store,
		log:       logger,
		interval:  interval,
		retention: retention,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

// Start prunes once, then keeps pruning every interval until Stop.
func (w *LoginPrune) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("login prune worker started",
		zap.Duration("interval", w.interval),
		zap.Duration("retention", w.retention))
}

// Stop signals the worker to stop and waits for it to finish. Safe to call twice.
func (w *LoginPrune) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		w.log.Info("login prune worker stopped")
	})
}

func (w *LoginPrune) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.prune()
	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.prune()
		}
	}
}

// prune runs one pass and returns the number of records removed.
func (w *LoginPrune) prune() int64 {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := w.store.DeleteBefore(ctx, w.now().UTC().Add(-w.retention))
	if err != nil {
		w.log.Error("failed to prune login history", zap.Error(err))
		return 0
	}

	if count > 0 {
		w.log.Info("pruned login history", zap.Int64("count", count))
	}
	return count
}
