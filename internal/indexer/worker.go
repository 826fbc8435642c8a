package indexer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultLockRetryDelay is how long the worker waits before retrying when a
// manual batch holds the index lock.
const DefaultLockRetryDelay = 500 * time.Millisecond

// Worker drains the pending backlog in the background, one small batch at a
// time, and stops on its own once no pending files remain. Failed files are
// left for manual retry.
type Worker struct {
	coordinator *Coordinator
	batchSize   int
	retryDelay  time.Duration

	running atomic.Bool

	mu     sync.Mutex // guards cancel and done
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWorker creates a background worker over coordinator. batchSize values
// below 1 are treated as 1.
func NewWorker(coordinator *Coordinator, batchSize int) *Worker {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Worker{
		coordinator: coordinator,
		batchSize:   batchSize,
		retryDelay:  DefaultLockRetryDelay,
	}
}

// Start launches the worker loop. Returns false if the worker is already
// running; starting twice never spawns a second loop.
func (w *Worker) Start(ctx context.Context) bool {
	if !w.running.CompareAndSwap(false, true) {
		return false
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	w.mu.Lock()
	w.cancel = cancel
	w.done = done
	w.mu.Unlock()

	go func() {
		defer close(done)
		defer w.running.Store(false)
		w.run(ctx)
	}()
	return true
}

// Stop cancels the worker and waits for the loop to exit. Safe to call when
// the worker is not running.
func (w *Worker) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the worker loop is active.
func (w *Worker) Running() bool {
	return w.running.Load()
}

func (w *Worker) run(ctx context.Context) {
	log.Info().Int("batch_size", w.batchSize).Msg("background indexing worker started")

	for {
		if ctx.Err() != nil {
			log.Info().Msg("background indexing worker stopped")
			return
		}

		report, err := w.coordinator.IndexPendingBatch(ctx, w.batchSize)
		if errors.Is(err, ErrIndexingInProgress) {
			select {
			case <-ctx.Done():
				log.Info().Msg("background indexing worker stopped")
				return
			case <-time.After(w.retryDelay):
			}
			continue
		}
		if err != nil {
			if ctx.Err() == nil {
				log.Error().Err(err).Msg("background indexing batch failed")
			}
			log.Info().Msg("background indexing worker stopped")
			return
		}

		if report.FilesAttempted == 0 {
			log.Info().Msg("background indexing worker idle, no pending files")
			return
		}
	}
}
