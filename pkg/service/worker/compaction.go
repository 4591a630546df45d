package worker

import (
	"context"
	"time"

	"github.com/starlog-lab/starlog/pkg/domain/model"
	"github.com/starlog-lab/starlog/pkg/domain/types"
	"github.com/starlog-lab/starlog/pkg/utils/errutil"
	"github.com/starlog-lab/starlog/pkg/utils/logging"
)

// CompactionRunner runs one compaction pass over the given figures, all
// stored figures when empty.
type CompactionRunner interface {
	Run(ctx context.Context, figureIDs []types.FigureID) (*model.CompactRunReport, error)
}

// CompactionWorker sweeps every stored figure on a fixed interval so that
// events amended by ingestion get condensed again without an operator.
//
// Runs are serialized: a tick that arrives while a sweep is still running
// is dropped. A single server instance is assumed; several instances would
// compact the same figures, which is safe but wasteful.
type CompactionWorker struct {
	runner   CompactionRunner
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewCompactionWorker creates a worker for periodic compaction
func NewCompactionWorker(runner CompactionRunner, interval time.Duration) *CompactionWorker {
	return &CompactionWorker{
		runner:   runner,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background loop. The first sweep runs after one interval
// so that server startup is not competing with it.
func (w *CompactionWorker) Start(ctx context.Context) {
	logging.Default().Info("Compaction worker starting", "interval", w.interval.String())
	go w.run(ctx)
}

// Stop signals the worker to stop and waits for the running sweep, if any
func (w *CompactionWorker) Stop() {
	logging.Default().Info("Compaction worker stopping")
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("Compaction worker stopped")
}

func (w *CompactionWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			select {
			case <-w.stopCh:
				return
			default:
			}
			w.sweep(ctx)

		case <-w.stopCh:
			return

		case <-ctx.Done():
			logging.Default().Info("Compaction worker context cancelled")
			return
		}
	}
}

// sweep runs one pass. Errors are reported and the next tick tries again.
func (w *CompactionWorker) sweep(ctx context.Context) {
	// stopping the worker cancels an in-flight sweep; committed chunks stay
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-w.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	startTime := time.Now()
	report, err := w.runner.Run(ctx, nil)
	if err != nil {
		_ = errutil.Handle(ctx, err, "scheduled compaction failed (will retry next interval)")
		return
	}

	events, points, truncated, failures := report.Totals()
	logging.Default().Info("Scheduled compaction completed",
		"run_id", report.RunID,
		"figures", len(report.Figures),
		"events", events,
		"points", points,
		"truncated", truncated,
		"failures", failures,
		"documents_committed", report.DocumentsCommitted,
		"duration", time.Since(startTime).String())
}
