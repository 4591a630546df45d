package usecase

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/starlog-lab/starlog/pkg/domain/interfaces"
	"github.com/starlog-lab/starlog/pkg/domain/model"
	"github.com/starlog-lab/starlog/pkg/domain/types"
	"github.com/starlog-lab/starlog/pkg/service/timeline"
	"github.com/starlog-lab/starlog/pkg/utils/errutil"
	"github.com/starlog-lab/starlog/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

// CompactUseCase condenses over-long event summaries and point descriptions
type CompactUseCase struct {
	repo       interfaces.Repository
	summarizer interfaces.Summarizer
	store      *timeline.Store
	cfg        *settings
}

// condenseWithinBound asks the summarizer for at most maxWords words. Output
// that is still too long gets one more attempt with a tighter budget and is
// then cut to the bound, so the result always fits.
func (uc *CompactUseCase) condenseWithinBound(ctx context.Context, text string, maxWords int) (string, bool, error) {
	out, err := condense(ctx, uc.cfg, uc.summarizer, text, maxWords)
	if err != nil {
		return "", false, err
	}
	if fits(out, maxWords) {
		return out, false, nil
	}

	tighter := max(1, maxWords*3/4)
	logging.From(ctx).Debug("condensed text over bound, retrying with tighter budget",
		"words", model.WordCount(out), "max_words", maxWords, "budget", tighter)

	retried, err := condense(ctx, uc.cfg, uc.summarizer, text, tighter)
	if err == nil && fits(retried, maxWords) {
		return retried, false, nil
	}
	if ctx.Err() != nil {
		return "", false, goerr.Wrap(ctx.Err(), "compaction cancelled")
	}

	base := out
	if err == nil && model.WordCount(retried) > 0 {
		base = retried
	}
	if model.WordCount(base) == 0 {
		base = text
	}
	return model.TruncateWords(base, maxWords), true, nil
}

func fits(text string, maxWords int) bool {
	n := model.WordCount(text)
	return n > 0 && n <= maxWords
}

// CompactFigure condenses every unmarked event summary and point description
// of figureID that is over the threshold. Marked items are skipped without a
// summarizer call and only changed documents are queued, so running it on a
// compacted figure costs nothing.
func (uc *CompactUseCase) CompactFigure(ctx context.Context, figureID types.FigureID) (*model.CompactionReport, error) {
	if uc.summarizer == nil {
		return nil, goerr.Wrap(ErrNoSummarizer, "compaction needs a summarizer")
	}

	unlock := uc.store.LockFigure(figureID)
	defer unlock()

	docs, err := uc.store.LoadFigure(ctx, figureID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load figure", goerr.V(FigureIDKey, figureID))
	}

	threshold := uc.cfg.threshold
	report := &model.CompactionReport{FigureID: figureID}

	for _, doc := range docs {
		changed := false

		doc.Walk(func(subcategory string, ev *model.TimelineEvent) {
			if ctx.Err() != nil {
				return
			}
			fail := func(pointIndex int, err error) {
				report.Failures = append(report.Failures, model.CompactionFailure{
					MainCategory: doc.MainCategory,
					Subcategory:  subcategory,
					EventID:      ev.ID,
					PointIndex:   pointIndex,
					Reason:       err.Error(),
				})
			}

			if ev.NeedsCompaction(threshold) {
				text, truncated, err := uc.condenseWithinBound(ctx, ev.EventSummary, threshold)
				if err == nil {
					err = ev.ApplyCompactedSummary(text, threshold)
				}
				if err != nil {
					fail(-1, err)
				} else {
					changed = true
					report.EventsRewritten++
					if truncated {
						report.EventsTruncated++
					}
				}
			}

			for i := range ev.TimelinePoints {
				if ctx.Err() != nil {
					return
				}
				p := &ev.TimelinePoints[i]
				if !p.NeedsCompaction(threshold) {
					continue
				}
				text, _, err := uc.condenseWithinBound(ctx, p.Description, threshold)
				if err == nil {
					err = p.ApplyCompactedDescription(text, threshold)
				}
				if err != nil {
					fail(i, err)
					continue
				}
				changed = true
				report.PointsRewritten++
			}
		})

		if err := ctx.Err(); err != nil {
			return report, goerr.Wrap(err, "compaction cancelled", goerr.V(FigureIDKey, figureID))
		}
		if !changed {
			continue
		}
		if err := uc.store.PutDocument(ctx, doc); err != nil {
			return report, goerr.Wrap(err, "failed to queue compacted timeline", goerr.V(FigureIDKey, figureID))
		}
		report.DocumentsQueued++
	}

	logging.From(ctx).Info("figure compacted",
		FigureIDKey, figureID,
		"events_rewritten", report.EventsRewritten,
		"points_rewritten", report.PointsRewritten,
		"events_truncated", report.EventsTruncated,
		"failures", len(report.Failures))

	return report, nil
}

// storedFigureIDs lists the figures that have at least one stored document
func storedFigureIDs(ctx context.Context, repo interfaces.Repository) ([]types.FigureID, error) {
	seen := map[types.FigureID]struct{}{}
	var ids []types.FigureID
	for doc, err := range repo.Timeline().ListTimelines(ctx) {
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list timelines")
		}
		if _, ok := seen[doc.FigureID]; ok {
			continue
		}
		seen[doc.FigureID] = struct{}{}
		ids = append(ids, doc.FigureID)
	}
	slices.Sort(ids)
	return ids, nil
}

// Run compacts figureIDs in parallel, or every stored figure when empty, and
// commits the result. A failing figure is counted and does not stop the run.
func (uc *CompactUseCase) Run(ctx context.Context, figureIDs []types.FigureID) (*model.CompactRunReport, error) {
	if uc.summarizer == nil {
		return nil, goerr.Wrap(ErrNoSummarizer, "compaction needs a summarizer")
	}

	report := &model.CompactRunReport{
		RunID:     uuid.NewString(),
		StartedAt: uc.cfg.now(),
	}
	logger := logging.From(ctx).With("run_id", report.RunID)
	ctx = logging.With(ctx, logger)

	if len(figureIDs) == 0 {
		ids, err := storedFigureIDs(ctx, uc.repo)
		if err != nil {
			return nil, err
		}
		figureIDs = ids
	}

	var mu sync.Mutex
	ctrl := uc.store.Batch()
	flush := func(ctx context.Context) {
		flushed, err := ctrl.Flush(ctx)
		mu.Lock()
		report.DocumentsCommitted += flushed.DocumentsCommitted
		mu.Unlock()
		if err != nil {
			_ = errutil.Handle(ctx, err, "failed to flush compacted timelines")
		}
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(uc.cfg.concurrency)

	for _, figureID := range figureIDs {
		if egCtx.Err() != nil {
			break
		}
		eg.Go(func() error {
			figReport, err := uc.CompactFigure(egCtx, figureID)
			mu.Lock()
			if figReport != nil {
				report.Figures = append(report.Figures, figReport)
			}
			if err != nil {
				report.FigureErrors++
			}
			mu.Unlock()
			if err != nil {
				_ = errutil.Handle(egCtx, err, "failed to compact figure")
			}

			if ctrl.Len() >= ctrl.ChunkSize() {
				flush(egCtx)
			}
			return nil
		})
	}
	_ = eg.Wait()

	flush(ctx)
	report.Pending = ctrl.Len()
	report.FinishedAt = uc.cfg.now()

	slices.SortFunc(report.Figures, func(a, b *model.CompactionReport) int {
		switch {
		case a.FigureID < b.FigureID:
			return -1
		case a.FigureID > b.FigureID:
			return 1
		}
		return 0
	})

	events, points, truncated, failures := report.Totals()
	logger.Info("compaction run finished",
		"figures", len(report.Figures),
		"events_rewritten", events,
		"points_rewritten", points,
		"events_truncated", truncated,
		"failures", failures,
		"figure_errors", report.FigureErrors,
		"committed", report.DocumentsCommitted,
		"pending", report.Pending)

	if err := uc.cfg.notifier.Notify(context.WithoutCancel(ctx), report.Notification()); err != nil {
		_ = errutil.Handle(ctx, err, "failed to send run notification")
	}

	if err := ctx.Err(); err != nil {
		return report, goerr.Wrap(err, "compaction run cancelled", goerr.V("pending", report.Pending))
	}
	if report.Pending > 0 {
		return report, goerr.New("compaction run left uncommitted documents", goerr.V("pending", report.Pending))
	}
	return report, nil
}
