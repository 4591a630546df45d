package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/starlog-lab/starlog/pkg/domain/interfaces"
	"github.com/starlog-lab/starlog/pkg/domain/model"
	"github.com/starlog-lab/starlog/pkg/domain/types"
	"github.com/starlog-lab/starlog/pkg/service/timeline"
	"github.com/starlog-lab/starlog/pkg/utils/logging"
)

// ResetUseCase clears compaction markers so that the next compaction
// revisits the marked items. Text is never modified.
type ResetUseCase struct {
	repo  interfaces.Repository
	store *timeline.Store
	cfg   *settings
}

// ResetOptions controls which markers are cleared
type ResetOptions struct {
	// OnlyAnomalous clears only markers on text still over the threshold
	OnlyAnomalous bool
}

// Reset clears markers of figureID and queues the changed documents
func (uc *ResetUseCase) Reset(ctx context.Context, figureID types.FigureID, opts ResetOptions) (*model.ResetReport, error) {
	unlock := uc.store.LockFigure(figureID)
	defer unlock()

	docs, err := uc.store.LoadFigure(ctx, figureID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load figure", goerr.V(FigureIDKey, figureID))
	}

	threshold := uc.cfg.threshold
	report := &model.ResetReport{FigureID: figureID}

	for _, doc := range docs {
		changed := false
		doc.Walk(func(_ string, ev *model.TimelineEvent) {
			if !opts.OnlyAnomalous || ev.IsAnomalous(threshold) {
				if ev.ClearCompaction() {
					report.EventMarkersRemoved++
					changed = true
				}
			}
			for i := range ev.TimelinePoints {
				p := &ev.TimelinePoints[i]
				if opts.OnlyAnomalous && !p.IsAnomalous(threshold) {
					continue
				}
				if p.ClearCompaction() {
					report.PointMarkersRemoved++
					changed = true
				}
			}
		})
		if !changed {
			continue
		}
		if err := uc.store.PutDocument(ctx, doc); err != nil {
			return report, goerr.Wrap(err, "failed to queue reset timeline", goerr.V(FigureIDKey, figureID))
		}
		report.DocumentsWritten++
	}

	logging.From(ctx).Info("compaction markers reset",
		FigureIDKey, figureID,
		"only_anomalous", opts.OnlyAnomalous,
		"event_markers_removed", report.EventMarkersRemoved,
		"point_markers_removed", report.PointMarkersRemoved,
		"documents", report.DocumentsWritten)

	return report, nil
}

// Run resets figureIDs, or every stored figure when empty, and commits
func (uc *ResetUseCase) Run(ctx context.Context, figureIDs []types.FigureID, opts ResetOptions) ([]*model.ResetReport, error) {
	if len(figureIDs) == 0 {
		ids, err := storedFigureIDs(ctx, uc.repo)
		if err != nil {
			return nil, err
		}
		figureIDs = ids
	}

	ctrl := uc.store.Batch()
	var reports []*model.ResetReport
	for _, figureID := range figureIDs {
		report, err := uc.Reset(ctx, figureID, opts)
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)

		if ctrl.Len() >= ctrl.ChunkSize() {
			if _, err := ctrl.Flush(ctx); err != nil {
				return reports, goerr.Wrap(err, "failed to commit reset timelines")
			}
		}
	}

	if _, err := ctrl.Flush(ctx); err != nil {
		return reports, goerr.Wrap(err, "failed to commit reset timelines")
	}
	return reports, nil
}
