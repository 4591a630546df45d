package usecase

import (
	"context"
	"slices"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/starlog-lab/starlog/pkg/domain/interfaces"
	"github.com/starlog-lab/starlog/pkg/domain/model"
	"github.com/starlog-lab/starlog/pkg/domain/types"
	"github.com/starlog-lab/starlog/pkg/utils/errutil"
)

// DiagnoseUseCase scans committed timelines for compaction markers that
// contradict the text they mark. It never writes.
type DiagnoseUseCase struct {
	repo interfaces.Repository
	cfg  *settings
}

// Diagnose reports on the committed documents of figureIDs
func (uc *DiagnoseUseCase) Diagnose(ctx context.Context, figureIDs []types.FigureID) (*model.DiagnosisReport, error) {
	report := &model.DiagnosisReport{}

	for _, figureID := range figureIDs {
		diag := &model.FigureDiagnosis{FigureID: figureID}
		for _, category := range types.AllMainCategories() {
			doc, err := uc.repo.Timeline().GetTimeline(ctx, figureID, category)
			if err != nil {
				if ctx.Err() != nil {
					return report, goerr.Wrap(ctx.Err(), "diagnosis cancelled")
				}
				_ = errutil.Handle(ctx, err, "failed to read timeline for diagnosis")
				report.ReadErrors++
				continue
			}
			if doc == nil {
				continue
			}
			diag.Observe(doc, uc.cfg.threshold)
		}
		report.Figures = append(report.Figures, diag)
	}

	return report, nil
}

// DiagnoseAll streams every stored document. Unreadable documents are
// counted and skipped.
func (uc *DiagnoseUseCase) DiagnoseAll(ctx context.Context) (*model.DiagnosisReport, error) {
	report := &model.DiagnosisReport{}
	byFigure := map[types.FigureID]*model.FigureDiagnosis{}

	for doc, err := range uc.repo.Timeline().ListTimelines(ctx) {
		if err != nil {
			if ctx.Err() != nil {
				return report, goerr.Wrap(ctx.Err(), "diagnosis cancelled")
			}
			_ = errutil.Handle(ctx, err, "failed to read timeline for diagnosis")
			report.ReadErrors++
			continue
		}

		diag, ok := byFigure[doc.FigureID]
		if !ok {
			diag = &model.FigureDiagnosis{FigureID: doc.FigureID}
			byFigure[doc.FigureID] = diag
			report.Figures = append(report.Figures, diag)
		}
		diag.Observe(doc, uc.cfg.threshold)
	}

	slices.SortFunc(report.Figures, func(a, b *model.FigureDiagnosis) int {
		return strings.Compare(string(a.FigureID), string(b.FigureID))
	})
	return report, nil
}
