package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/m-mizutani/gt"
	"github.com/starlog-lab/starlog/pkg/domain/model"
	"github.com/starlog-lab/starlog/pkg/domain/types"
)

func init() {
	color.NoColor = true
}

func TestPrintIngestReport(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	t.Run("dry run hides write counts", func(t *testing.T) {
		var buf bytes.Buffer
		printIngestReport(&buf, &model.IngestRunReport{
			RunID: "r1", DryRun: true, Articles: 3, Mentions: 2,
			StartedAt: start, FinishedAt: start.Add(time.Second),
		})
		gt.String(t, buf.String()).Contains("Ingestion (dry run)")
		gt.String(t, buf.String()).Contains("mentions")
		gt.String(t, buf.String()).NotContains("created")
	})

	t.Run("full run", func(t *testing.T) {
		var buf bytes.Buffer
		printIngestReport(&buf, &model.IngestRunReport{
			RunID: "r2", Articles: 3, Mentions: 2, Created: 1, Amended: 1,
			StartedAt: start, FinishedAt: start.Add(time.Second),
		})
		gt.String(t, buf.String()).Contains("created")
		gt.String(t, buf.String()).Contains("amended")
	})
}

func TestPrintDiagnosis(t *testing.T) {
	report := &model.DiagnosisReport{
		Figures: []*model.FigureDiagnosis{
			{
				FigureID:              "iu",
				Documents:             1,
				Events:                1,
				EventsMarkedCompacted: 1,
				Anomalies: []model.Anomaly{
					{
						Kind:         model.AnomalyKindPoint,
						MainCategory: types.MainCategoryLiveBroadcast,
						Subcategory:  "Concerts",
						EventTitle:   "Solo concert",
						EventID:      "ev1",
						PointIndex:   2,
						WordCount:    70,
					},
				},
			},
		},
	}

	var quiet bytes.Buffer
	printDiagnosis(&quiet, report, false)
	gt.String(t, quiet.String()).Contains("iu")
	gt.String(t, quiet.String()).NotContains("Solo concert")

	var verbose bytes.Buffer
	printDiagnosis(&verbose, report, true)
	gt.String(t, verbose.String()).Contains(`"Solo concert" ev1 point 2: 70 words`)
}

func TestPrintResetReports(t *testing.T) {
	var buf bytes.Buffer
	printResetReports(&buf, []*model.ResetReport{
		{FigureID: "iu", EventMarkersRemoved: 1, PointMarkersRemoved: 2, DocumentsWritten: 1},
		{FigureID: "hannipham"},
	})
	gt.String(t, buf.String()).Contains("iu: 1 event and 2 point markers cleared")
	gt.String(t, buf.String()).NotContains("hannipham:")
}
