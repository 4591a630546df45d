package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/starlog-lab/starlog/pkg/domain/model"
)

var (
	headerColor = color.New(color.Bold)
	okColor     = color.New(color.FgGreen)
	warnColor   = color.New(color.FgYellow)
	errColor    = color.New(color.FgRed, color.Bold)
	dimColor    = color.New(color.Faint)
)

func header(w io.Writer, title string) {
	headerColor.Fprintf(w, "\n%s\n", title)
	dimColor.Fprintf(w, "%s\n", strings.Repeat("─", len([]rune(title))))
}

// count prints a labelled number, colored when it signals a problem
func count(w io.Writer, label string, n int, bad bool) {
	c := okColor
	if bad && n > 0 {
		c = errColor
	}
	fmt.Fprintf(w, "  %-22s ", label)
	c.Fprintf(w, "%d\n", n)
}

func printIngestReport(w io.Writer, r *model.IngestRunReport) {
	title := "Ingestion"
	if r.DryRun {
		title += " (dry run)"
	}
	header(w, title)
	dimColor.Fprintf(w, "  run %s, %s\n", r.RunID, r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	count(w, "articles", r.Articles, false)
	count(w, "unreadable articles", r.ArticleErrors, true)
	count(w, "mentions", r.Mentions, false)
	if r.DryRun {
		return
	}
	count(w, "created", r.Created, false)
	count(w, "amended", r.Amended, false)
	count(w, "skipped", r.Skipped, false)
	count(w, "failed", r.Failed, true)
	count(w, "documents committed", r.DocumentsCommitted, false)
	count(w, "pending", r.Pending, true)
}

func printCompactReport(w io.Writer, r *model.CompactRunReport) {
	events, points, truncated, failures := r.Totals()
	header(w, "Compaction")
	dimColor.Fprintf(w, "  run %s, %s\n", r.RunID, r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	count(w, "figures", len(r.Figures), false)
	count(w, "events rewritten", events, false)
	count(w, "points rewritten", points, false)
	if truncated > 0 {
		fmt.Fprintf(w, "  %-22s ", "truncated to bound")
		warnColor.Fprintf(w, "%d\n", truncated)
	}
	count(w, "failures", failures, true)
	count(w, "figure errors", r.FigureErrors, true)
	count(w, "documents committed", r.DocumentsCommitted, false)
	count(w, "pending", r.Pending, true)

	for _, f := range r.Figures {
		for _, fail := range f.Failures {
			errColor.Fprintf(w, "  ✗ ")
			fmt.Fprintf(w, "%s %s/%s event=%s point=%d: %s\n",
				f.FigureID, fail.MainCategory, fail.Subcategory, fail.EventID, fail.PointIndex, fail.Reason)
		}
	}
}

func printDiagnosis(w io.Writer, r *model.DiagnosisReport, verbose bool) {
	header(w, "Diagnosis")
	for _, f := range r.Figures {
		mark := okColor.Sprint("✓")
		if len(f.Anomalies) > 0 {
			mark = errColor.Sprint("✗")
		}
		fmt.Fprintf(w, "%s %s  docs=%d events=%d (compacted %d, over %d) points=%d (compacted %d, over %d)\n",
			mark, headerColor.Sprint(f.FigureID), f.Documents,
			f.Events, f.EventsMarkedCompacted, f.EventsStillOverThreshold,
			f.Points, f.PointsMarkedCompacted, f.PointsStillOverThreshold)

		if !verbose {
			continue
		}
		for _, a := range f.Anomalies {
			where := string(a.EventID)
			if a.Kind == model.AnomalyKindPoint {
				where = fmt.Sprintf("%s point %d", a.EventID, a.PointIndex)
			}
			warnColor.Fprintf(w, "    ! %s/%s %q %s: %d words but marked compacted\n",
				a.MainCategory, a.Subcategory, a.EventTitle, where, a.WordCount)
		}
	}

	fmt.Fprintln(w)
	count(w, "figures", len(r.Figures), false)
	count(w, "anomalies", r.AnomalyCount(), true)
	count(w, "read errors", r.ReadErrors, true)
}

func printResetReports(w io.Writer, reports []*model.ResetReport) {
	header(w, "Reset")
	var events, points, docs int
	for _, r := range reports {
		if r.DocumentsWritten == 0 {
			continue
		}
		fmt.Fprintf(w, "  %s: %d event and %d point markers cleared\n", r.FigureID, r.EventMarkersRemoved, r.PointMarkersRemoved)
		events += r.EventMarkersRemoved
		points += r.PointMarkersRemoved
		docs += r.DocumentsWritten
	}
	count(w, "figures", len(reports), false)
	count(w, "event markers cleared", events, false)
	count(w, "point markers cleared", points, false)
	count(w, "documents written", docs, false)
}
