package model

import (
	"strconv"
	"time"
)

// IngestRunReport aggregates an ingestion run over many articles
type IngestRunReport struct {
	RunID              string
	StartedAt          time.Time
	FinishedAt         time.Time
	DryRun             bool
	Articles           int
	ArticleErrors      int
	Mentions           int
	Created            int
	Amended            int
	Skipped            int
	Failed             int
	DocumentsCommitted int
	Pending            int
}

// Add folds one article result into the report
func (r *IngestRunReport) Add(result *IngestResult) {
	r.Articles++
	r.Mentions += len(result.Outcomes)
	r.Created += result.Count(IngestStatusCreated)
	r.Amended += result.Count(IngestStatusAmended)
	r.Skipped += result.Count(IngestStatusSkippedAlreadyProcessed)
	r.Failed += result.Count(IngestStatusFailed)
}

// Notification renders the report for a run notifier
func (r *IngestRunReport) Notification() *Notification {
	return &Notification{
		Title: "Ingestion run finished",
		Alert: r.Failed > 0 || r.ArticleErrors > 0 || r.Pending > 0,
		Fields: []NotificationField{
			{Name: "Run", Value: r.RunID},
			{Name: "Duration", Value: r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()},
			{Name: "Articles", Value: strconv.Itoa(r.Articles)},
			{Name: "Mentions", Value: strconv.Itoa(r.Mentions)},
			{Name: "Created", Value: strconv.Itoa(r.Created)},
			{Name: "Amended", Value: strconv.Itoa(r.Amended)},
			{Name: "Skipped", Value: strconv.Itoa(r.Skipped)},
			{Name: "Failed", Value: strconv.Itoa(r.Failed)},
			{Name: "Committed", Value: strconv.Itoa(r.DocumentsCommitted)},
			{Name: "Pending", Value: strconv.Itoa(r.Pending)},
		},
	}
}

// CompactRunReport aggregates compaction over many figures
type CompactRunReport struct {
	RunID              string
	StartedAt          time.Time
	FinishedAt         time.Time
	Figures            []*CompactionReport
	FigureErrors       int
	DocumentsCommitted int
	Pending            int
}

// Totals sums the per-figure reports
func (r *CompactRunReport) Totals() (events, points, truncated, failures int) {
	for _, f := range r.Figures {
		events += f.EventsRewritten
		points += f.PointsRewritten
		truncated += f.EventsTruncated
		failures += len(f.Failures)
	}
	return events, points, truncated, failures
}

// Notification renders the report for a run notifier
func (r *CompactRunReport) Notification() *Notification {
	events, points, truncated, failures := r.Totals()
	return &Notification{
		Title: "Compaction run finished",
		Alert: failures > 0 || r.FigureErrors > 0 || r.Pending > 0,
		Fields: []NotificationField{
			{Name: "Run", Value: r.RunID},
			{Name: "Duration", Value: r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()},
			{Name: "Figures", Value: strconv.Itoa(len(r.Figures))},
			{Name: "Events rewritten", Value: strconv.Itoa(events)},
			{Name: "Points rewritten", Value: strconv.Itoa(points)},
			{Name: "Truncated", Value: strconv.Itoa(truncated)},
			{Name: "Failures", Value: strconv.Itoa(failures + r.FigureErrors)},
			{Name: "Committed", Value: strconv.Itoa(r.DocumentsCommitted)},
			{Name: "Pending", Value: strconv.Itoa(r.Pending)},
		},
	}
}

// Notification is a short run summary sent to operators
type Notification struct {
	Title  string
	Fields []NotificationField
	Alert  bool
}

type NotificationField struct {
	Name  string
	Value string
}
