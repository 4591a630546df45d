package model

import "github.com/starlog-lab/starlog/pkg/domain/types"

// IngestStatus is the outcome of ingesting one article for one figure
type IngestStatus string

const (
	IngestStatusCreated                 IngestStatus = "created"
	IngestStatusAmended                 IngestStatus = "amended"
	IngestStatusSkippedAlreadyProcessed IngestStatus = "skipped_already_processed"
	IngestStatusFailed                  IngestStatus = "failed"
)

// FigureOutcome is the per-figure part of an IngestResult
type FigureOutcome struct {
	FigureID     types.FigureID
	Status       IngestStatus
	MainCategory types.MainCategory
	Subcategory  string
	EventID      EventID
	EventTitle   string
	Reason       string // set for IngestStatusFailed
}

// IngestResult reports what happened to each mentioned figure of one article
type IngestResult struct {
	ArticleID string
	Outcomes  []FigureOutcome
}

// Count returns the number of outcomes with status
func (r *IngestResult) Count(status IngestStatus) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Outcome returns the outcome for figureID
func (r *IngestResult) Outcome(figureID types.FigureID) (FigureOutcome, bool) {
	for _, o := range r.Outcomes {
		if o.FigureID == figureID {
			return o, true
		}
	}
	return FigureOutcome{}, false
}

// CompactionFailure records an event or point the summarizer could not condense
type CompactionFailure struct {
	MainCategory types.MainCategory
	Subcategory  string
	EventID      EventID
	PointIndex   int // -1 for the event summary
	Reason       string
}

// CompactionReport is the result of compacting one figure
type CompactionReport struct {
	FigureID        types.FigureID
	EventsRewritten int
	PointsRewritten int
	EventsTruncated int // condensed output was still too long and was cut to the bound
	DocumentsQueued int
	Failures        []CompactionFailure
}

// AnomalyKind tells whether an anomaly is on an event summary or a point
type AnomalyKind string

const (
	AnomalyKindEvent AnomalyKind = "event"
	AnomalyKindPoint AnomalyKind = "point"
)

// Anomaly is an item marked compacted whose text still exceeds the bound
type Anomaly struct {
	Kind         AnomalyKind
	FigureID     types.FigureID
	MainCategory types.MainCategory
	Subcategory  string
	EventID      EventID
	EventTitle   string
	PointIndex   int // -1 for events
	WordCount    int
}

// FigureDiagnosis holds the read-only consistency counts for one figure
type FigureDiagnosis struct {
	FigureID                 types.FigureID
	Documents                int
	Events                   int
	EventsMarkedCompacted    int
	EventsStillOverThreshold int
	Points                   int
	PointsMarkedCompacted    int
	PointsStillOverThreshold int
	Anomalies                []Anomaly
}

// Observe folds doc into the diagnosis
func (f *FigureDiagnosis) Observe(doc *TimelineDocument, maxWords int) {
	f.Documents++
	doc.Walk(func(subcategory string, ev *TimelineEvent) {
		f.Events++
		if ev.Compacted {
			f.EventsMarkedCompacted++
		}
		if WordCount(ev.EventSummary) > maxWords {
			f.EventsStillOverThreshold++
		}
		if ev.IsAnomalous(maxWords) {
			f.Anomalies = append(f.Anomalies, Anomaly{
				Kind:         AnomalyKindEvent,
				FigureID:     doc.FigureID,
				MainCategory: doc.MainCategory,
				Subcategory:  subcategory,
				EventID:      ev.ID,
				EventTitle:   ev.EventTitle,
				PointIndex:   -1,
				WordCount:    WordCount(ev.EventSummary),
			})
		}

		for i := range ev.TimelinePoints {
			p := &ev.TimelinePoints[i]
			f.Points++
			if p.DescriptionCompacted {
				f.PointsMarkedCompacted++
			}
			if WordCount(p.Description) > maxWords {
				f.PointsStillOverThreshold++
			}
			if p.IsAnomalous(maxWords) {
				f.Anomalies = append(f.Anomalies, Anomaly{
					Kind:         AnomalyKindPoint,
					FigureID:     doc.FigureID,
					MainCategory: doc.MainCategory,
					Subcategory:  subcategory,
					EventID:      ev.ID,
					EventTitle:   ev.EventTitle,
					PointIndex:   i,
					WordCount:    WordCount(p.Description),
				})
			}
		}
	})
}

// DiagnosisReport aggregates FigureDiagnosis over a scan
type DiagnosisReport struct {
	Figures    []*FigureDiagnosis
	ReadErrors int // documents that could not be read or decoded
}

// AnomalyCount returns the total number of anomalies in the report
func (r *DiagnosisReport) AnomalyCount() int {
	n := 0
	for _, f := range r.Figures {
		n += len(f.Anomalies)
	}
	return n
}

// ResetReport is the result of clearing compaction markers for one figure
type ResetReport struct {
	FigureID            types.FigureID
	EventMarkersRemoved int
	PointMarkersRemoved int
	DocumentsWritten    int
}
