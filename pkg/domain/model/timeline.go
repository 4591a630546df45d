package model

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/starlog-lab/starlog/pkg/domain/types"
)

// CompactionThreshold is the maximum word count of a compacted summary or
// point description.
const CompactionThreshold = 50

// ErrCompactionBound is returned when compacted text would still exceed the
// word bound. A compaction marker is never set in that case.
var ErrCompactionBound = goerr.New("compacted text exceeds word bound")

// EventID is a UUID-based identifier for TimelineEvent
type EventID string

// NewEventID generates a new UUID v4 EventID
func NewEventID() EventID {
	return EventID(uuid.New().String())
}

// LegacyEventID derives a stable UUID v5 EventID for an event stored without
// one, from its position and title. The same stored event always gets the
// same ID.
func LegacyEventID(figureID types.FigureID, category types.MainCategory, subcategory string, index int, title string) EventID {
	name := fmt.Sprintf("%s\x00%s\x00%s\x00%d\x00%s", figureID, category.Key(), subcategory, index, title)
	return EventID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String())
}

// WordCount returns the number of whitespace separated words in s
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// TruncateWords returns the first maxWords words of s joined by single spaces
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:maxWords], " ")
}

// TimelinePoint is one dated entry of an event
type TimelinePoint struct {
	Date                 string
	Description          string
	DescriptionCompacted bool
}

// NeedsCompaction reports whether the description is over maxWords and not yet compacted
func (p *TimelinePoint) NeedsCompaction(maxWords int) bool {
	return !p.DescriptionCompacted && WordCount(p.Description) > maxWords
}

// IsAnomalous reports a marker that contradicts the content: marked compacted
// but still over maxWords. Only legacy data can be in this state.
func (p *TimelinePoint) IsAnomalous(maxWords int) bool {
	return p.DescriptionCompacted && WordCount(p.Description) > maxWords
}

// ApplyCompactedDescription replaces the description and sets the marker in
// one step. Text over maxWords is rejected and nothing is changed.
func (p *TimelinePoint) ApplyCompactedDescription(text string, maxWords int) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return goerr.Wrap(ErrCompactionBound, "compacted description is empty", goerr.V("date", p.Date))
	}
	if n := WordCount(text); n > maxWords {
		return goerr.Wrap(ErrCompactionBound, "compacted description too long",
			goerr.V("date", p.Date), goerr.V("words", n), goerr.V("max_words", maxWords))
	}
	p.Description = text
	p.DescriptionCompacted = true
	return nil
}

// ClearCompaction removes the marker and reports whether it was set
func (p *TimelinePoint) ClearCompaction() bool {
	was := p.DescriptionCompacted
	p.DescriptionCompacted = false
	return was
}

func (p TimelinePoint) sameAs(other TimelinePoint) bool {
	return strings.TrimSpace(p.Date) == strings.TrimSpace(other.Date) &&
		strings.EqualFold(strings.TrimSpace(p.Description), strings.TrimSpace(other.Description))
}

// TimelineEvent is a categorized event in a figure's timeline
type TimelineEvent struct {
	ID               EventID
	EventTitle       string
	EventSummary     string
	TimelinePoints   []TimelinePoint
	SourceArticleIDs []string
	Compacted        bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewTimelineEvent creates an uncompacted event sourced from a single article
func NewTimelineEvent(articleID, title, summary string, points []TimelinePoint, now time.Time) *TimelineEvent {
	ev := &TimelineEvent{
		ID:               NewEventID(),
		EventTitle:       strings.TrimSpace(title),
		EventSummary:     strings.TrimSpace(summary),
		SourceArticleIDs: []string{articleID},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	for _, p := range points {
		p.DescriptionCompacted = false
		ev.TimelinePoints = append(ev.TimelinePoints, p)
	}
	return ev
}

// HasSource reports whether articleID already contributed to the event
func (e *TimelineEvent) HasSource(articleID string) bool {
	return slices.Contains(e.SourceArticleIDs, articleID)
}

// Amend merges a later article into the event. Points already present are
// not duplicated and the summary sentence is appended only when it is new.
// The event marker is always cleared because the content changed.
func (e *TimelineEvent) Amend(articleID, summary string, points []TimelinePoint, now time.Time) {
	if !e.HasSource(articleID) {
		e.SourceArticleIDs = append(e.SourceArticleIDs, articleID)
	}

	summary = strings.TrimSpace(summary)
	switch {
	case summary == "":
	case e.EventSummary == "":
		e.EventSummary = summary
	case !strings.Contains(strings.ToLower(e.EventSummary), strings.ToLower(summary)):
		e.EventSummary = e.EventSummary + " " + summary
	}

	for _, p := range points {
		if slices.ContainsFunc(e.TimelinePoints, p.sameAs) {
			continue
		}
		p.DescriptionCompacted = false
		e.TimelinePoints = append(e.TimelinePoints, p)
	}

	e.Compacted = false
	e.UpdatedAt = now
}

// NeedsCompaction reports whether the summary is over maxWords and not yet compacted
func (e *TimelineEvent) NeedsCompaction(maxWords int) bool {
	return !e.Compacted && WordCount(e.EventSummary) > maxWords
}

// IsAnomalous reports an event marked compacted whose summary is still over maxWords
func (e *TimelineEvent) IsAnomalous(maxWords int) bool {
	return e.Compacted && WordCount(e.EventSummary) > maxWords
}

// ApplyCompactedSummary replaces the summary and sets the marker in one step.
// This is the only way the marker is set; summaries over maxWords are rejected.
func (e *TimelineEvent) ApplyCompactedSummary(summary string, maxWords int) error {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return goerr.Wrap(ErrCompactionBound, "compacted summary is empty", goerr.V("event_id", e.ID))
	}
	if n := WordCount(summary); n > maxWords {
		return goerr.Wrap(ErrCompactionBound, "compacted summary too long",
			goerr.V("event_id", e.ID), goerr.V("words", n), goerr.V("max_words", maxWords))
	}
	e.EventSummary = summary
	e.Compacted = true
	return nil
}

// ClearCompaction removes the marker and reports whether it was set
func (e *TimelineEvent) ClearCompaction() bool {
	was := e.Compacted
	e.Compacted = false
	return was
}

// Clone returns a deep copy
func (e *TimelineEvent) Clone() *TimelineEvent {
	c := *e
	c.TimelinePoints = slices.Clone(e.TimelinePoints)
	c.SourceArticleIDs = slices.Clone(e.SourceArticleIDs)
	return &c
}

// TimelineKey identifies a TimelineDocument
type TimelineKey struct {
	FigureID     types.FigureID
	MainCategory types.MainCategory
}

func (k TimelineKey) String() string {
	return fmt.Sprintf("%s/%s", k.FigureID, k.MainCategory.Key())
}

// TimelineDocument is the persisted unit: all events of one figure in one
// main category, grouped by subcategory in insertion order.
type TimelineDocument struct {
	FigureID      types.FigureID
	MainCategory  types.MainCategory
	Subcategories map[string][]*TimelineEvent
	UpdatedAt     time.Time
}

// NewTimelineDocument returns an empty document
func NewTimelineDocument(figureID types.FigureID, category types.MainCategory) *TimelineDocument {
	return &TimelineDocument{
		FigureID:      figureID,
		MainCategory:  category,
		Subcategories: make(map[string][]*TimelineEvent),
	}
}

// Key returns the document key
func (d *TimelineDocument) Key() TimelineKey {
	return TimelineKey{FigureID: d.FigureID, MainCategory: d.MainCategory}
}

// IsEmpty reports whether the document holds no events
func (d *TimelineDocument) IsEmpty() bool {
	for _, events := range d.Subcategories {
		if len(events) > 0 {
			return false
		}
	}
	return true
}

// SubcategoryNames returns subcategory names in lexical order
func (d *TimelineDocument) SubcategoryNames() []string {
	names := make([]string, 0, len(d.Subcategories))
	for name := range d.Subcategories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Walk calls fn for every event, subcategories in lexical order and events in
// insertion order.
func (d *TimelineDocument) Walk(fn func(subcategory string, ev *TimelineEvent)) {
	for _, name := range d.SubcategoryNames() {
		for _, ev := range d.Subcategories[name] {
			fn(name, ev)
		}
	}
}

// CountEvents returns the number of events in the document
func (d *TimelineDocument) CountEvents() int {
	n := 0
	for _, events := range d.Subcategories {
		n += len(events)
	}
	return n
}

// HasSource reports whether any event already references articleID
func (d *TimelineDocument) HasSource(articleID string) bool {
	for _, events := range d.Subcategories {
		for _, ev := range events {
			if ev.HasSource(articleID) {
				return true
			}
		}
	}
	return false
}

// FindEvent returns the event in subcategory whose title matches
// case-insensitively, or nil.
func (d *TimelineDocument) FindEvent(subcategory, title string) *TimelineEvent {
	title = strings.TrimSpace(title)
	for _, ev := range d.Subcategories[subcategory] {
		if strings.EqualFold(strings.TrimSpace(ev.EventTitle), title) {
			return ev
		}
	}
	return nil
}

// AddEvent appends ev to the end of subcategory
func (d *TimelineDocument) AddEvent(subcategory string, ev *TimelineEvent) {
	if d.Subcategories == nil {
		d.Subcategories = make(map[string][]*TimelineEvent)
	}
	d.Subcategories[subcategory] = append(d.Subcategories[subcategory], ev)
}

// Clone returns a deep copy
func (d *TimelineDocument) Clone() *TimelineDocument {
	c := &TimelineDocument{
		FigureID:      d.FigureID,
		MainCategory:  d.MainCategory,
		Subcategories: make(map[string][]*TimelineEvent, len(d.Subcategories)),
		UpdatedAt:     d.UpdatedAt,
	}
	for name, events := range d.Subcategories {
		copied := make([]*TimelineEvent, len(events))
		for i, ev := range events {
			copied[i] = ev.Clone()
		}
		c.Subcategories[name] = copied
	}
	return c
}

// Validate checks the document structure at the store boundary. Marker
// anomalies are not rejected here so that legacy data stays readable and
// writable; they are reported by diagnostics.
func (d *TimelineDocument) Validate() error {
	if err := d.FigureID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid timeline figure ID")
	}
	if !d.MainCategory.IsValid() {
		return goerr.Wrap(types.ErrInvalidCategory, "invalid timeline category",
			goerr.V("figure_id", d.FigureID), goerr.V("category", d.MainCategory))
	}
	for name, events := range d.Subcategories {
		if strings.TrimSpace(name) == "" {
			return goerr.New("empty subcategory name", goerr.V("key", d.Key().String()))
		}
		for _, ev := range events {
			if ev == nil {
				return goerr.New("nil event", goerr.V("key", d.Key().String()), goerr.V("subcategory", name))
			}
			if ev.ID == "" {
				return goerr.New("event ID is required", goerr.V("key", d.Key().String()), goerr.V("subcategory", name))
			}
			if strings.TrimSpace(ev.EventTitle) == "" {
				return goerr.New("event title is required", goerr.V("key", d.Key().String()), goerr.V("event_id", ev.ID))
			}
		}
	}
	return nil
}
