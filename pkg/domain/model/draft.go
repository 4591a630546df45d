package model

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/starlog-lab/starlog/pkg/domain/types"
)

// ErrInvalidDraft is returned for a summarizer draft that cannot be placed
var ErrInvalidDraft = goerr.New("invalid mention draft")

// MentionDraft is the structured event the summarizer produces for one
// (figure, article) pair. MainCategory is kept as returned so that values
// outside the closed set can be rejected rather than coerced.
type MentionDraft struct {
	MainCategory   string
	Subcategory    string
	EventTitle     string
	EventSummary   string
	TimelinePoints []TimelinePoint
}

// Category parses MainCategory. Unknown values wrap types.ErrInvalidCategory.
func (d *MentionDraft) Category() (types.MainCategory, error) {
	return types.ParseMainCategory(strings.TrimSpace(d.MainCategory))
}

// Validate checks everything except the category
func (d *MentionDraft) Validate() error {
	if strings.TrimSpace(d.Subcategory) == "" {
		return goerr.Wrap(ErrInvalidDraft, "subcategory is empty", goerr.V("title", d.EventTitle))
	}
	if strings.TrimSpace(d.EventTitle) == "" {
		return goerr.Wrap(ErrInvalidDraft, "event title is empty", goerr.V("subcategory", d.Subcategory))
	}
	for i, p := range d.TimelinePoints {
		if strings.TrimSpace(p.Description) == "" {
			return goerr.Wrap(ErrInvalidDraft, "timeline point description is empty", goerr.V("index", i))
		}
	}
	return nil
}
