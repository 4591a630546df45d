package types

import "github.com/m-mizutani/goerr/v2"

// MainCategory is the closed set of top level timeline classifications
type MainCategory string

const (
	MainCategoryCreativeWorks      MainCategory = "Creative Works"
	MainCategoryLiveBroadcast      MainCategory = "Live & Broadcast"
	MainCategoryPublicRelations    MainCategory = "Public Relations"
	MainCategoryPersonalMilestones MainCategory = "Personal Milestones"
	MainCategoryIncidents          MainCategory = "Incidents & Controversies"
)

// ErrInvalidCategory is returned when a value is outside the closed category set
var ErrInvalidCategory = goerr.New("invalid main category")

var categoryKeys = map[MainCategory]string{
	MainCategoryCreativeWorks:      "creative-works",
	MainCategoryLiveBroadcast:      "live-broadcast",
	MainCategoryPublicRelations:    "public-relations",
	MainCategoryPersonalMilestones: "personal-milestones",
	MainCategoryIncidents:          "incidents-controversies",
}

// AllMainCategories returns the five categories in canonical order
func AllMainCategories() []MainCategory {
	return []MainCategory{
		MainCategoryCreativeWorks,
		MainCategoryLiveBroadcast,
		MainCategoryPublicRelations,
		MainCategoryPersonalMilestones,
		MainCategoryIncidents,
	}
}

// IsValid checks if the category is one of the five canonical values
func (c MainCategory) IsValid() bool {
	_, ok := categoryKeys[c]
	return ok
}

// Key returns the storage-safe slug of the category ("live-broadcast").
// Invalid categories return an empty string.
func (c MainCategory) Key() string {
	return categoryKeys[c]
}

func (c MainCategory) String() string {
	return string(c)
}

// ParseMainCategory accepts the canonical display value or its storage key.
// Anything else is rejected; values are never coerced to a default.
func ParseMainCategory(s string) (MainCategory, error) {
	if c := MainCategory(s); c.IsValid() {
		return c, nil
	}
	for c, key := range categoryKeys {
		if key == s {
			return c, nil
		}
	}
	return "", goerr.Wrap(ErrInvalidCategory, "unknown main category", goerr.V("category", s))
}
