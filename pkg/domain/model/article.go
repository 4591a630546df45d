package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// Article is a read-only news article given to the pipeline
type Article struct {
	ID          string    `json:"id"`
	Title       string    `json:"title,omitempty"`
	Body        string    `json:"body"`
	URL         string    `json:"url,omitempty"`
	Source      string    `json:"source,omitempty"`
	PublishedAt time.Time `json:"published_at,omitempty"`
}

// Validate checks the article can be ingested
func (a *Article) Validate() error {
	if a.ID == "" {
		return goerr.New("article ID is required")
	}
	if a.Body == "" {
		return goerr.New("article body is required", goerr.V("article_id", a.ID))
	}
	return nil
}
