package usecase

import "errors"

// Sentinel errors for use case layer
var (
	// ErrSummarizer is returned when the summarizer keeps failing after retries
	ErrSummarizer = errors.New("summarizer failed")

	// ErrNoSummarizer is returned by operations that need a summarizer when
	// none is configured
	ErrNoSummarizer = errors.New("summarizer is not configured")

	// ErrNoRegistry is returned by operations that need the figure registry
	ErrNoRegistry = errors.New("figure registry is not configured")
)

// Context keys for error values
const (
	FigureIDKey  = "figure_id"
	ArticleIDKey = "article_id"
)
