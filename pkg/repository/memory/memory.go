package memory

import (
	"context"

	"github.com/starlog-lab/starlog/pkg/domain/interfaces"
	"github.com/starlog-lab/starlog/pkg/domain/model"
)

// Repository is an alias for Memory to match the pattern
type Repository = Memory

// Memory is an in-process document store for development and tests
type Memory struct {
	timeline *timelineRepository
	article  *articleRepository
}

var _ interfaces.Repository = &Memory{}

// CommitHook is called before every CommitTimelines. Returning an error makes
// the commit fail without applying any document.
type CommitHook func(ctx context.Context, docs []*model.TimelineDocument) error

type Option func(*Memory)

// WithCommitHook installs hook on the timeline repository
func WithCommitHook(hook CommitHook) Option {
	return func(m *Memory) {
		m.timeline.hook = hook
	}
}

func New(opts ...Option) *Memory {
	m := &Memory{
		timeline: newTimelineRepository(),
		article:  newArticleRepository(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Timeline() interfaces.TimelineRepository {
	return m.timeline
}

func (m *Memory) Article() interfaces.ArticleRepository {
	return m.article
}

// CommitCount returns the number of successful CommitTimelines calls
func (m *Memory) CommitCount() int {
	return m.timeline.commitCount()
}

// WriteCount returns the number of documents written by successful commits
func (m *Memory) WriteCount() int {
	return m.timeline.writeCount()
}

func (m *Memory) Close() error {
	return nil
}
