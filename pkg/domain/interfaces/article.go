package interfaces

import (
	"context"
	"iter"
	"time"

	"github.com/starlog-lab/starlog/pkg/domain/model"
)

// ArticleQuery narrows ArticleRepository.List. Zero values match everything.
type ArticleQuery struct {
	Source string    // publisher, exact match
	Since  time.Time // PublishedAt >= Since
}

// Match reports whether a satisfies the query
func (q ArticleQuery) Match(a *model.Article) bool {
	if q.Source != "" && a.Source != q.Source {
		return false
	}
	if !q.Since.IsZero() && a.PublishedAt.Before(q.Since) {
		return false
	}
	return true
}

// ArticleRepository reads the stored articles
type ArticleRepository interface {
	Get(ctx context.Context, articleID string) (*model.Article, error)
	Put(ctx context.Context, article *model.Article) error

	// List streams articles matching q ordered by PublishedAt ascending
	List(ctx context.Context, q ArticleQuery) iter.Seq2[*model.Article, error]
}
