package memory

import (
	"context"
	"iter"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/starlog-lab/starlog/pkg/domain/interfaces"
	"github.com/starlog-lab/starlog/pkg/domain/model"
)

type articleRepository struct {
	mu       sync.RWMutex
	articles map[string]*model.Article
}

var _ interfaces.ArticleRepository = &articleRepository{}

func newArticleRepository() *articleRepository {
	return &articleRepository{
		articles: make(map[string]*model.Article),
	}
}

func (r *articleRepository) Get(ctx context.Context, articleID string) (*model.Article, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.articles[articleID]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "article not found", goerr.V("article_id", articleID))
	}
	copied := *a
	return &copied, nil
}

func (r *articleRepository) Put(ctx context.Context, article *model.Article) error {
	if err := article.Validate(); err != nil {
		return goerr.Wrap(err, "invalid article")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *article
	r.articles[article.ID] = &copied
	return nil
}

func (r *articleRepository) List(ctx context.Context, q interfaces.ArticleQuery) iter.Seq2[*model.Article, error] {
	return func(yield func(*model.Article, error) bool) {
		r.mu.RLock()
		snapshot := make([]*model.Article, 0, len(r.articles))
		for _, a := range r.articles {
			if !q.Match(a) {
				continue
			}
			copied := *a
			snapshot = append(snapshot, &copied)
		}
		r.mu.RUnlock()

		sort.Slice(snapshot, func(i, j int) bool {
			if !snapshot[i].PublishedAt.Equal(snapshot[j].PublishedAt) {
				return snapshot[i].PublishedAt.Before(snapshot[j].PublishedAt)
			}
			return snapshot[i].ID < snapshot[j].ID
		})

		for _, a := range snapshot {
			if !yield(a, nil) {
				return
			}
		}
	}
}
