package firestore

import (
	"context"
	"iter"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/starlog-lab/starlog/pkg/domain/interfaces"
	"github.com/starlog-lab/starlog/pkg/domain/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ArticlesCollection = "articles"

type articleRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.ArticleRepository = &articleRepository{}

func newArticleRepository(client *firestore.Client) *articleRepository {
	return &articleRepository{client: client}
}

type articleDoc struct {
	ID          string    `firestore:"id"`
	Title       string    `firestore:"title"`
	Body        string    `firestore:"body"`
	URL         string    `firestore:"url"`
	Source      string    `firestore:"source"`
	PublishedAt time.Time `firestore:"published_at"`
}

func toArticleDoc(a *model.Article) *articleDoc {
	return &articleDoc{
		ID:          a.ID,
		Title:       a.Title,
		Body:        a.Body,
		URL:         a.URL,
		Source:      a.Source,
		PublishedAt: a.PublishedAt,
	}
}

func fromArticleDoc(id string, d *articleDoc) *model.Article {
	if d.ID == "" {
		d.ID = id
	}
	return &model.Article{
		ID:          d.ID,
		Title:       d.Title,
		Body:        d.Body,
		URL:         d.URL,
		Source:      d.Source,
		PublishedAt: d.PublishedAt,
	}
}

func (r *articleRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(CollectionName(r.collectionPrefix, ArticlesCollection))
}

func (r *articleRepository) Get(ctx context.Context, articleID string) (*model.Article, error) {
	snap, err := r.collection().Doc(articleID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "article not found", goerr.V("article_id", articleID))
		}
		return nil, goerr.Wrap(err, "failed to get article", goerr.V("article_id", articleID))
	}

	var d articleDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal article", goerr.V("article_id", articleID))
	}
	return fromArticleDoc(snap.Ref.ID, &d), nil
}

func (r *articleRepository) Put(ctx context.Context, article *model.Article) error {
	if err := article.Validate(); err != nil {
		return goerr.Wrap(err, "invalid article")
	}
	if _, err := r.collection().Doc(article.ID).Set(ctx, toArticleDoc(article)); err != nil {
		return goerr.Wrap(err, "failed to put article", goerr.V("article_id", article.ID))
	}
	return nil
}

// List streams articles. Filtering by source and date uses the
// (source ASC, published_at ASC) composite index created by `migrate`.
func (r *articleRepository) List(ctx context.Context, q interfaces.ArticleQuery) iter.Seq2[*model.Article, error] {
	return func(yield func(*model.Article, error) bool) {
		query := r.collection().Query
		if q.Source != "" {
			query = query.Where("source", "==", q.Source)
		}
		if !q.Since.IsZero() {
			query = query.Where("published_at", ">=", q.Since)
		}
		query = query.OrderBy("published_at", firestore.Asc)

		it := query.Documents(ctx)
		defer it.Stop()

		for {
			snap, err := it.Next()
			if err == iterator.Done {
				return
			}
			if err != nil {
				yield(nil, goerr.Wrap(err, "failed to iterate articles"))
				return
			}

			var d articleDoc
			if err := snap.DataTo(&d); err != nil {
				if !yield(nil, goerr.Wrap(err, "failed to unmarshal article", goerr.V("article_id", snap.Ref.ID))) {
					return
				}
				continue
			}

			if !yield(fromArticleDoc(snap.Ref.ID, &d), nil) {
				return
			}
		}
	}
}
