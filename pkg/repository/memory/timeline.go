package memory

import (
	"context"
	"iter"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/starlog-lab/starlog/pkg/domain/interfaces"
	"github.com/starlog-lab/starlog/pkg/domain/model"
	"github.com/starlog-lab/starlog/pkg/domain/types"
)

type timelineRepository struct {
	mu      sync.RWMutex
	docs    map[model.TimelineKey]*model.TimelineDocument
	hook    CommitHook
	commits int
	writes  int
}

var _ interfaces.TimelineRepository = &timelineRepository{}

func newTimelineRepository() *timelineRepository {
	return &timelineRepository{
		docs: make(map[model.TimelineKey]*model.TimelineDocument),
	}
}

func (r *timelineRepository) GetTimeline(ctx context.Context, figureID types.FigureID, category types.MainCategory) (*model.TimelineDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.docs[model.TimelineKey{FigureID: figureID, MainCategory: category}]
	if !ok {
		return nil, nil
	}
	return doc.Clone(), nil
}

func (r *timelineRepository) CommitTimelines(ctx context.Context, docs []*model.TimelineDocument) error {
	if len(docs) == 0 {
		return nil
	}
	if len(docs) > interfaces.MaxCommitOperations {
		return goerr.New("too many documents in one commit",
			goerr.V("count", len(docs)), goerr.V("max", interfaces.MaxCommitOperations))
	}
	for _, doc := range docs {
		if err := doc.Validate(); err != nil {
			return goerr.Wrap(err, "invalid timeline document", goerr.V("key", doc.Key().String()))
		}
	}

	if r.hook != nil {
		if err := r.hook(ctx, docs); err != nil {
			return goerr.Wrap(err, "commit rejected")
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, doc := range docs {
		r.docs[doc.Key()] = doc.Clone()
	}
	r.commits++
	r.writes += len(docs)
	return nil
}

func (r *timelineRepository) ListTimelines(ctx context.Context) iter.Seq2[*model.TimelineDocument, error] {
	return func(yield func(*model.TimelineDocument, error) bool) {
		r.mu.RLock()
		snapshot := make([]*model.TimelineDocument, 0, len(r.docs))
		for _, doc := range r.docs {
			snapshot = append(snapshot, doc.Clone())
		}
		r.mu.RUnlock()

		sort.Slice(snapshot, func(i, j int) bool {
			return snapshot[i].Key().String() < snapshot[j].Key().String()
		})

		for _, doc := range snapshot {
			if err := ctx.Err(); err != nil {
				yield(nil, goerr.Wrap(err, "timeline listing cancelled"))
				return
			}
			if !yield(doc, nil) {
				return
			}
		}
	}
}

func (r *timelineRepository) commitCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.commits
}

func (r *timelineRepository) writeCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.writes
}
