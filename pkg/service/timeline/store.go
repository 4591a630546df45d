package timeline

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/starlog-lab/starlog/pkg/domain/interfaces"
	"github.com/starlog-lab/starlog/pkg/domain/model"
	"github.com/starlog-lab/starlog/pkg/domain/types"
	"github.com/starlog-lab/starlog/pkg/service/batch"
)

// Store reads committed timeline documents and writes through the batch
// controller. Reads see documents that are enqueued but not yet committed,
// so read-modify-enqueue sequences never lose updates.
type Store struct {
	repo  interfaces.TimelineRepository
	batch *batch.Controller
	now   func() time.Time

	locksMu sync.Mutex
	locks   map[types.FigureID]*sync.Mutex
}

type Option func(*Store)

// WithClock overrides time.Now for UpdatedAt stamps
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func New(repo interfaces.TimelineRepository, ctrl *batch.Controller, opts ...Option) *Store {
	s := &Store{
		repo:  repo,
		batch: ctrl,
		now:   time.Now,
		locks: make(map[types.FigureID]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Batch returns the controller documents are written through
func (s *Store) Batch() *batch.Controller {
	return s.batch
}

// GetDocument returns the latest version of the document, pending first,
// then committed. A missing document comes back empty.
func (s *Store) GetDocument(ctx context.Context, figureID types.FigureID, category types.MainCategory) (*model.TimelineDocument, error) {
	if doc, ok := s.batch.Pending(model.TimelineKey{FigureID: figureID, MainCategory: category}); ok {
		return doc, nil
	}

	doc, err := s.repo.GetTimeline(ctx, figureID, category)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read timeline",
			goerr.V("figure_id", figureID), goerr.V("category", category))
	}
	if doc == nil {
		return model.NewTimelineDocument(figureID, category), nil
	}
	return doc, nil
}

// GetCommitted reads the committed document only, nil when absent
func (s *Store) GetCommitted(ctx context.Context, figureID types.FigureID, category types.MainCategory) (*model.TimelineDocument, error) {
	doc, err := s.repo.GetTimeline(ctx, figureID, category)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read committed timeline",
			goerr.V("figure_id", figureID), goerr.V("category", category))
	}
	return doc, nil
}

// LoadFigure returns the latest version of all five category documents of a
// figure in category order
func (s *Store) LoadFigure(ctx context.Context, figureID types.FigureID) ([]*model.TimelineDocument, error) {
	categories := types.AllMainCategories()
	docs := make([]*model.TimelineDocument, 0, len(categories))
	for _, category := range categories {
		doc, err := s.GetDocument(ctx, figureID, category)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// PutDocument queues a full replacement of doc
func (s *Store) PutDocument(ctx context.Context, doc *model.TimelineDocument) error {
	doc.UpdatedAt = s.now()
	if err := s.batch.Enqueue(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to queue timeline", goerr.V("key", doc.Key().String()))
	}
	return nil
}

// LockFigure serializes read-modify-write work on one figure. Call the
// returned function to release.
func (s *Store) LockFigure(figureID types.FigureID) func() {
	s.locksMu.Lock()
	mu, ok := s.locks[figureID]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[figureID] = mu
	}
	s.locksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}
