package firestore

import (
	"context"
	"iter"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/starlog-lab/starlog/pkg/domain/interfaces"
	"github.com/starlog-lab/starlog/pkg/domain/model"
	"github.com/starlog-lab/starlog/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	figuresCollection   = "figures"
	timelinesCollection = "timelines"
)

type timelineRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.TimelineRepository = &timelineRepository{}

func newTimelineRepository(client *firestore.Client) *timelineRepository {
	return &timelineRepository{client: client}
}

// timelineDoc is the Firestore persistence model of model.TimelineDocument.
// Missing boolean markers in legacy documents decode as false.
type timelineDoc struct {
	FigureID      string                        `firestore:"figure_id"`
	MainCategory  string                        `firestore:"main_category"`
	Subcategories map[string][]timelineEventDoc `firestore:"subcategories"`
	UpdatedAt     time.Time                     `firestore:"updated_at"`
}

type timelineEventDoc struct {
	ID               string             `firestore:"id"`
	EventTitle       string             `firestore:"event_title"`
	EventSummary     string             `firestore:"event_summary"`
	TimelinePoints   []timelinePointDoc `firestore:"timeline_points"`
	SourceArticleIDs []string           `firestore:"source_article_ids"`
	Compacted        bool               `firestore:"compacted"`
	CreatedAt        time.Time          `firestore:"created_at"`
	UpdatedAt        time.Time          `firestore:"updated_at"`
}

type timelinePointDoc struct {
	Date                 string `firestore:"date"`
	Description          string `firestore:"description"`
	DescriptionCompacted bool   `firestore:"description_compacted"`
}

func toTimelineDoc(d *model.TimelineDocument) *timelineDoc {
	doc := &timelineDoc{
		FigureID:      string(d.FigureID),
		MainCategory:  string(d.MainCategory),
		Subcategories: make(map[string][]timelineEventDoc, len(d.Subcategories)),
		UpdatedAt:     d.UpdatedAt,
	}
	for name, events := range d.Subcategories {
		evDocs := make([]timelineEventDoc, 0, len(events))
		for _, ev := range events {
			points := make([]timelinePointDoc, 0, len(ev.TimelinePoints))
			for _, p := range ev.TimelinePoints {
				points = append(points, timelinePointDoc{
					Date:                 p.Date,
					Description:          p.Description,
					DescriptionCompacted: p.DescriptionCompacted,
				})
			}
			evDocs = append(evDocs, timelineEventDoc{
				ID:               string(ev.ID),
				EventTitle:       ev.EventTitle,
				EventSummary:     ev.EventSummary,
				TimelinePoints:   points,
				SourceArticleIDs: ev.SourceArticleIDs,
				Compacted:        ev.Compacted,
				CreatedAt:        ev.CreatedAt,
				UpdatedAt:        ev.UpdatedAt,
			})
		}
		doc.Subcategories[name] = evDocs
	}
	return doc
}

func fromTimelineDoc(d *timelineDoc) (*model.TimelineDocument, error) {
	category, err := types.ParseMainCategory(d.MainCategory)
	if err != nil {
		return nil, goerr.Wrap(err, "stored timeline has invalid category", goerr.V("figure_id", d.FigureID))
	}

	doc := model.NewTimelineDocument(types.FigureID(d.FigureID), category)
	doc.UpdatedAt = d.UpdatedAt
	for name, evDocs := range d.Subcategories {
		events := make([]*model.TimelineEvent, 0, len(evDocs))
		for i, e := range evDocs {
			ev := &model.TimelineEvent{
				ID:               model.EventID(e.ID),
				EventTitle:       e.EventTitle,
				EventSummary:     e.EventSummary,
				SourceArticleIDs: e.SourceArticleIDs,
				Compacted:        e.Compacted,
				CreatedAt:        e.CreatedAt,
				UpdatedAt:        e.UpdatedAt,
			}
			if ev.ID == "" {
				// legacy events were stored without IDs
				ev.ID = model.LegacyEventID(doc.FigureID, category, name, i, e.EventTitle)
			}
			for _, p := range e.TimelinePoints {
				ev.TimelinePoints = append(ev.TimelinePoints, model.TimelinePoint{
					Date:                 p.Date,
					Description:          p.Description,
					DescriptionCompacted: p.DescriptionCompacted,
				})
			}
			events = append(events, ev)
		}
		doc.Subcategories[name] = events
	}
	return doc, nil
}

// timelineRef returns figures/{figureID}/timelines/{categoryKey}
func (r *timelineRepository) timelineRef(figureID types.FigureID, category types.MainCategory) *firestore.DocumentRef {
	return r.client.Collection(CollectionName(r.collectionPrefix, figuresCollection)).
		Doc(string(figureID)).
		Collection(CollectionName(r.collectionPrefix, timelinesCollection)).
		Doc(category.Key())
}

func (r *timelineRepository) GetTimeline(ctx context.Context, figureID types.FigureID, category types.MainCategory) (*model.TimelineDocument, error) {
	snap, err := r.timelineRef(figureID, category).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get timeline",
			goerr.V("figure_id", figureID), goerr.V("category", category))
	}

	var d timelineDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal timeline",
			goerr.V("figure_id", figureID), goerr.V("category", category))
	}

	return fromTimelineDoc(&d)
}

// CommitTimelines writes all docs in a single transaction so that the commit
// is all-or-nothing.
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

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for _, doc := range docs {
			ref := r.timelineRef(doc.FigureID, doc.MainCategory)
			if err := tx.Set(ref, toTimelineDoc(doc)); err != nil {
				return goerr.Wrap(err, "failed to set timeline in transaction", goerr.V("key", doc.Key().String()))
			}
		}
		return nil
	})
	if err != nil {
		return goerr.Wrap(err, "failed to commit timelines", goerr.V("count", len(docs)))
	}

	return nil
}

func (r *timelineRepository) ListTimelines(ctx context.Context) iter.Seq2[*model.TimelineDocument, error] {
	return func(yield func(*model.TimelineDocument, error) bool) {
		it := r.client.CollectionGroup(CollectionName(r.collectionPrefix, timelinesCollection)).Documents(ctx)
		defer it.Stop()

		for {
			snap, err := it.Next()
			if err == iterator.Done {
				return
			}
			if err != nil {
				yield(nil, goerr.Wrap(err, "failed to iterate timelines"))
				return
			}

			var d timelineDoc
			if err := snap.DataTo(&d); err != nil {
				if !yield(nil, goerr.Wrap(err, "failed to unmarshal timeline", goerr.V("path", snap.Ref.Path))) {
					return
				}
				continue
			}

			doc, err := fromTimelineDoc(&d)
			if !yield(doc, err) {
				return
			}
		}
	}
}
