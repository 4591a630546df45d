package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/starlog-lab/starlog/pkg/domain/model"
	"github.com/starlog-lab/starlog/pkg/domain/types"
	"github.com/starlog-lab/starlog/pkg/repository/memory"
	"github.com/starlog-lab/starlog/pkg/service/batch"
	"github.com/starlog-lab/starlog/pkg/usecase"
)

// seedLongEvent commits one event with a summary and a point over the threshold
func seedLongEvent(t *testing.T, repo *memory.Memory, figureID types.FigureID) *model.TimelineEvent {
	t.Helper()
	doc := model.NewTimelineDocument(figureID, types.MainCategoryCreativeWorks)
	ev := model.NewTimelineEvent("a1", "World Tour", words(70), []model.TimelinePoint{
		{Date: "2024-01-01", Description: words(60)},
		{Date: "2024-02-01", Description: "Seoul dates added"},
	}, time.Now())
	doc.AddEvent("Tours", ev)
	gt.NoError(t, repo.Timeline().CommitTimelines(context.Background(), []*model.TimelineDocument{doc})).Required()
	return ev
}

func TestCompactFigure(t *testing.T) {
	ctx := context.Background()
	s := &fakeSummarizer{}
	uc, repo := newUseCases(t, s)
	seedLongEvent(t, repo, "kimminji")

	report, err := uc.Compact.Run(ctx, nil)
	gt.NoError(t, err).Required()
	gt.A(t, report.Figures).Length(1)
	gt.Value(t, report.Figures[0].EventsRewritten).Equal(1)
	gt.Value(t, report.Figures[0].PointsRewritten).Equal(1)
	gt.Value(t, report.DocumentsCommitted).Equal(1)
	gt.Value(t, s.condenseCalls.Load()).Equal(int64(2))

	doc := committed(t, repo, "kimminji", types.MainCategoryCreativeWorks)
	ev := doc.Subcategories["Tours"][0]
	gt.String(t, ev.EventSummary).Equal("Condensed.")
	gt.B(t, ev.Compacted).True()
	gt.B(t, ev.TimelinePoints[0].DescriptionCompacted).True()
	// short point is left alone
	gt.B(t, ev.TimelinePoints[1].DescriptionCompacted).False()
	gt.String(t, ev.TimelinePoints[1].Description).Equal("Seoul dates added")

	t.Run("second run makes no calls and no writes", func(t *testing.T) {
		writes := repo.WriteCount()
		report, err := uc.Compact.Run(ctx, nil)
		gt.NoError(t, err).Required()
		gt.Value(t, s.condenseCalls.Load()).Equal(int64(2))
		gt.Value(t, repo.WriteCount()).Equal(writes)
		gt.Value(t, report.DocumentsCommitted).Equal(0)
	})
}

func TestCompactFigure_OutputStillTooLong(t *testing.T) {
	ctx := context.Background()
	s := &fakeSummarizer{
		condenseFn: func(text string, maxWords int) (string, error) {
			return words(80), nil
		},
	}
	uc, repo := newUseCases(t, s)
	seedLongEvent(t, repo, "kimminji")

	report, err := uc.Compact.CompactFigure(ctx, "kimminji")
	gt.NoError(t, err).Required()
	gt.Value(t, report.EventsRewritten).Equal(1)
	gt.Value(t, report.EventsTruncated).Equal(1)
	// one condense and one tighter retry each for the summary and the long point
	gt.Value(t, s.condenseCalls.Load()).Equal(int64(4))

	_, err = uc.Store().Batch().Flush(ctx)
	gt.NoError(t, err).Required()

	doc := committed(t, repo, "kimminji", types.MainCategoryCreativeWorks)
	ev := doc.Subcategories["Tours"][0]
	gt.B(t, ev.Compacted).True()
	gt.Number(t, model.WordCount(ev.EventSummary)).LessOrEqual(model.CompactionThreshold)
	gt.B(t, ev.IsAnomalous(model.CompactionThreshold)).False()
	gt.B(t, ev.TimelinePoints[0].IsAnomalous(model.CompactionThreshold)).False()
}

func TestCompactFigure_TighterRetrySucceeds(t *testing.T) {
	ctx := context.Background()
	s := &fakeSummarizer{
		condenseFn: func(text string, maxWords int) (string, error) {
			if maxWords < model.CompactionThreshold {
				return "Short enough.", nil
			}
			return words(55), nil
		},
	}
	uc, repo := newUseCases(t, s)
	seedLongEvent(t, repo, "kimminji")

	report, err := uc.Compact.CompactFigure(ctx, "kimminji")
	gt.NoError(t, err).Required()
	gt.Value(t, report.EventsTruncated).Equal(0)

	doc, err := uc.Store().GetDocument(ctx, "kimminji", types.MainCategoryCreativeWorks)
	gt.NoError(t, err).Required()
	gt.String(t, doc.Subcategories["Tours"][0].EventSummary).Equal("Short enough.")
}

func TestCompactFigure_SummarizerFailureLeavesItemUnmarked(t *testing.T) {
	ctx := context.Background()
	s := &fakeSummarizer{
		condenseFn: func(text string, maxWords int) (string, error) {
			return "", errors.New("quota exceeded")
		},
	}
	notifier := &recordingNotifier{}
	uc, repo := newUseCases(t, s, usecase.WithNotifier(notifier))
	seedLongEvent(t, repo, "kimminji")
	writes := repo.WriteCount()

	report, err := uc.Compact.Run(ctx, []types.FigureID{"kimminji"})
	gt.NoError(t, err).Required()
	gt.A(t, report.Figures[0].Failures).Length(2)
	gt.Value(t, report.Figures[0].Failures[0].PointIndex).Equal(-1)
	gt.Value(t, repo.WriteCount()).Equal(writes)

	doc := committed(t, repo, "kimminji", types.MainCategoryCreativeWorks)
	gt.B(t, doc.Subcategories["Tours"][0].Compacted).False()

	sent := notifier.Sent()
	gt.A(t, sent).Length(1)
	gt.B(t, sent[0].Alert).True()
}

func TestCompactFigure_CustomThreshold(t *testing.T) {
	ctx := context.Background()
	s := &fakeSummarizer{}
	uc, repo := newUseCases(t, s, usecase.WithCompactionThreshold(100))
	seedLongEvent(t, repo, "kimminji")

	report, err := uc.Compact.CompactFigure(ctx, "kimminji")
	gt.NoError(t, err).Required()
	gt.Value(t, report.EventsRewritten).Equal(0)
	gt.Value(t, report.DocumentsQueued).Equal(0)
	gt.Value(t, s.condenseCalls.Load()).Equal(int64(0))
}

func TestCompact_RequiresSummarizer(t *testing.T) {
	uc, _ := newUseCases(t, nil)
	_, err := uc.Compact.CompactFigure(context.Background(), "kimminji")
	gt.B(t, errors.Is(err, usecase.ErrNoSummarizer)).True()
}

func TestCompact_AfterIngestAmendClearsMarker(t *testing.T) {
	ctx := context.Background()
	s := &fakeSummarizer{}
	s.mentionFn = func(figure model.FigureContext, body string) (*model.MentionDraft, error) {
		return &model.MentionDraft{
			MainCategory: "Creative Works",
			Subcategory:  "Tours",
			EventTitle:   "World Tour",
			EventSummary: body,
		}, nil
	}
	uc, repo := newUseCases(t, s)
	seedLongEvent(t, repo, "kimminji")

	_, err := uc.Compact.Run(ctx, nil)
	gt.NoError(t, err).Required()

	_, err = uc.Ingest.IngestArticle(ctx, article("a2", "Minji added a second leg to the tour."))
	gt.NoError(t, err).Required()

	ev := committed(t, repo, "kimminji", types.MainCategoryCreativeWorks).Subcategories["Tours"][0]
	gt.B(t, ev.Compacted).False()
	gt.A(t, ev.SourceArticleIDs).Equal([]string{"a1", "a2"})
}

func TestCompactRun_CancelledMidRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &fakeSummarizer{}
	s.condenseFn = func(text string, maxWords int) (string, error) {
		if s.condenseCalls.Load() == 7 {
			cancel()
		}
		return "Condensed.", nil
	}
	notifier := &recordingNotifier{}
	uc, repo := newUseCases(t, s,
		usecase.WithConcurrency(1),
		usecase.WithNotifier(notifier),
		usecase.WithBatchOptions(batch.WithChunkSize(2)),
	)

	// two calls per document: the summary and the first point
	categories := types.AllMainCategories()
	var seed []*model.TimelineDocument
	for _, key := range []model.TimelineKey{
		{FigureID: "hannipham", MainCategory: categories[0]},
		{FigureID: "hannipham", MainCategory: categories[1]},
		{FigureID: "kimminji", MainCategory: categories[0]},
		{FigureID: "newjeans", MainCategory: categories[0]},
	} {
		doc := model.NewTimelineDocument(key.FigureID, key.MainCategory)
		doc.AddEvent("News", model.NewTimelineEvent("a1", "Long Story", words(70), []model.TimelinePoint{
			{Date: "2024-01-01", Description: words(60)},
		}, time.Now()))
		seed = append(seed, doc)
	}
	gt.NoError(t, repo.Timeline().CommitTimelines(context.Background(), seed)).Required()
	commits := repo.CommitCount()

	report, err := uc.Compact.Run(ctx, []types.FigureID{"hannipham", "kimminji", "newjeans"})
	gt.Error(t, err).Required()
	gt.B(t, errors.Is(err, context.Canceled)).True()
	gt.Value(t, goerr.Values(err)["pending"]).Equal(any(1))
	gt.Value(t, report).NotNil().Required()

	// the call that saw the cancellation is the last one
	gt.Value(t, s.condenseCalls.Load()).Equal(int64(7))

	// hannipham filled the first chunk and stays committed
	gt.Value(t, repo.CommitCount()).Equal(commits + 1)
	gt.Value(t, report.DocumentsCommitted).Equal(2)
	gt.Value(t, report.Pending).Equal(1)
	gt.Value(t, report.FigureErrors).Equal(1)
	for _, category := range categories[:2] {
		ev := committed(t, repo, "hannipham", category).Subcategories["News"][0]
		gt.B(t, ev.Compacted).True()
		gt.String(t, ev.EventSummary).Equal("Condensed.")
	}

	// kimminji was queued but never committed; newjeans was never queued
	for _, figureID := range []types.FigureID{"kimminji", "newjeans"} {
		ev := committed(t, repo, figureID, categories[0]).Subcategories["News"][0]
		gt.B(t, ev.Compacted).False()
		gt.Value(t, model.WordCount(ev.EventSummary)).Equal(70)
	}

	sent := notifier.Sent()
	gt.A(t, sent).Length(1)
	gt.B(t, sent[0].Alert).True()
}
