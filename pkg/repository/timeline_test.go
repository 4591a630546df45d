package repository_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/gt"
	"github.com/starlog-lab/starlog/pkg/domain/interfaces"
	"github.com/starlog-lab/starlog/pkg/domain/model"
	"github.com/starlog-lab/starlog/pkg/domain/types"
	"github.com/starlog-lab/starlog/pkg/repository/firestore"
	"github.com/starlog-lab/starlog/pkg/repository/memory"
)

func uniqueFigureID(base string) types.FigureID {
	return types.NormalizeFigureID(fmt.Sprintf("%s%d", base, time.Now().UnixNano()))
}

func newTimelineDocument(figureID types.FigureID, category types.MainCategory, titles ...string) *model.TimelineDocument {
	doc := model.NewTimelineDocument(figureID, category)
	now := time.Now().UTC().Truncate(time.Millisecond)
	for i, title := range titles {
		doc.AddEvent("Albums", model.NewTimelineEvent(fmt.Sprintf("article-%d", i), title, title+" happened.",
			[]model.TimelinePoint{{Date: "2024-01-01", Description: title + " announced"}}, now))
	}
	doc.UpdatedAt = now
	return doc
}

func runTimelineRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("GetTimeline returns nil for missing document", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		doc, err := repo.Timeline().GetTimeline(ctx, uniqueFigureID("missing"), types.MainCategoryCreativeWorks)
		gt.NoError(t, err).Required()
		gt.Value(t, doc).Nil()
	})

	t.Run("CommitTimelines round trips whole documents", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		figureID := uniqueFigureID("roundtrip")
		doc := newTimelineDocument(figureID, types.MainCategoryCreativeWorks, "Debut", "Comeback")
		ev := doc.Subcategories["Albums"][1]
		gt.NoError(t, ev.ApplyCompactedSummary("Comeback.", model.CompactionThreshold)).Required()
		gt.NoError(t, ev.TimelinePoints[0].ApplyCompactedDescription("Announced.", model.CompactionThreshold)).Required()

		gt.NoError(t, repo.Timeline().CommitTimelines(ctx, []*model.TimelineDocument{doc})).Required()

		got, err := repo.Timeline().GetTimeline(ctx, figureID, types.MainCategoryCreativeWorks)
		gt.NoError(t, err).Required()
		gt.Value(t, got).NotNil()
		gt.Value(t, got.FigureID).Equal(figureID)
		gt.Value(t, got.MainCategory).Equal(types.MainCategoryCreativeWorks)
		gt.A(t, got.Subcategories["Albums"]).Length(2)

		first := got.Subcategories["Albums"][0]
		gt.String(t, first.EventTitle).Equal("Debut")
		gt.B(t, first.Compacted).False()
		gt.A(t, first.SourceArticleIDs).Equal([]string{"article-0"})

		second := got.Subcategories["Albums"][1]
		gt.Value(t, second.ID).Equal(ev.ID)
		gt.String(t, second.EventSummary).Equal("Comeback.")
		gt.B(t, second.Compacted).True()
		gt.B(t, second.TimelinePoints[0].DescriptionCompacted).True()
		gt.String(t, second.TimelinePoints[0].Description).Equal("Announced.")
	})

	t.Run("CommitTimelines replaces the whole document", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		figureID := uniqueFigureID("replace")
		gt.NoError(t, repo.Timeline().CommitTimelines(ctx, []*model.TimelineDocument{
			newTimelineDocument(figureID, types.MainCategoryLiveBroadcast, "Tour", "Festival"),
		})).Required()
		gt.NoError(t, repo.Timeline().CommitTimelines(ctx, []*model.TimelineDocument{
			newTimelineDocument(figureID, types.MainCategoryLiveBroadcast, "Encore"),
		})).Required()

		got, err := repo.Timeline().GetTimeline(ctx, figureID, types.MainCategoryLiveBroadcast)
		gt.NoError(t, err).Required()
		gt.A(t, got.Subcategories["Albums"]).Length(1)
		gt.String(t, got.Subcategories["Albums"][0].EventTitle).Equal("Encore")
	})

	t.Run("CommitTimelines rejects invalid documents without writing any", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		figureID := uniqueFigureID("invalid")
		good := newTimelineDocument(figureID, types.MainCategoryCreativeWorks, "Debut")
		bad := newTimelineDocument(figureID, types.MainCategory("Gossip"), "Rumor")

		gt.Error(t, repo.Timeline().CommitTimelines(ctx, []*model.TimelineDocument{good, bad}))

		got, err := repo.Timeline().GetTimeline(ctx, figureID, types.MainCategoryCreativeWorks)
		gt.NoError(t, err).Required()
		gt.Value(t, got).Nil()
	})

	t.Run("CommitTimelines rejects more than the commit cap", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		docs := make([]*model.TimelineDocument, interfaces.MaxCommitOperations+1)
		for i := range docs {
			docs[i] = newTimelineDocument(uniqueFigureID(fmt.Sprintf("cap%d", i)), types.MainCategoryCreativeWorks, "Debut")
		}
		gt.Error(t, repo.Timeline().CommitTimelines(ctx, docs))
	})

	t.Run("ListTimelines streams committed documents", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		figureID := uniqueFigureID("list")
		gt.NoError(t, repo.Timeline().CommitTimelines(ctx, []*model.TimelineDocument{
			newTimelineDocument(figureID, types.MainCategoryCreativeWorks, "Debut"),
			newTimelineDocument(figureID, types.MainCategoryPersonalMilestones, "Graduation"),
		})).Required()

		found := map[types.MainCategory]bool{}
		for doc, err := range repo.Timeline().ListTimelines(ctx) {
			gt.NoError(t, err).Required()
			if doc.FigureID == figureID {
				found[doc.MainCategory] = true
			}
		}
		gt.B(t, found[types.MainCategoryCreativeWorks]).True()
		gt.B(t, found[types.MainCategoryPersonalMilestones]).True()
		gt.Value(t, len(found)).Equal(2)
	})
}

func newFirestoreRepository(t *testing.T) interfaces.Repository {
	t.Helper()

	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	if projectID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID not set")
	}

	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")
	if databaseID == "" {
		t.Skip("TEST_FIRESTORE_DATABASE_ID not set")
	}

	ctx := context.Background()
	prefix := "test_" + uuid.NewString()[:8]
	repo, err := firestore.New(ctx, projectID, databaseID, firestore.WithCollectionPrefix(prefix))
	gt.NoError(t, err).Required()
	t.Cleanup(func() {
		gt.NoError(t, repo.Close())
	})
	return repo
}

func TestTimelineRepository_Memory(t *testing.T) {
	runTimelineRepositoryTest(t, func(t *testing.T) interfaces.Repository {
		return memory.New()
	})
}

func TestTimelineRepository_Firestore(t *testing.T) {
	runTimelineRepositoryTest(t, newFirestoreRepository)
}
