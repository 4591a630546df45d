package usecase_test

import (
	"context"
	"iter"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/starlog-lab/starlog/pkg/domain/model"
	"github.com/starlog-lab/starlog/pkg/domain/types"
	"github.com/starlog-lab/starlog/pkg/repository/memory"
	"github.com/starlog-lab/starlog/pkg/service/registry"
	"github.com/starlog-lab/starlog/pkg/usecase"
	"github.com/starlog-lab/starlog/pkg/utils/retry"
)

func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = "word"
	}
	return strings.Join(w, " ")
}

// fakeSummarizer is a Summarizer double whose behavior is set per test
type fakeSummarizer struct {
	mentionFn  func(figure model.FigureContext, body string) (*model.MentionDraft, error)
	condenseFn func(text string, maxWords int) (string, error)

	mentionCalls  atomic.Int64
	condenseCalls atomic.Int64
}

func (f *fakeSummarizer) SummarizeMention(ctx context.Context, figure model.FigureContext, body string) (*model.MentionDraft, error) {
	f.mentionCalls.Add(1)
	if f.mentionFn != nil {
		return f.mentionFn(figure, body)
	}
	return &model.MentionDraft{
		MainCategory: string(types.MainCategoryCreativeWorks),
		Subcategory:  "Albums",
		EventTitle:   "Get Up EP",
		EventSummary: figure.DisplayName + " released an EP.",
		TimelinePoints: []model.TimelinePoint{
			{Date: "2023-07-21", Description: "EP released"},
		},
	}, nil
}

func (f *fakeSummarizer) Condense(ctx context.Context, text string, maxWords int) (string, error) {
	f.condenseCalls.Add(1)
	if f.condenseFn != nil {
		return f.condenseFn(text, maxWords)
	}
	return "Condensed.", nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []*model.Notification
}

func (n *recordingNotifier) Notify(ctx context.Context, msg *model.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return nil
}

func (n *recordingNotifier) Sent() []*model.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*model.Notification(nil), n.sent...)
}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	nj := model.NewPublicFigure("NewJeans")
	nj.IsGroup = true
	nj.Members = []types.FigureID{"kimminji", "hannipham"}

	reg, err := registry.Build(context.Background(), []*model.PublicFigure{
		model.NewPublicFigure("Kim Minji", "Minji"),
		model.NewPublicFigure("Hanni Pham", "Hanni"),
		nj,
	})
	gt.NoError(t, err).Required()
	return reg
}

var fastRetry = retry.Policy{
	MaxAttempts:     1,
	InitialInterval: time.Millisecond,
	MaxInterval:     time.Millisecond,
}

func newUseCases(t *testing.T, s *fakeSummarizer, opts ...usecase.Option) (*usecase.UseCases, *memory.Memory) {
	t.Helper()
	repo := memory.New()
	opts = append([]usecase.Option{
		usecase.WithRetryPolicy(fastRetry),
		usecase.WithSummarizerTimeout(5 * time.Second),
	}, opts...)
	if s == nil {
		// a typed nil would not compare equal to nil inside the use cases
		return usecase.New(repo, testRegistry(t), nil, opts...), repo
	}
	return usecase.New(repo, testRegistry(t), s, opts...), repo
}

func article(id, body string) *model.Article {
	return &model.Article{ID: id, Body: body, Source: "test"}
}

func articleSeq(articles ...*model.Article) iter.Seq2[*model.Article, error] {
	return func(yield func(*model.Article, error) bool) {
		for _, a := range articles {
			if !yield(a, nil) {
				return
			}
		}
	}
}

func committed(t *testing.T, repo *memory.Memory, figureID types.FigureID, category types.MainCategory) *model.TimelineDocument {
	t.Helper()
	doc, err := repo.Timeline().GetTimeline(context.Background(), figureID, category)
	gt.NoError(t, err).Required()
	return doc
}
