package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	httpctrl "github.com/starlog-lab/starlog/pkg/controller/http"
	"github.com/starlog-lab/starlog/pkg/domain/model"
	"github.com/starlog-lab/starlog/pkg/domain/types"
	"github.com/starlog-lab/starlog/pkg/repository/memory"
	"github.com/starlog-lab/starlog/pkg/service/registry"
	"github.com/starlog-lab/starlog/pkg/usecase"
	"github.com/starlog-lab/starlog/pkg/utils/async"
)

type stubSummarizer struct{}

func (stubSummarizer) SummarizeMention(ctx context.Context, figure model.FigureContext, body string) (*model.MentionDraft, error) {
	return &model.MentionDraft{
		MainCategory: "Live & Broadcast",
		Subcategory:  "Concerts",
		EventTitle:   "Solo concert",
		EventSummary: strings.Repeat("long ", 60),
	}, nil
}

func (stubSummarizer) Condense(ctx context.Context, text string, maxWords int) (string, error) {
	return "A solo concert.", nil
}

func setup(t *testing.T, opts ...httpctrl.Options) (*httpctrl.Server, *usecase.UseCases, *memory.Memory) {
	t.Helper()
	reg, err := registry.Build(context.Background(), []*model.PublicFigure{
		model.NewPublicFigure("Lee Jieun", "IU"),
	})
	gt.NoError(t, err).Required()

	repo := memory.New()
	uc := usecase.New(repo, reg, stubSummarizer{})
	opts = append([]httpctrl.Options{
		httpctrl.WithIngester(uc.Ingest),
		httpctrl.WithCompactionRunner(uc.Compact),
		httpctrl.WithDiagnoser(uc.Diagnose),
	}, opts...)
	return httpctrl.New(opts...), uc, repo
}

func TestHealth(t *testing.T) {
	srv, _, _ := setup(t)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	gt.Value(t, w.Code).Equal(http.StatusOK)
	gt.String(t, w.Body.String()).Contains(`"ok"`)
}

func TestIngestArticle(t *testing.T) {
	srv, _, repo := setup(t)

	body := `{"id":"n1","body":"IU announced a solo concert in Seoul.","source":"news"}`
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/articles", strings.NewReader(body)))
	gt.Value(t, w.Code).Equal(http.StatusOK)

	var resp struct {
		ArticleID string `json:"article_id"`
		Outcomes  []struct {
			FigureID     string `json:"figure_id"`
			Status       string `json:"status"`
			MainCategory string `json:"main_category"`
		} `json:"outcomes"`
	}
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp)).Required()
	gt.String(t, resp.ArticleID).Equal("n1")
	gt.A(t, resp.Outcomes).Length(1)
	gt.String(t, resp.Outcomes[0].FigureID).Equal("leejieun")
	gt.String(t, resp.Outcomes[0].Status).Equal("created")
	gt.String(t, resp.Outcomes[0].MainCategory).Equal("Live & Broadcast")

	doc, err := repo.Timeline().GetTimeline(context.Background(), "leejieun", types.MainCategoryLiveBroadcast)
	gt.NoError(t, err).Required()
	gt.Value(t, doc.CountEvents()).Equal(1)
}

func TestIngestArticle_BadRequest(t *testing.T) {
	srv, _, _ := setup(t)

	for _, body := range []string{`{`, `{"id":"x"}`, `{"body":"no id"}`} {
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/articles", strings.NewReader(body)))
		gt.Value(t, w.Code).Equal(http.StatusBadRequest)
	}
}

func TestCompactionAndDiagnosis(t *testing.T) {
	dispatcher := &async.Dispatcher{}
	srv, uc, _ := setup(t, httpctrl.WithDispatcher(dispatcher))
	ctx := context.Background()

	_, err := uc.Ingest.IngestArticle(ctx, &model.Article{ID: "n1", Body: "IU on stage."})
	gt.NoError(t, err).Required()

	t.Run("unknown figure has no diagnosis", func(t *testing.T) {
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/figures/nobody/diagnosis", nil))
		gt.Value(t, w.Code).Equal(http.StatusNotFound)
	})

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/compactions", bytes.NewBufferString(`{"figure_ids":["leejieun"]}`)))
	gt.Value(t, w.Code).Equal(http.StatusAccepted)

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	gt.NoError(t, dispatcher.Wait(waitCtx)).Required()

	w = httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/figures/leejieun/diagnosis", nil))
	gt.Value(t, w.Code).Equal(http.StatusOK)

	var diag struct {
		Events                int `json:"events"`
		EventsMarkedCompacted int `json:"events_marked_compacted"`
		Anomalies             []any
	}
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &diag)).Required()
	gt.Value(t, diag.Events).Equal(1)
	gt.Value(t, diag.EventsMarkedCompacted).Equal(1)
	gt.A(t, diag.Anomalies).Length(0)
}

func TestCompaction_InvalidFigureID(t *testing.T) {
	srv, _, _ := setup(t)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/compactions", strings.NewReader(`{"figure_ids":["Not Valid"]}`)))
	gt.Value(t, w.Code).Equal(http.StatusBadRequest)
}

func TestAPIToken(t *testing.T) {
	srv, _, _ := setup(t, httpctrl.WithAPIToken("s3cret"))

	t.Run("health is open", func(t *testing.T) {
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		gt.Value(t, w.Code).Equal(http.StatusOK)
	})

	t.Run("missing token", func(t *testing.T) {
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/figures/leejieun/diagnosis", nil))
		gt.Value(t, w.Code).Equal(http.StatusUnauthorized)
	})

	t.Run("wrong token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/figures/leejieun/diagnosis", nil)
		req.Header.Set("Authorization", "Bearer nope")
		srv.ServeHTTP(w, req)
		gt.Value(t, w.Code).Equal(http.StatusUnauthorized)
	})

	t.Run("valid token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/figures/leejieun/diagnosis", nil)
		req.Header.Set("Authorization", "Bearer s3cret")
		srv.ServeHTTP(w, req)
		// authenticated, but nothing stored yet
		gt.Value(t, w.Code).Equal(http.StatusNotFound)
	})
}

func TestCompactionRejectedAfterShutdown(t *testing.T) {
	dispatcher := &async.Dispatcher{}
	srv, _, _ := setup(t, httpctrl.WithDispatcher(dispatcher))
	dispatcher.Shutdown()

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/compactions", bytes.NewBufferString(`{"figure_ids":["leejieun"]}`)))
	gt.Value(t, w.Code).Equal(http.StatusServiceUnavailable)
	gt.NoError(t, dispatcher.Wait(context.Background()))
}
