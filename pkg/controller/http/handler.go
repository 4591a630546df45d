package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/starlog-lab/starlog/pkg/domain/model"
	"github.com/starlog-lab/starlog/pkg/domain/types"
	"github.com/starlog-lab/starlog/pkg/usecase"
	"github.com/starlog-lab/starlog/pkg/utils/async"
	"github.com/starlog-lab/starlog/pkg/utils/errutil"
	"github.com/starlog-lab/starlog/pkg/utils/logging"
	"github.com/starlog-lab/starlog/pkg/utils/safe"
)

const maxRequestBody = 4 << 20

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to marshal response"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	safe.Write(ctx, w, data)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return goerr.Wrap(err, "invalid request body")
	}
	return nil
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}

type outcomeResponse struct {
	FigureID     string `json:"figure_id"`
	Status       string `json:"status"`
	MainCategory string `json:"main_category,omitempty"`
	Subcategory  string `json:"subcategory,omitempty"`
	EventID      string `json:"event_id,omitempty"`
	EventTitle   string `json:"event_title,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

type ingestResponse struct {
	ArticleID string            `json:"article_id"`
	Outcomes  []outcomeResponse `json:"outcomes"`
}

func toIngestResponse(result *model.IngestResult) ingestResponse {
	resp := ingestResponse{
		ArticleID: result.ArticleID,
		Outcomes:  make([]outcomeResponse, len(result.Outcomes)),
	}
	for i, o := range result.Outcomes {
		resp.Outcomes[i] = outcomeResponse{
			FigureID:     string(o.FigureID),
			Status:       string(o.Status),
			MainCategory: string(o.MainCategory),
			Subcategory:  o.Subcategory,
			EventID:      string(o.EventID),
			EventTitle:   o.EventTitle,
			Reason:       o.Reason,
		}
	}
	return resp
}

// ingestHandler accepts one article as JSON, ingests its mentions and
// answers with the per-figure outcomes once they are committed.
func ingestHandler(ingester ArticleIngester) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var article model.Article
		if err := decodeBody(w, r, &article); err != nil {
			errutil.HandleHTTP(ctx, w, err, http.StatusBadRequest)
			return
		}
		if err := article.Validate(); err != nil {
			errutil.HandleHTTP(ctx, w, err, http.StatusBadRequest)
			return
		}

		result, err := ingester.IngestArticle(ctx, &article)
		if err != nil {
			if result == nil {
				errutil.HandleHTTP(ctx, w, err, http.StatusInternalServerError)
				return
			}
			// outcomes were computed but could not be committed yet
			_ = errutil.Handle(ctx, err, "ingested article not committed")
			writeJSON(ctx, w, http.StatusAccepted, toIngestResponse(result))
			return
		}

		writeJSON(ctx, w, http.StatusOK, toIngestResponse(result))
	}
}

type compactRequest struct {
	FigureIDs []string `json:"figure_ids"`
}

// compactHandler starts a compaction run in the background
func compactHandler(runner CompactionRunner, dispatcher *async.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req compactRequest
		if err := decodeBody(w, r, &req); err != nil {
			errutil.HandleHTTP(ctx, w, err, http.StatusBadRequest)
			return
		}

		ids := make([]types.FigureID, 0, len(req.FigureIDs))
		for _, raw := range req.FigureIDs {
			id := types.FigureID(raw)
			if err := id.Validate(); err != nil {
				errutil.HandleHTTP(ctx, w, err, http.StatusBadRequest)
				return
			}
			ids = append(ids, id)
		}

		err := dispatcher.Dispatch(ctx, "compaction", func(ctx context.Context) error {
			start := time.Now()
			report, err := runner.Run(ctx, ids)
			if err != nil {
				return err
			}
			logging.From(ctx).Info("compaction job finished",
				"figures", len(report.Figures),
				"committed", report.DocumentsCommitted,
				"duration", time.Since(start))
			return nil
		})
		if err != nil {
			errutil.HandleHTTP(ctx, w, err, http.StatusServiceUnavailable)
			return
		}

		writeJSON(ctx, w, http.StatusAccepted, map[string]any{
			"status":     "accepted",
			"figure_ids": req.FigureIDs,
		})
	}
}

type anomalyResponse struct {
	Kind         string `json:"kind"`
	MainCategory string `json:"main_category"`
	Subcategory  string `json:"subcategory"`
	EventID      string `json:"event_id"`
	EventTitle   string `json:"event_title"`
	PointIndex   int    `json:"point_index"`
	WordCount    int    `json:"word_count"`
}

type diagnosisResponse struct {
	FigureID                 string            `json:"figure_id"`
	Documents                int               `json:"documents"`
	Events                   int               `json:"events"`
	EventsMarkedCompacted    int               `json:"events_marked_compacted"`
	EventsStillOverThreshold int               `json:"events_still_over_threshold"`
	Points                   int               `json:"points"`
	PointsMarkedCompacted    int               `json:"points_marked_compacted"`
	PointsStillOverThreshold int               `json:"points_still_over_threshold"`
	Anomalies                []anomalyResponse `json:"anomalies"`
}

func diagnoseHandler(diagnoser Diagnoser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		figureID := types.FigureID(chi.URLParam(r, "figureID"))
		if err := figureID.Validate(); err != nil {
			errutil.HandleHTTP(ctx, w, err, http.StatusBadRequest)
			return
		}

		report, err := diagnoser.Diagnose(ctx, []types.FigureID{figureID})
		if err != nil {
			errutil.HandleHTTP(ctx, w, err, http.StatusInternalServerError)
			return
		}
		if len(report.Figures) == 0 || report.Figures[0].Documents == 0 {
			errutil.HandleHTTP(ctx, w, goerr.New("figure has no timelines", goerr.V(usecase.FigureIDKey, figureID)), http.StatusNotFound)
			return
		}

		d := report.Figures[0]
		resp := diagnosisResponse{
			FigureID:                 string(d.FigureID),
			Documents:                d.Documents,
			Events:                   d.Events,
			EventsMarkedCompacted:    d.EventsMarkedCompacted,
			EventsStillOverThreshold: d.EventsStillOverThreshold,
			Points:                   d.Points,
			PointsMarkedCompacted:    d.PointsMarkedCompacted,
			PointsStillOverThreshold: d.PointsStillOverThreshold,
			Anomalies:                make([]anomalyResponse, len(d.Anomalies)),
		}
		for i, a := range d.Anomalies {
			resp.Anomalies[i] = anomalyResponse{
				Kind:         string(a.Kind),
				MainCategory: string(a.MainCategory),
				Subcategory:  a.Subcategory,
				EventID:      string(a.EventID),
				EventTitle:   a.EventTitle,
				PointIndex:   a.PointIndex,
				WordCount:    a.WordCount,
			}
		}
		writeJSON(ctx, w, http.StatusOK, resp)
	}
}
