package usecase

import (
	"context"
	"iter"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/starlog-lab/starlog/pkg/domain/interfaces"
	"github.com/starlog-lab/starlog/pkg/domain/model"
	"github.com/starlog-lab/starlog/pkg/domain/types"
	"github.com/starlog-lab/starlog/pkg/service/matcher"
	"github.com/starlog-lab/starlog/pkg/service/registry"
	"github.com/starlog-lab/starlog/pkg/service/timeline"
	"github.com/starlog-lab/starlog/pkg/utils/errutil"
	"github.com/starlog-lab/starlog/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

// IngestUseCase turns article mentions into timeline events
type IngestUseCase struct {
	repo       interfaces.Repository
	registry   *registry.Registry
	matcher    *matcher.Matcher
	summarizer interfaces.Summarizer
	store      *timeline.Store
	cfg        *settings
}

// IngestOptions controls a Run
type IngestOptions struct {
	// FigureIDs restricts ingestion to these figures. Empty means all.
	FigureIDs []types.FigureID
	// DryRun only detects mentions; no summarizer calls and no writes
	DryRun bool
}

// Ingest processes one article for the given mentioned figures. Every
// figure gets an outcome; a failure for one figure does not affect the
// others. Documents are queued, not committed; call Flush afterwards.
func (uc *IngestUseCase) Ingest(ctx context.Context, article *model.Article, mentions []types.FigureID) *model.IngestResult {
	result := &model.IngestResult{ArticleID: article.ID}

	seen := make(map[types.FigureID]struct{}, len(mentions))
	for _, figureID := range mentions {
		if _, ok := seen[figureID]; ok {
			continue
		}
		seen[figureID] = struct{}{}
		result.Outcomes = append(result.Outcomes, uc.ingestFigure(ctx, article, figureID))
	}
	return result
}

func failed(ctx context.Context, figureID types.FigureID, articleID string, err error) model.FigureOutcome {
	logging.From(ctx).Warn("mention ingestion failed",
		FigureIDKey, figureID,
		ArticleIDKey, articleID,
		"error", err)
	return model.FigureOutcome{
		FigureID: figureID,
		Status:   model.IngestStatusFailed,
		Reason:   err.Error(),
	}
}

func (uc *IngestUseCase) ingestFigure(ctx context.Context, article *model.Article, figureID types.FigureID) model.FigureOutcome {
	if err := ctx.Err(); err != nil {
		return failed(ctx, figureID, article.ID, goerr.Wrap(err, "ingestion cancelled"))
	}
	if uc.summarizer == nil {
		return failed(ctx, figureID, article.ID, ErrNoSummarizer)
	}
	if uc.registry == nil {
		return failed(ctx, figureID, article.ID, ErrNoRegistry)
	}

	figure, err := uc.registry.FigureContext(figureID)
	if err != nil {
		return failed(ctx, figureID, article.ID, err)
	}

	// held across read, summarize, place and enqueue
	unlock := uc.store.LockFigure(figureID)
	defer unlock()

	docs, err := uc.store.LoadFigure(ctx, figureID)
	if err != nil {
		return failed(ctx, figureID, article.ID, err)
	}
	for _, doc := range docs {
		if doc.HasSource(article.ID) {
			return model.FigureOutcome{
				FigureID:     figureID,
				Status:       model.IngestStatusSkippedAlreadyProcessed,
				MainCategory: doc.MainCategory,
			}
		}
	}

	draft, err := summarizeMention(ctx, uc.cfg, uc.summarizer, figure, article.Body)
	if err != nil {
		return failed(ctx, figureID, article.ID, err)
	}

	category, err := draft.Category()
	if err != nil {
		return failed(ctx, figureID, article.ID, goerr.Wrap(err, "summarizer returned an unknown category",
			goerr.V("category", draft.MainCategory)))
	}
	if err := draft.Validate(); err != nil {
		return failed(ctx, figureID, article.ID, err)
	}

	idx := slices.IndexFunc(docs, func(d *model.TimelineDocument) bool {
		return d.MainCategory == category
	})
	doc := docs[idx]
	subcategory := strings.TrimSpace(draft.Subcategory)
	now := uc.cfg.now()

	outcome := model.FigureOutcome{
		FigureID:     figureID,
		MainCategory: category,
		Subcategory:  subcategory,
	}

	if ev := doc.FindEvent(subcategory, draft.EventTitle); ev != nil {
		ev.Amend(article.ID, draft.EventSummary, draft.TimelinePoints, now)
		outcome.Status = model.IngestStatusAmended
		outcome.EventID = ev.ID
		outcome.EventTitle = ev.EventTitle
	} else {
		ev := model.NewTimelineEvent(article.ID, draft.EventTitle, draft.EventSummary, draft.TimelinePoints, now)
		doc.AddEvent(subcategory, ev)
		outcome.Status = model.IngestStatusCreated
		outcome.EventID = ev.ID
		outcome.EventTitle = ev.EventTitle
	}

	if err := uc.store.PutDocument(ctx, doc); err != nil {
		return failed(ctx, figureID, article.ID, err)
	}

	logging.From(ctx).Debug("mention ingested",
		FigureIDKey, figureID,
		ArticleIDKey, article.ID,
		"status", outcome.Status,
		"category", category,
		"subcategory", subcategory,
		"event_title", outcome.EventTitle)

	return outcome
}

// IngestArticle detects mentions in article, ingests them and commits the
// result. The article is stored first so that it can be re-processed later.
func (uc *IngestUseCase) IngestArticle(ctx context.Context, article *model.Article) (*model.IngestResult, error) {
	if uc.matcher == nil {
		return nil, goerr.Wrap(ErrNoRegistry, "cannot detect mentions")
	}
	if err := article.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid article")
	}
	if err := uc.repo.Article().Put(ctx, article); err != nil {
		return nil, goerr.Wrap(err, "failed to store article", goerr.V(ArticleIDKey, article.ID))
	}

	result := uc.Ingest(ctx, article, uc.matcher.FindMentions(article.Body))
	if _, err := uc.store.Batch().Flush(ctx); err != nil {
		return result, goerr.Wrap(err, "failed to commit ingested article", goerr.V(ArticleIDKey, article.ID))
	}
	return result, nil
}

// Run ingests a stream of articles with bounded concurrency. Article read
// errors and per-figure failures are counted and do not stop the run; only
// cancellation does. Pending documents are flushed whenever a chunk is full
// and once at the end.
func (uc *IngestUseCase) Run(ctx context.Context, articles iter.Seq2[*model.Article, error], opts IngestOptions) (*model.IngestRunReport, error) {
	if uc.matcher == nil {
		return nil, goerr.Wrap(ErrNoRegistry, "cannot detect mentions")
	}
	if uc.summarizer == nil && !opts.DryRun {
		return nil, goerr.Wrap(ErrNoSummarizer, "ingestion needs a summarizer unless dry-run")
	}

	report := &model.IngestRunReport{
		RunID:     uuid.NewString(),
		StartedAt: uc.cfg.now(),
		DryRun:    opts.DryRun,
	}
	logger := logging.From(ctx).With("run_id", report.RunID)
	ctx = logging.With(ctx, logger)

	var filter map[types.FigureID]struct{}
	if len(opts.FigureIDs) > 0 {
		filter = make(map[types.FigureID]struct{}, len(opts.FigureIDs))
		for _, id := range opts.FigureIDs {
			filter[id] = struct{}{}
		}
	}

	var mu sync.Mutex
	ctrl := uc.store.Batch()
	flush := func(ctx context.Context) {
		flushed, err := ctrl.Flush(ctx)
		mu.Lock()
		report.DocumentsCommitted += flushed.DocumentsCommitted
		mu.Unlock()
		if err != nil {
			_ = errutil.Handle(ctx, err, "failed to flush timelines")
		}
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(uc.cfg.concurrency)

	for article, err := range articles {
		if err != nil {
			_ = errutil.Handle(ctx, err, "failed to read article")
			mu.Lock()
			report.ArticleErrors++
			mu.Unlock()
			continue
		}
		if egCtx.Err() != nil {
			break
		}

		eg.Go(func() error {
			mentions := uc.matcher.FindMentions(article.Body)
			if filter != nil {
				mentions = slices.DeleteFunc(mentions, func(id types.FigureID) bool {
					_, ok := filter[id]
					return !ok
				})
			}

			if opts.DryRun {
				logger.Info("mentions detected", ArticleIDKey, article.ID, "figures", mentions)
				mu.Lock()
				report.Articles++
				report.Mentions += len(mentions)
				mu.Unlock()
				return nil
			}

			result := uc.Ingest(egCtx, article, mentions)
			mu.Lock()
			report.Add(result)
			mu.Unlock()

			if ctrl.Len() >= ctrl.ChunkSize() {
				flush(egCtx)
			}
			return nil
		})
	}
	_ = eg.Wait()

	if !opts.DryRun {
		flush(ctx)
	}
	report.Pending = ctrl.Len()
	report.FinishedAt = uc.cfg.now()

	logger.Info("ingestion run finished",
		"articles", report.Articles,
		"article_errors", report.ArticleErrors,
		"mentions", report.Mentions,
		"created", report.Created,
		"amended", report.Amended,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"committed", report.DocumentsCommitted,
		"pending", report.Pending)

	if err := uc.cfg.notifier.Notify(context.WithoutCancel(ctx), report.Notification()); err != nil {
		_ = errutil.Handle(ctx, err, "failed to send run notification")
	}

	if err := ctx.Err(); err != nil {
		return report, goerr.Wrap(err, "ingestion run cancelled", goerr.V("pending", report.Pending))
	}
	if report.Pending > 0 {
		return report, goerr.New("ingestion run left uncommitted documents", goerr.V("pending", report.Pending))
	}
	return report, nil
}
