package cli

import (
	"context"
	"iter"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/starlog-lab/starlog/pkg/cli/config"
	"github.com/starlog-lab/starlog/pkg/domain/interfaces"
	"github.com/starlog-lab/starlog/pkg/domain/model"
	"github.com/starlog-lab/starlog/pkg/service/source"
	"github.com/starlog-lab/starlog/pkg/usecase"
	"github.com/starlog-lab/starlog/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// storing stores every article of seq before passing it on. A failed
// store is passed on as an article error.
func storing(ctx context.Context, repo interfaces.ArticleRepository, seq iter.Seq2[*model.Article, error]) iter.Seq2[*model.Article, error] {
	return func(yield func(*model.Article, error) bool) {
		for article, err := range seq {
			if err == nil {
				if putErr := repo.Put(ctx, article); putErr != nil {
					article, err = nil, goerr.Wrap(putErr, "failed to store article", goerr.V(usecase.ArticleIDKey, article.ID))
				}
			}
			if !yield(article, err) {
				return
			}
		}
	}
}

func cmdIngest() *cli.Command {
	var articlesPath string
	var fromStore bool
	var storeArticles bool
	var sourceName string
	var since time.Time
	var rawFigures []string
	var dryRun bool
	var repoCfg config.Repository
	var registryCfg config.Registry
	var geminiCfg config.Gemini
	var pipelineCfg config.Pipeline
	var notifyCfg config.Notify

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "articles",
			Aliases:     []string{"i"},
			Usage:       "JSON lines article file, local path or gs://bucket/object",
			Sources:     cli.EnvVars("STARLOG_ARTICLES"),
			Destination: &articlesPath,
		},
		&cli.BoolFlag{
			Name:        "from-store",
			Usage:       "Read articles from the document store instead of a file",
			Destination: &fromStore,
		},
		&cli.BoolFlag{
			Name:        "store-articles",
			Usage:       "Save articles read from --articles into the document store",
			Destination: &storeArticles,
		},
		&cli.StringFlag{
			Name:        "source",
			Usage:       "With --from-store, only articles from this publisher",
			Destination: &sourceName,
		},
		&cli.TimestampFlag{
			Name:        "since",
			Usage:       "With --from-store, only articles published at or after this time",
			Config:      cli.TimestampConfig{Layouts: []string{time.RFC3339, time.DateOnly}},
			Destination: &since,
		},
		figureFlag(&rawFigures),
		&cli.BoolFlag{
			Name:        "dry-run",
			Usage:       "Only detect mentions; no summarizer calls and no writes",
			Destination: &dryRun,
		},
	}
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, registryCfg.Flags()...)
	flags = append(flags, geminiCfg.Flags()...)
	flags = append(flags, pipelineCfg.Flags()...)
	flags = append(flags, notifyCfg.Flags()...)

	return &cli.Command{
		Name:    "ingest",
		Aliases: []string{"i"},
		Usage:   "Detect figure mentions in articles and add them to timelines",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if (articlesPath != "") == fromStore {
				return goerr.New("exactly one of --articles or --from-store is required")
			}
			ids, err := figureIDs(rawFigures)
			if err != nil {
				return err
			}

			reg, err := registryCfg.Configure(ctx)
			if err != nil {
				return err
			}

			repo, closeRepo, err := openRepository(ctx, &repoCfg)
			if err != nil {
				return err
			}
			defer closeRepo()

			var summarizer interfaces.Summarizer
			if !dryRun {
				summarizer, err = geminiCfg.Summarizer(ctx)
				if err != nil {
					return err
				}
				if summarizer == nil {
					return goerr.Wrap(usecase.ErrNoSummarizer, "--gemini-project is required unless --dry-run")
				}
			}

			uc, err := newUseCases(repo, reg, summarizer, &pipelineCfg, &notifyCfg)
			if err != nil {
				return err
			}

			var articles iter.Seq2[*model.Article, error]
			if fromStore {
				articles = repo.Article().List(ctx, interfaces.ArticleQuery{Source: sourceName, Since: since})
			} else {
				articles = source.ReadArticles(ctx, articlesPath)
				if storeArticles && !dryRun {
					articles = storing(ctx, repo.Article(), articles)
				}
			}

			logging.Default().Info("Starting ingestion",
				"figures", reg.Len(),
				"aliases", uc.Matcher().Size(),
				"filter", ids,
				"dry_run", dryRun,
				"pipeline", pipelineCfg)

			report, runErr := uc.Ingest.Run(ctx, articles, usecase.IngestOptions{
				FigureIDs: ids,
				DryRun:    dryRun,
			})
			if report != nil {
				printIngestReport(output(c), report)
			}
			if runErr != nil {
				return goerr.Wrap(runErr, "ingestion failed")
			}
			return nil
		},
	}
}
