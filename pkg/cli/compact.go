package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/starlog-lab/starlog/pkg/cli/config"
	"github.com/starlog-lab/starlog/pkg/usecase"
	"github.com/starlog-lab/starlog/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdCompact() *cli.Command {
	var rawFigures []string
	var repoCfg config.Repository
	var geminiCfg config.Gemini
	var pipelineCfg config.Pipeline
	var notifyCfg config.Notify

	flags := []cli.Flag{figureFlag(&rawFigures)}
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, geminiCfg.Flags()...)
	flags = append(flags, pipelineCfg.Flags()...)
	flags = append(flags, notifyCfg.Flags()...)

	return &cli.Command{
		Name:    "compact",
		Aliases: []string{"c"},
		Usage:   "Condense event summaries and point descriptions over the word threshold",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ids, err := figureIDs(rawFigures)
			if err != nil {
				return err
			}

			summarizer, err := geminiCfg.Summarizer(ctx)
			if err != nil {
				return err
			}
			if summarizer == nil {
				return goerr.Wrap(usecase.ErrNoSummarizer, "--gemini-project is required for compaction")
			}

			repo, closeRepo, err := openRepository(ctx, &repoCfg)
			if err != nil {
				return err
			}
			defer closeRepo()

			uc, err := newUseCases(repo, nil, summarizer, &pipelineCfg, &notifyCfg)
			if err != nil {
				return err
			}

			logging.Default().Info("Starting compaction", "figures", ids, "pipeline", pipelineCfg)

			report, runErr := uc.Compact.Run(ctx, ids)
			if report != nil {
				printCompactReport(output(c), report)
			}
			if runErr != nil {
				return goerr.Wrap(runErr, "compaction failed")
			}
			return nil
		},
	}
}
