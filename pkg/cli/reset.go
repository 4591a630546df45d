package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/starlog-lab/starlog/pkg/cli/config"
	"github.com/starlog-lab/starlog/pkg/usecase"
	"github.com/starlog-lab/starlog/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdReset() *cli.Command {
	var rawFigures []string
	var all bool
	var onlyAnomalous bool
	var repoCfg config.Repository
	var pipelineCfg config.Pipeline

	flags := []cli.Flag{
		figureFlag(&rawFigures),
		&cli.BoolFlag{
			Name:        "all",
			Usage:       "Reset every stored figure",
			Destination: &all,
		},
		&cli.BoolFlag{
			Name:        "only-anomalous",
			Usage:       "Only clear markers on text that is still over the threshold",
			Destination: &onlyAnomalous,
		},
	}
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, pipelineCfg.Flags()...)

	return &cli.Command{
		Name:  "reset",
		Usage: "Clear compaction markers so that the next compaction revisits those items",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ids, err := figureIDs(rawFigures)
			if err != nil {
				return err
			}
			if len(ids) == 0 && !all {
				return goerr.New("specify --figure or --all")
			}
			if len(ids) > 0 && all {
				return goerr.New("--figure and --all are mutually exclusive")
			}

			repo, closeRepo, err := openRepository(ctx, &repoCfg)
			if err != nil {
				return err
			}
			defer closeRepo()

			uc, err := newUseCases(repo, nil, nil, &pipelineCfg, nil)
			if err != nil {
				return err
			}

			logging.Default().Info("Resetting compaction markers", "figures", ids, "all", all, "only_anomalous", onlyAnomalous)

			reports, runErr := uc.Reset.Run(ctx, ids, usecase.ResetOptions{OnlyAnomalous: onlyAnomalous})
			printResetReports(output(c), reports)
			if runErr != nil {
				return goerr.Wrap(runErr, "reset failed")
			}
			return nil
		},
	}
}
