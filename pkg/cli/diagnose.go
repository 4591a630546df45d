package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/starlog-lab/starlog/pkg/cli/config"
	"github.com/starlog-lab/starlog/pkg/domain/model"
	"github.com/starlog-lab/starlog/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// ErrAnomaliesFound is returned by diagnose --fail-on-anomaly
var ErrAnomaliesFound = goerr.New("compaction marker anomalies found")

func cmdDiagnose() *cli.Command {
	var rawFigures []string
	var verbose bool
	var failOnAnomaly bool
	var threshold int
	var repoCfg config.Repository

	flags := []cli.Flag{
		figureFlag(&rawFigures),
		&cli.BoolFlag{
			Name:        "verbose",
			Aliases:     []string{"v"},
			Usage:       "List every anomaly",
			Destination: &verbose,
		},
		&cli.BoolFlag{
			Name:        "fail-on-anomaly",
			Usage:       "Exit with an error when any anomaly is found",
			Destination: &failOnAnomaly,
		},
		&cli.IntFlag{
			Name:        "compaction-threshold",
			Usage:       "Word bound a compacted item must respect",
			Value:       model.CompactionThreshold,
			Sources:     cli.EnvVars("STARLOG_COMPACTION_THRESHOLD"),
			Destination: &threshold,
		},
	}
	flags = append(flags, repoCfg.Flags()...)

	return &cli.Command{
		Name:    "diagnose",
		Aliases: []string{"d"},
		Usage:   "Report compaction markers that contradict their text (read only)",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ids, err := figureIDs(rawFigures)
			if err != nil {
				return err
			}

			repo, closeRepo, err := openRepository(ctx, &repoCfg)
			if err != nil {
				return err
			}
			defer closeRepo()

			uc := usecase.New(repo, nil, nil, usecase.WithCompactionThreshold(threshold))

			var report *model.DiagnosisReport
			if len(ids) > 0 {
				report, err = uc.Diagnose.Diagnose(ctx, ids)
			} else {
				report, err = uc.Diagnose.DiagnoseAll(ctx)
			}
			if err != nil {
				return goerr.Wrap(err, "diagnosis failed")
			}

			printDiagnosis(output(c), report, verbose)

			if failOnAnomaly && report.AnomalyCount() > 0 {
				return goerr.Wrap(ErrAnomaliesFound, "diagnosis found anomalies", goerr.V("count", report.AnomalyCount()))
			}
			return nil
		},
	}
}
