package cli

import (
	"context"
	"io"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/starlog-lab/starlog/pkg/cli/config"
	"github.com/starlog-lab/starlog/pkg/domain/interfaces"
	"github.com/starlog-lab/starlog/pkg/domain/types"
	"github.com/starlog-lab/starlog/pkg/service/registry"
	"github.com/starlog-lab/starlog/pkg/usecase"
	"github.com/starlog-lab/starlog/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func figureFlag(dst *[]string) cli.Flag {
	return &cli.StringSliceFlag{
		Name:        "figure",
		Usage:       "Figure ID to process (repeatable). All figures when omitted",
		Destination: dst,
	}
}

// figureIDs normalizes the --figure values so display names also work
func figureIDs(raw []string) ([]types.FigureID, error) {
	ids := make([]types.FigureID, 0, len(raw))
	for _, r := range raw {
		id := types.NormalizeFigureID(r)
		if err := id.Validate(); err != nil {
			return nil, goerr.Wrap(err, "invalid --figure value", goerr.V("value", r))
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func openRepository(ctx context.Context, cfg *config.Repository) (interfaces.Repository, func(), error) {
	repo, err := cfg.Configure(ctx)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to initialize repository")
	}
	closer := func() {
		if err := repo.Close(); err != nil {
			logging.Default().Error("failed to close repository", "error", err.Error())
		}
	}
	return repo, closer, nil
}

// newUseCases wires the use cases from the shared pipeline and notification
// flags. reg and summarizer may be nil for commands that do not need them.
func newUseCases(repo interfaces.Repository, reg *registry.Registry, summarizer interfaces.Summarizer, pipelineCfg *config.Pipeline, notifyCfg *config.Notify) (*usecase.UseCases, error) {
	opts, err := pipelineCfg.Options()
	if err != nil {
		return nil, err
	}
	if notifyCfg != nil {
		notifier, err := notifyCfg.Configure()
		if err != nil {
			return nil, err
		}
		opts = append(opts, usecase.WithNotifier(notifier))
	}
	return usecase.New(repo, reg, summarizer, opts...), nil
}

func output(c *cli.Command) io.Writer {
	if w := c.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}
