package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/starlog-lab/starlog/pkg/cli/config"
	httpctrl "github.com/starlog-lab/starlog/pkg/controller/http"
	"github.com/starlog-lab/starlog/pkg/service/worker"
	"github.com/starlog-lab/starlog/pkg/usecase"
	"github.com/starlog-lab/starlog/pkg/utils/async"
	"github.com/starlog-lab/starlog/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var addr string
	var apiToken string
	var shutdownTimeout time.Duration
	var compactionInterval time.Duration
	var repoCfg config.Repository
	var registryCfg config.Registry
	var geminiCfg config.Gemini
	var pipelineCfg config.Pipeline
	var notifyCfg config.Notify

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("STARLOG_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "api-token",
			Usage:       "Bearer token required on /api routes. Leave empty to disable (development only)",
			Category:    "Authentication",
			Sources:     cli.EnvVars("STARLOG_API_TOKEN"),
			Destination: &apiToken,
		},
		&cli.DurationFlag{
			Name:        "shutdown-timeout",
			Usage:       "Time allowed for in-flight requests and compaction jobs on shutdown",
			Value:       30 * time.Second,
			Sources:     cli.EnvVars("STARLOG_SHUTDOWN_TIMEOUT"),
			Destination: &shutdownTimeout,
		},
		&cli.DurationFlag{
			Name:        "compaction-interval",
			Usage:       "Run compaction over every stored figure on this interval (0 disables)",
			Sources:     cli.EnvVars("STARLOG_COMPACTION_INTERVAL"),
			Destination: &compactionInterval,
		},
	}

	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, registryCfg.Flags()...)
	flags = append(flags, geminiCfg.Flags()...)
	flags = append(flags, pipelineCfg.Flags()...)
	flags = append(flags, notifyCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server accepting articles and compaction requests",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			reg, err := registryCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to load figure registry")
			}

			summarizer, err := geminiCfg.Summarizer(ctx)
			if err != nil {
				return err
			}
			if summarizer == nil {
				return goerr.Wrap(usecase.ErrNoSummarizer, "--gemini-project is required to serve")
			}

			repo, closeRepo, err := openRepository(ctx, &repoCfg)
			if err != nil {
				return err
			}
			defer closeRepo()

			uc, err := newUseCases(repo, reg, summarizer, &pipelineCfg, &notifyCfg)
			if err != nil {
				return err
			}

			if apiToken == "" {
				logging.Default().Warn("API token not configured, /api routes are unauthenticated (development only)")
			}

			var compactionWorker *worker.CompactionWorker
			if compactionInterval > 0 {
				compactionWorker = worker.NewCompactionWorker(uc.Compact, compactionInterval)
				compactionWorker.Start(ctx)
			}

			dispatcher := &async.Dispatcher{}
			handler := httpctrl.New(
				httpctrl.WithAPIToken(apiToken),
				httpctrl.WithIngester(uc.Ingest),
				httpctrl.WithCompactionRunner(uc.Compact),
				httpctrl.WithDiagnoser(uc.Diagnose),
				httpctrl.WithDispatcher(dispatcher),
			)

			server := &http.Server{
				Addr:              addr,
				Handler:           handler,
				ReadHeaderTimeout: 30 * time.Second,
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr, "figures", reg.Len(), "pipeline", pipelineCfg)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				logging.Default().Info("Context cancelled, shutting down")
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)
			}

			if compactionWorker != nil {
				compactionWorker.Stop()
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}
			dispatcher.Shutdown()
			if err := dispatcher.Wait(shutdownCtx); err != nil {
				return goerr.Wrap(err, "compaction jobs did not finish before shutdown timeout")
			}

			logging.Default().Info("Server shutdown completed")
			return nil
		},
	}
}
