package config

import (
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/starlog-lab/starlog/pkg/domain/interfaces"
	"github.com/starlog-lab/starlog/pkg/domain/model"
	"github.com/starlog-lab/starlog/pkg/service/batch"
	"github.com/starlog-lab/starlog/pkg/usecase"
	"github.com/starlog-lab/starlog/pkg/utils/retry"
	"github.com/urfave/cli/v3"
)

// Pipeline holds the tuning flags shared by ingestion and compaction
type Pipeline struct {
	concurrency       int
	attempts          int
	summarizerTimeout time.Duration
	retryInterval     time.Duration
	threshold         int
	chunkSize         int
}

func (p *Pipeline) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:        "concurrency",
			Usage:       "Number of articles or figures processed in parallel",
			Category:    "Pipeline",
			Value:       usecase.DefaultConcurrency,
			Sources:     cli.EnvVars("STARLOG_CONCURRENCY"),
			Destination: &p.concurrency,
		},
		&cli.IntFlag{
			Name:        "summarizer-attempts",
			Usage:       "Attempts per summarizer call and per chunk commit",
			Category:    "Pipeline",
			Value:       int(retry.DefaultPolicy.MaxAttempts),
			Sources:     cli.EnvVars("STARLOG_SUMMARIZER_ATTEMPTS"),
			Destination: &p.attempts,
		},
		&cli.DurationFlag{
			Name:        "summarizer-timeout",
			Usage:       "Timeout of a single summarizer call",
			Category:    "Pipeline",
			Value:       usecase.DefaultSummarizerTimeout,
			Sources:     cli.EnvVars("STARLOG_SUMMARIZER_TIMEOUT"),
			Destination: &p.summarizerTimeout,
		},
		&cli.DurationFlag{
			Name:        "retry-interval",
			Usage:       "Initial backoff interval between attempts",
			Category:    "Pipeline",
			Value:       retry.DefaultPolicy.InitialInterval,
			Sources:     cli.EnvVars("STARLOG_RETRY_INTERVAL"),
			Destination: &p.retryInterval,
		},
		&cli.IntFlag{
			Name:        "compaction-threshold",
			Usage:       "Maximum word count of a compacted summary or point description",
			Category:    "Pipeline",
			Value:       model.CompactionThreshold,
			Sources:     cli.EnvVars("STARLOG_COMPACTION_THRESHOLD"),
			Destination: &p.threshold,
		},
		&cli.IntFlag{
			Name:        "chunk-size",
			Usage:       "Documents per atomic commit (at most 500)",
			Category:    "Pipeline",
			Value:       batch.DefaultChunkSize,
			Sources:     cli.EnvVars("STARLOG_CHUNK_SIZE"),
			Destination: &p.chunkSize,
		},
	}
}

func (p Pipeline) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("concurrency", p.concurrency),
		slog.Int("attempts", p.attempts),
		slog.Duration("summarizer_timeout", p.summarizerTimeout),
		slog.Int("threshold", p.threshold),
		slog.Int("chunk_size", p.chunkSize),
	)
}

// Validate rejects values that would silently change semantics
func (p *Pipeline) Validate() error {
	if p.concurrency < 1 {
		return goerr.Wrap(ErrInvalidConfig, "concurrency must be positive", goerr.V(ValueKey, p.concurrency))
	}
	if p.attempts < 1 {
		return goerr.Wrap(ErrInvalidConfig, "summarizer-attempts must be positive", goerr.V(ValueKey, p.attempts))
	}
	if p.threshold < 1 {
		return goerr.Wrap(ErrInvalidConfig, "compaction-threshold must be positive", goerr.V(ValueKey, p.threshold))
	}
	if p.chunkSize < 1 || p.chunkSize > interfaces.MaxCommitOperations {
		return goerr.Wrap(ErrInvalidConfig, "chunk-size out of range",
			goerr.V(ValueKey, p.chunkSize), goerr.V("max", interfaces.MaxCommitOperations))
	}
	return nil
}

// RetryPolicy returns the backoff policy built from the flags
func (p *Pipeline) RetryPolicy() retry.Policy {
	policy := retry.DefaultPolicy
	policy.MaxAttempts = uint(p.attempts)
	if p.retryInterval > 0 {
		policy.InitialInterval = p.retryInterval
	}
	return policy
}

// Options converts the flags into use case options
func (p *Pipeline) Options() ([]usecase.Option, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	policy := p.RetryPolicy()
	return []usecase.Option{
		usecase.WithConcurrency(p.concurrency),
		usecase.WithSummarizerTimeout(p.summarizerTimeout),
		usecase.WithRetryPolicy(policy),
		usecase.WithCompactionThreshold(p.threshold),
		usecase.WithBatchOptions(
			batch.WithChunkSize(p.chunkSize),
			batch.WithRetryPolicy(policy),
		),
	}, nil
}
