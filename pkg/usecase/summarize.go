package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/starlog-lab/starlog/pkg/domain/interfaces"
	"github.com/starlog-lab/starlog/pkg/domain/model"
	"github.com/starlog-lab/starlog/pkg/utils/retry"
)

// callSummarizer runs op with a per-attempt timeout and bounded retries.
// Once ctx is done no further attempt is made.
func callSummarizer[T any](ctx context.Context, cfg *settings, name string, op func(ctx context.Context) (T, error)) (T, error) {
	v, err := retry.Value(ctx, cfg.retry, name, func() (T, error) {
		callCtx, cancel := context.WithTimeout(ctx, cfg.summarizerTimeout)
		defer cancel()

		v, err := op(callCtx)
		if err != nil && ctx.Err() != nil {
			return v, retry.Permanent(err)
		}
		return v, err
	})
	if err != nil {
		var zero T
		if ctx.Err() != nil {
			return zero, goerr.Wrap(ctx.Err(), "summarizer call cancelled", goerr.V("operation", name))
		}
		return zero, goerr.Wrap(ErrSummarizer, "summarizer call failed after retries",
			goerr.V("operation", name),
			goerr.V("attempts", cfg.retry.MaxAttempts),
			goerr.V("cause", err.Error()))
	}
	return v, nil
}

func summarizeMention(ctx context.Context, cfg *settings, s interfaces.Summarizer, figure model.FigureContext, body string) (*model.MentionDraft, error) {
	return callSummarizer(ctx, cfg, "summarize_mention", func(ctx context.Context) (*model.MentionDraft, error) {
		draft, err := s.SummarizeMention(ctx, figure, body)
		if err != nil {
			return nil, err
		}
		if draft == nil {
			return nil, goerr.New("summarizer returned no draft")
		}
		return draft, nil
	})
}

func condense(ctx context.Context, cfg *settings, s interfaces.Summarizer, text string, maxWords int) (string, error) {
	return callSummarizer(ctx, cfg, "condense", func(ctx context.Context) (string, error) {
		return s.Condense(ctx, text, maxWords)
	})
}
