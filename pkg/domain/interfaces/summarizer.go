package interfaces

import (
	"context"

	"github.com/starlog-lab/starlog/pkg/domain/model"
)

// Summarizer is the text generation collaborator. Both calls may fail or time
// out; callers are expected to retry.
type Summarizer interface {
	// SummarizeMention drafts a structured timeline event describing what the
	// article says about the figure.
	SummarizeMention(ctx context.Context, figure model.FigureContext, articleBody string) (*model.MentionDraft, error)

	// Condense rewrites text in at most maxWords words
	Condense(ctx context.Context, text string, maxWords int) (string, error)
}
