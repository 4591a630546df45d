package interfaces

import (
	"context"
	"iter"

	"github.com/starlog-lab/starlog/pkg/domain/model"
	"github.com/starlog-lab/starlog/pkg/domain/types"
)

// MaxCommitOperations is the hard cap of document writes in one atomic commit
const MaxCommitOperations = 500

// TimelineRepository persists whole TimelineDocuments
type TimelineRepository interface {
	// GetTimeline returns the stored document, or nil without error when it
	// does not exist.
	GetTimeline(ctx context.Context, figureID types.FigureID, category types.MainCategory) (*model.TimelineDocument, error)

	// CommitTimelines replaces all docs atomically: either every document is
	// written or none is. len(docs) must not exceed MaxCommitOperations.
	CommitTimelines(ctx context.Context, docs []*model.TimelineDocument) error

	// ListTimelines streams every stored document
	ListTimelines(ctx context.Context) iter.Seq2[*model.TimelineDocument, error]
}
