package interfaces

import (
	"context"

	"github.com/starlog-lab/starlog/pkg/domain/model"
)

// Notifier delivers run summaries to operators
type Notifier interface {
	Notify(ctx context.Context, n *model.Notification) error
}
