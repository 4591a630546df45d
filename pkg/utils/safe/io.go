package safe

import (
	"context"
	"io"

	"github.com/starlog-lab/starlog/pkg/utils/logging"
)

// Close closes closer and logs a failure. nil is ignored.
func Close(ctx context.Context, closer io.Closer) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.From(ctx).Warn("failed to close", "error", err)
	}
}

// Write writes data to w and logs a failure. Used for response bodies after
// the status line is already sent, where nothing else can be done.
func Write(ctx context.Context, w io.Writer, data []byte) {
	if w == nil {
		return
	}
	if _, err := w.Write(data); err != nil {
		logging.From(ctx).Warn("failed to write", "error", err, "bytes", len(data))
	}
}
