package batch

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/starlog-lab/starlog/pkg/domain/interfaces"
	"github.com/starlog-lab/starlog/pkg/domain/model"
	"github.com/starlog-lab/starlog/pkg/utils/logging"
	"github.com/starlog-lab/starlog/pkg/utils/retry"
)

// DefaultChunkSize keeps a margin below interfaces.MaxCommitOperations
const DefaultChunkSize = 400

var (
	// ErrCommitChunk is returned by Flush when a chunk could not be committed
	// after retries. Earlier chunks stay committed; the failing chunk and
	// everything after it stay pending.
	ErrCommitChunk = goerr.New("chunk commit failed")

	// ErrEnqueueCancelled is returned by Enqueue once the context is done
	ErrEnqueueCancelled = goerr.New("enqueue refused after cancellation")
)

// FlushReport describes one Flush call
type FlushReport struct {
	ChunksCommitted    int
	DocumentsCommitted int
	Pending            int
}

type entry struct {
	doc *model.TimelineDocument
	seq uint64
}

// Controller buffers whole-document writes and commits them in bounded,
// order preserving chunks. Each chunk is atomic; a flush as a whole is not.
type Controller struct {
	repo      interfaces.TimelineRepository
	chunkSize int
	policy    retry.Policy

	mu      sync.Mutex
	order   []model.TimelineKey
	pending map[model.TimelineKey]*entry
	seq     uint64

	flushMu sync.Mutex
}

type Option func(*Controller)

// WithChunkSize sets the number of documents per commit, capped at
// interfaces.MaxCommitOperations
func WithChunkSize(n int) Option {
	return func(c *Controller) {
		switch {
		case n <= 0:
			c.chunkSize = DefaultChunkSize
		case n > interfaces.MaxCommitOperations:
			c.chunkSize = interfaces.MaxCommitOperations
		default:
			c.chunkSize = n
		}
	}
}

// WithRetryPolicy sets how a failing chunk commit is retried
func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Controller) {
		c.policy = p
	}
}

func New(repo interfaces.TimelineRepository, opts ...Option) *Controller {
	c := &Controller{
		repo:      repo,
		chunkSize: DefaultChunkSize,
		policy:    retry.DefaultPolicy,
		pending:   make(map[model.TimelineKey]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ChunkSize returns the configured chunk size
func (c *Controller) ChunkSize() int {
	return c.chunkSize
}

// Enqueue buffers a full replacement of doc. A document already pending
// under the same key is replaced in place and keeps its queue position.
func (c *Controller) Enqueue(ctx context.Context, doc *model.TimelineDocument) error {
	if err := ctx.Err(); err != nil {
		return goerr.Wrap(ErrEnqueueCancelled, "context is done",
			goerr.V("key", doc.Key().String()), goerr.V("cause", err.Error()))
	}
	if err := doc.Validate(); err != nil {
		return goerr.Wrap(err, "refusing invalid timeline document", goerr.V("key", doc.Key().String()))
	}

	key := doc.Key()
	copied := doc.Clone()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	if e, ok := c.pending[key]; ok {
		e.doc = copied
		e.seq = c.seq
		return nil
	}
	c.pending[key] = &entry{doc: copied, seq: c.seq}
	c.order = append(c.order, key)
	return nil
}

// Pending returns a copy of the pending document for key, if any
func (c *Controller) Pending(key model.TimelineKey) (*model.TimelineDocument, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.pending[key]
	if !ok {
		return nil, false
	}
	return e.doc.Clone(), true
}

// Len returns the number of pending documents
func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

type chunkItem struct {
	key model.TimelineKey
	seq uint64
	doc *model.TimelineDocument
}

func (c *Controller) nextChunk() []chunkItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := min(c.chunkSize, len(c.order))
	items := make([]chunkItem, 0, n)
	for _, key := range c.order[:n] {
		e := c.pending[key]
		items = append(items, chunkItem{key: key, seq: e.seq, doc: e.doc})
	}
	return items
}

// commitDone drops committed entries. An entry re-enqueued while its chunk
// was in flight has a newer seq and stays pending.
func (c *Controller) commitDone(items []chunkItem) {
	c.mu.Lock()
	defer c.mu.Unlock()

	done := make(map[model.TimelineKey]struct{}, len(items))
	for _, it := range items {
		if e, ok := c.pending[it.key]; ok && e.seq == it.seq {
			delete(c.pending, it.key)
			done[it.key] = struct{}{}
		}
	}

	kept := c.order[:0]
	for _, key := range c.order {
		if _, ok := done[key]; !ok {
			kept = append(kept, key)
		}
	}
	c.order = kept
}

// Flush commits pending documents chunk by chunk in enqueue order. Once
// started, a chunk commit runs to completion even if ctx is cancelled;
// cancellation stops Flush before the next chunk.
func (c *Controller) Flush(ctx context.Context) (*FlushReport, error) {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	logger := logging.From(ctx)
	report := &FlushReport{}

	for {
		if err := ctx.Err(); err != nil {
			report.Pending = c.Len()
			return report, goerr.Wrap(err, "flush cancelled",
				goerr.V("chunks_committed", report.ChunksCommitted),
				goerr.V("pending", report.Pending))
		}

		items := c.nextChunk()
		if len(items) == 0 {
			break
		}

		docs := make([]*model.TimelineDocument, len(items))
		for i, it := range items {
			docs[i] = it.doc
		}

		commitCtx := context.WithoutCancel(ctx)
		err := retry.Do(commitCtx, c.policy, "commit_timelines", func() error {
			return c.repo.CommitTimelines(commitCtx, docs)
		})
		if err != nil {
			report.Pending = c.Len()
			logger.Error("chunk commit failed",
				"chunk", report.ChunksCommitted+1,
				"size", len(docs),
				"pending", report.Pending,
				"error", err)
			return report, goerr.Wrap(ErrCommitChunk, "failed to commit timeline chunk",
				goerr.V("chunk", report.ChunksCommitted+1),
				goerr.V("size", len(docs)),
				goerr.V("pending", report.Pending),
				goerr.V("cause", err.Error()))
		}

		c.commitDone(items)
		report.ChunksCommitted++
		report.DocumentsCommitted += len(docs)
		logger.Debug("chunk committed", "chunk", report.ChunksCommitted, "size", len(docs))
	}

	report.Pending = c.Len()
	return report, nil
}
