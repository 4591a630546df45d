package async

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/starlog-lab/starlog/pkg/utils/errutil"
	"github.com/starlog-lab/starlog/pkg/utils/logging"
)

// ErrShuttingDown is returned by Dispatch after Shutdown was called
var ErrShuttingDown = goerr.New("dispatcher is shutting down")

// Dispatcher runs jobs detached from the request that started them and
// keeps track of them so that a server can stop and drain them on shutdown.
// The zero value is ready to use.
type Dispatcher struct {
	wg sync.WaitGroup

	mu       sync.Mutex
	base     context.Context
	cancel   context.CancelFunc
	shutdown bool
}

func (d *Dispatcher) baseContext() context.Context {
	if d.base == nil {
		d.base, d.cancel = context.WithCancel(context.Background())
	}
	return d.base
}

// Dispatch runs handler in a new goroutine. The job context keeps the
// logger of ctx but not its cancellation or deadline; it is cancelled by
// Shutdown instead. Errors and panics are logged and reported.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, handler func(ctx context.Context) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.shutdown {
		return goerr.Wrap(ErrShuttingDown, "job rejected", goerr.V("job", name))
	}

	jobCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	release := context.AfterFunc(d.baseContext(), stop)
	jobCtx = logging.With(jobCtx, logging.From(ctx).With("job", name))

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer stop()
		defer release()
		defer func() {
			if r := recover(); r != nil {
				_ = errutil.Handle(jobCtx, goerr.New("panic in async job", goerr.V("panic", r)), "async job panicked")
			}
		}()

		if err := handler(jobCtx); err != nil {
			_ = errutil.Handle(jobCtx, err, "async job failed")
		}
	}()
	return nil
}

// Shutdown cancels the context of every running job and rejects new ones.
// Call Wait afterwards to drain them.
func (d *Dispatcher) Shutdown() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shutdown = true
	d.baseContext()
	d.cancel()
}

// Wait blocks until every dispatched job returned or ctx is done
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return goerr.Wrap(ctx.Err(), "async jobs still running")
	}
}
