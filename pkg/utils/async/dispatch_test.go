package async_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/starlog-lab/starlog/pkg/utils/async"
)

func TestDispatcher(t *testing.T) {
	var d async.Dispatcher
	var ran atomic.Int32

	ctx, cancel := context.WithCancel(context.Background())
	gt.NoError(t, d.Dispatch(ctx, "ok", func(ctx context.Context) error {
		cancel()
		time.Sleep(10 * time.Millisecond)
		// job context is detached from the caller
		gt.NoError(t, ctx.Err())
		ran.Add(1)
		return nil
	}))
	gt.NoError(t, d.Dispatch(context.Background(), "fails", func(ctx context.Context) error {
		ran.Add(1)
		return errors.New("boom")
	}))
	gt.NoError(t, d.Dispatch(context.Background(), "panics", func(ctx context.Context) error {
		ran.Add(1)
		panic("unexpected")
	}))

	gt.NoError(t, d.Wait(context.Background()))
	gt.Value(t, ran.Load()).Equal(int32(3))
}

func TestDispatcher_WaitTimeout(t *testing.T) {
	var d async.Dispatcher
	release := make(chan struct{})
	gt.NoError(t, d.Dispatch(context.Background(), "slow", func(ctx context.Context) error {
		<-release
		return nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	gt.Error(t, d.Wait(ctx))

	close(release)
	gt.NoError(t, d.Wait(context.Background()))
}

func TestDispatcher_ShutdownCancelsRunningJobs(t *testing.T) {
	var d async.Dispatcher
	started := make(chan struct{})
	var cancelled atomic.Bool

	gt.NoError(t, d.Dispatch(context.Background(), "loop", func(ctx context.Context) error {
		close(started)
		for {
			select {
			case <-ctx.Done():
				cancelled.Store(true)
				return ctx.Err()
			case <-time.After(time.Millisecond):
			}
		}
	}))
	<-started

	d.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	gt.NoError(t, d.Wait(ctx))
	gt.B(t, cancelled.Load()).True()

	err := d.Dispatch(context.Background(), "late", func(ctx context.Context) error {
		t.Error("job dispatched after shutdown must not run")
		return nil
	})
	gt.B(t, errors.Is(err, async.ErrShuttingDown)).True()
	gt.NoError(t, d.Wait(context.Background()))
}

func TestDispatcher_ShutdownWithoutJobs(t *testing.T) {
	var d async.Dispatcher
	d.Shutdown()
	gt.NoError(t, d.Wait(context.Background()))
}
