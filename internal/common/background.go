package common

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// BackgroundTask runs goroutines that must finish, or at least be told to stop, before the process exits:
// offline notifications on the API, the Listener on the client.
type BackgroundTask struct {
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewBackgroundTask() *BackgroundTask {
	ctx, cancel := context.WithCancel(context.Background())
	return &BackgroundTask{ctx: ctx, cancel: cancel}
}

// Run executes fn in its own goroutine. fn should return once shtdwnCtx is done, a panic is logged with
// the task name and swallowed.
func (bt *BackgroundTask) Run(name string, fn func(shtdwnCtx context.Context)) {
	bt.wg.Add(1)
	go func() {
		defer bt.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("background task panicked", "task", name, "panic", r, "stack", string(debug.Stack()))
			}
		}()
		fn(bt.ctx)
	}()
}

// Context is cancelled once Shutdown is called
func (bt *BackgroundTask) Context() context.Context {
	return bt.ctx
}

// Shutdown cancels every task and waits up to timeout for them, false when some were still running
func (bt *BackgroundTask) Shutdown(timeout time.Duration) bool {
	bt.cancel()
	done := make(chan struct{})
	go func() {
		bt.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		slog.Warn("shutdown timed out, some background tasks may not have finished", "timeout", timeout)
		return false
	}
}
