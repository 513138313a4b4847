package executor

import (
	"context"

	"github.com/yuya-takeyama/strict-fanout-copy/pkg/progress"
	"github.com/yuya-takeyama/strict-fanout-copy/pkg/report"
)

// Future is the eventual result of a phase running in the background.
// Abandoning a Future does not stop the work behind it.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) resolve(value T, err error) {
	f.value = value
	f.err = err
	close(f.done)
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the result is available or ctx is done. A ctx error does
// not cancel the background work; Wait can be called again.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// StartCopy runs CopyTree in the background. ctx cancels the copy at the
// next chunk boundary.
func (e *Executor) StartCopy(ctx context.Context, source string, dests []string) (*progress.Receiver, *Future[CopyResult]) {
	tx := progress.New()
	rx := tx.Subscribe()
	f := newFuture[CopyResult]()

	go func() {
		f.resolve(e.CopyTree(ctx, source, dests, tx))
	}()

	return rx, f
}

// StartVerify runs VerifyTree in the background. ctx cancels verification
// between files.
func (e *Executor) StartVerify(ctx context.Context, source string, dests []string, files []string) (*progress.Receiver, *Future[*report.Report]) {
	tx := progress.New()
	rx := tx.Subscribe()
	f := newFuture[*report.Report]()

	go func() {
		f.resolve(e.VerifyTree(ctx, source, dests, files, tx))
	}()

	return rx, f
}
