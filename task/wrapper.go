package task

import (
	stdctx "context"
	"sync/atomic"
	"time"

	"github.com/parseq/parseq/observability"
)

// ContextRunWrapper lets a task intercept its own execution: Before runs
// immediately ahead of the task body (with the chance to schedule
// auxiliary tasks, like a timer), and After receives the body's raw
// result promise and returns the promise the task actually adopts.
// spec.md §4.4. Install one with Task.WrapContextRun; WithTimeout is the
// only combinator in this package that uses one, but user code may define
// its own.
type ContextRunWrapper[T any] interface {
	// Before runs once, just ahead of the task body, on the same Context
	// the body itself will receive.
	Before(ctx Context)

	// After receives the body's own result promise and returns the
	// promise the task adopts as its final result. Implementations that
	// don't need to alter the result can return body unchanged.
	After(ctx Context, body *Promise[T]) *Promise[T]

	// Compose returns a wrapper whose Before runs outer's Before first,
	// then the receiver's; and whose After applies outer's After last,
	// around the receiver's own. WrapContextRun uses this to make a
	// newly installed wrapper the new outermost layer.
	Compose(outer ContextRunWrapper[T]) ContextRunWrapper[T]
}

// composedWrapper chains two wrappers: outer runs around inner.
type composedWrapper[T any] struct {
	outer ContextRunWrapper[T]
	inner ContextRunWrapper[T]
}

func (w *composedWrapper[T]) Before(ctx Context) {
	w.outer.Before(ctx)
	w.inner.Before(ctx)
}

func (w *composedWrapper[T]) After(ctx Context, body *Promise[T]) *Promise[T] {
	return w.outer.After(ctx, w.inner.After(ctx, body))
}

func (w *composedWrapper[T]) Compose(outer ContextRunWrapper[T]) ContextRunWrapper[T] {
	return &composedWrapper[T]{outer: outer, inner: w}
}

// timeoutWrapper implements WithTimeout: it races a timer against the
// wrapped body and commits whichever settles first. The exactly-once
// guard is a CompareAndSwap on a single atomic.Bool: first caller wins,
// the loser is a no-op.
type timeoutWrapper[T any] struct {
	duration  time.Duration
	committed atomic.Bool
	result    *SettablePromise[T]
	observer  observability.Observer
}

func newTimeoutWrapper[T any](d time.Duration) *timeoutWrapper[T] {
	return &timeoutWrapper[T]{duration: d, result: NewSettablePromise[T](), observer: observability.NoOpObserver{}}
}

func (w *timeoutWrapper[T]) emit(typ observability.EventType) {
	w.observer.OnEvent(stdctx.Background(), observability.Event{
		Type:      typ,
		Level:     observability.LevelVerbose,
		Timestamp: time.Now(),
		Source:    "task.timeoutWrapper",
		Data:      map[string]any{"duration_ms": w.duration.Milliseconds()},
	})
}

func (w *timeoutWrapper[T]) Before(ctx Context) {
	var zero T
	timer := newTask[T]("timeout-timer", func(Context) (T, error) {
		return zero, ErrTimeout
	})
	timer.HideFromTrace()
	timer.SetPriority(MaxPriority)
	timer.OnComplete(func(T, error) {
		if w.committed.CompareAndSwap(false, true) {
			w.emit(EventTimeoutFired)
			w.result.Fail(ErrTimeout)
		}
	})
	ctx.CreateTimer(w.duration, timer)
}

func (w *timeoutWrapper[T]) After(_ Context, body *Promise[T]) *Promise[T] {
	body.OnComplete(func(value T, err error) {
		if w.committed.CompareAndSwap(false, true) {
			w.emit(EventTimeoutBodyWon)
			if err != nil {
				w.result.Fail(err)
			} else {
				w.result.Resolve(value)
			}
		}
	})
	return w.result.Promise
}

func (w *timeoutWrapper[T]) Compose(outer ContextRunWrapper[T]) ContextRunWrapper[T] {
	return &composedWrapper[T]{outer: outer, inner: w}
}
