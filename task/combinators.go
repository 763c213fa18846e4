package task

import (
	"time"

	"github.com/parseq/parseq/observability"
)

// Try is the result type produced by WithTry: a terminal task's value or
// error, reified so the derived task itself never fails. spec.md §4.3.
type Try[T any] struct {
	Value T
	Err   error
}

// Succeeded reports whether the underlying task completed without error.
func (r Try[T]) Succeeded() bool { return r.Err == nil }

// Map derives a task that applies f to u's value on success, or carries
// u's error unchanged on failure (spec.md §4.3's reference-equal
// propagation). Fusion into a single trace node (no separate scheduling
// boundary) is left as a future trace optimization; Map is implemented
// here as an ordinary derived task.
func Map[T, R any](u *Task[T], name string, f func(T) (R, error)) *Task[R] {
	if f == nil {
		return Failure[R](name, &ArgumentError{Func: "Map", Arg: "f"})
	}
	r := Async(name, func(ctx Context) (R, error) {
		var zero R
		ctx.Run(u)
		v, err := u.Get()
		if err != nil {
			return zero, err
		}
		return f(v)
	}, false)
	r.SetObserver(u.Observer())
	r.addRelation(RelationPredecessor, u)
	r.emit(EventCombinatorMap, observability.LevelVerbose, map[string]any{"upstream_id": u.ID()})
	return r
}

// FlatMap derives a task that, on u's success, builds inner = f(u.value)
// and propagates inner's result. f is not called if u fails or is
// cancelled.
func FlatMap[T, R any](u *Task[T], name string, f func(T) *Task[R]) *Task[R] {
	if f == nil {
		return Failure[R](name, &ArgumentError{Func: "FlatMap", Arg: "f"})
	}
	r := Async(name, func(ctx Context) (R, error) {
		var zero R
		ctx.Run(u)
		v, err := u.Get()
		if err != nil {
			return zero, err
		}
		inner := f(v)
		ctx.Run(inner)
		return inner.Get()
	}, false)
	r.SetObserver(u.Observer())
	r.addRelation(RelationPredecessor, u)
	r.emit(EventCombinatorFlatMap, observability.LevelVerbose, map[string]any{"upstream_id": u.ID()})
	return r
}

// AndThen derives a task carrying u's own value, after first invoking
// consumer with it. consumer's return value is discarded; a returned
// error fails the derived task.
func (u *Task[T]) AndThen(name string, consumer func(T) error) *Task[T] {
	if consumer == nil {
		return Failure[T](name, &ArgumentError{Func: "AndThen", Arg: "consumer"})
	}
	r := Async(name, func(ctx Context) (T, error) {
		var zero T
		ctx.Run(u)
		v, err := u.Get()
		if err != nil {
			return zero, err
		}
		if cerr := consumer(v); cerr != nil {
			return zero, cerr
		}
		return v, nil
	}, false)
	r.SetObserver(u.Observer())
	r.addRelation(RelationPredecessor, u)
	r.emit(EventCombinatorAndThen, observability.LevelVerbose, map[string]any{"upstream_id": u.ID()})
	return r
}

// AndThenTask derives a task that schedules x once u terminates (in any
// state, success or not) and propagates x's result verbatim.
func AndThenTask[T, R any](u *Task[T], name string, x *Task[R]) *Task[R] {
	r := Async(name, func(ctx Context) (R, error) {
		ctx.Run(u)
		ctx.After(u).Run(x)
		return x.Get()
	}, false)
	r.SetObserver(u.Observer())
	r.addRelation(RelationPredecessor, u)
	r.addRelation(RelationPredecessor, x)
	r.emit(EventCombinatorAndThen, observability.LevelVerbose, map[string]any{"upstream_id": u.ID(), "successor_id": x.ID()})
	return r
}

// WithSideEffect derives a task carrying u's own result, completing as
// soon as u does. If u succeeds, f(u.value) is scheduled as a side
// effect via RunSideEffect; its own outcome never affects the derived
// task. f is not called at all if u fails or is cancelled.
func WithSideEffect[T, S any](u *Task[T], name string, f func(T) *Task[S]) *Task[T] {
	if f == nil {
		return Failure[T](name, &ArgumentError{Func: "WithSideEffect", Arg: "f"})
	}
	r := Async(name, func(ctx Context) (T, error) {
		ctx.Run(u)
		v, err := u.Get()
		if err == nil {
			side := f(v)
			ctx.After(u).RunSideEffect(side)
		}
		return v, err
	}, false)
	r.SetObserver(u.Observer())
	r.addRelation(RelationPredecessor, u)
	r.emit(EventCombinatorSideEffect, observability.LevelVerbose, map[string]any{"upstream_id": u.ID()})
	return r
}

// Recover derives a task that carries u's value on success, or f(err) on
// failure (including cancellation). A panic inside f fails the derived
// task with the recovered value.
func (u *Task[T]) Recover(name string, f func(error) (T, error)) *Task[T] {
	if f == nil {
		return Failure[T](name, &ArgumentError{Func: "Recover", Arg: "f"})
	}
	r := Async(name, func(ctx Context) (T, error) {
		ctx.Run(u)
		v, err := u.Get()
		if err == nil {
			return v, nil
		}
		return f(err)
	}, false)
	r.SetObserver(u.Observer())
	r.addRelation(RelationPredecessor, u)
	r.emit(EventCombinatorRecover, observability.LevelVerbose, map[string]any{"upstream_id": u.ID()})
	return r
}

// RecoverWith is Recover, except the recovery itself is a task run in the
// same context; its result becomes the derived task's result.
func (u *Task[T]) RecoverWith(name string, f func(error) *Task[T]) *Task[T] {
	if f == nil {
		return Failure[T](name, &ArgumentError{Func: "RecoverWith", Arg: "f"})
	}
	r := Async(name, func(ctx Context) (T, error) {
		ctx.Run(u)
		v, err := u.Get()
		if err == nil {
			return v, nil
		}
		fallback := f(err)
		ctx.Run(fallback)
		return fallback.Get()
	}, false)
	r.SetObserver(u.Observer())
	r.addRelation(RelationPredecessor, u)
	r.emit(EventCombinatorRecover, observability.LevelVerbose, map[string]any{"upstream_id": u.ID()})
	return r
}

// FallBackTo is RecoverWith with a fixed fallback task, except that if
// the fallback itself fails, the derived task fails with u's original
// error rather than the fallback's.
func (u *Task[T]) FallBackTo(name string, fallback *Task[T]) *Task[T] {
	r := Async(name, func(ctx Context) (T, error) {
		var zero T
		ctx.Run(u)
		v, err := u.Get()
		if err == nil {
			return v, nil
		}
		ctx.Run(fallback)
		fv, ferr := fallback.Get()
		if ferr != nil {
			return zero, err
		}
		return fv, nil
	}, false)
	r.SetObserver(u.Observer())
	r.addRelation(RelationPredecessor, u)
	r.addRelation(RelationPredecessor, fallback)
	r.emit(EventCombinatorFallBackTo, observability.LevelVerbose, map[string]any{"upstream_id": u.ID()})
	return r
}

// WithTry derives a task that never fails: it reifies u's eventual value
// or error into a Try[T].
func (u *Task[T]) WithTry(name string) *Task[Try[T]] {
	r := Async(name, func(ctx Context) (Try[T], error) {
		ctx.Run(u)
		v, err := u.Get()
		return Try[T]{Value: v, Err: err}, nil
	}, false)
	r.SetObserver(u.Observer())
	r.addRelation(RelationPredecessor, u)
	r.emit(EventCombinatorWithTry, observability.LevelVerbose, map[string]any{"upstream_id": u.ID()})
	return r
}

// WithTimeout wraps u in place with a timeout: a MAX_PRIORITY timer races
// u's own completion, and whichever settles first commits the result.
// Returns u itself (spec.md §4.3: "wraps U in-place via a context-run
// wrapper").
func (u *Task[T]) WithTimeout(d time.Duration) *Task[T] {
	w := newTimeoutWrapper[T](d)
	w.observer = u.Observer()
	u.WrapContextRun(w)
	u.emit(EventTimeoutArmed, observability.LevelVerbose, map[string]any{"duration_ms": d.Milliseconds()})
	return u
}
