package task

import (
	"sort"

	"github.com/parseq/parseq/observability"
)

// Value returns a task already carrying v; scheduling it settles it
// immediately with no real work performed.
func Value[T any](name string, v T) *Task[T] {
	return newTask(name, func(Context) (T, error) { return v, nil })
}

// Failure returns a task that settles immediately with err.
func Failure[T any](name string, err error) *Task[T] {
	return newTask(name, func(Context) (T, error) {
		var zero T
		return zero, err
	})
}

// Callable wraps a synchronous function with no Context access. A panic
// inside fn fails the task rather than crashing the scheduler.
func Callable[T any](name string, fn func() (T, error)) *Task[T] {
	if fn == nil {
		return Failure[T](name, &ArgumentError{Func: "Callable", Arg: "fn"})
	}
	return newTask(name, func(Context) (T, error) { return fn() })
}

// Action wraps a synchronous side-effecting function that produces no
// value of interest.
func Action(name string, fn func() error) *Task[struct{}] {
	if fn == nil {
		return Failure[struct{}](name, &ArgumentError{Func: "Action", Arg: "fn"})
	}
	return newTask(name, func(Context) (struct{}, error) { return struct{}{}, fn() })
}

// Async wraps a function with full Context access, letting the body
// schedule further tasks before returning its own result. systemHidden
// marks the task HideFromTrace at construction, for combinators that
// synthesize internal plumbing tasks.
func Async[T any](name string, fn func(ctx Context) (T, error), systemHidden bool) *Task[T] {
	if fn == nil {
		return Failure[T](name, &ArgumentError{Func: "Async", Arg: "fn"})
	}
	t := newTask(name, fn)
	if systemHidden {
		t.HideFromTrace()
	}
	return t
}

// Blocking offloads fn to executor (e.g. a worker pool's Submit) and
// reports completion through the returned task's promise once executor
// invokes the work it was given. A nil executor runs fn on its own
// goroutine.
func Blocking[T any](name string, fn func() (T, error), executor func(func())) *Task[T] {
	if fn == nil {
		return Failure[T](name, &ArgumentError{Func: "Blocking", Arg: "fn"})
	}
	if executor == nil {
		executor = func(f func()) { go f() }
	}
	return Async(name, func(Context) (T, error) {
		type outcome struct {
			value T
			err   error
		}
		results := make(chan outcome, 1)
		executor(func() {
			v, err := fn()
			results <- outcome{v, err}
		})
		r := <-results
		return r.value, r.err
	}, false)
}

// parAwait schedules every input on ctx and returns as soon as any one of
// them fails, or after all of them have succeeded. It never waits on
// already-failed siblings beyond the first failure observed: the rest
// keep running to completion, per spec.md §4.3's "sibling tasks
// continue unless the engine cancels the plan". A background goroutine
// separately waits out every input (including ones still running after
// the first failure) and reports the full per-sibling failure set to
// collect, without holding up the primary result.
func parAwait(ctx Context, inputs []Runnable, collect func(*ParErrors)) error {
	for _, in := range inputs {
		ctx.Run(in)
	}

	type event struct {
		index int
		err   error
	}
	events := make(chan event, len(inputs))
	for i, in := range inputs {
		i, in := i, in
		in.OnSettled(func() { events <- event{index: i, err: in.SettledErr()} })
	}

	firstErr := make(chan error, 1)
	go func() {
		var failed []ParError
		reported := false
		for range inputs {
			e := <-events
			if e.err == nil {
				continue
			}
			failed = append(failed, ParError{Index: e.index, Err: e.err})
			if !reported {
				reported = true
				firstErr <- e.err
			}
		}
		if !reported {
			firstErr <- nil
		}
		if len(failed) > 0 {
			sort.Slice(failed, func(i, j int) bool { return failed[i].Index < failed[j].Index })
			collect(&ParErrors{Errors: failed})
		}
	}()
	return <-firstErr
}

// Tuple2 through Tuple9 hold the combined results of a parN composite.

type Tuple2[A, B any] struct {
	V1 A
	V2 B
}

type Tuple3[A, B, C any] struct {
	V1 A
	V2 B
	V3 C
}

type Tuple4[A, B, C, D any] struct {
	V1 A
	V2 B
	V3 C
	V4 D
}

type Tuple5[A, B, C, D, E any] struct {
	V1 A
	V2 B
	V3 C
	V4 D
	V5 E
}

type Tuple6[A, B, C, D, E, F any] struct {
	V1 A
	V2 B
	V3 C
	V4 D
	V5 E
	V6 F
}

type Tuple7[A, B, C, D, E, F, G any] struct {
	V1 A
	V2 B
	V3 C
	V4 D
	V5 E
	V6 F
	V7 G
}

type Tuple8[A, B, C, D, E, F, G, H any] struct {
	V1 A
	V2 B
	V3 C
	V4 D
	V5 E
	V6 F
	V7 G
	V8 H
}

type Tuple9[A, B, C, D, E, F, G, H, I any] struct {
	V1 A
	V2 B
	V3 C
	V4 D
	V5 E
	V6 F
	V7 G
	V8 H
	V9 I
}

// Par2 runs ta and tb in the same context and completes with both values,
// or the first error either reports. spec.md §4.3.
func Par2[A, B any](name string, ta *Task[A], tb *Task[B]) *Task[Tuple2[A, B]] {
	var r *Task[Tuple2[A, B]]
	r = Async(name, func(ctx Context) (Tuple2[A, B], error) {
		var zero Tuple2[A, B]
		if err := parAwait(ctx, []Runnable{ta, tb}, r.setParErrors); err != nil {
			return zero, err
		}
		av, _ := ta.Get()
		bv, _ := tb.Get()
		return Tuple2[A, B]{V1: av, V2: bv}, nil
	}, false)
	r.addRelation(RelationPredecessor, ta)
	r.addRelation(RelationPredecessor, tb)
	r.emit(EventCombinatorPar, observability.LevelVerbose, map[string]any{"arity": len(r.Relationships())})
	return r
}

// Par3 is Par2 for three inputs.
func Par3[A, B, C any](name string, ta *Task[A], tb *Task[B], tc *Task[C]) *Task[Tuple3[A, B, C]] {
	var r *Task[Tuple3[A, B, C]]
	r = Async(name, func(ctx Context) (Tuple3[A, B, C], error) {
		var zero Tuple3[A, B, C]
		if err := parAwait(ctx, []Runnable{ta, tb, tc}, r.setParErrors); err != nil {
			return zero, err
		}
		av, _ := ta.Get()
		bv, _ := tb.Get()
		cv, _ := tc.Get()
		return Tuple3[A, B, C]{V1: av, V2: bv, V3: cv}, nil
	}, false)
	r.addRelation(RelationPredecessor, ta)
	r.addRelation(RelationPredecessor, tb)
	r.addRelation(RelationPredecessor, tc)
	r.emit(EventCombinatorPar, observability.LevelVerbose, map[string]any{"arity": len(r.Relationships())})
	return r
}

// Par4 is Par2 for four inputs.
func Par4[A, B, C, D any](name string, ta *Task[A], tb *Task[B], tc *Task[C], td *Task[D]) *Task[Tuple4[A, B, C, D]] {
	var r *Task[Tuple4[A, B, C, D]]
	r = Async(name, func(ctx Context) (Tuple4[A, B, C, D], error) {
		var zero Tuple4[A, B, C, D]
		if err := parAwait(ctx, []Runnable{ta, tb, tc, td}, r.setParErrors); err != nil {
			return zero, err
		}
		av, _ := ta.Get()
		bv, _ := tb.Get()
		cv, _ := tc.Get()
		dv, _ := td.Get()
		return Tuple4[A, B, C, D]{V1: av, V2: bv, V3: cv, V4: dv}, nil
	}, false)
	r.addRelation(RelationPredecessor, ta)
	r.addRelation(RelationPredecessor, tb)
	r.addRelation(RelationPredecessor, tc)
	r.addRelation(RelationPredecessor, td)
	r.emit(EventCombinatorPar, observability.LevelVerbose, map[string]any{"arity": len(r.Relationships())})
	return r
}

// Par5 is Par2 for five inputs.
func Par5[A, B, C, D, E any](name string, ta *Task[A], tb *Task[B], tc *Task[C], td *Task[D], te *Task[E]) *Task[Tuple5[A, B, C, D, E]] {
	var r *Task[Tuple5[A, B, C, D, E]]
	r = Async(name, func(ctx Context) (Tuple5[A, B, C, D, E], error) {
		var zero Tuple5[A, B, C, D, E]
		if err := parAwait(ctx, []Runnable{ta, tb, tc, td, te}, r.setParErrors); err != nil {
			return zero, err
		}
		av, _ := ta.Get()
		bv, _ := tb.Get()
		cv, _ := tc.Get()
		dv, _ := td.Get()
		ev, _ := te.Get()
		return Tuple5[A, B, C, D, E]{V1: av, V2: bv, V3: cv, V4: dv, V5: ev}, nil
	}, false)
	r.addRelation(RelationPredecessor, ta)
	r.addRelation(RelationPredecessor, tb)
	r.addRelation(RelationPredecessor, tc)
	r.addRelation(RelationPredecessor, td)
	r.addRelation(RelationPredecessor, te)
	r.emit(EventCombinatorPar, observability.LevelVerbose, map[string]any{"arity": len(r.Relationships())})
	return r
}

// Par6 is Par2 for six inputs.
func Par6[A, B, C, D, E, F any](name string, ta *Task[A], tb *Task[B], tc *Task[C], td *Task[D], te *Task[E], tf *Task[F]) *Task[Tuple6[A, B, C, D, E, F]] {
	var r *Task[Tuple6[A, B, C, D, E, F]]
	r = Async(name, func(ctx Context) (Tuple6[A, B, C, D, E, F], error) {
		var zero Tuple6[A, B, C, D, E, F]
		if err := parAwait(ctx, []Runnable{ta, tb, tc, td, te, tf}, r.setParErrors); err != nil {
			return zero, err
		}
		av, _ := ta.Get()
		bv, _ := tb.Get()
		cv, _ := tc.Get()
		dv, _ := td.Get()
		ev, _ := te.Get()
		fv, _ := tf.Get()
		return Tuple6[A, B, C, D, E, F]{V1: av, V2: bv, V3: cv, V4: dv, V5: ev, V6: fv}, nil
	}, false)
	r.addRelation(RelationPredecessor, ta)
	r.addRelation(RelationPredecessor, tb)
	r.addRelation(RelationPredecessor, tc)
	r.addRelation(RelationPredecessor, td)
	r.addRelation(RelationPredecessor, te)
	r.addRelation(RelationPredecessor, tf)
	r.emit(EventCombinatorPar, observability.LevelVerbose, map[string]any{"arity": len(r.Relationships())})
	return r
}

// Par7 is Par2 for seven inputs.
func Par7[A, B, C, D, E, F, G any](name string, ta *Task[A], tb *Task[B], tc *Task[C], td *Task[D], te *Task[E], tf *Task[F], tg *Task[G]) *Task[Tuple7[A, B, C, D, E, F, G]] {
	var r *Task[Tuple7[A, B, C, D, E, F, G]]
	r = Async(name, func(ctx Context) (Tuple7[A, B, C, D, E, F, G], error) {
		var zero Tuple7[A, B, C, D, E, F, G]
		if err := parAwait(ctx, []Runnable{ta, tb, tc, td, te, tf, tg}, r.setParErrors); err != nil {
			return zero, err
		}
		av, _ := ta.Get()
		bv, _ := tb.Get()
		cv, _ := tc.Get()
		dv, _ := td.Get()
		ev, _ := te.Get()
		fv, _ := tf.Get()
		gv, _ := tg.Get()
		return Tuple7[A, B, C, D, E, F, G]{V1: av, V2: bv, V3: cv, V4: dv, V5: ev, V6: fv, V7: gv}, nil
	}, false)
	r.addRelation(RelationPredecessor, ta)
	r.addRelation(RelationPredecessor, tb)
	r.addRelation(RelationPredecessor, tc)
	r.addRelation(RelationPredecessor, td)
	r.addRelation(RelationPredecessor, te)
	r.addRelation(RelationPredecessor, tf)
	r.addRelation(RelationPredecessor, tg)
	r.emit(EventCombinatorPar, observability.LevelVerbose, map[string]any{"arity": len(r.Relationships())})
	return r
}

// Par8 is Par2 for eight inputs.
func Par8[A, B, C, D, E, F, G, H any](name string, ta *Task[A], tb *Task[B], tc *Task[C], td *Task[D], te *Task[E], tf *Task[F], tg *Task[G], th *Task[H]) *Task[Tuple8[A, B, C, D, E, F, G, H]] {
	var r *Task[Tuple8[A, B, C, D, E, F, G, H]]
	r = Async(name, func(ctx Context) (Tuple8[A, B, C, D, E, F, G, H], error) {
		var zero Tuple8[A, B, C, D, E, F, G, H]
		if err := parAwait(ctx, []Runnable{ta, tb, tc, td, te, tf, tg, th}, r.setParErrors); err != nil {
			return zero, err
		}
		av, _ := ta.Get()
		bv, _ := tb.Get()
		cv, _ := tc.Get()
		dv, _ := td.Get()
		ev, _ := te.Get()
		fv, _ := tf.Get()
		gv, _ := tg.Get()
		hv, _ := th.Get()
		return Tuple8[A, B, C, D, E, F, G, H]{V1: av, V2: bv, V3: cv, V4: dv, V5: ev, V6: fv, V7: gv, V8: hv}, nil
	}, false)
	r.addRelation(RelationPredecessor, ta)
	r.addRelation(RelationPredecessor, tb)
	r.addRelation(RelationPredecessor, tc)
	r.addRelation(RelationPredecessor, td)
	r.addRelation(RelationPredecessor, te)
	r.addRelation(RelationPredecessor, tf)
	r.addRelation(RelationPredecessor, tg)
	r.addRelation(RelationPredecessor, th)
	r.emit(EventCombinatorPar, observability.LevelVerbose, map[string]any{"arity": len(r.Relationships())})
	return r
}

// Par9 is Par2 for nine inputs.
func Par9[A, B, C, D, E, F, G, H, I any](name string, ta *Task[A], tb *Task[B], tc *Task[C], td *Task[D], te *Task[E], tf *Task[F], tg *Task[G], th *Task[H], ti *Task[I]) *Task[Tuple9[A, B, C, D, E, F, G, H, I]] {
	var r *Task[Tuple9[A, B, C, D, E, F, G, H, I]]
	r = Async(name, func(ctx Context) (Tuple9[A, B, C, D, E, F, G, H, I], error) {
		var zero Tuple9[A, B, C, D, E, F, G, H, I]
		if err := parAwait(ctx, []Runnable{ta, tb, tc, td, te, tf, tg, th, ti}, r.setParErrors); err != nil {
			return zero, err
		}
		av, _ := ta.Get()
		bv, _ := tb.Get()
		cv, _ := tc.Get()
		dv, _ := td.Get()
		ev, _ := te.Get()
		fv, _ := tf.Get()
		gv, _ := tg.Get()
		hv, _ := th.Get()
		iv, _ := ti.Get()
		return Tuple9[A, B, C, D, E, F, G, H, I]{V1: av, V2: bv, V3: cv, V4: dv, V5: ev, V6: fv, V7: gv, V8: hv, V9: iv}, nil
	}, false)
	r.addRelation(RelationPredecessor, ta)
	r.addRelation(RelationPredecessor, tb)
	r.addRelation(RelationPredecessor, tc)
	r.addRelation(RelationPredecessor, td)
	r.addRelation(RelationPredecessor, te)
	r.addRelation(RelationPredecessor, tf)
	r.addRelation(RelationPredecessor, tg)
	r.addRelation(RelationPredecessor, th)
	r.addRelation(RelationPredecessor, ti)
	r.emit(EventCombinatorPar, observability.LevelVerbose, map[string]any{"arity": len(r.Relationships())})
	return r
}
