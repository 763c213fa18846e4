package task

import (
	stdctx "context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/parseq/parseq/observability"
)

// Body is the function a task runs once scheduled. It receives the
// Context it was scheduled on so it may itself spawn child tasks
// (flatMap's inner task, par's children) before returning its own result.
type Body[T any] func(ctx Context) (T, error)

// Task is a single node in a ParSeq execution graph: a Promise[T] (spec.md
// §3) plus the scheduling metadata (name, priority, state, relationships)
// a Context needs to run it exactly once and a Trace needs to describe it
// afterward. Construct one with a factory (Value, Callable, Async, ...) or
// derive one from an existing task with a combinator (Map, FlatMap, ...).
type Task[T any] struct {
	id   string
	name string

	prio atomic.Int64

	mu           sync.Mutex
	state        State
	systemHidden bool
	wrapper      ContextRunWrapper[T]
	relations    []Relationship
	scheduledAt  time.Time
	startedAt    time.Time
	endedAt      time.Time

	runOnce sync.Once
	body    Body[T]

	settled  *SettablePromise[T]
	observer observability.Observer

	parErrs atomic.Pointer[ParErrors]
}

// newTask builds an unscheduled task around body, with the given name and
// the package default priority and observer.
func newTask[T any](name string, body Body[T]) *Task[T] {
	return &Task[T]{
		id:       uuid.NewString(),
		name:     name,
		state:    Created,
		body:     body,
		settled:  NewSettablePromise[T](),
		observer: observability.NoOpObserver{},
	}
}

// ID returns the task's UUID, stable for its lifetime.
func (t *Task[T]) ID() string { return t.id }

// Name returns the task's free-form label.
func (t *Task[T]) Name() string { return t.name }

// SetName renames the task. Like SetPriority, only effective before the
// task leaves Created.
func (t *Task[T]) SetName(name string) *Task[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == Created {
		t.name = name
	}
	return t
}

// Priority returns the task's current scheduling priority.
func (t *Task[T]) Priority() int { return int(t.prio.Load()) }

// SetPriority assigns the task's scheduling priority. Returns a
// *PriorityError if p falls outside [MinPriority, MaxPriority]; a no-op
// (success) if the task has already left Created, per spec.md's "priority
// is fixed once a task is scheduled" invariant.
func (t *Task[T]) SetPriority(p int) error {
	if p < MinPriority || p > MaxPriority {
		return &PriorityError{Value: p}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == Created {
		t.prio.Store(int64(p))
	}
	return nil
}

// SetObserver attaches the observer used for this task's lifecycle events.
// Combinators propagate the parent's observer to derived tasks; call this
// directly only to override it.
func (t *Task[T]) SetObserver(o observability.Observer) *Task[T] {
	if o == nil {
		o = observability.NoOpObserver{}
	}
	t.observer = o
	return t
}

// HideFromTrace marks the task systemHidden: it still participates in
// scheduling and relationships and still appears in Trace, with
// ShallowTrace.SystemHidden set so that views rendered for end users can
// leave it out. Combinators use this for the plumbing tasks
// they synthesize internally (a timeout's timer, for instance).
func (t *Task[T]) HideFromTrace() *Task[T] {
	t.mu.Lock()
	t.systemHidden = true
	t.mu.Unlock()
	return t
}

// State returns the task's current lifecycle state.
func (t *Task[T]) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Done returns a channel that closes once the task's promise settles.
func (t *Task[T]) Done() <-chan struct{} { return t.settled.Done() }

// Succeeded reports whether a terminal task ended in Done rather than
// Failed or Cancelled.
func (t *Task[T]) Succeeded() bool {
	return !t.settled.IsFailed() && t.settled.IsDone()
}

// SettledErr returns the task's terminal error, or nil if it succeeded or
// has not yet settled.
func (t *Task[T]) SettledErr() error {
	_, err, _ := t.settled.Result()
	return err
}

// Observer returns the observer this task emits lifecycle events to.
func (t *Task[T]) Observer() observability.Observer { return t.observer }

// ParErrors returns the aggregated per-sibling failures recorded by a
// parN composite once every one of its inputs has settled, or nil if t
// isn't a parN composite or not every input has settled yet. The
// composite's own Get/SettledErr still report only the first sibling
// error observed (spec.md §8's reference-equality requirement); this is
// the side channel for callers that want the full picture, via WithTry
// or a recover handler.
func (t *Task[T]) ParErrors() *ParErrors { return t.parErrs.Load() }

// setParErrors records the full per-sibling failure set. Called by the
// parN family once parAwait's background collector finishes; reserved
// for that use.
func (t *Task[T]) setParErrors(e *ParErrors) { t.parErrs.Store(e) }

// Get blocks until the task settles and returns its value or error.
func (t *Task[T]) Get() (T, error) { return t.settled.Get() }

// Result returns the task's current value/error and whether it has
// settled, without blocking.
func (t *Task[T]) Result() (T, error, bool) { return t.settled.Result() }

// OnComplete registers a listener fired when the task settles (or
// immediately, if it already has).
func (t *Task[T]) OnComplete(fn Listener[T]) { t.settled.OnComplete(fn) }

// OnSettled registers a type-erased completion callback, satisfying
// Runnable for use by PendingRunner implementations.
func (t *Task[T]) OnSettled(fn func()) {
	t.settled.OnComplete(func(T, error) { fn() })
}

// WrapContextRun installs w as the outermost ContextRunWrapper around this
// task's body, composing with any wrapper installed earlier. No-op once
// the task has left Created (spec.md §4.4's "wrap_context_run after
// scheduling has no effect" resolution).
func (t *Task[T]) WrapContextRun(w ContextRunWrapper[T]) *Task[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != Created {
		return t
	}
	if t.wrapper == nil {
		t.wrapper = w
	} else {
		t.wrapper = t.wrapper.Compose(w)
	}
	return t
}

// Cancel pre-empts the task with err (ErrCancelled by convention),
// transitioning any non-terminal task straight to Cancelled regardless of
// whether it is still queued or already Running. A terminal task is
// unaffected; Cancel returns false in that case. Returns true only on the
// call that performs the transition.
func (t *Task[T]) Cancel(err error) bool {
	if err == nil {
		err = ErrCancelled
	}
	t.mu.Lock()
	if t.state.IsTerminal() {
		t.mu.Unlock()
		return false
	}
	t.state = Cancelled
	t.endedAt = time.Now()
	t.mu.Unlock()

	ok := t.settled.Fail(err)
	t.emit(EventTaskCancelled, observability.LevelWarning, map[string]any{"error": err.Error()})
	return ok
}

// ContextRun transitions the task to Running and invokes its body (through
// any installed wrapper), recording parent/predecessor relationships for
// the trace. A Context implementation calls this at most once per task;
// a repeat call is a no-op. Reserved for Context implementations.
func (t *Task[T]) ContextRun(ctx Context, parent Runnable, predecessors []Runnable) {
	t.runOnce.Do(func() {
		t.mu.Lock()
		if t.state.IsTerminal() {
			t.mu.Unlock()
			return
		}
		t.state = Running
		t.startedAt = time.Now()
		if parent != nil {
			t.relations = append(t.relations, Relationship{Kind: RelationParent, Other: parent})
		}
		for _, p := range predecessors {
			t.relations = append(t.relations, Relationship{Kind: RelationPredecessor, Other: p})
		}
		t.mu.Unlock()

		t.emit(EventTaskRunning, observability.LevelVerbose, nil)

		if t.wrapper != nil {
			t.wrapper.Before(ctx)
		}

		bodyPromise := NewSettablePromise[T]()
		go func() {
			defer func() {
				if r := recover(); r != nil {
					bodyPromise.Fail(fmt.Errorf("task: panic: %v", r))
				}
			}()
			value, err := t.body(ctx)
			if err != nil {
				bodyPromise.Fail(err)
			} else {
				bodyPromise.Resolve(value)
			}
		}()

		result := bodyPromise.Promise
		if t.wrapper != nil {
			result = t.wrapper.After(ctx, bodyPromise.Promise)
		}

		result.OnComplete(func(value T, err error) {
			t.finish(value, err)
		})
	})
}

func (t *Task[T]) finish(value T, err error) {
	t.mu.Lock()
	if t.state.IsTerminal() {
		t.mu.Unlock()
		return
	}
	if err != nil {
		t.state = Failed
	} else {
		t.state = Done
	}
	t.endedAt = time.Now()
	t.mu.Unlock()

	if err != nil {
		t.settled.Fail(err)
		t.emit(EventTaskFailed, observability.LevelError, map[string]any{"error": err.Error()})
		return
	}
	t.settled.Resolve(value)
	t.emit(EventTaskDone, observability.LevelVerbose, nil)
}

// Schedule records the Scheduled transition. Reserved for Context
// implementations: called the moment a task is accepted via Run or
// PendingRunner, ahead of ContextRun itself.
func (t *Task[T]) Schedule() {
	t.mu.Lock()
	if t.state == Created {
		t.state = Scheduled
		t.scheduledAt = time.Now()
	}
	t.mu.Unlock()
	t.emit(EventTaskScheduled, observability.LevelVerbose, nil)
}

func (t *Task[T]) emit(typ observability.EventType, level observability.Level, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	data["task_id"] = t.id
	data["task_name"] = t.name
	t.observer.OnEvent(stdctx.Background(), observability.Event{
		Type:      typ,
		Level:     level,
		Timestamp: time.Now(),
		Source:    "task.Task",
		Data:      data,
	})
}
