package task

import (
	"time"

	"github.com/parseq/parseq/observability"
)

// Context is the capability surface a task body receives while executing.
// spec.md §4.2 specifies this as a contract the core *consumes*; package
// task defines the interface, and every combinator that needs to schedule
// auxiliary tasks (flatMap's inner task, par's children, a timeout's
// timer) receives one in its body or wrapper. Package engine provides a concrete
// implementation; tests may supply a fake.
//
// Guarantee required of any implementation: among tasks that become ready
// simultaneously, higher Priority runs first; ties are broken FIFO.
type Context interface {
	// Run schedules t for execution as soon as the scheduler's priority
	// ordering permits.
	Run(t Runnable)

	// After returns a PendingRunner bound to the given predecessors. The
	// predecessors are not run by After itself — they must already be (or
	// become) scheduled through some other call.
	After(predecessors ...Runnable) PendingRunner

	// CreateTimer schedules t to run after duration elapses, unless it is
	// cancelled first. Used by WithTimeout and available to user task
	// bodies directly.
	CreateTimer(d time.Duration, t Runnable)
}

// PendingRunner schedules a task once a fixed set of predecessors have
// settled, per spec.md §4.2.
type PendingRunner interface {
	// Run schedules t once every predecessor has reached a terminal state
	// (done, failed, or cancelled — any terminal state, not only success).
	Run(t Runnable)

	// RunSideEffect schedules t once every predecessor has reached Done.
	// If any predecessor fails or is cancelled, t is itself cancelled
	// rather than scheduled.
	RunSideEffect(t Runnable)
}

// Runnable is the type-erased surface a Context needs in order to
// schedule and dispatch a task without knowing its result type T.
// *Task[T] implements Runnable for every T. Most of these methods are
// reserved for Context implementations; ordinary callers compose tasks
// through the combinator functions instead.
type Runnable interface {
	// Name is the task's free-form, human-readable label.
	Name() string

	// ID is the task's UUID, stable for its lifetime.
	ID() string

	// Priority reports the task's current scheduling priority.
	Priority() int

	// Cancel pre-empts a non-terminal task, transitioning it to Cancelled
	// with err (ErrCancelled by convention). Returns true only on the
	// call that performs the transition.
	Cancel(err error) bool

	// Done returns a channel that closes once the task reaches a terminal
	// state.
	Done() <-chan struct{}

	// Succeeded reports whether a terminal task ended in Done (as opposed
	// to Failed or Cancelled). Only meaningful after Done() has closed.
	Succeeded() bool

	// SettledErr reports the task's terminal error, or nil if it
	// succeeded or has not yet settled. Used by the parN family to
	// discover which sibling failed without knowing its result type.
	SettledErr() error

	// Observer returns the observer this task emits lifecycle events to.
	// Combinators use it to propagate an upstream task's observer onto
	// the derived tasks they construct.
	Observer() observability.Observer

	// Schedule transitions the task from Created to Scheduled. A Context
	// implementation calls this the moment it accepts a task via Run or
	// PendingRunner, ahead of actually dispatching ContextRun.
	Schedule()

	// OnSettled registers a type-erased callback fired when the task
	// reaches a terminal state (synchronously, if already terminal).
	// Used by PendingRunner implementations to wait on a heterogeneous
	// predecessor list.
	OnSettled(fn func())

	// ContextRun is reserved for Context implementations: it transitions
	// the task to Running, invokes its body (through any wrappers),
	// records parent/predecessor relationships on the trace, and hooks
	// the body's resulting promise to the task's own. Corresponds to
	// spec.md §4.1's context_run operation.
	ContextRun(ctx Context, parent Runnable, predecessors []Runnable)
}

// MinPriority and MaxPriority bound Task.Priority, per spec.md §3's
// "[-MAX_INT/2, +MAX_INT/2]" design value.
const (
	MinPriority = -(1 << 30)
	MaxPriority = 1 << 30
	// DefaultPriority is the priority assigned by every factory unless
	// overridden with SetPriority before the task is scheduled.
	DefaultPriority = 0
)
