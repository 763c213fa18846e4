package task

import "github.com/parseq/parseq/observability"

// Event types emitted by task lifecycle transitions and combinators.
// Each subsystem owns its own observability.EventType constants; package
// task's are prefixed "task." and "combinator.".
const (
	EventTaskScheduled observability.EventType = "task.scheduled"
	EventTaskRunning   observability.EventType = "task.running"
	EventTaskDone      observability.EventType = "task.done"
	EventTaskFailed    observability.EventType = "task.failed"
	EventTaskCancelled observability.EventType = "task.cancelled"

	EventCombinatorMap         observability.EventType = "combinator.map"
	EventCombinatorFlatMap     observability.EventType = "combinator.flat_map"
	EventCombinatorAndThen     observability.EventType = "combinator.and_then"
	EventCombinatorSideEffect  observability.EventType = "combinator.with_side_effect"
	EventCombinatorRecover     observability.EventType = "combinator.recover"
	EventCombinatorFallBackTo  observability.EventType = "combinator.fall_back_to"
	EventCombinatorWithTry     observability.EventType = "combinator.with_try"
	EventCombinatorPar         observability.EventType = "combinator.par"
	EventTimeoutArmed          observability.EventType = "combinator.timeout.armed"
	EventTimeoutFired          observability.EventType = "combinator.timeout.fired"
	EventTimeoutBodyWon        observability.EventType = "combinator.timeout.body_won"
)
