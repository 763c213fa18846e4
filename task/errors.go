package task

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrCancelled is the designated error value reported by a cancelled
// task's promise. recover/recoverWith/withTry treat it like any other
// failure; fallBackTo and the recover family can translate it.
var ErrCancelled = errors.New("task: cancelled")

// ErrTimeout is the designated error value reported by a task wrapped
// with WithTimeout when the timer commits before the wrapped task.
var ErrTimeout = errors.New("task: timed out")

// ErrAlreadyRun names the error for a task submitted for execution more
// than once. Nothing in this module returns it: Task.ContextRun ignores
// a repeat call, and package engine does not check for one.
var ErrAlreadyRun = errors.New("task: already run")

// PriorityError reports a set_priority call with a value outside
// [MinPriority, MaxPriority].
type PriorityError struct {
	Value int
}

func (e *PriorityError) Error() string {
	return fmt.Sprintf("task: priority %d out of range [%d, %d]", e.Value, MinPriority, MaxPriority)
}

// ArgumentError reports a synchronous construction-time failure: a nil
// function argument passed to a factory or combinator.
type ArgumentError struct {
	Func string // name of the factory/combinator that rejected the call
	Arg  string // name of the offending parameter
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("task: %s: %s must not be nil", e.Func, e.Arg)
}

// ParError captures one sibling's failure inside a parN composite.
type ParError struct {
	Index int // 0-based position among the par's inputs
	Err   error
}

// ParErrors aggregates every sibling failure from a parN composite. Only
// the first sibling failure settles the composite's own promise (per
// spec.md §4.3, "fails with the first error when any fails"); callers
// who want the full picture, once every sibling has settled, fetch it
// from the composite task's ParErrors() method.
type ParErrors struct {
	Errors []ParError
}

func (e *ParErrors) Error() string {
	if len(e.Errors) == 0 {
		return "task: par composite failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("task: par composite failed: input %d: %v", e.Errors[0].Index, e.Errors[0].Err)
	}

	counts := make(map[string]int)
	for _, pe := range e.Errors {
		counts[pe.Err.Error()]++
	}

	type summary struct {
		msg   string
		count int
	}
	summaries := make([]summary, 0, len(counts))
	for msg, count := range counts {
		summaries = append(summaries, summary{msg, count})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].count > summaries[j].count })

	parts := make([]string, 0, len(summaries))
	for _, s := range summaries {
		if s.count == 1 {
			parts = append(parts, fmt.Sprintf("'%s' (1 input)", s.msg))
		} else {
			parts = append(parts, fmt.Sprintf("'%s' (%d inputs)", s.msg, s.count))
		}
	}

	return fmt.Sprintf("task: par composite failed: %d inputs failed with %d error types: %s",
		len(e.Errors), len(counts), strings.Join(parts, ", "))
}

// Unwrap enables errors.Is/errors.As across every sibling failure.
func (e *ParErrors) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, pe := range e.Errors {
		errs[i] = pe.Err
	}
	return errs
}
