package engine

import (
	"sync/atomic"
	"time"

	"github.com/parseq/parseq/task"
)

// planContext is task.Context scoped to a single owner: the task whose
// body is currently executing with this value in hand. Scoping one
// planContext per dispatch (rather than sharing one engine-wide Context)
// is what lets Run/After record the correct parent relationship without
// goroutine-local state — the owner is simply a field on the value the
// body was handed.
type planContext struct {
	eng   *Engine
	owner task.Runnable
}

func (c *planContext) Run(t task.Runnable) {
	c.eng.schedule(t, c.owner, nil)
}

func (c *planContext) After(predecessors ...task.Runnable) task.PendingRunner {
	preds := make([]task.Runnable, len(predecessors))
	copy(preds, predecessors)
	return &pendingRunner{eng: c.eng, owner: c.owner, predecessors: preds}
}

func (c *planContext) CreateTimer(d time.Duration, t task.Runnable) {
	c.eng.scheduleAfter(d, t, c.owner)
}

// pendingRunner implements task.PendingRunner, grounded on
// hub.Hub.Request's pattern of registering a completion listener per
// collaborator and firing a continuation once they've all reported in,
// generalized from "one request, one response" to "N predecessors, one
// successor."
type pendingRunner struct {
	eng          *Engine
	owner        task.Runnable
	predecessors []task.Runnable
}

func (p *pendingRunner) Run(t task.Runnable) {
	p.waitAll(func() {
		p.eng.schedule(t, p.owner, p.predecessors)
	})
}

func (p *pendingRunner) RunSideEffect(t task.Runnable) {
	p.waitAll(func() {
		for _, pred := range p.predecessors {
			if !pred.Succeeded() {
				t.Cancel(task.ErrCancelled)
				return
			}
		}
		p.eng.schedule(t, p.owner, p.predecessors)
	})
}

// waitAll invokes fn once every predecessor has reached a terminal state.
// If there are no predecessors, fn runs immediately.
func (p *pendingRunner) waitAll(fn func()) {
	if len(p.predecessors) == 0 {
		fn()
		return
	}
	var remaining atomic.Int64
	remaining.Store(int64(len(p.predecessors)))
	for _, pred := range p.predecessors {
		pred.OnSettled(func() {
			if remaining.Add(-1) == 0 {
				fn()
			}
		})
	}
}
