package task

import "time"

// fakeContext is a minimal, synchronous-ish task.Context used only by
// this package's own tests, so they don't need to import engine (which
// itself imports task — a fake here avoids the cycle). It runs tasks
// as soon as they're ready rather than honoring priority ordering;
// priority-ordering itself is exercised by the engine package's tests
// against the real scheduler. Like the engine's planContext, each task's
// body receives a fakeContext owned by that task, so the tasks it
// schedules record it as their parent.
type fakeContext struct {
	owner Runnable
}

func (c *fakeContext) Run(r Runnable) {
	r.Schedule()
	r.ContextRun(&fakeContext{owner: r}, c.owner, nil)
}

func (c *fakeContext) After(predecessors ...Runnable) PendingRunner {
	preds := make([]Runnable, len(predecessors))
	copy(preds, predecessors)
	return &fakePendingRunner{ctx: c, preds: preds}
}

func (c *fakeContext) CreateTimer(d time.Duration, r Runnable) {
	go func() {
		time.Sleep(d)
		select {
		case <-r.Done():
			return
		default:
		}
		r.Schedule()
		r.ContextRun(&fakeContext{owner: r}, c.owner, nil)
	}()
}

type fakePendingRunner struct {
	ctx   *fakeContext
	preds []Runnable
}

func (p *fakePendingRunner) Run(r Runnable) {
	go func() {
		for _, pred := range p.preds {
			<-pred.Done()
		}
		r.Schedule()
		r.ContextRun(&fakeContext{owner: r}, p.ctx.owner, p.preds)
	}()
}

func (p *fakePendingRunner) RunSideEffect(r Runnable) {
	go func() {
		for _, pred := range p.preds {
			<-pred.Done()
		}
		for _, pred := range p.preds {
			if !pred.Succeeded() {
				r.Cancel(ErrCancelled)
				return
			}
		}
		r.Schedule()
		r.ContextRun(&fakeContext{owner: r}, p.ctx.owner, p.preds)
	}()
}
