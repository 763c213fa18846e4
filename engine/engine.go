// Package engine provides a concrete, priority-ordered implementation of
// task.Context: the worker pool and ready-queue the core describes but
// does not itself implement.
package engine

import (
	stdctx "context"
	"runtime"
	"sync"
	"time"

	"github.com/parseq/parseq/config"
	"github.com/parseq/parseq/observability"
	"github.com/parseq/parseq/task"
)

// Engine owns the worker goroutines and the shared ready-queue for a
// single plan. Construct one with New, drive a root task with Run, and
// release its goroutines with Close once the plan is done.
type Engine struct {
	cfg      config.EngineConfig
	observer observability.Observer
	queue    *readyQueue

	startOnce  sync.Once
	workerWG   sync.WaitGroup
	workerCtx  stdctx.Context
	cancelWork stdctx.CancelFunc

	timersMu sync.Mutex
	timers   []*time.Timer
}

// New builds an Engine from cfg. The worker pool does not start until the
// first call to Run.
func New(cfg config.EngineConfig) *Engine {
	observer, err := observability.GetObserver(cfg.Observer)
	if err != nil {
		observer = observability.NoOpObserver{}
	}
	return &Engine{
		cfg:      cfg,
		observer: observer,
		queue:    newReadyQueue(),
	}
}

func (e *Engine) workerCount() int {
	if e.cfg.Workers > 0 {
		return e.cfg.Workers
	}
	workerCap := e.cfg.WorkerCap
	if workerCap <= 0 {
		workerCap = 16
	}
	workers := min(runtime.NumCPU()*2, workerCap)
	if workers <= 0 {
		workers = 1
	}
	return workers
}

func (e *Engine) start() {
	e.workerCtx, e.cancelWork = stdctx.WithCancel(stdctx.Background())
	n := e.workerCount()
	e.workerWG.Add(n)
	for i := 0; i < n; i++ {
		go e.runWorker()
	}
}

func (e *Engine) runWorker() {
	defer e.workerWG.Done()
	for {
		if e.workerCtx.Err() != nil {
			return
		}
		item, err := e.queue.Pop(e.workerCtx)
		if err != nil {
			return
		}
		ctx := &planContext{eng: e, owner: item.runnable}
		item.runnable.ContextRun(ctx, item.parent, item.predecessors)
	}
}

// schedule marks t Scheduled and enqueues it with the given parent and
// predecessor relationships, starting the worker pool on first use.
func (e *Engine) schedule(t task.Runnable, parent task.Runnable, predecessors []task.Runnable) {
	e.startOnce.Do(e.start)
	t.Schedule()
	e.queue.Push(&queueItem{
		runnable:     t,
		parent:       parent,
		predecessors: predecessors,
		priority:     t.Priority(),
	})
}

// scheduleAfter arms a timer that schedules t once d elapses, unless t
// has already reached a terminal state by then.
func (e *Engine) scheduleAfter(d time.Duration, t task.Runnable, parent task.Runnable) {
	e.startOnce.Do(e.start)
	timer := time.AfterFunc(d, func() {
		select {
		case <-t.Done():
			return
		default:
		}
		e.schedule(t, parent, nil)
	})
	e.timersMu.Lock()
	e.timers = append(e.timers, timer)
	e.timersMu.Unlock()
}

// Run schedules root as this plan's entry point and blocks until it
// settles or ctx is cancelled, whichever comes first. On ctx cancellation
// root is itself cancelled and ctx.Err() is returned.
func (e *Engine) Run(ctx stdctx.Context, root task.Runnable) error {
	e.schedule(root, nil, nil)
	select {
	case <-root.Done():
		return root.SettledErr()
	case <-ctx.Done():
		root.Cancel(ctx.Err())
		return ctx.Err()
	}
}

// Close stops accepting new work and releases the worker pool. If the
// engine's config has DrainOnShutdown set (the default), the workers
// dispatch every queued task before they stop; Close does not wait for
// the bodies of those tasks, which run on their own goroutines, to
// finish. Otherwise the queue is abandoned immediately: queued tasks are
// never dispatched (nor cancelled), and Close returns as soon as
// in-flight ContextRun calls unwind.
func (e *Engine) Close() {
	if e.cfg.DrainOnShutdown() {
		e.queue.Close()
		e.workerWG.Wait()
	} else {
		e.cancelWorkersIfStarted()
		e.workerWG.Wait()
	}

	e.timersMu.Lock()
	for _, timer := range e.timers {
		timer.Stop()
	}
	e.timersMu.Unlock()
}

func (e *Engine) cancelWorkersIfStarted() {
	if e.cancelWork != nil {
		e.cancelWork()
	}
}
