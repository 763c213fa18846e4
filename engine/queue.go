package engine

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/parseq/parseq/task"
)

// ErrQueueClosed is returned by Pop once the queue has been closed and
// drained.
var ErrQueueClosed = errors.New("engine: queue closed")

// queueItem is one ready-to-dispatch task plus the relationship data its
// ContextRun call needs to record.
type queueItem struct {
	runnable     task.Runnable
	parent       task.Runnable
	predecessors []task.Runnable
	priority     int
	seq          int64
}

// itemHeap orders queueItems by descending priority, breaking ties by
// ascending sequence number (FIFO among equal priorities), per spec.md's
// "priority strictly orders ready-to-run tasks; ties resolved by enqueue
// order."
type itemHeap []*queueItem

func (h itemHeap) Len() int { return len(h) }
func (h itemHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h itemHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *itemHeap) Push(x any)   { *h = append(*h, x.(*queueItem)) }
func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// readyQueue is a priority ready-queue feeding the worker pool. Plain
// channels can't express priority ordering, so this pairs a
// container/heap with a buffered notify channel: the same context-aware
// wait discipline as hub.MessageChannel, adapted to signal "something is
// available" rather than carry the payload itself.
type readyQueue struct {
	mu     sync.Mutex
	items  itemHeap
	seq    int64
	notify chan struct{}

	closed   atomic.Bool
	closedCh chan struct{}
}

func newReadyQueue() *readyQueue {
	return &readyQueue{
		notify:   make(chan struct{}, 1),
		closedCh: make(chan struct{}),
	}
}

// Push enqueues an item. It is a no-op once the queue is closed.
func (q *readyQueue) Push(it *queueItem) {
	if q.closed.Load() {
		return
	}
	q.mu.Lock()
	q.seq++
	it.seq = q.seq
	heap.Push(&q.items, it)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Pop blocks until an item is available, ctx is cancelled, or the queue
// is closed and drained.
func (q *readyQueue) Pop(ctx context.Context) (*queueItem, error) {
	for {
		q.mu.Lock()
		if q.items.Len() > 0 {
			it := heap.Pop(&q.items).(*queueItem)
			q.mu.Unlock()
			return it, nil
		}
		q.mu.Unlock()

		select {
		case <-q.notify:
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.closedCh:
			q.mu.Lock()
			if q.items.Len() > 0 {
				it := heap.Pop(&q.items).(*queueItem)
				q.mu.Unlock()
				return it, nil
			}
			q.mu.Unlock()
			return nil, ErrQueueClosed
		}
	}
}

// Close stops the queue from accepting further pushes and wakes every
// blocked Pop. Safe to call more than once.
func (q *readyQueue) Close() {
	if q.closed.CompareAndSwap(false, true) {
		close(q.closedCh)
	}
}

// Len reports the number of items currently queued.
func (q *readyQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}
