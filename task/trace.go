package task

import "time"

// RelationshipKind classifies an edge recorded between two tasks, either
// at ContextRun time or by a combinator when it constructs a task.
type RelationshipKind int

const (
	// RelationParent marks the task whose body called ctx.Run/ctx.After
	// to schedule this one.
	RelationParent RelationshipKind = iota
	// RelationPredecessor marks a task this one waited on through
	// PendingRunner (ctx.After(...).Run/.RunSideEffect), or an input a
	// combinator built this task from.
	RelationPredecessor
)

func (k RelationshipKind) String() string {
	if k == RelationParent {
		return "parent"
	}
	return "predecessor"
}

// Relationship is one edge in the execution graph, recorded from the
// perspective of the task that owns it.
type Relationship struct {
	Kind  RelationshipKind
	Other Runnable
}

// ShallowTrace is an immutable snapshot of a single task's scheduling
// metadata, independent of its neighbors in the graph. spec.md §4.5.
type ShallowTrace struct {
	ID           string
	Name         string
	Priority     int
	State        State
	SystemHidden bool
	ScheduledAt  time.Time
	StartedAt    time.Time
	EndedAt      time.Time
	Succeeded    bool
	Err          error
	Related      []RelatedTrace
}

// RelatedTrace names one edge in a ShallowTrace without recursing into the
// neighbor's own relationships.
type RelatedTrace struct {
	Kind RelationshipKind
	ID   string
	Name string
}

// ShallowTrace captures this task's own metadata, without descending into
// related tasks.
func (t *Task[T]) ShallowTrace() ShallowTrace {
	t.mu.Lock()
	defer t.mu.Unlock()

	related := make([]RelatedTrace, 0, len(t.relations))
	for _, r := range t.relations {
		related = append(related, RelatedTrace{Kind: r.Kind, ID: r.Other.ID(), Name: r.Other.Name()})
	}

	_, err, _ := t.settled.Result()
	return ShallowTrace{
		ID:           t.id,
		Name:         t.name,
		Priority:     int(t.prio.Load()),
		State:        t.state,
		SystemHidden: t.systemHidden,
		ScheduledAt:  t.scheduledAt,
		StartedAt:    t.startedAt,
		EndedAt:      t.endedAt,
		Succeeded:    t.state == Done,
		Err:          err,
		Related:      related,
	}
}

// addRelation records a construction-time edge on t, pointing at other.
// Combinators call this immediately after building a derived task, so
// its trace is reachable from the derived task down to every upstream
// input without waiting on scheduling order (spec.md §9's "store edges
// on one side and query the other via index/lookup" — here the
// combinator-constructed side is the one with the index, since it's the
// side a caller actually holds a handle to).
func (t *Task[T]) addRelation(kind RelationshipKind, other Runnable) {
	t.mu.Lock()
	t.relations = append(t.relations, Relationship{Kind: kind, Other: other})
	t.mu.Unlock()
}

// Relationships returns the task's recorded edges.
func (t *Task[T]) Relationships() []Relationship {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Relationship, len(t.relations))
	copy(out, t.relations)
	return out
}

// Trace is the transitive closure of a task's relationships: every task
// reachable by following parent/predecessor edges, keyed by ID. System
// hidden tasks are included (callers that want the user-facing view
// should filter on ShallowTrace.SystemHidden).
type Trace struct {
	Root  string
	Nodes map[string]ShallowTrace
}

// Trace walks the relationship graph reachable from t and returns the
// transitive closure as a Trace. spec.md §4.5.
func (t *Task[T]) Trace() *Trace {
	nodes := make(map[string]ShallowTrace)
	visitTrace(t, nodes)
	return &Trace{Root: t.id, Nodes: nodes}
}

// tracer is satisfied by every *Task[T]; it lets Trace's graph walk cross
// task instantiations of differing result types.
type tracer interface {
	ID() string
	ShallowTrace() ShallowTrace
	Relationships() []Relationship
}

func visitTrace(r tracer, nodes map[string]ShallowTrace) {
	if _, seen := nodes[r.ID()]; seen {
		return
	}
	nodes[r.ID()] = r.ShallowTrace()
	for _, rel := range r.Relationships() {
		if other, ok := rel.Other.(tracer); ok {
			visitTrace(other, nodes)
		}
	}
}
