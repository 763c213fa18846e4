package tracesvc

import (
	stdctx "context"
	"errors"
	"testing"
	"time"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/parseq/parseq/task"
)

func TestGetShallowTraceFound(t *testing.T) {
	registry := NewRegistry()
	v := task.Value("v", 1)
	registry.Register(v)
	s := NewServer(registry)

	resp, err := s.getShallowTrace(stdctx.Background(), connect.NewRequest(&wrapperspb.StringValue{Value: v.ID()}))
	if err != nil {
		t.Fatalf("getShallowTrace: %v", err)
	}
	fields := resp.Msg.GetFields()
	if fields["id"].GetStringValue() != v.ID() {
		t.Fatalf("id field = %q, want %q", fields["id"].GetStringValue(), v.ID())
	}
	if fields["name"].GetStringValue() != "v" {
		t.Fatalf("name field = %q, want v", fields["name"].GetStringValue())
	}
}

func TestGetShallowTraceNotFound(t *testing.T) {
	s := NewServer(NewRegistry())

	_, err := s.getShallowTrace(stdctx.Background(), connect.NewRequest(&wrapperspb.StringValue{Value: "missing"}))
	if err == nil {
		t.Fatal("expected an error for an unregistered id")
	}
	var connectErr *connect.Error
	if !errors.As(err, &connectErr) || connectErr.Code() != connect.CodeNotFound {
		t.Fatalf("got %v, want connect.CodeNotFound", err)
	}
}

func TestShallowTraceToStructFlattensCoreFields(t *testing.T) {
	v := task.Value("named", 1)
	st := v.ShallowTrace()

	got, err := shallowTraceToStruct(st)
	if err != nil {
		t.Fatalf("shallowTraceToStruct: %v", err)
	}
	fields := got.GetFields()
	if fields["name"].GetStringValue() != "named" {
		t.Fatalf("name = %q, want named", fields["name"].GetStringValue())
	}
	if fields["state"].GetStringValue() != st.State.String() {
		t.Fatalf("state = %q, want %q", fields["state"].GetStringValue(), st.State.String())
	}
	if _, ok := fields["error"]; ok {
		t.Fatal("error field should be absent for a task with no error")
	}
}

func TestShallowTraceToStructIncludesErrorWhenPresent(t *testing.T) {
	boom := errors.New("boom")
	f := task.Failure[int]("f", boom)
	ctx := &inlineContext{}
	ctx.Run(f)
	<-f.Done()

	got, err := shallowTraceToStruct(f.ShallowTrace())
	if err != nil {
		t.Fatalf("shallowTraceToStruct: %v", err)
	}
	if got.GetFields()["error"].GetStringValue() != boom.Error() {
		t.Fatalf("error field = %q, want %q", got.GetFields()["error"].GetStringValue(), boom.Error())
	}
}

// inlineContext is a minimal task.Context sufficient to drive a single
// task to completion synchronously, for tests that only need to observe
// a settled ShallowTrace and have no reason to pull in package engine.
type inlineContext struct{}

func (c *inlineContext) Run(t task.Runnable) {
	t.Schedule()
	t.ContextRun(c, nil, nil)
}

func (c *inlineContext) After(predecessors ...task.Runnable) task.PendingRunner {
	return &inlinePendingRunner{ctx: c}
}

func (c *inlineContext) CreateTimer(d time.Duration, t task.Runnable) {
	t.Schedule()
	t.ContextRun(c, nil, nil)
}

type inlinePendingRunner struct{ ctx *inlineContext }

func (p *inlinePendingRunner) Run(t task.Runnable)           { p.ctx.Run(t) }
func (p *inlinePendingRunner) RunSideEffect(t task.Runnable) { p.ctx.Run(t) }
