package tracesvc

import (
	stdctx "context"
	"fmt"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/parseq/parseq/task"
)

// ProcedureGetShallowTrace is the RPC path Server mounts its handler
// under.
const ProcedureGetShallowTrace = "/tracesvc.v1.TraceService/GetShallowTrace"

// Server answers trace queries over Connect RPC, backed by a Registry.
// No .proto/codegen pipeline travels with this module, so requests and
// responses are exchanged as protobuf's well-known structpb/wrapperspb
// messages rather than bespoke generated types — see DESIGN.md for the
// reasoning.
type Server struct {
	registry *Registry
}

// NewServer returns a Server reading from registry.
func NewServer(registry *Registry) *Server {
	return &Server{registry: registry}
}

// Handler returns the path and http.Handler to mount, e.g. via
// http.ServeMux.Handle(s.Handler()).
func (s *Server) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	return connect.NewUnaryHandler(ProcedureGetShallowTrace, s.getShallowTrace, opts...)
}

func (s *Server) getShallowTrace(
	_ stdctx.Context,
	req *connect.Request[wrapperspb.StringValue],
) (*connect.Response[structpb.Struct], error) {
	id := req.Msg.GetValue()
	t, ok := s.registry.Lookup(id)
	if !ok {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("tracesvc: no task registered with id %q", id))
	}

	payload, err := shallowTraceToStruct(t.ShallowTrace())
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(payload), nil
}

// shallowTraceToStruct flattens a task.ShallowTrace into the dynamic,
// JSON-shaped structpb.Struct wire format.
func shallowTraceToStruct(st task.ShallowTrace) (*structpb.Struct, error) {
	related := make([]any, 0, len(st.Related))
	for _, r := range st.Related {
		related = append(related, map[string]any{
			"kind": r.Kind.String(),
			"id":   r.ID,
			"name": r.Name,
		})
	}

	fields := map[string]any{
		"id":            st.ID,
		"name":          st.Name,
		"priority":      float64(st.Priority),
		"state":         st.State.String(),
		"system_hidden": st.SystemHidden,
		"succeeded":     st.Succeeded,
		"related":       related,
	}
	if !st.ScheduledAt.IsZero() {
		fields["scheduled_at"] = st.ScheduledAt.Format(time.RFC3339Nano)
	}
	if !st.StartedAt.IsZero() {
		fields["started_at"] = st.StartedAt.Format(time.RFC3339Nano)
	}
	if !st.EndedAt.IsZero() {
		fields["ended_at"] = st.EndedAt.Format(time.RFC3339Nano)
	}
	if st.Err != nil {
		fields["error"] = st.Err.Error()
	}

	return structpb.NewStruct(fields)
}
