// Package grpcapi exposes pkg/giris.ExecuteTask as a gRPC service,
// following spec.md §6's external-interface list ("called by CLI/TUI/MCP")
// with a fourth, network-reachable member, the way the teacher repo itself
// exposes its agent services over a goa-generated gRPC transport
// (example/cmd/assistant/grpc.go). Since goa's code generator is out of
// scope here (see DESIGN.md's dropped `goa.design/goa/v3` entry), the
// service descriptor below is hand-written directly against
// google.golang.org/grpc the way protoc-gen-go-grpc would emit it, using
// google.protobuf.Struct (google.golang.org/protobuf/types/known/structpb)
// as the request/response payload instead of generated message types —
// gitiris.proto documents the field contract both sides agree on.
package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/git-iris/gitiris/internal/agentrt/providermodel"
	"github.com/git-iris/gitiris/internal/config"
	gitctx "github.com/git-iris/gitiris/internal/context"
	"github.com/git-iris/gitiris/internal/girerr"
	"github.com/git-iris/gitiris/internal/observability"
	"github.com/git-iris/gitiris/pkg/giris"
)

// ExecuteTaskServer is the service interface, matching the shape
// protoc-gen-go-grpc would generate from gitiris.proto's GitIris service.
type ExecuteTaskServer interface {
	ExecuteTask(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// serviceDesc mirrors the grpc.ServiceDesc a generated _grpc.pb.go would
// define for the GitIris service.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: "gitiris.v1.GitIris",
	HandlerType: (*ExecuteTaskServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ExecuteTask",
			Handler:    executeTaskHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gitiris.proto",
}

func executeTaskHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ExecuteTaskServer).ExecuteTask(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/gitiris.v1.GitIris/ExecuteTask"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ExecuteTaskServer).ExecuteTask(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// RegisterExecuteTaskServer registers srv against s, following the
// RegisterXServer naming convention generated code uses.
func RegisterExecuteTaskServer(s grpc.ServiceRegistrar, srv ExecuteTaskServer) {
	s.RegisterService(&serviceDesc, srv)
}

// Server adapts pkg/giris.ExecuteTask to ExecuteTaskServer. Config is the
// merged configuration every call runs under; a single Server instance is
// shared across RPCs the way the teacher shares one Repository handle
// across tool invocations within a run.
type Server struct {
	Config config.Config
	Logger observability.Logger
	Tracer observability.Tracer
	Metrics observability.Metrics

	// Client overrides the provider client pkg/giris.ExecuteTask would
	// otherwise construct from Config, the same seam giris.Request exposes.
	// Tests substitute a fake here to exercise the handler without network
	// access or credentials.
	Client providermodel.Client
}

// NewServer builds a Server bound to cfg.
func NewServer(cfg config.Config, opts ...ServerOption) *Server {
	s := &Server{
		Config: cfg,
		Logger: observability.NoopLogger{},
		Tracer: observability.NoopTracer{},
		Metrics: observability.NoopMetrics{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ServerOption configures an optional Server dependency.
type ServerOption func(*Server)

// WithLogger overrides the Server's logger.
func WithLogger(l observability.Logger) ServerOption { return func(s *Server) { s.Logger = l } }

// WithTracer overrides the Server's tracer.
func WithTracer(t observability.Tracer) ServerOption { return func(s *Server) { s.Tracer = t } }

// WithMetrics overrides the Server's metrics sink.
func WithMetrics(m observability.Metrics) ServerOption { return func(s *Server) { s.Metrics = m } }

// ExecuteTask decodes an ExecuteTaskRequest Struct (see gitiris.proto),
// dispatches it through pkg/giris.ExecuteTask, and encodes the result back
// into an ExecuteTaskResponse Struct.
func (s *Server) ExecuteTask(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()

	repoPath := stringField(fields, "repo_path", ".")
	capability := gitctx.Capability{
		Kind:            gitctx.CapabilityKind(stringField(fields, "capability", "")),
		CommitID:        stringField(fields, "commit_id", ""),
		IncludeUnstaged: boolField(fields, "include_unstaged"),
		ReviewFrom:      stringField(fields, "review_from", ""),
		ReviewTo:        stringField(fields, "review_to", ""),
		PRBase:          stringField(fields, "pr_base", ""),
		PRHead:          stringField(fields, "pr_head", ""),
		From:            stringField(fields, "from", ""),
		To:              stringField(fields, "to", ""),
	}
	if capability.Kind == "" {
		return nil, girerr.New(girerr.KindConfiguration, "grpcapi.ExecuteTask", "missing capability field", nil)
	}

	resp, err := giris.ExecuteTask(ctx, repoPath, giris.Request{
		Capability: capability,
		Config:     s.Config,
		Logger:     s.Logger,
		Tracer:     s.Tracer,
		Metrics:    s.Metrics,
		Client:     s.Client,
	})
	if err != nil {
		return nil, err
	}

	out, err := structpb.NewStruct(map[string]any{
		"text":          resp.Text,
		"input_tokens":  float64(resp.Usage.InputTokens),
		"output_tokens": float64(resp.Usage.OutputTokens),
		"iterations":    float64(resp.Iterations),
	})
	if err != nil {
		return nil, girerr.New(girerr.KindTool, "grpcapi.ExecuteTask", "encode response", err)
	}
	return out, nil
}

func stringField(fields map[string]*structpb.Value, key, def string) string {
	v, ok := fields[key]
	if !ok {
		return def
	}
	if s, ok := v.GetKind().(*structpb.Value_StringValue); ok {
		return s.StringValue
	}
	return def
}

func boolField(fields map[string]*structpb.Value, key string) bool {
	v, ok := fields[key]
	if !ok {
		return false
	}
	if b, ok := v.GetKind().(*structpb.Value_BoolValue); ok {
		return b.BoolValue
	}
	return false
}
