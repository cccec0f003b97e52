// Package agentrt implements the Agent Runtime: a multi-turn loop over one
// provider/model that drives a tool-using conversation to a final answer,
// grounded on the teacher's runtime/agent/runtime package's loop contract
// but rebuilt as a single bounded in-process call (no Temporal workflow
// persistence, no cross-invocation resumption — see DESIGN.md) since
// Git-Iris's runs never outlive the process that started them.
package agentrt

import (
	"context"
	"errors"
	"time"

	"github.com/git-iris/gitiris/internal/agentrt/providermodel"
	"github.com/git-iris/gitiris/internal/girerr"
	"github.com/git-iris/gitiris/internal/observability"
	"github.com/git-iris/gitiris/internal/toolsurface"
)

// Config bounds one run: maximum tool-call iterations, wall-clock budget,
// and the per-provider-request timeout.
type Config struct {
	MaxIterations  int
	WallClock      time.Duration
	RequestTimeout time.Duration
}

// DefaultConfig returns the spec defaults: 16 iterations, 300s wall-clock,
// 30s per request.
func DefaultConfig() Config {
	return Config{MaxIterations: 16, WallClock: 300 * time.Second, RequestTimeout: 30 * time.Second}
}

func (c Config) withDefaults() Config {
	if c.MaxIterations <= 0 {
		c.MaxIterations = 16
	}
	if c.WallClock <= 0 {
		c.WallClock = 300 * time.Second
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	return c
}

// Options configures a Runtime.
type Options struct {
	Observer Observer
	Logger   observability.Logger
	Metrics  observability.Metrics
	Tracer   observability.Tracer
	Config   Config
}

// Runtime drives the Planning/ToolExecution/Synthesis loop described in
// status.go over a single providermodel.Client and toolsurface.Registry.
type Runtime struct {
	client   providermodel.Client
	tools    *toolsurface.Registry
	observer Observer
	logger   observability.Logger
	metrics  observability.Metrics
	tracer   observability.Tracer
	cfg      Config
}

// New builds a Runtime. tools may be nil for capabilities that need no
// tool surface (none currently do, but the loop degrades gracefully).
func New(client providermodel.Client, tools *toolsurface.Registry, opts Options) *Runtime {
	observer := opts.Observer
	if observer == nil {
		observer = NoopObserver{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = observability.NoopLogger{}
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = observability.NoopTracer{}
	}
	return &Runtime{
		client:   client,
		tools:    tools,
		observer: observer,
		logger:   logger,
		metrics:  metrics,
		tracer:   tracer,
		cfg:      opts.Config.withDefaults(),
	}
}

// Request is one invocation of the loop.
type Request struct {
	Model       string
	System      string
	User        string
	MaxTokens   int
	Temperature float32
}

// Result is the loop's final answer plus the transcript it produced, so
// callers (such as tests) can inspect the full conversation.
type Result struct {
	Text       string
	Usage      providermodel.TokenUsage
	Iterations int
	Transcript []providermodel.Message
}

// Run drives the loop to completion, a hard cap, or an error.
func (r *Runtime) Run(ctx context.Context, req Request) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WallClock)
	defer cancel()

	messages := []providermodel.Message{}
	if req.System != "" {
		messages = append(messages, providermodel.Message{
			Role:  providermodel.RoleSystem,
			Parts: []providermodel.Part{providermodel.TextPart{Text: req.System}},
		})
	}
	messages = append(messages, providermodel.Message{
		Role:  providermodel.RoleUser,
		Parts: []providermodel.Part{providermodel.TextPart{Text: req.User}},
	})

	tools := r.toolDefinitions()

	ctx, span := r.tracer.Start(ctx, "agentrt.Run")
	defer span.End()

	for iter := 1; iter <= r.cfg.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			runErr := r.timeoutOrCancel(err)
			r.observe(StatusUpdate{Phase: PhaseError, Iteration: iter, Err: runErr})
			span.SetStatus(runErr)
			return nil, runErr
		}

		r.observe(StatusUpdate{Phase: PhaseGeneration, Iteration: iter})
		resp, err := r.complete(ctx, providermodel.Request{
			Model:       req.Model,
			Messages:    messages,
			Tools:       tools,
			MaxTokens:   req.MaxTokens,
			Temperature: req.Temperature,
		})
		if err != nil {
			r.observe(StatusUpdate{Phase: PhaseError, Iteration: iter, Err: err})
			r.metrics.IncCounter("agentrt.run.errors", "kind", string(girerr.KindOf(err)))
			span.SetStatus(err)
			return nil, err
		}

		if len(resp.ToolCalls) == 0 {
			r.observe(StatusUpdate{Phase: PhaseSynthesis, Iteration: iter})
			r.observe(StatusUpdate{Phase: PhaseCompleted, Iteration: iter})
			r.metrics.RecordGauge("agentrt.run.iterations", float64(iter))
			return &Result{Text: resp.Text, Usage: resp.Usage, Iterations: iter, Transcript: messages}, nil
		}

		assistantParts := make([]providermodel.Part, 0, len(resp.ToolCalls)+1)
		if resp.Text != "" {
			assistantParts = append(assistantParts, providermodel.TextPart{Text: resp.Text})
		}
		for _, call := range resp.ToolCalls {
			assistantParts = append(assistantParts, providermodel.ToolUsePart{ID: call.ID, Name: call.Name, Input: call.Payload})
		}
		messages = append(messages, providermodel.Message{Role: providermodel.RoleAssistant, Parts: assistantParts})

		r.observe(StatusUpdate{Phase: PhasePlanning, Iteration: iter, Reason: "dispatching tool calls"})
		for _, call := range resp.ToolCalls {
			r.observe(StatusUpdate{Phase: PhaseToolExecution, ToolName: call.Name, Iteration: iter})
			content, isError := r.callTool(ctx, call)
			messages = append(messages, providermodel.Message{
				Role:  providermodel.RoleUser,
				Parts: []providermodel.Part{providermodel.ToolResultPart{ToolUseID: call.ID, Content: content, IsError: isError}},
			})
		}
		r.observe(StatusUpdate{Phase: PhasePlanExpansion, Iteration: iter})
	}

	runErr := girerr.New(girerr.KindTimedOut, "agentrt.Run", "exceeded maximum iterations", nil).
		WithHint("the run did not converge to a final answer within the configured iteration cap")
	r.observe(StatusUpdate{Phase: PhaseError, Err: runErr})
	span.SetStatus(runErr)
	return nil, runErr
}

// callTool dispatches a single tool call. Malformed arguments or tool
// failures become a tool-error message fed back to the model, per the
// loop's "append a tool-error message, not an exception" contract — except
// when the registry has no entry for a matching name at all, which is still
// surfaced to the model as an error string rather than aborting the run.
func (r *Runtime) callTool(ctx context.Context, call providermodel.ToolCall) (content string, isError bool) {
	if r.tools == nil {
		return "no tools are available in this run", true
	}
	result, err := r.tools.Call(ctx, call.Name, call.Payload)
	if err != nil {
		r.logger.Warn(ctx, "tool call failed", "tool", call.Name, "error", err.Error())
		return err.Error(), true
	}
	return result, false
}

func (r *Runtime) toolDefinitions() []providermodel.ToolDefinition {
	if r.tools == nil {
		return nil
	}
	names := r.tools.Names()
	defs := make([]providermodel.ToolDefinition, 0, len(names))
	for _, name := range names {
		t, ok := r.tools.Lookup(name)
		if !ok {
			continue
		}
		defs = append(defs, providermodel.ToolDefinition{Name: t.Name, Description: t.Description, InputSchema: t.Schema})
	}
	return defs
}

func (r *Runtime) observe(u StatusUpdate) {
	r.observer.Observe(u)
}

func (r *Runtime) timeoutOrCancel(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return girerr.New(girerr.KindTimedOut, "agentrt.Run", "wall-clock budget exceeded", err)
	}
	return girerr.New(girerr.KindCancelled, "agentrt.Run", "run cancelled", err)
}
