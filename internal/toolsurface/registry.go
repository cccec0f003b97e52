// Package toolsurface implements the Tool Surface: a statically-registered,
// immutable-per-run set of typed tools the Agent Runtime exposes to the
// model, each with a JSON-schema for its inputs, a per-tool soft timeout,
// and a per-tool-name rate limiter.
package toolsurface

import (
	"context"
	"reflect"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/git-iris/gitiris/internal/girerr"
)

// Handler executes a tool call given its validated raw JSON arguments,
// returning the pretty-printed JSON (or plain text) result the model sees.
type Handler func(ctx context.Context, rawArgs []byte) (string, error)

// Tool is one entry in the registry: a stable name, description, compiled
// JSON-schema, handler, and soft timeout.
type Tool struct {
	Name        string
	Description string
	Schema      map[string]any
	compiled    *jsonschema.Schema
	Handler     Handler
	Timeout     time.Duration
}

// Registry is the immutable-per-run set of tools available to one agent
// conversation.
type Registry struct {
	tools   map[string]*Tool
	order   []string
	limiter *perToolLimiter
}

// NewRegistry builds an empty registry. Tools register themselves via
// Register, which compiles and validates each schema up front so a
// malformed tool definition fails at construction time, not mid-run.
func NewRegistry() *Registry {
	return &Registry{
		tools:   map[string]*Tool{},
		limiter: newPerToolLimiter(20, 5),
	}
}

// Register adds a tool, reflecting argsType into its JSON schema. Returns a girerr.KindConfiguration error if the schema fails the
// required-all-properties invariant or meta-schema compilation.
func (r *Registry) Register(name, description string, argsType reflect.Type, timeout time.Duration, handler Handler) error {
	schema := schemaFor(argsType)
	if err := requireAllProperties(schema); err != nil {
		return err
	}
	compiled, err := compileSchema(name, schema)
	if err != nil {
		return err
	}
	if _, exists := r.tools[name]; exists {
		return girerr.New(girerr.KindConfiguration, "toolsurface.Register", "duplicate tool name "+name, nil)
	}
	r.tools[name] = &Tool{
		Name:        name,
		Description: description,
		Schema:      schema,
		compiled:    compiled,
		Handler:     handler,
		Timeout:     timeout,
	}
	r.order = append(r.order, name)
	return nil
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Lookup returns the tool for name, if registered.
func (r *Registry) Lookup(name string) (*Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Call validates args against the tool's schema, applies its per-tool rate
// limit and soft timeout, and invokes its handler. Malformed arguments
// return a girerr.KindParse error rather than panicking, so the runtime can
// turn it into a tool-error message the model may self-correct against.
func (r *Registry) Call(ctx context.Context, name string, rawArgs []byte) (string, error) {
	t, ok := r.tools[name]
	if !ok {
		return "", girerr.New(girerr.KindTool, "toolsurface.Call", "unknown tool "+name, nil)
	}
	if err := validateArgs(t.compiled, name, rawArgs); err != nil {
		return "", err
	}
	if err := r.limiter.wait(ctx, name); err != nil {
		return "", girerr.New(girerr.KindTool, "toolsurface.Call", "rate limit wait cancelled for tool "+name, err)
	}
	callCtx := ctx
	var cancel context.CancelFunc
	if t.Timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}
	result, err := t.Handler(callCtx, rawArgs)
	if err != nil {
		return "", err
	}
	return result, nil
}
