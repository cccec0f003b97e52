// Package girerr defines the error taxonomy shared across the Git-Iris core.
//
// Every error that crosses a component boundary is wrapped as *Error so
// callers can dispatch on Kind (for CLI exit codes, MCP error payloads, or
// retry decisions) without parsing message text. The shape follows the
// teacher's runtime/agent/model/provider_error.go: a small closed Kind enum,
// an opaque message, an optional hint, and a preserved cause chain.
package girerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error into one of the taxonomy buckets from the core's
// error handling design. Kind drives CLI exit codes and retry behavior; it is
// never used for user-facing copy directly (Hint is).
type Kind string

const (
	// KindConfiguration covers missing API keys, unknown providers, invalid
	// presets. Never retried.
	KindConfiguration Kind = "configuration"

	// KindRepository covers "not a git repo", "ref not found", "invalid
	// remote URL", "clone failed". Never retried.
	KindRepository Kind = "repository"

	// KindContext covers an empty staged set for Commit or an empty diff for
	// Review — surfaced with an actionable hint.
	KindContext Kind = "context"

	// KindBudget indicates the context could not be shrunk below the
	// provider's token limit.
	KindBudget Kind = "budget"

	// KindProviderTransient covers network errors, 5xx, 429, and timeouts
	// shorter than the run timeout. Retried per the Agent Runtime's policy.
	KindProviderTransient Kind = "provider_transient"

	// KindProviderFatal covers 4xx (non-429) and malformed provider
	// responses. Never retried.
	KindProviderFatal Kind = "provider_fatal"

	// KindTool covers tool argument validation and tool runtime failures
	// that are not fed back to the model (repository invariant broken).
	KindTool Kind = "tool"

	// KindParse indicates the final artifact did not parse under any
	// coercion strategy.
	KindParse Kind = "parse"

	// KindCancelled is terminal: the run was cancelled by its caller.
	KindCancelled Kind = "cancelled"

	// KindTimedOut is terminal: the run exceeded its wall-clock budget or its
	// maximum iteration count.
	KindTimedOut Kind = "timed_out"
)

// ExitCode returns the CLI-facing exit code convention for k, per spec section 6.
func (k Kind) ExitCode() int {
	switch k {
	case KindConfiguration, KindContext:
		return 1
	case KindRepository:
		return 2
	case KindProviderTransient, KindProviderFatal:
		return 3
	case KindParse:
		return 4
	case KindCancelled:
		return 5
	case KindTimedOut:
		return 6
	default:
		return 1
	}
}

// Error is the single error type returned across core component boundaries.
type Error struct {
	Kind  Kind
	// Op names the operation that failed (e.g. "gitrepo.StagedDiff").
	Op string
	// Msg is a short, stable description of the failure.
	Msg string
	// Hint is an optional actionable suggestion shown to the end user
	// (e.g. "stage changes with `git add`").
	Hint string
	// Cause is the wrapped underlying error, if any.
	Cause error
}

// New constructs an *Error. cause may be nil.
func New(kind Kind, op, msg string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg, Cause: cause}
}

// WithHint returns a copy of e with Hint set, for fluent construction.
func (e *Error) WithHint(hint string) *Error {
	cp := *e
	cp.Hint = hint
	return &cp
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

// Unwrap exposes the wrapped cause so errors.Is/errors.As traverse it.
func (e *Error) Unwrap() error { return e.Cause }

// As returns the first *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the Kind of the first *Error in err's chain, or KindProviderFatal
// when err does not wrap an *Error (an unclassified failure is treated
// conservatively as non-retryable).
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindProviderFatal
}
