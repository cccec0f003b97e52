package agentrt

// Phase is a coarse runtime status, published to an Observer between
// iterations.
type Phase string

const (
	PhasePlanning      Phase = "planning"
	PhaseToolExecution Phase = "tool_execution"
	PhasePlanExpansion Phase = "plan_expansion"
	PhaseSynthesis     Phase = "synthesis"
	PhaseGeneration    Phase = "generation"
	PhaseCompleted     Phase = "completed"
	PhaseError         Phase = "error"
)

// StatusUpdate is one phase transition, with enough detail to render a
// progress indicator without re-deriving it from the transcript.
type StatusUpdate struct {
	Phase     Phase
	ToolName  string
	Reason    string
	Iteration int
	Err       error
}

// Observer receives status updates. Implementations must not block —
// dropped updates are acceptable, per the loop's contract.
type Observer interface {
	Observe(StatusUpdate)
}

// NoopObserver discards every update. It is the default when no Observer is
// configured.
type NoopObserver struct{}

func (NoopObserver) Observe(StatusUpdate) {}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(StatusUpdate)

func (f ObserverFunc) Observe(u StatusUpdate) { f(u) }
