package pulseobserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/git-iris/gitiris/internal/agentrt"
	"github.com/git-iris/gitiris/internal/observability"
)

// Options configures a PulseObserver.
type Options struct {
	// Client is the Pulse client used to publish updates. Required.
	Client Client
	// RunID identifies the run whose updates are being published; it
	// becomes part of the derived stream name and every envelope.
	RunID string
	// StreamID derives the target Pulse stream name from RunID. Defaults to
	// "run/<RunID>".
	StreamID func(runID string) (string, error)
	// Logger receives a warning for any update that fails to publish.
	// Observe's contract forbids blocking or returning an error, so a
	// failed publish is logged and dropped rather than retried.
	Logger observability.Logger
}

// Envelope wraps one status update for transmission over a Pulse stream.
type Envelope struct {
	Type      agentrt.Phase `json:"type"`
	RunID     string        `json:"run_id"`
	Timestamp time.Time     `json:"timestamp"`
	ToolName  string        `json:"tool_name,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	Iteration int           `json:"iteration"`
	Err       string        `json:"error,omitempty"`
}

// PulseObserver publishes agentrt.StatusUpdate values to a Redis-backed
// Pulse stream so a detached process (a TUI, a dashboard) can tail a run it
// did not start — the Go analogue of the Rust ContentUpdate channel, here
// applied to run status rather than streamed artifact content. Adapted from
// the teacher's features/stream/pulse/sink.go Sink, narrowed to the single
// event type agentrt.Observer emits instead of the teacher's open set of
// runtime/agent/stream.Event variants.
type PulseObserver struct {
	client   Client
	runID    string
	streamID string
	logger   observability.Logger
}

// NewPulseObserver constructs a PulseObserver bound to one run. The target
// stream is resolved once at construction, since RunID does not change
// over the observer's lifetime the way it might per-event in the teacher's
// multi-session sink.
func NewPulseObserver(opts Options) (*PulseObserver, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("pulse client is required")
	}
	if opts.RunID == "" {
		return nil, fmt.Errorf("run id is required")
	}
	derive := opts.StreamID
	if derive == nil {
		derive = defaultStreamID
	}
	streamID, err := derive(opts.RunID)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = observability.NoopLogger{}
	}
	return &PulseObserver{client: opts.Client, runID: opts.RunID, streamID: streamID, logger: logger}, nil
}

// Observe implements agentrt.Observer. It must not block the caller on a
// slow or unreachable Redis, so publish failures are logged and the update
// is dropped, matching Observer's documented "dropped updates are
// acceptable" contract.
func (p *PulseObserver) Observe(update agentrt.StatusUpdate) {
	env := Envelope{
		Type:      update.Phase,
		RunID:     p.runID,
		Timestamp: time.Now().UTC(),
		ToolName:  update.ToolName,
		Reason:    update.Reason,
		Iteration: update.Iteration,
	}
	if update.Err != nil {
		env.Err = update.Err.Error()
	}
	payload, err := json.Marshal(env)
	if err != nil {
		p.logger.Warn(context.Background(), "pulse observer: marshal envelope", "error", err.Error())
		return
	}
	stream, err := p.client.Stream(p.streamID)
	if err != nil {
		p.logger.Warn(context.Background(), "pulse observer: open stream", "stream", p.streamID, "error", err.Error())
		return
	}
	if _, err := stream.Add(context.Background(), string(update.Phase), payload); err != nil {
		p.logger.Warn(context.Background(), "pulse observer: publish update", "stream", p.streamID, "error", err.Error())
	}
}

// Close releases resources owned by the underlying Pulse client.
func (p *PulseObserver) Close(ctx context.Context) error {
	return p.client.Close(ctx)
}

func defaultStreamID(runID string) (string, error) {
	return fmt.Sprintf("run/%s", runID), nil
}
