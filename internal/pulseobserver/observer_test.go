package pulseobserver

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/git-iris/gitiris/internal/agentrt"
)

type fakeStream struct {
	events [][]byte
}

func (s *fakeStream) Add(ctx context.Context, event string, payload []byte) (string, error) {
	s.events = append(s.events, payload)
	return "1-0", nil
}

type fakeClient struct {
	streams map[string]*fakeStream
	err     error
}

func newFakeClient() *fakeClient { return &fakeClient{streams: map[string]*fakeStream{}} }

func (c *fakeClient) Stream(name string) (Stream, error) {
	if c.err != nil {
		return nil, c.err
	}
	s, ok := c.streams[name]
	if !ok {
		s = &fakeStream{}
		c.streams[name] = s
	}
	return s, nil
}

func (c *fakeClient) Close(ctx context.Context) error { return nil }

func TestNewPulseObserverRequiresClientAndRunID(t *testing.T) {
	_, err := NewPulseObserver(Options{RunID: "run-1"})
	require.Error(t, err)

	_, err = NewPulseObserver(Options{Client: newFakeClient()})
	require.Error(t, err)
}

func TestNewPulseObserverDerivesDefaultStreamID(t *testing.T) {
	obs, err := NewPulseObserver(Options{Client: newFakeClient(), RunID: "run-1"})
	require.NoError(t, err)
	require.Equal(t, "run/run-1", obs.streamID)
}

func TestObservePublishesEnvelopeToDerivedStream(t *testing.T) {
	client := newFakeClient()
	obs, err := NewPulseObserver(Options{Client: client, RunID: "run-1"})
	require.NoError(t, err)

	obs.Observe(agentrt.StatusUpdate{
		Phase:     agentrt.PhaseToolExecution,
		ToolName:  "file_read",
		Iteration: 2,
	})

	stream := client.streams["run/run-1"]
	require.NotNil(t, stream)
	require.Len(t, stream.events, 1)

	var env Envelope
	require.NoError(t, json.Unmarshal(stream.events[0], &env))
	require.Equal(t, agentrt.PhaseToolExecution, env.Type)
	require.Equal(t, "run-1", env.RunID)
	require.Equal(t, "file_read", env.ToolName)
	require.Equal(t, 2, env.Iteration)
}

func TestObserveRecordsErrorText(t *testing.T) {
	client := newFakeClient()
	obs, err := NewPulseObserver(Options{Client: client, RunID: "run-1"})
	require.NoError(t, err)

	obs.Observe(agentrt.StatusUpdate{Phase: agentrt.PhaseError, Err: errors.New("boom")})

	stream := client.streams["run/run-1"]
	var env Envelope
	require.NoError(t, json.Unmarshal(stream.events[0], &env))
	require.Equal(t, "boom", env.Err)
}

func TestObserveSwallowsStreamErrorsWithoutPanicking(t *testing.T) {
	client := newFakeClient()
	client.err = errors.New("redis unavailable")
	obs, err := NewPulseObserver(Options{Client: client, RunID: "run-1"})
	require.NoError(t, err)

	require.NotPanics(t, func() {
		obs.Observe(agentrt.StatusUpdate{Phase: agentrt.PhasePlanning})
	})
}
