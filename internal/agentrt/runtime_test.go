package agentrt

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/git-iris/gitiris/internal/agentrt/providermodel"
	"github.com/git-iris/gitiris/internal/girerr"
	"github.com/git-iris/gitiris/internal/toolsurface"
)

type fakeClient struct {
	responses []*providermodel.Response
	errs      []error
	calls     int
}

func (f *fakeClient) Complete(_ context.Context, _ *providermodel.Request) (*providermodel.Response, error) {
	i := f.calls
	f.calls++
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return nil, err
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return &providermodel.Response{Text: "done"}, nil
}

type pingArgs struct {
	Message string `json:"message" desc:"text to echo"`
}

func newTestRegistry(t *testing.T) *toolsurface.Registry {
	t.Helper()
	r := toolsurface.NewRegistry()
	require.NoError(t, r.Register("ping", "echoes a message", reflect.TypeOf(pingArgs{}), time.Second, func(_ context.Context, raw []byte) (string, error) {
		var args pingArgs
		if err := json.Unmarshal(raw, &args); err != nil {
			return "", err
		}
		return "pong:" + args.Message, nil
	}))
	return r
}

func TestRunReturnsFinalTextWithoutToolCalls(t *testing.T) {
	client := &fakeClient{responses: []*providermodel.Response{{Text: "final answer", StopReason: "end_turn"}}}
	rt := New(client, nil, Options{})

	result, err := rt.Run(context.Background(), Request{Model: "test-model", System: "sys", User: "user"})
	require.NoError(t, err)
	require.Equal(t, "final answer", result.Text)
	require.Equal(t, 1, result.Iterations)
}

func TestRunDispatchesToolCallThenSynthesizes(t *testing.T) {
	client := &fakeClient{responses: []*providermodel.Response{
		{ToolCalls: []providermodel.ToolCall{{ID: "t1", Name: "ping", Payload: json.RawMessage(`{"message":"hi"}`)}}},
		{Text: "synthesized"},
	}}
	rt := New(client, newTestRegistry(t), Options{})

	result, err := rt.Run(context.Background(), Request{Model: "test-model", User: "user"})
	require.NoError(t, err)
	require.Equal(t, "synthesized", result.Text)
	require.Equal(t, 2, result.Iterations)

	var sawToolResult bool
	for _, m := range result.Transcript {
		for _, p := range m.Parts {
			if tr, ok := p.(providermodel.ToolResultPart); ok {
				sawToolResult = true
				require.Equal(t, "pong:hi", tr.Content)
				require.False(t, tr.IsError)
			}
		}
	}
	require.True(t, sawToolResult)
}

func TestRunFeedsBackMalformedToolArgumentsAsError(t *testing.T) {
	client := &fakeClient{responses: []*providermodel.Response{
		{ToolCalls: []providermodel.ToolCall{{ID: "t1", Name: "ping", Payload: json.RawMessage(`{"message":123}`)}}},
		{Text: "recovered"},
	}}
	rt := New(client, newTestRegistry(t), Options{})

	result, err := rt.Run(context.Background(), Request{Model: "test-model", User: "user"})
	require.NoError(t, err)
	require.Equal(t, "recovered", result.Text)

	var sawError bool
	for _, m := range result.Transcript {
		for _, p := range m.Parts {
			if tr, ok := p.(providermodel.ToolResultPart); ok && tr.IsError {
				sawError = true
			}
		}
	}
	require.True(t, sawError)
}

func TestRunExceedsMaxIterationsReturnsTimedOut(t *testing.T) {
	call := providermodel.ToolCall{ID: "t1", Name: "ping", Payload: json.RawMessage(`{"message":"loop"}`)}
	responses := make([]*providermodel.Response, 0, 20)
	for i := 0; i < 20; i++ {
		responses = append(responses, &providermodel.Response{ToolCalls: []providermodel.ToolCall{call}})
	}
	client := &fakeClient{responses: responses}
	rt := New(client, newTestRegistry(t), Options{Config: Config{MaxIterations: 3}})

	_, err := rt.Run(context.Background(), Request{Model: "test-model", User: "user"})
	require.Error(t, err)
	require.Equal(t, girerr.KindTimedOut, girerr.KindOf(err))
}

func TestRunRetriesTransientErrorThenSucceeds(t *testing.T) {
	client := &fakeClient{
		errs:      []error{girerr.New(girerr.KindProviderTransient, "fake", "connection reset", nil)},
		responses: []*providermodel.Response{nil, {Text: "ok after retry"}},
	}
	rt := New(client, nil, Options{})

	result, err := rt.Run(context.Background(), Request{Model: "test-model", User: "user"})
	require.NoError(t, err)
	require.Equal(t, "ok after retry", result.Text)
	require.Equal(t, 2, client.calls)
}

func TestRunDoesNotRetryFatalError(t *testing.T) {
	client := &fakeClient{errs: []error{girerr.New(girerr.KindProviderFatal, "fake", "bad request", nil)}}
	rt := New(client, nil, Options{})

	_, err := rt.Run(context.Background(), Request{Model: "test-model", User: "user"})
	require.Error(t, err)
	require.Equal(t, girerr.KindProviderFatal, girerr.KindOf(err))
	require.Equal(t, 1, client.calls)
}

func TestRunRespectsCancellation(t *testing.T) {
	client := &fakeClient{}
	rt := New(client, nil, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := rt.Run(ctx, Request{Model: "test-model", User: "user"})
	require.Error(t, err)
	kind := girerr.KindOf(err)
	require.True(t, kind == girerr.KindCancelled || kind == girerr.KindTimedOut)
}
