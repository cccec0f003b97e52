package mcpserver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/git-iris/gitiris/internal/agentrt/providermodel"
	"github.com/git-iris/gitiris/internal/config"
)

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=Test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=Test", "GIT_COMMITTER_EMAIL=test@example.com")
		out, err := cmd.CombinedOutput()
		require.NoErrorf(t, err, "git %v: %s", args, out)
	}
	run("init", "-b", "main")
	run("config", "user.name", "Test")
	run("config", "user.email", "test@example.com")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello\n"), 0o644))
	run("add", "-A")
	run("commit", "-m", "initial commit")
	return dir
}

func stageFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	cmd := exec.Command("git", "add", "-A")
	cmd.Dir = dir
	require.NoError(t, cmd.Run())
}

type fakeClient struct{ text string }

func (f fakeClient) Complete(ctx context.Context, req *providermodel.Request) (*providermodel.Response, error) {
	return &providermodel.Response{Text: f.text, Usage: providermodel.TokenUsage{InputTokens: 1, OutputTokens: 1}}, nil
}

func baseConfig() config.Config {
	cfg := config.Default()
	cfg.DefaultProvider = "anthropic"
	cfg.Providers["anthropic"] = config.ProviderConfig{Model: "claude-3-5-sonnet"}
	return cfg
}

func writeFrame(t *testing.T, buf *bytes.Buffer, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	buf.WriteString(fmt.Sprintf("Content-Length: %d\r\n\r\n", len(data)))
	buf.Write(data)
}

func readFrames(t *testing.T, r *bytes.Buffer) []rpcResponse {
	t.Helper()
	var out []rpcResponse
	reader := bufio.NewReader(r)
	for {
		frame, err := readFrame(reader)
		if err != nil {
			break
		}
		var resp rpcResponse
		require.NoError(t, json.Unmarshal(frame, &resp))
		out = append(out, resp)
	}
	return out
}

func TestServeListsToolsAndCallsCommitCapability(t *testing.T) {
	dir := initRepo(t)
	stageFile(t, dir, "main.go", "package main\n")

	srv := NewServer(baseConfig())
	srv.Client = fakeClient{text: `{"emoji":"","title":"add main","body":""}`}

	var in bytes.Buffer
	writeFrame(t, &in, rpcRequest{JSONRPC: "2.0", Method: "tools/list", ID: json.RawMessage(`1`)})
	writeFrame(t, &in, rpcRequest{
		JSONRPC: "2.0",
		Method:  "tools/call",
		ID:      json.RawMessage(`2`),
		Params:  json.RawMessage(fmt.Sprintf(`{"name":"commit_message","arguments":{"repo_path":%q}}`, dir)),
	})

	var out bytes.Buffer
	require.NoError(t, srv.Serve(context.Background(), &in, &out))

	frames := readFrames(t, &out)
	require.Len(t, frames, 2)

	var listResult struct {
		Tools []toolDescriptor `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(mustRemarshal(t, frames[0].Result), &listResult))
	require.Len(t, listResult.Tools, 5)

	var callResult toolsCallResult
	require.NoError(t, json.Unmarshal(mustRemarshal(t, frames[1].Result), &callResult))
	require.False(t, callResult.IsError)
	require.Contains(t, callResult.Content[0].Text, "add main")
}

func TestServeReturnsErrorForUnknownTool(t *testing.T) {
	dir := initRepo(t)
	srv := NewServer(baseConfig())
	srv.Client = fakeClient{text: "{}"}

	var in bytes.Buffer
	writeFrame(t, &in, rpcRequest{
		JSONRPC: "2.0",
		Method:  "tools/call",
		ID:      json.RawMessage(`1`),
		Params:  json.RawMessage(fmt.Sprintf(`{"name":"nonexistent","arguments":{"repo_path":%q}}`, dir)),
	})

	var out bytes.Buffer
	require.NoError(t, srv.Serve(context.Background(), &in, &out))

	frames := readFrames(t, &out)
	require.Len(t, frames, 1)
	require.NotNil(t, frames[0].Error)
}

func mustRemarshal(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
