package giris

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/git-iris/gitiris/internal/agentrt/providermodel"
	"github.com/git-iris/gitiris/internal/config"
	gitctx "github.com/git-iris/gitiris/internal/context"
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
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello world\n"), 0o644))
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

type fakeClient struct {
	text    string
	lastReq *providermodel.Request
}

func (f *fakeClient) Complete(ctx context.Context, req *providermodel.Request) (*providermodel.Response, error) {
	f.lastReq = req
	return &providermodel.Response{Text: f.text, Usage: providermodel.TokenUsage{InputTokens: 10, OutputTokens: 5}}, nil
}

func baseConfig() config.Config {
	cfg := config.Default()
	cfg.DefaultProvider = "anthropic"
	cfg.Providers["anthropic"] = config.ProviderConfig{Model: "claude-3-5-sonnet"}
	return cfg
}

func TestExecuteTaskCommitRendersFromFakeClient(t *testing.T) {
	dir := initRepo(t)
	stageFile(t, dir, "a.txt", "hello\n")

	resp, err := ExecuteTask(context.Background(), dir, Request{
		Capability: gitctx.Capability{Kind: gitctx.CapabilityCommit},
		Config:     baseConfig(),
		Client:     &fakeClient{text: `{"emoji":"✨","title":"add hello file","body":""}`},
	})
	require.NoError(t, err)
	require.Equal(t, "✨ add hello file", resp.Text)
	require.Equal(t, providermodel.TokenUsage{InputTokens: 10, OutputTokens: 5}, resp.Usage)
}

func TestExecuteTaskCommitFailsWithoutStagedChanges(t *testing.T) {
	dir := initRepo(t)

	_, err := ExecuteTask(context.Background(), dir, Request{
		Capability: gitctx.Capability{Kind: gitctx.CapabilityCommit},
		Config:     baseConfig(),
		Client:     &fakeClient{text: `{"emoji":"","title":"x","body":""}`},
	})
	require.Error(t, err)
}

func TestExecuteTaskReviewPassesMarkdownThrough(t *testing.T) {
	dir := initRepo(t)
	stageFile(t, dir, "b.txt", "changed\n")

	markdown := "## Summary\n\nlooks good\n\n## Key Findings\n\nnone\n\n## Detailed Analysis\n\nn/a\n\n## Recommendations\n\nnone\n"
	resp, err := ExecuteTask(context.Background(), dir, Request{
		Capability: gitctx.Capability{Kind: gitctx.CapabilityReview},
		Config:     baseConfig(),
		Client:     &fakeClient{text: markdown},
	})
	require.NoError(t, err)
	require.Equal(t, markdown, resp.Text)
}

func TestExecuteTaskRejectsUnconfiguredProvider(t *testing.T) {
	dir := initRepo(t)
	stageFile(t, dir, "c.txt", "x\n")

	cfg := config.Default()
	cfg.DefaultProvider = "openai"

	_, err := ExecuteTask(context.Background(), dir, Request{
		Capability: gitctx.Capability{Kind: gitctx.CapabilityCommit},
		Config:     cfg,
	})
	require.Error(t, err)
}

func TestExecuteTaskDefaultsMaxTokensWhenUnconfigured(t *testing.T) {
	dir := initRepo(t)
	stageFile(t, dir, "d.txt", "hello\n")

	client := &fakeClient{text: `{"emoji":"✨","title":"add hello file","body":""}`}
	_, err := ExecuteTask(context.Background(), dir, Request{
		Capability: gitctx.Capability{Kind: gitctx.CapabilityCommit},
		Config:     baseConfig(),
		Client:     client,
	})
	require.NoError(t, err)
	require.NotNil(t, client.lastReq)
	require.Equal(t, defaultMaxTokens, client.lastReq.MaxTokens)
}

func TestExecuteTaskHonorsMaxTokensFromAdditionalParams(t *testing.T) {
	dir := initRepo(t)
	stageFile(t, dir, "e.txt", "hello\n")

	cfg := baseConfig()
	cfg.Providers["anthropic"] = config.ProviderConfig{
		Model:            "claude-3-5-sonnet",
		AdditionalParams: map[string]string{"max_tokens": "512", "temperature": "0.25"},
	}

	client := &fakeClient{text: `{"emoji":"✨","title":"add hello file","body":""}`}
	_, err := ExecuteTask(context.Background(), dir, Request{
		Capability: gitctx.Capability{Kind: gitctx.CapabilityCommit},
		Config:     cfg,
		Client:     client,
	})
	require.NoError(t, err)
	require.NotNil(t, client.lastReq)
	require.Equal(t, 512, client.lastReq.MaxTokens)
	require.InDelta(t, 0.25, client.lastReq.Temperature, 0.001)
}

func TestCompletionParamsFallsBackOnMalformedValues(t *testing.T) {
	cfg := config.ProviderConfig{AdditionalParams: map[string]string{
		"max_tokens":  "not-a-number",
		"temperature": "also-not-a-number",
	}}
	maxTokens, temperature := completionParams(cfg)
	require.Equal(t, defaultMaxTokens, maxTokens)
	require.Equal(t, float32(0), temperature)
}
