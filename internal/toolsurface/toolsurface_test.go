package toolsurface

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/git-iris/gitiris/internal/gitrepo"
	"github.com/git-iris/gitiris/internal/scratchpad"
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

func openRepo(t *testing.T, dir string) *gitrepo.Repository {
	t.Helper()
	repo, err := gitrepo.Open(dir, gitrepo.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestRegisterStandardRegistersAllTools(t *testing.T) {
	dir := initRepo(t)
	repo := openRepo(t, dir)
	pad := scratchpad.New()
	r := NewRegistry()
	require.NoError(t, RegisterStandard(r, repo, pad, nil))

	names := r.Names()
	for _, want := range []string{"git_status", "file_read", "code_search", "project_docs", "workspace"} {
		require.Contains(t, names, want)
	}
}

func TestGitStatusReportsBranchAndCommits(t *testing.T) {
	dir := initRepo(t)
	repo := openRepo(t, dir)
	r := NewRegistry()
	require.NoError(t, RegisterStandard(r, repo, scratchpad.New(), nil))

	out, err := r.Call(context.Background(), "git_status", []byte(`{"recent_commit_count":5}`))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Equal(t, "main", decoded["branch"])
}

func TestFileReadRejectsPathEscapingRepoRoot(t *testing.T) {
	dir := initRepo(t)
	repo := openRepo(t, dir)

	_, err := readFileWindow(repo, fileReadArgs{Path: "../../etc/passwd"})
	require.Error(t, err)
}

func TestFileReadRejectsAbsolutePath(t *testing.T) {
	dir := initRepo(t)
	repo := openRepo(t, dir)

	_, err := readFileWindow(repo, fileReadArgs{Path: "/etc/passwd"})
	require.Error(t, err)
}

func TestFileReadBeyondTotalLinesReturnsEmptyWindow(t *testing.T) {
	dir := initRepo(t)
	repo := openRepo(t, dir)

	out, err := readFileWindow(repo, fileReadArgs{Path: "README.md", StartLine: 1000})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Equal(t, false, decoded["truncated"])
}

func TestFileReadReturnsLineNumberedWindow(t *testing.T) {
	dir := initRepo(t)
	repo := openRepo(t, dir)

	out, err := readFileWindow(repo, fileReadArgs{Path: "README.md"})
	require.NoError(t, err)
	require.Contains(t, out, "1 | hello world")
}

func TestWorkspaceAddNoteThenGetSummary(t *testing.T) {
	dir := initRepo(t)
	repo := openRepo(t, dir)
	pad := scratchpad.New()
	r := NewRegistry()
	require.NoError(t, RegisterStandard(r, repo, pad, nil))

	_, err := r.Call(context.Background(), "workspace", []byte(`{"action":"AddNote","content":"remember this"}`))
	require.NoError(t, err)

	out, err := r.Call(context.Background(), "workspace", []byte(`{"action":"GetSummary"}`))
	require.NoError(t, err)
	require.Contains(t, out, "remember this")
}

func TestCallRejectsMalformedArguments(t *testing.T) {
	dir := initRepo(t)
	repo := openRepo(t, dir)
	r := NewRegistry()
	require.NoError(t, RegisterStandard(r, repo, scratchpad.New(), nil))

	_, err := r.Call(context.Background(), "workspace", []byte(`{"action":123}`))
	require.Error(t, err)
}

func TestSchemaRequiresEveryProperty(t *testing.T) {
	dir := initRepo(t)
	repo := openRepo(t, dir)
	r := NewRegistry()
	require.NoError(t, RegisterStandard(r, repo, scratchpad.New(), nil))

	tool, ok := r.Lookup("file_read")
	require.True(t, ok)
	props := tool.Schema["properties"].(map[string]any)
	required := tool.Schema["required"].([]string)
	require.Len(t, required, len(props))
}
