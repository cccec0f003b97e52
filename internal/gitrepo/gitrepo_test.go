package gitrepo

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// initRepo creates a throwaway repository via the git binary (test-only
// dependency on the CLI; the package under test never runs the git binary
// itself, and shells out only to run hook scripts)
// and returns its path.
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
	return dir
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func commitAll(t *testing.T, dir, msg string) {
	t.Helper()
	for _, args := range [][]string{{"add", "-A"}, {"commit", "-m", msg}} {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=Test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=Test", "GIT_COMMITTER_EMAIL=test@example.com")
		out, err := cmd.CombinedOutput()
		require.NoErrorf(t, err, "git %v: %s", args, out)
	}
}

func TestOpenRejectsNonRepository(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(dir, Options{})
	require.Error(t, err)
}

func TestCurrentBranchAndRecentCommits(t *testing.T) {
	dir := initRepo(t)
	writeFile(t, dir, "README.md", "hello\n")
	commitAll(t, dir, "initial commit")
	writeFile(t, dir, "README.md", "hello again\n")
	commitAll(t, dir, "second commit")

	repo, err := Open(dir, Options{})
	require.NoError(t, err)
	defer repo.Close()

	branch, err := repo.CurrentBranch()
	require.NoError(t, err)
	require.Equal(t, "main", branch)

	commits, err := repo.RecentCommits(10)
	require.NoError(t, err)
	require.Len(t, commits, 2)
	require.Equal(t, "second commit", commits[0].Subject)
	require.Equal(t, "initial commit", commits[1].Subject)
}

func TestStagedDiffReportsAddedFile(t *testing.T) {
	dir := initRepo(t)
	writeFile(t, dir, "README.md", "hello\n")
	commitAll(t, dir, "initial commit")

	writeFile(t, dir, "new.txt", "fresh content\n")
	cmd := exec.Command("git", "add", "new.txt")
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoErrorf(t, err, "%s", out)

	repo, err := Open(dir, Options{})
	require.NoError(t, err)
	defer repo.Close()

	changes, err := repo.StagedDiff()
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.Equal(t, "new.txt", changes[0].Path)
	require.Equal(t, ChangeAdded, changes[0].Kind)
	require.Contains(t, changes[0].Diff, "+fresh content")
}

func TestUnstagedDiffReportsModifiedFile(t *testing.T) {
	dir := initRepo(t)
	writeFile(t, dir, "README.md", "line one\nline two\n")
	commitAll(t, dir, "initial commit")
	writeFile(t, dir, "README.md", "line one\nline changed\n")

	repo, err := Open(dir, Options{})
	require.NoError(t, err)
	defer repo.Close()

	changes, err := repo.UnstagedDiff()
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.Equal(t, ChangeModified, changes[0].Kind)
	require.Contains(t, changes[0].Diff, "-line two")
	require.Contains(t, changes[0].Diff, "+line changed")
	require.NotNil(t, changes[0].Content)
	require.Equal(t, "line one\nline changed\n", *changes[0].Content)
	require.False(t, changes[0].ContentExcluded)
}

func TestStagedDiffOmitsContentForAddedFile(t *testing.T) {
	dir := initRepo(t)
	writeFile(t, dir, "README.md", "hello\n")
	commitAll(t, dir, "initial commit")

	writeFile(t, dir, "new.txt", "fresh content\n")
	cmd := exec.Command("git", "add", "new.txt")
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoErrorf(t, err, "%s", out)

	repo, err := Open(dir, Options{})
	require.NoError(t, err)
	defer repo.Close()

	changes, err := repo.StagedDiff()
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.Equal(t, ChangeAdded, changes[0].Kind)
	require.Nil(t, changes[0].Content)
	require.False(t, changes[0].ContentExcluded)
}

func TestStagedDiffExcludesLockfileContentAndDiff(t *testing.T) {
	dir := initRepo(t)
	writeFile(t, dir, "README.md", "hello\n")
	commitAll(t, dir, "initial commit")

	writeFile(t, dir, "go.sum", "checksum data\n")
	cmd := exec.Command("git", "add", "go.sum")
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoErrorf(t, err, "%s", out)

	repo, err := Open(dir, Options{})
	require.NoError(t, err)
	defer repo.Close()

	changes, err := repo.StagedDiff()
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.Equal(t, ExcludedMarker, changes[0].Diff)
	require.True(t, changes[0].ContentExcluded)
	require.Nil(t, changes[0].Content)
}

func TestUnstagedDiffOmitsContentForBinaryFile(t *testing.T) {
	dir := initRepo(t)
	writeFile(t, dir, "data.dat", "\x00\x01\x02binary\n")
	commitAll(t, dir, "initial commit")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.dat"), []byte("\x00\x01\x02changed\n"), 0o644))

	repo, err := Open(dir, Options{})
	require.NoError(t, err)
	defer repo.Close()

	changes, err := repo.UnstagedDiff()
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.Equal(t, BinaryMarker, changes[0].Diff)
	require.Nil(t, changes[0].Content)
}

func TestCommitDiffRootCommitAgainstEmptyTree(t *testing.T) {
	dir := initRepo(t)
	writeFile(t, dir, "README.md", "hello\n")
	commitAll(t, dir, "initial commit")

	repo, err := Open(dir, Options{})
	require.NoError(t, err)
	defer repo.Close()

	changes, err := repo.CommitDiff("HEAD")
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.Equal(t, ChangeAdded, changes[0].Kind)
}

func TestCommitDiffAttachesContentForModifiedFile(t *testing.T) {
	dir := initRepo(t)
	writeFile(t, dir, "README.md", "line one\nline two\n")
	commitAll(t, dir, "initial commit")
	writeFile(t, dir, "README.md", "line one\nline changed\n")
	commitAll(t, dir, "second commit")

	repo, err := Open(dir, Options{})
	require.NoError(t, err)
	defer repo.Close()

	changes, err := repo.CommitDiff("HEAD")
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.Equal(t, ChangeModified, changes[0].Kind)
	require.NotNil(t, changes[0].Content)
	require.Equal(t, "line one\nline changed\n", *changes[0].Content)
}

func TestExclusionPolicyExcludesLockfiles(t *testing.T) {
	require.True(t, DefaultExclusionPolicy("go.sum", 10))
	require.True(t, DefaultExclusionPolicy("vendor/pkg/thing.go", 10))
	require.False(t, DefaultExclusionPolicy("internal/gitrepo/files.go", 10))
	require.True(t, DefaultExclusionPolicy("assets/logo.png", 10))
}

func TestCloneIsReadOnlyAndCleansUpOnClose(t *testing.T) {
	origin := initRepo(t)
	writeFile(t, origin, "README.md", "hello\n")
	commitAll(t, origin, "initial commit")

	repo, err := Clone(context.Background(), "file://"+origin, "", Options{})
	require.NoError(t, err)
	require.True(t, repo.ReadOnly())

	tempDir := repo.Root()
	require.NoError(t, repo.Close())
	_, statErr := os.Stat(tempDir)
	require.True(t, os.IsNotExist(statErr))
}
