package context

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/git-iris/gitiris/internal/gitrepo"
)

func TestMergeFileChangesStagedWinsOnCollision(t *testing.T) {
	staged := []gitrepo.FileChange{{Path: "a.go", Diff: "staged version"}}
	unstaged := []gitrepo.FileChange{
		{Path: "a.go", Diff: "unstaged version"},
		{Path: "b.go", Diff: "unstaged only"},
	}

	merged := mergeFileChanges(staged, unstaged)

	require.Len(t, merged, 2)
	byPath := map[string]gitrepo.FileChange{}
	for _, f := range merged {
		byPath[f.Path] = f
	}
	require.Equal(t, "staged version", byPath["a.go"].Diff)
	require.Equal(t, "unstaged only", byPath["b.go"].Diff)
}

func TestIsRangeLikeDistinguishesHashesFromBranches(t *testing.T) {
	require.True(t, isRangeLike("a1b2c3d"))
	require.True(t, isRangeLike("main~2"))
	require.True(t, isRangeLike("HEAD^"))
	require.False(t, isRangeLike("main"))
	require.False(t, isRangeLike("feature/add-widget"))
}

func TestCapCommitsOrdersNewestFirstAndCaps(t *testing.T) {
	commits := []RecentCommit{
		{Hash: "a", Timestamp: "100"},
		{Hash: "b", Timestamp: "300"},
		{Hash: "c", Timestamp: "200"},
	}
	capped := capCommits(commits, 2)
	require.Len(t, capped, 2)
	require.Equal(t, "b", capped[0].Hash)
	require.Equal(t, "c", capped[1].Hash)
}
