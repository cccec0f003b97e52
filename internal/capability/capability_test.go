package capability

import (
	"strings"
	"testing"

	gitctx "github.com/git-iris/gitiris/internal/context"
	"github.com/git-iris/gitiris/internal/girerr"
	"github.com/git-iris/gitiris/internal/gitrepo"
	"github.com/stretchr/testify/require"
)

func TestLookupCoversClosedSet(t *testing.T) {
	for _, kind := range []gitctx.CapabilityKind{
		gitctx.CapabilityCommit, gitctx.CapabilityReview, gitctx.CapabilityPullRequest,
		gitctx.CapabilityChangelog, gitctx.CapabilityReleaseNotes,
	} {
		e, err := Lookup(kind)
		require.NoError(t, err)
		require.NotNil(t, e.SystemPrompt)
		require.NotNil(t, e.UserPrompt)
		require.NotNil(t, e.Decode)
	}
}

func TestLookupRejectsUnknownKind(t *testing.T) {
	_, err := Lookup(gitctx.CapabilityKind("bogus"))
	require.Error(t, err)
	require.Equal(t, girerr.KindConfiguration, girerr.KindOf(err))
}

func TestReviewHasNoJSONSchema(t *testing.T) {
	e, err := Lookup(gitctx.CapabilityReview)
	require.NoError(t, err)
	require.Nil(t, e.Schema)

	out, err := e.Decode("## Summary\n\nlooks fine\n")
	require.NoError(t, err)
	require.Equal(t, "## Summary\n\nlooks fine\n", out)
}

func TestCommitDecodeRendersEmojiTitleBody(t *testing.T) {
	e, err := Lookup(gitctx.CapabilityCommit)
	require.NoError(t, err)

	out, err := e.Decode(`{"emoji":"✨","title":"add login flow","body":"implements oauth"}`)
	require.NoError(t, err)
	require.Equal(t, "✨ add login flow\n\nimplements oauth", out)
}

func TestCommitSystemPromptReflectsGitmojiSetting(t *testing.T) {
	e, err := Lookup(gitctx.CapabilityCommit)
	require.NoError(t, err)

	withEmoji := e.SystemPrompt(gitctx.Capability{Kind: gitctx.CapabilityCommit}, Options{UseGitmoji: true})
	require.Contains(t, withEmoji, "Pick an emoji")

	without := e.SystemPrompt(gitctx.Capability{Kind: gitctx.CapabilityCommit}, Options{UseGitmoji: false})
	require.Contains(t, without, "gitmoji is disabled")
}

func TestPullRequestDecodeRendersSections(t *testing.T) {
	e, err := Lookup(gitctx.CapabilityPullRequest)
	require.NoError(t, err)

	raw := `{"title":"Add login","summary":"adds oauth login","changes":"new handler","testing":"unit tests added","breaking_changes":"","affected_areas":["auth"]}`
	out, err := e.Decode(raw)
	require.NoError(t, err)
	require.Contains(t, out, "## Summary")
	require.Contains(t, out, "## Changes")
	require.Contains(t, out, "## Testing")
	require.NotContains(t, out, "## Breaking Changes")
}

func TestPullRequestDecodeIncludesBreakingChangesWhenPresent(t *testing.T) {
	e, err := Lookup(gitctx.CapabilityPullRequest)
	require.NoError(t, err)

	raw := `{"title":"t","summary":"s","changes":"c","testing":"t","breaking_changes":"renamed API","affected_areas":[]}`
	out, err := e.Decode(raw)
	require.NoError(t, err)
	require.Contains(t, out, "## Breaking Changes\n\nrenamed API")
}

func TestChangelogDecodeProducesKeepAChangelogMarkdown(t *testing.T) {
	e, err := Lookup(gitctx.CapabilityChangelog)
	require.NoError(t, err)

	raw := `{"version":"1.0.0","release_date":"2026-07-31","sections":{"Added":[{"description":"feature x","commit_hashes":["abc1234"],"issues":[],"pull_request":""}]},"breaking_changes":[],"metrics":{"total_commits":1,"files_changed":1,"insertions":2,"deletions":0,"total_lines_changed":2}}`
	out, err := e.Decode(raw)
	require.NoError(t, err)
	require.Contains(t, out, "## [1.0.0] - 2026-07-31")
	require.Contains(t, out, "### ✨ Added")
	require.Contains(t, out, "feature x")
}

func TestReleaseNotesDecodePreservesSectionOrder(t *testing.T) {
	e, err := Lookup(gitctx.CapabilityReleaseNotes)
	require.NoError(t, err)

	raw := `{"version":"1.2.0","summary":"a release","highlights":["faster startup","fewer crashes"],` +
		`"sections":[{"title":"Zebra","items":["z item"]},{"title":"Apple","items":["a item"]}],` +
		`"breaking_changes":[],"upgrade_notes":[],"metrics":{}}`
	out, err := e.Decode(raw)
	require.NoError(t, err)

	zebraIdx := strings.Index(out, "## Zebra")
	appleIdx := strings.Index(out, "## Apple")
	require.True(t, zebraIdx >= 0 && appleIdx >= 0)
	require.Less(t, zebraIdx, appleIdx, "sections must render in model-emitted order, not alphabetically")

	fasterIdx := strings.Index(out, "faster startup")
	fewerIdx := strings.Index(out, "fewer crashes")
	require.True(t, fasterIdx >= 0 && fewerIdx >= 0)
	require.Less(t, fasterIdx, fewerIdx)
}

func TestUserPromptRendersFilesAndCommits(t *testing.T) {
	e, err := Lookup(gitctx.CapabilityCommit)
	require.NoError(t, err)

	ctx := gitctx.CommitContext{
		Branch:   "main",
		UserName: "Dev",
		UserEmail: "dev@example.com",
		RecentCommits: []gitctx.RecentCommit{{Hash: "abcdef1234", Message: "fix bug", Author: "Dev"}},
		Files: []gitrepo.FileChange{{Path: "a.go", Kind: gitrepo.ChangeModified, Diff: "@@ -1 +1 @@"}},
	}
	prompt := e.UserPrompt(ctx, gitctx.Capability{Kind: gitctx.CapabilityCommit})
	require.Contains(t, prompt, "Branch: main")
	require.Contains(t, prompt, "abcdef1")
	require.Contains(t, prompt, "a.go")
}

func TestUserPromptAttachesFullContentForModifiedFile(t *testing.T) {
	e, err := Lookup(gitctx.CapabilityCommit)
	require.NoError(t, err)

	content := "package a\n\nfunc A() {}\n"
	ctx := gitctx.CommitContext{
		Branch: "main",
		Files: []gitrepo.FileChange{
			{Path: "a.go", Kind: gitrepo.ChangeModified, Diff: "@@ -1 +1 @@", Content: &content},
			{Path: "b.go", Kind: gitrepo.ChangeAdded, Diff: "@@ -0,0 +1 @@"},
		},
	}
	prompt := e.UserPrompt(ctx, gitctx.Capability{Kind: gitctx.CapabilityCommit})
	require.Contains(t, prompt, "--- a.go (full content) ---")
	require.Contains(t, prompt, content)
	require.NotContains(t, prompt, "b.go (full content)")
}
