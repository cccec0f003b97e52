// Package context assembles a typed, compact CommitContext from raw
// Repository Inspector state, dispatched on the requested Capability. It is
// the Context Assembler component: spec section 4.2.
package context

import (
	"sort"
	"strconv"

	"github.com/git-iris/gitiris/internal/gitrepo"
	"github.com/git-iris/gitiris/internal/girerr"
)

// CapabilityKind names which artifact the run will produce.
type CapabilityKind string

const (
	CapabilityCommit       CapabilityKind = "commit"
	CapabilityReview       CapabilityKind = "review"
	CapabilityPullRequest  CapabilityKind = "pull_request"
	CapabilityChangelog    CapabilityKind = "changelog"
	CapabilityReleaseNotes CapabilityKind = "release_notes"
)

// Capability carries a kind plus the parameters that do not exist in the
// repository itself (ranges, flags). Immutable for the run.
type Capability struct {
	Kind CapabilityKind

	// Review
	CommitID         string
	IncludeUnstaged  bool
	ReviewFrom       string
	ReviewTo         string

	// PullRequest
	PRBase string
	PRHead string

	// Changelog / ReleaseNotes
	From string
	To   string
}

// RecentCommit is an immutable summary of one commit for prompt rendering.
type RecentCommit struct {
	Hash      string
	Message   string
	Author    string
	Timestamp string
}

// CommitContext is the assembled, immutable snapshot handed to the Token
// Budgeter and then the Agent Runtime.
type CommitContext struct {
	Branch        string
	RecentCommits []RecentCommit
	Files         []gitrepo.FileChange
	UserName      string
	UserEmail     string
	README        string
}

const maxChangelogCommits = 10

// Assemble builds a CommitContext for cap from repo.
func Assemble(repo *gitrepo.Repository, cap Capability) (CommitContext, error) {
	name, email, err := repo.UserIdentity()
	if err != nil {
		return CommitContext{}, err
	}
	branch, err := repo.CurrentBranch()
	if err != nil {
		return CommitContext{}, err
	}
	ctx := CommitContext{Branch: branch, UserName: name, UserEmail: email}

	switch cap.Kind {
	case CapabilityCommit:
		files, err := repo.StagedDiff()
		if err != nil {
			return CommitContext{}, err
		}
		if len(files) == 0 {
			return CommitContext{}, girerr.New(girerr.KindContext, "context.Assemble",
				"no staged changes", nil).WithHint("stage changes with `git add` before requesting a commit message")
		}
		ctx.Files = files
		commits, err := recentCommits(repo, 5)
		if err != nil {
			return CommitContext{}, err
		}
		ctx.RecentCommits = commits
		return ctx, nil

	case CapabilityReview:
		return assembleReview(repo, cap, ctx)

	case CapabilityPullRequest:
		return assemblePullRequest(repo, cap, ctx)

	case CapabilityChangelog, CapabilityReleaseNotes:
		return assembleRange(repo, cap, ctx)

	default:
		return CommitContext{}, girerr.New(girerr.KindContext, "context.Assemble",
			"unknown capability", nil)
	}
}

func assembleReview(repo *gitrepo.Repository, cap Capability, ctx CommitContext) (CommitContext, error) {
	switch {
	case cap.CommitID != "":
		files, err := repo.CommitDiff(cap.CommitID)
		if err != nil {
			return CommitContext{}, err
		}
		ctx.Files = files
		commits, err := commitsForRef(repo, cap.CommitID)
		if err != nil {
			return CommitContext{}, err
		}
		ctx.RecentCommits = commits
		return ctx, nil

	case cap.ReviewFrom != "" && cap.ReviewTo != "":
		files, err := repo.BranchDiff(cap.ReviewFrom, cap.ReviewTo)
		if err != nil {
			return CommitContext{}, err
		}
		ctx.Files = files
		var commits []RecentCommit
		err = repo.CommitsBetween(cap.ReviewFrom, cap.ReviewTo, func(c gitrepo.CommitInfo) error {
			commits = append(commits, toRecentCommit(c))
			return nil
		})
		if err != nil {
			return CommitContext{}, err
		}
		ctx.RecentCommits = capCommits(commits, maxChangelogCommits)
		return ctx, nil

	default:
		staged, err := repo.StagedDiff()
		if err != nil {
			return CommitContext{}, err
		}
		files := staged
		if cap.IncludeUnstaged {
			unstaged, err := repo.UnstagedDiff()
			if err != nil {
				return CommitContext{}, err
			}
			files = mergeFileChanges(staged, unstaged)
		}
		if len(files) == 0 {
			return CommitContext{}, girerr.New(girerr.KindContext, "context.assembleReview",
				"no changes to review", nil).WithHint("stage or modify files before requesting a review")
		}
		ctx.Files = files
		commits, err := recentCommits(repo, 5)
		if err != nil {
			return CommitContext{}, err
		}
		ctx.RecentCommits = commits
		return ctx, nil
	}
}

// mergeFileChanges merges staged and unstaged diffs path-uniquely, staged
// winning on collision, per spec section 4.2.
func mergeFileChanges(staged, unstaged []gitrepo.FileChange) []gitrepo.FileChange {
	seen := make(map[string]bool, len(staged))
	out := make([]gitrepo.FileChange, 0, len(staged)+len(unstaged))
	for _, f := range staged {
		seen[f.Path] = true
		out = append(out, f)
	}
	for _, f := range unstaged {
		if !seen[f.Path] {
			out = append(out, f)
		}
	}
	return out
}

// isRangeLike reports whether ref looks like a commit hash or carries
// ancestor-suffix syntax, distinguishing an explicit range from a branch
// name for the PR base/head heuristic.
func isRangeLike(ref string) bool {
	if len(ref) >= 7 && len(ref) <= 40 && isHex(ref) {
		return true
	}
	for _, c := range ref {
		if c == '~' || c == '^' || c == '@' {
			return true
		}
	}
	return false
}

func isHex(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return len(s) > 0
}

func assemblePullRequest(repo *gitrepo.Repository, cap Capability, ctx CommitContext) (CommitContext, error) {
	from := cap.PRBase
	if from == "" {
		from = "main"
	}
	to := cap.PRHead
	if to == "" {
		to = "HEAD"
	}

	var files []gitrepo.FileChange
	var err error
	if isRangeLike(from) {
		expandedFrom := from
		if !containsAny(from, "~^@") {
			expandedFrom = from + "^"
		}
		files, err = repo.RangeDiff(expandedFrom, to)
	} else {
		files, err = repo.BranchDiff(from, to)
	}
	if err != nil {
		return CommitContext{}, err
	}
	ctx.Files = files

	var commits []RecentCommit
	err = repo.CommitsBetween(from, to, func(c gitrepo.CommitInfo) error {
		commits = append(commits, toRecentCommit(c))
		return nil
	})
	if err != nil {
		return CommitContext{}, err
	}
	ctx.RecentCommits = capCommits(commits, maxChangelogCommits)
	return ctx, nil
}

func containsAny(s, chars string) bool {
	for _, c := range s {
		for _, want := range chars {
			if c == want {
				return true
			}
		}
	}
	return false
}

func assembleRange(repo *gitrepo.Repository, cap Capability, ctx CommitContext) (CommitContext, error) {
	var commits []RecentCommit
	var allFiles []gitrepo.FileChange
	err := repo.CommitsBetween(cap.From, cap.To, func(c gitrepo.CommitInfo) error {
		commits = append(commits, toRecentCommit(c))
		files, err := repo.CommitDiff(c.Hash)
		if err != nil {
			return err
		}
		allFiles = append(allFiles, files...)
		return nil
	})
	if err != nil {
		return CommitContext{}, err
	}
	ctx.RecentCommits = commits
	ctx.Files = allFiles
	ctx.README = readmeAt(repo, cap.To)
	return ctx, nil
}

var readmeNames = []string{"README.md", "README", "Readme.md", "readme.md"}

// readmeAt returns the first well-known README filename's content as of
// ref, or "" when none exists there.
func readmeAt(repo *gitrepo.Repository, ref string) string {
	if ref == "" {
		ref = "HEAD"
	}
	for _, name := range readmeNames {
		content, ok, err := repo.FileContentAtRef(ref, name)
		if err == nil && ok {
			return string(content)
		}
	}
	return ""
}

func recentCommits(repo *gitrepo.Repository, n int) ([]RecentCommit, error) {
	commits, err := repo.RecentCommits(n)
	if err != nil {
		return nil, err
	}
	out := make([]RecentCommit, 0, len(commits))
	for _, c := range commits {
		out = append(out, toRecentCommit(c))
	}
	return out, nil
}

func commitsForRef(repo *gitrepo.Repository, ref string) ([]RecentCommit, error) {
	commits, err := repo.RecentCommits(0)
	if err != nil {
		return nil, err
	}
	for _, c := range commits {
		if c.Hash == ref || c.ShortHash == ref {
			return []RecentCommit{toRecentCommit(c)}, nil
		}
	}
	// ref wasn't found among recent HEAD history (e.g. it's off-branch);
	// fall back to a minimal stub carrying just the ref string so the
	// context still names the commit under review.
	return []RecentCommit{{Hash: ref, Message: ref}}, nil
}

func toRecentCommit(c gitrepo.CommitInfo) RecentCommit {
	return RecentCommit{
		Hash:      c.Hash,
		Message:   c.Subject,
		Author:    c.Author,
		Timestamp: strconv.FormatInt(c.When.Unix(), 10),
	}
}

func capCommits(commits []RecentCommit, max int) []RecentCommit {
	sort.SliceStable(commits, func(i, j int) bool { return commits[i].Timestamp > commits[j].Timestamp })
	if len(commits) > max {
		return commits[:max]
	}
	return commits
}
