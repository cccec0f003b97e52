package gitrepo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/git-iris/gitiris/internal/girerr"
)

// errStopIteration is a sentinel used to break out of a ForEach walk once
// enough commits have been collected; it is never surfaced to callers.
var errStopIteration = errors.New("gitrepo: stop iteration")

// CommitInfo is a single entry in recent-commit history.
type CommitInfo struct {
	Hash      string
	ShortHash string
	Author    string
	Email     string
	When      time.Time
	Subject   string
	Body      string
}

// CurrentBranch returns the short name of the checked-out branch, or the
// detached HEAD hash (short form) when not on a branch.
func (r *Repository) CurrentBranch() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", girerr.New(girerr.KindRepository, "gitrepo.CurrentBranch", "resolve HEAD", err)
	}
	if head.Name().IsBranch() {
		return head.Name().Short(), nil
	}
	return head.Hash().String()[:7], nil
}

// resolveRef resolves a ref-ish string (HEAD, a branch/tag name, a full or
// abbreviated hash, or HEAD~N / HEAD^N) to a commit hash, following the same
// small grammar `git rev-parse` accepts for the subset this tool needs.
func (r *Repository) resolveRef(ref string) (plumbing.Hash, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		ref = "HEAD"
	}
	base, ancestorN, err := splitAncestorSuffix(ref)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	hash, err := r.repo.ResolveRevision(plumbing.Revision(base))
	if err != nil {
		return plumbing.ZeroHash, girerr.New(girerr.KindRepository, "gitrepo.resolveRef",
			fmt.Sprintf("ref %q not found", ref), err)
	}
	if ancestorN == 0 {
		return *hash, nil
	}
	commit, err := r.repo.CommitObject(*hash)
	if err != nil {
		return plumbing.ZeroHash, girerr.New(girerr.KindRepository, "gitrepo.resolveRef", "load commit", err)
	}
	for i := 0; i < ancestorN; i++ {
		parents := commit.ParentHashes
		if len(parents) == 0 {
			return plumbing.ZeroHash, girerr.New(girerr.KindRepository, "gitrepo.resolveRef",
				fmt.Sprintf("ref %q has no ancestor at depth %d", ref, i+1), nil)
		}
		commit, err = r.repo.CommitObject(parents[0])
		if err != nil {
			return plumbing.ZeroHash, girerr.New(girerr.KindRepository, "gitrepo.resolveRef", "load parent", err)
		}
	}
	return commit.Hash, nil
}

func splitAncestorSuffix(ref string) (base string, n int, err error) {
	for _, sep := range []byte{'~', '^'} {
		if idx := strings.IndexByte(ref, sep); idx >= 0 {
			base = ref[:idx]
			rest := ref[idx+1:]
			if rest == "" {
				return base, 1, nil
			}
			n, convErr := strconv.Atoi(rest)
			if convErr != nil || n < 0 {
				return "", 0, girerr.New(girerr.KindRepository, "gitrepo.resolveRef",
					fmt.Sprintf("invalid ancestor suffix in %q", ref), convErr)
			}
			return base, n, nil
		}
	}
	return ref, 0, nil
}

// RecentCommits returns up to n commits reachable from HEAD, most recent
// first.
func (r *Repository) RecentCommits(n int) ([]CommitInfo, error) {
	head, err := r.repo.Head()
	if err != nil {
		return nil, girerr.New(girerr.KindRepository, "gitrepo.RecentCommits", "resolve HEAD", err)
	}
	iter, err := r.repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, girerr.New(girerr.KindRepository, "gitrepo.RecentCommits", "walk history", err)
	}
	defer iter.Close()

	var out []CommitInfo
	err = iter.ForEach(func(c *object.Commit) error {
		if n > 0 && len(out) >= n {
			return errStopIteration
		}
		out = append(out, toCommitInfo(c))
		return nil
	})
	if err != nil && err != errStopIteration {
		return nil, girerr.New(girerr.KindRepository, "gitrepo.RecentCommits", "iterate commits", err)
	}
	return out, nil
}

// CommitsBetween visits, in chronological order (oldest first), every commit
// reachable from `to` but not from `from`. visit returning an error stops
// iteration and the error is returned to the caller.
func (r *Repository) CommitsBetween(from, to string, visit func(CommitInfo) error) error {
	fromHash, err := r.resolveRef(from)
	if err != nil {
		return err
	}
	toHash, err := r.resolveRef(to)
	if err != nil {
		return err
	}
	iter, err := r.repo.Log(&git.LogOptions{From: toHash})
	if err != nil {
		return girerr.New(girerr.KindRepository, "gitrepo.CommitsBetween", "walk history", err)
	}
	defer iter.Close()

	excluded := map[plumbing.Hash]bool{}
	if fromHash != plumbing.ZeroHash {
		ancestors, err := r.repo.Log(&git.LogOptions{From: fromHash})
		if err == nil {
			_ = ancestors.ForEach(func(c *object.Commit) error {
				excluded[c.Hash] = true
				return nil
			})
			ancestors.Close()
		}
	}

	var chron []CommitInfo
	err = iter.ForEach(func(c *object.Commit) error {
		if excluded[c.Hash] {
			return nil
		}
		chron = append(chron, toCommitInfo(c))
		return nil
	})
	if err != nil {
		return girerr.New(girerr.KindRepository, "gitrepo.CommitsBetween", "iterate commits", err)
	}
	for i := len(chron) - 1; i >= 0; i-- {
		if err := visit(chron[i]); err != nil {
			return err
		}
	}
	return nil
}

func toCommitInfo(c *object.Commit) CommitInfo {
	subject, body := splitCommitMessage(c.Message)
	return CommitInfo{
		Hash:      c.Hash.String(),
		ShortHash: c.Hash.String()[:7],
		Author:    c.Author.Name,
		Email:     c.Author.Email,
		When:      c.Author.When,
		Subject:   subject,
		Body:      body,
	}
}

func splitCommitMessage(msg string) (subject, body string) {
	msg = strings.TrimRight(msg, "\n")
	parts := strings.SplitN(msg, "\n\n", 2)
	subject = parts[0]
	if len(parts) == 2 {
		body = parts[1]
	}
	return subject, body
}

// FileContentAtRef returns the content of path as it exists in the tree
// ref resolves to, and false when the path does not exist there.
func (r *Repository) FileContentAtRef(ref, path string) ([]byte, bool, error) {
	hash, err := r.resolveRef(ref)
	if err != nil {
		return nil, false, err
	}
	tree, err := r.treeAt(hash)
	if err != nil {
		return nil, false, err
	}
	content, ok := treeBlobContent(tree, path)
	return content, ok, nil
}

// FilePathsForCommit returns the set of file paths touched by the given
// commit relative to its first parent (or the empty tree for a root
// commit).
func (r *Repository) FilePathsForCommit(ref string) ([]string, error) {
	hash, err := r.resolveRef(ref)
	if err != nil {
		return nil, err
	}
	commit, err := r.repo.CommitObject(hash)
	if err != nil {
		return nil, girerr.New(girerr.KindRepository, "gitrepo.FilePathsForCommit", "load commit", err)
	}
	changes, err := r.changesForCommit(commit)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(changes))
	for _, ch := range changes {
		paths = append(paths, ch.Path)
	}
	return paths, nil
}
