package gitrepo

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/git-iris/gitiris/internal/girerr"
)

// CommitOptions configures Commit and AmendCommit.
type CommitOptions struct {
	Message        string
	AuthorName     string
	AuthorEmail    string
	SkipPreCommit  bool
	SkipPostCommit bool
}

// Commit records the currently staged tree with message and the repository's
// configured identity, running pre-commit and post-commit hooks around it.
// It fails on a read-only (cloned) handle.
func (r *Repository) Commit(opts CommitOptions) (string, error) {
	if err := r.requireWritable("gitrepo.Commit"); err != nil {
		return "", err
	}
	if opts.Message == "" {
		return "", girerr.New(girerr.KindRepository, "gitrepo.Commit", "empty commit message", nil)
	}
	if !opts.SkipPreCommit {
		if err := r.ExecuteHook(context.Background(), "pre-commit"); err != nil {
			return "", err
		}
	}
	wt, err := r.repo.Worktree()
	if err != nil {
		return "", girerr.New(girerr.KindRepository, "gitrepo.Commit", "open worktree", err)
	}
	name, email := opts.AuthorName, opts.AuthorEmail
	if name == "" || email == "" {
		idName, idEmail, err := r.UserIdentity()
		if err != nil {
			return "", err
		}
		if name == "" {
			name = idName
		}
		if email == "" {
			email = idEmail
		}
	}
	hash, err := wt.Commit(opts.Message, &git.CommitOptions{
		Author: &object.Signature{Name: name, Email: email, When: time.Now()},
	})
	if err != nil {
		return "", girerr.New(girerr.KindRepository, "gitrepo.Commit", "create commit", err)
	}
	if !opts.SkipPostCommit {
		// post-commit failures are never fatal: the commit has already been
		// written. The hook's error is discarded here and not logged.
		_ = r.ExecuteHook(context.Background(), "post-commit")
	}
	return hash.String(), nil
}

// AmendCommit replaces HEAD with a new commit carrying message over the same
// tree and parents as the current HEAD commit.
func (r *Repository) AmendCommit(opts CommitOptions) (string, error) {
	if err := r.requireWritable("gitrepo.AmendCommit"); err != nil {
		return "", err
	}
	if opts.Message == "" {
		return "", girerr.New(girerr.KindRepository, "gitrepo.AmendCommit", "empty commit message", nil)
	}
	head, err := r.repo.Head()
	if err != nil {
		return "", girerr.New(girerr.KindRepository, "gitrepo.AmendCommit", "resolve HEAD", err)
	}
	current, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return "", girerr.New(girerr.KindRepository, "gitrepo.AmendCommit", "load HEAD commit", err)
	}
	if !opts.SkipPreCommit {
		if err := r.ExecuteHook(context.Background(), "pre-commit"); err != nil {
			return "", err
		}
	}
	name, email := opts.AuthorName, opts.AuthorEmail
	if name == "" {
		name = current.Author.Name
	}
	if email == "" {
		email = current.Author.Email
	}
	newCommit := &object.Commit{
		Author:       object.Signature{Name: name, Email: email, When: time.Now()},
		Committer:    object.Signature{Name: name, Email: email, When: time.Now()},
		Message:      opts.Message,
		TreeHash:     current.TreeHash,
		ParentHashes: current.ParentHashes,
	}
	obj := r.repo.Storer.NewEncodedObject()
	if err := newCommit.Encode(obj); err != nil {
		return "", girerr.New(girerr.KindRepository, "gitrepo.AmendCommit", "encode commit", err)
	}
	hash, err := r.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return "", girerr.New(girerr.KindRepository, "gitrepo.AmendCommit", "write commit object", err)
	}
	newRef := plumbing.NewHashReference(head.Name(), hash)
	if err := r.repo.Storer.SetReference(newRef); err != nil {
		return "", girerr.New(girerr.KindRepository, "gitrepo.AmendCommit", "update HEAD", err)
	}
	if !opts.SkipPostCommit {
		_ = r.ExecuteHook(context.Background(), "post-commit")
	}
	return hash.String(), nil
}

// ExecuteHook runs the named hook script (e.g. "pre-commit") from the
// repository's hooks directory if present and executable. A missing hook is
// not an error. The hook runs with GIT_DIR and GIT_WORK_TREE set since hooks
// are arbitrary external scripts, not something go-git can execute in-process.
func (r *Repository) ExecuteHook(ctx context.Context, name string) error {
	gitDir := filepath.Join(r.root, ".git")
	hookPath := filepath.Join(gitDir, "hooks", name)
	info, err := os.Stat(hookPath)
	if err != nil {
		return nil // no hook installed
	}
	if info.Mode()&0o111 == 0 {
		return nil // not executable, same as git's own behavior
	}
	cmd := exec.CommandContext(ctx, hookPath)
	cmd.Dir = r.root
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("GIT_DIR=%s", gitDir),
		fmt.Sprintf("GIT_WORK_TREE=%s", r.root),
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return girerr.New(girerr.KindRepository, "gitrepo.ExecuteHook",
			fmt.Sprintf("%s hook failed: %s", name, out), err)
	}
	return nil
}
