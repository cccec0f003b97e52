// Package gitrepo is the Repository Inspector: read-only extraction of
// working-tree state, diffs, commits, and refs from either a local path or a
// shallow clone of a remote URL.
//
// The package is built on github.com/go-git/go-git/v5 rather than shelling
// out to the git binary for read operations (grounded on the go-git
// dependency carried by several repositories in the retrieval pack —
// rgehrsitz-archon, d4rk8l1tz-cli, teranos-QNTX — all of which wrap go-git
// behind a narrow Repository interface the way this package does). os/exec is
// reserved for hook execution, since hooks are arbitrary externally-defined
// scripts.
package gitrepo

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/git-iris/gitiris/internal/girerr"
)

// ExclusionPolicy decides whether a path's content should be excluded from
// diffs and reads (generated lockfiles, vendored trees, binary assets, or
// files exceeding a configurable size). It is consulted for every path
// encountered in a diff. The default implementation ships with a standard
// list; callers may supply their own to change what is considered sensitive
// or irrelevant without touching the Inspector itself.
type ExclusionPolicy func(path string, size int64) bool

// DefaultMaxFileSize is the byte threshold above which DefaultExclusionPolicy
// excludes a file's content regardless of extension.
const DefaultMaxFileSize = 1 << 20 // 1 MiB

var defaultExcludedExt = map[string]bool{
	".lock": true, ".sum": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".ico": true,
	".webp": true, ".pdf": true, ".zip": true, ".tar": true, ".gz": true,
	".woff": true, ".woff2": true, ".ttf": true, ".eot": true,
	".so": true, ".dylib": true, ".dll": true, ".exe": true, ".bin": true,
}

var defaultExcludedDirs = map[string]bool{
	"vendor": true, "node_modules": true, ".git": true, "target": true,
	"dist": true, "build": true,
}

// DefaultExclusionPolicy excludes common generated lockfiles, vendored
// directories, binary asset extensions, and anything larger than
// DefaultMaxFileSize.
func DefaultExclusionPolicy(path string, size int64) bool {
	if size > DefaultMaxFileSize {
		return true
	}
	base := filepath.Base(path)
	if base == "go.sum" || base == "package-lock.json" || base == "yarn.lock" ||
		base == "Cargo.lock" || base == "Gemfile.lock" || base == "poetry.lock" {
		return true
	}
	if defaultExcludedExt[filepath.Ext(path)] {
		return true
	}
	for dir := range defaultExcludedDirs {
		if pathHasDirComponent(path, dir) {
			return true
		}
	}
	return false
}

func pathHasDirComponent(path, dir string) bool {
	clean := filepath.ToSlash(path)
	for _, seg := range splitSlash(clean) {
		if seg == dir {
			return true
		}
	}
	return false
}

func splitSlash(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '/' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

// Repository is a read-only handle onto a Git working tree or a temporary
// clone of a remote. The zero value is not usable; construct with Open or
// Clone.
type Repository struct {
	repo     *git.Repository
	root     string // working tree root (absolute, canonicalized)
	tempDir  string // non-empty when this handle owns a clone to delete on Close
	readOnly bool
	policy   ExclusionPolicy
}

// Options configures Open/Clone.
type Options struct {
	// ExclusionPolicy overrides DefaultExclusionPolicy when non-nil.
	ExclusionPolicy ExclusionPolicy
}

func (o Options) policy() ExclusionPolicy {
	if o.ExclusionPolicy != nil {
		return o.ExclusionPolicy
	}
	return DefaultExclusionPolicy
}

// Open opens an existing local working tree at path. It fails with
// girerr.KindRepository when path is not inside a Git repository.
func Open(path string, opts Options) (*Repository, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, girerr.New(girerr.KindRepository, "gitrepo.Open", "resolve path", err)
	}
	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, girerr.New(girerr.KindRepository, "gitrepo.Open", "not a git repository", err)
	}
	wt, err := repo.Worktree()
	root := abs
	if err == nil {
		root = wt.Filesystem.Root()
	}
	canon, err := filepath.EvalSymlinks(root)
	if err != nil {
		canon = root
	}
	return &Repository{repo: repo, root: canon, policy: opts.policy()}, nil
}

// Clone shallow-clones url into a fresh temporary directory and returns a
// read-only handle. The temporary directory is owned exclusively by the
// returned handle and is guaranteed removed when Close is called.
func Clone(ctx context.Context, url string, token string, opts Options) (*Repository, error) {
	if url == "" {
		return nil, girerr.New(girerr.KindRepository, "gitrepo.Clone", "invalid remote URL", errors.New("empty URL"))
	}
	dir, err := os.MkdirTemp("", "git-iris-clone-*")
	if err != nil {
		return nil, girerr.New(girerr.KindRepository, "gitrepo.Clone", "create temp dir", err)
	}
	cloneOpts := &git.CloneOptions{
		URL:   url,
		Depth: 1,
	}
	if token != "" {
		cloneOpts.Auth = &http.BasicAuth{Username: "x-access-token", Password: token}
	}
	repo, err := git.PlainCloneContext(ctx, dir, false, cloneOpts)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, girerr.New(girerr.KindRepository, "gitrepo.Clone", "clone failed", err)
	}
	canon, err := filepath.EvalSymlinks(dir)
	if err != nil {
		canon = dir
	}
	return &Repository{repo: repo, root: canon, tempDir: dir, readOnly: true, policy: opts.policy()}, nil
}

// Root returns the canonicalized working tree root.
func (r *Repository) Root() string { return r.root }

// ReadOnly reports whether this handle was created from a clone and
// therefore rejects write operations.
func (r *Repository) ReadOnly() bool { return r.readOnly }

// Close removes the owned temporary clone directory, if any. It is safe to
// call multiple times and on handles from Open (a no-op there).
func (r *Repository) Close() error {
	if r.tempDir == "" {
		return nil
	}
	dir := r.tempDir
	r.tempDir = ""
	return os.RemoveAll(dir)
}

// ErrReadOnly is returned by write operations on a Repository opened from a
// clone, per the invariant that remote repositories never accept writes.
var ErrReadOnly = errors.New("gitrepo: repository is read-only (cloned remote)")

func (r *Repository) requireWritable(op string) error {
	if r.readOnly {
		return girerr.New(girerr.KindRepository, op, "read-only repository", ErrReadOnly)
	}
	return nil
}

// UserIdentity returns the configured user.name / user.email for the
// repository, falling back to the global Git config when unset locally.
func (r *Repository) UserIdentity() (name, email string, err error) {
	cfg, err := r.repo.ConfigScoped(config.SystemScope)
	if err == nil && cfg.User.Name != "" {
		name, email = cfg.User.Name, cfg.User.Email
	}
	local, err := r.repo.Config()
	if err != nil {
		return name, email, girerr.New(girerr.KindRepository, "gitrepo.UserIdentity", "read config", err)
	}
	if local.User.Name != "" {
		name = local.User.Name
	}
	if local.User.Email != "" {
		email = local.User.Email
	}
	return name, email, nil
}
