package gitrepo

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/git-iris/gitiris/internal/girerr"
)

// ChangeKind classifies a file's change within a diff.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeModified ChangeKind = "modified"
	ChangeDeleted  ChangeKind = "deleted"
	ChangeRenamed  ChangeKind = "renamed"
)

// ExcludedMarker is substituted for the unified diff body of a file the
// ExclusionPolicy rejected.
const ExcludedMarker = "[Content excluded]"

// BinaryMarker is substituted for the unified diff body of a file git or the
// Inspector's own sniff detects as binary.
const BinaryMarker = "[Binary file changed]"

// FileChange describes one file's contribution to a diff.
type FileChange struct {
	Path    string
	OldPath string // set only for ChangeRenamed
	Kind    ChangeKind
	Diff    string // unified diff text, or one of the sentinel markers above

	// Content is the file's full current text, attached only for Modified
	// files whose diff is textual and passed the exclusion policy; nil for
	// every Added, Deleted, excluded, or binary change.
	Content *string
	// ContentExcluded reports whether the exclusion policy rejected this
	// path; when true, Diff is ExcludedMarker and Content is nil.
	ContentExcluded bool
}

// attachContent returns the Content a Modified FileChange should carry: the
// new side's full text, unless the diff was replaced by a sentinel (binary)
// or is empty (no textual change), matching the original implementation's
// get_file_statuses, which only reads a file's content when it is Modified,
// not excluded, and not binary.
func attachContent(kind ChangeKind, diff string, newContent []byte, newOK bool) *string {
	if kind != ChangeModified || !newOK || diff == "" || diff == BinaryMarker {
		return nil
	}
	text := string(newContent)
	return &text
}

var dmp = diffmatchpatch.New()

// StagedDiff returns the diff between HEAD and the index (what `git diff
// --cached` shows). go-git exposes no "diff the index as if it were a tree"
// API, so this walks the HEAD tree and the index entries directly and
// compares blob hashes path by path rather than going through diffTrees.
func (r *Repository) StagedDiff() ([]FileChange, error) {
	headHashes := map[string]plumbing.Hash{}
	head, err := r.headTreeOrNil()
	if err != nil {
		return nil, err
	}
	if head != nil {
		walker := object.NewTreeWalker(head, true, nil)
		defer walker.Close()
		for {
			name, entry, err := walker.Next()
			if err != nil {
				break
			}
			if entry.Mode.IsFile() {
				headHashes[name] = entry.Hash
			}
		}
	}

	idx, err := r.repo.Storer.Index()
	if err != nil {
		return nil, girerr.New(girerr.KindRepository, "gitrepo.StagedDiff", "read index", err)
	}
	indexHashes := map[string]plumbing.Hash{}
	for _, e := range idx.Entries {
		indexHashes[e.Name] = e.Hash
	}

	paths := map[string]bool{}
	for p := range headHashes {
		paths[p] = true
	}
	for p := range indexHashes {
		paths[p] = true
	}

	var out []FileChange
	for path := range paths {
		headHash, inHead := headHashes[path]
		idxHash, inIdx := indexHashes[path]
		if inHead && inIdx && headHash == idxHash {
			continue
		}
		oldContent, oldOK := blobAt(r.repo, headHash, inHead)
		newContent, newOK := blobAt(r.repo, idxHash, inIdx)
		if r.policy(path, int64(max(len(oldContent), len(newContent)))) {
			out = append(out, FileChange{Path: path, Kind: stagedKind(inHead, inIdx), Diff: ExcludedMarker, ContentExcluded: true})
			continue
		}
		kind := stagedKind(inHead, inIdx)
		diff := r.renderDiff(path, oldContent, oldOK, newContent, newOK)
		out = append(out, FileChange{
			Path:    path,
			Kind:    kind,
			Diff:    diff,
			Content: attachContent(kind, diff, newContent, newOK),
		})
	}
	return out, nil
}

func stagedKind(inHead, inIndex bool) ChangeKind {
	switch {
	case !inHead && inIndex:
		return ChangeAdded
	case inHead && !inIndex:
		return ChangeDeleted
	default:
		return ChangeModified
	}
}

func blobAt(repo *git.Repository, hash plumbing.Hash, ok bool) ([]byte, bool) {
	if !ok {
		return nil, false
	}
	blob, err := repo.BlobObject(hash)
	if err != nil {
		return nil, false
	}
	content, err := blobContent(blob)
	if err != nil {
		return nil, false
	}
	return content, true
}

// UnstagedDiff returns the diff between the index and the working tree (what
// `git diff` shows), including untracked files as additions.
func (r *Repository) UnstagedDiff() ([]FileChange, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return nil, girerr.New(girerr.KindRepository, "gitrepo.UnstagedDiff", "open worktree", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, girerr.New(girerr.KindRepository, "gitrepo.UnstagedDiff", "compute status", err)
	}

	var out []FileChange
	for path, st := range status {
		if st.Worktree == git.Unmodified {
			continue
		}
		old, oldOK := r.readIndexBlob(path)
		newContent, newOK := r.readWorktreeFile(wt, path)

		var kind ChangeKind
		switch st.Worktree {
		case git.Untracked, git.Added:
			kind = ChangeAdded
		case git.Deleted:
			kind = ChangeDeleted
		default:
			kind = ChangeModified
		}

		if r.policy(path, int64(max(len(old), len(newContent)))) {
			out = append(out, FileChange{Path: path, Kind: kind, Diff: ExcludedMarker, ContentExcluded: true})
			continue
		}
		fc := FileChange{Path: path, Kind: kind}
		fc.Diff = r.renderDiff(path, old, oldOK, newContent, newOK)
		fc.Content = attachContent(kind, fc.Diff, newContent, newOK)
		out = append(out, fc)
	}
	return out, nil
}

// CommitDiff returns the diff introduced by the commit ref resolves to,
// relative to its first parent (or the empty tree, for a root commit).
func (r *Repository) CommitDiff(ref string) ([]FileChange, error) {
	hash, err := r.resolveRef(ref)
	if err != nil {
		return nil, err
	}
	commit, err := r.repo.CommitObject(hash)
	if err != nil {
		return nil, girerr.New(girerr.KindRepository, "gitrepo.CommitDiff", "load commit", err)
	}
	return r.changesForCommit(commit)
}

// BranchDiff diffs the merge-base of base and head against head's tip,
// matching the "what would a PR from head into base introduce" view.
func (r *Repository) BranchDiff(base, head string) ([]FileChange, error) {
	baseHash, err := r.resolveRef(base)
	if err != nil {
		return nil, err
	}
	headHash, err := r.resolveRef(head)
	if err != nil {
		return nil, err
	}
	baseCommit, err := r.repo.CommitObject(baseHash)
	if err != nil {
		return nil, girerr.New(girerr.KindRepository, "gitrepo.BranchDiff", "load base commit", err)
	}
	headCommit, err := r.repo.CommitObject(headHash)
	if err != nil {
		return nil, girerr.New(girerr.KindRepository, "gitrepo.BranchDiff", "load head commit", err)
	}
	mergeBases, err := baseCommit.MergeBase(headCommit)
	if err != nil || len(mergeBases) == 0 {
		return nil, girerr.New(girerr.KindRepository, "gitrepo.BranchDiff",
			fmt.Sprintf("no merge base between %q and %q", base, head), err)
	}
	baseTree, err := mergeBases[0].Tree()
	if err != nil {
		return nil, girerr.New(girerr.KindRepository, "gitrepo.BranchDiff", "load merge-base tree", err)
	}
	headTree, err := headCommit.Tree()
	if err != nil {
		return nil, girerr.New(girerr.KindRepository, "gitrepo.BranchDiff", "load head tree", err)
	}
	return r.diffTrees("gitrepo.BranchDiff", baseTree, headTree)
}

// RangeDiff diffs two arbitrary refs directly (no merge-base), for
// comparisons where the caller has already chosen an explicit range.
func (r *Repository) RangeDiff(from, to string) ([]FileChange, error) {
	fromHash, err := r.resolveRef(from)
	if err != nil {
		return nil, err
	}
	toHash, err := r.resolveRef(to)
	if err != nil {
		return nil, err
	}
	fromTree, err := r.treeAt(fromHash)
	if err != nil {
		return nil, err
	}
	toTree, err := r.treeAt(toHash)
	if err != nil {
		return nil, err
	}
	return r.diffTrees("gitrepo.RangeDiff", fromTree, toTree)
}

func (r *Repository) treeAt(hash plumbing.Hash) (*object.Tree, error) {
	commit, err := r.repo.CommitObject(hash)
	if err != nil {
		return nil, girerr.New(girerr.KindRepository, "gitrepo.treeAt", "load commit", err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, girerr.New(girerr.KindRepository, "gitrepo.treeAt", "load tree", err)
	}
	return tree, nil
}

func (r *Repository) headTree() (*object.Tree, error) {
	head, err := r.repo.Head()
	if err != nil {
		return nil, girerr.New(girerr.KindRepository, "gitrepo.headTree", "resolve HEAD", err)
	}
	return r.treeAt(head.Hash())
}

// headTreeOrNil is headTree but tolerates an unborn HEAD (a brand new
// repository with no commits yet), returning nil instead of an error so
// StagedDiff can treat every staged file as an addition.
func (r *Repository) headTreeOrNil() (*object.Tree, error) {
	tree, err := r.headTree()
	if err != nil {
		if ge, ok := girerr.As(err); ok && ge.Kind == girerr.KindRepository {
			return nil, nil
		}
		return nil, err
	}
	return tree, nil
}

func (r *Repository) readIndexBlob(path string) ([]byte, bool) {
	idx, err := r.repo.Storer.Index()
	if err != nil {
		return nil, false
	}
	entry, err := idx.Entry(path)
	if err != nil {
		return nil, false
	}
	blob, err := r.repo.BlobObject(entry.Hash)
	if err != nil {
		return nil, false
	}
	content, err := blobContent(blob)
	if err != nil {
		return nil, false
	}
	return content, true
}

func (r *Repository) readWorktreeFile(wt *git.Worktree, path string) ([]byte, bool) {
	f, err := wt.Filesystem.Open(path)
	if err != nil {
		return nil, false
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, false
	}
	return data, true
}

func blobContent(blob *object.Blob) ([]byte, error) {
	r, err := blob.Reader()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// changesForCommit diffs commit's tree against its first parent's tree, or
// the empty tree for a root commit.
func (r *Repository) changesForCommit(commit *object.Commit) ([]FileChange, error) {
	tree, err := commit.Tree()
	if err != nil {
		return nil, girerr.New(girerr.KindRepository, "gitrepo.changesForCommit", "load tree", err)
	}
	var parentTree *object.Tree
	if commit.NumParents() > 0 {
		parent, err := commit.Parent(0)
		if err != nil {
			return nil, girerr.New(girerr.KindRepository, "gitrepo.changesForCommit", "load parent", err)
		}
		parentTree, err = parent.Tree()
		if err != nil {
			return nil, girerr.New(girerr.KindRepository, "gitrepo.changesForCommit", "load parent tree", err)
		}
	}
	return r.diffTrees("gitrepo.changesForCommit", parentTree, tree)
}

// diffTrees is the single place tree-to-tree diffs are computed and rendered
// into unified-diff text. Either tree may be nil, meaning the empty tree.
func (r *Repository) diffTrees(op string, from, to *object.Tree) ([]FileChange, error) {
	changes, err := object.DiffTree(from, to)
	if err != nil {
		return nil, girerr.New(girerr.KindRepository, op, "diff trees", err)
	}
	var out []FileChange
	for _, c := range changes {
		action, err := c.Action()
		if err != nil {
			continue
		}
		path := changePath(c)
		oldContent, oldOK := treeBlobContent(from, c.From.Name)
		newContent, newOK := treeBlobContent(to, c.To.Name)
		if r.policy(path, int64(max(len(oldContent), len(newContent)))) {
			out = append(out, FileChange{Path: path, Kind: actionKind(action), Diff: ExcludedMarker, ContentExcluded: true})
			continue
		}
		fc := FileChange{Path: path, Kind: actionKind(action)}
		if action == merkletrie.Modify && c.From.Name != "" && c.To.Name != "" && c.From.Name != c.To.Name {
			fc.Kind = ChangeRenamed
			fc.OldPath = c.From.Name
		}
		fc.Diff = r.renderDiff(path, oldContent, oldOK, newContent, newOK)
		fc.Content = attachContent(fc.Kind, fc.Diff, newContent, newOK)
		out = append(out, fc)
	}
	return out, nil
}

func changePath(c object.Change) string {
	if c.To.Name != "" {
		return c.To.Name
	}
	return c.From.Name
}

func treeBlobContent(tree *object.Tree, name string) ([]byte, bool) {
	if tree == nil || name == "" {
		return nil, false
	}
	entry, err := tree.FindEntry(name)
	if err != nil || entry.Mode == filemode.Submodule {
		return nil, false
	}
	blob, err := tree.Blob(name)
	if err != nil {
		return nil, false
	}
	content, err := blobContent(blob)
	if err != nil {
		return nil, false
	}
	return content, true
}

// renderDiff produces unified-diff text for one file's old/new content,
// substituting BinaryMarker when either side looks like binary data. It
// builds a line-level diff via diffmatchpatch's line-mode mapping (encode
// lines as runes, diff the rune sequences, decode back to lines) and formats
// the result as standard @@ hunks, since go-git's object.Patch output is not
// exposed as plain text the way `git diff` renders it.
func (r *Repository) renderDiff(path string, old []byte, oldOK bool, new []byte, newOK bool) string {
	if (oldOK && looksBinary(old)) || (newOK && looksBinary(new)) {
		return BinaryMarker
	}
	oldText, newText := "", ""
	if oldOK {
		oldText = string(old)
	}
	if newOK {
		newText = string(new)
	}
	if oldText == newText {
		return ""
	}
	oldEnc, newEnc, lines := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffMain(oldEnc, newEnc, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)
	diffs = dmp.DiffCleanupSemantic(diffs)
	return formatUnifiedDiff(path, diffs)
}

func looksBinary(b []byte) bool {
	if bytes.IndexByte(b, 0) != -1 {
		return true
	}
	n := len(b)
	if n > 8000 {
		n = 8000
	}
	return n > 0 && bytes.Count(b[:n], []byte{0}) > 0
}

// formatUnifiedDiff renders a diffmatchpatch line-diff as unified-diff hunks
// with 3 lines of context, matching `git diff`'s default.
func formatUnifiedDiff(path string, diffs []diffmatchpatch.Diff) string {
	const context = 3
	type opLine struct {
		kind byte // ' ', '-', '+'
		text string
	}
	var ops []opLine
	for _, d := range diffs {
		lines := splitKeepEmpty(d.Text)
		var mark byte
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			mark = ' '
		case diffmatchpatch.DiffDelete:
			mark = '-'
		case diffmatchpatch.DiffInsert:
			mark = '+'
		}
		for _, ln := range lines {
			ops = append(ops, opLine{kind: mark, text: ln})
		}
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "--- a/%s\n+++ b/%s\n", path, path)

	oldLine, newLine := 1, 1
	i := 0
	for i < len(ops) {
		if ops[i].kind == ' ' {
			oldLine++
			newLine++
			i++
			continue
		}
		// start of a change block: back up `context` equal lines already
		// consumed is implicit since we walk forward; collect this block.
		start := i
		oldStart, newStart := oldLine, newLine
		blockOldLines, blockNewLines := 0, 0
		for i < len(ops) && ops[i].kind != ' ' {
			if ops[i].kind == '-' {
				blockOldLines++
			} else {
				blockNewLines++
			}
			i++
		}
		// trailing context
		trailing := 0
		for trailing < context && i+trailing < len(ops) && ops[i+trailing].kind == ' ' {
			trailing++
		}
		leadStart := start
		leadCount := 0
		for leadCount < context && leadStart-1 >= 0 && ops[leadStart-1].kind == ' ' {
			leadStart--
			leadCount++
		}

		hunkOldStart := oldStart - leadCount
		hunkNewStart := newStart - leadCount
		hunkOldLen := leadCount + blockOldLines + trailing
		hunkNewLen := leadCount + blockNewLines + trailing

		fmt.Fprintf(&buf, "@@ -%d,%d +%d,%d @@\n", hunkOldStart, hunkOldLen, hunkNewStart, hunkNewLen)
		for _, op := range ops[leadStart:start] {
			fmt.Fprintf(&buf, " %s\n", op.text)
		}
		for _, op := range ops[start:i] {
			fmt.Fprintf(&buf, "%c%s\n", op.kind, op.text)
		}
		for _, op := range ops[i : i+trailing] {
			fmt.Fprintf(&buf, " %s\n", op.text)
		}

		oldLine = oldStart + blockOldLines + trailing
		newLine = newStart + blockNewLines + trailing
		i += trailing
	}
	return strings.TrimRight(buf.String(), "\n")
}

func splitKeepEmpty(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func actionKind(a merkletrie.Action) ChangeKind {
	switch a {
	case merkletrie.Insert:
		return ChangeAdded
	case merkletrie.Delete:
		return ChangeDeleted
	default:
		return ChangeModified
	}
}
