package toolsurface

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/git-iris/gitiris/internal/codesearch"
	"github.com/git-iris/gitiris/internal/girerr"
	"github.com/git-iris/gitiris/internal/gitrepo"
	"github.com/git-iris/gitiris/internal/scratchpad"
)

const (
	fileReadDefaultWindow = 500
	fileReadMaxWindow     = 1000
	fileReadMaxBytes      = 8000
	projectDocsDefault    = 5000
	projectDocsCap        = 20000
)

// ContentUpdate is the payload pushed by artifact-emit tools over an
// unbounded channel so a TUI consuming partial artifacts can render
// streaming progress. Send failure is reported to the tool caller but
// never aborts the agent.
type ContentUpdate struct {
	Kind    string `json:"kind"`
	Emoji   string `json:"emoji,omitempty"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content"`
}

// Sink receives ContentUpdate events. Implementations must not block for
// long; the runtime treats a Send failure as a tool error, not a fatal one.
type Sink interface {
	Send(ContentUpdate) error
}

// RegisterStandard registers the spec-mandated tool set (git_status,
// file_read, code_search, project_docs, workspace) plus the optional
// artifact-emit tools, against repo and pad.
func RegisterStandard(r *Registry, repo *gitrepo.Repository, pad *scratchpad.State, sink Sink) error {
	if err := registerGitStatus(r, repo); err != nil {
		return err
	}
	if err := registerFileRead(r, repo); err != nil {
		return err
	}
	if err := registerCodeSearch(r, repo); err != nil {
		return err
	}
	if err := registerProjectDocs(r, repo); err != nil {
		return err
	}
	if err := registerWorkspace(r, pad); err != nil {
		return err
	}
	if sink != nil {
		if err := registerArtifactEmit(r, sink); err != nil {
			return err
		}
	}
	return nil
}

// --- git_status ---

type gitStatusArgs struct {
	RecentCommitCount int `json:"recent_commit_count" desc:"how many recent commits to include, default 5"`
}

func registerGitStatus(r *Registry, repo *gitrepo.Repository) error {
	return r.Register("git_status", "Reports the current branch, staged/unstaged file counts, and recent commits.",
		reflect.TypeOf(gitStatusArgs{}), 2*time.Second,
		func(ctx context.Context, raw []byte) (string, error) {
			var args gitStatusArgs
			_ = json.Unmarshal(raw, &args)
			n := args.RecentCommitCount
			if n <= 0 {
				n = 5
			}
			branch, err := repo.CurrentBranch()
			if err != nil {
				return "", girerr.New(girerr.KindTool, "toolsurface.git_status", "resolve current branch", err)
			}
			staged, err := repo.StagedDiff()
			if err != nil {
				return "", girerr.New(girerr.KindTool, "toolsurface.git_status", "list staged changes", err)
			}
			unstaged, err := repo.UnstagedDiff()
			if err != nil {
				return "", girerr.New(girerr.KindTool, "toolsurface.git_status", "list unstaged changes", err)
			}
			commits, err := repo.RecentCommits(n)
			if err != nil {
				return "", girerr.New(girerr.KindTool, "toolsurface.git_status", "list recent commits", err)
			}
			return prettyJSON(map[string]any{
				"branch":         branch,
				"staged_count":   len(staged),
				"unstaged_count": len(unstaged),
				"recent_commits": commits,
			})
		})
}

// --- file_read ---

type fileReadArgs struct {
	Path      string `json:"path" desc:"path relative to the repository root"`
	StartLine int    `json:"start_line" desc:"1-based line to start from, default 1"`
	NumLines  int    `json:"num_lines" desc:"number of lines to return, default 500, max 1000"`
}

func registerFileRead(r *Registry, repo *gitrepo.Repository) error {
	return r.Register("file_read", "Reads a text file from the repository, with a bounded line window.",
		reflect.TypeOf(fileReadArgs{}), 2*time.Second,
		func(ctx context.Context, raw []byte) (string, error) {
			var args fileReadArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return "", girerr.New(girerr.KindParse, "toolsurface.file_read", "decode arguments", err)
			}
			return readFileWindow(repo, args)
		})
}

// readFileWindow implements spec.md's path-safety contract: reject absolute
// paths, resolve relative to the repo root, canonicalize, and require the
// canonicalized path to still lie inside the canonicalized repo root
// (symlink-escape prevention, invariant 4 of section 8).
func readFileWindow(repo *gitrepo.Repository, args fileReadArgs) (string, error) {
	if filepath.IsAbs(args.Path) {
		return "", girerr.New(girerr.KindTool, "toolsurface.file_read", "path must be relative to the repository root", nil)
	}
	root, err := filepath.EvalSymlinks(repo.Root())
	if err != nil {
		return "", girerr.New(girerr.KindTool, "toolsurface.file_read", "canonicalize repository root", err)
	}
	joined := filepath.Join(root, args.Path)
	resolved, err := filepath.EvalSymlinks(joined)
	if err != nil {
		resolved = filepath.Clean(joined)
	}
	rel, err := filepath.Rel(root, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", girerr.New(girerr.KindTool, "toolsurface.file_read", "path escapes repository root", nil)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", girerr.New(girerr.KindTool, "toolsurface.file_read", "read file", err)
	}
	if looksBinary(data, args.Path) {
		return "", girerr.New(girerr.KindTool, "toolsurface.file_read", "file appears to be binary", nil)
	}

	lines := strings.Split(string(data), "\n")
	start := args.StartLine
	if start <= 0 {
		start = 1
	}
	count := args.NumLines
	if count <= 0 {
		count = fileReadDefaultWindow
	}
	if count > fileReadMaxWindow {
		count = fileReadMaxWindow
	}

	if start > len(lines) {
		return prettyJSON(map[string]any{"path": args.Path, "lines": []string{}, "truncated": false})
	}

	end := start - 1 + count
	truncated := false
	if end < len(lines) {
		truncated = true
	} else {
		end = len(lines)
	}
	window := lines[start-1 : end]

	var b strings.Builder
	for i, ln := range window {
		fmt.Fprintf(&b, "%6d | %s\n", start+i, ln)
	}
	if truncated {
		fmt.Fprintf(&b, "… %d more lines\n", len(lines)-end)
	}
	return b.String(), nil
}

func looksBinary(data []byte, path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".ico", ".pdf", ".zip", ".gz", ".exe", ".bin":
		return true
	}
	window := data
	if len(window) > fileReadMaxBytes {
		window = window[:fileReadMaxBytes]
	}
	for _, b := range window {
		if b == 0 {
			return true
		}
	}
	return false
}

// --- code_search ---

type codeSearchArgs struct {
	Query       string `json:"query" desc:"text or pattern to search for"`
	SearchType  string `json:"search_type" enum:"Function|Class|Variable|Text|Pattern"`
	FilePattern string `json:"file_pattern" desc:"optional glob restricting files searched"`
	MaxResults  int    `json:"max_results" desc:"cap on returned results, default/max 100"`
}

func registerCodeSearch(r *Registry, repo *gitrepo.Repository) error {
	return r.Register("code_search", "Searches repository source for a function, class, variable, text, or regex pattern.",
		reflect.TypeOf(codeSearchArgs{}), 10*time.Second,
		func(ctx context.Context, raw []byte) (string, error) {
			var args codeSearchArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return "", girerr.New(girerr.KindParse, "toolsurface.code_search", "decode arguments", err)
			}
			results, err := codesearch.Search(ctx, repo.Root(), codesearch.Query{
				Text:        args.Query,
				SearchType:  codesearch.SearchType(args.SearchType),
				FilePattern: args.FilePattern,
				MaxResults:  args.MaxResults,
			})
			if err != nil {
				return "", girerr.New(girerr.KindTool, "toolsurface.code_search", "run search", err)
			}
			return prettyJSON(map[string]any{"results": results})
		})
}

// --- project_docs ---

type projectDocsArgs struct {
	DocType  string `json:"doc_type" enum:"Readme|Contributing|Changelog|License|CodeOfConduct|All"`
	MaxChars int    `json:"max_chars" desc:"truncation limit, default 5000, cap 20000"`
}

var wellKnownDocs = map[string][]string{
	"Readme":        {"README.md", "README", "readme.md"},
	"Contributing":  {"CONTRIBUTING.md", "CONTRIBUTING"},
	"Changelog":     {"CHANGELOG.md", "CHANGELOG"},
	"License":       {"LICENSE", "LICENSE.md", "LICENSE.txt"},
	"CodeOfConduct": {"CODE_OF_CONDUCT.md", "CODE_OF_CONDUCT"},
}

func registerProjectDocs(r *Registry, repo *gitrepo.Repository) error {
	return r.Register("project_docs", "Reads a well-known project document (README, CONTRIBUTING, CHANGELOG, LICENSE, CODE_OF_CONDUCT), truncated to max_chars.",
		reflect.TypeOf(projectDocsArgs{}), 2*time.Second,
		func(ctx context.Context, raw []byte) (string, error) {
			var args projectDocsArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return "", girerr.New(girerr.KindParse, "toolsurface.project_docs", "decode arguments", err)
			}
			max := args.MaxChars
			if max <= 0 {
				max = projectDocsDefault
			}
			if max > projectDocsCap {
				max = projectDocsCap
			}

			docType := args.DocType
			if docType == "" {
				docType = "Readme"
			}
			types := []string{docType}
			if docType == "All" {
				types = []string{"Readme", "Contributing", "Changelog", "License", "CodeOfConduct"}
			}

			out := map[string]any{}
			for _, t := range types {
				content, found := findWellKnownDoc(repo.Root(), wellKnownDocs[t])
				if !found {
					continue
				}
				out[t] = truncateWithMarker(content, max)
			}
			return prettyJSON(out)
		})
}

func findWellKnownDoc(root string, candidates []string) (string, bool) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", false
	}
	byLower := map[string]string{}
	for _, e := range entries {
		if !e.IsDir() {
			byLower[strings.ToLower(e.Name())] = e.Name()
		}
	}
	for _, c := range candidates {
		if name, ok := byLower[strings.ToLower(c)]; ok {
			data, err := os.ReadFile(filepath.Join(root, name))
			if err == nil {
				return string(data), true
			}
		}
	}
	return "", false
}

func truncateWithMarker(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n[... truncated ...]"
}

// --- workspace (scratchpad) ---

type workspaceArgs struct {
	Action    string `json:"action" enum:"AddNote|AddTask|UpdateTask|GetSummary"`
	Content   string `json:"content" desc:"note text or task description"`
	Priority  string `json:"priority" enum:"Low|Medium|High|Critical"`
	TaskIndex int    `json:"task_index" desc:"0-based index of the task to update"`
	Status    string `json:"status" enum:"Pending|InProgress|Completed|Blocked"`
}

func registerWorkspace(r *Registry, pad *scratchpad.State) error {
	return r.Register("workspace", "Manages the agent's private scratchpad: notes and a bounded task list.",
		reflect.TypeOf(workspaceArgs{}), 2*time.Second,
		func(ctx context.Context, raw []byte) (string, error) {
			var args workspaceArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return "", girerr.New(girerr.KindParse, "toolsurface.workspace", "decode arguments", err)
			}
			switch args.Action {
			case "AddNote":
				return prettyJSON(pad.AddNote(args.Content))
			case "AddTask":
				return prettyJSON(pad.AddTask(args.Content, scratchpad.Priority(args.Priority)))
			case "UpdateTask":
				sum, err := pad.UpdateTask(args.TaskIndex, scratchpad.TaskStatus(args.Status))
				if err != nil {
					return "", err
				}
				return prettyJSON(sum)
			case "GetSummary":
				return prettyJSON(pad.GetSummary())
			default:
				return "", girerr.New(girerr.KindTool, "toolsurface.workspace", "unknown action "+args.Action, nil)
			}
		})
}

// --- artifact-emit tools ---

type updateCommitArgs struct {
	Emoji   string `json:"emoji" desc:"optional gitmoji prefix"`
	Title   string `json:"title" desc:"commit subject line"`
	Message string `json:"message" desc:"optional commit body"`
}

type updateContentArgs struct {
	Content string `json:"content" desc:"rendered markdown or text content"`
}

func registerArtifactEmit(r *Registry, sink Sink) error {
	if err := r.Register("update_commit", "Streams a partial commit message artifact to the consuming TUI.",
		reflect.TypeOf(updateCommitArgs{}), time.Second,
		func(ctx context.Context, raw []byte) (string, error) {
			var args updateCommitArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return "", girerr.New(girerr.KindParse, "toolsurface.update_commit", "decode arguments", err)
			}
			if err := sink.Send(ContentUpdate{Kind: "commit", Emoji: args.Emoji, Title: args.Title, Content: args.Message}); err != nil {
				return "", girerr.New(girerr.KindTool, "toolsurface.update_commit", "send content update", err)
			}
			return prettyJSON(map[string]any{"sent": true})
		}); err != nil {
		return err
	}
	if err := r.Register("update_pr", "Streams partial pull-request content to the consuming TUI.",
		reflect.TypeOf(updateContentArgs{}), time.Second,
		func(ctx context.Context, raw []byte) (string, error) {
			var args updateContentArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return "", girerr.New(girerr.KindParse, "toolsurface.update_pr", "decode arguments", err)
			}
			if err := sink.Send(ContentUpdate{Kind: "pr", Content: args.Content}); err != nil {
				return "", girerr.New(girerr.KindTool, "toolsurface.update_pr", "send content update", err)
			}
			return prettyJSON(map[string]any{"sent": true})
		}); err != nil {
		return err
	}
	return r.Register("update_review", "Streams partial review content to the consuming TUI.",
		reflect.TypeOf(updateContentArgs{}), time.Second,
		func(ctx context.Context, raw []byte) (string, error) {
			var args updateContentArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return "", girerr.New(girerr.KindParse, "toolsurface.update_review", "decode arguments", err)
			}
			if err := sink.Send(ContentUpdate{Kind: "review", Content: args.Content}); err != nil {
				return "", girerr.New(girerr.KindTool, "toolsurface.update_review", "send content update", err)
			}
			return prettyJSON(map[string]any{"sent": true})
		})
}

func prettyJSON(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", girerr.New(girerr.KindTool, "toolsurface.prettyJSON", "marshal tool result", err)
	}
	return string(b), nil
}
