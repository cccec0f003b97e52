// Package capability holds the dispatch table the original implementation's
// single mutable IrisAgent is replaced with (spec.md §9): a closed map from
// each Capability kind to the four pieces of behavior that differ between
// them — system prompt, user prompt, response schema, and final decoder.
// internal/agentrt stays capability-agnostic, and internal/context only
// chooses which git slice each kind needs; this package is the only place
// that knows what Commit/Review/PullRequest/Changelog/ReleaseNotes actually
// want from the model.
package capability

import (
	"fmt"
	"strings"

	"github.com/git-iris/gitiris/internal/artifact"
	gitctx "github.com/git-iris/gitiris/internal/context"
	"github.com/git-iris/gitiris/internal/girerr"
	"github.com/git-iris/gitiris/internal/gitrepo"
	"github.com/git-iris/gitiris/internal/instructionpresets"
)

// Options carries the run-level settings a prompt builder needs beyond the
// assembled CommitContext, per spec.md §6's Configuration shape.
type Options struct {
	UseGitmoji   bool
	Instructions string
	Preset       instructionpresets.Preset
}

// SystemPromptBuilder renders the system prompt for one capability.
type SystemPromptBuilder func(cap gitctx.Capability, opts Options) string

// UserPromptBuilder renders the user prompt from the assembled context.
type UserPromptBuilder func(ctx gitctx.CommitContext, cap gitctx.Capability) string

// Decoder turns the Agent Runtime's final raw text into the artifact's
// persisted string form: JSON-coerced-then-rendered for structured
// artifacts, passed through unchanged for markdown-only ones (Review), per
// spec.md §4.6 ("For markdown artifacts (Review) the text is returned
// as-is").
type Decoder func(raw string) (string, error)

// Entry is one row of the dispatch table.
type Entry struct {
	SystemPrompt SystemPromptBuilder
	UserPrompt   UserPromptBuilder
	Schema       map[string]any // nil when the artifact is markdown, not JSON
	Decode       Decoder
}

var table map[gitctx.CapabilityKind]Entry

func init() {
	table = map[gitctx.CapabilityKind]Entry{
		gitctx.CapabilityCommit: {
			SystemPrompt: commitSystemPrompt,
			UserPrompt:   commitUserPrompt,
			Schema:       commitSchema,
			Decode:       decodeCommit,
		},
		gitctx.CapabilityReview: {
			SystemPrompt: reviewSystemPrompt,
			UserPrompt:   reviewUserPrompt,
			Schema:       nil,
			Decode:       passthroughMarkdown,
		},
		gitctx.CapabilityPullRequest: {
			SystemPrompt: pullRequestSystemPrompt,
			UserPrompt:   pullRequestUserPrompt,
			Schema:       pullRequestSchema,
			Decode:       decodePullRequest,
		},
		gitctx.CapabilityChangelog: {
			SystemPrompt: changelogSystemPrompt,
			UserPrompt:   changelogUserPrompt,
			Schema:       changelogSchema,
			Decode:       decodeChangelog,
		},
		gitctx.CapabilityReleaseNotes: {
			SystemPrompt: releaseNotesSystemPrompt,
			UserPrompt:   releaseNotesUserPrompt,
			Schema:       releaseNotesSchema,
			Decode:       decodeReleaseNotes,
		},
	}
}

// Lookup returns the dispatch entry for kind, or a girerr.KindConfiguration
// error for anything outside the closed set spec.md §3 defines.
func Lookup(kind gitctx.CapabilityKind) (Entry, error) {
	e, ok := table[kind]
	if !ok {
		return Entry{}, girerr.New(girerr.KindConfiguration, "capability.Lookup",
			fmt.Sprintf("unknown capability %q", kind), nil)
	}
	return e, nil
}

// --- shared rendering helpers ---

func basePreamble(opts Options) string {
	var b strings.Builder
	if opts.Preset.Instructions != "" {
		b.WriteString(opts.Preset.Instructions)
		b.WriteString("\n\n")
	}
	if opts.Instructions != "" {
		b.WriteString(opts.Instructions)
		b.WriteString("\n\n")
	}
	return b.String()
}

func renderFiles(files []gitrepo.FileChange) string {
	var b strings.Builder
	for _, f := range files {
		if f.Kind == gitrepo.ChangeRenamed && f.OldPath != "" {
			fmt.Fprintf(&b, "--- %s -> %s (%s) ---\n", f.OldPath, f.Path, f.Kind)
		} else {
			fmt.Fprintf(&b, "--- %s (%s) ---\n", f.Path, f.Kind)
		}
		b.WriteString(f.Diff)
		b.WriteString("\n\n")
		if f.Content != nil {
			fmt.Fprintf(&b, "--- %s (full content) ---\n", f.Path)
			b.WriteString(*f.Content)
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

func renderRecentCommits(commits []gitctx.RecentCommit) string {
	var b strings.Builder
	for _, c := range commits {
		fmt.Fprintf(&b, "- %s %s (%s)\n", shortHash(c.Hash), c.Message, c.Author)
	}
	return b.String()
}

func shortHash(h string) string {
	if len(h) > 7 {
		return h[:7]
	}
	return h
}

// --- Commit ---

var commitSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"emoji": map[string]any{"type": "string"},
		"title": map[string]any{"type": "string"},
		"body":  map[string]any{"type": "string"},
	},
	"required":             []string{"emoji", "title", "body"},
	"additionalProperties": false,
}

func commitSystemPrompt(cap gitctx.Capability, opts Options) string {
	var b strings.Builder
	b.WriteString(basePreamble(opts))
	b.WriteString("You write git commit messages from a staged diff. ")
	b.WriteString("Respond with JSON matching {emoji, title, body}. ")
	b.WriteString("title is a single imperative-mood subject line, at most 50 characters, ")
	b.WriteString("with no trailing period. body is optional and may be empty. ")
	if opts.UseGitmoji {
		b.WriteString("Pick an emoji summarizing the dominant change type; leave it empty if none fits.")
	} else {
		b.WriteString("Leave emoji empty; gitmoji is disabled for this repository.")
	}
	return b.String()
}

func commitUserPrompt(ctx gitctx.CommitContext, cap gitctx.Capability) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Branch: %s\nAuthor: %s <%s>\n\n", ctx.Branch, ctx.UserName, ctx.UserEmail)
	b.WriteString("Recent commits:\n")
	b.WriteString(renderRecentCommits(ctx.RecentCommits))
	b.WriteString("\nStaged changes:\n\n")
	b.WriteString(renderFiles(ctx.Files))
	return b.String()
}

func decodeCommit(raw string) (string, error) {
	var cm artifact.CommitMessage
	if err := artifact.Parse(raw, &cm, commitSchema); err != nil {
		return "", err
	}
	return cm.Render(), nil
}

// --- Review ---

func reviewSystemPrompt(cap gitctx.Capability, opts Options) string {
	var b strings.Builder
	b.WriteString(basePreamble(opts))
	b.WriteString("You review a git diff and respond with markdown containing exactly these H2 ")
	b.WriteString("sections, in this order: Summary, Key Findings, Detailed Analysis, Recommendations. ")
	b.WriteString("Tag findings inline with one of [CRITICAL] [HIGH] [MEDIUM] [LOW].")
	return b.String()
}

func reviewUserPrompt(ctx gitctx.CommitContext, cap gitctx.Capability) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Branch: %s\n\n", ctx.Branch)
	if cap.CommitID != "" {
		fmt.Fprintf(&b, "Reviewing commit %s\n\n", cap.CommitID)
	} else if cap.ReviewFrom != "" {
		fmt.Fprintf(&b, "Reviewing %s..%s\n\n", cap.ReviewFrom, cap.ReviewTo)
	}
	b.WriteString(renderFiles(ctx.Files))
	return b.String()
}

func passthroughMarkdown(raw string) (string, error) {
	return raw, nil
}

// --- PullRequest ---

var pullRequestSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"title":            map[string]any{"type": "string"},
		"summary":          map[string]any{"type": "string"},
		"changes":          map[string]any{"type": "string"},
		"testing":          map[string]any{"type": "string"},
		"breaking_changes": map[string]any{"type": "string"},
		"affected_areas":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
	},
	"required":             []string{"title", "summary", "changes", "testing", "breaking_changes", "affected_areas"},
	"additionalProperties": false,
}

func pullRequestSystemPrompt(cap gitctx.Capability, opts Options) string {
	var b strings.Builder
	b.WriteString(basePreamble(opts))
	b.WriteString("You write a pull request description from a range of commits. Respond with JSON ")
	b.WriteString("matching {title, summary, changes, testing, breaking_changes, affected_areas}. ")
	b.WriteString("breaking_changes is an empty string when there are none.")
	return b.String()
}

func pullRequestUserPrompt(ctx gitctx.CommitContext, cap gitctx.Capability) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Base: %s\nHead: %s\n\n", orDefault(cap.PRBase, "main"), orDefault(cap.PRHead, "HEAD"))
	b.WriteString("Commits:\n")
	b.WriteString(renderRecentCommits(ctx.RecentCommits))
	b.WriteString("\nChanges:\n\n")
	b.WriteString(renderFiles(ctx.Files))
	return b.String()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func decodePullRequest(raw string) (string, error) {
	var pr artifact.PullRequest
	if err := artifact.Parse(raw, &pr, pullRequestSchema); err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "## Summary\n\n%s\n\n## Changes\n\n%s\n\n## Testing\n\n%s\n", pr.Summary, pr.Changes, pr.Testing)
	if pr.BreakingChanges != "" {
		fmt.Fprintf(&b, "\n## Breaking Changes\n\n%s\n", pr.BreakingChanges)
	}
	return b.String(), nil
}

// --- Changelog ---

var changelogEntrySchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"description":   map[string]any{"type": "string"},
		"commit_hashes": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"issues":        map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"pull_request":  map[string]any{"type": "string"},
	},
	"required":             []string{"description", "commit_hashes", "issues", "pull_request"},
	"additionalProperties": false,
}

var changelogSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"version":          map[string]any{"type": "string"},
		"release_date":     map[string]any{"type": "string"},
		"sections":         map[string]any{"type": "object"},
		"breaking_changes": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"metrics":          map[string]any{"type": "object"},
	},
	"required":             []string{"version", "release_date", "sections", "breaking_changes", "metrics"},
	"additionalProperties": false,
}

func changelogSystemPrompt(cap gitctx.Capability, opts Options) string {
	var b strings.Builder
	b.WriteString(basePreamble(opts))
	b.WriteString("You summarize a range of commits into a changelog. Respond with JSON matching ")
	b.WriteString("{version, release_date, sections, breaking_changes, metrics}, where sections is an ")
	b.WriteString("object keyed by one of Added, Changed, Deprecated, Removed, Fixed, Security, each value ")
	b.WriteString("an array of {description, commit_hashes, issues, pull_request}. metrics carries ")
	b.WriteString("total_commits, files_changed, insertions, deletions, total_lines_changed.")
	return b.String()
}

func changelogUserPrompt(ctx gitctx.CommitContext, cap gitctx.Capability) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Range: %s..%s\n\n", cap.From, orDefault(cap.To, "HEAD"))
	b.WriteString("Commits:\n")
	b.WriteString(renderRecentCommits(ctx.RecentCommits))
	b.WriteString("\nChanges:\n\n")
	b.WriteString(renderFiles(ctx.Files))
	return b.String()
}

func decodeChangelog(raw string) (string, error) {
	var resp artifact.ChangelogResponse
	if err := artifact.Parse(raw, &resp, changelogSchema); err != nil {
		return "", err
	}
	return resp.RenderMarkdown(), nil
}

// --- ReleaseNotes ---

var releaseNotesSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"version":          map[string]any{"type": "string"},
		"summary":          map[string]any{"type": "string"},
		"highlights":       map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"sections":         map[string]any{"type": "array"},
		"breaking_changes": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"upgrade_notes":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"metrics":          map[string]any{"type": "object"},
	},
	"required": []string{
		"version", "summary", "highlights", "sections",
		"breaking_changes", "upgrade_notes", "metrics",
	},
	"additionalProperties": false,
}

func releaseNotesSystemPrompt(cap gitctx.Capability, opts Options) string {
	var b strings.Builder
	b.WriteString(basePreamble(opts))
	b.WriteString("You write release notes from a range of commits. Respond with JSON matching ")
	b.WriteString("{version, summary, highlights, sections, breaking_changes, upgrade_notes, metrics}, ")
	b.WriteString("where sections is an array of {title, items}.")
	return b.String()
}

func releaseNotesUserPrompt(ctx gitctx.CommitContext, cap gitctx.Capability) string {
	return changelogUserPrompt(ctx, cap)
}

func decodeReleaseNotes(raw string) (string, error) {
	var resp artifact.ReleaseNotesResponse
	if err := artifact.Parse(raw, &resp, releaseNotesSchema); err != nil {
		return "", err
	}
	var b strings.Builder
	version := resp.Version
	if version == "" {
		version = "Unreleased"
	}
	fmt.Fprintf(&b, "# %s\n\n%s\n", version, resp.Summary)
	if len(resp.Highlights) > 0 {
		b.WriteString("\n## Highlights\n\n")
		for _, h := range resp.Highlights {
			fmt.Fprintf(&b, "- %s\n", h)
		}
	}
	for _, s := range resp.Sections {
		fmt.Fprintf(&b, "\n## %s\n\n", s.Title)
		for _, item := range s.Items {
			fmt.Fprintf(&b, "- %s\n", item)
		}
	}
	if len(resp.BreakingChanges) > 0 {
		b.WriteString("\n## Breaking Changes\n\n")
		for _, bc := range resp.BreakingChanges {
			fmt.Fprintf(&b, "- %s\n", bc)
		}
	}
	if len(resp.UpgradeNotes) > 0 {
		b.WriteString("\n## Upgrade Notes\n\n")
		for _, u := range resp.UpgradeNotes {
			fmt.Fprintf(&b, "- %s\n", u)
		}
	}
	fmt.Fprintf(&b, "\n## Metrics\n\n- Total commits: %d\n- Files changed: %d\n- Insertions: %d\n- Deletions: %d\n- Total lines changed: %d\n",
		resp.Metrics.TotalCommits, resp.Metrics.FilesChanged, resp.Metrics.Insertions, resp.Metrics.Deletions, resp.Metrics.TotalLinesChanged)
	return b.String(), nil
}
