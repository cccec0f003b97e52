package artifact

import (
	"fmt"
	"regexp"
	"strings"
)

// ansiEscape strips color codes before CHANGELOG.md persistence, per
// spec.md §6 ("ANSI color codes are stripped before persistence").
var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// RenderMarkdown converts a ChangelogResponse into the Keep-a-Changelog-
// styled markdown block described in spec.md §6: a `## [VERSION] - DATE`
// heading, emoji-tagged subsections in the fixed order Added/Changed/
// Fixed/Removed/Deprecated/Security, and a trailing Metrics section.
func (c ChangelogResponse) RenderMarkdown() string {
	var b strings.Builder

	version := c.Version
	if version == "" {
		version = "Unreleased"
	}
	if c.ReleaseDate != "" {
		fmt.Fprintf(&b, "## [%s] - %s\n\n", version, c.ReleaseDate)
	} else {
		fmt.Fprintf(&b, "## [%s]\n\n", version)
	}

	for _, section := range changelogSectionOrder {
		entries := c.Sections[section]
		if len(entries) == 0 {
			continue
		}
		fmt.Fprintf(&b, "### %s %s\n\n", changelogSectionEmoji[section], section)
		for _, e := range entries {
			b.WriteString("- ")
			b.WriteString(e.Description)
			if len(e.CommitHashes) > 0 {
				fmt.Fprintf(&b, " (%s)", strings.Join(e.CommitHashes, ", "))
			}
			if len(e.Issues) > 0 {
				fmt.Fprintf(&b, " [%s]", strings.Join(e.Issues, ", "))
			}
			if e.PullRequest != "" {
				fmt.Fprintf(&b, " (%s)", e.PullRequest)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(c.BreakingChanges) > 0 {
		b.WriteString("### ⚠️ Breaking Changes\n\n")
		for _, bc := range c.BreakingChanges {
			b.WriteString("- ")
			b.WriteString(bc)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("### 📊 Metrics\n\n")
	fmt.Fprintf(&b, "- Total commits: %d\n", c.Metrics.TotalCommits)
	fmt.Fprintf(&b, "- Files changed: %d\n", c.Metrics.FilesChanged)
	fmt.Fprintf(&b, "- Insertions: %d\n", c.Metrics.Insertions)
	fmt.Fprintf(&b, "- Deletions: %d\n", c.Metrics.Deletions)
	fmt.Fprintf(&b, "- Total lines changed: %d\n", c.Metrics.TotalLinesChanged)

	return ansiEscape.ReplaceAllString(b.String(), "")
}

// InsertIntoChangelog splices a newly rendered block into an existing
// CHANGELOG.md's content, inserting above the first pre-existing `## [`
// heading so the file's Keep-a-Changelog header (title, "Unreleased" notes,
// etc.) is preserved, per spec.md §6.
func InsertIntoChangelog(existing, newBlock string) string {
	lines := strings.Split(existing, "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "## [") {
			head := strings.Join(lines[:i], "\n")
			tail := strings.Join(lines[i:], "\n")
			return strings.TrimRight(head, "\n") + "\n\n" + strings.TrimRight(newBlock, "\n") + "\n\n" + tail
		}
	}
	trimmed := strings.TrimRight(existing, "\n")
	if trimmed == "" {
		return strings.TrimRight(newBlock, "\n") + "\n"
	}
	return trimmed + "\n\n" + strings.TrimRight(newBlock, "\n") + "\n"
}
