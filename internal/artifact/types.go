// Package artifact implements the Artifact Parser/Coercer: the five
// StructuredResponse variants, the five-step parse/coercion ladder that
// extracts one from a model's raw final text (spec.md §4.6), and the
// Keep-a-Changelog markdown formatter for ChangelogResponse.
package artifact

// CommitMessage is the structured answer for the Commit capability.
type CommitMessage struct {
	Emoji string `json:"emoji,omitempty"`
	Title string `json:"title"`
	Body  string `json:"body,omitempty"`
}

// Render serializes a CommitMessage per spec.md §6 as "{emoji} {title}\n\n{body}":
// the emoji and its separating space are omitted when the emoji is empty,
// and the blank line and body are omitted when the body is empty.
func (c CommitMessage) Render() string {
	title := c.Title
	if c.Emoji != "" {
		title = c.Emoji + " " + title
	}
	if c.Body == "" {
		return title
	}
	return title + "\n\n" + c.Body
}

// PullRequest is the structured answer for the PullRequest capability.
type PullRequest struct {
	Title            string   `json:"title"`
	Summary          string   `json:"summary"`
	Changes          string   `json:"changes"`
	Testing          string   `json:"testing"`
	BreakingChanges  string   `json:"breaking_changes,omitempty"`
	AffectedAreas    []string `json:"affected_areas,omitempty"`
}

// ChangelogType is one Keep-a-Changelog section.
type ChangelogType string

const (
	ChangelogAdded      ChangelogType = "Added"
	ChangelogChanged    ChangelogType = "Changed"
	ChangelogDeprecated ChangelogType = "Deprecated"
	ChangelogRemoved    ChangelogType = "Removed"
	ChangelogFixed      ChangelogType = "Fixed"
	ChangelogSecurity   ChangelogType = "Security"
)

// changelogSectionOrder is the fixed rendering order required by spec.md
// §6, which differs from ChangelogType's declaration order above (that
// order follows the data model in spec.md §3; this one follows the
// markdown rendering rule in §6).
var changelogSectionOrder = []ChangelogType{
	ChangelogAdded, ChangelogChanged, ChangelogFixed,
	ChangelogRemoved, ChangelogDeprecated, ChangelogSecurity,
}

var changelogSectionEmoji = map[ChangelogType]string{
	ChangelogAdded:      "✨",
	ChangelogChanged:    "🔄",
	ChangelogFixed:      "🐛",
	ChangelogRemoved:    "🗑️",
	ChangelogDeprecated: "⚠️",
	ChangelogSecurity:   "🔒",
}

// ChangelogEntry is one bullet under a ChangelogType section.
type ChangelogEntry struct {
	Description   string   `json:"description"`
	CommitHashes  []string `json:"commit_hashes,omitempty"`
	Issues        []string `json:"issues,omitempty"`
	PullRequest   string   `json:"pull_request,omitempty"`
}

// ChangelogMetrics are the aggregate counts appended to every rendered
// changelog block.
type ChangelogMetrics struct {
	TotalCommits     int `json:"total_commits"`
	FilesChanged     int `json:"files_changed"`
	Insertions       int `json:"insertions"`
	Deletions        int `json:"deletions"`
	TotalLinesChanged int `json:"total_lines_changed"`
}

// ChangelogResponse is the structured answer for the Changelog capability.
type ChangelogResponse struct {
	Version         string                                 `json:"version,omitempty"`
	ReleaseDate     string                                 `json:"release_date,omitempty"`
	Sections        map[ChangelogType][]ChangelogEntry      `json:"sections"`
	BreakingChanges []string                                `json:"breaking_changes,omitempty"`
	Metrics         ChangelogMetrics                        `json:"metrics"`
}

// ReleaseNotesSection is one ordered, titled group of items in release notes.
type ReleaseNotesSection struct {
	Title string   `json:"title"`
	Items []string `json:"items"`
}

// ReleaseNotesResponse is the structured answer for the ReleaseNotes
// capability.
type ReleaseNotesResponse struct {
	Version         string                 `json:"version,omitempty"`
	Summary         string                 `json:"summary"`
	Highlights      []string               `json:"highlights,omitempty"`
	Sections        []ReleaseNotesSection  `json:"sections,omitempty"`
	BreakingChanges []string               `json:"breaking_changes,omitempty"`
	UpgradeNotes    []string               `json:"upgrade_notes,omitempty"`
	Metrics         ChangelogMetrics       `json:"metrics"`
}
