package budget

import (
	"strings"

	gitctx "github.com/git-iris/gitiris/internal/context"
	"github.com/git-iris/gitiris/internal/gitrepo"
)

// MinSafetyBuffer is the lowest safety buffer the Budgeter will accept,
// per spec section 4.3 ("safety buffer >= 1000 tokens, configurable").
const MinSafetyBuffer = 1000

// TruncationMarker is appended to a rendered prompt that still exceeds its
// budget after every context element has been shrunk as far as this
// algorithm goes.
const TruncationMarker = "\n\n[... truncated: context exceeded provider token budget ...]"

// RenderFunc renders a CommitContext into the user-prompt text a capability
// would send to the model. Supplied by the caller (internal/capability)
// since prompt wording is capability-specific; the Budgeter only needs the
// rendered length to decide whether to keep shrinking.
type RenderFunc func(gitctx.CommitContext) string

// Budgeter counts and shrinks prompts to fit a provider's token limit.
type Budgeter struct {
	Counter      Counter
	SafetyBuffer int
}

// New returns a Budgeter with the default in-process Counter and the
// minimum safety buffer.
func New() *Budgeter {
	return &Budgeter{Counter: NewCounter(), SafetyBuffer: MinSafetyBuffer}
}

// Fit renders ctx via render, shrinking it against render until the result
// fits within providerLimit tokens after accounting for systemPrompt and
// the safety buffer. It returns the possibly-shrunk context, the final
// rendered user prompt, and whether a hard truncation marker was applied.
func (b *Budgeter) Fit(systemPrompt string, ctx gitctx.CommitContext, render RenderFunc, providerLimit int) (gitctx.CommitContext, string, bool) {
	safety := b.SafetyBuffer
	if safety < MinSafetyBuffer {
		safety = MinSafetyBuffer
	}
	systemTokens := b.Counter.Count(systemPrompt)
	contextBudget := providerLimit - systemTokens - safety
	if contextBudget < 0 {
		contextBudget = 0
	}

	shrunk := ctx
	rendered := render(shrunk)
	for b.Counter.Count(rendered) > contextBudget {
		next, changed := dropLowestPriority(shrunk)
		if !changed {
			break
		}
		shrunk = next
		rendered = render(shrunk)
	}

	if b.Counter.Count(rendered) <= contextBudget {
		return shrunk, rendered, false
	}
	return shrunk, hardTruncate(rendered, contextBudget), true
}

// dropLowestPriority removes one unit of the lowest-priority context
// element still present, per spec section 4.3's priority order (highest
// kept first): branch, user identity, staged file count, per-file diffs
// (largest first), recent commits (oldest first), README. Branch and user
// identity are scalar metadata, not shrinkable, so they are never touched
// here — they simply cost a near-fixed, small number of tokens.
func dropLowestPriority(ctx gitctx.CommitContext) (gitctx.CommitContext, bool) {
	if ctx.README != "" {
		ctx.README = ""
		return ctx, true
	}
	if len(ctx.RecentCommits) > 0 {
		ctx.RecentCommits = ctx.RecentCommits[:len(ctx.RecentCommits)-1]
		return ctx, true
	}
	if idx, ok := largestFileIndex(ctx.Files); ok {
		trimmed, fullyDropped := shrinkFileDiff(ctx.Files[idx])
		if fullyDropped {
			ctx.Files = append(append([]gitrepo.FileChange{}, ctx.Files[:idx]...), ctx.Files[idx+1:]...)
		} else {
			files := append([]gitrepo.FileChange{}, ctx.Files...)
			files[idx] = trimmed
			ctx.Files = files
		}
		return ctx, true
	}
	return ctx, false
}

// largestFileIndex returns the index of the file with the longest diff
// text among files that still carry shrinkable content (a non-empty,
// non-sentinel diff), so the priority order drops the biggest offender
// first.
func largestFileIndex(files []gitrepo.FileChange) (int, bool) {
	best := -1
	bestLen := -1
	for i, f := range files {
		if !shrinkable(f.Diff) {
			continue
		}
		if len(f.Diff) > bestLen {
			best = i
			bestLen = len(f.Diff)
		}
	}
	return best, best >= 0
}

func shrinkable(diff string) bool {
	return diff != "" && diff != gitrepo.ExcludedMarker && diff != gitrepo.BinaryMarker
}

// shrinkFileDiff halves a file's diff text, preserving the --- /+++ header
// lines so the file's identity stays visible per spec section 4.3, and
// reports fullyDropped once there is nothing meaningful left to trim.
func shrinkFileDiff(f gitrepo.FileChange) (gitrepo.FileChange, bool) {
	lines := strings.Split(f.Diff, "\n")
	var header, body []string
	for _, ln := range lines {
		if strings.HasPrefix(ln, "---") || strings.HasPrefix(ln, "+++") {
			header = append(header, ln)
		} else {
			body = append(body, ln)
		}
	}
	if len(body) <= 4 {
		return gitrepo.FileChange{}, true
	}
	keep := len(body) / 2
	if keep < 2 {
		keep = 2
	}
	newBody := append(body[:keep], "[... diff truncated ...]")
	f.Diff = strings.Join(append(header, newBody...), "\n")
	return f, false
}

func hardTruncate(rendered string, budgetTokens int) string {
	// 4 chars/token inverse of the Counter's own heuristic, so the
	// truncation point is consistent with how the budget was computed.
	maxChars := budgetTokens * 4
	if maxChars < 0 {
		maxChars = 0
	}
	if len(rendered) <= maxChars {
		return rendered + TruncationMarker
	}
	return rendered[:maxChars] + TruncationMarker
}
