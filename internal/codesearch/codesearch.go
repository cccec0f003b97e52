// Package codesearch implements the ripgrep-backed code_search tool, with a
// pure-Go fallback when rg is not on PATH so the tool degrades instead of
// failing the whole run.
package codesearch

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/git-iris/gitiris/internal/girerr"
)

// SearchType maps to a type-aware regex per spec.md's search_type table.
type SearchType string

const (
	TypeFunction SearchType = "Function"
	TypeClass    SearchType = "Class"
	TypeVariable SearchType = "Variable"
	TypeText     SearchType = "Text"
	TypePattern  SearchType = "Pattern"
)

// MaxResults caps the number of matches returned regardless of how many the
// underlying search produced.
const MaxResults = 100

// ContextLines is the number of lines of surrounding context captured with
// each result's snippet.
const ContextLines = 2

// Result is one code_search match.
type Result struct {
	FilePath     string `json:"file_path"`
	LineNumber   int    `json:"line_number"`
	Snippet      string `json:"snippet"`
	MatchType    string `json:"match_type"`
	ContextLines string `json:"context_lines"`
}

// Query describes a code_search tool invocation.
type Query struct {
	Text        string
	SearchType  SearchType
	FilePattern string
	MaxResults  int
}

// Search runs query against root, preferring ripgrep on PATH and falling
// back to a pure-Go regexp walk otherwise.
func Search(ctx context.Context, root string, q Query) ([]Result, error) {
	pattern, err := patternFor(q)
	if err != nil {
		return nil, err
	}
	max := q.MaxResults
	if max <= 0 || max > MaxResults {
		max = MaxResults
	}

	if _, err := exec.LookPath("rg"); err == nil {
		results, err := searchRipgrep(ctx, root, pattern, q.FilePattern, max)
		if err == nil {
			return results, nil
		}
		// Fall through to the pure-Go walk: a broken rg invocation should
		// degrade the tool, not fail the whole run.
	}
	return searchPureGo(root, pattern, q.FilePattern, max)
}

// patternFor expands search_type into the type-aware regex spec.md
// describes (e.g. Function tries "fn NAME | function NAME | def NAME").
func patternFor(q Query) (string, error) {
	name := regexp.QuoteMeta(q.Text)
	switch q.SearchType {
	case TypeFunction:
		return fmt.Sprintf(`\b(func|fn|function|def)\s+%s\b`, name), nil
	case TypeClass:
		return fmt.Sprintf(`\b(class|struct|type|interface)\s+%s\b`, name), nil
	case TypeVariable:
		return fmt.Sprintf(`\b(var|let|const)\s+%s\b`, name), nil
	case TypeText:
		return regexp.QuoteMeta(q.Text), nil
	case TypePattern, "":
		return q.Text, nil
	default:
		return "", girerr.New(girerr.KindConfiguration, "codesearch.Search", "unknown search_type "+string(q.SearchType), nil)
	}
}

func searchRipgrep(ctx context.Context, root, pattern, filePattern string, max int) ([]Result, error) {
	args := []string{"--line-number", "--no-heading", "--color", "never", "-e", pattern}
	if filePattern != "" {
		args = append(args, "--glob", filePattern)
	}
	args = append(args, root)

	cmd := exec.CommandContext(ctx, "rg", args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &bytes.Buffer{}
	if err := cmd.Run(); err != nil {
		// Exit code 1 from rg means "no matches", not failure.
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			return nil, nil
		}
		return nil, girerr.New(girerr.KindTool, "codesearch.searchRipgrep", "rg invocation failed", err)
	}

	var results []Result
	fileLines := map[string][]string{}
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() && len(results) < max {
		line := scanner.Text()
		parts := strings.SplitN(line, ":", 3)
		if len(parts) != 3 {
			continue
		}
		lineNo, err := strconv.Atoi(parts[1])
		if err != nil {
			continue
		}
		rel, relErr := filepath.Rel(root, parts[0])
		if relErr != nil {
			rel = parts[0]
		}
		lines, seen := fileLines[parts[0]]
		if !seen {
			if data, err := os.ReadFile(parts[0]); err == nil {
				lines = strings.Split(string(data), "\n")
			}
			fileLines[parts[0]] = lines
		}
		var ctxLines string
		if lineNo >= 1 && lineNo <= len(lines) {
			ctxLines = contextAround(lines, lineNo-1)
		}
		results = append(results, Result{
			FilePath:     rel,
			LineNumber:   lineNo,
			Snippet:      strings.TrimSpace(parts[2]),
			MatchType:    string(TypePattern),
			ContextLines: ctxLines,
		})
	}
	return results, nil
}

// searchPureGo implements the no-ripgrep fallback: a recursive regexp scan
// over text files under root, honoring the same file_pattern glob and
// max-results cap as the rg path.
func searchPureGo(root, pattern, filePattern string, max int) ([]Result, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, girerr.New(girerr.KindConfiguration, "codesearch.searchPureGo", "invalid search pattern", err)
	}

	var results []Result
	walkErr := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || len(results) >= max {
			return nil
		}
		if info.IsDir() {
			if info.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if filePattern != "" {
			if ok, _ := filepath.Match(filePattern, info.Name()); !ok {
				return nil
			}
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		if bytes.IndexByte(data, 0) >= 0 {
			return nil // skip binary files
		}
		lines := strings.Split(string(data), "\n")
		for i, ln := range lines {
			if len(results) >= max {
				break
			}
			if !re.MatchString(ln) {
				continue
			}
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				rel = path
			}
			results = append(results, Result{
				FilePath:     rel,
				LineNumber:   i + 1,
				Snippet:      strings.TrimSpace(ln),
				MatchType:    string(TypePattern),
				ContextLines: contextAround(lines, i),
			})
		}
		return nil
	})
	if walkErr != nil {
		return nil, girerr.New(girerr.KindTool, "codesearch.searchPureGo", "directory walk failed", walkErr)
	}
	return results, nil
}

func contextAround(lines []string, i int) string {
	start := i - ContextLines
	if start < 0 {
		start = 0
	}
	end := i + ContextLines + 1
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start:end], "\n")
}
