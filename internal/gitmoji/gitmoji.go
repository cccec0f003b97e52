// Package gitmoji holds a commit-type-to-emoji table, embedded as JSON
// rather than generated from a Go literal so it can be edited without
// touching code. No other package in this module imports it; the commit
// emoji comes from the model's structured response.
package gitmoji

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed gitmoji.json
var tableJSON []byte

var table map[string]string

func init() {
	if err := json.Unmarshal(tableJSON, &table); err != nil {
		panic(fmt.Sprintf("gitmoji: embedded table is invalid JSON: %v", err))
	}
}

// ForType returns the emoji associated with a conventional-commit type
// (e.g. "feat", "fix"), and false when the type is unrecognized.
func ForType(commitType string) (string, bool) {
	e, ok := table[commitType]
	return e, ok
}

// Default is the emoji used when a commit message carries no identifiable
// conventional-commit type.
const Default = "💡"
