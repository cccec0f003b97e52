package main

import "github.com/git-iris/gitiris/internal/girerr"

// exitCodeFor maps an error's girerr.Kind to the CLI exit code spec.md §6
// defines: 0 success, 1 validation/user error, 2 repo-not-found, 3
// provider/transport error, 4 schema/parse error, 5 cancelled, 6 timeout.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	switch girerr.KindOf(err) {
	case girerr.KindRepository:
		return 2
	case girerr.KindProviderTransient, girerr.KindProviderFatal:
		return 3
	case girerr.KindParse:
		return 4
	case girerr.KindCancelled:
		return 5
	case girerr.KindTimedOut:
		return 6
	case girerr.KindConfiguration, girerr.KindContext, girerr.KindBudget, girerr.KindTool:
		return 1
	default:
		return 1
	}
}
