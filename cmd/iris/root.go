package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	repoPath          string
	providerOverride  string
	modelOverride     string
	noGitmoji         bool
	instructionPreset string
	verbose           bool
	noColor           bool
	pulseRedisAddr    string
)

var rootCmd = &cobra.Command{
	Use:   "iris",
	Short: "Git-Iris: AI-assisted git commit messages, reviews, PRs, changelogs, and release notes",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			color.NoColor = true
		}
	},
}

// Execute runs the root command and translates any returned error into an
// exit code via exitCodeFor, per spec.md §6's exit-code table.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(exitCodeFor(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&repoPath, "repo", ".", "path to the git repository")
	rootCmd.PersistentFlags().StringVar(&providerOverride, "provider", "", "override the configured default provider")
	rootCmd.PersistentFlags().StringVar(&modelOverride, "model", "", "override the configured model for the active provider")
	rootCmd.PersistentFlags().StringVar(&instructionPreset, "preset", "", "instruction preset to apply")
	rootCmd.PersistentFlags().BoolVar(&noGitmoji, "no-gitmoji", false, "disable gitmoji prefixes for this invocation")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&pulseRedisAddr, "pulse-redis", "", "publish run status to this Redis address via Pulse (disabled when empty)")

	rootCmd.AddCommand(commitCmd, reviewCmd, pullRequestCmd, changelogCmd, releaseNotesCmd)
}
