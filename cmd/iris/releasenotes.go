package main

import (
	"github.com/spf13/cobra"

	gitctx "github.com/git-iris/gitiris/internal/context"
)

var (
	releaseNotesFrom string
	releaseNotesTo   string
)

var releaseNotesCmd = &cobra.Command{
	Use:   "release-notes",
	Short: "Generate release notes for a commit range",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCapability(gitctx.Capability{
			Kind: gitctx.CapabilityReleaseNotes,
			From: releaseNotesFrom,
			To:   releaseNotesTo,
		})
	},
}

func init() {
	releaseNotesCmd.Flags().StringVar(&releaseNotesFrom, "from", "", "range start ref (required)")
	releaseNotesCmd.Flags().StringVar(&releaseNotesTo, "to", "", "range end ref (default HEAD)")
	_ = releaseNotesCmd.MarkFlagRequired("from")
}
