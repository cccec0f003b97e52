package main

import (
	"github.com/spf13/cobra"

	gitctx "github.com/git-iris/gitiris/internal/context"
)

var (
	changelogFrom string
	changelogTo   string
)

var changelogCmd = &cobra.Command{
	Use:   "changelog",
	Short: "Generate a Keep-a-Changelog-styled entry for a commit range",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCapability(gitctx.Capability{
			Kind: gitctx.CapabilityChangelog,
			From: changelogFrom,
			To:   changelogTo,
		})
	},
}

func init() {
	changelogCmd.Flags().StringVar(&changelogFrom, "from", "", "range start ref (required)")
	changelogCmd.Flags().StringVar(&changelogTo, "to", "", "range end ref (default HEAD)")
	_ = changelogCmd.MarkFlagRequired("from")
}
