package main

import (
	"github.com/spf13/cobra"

	gitctx "github.com/git-iris/gitiris/internal/context"
)

var (
	reviewIncludeUnstaged bool
	reviewCommitID        string
	reviewFrom            string
	reviewTo              string
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review staged/unstaged changes, a single commit, or a branch diff",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCapability(gitctx.Capability{
			Kind:            gitctx.CapabilityReview,
			IncludeUnstaged: reviewIncludeUnstaged,
			CommitID:        reviewCommitID,
			ReviewFrom:      reviewFrom,
			ReviewTo:        reviewTo,
		})
	},
}

func init() {
	reviewCmd.Flags().BoolVar(&reviewIncludeUnstaged, "include-unstaged", false, "include unstaged changes in the review")
	reviewCmd.Flags().StringVar(&reviewCommitID, "commit", "", "review a single commit by hash")
	reviewCmd.Flags().StringVar(&reviewFrom, "from", "", "branch diff start ref")
	reviewCmd.Flags().StringVar(&reviewTo, "to", "", "branch diff end ref")
}
