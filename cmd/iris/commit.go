package main

import (
	"github.com/spf13/cobra"

	gitctx "github.com/git-iris/gitiris/internal/context"
)

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Generate a commit message from staged changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCapability(gitctx.Capability{Kind: gitctx.CapabilityCommit})
	},
}
