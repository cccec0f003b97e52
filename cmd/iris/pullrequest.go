package main

import (
	"github.com/spf13/cobra"

	gitctx "github.com/git-iris/gitiris/internal/context"
)

var (
	prBase string
	prHead string
)

var pullRequestCmd = &cobra.Command{
	Use:   "pr",
	Short: "Generate a pull request description (defaults: base=main, head=HEAD)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCapability(gitctx.Capability{
			Kind:   gitctx.CapabilityPullRequest,
			PRBase: prBase,
			PRHead: prHead,
		})
	},
}

func init() {
	pullRequestCmd.Flags().StringVar(&prBase, "base", "", "pull request base ref (default main)")
	pullRequestCmd.Flags().StringVar(&prHead, "head", "", "pull request head ref (default HEAD)")
}
