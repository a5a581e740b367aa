package main

import (
	"github.com/spf13/cobra"
)

// newRootCmd builds the bagboard command tree. Running bagboard with no
// subcommand starts the server.
func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "bagboard",
		Short:         "Memecoin portfolio board and leaderboard server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to bagboard.toml (default: $BAGBOARD_CONFIG or ./bagboard.toml)")

	root.AddCommand(
		newServeCmd(&configPath),
		newVersionCmd(),
		newResolveCmd(),
		newMetadataCmd(&configPath),
	)
	return root
}
