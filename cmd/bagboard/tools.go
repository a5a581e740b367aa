package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/bagboard/internal/address"
	"github.com/bobmcallan/bagboard/internal/app"
	"github.com/bobmcallan/bagboard/internal/common"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), common.GetFullVersion())
		},
	}
}

// newResolveCmd extracts the token address from free-form input, the same
// way the API does for pasted links.
func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <input>",
		Short: "Find the token address and chain in a link or pasted text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, ok := address.Classify(args[0])
			if !ok {
				return fmt.Errorf("no token address found in %q", args[0])
			}
			return writeJSON(cmd.OutOrStdout(), addr)
		},
	}
}

// newMetadataCmd resolves live metadata for one or more addresses using the
// configured sources. Storage is not needed, so the in-memory backend is used.
func newMetadataCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "metadata <address>...",
		Short: "Resolve live token metadata from the configured sources",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := common.LoadConfig(app.ResolveConfigPath(*configPath))
			if err != nil {
				return err
			}
			config.Storage.Backend = "memory"
			config.Cache.RedisAddr = ""

			a, err := app.NewAppWithConfig(cmd.Context(), config, common.NewLoggerFromConfig(config.Logging))
			if err != nil {
				return err
			}
			defer a.Close()

			tokens, err := a.MetadataService.ResolveMany(cmd.Context(), args)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), tokens)
		},
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
