package main

import (
	"github.com/spf13/cobra"

	"github.com/sufield/unsafehttp/internal/debug"
)

// VersionInfo holds build metadata.
type VersionInfo struct {
	Version string
	Commit  string
	Date    string
}

func newRootCmd(info VersionInfo) *cobra.Command {
	var debugMode bool

	root := &cobra.Command{
		Use:   "unsafehttp",
		Short: "HTTPS client with pluggable certificate and hostname policies",
		Long: `unsafehttp sends HTTPS requests with trust decisions made by explicit
policies instead of the platform verifier.

The insecure policy accepts every certificate and every hostname. Use it
only against development servers and test fixtures.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			debug.Init()
			if debugMode {
				debug.Active.Enabled = true
			}
			debug.InitLogger()
		},
	}
	root.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging (same as UNSAFEHTTP_DEBUG=1)")

	root.AddCommand(
		newRequestCmd(),
		newValidateCmd(),
		newServeCmd(),
		newVersionCmd(info),
	)

	return root
}
