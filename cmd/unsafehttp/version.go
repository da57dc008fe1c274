package main

import (
	"fmt"
	"runtime"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sufield/unsafehttp/pkg/httpclient"
)

func newVersionCmd(info VersionInfo) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "unsafehttp %s (commit: %s, built: %s)\n", info.Version, info.Commit, info.Date)
			if !verbose {
				return nil
			}

			fmt.Fprintln(out, "\nClient Defaults:")
			t := httpclient.DefaultTimeouts()
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SETTING\tVALUE")
			fmt.Fprintf(w, "Go\t%s\n", runtime.Version())
			fmt.Fprintf(w, "Protocol\t%s\n", httpclient.DefaultProtocol)
			fmt.Fprintf(w, "Call Timeout\t%s\n", t.Call)
			fmt.Fprintf(w, "Connect Timeout\t%s\n", t.Connect)
			fmt.Fprintf(w, "Read Timeout\t%s\n", t.Read)
			fmt.Fprintf(w, "Write Timeout\t%s\n", t.Write)
			fmt.Fprintf(w, "Insecure Trust\t%s\n", "trust-all, any-hostname")
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Show client defaults")

	return cmd
}
