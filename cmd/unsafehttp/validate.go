package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sufield/unsafehttp/internal/config"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate an unsafehttp configuration file",
		Example: `  unsafehttp validate unsafehttp.yaml

  # Use in CI/CD pipelines
  if unsafehttp validate config/staging.yaml; then
      echo "Configuration is valid"
  fi`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateFile(cmd.OutOrStdout(), args[0])
		},
	}
}

func validateFile(out io.Writer, path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	s, err := config.Validate(&cfg)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	fmt.Fprintf(out, "✓ %s is valid\n\n", path)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SETTING\tVALUE")
	fmt.Fprintf(w, "trust mode\t%s\n", s.Mode)
	switch s.Mode {
	case config.ModeStrict:
		issuers := s.CAFile
		if issuers == "" {
			issuers = "platform roots"
		}
		fmt.Fprintf(w, "issuers\t%s\n", issuers)
	case config.ModeSPIFFE:
		fmt.Fprintf(w, "workload socket\t%s\n", s.SPIFFE.WorkloadSocket)
	}
	fmt.Fprintf(w, "protocol\t%s\n", s.Protocol)
	fmt.Fprintf(w, "call timeout\t%s\n", s.Timeouts.Call)
	fmt.Fprintf(w, "connect timeout\t%s\n", s.Timeouts.Connect)
	fmt.Fprintf(w, "read timeout\t%s\n", s.Timeouts.Read)
	fmt.Fprintf(w, "write timeout\t%s\n", s.Timeouts.Write)
	fmt.Fprintf(w, "log level\t%s\n", s.LogLevel)
	fmt.Fprintf(w, "metrics\t%t\n", s.Metrics)
	if err := w.Flush(); err != nil {
		return err
	}

	if s.Mode == config.ModeInsecure {
		fmt.Fprintln(out, "\nWARNING: certificate and hostname verification are disabled")
	}

	return nil
}
