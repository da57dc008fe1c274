package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sufield/unsafehttp"
	"github.com/sufield/unsafehttp/internal/debug"
	"github.com/sufield/unsafehttp/pkg/httpclient"
)

type requestOptions struct {
	url        string
	configPath string
	insecure   bool
	method     string
	data       string
	verbose    bool
	logLevel   string
}

func newRequestCmd() *cobra.Command {
	var opts requestOptions

	cmd := &cobra.Command{
		Use:   "request",
		Short: "Send an HTTPS request and print the response",
		Example: `  # Ignore every certificate problem
  unsafehttp request --insecure --url https://self-signed.local:8443/healthz

  # Use the trust mode from a config file
  unsafehttp request --config ./unsafehttp.yaml --url https://api.internal/v1/status

  # POST with a body and show headers
  unsafehttp request --insecure --method POST --data '{"ping":true}' \
    --url https://localhost:8443/echo --verbose`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", "", "Server URL to request (required)")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "Path to unsafehttp config file")
	cmd.Flags().BoolVar(&opts.insecure, "insecure", false, "Trust every certificate and hostname")
	cmd.Flags().StringVar(&opts.method, "method", http.MethodGet, "HTTP method")
	cmd.Flags().StringVar(&opts.data, "data", "", "Request body")
	cmd.Flags().BoolVar(&opts.verbose, "verbose", false, "Show response headers")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "Request logging with --insecure: none, basic, headers, body")
	_ = cmd.MarkFlagRequired("url")
	cmd.MarkFlagsMutuallyExclusive("config", "insecure")

	return cmd
}

func newRequestClient(opts requestOptions) (*httpclient.Client, func() error, error) {
	switch {
	case opts.insecure:
		cfg := httpclient.InsecureConfig()
		level, err := httpclient.ParseLogLevel(opts.logLevel)
		if err != nil {
			return nil, nil, err
		}
		cfg.LogLevel = level
		client, err := httpclient.New(cfg)
		if err != nil {
			return nil, nil, err
		}
		return client, client.Close, nil
	case opts.configPath != "":
		return unsafehttp.Client(opts.configPath)
	default:
		return unsafehttp.NewClient()
	}
}

func runRequest(cmd *cobra.Command, opts requestOptions) error {
	if !opts.insecure && opts.logLevel != "" {
		return errors.New("--log-level only applies with --insecure; set client.log_level in the config file")
	}

	client, cleanup, err := newRequestClient(opts)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer func() {
		if err := cleanup(); err != nil {
			debug.GetLogger().WithError(err).Warn("cleanup error")
		}
	}()

	logger := debug.GetLogger()
	logger.WithFields(logrus.Fields{
		"method":   opts.method,
		"url":      opts.url,
		"trust":    fmt.Sprint(client.TrustPolicy()),
		"hostname": fmt.Sprint(client.HostnamePolicy()),
	}).Debug("sending request")

	var body io.Reader = http.NoBody
	if opts.data != "" {
		body = strings.NewReader(opts.data)
	}

	req, err := http.NewRequestWithContext(cmd.Context(), strings.ToUpper(opts.method), opts.url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s\n", resp.Proto, resp.Status)

	if opts.verbose {
		for name, values := range resp.Header {
			for _, value := range values {
				fmt.Fprintf(out, "%s: %s\n", name, value)
			}
		}
		fmt.Fprintln(out)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	_, _ = out.Write(data)

	// Ensure newline at end if body doesn't have one
	if len(data) > 0 && data[len(data)-1] != '\n' {
		fmt.Fprintln(out)
	}

	// Exit with non-zero if HTTP error
	if resp.StatusCode >= 400 {
		return fmt.Errorf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	return nil
}
