package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/lomoval/sharedcal/api"
	"github.com/spf13/cobra"
)

var (
	release   = "UNKNOWN"
	buildDate = "UNKNOWN"
	gitHash   = "UNKNOWN"
)

type options struct {
	addr    string
	timeout time.Duration
	output  string
	dial    func(addr string) (*api.Client, error)
}

func newOptions() *options {
	return &options{
		dial: func(addr string) (*api.Client, error) {
			return api.Dial(addr)
		},
	}
}

func newRootCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "calctl",
		Short:         "Operator tool for the shared calendar service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.output != "text" && opts.output != "json" {
				return fmt.Errorf("unknown output format %q", opts.output)
			}
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.addr, "addr", "127.0.0.1:8006", "calendar gRPC address")
	pf.DurationVar(&opts.timeout, "timeout", 10*time.Second, "timeout of a single request")
	pf.StringVarP(&opts.output, "output", "o", "text", "output format (text, json)")

	cmd.AddCommand(newSummaryCmd(opts))
	cmd.AddCommand(newDayCmd(opts))
	cmd.AddCommand(newWatchCmd(opts))
	cmd.AddCommand(newExportCmd(opts))
	cmd.AddCommand(newHolidaysCmd(opts))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// call dials the server and runs fn with a request context bounded by the
// configured timeout.
func (o *options) call(cmd *cobra.Command, fn func(ctx context.Context, client *api.Client) error) error {
	client, err := o.dial(o.addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", o.addr, err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
	defer cancel()
	return fn(ctx, client)
}

func (o *options) printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "release: %s, build date: %s, git hash: %s\n",
				release, buildDate, gitHash)
			return err
		},
	}
}
