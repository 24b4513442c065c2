package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/ManuGH/kvs-playback/internal/api"
)

func newResolveCmd(opts *rootOptions) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve playback URLs once and print the response body",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			return runResolve(ctx, opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall deadline; 0 disables it")
	return cmd
}

func runResolve(ctx context.Context, opts *rootOptions, out io.Writer) error {
	c, err := opts.wire(ctx)
	if err != nil {
		return fmt.Errorf("wire services: %w", err)
	}
	defer func() { _ = c.Close(context.Background()) }()

	resp, err := c.Invoker.Invoke(ctx, api.TriggerCLI)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, resp.Body)
	return err
}
