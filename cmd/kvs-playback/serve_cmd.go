package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ManuGH/kvs-playback/internal/api"
	"github.com/ManuGH/kvs-playback/internal/daemon"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a local HTTP server exposing the same response as the Lambda",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts, listen, nil)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides KVS_LISTEN_ADDR)")
	return cmd
}

// runServe blocks until ctx is done. ready, when set, receives the bound address.
func runServe(ctx context.Context, opts *rootOptions, listen string, ready chan<- string) error {
	c, err := opts.wire(ctx)
	if err != nil {
		return fmt.Errorf("wire services: %w", err)
	}
	if err := c.Start(ctx); err != nil {
		_ = c.Close(context.Background())
		return err
	}

	addr := c.Config.ListenAddr
	if listen != "" {
		addr = listen
	}

	router := api.NewRouter(c.Invoker, api.RouterOptions{
		ServiceName: c.Config.LogService,
		Health:      c.Health,
	})
	srv := daemon.New(daemon.DefaultConfig(addr), router)
	srv.RegisterShutdownHook("container", c.Close)

	if ready != nil {
		go func() {
			select {
			case a := <-srv.Ready():
				ready <- a.String()
			case <-ctx.Done():
			}
		}()
	}
	return srv.Run(ctx)
}
