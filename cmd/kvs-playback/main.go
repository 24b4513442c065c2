// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Command kvs-playback resolves live HLS playback URLs for Kinesis Video
// streams. It runs as an API Gateway Lambda, a local HTTP server, or a
// one-shot CLI.
package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/ManuGH/kvs-playback/internal/app"
	"github.com/ManuGH/kvs-playback/internal/app/bootstrap"
	xglog "github.com/ManuGH/kvs-playback/internal/log"
	"github.com/ManuGH/kvs-playback/internal/version"
)

// envLambdaRuntime is set by the Lambda runtime in every sandbox.
const envLambdaRuntime = "AWS_LAMBDA_RUNTIME_API"

// backendOverride replaces the AWS client in tests.
var backendOverride app.BackendSource

type rootOptions struct {
	configPath string
}

func (o *rootOptions) wire(ctx context.Context) (*bootstrap.Container, error) {
	return bootstrap.WireServices(ctx, bootstrap.Options{
		Version:    version.Version,
		ConfigPath: o.configPath,
		Backend:    backendOverride,
	})
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "kvs-playback",
		Short:         "Resolve live HLS playback URLs for Kinesis Video streams",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if os.Getenv(envLambdaRuntime) != "" {
				return runLambda(cmd.Context(), opts)
			}
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file (YAML); defaults to $"+bootstrap.EnvConfigPath)

	root.AddCommand(
		newLambdaCmd(opts),
		newServeCmd(opts),
		newResolveCmd(opts),
		newVersionCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		logger := xglog.WithComponent("main")
		logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "command.failed").
			Msg("command failed")
		os.Exit(1)
	}
}
