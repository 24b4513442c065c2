package main

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"
)

func newLambdaCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lambda",
		Short: "Serve API Gateway proxy events inside the Lambda runtime",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLambda(cmd.Context(), opts)
		},
	}
}

func runLambda(ctx context.Context, opts *rootOptions) error {
	c, err := opts.wire(ctx)
	if err != nil {
		return fmt.Errorf("wire services: %w", err)
	}

	// Start never returns; SIGTERM is the only chance to flush spans.
	lambda.StartWithOptions(c.LambdaHandler(),
		lambda.WithContext(ctx),
		lambda.WithEnableSIGTERM(func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 400*time.Millisecond)
			defer cancel()
			_ = c.Close(shutdownCtx)
		}),
	)
	return nil
}
