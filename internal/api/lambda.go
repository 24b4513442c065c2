// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"

	xglog "github.com/ManuGH/kvs-playback/internal/log"
)

// LambdaHandler serves API Gateway proxy events.
type LambdaHandler struct {
	invoker *Invoker
}

// NewLambdaHandler wraps invoker.
func NewLambdaHandler(invoker *Invoker) *LambdaHandler {
	return &LambdaHandler{invoker: invoker}
}

// Handle is the lambda.Start entry point. Returning an error lets the
// platform answer with its generic 5xx.
func (h *LambdaHandler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		ctx = xglog.ContextWithRequestID(ctx, lc.AwsRequestID)
	}
	if cid := req.RequestContext.RequestID; cid != "" {
		ctx = xglog.ContextWithCorrelationID(ctx, cid)
	}

	resp, err := h.invoker.Invoke(ctx, TriggerLambda)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return events.APIGatewayProxyResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       resp.Body,
	}, nil
}
