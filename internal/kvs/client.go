// Package kvs wraps the Kinesis Video Streams control-plane and
// archived-media APIs used to hand out HLS playback URLs.
package kvs

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kinesisvideo"
	kvtypes "github.com/aws/aws-sdk-go-v2/service/kinesisvideo/types"
	"github.com/aws/aws-sdk-go-v2/service/kinesisvideoarchivedmedia"
	amtypes "github.com/aws/aws-sdk-go-v2/service/kinesisvideoarchivedmedia/types"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	xglog "github.com/ManuGH/kvs-playback/internal/log"
	"github.com/ManuGH/kvs-playback/internal/metrics"
	"github.com/ManuGH/kvs-playback/internal/telemetry"
)

// Operation names, used for errors, spans and metric labels.
const (
	OpListStreams     = "ListStreams"
	OpGetDataEndpoint = "GetDataEndpoint"
	OpGetSessionURL   = "GetHLSStreamingSessionURL"
)

// APIGetHLSStreamingSessionURL is the capability requested from GetDataEndpoint.
const APIGetHLSStreamingSessionURL = kvtypes.APIName("GET_HLS_STREAMING_SESSION_URL")

const comparisonBeginsWith = kvtypes.ComparisonOperator("BEGINS_WITH")

// Stream is the subset of a KVS stream descriptor the resolver needs.
type Stream struct {
	Name   string
	ARN    string
	Status string
}

// SessionParams tunes GetHLSStreamingSessionURL. Playback is always LIVE.
type SessionParams struct {
	// Expires is the requested URL lifetime; zero uses the service default.
	Expires time.Duration
}

type controlPlaneAPI interface {
	ListStreams(ctx context.Context, in *kinesisvideo.ListStreamsInput, optFns ...func(*kinesisvideo.Options)) (*kinesisvideo.ListStreamsOutput, error)
	GetDataEndpoint(ctx context.Context, in *kinesisvideo.GetDataEndpointInput, optFns ...func(*kinesisvideo.Options)) (*kinesisvideo.GetDataEndpointOutput, error)
}

type archivedMediaAPI interface {
	GetHLSStreamingSessionURL(ctx context.Context, in *kinesisvideoarchivedmedia.GetHLSStreamingSessionURLInput, optFns ...func(*kinesisvideoarchivedmedia.Options)) (*kinesisvideoarchivedmedia.GetHLSStreamingSessionURLOutput, error)
}

// archivedMediaFactory builds an archived-media client bound to one data endpoint.
type archivedMediaFactory func(endpoint string) archivedMediaAPI

// Client talks to Kinesis Video Streams. It is safe for concurrent use and
// meant to live for the whole process.
type Client struct {
	control    controlPlaneAPI
	newArchive archivedMediaFactory
	pageSize   int32

	mu       sync.Mutex
	archives map[string]archivedMediaAPI

	logger zerolog.Logger
	tracer trace.Tracer
}

// Option customises a Client.
type Option func(*Client)

// WithPageSize sets ListStreams MaxResults. Zero leaves it to the service.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = int32(n)
		}
	}
}

// New builds a Client from an AWS config.
func New(cfg aws.Config, opts ...Option) *Client {
	control := kinesisvideo.NewFromConfig(cfg)
	factory := func(endpoint string) archivedMediaAPI {
		return kinesisvideoarchivedmedia.NewFromConfig(cfg, func(o *kinesisvideoarchivedmedia.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	return newClient(control, factory, opts...)
}

func newClient(control controlPlaneAPI, factory archivedMediaFactory, opts ...Option) *Client {
	c := &Client{
		control:    control,
		newArchive: factory,
		archives:   make(map[string]archivedMediaAPI),
		logger:     xglog.WithComponent("kvs"),
		tracer:     telemetry.Tracer("kvs"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListStreams returns every stream whose name begins with prefix, following
// pagination and keeping the service's order.
func (c *Client) ListStreams(ctx context.Context, prefix string) (streams []Stream, err error) {
	ctx, span := c.tracer.Start(ctx, "kvs."+OpListStreams,
		trace.WithAttributes(attribute.String(telemetry.StreamPrefixKey, prefix)))
	start := time.Now()
	defer func() {
		metrics.ObserveKVSCall(OpListStreams, err == nil, time.Since(start))
		telemetry.EndSpan(span, err, Reason(err))
	}()

	in := &kinesisvideo.ListStreamsInput{
		StreamNameCondition: &kvtypes.StreamNameCondition{
			ComparisonOperator: comparisonBeginsWith,
			ComparisonValue:    aws.String(prefix),
		},
	}
	if c.pageSize > 0 {
		in.MaxResults = aws.Int32(c.pageSize)
	}

	streams = make([]Stream, 0)
	seen := make(map[string]struct{})
	for {
		out, callErr := c.control.ListStreams(ctx, in)
		if callErr != nil {
			return nil, wrapError(OpListStreams, "", callErr)
		}
		if out == nil {
			return nil, badResponse(OpListStreams, "", "nil output")
		}
		for _, info := range out.StreamInfoList {
			streams = append(streams, Stream{
				Name:   aws.ToString(info.StreamName),
				ARN:    aws.ToString(info.StreamARN),
				Status: string(info.Status),
			})
		}

		next := aws.ToString(out.NextToken)
		if next == "" {
			break
		}
		if _, dup := seen[next]; dup {
			return nil, badResponse(OpListStreams, "", "pagination token repeated")
		}
		seen[next] = struct{}{}
		in.NextToken = aws.String(next)
	}

	c.logger.Debug().
		Str(xglog.FieldEvent, "kvs.streams_listed").
		Str(xglog.FieldStreamPrefix, prefix).
		Int(xglog.FieldListed, len(streams)).
		Msg("listed streams")
	return streams, nil
}

// DataEndpoint returns the endpoint that serves HLS session URLs for stream.
func (c *Client) DataEndpoint(ctx context.Context, stream string) (endpoint string, err error) {
	ctx, span := c.tracer.Start(ctx, "kvs."+OpGetDataEndpoint,
		trace.WithAttributes(telemetry.StreamAttributes(stream, "")...))
	start := time.Now()
	defer func() {
		metrics.ObserveKVSCall(OpGetDataEndpoint, err == nil, time.Since(start))
		telemetry.EndSpan(span, err, Reason(err))
	}()

	out, err := c.control.GetDataEndpoint(ctx, &kinesisvideo.GetDataEndpointInput{
		APIName:    APIGetHLSStreamingSessionURL,
		StreamName: aws.String(stream),
	})
	if err != nil {
		return "", wrapError(OpGetDataEndpoint, stream, err)
	}
	if out == nil || aws.ToString(out.DataEndpoint) == "" {
		return "", badResponse(OpGetDataEndpoint, stream, "empty data endpoint")
	}
	endpoint = aws.ToString(out.DataEndpoint)

	c.logger.Info().
		Str(xglog.FieldEvent, "kvs.endpoint_resolved").
		Str(xglog.FieldStreamName, stream).
		Str(xglog.FieldEndpoint, endpoint).
		Msg("resolved data endpoint")
	return endpoint, nil
}

// SessionURL asks the archived-media API at endpoint for a LIVE HLS session URL.
func (c *Client) SessionURL(ctx context.Context, endpoint, stream string, p SessionParams) (url string, err error) {
	ctx, span := c.tracer.Start(ctx, "kvs."+OpGetSessionURL,
		trace.WithAttributes(telemetry.StreamAttributes(stream, endpoint)...))
	start := time.Now()
	defer func() {
		metrics.ObserveKVSCall(OpGetSessionURL, err == nil, time.Since(start))
		telemetry.EndSpan(span, err, Reason(err))
	}()

	in := &kinesisvideoarchivedmedia.GetHLSStreamingSessionURLInput{
		StreamName:   aws.String(stream),
		PlaybackMode: amtypes.HLSPlaybackModeLive,
	}
	if p.Expires > 0 {
		in.Expires = aws.Int32(int32(p.Expires / time.Second))
	}

	out, err := c.archive(endpoint).GetHLSStreamingSessionURL(ctx, in)
	if err != nil {
		return "", wrapError(OpGetSessionURL, stream, err)
	}
	if out == nil || aws.ToString(out.HLSStreamingSessionURL) == "" {
		return "", badResponse(OpGetSessionURL, stream, "empty session URL")
	}
	return aws.ToString(out.HLSStreamingSessionURL), nil
}

// archive returns the cached archived-media client for endpoint, creating it on first use.
func (c *Client) archive(endpoint string) archivedMediaAPI {
	c.mu.Lock()
	defer c.mu.Unlock()
	if api, ok := c.archives[endpoint]; ok {
		return api
	}
	api := c.newArchive(endpoint)
	c.archives[endpoint] = api
	return api
}
