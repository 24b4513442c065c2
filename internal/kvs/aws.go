package kvs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"

	"github.com/ManuGH/kvs-playback/internal/platform/httpx"
)

// AWSOptions controls how the SDK configuration is loaded.
type AWSOptions struct {
	Region      string        // empty uses the default resolution chain
	HTTPTimeout time.Duration // per-request timeout of the SDK HTTP client
}

// LoadAWSConfig loads the default SDK configuration with our HTTP client and
// OpenTelemetry instrumentation on every API call.
func LoadAWSConfig(ctx context.Context, opts AWSOptions) (aws.Config, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithHTTPClient(httpx.NewClient(opts.HTTPTimeout)),
	}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	otelaws.AppendMiddlewares(&cfg.APIOptions)
	return cfg, nil
}

// Builder constructs a Client on first use.
type Builder func(ctx context.Context) (*Client, error)

// FromAWS returns a Builder that loads the SDK config and wraps it in a Client.
func FromAWS(awsOpts AWSOptions, opts ...Option) Builder {
	return func(ctx context.Context) (*Client, error) {
		cfg, err := LoadAWSConfig(ctx, awsOpts)
		if err != nil {
			return nil, err
		}
		return New(cfg, opts...), nil
	}
}

// Lazy holds one process-wide Client, built on the first Get. A failed build
// is not cached, so the next invocation tries again.
type Lazy struct {
	build Builder

	mu     sync.Mutex
	client *Client
}

// NewLazy wraps build.
func NewLazy(build Builder) *Lazy {
	return &Lazy{build: build}
}

// Get returns the shared Client, building it if needed.
func (l *Lazy) Get(ctx context.Context) (*Client, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.client != nil {
		return l.client, nil
	}
	c, err := l.build(ctx)
	if err != nil {
		return nil, err
	}
	l.client = c
	return c, nil
}
