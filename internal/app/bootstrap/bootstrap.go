// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package bootstrap is the composition root shared by every entry point.
package bootstrap

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/ManuGH/kvs-playback/internal/api"
	"github.com/ManuGH/kvs-playback/internal/app"
	"github.com/ManuGH/kvs-playback/internal/config"
	"github.com/ManuGH/kvs-playback/internal/health"
	"github.com/ManuGH/kvs-playback/internal/kvs"
	xglog "github.com/ManuGH/kvs-playback/internal/log"
	"github.com/ManuGH/kvs-playback/internal/metrics"
	"github.com/ManuGH/kvs-playback/internal/telemetry"
)

// EnvConfigPath names the config file when --config is not given.
const EnvConfigPath = "KVS_CONFIG"

// Options select what WireServices builds.
type Options struct {
	Version    string
	ConfigPath string
	// Backend replaces the AWS-backed KVS client. Tests only.
	Backend app.BackendSource
	// LogOutput replaces stdout as the log destination.
	LogOutput io.Writer
}

// Container is the production composition root output.
type Container struct {
	Config    config.AppConfig
	Holder    *config.Holder
	Logger    zerolog.Logger
	Telemetry *telemetry.Provider
	Service   *app.Service
	Invoker   *api.Invoker
	Health    *health.Manager
	Metrics   *metrics.Flusher

	logOutput io.Writer
	startOnce sync.Once
	stop      context.CancelFunc
	wg        sync.WaitGroup
}

// WireServices loads configuration and builds the dependency graph. Nothing
// talks to AWS until the first invocation.
func WireServices(ctx context.Context, opts Options) (*Container, error) {
	if ctx == nil {
		return nil, errors.New("wire services context is nil")
	}

	configPath := strings.TrimSpace(opts.ConfigPath)
	if configPath == "" {
		configPath = strings.TrimSpace(config.ParseString(EnvConfigPath, ""))
	}

	loader := config.NewLoader(configPath, opts.Version)
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	xglog.Configure(xglog.Config{
		Level:   cfg.LogLevel,
		Output:  opts.LogOutput,
		Service: cfg.LogService,
		Version: cfg.Version,
	})
	logger := xglog.WithComponent("bootstrap")
	logConfigSource(logger, configPath, cfg)

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.LogService,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("telemetry initialization failed, continuing without tracing")
		tp = nil
	}

	backend := opts.Backend
	if backend == nil {
		lazy := kvs.NewLazy(kvs.FromAWS(kvs.AWSOptions{
			Region:      cfg.AWSRegion,
			HTTPTimeout: cfg.HTTPTimeout,
		}, kvs.WithPageSize(cfg.ListPageSize)))
		backend = app.FromLazy(lazy)
	}

	holder := config.NewHolder(cfg, loader)
	svc := app.NewService(holder.Get, backend)

	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewFileChecker("config_file", configPath))
	hm.RegisterChecker(health.NewLastRunChecker(svc.LastRun))

	logger.Info().
		Str(xglog.FieldEvent, "startup").
		Str("version", cfg.Version).
		Str(xglog.FieldStreamPrefix, cfg.StreamPrefix).
		Str(xglog.FieldPolicy, string(cfg.FailurePolicy)).
		Str("region", cfg.AWSRegion).
		Bool("report_partial", cfg.ReportPartial).
		Msg("services wired")

	return &Container{
		Config:    cfg,
		Holder:    holder,
		Logger:    logger,
		Telemetry: tp,
		Service:   svc,
		Invoker:   api.NewInvoker(svc),
		Health:    hm,
		Metrics:   metrics.NewFlusher(prometheus.DefaultGatherer, metrics.DefaultNamespace),
		logOutput: opts.LogOutput,
	}, nil
}

// Start launches the config watcher for long-running modes. Reloaded log
// levels are applied to the global logger.
func (c *Container) Start(ctx context.Context) error {
	if ctx == nil {
		return errors.New("start context is nil")
	}
	var startErr error
	c.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		c.stop = cancel

		updates := make(chan config.AppConfig, 1)
		c.Holder.RegisterListener(updates)
		if err := c.Holder.StartWatcher(ctx); err != nil {
			startErr = fmt.Errorf("start config watcher: %w", err)
			return
		}

		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case cfg := <-updates:
					xglog.Configure(xglog.Config{Level: cfg.LogLevel, Output: c.logOutput, Service: cfg.LogService, Version: cfg.Version})
				}
			}
		}()
	})
	return startErr
}

// Close stops background work and flushes telemetry.
func (c *Container) Close(ctx context.Context) error {
	if c.stop != nil {
		c.stop()
	}
	c.Holder.Wait()
	c.wg.Wait()
	return c.Telemetry.Shutdown(ctx)
}

// LambdaHandler returns the API Gateway handler. Spans and metrics are
// flushed after each invocation since the sandbox may freeze right after the
// response.
func (c *Container) LambdaHandler() func(context.Context, events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	h := api.NewLambdaHandler(c.Invoker)
	return func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		resp, err := h.Handle(ctx, req)
		if _, flushErr := c.Metrics.Flush(xglog.WithComponent("metrics")); flushErr != nil {
			c.Logger.Warn().Err(flushErr).Msg("metrics flush failed")
		}
		if flushErr := c.Telemetry.ForceFlush(ctx); flushErr != nil {
			c.Logger.Warn().Err(flushErr).Msg("span flush failed")
		}
		return resp, err
	}
}

func logConfigSource(logger zerolog.Logger, path string, cfg config.AppConfig) {
	if path != "" {
		logger.Info().
			Str(xglog.FieldEvent, "config.loaded").
			Str("source", "file").
			Str("path", path).
			Msg("loaded configuration from file")
	} else {
		logger.Info().
			Str(xglog.FieldEvent, "config.loaded").
			Str("source", "env+defaults").
			Msg("loaded configuration from environment and defaults")
	}

	if configBytes, err := json.Marshal(cfg); err == nil {
		hash := sha256.Sum256(configBytes)
		logger.Info().
			Str(xglog.FieldEvent, "config.snapshot").
			Str("sha256", fmt.Sprintf("%x", hash)).
			Msg("configuration snapshot fingerprint")
	}
}
