// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ManuGH/kvs-playback/internal/resolver"
)

// Environment keys.
const (
	EnvStreamPrefix   = "KVS_STREAM_PREFIX"
	EnvFailurePolicy  = "KVS_FAILURE_POLICY"
	EnvSessionExpires = "KVS_SESSION_EXPIRES"
	EnvListPageSize   = "KVS_LIST_PAGE_SIZE"
	EnvReportPartial  = "KVS_REPORT_PARTIAL"
	EnvHTTPTimeout    = "KVS_HTTP_TIMEOUT"
	EnvListenAddr     = "KVS_LISTEN_ADDR"
	EnvEnvironment    = "KVS_ENVIRONMENT"
	EnvAWSRegion      = "AWS_REGION"
	EnvLogLevel       = "LOG_LEVEL"
	EnvLogService     = "LOG_SERVICE"
	EnvOTelEnabled    = "OTEL_ENABLED"
	EnvOTelExporter   = "OTEL_EXPORTER"
	EnvOTelEndpoint   = "OTEL_ENDPOINT"
	EnvOTelSampling   = "OTEL_SAMPLING_RATE"
)

// DefaultStreamPrefix matches the stream naming of the existing camera fleet.
const DefaultStreamPrefix = "hassela"

// Loader handles configuration loading with precedence ENV > File > Defaults.
type Loader struct {
	configPath string
	version    string
}

// NewLoader creates a new configuration loader. An empty configPath means
// environment and defaults only.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath: configPath,
		version:    version,
	}
}

// Path returns the config file path the loader reads, if any.
func (l *Loader) Path() string {
	return l.configPath
}

// Load loads configuration with precedence: ENV > File > Defaults, then validates it.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()
	cfg.Version = l.version

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return AppConfig{}, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFileConfig(&cfg, fileCfg); err != nil {
			return AppConfig{}, fmt.Errorf("merge config file: %w", err)
		}
	}

	mergeEnvConfig(&cfg)

	if err := Validate(cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		StreamPrefix:  DefaultStreamPrefix,
		FailurePolicy: resolver.PolicyAbort,
		HTTPTimeout:   10 * time.Second,
		ListenAddr:    ":8080",
		LogLevel:      "info",
		LogService:    "kvs-playback",
		Environment:   "production",
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
	}
}

func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("%w: %v", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("strict config parse error: multiple YAML documents are not supported")
	}

	return &fileCfg, nil
}

func mergeFileConfig(dst *AppConfig, src *FileConfig) error {
	if src == nil {
		return nil
	}
	if s := src.Stream; s != nil {
		if s.Prefix != nil {
			dst.StreamPrefix = *s.Prefix
		}
		if s.FailurePolicy != nil {
			dst.FailurePolicy = normalizePolicy(*s.FailurePolicy)
		}
		if s.SessionExpires != nil {
			d, err := time.ParseDuration(*s.SessionExpires)
			if err != nil {
				return fmt.Errorf("stream.sessionExpires: %w", err)
			}
			dst.SessionExpires = d
		}
		if s.ListPageSize != nil {
			dst.ListPageSize = *s.ListPageSize
		}
		if s.ReportPartial != nil {
			dst.ReportPartial = *s.ReportPartial
		}
	}
	if a := src.AWS; a != nil {
		if a.Region != nil {
			dst.AWSRegion = *a.Region
		}
		if a.HTTPTimeout != nil {
			d, err := time.ParseDuration(*a.HTTPTimeout)
			if err != nil {
				return fmt.Errorf("aws.httpTimeout: %w", err)
			}
			dst.HTTPTimeout = d
		}
	}
	if s := src.Server; s != nil && s.ListenAddr != nil {
		dst.ListenAddr = *s.ListenAddr
	}
	if lg := src.Log; lg != nil {
		if lg.Level != nil {
			dst.LogLevel = *lg.Level
		}
		if lg.Service != nil {
			dst.LogService = *lg.Service
		}
		if lg.Environment != nil {
			dst.Environment = *lg.Environment
		}
	}
	if tm := src.Telemetry; tm != nil {
		if tm.Enabled != nil {
			dst.Telemetry.Enabled = *tm.Enabled
		}
		if tm.Exporter != nil {
			dst.Telemetry.Exporter = *tm.Exporter
		}
		if tm.Endpoint != nil {
			dst.Telemetry.Endpoint = *tm.Endpoint
		}
		if tm.SamplingRate != nil {
			dst.Telemetry.SamplingRate = *tm.SamplingRate
		}
	}
	return nil
}

func mergeEnvConfig(cfg *AppConfig) {
	cfg.StreamPrefix = ParseString(EnvStreamPrefix, cfg.StreamPrefix)
	cfg.FailurePolicy = normalizePolicy(ParseString(EnvFailurePolicy, string(cfg.FailurePolicy)))
	cfg.SessionExpires = ParseDuration(EnvSessionExpires, cfg.SessionExpires)
	cfg.ListPageSize = ParseInt(EnvListPageSize, cfg.ListPageSize)
	cfg.ReportPartial = ParseBool(EnvReportPartial, cfg.ReportPartial)

	cfg.AWSRegion = ParseString(EnvAWSRegion, cfg.AWSRegion)
	cfg.HTTPTimeout = ParseDuration(EnvHTTPTimeout, cfg.HTTPTimeout)

	cfg.ListenAddr = ParseString(EnvListenAddr, cfg.ListenAddr)

	cfg.LogLevel = ParseString(EnvLogLevel, cfg.LogLevel)
	cfg.LogService = ParseString(EnvLogService, cfg.LogService)
	cfg.Environment = ParseString(EnvEnvironment, cfg.Environment)

	cfg.Telemetry.Enabled = ParseBool(EnvOTelEnabled, cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = ParseString(EnvOTelExporter, cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = ParseString(EnvOTelEndpoint, cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = ParseFloat(EnvOTelSampling, cfg.Telemetry.SamplingRate)
}

func normalizePolicy(s string) resolver.FailurePolicy {
	return resolver.FailurePolicy(strings.ToLower(strings.TrimSpace(s)))
}
