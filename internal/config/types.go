// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"time"

	"github.com/ManuGH/kvs-playback/internal/resolver"
)

// AppConfig is the fully merged, validated configuration.
type AppConfig struct {
	Version string

	// StreamPrefix is the BEGINS_WITH comparison value for ListStreams.
	StreamPrefix string
	// FailurePolicy decides what happens after a per-stream failure: "abort" or "skip".
	FailurePolicy resolver.FailurePolicy
	// SessionExpires is the requested HLS session URL lifetime. Zero leaves it to the service.
	SessionExpires time.Duration
	// ListPageSize bounds each ListStreams page. Zero leaves it to the service.
	ListPageSize int
	// ReportPartial adds partial-failure details to the response body.
	ReportPartial bool

	AWSRegion   string
	HTTPTimeout time.Duration

	ListenAddr string

	LogLevel    string
	LogService  string
	Environment string

	Telemetry TelemetryConfig
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool
	Exporter     string
	Endpoint     string
	SamplingRate float64
}

// FileConfig is the on-disk YAML representation. Pointer fields distinguish
// "unset" from zero values so that defaults survive a partial file.
type FileConfig struct {
	Stream    *FileStream    `yaml:"stream,omitempty"`
	AWS       *FileAWS       `yaml:"aws,omitempty"`
	Server    *FileServer    `yaml:"server,omitempty"`
	Log       *FileLog       `yaml:"log,omitempty"`
	Telemetry *FileTelemetry `yaml:"telemetry,omitempty"`
}

type FileStream struct {
	Prefix         *string `yaml:"prefix,omitempty"`
	FailurePolicy  *string `yaml:"failurePolicy,omitempty"`
	SessionExpires *string `yaml:"sessionExpires,omitempty"`
	ListPageSize   *int    `yaml:"listPageSize,omitempty"`
	ReportPartial  *bool   `yaml:"reportPartial,omitempty"`
}

type FileAWS struct {
	Region      *string `yaml:"region,omitempty"`
	HTTPTimeout *string `yaml:"httpTimeout,omitempty"`
}

type FileServer struct {
	ListenAddr *string `yaml:"listenAddr,omitempty"`
}

type FileLog struct {
	Level       *string `yaml:"level,omitempty"`
	Service     *string `yaml:"service,omitempty"`
	Environment *string `yaml:"environment,omitempty"`
}

type FileTelemetry struct {
	Enabled      *bool    `yaml:"enabled,omitempty"`
	Exporter     *string  `yaml:"exporter,omitempty"`
	Endpoint     *string  `yaml:"endpoint,omitempty"`
	SamplingRate *float64 `yaml:"samplingRate,omitempty"`
}
