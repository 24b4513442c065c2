// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"regexp"
	"time"

	"github.com/ManuGH/kvs-playback/internal/resolver"
)

// Service limits for the Kinesis Video APIs the resolver calls.
const (
	maxPrefixLength   = 256
	maxListPageSize   = 10000
	minSessionExpires = 5 * time.Minute
	maxSessionExpires = 12 * time.Hour
)

// prefixPattern is the character set ListStreams accepts as a comparison value.
var prefixPattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// Validate checks cfg and returns every violation joined into one error.
func Validate(cfg AppConfig) error {
	var errs []error

	switch {
	case strings.TrimSpace(cfg.StreamPrefix) == "":
		errs = append(errs, fieldError("StreamPrefix", "must not be empty"))
	case len(cfg.StreamPrefix) > maxPrefixLength:
		errs = append(errs, fieldError("StreamPrefix", fmt.Sprintf("must be at most %d characters", maxPrefixLength)))
	case !prefixPattern.MatchString(cfg.StreamPrefix):
		errs = append(errs, fieldError("StreamPrefix", fmt.Sprintf("%q may only contain letters, digits, '_', '.' and '-'", cfg.StreamPrefix)))
	}

	if _, err := resolver.ParseFailurePolicy(string(cfg.FailurePolicy)); err != nil {
		errs = append(errs, fieldError("FailurePolicy", err.Error()))
	}

	if cfg.SessionExpires != 0 && (cfg.SessionExpires < minSessionExpires || cfg.SessionExpires > maxSessionExpires) {
		errs = append(errs, fieldError("SessionExpires", fmt.Sprintf("must be 0 or between %s and %s", minSessionExpires, maxSessionExpires)))
	}

	if cfg.ListPageSize < 0 || cfg.ListPageSize > maxListPageSize {
		errs = append(errs, fieldError("ListPageSize", fmt.Sprintf("must be between 0 and %d", maxListPageSize)))
	}

	if cfg.HTTPTimeout <= 0 {
		errs = append(errs, fieldError("HTTPTimeout", "must be positive"))
	}

	if cfg.Telemetry.Enabled {
		switch cfg.Telemetry.Exporter {
		case "grpc", "http":
		default:
			errs = append(errs, fieldError("Telemetry.Exporter", fmt.Sprintf("%q is not one of grpc, http", cfg.Telemetry.Exporter)))
		}
		if strings.TrimSpace(cfg.Telemetry.Endpoint) == "" {
			errs = append(errs, fieldError("Telemetry.Endpoint", "must not be empty when telemetry is enabled"))
		}
	}
	if cfg.Telemetry.SamplingRate < 0 || cfg.Telemetry.SamplingRate > 1 {
		errs = append(errs, fieldError("Telemetry.SamplingRate", "must be between 0 and 1"))
	}

	return errors.Join(errs...)
}

func fieldError(field, msg string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidConfig, field, msg)
}
