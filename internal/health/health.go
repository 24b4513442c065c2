// SPDX-License-Identifier: MIT

// Package health provides liveness and readiness probes for the local server.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/ManuGH/kvs-playback/internal/log"
)

// Status represents the overall health/readiness status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult represents the result of a component health check
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Response is returned by both probes.
type Response struct {
	Status    Status                 `json:"status"`
	Ready     bool                   `json:"ready"`
	Version   string                 `json:"version,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Checker defines the interface for health checks
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Manager manages health and readiness checks
type Manager struct {
	version  string
	checkers []Checker
}

// NewManager creates a new health check manager
func NewManager(version string) *Manager {
	return &Manager{version: version}
}

// RegisterChecker adds a health checker to the manager
func (m *Manager) RegisterChecker(checker Checker) {
	m.checkers = append(m.checkers, checker)
}

// Ready runs every checker. Any unhealthy result makes the process not ready.
func (m *Manager) Ready(ctx context.Context) Response {
	resp := Response{
		Status:    StatusHealthy,
		Ready:     true,
		Version:   m.version,
		Timestamp: time.Now(),
	}
	if len(m.checkers) == 0 {
		return resp
	}

	resp.Checks = make(map[string]CheckResult, len(m.checkers))
	for _, checker := range m.checkers {
		result := checker.Check(ctx)
		resp.Checks[checker.Name()] = result
		switch result.Status {
		case StatusUnhealthy:
			resp.Status = StatusUnhealthy
			resp.Ready = false
		case StatusDegraded:
			if resp.Status == StatusHealthy {
				resp.Status = StatusDegraded
			}
		}
	}
	return resp
}

// ServeHealth is the liveness probe. It always answers 200.
func (m *Manager) ServeHealth(w http.ResponseWriter, r *http.Request) {
	resp := Response{Status: StatusHealthy, Ready: true, Version: m.version, Timestamp: time.Now()}
	writeJSON(w, r, http.StatusOK, resp)
}

// ServeReady is the readiness probe.
func (m *Manager) ServeReady(w http.ResponseWriter, r *http.Request) {
	resp := m.Ready(r.Context())
	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, r, status, resp)

	logger := log.WithComponentFromContext(r.Context(), "readiness")
	logger.Debug().
		Str(log.FieldEvent, "readiness.checked").
		Str("status", string(resp.Status)).
		Bool("ready", resp.Ready).
		Msg("readiness check performed")
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "health")
		logger.Error().
			Err(err).
			Str(log.FieldEvent, "health.encode_error").
			Msg("failed to encode health response")
	}
}

// FileChecker checks that the config file, when one is used, is still readable.
type FileChecker struct {
	name string
	path string
}

// NewFileChecker creates a checker for file existence
func NewFileChecker(name, path string) *FileChecker {
	return &FileChecker{name: name, path: path}
}

func (c *FileChecker) Name() string { return c.name }

func (c *FileChecker) Check(_ context.Context) CheckResult {
	if c.path == "" {
		return CheckResult{Status: StatusHealthy, Message: "not configured (optional)"}
	}
	info, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return CheckResult{Status: StatusUnhealthy, Error: "file not found", Message: c.path}
		}
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	if info.IsDir() {
		return CheckResult{Status: StatusUnhealthy, Error: "expected file, got directory"}
	}
	return CheckResult{Status: StatusHealthy, Message: "file exists and readable"}
}

// LastRunChecker reports the outcome of the most recent resolution. A
// failed or partial run degrades the status without failing readiness, since
// the next request may well succeed.
type LastRunChecker struct {
	getLastRun func() (at time.Time, partial bool, lastErr string)
}

// NewLastRunChecker creates a checker backed by getLastRun.
func NewLastRunChecker(getLastRun func() (time.Time, bool, string)) *LastRunChecker {
	return &LastRunChecker{getLastRun: getLastRun}
}

func (c *LastRunChecker) Name() string { return "last_resolution" }

func (c *LastRunChecker) Check(_ context.Context) CheckResult {
	at, partial, lastErr := c.getLastRun()
	switch {
	case at.IsZero():
		return CheckResult{Status: StatusHealthy, Message: "no resolution yet"}
	case lastErr != "":
		return CheckResult{Status: StatusDegraded, Error: lastErr, Message: "last resolution failed"}
	case partial:
		return CheckResult{Status: StatusDegraded, Message: "last resolution was partial"}
	}
	return CheckResult{Status: StatusHealthy, Message: "last resolution successful"}
}
