package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"
)

// AvailabilityChecker is the slice of the terminal client health reporting
// needs.
type AvailabilityChecker interface {
	IsAvailable(ctx context.Context) bool
}

// HealthService reports bridge and terminal gateway health.
type HealthService struct {
	terminal  AvailabilityChecker
	version   string
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus is the health endpoint response.
type HealthStatus struct {
	Status   string       `json:"status"`
	Service  string       `json:"service"`
	Version  string       `json:"version,omitempty"`
	Terminal TerminalInfo `json:"terminal"`
}

// TerminalInfo describes gateway connectivity.
type TerminalInfo struct {
	Available bool `json:"available"`
}

// LivenessStatus is the liveness endpoint response.
type LivenessStatus struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	GoVersion     string  `json:"go_version"`
	Goroutines    int     `json:"goroutines"`
}

// NewHealthService creates the health reporter.
func NewHealthService(terminal AvailabilityChecker, version string, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		terminal:  terminal,
		version:   version,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// Check probes the terminal gateway and reports overall status. The bridge is
// "ok" only when the gateway answers its health probe.
func (s *HealthService) Check(ctx context.Context) HealthStatus {
	available := s.terminal.IsAvailable(ctx)
	status := "ok"
	if !available {
		status = "unavailable"
		s.logger.WarnContext(ctx, "terminal gateway unavailable")
	}
	return HealthStatus{
		Status:   status,
		Service:  "data-bridge",
		Version:  s.version,
		Terminal: TerminalInfo{Available: available},
	}
}

// Liveness reports process-level liveness without touching the gateway.
func (s *HealthService) Liveness(ctx context.Context) LivenessStatus {
	return LivenessStatus{
		Status:        "alive",
		UptimeSeconds: time.Since(s.startTime).Seconds(),
		GoVersion:     runtime.Version(),
		Goroutines:    runtime.NumGoroutine(),
	}
}
