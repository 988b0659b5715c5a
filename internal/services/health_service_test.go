package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeAvailability struct {
	available bool
	probes    int
}

func (f *fakeAvailability) IsAvailable(context.Context) bool {
	f.probes++
	return f.available
}

func TestHealthCheckReflectsTerminal(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	up := NewHealthService(&fakeAvailability{available: true}, "v1.0.0", logger)
	status := up.Check(context.Background())
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "data-bridge", status.Service)
	assert.True(t, status.Terminal.Available)

	down := NewHealthService(&fakeAvailability{}, "v1.0.0", logger)
	status = down.Check(context.Background())
	assert.Equal(t, "unavailable", status.Status)
	assert.False(t, status.Terminal.Available)
}

func TestLivenessSkipsGatewayProbe(t *testing.T) {
	probe := &fakeAvailability{available: true}
	svc := NewHealthService(probe, "v1.0.0", slog.New(slog.NewJSONHandler(io.Discard, nil)))

	status := svc.Liveness(context.Background())

	assert.Equal(t, "alive", status.Status)
	assert.NotEmpty(t, status.GoVersion)
	assert.Zero(t, probe.probes)
}
