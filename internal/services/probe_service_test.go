package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benmeehan/freebox-agent/internal/exporter"
	"github.com/benmeehan/freebox-agent/internal/services"
	"github.com/benmeehan/freebox-agent/pkg/freebox"
)

type scriptedDiscoverer struct {
	mu    sync.Mutex
	calls int
	fail  map[int]bool
}

func (d *scriptedDiscoverer) Discover(ctx context.Context) (*freebox.EndpointDescriptor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.fail[d.calls] {
		return nil, &freebox.DiscoveryError{URL: "bootstrap", Err: errors.New("unreachable")}
	}
	return &freebox.EndpointDescriptor{APIVersion: "8.0", DeviceType: "FreeboxServer1,2"}, nil
}

func (d *scriptedDiscoverer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// TestProbeService_Probe tests that up/down transitions reach the exporter.
func TestProbeService_Probe(t *testing.T) {
	// Setup
	exp := exporter.New()
	d := &scriptedDiscoverer{fail: map[int]bool{2: true}}
	p := services.NewProbeService(time.Minute, time.Second, d, exp, zerolog.Nop())

	// Execute and Assert
	assert.True(t, p.Probe(context.Background()))
	assert.Equal(t, 1.0, testutil.ToFloat64(exp.Up))
	assert.Equal(t, 1.0, testutil.ToFloat64(exp.APIInfo.WithLabelValues("8.0", "FreeboxServer1,2")))

	assert.False(t, p.Probe(context.Background()))
	assert.Equal(t, 0.0, testutil.ToFloat64(exp.Up))

	assert.True(t, p.Probe(context.Background()))
	assert.Equal(t, 1.0, testutil.ToFloat64(exp.Up))
}

// TestProbeService_StartStop tests the service lifecycle.
func TestProbeService_StartStop(t *testing.T) {
	// Setup
	d := &scriptedDiscoverer{}
	p := services.NewProbeService(10*time.Millisecond, time.Second, d, nil, zerolog.Nop())

	// Execute
	require.NoError(t, p.Start())
	assert.Error(t, p.Start())

	// Assert
	assert.Eventually(t, func() bool { return d.count() >= 2 }, 2*time.Second, 5*time.Millisecond)
	assert.NoError(t, p.Stop())
	assert.Error(t, p.Stop())
}
