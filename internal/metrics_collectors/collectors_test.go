package metrics_collectors

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/benmeehan/freebox-agent/internal/mocks"
	"github.com/benmeehan/freebox-agent/internal/models"
	"github.com/benmeehan/freebox-agent/pkg/freebox"
)

const domain = "abcd.fbxos.fr"

func newAPI() *mocks.MockFreeboxAPI {
	api := &mocks.MockFreeboxAPI{}
	api.On("APIDomain").Return(domain)
	return api
}

func TestConnectionCollector(t *testing.T) {
	api := newAPI()
	api.On("GetConnectionStatus", mock.Anything).Return(freebox.ConnectionStatus{
		Type: "ethernet", Media: "ftth", State: "up",
		RateDown: 100, RateUp: 50, BytesDown: 1 << 40, BytesUp: 7,
		IPv4: "203.0.113.9", IPv6: "2001:db8::1",
	}, nil)

	points, err := (&ConnectionCollector{Logger: zerolog.Nop()}).Collect(context.Background(), api)
	require.NoError(t, err)
	require.Len(t, points, 5)

	for _, p := range points {
		assert.Equal(t, "connection_status", p.Measurement)
		assert.Equal(t, domain, p.Tags["api_domain"])
	}
	assert.Equal(t, "up", points[0].Fields["state"])
	assert.Equal(t, uint64(1<<40), points[2].Fields["bytes_down"])

	line, err := points[1].Line()
	require.NoError(t, err)
	assert.Contains(t, line, "connection_status,api_domain=abcd.fbxos.fr rate_down=100i,rate_up=50i ")
}

func TestXDSLCollector(t *testing.T) {
	api := newAPI()
	api.On("GetXDSLConnectionStatus", mock.Anything).Return(freebox.XDSLConnectionStatus{
		Status: freebox.XDSLStatus{Status: "showtime", Protocol: "vdsl", Modulation: "vdsl", Uptime: 3600},
		Up:     freebox.XDSLStats{MaxRate: 1200, Rate: 1000},
		Down:   freebox.XDSLStats{MaxRate: 60000, Rate: 50000},
	}, nil)

	points, err := (&XDSLCollector{Logger: zerolog.Nop()}).Collect(context.Background(), api)
	require.NoError(t, err)
	require.Len(t, points, 3)

	assert.Equal(t, "xdsl_status", points[0].Measurement)
	assert.Equal(t, "up", points[1].Tags["direction"])
	assert.Equal(t, uint32(50000), points[2].Fields["rate"])
}

func TestLANHostsCollector(t *testing.T) {
	api := newAPI()
	api.On("GetHostsOnLAN", mock.Anything, "pub").Return([]freebox.LanHost{
		{PrimaryName: "Living Room TV", L2Ident: freebox.LanHostL2Ident{ID: "aa:bb:cc:dd:ee:ff"}, Reachable: true, Active: true},
		{PrimaryName: "", L2Ident: freebox.LanHostL2Ident{ID: "11:22:33:44:55:66"}},
	}, nil)
	api.On("GetHostsOnLAN", mock.Anything, "wifiguest").Return(nil, &freebox.RequestError{Err: freebox.ErrEmptyResult})

	c := &LANHostsCollector{Logger: zerolog.Nop(), Interfaces: []string{"pub", "wifiguest"}}
	points, err := c.Collect(context.Background(), api)
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.Equal(t, "Living_Room_TV", points[0].Tags["primary_name"])
	assert.Equal(t, "null", points[1].Tags["primary_name"])
	assert.Equal(t, false, points[1].Fields["reachable"])
}

func TestLANHostsCollector_PartialFailure(t *testing.T) {
	api := newAPI()
	api.On("GetHostsOnLAN", mock.Anything, "pub").Return([]freebox.LanHost{{PrimaryName: "a"}}, nil)
	api.On("GetHostsOnLAN", mock.Anything, "broken").Return(nil, errors.New("boom"))

	c := &LANHostsCollector{Logger: zerolog.Nop(), Interfaces: []string{"broken", "pub"}}
	points, err := c.Collect(context.Background(), api)

	assert.Error(t, err)
	assert.Len(t, points, 1)
}

func TestLANHostsCollector_AllInterfaces(t *testing.T) {
	api := newAPI()
	api.On("GetLANInterfaces", mock.Anything).Return([]freebox.LanInterface{
		{Name: "pub", HostCount: 1},
		{Name: "wifiguest", HostCount: 0},
	}, nil)
	api.On("GetHostsOnLAN", mock.Anything, "pub").Return([]freebox.LanHost{{PrimaryName: "NAS"}}, nil)

	c := &LANHostsCollector{Logger: zerolog.Nop(), Interfaces: []string{AllInterfaces}}
	points, err := c.Collect(context.Background(), api)

	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "pub", points[0].Tags["interface"])
	api.AssertNotCalled(t, "GetHostsOnLAN", mock.Anything, "wifiguest")
}

func TestCollector_Errors(t *testing.T) {
	api := newAPI()
	api.On("GetConnectionStatus", mock.Anything).Return(freebox.ConnectionStatus{}, errors.New("down"))

	_, err := (&ConnectionCollector{Logger: zerolog.Nop()}).Collect(context.Background(), api)
	assert.ErrorContains(t, err, "down")
}

func TestAgentCollector(t *testing.T) {
	points, err := (&AgentCollector{Logger: zerolog.Nop()}).Collect(context.Background(), newAPI())
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "agent_process", points[0].Measurement)
	assert.Contains(t, points[0].Fields, "goroutines")
}

func TestIsEnabled(t *testing.T) {
	cfg := &models.CollectorConfig{CollectConnection: true, CollectLANHosts: true}

	assert.True(t, (&ConnectionCollector{}).IsEnabled(cfg))
	assert.False(t, (&XDSLCollector{}).IsEnabled(cfg))
	assert.False(t, (&LANHostsCollector{Logger: zerolog.Nop()}).IsEnabled(cfg))
	assert.False(t, (&AgentCollector{}).IsEnabled(cfg))

	cfg.Interfaces = []string{"pub"}
	assert.True(t, (&LANHostsCollector{}).IsEnabled(cfg))
}

func TestMetricsRegistry(t *testing.T) {
	r := NewMetricsRegistry()
	r.Register(&XDSLCollector{})
	r.Register(&ConnectionCollector{})

	assert.Equal(t, []string{"connection", "xdsl"}, r.Names())
	assert.Len(t, r.GetCollectors(), 2)
}
