package metrics_collectors

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/benmeehan/freebox-agent/internal/models"
)

// ConnectionCollector reports the WAN connection state and counters.
type ConnectionCollector struct {
	Logger zerolog.Logger
}

func (c *ConnectionCollector) Name() string {
	return "connection"
}

func (c *ConnectionCollector) IsEnabled(config *models.CollectorConfig) bool {
	return config.CollectConnection
}

func (c *ConnectionCollector) Collect(ctx context.Context, api FreeboxAPI) ([]*models.Point, error) {
	status, err := api.GetConnectionStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get connection status: %w", err)
	}

	ts := time.Now()
	domain := api.APIDomain()
	point := func() *models.Point {
		return models.NewPoint("connection_status", ts).Tag("api_domain", domain)
	}

	points := []*models.Point{
		point().Field("type", status.Type).Field("media", status.Media).Field("state", status.State),
		point().Field("rate_down", status.RateDown).Field("rate_up", status.RateUp),
		point().Field("bytes_down", status.BytesDown).Field("bytes_up", status.BytesUp),
		point().Field("bandwidth_down", status.BandwidthDown).Field("bandwidth_up", status.BandwidthUp),
		point().Field("ipv4", status.IPv4).Field("ipv6", status.IPv6),
	}

	c.Logger.Debug().Str("state", status.State).Msg("Connection status collected")
	return points, nil
}
