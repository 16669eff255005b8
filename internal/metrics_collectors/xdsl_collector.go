package metrics_collectors

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/benmeehan/freebox-agent/internal/models"
	"github.com/benmeehan/freebox-agent/pkg/freebox"
)

// XDSLCollector reports the DSL line status and per-direction rates.
type XDSLCollector struct {
	Logger zerolog.Logger
}

func (c *XDSLCollector) Name() string {
	return "xdsl"
}

func (c *XDSLCollector) IsEnabled(config *models.CollectorConfig) bool {
	return config.CollectXDSL
}

func (c *XDSLCollector) Collect(ctx context.Context, api FreeboxAPI) ([]*models.Point, error) {
	line, err := api.GetXDSLConnectionStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get xdsl status: %w", err)
	}

	ts := time.Now()
	domain := api.APIDomain()

	points := []*models.Point{
		models.NewPoint("xdsl_status", ts).
			Tag("api_domain", domain).
			Field("status", line.Status.Status).
			Field("protocol", line.Status.Protocol).
			Field("modulation", line.Status.Modulation).
			Field("uptime", line.Status.Uptime),
		statsPoint(ts, domain, "up", line.Up),
		statsPoint(ts, domain, "down", line.Down),
	}

	c.Logger.Debug().Str("status", line.Status.Status).Msg("xDSL status collected")
	return points, nil
}

func statsPoint(ts time.Time, domain, direction string, stats freebox.XDSLStats) *models.Point {
	return models.NewPoint("xdsl_stats", ts).
		Tag("api_domain", domain).
		Tag("direction", direction).
		Field("maxrate", stats.MaxRate).
		Field("rate", stats.Rate)
}
