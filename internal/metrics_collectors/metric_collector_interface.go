package metrics_collectors

import (
	"context"

	"github.com/benmeehan/freebox-agent/internal/models"
	"github.com/benmeehan/freebox-agent/pkg/freebox"
)

// FreeboxAPI is the subset of the router client the collectors read from.
type FreeboxAPI interface {
	APIDomain() string
	GetConnectionStatus(ctx context.Context) (freebox.ConnectionStatus, error)
	GetXDSLConnectionStatus(ctx context.Context) (freebox.XDSLConnectionStatus, error)
	GetLANInterfaces(ctx context.Context) ([]freebox.LanInterface, error)
	GetHostsOnLAN(ctx context.Context, iface string) ([]freebox.LanHost, error)
}

// MetricCollector defines the interface for collecting one group of points.
type MetricCollector interface {
	Name() string                                                         // Name of the collector (e.g., "connection", "xdsl")
	IsEnabled(config *models.CollectorConfig) bool                        // Check if the collector is enabled in the config
	Collect(ctx context.Context, api FreeboxAPI) ([]*models.Point, error) // Collect one round of points
}
