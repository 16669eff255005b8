package metrics_collectors

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/benmeehan/freebox-agent/internal/models"
	"github.com/benmeehan/freebox-agent/pkg/freebox"
)

// AllInterfaces in Interfaces selects every LAN interface that has hosts.
const AllInterfaces = "*"

// LANHostsCollector reports every host seen on the configured LAN interfaces.
type LANHostsCollector struct {
	Logger     zerolog.Logger
	Interfaces []string
}

func (c *LANHostsCollector) Name() string {
	return "lan_hosts"
}

func (c *LANHostsCollector) IsEnabled(config *models.CollectorConfig) bool {
	if config.CollectLANHosts && len(config.Interfaces) == 0 {
		c.Logger.Warn().Msg("LAN hosts collection disabled: no interfaces configured")
	}
	return config.CollectLANHosts && len(config.Interfaces) > 0
}

func (c *LANHostsCollector) Collect(ctx context.Context, api FreeboxAPI) ([]*models.Point, error) {
	ts := time.Now()
	domain := api.APIDomain()

	interfaces, err := c.interfaces(ctx, api)
	if err != nil {
		return nil, err
	}

	var (
		points []*models.Point
		errs   []error
	)
	for _, iface := range interfaces {
		hosts, err := api.GetHostsOnLAN(ctx, iface)
		if err != nil {
			// An interface without hosts comes back with no result at all.
			if errors.Is(err, freebox.ErrEmptyResult) {
				continue
			}
			errs = append(errs, fmt.Errorf("failed to list hosts on %s: %w", iface, err))
			continue
		}
		for _, host := range hosts {
			points = append(points, models.NewPoint("lan_hosts", ts).
				Tag("api_domain", domain).
				Tag("interface", iface).
				Tag("primary_name", hostLabel(host.PrimaryName)).
				Tag("l2ident", host.L2Ident.ID).
				Field("reachable", host.Reachable).
				Field("active", host.Active))
		}
		c.Logger.Debug().Str("interface", iface).Int("hosts", len(hosts)).Msg("LAN hosts collected")
	}

	return points, errors.Join(errs...)
}

func (c *LANHostsCollector) interfaces(ctx context.Context, api FreeboxAPI) ([]string, error) {
	if !slices.Contains(c.Interfaces, AllInterfaces) {
		return c.Interfaces, nil
	}
	all, err := api.GetLANInterfaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list LAN interfaces: %w", err)
	}
	var names []string
	for _, iface := range all {
		if iface.HostCount > 0 {
			names = append(names, iface.Name)
		}
	}
	return names, nil
}

// hostLabel makes a host name usable as a tag value.
func hostLabel(name string) string {
	if name == "" {
		return "null"
	}
	return strings.ReplaceAll(name, " ", "_")
}
