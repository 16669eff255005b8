package freebox

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// GetConnectionStatus returns the WAN connection state and counters.
func (c *Client) GetConnectionStatus(ctx context.Context) (ConnectionStatus, error) {
	return Call[ConnectionStatus](ctx, c, http.MethodGet, "connection/", nil)
}

// GetXDSLConnectionStatus returns the DSL line status and per-direction stats.
func (c *Client) GetXDSLConnectionStatus(ctx context.Context) (XDSLConnectionStatus, error) {
	return Call[XDSLConnectionStatus](ctx, c, http.MethodGet, "connection/xdsl/", nil)
}

// GetLANInterfaces lists the LAN browser interfaces.
func (c *Client) GetLANInterfaces(ctx context.Context) ([]LanInterface, error) {
	return Call[[]LanInterface](ctx, c, http.MethodGet, "lan/browser/interfaces/", nil)
}

// GetHostsOnLAN lists the hosts known on iface.
func (c *Client) GetHostsOnLAN(ctx context.Context, iface string) ([]LanHost, error) {
	return Call[[]LanHost](ctx, c, http.MethodGet, fmt.Sprintf("lan/browser/%s/", url.PathEscape(iface)), nil)
}

// GetWifiStatus returns the global Wi-Fi state.
func (c *Client) GetWifiStatus(ctx context.Context) (WifiState, error) {
	return Call[WifiState](ctx, c, http.MethodGet, "wifi/config/", nil)
}

// UpdateWifiStatus turns Wi-Fi on or off and returns the resulting state.
func (c *Client) UpdateWifiStatus(ctx context.Context, update UpdateWifiState) (WifiState, error) {
	return Call[WifiState](ctx, c, http.MethodPut, "wifi/config/", update)
}
