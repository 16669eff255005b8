package exporter

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/benmeehan/freebox-agent/internal/models"
)

// Exporter holds the router metrics exposed on /metrics. It uses its own
// registry so tests can build as many as they like.
type Exporter struct {
	registry *prometheus.Registry

	Up              prometheus.Gauge
	APIInfo         *prometheus.GaugeVec
	ConnectionRate  *prometheus.GaugeVec
	ConnectionBytes *prometheus.GaugeVec
	XDSLRate        *prometheus.GaugeVec
	LANHosts        *prometheus.GaugeVec
	WifiEnabled     prometheus.Gauge
	CollectorErrors *prometheus.CounterVec
	ControlRequests *prometheus.CounterVec
}

// New registers all router metrics on a fresh registry.
func New() *Exporter {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Exporter{
		registry: reg,
		Up: factory.NewGauge(prometheus.GaugeOpts{
			Name: "freebox_up",
			Help: "Whether the router answered the last discovery probe.",
		}),
		APIInfo: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "freebox_api_info",
			Help: "Router API version and device type, always 1.",
		}, []string{"api_version", "device_type"}),
		ConnectionRate: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "freebox_connection_rate_bytes",
			Help: "Current WAN throughput in bytes per second.",
		}, []string{"direction"}),
		ConnectionBytes: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "freebox_connection_bytes_total",
			Help: "WAN bytes transferred as reported by the router.",
		}, []string{"direction"}),
		XDSLRate: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "freebox_xdsl_rate_kbps",
			Help: "Synchronized DSL rate in kbit/s.",
		}, []string{"direction"}),
		LANHosts: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "freebox_lan_hosts",
			Help: "Hosts known on a LAN interface by reachability.",
		}, []string{"interface", "state"}),
		WifiEnabled: factory.NewGauge(prometheus.GaugeOpts{
			Name: "freebox_wifi_enabled",
			Help: "Whether Wi-Fi was enabled at the last read or update.",
		}),
		CollectorErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "freebox_collector_errors_total",
			Help: "Failed collection rounds by collector.",
		}, []string{"collector"}),
		ControlRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "freebox_control_requests_total",
			Help: "Control surface requests by route and status code.",
		}, []string{"route", "code"}),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (e *Exporter) Registry() *prometheus.Registry { return e.registry }

// Handler serves the registry in the Prometheus exposition format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// SetUp records the result of a discovery probe.
func (e *Exporter) SetUp(up bool) {
	e.Up.Set(boolValue(up))
}

// SetAPIInfo replaces the info series with the current version and type.
func (e *Exporter) SetAPIInfo(apiVersion, deviceType string) {
	e.APIInfo.Reset()
	e.APIInfo.WithLabelValues(apiVersion, deviceType).Set(1)
}

// SetWifiEnabled records the Wi-Fi state.
func (e *Exporter) SetWifiEnabled(enabled bool) {
	e.WifiEnabled.Set(boolValue(enabled))
}

// CollectorFailed counts one failed collection.
func (e *Exporter) CollectorFailed(collector string) {
	e.CollectorErrors.WithLabelValues(collector).Inc()
}

// ControlRequest counts one handled control request.
func (e *Exporter) ControlRequest(route, code string) {
	e.ControlRequests.WithLabelValues(route, code).Inc()
}

// ObservePoints updates the gauges that mirror collected points.
func (e *Exporter) ObservePoints(points []*models.Point) {
	hosts := map[string]map[string]int{}

	for _, p := range points {
		switch p.Measurement {
		case "connection_status":
			setFromField(e.ConnectionRate.WithLabelValues("down"), p, "rate_down")
			setFromField(e.ConnectionRate.WithLabelValues("up"), p, "rate_up")
			setFromField(e.ConnectionBytes.WithLabelValues("down"), p, "bytes_down")
			setFromField(e.ConnectionBytes.WithLabelValues("up"), p, "bytes_up")
		case "xdsl_stats":
			if direction := p.Tags["direction"]; direction != "" {
				setFromField(e.XDSLRate.WithLabelValues(direction), p, "rate")
			}
		case "lan_hosts":
			iface := p.Tags["interface"]
			if hosts[iface] == nil {
				hosts[iface] = map[string]int{"reachable": 0, "unreachable": 0}
			}
			if reachable, _ := p.Fields["reachable"].(bool); reachable {
				hosts[iface]["reachable"]++
			} else {
				hosts[iface]["unreachable"]++
			}
		}
	}

	for iface, counts := range hosts {
		for state, n := range counts {
			e.LANHosts.WithLabelValues(iface, state).Set(float64(n))
		}
	}
}

func setFromField(g prometheus.Gauge, p *models.Point, field string) {
	if v, ok := numeric(p.Fields[field]); ok {
		g.Set(v)
	}
}

func numeric(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
