package constants

import "time"

const (
	// DefaultConfigPath is read when no -c/--config flag is given.
	DefaultConfigPath = "configs/config.yaml"

	DefaultStateFile      = "free.conf"
	DefaultRequestTimeout = 10 * time.Second
	DefaultSessionTTL     = 5 * time.Minute
	DefaultMinAPIVersion  = ">= 4.0"
	DefaultAppVersion     = "1.0"
)

// Authorization poll
const (
	DefaultPollBaseDelay = 1 * time.Second
	DefaultPollMaxDelay  = 10 * time.Second
	DefaultPollTimeout   = 5 * time.Minute
)

// Control surface
const (
	DefaultListenAddress   = "0.0.0.0:8000"
	DefaultRestartDelay    = 5 * time.Second
	DefaultShutdownTimeout = 5 * time.Second
)

// Metrics and probe
const (
	DefaultMetricsInterval = 60 * time.Second
	DefaultMetricsTimeout  = 10 * time.Second
	DefaultMQTTTopic       = "freebox/metrics"
	DefaultMQTTClientID    = "freebox-agent"
	DefaultProbeInterval   = 30 * time.Second

	// DefaultLANInterface is the router's main LAN browser interface.
	DefaultLANInterface = "pub"
)

// Metric sinks
const (
	SinkStdout = "stdout"
	SinkMQTT   = "mqtt"
)
