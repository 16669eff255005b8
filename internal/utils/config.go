package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/benmeehan/freebox-agent/internal/constants"
	"github.com/benmeehan/freebox-agent/pkg/file"
)

// Config represents the structure of the configuration file.
type Config struct {
	Freebox struct {
		BootstrapURL   string        `yaml:"bootstrap_url"`   // Discovery document address
		AppID          string        `yaml:"app_id"`          // Operator-supplied app id, generated when empty
		AppName        string        `yaml:"app_name"`        // Shown on the router display, defaults to app id
		AppVersion     string        `yaml:"app_version"`     // Semantic version announced to the router
		DeviceName     string        `yaml:"device_name"`     // Defaults to app id
		StateFile      string        `yaml:"state_file"`      // Path to the persisted app id and token
		CACertificate  string        `yaml:"ca_certificate"`  // PEM bundle trusted for the router API
		RequestTimeout time.Duration `yaml:"request_timeout"` // Per HTTP request
		SessionTTL     time.Duration `yaml:"session_ttl"`     // 0 renegotiates a session on every call
		MinAPIVersion  string        `yaml:"min_api_version"` // Semver constraint checked after discovery
	} `yaml:"freebox"`

	Authorization struct {
		BaseDelay time.Duration `yaml:"base_delay"` // First poll delay
		MaxDelay  time.Duration `yaml:"max_delay"`  // Poll delay cap
		Timeout   time.Duration `yaml:"timeout"`    // Overall wait for the user to approve
	} `yaml:"authorization"`

	Security struct {
		TokenKeyFile string `yaml:"token_key_file"` // Seals the app token at rest when set
	} `yaml:"security"`

	Logging struct {
		Level  string `yaml:"level"`  // zerolog level name
		Format string `yaml:"format"` // json or console
	} `yaml:"logging"`

	Control struct {
		Enabled         bool          `yaml:"enabled"`
		ListenAddress   string        `yaml:"listen_address"`
		RestartDelay    time.Duration `yaml:"restart_delay"`    // Wi-Fi off time during a restart
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // Grace period for in-flight requests
	} `yaml:"control"`

	Metrics struct {
		Enabled           bool          `yaml:"enabled"`
		Interval          time.Duration `yaml:"interval"`   // Between collection rounds
		Timeout           time.Duration `yaml:"timeout"`    // Per collector
		Interfaces        []string      `yaml:"interfaces"` // LAN browser interfaces to list hosts on
		CollectConnection bool          `yaml:"collect_connection"`
		CollectXDSL       bool          `yaml:"collect_xdsl"`
		CollectLANHosts   bool          `yaml:"collect_lan_hosts"`
		CollectAgent      bool          `yaml:"collect_agent"` // CPU and memory of this process
		Sinks             []string      `yaml:"sinks"`         // stdout and/or mqtt

		MQTT struct {
			Broker        string `yaml:"broker"`         // MQTT broker address
			ClientID      string `yaml:"client_id"`      // Prefix, a random suffix is appended
			CACertificate string `yaml:"ca_certificate"` // Path to the CA certificate
			Topic         string `yaml:"topic"`
			QOS           int    `yaml:"qos"`
		} `yaml:"mqtt"`
	} `yaml:"metrics"`

	Probe struct {
		Enabled  bool          `yaml:"enabled"`
		Interval time.Duration `yaml:"interval"`
	} `yaml:"probe"`
}

// DefaultConfig returns the configuration used for keys absent from the file.
func DefaultConfig() *Config {
	var c Config

	c.Freebox.AppVersion = constants.DefaultAppVersion
	c.Freebox.StateFile = constants.DefaultStateFile
	c.Freebox.RequestTimeout = constants.DefaultRequestTimeout
	c.Freebox.SessionTTL = constants.DefaultSessionTTL
	c.Freebox.MinAPIVersion = constants.DefaultMinAPIVersion

	c.Authorization.BaseDelay = constants.DefaultPollBaseDelay
	c.Authorization.MaxDelay = constants.DefaultPollMaxDelay
	c.Authorization.Timeout = constants.DefaultPollTimeout

	c.Logging.Level = "info"
	c.Logging.Format = "json"

	c.Control.Enabled = true
	c.Control.ListenAddress = constants.DefaultListenAddress
	c.Control.RestartDelay = constants.DefaultRestartDelay
	c.Control.ShutdownTimeout = constants.DefaultShutdownTimeout

	c.Metrics.Interval = constants.DefaultMetricsInterval
	c.Metrics.Timeout = constants.DefaultMetricsTimeout
	c.Metrics.Interfaces = []string{constants.DefaultLANInterface}
	c.Metrics.CollectConnection = true
	c.Metrics.CollectXDSL = true
	c.Metrics.CollectLANHosts = true
	c.Metrics.Sinks = []string{constants.SinkStdout}
	c.Metrics.MQTT.ClientID = constants.DefaultMQTTClientID
	c.Metrics.MQTT.Topic = constants.DefaultMQTTTopic

	c.Probe.Enabled = true
	c.Probe.Interval = constants.DefaultProbeInterval

	return &c
}

// LoadConfig loads the YAML configuration from the specified file on top
// of DefaultConfig and validates the result.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	exists, err := fileClient.IsFileExists(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config %s: %w", filename, err)
	}
	if !exists {
		return nil, fmt.Errorf("config file %s does not exist", filename)
	}

	config := DefaultConfig()
	if err := fileClient.ReadYamlFile(filename, config); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", filename, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", filename, err)
	}
	return config, nil
}

// Validate reports every inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Freebox.StateFile == "" {
		errs = append(errs, errors.New("freebox.state_file must not be empty"))
	}
	if c.Freebox.RequestTimeout <= 0 {
		errs = append(errs, errors.New("freebox.request_timeout must be positive"))
	}
	if c.Freebox.SessionTTL < 0 {
		errs = append(errs, errors.New("freebox.session_ttl must not be negative"))
	}
	if c.Freebox.AppVersion != "" {
		if _, err := semver.NewVersion(c.Freebox.AppVersion); err != nil {
			errs = append(errs, fmt.Errorf("freebox.app_version: %w", err))
		}
	}
	if c.Freebox.MinAPIVersion != "" {
		if _, err := semver.NewConstraint(c.Freebox.MinAPIVersion); err != nil {
			errs = append(errs, fmt.Errorf("freebox.min_api_version: %w", err))
		}
	}

	if c.Authorization.BaseDelay <= 0 || c.Authorization.MaxDelay <= 0 || c.Authorization.Timeout <= 0 {
		errs = append(errs, errors.New("authorization delays and timeout must be positive"))
	}
	if c.Authorization.MaxDelay < c.Authorization.BaseDelay {
		errs = append(errs, errors.New("authorization.max_delay must not be below base_delay"))
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q is not json or console", c.Logging.Format))
	}

	if c.Control.Enabled {
		if c.Control.ListenAddress == "" {
			errs = append(errs, errors.New("control.listen_address must not be empty"))
		}
		if c.Control.RestartDelay < 0 || c.Control.ShutdownTimeout <= 0 {
			errs = append(errs, errors.New("control.restart_delay and shutdown_timeout must be positive"))
		}
	}

	if c.Metrics.Enabled {
		if c.Metrics.Interval <= 0 || c.Metrics.Timeout <= 0 {
			errs = append(errs, errors.New("metrics.interval and metrics.timeout must be positive"))
		}
		known := SliceToSet([]string{constants.SinkStdout, constants.SinkMQTT})
		for _, sink := range c.Metrics.Sinks {
			if _, ok := known[sink]; !ok {
				errs = append(errs, fmt.Errorf("metrics.sinks: unknown sink %q", sink))
			}
		}
		if _, ok := SliceToSet(c.Metrics.Sinks)[constants.SinkMQTT]; ok {
			if c.Metrics.MQTT.Broker == "" {
				errs = append(errs, errors.New("metrics.mqtt.broker is required for the mqtt sink"))
			}
			if c.Metrics.MQTT.Topic == "" {
				errs = append(errs, errors.New("metrics.mqtt.topic is required for the mqtt sink"))
			}
		}
		if c.Metrics.MQTT.QOS < 0 || c.Metrics.MQTT.QOS > 2 {
			errs = append(errs, fmt.Errorf("metrics.mqtt.qos %d is outside 0..2", c.Metrics.MQTT.QOS))
		}
	}

	if c.Probe.Enabled && c.Probe.Interval <= 0 {
		errs = append(errs, errors.New("probe.interval must be positive"))
	}

	return errors.Join(errs...)
}

// SliceToSet turns a list setting into a set for membership checks.
func SliceToSet[T comparable](slice []T) map[T]struct{} {
	set := make(map[T]struct{}, len(slice))
	for _, item := range slice {
		set[item] = struct{}{}
	}
	return set
}
