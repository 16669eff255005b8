package service_registry

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/benmeehan/freebox-agent/internal/constants"
	"github.com/benmeehan/freebox-agent/internal/exporter"
	"github.com/benmeehan/freebox-agent/internal/models"
	"github.com/benmeehan/freebox-agent/internal/registry"
	"github.com/benmeehan/freebox-agent/internal/services"
	"github.com/benmeehan/freebox-agent/internal/utils"
	"github.com/benmeehan/freebox-agent/pkg/freebox"
	"github.com/benmeehan/freebox-agent/pkg/mqtt"
)

// RouterClient is everything the services need from the router client.
type RouterClient interface {
	services.WifiController
	APIDomain() string
	GetConnectionStatus(ctx context.Context) (freebox.ConnectionStatus, error)
	GetXDSLConnectionStatus(ctx context.Context) (freebox.XDSLConnectionStatus, error)
	GetLANInterfaces(ctx context.Context) ([]freebox.LanInterface, error)
	GetHostsOnLAN(ctx context.Context, iface string) ([]freebox.LanHost, error)
}

// Dependencies are the long-lived objects shared by the services.
type Dependencies struct {
	Client     RouterClient
	Discoverer services.Discoverer
	Publisher  mqtt.Publisher // nil unless the mqtt sink is enabled
	Exporter   *exporter.Exporter
}

// ServiceRegistry manages the lifecycle of various services in the system.
type ServiceRegistry struct {
	services    map[string]registry.Service
	serviceKeys []string // registration order
	Logger      zerolog.Logger
}

// NewServiceRegistry initializes an empty service registry.
func NewServiceRegistry(logger zerolog.Logger) *ServiceRegistry {
	return &ServiceRegistry{
		services: make(map[string]registry.Service),
		Logger:   logger,
	}
}

// RegisterService adds a new service to the registry.
func (sr *ServiceRegistry) RegisterService(name string, svc registry.Service) {
	if _, exists := sr.services[name]; exists {
		sr.Logger.Warn().Msgf("Service %s is already registered", name)
		return
	}
	sr.services[name] = svc
	sr.serviceKeys = append(sr.serviceKeys, name)
	sr.Logger.Info().Msgf("Registered service: %s", name)
}

// Names returns the registered services in start order.
func (sr *ServiceRegistry) Names() []string {
	return append([]string(nil), sr.serviceKeys...)
}

// StartServices initiates all registered services in order.
// If a service fails to start, it stops already started services.
func (sr *ServiceRegistry) StartServices() error {
	startedServices := []string{}

	for _, name := range sr.serviceKeys {
		svc := sr.services[name]
		sr.Logger.Info().Msgf("Starting service: %s", name)
		if err := svc.Start(); err != nil {
			sr.Logger.Error().Err(err).Msgf("Failed to start service: %s", name)

			sr.Logger.Warn().Msg("Stopping already started services due to startup failure...")
			for i := len(startedServices) - 1; i >= 0; i-- {
				_ = sr.services[startedServices[i]].Stop()
			}
			return fmt.Errorf("failed to start %s: %w", name, err)
		}
		startedServices = append(startedServices, name)
	}

	return nil
}

// StopServices stops all services in reverse order.
func (sr *ServiceRegistry) StopServices() error {
	var stopErrors []error
	for i := len(sr.serviceKeys) - 1; i >= 0; i-- {
		name := sr.serviceKeys[i]
		if err := sr.services[name].Stop(); err != nil {
			stopErrors = append(stopErrors, fmt.Errorf("failed to stop %s: %w", name, err))
		}
	}
	if len(stopErrors) > 0 {
		for _, e := range stopErrors {
			sr.Logger.Error().Err(e).Msg("Service stop failure")
		}
		return errors.Join(stopErrors...)
	}
	return nil
}

// RegisterServices builds and registers the enabled services. The probe
// comes first so router reachability is known before metrics start, and
// the control surface comes last.
func (sr *ServiceRegistry) RegisterServices(config *utils.Config, deps Dependencies) error {
	servicesInOrder := []struct {
		name        string
		enabled     bool
		constructor func() (registry.Service, error)
	}{
		{
			name:    "probe",
			enabled: config.Probe.Enabled,
			constructor: func() (registry.Service, error) {
				if deps.Discoverer == nil {
					return nil, errors.New("probe service needs a discoverer")
				}
				return services.NewProbeService(
					config.Probe.Interval,
					config.Freebox.RequestTimeout,
					deps.Discoverer,
					deps.Exporter,
					sr.Logger.With().Str("service", "probe").Logger(),
				), nil
			},
		},
		{
			name:    "metrics",
			enabled: config.Metrics.Enabled,
			constructor: func() (registry.Service, error) {
				sinks, err := metricsSinks(config, deps)
				if err != nil {
					return nil, err
				}
				return services.NewMetricsService(
					config.Metrics.Interval,
					config.Metrics.Timeout,
					CollectorConfig(config),
					deps.Client,
					sinks,
					deps.Exporter,
					sr.Logger.With().Str("service", "metrics").Logger(),
				), nil
			},
		},
		{
			name:    "control",
			enabled: config.Control.Enabled,
			constructor: func() (registry.Service, error) {
				return services.NewControlService(
					config.Control.ListenAddress,
					config.Control.RestartDelay,
					config.Control.ShutdownTimeout,
					deps.Client,
					deps.Exporter,
					sr.Logger.With().Str("service", "control").Logger(),
				), nil
			},
		},
	}

	registeredServices := []string{}
	for _, svc := range servicesInOrder {
		if svc.enabled {
			serviceInstance, err := svc.constructor()
			if err != nil {
				sr.Logger.Error().Err(err).Msgf("Failed to create %s service", svc.name)
				return err
			}
			sr.RegisterService(svc.name, serviceInstance)
			registeredServices = append(registeredServices, svc.name)
		}
	}

	sr.Logger.Info().Msgf("Registered services in order: %v", registeredServices)
	return nil
}

// CollectorConfig extracts the collector switches from the configuration.
func CollectorConfig(config *utils.Config) *models.CollectorConfig {
	return &models.CollectorConfig{
		CollectConnection: config.Metrics.CollectConnection,
		CollectXDSL:       config.Metrics.CollectXDSL,
		CollectLANHosts:   config.Metrics.CollectLANHosts,
		CollectAgent:      config.Metrics.CollectAgent,
		Interfaces:        config.Metrics.Interfaces,
	}
}

func metricsSinks(config *utils.Config, deps Dependencies) (services.MetricsSinks, error) {
	var sinks services.MetricsSinks
	enabled := utils.SliceToSet(config.Metrics.Sinks)

	if _, ok := enabled[constants.SinkStdout]; ok {
		sinks.Writer = os.Stdout
	}
	if _, ok := enabled[constants.SinkMQTT]; ok {
		if deps.Publisher == nil {
			return sinks, errors.New("mqtt sink enabled without a connected publisher")
		}
		sinks.Publisher = deps.Publisher
		sinks.Topic = config.Metrics.MQTT.Topic
		sinks.QOS = config.Metrics.MQTT.QOS
	}
	return sinks, nil
}
