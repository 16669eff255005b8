package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/benmeehan/freebox-agent/internal/constants"
	"github.com/benmeehan/freebox-agent/internal/exporter"
	"github.com/benmeehan/freebox-agent/internal/service_registry"
	"github.com/benmeehan/freebox-agent/internal/utils"
	"github.com/benmeehan/freebox-agent/pkg/encryption"
	"github.com/benmeehan/freebox-agent/pkg/file"
	"github.com/benmeehan/freebox-agent/pkg/freebox"
	"github.com/benmeehan/freebox-agent/pkg/identity"
	"github.com/benmeehan/freebox-agent/pkg/mqtt"
	"github.com/benmeehan/freebox-agent/pkg/tokenstore"
)

func main() {
	configPath := pflag.StringP("config", "c", constants.DefaultConfigPath, "path to the YAML configuration file")
	pflag.Parse()

	bootLog := zerolog.New(os.Stderr).With().Timestamp().Logger()

	fileClient := file.NewFileService()

	config, err := utils.LoadConfig(*configPath, fileClient)
	if err != nil {
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log, err := utils.NewLogger(config.Logging.Level, config.Logging.Format, os.Stderr)
	if err != nil {
		bootLog.Fatal().Err(err).Msg("Failed to set up logging")
	}

	// Token sealing is optional. A nil interface, not a nil pointer, means plaintext.
	var sealer encryption.EncryptionManagerInterface
	if config.Security.TokenKeyFile != "" {
		em := encryption.NewEncryptionManager(fileClient)
		if err := em.Initialize(config.Security.TokenKeyFile); err != nil {
			log.Fatal().Err(err).Msg("Failed to load token sealing key")
		}
		sealer = em
	}
	store := tokenstore.NewStore(config.Freebox.StateFile, fileClient, sealer, log)

	appID, generated := identity.ResolveAppID(config.Freebox.AppID, store.AppID())
	if generated {
		log.Info().Str("app_id", appID).Msg("Generated a new app id")
	}
	id, err := identity.New(appID, config.Freebox.AppName, config.Freebox.AppVersion, config.Freebox.DeviceName)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid application identity")
	}

	httpClient, err := freebox.NewHTTPClient(config.Freebox.CACertificate, config.Freebox.RequestTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build HTTP client")
	}
	if config.Freebox.CACertificate == "" {
		log.Warn().Msg("No CA certificate configured, router TLS certificate will not be verified")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := freebox.NewClient(ctx, freebox.Options{
		Identity:      id,
		Store:         store,
		HTTPClient:    httpClient,
		BootstrapURL:  config.Freebox.BootstrapURL,
		MinAPIVersion: config.Freebox.MinAPIVersion,
		SessionTTL:    config.Freebox.SessionTTL,
		Poll: freebox.PollPolicy{
			BaseDelay: config.Authorization.BaseDelay,
			MaxDelay:  config.Authorization.MaxDelay,
			Timeout:   config.Authorization.Timeout,
		},
		Logger: log.With().Str("component", "freebox").Logger(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to the router")
	}
	log.Info().Str("base_url", client.BaseURL()).Str("app_id", client.AppID()).Msg("Router client ready")

	var publisher *mqtt.MqttService
	deps := service_registry.Dependencies{
		Client:     client,
		Discoverer: freebox.NewDiscoverer(config.Freebox.BootstrapURL, httpClient),
		Exporter:   exporter.New(),
	}
	if config.Metrics.Enabled {
		if _, ok := utils.SliceToSet(config.Metrics.Sinks)[constants.SinkMQTT]; ok {
			publisher = mqtt.NewMqttService(fileClient, config.Metrics.Timeout)
			clientID := mqtt.ClientID(config.Metrics.MQTT.ClientID)
			if err := publisher.Initialize(config.Metrics.MQTT.Broker, clientID, config.Metrics.MQTT.CACertificate); err != nil {
				log.Fatal().Err(err).Msg("Failed to initialize MQTT connection")
			}
			log.Info().Str("client_id", clientID).Msg("Connected to MQTT broker")
			deps.Publisher = publisher
		}
	}

	serviceRegistry := service_registry.NewServiceRegistry(log)
	if err := serviceRegistry.RegisterServices(config, deps); err != nil {
		log.Fatal().Err(err).Msg("Failed to register services")
	}
	if err := serviceRegistry.StartServices(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start services")
	}
	log.Info().Msg("All services started successfully")

	<-ctx.Done()

	log.Info().Msg("Shutting down gracefully...")
	if err := serviceRegistry.StopServices(); err != nil {
		log.Error().Err(err).Msg("Some services did not stop cleanly")
	}
	if publisher != nil {
		publisher.Disconnect(250)
	}
}
