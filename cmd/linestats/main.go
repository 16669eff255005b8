// Command linestats collects one round of router metrics and prints it as
// line protocol on stdout.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/benmeehan/freebox-agent/internal/constants"
	"github.com/benmeehan/freebox-agent/internal/service_registry"
	"github.com/benmeehan/freebox-agent/internal/services"
	"github.com/benmeehan/freebox-agent/internal/utils"
	"github.com/benmeehan/freebox-agent/pkg/encryption"
	"github.com/benmeehan/freebox-agent/pkg/file"
	"github.com/benmeehan/freebox-agent/pkg/freebox"
	"github.com/benmeehan/freebox-agent/pkg/identity"
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
	// stdout carries the points, so logs always go to stderr.
	log, err := utils.NewLogger(config.Logging.Level, config.Logging.Format, os.Stderr)
	if err != nil {
		bootLog.Fatal().Err(err).Msg("Failed to set up logging")
	}

	var sealer encryption.EncryptionManagerInterface
	if config.Security.TokenKeyFile != "" {
		em := encryption.NewEncryptionManager(fileClient)
		if err := em.Initialize(config.Security.TokenKeyFile); err != nil {
			log.Fatal().Err(err).Msg("Failed to load token sealing key")
		}
		sealer = em
	}
	store := tokenstore.NewStore(config.Freebox.StateFile, fileClient, sealer, log)

	appID, _ := identity.ResolveAppID(config.Freebox.AppID, store.AppID())
	id, err := identity.New(appID, config.Freebox.AppName, config.Freebox.AppVersion, config.Freebox.DeviceName)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid application identity")
	}

	httpClient, err := freebox.NewHTTPClient(config.Freebox.CACertificate, config.Freebox.RequestTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build HTTP client")
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
		Logger: log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to the router")
	}

	metrics := services.NewMetricsService(
		config.Metrics.Interval,
		config.Metrics.Timeout,
		service_registry.CollectorConfig(config),
		client,
		services.MetricsSinks{Writer: os.Stdout},
		nil,
		log,
	)
	defer metrics.Close()

	if err := metrics.RunOnce(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to write metrics")
		stop()
		os.Exit(1)
	}
}
