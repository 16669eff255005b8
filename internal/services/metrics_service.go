package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/benmeehan/freebox-agent/internal/exporter"
	"github.com/benmeehan/freebox-agent/internal/metrics_collectors"
	"github.com/benmeehan/freebox-agent/internal/models"
	"github.com/benmeehan/freebox-agent/internal/utils"
	"github.com/benmeehan/freebox-agent/pkg/mqtt"
)

// MetricsSinks says where rendered line-protocol batches go. Nil fields are skipped.
type MetricsSinks struct {
	Writer    io.Writer
	Publisher mqtt.Publisher
	Topic     string
	QOS       int
}

// MetricsService periodically collects router metrics and writes them as
// line protocol.
type MetricsService struct {
	interval        time.Duration
	timeout         time.Duration
	collectorConfig *models.CollectorConfig
	api             metrics_collectors.FreeboxAPI
	sinks           MetricsSinks
	exporter        *exporter.Exporter
	logger          zerolog.Logger
	registry        *metrics_collectors.MetricsRegistry
	workerPool      *utils.WorkerPool
	poolOnce        sync.Once

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMetricsService initializes and returns a new instance of MetricsService.
// exp may be nil.
func NewMetricsService(
	interval, timeout time.Duration,
	collectorConfig *models.CollectorConfig,
	api metrics_collectors.FreeboxAPI,
	sinks MetricsSinks,
	exp *exporter.Exporter,
	logger zerolog.Logger,
) *MetricsService {
	service := &MetricsService{
		interval:        interval,
		timeout:         timeout,
		collectorConfig: collectorConfig,
		api:             api,
		sinks:           sinks,
		exporter:        exp,
		logger:          logger,
		registry:        metrics_collectors.NewMetricsRegistry(),
		workerPool:      utils.NewWorkerPool(4, logger),
	}

	service.registerDefaultCollectors()

	return service
}

// registerDefaultCollectors registers the default metric collectors.
func (m *MetricsService) registerDefaultCollectors() {
	m.registry.Register(&metrics_collectors.ConnectionCollector{Logger: m.logger})
	m.registry.Register(&metrics_collectors.XDSLCollector{Logger: m.logger})
	m.registry.Register(&metrics_collectors.LANHostsCollector{Logger: m.logger, Interfaces: m.collectorConfig.Interfaces})
	m.registry.Register(&metrics_collectors.AgentCollector{Logger: m.logger})
}

// Registry exposes the collector registry so callers can add collectors before Start.
func (m *MetricsService) Registry() *metrics_collectors.MetricsRegistry {
	return m.registry
}

// Start runs a first round right away, then one per interval.
func (m *MetricsService) Start() error {
	if m.ctx != nil {
		m.logger.Warn().Msg("MetricsService is already running")
		return errors.New("metrics service is already running")
	}

	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.wg.Add(1)
	go m.runMetricsCollectionLoop()

	m.logger.Info().Strs("collectors", m.registry.Names()).Dur("interval", m.interval).Msg("MetricsService started successfully")
	return nil
}

// Stop gracefully stops the metrics service.
func (m *MetricsService) Stop() error {
	if m.ctx == nil {
		m.logger.Warn().Msg("MetricsService is not running")
		return errors.New("metrics service is not running")
	}

	m.cancel()
	m.wg.Wait()
	m.Close()
	m.ctx = nil
	m.cancel = nil

	m.logger.Info().Msg("MetricsService stopped successfully")
	return nil
}

// Close releases the worker pool. It is called by Stop and is only needed
// directly after one-shot use through RunOnce.
func (m *MetricsService) Close() {
	m.poolOnce.Do(m.workerPool.Shutdown)
}

func (m *MetricsService) runMetricsCollectionLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		if err := m.RunOnce(m.ctx); err != nil {
			m.logger.Error().Err(err).Msg("Failed to write metrics")
		}

		select {
		case <-ticker.C:
		case <-m.ctx.Done():
			m.logger.Info().Msg("Stopping metrics collection")
			return
		}
	}
}

// RunOnce collects one round and writes it to every sink.
func (m *MetricsService) RunOnce(ctx context.Context) error {
	points := m.Collect(ctx)
	if m.exporter != nil {
		m.exporter.ObservePoints(points)
	}
	return m.Write(points)
}

// Collect runs every enabled collector concurrently, each bounded by the
// collector timeout. A failing collector is logged and counted; the points
// of the others are still returned, grouped by collector name.
func (m *MetricsService) Collect(ctx context.Context) []*models.Point {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = map[string][]*models.Point{}
	)

	collectors := m.registry.GetCollectors()
	for _, name := range m.registry.Names() {
		collector := collectors[name]
		if !collector.IsEnabled(m.collectorConfig) {
			continue
		}

		wg.Add(1)
		m.workerPool.Submit(name, func() {
			defer wg.Done()

			cctx, cancel := context.WithTimeout(ctx, m.timeout)
			defer cancel()

			points, err := collector.Collect(cctx, m.api)
			if err != nil {
				m.logger.Error().Err(err).Str("collector", name).Msg("Collector failed")
				if m.exporter != nil {
					m.exporter.CollectorFailed(name)
				}
			}

			mu.Lock()
			results[name] = points
			mu.Unlock()
		})
	}
	wg.Wait()

	var all []*models.Point
	for _, name := range m.registry.Names() {
		all = append(all, results[name]...)
	}
	m.logger.Debug().Int("points", len(all)).Msg("Metrics collected")
	return all
}

// Write renders points and hands the batch to each configured sink.
func (m *MetricsService) Write(points []*models.Point) error {
	batch, renderErrs := models.Batch(points)
	for _, err := range renderErrs {
		m.logger.Warn().Err(err).Msg("Dropping unrenderable point")
	}
	if batch == "" {
		return nil
	}

	var errs []error
	if m.sinks.Writer != nil {
		if _, err := io.WriteString(m.sinks.Writer, batch); err != nil {
			errs = append(errs, fmt.Errorf("failed to write metrics: %w", err))
		}
	}
	if m.sinks.Publisher != nil {
		if err := m.sinks.Publisher.PublishPayload(m.sinks.Topic, byte(m.sinks.QOS), []byte(batch)); err != nil {
			errs = append(errs, err)
		} else {
			m.logger.Debug().Str("topic", m.sinks.Topic).Msg("Metrics published successfully")
		}
	}
	return errors.Join(errs...)
}
