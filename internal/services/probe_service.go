package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/benmeehan/freebox-agent/internal/exporter"
	"github.com/benmeehan/freebox-agent/pkg/freebox"
)

// Discoverer fetches the router's endpoint description.
type Discoverer interface {
	Discover(ctx context.Context) (*freebox.EndpointDescriptor, error)
}

// ProbeService periodically checks that the router still answers discovery.
type ProbeService struct {
	Interval   time.Duration
	Timeout    time.Duration
	Discoverer Discoverer
	Exporter   *exporter.Exporter
	Logger     zerolog.Logger

	up     *bool
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewProbeService initializes a new ProbeService. exp may be nil.
func NewProbeService(interval, timeout time.Duration, discoverer Discoverer, exp *exporter.Exporter, logger zerolog.Logger) *ProbeService {
	return &ProbeService{
		Interval:   interval,
		Timeout:    timeout,
		Discoverer: discoverer,
		Exporter:   exp,
		Logger:     logger,
	}
}

// Start launches the probe loop in a separate goroutine.
func (p *ProbeService) Start() error {
	if p.ctx != nil {
		p.Logger.Warn().Msg("ProbeService is already running")
		return errors.New("probe service is already running")
	}

	p.ctx, p.cancel = context.WithCancel(context.Background())

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.runProbeLoop()
	}()

	p.Logger.Info().Dur("interval", p.Interval).Msg("ProbeService started successfully")
	return nil
}

// Stop gracefully stops the probe service.
func (p *ProbeService) Stop() error {
	if p.ctx == nil {
		p.Logger.Warn().Msg("ProbeService is not running")
		return errors.New("probe service is not running")
	}

	p.cancel()
	p.wg.Wait()

	p.ctx = nil
	p.cancel = nil

	p.Logger.Info().Msg("ProbeService stopped successfully")
	return nil
}

func (p *ProbeService) runProbeLoop() {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		p.Probe(p.ctx)

		select {
		case <-ticker.C:
		case <-p.ctx.Done():
			return
		}
	}
}

// Probe runs one discovery and records the outcome. It returns whether the
// router answered.
func (p *ProbeService) Probe(ctx context.Context) bool {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = p.Interval
	}
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	desc, err := p.Discoverer.Discover(pctx)
	up := err == nil

	if p.Exporter != nil {
		p.Exporter.SetUp(up)
		if up {
			p.Exporter.SetAPIInfo(desc.APIVersion, desc.DeviceType)
		}
	}

	switch {
	case p.up == nil && up:
		p.Logger.Info().Str("api_version", desc.APIVersion).Msg("Router is up")
	case p.up == nil || *p.up != up:
		if up {
			p.Logger.Info().Str("api_version", desc.APIVersion).Msg("Router is back up")
		} else {
			p.Logger.Warn().Err(err).Msg("Router is down")
		}
	default:
		p.Logger.Debug().Bool("up", up).Msg("Probe completed")
	}
	p.up = &up

	return up
}
