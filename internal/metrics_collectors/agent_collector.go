package metrics_collectors

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/process"

	"github.com/benmeehan/freebox-agent/internal/models"
)

// AgentCollector reports the agent's own CPU and memory use.
type AgentCollector struct {
	Logger zerolog.Logger
	proc   *process.Process
}

func (a *AgentCollector) Name() string {
	return "agent"
}

func (a *AgentCollector) IsEnabled(config *models.CollectorConfig) bool {
	return config.CollectAgent
}

func (a *AgentCollector) Collect(ctx context.Context, api FreeboxAPI) ([]*models.Point, error) {
	if a.proc == nil {
		proc, err := process.NewProcess(int32(os.Getpid()))
		if err != nil {
			return nil, fmt.Errorf("failed to open own process: %w", err)
		}
		a.proc = proc
	}

	point := models.NewPoint("agent_process", time.Now()).
		Tag("api_domain", api.APIDomain()).
		Field("goroutines", runtime.NumGoroutine())

	if cpuPercent, err := a.proc.CPUPercent(); err == nil {
		point.Field("cpu_percent", cpuPercent)
	} else {
		a.Logger.Warn().Err(err).Msg("Failed to get CPU usage")
	}
	if memInfo, err := a.proc.MemoryInfo(); err == nil {
		point.Field("rss_bytes", memInfo.RSS)
	} else {
		a.Logger.Warn().Err(err).Msg("Failed to get memory information")
	}

	return []*models.Point{point}, nil
}
