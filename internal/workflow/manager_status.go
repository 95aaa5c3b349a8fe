package workflow

import (
	"context"

	"newsreel/internal/logging"
	"newsreel/internal/queue"
	"newsreel/internal/stage"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running     bool
	LastError   string
	LastJob     *queue.Job
	QueueStats  queue.HealthSummary
	StageHealth map[string]stage.Health
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	lastJob := m.lastJob
	lanes := make([]*lane, len(m.lanes))
	copy(lanes, m.lanes)
	m.mu.RUnlock()

	stats, err := m.store.Health(ctx)
	if err != nil {
		m.logger.Warn("failed to read queue health", logging.Error(err))
	}

	health := make(map[string]stage.Health, len(lanes))
	for _, ln := range lanes {
		switch {
		case ln.discoverer != nil:
			health[ln.name] = ln.discoverer.HealthCheck(ctx)
		case ln.handler != nil:
			health[ln.name] = ln.handler.HealthCheck(ctx)
		}
	}

	summary := StatusSummary{Running: running, QueueStats: stats, StageHealth: health}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if lastJob != nil {
		copy := *lastJob
		summary.LastJob = &copy
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastJob(job *queue.Job) {
	m.mu.Lock()
	if job != nil {
		copy := *job
		m.lastJob = &copy
	} else {
		m.lastJob = nil
	}
	m.mu.Unlock()
}
