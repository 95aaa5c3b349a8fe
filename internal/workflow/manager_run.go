package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"newsreel/internal/logging"
)

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	lanes := make([]*lane, 0, len(m.lanes))
	lanes = append(lanes, m.lanes...)
	if len(lanes) == 0 {
		m.mu.Unlock()
		return errors.New("workflow lanes not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	for _, ln := range lanes {
		ln.logger = m.laneLogger(ln)
	}
	m.wg.Add(len(lanes) + 1)
	m.mu.Unlock()

	go m.runReclaimer(runCtx)
	for _, ln := range lanes {
		if ln.kind == laneDiscover {
			go m.runDiscovery(runCtx, ln)
		} else {
			go m.runLane(runCtx, ln)
		}
	}

	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) runLane(ctx context.Context, ln *lane) {
	defer m.wg.Done()
	logger := ln.logger
	if logger == nil {
		logger = logging.NewNop()
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := ln.claim(ctx, m.workerID)
		if err != nil {
			m.handleClaimError(ctx, logger, err)
			continue
		}
		if job == nil {
			m.waitForWorkOrShutdown(ctx)
			continue
		}

		if err := m.processJob(ctx, ln, logger, job); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
		}
	}
}

// runDiscovery polls the discoverer instead of claiming jobs. The discoverer
// gates itself on an idle queue, so every pass is cheap while jobs are in
// flight. Pass failures are retried on the next poll and never notify; there
// is no job to attach them to.
func (m *Manager) runDiscovery(ctx context.Context, ln *lane) {
	defer m.wg.Done()
	logger := ln.logger
	if logger == nil {
		logger = logging.NewNop()
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		passCtx := withStageContext(ctx, ln, nil, uuid.NewString())
		if _, err := ln.discoverer.Discover(passCtx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			m.setLastError(err)
			logging.WithContext(passCtx, logger).Error("discovery pass failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "stage_failure"),
				logging.String(logging.FieldErrorHint, "check news provider configuration"),
			)
		}
		m.waitForWorkOrShutdown(ctx)
	}
}

// runReclaimer sweeps stale leases on the poll cadence. Leases are uniform
// across lanes, so one sweep covers all of them.
func (m *Manager) runReclaimer(ctx context.Context) {
	defer m.wg.Done()
	logger := logging.NewComponentLogger(m.logger, "workflow-reclaimer")

	for {
		if err := m.heartbeat.ReclaimStale(ctx, logger); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			logger.Warn("reclaim stale leases failed; stuck jobs may remain",
				logging.Error(err),
				logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(m.pollInterval):
		}
	}
}

func (m *Manager) handleClaimError(ctx context.Context, logger *slog.Logger, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	m.setLastError(err)
	logger.Error("failed to claim next job",
		logging.Error(err),
		logging.String(logging.FieldEventType, "queue_fetch_failed"),
		logging.String(logging.FieldErrorHint, "check queue database access"),
	)
	select {
	case <-ctx.Done():
		return
	case <-time.After(m.errorRetry):
	}
}

func (m *Manager) waitForWorkOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(m.pollInterval):
	}
}
