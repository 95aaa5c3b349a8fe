package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"newsreel/internal/logging"
	"newsreel/internal/queue"
	"newsreel/internal/stage"
)

func (m *Manager) processJob(ctx context.Context, ln *lane, laneLogger *slog.Logger, job *queue.Job) error {
	requestID := uuid.NewString()
	stageCtx := withStageContext(ctx, ln, job, requestID)
	stageLogger := m.stageLogger(stageCtx, laneLogger)
	defer m.releaseClaim(stageCtx, stageLogger, job.ID)

	if aware, ok := ln.handler.(loggerAware); ok {
		aware.SetLogger(stageLogger)
	}

	return m.executeStage(stageCtx, ln, stageLogger, job)
}

func (m *Manager) executeStage(ctx context.Context, ln *lane, stageLogger *slog.Logger, job *queue.Job) error {
	stageStart := time.Now()
	stageLogger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("script_stage", string(job.ScriptStage)),
		logging.String("image_stage", string(job.ImageStage)),
		logging.String("story_title", strings.TrimSpace(job.Title)),
	)

	handler := ln.handler
	if handler == nil {
		err := fmt.Errorf("lane %s has no handler", ln.name)
		m.handleStageFailure(ctx, ln, stageLogger, job, err)
		m.setLastError(err)
		return err
	}

	if err := handler.Prepare(ctx, job); err != nil {
		m.handleStageFailure(ctx, ln, stageLogger, job, err)
		m.setLastError(err)
		return err
	}

	execErr := m.executeWithHeartbeat(ctx, handler, job)
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			stageLogger.Debug("stage interrupted by shutdown")
			return execErr
		}
		m.handleStageFailure(ctx, ln, stageLogger, job, execErr)
		m.setLastError(execErr)
		return execErr
	}

	if err := ln.advance(job); err != nil {
		wrapped := fmt.Errorf("advance %s stage: %w", ln.name, err)
		m.handleStageFailure(ctx, ln, stageLogger, job, wrapped)
		m.setLastError(wrapped)
		return wrapped
	}
	job.ErrorMessage = ""
	if err := m.store.Update(ctx, job); err != nil {
		wrapped := fmt.Errorf("persist stage result: %w", err)
		stageLogger.Error("failed to persist stage result", logging.Error(err))
		m.setLastError(wrapped)
		return wrapped
	}

	stageLogger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("script_stage", string(job.ScriptStage)),
		logging.String("image_stage", string(job.ImageStage)),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	m.setLastJob(job)
	return nil
}

// executeWithHeartbeat runs the handler while a side goroutine refreshes the
// job's lease, keeping long stage runs out of the stale sweep.
func (m *Manager) executeWithHeartbeat(ctx context.Context, handler stage.Handler, job *queue.Job) error {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, job.ID)

	execErr := handler.Execute(ctx, job)
	hbCancel()
	hbWG.Wait()
	return execErr
}

// releaseClaim frees the job's lease. The release must outlive a canceled run
// context, otherwise every shutdown strands its in-flight leases until the
// next daemon's stale sweep.
func (m *Manager) releaseClaim(ctx context.Context, logger *slog.Logger, jobID string) {
	releaseCtx := ctx
	if releaseCtx.Err() != nil {
		var cancel context.CancelFunc
		releaseCtx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}
	if err := m.store.ReleaseClaim(releaseCtx, jobID); err != nil {
		logger.Warn("failed to release job lease", logging.Error(err))
	}
}
