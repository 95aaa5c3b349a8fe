package workflow

import (
	"context"
	"errors"

	"newsreel/internal/logging"
	"newsreel/internal/notifications"
	"newsreel/internal/queue"
)

func (m *Manager) notifyStageFailure(ctx context.Context, ln *lane, job *queue.Job, stageErr error) {
	if m.notifier == nil || stageErr == nil {
		return
	}
	logger := logging.WithContext(ctx, logging.NewComponentLogger(m.logger, "workflow-manager"))

	payload := notifications.Payload{
		"stage": ln.name,
		"error": failureMessage(ln.name, stageErr),
	}
	if job != nil {
		payload["title"] = job.Title
	}
	if err := m.notifier.Publish(ctx, notifications.EventStageFailed, payload); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not send failure notification")
		} else {
			logger.Debug("stage failure notification failed", logging.Error(err))
		}
	}
}
