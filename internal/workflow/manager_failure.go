package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"newsreel/internal/logging"
	"newsreel/internal/queue"
	"newsreel/internal/services"
)

// handleStageFailure records a failed attempt without advancing either stage
// axis, so the job stays eligible for a later poll. The one exception is a
// terminal imaging failure, which parks the image branch at failed until an
// operator retries it.
func (m *Manager) handleStageFailure(ctx context.Context, ln *lane, stageLogger *slog.Logger, job *queue.Job, stageErr error) {
	logger := stageLogger
	if logger == nil {
		logger = logging.NewNop()
	}

	message := failureMessage(ln.name, stageErr)
	job.ErrorMessage = message

	attrs := []logging.Attr{
		logging.String("error_message", message),
		logging.Bool("retryable", services.Retryable(stageErr)),
		logging.Alert("stage_failure"),
		logging.Error(stageErr),
		logging.String(logging.FieldEventType, "stage_failure"),
	}
	if ln.kind == laneImage {
		failStage := services.FailureImageStage(stageErr)
		if failStage != job.ImageStage {
			if err := job.SetImageStage(failStage); err != nil {
				logger.Warn("could not mark image branch failed", logging.Error(err))
			}
		}
		attrs = append(attrs, logging.String("image_stage", string(job.ImageStage)))
	}
	logger.Error("stage failed", logging.Args(attrs...)...)

	if err := m.store.Update(ctx, job); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not persist stage failure")
		} else {
			logger.Error("failed to persist stage failure", logging.Error(err))
		}
	}

	m.setLastJob(job)
	m.notifyStageFailure(ctx, ln, job, stageErr)
}

// failureMessage condenses a stage error into the operator-facing text stored
// on the job.
func failureMessage(laneName string, stageErr error) string {
	if stageErr == nil {
		return fmt.Sprintf("%s stage failed without error detail", laneName)
	}
	if message := strings.TrimSpace(stageErr.Error()); message != "" {
		return message
	}
	return fmt.Sprintf("%s stage failed", laneName)
}
