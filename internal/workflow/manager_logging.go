package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"newsreel/internal/logging"
	"newsreel/internal/queue"
	"newsreel/internal/services"
)

func (m *Manager) laneLogger(ln *lane) *slog.Logger {
	if m.logger == nil {
		return logging.NewNop()
	}
	return m.logger.With(
		logging.String(logging.FieldComponent, fmt.Sprintf("workflow-%s-runner", ln.name)),
		logging.String(logging.FieldLane, ln.name),
	)
}

// stageLogger scopes the lane logger to one stage run. Job, stage, lane, and
// request identifiers come from the context; per-lane level overrides from
// the logging config apply here so one noisy lane can be quieted (or a
// suspect one promoted to debug) without restarting everything else at a new
// global level.
func (m *Manager) stageLogger(ctx context.Context, base *slog.Logger) *slog.Logger {
	if base == nil {
		base = m.logger
	}
	if base == nil {
		base = logging.NewNop()
	}

	logger := logging.WithContext(ctx, base)
	if m.cfg != nil {
		if stageName, ok := services.StageFromContext(ctx); ok {
			if override := stageOverrideLevel(m.cfg.Logging.StageOverrides, stageName); override != "" {
				logger = logging.WithLevelOverride(logger, parseStageLevel(override))
			}
		}
	}
	return logger
}

func stageOverrideLevel(overrides map[string]string, stage string) string {
	if len(overrides) == 0 {
		return ""
	}
	stage = strings.ToLower(strings.TrimSpace(stage))
	if stage == "" {
		return ""
	}
	for key, value := range overrides {
		if strings.ToLower(strings.TrimSpace(key)) == stage {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func parseStageLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func withStageContext(ctx context.Context, ln *lane, job *queue.Job, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if job != nil {
		ctx = services.WithJobID(ctx, job.ID)
	}
	if ln != nil {
		ctx = services.WithStage(ctx, ln.name)
		ctx = services.WithLane(ctx, ln.name)
	}
	if requestID != "" {
		ctx = services.WithRequestID(ctx, requestID)
	}
	return ctx
}
