package rendering

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"newsreel/internal/logging"
	"newsreel/internal/services"
)

func (r *Renderer) validateRenderedArtifact(ctx context.Context, path string, narrationSeconds float64, startedAt time.Time) error {
	logger := logging.WithContext(ctx, r.logger)
	clean := strings.TrimSpace(path)
	if clean == "" {
		logger.Error("render validation failed", logging.String("reason", "empty path"))
		return services.Wrap(
			services.ErrValidation,
			"rendering",
			"validate output",
			"Rendering produced an empty file path",
			nil,
		)
	}
	info, err := os.Stat(clean)
	if err != nil {
		logger.Error("render validation failed", logging.String("reason", "stat failure"), logging.Error(err))
		return services.Wrap(
			services.ErrValidation,
			"rendering",
			"validate output",
			"Failed to stat rendered video",
			err,
		)
	}
	if info.IsDir() {
		logger.Error("render validation failed", logging.String("reason", "path is directory"), logging.String("video", clean))
		return services.Wrap(
			services.ErrValidation,
			"rendering",
			"validate output",
			"Rendered artifact points to a directory",
			nil,
		)
	}
	if info.Size() < minRenderedFileSizeBytes {
		logger.Error(
			"render validation failed",
			logging.String("reason", "file too small"),
			logging.Int64("size_bytes", info.Size()),
		)
		return services.Wrap(
			services.ErrValidation,
			"rendering",
			"validate output",
			fmt.Sprintf("Rendered video %q is unexpectedly small (%d bytes)", clean, info.Size()),
			nil,
		)
	}

	probe, err := renderProbe(ctx, r.ffprobeBinary(), clean)
	if err != nil {
		logger.Error("render validation failed", logging.String("reason", "ffprobe"), logging.Error(err))
		return services.Wrap(
			services.ErrExternalTool,
			"rendering",
			"ffprobe validation",
			"Failed to inspect rendered video with ffprobe",
			err,
		)
	}
	if probe.VideoStreamCount() != 1 {
		logger.Error(
			"render validation failed",
			logging.String("reason", "video stream count"),
			logging.Int("video_streams", probe.VideoStreamCount()),
		)
		return services.Wrap(
			services.ErrValidation,
			"rendering",
			"validate video stream",
			fmt.Sprintf("Rendered video has %d video streams, need exactly 1", probe.VideoStreamCount()),
			nil,
		)
	}
	if probe.AudioStreamCount() != 1 {
		logger.Error(
			"render validation failed",
			logging.String("reason", "audio stream count"),
			logging.Int("audio_streams", probe.AudioStreamCount()),
		)
		return services.Wrap(
			services.ErrValidation,
			"rendering",
			"validate audio stream",
			fmt.Sprintf("Rendered video has %d audio streams, need exactly 1", probe.AudioStreamCount()),
			nil,
		)
	}
	videoSeconds := probe.DurationSeconds()
	if videoSeconds <= 0 {
		logger.Error("render validation failed", logging.String("reason", "invalid duration"))
		return services.Wrap(
			services.ErrValidation,
			"rendering",
			"validate duration",
			"Rendered video duration could not be determined",
			nil,
		)
	}
	if drift := math.Abs(videoSeconds - narrationSeconds); drift > durationTolerance {
		logger.Error(
			"render validation failed",
			logging.String("reason", "duration drift"),
			logging.Float64("video_seconds", videoSeconds),
			logging.Float64("narration_seconds", narrationSeconds),
		)
		return services.Wrap(
			services.ErrValidation,
			"rendering",
			"validate duration",
			fmt.Sprintf("Rendered video runs %.3fs but narration runs %.3fs", videoSeconds, narrationSeconds),
			nil,
		)
	}

	logger.Debug(
		"render validation succeeded",
		logging.String("video", clean),
		logging.Duration("elapsed", time.Since(startedAt)),
		logging.Group("ffprobe",
			logging.Float64("duration_seconds", videoSeconds),
			logging.Int("video_streams", probe.VideoStreamCount()),
			logging.Int("audio_streams", probe.AudioStreamCount()),
		),
	)
	return nil
}
