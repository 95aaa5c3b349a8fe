package voicing

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"log/slog"

	"newsreel/internal/captions"
	"newsreel/internal/config"
	"newsreel/internal/logging"
	"newsreel/internal/queue"
	"newsreel/internal/services"
	"newsreel/internal/services/speech"
	"newsreel/internal/stage"
)

// Synthesizer is the narrow speech surface the voicer needs.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (speech.Result, error)
	Configured() bool
}

// Voicer narrates a job's script and writes the word-synchronized caption
// file alongside the audio.
type Voicer struct {
	store  *queue.Store
	cfg    *config.Config
	logger *slog.Logger
	synth  Synthesizer
}

// NewVoicer constructs the voicing handler.
func NewVoicer(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Voicer {
	return NewVoicerWithDependencies(cfg, store, logger, speech.NewClient(speech.Config{
		BaseURL:        cfg.Speech.BaseURL,
		APIKey:         cfg.Speech.APIKey,
		Voice:          cfg.Speech.Voice,
		Format:         cfg.Speech.Format,
		TimeoutSeconds: cfg.Speech.TimeoutSeconds,
	}))
}

// NewVoicerWithDependencies allows injecting custom dependencies (used for tests).
func NewVoicerWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, synth Synthesizer) *Voicer {
	v := &Voicer{
		store: store,
		cfg:   cfg,
		synth: synth,
	}
	v.SetLogger(logger)
	return v
}

// SetLogger updates the voicer's logging destination while preserving component labeling.
func (v *Voicer) SetLogger(logger *slog.Logger) {
	v.logger = logging.NewComponentLogger(logger, "voicer")
}

func (v *Voicer) Prepare(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, v.logger)
	logger.Debug("starting voice preparation")
	return nil
}

func (v *Voicer) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, v.logger)
	stageStart := time.Now()

	if job.Script == nil || strings.TrimSpace(job.Script.Narration) == "" {
		return services.Wrap(
			services.ErrValidation,
			"voicing",
			"validate inputs",
			"Job has no script narration; rerun scripting",
			nil,
		)
	}
	if v.synth == nil || !v.synth.Configured() {
		return services.Wrap(
			services.ErrConfiguration,
			"voicing",
			"validate service",
			"Speech service not configured; set speech.base_url",
			nil,
		)
	}

	narration := strings.TrimSpace(job.Script.Narration)
	logger.Info("synthesizing narration", logging.Int("narration_chars", len(narration)))
	result, err := v.synth.Synthesize(ctx, narration)
	if err != nil {
		marker := services.ErrExternalTool
		if speech.Transient(err) {
			marker = services.ErrTransient
		}
		return services.Wrap(
			marker,
			"voicing",
			"synthesize narration",
			"Speech synthesis failed",
			err,
		)
	}

	if err := os.MkdirAll(v.cfg.Paths.AudioDir, 0o755); err != nil {
		return services.Wrap(
			services.ErrConfiguration,
			"voicing",
			"ensure audio dir",
			"Failed to create the audio directory; set audio_dir to a writable path",
			err,
		)
	}
	if err := os.MkdirAll(v.cfg.Paths.CaptionsDir, 0o755); err != nil {
		return services.Wrap(
			services.ErrConfiguration,
			"voicing",
			"ensure captions dir",
			"Failed to create the captions directory; set captions_dir to a writable path",
			err,
		)
	}

	audioPath := filepath.Join(v.cfg.Paths.AudioDir, job.ID+".mp3")
	if err := os.WriteFile(audioPath, result.Audio, 0o644); err != nil {
		return services.Wrap(
			services.ErrTransient,
			"voicing",
			"write audio",
			"Failed to write the narration audio file",
			err,
		)
	}

	if len(result.Marks) == 0 {
		v.discardArtifact(logger, audioPath)
		return services.Wrap(
			services.ErrValidation,
			"voicing",
			"validate marks",
			"Speech service returned no word timings; cannot build captions",
			nil,
		)
	}

	words := make([]captions.Word, 0, len(result.Marks))
	for _, mark := range result.Marks {
		words = append(words, captions.Word{TimeMillis: mark.TimeMS, Value: mark.Value})
	}
	cues := captions.BuildCues(words)

	captionPath := filepath.Join(v.cfg.Paths.CaptionsDir, job.ID+".srt")
	if err := os.WriteFile(captionPath, []byte(captions.FormatSRT(cues)), 0o644); err != nil {
		v.discardArtifact(logger, audioPath)
		return services.Wrap(
			services.ErrTransient,
			"voicing",
			"write captions",
			"Failed to write the caption file",
			err,
		)
	}
	if err := v.validateCaptionFile(captionPath, len(cues)); err != nil {
		v.discardArtifact(logger, audioPath)
		v.discardArtifact(logger, captionPath)
		return err
	}

	job.AudioPath = audioPath
	job.CaptionPath = captionPath

	logger.Info(
		"voice stage summary",
		logging.String("audio", audioPath),
		logging.String("captions", captionPath),
		logging.Int64("audio_bytes", int64(len(result.Audio))),
		logging.Int("words", len(words)),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	return nil
}

// validateCaptionFile re-reads the written SRT so the check covers what the
// renderer will actually consume, not the in-memory copy.
func (v *Voicer) validateCaptionFile(path string, wantCues int) error {
	logger := v.logger
	content, err := os.ReadFile(path)
	if err != nil {
		logger.Error("caption validation failed", logging.String("reason", "unreadable"), logging.Error(err))
		return services.Wrap(
			services.ErrValidation,
			"voicing",
			"validate captions",
			"Caption file is unreadable after writing",
			err,
		)
	}
	if err := captions.ValidateSRT(string(content), wantCues); err != nil {
		logger.Error("caption validation failed", logging.String("reason", "malformed"), logging.Error(err))
		return services.Wrap(
			services.ErrValidation,
			"voicing",
			"validate captions",
			"Caption file failed validation after writing",
			err,
		)
	}
	logger.Debug("caption validation succeeded", logging.String("path", path), logging.Int("cues", wantCues))
	return nil
}

func (v *Voicer) discardArtifact(logger *slog.Logger, path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("failed to remove partial voice artifact", logging.String("path", path), logging.Error(err))
	}
}

// HealthCheck verifies voicing dependencies.
func (v *Voicer) HealthCheck(ctx context.Context) stage.Health {
	const name = "voicer"
	if v.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if strings.TrimSpace(v.cfg.Paths.AudioDir) == "" {
		return stage.Unhealthy(name, "audio directory not configured")
	}
	if strings.TrimSpace(v.cfg.Paths.CaptionsDir) == "" {
		return stage.Unhealthy(name, "captions directory not configured")
	}
	if v.synth == nil || !v.synth.Configured() {
		return stage.Unhealthy(name, fmt.Sprintf("speech service not configured (base url %q)", v.cfg.Speech.BaseURL))
	}
	return stage.Healthy(name)
}
