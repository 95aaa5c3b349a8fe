package rendering

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"log/slog"

	"newsreel/internal/config"
	"newsreel/internal/fileutil"
	"newsreel/internal/logging"
	"newsreel/internal/notifications"
	"newsreel/internal/queue"
	"newsreel/internal/services"
	"newsreel/internal/stage"
)

// Renderer assembles the final vertical video from a job's narration audio,
// caption file, and scene images.
type Renderer struct {
	store    *queue.Store
	cfg      *config.Config
	logger   *slog.Logger
	notifier notifications.Service
}

const minRenderedFileSizeBytes = 64 * 1024

// durationTolerance is the allowed drift between the narration duration and
// the muxed output, one frame at the output rate.
const durationTolerance = 1.0 / FPS

// NewRenderer constructs the rendering handler.
func NewRenderer(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Renderer {
	return NewRendererWithDependencies(cfg, store, logger, notifications.NewService(cfg))
}

// NewRendererWithDependencies allows injecting custom dependencies (used for tests).
func NewRendererWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *Renderer {
	r := &Renderer{
		store:    store,
		cfg:      cfg,
		notifier: notifier,
	}
	r.SetLogger(logger)
	return r
}

// SetLogger updates the renderer's logging destination while preserving component labeling.
func (r *Renderer) SetLogger(logger *slog.Logger) {
	r.logger = logging.NewComponentLogger(logger, "renderer")
}

func (r *Renderer) Prepare(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, r.logger)
	logger.Debug("starting render preparation")
	return nil
}

func (r *Renderer) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, r.logger)
	stageStart := time.Now()

	logger.Debug("starting render")
	audioPath := strings.TrimSpace(job.AudioPath)
	if audioPath == "" || !fileExists(audioPath) {
		return services.Wrap(
			services.ErrValidation,
			"rendering",
			"validate inputs",
			"No narration audio available; rerun voicing",
			nil,
		)
	}
	captionPath := strings.TrimSpace(job.CaptionPath)
	if captionPath == "" || !fileExists(captionPath) {
		return services.Wrap(
			services.ErrValidation,
			"rendering",
			"validate inputs",
			"No caption file available; rerun voicing",
			nil,
		)
	}
	if len(job.ImagePaths) != queue.SceneCount {
		return services.Wrap(
			services.ErrValidation,
			"rendering",
			"validate inputs",
			fmt.Sprintf("Job has %d scene images, need %d; rerun imaging", len(job.ImagePaths), queue.SceneCount),
			nil,
		)
	}
	for idx, imagePath := range job.ImagePaths {
		if !fileExists(strings.TrimSpace(imagePath)) {
			return services.Wrap(
				services.ErrValidation,
				"rendering",
				"validate inputs",
				fmt.Sprintf("Scene image %d (%q) is missing; rerun imaging", idx+1, imagePath),
				nil,
			)
		}
	}

	scratchDir := filepath.Join(r.cfg.Paths.ScratchDir, "render-"+job.ID)
	if err := r.cleanupScratchDir(logger, scratchDir); err != nil {
		return err
	}
	if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		return services.Wrap(
			services.ErrConfiguration,
			"rendering",
			"ensure scratch dir",
			"Failed to create render scratch directory; set scratch_dir to a writable path",
			err,
		)
	}
	defer func() {
		if err := os.RemoveAll(scratchDir); err != nil {
			logger.Warn("failed to remove render scratch directory", logging.Error(err))
		}
	}()

	narrationSeconds, err := renderDuration(ctx, r.ffprobeBinary(), audioPath)
	if err != nil {
		return services.Wrap(
			services.ErrExternalTool,
			"rendering",
			"probe narration",
			"Failed to probe narration duration with ffprobe",
			err,
		)
	}
	sceneSeconds := narrationSeconds / queue.SceneCount

	logger.Info(
		"animating scenes",
		logging.Float64("narration_seconds", narrationSeconds),
		logging.Float64("scene_seconds", sceneSeconds),
		logging.Int("scenes", queue.SceneCount),
	)
	clips, err := r.animateScenes(ctx, job, scratchDir, sceneSeconds)
	if err != nil {
		return err
	}

	manifestPath := filepath.Join(scratchDir, "scenes.txt")
	if err := WriteConcatManifest(manifestPath, clips); err != nil {
		return services.Wrap(
			services.ErrTransient,
			"rendering",
			"write concat manifest",
			"Failed to write the scene concat manifest",
			err,
		)
	}

	scratchOutput := filepath.Join(scratchDir, job.ID+".mp4")
	muxArgs := MuxCommand(r.ffmpegBinary(), manifestPath, audioPath, captionPath, scratchOutput)
	logger.Info("muxing final video", logging.String("command", strings.Join(muxArgs, " ")))
	if output, err := renderRun(ctx, muxArgs); err != nil {
		return services.Wrap(
			services.ErrExternalTool,
			"rendering",
			"mux video",
			fmt.Sprintf("ffmpeg mux failed: %s", commandOutputSnippet(output)),
			err,
		)
	}

	if err := r.validateRenderedArtifact(ctx, scratchOutput, narrationSeconds, stageStart); err != nil {
		return err
	}

	finalPath := filepath.Join(r.cfg.Paths.VideosDir, job.ID+".mp4")
	if err := fileutil.MoveFile(scratchOutput, finalPath); err != nil {
		return services.Wrap(
			services.ErrTransient,
			"rendering",
			"publish video",
			"Failed to move the rendered video into the videos directory",
			err,
		)
	}
	job.VideoPath = finalPath

	var outputBytes int64
	if info, err := os.Stat(finalPath); err == nil {
		outputBytes = info.Size()
	}

	if r.notifier != nil {
		if err := r.notifier.Publish(ctx, notifications.EventRenderCompleted, notifications.Payload{
			"title": job.Title,
			"video": finalPath,
		}); err != nil {
			logger.Debug("render notification failed", logging.Error(err))
		}
	}

	logger.Info(
		"render stage summary",
		logging.String("video", finalPath),
		logging.Duration("stage_duration", time.Since(stageStart)),
		logging.Float64("narration_seconds", narrationSeconds),
		logging.Int64("output_bytes", outputBytes),
		logging.Int("scenes", queue.SceneCount),
	)
	return nil
}

// animateScenes renders the four scene clips concurrently. Results land in
// index order so the concat manifest preserves the script's scene sequence.
// The first failure cancels the remaining ffmpeg runs; only that first error
// is reported, since the siblings then die with cancellations that say
// nothing about the cause.
func (r *Renderer) animateScenes(ctx context.Context, job *queue.Job, scratchDir string, sceneSeconds float64) ([]string, error) {
	logger := logging.WithContext(ctx, r.logger)
	sceneCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		once     sync.Once
		firstErr error
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	clips := make([]string, queue.SceneCount)
	var wg sync.WaitGroup
	for idx, imagePath := range job.ImagePaths {
		wg.Add(1)
		go func(idx int, imagePath string) {
			defer wg.Done()
			clip := filepath.Join(scratchDir, fmt.Sprintf("scene_%d.mp4", idx))
			args := SceneCommand(r.ffmpegBinary(), imagePath, idx, sceneSeconds, clip)
			output, err := renderRun(sceneCtx, args)
			if err != nil {
				fail(fmt.Errorf("scene %d: %w: %s", idx+1, err, commandOutputSnippet(output)))
				return
			}
			clips[idx] = clip
		}(idx, imagePath)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, services.Wrap(
			services.ErrExternalTool,
			"rendering",
			"animate scenes",
			"ffmpeg scene animation failed",
			firstErr,
		)
	}
	logger.Debug("animated scenes", logging.Int("scenes", len(clips)))
	return clips, nil
}

func (r *Renderer) cleanupScratchDir(logger *slog.Logger, scratchDir string) error {
	scratchDir = strings.TrimSpace(scratchDir)
	if scratchDir == "" {
		return nil
	}
	info, err := os.Stat(scratchDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return services.Wrap(
			services.ErrConfiguration,
			"rendering",
			"inspect scratch dir",
			"Failed to inspect previous render scratch output",
			err,
		)
	}
	if !info.IsDir() {
		return services.Wrap(
			services.ErrConfiguration,
			"rendering",
			"inspect scratch dir",
			fmt.Sprintf("Expected scratch path %q to be a directory", scratchDir),
			nil,
		)
	}
	if err := os.RemoveAll(scratchDir); err != nil {
		return services.Wrap(
			services.ErrConfiguration,
			"rendering",
			"remove stale scratch",
			"Failed to remove previous render scratch output",
			err,
		)
	}
	if logger != nil {
		logger.Debug("removed stale render scratch", logging.String("scratch_dir", scratchDir))
	}
	return nil
}

// HealthCheck verifies rendering dependencies.
func (r *Renderer) HealthCheck(ctx context.Context) stage.Health {
	const name = "renderer"
	if r.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if strings.TrimSpace(r.cfg.Paths.ScratchDir) == "" {
		return stage.Unhealthy(name, "scratch directory not configured")
	}
	if strings.TrimSpace(r.cfg.Paths.VideosDir) == "" {
		return stage.Unhealthy(name, "videos directory not configured")
	}
	if _, err := exec.LookPath(r.ffmpegBinary()); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("ffmpeg binary %q not found", r.ffmpegBinary()))
	}
	if _, err := exec.LookPath(r.ffprobeBinary()); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("ffprobe binary %q not found", r.ffprobeBinary()))
	}
	return stage.Healthy(name)
}

func (r *Renderer) ffmpegBinary() string {
	if r.cfg != nil {
		return r.cfg.FFmpegBinary()
	}
	return "ffmpeg"
}

func (r *Renderer) ffprobeBinary() string {
	if r.cfg != nil {
		return r.cfg.FFprobeBinary()
	}
	return "ffprobe"
}

func runCommand(ctx context.Context, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	return cmd.CombinedOutput()
}

func commandOutputSnippet(output []byte) string {
	text := strings.TrimSpace(string(output))
	if text == "" {
		return "no output"
	}
	if len(text) > 2048 {
		text = text[len(text)-2048:]
	}
	return text
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
