package imaging

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"log/slog"

	"newsreel/internal/config"
	"newsreel/internal/logging"
	"newsreel/internal/queue"
	"newsreel/internal/services"
	"newsreel/internal/services/imagegen"
	"newsreel/internal/stage"
)

// Generator is the narrow image service surface the imager needs.
type Generator interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
	Configured() bool
}

// Imager renders one still image per visual prompt. The four scenes are
// generated concurrently; a job either ends up with all of its images or
// none of them.
type Imager struct {
	store  *queue.Store
	cfg    *config.Config
	logger *slog.Logger
	gen    Generator
}

// NewImager constructs the imaging handler.
func NewImager(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Imager {
	return NewImagerWithDependencies(cfg, store, logger, imagegen.NewClient(imagegen.Config{
		BaseURL:        cfg.ImageGen.BaseURL,
		APIKey:         cfg.ImageGen.APIKey,
		Model:          cfg.ImageGen.Model,
		StyleSuffix:    cfg.ImageGen.StyleSuffix,
		NegativePrompt: cfg.ImageGen.NegativePrompt,
		TimeoutSeconds: cfg.ImageGen.TimeoutSeconds,
	}))
}

// NewImagerWithDependencies allows injecting custom dependencies (used for tests).
func NewImagerWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, gen Generator) *Imager {
	i := &Imager{
		store: store,
		cfg:   cfg,
		gen:   gen,
	}
	i.SetLogger(logger)
	return i
}

// SetLogger updates the imager's logging destination while preserving component labeling.
func (i *Imager) SetLogger(logger *slog.Logger) {
	i.logger = logging.NewComponentLogger(logger, "imager")
}

func (i *Imager) Prepare(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, i.logger)
	logger.Debug("starting image preparation")
	return nil
}

func (i *Imager) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, i.logger)
	stageStart := time.Now()

	if job.Script == nil || len(job.Script.VisualPrompts) != queue.SceneCount {
		return services.Wrap(
			services.ErrValidation,
			"imaging",
			"validate inputs",
			"Job has no usable visual prompts; rerun scripting",
			nil,
		)
	}
	if i.gen == nil || !i.gen.Configured() {
		return services.Wrap(
			services.ErrConfiguration,
			"imaging",
			"validate service",
			"Image service not configured; set imagegen.api_key and imagegen.model",
			nil,
		)
	}

	jobDir := filepath.Join(i.cfg.Paths.ImagesDir, job.ID)
	if err := i.cleanupJobDir(logger, jobDir); err != nil {
		return err
	}
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return services.Wrap(
			services.ErrConfiguration,
			"imaging",
			"ensure job dir",
			"Failed to create the job image directory; set images_dir to a writable path",
			err,
		)
	}

	logger.Info("generating scene images", logging.Int("scenes", queue.SceneCount))
	paths, totalBytes, err := i.generateScenes(ctx, job, jobDir)
	if err != nil {
		if removeErr := os.RemoveAll(jobDir); removeErr != nil {
			logger.Warn("failed to remove partial image directory", logging.Error(removeErr))
		}
		return err
	}

	job.ImagePaths = paths
	logger.Info(
		"image stage summary",
		logging.String("image_dir", jobDir),
		logging.Int("scenes", len(paths)),
		logging.Int64("image_bytes", totalBytes),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	return nil
}

// generateScenes fans the prompts out to the image service. Results land in
// index order so image N always depicts prompt N. The first failure cancels
// the remaining requests; only that first error is classified, since the
// siblings then fail with cancellations that say nothing about the cause.
func (i *Imager) generateScenes(ctx context.Context, job *queue.Job, jobDir string) ([]string, int64, error) {
	logger := logging.WithContext(ctx, i.logger)
	genCtx, cancel := context.WithCancel(ctx)
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

	paths := make([]string, queue.SceneCount)
	sizes := make([]int64, queue.SceneCount)
	var wg sync.WaitGroup
	for idx, prompt := range job.Script.VisualPrompts {
		wg.Add(1)
		go func(idx int, prompt string) {
			defer wg.Done()
			image, err := i.gen.Generate(genCtx, prompt)
			if err != nil {
				fail(fmt.Errorf("scene %d: %w", idx+1, err))
				return
			}
			path := filepath.Join(jobDir, fmt.Sprintf("s%d.jpg", idx+1))
			if err := os.WriteFile(path, image, 0o644); err != nil {
				fail(fmt.Errorf("scene %d: write image: %w", idx+1, err))
				return
			}
			paths[idx] = path
			sizes[idx] = int64(len(image))
			logger.Debug("generated scene image", logging.Int("scene", idx+1), logging.Int("bytes", len(image)))
		}(idx, prompt)
	}
	wg.Wait()

	if firstErr != nil {
		marker := services.ErrExternalTool
		message := "Image generation failed"
		if imagegen.Transient(firstErr) {
			marker = services.ErrTransient
			message = "Image generation hit a transient upstream failure"
		}
		return nil, 0, services.Wrap(marker, "imaging", "generate scenes", message, firstErr)
	}

	var totalBytes int64
	for _, size := range sizes {
		totalBytes += size
	}
	return paths, totalBytes, nil
}

func (i *Imager) cleanupJobDir(logger *slog.Logger, jobDir string) error {
	jobDir = strings.TrimSpace(jobDir)
	if jobDir == "" {
		return nil
	}
	info, err := os.Stat(jobDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return services.Wrap(
			services.ErrConfiguration,
			"imaging",
			"inspect job dir",
			"Failed to inspect previous image output",
			err,
		)
	}
	if !info.IsDir() {
		return services.Wrap(
			services.ErrConfiguration,
			"imaging",
			"inspect job dir",
			fmt.Sprintf("Expected image path %q to be a directory", jobDir),
			nil,
		)
	}
	if err := os.RemoveAll(jobDir); err != nil {
		return services.Wrap(
			services.ErrConfiguration,
			"imaging",
			"remove stale images",
			"Failed to remove previous image output",
			err,
		)
	}
	if logger != nil {
		logger.Debug("removed stale image directory", logging.String("image_dir", jobDir))
	}
	return nil
}

// HealthCheck verifies imaging dependencies.
func (i *Imager) HealthCheck(ctx context.Context) stage.Health {
	const name = "imager"
	if i.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if strings.TrimSpace(i.cfg.Paths.ImagesDir) == "" {
		return stage.Unhealthy(name, "images directory not configured")
	}
	if i.gen == nil || !i.gen.Configured() {
		return stage.Unhealthy(name, "image service not configured (set imagegen.api_key and imagegen.model)")
	}
	return stage.Healthy(name)
}
