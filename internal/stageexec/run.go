package stageexec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"newsreel/internal/config"
	"newsreel/internal/discovery"
	"newsreel/internal/imaging"
	"newsreel/internal/logging"
	"newsreel/internal/notifications"
	"newsreel/internal/queue"
	"newsreel/internal/rendering"
	"newsreel/internal/scripting"
	"newsreel/internal/services"
	"newsreel/internal/stage"
	"newsreel/internal/voicing"
	"newsreel/internal/workflow"
)

// Lane names accepted by Run, matching the daemon's workflow lanes.
const (
	LaneDiscover = "discover"
	LaneScript   = "script"
	LaneVoice    = "voice"
	LaneImage    = "image"
	LaneRender   = "render"
)

// Lanes returns the lane names in pipeline order.
func Lanes() []string {
	return []string{LaneDiscover, LaneScript, LaneVoice, LaneImage, LaneRender}
}

// Result describes what a one-shot lane pass accomplished.
type Result struct {
	// Job is the processed job after a stage lane pass, nil when nothing was
	// eligible.
	Job *queue.Job
	// Queued lists the jobs a discover pass inserted.
	Queued []*queue.Job
}

// Runner executes a single lane pass outside the daemon, with the same claim,
// advance, and release semantics the workflow manager applies. A non-nil
// error from Run means the pass failed and the process should exit non-zero;
// an empty Result with a nil error means nothing was eligible.
type Runner struct {
	cfg      *config.Config
	store    *queue.Store
	logger   *slog.Logger
	notifier notifications.Service
	workerID string
}

// NewRunner constructs a one-shot lane runner.
func NewRunner(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Runner {
	return NewRunnerWithNotifier(cfg, store, logger, notifications.NewService(cfg))
}

// NewRunnerWithNotifier constructs a runner with a custom notifier (used in tests).
func NewRunnerWithNotifier(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	host, err := os.Hostname()
	if err != nil || strings.TrimSpace(host) == "" {
		host = "local"
	}
	return &Runner{
		cfg:      cfg,
		store:    store,
		logger:   logger,
		notifier: notifier,
		workerID: fmt.Sprintf("oneshot@%s/%d", host, os.Getpid()),
	}
}

type laneSpec struct {
	name      string
	handler   stage.Handler
	claim     func(context.Context, string) (*queue.Job, error)
	claimByID func(context.Context, string, string) (*queue.Job, error)
	advance   func(*queue.Job) error
}

// Run executes one pass of the named lane. For stage lanes it claims one
// eligible job, or the pinned job when jobID is set; for the discover lane it
// runs a single discovery pass.
func (r *Runner) Run(ctx context.Context, laneName, jobID string) (Result, error) {
	laneName = strings.ToLower(strings.TrimSpace(laneName))
	jobID = strings.TrimSpace(jobID)

	if laneName == LaneDiscover {
		if jobID != "" {
			return Result{}, errors.New("the discover lane does not operate on a single job")
		}
		return r.runDiscover(ctx)
	}

	spec, err := r.laneSpec(laneName)
	if err != nil {
		return Result{}, err
	}
	return r.runStage(ctx, spec, jobID)
}

func (r *Runner) laneSpec(name string) (laneSpec, error) {
	switch name {
	case LaneScript:
		return laneSpec{
			name:      name,
			handler:   scripting.NewScripter(r.cfg, r.store, r.logger),
			claim:     r.store.ClaimForScripting,
			claimByID: r.store.ClaimForScriptingByID,
			advance: func(job *queue.Job) error {
				return job.AdvanceScript(queue.ScriptStageScripted)
			},
		}, nil
	case LaneVoice:
		return laneSpec{
			name:      name,
			handler:   voicing.NewVoicer(r.cfg, r.store, r.logger),
			claim:     r.store.ClaimForVoicing,
			claimByID: r.store.ClaimForVoicingByID,
			advance: func(job *queue.Job) error {
				return job.AdvanceScript(queue.ScriptStageVoiced)
			},
		}, nil
	case LaneImage:
		return laneSpec{
			name:      name,
			handler:   imaging.NewImager(r.cfg, r.store, r.logger),
			claim:     r.store.ClaimForImaging,
			claimByID: r.store.ClaimForImagingByID,
			advance: func(job *queue.Job) error {
				return job.SetImageStage(queue.ImageStageCompleted)
			},
		}, nil
	case LaneRender:
		return laneSpec{
			name:      name,
			handler:   rendering.NewRendererWithDependencies(r.cfg, r.store, r.logger, r.notifier),
			claim:     r.store.ClaimForRendering,
			claimByID: r.store.ClaimForRenderingByID,
			advance: func(job *queue.Job) error {
				return job.AdvanceScript(queue.ScriptStageCompleted)
			},
		}, nil
	default:
		return laneSpec{}, fmt.Errorf("unknown lane %q; expected one of %s", name, strings.Join(Lanes(), ", "))
	}
}

func (r *Runner) runDiscover(ctx context.Context) (Result, error) {
	passCtx := services.WithStage(ctx, LaneDiscover)
	passCtx = services.WithLane(passCtx, LaneDiscover)
	passCtx = services.WithRequestID(passCtx, uuid.NewString())

	discoverer := discovery.NewDiscovererWithDependencies(
		r.cfg, r.store, r.logger, discovery.NewLLMProvider(r.cfg), r.notifier)
	queued, err := discoverer.Discover(passCtx)
	if err != nil {
		return Result{}, err
	}
	return Result{Queued: queued}, nil
}

func (r *Runner) runStage(ctx context.Context, spec laneSpec, jobID string) (Result, error) {
	var job *queue.Job
	var err error
	if jobID != "" {
		job, err = spec.claimByID(ctx, r.workerID, jobID)
	} else {
		job, err = spec.claim(ctx, r.workerID)
	}
	if err != nil {
		return Result{}, fmt.Errorf("claim job for %s: %w", spec.name, err)
	}
	if job == nil {
		if jobID != "" {
			return Result{}, fmt.Errorf("job %s is not eligible for the %s lane or is already claimed", jobID, spec.name)
		}
		return Result{}, nil
	}

	stageCtx := services.WithJobID(ctx, job.ID)
	stageCtx = services.WithStage(stageCtx, spec.name)
	stageCtx = services.WithLane(stageCtx, spec.name)
	stageCtx = services.WithRequestID(stageCtx, uuid.NewString())
	stageLogger := logging.WithContext(stageCtx, r.logger)
	if aware, ok := spec.handler.(interface{ SetLogger(*slog.Logger) }); ok {
		aware.SetLogger(stageLogger)
	}
	defer r.releaseClaim(stageCtx, stageLogger, job.ID)

	stageStart := time.Now()
	stageLogger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("script_stage", string(job.ScriptStage)),
		logging.String("image_stage", string(job.ImageStage)),
		logging.String("story_title", strings.TrimSpace(job.Title)),
	)

	if err := spec.handler.Prepare(stageCtx, job); err != nil {
		return Result{Job: job}, r.failStage(stageCtx, spec, stageLogger, job, err)
	}
	if execErr := r.executeWithHeartbeat(stageCtx, spec.handler, job); execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			return Result{Job: job}, execErr
		}
		return Result{Job: job}, r.failStage(stageCtx, spec, stageLogger, job, execErr)
	}

	if err := spec.advance(job); err != nil {
		return Result{Job: job}, r.failStage(stageCtx, spec, stageLogger, job, fmt.Errorf("advance %s stage: %w", spec.name, err))
	}
	job.ErrorMessage = ""
	if err := r.store.Update(stageCtx, job); err != nil {
		return Result{Job: job}, fmt.Errorf("persist stage result: %w", err)
	}

	stageLogger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("script_stage", string(job.ScriptStage)),
		logging.String("image_stage", string(job.ImageStage)),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	return Result{Job: job}, nil
}

func (r *Runner) executeWithHeartbeat(ctx context.Context, handler stage.Handler, job *queue.Job) error {
	hb := workflow.NewHeartbeatMonitor(
		r.store, r.logger, time.Duration(r.cfg.Workflow.HeartbeatInterval)*time.Second, 0)
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go hb.StartLoop(hbCtx, &hbWG, job.ID)

	execErr := handler.Execute(ctx, job)
	hbCancel()
	hbWG.Wait()
	return execErr
}

func (r *Runner) failStage(ctx context.Context, spec laneSpec, logger *slog.Logger, job *queue.Job, stageErr error) error {
	message := strings.TrimSpace(stageErr.Error())
	if message == "" {
		message = fmt.Sprintf("%s stage failed", spec.name)
	}
	job.ErrorMessage = message
	if spec.name == LaneImage {
		failStage := services.FailureImageStage(stageErr)
		if failStage != job.ImageStage {
			if err := job.SetImageStage(failStage); err != nil {
				logger.Warn("could not mark image branch failed", logging.Error(err))
			}
		}
	}

	logger.Error("stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String("error_message", message),
		logging.Bool("retryable", services.Retryable(stageErr)),
		logging.Alert("stage_failure"),
		logging.Error(stageErr),
	)
	if err := r.store.Update(ctx, job); err != nil {
		logger.Error("failed to persist stage failure", logging.Error(err))
	}

	if r.notifier != nil {
		payload := notifications.Payload{
			"stage": spec.name,
			"title": job.Title,
			"error": message,
		}
		if err := r.notifier.Publish(ctx, notifications.EventStageFailed, payload); err != nil {
			logger.Debug("stage failure notification failed", logging.Error(err))
		}
	}
	return stageErr
}

// releaseClaim frees the job's lease once the pass is over, with a fresh
// context when the run context was canceled.
func (r *Runner) releaseClaim(ctx context.Context, logger *slog.Logger, jobID string) {
	releaseCtx := ctx
	if releaseCtx.Err() != nil {
		var cancel context.CancelFunc
		releaseCtx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}
	if err := r.store.ReleaseClaim(releaseCtx, jobID); err != nil {
		logger.Warn("failed to release job lease", logging.Error(err))
	}
}
