package daemonrun

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"log/slog"

	"newsreel/internal/config"
	"newsreel/internal/daemon"
	"newsreel/internal/discovery"
	"newsreel/internal/imaging"
	"newsreel/internal/logging"
	"newsreel/internal/notifications"
	"newsreel/internal/preflight"
	"newsreel/internal/queue"
	"newsreel/internal/rendering"
	"newsreel/internal/scratch"
	"newsreel/internal/scripting"
	"newsreel/internal/voicing"
	"newsreel/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

const scratchMaxAge = 24 * time.Hour

// Run starts the newsreel daemon runtime loop and blocks until the process
// receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("newsreel-%s.log", runID))

	level := strings.TrimSpace(opts.LogLevel)
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logDependencySnapshot(logger, cfg)
	logPreflight(signalCtx, logger, cfg)
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update newsreel.log link: %v\n", err)
	}
	logging.PruneLogs(logger, cfg.Logging.RetentionDays, cfg.Paths.LogDir, "newsreel-*.log", logPath)
	// Stages remove their scratch directories when they finish; a day-old
	// leftover means a run died partway through.
	scratch.Sweep(cfg.Paths.ScratchDir, scratchMaxAge, logger)
	pidPath := filepath.Join(cfg.Paths.LogDir, "newsreel.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}
	defer store.Close()

	notifier := notifications.NewService(cfg)
	workflowManager := workflow.NewManagerWithNotifier(cfg, store, logger, notifier)
	registerStages(workflowManager, cfg, store, logger, notifier)

	d, err := daemon.New(cfg, store, logger, workflowManager)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logger.Warn("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check configuration and queue database access"),
			logging.String(logging.FieldImpact, "daemon will not process queued jobs"),
		)
	}

	<-signalCtx.Done()
	logger.Info("newsreel daemon shutting down")
	return nil
}

func registerStages(mgr *workflow.Manager, cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) {
	if mgr == nil || cfg == nil {
		return
	}

	var discoverer workflow.Discoverer
	if cfg.Discovery.Enabled {
		discoverer = discovery.NewDiscovererWithDependencies(cfg, store, logger, discovery.NewLLMProvider(cfg), notifier)
	}

	mgr.ConfigureStages(workflow.StageSet{
		Discoverer: discoverer,
		Scripter:   scripting.NewScripter(cfg, store, logger),
		Voicer:     voicing.NewVoicer(cfg, store, logger),
		Imager:     imaging.NewImager(cfg, store, logger),
		Renderer:   rendering.NewRendererWithDependencies(cfg, store, logger, notifier),
	})
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "newsreel.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

// logPreflight records check outcomes without blocking startup. Lanes gate
// themselves through stage health checks, so a failed check here only warns.
func logPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	results := preflight.RunAll(ctx, cfg)
	passed := 0
	for _, result := range results {
		if result.Passed {
			passed++
			continue
		}
		logger.Warn("preflight check failed",
			logging.String(logging.FieldEventType, "preflight_check_failed"),
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
		)
	}
	logger.Info("preflight complete",
		logging.String(logging.FieldEventType, "preflight_complete"),
		logging.Int("passed", passed),
		logging.Int("total", len(results)),
	)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	ffmpeg := cfg.FFmpegBinary()
	ffprobe := cfg.FFprobeBinary()
	logger.Info("dependency snapshot",
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("llm_key_present", strings.TrimSpace(cfg.LLM.APIKey) != ""),
		logging.Bool("speech_key_present", strings.TrimSpace(cfg.Speech.APIKey) != ""),
		logging.Bool("imagegen_key_present", strings.TrimSpace(cfg.ImageGen.APIKey) != ""),
		logging.Bool("ffmpeg_available", binaryAvailable(ffmpeg)),
		logging.String("ffmpeg_binary", ffmpeg),
		logging.Bool("ffprobe_available", binaryAvailable(ffprobe)),
		logging.String("ffprobe_binary", ffprobe),
		logging.Bool("discovery_enabled", cfg.Discovery.Enabled),
		logging.Bool("notifications_configured", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
	)
}

func binaryAvailable(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	_, err := exec.LookPath(name)
	return err == nil
}
