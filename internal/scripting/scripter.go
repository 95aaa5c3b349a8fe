package scripting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"newsreel/internal/config"
	"newsreel/internal/logging"
	"newsreel/internal/queue"
	"newsreel/internal/services"
	"newsreel/internal/services/llm"
	"newsreel/internal/stage"
)

// ScriptModel is the narrow LLM surface the scripter needs from a waterfall
// entry.
type ScriptModel interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ModelFactory builds the client for one waterfall model.
type ModelFactory func(model string) ScriptModel

// Scripter turns a discovered story into a narration script with one visual
// prompt per scene. Configured models are tried in order; transient upstream
// failures fall through to the next model.
type Scripter struct {
	store   *queue.Store
	cfg     *config.Config
	logger  *slog.Logger
	factory ModelFactory
}

// NewScripter constructs the scripting handler.
func NewScripter(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Scripter {
	return NewScripterWithDependencies(cfg, store, logger, func(model string) ScriptModel {
		llmCfg := cfg.ScriptingLLM(model)
		return llm.NewClient(llm.Config{
			APIKey:         llmCfg.APIKey,
			BaseURL:        llmCfg.BaseURL,
			Model:          llmCfg.Model,
			Referer:        llmCfg.Referer,
			Title:          llmCfg.Title,
			TimeoutSeconds: llmCfg.TimeoutSeconds,
		})
	})
}

// NewScripterWithDependencies allows injecting custom dependencies (used for tests).
func NewScripterWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, factory ModelFactory) *Scripter {
	s := &Scripter{
		store:   store,
		cfg:     cfg,
		factory: factory,
	}
	s.SetLogger(logger)
	return s
}

// SetLogger updates the scripter's logging destination while preserving component labeling.
func (s *Scripter) SetLogger(logger *slog.Logger) {
	s.logger = logging.NewComponentLogger(logger, "scripter")
}

func (s *Scripter) Prepare(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, s.logger)
	logger.Debug("starting script preparation")
	return nil
}

func (s *Scripter) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, s.logger)
	stageStart := time.Now()

	if strings.TrimSpace(job.Content) == "" {
		return services.Wrap(
			services.ErrValidation,
			"scripting",
			"validate inputs",
			"Job has no story content to script",
			nil,
		)
	}
	models := s.waterfall()
	if len(models) == 0 {
		return services.Wrap(
			services.ErrConfiguration,
			"scripting",
			"load waterfall",
			"No scripting models configured; set scripting.models",
			nil,
		)
	}

	prompt := buildScriptPrompt(job)
	var lastErr error
	for _, model := range models {
		logger.Info("attempting script generation", logging.String("model", model))
		content, err := s.factory(model).CompleteJSON(ctx, scriptSystemPrompt, prompt)
		if err != nil {
			if llm.Transient(err) {
				logger.Warn(
					"script model unavailable, trying next",
					logging.String("model", model),
					logging.Error(err),
				)
				lastErr = err
				continue
			}
			return services.Wrap(
				services.ErrExternalTool,
				"scripting",
				"generate script",
				fmt.Sprintf("Script generation failed on model %s", model),
				err,
			)
		}

		script, err := decodeScript(content)
		if err != nil {
			logger.Error(
				"script decode failed",
				logging.String("model", model),
				logging.Error(err),
			)
			return services.Wrap(
				services.ErrValidation,
				"scripting",
				"decode script",
				fmt.Sprintf("Model %s returned unparseable script JSON", model),
				err,
			)
		}
		if err := script.Validate(); err != nil {
			logger.Error(
				"script shape invalid",
				logging.String("model", model),
				logging.Error(err),
			)
			return services.Wrap(
				services.ErrValidation,
				"scripting",
				"validate script",
				fmt.Sprintf("Model %s returned a script with the wrong shape", model),
				err,
			)
		}

		job.Script = script
		logger.Info(
			"script stage summary",
			logging.String("model", model),
			logging.Int("narration_chars", len(script.Narration)),
			logging.Int("visual_prompts", len(script.VisualPrompts)),
			logging.Duration("stage_duration", time.Since(stageStart)),
		)
		return nil
	}

	return services.Wrap(
		services.ErrTransient,
		"scripting",
		"generate script",
		fmt.Sprintf("All %d scripting models failed; leaving job for a later poll", len(models)),
		lastErr,
	)
}

// HealthCheck verifies scripting dependencies.
func (s *Scripter) HealthCheck(ctx context.Context) stage.Health {
	const name = "scripter"
	if s.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if len(s.waterfall()) == 0 {
		return stage.Unhealthy(name, "no scripting models configured")
	}
	if strings.TrimSpace(s.cfg.LLM.APIKey) == "" {
		return stage.Unhealthy(name, "LLM API key not configured")
	}
	return stage.Healthy(name)
}

func (s *Scripter) waterfall() []string {
	if s.cfg == nil {
		return nil
	}
	models := make([]string, 0, len(s.cfg.Scripting.Models))
	for _, model := range s.cfg.Scripting.Models {
		model = strings.TrimSpace(model)
		if model == "" {
			continue
		}
		models = append(models, model)
	}
	return models
}
