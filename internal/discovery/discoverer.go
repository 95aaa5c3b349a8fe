package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"newsreel/internal/config"
	"newsreel/internal/logging"
	"newsreel/internal/notifications"
	"newsreel/internal/queue"
	"newsreel/internal/services"
	"newsreel/internal/services/llm"
	"newsreel/internal/stage"
	"newsreel/internal/textutil"
)

// nearDuplicateThreshold is the cosine similarity above which a candidate
// story is considered a rewrite of one already queued. The unique URL index
// only catches exact resubmissions; outlets syndicate the same story under
// different URLs.
const nearDuplicateThreshold = 0.85

// Discoverer fetches fresh stories and enqueues them as pending jobs. It only
// runs while the queue is drained: one in-flight job suppresses discovery so
// a slow stage cannot pile up upstream work.
type Discoverer struct {
	store    *queue.Store
	cfg      *config.Config
	logger   *slog.Logger
	provider Provider
	notifier notifications.Service
}

// NewDiscoverer constructs the discovery lane worker.
func NewDiscoverer(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Discoverer {
	return NewDiscovererWithDependencies(cfg, store, logger, NewLLMProvider(cfg), notifications.NewService(cfg))
}

// NewDiscovererWithDependencies allows injecting custom dependencies (used for tests).
func NewDiscovererWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, provider Provider, notifier notifications.Service) *Discoverer {
	d := &Discoverer{
		store:    store,
		cfg:      cfg,
		provider: provider,
		notifier: notifier,
	}
	d.SetLogger(logger)
	return d
}

// SetLogger updates the discoverer's logging destination while preserving component labeling.
func (d *Discoverer) SetLogger(logger *slog.Logger) {
	d.logger = logging.NewComponentLogger(logger, "discoverer")
}

// Discover runs one discovery pass and returns the jobs it queued. A pass
// with nothing to do (lane disabled, queue busy, no fresh stories) returns
// an empty slice and no error.
func (d *Discoverer) Discover(ctx context.Context) ([]*queue.Job, error) {
	logger := logging.WithContext(ctx, d.logger)
	passStart := time.Now()

	if d.cfg == nil || !d.cfg.Discovery.Enabled {
		logger.Debug("discovery disabled")
		return nil, nil
	}

	inFlight, err := d.store.CountInFlight(ctx)
	if err != nil {
		return nil, services.Wrap(
			services.ErrTransient,
			"discovery",
			"check gatekeeper",
			"Failed to count in-flight jobs",
			err,
		)
	}
	if inFlight > 0 {
		attrs := append(logging.DecisionAttrs("discovery_gate", "suppressed", "queue busy"),
			logging.Int("in_flight", inFlight),
		)
		logger.Info("discovery gate decision", logging.Args(attrs...)...)
		return nil, nil
	}

	stories, err := d.provider.TopStories(ctx)
	if err != nil {
		marker := services.ErrExternalTool
		if llm.Transient(err) {
			marker = services.ErrTransient
		}
		return nil, services.Wrap(
			marker,
			"discovery",
			"fetch stories",
			"News provider request failed",
			err,
		)
	}
	if len(stories) == 0 {
		logger.Info("no stories discovered")
		return nil, nil
	}

	existing, err := d.store.List(ctx)
	if err != nil {
		return nil, services.Wrap(
			services.ErrTransient,
			"discovery",
			"list jobs",
			"Failed to load existing jobs for duplicate checks",
			err,
		)
	}
	fingerprints := make([]*textutil.Fingerprint, 0, len(existing)+len(stories))
	for _, job := range existing {
		fingerprints = append(fingerprints, textutil.NewFingerprint(job.Title+" "+job.Content))
	}

	var queued []*queue.Job
	var dropped int
	for _, story := range stories {
		story.Title = strings.TrimSpace(story.Title)
		story.Description = strings.TrimSpace(story.Description)
		story.URL = strings.TrimSpace(story.URL)
		story.Source = strings.TrimSpace(story.Source)
		story.PublishedDate = strings.TrimSpace(story.PublishedDate)

		if story.Title == "" || story.URL == "" || story.Description == "" {
			dropped++
			logger.Warn(
				"dropping story with missing fields",
				logging.String("title", story.Title),
				logging.String("url", story.URL),
				logging.Bool("has_description", story.Description != ""),
			)
			continue
		}

		candidate := textutil.NewFingerprint(story.Title + " " + story.Description)
		if score := maxSimilarity(candidate, fingerprints); score >= nearDuplicateThreshold {
			dropped++
			attrs := append(logging.DecisionAttrs("near_duplicate", "dropped", fmt.Sprintf("similarity %.2f", score)),
				logging.String("title", story.Title),
			)
			logger.Info("duplicate story decision", logging.Args(attrs...)...)
			continue
		}

		job, err := d.store.NewJob(ctx, queue.NewsItem{
			Title:     story.Title,
			URL:       story.URL,
			Source:    story.Source,
			Published: story.PublishedDate,
			Content:   story.Description,
		})
		if err != nil {
			if errors.Is(err, queue.ErrDuplicateURL) {
				dropped++
				logger.Debug("story already enqueued", logging.String("url", story.URL))
				continue
			}
			return queued, services.Wrap(
				services.ErrTransient,
				"discovery",
				"insert job",
				"Failed to insert a discovered story",
				err,
			)
		}

		queued = append(queued, job)
		fingerprints = append(fingerprints, candidate)
		logger.Info(
			"story queued",
			logging.String("job_id", job.ID),
			logging.String("title", job.Title),
			logging.String("source", job.NewsSource),
		)
		if d.notifier != nil {
			if err := d.notifier.Publish(ctx, notifications.EventJobQueued, notifications.Payload{
				"title":  job.Title,
				"source": job.NewsSource,
			}); err != nil {
				logger.Debug("queued notification failed", logging.Error(err))
			}
		}
	}

	logger.Info(
		"discovery summary",
		logging.Int("stories_seen", len(stories)),
		logging.Int("jobs_queued", len(queued)),
		logging.Int("dropped", dropped),
		logging.Duration("pass_duration", time.Since(passStart)),
	)
	return queued, nil
}

// maxSimilarity returns the highest cosine similarity between the candidate
// and any known fingerprint.
func maxSimilarity(candidate *textutil.Fingerprint, fingerprints []*textutil.Fingerprint) float64 {
	var best float64
	for _, fp := range fingerprints {
		if score := textutil.CosineSimilarity(candidate, fp); score > best {
			best = score
		}
	}
	return best
}

// HealthCheck verifies discovery dependencies. A disabled lane is healthy;
// it just has nothing to do.
func (d *Discoverer) HealthCheck(ctx context.Context) stage.Health {
	const name = "discoverer"
	if d.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if !d.cfg.Discovery.Enabled {
		return stage.Healthy(name)
	}
	if strings.TrimSpace(d.cfg.LLM.APIKey) == "" {
		return stage.Unhealthy(name, "LLM API key not configured")
	}
	if strings.TrimSpace(d.cfg.Discovery.Model) == "" {
		return stage.Unhealthy(name, "discovery model not configured")
	}
	return stage.Healthy(name)
}
