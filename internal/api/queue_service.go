package api

import (
	"context"
	"errors"
	"strings"

	"newsreel/internal/queue"
)

// ErrInvalidIngest flags a manual submission missing required fields.
var ErrInvalidIngest = errors.New("ingest requires a title and a url")

// QueueStore abstracts queue persistence interactions needed by the service.
type QueueStore interface {
	NewJob(ctx context.Context, item queue.NewsItem) (*queue.Job, error)
	GetByID(ctx context.Context, id string) (*queue.Job, error)
	List(ctx context.Context, stages ...queue.ScriptStage) ([]*queue.Job, error)
	ListByImageStage(ctx context.Context, stage queue.ImageStage) ([]*queue.Job, error)
	RetryImageFailed(ctx context.Context, ids ...string) (int64, error)
	Remove(ctx context.Context, ids ...string) (int64, error)
	Clear(ctx context.Context) (int64, error)
	ClearCompleted(ctx context.Context) (int64, error)
	Health(ctx context.Context) (queue.HealthSummary, error)
	CheckHealth(ctx context.Context) queue.DatabaseHealth
}

// QueueService exposes queue operations returning API DTOs.
type QueueService struct {
	store QueueStore
}

// NewQueueService constructs a QueueService around the provided store.
func NewQueueService(store QueueStore) *QueueService {
	if store == nil {
		return nil
	}
	return &QueueService{store: store}
}

// List returns jobs filtered by script stage.
func (s *QueueService) List(ctx context.Context, stages ...queue.ScriptStage) ([]Job, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	jobs, err := s.store.List(ctx, stages...)
	if err != nil {
		return nil, err
	}
	return FromJobs(jobs), nil
}

// ListByImageStage returns jobs whose image branch sits at the given stage.
func (s *QueueService) ListByImageStage(ctx context.Context, stage queue.ImageStage) ([]Job, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	jobs, err := s.store.ListByImageStage(ctx, stage)
	if err != nil {
		return nil, err
	}
	return FromJobs(jobs), nil
}

// Describe fetches a single job, nil when the id is unknown.
func (s *QueueService) Describe(ctx context.Context, id string) (*Job, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	job, err := s.store.GetByID(ctx, strings.TrimSpace(id))
	if err != nil || job == nil {
		return nil, err
	}
	dto := FromJob(job)
	return &dto, nil
}

// Ingest validates a manual submission and inserts it at the back of the
// queue. Duplicate URLs surface queue.ErrDuplicateURL unchanged.
func (s *QueueService) Ingest(ctx context.Context, req IngestRequest) (*Job, error) {
	if s == nil || s.store == nil {
		return nil, errors.New("queue service unavailable")
	}
	title := strings.TrimSpace(req.Title)
	url := strings.TrimSpace(req.URL)
	if title == "" || url == "" {
		return nil, ErrInvalidIngest
	}
	job, err := s.store.NewJob(ctx, queue.NewsItem{
		Title:   title,
		URL:     url,
		Source:  strings.TrimSpace(req.SourceName),
		Content: strings.TrimSpace(req.Description),
	})
	if err != nil {
		return nil, err
	}
	dto := FromJob(job)
	return &dto, nil
}

// Retry resets failed image branches back to pending so imaging reruns.
// Without ids every failed branch is reset.
func (s *QueueService) Retry(ctx context.Context, ids ...string) (int64, error) {
	if s == nil || s.store == nil {
		return 0, nil
	}
	return s.store.RetryImageFailed(ctx, ids...)
}

// Remove deletes the given jobs outright.
func (s *QueueService) Remove(ctx context.Context, ids ...string) (int64, error) {
	if s == nil || s.store == nil {
		return 0, nil
	}
	return s.store.Remove(ctx, ids...)
}

// Clear removes queue entries, optionally only fully completed ones.
func (s *QueueService) Clear(ctx context.Context, completedOnly bool) (int64, error) {
	if s == nil || s.store == nil {
		return 0, nil
	}
	if completedOnly {
		return s.store.ClearCompleted(ctx)
	}
	return s.store.Clear(ctx)
}

// Stats returns queue summary counts along both stage axes.
func (s *QueueService) Stats(ctx context.Context) (QueueStats, error) {
	if s == nil || s.store == nil {
		return QueueStats{}, nil
	}
	summary, err := s.store.Health(ctx)
	if err != nil {
		return QueueStats{}, err
	}
	return FromHealthSummary(summary), nil
}

// Health runs the queue database diagnostics.
func (s *QueueService) Health(ctx context.Context) HealthReport {
	if s == nil || s.store == nil {
		return HealthReport{Error: "queue service unavailable"}
	}
	return FromDatabaseHealth(s.store.CheckHealth(ctx))
}
