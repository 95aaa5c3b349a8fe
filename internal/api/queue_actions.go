package api

import (
	"context"

	"newsreel/internal/queue"
)

// QueueActionService captures queue operations needed by per-job retry and
// remove workflows.
type QueueActionService interface {
	Describe(ctx context.Context, id string) (*Job, error)
	Retry(ctx context.Context, ids ...string) (int64, error)
	Remove(ctx context.Context, ids ...string) (int64, error)
}

type RetryJobOutcome string

const (
	RetryJobUpdated   RetryJobOutcome = "retried"
	RetryJobNotFound  RetryJobOutcome = "not_found"
	RetryJobNotFailed RetryJobOutcome = "not_failed"
)

type RetryJobResult struct {
	ID      string          `json:"id"`
	Outcome RetryJobOutcome `json:"outcome"`
}

type RetryJobsResult struct {
	UpdatedCount int64            `json:"updated_count"`
	Jobs         []RetryJobResult `json:"jobs"`
}

type RemoveJobOutcome string

const (
	RemoveJobDeleted  RemoveJobOutcome = "removed"
	RemoveJobNotFound RemoveJobOutcome = "not_found"
)

type RemoveJobResult struct {
	ID         string           `json:"id"`
	Outcome    RemoveJobOutcome `json:"outcome"`
	StageLabel string           `json:"stage_label,omitempty"`
}

type RemoveJobsResult struct {
	RemovedCount int64             `json:"removed_count"`
	Jobs         []RemoveJobResult `json:"jobs"`
}

// RetryImageBranchesByID validates IDs and resets only jobs whose image
// branch is parked at failed.
func RetryImageBranchesByID(ctx context.Context, service QueueActionService, ids []string) (RetryJobsResult, error) {
	result := RetryJobsResult{Jobs: make([]RetryJobResult, 0, len(ids))}
	for _, id := range ids {
		job, err := service.Describe(ctx, id)
		if err != nil {
			return RetryJobsResult{}, err
		}
		if job == nil {
			result.Jobs = append(result.Jobs, RetryJobResult{ID: id, Outcome: RetryJobNotFound})
			continue
		}
		stage, ok := queue.ParseImageStage(job.ImageStage)
		if !ok || stage != queue.ImageStageFailed {
			result.Jobs = append(result.Jobs, RetryJobResult{ID: id, Outcome: RetryJobNotFailed})
			continue
		}
		updated, err := service.Retry(ctx, id)
		if err != nil {
			return RetryJobsResult{}, err
		}
		if updated > 0 {
			result.UpdatedCount += updated
			result.Jobs = append(result.Jobs, RetryJobResult{ID: id, Outcome: RetryJobUpdated})
			continue
		}
		result.Jobs = append(result.Jobs, RetryJobResult{ID: id, Outcome: RetryJobNotFailed})
	}
	return result, nil
}

// RemoveJobsByID validates IDs and deletes the jobs that exist, reporting the
// stage each one was in when it went.
func RemoveJobsByID(ctx context.Context, service QueueActionService, ids []string) (RemoveJobsResult, error) {
	result := RemoveJobsResult{Jobs: make([]RemoveJobResult, 0, len(ids))}
	for _, id := range ids {
		job, err := service.Describe(ctx, id)
		if err != nil {
			return RemoveJobsResult{}, err
		}
		if job == nil {
			result.Jobs = append(result.Jobs, RemoveJobResult{ID: id, Outcome: RemoveJobNotFound})
			continue
		}
		removed, err := service.Remove(ctx, id)
		if err != nil {
			return RemoveJobsResult{}, err
		}
		if removed > 0 {
			result.RemovedCount += removed
			result.Jobs = append(result.Jobs, RemoveJobResult{ID: id, Outcome: RemoveJobDeleted, StageLabel: job.StageLabel})
			continue
		}
		result.Jobs = append(result.Jobs, RemoveJobResult{ID: id, Outcome: RemoveJobNotFound})
	}
	return result, nil
}
