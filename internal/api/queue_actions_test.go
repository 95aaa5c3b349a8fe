package api

import (
	"context"
	"errors"
	"testing"
)

type queueActionStub struct {
	jobs    map[string]*Job
	retried []string
	removed []string
}

func (s *queueActionStub) Describe(_ context.Context, id string) (*Job, error) {
	if job, ok := s.jobs[id]; ok {
		return job, nil
	}
	return nil, nil
}

func (s *queueActionStub) Retry(_ context.Context, ids ...string) (int64, error) {
	if len(ids) != 1 {
		return 0, errors.New("expected one id")
	}
	s.retried = append(s.retried, ids...)
	return 1, nil
}

func (s *queueActionStub) Remove(_ context.Context, ids ...string) (int64, error) {
	if len(ids) != 1 {
		return 0, errors.New("expected one id")
	}
	s.removed = append(s.removed, ids...)
	return 1, nil
}

func TestRetryImageBranchesByIDSkipsNonFailed(t *testing.T) {
	stub := &queueActionStub{
		jobs: map[string]*Job{
			"failed-one": {ID: "failed-one", ImageStage: "failed"},
			"pending":    {ID: "pending", ImageStage: "pending"},
		},
	}

	result, err := RetryImageBranchesByID(context.Background(), stub, []string{"failed-one", "pending", "missing"})
	if err != nil {
		t.Fatalf("RetryImageBranchesByID: %v", err)
	}
	if result.UpdatedCount != 1 {
		t.Fatalf("UpdatedCount = %d, want 1", result.UpdatedCount)
	}
	if len(result.Jobs) != 3 {
		t.Fatalf("len(Jobs) = %d, want 3", len(result.Jobs))
	}
	if result.Jobs[0].Outcome != RetryJobUpdated {
		t.Fatalf("failed-one outcome = %s, want %s", result.Jobs[0].Outcome, RetryJobUpdated)
	}
	if result.Jobs[1].Outcome != RetryJobNotFailed {
		t.Fatalf("pending outcome = %s, want %s", result.Jobs[1].Outcome, RetryJobNotFailed)
	}
	if result.Jobs[2].Outcome != RetryJobNotFound {
		t.Fatalf("missing outcome = %s, want %s", result.Jobs[2].Outcome, RetryJobNotFound)
	}
	if len(stub.retried) != 1 || stub.retried[0] != "failed-one" {
		t.Fatalf("unexpected retried ids: %v", stub.retried)
	}
}

func TestRemoveJobsByIDReportsStage(t *testing.T) {
	stub := &queueActionStub{
		jobs: map[string]*Job{
			"gone": {ID: "gone", StageLabel: "awaiting images"},
		},
	}

	result, err := RemoveJobsByID(context.Background(), stub, []string{"gone", "never-there"})
	if err != nil {
		t.Fatalf("RemoveJobsByID: %v", err)
	}
	if result.RemovedCount != 1 {
		t.Fatalf("RemovedCount = %d, want 1", result.RemovedCount)
	}
	if result.Jobs[0].Outcome != RemoveJobDeleted || result.Jobs[0].StageLabel != "awaiting images" {
		t.Fatalf("unexpected first result: %+v", result.Jobs[0])
	}
	if result.Jobs[1].Outcome != RemoveJobNotFound {
		t.Fatalf("unexpected second result: %+v", result.Jobs[1])
	}
	if len(stub.removed) != 1 || stub.removed[0] != "gone" {
		t.Fatalf("unexpected removed ids: %v", stub.removed)
	}
}
