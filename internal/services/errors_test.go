package services_test

import (
	"errors"
	"strings"
	"testing"

	"newsreel/internal/queue"
	"newsreel/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "rendering", "mux", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"rendering", "mux", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapNilMarkerDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "voicing", "synthesize", "", errors.New("io"))
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestRetryableClassification(t *testing.T) {
	transient := services.Wrap(services.ErrTransient, "imaging", "generate", "rate limited", nil)
	if !services.Retryable(transient) {
		t.Fatalf("expected transient error to be retryable: %v", transient)
	}
	timeout := services.Wrap(services.ErrTimeout, "imaging", "generate", "slow upstream", nil)
	if !services.Retryable(timeout) {
		t.Fatalf("expected timeout error to be retryable: %v", timeout)
	}
	terminal := services.Wrap(services.ErrValidation, "imaging", "generate", "bad prompt", nil)
	if services.Retryable(terminal) {
		t.Fatalf("expected validation error to be terminal: %v", terminal)
	}
}

func TestFailureImageStageMapping(t *testing.T) {
	transient := services.Wrap(services.ErrTransient, "imaging", "generate", "rate limited", nil)
	if stage := services.FailureImageStage(transient); stage != queue.ImageStagePending {
		t.Fatalf("expected pending for transient error, got %s", stage)
	}

	terminal := services.Wrap(services.ErrExternalTool, "imaging", "write", "disk error", errors.New("io"))
	if stage := services.FailureImageStage(terminal); stage != queue.ImageStageFailed {
		t.Fatalf("expected failed for terminal error, got %s", stage)
	}

	if stage := services.FailureImageStage(errors.New("unclassified")); stage != queue.ImageStageFailed {
		t.Fatalf("expected failed for unclassified error, got %s", stage)
	}
}
