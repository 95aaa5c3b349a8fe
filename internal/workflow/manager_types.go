package workflow

import (
	"context"
	"log/slog"

	"newsreel/internal/queue"
	"newsreel/internal/stage"
)

// Discoverer produces new jobs when the pipeline is idle. It is the only lane
// participant that does not operate on a claimed job.
type Discoverer interface {
	Discover(ctx context.Context) ([]*queue.Job, error)
	HealthCheck(ctx context.Context) stage.Health
}

// StageSet bundles the concrete lane participants the manager orchestrates.
// Nil entries leave the corresponding lane unregistered.
type StageSet struct {
	Discoverer Discoverer
	Scripter   stage.Handler
	Voicer     stage.Handler
	Imager     stage.Handler
	Renderer   stage.Handler
}

type laneKind string

const (
	laneDiscover laneKind = "discover"
	laneScript   laneKind = "script"
	laneVoice    laneKind = "voice"
	laneImage    laneKind = "image"
	laneRender   laneKind = "render"
)

// lane is one polling goroutine's work description. Stage lanes carry a claim
// function and an advance function pairing the handler with the single axis
// move it earns; the discover lane carries only the discoverer.
type lane struct {
	kind       laneKind
	name       string
	handler    stage.Handler
	discoverer Discoverer
	claim      func(ctx context.Context, workerID string) (*queue.Job, error)
	advance    func(job *queue.Job) error
	logger     *slog.Logger
}

// loggerAware lets the manager hand stage handlers a logger scoped to the
// current job and request before execution.
type loggerAware interface {
	SetLogger(*slog.Logger)
}
