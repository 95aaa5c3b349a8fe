package rendering

import (
	"context"

	"newsreel/internal/media/ffprobe"
)

// renderRun executes an external command and returns its combined output.
var renderRun = runCommand

// renderProbe inspects rendered artifacts with ffprobe.
var renderProbe = ffprobe.Inspect

// renderDuration probes the narration duration with ffprobe.
var renderDuration = ffprobe.Duration

// SetRunnerForTests overrides external command execution during rendering.
func SetRunnerForTests(run func(ctx context.Context, args []string) ([]byte, error)) (restore func()) {
	previous := renderRun
	if run == nil {
		run = runCommand
	}
	renderRun = run
	return func() { renderRun = previous }
}

// SetProbeForTests overrides the ffprobe implementation used during render validation.
func SetProbeForTests(probe func(ctx context.Context, binary, path string) (ffprobe.Result, error)) (restore func()) {
	previous := renderProbe
	if probe == nil {
		probe = ffprobe.Inspect
	}
	renderProbe = probe
	return func() { renderProbe = previous }
}

// SetDurationProbeForTests overrides the narration duration probe.
func SetDurationProbeForTests(probe func(ctx context.Context, binary, path string) (float64, error)) (restore func()) {
	previous := renderDuration
	if probe == nil {
		probe = ffprobe.Duration
	}
	renderDuration = probe
	return func() { renderDuration = previous }
}
