package preflight

import (
	"context"
	"strings"

	"newsreel/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Optional features are only checked when configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	// Every directory a stage writes artifacts into.
	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Audio directory", cfg.Paths.AudioDir),
		CheckDirectoryAccess("Images directory", cfg.Paths.ImagesDir),
		CheckDirectoryAccess("Captions directory", cfg.Paths.CaptionsDir),
		CheckDirectoryAccess("Videos directory", cfg.Paths.VideosDir),
		CheckDirectoryAccess("Scratch directory", cfg.Paths.ScratchDir),
	}

	// Discovery and scripting share one LLM endpoint and key, so a single
	// round trip covers both lanes.
	results = append(results, CheckLLM(ctx, "LLM API", cfg.DiscoveryLLM()))

	results = append(results, CheckSpeechFromConfig(cfg))
	results = append(results, CheckImageGenFromConfig(cfg))

	if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
		results = append(results, CheckNtfy(ctx, cfg.Notifications.NtfyTopic))
	}

	return results
}
