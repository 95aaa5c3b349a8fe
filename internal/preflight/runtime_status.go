package preflight

import (
	"context"
	"fmt"
	"strings"

	"newsreel/internal/config"
)

// CheckSpeechFromConfig evaluates speech synthesis readiness from
// configuration alone. A live check would synthesize audio and spend quota.
func CheckSpeechFromConfig(cfg *config.Config) Result {
	const name = "Speech service"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.Speech.BaseURL) == "" {
		return Result{Name: name, Detail: "Missing base URL"}
	}
	if strings.TrimSpace(cfg.Speech.Voice) == "" {
		return Result{Name: name, Detail: "Missing voice"}
	}
	return Result{
		Name:   name,
		Passed: true,
		Detail: fmt.Sprintf("Configured (voice %s)", strings.TrimSpace(cfg.Speech.Voice)),
	}
}

// CheckImageGenFromConfig evaluates image generation readiness from
// configuration alone, for the same quota reason.
func CheckImageGenFromConfig(cfg *config.Config) Result {
	const name = "Image service"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.ImageGen.APIKey) == "" {
		return Result{Name: name, Detail: "Missing API key"}
	}
	if strings.TrimSpace(cfg.ImageGen.Model) == "" {
		return Result{Name: name, Detail: "Missing model"}
	}
	return Result{
		Name:   name,
		Passed: true,
		Detail: fmt.Sprintf("Configured (model %s)", strings.TrimSpace(cfg.ImageGen.Model)),
	}
}

// CheckNtfyFromConfig evaluates notification delivery from config and
// connectivity. Notifications are optional, so an unset topic passes.
func CheckNtfyFromConfig(cfg *config.Config) Result {
	const name = "Ntfy"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	check := CheckNtfy(context.Background(), topic)
	if check.Passed {
		return Result{Name: name, Passed: true, Detail: check.Detail}
	}
	return Result{Name: name, Detail: check.Detail}
}
