// Package scratch maintains the shared scratch directory where stages
// assemble intermediate render artifacts.
package scratch

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"newsreel/internal/logging"
)

// Result contains the outcome of a scratch sweep.
type Result struct {
	Removed []string
	Failed  []Failure
}

// Failure pairs a directory path with the error that kept it in place.
type Failure struct {
	Path string
	Err  error
}

// Sweep removes scratch subdirectories that have not been touched for
// longer than maxAge. Stages delete their own scratch directories on
// exit, so anything old enough to trip the sweep was left behind by an
// interrupted run.
func Sweep(scratchDir string, maxAge time.Duration, logger *slog.Logger) Result {
	var result Result

	scratchDir = strings.TrimSpace(scratchDir)
	if scratchDir == "" {
		return result
	}

	entries, err := os.ReadDir(scratchDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Failed = append(result.Failed, Failure{Path: scratchDir, Err: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		path := filepath.Join(scratchDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Failed = append(result.Failed, Failure{Path: path, Err: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.RemoveAll(path); err != nil {
			result.Failed = append(result.Failed, Failure{Path: path, Err: err})
			if logger != nil {
				logger.Warn("failed to remove stale scratch directory",
					logging.String("path", path),
					logging.Error(err),
					logging.String(logging.FieldEventType, "scratch_sweep_failed"),
					logging.String(logging.FieldErrorHint, "check scratch_dir permissions"),
					logging.String(logging.FieldImpact, "disk space not reclaimed"),
				)
			}
			continue
		}

		result.Removed = append(result.Removed, path)
		if logger != nil {
			logger.Info("removed stale scratch directory",
				logging.String("path", path),
				logging.Duration("age", time.Since(info.ModTime())),
				logging.String(logging.FieldEventType, "scratch_sweep"),
			)
		}
	}

	return result
}
