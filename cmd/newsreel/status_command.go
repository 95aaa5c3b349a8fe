package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"newsreel/internal/api"
	"newsreel/internal/config"
	"newsreel/internal/daemon"
	"newsreel/internal/deps"
	"newsreel/internal/preflight"
	"newsreel/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, dependency, and queue status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.configValue()
			if err != nil {
				return err
			}

			if client, ok := ctx.apiClient(cmd.Context()); ok {
				status, err := client.Status(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonMode() {
					return writeJSON(cmd, status)
				}
				printDaemonStatus(cmd, status, nil)
				return nil
			}

			// Daemon unreachable: report from the store and local checks.
			return ctx.withStore(func(store *queue.Store) error {
				status := offlineStatus(cmd.Context(), cfg, store)
				if ctx.jsonMode() {
					return writeJSON(cmd, status)
				}
				printDaemonStatus(cmd, status, preflight.RunAll(cmd.Context(), cfg))
				return nil
			})
		},
	}
}

func offlineStatus(ctx context.Context, cfg *config.Config, store *queue.Store) *api.DaemonStatus {
	stats := api.QueueStats{}
	if summary, err := store.Health(ctx); err == nil {
		stats = api.FromHealthSummary(summary)
	}
	return &api.DaemonStatus{
		QueueDBPath:  cfg.DatabasePath(),
		LockFilePath: daemon.LockPath(cfg),
		Workflow:     api.WorkflowStatus{QueueStats: stats},
		Dependencies: dependencyStatuses(cfg),
	}
}

func dependencyStatuses(cfg *config.Config) []api.DependencyStatus {
	checks := deps.CheckBinaries(deps.Requirements(cfg))
	statuses := make([]api.DependencyStatus, 0, len(checks))
	for _, check := range checks {
		statuses = append(statuses, api.DependencyStatus{
			Name:        check.Name,
			Command:     check.Command,
			Description: check.Description,
			Optional:    check.Optional,
			Available:   check.Available,
			Detail:      check.Detail,
		})
	}
	return statuses
}

func printDaemonStatus(cmd *cobra.Command, status *api.DaemonStatus, checks []preflight.Result) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	lines := renderSectionHeader("System Status", colorize)
	if status.Running {
		lines = append(lines, renderStatusLine("Daemon", statusOK, fmt.Sprintf("Running (pid %d)", status.PID), colorize))
	} else {
		lines = append(lines, renderStatusLine("Daemon", statusError, "Not running (start it with `newsreel daemon run`)", colorize))
	}
	if status.Workflow.Running {
		lines = append(lines, renderStatusLine("Workflow", statusOK, "Processing jobs", colorize))
	} else {
		lines = append(lines, renderStatusLine("Workflow", statusInfo, "Stopped", colorize))
	}
	if detail := strings.TrimSpace(status.Workflow.LastError); detail != "" {
		lines = append(lines, renderStatusLine("Last error", statusWarn, detail, colorize))
	}
	if job := status.Workflow.LastJob; job != nil {
		message := fmt.Sprintf("%s (%s)", job.Title, formatStageLabel(job.StageLabel))
		lines = append(lines, renderStatusLine("Last job", statusInfo, message, colorize))
	}
	if status.QueueDBPath != "" {
		lines = append(lines, renderStatusLine("Queue DB", statusInfo, status.QueueDBPath, colorize))
	}
	if status.LockFilePath != "" {
		lines = append(lines, renderStatusLine("Lock file", statusInfo, status.LockFilePath, colorize))
	}

	if len(status.Workflow.StageHealth) > 0 {
		lines = append(lines, "")
		lines = append(lines, renderSectionHeader("Stage Health", colorize)...)
		for _, health := range status.Workflow.StageHealth {
			if health.Ready {
				lines = append(lines, renderStatusLine(formatStageLabel(health.Name), statusOK, "Ready", colorize))
				continue
			}
			detail := strings.TrimSpace(health.Detail)
			if detail == "" {
				detail = "not ready"
			}
			lines = append(lines, renderStatusLine(formatStageLabel(health.Name), statusWarn, detail, colorize))
		}
	}

	if len(checks) > 0 {
		lines = append(lines, "")
		lines = append(lines, renderSectionHeader("Preflight", colorize)...)
		for _, check := range checks {
			kind := statusOK
			if !check.Passed {
				kind = statusError
			}
			lines = append(lines, renderStatusLine(check.Name, kind, check.Detail, colorize))
		}
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
	lines = append(lines, dependencyLines(status.Dependencies, colorize)...)

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Queue", colorize)...)
	if stats := status.Workflow.QueueStats; stats.Total == 0 {
		lines = append(lines, statusIndent+"Queue is empty")
	} else {
		lines = append(lines, renderTable(
			[]string{"Stage", "Count"},
			buildQueueStatusRows(stats),
			[]columnAlignment{alignLeft, alignRight},
		))
	}

	fmt.Fprintln(out, strings.Join(lines, "\n"))
}

func dependencyLines(dependencies []api.DependencyStatus, colorize bool) []string {
	missing := make([]string, 0)
	for _, dep := range dependencies {
		if !dep.Available && !dep.Optional {
			missing = append(missing, dep.Name)
		}
	}

	lines := make([]string, 0, len(dependencies)+2)
	if len(missing) > 0 {
		summary := fmt.Sprintf("%d required dependencies missing", len(missing))
		lines = append(lines, renderStatusLine("Summary", statusError, summary, colorize))
	} else {
		lines = append(lines, renderStatusLine("Summary", statusOK, "All required dependencies available", colorize))
	}

	for _, dep := range dependencies {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}
		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
	}

	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing dependencies", statusWarn, strings.Join(missing, ", "), colorize))
	}
	return lines
}
