package main

import (
	"fmt"
	"strings"

	"newsreel/internal/api"
)

// buildQueueStatusRows flattens queue stats into label/count rows, pipeline
// order rather than alphabetical so the table reads top to bottom.
func buildQueueStatusRows(stats api.QueueStats) [][]string {
	counts := []struct {
		label string
		value int
	}{
		{"Script pending", stats.ScriptPending},
		{"Scripted", stats.Scripted},
		{"Voiced", stats.Voiced},
		{"Completed", stats.ScriptCompleted},
		{"Images pending", stats.ImagesPending},
		{"Images completed", stats.ImagesCompleted},
		{"Images failed", stats.ImagesFailed},
		{"In flight", stats.InFlight},
	}

	rows := make([][]string, 0, len(counts)+1)
	for _, count := range counts {
		rows = append(rows, []string{count.label, fmt.Sprintf("%d", count.value)})
	}
	rows = append(rows, []string{"Total", fmt.Sprintf("%d", stats.Total)})
	return rows
}

func buildQueueListRows(jobs []api.Job) [][]string {
	if len(jobs) == 0 {
		return nil
	}
	sorted := api.SortJobsNewestFirst(jobs)

	rows := make([][]string, 0, len(sorted))
	for _, job := range sorted {
		title := strings.TrimSpace(job.Title)
		if title == "" {
			title = "(untitled)"
		}
		rows = append(rows, []string{
			job.ID,
			title,
			formatStageLabel(job.StageLabel),
			formatDisplayTime(job.CreatedAt),
		})
	}
	return rows
}

// formatStageLabel turns a stage label such as "render ready" into
// "Render Ready" for display.
func formatStageLabel(label string) string {
	parts := strings.Fields(label)
	if len(parts) == 0 {
		return ""
	}
	for i, part := range parts {
		lower := strings.ToLower(part)
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

func formatDisplayTime(value string) string {
	t := api.ParseQueueTime(value)
	if t.IsZero() {
		return strings.TrimSpace(value)
	}
	return t.UTC().Format("2006-01-02 15:04")
}
