package api

import (
	"slices"
	"strings"
	"time"

	"newsreel/internal/queue"
	"newsreel/internal/stage"
	"newsreel/internal/workflow"
)

// FromJob converts a queue record to its API representation.
func FromJob(job *queue.Job) Job {
	if job == nil {
		return Job{}
	}

	dto := Job{
		ID:            job.ID,
		Title:         job.Title,
		NewsURL:       job.NewsURL,
		SourceName:    strings.TrimSpace(job.NewsSource),
		PublishedDate: strings.TrimSpace(job.PublishedDate),
		ScriptStage:   string(job.ScriptStage),
		ImageStage:    string(job.ImageStage),
		StageLabel:    job.StageLabel(),
		Claimed:       job.Claimed(),
		ClaimedBy:     strings.TrimSpace(job.ClaimedBy),
		ErrorMessage:  job.ErrorMessage,
		AudioPath:     job.AudioPath,
		CaptionPath:   job.CaptionPath,
		VideoPath:     job.VideoPath,
	}
	if len(job.ImagePaths) > 0 {
		dto.ImagePaths = slices.Clone(job.ImagePaths)
	}
	if job.Script != nil {
		dto.Narration = job.Script.Narration
		dto.VisualPrompts = slices.Clone(job.Script.VisualPrompts)
	}
	if !job.CreatedAt.IsZero() {
		dto.CreatedAt = job.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !job.UpdatedAt.IsZero() {
		dto.UpdatedAt = job.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromJobs converts a slice of queue records into API DTOs.
func FromJobs(jobs []*queue.Job) []Job {
	if len(jobs) == 0 {
		return nil
	}
	out := make([]Job, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, FromJob(job))
	}
	return out
}

// FromHealthSummary converts queue counters into the API stats payload.
func FromHealthSummary(summary queue.HealthSummary) QueueStats {
	return QueueStats{
		Total:           summary.Total,
		ScriptPending:   summary.ScriptPending,
		Scripted:        summary.Scripted,
		Voiced:          summary.Voiced,
		ScriptCompleted: summary.ScriptCompleted,
		ImagesPending:   summary.ImagesPending,
		ImagesCompleted: summary.ImagesCompleted,
		ImagesFailed:    summary.ImagesFailed,
		InFlight:        summary.InFlight,
	}
}

// FromStatusSummary converts a workflow status summary to API payload.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	wf := WorkflowStatus{
		Running:     summary.Running,
		QueueStats:  FromHealthSummary(summary.QueueStats),
		StageHealth: StageHealthSlice(summary.StageHealth),
	}
	if summary.LastError != "" {
		wf.LastError = summary.LastError
	}
	if summary.LastJob != nil {
		last := FromJob(summary.LastJob)
		wf.LastJob = &last
	}
	return wf
}

// StageHealthSlice converts a stage health map into a deterministic slice.
func StageHealthSlice(health map[string]stage.Health) []StageHealth {
	if len(health) == 0 {
		return nil
	}
	names := make([]string, 0, len(health))
	for name := range health {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make([]StageHealth, 0, len(names))
	for _, name := range names {
		h := health[name]
		out = append(out, StageHealth{Name: name, Ready: h.Ready, Detail: h.Detail})
	}
	return out
}

// FromDatabaseHealth converts queue database diagnostics to API payload.
func FromDatabaseHealth(health queue.DatabaseHealth) HealthReport {
	return HealthReport{
		DBPath:           health.DBPath,
		DatabaseExists:   health.DatabaseExists,
		DatabaseReadable: health.DatabaseReadable,
		SchemaVersion:    health.SchemaVersion,
		TableExists:      health.TableExists,
		ColumnsPresent:   slices.Clone(health.ColumnsPresent),
		MissingColumns:   slices.Clone(health.MissingColumns),
		IntegrityCheck:   health.IntegrityCheck,
		TotalJobs:        health.TotalJobs,
		Error:            health.Error,
	}
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
