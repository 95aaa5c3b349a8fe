// Package api defines wire-format types and converters for the daemon HTTP
// API. It translates internal queue models into transport-friendly DTOs that
// the CLI and other consumers can render without coupling to internal types.
//
// # Key Types
//
// Job: transport representation of a queue entry with both stage axes, the
// generated script, and artifact paths.
//
// WorkflowStatus: daemon running state, queue stats, stage health, and last job.
//
// DaemonStatus: aggregated runtime information including dependencies.
//
// IngestRequest/IngestResponse: manual story submission payloads.
//
// # Converters
//
// FromJob: queue.Job -> Job with the combined stage label and RFC3339
// timestamps.
//
// FromStatusSummary: workflow.StatusSummary -> WorkflowStatus.
//
// StageHealthSlice: deterministic ordering of stage health map.
//
// # Design Notes
//
// DTOs use snake_case JSON tags matching the submission contract (job_id,
// source_name). Internal enums (queue.ScriptStage, queue.ImageStage) are
// exposed as lowercase strings. Timestamps use RFC3339 with milliseconds.
//
// QueueService is the store facade shared by the daemon handlers and the
// CLI's direct-store path. Client speaks the daemon routes over HTTP for
// commands that prefer a running daemon.
package api
