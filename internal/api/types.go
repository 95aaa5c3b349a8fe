package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Job describes a queue entry in a transport-friendly format.
type Job struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	NewsURL       string   `json:"news_url"`
	SourceName    string   `json:"source_name,omitempty"`
	PublishedDate string   `json:"published_date,omitempty"`
	ScriptStage   string   `json:"script_stage"`
	ImageStage    string   `json:"image_stage"`
	StageLabel    string   `json:"stage_label"`
	Claimed       bool     `json:"claimed"`
	ClaimedBy     string   `json:"claimed_by,omitempty"`
	ErrorMessage  string   `json:"error_message,omitempty"`
	Narration     string   `json:"narration,omitempty"`
	VisualPrompts []string `json:"visual_prompts,omitempty"`
	AudioPath     string   `json:"audio_path,omitempty"`
	CaptionPath   string   `json:"caption_path,omitempty"`
	ImagePaths    []string `json:"image_paths,omitempty"`
	VideoPath     string   `json:"video_path,omitempty"`
	CreatedAt     string   `json:"created_at,omitempty"`
	UpdatedAt     string   `json:"updated_at,omitempty"`
}

// QueueStats aggregates job counts along both stage axes.
type QueueStats struct {
	Total           int `json:"total"`
	ScriptPending   int `json:"script_pending"`
	Scripted        int `json:"scripted"`
	Voiced          int `json:"voiced"`
	ScriptCompleted int `json:"script_completed"`
	ImagesPending   int `json:"images_pending"`
	ImagesCompleted int `json:"images_completed"`
	ImagesFailed    int `json:"images_failed"`
	InFlight        int `json:"in_flight"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running     bool          `json:"running"`
	QueueStats  QueueStats    `json:"queue_stats"`
	LastError   string        `json:"last_error,omitempty"`
	LastJob     *Job          `json:"last_job,omitempty"`
	StageHealth []StageHealth `json:"stage_health"`
}

// StageHealth mirrors readiness reporting for workflow stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	QueueDBPath  string             `json:"queue_db_path"`
	LockFilePath string             `json:"lock_file_path"`
	Workflow     WorkflowStatus     `json:"workflow"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// IngestRequest is the manual submission payload accepted by POST /api/jobs.
type IngestRequest struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	SourceName  string `json:"source_name,omitempty"`
	Description string `json:"description,omitempty"`
}

// IngestResponse acknowledges an accepted submission.
type IngestResponse struct {
	JobID string `json:"job_id"`
}

// HealthReport captures queue database diagnostics for API consumers.
type HealthReport struct {
	DBPath           string   `json:"db_path"`
	DatabaseExists   bool     `json:"database_exists"`
	DatabaseReadable bool     `json:"database_readable"`
	SchemaVersion    string   `json:"schema_version,omitempty"`
	TableExists      bool     `json:"table_exists"`
	ColumnsPresent   []string `json:"columns_present,omitempty"`
	MissingColumns   []string `json:"missing_columns,omitempty"`
	IntegrityCheck   bool     `json:"integrity_check"`
	TotalJobs        int      `json:"total_jobs"`
	Error            string   `json:"error,omitempty"`
}

// JobListResponse wraps a collection of jobs for API responses.
type JobListResponse struct {
	Jobs []Job `json:"jobs"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job Job `json:"job"`
}

// RetryResponse reports how many image branches were reset to pending.
type RetryResponse struct {
	Updated int64 `json:"updated"`
}

// ErrorResponse carries a transport-level failure message.
type ErrorResponse struct {
	Error string `json:"error"`
}
