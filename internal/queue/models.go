package queue

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SceneCount is the fixed number of visual scenes composing every video.
// Scene prompts, generated images, and animated clips are all index-aligned
// arrays of this length.
const SceneCount = 4

// ScriptStage tracks a job's progress along the narration axis.
type ScriptStage string

const (
	ScriptStagePending   ScriptStage = "pending"
	ScriptStageScripted  ScriptStage = "scripted"
	ScriptStageVoiced    ScriptStage = "voiced"
	ScriptStageCompleted ScriptStage = "completed"
)

// ImageStage tracks the image branch independently of the script axis.
type ImageStage string

const (
	ImageStagePending   ImageStage = "pending"
	ImageStageCompleted ImageStage = "completed"
	ImageStageFailed    ImageStage = "failed"
)

var allScriptStages = []ScriptStage{
	ScriptStagePending,
	ScriptStageScripted,
	ScriptStageVoiced,
	ScriptStageCompleted,
}

var allImageStages = []ImageStage{
	ImageStagePending,
	ImageStageCompleted,
	ImageStageFailed,
}

var scriptStageSet = func() map[ScriptStage]struct{} {
	set := make(map[ScriptStage]struct{}, len(allScriptStages))
	for _, stage := range allScriptStages {
		set[stage] = struct{}{}
	}
	return set
}()

var imageStageSet = func() map[ImageStage]struct{} {
	set := make(map[ImageStage]struct{}, len(allImageStages))
	for _, stage := range allImageStages {
		set[stage] = struct{}{}
	}
	return set
}()

// scriptForward is the only legal order of script stage advancement.
// The axis never regresses; failed attempts leave the column untouched.
var scriptForward = map[ScriptStage]ScriptStage{
	ScriptStagePending:  ScriptStageScripted,
	ScriptStageScripted: ScriptStageVoiced,
	ScriptStageVoiced:   ScriptStageCompleted,
}

// imageForward lists the legal image stage moves. The failed state is only
// left through an explicit operator retry back to pending.
var imageForward = map[ImageStage]map[ImageStage]struct{}{
	ImageStagePending: {ImageStageCompleted: {}, ImageStageFailed: {}},
	ImageStageFailed:  {ImageStagePending: {}},
}

// ScriptStages returns the ordered list of known script stages.
func ScriptStages() []ScriptStage {
	cp := make([]ScriptStage, len(allScriptStages))
	copy(cp, allScriptStages)
	return cp
}

// ImageStages returns the ordered list of known image stages.
func ImageStages() []ImageStage {
	cp := make([]ImageStage, len(allImageStages))
	copy(cp, allImageStages)
	return cp
}

// ParseScriptStage converts a string into a known ScriptStage.
func ParseScriptStage(value string) (ScriptStage, bool) {
	normalized := ScriptStage(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := scriptStageSet[normalized]
	return normalized, ok
}

// ParseImageStage converts a string into a known ImageStage.
func ParseImageStage(value string) (ImageStage, bool) {
	normalized := ImageStage(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := imageStageSet[normalized]
	return normalized, ok
}

// Script is the generated narration plus one visual prompt per scene.
type Script struct {
	Narration     string   `json:"narration"`
	VisualPrompts []string `json:"visual_prompts"`
}

// Validate checks the fixed-shape contract: non-empty narration and exactly
// SceneCount non-empty prompts.
func (s *Script) Validate() error {
	if s == nil {
		return errors.New("script is nil")
	}
	if strings.TrimSpace(s.Narration) == "" {
		return errors.New("script narration is empty")
	}
	if len(s.VisualPrompts) != SceneCount {
		return fmt.Errorf("script has %d visual prompts, need %d", len(s.VisualPrompts), SceneCount)
	}
	for i, prompt := range s.VisualPrompts {
		if strings.TrimSpace(prompt) == "" {
			return fmt.Errorf("visual prompt %d is empty", i)
		}
	}
	return nil
}

// NewsItem is the provenance payload captured when a story is discovered or
// submitted manually.
type NewsItem struct {
	Title     string
	URL       string
	Source    string
	Published string
	Content   string
}

// Job is the persisted pipeline entity. Stage workers claim a job, produce
// one stage's artifacts, and advance exactly one axis before releasing it.
type Job struct {
	ID            string
	Title         string
	NewsURL       string
	NewsSource    string
	PublishedDate string
	Content       string
	Script        *Script
	AudioPath     string
	CaptionPath   string
	ImagePaths    []string
	VideoPath     string
	ScriptStage   ScriptStage
	ImageStage    ImageStage
	ErrorMessage  string
	ClaimedBy     string
	ClaimedAt     *time.Time
	HeartbeatAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AdvanceScript moves the script axis one legal step forward and rejects
// everything else, including repeats and skips.
func (j *Job) AdvanceScript(to ScriptStage) error {
	next, ok := scriptForward[j.ScriptStage]
	if !ok || next != to {
		return fmt.Errorf("script stage cannot move %s to %s", j.ScriptStage, to)
	}
	j.ScriptStage = to
	return nil
}

// SetImageStage applies a legal image axis move. Completed is terminal;
// failed may only return to pending via an explicit retry.
func (j *Job) SetImageStage(to ImageStage) error {
	allowed, ok := imageForward[j.ImageStage]
	if !ok {
		return fmt.Errorf("image stage %s is terminal", j.ImageStage)
	}
	if _, ok := allowed[to]; !ok {
		return fmt.Errorf("image stage cannot move %s to %s", j.ImageStage, to)
	}
	j.ImageStage = to
	return nil
}

// Done reports whether both axes reached their terminal success values.
func (j Job) Done() bool {
	return j.ScriptStage == ScriptStageCompleted && j.ImageStage == ImageStageCompleted
}

// InFlight reports whether the job still occupies the pipeline. Any job in
// flight suppresses discovery of new stories.
func (j Job) InFlight() bool {
	return !j.Done()
}

// RenderReady reports whether the assembler may claim the job: narration
// voiced and all scene images committed.
func (j Job) RenderReady() bool {
	return j.ScriptStage == ScriptStageVoiced && j.ImageStage == ImageStageCompleted
}

// Claimed reports whether a worker currently holds the job's lease.
func (j Job) Claimed() bool {
	return strings.TrimSpace(j.ClaimedBy) != ""
}

// StageLabel returns a single human-readable progress label combining both
// axes, used by CLI tables and the status API.
func (j Job) StageLabel() string {
	if j.Done() {
		return "completed"
	}
	if j.ImageStage == ImageStageFailed {
		return "images failed"
	}
	switch j.ScriptStage {
	case ScriptStagePending:
		return "pending"
	case ScriptStageScripted:
		return "scripted"
	case ScriptStageVoiced:
		if j.ImageStage == ImageStageCompleted {
			return "render ready"
		}
		return "awaiting images"
	case ScriptStageCompleted:
		return "awaiting images"
	default:
		return string(j.ScriptStage)
	}
}

// Validate enforces the integrity rules checked before any persistence.
// Partial image sets are rejected outright so a failed fan-out can never
// masquerade as a completed branch.
func (j *Job) Validate() error {
	if strings.TrimSpace(j.Title) == "" {
		return errors.New("job title is required")
	}
	if strings.TrimSpace(j.NewsURL) == "" {
		return errors.New("job news url is required")
	}
	if _, ok := scriptStageSet[j.ScriptStage]; !ok {
		return fmt.Errorf("unknown script stage %q", j.ScriptStage)
	}
	if _, ok := imageStageSet[j.ImageStage]; !ok {
		return fmt.Errorf("unknown image stage %q", j.ImageStage)
	}
	if j.Script != nil {
		if err := j.Script.Validate(); err != nil {
			return err
		}
	}
	if n := len(j.ImagePaths); n != 0 && n != SceneCount {
		return fmt.Errorf("job has %d image paths, need none or %d", n, SceneCount)
	}
	if j.ImageStage == ImageStageCompleted && len(j.ImagePaths) != SceneCount {
		return fmt.Errorf("image stage completed with %d of %d image paths", len(j.ImagePaths), SceneCount)
	}
	if j.ScriptStage != ScriptStagePending && j.Script == nil {
		return fmt.Errorf("script stage %s without a script", j.ScriptStage)
	}
	return nil
}

// HealthSummary aggregates job counts along both stage axes.
type HealthSummary struct {
	Total           int
	ScriptPending   int
	Scripted        int
	Voiced          int
	ScriptCompleted int
	ImagesPending   int
	ImagesCompleted int
	ImagesFailed    int
	InFlight        int
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalJobs        int
	Error            string
}
