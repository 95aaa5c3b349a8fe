package queue_test

import (
	"strings"
	"testing"

	"newsreel/internal/queue"
	"newsreel/internal/testsupport"
)

func TestAdvanceScriptForwardOnly(t *testing.T) {
	job := &queue.Job{ScriptStage: queue.ScriptStagePending}

	steps := []queue.ScriptStage{
		queue.ScriptStageScripted,
		queue.ScriptStageVoiced,
		queue.ScriptStageCompleted,
	}
	for _, step := range steps {
		if err := job.AdvanceScript(step); err != nil {
			t.Fatalf("advance to %s: %v", step, err)
		}
	}
	if job.ScriptStage != queue.ScriptStageCompleted {
		t.Fatalf("expected completed, got %s", job.ScriptStage)
	}

	// Completed is terminal.
	if err := job.AdvanceScript(queue.ScriptStagePending); err == nil {
		t.Fatal("expected terminal stage to reject moves")
	}
}

func TestAdvanceScriptRejectsSkipsAndRepeats(t *testing.T) {
	job := &queue.Job{ScriptStage: queue.ScriptStagePending}
	if err := job.AdvanceScript(queue.ScriptStageVoiced); err == nil {
		t.Fatal("expected skip pending->voiced to be rejected")
	}
	if err := job.AdvanceScript(queue.ScriptStagePending); err == nil {
		t.Fatal("expected repeat pending->pending to be rejected")
	}
	if job.ScriptStage != queue.ScriptStagePending {
		t.Fatalf("expected stage unchanged after rejections, got %s", job.ScriptStage)
	}

	job.ScriptStage = queue.ScriptStageVoiced
	if err := job.AdvanceScript(queue.ScriptStageScripted); err == nil {
		t.Fatal("expected regression voiced->scripted to be rejected")
	}
}

func TestSetImageStageMoves(t *testing.T) {
	cases := []struct {
		name string
		from queue.ImageStage
		to   queue.ImageStage
		ok   bool
	}{
		{"pending to completed", queue.ImageStagePending, queue.ImageStageCompleted, true},
		{"pending to failed", queue.ImageStagePending, queue.ImageStageFailed, true},
		{"failed retry to pending", queue.ImageStageFailed, queue.ImageStagePending, true},
		{"failed to completed directly", queue.ImageStageFailed, queue.ImageStageCompleted, false},
		{"completed is terminal", queue.ImageStageCompleted, queue.ImageStagePending, false},
		{"completed repeat", queue.ImageStageCompleted, queue.ImageStageCompleted, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			job := &queue.Job{ImageStage: tc.from}
			err := job.SetImageStage(tc.to)
			if tc.ok && err != nil {
				t.Fatalf("expected move %s->%s allowed, got %v", tc.from, tc.to, err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("expected move %s->%s rejected", tc.from, tc.to)
			}
		})
	}
}

func TestJobProgressPredicates(t *testing.T) {
	job := queue.Job{ScriptStage: queue.ScriptStageVoiced, ImageStage: queue.ImageStageCompleted}
	if !job.RenderReady() {
		t.Fatal("expected voiced job with images to be render ready")
	}
	if job.Done() || !job.InFlight() {
		t.Fatal("expected render-ready job to still be in flight")
	}

	job.ScriptStage = queue.ScriptStageCompleted
	if !job.Done() || job.InFlight() {
		t.Fatal("expected completed job to be done")
	}
	if job.RenderReady() {
		t.Fatal("expected completed job to no longer be render ready")
	}

	waiting := queue.Job{ScriptStage: queue.ScriptStageVoiced, ImageStage: queue.ImageStagePending}
	if waiting.RenderReady() {
		t.Fatal("expected job without images to not be render ready")
	}
}

func TestStageLabelCombinesAxes(t *testing.T) {
	cases := []struct {
		script queue.ScriptStage
		image  queue.ImageStage
		want   string
	}{
		{queue.ScriptStagePending, queue.ImageStagePending, "pending"},
		{queue.ScriptStageScripted, queue.ImageStagePending, "scripted"},
		{queue.ScriptStageVoiced, queue.ImageStagePending, "awaiting images"},
		{queue.ScriptStageVoiced, queue.ImageStageCompleted, "render ready"},
		{queue.ScriptStageVoiced, queue.ImageStageFailed, "images failed"},
		{queue.ScriptStageCompleted, queue.ImageStageCompleted, "completed"},
	}
	for _, tc := range cases {
		job := queue.Job{ScriptStage: tc.script, ImageStage: tc.image}
		if got := job.StageLabel(); got != tc.want {
			t.Fatalf("%s/%s: expected label %q, got %q", tc.script, tc.image, tc.want, got)
		}
	}
}

func TestScriptValidateShape(t *testing.T) {
	valid := testsupport.SampleScript()
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected sample script valid, got %v", err)
	}

	var nilScript *queue.Script
	if err := nilScript.Validate(); err == nil {
		t.Fatal("expected nil script rejected")
	}

	empty := &queue.Script{VisualPrompts: valid.VisualPrompts}
	if err := empty.Validate(); err == nil {
		t.Fatal("expected empty narration rejected")
	}

	short := &queue.Script{Narration: "ok", VisualPrompts: valid.VisualPrompts[:3]}
	if err := short.Validate(); err == nil {
		t.Fatal("expected three prompts rejected")
	}

	long := &queue.Script{Narration: "ok", VisualPrompts: append(append([]string{}, valid.VisualPrompts...), "extra")}
	if err := long.Validate(); err == nil {
		t.Fatal("expected five prompts rejected")
	}

	blank := &queue.Script{Narration: "ok", VisualPrompts: []string{"a", " ", "c", "d"}}
	if err := blank.Validate(); err == nil {
		t.Fatal("expected blank prompt rejected")
	}
}

func TestJobValidateIntegrity(t *testing.T) {
	base := func() *queue.Job {
		return &queue.Job{
			Title:       "Story",
			NewsURL:     "https://news.example/v",
			ScriptStage: queue.ScriptStagePending,
			ImageStage:  queue.ImageStagePending,
		}
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("expected base job valid, got %v", err)
	}

	missingTitle := base()
	missingTitle.Title = "  "
	if err := missingTitle.Validate(); err == nil {
		t.Fatal("expected missing title rejected")
	}

	badStage := base()
	badStage.ScriptStage = "unknown"
	if err := badStage.Validate(); err == nil {
		t.Fatal("expected unknown script stage rejected")
	}

	partial := base()
	partial.ImagePaths = []string{"one.jpg"}
	if err := partial.Validate(); err == nil {
		t.Fatal("expected partial image set rejected")
	}

	claimedDone := base()
	claimedDone.ImageStage = queue.ImageStageCompleted
	if err := claimedDone.Validate(); err == nil {
		t.Fatal("expected completed images without paths rejected")
	}

	scriptless := base()
	scriptless.ScriptStage = queue.ScriptStageScripted
	if err := scriptless.Validate(); err == nil {
		t.Fatal("expected scripted job without script rejected")
	}
}

func TestParseStageValues(t *testing.T) {
	if stage, ok := queue.ParseScriptStage(" Voiced "); !ok || stage != queue.ScriptStageVoiced {
		t.Fatalf("expected voiced, got %q ok=%v", stage, ok)
	}
	if _, ok := queue.ParseScriptStage("ripping"); ok {
		t.Fatal("expected unknown script stage to fail parse")
	}
	if stage, ok := queue.ParseImageStage("FAILED"); !ok || stage != queue.ImageStageFailed {
		t.Fatalf("expected failed, got %q ok=%v", stage, ok)
	}
	if _, ok := queue.ParseImageStage(""); ok {
		t.Fatal("expected empty image stage to fail parse")
	}

	gotScript := queue.ScriptStages()
	if len(gotScript) != 4 || gotScript[0] != queue.ScriptStagePending {
		t.Fatalf("unexpected script stages: %v", gotScript)
	}
	gotImage := queue.ImageStages()
	if len(gotImage) != 3 || gotImage[2] != queue.ImageStageFailed {
		t.Fatalf("unexpected image stages: %v", gotImage)
	}

	joined := make([]string, 0, len(gotScript))
	for _, s := range gotScript {
		joined = append(joined, string(s))
	}
	if strings.Join(joined, ",") != "pending,scripted,voiced,completed" {
		t.Fatalf("unexpected stage order: %s", joined)
	}
}
