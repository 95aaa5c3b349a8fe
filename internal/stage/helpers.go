package stage

import (
	"newsreel/internal/queue"
	"newsreel/internal/services"
)

// RequireScript returns the job's validated script. Voicing, imaging, and
// rendering all need the fixed-shape script; a missing or malformed one is a
// validation failure, not a transient error.
func RequireScript(job *queue.Job, stageName string) (*queue.Script, error) {
	if job == nil || job.Script == nil {
		return nil, services.Wrap(
			services.ErrValidation, stageName, "load script",
			"Job has no script; rerun scripting", nil)
	}
	if err := job.Script.Validate(); err != nil {
		return nil, services.Wrap(
			services.ErrValidation, stageName, "validate script",
			"Script is malformed; rerun scripting", err)
	}
	return job.Script, nil
}
