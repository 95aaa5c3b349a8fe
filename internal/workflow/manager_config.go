package workflow

import "newsreel/internal/queue"

// ConfigureStages registers the lane participants the workflow will run.
// Each registered stage lane pairs its handler with the claim predicate that
// selects eligible jobs and the stage axis move recorded on success.
func (m *Manager) ConfigureStages(set StageSet) {
	lanes := make([]*lane, 0, 5)

	if set.Discoverer != nil {
		lanes = append(lanes, &lane{
			kind:       laneDiscover,
			name:       "discover",
			discoverer: set.Discoverer,
		})
	}
	if set.Scripter != nil {
		lanes = append(lanes, &lane{
			kind:    laneScript,
			name:    "script",
			handler: set.Scripter,
			claim:   m.store.ClaimForScripting,
			advance: func(job *queue.Job) error {
				return job.AdvanceScript(queue.ScriptStageScripted)
			},
		})
	}
	if set.Voicer != nil {
		lanes = append(lanes, &lane{
			kind:    laneVoice,
			name:    "voice",
			handler: set.Voicer,
			claim:   m.store.ClaimForVoicing,
			advance: func(job *queue.Job) error {
				return job.AdvanceScript(queue.ScriptStageVoiced)
			},
		})
	}
	if set.Imager != nil {
		lanes = append(lanes, &lane{
			kind:    laneImage,
			name:    "image",
			handler: set.Imager,
			claim:   m.store.ClaimForImaging,
			advance: func(job *queue.Job) error {
				return job.SetImageStage(queue.ImageStageCompleted)
			},
		})
	}
	if set.Renderer != nil {
		lanes = append(lanes, &lane{
			kind:    laneRender,
			name:    "render",
			handler: set.Renderer,
			claim:   m.store.ClaimForRendering,
			advance: func(job *queue.Job) error {
				return job.AdvanceScript(queue.ScriptStageCompleted)
			},
		})
	}

	m.mu.Lock()
	m.lanes = lanes
	m.mu.Unlock()
}
