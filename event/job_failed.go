package event

import (
	"github.com/HansenHomeAI/v0-spaceport-website-sub000/core"
	"github.com/HansenHomeAI/v0-spaceport-website-sub000/db/models"
)

const (
	EVENT_JOB_FAILED = "job.failed"
)

func init() {
	core.RegisterEvent(EVENT_JOB_FAILED, &JobFailedEvent{})
}

type JobFailedEvent struct {
	core.Event
}

func (e *JobFailedEvent) SetJob(job *models.ReconstructionJob) {
	e.Set("job", job)
}

func (e JobFailedEvent) Job() *models.ReconstructionJob {
	return e.Get("job").(*models.ReconstructionJob)
}

func (e *JobFailedEvent) SetStage(stage string) {
	e.Set("stage", stage)
}

func (e JobFailedEvent) Stage() string {
	if v, ok := e.Get("stage").(string); ok {
		return v
	}
	return ""
}

func FireJobFailedEvent(ctx core.Context, job *models.ReconstructionJob, stage string) error {
	return Fire[*JobFailedEvent](ctx, EVENT_JOB_FAILED, func(evt *JobFailedEvent) error {
		evt.SetJob(job)
		evt.SetStage(stage)
		return nil
	})
}
