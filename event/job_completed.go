package event

import (
	"github.com/HansenHomeAI/v0-spaceport-website-sub000/core"
	"github.com/HansenHomeAI/v0-spaceport-website-sub000/db/models"
)

const (
	EVENT_JOB_COMPLETED = "job.completed"
)

func init() {
	core.RegisterEvent(EVENT_JOB_COMPLETED, &JobCompletedEvent{})
}

type JobCompletedEvent struct {
	core.Event
}

func (e *JobCompletedEvent) SetJob(job *models.ReconstructionJob) {
	e.Set("job", job)
}

func (e JobCompletedEvent) Job() *models.ReconstructionJob {
	return e.Get("job").(*models.ReconstructionJob)
}

func FireJobCompletedEvent(ctx core.Context, job *models.ReconstructionJob) error {
	return Fire[*JobCompletedEvent](ctx, EVENT_JOB_COMPLETED, func(evt *JobCompletedEvent) error {
		evt.SetJob(job)
		return nil
	})
}
