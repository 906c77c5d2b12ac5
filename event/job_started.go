package event

import (
	"github.com/HansenHomeAI/v0-spaceport-website-sub000/core"
	"github.com/HansenHomeAI/v0-spaceport-website-sub000/db/models"
)

const (
	EVENT_JOB_STARTED = "job.started"
)

func init() {
	core.RegisterEvent(EVENT_JOB_STARTED, &JobStartedEvent{})
}

type JobStartedEvent struct {
	core.Event
}

func (e *JobStartedEvent) SetJob(job *models.ReconstructionJob) {
	e.Set("job", job)
}

func (e JobStartedEvent) Job() *models.ReconstructionJob {
	return e.Get("job").(*models.ReconstructionJob)
}

func FireJobStartedEvent(ctx core.Context, job *models.ReconstructionJob) error {
	return Fire[*JobStartedEvent](ctx, EVENT_JOB_STARTED, func(evt *JobStartedEvent) error {
		evt.SetJob(job)
		return nil
	})
}
