package models

import (
	"time"

	"github.com/HansenHomeAI/v0-spaceport-website-sub000/db/types"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func init() {
	registerModel(&ReconstructionJob{})
}

type JobStatus string

const (
	JobStatusQueued      JobStatus = "queued"
	JobStatusSfm         JobStatus = "sfm"
	JobStatusTraining    JobStatus = "training"
	JobStatusCompressing JobStatus = "compressing"
	JobStatusComplete    JobStatus = "complete"
	JobStatusFailed      JobStatus = "failed"
	JobStatusCanceled    JobStatus = "canceled"
)

// jobStatusTransitions encodes the pipeline state machine. Stages run in a
// fixed order; every active status may fail or be canceled, and terminal
// statuses never transition.
var jobStatusTransitions = map[JobStatus][]JobStatus{
	JobStatusQueued:      {JobStatusSfm, JobStatusFailed, JobStatusCanceled},
	JobStatusSfm:         {JobStatusTraining, JobStatusFailed, JobStatusCanceled},
	JobStatusTraining:    {JobStatusCompressing, JobStatusFailed, JobStatusCanceled},
	JobStatusCompressing: {JobStatusComplete, JobStatusFailed, JobStatusCanceled},
	JobStatusComplete:    {},
	JobStatusFailed:      {},
	JobStatusCanceled:    {},
}

func (s JobStatus) Active() bool {
	switch s {
	case JobStatusQueued, JobStatusSfm, JobStatusTraining, JobStatusCompressing:
		return true
	}

	return false
}

func (s JobStatus) Terminal() bool {
	return !s.Active()
}

func (s JobStatus) CanTransition(to JobStatus) bool {
	for _, allowed := range jobStatusTransitions[s] {
		if allowed == to {
			return true
		}
	}

	return false
}

// NextStage returns the status a healthy job moves to from s, or false
// when s has no successor.
func (s JobStatus) NextStage() (JobStatus, bool) {
	switch s {
	case JobStatusQueued:
		return JobStatusSfm, true
	case JobStatusSfm:
		return JobStatusTraining, true
	case JobStatusTraining:
		return JobStatusCompressing, true
	case JobStatusCompressing:
		return JobStatusComplete, true
	}

	return "", false
}

type ReconstructionJob struct {
	gorm.Model
	UUID           types.BinaryUUID `gorm:"uniqueIndex"`
	ProjectID      uint             `gorm:"index"`
	Project        Project
	UploadID       uint
	Upload         Upload
	Email          string
	Status         JobStatus `gorm:"type:varchar(32);index"`
	Params         datatypes.JSON
	Error          string
	ArtifactPrefix string
	StartedAt      *time.Time
	FinishedAt     *time.Time
	StageRuns      []StageRun
}

func (j *ReconstructionJob) BeforeCreate(_ *gorm.DB) error {
	if uuid.UUID(j.UUID) == uuid.Nil {
		id, err := uuid.NewRandom()
		if err != nil {
			return err
		}
		j.UUID = types.BinaryUUID(id)
	}

	if j.Status == "" {
		j.Status = JobStatusQueued
	}

	return nil
}
