package core

import (
	"context"

	"github.com/HansenHomeAI/v0-spaceport-website-sub000/db/models"
	"github.com/google/uuid"
)

const PIPELINE_SERVICE = "pipeline"

// StartJobRequest carries everything needed to kick off a reconstruction:
// the uploaded photo set, where to send notifications, and any
// hyperparameter overrides applied on top of the configured defaults.
type StartJobRequest struct {
	ProjectID uint
	UploadID  uint
	Email     string
	Overrides map[string]any
}

type PipelineService interface {
	StartJob(ctx context.Context, req StartJobRequest) (*models.ReconstructionJob, error)
	StopJob(ctx context.Context, jobUUID uuid.UUID) error
	GetJob(ctx context.Context, jobUUID uuid.UUID) (*models.ReconstructionJob, error)
	GetStageRuns(ctx context.Context, jobID uint) ([]models.StageRun, error)

	Service
}
