package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/HansenHomeAI/v0-spaceport-website-sub000/core"
	"github.com/HansenHomeAI/v0-spaceport-website-sub000/db"
	"github.com/HansenHomeAI/v0-spaceport-website-sub000/db/models"
	"github.com/HansenHomeAI/v0-spaceport-website-sub000/db/types"
	"github.com/HansenHomeAI/v0-spaceport-website-sub000/event"
	"github.com/HansenHomeAI/v0-spaceport-website-sub000/pipeline"
)

var _ core.PipelineService = (*PipelineServiceDefault)(nil)
var _ core.CronableService = (*PipelineServiceDefault)(nil)

const cronTaskRunStage = "pipeline.run_stage"

var (
	ErrJobNotFound       = errors.New("job not found")
	ErrJobNotActive      = errors.New("job is not active")
	ErrUploadMismatch    = errors.New("upload does not belong to project")
	ErrInvalidTransition = errors.New("invalid job status transition")
)

func init() {
	core.RegisterService(core.ServiceInfo{
		ID: core.PIPELINE_SERVICE,
		Factory: func() (core.Service, []core.ContextBuilderOption, error) {
			return NewPipelineService()
		},
		Depends: []string{core.CRON_SERVICE, core.STORAGE_SERVICE, core.MAILER_SERVICE, core.PROJECT_SERVICE},
	})
}

type runStageArgs struct {
	JobUUID uuid.UUID `json:"job_uuid"`
}

type PipelineServiceDefault struct {
	ctx     core.Context
	db      *gorm.DB
	logger  *core.Logger
	cron    core.CronService
	storage core.StorageService

	sfm      *pipeline.SfmStage
	train    *pipeline.TrainStage
	compress *pipeline.CompressStage

	// running maps an active job UUID to the cancel func of its stage
	// subprocess.
	running sync.Map
}

func NewPipelineService() (*PipelineServiceDefault, []core.ContextBuilderOption, error) {
	p := &PipelineServiceDefault{}

	opts := core.ContextOptions(
		core.ContextWithStartupFunc(func(ctx core.Context) error {
			p.ctx = ctx
			p.db = ctx.DB()
			p.logger = ctx.Logger().Named("pipeline")
			p.cron = core.GetService[core.CronService](ctx, core.CRON_SERVICE)
			p.storage = core.GetService[core.StorageService](ctx, core.STORAGE_SERVICE)

			cfg := ctx.Config().Config().Core.Pipeline
			runner := pipeline.NewRunner(p.logger)
			p.sfm = pipeline.NewSfmStage(runner, cfg, p.logger)
			p.train = pipeline.NewTrainStage(runner, cfg, p.logger)
			p.compress = pipeline.NewCompressStage(runner, cfg, p.logger)

			p.cron.RegisterService(p)
			p.registerNotifications()

			return nil
		}),
	)

	return p, opts, nil
}

func (p *PipelineServiceDefault) ID() string {
	return core.PIPELINE_SERVICE
}

func (p *PipelineServiceDefault) RegisterTasks(cron core.CronService) error {
	cron.RegisterTask(cronTaskRunStage,
		func(args any, ctx core.Context) error {
			taskArgs, ok := args.(*runStageArgs)
			if !ok {
				return errors.New("invalid task args")
			}

			return p.runStage(ctx, taskArgs.JobUUID)
		},
		core.CronTaskDefinitionOneTimeJob,
		func() any {
			return &runStageArgs{}
		},
	)

	return nil
}

func (p *PipelineServiceDefault) ScheduleJobs(_ core.CronService) error {
	return nil
}

func jobTag(jobUUID uuid.UUID) string {
	return "job-" + jobUUID.String()
}

func (p *PipelineServiceDefault) StartJob(ctx context.Context, req core.StartJobRequest) (*models.ReconstructionJob, error) {
	var upload models.Upload
	if err := db.RetryOnLock(p.db.WithContext(ctx), func(tx *gorm.DB) *gorm.DB {
		return tx.First(&upload, req.UploadID)
	}); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUploadNotFound
		}
		return nil, err
	}

	if upload.ProjectID != req.ProjectID {
		return nil, ErrUploadMismatch
	}

	cfg := p.ctx.Config().Config().Core.Pipeline

	params, err := pipeline.DefaultHyperparams(cfg.Hyperparams).WithOverrides(req.Overrides)
	if err != nil {
		return nil, err
	}

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	job := &models.ReconstructionJob{
		ProjectID: req.ProjectID,
		UploadID:  req.UploadID,
		Email:     req.Email,
		Params:    datatypes.JSON(paramsJSON),
	}

	if err = db.RetryOnLock(p.db.WithContext(ctx), func(tx *gorm.DB) *gorm.DB {
		return tx.Create(job)
	}); err != nil {
		return nil, err
	}

	job.ArtifactPrefix = pipeline.JobPrefix(uuid.UUID(job.UUID))
	if err = db.RetryOnLock(p.db.WithContext(ctx), func(tx *gorm.DB) *gorm.DB {
		return tx.Model(job).Update("artifact_prefix", job.ArtifactPrefix)
	}); err != nil {
		return nil, err
	}

	if err = event.FireJobStartedEvent(p.ctx, job); err != nil {
		return nil, err
	}

	if err = p.cron.CreateJob(cronTaskRunStage, runStageArgs{JobUUID: uuid.UUID(job.UUID)}, []string{jobTag(uuid.UUID(job.UUID))}); err != nil {
		return nil, err
	}

	p.logger.Info("job started",
		zap.String("uuid", uuid.UUID(job.UUID).String()),
		zap.Uint("project", job.ProjectID),
		zap.Uint("upload", job.UploadID))

	return job, nil
}

func (p *PipelineServiceDefault) StopJob(ctx context.Context, jobUUID uuid.UUID) error {
	job, err := p.GetJob(ctx, jobUUID)
	if err != nil {
		return err
	}

	if !job.Status.Active() {
		return ErrJobNotActive
	}

	if err = p.cron.StopJobsByTag(jobTag(jobUUID)); err != nil {
		return err
	}

	now := time.Now()
	if err = db.RetryOnLock(p.db.WithContext(ctx), func(tx *gorm.DB) *gorm.DB {
		return tx.Model(job).Updates(map[string]any{
			"status":      models.JobStatusCanceled,
			"finished_at": &now,
		})
	}); err != nil {
		return err
	}

	// Interrupt the running subprocess, if any.
	if cancel, ok := p.running.Load(jobUUID); ok {
		cancel.(context.CancelFunc)()
	}

	if err = p.storage.DeletePrefix(ctx, pipeline.JobPrefix(jobUUID)); err != nil {
		p.logger.Error("failed to clean up job artifacts", zap.String("uuid", jobUUID.String()), zap.Error(err))
	}

	p.logger.Info("job canceled", zap.String("uuid", jobUUID.String()))

	return nil
}

func (p *PipelineServiceDefault) GetJob(ctx context.Context, jobUUID uuid.UUID) (*models.ReconstructionJob, error) {
	var job models.ReconstructionJob

	err := db.RetryOnLock(p.db.WithContext(ctx), func(tx *gorm.DB) *gorm.DB {
		return tx.Preload("Project").Preload("StageRuns").Where(&models.ReconstructionJob{UUID: types.BinaryUUID(jobUUID)}).First(&job)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	return &job, nil
}

func (p *PipelineServiceDefault) GetStageRuns(ctx context.Context, jobID uint) ([]models.StageRun, error) {
	var runs []models.StageRun

	err := db.RetryOnLock(p.db.WithContext(ctx), func(tx *gorm.DB) *gorm.DB {
		return tx.Where(&models.StageRun{JobID: jobID}).Order("id").Find(&runs)
	})
	if err != nil {
		return nil, err
	}

	return runs, nil
}

// runStage executes the stage a job is due for. A stage whose artifact
// already exists counts as done, so a job requeued after a crash resumes
// where it left off instead of starting over.
func (p *PipelineServiceDefault) runStage(ctx core.Context, jobUUID uuid.UUID) error {
	job, err := p.GetJob(ctx, jobUUID)
	if err != nil {
		return err
	}

	if !job.Status.Active() {
		return nil
	}

	stage := job.Status

	if stage == models.JobStatusQueued {
		if err = p.transition(job, models.JobStatusSfm); err != nil {
			return err
		}
		stage = models.JobStatusSfm
	} else {
		done, err := p.storage.ObjectExists(ctx, p.stageArtifactKey(jobUUID, stage))
		if err != nil {
			return err
		}

		if done {
			next, ok := stage.NextStage()
			if !ok {
				return nil
			}

			if next == models.JobStatusComplete {
				return p.finishJob(job)
			}

			if err = p.transition(job, next); err != nil {
				return err
			}
			stage = next
		}
	}

	return p.executeStage(ctx, job, stage)
}

func (p *PipelineServiceDefault) executeStage(ctx core.Context, job *models.ReconstructionJob, stage models.JobStatus) error {
	jobUUID := uuid.UUID(job.UUID)

	var params pipeline.Hyperparams
	if err := json.Unmarshal(job.Params, &params); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.running.Store(jobUUID, cancel)
	defer func() {
		cancel()
		p.running.Delete(jobUUID)
	}()

	now := time.Now()
	run := &models.StageRun{
		JobID:        job.ID,
		Stage:        string(stage),
		Attempt:      p.nextAttempt(job.ID, stage),
		StartedAt:    &now,
		OutputPrefix: fmt.Sprintf("jobs/%s/%s/", jobUUID, stage),
	}
	if err := db.RetryOnLock(p.db, func(tx *gorm.DB) *gorm.DB {
		return tx.Create(run)
	}); err != nil {
		return err
	}

	workDir := filepath.Join(p.ctx.Config().Config().Core.Pipeline.WorkDir, jobUUID.String(), string(stage))
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return err
	}
	if !p.ctx.Config().Config().Core.Pipeline.KeepWorkDirs {
		defer os.RemoveAll(workDir)
	}

	metrics, err := p.dispatchStage(runCtx, job, stage, workDir, params)

	finished := time.Now()
	run.FinishedAt = &finished
	run.Success = err == nil
	run.Metrics = metrics
	if err != nil {
		run.Error = err.Error()
	}
	if dbErr := db.RetryOnLock(p.db, func(tx *gorm.DB) *gorm.DB {
		return tx.Save(run)
	}); dbErr != nil {
		p.logger.Error("failed to record stage run", zap.Error(dbErr))
	}

	if err != nil {
		// A stage canceled by StopJob is not a failure.
		if current, getErr := p.GetJob(ctx, jobUUID); getErr == nil && current.Status == models.JobStatusCanceled {
			p.logger.Info("stage interrupted by cancel", zap.String("uuid", jobUUID.String()), zap.String("stage", string(stage)))
			return nil
		}

		return p.failJob(job, stage, err)
	}

	// Schedule the next stage.
	return p.cron.CreateJob(cronTaskRunStage, runStageArgs{JobUUID: jobUUID}, []string{jobTag(jobUUID)})
}

func (p *PipelineServiceDefault) dispatchStage(ctx context.Context, job *models.ReconstructionJob, stage models.JobStatus, workDir string, params pipeline.Hyperparams) (datatypes.JSON, error) {
	switch stage {
	case models.JobStatusSfm:
		return p.runSfm(ctx, job, workDir, params)
	case models.JobStatusTraining:
		return p.runTraining(ctx, job, workDir, params)
	case models.JobStatusCompressing:
		return p.runCompression(ctx, job, workDir)
	}

	return nil, fmt.Errorf("no runnable stage for status %s", stage)
}

func (p *PipelineServiceDefault) runSfm(ctx context.Context, job *models.ReconstructionJob, workDir string, params pipeline.Hyperparams) (datatypes.JSON, error) {
	var upload models.Upload
	if err := db.RetryOnLock(p.db, func(tx *gorm.DB) *gorm.DB {
		return tx.First(&upload, job.UploadID)
	}); err != nil {
		return nil, err
	}

	zipPath := filepath.Join(workDir, "photos.zip")
	if err := p.storage.DownloadToFile(ctx, upload.ZipKey, zipPath); err != nil {
		return nil, fmt.Errorf("fetch photo archive: %w", err)
	}

	gpsPath := ""
	if upload.GpsCsvKey != "" {
		gpsPath = filepath.Join(workDir, "flight_log.csv")
		if err := p.storage.DownloadToFile(ctx, upload.GpsCsvKey, gpsPath); err != nil {
			return nil, fmt.Errorf("fetch gps csv: %w", err)
		}
	}

	result, err := p.sfm.Run(ctx, workDir, zipPath, gpsPath, params)
	if err != nil {
		return nil, err
	}

	jobUUID := uuid.UUID(job.UUID)
	key := pipeline.JobStageKey(jobUUID, string(models.JobStatusSfm), core.ARTIFACT_SPARSE_MODEL)
	if _, err = p.storage.UploadFile(ctx, key, result.SparseZip); err != nil {
		return nil, fmt.Errorf("store sparse model: %w", err)
	}

	return marshalMetrics(map[string]any{
		"image_count": result.ImageCount,
		"registered":  result.RegisteredCount,
		"points":      result.PointCount,
	}), nil
}

func (p *PipelineServiceDefault) runTraining(ctx context.Context, job *models.ReconstructionJob, workDir string, params pipeline.Hyperparams) (datatypes.JSON, error) {
	var upload models.Upload
	if err := db.RetryOnLock(p.db, func(tx *gorm.DB) *gorm.DB {
		return tx.First(&upload, job.UploadID)
	}); err != nil {
		return nil, err
	}

	jobUUID := uuid.UUID(job.UUID)

	// The trainer needs both the photos and the sparse model.
	zipPath := filepath.Join(workDir, "photos.zip")
	if err := p.storage.DownloadToFile(ctx, upload.ZipKey, zipPath); err != nil {
		return nil, fmt.Errorf("fetch photo archive: %w", err)
	}
	if err := p.unpackTo(zipPath, filepath.Join(workDir, "images")); err != nil {
		return nil, err
	}

	sparseKey := pipeline.JobStageKey(jobUUID, string(models.JobStatusSfm), core.ARTIFACT_SPARSE_MODEL)
	sparsePath := filepath.Join(workDir, "sparse.zip")
	if err := p.storage.DownloadToFile(ctx, sparseKey, sparsePath); err != nil {
		return nil, fmt.Errorf("fetch sparse model: %w", err)
	}
	if err := p.unpackTo(sparsePath, filepath.Join(workDir, "sparse", "0")); err != nil {
		return nil, err
	}

	result, err := p.train.Run(ctx, workDir, params)
	if err != nil {
		return nil, err
	}

	key := pipeline.JobStageKey(jobUUID, string(models.JobStatusTraining), core.ARTIFACT_TRAINED_MODEL)
	if _, err = p.storage.UploadFile(ctx, key, result.ModelPath); err != nil {
		return nil, fmt.Errorf("store trained model: %w", err)
	}

	return marshalMetrics(map[string]any{
		"final_psnr":  result.FinalPSNR,
		"iterations":  result.Iterations,
		"stop_reason": string(result.StopReason),
	}), nil
}

func (p *PipelineServiceDefault) runCompression(ctx context.Context, job *models.ReconstructionJob, workDir string) (datatypes.JSON, error) {
	jobUUID := uuid.UUID(job.UUID)

	modelKey := pipeline.JobStageKey(jobUUID, string(models.JobStatusTraining), core.ARTIFACT_TRAINED_MODEL)
	modelPath := filepath.Join(workDir, core.ARTIFACT_TRAINED_MODEL)
	if err := p.storage.DownloadToFile(ctx, modelKey, modelPath); err != nil {
		return nil, fmt.Errorf("fetch trained model: %w", err)
	}

	result, err := p.compress.Run(ctx, workDir, modelPath)
	if err != nil {
		return nil, err
	}

	key := pipeline.JobStageKey(jobUUID, string(models.JobStatusCompressing), core.ARTIFACT_COMPRESSED_MODEL)
	if _, err = p.storage.UploadFile(ctx, key, result.BundleZip); err != nil {
		return nil, fmt.Errorf("store bundle: %w", err)
	}

	return marshalMetrics(map[string]any{
		"model_bytes":  result.ModelBytes,
		"bundle_bytes": result.BundleBytes,
		"ratio":        result.CompressionRatio,
	}), nil
}

func (p *PipelineServiceDefault) unpackTo(archive, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	return pipeline.Unpack(archive, dir)
}

func (p *PipelineServiceDefault) stageArtifactKey(jobUUID uuid.UUID, stage models.JobStatus) string {
	name := ""
	switch stage {
	case models.JobStatusSfm:
		name = core.ARTIFACT_SPARSE_MODEL
	case models.JobStatusTraining:
		name = core.ARTIFACT_TRAINED_MODEL
	case models.JobStatusCompressing:
		name = core.ARTIFACT_COMPRESSED_MODEL
	}

	return pipeline.JobStageKey(jobUUID, string(stage), name)
}

func (p *PipelineServiceDefault) nextAttempt(jobID uint, stage models.JobStatus) int {
	var count int64
	p.db.Model(&models.StageRun{}).Where(&models.StageRun{JobID: jobID, Stage: string(stage)}).Count(&count)

	return int(count) + 1
}

func (p *PipelineServiceDefault) transition(job *models.ReconstructionJob, to models.JobStatus) error {
	if !job.Status.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, job.Status, to)
	}

	updates := map[string]any{"status": to}
	if job.StartedAt == nil {
		now := time.Now()
		updates["started_at"] = &now
		job.StartedAt = &now
	}

	if err := db.RetryOnLock(p.db, func(tx *gorm.DB) *gorm.DB {
		return tx.Model(job).Updates(updates)
	}); err != nil {
		return err
	}

	job.Status = to

	p.logger.Info("job stage transition",
		zap.String("uuid", uuid.UUID(job.UUID).String()),
		zap.String("status", string(to)))

	return nil
}

func (p *PipelineServiceDefault) finishJob(job *models.ReconstructionJob) error {
	now := time.Now()
	if err := db.RetryOnLock(p.db, func(tx *gorm.DB) *gorm.DB {
		return tx.Model(job).Updates(map[string]any{
			"status":      models.JobStatusComplete,
			"finished_at": &now,
		})
	}); err != nil {
		return err
	}

	job.Status = models.JobStatusComplete
	job.FinishedAt = &now

	p.logger.Info("job complete", zap.String("uuid", uuid.UUID(job.UUID).String()))

	return event.FireJobCompletedEvent(p.ctx, job)
}

func (p *PipelineServiceDefault) failJob(job *models.ReconstructionJob, stage models.JobStatus, cause error) error {
	now := time.Now()
	if err := db.RetryOnLock(p.db, func(tx *gorm.DB) *gorm.DB {
		return tx.Model(job).Updates(map[string]any{
			"status":      models.JobStatusFailed,
			"error":       cause.Error(),
			"finished_at": &now,
		})
	}); err != nil {
		return err
	}

	job.Status = models.JobStatusFailed
	job.Error = cause.Error()
	job.FinishedAt = &now

	p.logger.Error("job failed",
		zap.String("uuid", uuid.UUID(job.UUID).String()),
		zap.String("stage", string(stage)),
		zap.Error(cause))

	return event.FireJobFailedEvent(p.ctx, job, string(stage))
}

func marshalMetrics(metrics map[string]any) datatypes.JSON {
	data, err := json.Marshal(metrics)
	if err != nil {
		return nil
	}

	return datatypes.JSON(data)
}
