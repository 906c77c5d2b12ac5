package service

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	redislock "github.com/go-co-op/gocron-redis-lock/v2"
	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/HansenHomeAI/v0-spaceport-website-sub000/config"
	"github.com/HansenHomeAI/v0-spaceport-website-sub000/core"
	"github.com/HansenHomeAI/v0-spaceport-website-sub000/db/models"
	"github.com/HansenHomeAI/v0-spaceport-website-sub000/db/types"
)

var _ core.CronService = (*CronServiceDefault)(nil)

func init() {
	core.RegisterService(core.ServiceInfo{
		ID: core.CRON_SERVICE,
		Factory: func() (core.Service, []core.ContextBuilderOption, error) {
			return NewCronService()
		},
	})
}

type CronServiceDefault struct {
	ctx       core.Context
	db        *gorm.DB
	logger    *core.Logger
	services  []core.CronableService
	scheduler gocron.Scheduler
	tasks     sync.Map
	taskArgs  sync.Map
	taskDefs  sync.Map
}

func NewCronService() (*CronServiceDefault, []core.ContextBuilderOption, error) {
	cron := &CronServiceDefault{}

	opts := core.ContextOptions(
		core.ContextWithStartupFunc(func(ctx core.Context) error {
			cron.ctx = ctx
			cron.db = ctx.DB()
			cron.logger = ctx.Logger().Named("cron")

			scheduler, err := newScheduler(ctx.Config())
			if err != nil {
				return err
			}

			cron.scheduler = scheduler

			return nil
		}),
		core.ContextWithExitFunc(func(ctx core.Context) error {
			return cron.scheduler.Shutdown()
		}),
	)

	return cron, opts, nil
}

// newScheduler builds a plain scheduler, or one backed by a redis lock
// when the portal runs clustered so a job fires on only one node.
func newScheduler(cm config.Manager) (gocron.Scheduler, error) {
	cfg := cm.Config()

	var opts []gocron.SchedulerOption
	if cfg.Core.Cron.MaxQueue > 0 {
		opts = append(opts, gocron.WithLimitConcurrentJobs(cfg.Core.Cron.MaxQueue, gocron.LimitModeWait))
	}

	if cfg.Core.ClusterEnabled() && cfg.Core.Clustered.Redis != nil {
		redisClient, err := cfg.Core.Clustered.Redis.Client()
		if err != nil {
			return nil, err
		}
		locker, err := redislock.NewRedisLocker(redisClient, redislock.WithTries(1), redislock.WithExpiry(time.Hour))
		if err != nil {
			return nil, err
		}

		opts = append(opts, gocron.WithDistributedLocker(locker))
	}

	return gocron.NewScheduler(opts...)
}

func (c *CronServiceDefault) ID() string {
	return core.CRON_SERVICE
}

// Start re-kicks every persisted job, so one-time jobs that were pending
// when the portal last stopped run again on boot.
func (c *CronServiceDefault) Start(_ core.Context) error {
	if !c.ctx.Config().Config().Core.Cron.Enabled {
		c.logger.Info("Cron is disabled, jobs will not run")
		return nil
	}

	for _, service := range c.services {
		err := service.RegisterTasks(c)
		if err != nil {
			c.logger.Fatal("Failed to register tasks for service", zap.Error(err))
		}
	}

	var cronJobs []models.CronJob
	result := c.db.Find(&cronJobs)
	if result.Error != nil {
		return result.Error
	}

	for _, cronJob := range cronJobs {
		err := c.kickOffJob(&cronJob, nil)
		if err != nil {
			c.logger.Error("Failed to kick off job", zap.Error(err))
			return err
		}
	}

	for _, service := range c.services {
		err := service.ScheduleJobs(c)
		if err != nil {
			c.logger.Error("Failed to schedule jobs for service", zap.Error(err))
			return err
		}
	}

	go c.scheduler.Start()

	return nil
}

func (c *CronServiceDefault) kickOffJob(job *models.CronJob, jobDef gocron.JobDefinition) error {
	argsFunc, ok := c.taskArgs.Load(job.Function)

	if !ok {
		return fmt.Errorf("function %s not found", job.Function)
	}

	args := argsFunc.(core.CronTaskArgsFactoryFunction)()

	if len(job.Args) > 0 {
		err := json.Unmarshal([]byte(job.Args), args)
		if err != nil {
			return err
		}
	}

	taskFuncVal, ok := c.tasks.Load(job.Function)

	if !ok {
		return fmt.Errorf("function %s not found", job.Function)
	}

	taskFunc := taskFuncVal.(core.CronTaskFunction)

	jobID := uuid.UUID(job.UUID)

	task := gocron.NewTask(func(taskArgs any) error {
		return taskFunc(taskArgs, c.ctx)
	}, args)

	listenerFunc := func(_ uuid.UUID, jobName string, err error) {
		var record models.CronJob

		record.UUID = types.BinaryUUID(jobID)
		if tx := c.db.Model(&models.CronJob{}).Where(&record).First(&record); tx.Error == nil {
			if err != nil {
				logEntry := models.CronJobLog{
					CronJobID: record.ID,
					Type:      models.CronJobLogTypeFailure,
					Message:   err.Error(),
				}
				if tx := c.db.Create(&logEntry); tx.Error != nil {
					c.logger.Error("Failed to record job failure", zap.Error(tx.Error))
				}
			}

			if tx := c.db.Delete(&record); tx.Error != nil {
				c.logger.Error("Failed to delete job", zap.Error(tx.Error))
			}
		}

		if err != nil {
			c.logger.Error("Job failed", zap.String("job", jobName), zap.String("id", jobID.String()), zap.Error(err))
		}
	}

	listenerFuncNoError := func(id uuid.UUID, jobName string) {
		listenerFunc(id, jobName, nil)
	}

	options := []gocron.JobOption{
		gocron.WithName(jobID.String()),
		gocron.WithTags(job.Tags...),
		gocron.WithEventListeners(
			gocron.AfterJobRuns(listenerFuncNoError),
			gocron.AfterJobRunsWithError(listenerFunc),
		),
	}

	if jobDef == nil {
		taskDefFunc, ok := c.taskDefs.Load(job.Function)

		if !ok {
			return fmt.Errorf("function %s not found", job.Function)
		}

		jobDef = taskDefFunc.(core.CronTaskDefArgsFactoryFunction)()
	}

	_, err := c.scheduler.NewJob(jobDef, task, options...)
	if err != nil {
		return err
	}

	return nil
}

func (c *CronServiceDefault) RegisterService(service core.CronableService) {
	c.services = append(c.services, service)
}

func (c *CronServiceDefault) RegisterTask(name string, taskFunc core.CronTaskFunction, taskDefFunc core.CronTaskDefArgsFactoryFunction, taskArgFunc core.CronTaskArgsFactoryFunction) {
	c.tasks.Store(name, taskFunc)
	c.taskDefs.Store(name, taskDefFunc)
	c.taskArgs.Store(name, taskArgFunc)
}

func (c *CronServiceDefault) CreateJob(function string, args any, tags []string) error {
	job, err := c.createJobRecord(function, args, tags)
	if err != nil {
		return err
	}

	return c.kickOffJob(job, nil)
}

func (c *CronServiceDefault) CreateJobScheduled(function string, args any, tags []string, jobDef gocron.JobDefinition) error {
	job, err := c.createJobRecord(function, args, tags)
	if err != nil {
		return err
	}

	return c.kickOffJob(job, jobDef)
}

func (c *CronServiceDefault) CreateJobIfNotExists(function string, args any, tags []string) error {
	exists, _ := c.JobExists(function, args, tags)

	if !exists {
		return c.CreateJob(function, args, tags)
	}

	return nil
}

func (c *CronServiceDefault) JobExists(function string, args any, tags []string) (bool, *models.CronJob) {
	var job models.CronJob

	job.Tags = tags
	job.Function = function

	if args != nil {
		bytes, err := json.Marshal(args)
		if err != nil {
			return false, nil
		}

		job.Args = string(bytes)
	}

	result := c.db.Where(&job).First(&job)

	if result.Error != nil {
		return false, nil
	}

	return true, &job
}

// StopJobsByTag removes scheduled jobs carrying the tag and deletes
// their persisted records so they do not come back on boot.
func (c *CronServiceDefault) StopJobsByTag(tag string) error {
	c.scheduler.RemoveByTags(tag)

	// Tags serialize to a JSON array, so match the quoted element.
	tx := c.db.Where("tags LIKE ?", "%\""+tag+"\"%").Delete(&models.CronJob{})

	return tx.Error
}

func (c *CronServiceDefault) createJobRecord(function string, args any, tags []string) (*models.CronJob, error) {
	job := models.CronJob{
		Tags:     tags,
		Function: function,
	}

	if args != nil {
		bytes, err := json.Marshal(args)
		if err != nil {
			return nil, err
		}

		job.Args = string(bytes)
	}

	result := c.db.Create(&job)

	if result.Error != nil {
		return nil, result.Error
	}

	return &job, nil
}
