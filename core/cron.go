package core

import (
	"github.com/HansenHomeAI/v0-spaceport-website-sub000/db/models"
	"github.com/go-co-op/gocron/v2"
)

type CronTaskFunction func(any, Context) error
type CronTaskArgsFactoryFunction func() any
type CronTaskDefArgsFactoryFunction func() gocron.JobDefinition

const CRON_SERVICE = "cron"

type CronService interface {
	RegisterService(service CronableService)
	RegisterTask(name string, taskFunc CronTaskFunction, taskDefFunc CronTaskDefArgsFactoryFunction, taskArgFunc CronTaskArgsFactoryFunction)
	CreateJob(function string, args any, tags []string) error
	CreateJobScheduled(function string, args any, tags []string, jobDef gocron.JobDefinition) error
	CreateJobIfNotExists(function string, args any, tags []string) error
	JobExists(function string, args any, tags []string) (bool, *models.CronJob)
	StopJobsByTag(tag string) error

	Start(Context) error
	Service
}

// CronableService is implemented by services that register recurring or
// one-time tasks with the cron engine.
type CronableService interface {
	RegisterTasks(cron CronService) error
	ScheduleJobs(cron CronService) error
}

type CronTaskNoArgs struct{}

func CronTaskDefinitionOneTimeJob() gocron.JobDefinition {
	return gocron.OneTimeJob(gocron.OneTimeJobStartImmediately())
}

func CronTaskNoArgsFactory() any {
	return &CronTaskNoArgs{}
}
