package service

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	gevent "github.com/gookit/event"
	"go.uber.org/zap"

	"github.com/HansenHomeAI/v0-spaceport-website-sub000/core"
	"github.com/HansenHomeAI/v0-spaceport-website-sub000/db/models"
	"github.com/HansenHomeAI/v0-spaceport-website-sub000/event"
)

// registerNotifications wires job lifecycle events to outgoing email.
func (p *PipelineServiceDefault) registerNotifications() {
	p.ctx.Event().On(event.EVENT_JOB_COMPLETED, gevent.ListenerFunc(func(e gevent.Event) error {
		evt, ok := e.(*event.JobCompletedEvent)
		if !ok {
			return nil
		}

		return p.sendCompletionMail(evt.Job())
	}))

	p.ctx.Event().On(event.EVENT_JOB_FAILED, gevent.ListenerFunc(func(e gevent.Event) error {
		evt, ok := e.(*event.JobFailedEvent)
		if !ok {
			return nil
		}

		return p.sendFailureMail(evt.Job(), evt.Stage())
	}))

	p.ctx.Event().On(event.EVENT_USER_CREATED, gevent.ListenerFunc(func(e gevent.Event) error {
		evt, ok := e.(*event.UserCreatedEvent)
		if !ok {
			return nil
		}

		return p.sendWelcomeMail(evt.User())
	}))
}

func (p *PipelineServiceDefault) mailer() core.MailerService {
	return core.GetService[core.MailerService](p.ctx, core.MAILER_SERVICE)
}

func (p *PipelineServiceDefault) sendWelcomeMail(user *models.User) error {
	vars := core.MailerTemplateData{
		"PortalName": p.ctx.Config().Config().Core.PortalName,
		"Email":      user.Email,
	}

	if err := p.mailer().TemplateSend(core.MAILER_TPL_WELCOME, vars, vars, user.Email); err != nil {
		p.logger.Error("failed to send welcome mail", zap.Error(err))
	}

	return nil
}

func (p *PipelineServiceDefault) sendCompletionMail(job *models.ReconstructionJob) error {
	if job.Email == "" {
		return nil
	}

	psnr, iterations := p.trainingMetrics(job)

	vars := core.MailerTemplateData{
		"JobID":       uuid.UUID(job.UUID).String(),
		"ProjectName": p.projectName(job),
		"PSNR":        fmt.Sprintf("%.2f", psnr),
		"Iterations":  iterations,
	}

	if err := p.mailer().TemplateSend(core.MAILER_TPL_JOB_COMPLETE, vars, vars, job.Email); err != nil {
		p.logger.Error("failed to send completion mail", zap.Error(err))
	}

	return nil
}

func (p *PipelineServiceDefault) sendFailureMail(job *models.ReconstructionJob, stage string) error {
	if job.Email == "" {
		return nil
	}

	vars := core.MailerTemplateData{
		"JobID":       uuid.UUID(job.UUID).String(),
		"ProjectName": p.projectName(job),
		"Stage":       stage,
		"Error":       job.Error,
	}

	if err := p.mailer().TemplateSend(core.MAILER_TPL_JOB_FAILED, vars, vars, job.Email); err != nil {
		p.logger.Error("failed to send failure mail", zap.Error(err))
	}

	return nil
}

func (p *PipelineServiceDefault) projectName(job *models.ReconstructionJob) string {
	if job.Project.Name != "" {
		return job.Project.Name
	}

	var project models.Project
	if err := p.db.First(&project, job.ProjectID).Error; err != nil {
		return fmt.Sprintf("project %d", job.ProjectID)
	}

	return project.Name
}

// trainingMetrics pulls the final PSNR and iteration count from the
// latest successful training run.
func (p *PipelineServiceDefault) trainingMetrics(job *models.ReconstructionJob) (float64, int) {
	var run models.StageRun
	err := p.db.Where(&models.StageRun{JobID: job.ID, Stage: string(models.JobStatusTraining), Success: true}).
		Order("id desc").First(&run).Error
	if err != nil {
		return 0, 0
	}

	var metrics struct {
		FinalPSNR  float64 `json:"final_psnr"`
		Iterations int     `json:"iterations"`
	}
	if unmarshalErr := json.Unmarshal(run.Metrics, &metrics); unmarshalErr != nil {
		return 0, 0
	}

	return metrics.FinalPSNR, metrics.Iterations
}
