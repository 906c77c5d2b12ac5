package core

import (
	"text/template"
)

const MAILER_SERVICE = "mailer"

const MAILER_TPL_WELCOME = "welcome"
const MAILER_TPL_JOB_COMPLETE = "job_complete"
const MAILER_TPL_JOB_FAILED = "job_failed"

type MailerTemplateData = map[string]any

type MailerTemplate interface {
	Subject() *template.Template
	Body() *template.Template
}

type MailerService interface {
	TemplateSend(template string, subjectVars MailerTemplateData, bodyVars MailerTemplateData, to string) error
	TemplateRegister(name string, template MailerTemplate) error

	Service
}
