package mailer

import (
	"text/template"

	"github.com/HansenHomeAI/v0-spaceport-website-sub000/core"
)

var builtinTemplates = map[string]struct {
	subject string
	body    string
}{
	core.MAILER_TPL_WELCOME: {
		subject: "Welcome to {{.PortalName}}",
		body: `Hi {{.Email}},

Your {{.PortalName}} account is ready. Upload a photo set to start your
first reconstruction.
`,
	},
	core.MAILER_TPL_JOB_COMPLETE: {
		subject: "Your model for {{.ProjectName}} is ready",
		body: `Hi,

Reconstruction job {{.JobID}} for project {{.ProjectName}} finished
successfully.

Final PSNR: {{.PSNR}}
Iterations: {{.Iterations}}

You can download the model from your project page.
`,
	},
	core.MAILER_TPL_JOB_FAILED: {
		subject: "Reconstruction failed for {{.ProjectName}}",
		body: `Hi,

Reconstruction job {{.JobID}} for project {{.ProjectName}} failed during
the {{.Stage}} stage:

    {{.Error}}

Common causes are too few photos or not enough overlap between them. You
can adjust the photo set or parameters and start a new job.
`,
	},
}

// RegisterBuiltinTemplates installs the portal's stock email templates.
func RegisterBuiltinTemplates(registry *TemplateRegistry) {
	for name, tpl := range builtinTemplates {
		registry.RegisterTemplate(name, NewMailerTemplate(
			template.Must(template.New(name+"_subject").Parse(tpl.subject)),
			template.Must(template.New(name+"_body").Parse(tpl.body)),
		))
	}
}
