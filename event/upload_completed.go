package event

import (
	"github.com/HansenHomeAI/v0-spaceport-website-sub000/core"
	"github.com/HansenHomeAI/v0-spaceport-website-sub000/db/models"
)

const (
	EVENT_UPLOAD_COMPLETED = "upload.completed"
)

func init() {
	core.RegisterEvent(EVENT_UPLOAD_COMPLETED, &UploadCompletedEvent{})
}

type UploadCompletedEvent struct {
	core.Event
}

func (e *UploadCompletedEvent) SetUpload(upload *models.Upload) {
	e.Set("upload", upload)
}

func (e UploadCompletedEvent) Upload() *models.Upload {
	return e.Get("upload").(*models.Upload)
}

func FireUploadCompletedEvent(ctx core.Context, upload *models.Upload) error {
	return Fire[*UploadCompletedEvent](ctx, EVENT_UPLOAD_COMPLETED, func(evt *UploadCompletedEvent) error {
		evt.SetUpload(upload)
		return nil
	})
}
