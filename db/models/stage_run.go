package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func init() {
	registerModel(&StageRun{})
}

// StageRun records a single attempt of one pipeline stage for a job,
// including the metrics the stage reported on exit.
type StageRun struct {
	gorm.Model
	JobID        uint   `gorm:"index"`
	Stage        string `gorm:"type:varchar(32)"`
	Attempt      int
	StartedAt    *time.Time
	FinishedAt   *time.Time
	Success      bool
	Error        string
	Metrics      datatypes.JSON
	OutputPrefix string
}
