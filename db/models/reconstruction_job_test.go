package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobStatusTransitions(t *testing.T) {
	tests := []struct {
		name string
		from JobStatus
		to   JobStatus
		want bool
	}{
		{"queued to sfm", JobStatusQueued, JobStatusSfm, true},
		{"sfm to training", JobStatusSfm, JobStatusTraining, true},
		{"training to compressing", JobStatusTraining, JobStatusCompressing, true},
		{"compressing to complete", JobStatusCompressing, JobStatusComplete, true},
		{"queued skips sfm", JobStatusQueued, JobStatusTraining, false},
		{"sfm skips training", JobStatusSfm, JobStatusCompressing, false},
		{"training straight to complete", JobStatusTraining, JobStatusComplete, false},
		{"queued can fail", JobStatusQueued, JobStatusFailed, true},
		{"training can fail", JobStatusTraining, JobStatusFailed, true},
		{"training can cancel", JobStatusTraining, JobStatusCanceled, true},
		{"complete is terminal", JobStatusComplete, JobStatusFailed, false},
		{"failed is terminal", JobStatusFailed, JobStatusSfm, false},
		{"canceled is terminal", JobStatusCanceled, JobStatusQueued, false},
		{"no backwards", JobStatusTraining, JobStatusSfm, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestJobStatusNextStage(t *testing.T) {
	next, ok := JobStatusQueued.NextStage()
	assert.True(t, ok)
	assert.Equal(t, JobStatusSfm, next)

	next, ok = JobStatusCompressing.NextStage()
	assert.True(t, ok)
	assert.Equal(t, JobStatusComplete, next)

	_, ok = JobStatusComplete.NextStage()
	assert.False(t, ok)

	_, ok = JobStatusFailed.NextStage()
	assert.False(t, ok)
}

func TestJobStatusActive(t *testing.T) {
	active := []JobStatus{JobStatusQueued, JobStatusSfm, JobStatusTraining, JobStatusCompressing}
	for _, s := range active {
		assert.True(t, s.Active(), string(s))
		assert.False(t, s.Terminal(), string(s))
	}

	terminal := []JobStatus{JobStatusComplete, JobStatusFailed, JobStatusCanceled}
	for _, s := range terminal {
		assert.False(t, s.Active(), string(s))
		assert.True(t, s.Terminal(), string(s))
	}
}
